package language

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// DefaultRunningTime formats the elapsed wall-clock time of a cell as an
// HTML fragment suitable for publishing as an additional execute_result
// with MIME type text/html. Kernel implementations embed this for
// capability D unless they have a language-specific rendering.
func DefaultRunningTime(seconds float64) string {
	return fmt.Sprintf("<div>Elapsed time: %.2f seconds.</div>", seconds)
}

// PlainText is the default Executed implementation for any value whose
// only rendering is its text/plain Inspect() form.
type PlainText struct {
	Text string
}

func (p PlainText) MimeType() string { return "text/plain" }

func (p PlainText) AsJSON(ctx JupyterContext) (json.RawMessage, error) {
	text := p.Text
	if ctx.RecordLimit > 0 && len(text) > ctx.RecordLimit {
		text = text[:ctx.RecordLimit] + "…"
	}
	return json.Marshal(text)
}

// JSONValue is the default Executed implementation for structured values
// that already decode into JSON-able Go data (arrays, maps, objects).
type JSONValue struct {
	Value interface{}
}

func (j JSONValue) MimeType() string { return "application/json" }

func (j JSONValue) AsJSON(ctx JupyterContext) (json.RawMessage, error) {
	return json.Marshal(j.Value)
}

// HTMLFragment is the default Executed implementation for pre-rendered
// HTML, e.g. DefaultRunningTime's output.
type HTMLFragment struct {
	HTML string
}

func (h HTMLFragment) MimeType() string { return "text/html" }

func (h HTMLFragment) AsJSON(ctx JupyterContext) (json.RawMessage, error) {
	return json.Marshal(h.HTML)
}

// URLLink renders a URL as a clickable anchor.
type URLLink struct {
	URL string
}

func (u URLLink) MimeType() string { return "text/html" }

func (u URLLink) AsJSON(ctx JupyterContext) (json.RawMessage, error) {
	return json.Marshal(fmt.Sprintf(`<a href=%q target="_blank">%s</a>`, u.URL, u.URL))
}

// LaTeX renders a LaTeX expression; front-ends typeset it client-side.
// The source should not include the surrounding $$ delimiters.
type LaTeX struct {
	Source string
}

func (l LaTeX) MimeType() string { return "text/latex" }

func (l LaTeX) AsJSON(ctx JupyterContext) (json.RawMessage, error) {
	return json.Marshal("$$" + l.Source + "$$")
}

// MathML renders a MathML document.
type MathML struct {
	Markup string
}

func (m MathML) MimeType() string { return "application/mathml+xml" }

func (m MathML) AsJSON(ctx JupyterContext) (json.RawMessage, error) {
	return json.Marshal(m.Markup)
}

// SVG renders an SVG document inline.
type SVG struct {
	Markup string
}

func (s SVG) MimeType() string { return "image/svg+xml" }

func (s SVG) AsJSON(ctx JupyterContext) (json.RawMessage, error) {
	return json.Marshal(s.Markup)
}

// PNG renders raw PNG bytes; the protocol ships images base64-encoded.
type PNG struct {
	Data []byte
}

func (p PNG) MimeType() string { return "image/png" }

func (p PNG) AsJSON(ctx JupyterContext) (json.RawMessage, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(p.Data))
}

// Table renders a 1-D or 2-D array of stringly cells as an HTML table,
// truncated to the front-end's record limit.
type Table struct {
	Header []string
	Rows   [][]string
}

func (t Table) MimeType() string { return "text/html" }

func (t Table) AsJSON(ctx JupyterContext) (json.RawMessage, error) {
	rows := t.Rows
	truncated := false
	if ctx.RecordLimit > 0 && len(rows) > ctx.RecordLimit {
		rows = rows[:ctx.RecordLimit]
		truncated = true
	}

	var b strings.Builder
	b.WriteString("<table>")
	if len(t.Header) > 0 {
		b.WriteString("<thead><tr>")
		for _, h := range t.Header {
			fmt.Fprintf(&b, "<th>%s</th>", html.EscapeString(h))
		}
		b.WriteString("</tr></thead>")
	}
	b.WriteString("<tbody>")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			fmt.Fprintf(&b, "<td>%s</td>", html.EscapeString(cell))
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	if truncated {
		fmt.Fprintf(&b, "<p>… %d more rows</p>", len(t.Rows)-len(rows))
	}
	return json.Marshal(b.String())
}
