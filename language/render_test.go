package language

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestPNGEncodesBase64(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G'}
	raw, err := PNG{Data: data}.AsJSON(JupyterContext{})
	if err != nil {
		t.Fatalf("AsJSON: %v", err)
	}
	want := `"` + base64.StdEncoding.EncodeToString(data) + `"`
	if string(raw) != want {
		t.Fatalf("encoded = %s, want %s", raw, want)
	}
}

func TestTableRespectsRecordLimit(t *testing.T) {
	table := Table{
		Header: []string{"n"},
		Rows:   [][]string{{"1"}, {"2"}, {"3"}, {"4"}},
	}
	raw, err := table.AsJSON(JupyterContext{RecordLimit: 2})
	if err != nil {
		t.Fatalf("AsJSON: %v", err)
	}
	out := string(raw)
	if !strings.Contains(out, "2 more rows") {
		t.Fatalf("truncation note missing: %s", out)
	}
	if strings.Contains(out, "<td>3</td>") {
		t.Fatalf("rows beyond the record limit leaked: %s", out)
	}
}

func TestTableEscapesCells(t *testing.T) {
	raw, err := Table{Rows: [][]string{{"<script>"}}}.AsJSON(JupyterContext{})
	if err != nil {
		t.Fatalf("AsJSON: %v", err)
	}
	if strings.Contains(string(raw), "<script>") {
		t.Fatalf("cell content not escaped: %s", raw)
	}
}

func TestPlainTextTruncatesToRecordLimit(t *testing.T) {
	raw, err := PlainText{Text: "abcdefgh"}.AsJSON(JupyterContext{RecordLimit: 4})
	if err != nil {
		t.Fatalf("AsJSON: %v", err)
	}
	if string(raw) != `"abcd…"` {
		t.Fatalf("truncated = %s", raw)
	}
}

func TestLaTeXWrapsInDelimiters(t *testing.T) {
	raw, err := LaTeX{Source: `\frac{1}{2}`}.AsJSON(JupyterContext{})
	if err != nil {
		t.Fatalf("AsJSON: %v", err)
	}
	if !strings.HasPrefix(string(raw), `"$$`) || !strings.HasSuffix(string(raw), `$$"`) {
		t.Fatalf("delimiters missing: %s", raw)
	}
}
