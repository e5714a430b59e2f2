// Package language defines the embedding contract: the language-agnostic
// surface a host language plugs into the kernel. It mirrors the capability
// set A-F from the protocol engine's design (language info, connection,
// running a cell, elapsed-time annotation, variable/module inspection,
// interrupt), so the dispatcher and execution coordinator never depend on
// any concrete language directly.
package language

import "encoding/json"

// Info is the language_info member of kernel_info_reply plus the fields
// the kernel-spec installer needs (display name, logos). Called
// repeatedly by the dispatcher; implementations must keep it cheap.
type Info struct {
	LanguageKey      string
	DisplayName      string
	Version          string
	FileExtensions   []string
	MIMEType         string
	PygmentsLexer    string
	CodeMirrorMode   string
	NBConvertName    string
	Logo32           []byte
	Logo64           []byte
}

// ExecutionRequest mirrors message.ExecutionRequest plus the
// execution_count the coordinator has already assigned.
type ExecutionRequest struct {
	Code            string
	Silent          bool
	StoreHistory    bool
	AllowStdin      bool
	StopOnError     bool
	UserExpressions map[string]interface{}
	ExecutionCount  uint32
}

// Payload is one deprecated execute_reply payload entry: a pager-display
// record (Source "page", with Data and Start set) or a next-input record
// (Source "set_next_input", with Text and Replace set). Deprecated by the
// protocol but still consumed by front-ends, so kernels may emit them and
// the dispatcher round-trips them verbatim.
type Payload struct {
	Source  string
	Data    map[string]interface{}
	Start   int
	Text    string
	Replace bool
}

// ExecutionReply is what Running returns once a cell finishes.
type ExecutionReply struct {
	OK              bool
	EName           string
	EValue          string
	Traceback       []string
	UserExpressions map[string]interface{}
	Payload         []Payload
}

// InspectVariableRequest asks for either the top-level variable roots (Ref
// == 0) or the children of a previously returned variable (Ref != 0),
// honouring the DAP filter/start/count triple.
type InspectVariableRequest struct {
	Ref    int64
	Filter string // "indexed" | "named" | "" (both)
	Start  int
	Count  int
}

// InspectVariable is one row of a variable tree: a leaf when Ref == 0, a
// node with retrievable children otherwise.
type InspectVariable struct {
	Ref              int64
	Name             string
	Value            string
	Typing           string
	NamedChildren    int
	IndexedChildren  int
	MemoryReference  string
}

// InspectModule is one entry of the module list.
type InspectModule struct {
	ID   int64
	Name string
	Path string
}

// JupyterContext carries front-end rendering preferences a value renderer
// should respect: the active theme and size limits, so a renderer never
// ships a pathologically large payload to the front-end.
type JupyterContext struct {
	Theme        string // "light" | "dark"
	RecordLimit  int
	ObjectLimit  int
	ObjectDepth  int
}

// Executed is the rendering capability: a value that knows its own MIME
// type and can encode itself as JSON for that MIME type.
type Executed interface {
	MimeType() string
	AsJSON(ctx JupyterContext) (json.RawMessage, error)
}

// Connection is the cheap, clonable publication handle a language kernel
// receives once after socket bind. It exists so the dispatcher and the
// language kernel don't hold back-pointers to each other: the kernel
// receives a handle to publish through, the dispatcher keeps exclusive
// ownership of the iopub socket.
type Connection interface {
	// PublishExecuteResult publishes an execute_result for the
	// currently in-flight execute_request.
	PublishExecuteResult(data map[string]interface{}, metadata map[string]interface{}) error
	// PublishStream publishes a stream frame (name is "stdout" or
	// "stderr") for the currently in-flight execute_request.
	PublishStream(name, text string) error
	// PublishDebugEvent publishes a debug_event on iopub, parented to
	// the debug_request currently being served (or unparented if none).
	PublishDebugEvent(event string, body interface{}) error
}

// Kernel is the full embedding contract (capability set A-F). Only A, B,
// and C are mandatory; D, E, and F may be no-ops (the zero-value
// behaviour documented on each method below is what the dispatcher falls
// back to).
type Kernel interface {
	// A. LanguageInfo is called repeatedly; it must be cheap and pure.
	LanguageInfo() Info
	// B. Connected is called once, after all five sockets are bound.
	Connected(conn Connection)
	// C. Running executes one cell. It may suspend; while it runs it may
	// call back into the Connection to publish results and stream
	// output. The reply's OK flag becomes the execute_reply status.
	Running(req ExecutionRequest) ExecutionReply
	// D. RunningTime returns an optional elapsed-time annotation
	// (typically an HTML fragment). An empty string suppresses
	// emission; DefaultRunningTime always returns a non-empty
	// fragment.
	RunningTime(seconds float64) string
	// E. InspectVariables returns the roots (req == nil) or a
	// variable's children (req != nil).
	InspectVariables(req *InspectVariableRequest) []InspectVariable
	// InspectDetails renders one variable's current value for
	// richInspectVariables.
	InspectDetails(v InspectVariable) (Executed, error)
	// F. InspectModules, InspectSources and Interrupt are optional:
	// implementations that don't support them return (nil, 0), "", and
	// false respectively.
	InspectModules(totalHint int) ([]InspectModule, int)
	InspectSources() string
	// Interrupt asks the kernel to cancel whatever Running call is in
	// flight. It returns true if cancellation was honoured (Running
	// will return an error reply) and false if the request was a
	// cooperative no-op.
	Interrupt() bool
}

// CustomMessageHandler is an optional capability a Kernel may implement
// to answer message types outside the closed set. If a Kernel does not
// implement this interface, custom messages are silently dropped (still
// bracketed by busy/idle).
type CustomMessageHandler interface {
	HandleCustom(msgType string, content json.RawMessage) (reply interface{}, ok bool)
}

// CompletenessOracle is an optional capability a Kernel may implement to
// answer is_complete_request. IsComplete returns one of "complete",
// "incomplete", "invalid" or "unknown", plus the indent to seed the next
// input line with when the status is "incomplete". Kernels that don't
// implement it get an unconditional "unknown" reply.
type CompletenessOracle interface {
	IsComplete(code string) (status, indent string)
}

// CompletionReply is what a CompletionProvider returns. CursorStart and
// CursorEnd are byte offsets into the submitted code; the dispatcher
// converts them to the code-point offsets the protocol expects.
type CompletionReply struct {
	Matches     []string
	CursorStart int
	CursorEnd   int
	Metadata    map[string]interface{}
}

// CompletionProvider is an optional capability a Kernel may implement to
// answer complete_request. cursorPos is a byte offset into code (already
// converted from the protocol's code-point offset). Kernels that don't
// implement it get an empty, well-formed reply.
type CompletionProvider interface {
	Complete(code string, cursorPos int) CompletionReply
}

// InspectionReply is what an InspectionProvider returns: a MIME bundle
// describing the object under the cursor, or Found=false when there is
// nothing to show.
type InspectionReply struct {
	Found    bool
	Data     map[string]interface{}
	Metadata map[string]interface{}
}

// InspectionProvider is an optional capability a Kernel may implement to
// answer inspect_request. cursorPos is a byte offset into code;
// detailLevel is the protocol's 0 (summary) or 1 (source). Kernels that
// don't implement it get a well-formed not-found reply.
type InspectionProvider interface {
	Inspect(code string, cursorPos, detailLevel int) InspectionReply
}
