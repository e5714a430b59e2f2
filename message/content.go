package message

// ExecutionRequest is the content of an execute_request message.
// execution_count is intentionally absent here: it is assigned by the
// execution coordinator, never read from the front-end.
type ExecutionRequest struct {
	Code            string                 `json:"code"`
	Silent          bool                   `json:"silent"`
	StoreHistory    bool                   `json:"store_history"`
	UserExpressions map[string]interface{} `json:"user_expressions"`
	AllowStdin      bool                   `json:"allow_stdin"`
	StopOnError     bool                   `json:"stop_on_error"`
}

// Payload is a deprecated execute_reply payload entry. Only "page" and
// "set_next_input" sources are defined by the protocol; both must
// round-trip if present.
type Payload struct {
	Source  string `json:"source"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Start   int    `json:"start,omitempty"`
	Text    string `json:"text,omitempty"`
	Replace bool   `json:"replace,omitempty"`
}

// ExecutionReply is the content of an execute_reply message.
type ExecutionReply struct {
	Status          string                 `json:"status"`
	ExecutionCount  uint32                 `json:"execution_count"`
	Payload         []Payload              `json:"payload,omitempty"`
	UserExpressions map[string]interface{} `json:"user_expressions,omitempty"`
	EName           string                 `json:"ename,omitempty"`
	EValue          string                 `json:"evalue,omitempty"`
	Traceback       []string               `json:"traceback,omitempty"`
}

// ExecutionResult is the content of an execute_result message.
type ExecutionResult struct {
	ExecutionCount uint32                 `json:"execution_count"`
	Data           map[string]interface{} `json:"data"`
	Metadata       map[string]interface{} `json:"metadata"`
	Transient      map[string]interface{} `json:"transient"`
}

// ExecuteInputContent is the content of an execute_input message.
type ExecuteInputContent struct {
	Code           string `json:"code"`
	ExecutionCount uint32 `json:"execution_count"`
}

// StreamFrame is the content of a stream message.
type StreamFrame struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// ExecutionState is the content of a status message.
type ExecutionState struct {
	ExecutionState string `json:"execution_state"`
}

const (
	StateStarting = "starting"
	StateBusy     = "busy"
	StateIdle     = "idle"
)

// ErrorContent is the content of an error message published on iopub when
// execution fails.
type ErrorContent struct {
	EName     string   `json:"ename"`
	EValue    string   `json:"evalue"`
	Traceback []string `json:"traceback"`
}

// HelpLink is one entry of kernel_info_reply's help_links.
type HelpLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// LanguageInfoContent is the language_info member of kernel_info_reply.
type LanguageInfoContent struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	MIMEType       string `json:"mimetype"`
	FileExtension  string `json:"file_extension"`
	PygmentsLexer  string `json:"pygments_lexer,omitempty"`
	CodeMirrorMode string `json:"codemirror_mode,omitempty"`
	NBConvert      string `json:"nbconvert_exporter,omitempty"`
}

// KernelInfoReply is the content of a kernel_info_reply message.
type KernelInfoReply struct {
	Status                string              `json:"status"`
	ProtocolVersion        string              `json:"protocol_version"`
	Implementation         string              `json:"implementation"`
	ImplementationVersion  string              `json:"implementation_version"`
	LanguageInfo           LanguageInfoContent `json:"language_info"`
	Banner                 string              `json:"banner"`
	HelpLinks              []HelpLink          `json:"help_links"`
	Debugger               bool                `json:"debugger"`
}

// CommInfoReply is the content of a comm_info_reply message. The core
// registers no comm targets, so Comms is always empty but still present.
type CommInfoReply struct {
	Status string                 `json:"status"`
	Comms  map[string]interface{} `json:"comms"`
}

// IsCompleteRequestContent is the content of an is_complete_request message.
type IsCompleteRequestContent struct {
	Code string `json:"code"`
}

// IsCompleteReply is the content of an is_complete_reply message.
type IsCompleteReply struct {
	Status string `json:"status"`
	Indent string `json:"indent,omitempty"`
}

// CompleteRequestContent is the content of a complete_request message.
type CompleteRequestContent struct {
	Code      string `json:"code"`
	CursorPos int    `json:"cursor_pos"`
}

// CompleteReply is the content of a complete_reply message.
type CompleteReply struct {
	Status      string                 `json:"status"`
	Matches     []string               `json:"matches"`
	CursorStart int                    `json:"cursor_start"`
	CursorEnd   int                    `json:"cursor_end"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// InspectRequestContent is the content of an inspect_request message.
type InspectRequestContent struct {
	Code           string `json:"code"`
	CursorPos      int    `json:"cursor_pos"`
	DetailLevel    int    `json:"detail_level"`
}

// InspectReply is the content of an inspect_reply message.
type InspectReply struct {
	Status   string                 `json:"status"`
	Found    bool                   `json:"found"`
	Data     map[string]interface{} `json:"data"`
	Metadata map[string]interface{} `json:"metadata"`
}

// HistoryRequestContent is the content of a history_request message.
type HistoryRequestContent struct {
	Output     bool   `json:"output"`
	Raw        bool   `json:"raw"`
	HistAccess string `json:"hist_access_type"`
	Session    int    `json:"session,omitempty"`
	Start      int    `json:"start,omitempty"`
	Stop       int    `json:"stop,omitempty"`
	N          int    `json:"n,omitempty"`
	Pattern    string `json:"pattern,omitempty"`
	Unique     bool   `json:"unique,omitempty"`
}

// HistoryReply is the content of a history_reply message. History is a
// list of [session, line, input] or [session, line, [input, output]]
// triples; kept generic since it round-trips through JSON either way.
type HistoryReply struct {
	Status  string          `json:"status"`
	History [][]interface{} `json:"history"`
}

// InterruptReply is the content of an interrupt_reply message.
type InterruptReply struct {
	Status string `json:"status"`
}

// ShutdownContent is shared by shutdown_request and shutdown_reply: both
// echo the same restart flag.
type ShutdownContent struct {
	Restart bool `json:"restart"`
}

// CommOpenContent is the content of a comm_open message.
type CommOpenContent struct {
	CommID     string      `json:"comm_id"`
	TargetName string      `json:"target_name"`
	Data       interface{} `json:"data"`
}

// CommCloseContent is the content of a comm_close message.
type CommCloseContent struct {
	CommID string      `json:"comm_id"`
	Data   interface{} `json:"data"`
}
