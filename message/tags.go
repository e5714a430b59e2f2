package message

import "strings"

// Tag is one member of the closed set of message types the core
// understands. Messages whose msg_type falls outside this set are not
// rejected: they are preserved verbatim and surface to the embedding
// contract as custom messages, so no enum type is needed in Go.
// Header.MsgType is a plain string and IsKnown below documents the set
// dispatchers switch on.
type Tag = string

const (
	KernelInfoRequest  Tag = "kernel_info_request"
	KernelInfoReplyTag Tag = "kernel_info_reply"

	ExecuteRequest Tag = "execute_request"
	ExecuteReply   Tag = "execute_reply"
	ExecuteResult  Tag = "execute_result"
	ExecuteInput   Tag = "execute_input"

	Stream Tag = "stream"
	Status Tag = "status"
	Error  Tag = "error"

	CommOpen         Tag = "comm_open"
	CommClose        Tag = "comm_close"
	CommInfoReq      Tag = "comm_info_request"
	CommInfoReplyTag Tag = "comm_info_reply"

	IsCompleteRequest  Tag = "is_complete_request"
	IsCompleteReplyTag Tag = "is_complete_reply"

	CompleteRequest  Tag = "complete_request"
	CompleteReplyTag Tag = "complete_reply"

	InspectRequest  Tag = "inspect_request"
	InspectReplyTag Tag = "inspect_reply"

	HistoryRequest  Tag = "history_request"
	HistoryReplyTag Tag = "history_reply"

	InterruptRequest  Tag = "interrupt_request"
	InterruptReplyTag Tag = "interrupt_reply"

	ShutdownRequest Tag = "shutdown_request"
	ShutdownReply   Tag = "shutdown_reply"

	DebugRequest Tag = "debug_request"
	DebugReply   Tag = "debug_reply"
	DebugEvent   Tag = "debug_event"
)

var known = map[Tag]bool{
	KernelInfoRequest: true, KernelInfoReplyTag: true,
	ExecuteRequest: true, ExecuteReply: true, ExecuteResult: true, ExecuteInput: true,
	Stream: true, Status: true, Error: true,
	CommOpen: true, CommClose: true, CommInfoReq: true, CommInfoReplyTag: true,
	IsCompleteRequest: true, IsCompleteReplyTag: true,
	CompleteRequest: true, CompleteReplyTag: true,
	InspectRequest: true, InspectReplyTag: true,
	HistoryRequest: true, HistoryReplyTag: true,
	InterruptRequest: true, InterruptReplyTag: true,
	ShutdownRequest: true, ShutdownReply: true,
	DebugRequest: true, DebugReply: true, DebugEvent: true,
}

// IsKnown reports whether tag is one of the message types the core
// understands natively. Unknown tags are not an error: they flow through
// to the embedding contract as custom messages.
func IsKnown(tag string) bool {
	return known[tag]
}

// ReplyType derives a reply's msg_type from its request's, substituting the
// "_request" suffix with "_reply". The same substitution is applied
// whether or not the request type is one of the closed set, so a custom
// "foo_request" yields "foo_reply".
func ReplyType(requestType string) string {
	if strings.HasSuffix(requestType, "_request") {
		return strings.TrimSuffix(requestType, "_request") + "_reply"
	}
	return requestType + "_reply"
}
