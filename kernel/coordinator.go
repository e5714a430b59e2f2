package kernel

import (
	"sync"
	"time"

	"jupyterkernel/language"
	"jupyterkernel/message"
)

// sender is the slice of socket.Socket the coordinator and dispatcher
// need for outbound traffic; narrowed to an interface so tests can
// observe sends without binding real sockets.
type sender interface {
	Send(m message.Message) error
}

// Coordinator serialises execute_request processing: execution is
// single-flight per session, implemented as a mutex guarding
// the coordinator's own state rather than a thread-per-cell. It also
// tracks the header of whatever request is "in flight" so asynchronous
// outputs (stream frames, execute_result from inside Running, debug
// events) can attach the right parent header without the language kernel
// or debug server needing to thread one through every call.
type Coordinator struct {
	mu             sync.Mutex
	executionCount uint32
	latestRequest  message.Header
	latestDebug    message.Header

	// incrementSilent controls whether execution_count advances for
	// silent:true requests. The protocol's own reference kernels
	// increment unconditionally; some front-ends expect otherwise,
	// so this is a configuration knob rather than a hard-coded choice.
	incrementSilent bool

	kernel  language.Kernel
	iopub   sender
	history HistoryStore
}

// SetHistoryStore attaches a HistoryStore that every completed
// execute_request is recorded into. A nil store (the default) disables
// recording entirely.
func (c *Coordinator) SetHistoryStore(h HistoryStore) { c.history = h }

// NewCoordinator builds a coordinator whose first execute_request is
// assigned execution_count 1, incrementing silent requests by default.
func NewCoordinator(k language.Kernel, iopub sender) *Coordinator {
	return &Coordinator{kernel: k, iopub: iopub, incrementSilent: true}
}

// SetIncrementSilent overrides the silent-execution-count behaviour; see
// the incrementSilent field doc.
func (c *Coordinator) SetIncrementSilent(v bool) { c.incrementSilent = v }

// LatestRequest returns the header of the execute_request currently being
// served, or the zero Header if none is in flight.
func (c *Coordinator) LatestRequest() message.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latestRequest
}

// LatestDebugRequest returns the header of the debug_request currently
// being served, for debug_event parent attachment.
func (c *Coordinator) LatestDebugRequest() message.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latestDebug
}

// SetLatestDebugRequest records the control-socket header a debug_request
// arrived on, so PublishDebugEvent can parent to it.
func (c *Coordinator) SetLatestDebugRequest(h message.Header) {
	c.mu.Lock()
	c.latestDebug = h
	c.mu.Unlock()
}

// ExecutionCount returns the execution_count currently assigned to the
// in-flight request.
func (c *Coordinator) ExecutionCount() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executionCount
}

// Handle runs one execute_request to completion: it assigns the
// execution_count, publishes execute_input, invokes the embedding
// contract's Running, optionally publishes a running_time annotation,
// and returns the execute_reply to send on shell. Ordering guarantees
// (busy/execute_input before any output, execute_reply after all
// outputs) are enforced by the caller (the dispatcher), which brackets
// this call with the busy/idle publications.
func (c *Coordinator) Handle(req message.Message) (message.Message, error) {
	var content message.ExecutionRequest
	if err := req.Decode(&content); err != nil {
		return message.Message{}, err
	}

	c.mu.Lock()
	if !content.Silent || c.incrementSilent {
		c.executionCount++
	}
	execCount := c.executionCount
	c.latestRequest = req.Header
	c.mu.Unlock()

	inputMsg, err := message.Publication(message.ExecuteInput, req.Header, message.ExecuteInputContent{
		Code:           content.Code,
		ExecutionCount: execCount,
	})
	if err != nil {
		return message.Message{}, err
	}
	if err := c.iopub.Send(inputMsg); err != nil {
		return message.Message{}, err
	}

	start := time.Now()
	reply := c.kernel.Running(language.ExecutionRequest{
		Code:            content.Code,
		Silent:          content.Silent,
		StoreHistory:    content.StoreHistory,
		AllowStdin:      content.AllowStdin,
		StopOnError:     content.StopOnError,
		UserExpressions: content.UserExpressions,
		ExecutionCount:  execCount,
	})
	elapsed := time.Since(start).Seconds()

	if runningTime := c.kernel.RunningTime(elapsed); runningTime != "" {
		rtMsg, err := message.Publication(message.ExecuteResult, req.Header, message.ExecutionResult{
			ExecutionCount: execCount,
			Data:           map[string]interface{}{"text/html": runningTime},
			Metadata:       map[string]interface{}{},
			Transient:      map[string]interface{}{},
		})
		if err == nil {
			_ = c.iopub.Send(rtMsg)
		}
	}

	var replyContent message.ExecutionReply
	if reply.OK {
		replyContent = message.ExecutionReply{
			Status:          "ok",
			ExecutionCount:  execCount,
			Payload:         payloadList(reply.Payload),
			UserExpressions: nonNilMap(reply.UserExpressions),
		}
	} else {
		errMsg, err := message.Publication(message.Error, req.Header, message.ErrorContent{
			EName:     reply.EName,
			EValue:    reply.EValue,
			Traceback: reply.Traceback,
		})
		if err == nil {
			_ = c.iopub.Send(errMsg)
		}
		replyContent = message.ExecutionReply{
			Status:         "error",
			ExecutionCount: execCount,
			Payload:        payloadList(reply.Payload),
			EName:          reply.EName,
			EValue:         reply.EValue,
			Traceback:      reply.Traceback,
		}
	}

	if c.history != nil {
		c.history.Record(0, int(execCount), content.Code, replyContent.Status)
	}

	return req.Reply(replyContent)
}

func nonNilMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

// payloadList converts the contract's payload entries into the wire
// shape. A nil result keeps the deprecated field off the wire entirely
// when the kernel produced none.
func payloadList(payloads []language.Payload) []message.Payload {
	if len(payloads) == 0 {
		return nil
	}
	out := make([]message.Payload, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, message.Payload{
			Source:  p.Source,
			Data:    p.Data,
			Start:   p.Start,
			Text:    p.Text,
			Replace: p.Replace,
		})
	}
	return out
}
