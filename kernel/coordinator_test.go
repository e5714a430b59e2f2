package kernel

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"jupyterkernel/language"
	"jupyterkernel/message"
)

// fakeSender records every message sent through it, in order.
type fakeSender struct {
	mu   sync.Mutex
	sent []message.Message
}

func (f *fakeSender) Send(m message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeSender) messages() []message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]message.Message, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeSender) types() []string {
	out := []string{}
	for _, m := range f.messages() {
		out = append(out, m.Header.MsgType)
	}
	return out
}

// stubKernel is a minimal language.Kernel whose Running behaviour is
// scripted per test.
type stubKernel struct {
	conn    language.Connection
	running func(req language.ExecutionRequest) language.ExecutionReply
}

func (s *stubKernel) LanguageInfo() language.Info {
	return language.Info{LanguageKey: "stub", DisplayName: "Stub", Version: "0.0.1"}
}
func (s *stubKernel) Connected(conn language.Connection) { s.conn = conn }
func (s *stubKernel) Running(req language.ExecutionRequest) language.ExecutionReply {
	if s.running != nil {
		return s.running(req)
	}
	return language.ExecutionReply{OK: true}
}
func (s *stubKernel) RunningTime(seconds float64) string { return "" }
func (s *stubKernel) InspectVariables(req *language.InspectVariableRequest) []language.InspectVariable {
	return nil
}
func (s *stubKernel) InspectDetails(v language.InspectVariable) (language.Executed, error) {
	return language.PlainText{Text: v.Value}, nil
}
func (s *stubKernel) InspectModules(totalHint int) ([]language.InspectModule, int) { return nil, 0 }
func (s *stubKernel) InspectSources() string                                       { return "" }
func (s *stubKernel) Interrupt() bool                                              { return false }

func executeRequest(t *testing.T, code string, silent bool) message.Message {
	t.Helper()
	content, err := json.Marshal(message.ExecutionRequest{Code: code, Silent: silent, StoreHistory: true})
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	return message.Message{
		Identities: [][]byte{[]byte("frontend-1")},
		Header:     message.NewHeader(message.ExecuteRequest, "sess-1", "tester"),
		Content:    content,
	}
}

func TestCoordinatorAssignsMonotonicExecutionCount(t *testing.T) {
	iopub := &fakeSender{}
	c := NewCoordinator(&stubKernel{}, iopub)

	for want := uint32(1); want <= 3; want++ {
		reply, err := c.Handle(executeRequest(t, "1+1", false))
		if err != nil {
			t.Fatalf("Handle: %v", err)
		}
		var content message.ExecutionReply
		if err := reply.Decode(&content); err != nil {
			t.Fatalf("decode reply: %v", err)
		}
		if content.ExecutionCount != want {
			t.Fatalf("execution_count = %d, want %d", content.ExecutionCount, want)
		}
		if content.Status != "ok" {
			t.Fatalf("status = %q, want ok", content.Status)
		}
	}

	// Every cell published execute_input with the matching count.
	inputs := 0
	for _, m := range iopub.messages() {
		if m.Header.MsgType != message.ExecuteInput {
			continue
		}
		inputs++
		var content message.ExecuteInputContent
		if err := m.Decode(&content); err != nil {
			t.Fatalf("decode execute_input: %v", err)
		}
		if content.ExecutionCount != uint32(inputs) {
			t.Fatalf("execute_input count = %d, want %d", content.ExecutionCount, inputs)
		}
		if content.Code != "1+1" {
			t.Fatalf("execute_input code = %q", content.Code)
		}
	}
	if inputs != 3 {
		t.Fatalf("published %d execute_input messages, want 3", inputs)
	}
}

func TestCoordinatorSilentCountKnob(t *testing.T) {
	iopub := &fakeSender{}
	c := NewCoordinator(&stubKernel{}, iopub)
	c.SetIncrementSilent(false)

	if _, err := c.Handle(executeRequest(t, "x", true)); err != nil {
		t.Fatalf("Handle silent: %v", err)
	}
	reply, err := c.Handle(executeRequest(t, "y", false))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	var content message.ExecutionReply
	if err := reply.Decode(&content); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if content.ExecutionCount != 1 {
		t.Fatalf("execution_count = %d, want 1 (silent request must not increment)", content.ExecutionCount)
	}
}

func TestCoordinatorErrorReply(t *testing.T) {
	iopub := &fakeSender{}
	k := &stubKernel{running: func(req language.ExecutionRequest) language.ExecutionReply {
		return language.ExecutionReply{OK: false, EName: "Error", EValue: "boom", Traceback: []string{"boom"}}
	}}
	c := NewCoordinator(k, iopub)

	reply, err := c.Handle(executeRequest(t, "explode()", false))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	var content message.ExecutionReply
	if err := reply.Decode(&content); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if content.Status != "error" || content.EValue != "boom" {
		t.Fatalf("unexpected error reply: %+v", content)
	}

	sawError := false
	for _, m := range iopub.messages() {
		if m.Header.MsgType == message.Error {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("expected an error publication on iopub, got %v", iopub.types())
	}
}

func TestCoordinatorOutputsPrecedeReply(t *testing.T) {
	iopub := &fakeSender{}
	k := &stubKernel{}
	k.running = func(req language.ExecutionRequest) language.ExecutionReply {
		if err := k.conn.PublishStream("stdout", "hi\n"); err != nil {
			t.Errorf("PublishStream: %v", err)
		}
		if err := k.conn.PublishExecuteResult(
			map[string]interface{}{"text/plain": "2"}, map[string]interface{}{},
		); err != nil {
			t.Errorf("PublishExecuteResult: %v", err)
		}
		return language.ExecutionReply{OK: true}
	}
	c := NewCoordinator(k, iopub)
	k.Connected(newConnection(iopub, c))

	req := executeRequest(t, "1+1", false)
	reply, err := c.Handle(req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	got := iopub.types()
	want := []string{message.ExecuteInput, message.Stream, message.ExecuteResult}
	if len(got) != len(want) {
		t.Fatalf("iopub sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("iopub sequence = %v, want %v", got, want)
		}
	}

	// Asynchronous outputs carry the in-flight request's header as parent.
	for _, m := range iopub.messages() {
		if m.ParentHeader.MsgID != req.Header.MsgID {
			t.Fatalf("%s parented to %q, want %q", m.Header.MsgType, m.ParentHeader.MsgID, req.Header.MsgID)
		}
	}

	// Reply identities mirror the request's, byte for byte.
	if len(reply.Identities) != 1 || string(reply.Identities[0]) != "frontend-1" {
		t.Fatalf("reply identities not preserved: %v", reply.Identities)
	}
}

func TestCoordinatorRoundTripsPayload(t *testing.T) {
	iopub := &fakeSender{}
	k := &stubKernel{running: func(req language.ExecutionRequest) language.ExecutionReply {
		return language.ExecutionReply{
			OK: true,
			Payload: []language.Payload{
				{Source: "page", Data: map[string]interface{}{"text/plain": "docs"}, Start: 2},
				{Source: "set_next_input", Text: "let y = 1", Replace: true},
			},
		}
	}}
	c := NewCoordinator(k, iopub)

	reply, err := c.Handle(executeRequest(t, "help(x)", false))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	var content message.ExecutionReply
	if err := reply.Decode(&content); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if len(content.Payload) != 2 {
		t.Fatalf("payload not round-tripped: %+v", content.Payload)
	}
	if content.Payload[0].Source != "page" || content.Payload[0].Start != 2 ||
		content.Payload[0].Data["text/plain"] != "docs" {
		t.Fatalf("pager record mangled: %+v", content.Payload[0])
	}
	if content.Payload[1].Source != "set_next_input" || content.Payload[1].Text != "let y = 1" ||
		!content.Payload[1].Replace {
		t.Fatalf("next-input record mangled: %+v", content.Payload[1])
	}
}

func TestCoordinatorOmitsEmptyPayload(t *testing.T) {
	iopub := &fakeSender{}
	c := NewCoordinator(&stubKernel{}, iopub)

	reply, err := c.Handle(executeRequest(t, "1+1", false))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if strings.Contains(string(reply.Content), `"payload"`) {
		t.Fatalf("empty payload must stay off the wire: %s", reply.Content)
	}
}

func TestCoordinatorRecordsHistory(t *testing.T) {
	iopub := &fakeSender{}
	c := NewCoordinator(&stubKernel{}, iopub)
	store := NewRingHistoryStore(10)
	c.SetHistoryStore(store)

	if _, err := c.Handle(executeRequest(t, "let a = 1", false)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	recent := store.Recent(1)
	if len(recent) != 1 || recent[0].Input != "let a = 1" {
		t.Fatalf("history not recorded: %+v", recent)
	}
}

func TestPublishBeforeConnectionEstablished(t *testing.T) {
	iopub := &fakeSender{}
	c := NewCoordinator(&stubKernel{}, iopub)
	conn := newConnection(iopub, c)

	// No execute_request in flight: the publish is refused, not sent.
	if err := conn.PublishStream("stdout", "orphan"); err != ErrChannelBlockage {
		t.Fatalf("want ErrChannelBlockage, got %v", err)
	}
	if len(iopub.messages()) != 0 {
		t.Fatalf("nothing should reach iopub without an in-flight request")
	}
}
