package kernel

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"jupyterkernel/debugadapter"
	"jupyterkernel/language"
	"jupyterkernel/message"
)

// scriptedSocket feeds a fixed sequence of inbound messages to a handler
// loop, then blocks until the context is cancelled. Replies are recorded.
type scriptedSocket struct {
	fakeSender
	inbound chan message.Message
}

func newScriptedSocket(msgs ...message.Message) *scriptedSocket {
	ch := make(chan message.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	return &scriptedSocket{inbound: ch}
}

func (s *scriptedSocket) Recv(ctx context.Context) (message.Message, error) {
	select {
	case m := <-s.inbound:
		return m, nil
	case <-ctx.Done():
		return message.Message{}, ctx.Err()
	}
}

func newTestDispatcher(k language.Kernel) (*Dispatcher, *fakeSender, *fakeSender) {
	iopub := &fakeSender{}
	control := &fakeSender{}
	coordinator := NewCoordinator(k, iopub)
	coordinator.SetHistoryStore(NewRingHistoryStore(100))
	d := &Dispatcher{
		iopub:       iopub,
		control:     control,
		coordinator: coordinator,
		debug:       debugadapter.New(k),
		kernel:      k,
		info:        k.LanguageInfo(),
		shutdown:    make(chan struct{}),
	}
	k.Connected(newConnection(iopub, coordinator))
	return d, iopub, control
}

func request(t *testing.T, msgType string, content interface{}) message.Message {
	t.Helper()
	raw, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	return message.Message{
		Identities: [][]byte{[]byte("client-7")},
		Header:     message.NewHeader(msgType, "sess-1", "tester"),
		Content:    raw,
	}
}

func TestShellLoopBracketsWithBusyAndIdle(t *testing.T) {
	d, iopub, _ := newTestDispatcher(&stubKernel{})
	req := request(t, message.KernelInfoRequest, map[string]interface{}{})
	shell := newScriptedSocket(req)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.loop(ctx, shell, d.handleShell)
		close(done)
	}()

	waitFor(t, func() bool { return len(iopub.messages()) >= 2 })
	cancel()
	<-done

	published := iopub.messages()
	if len(published) != 2 {
		t.Fatalf("iopub got %v, want busy and idle only", iopub.types())
	}
	assertStatus(t, published[0], message.StateBusy, req.Header.MsgID)
	assertStatus(t, published[1], message.StateIdle, req.Header.MsgID)

	replies := shell.messages()
	if len(replies) != 1 {
		t.Fatalf("shell got %d replies, want 1", len(replies))
	}
	reply := replies[0]
	if reply.Header.MsgType != message.KernelInfoReplyTag {
		t.Fatalf("reply type = %s", reply.Header.MsgType)
	}
	if string(reply.Identities[0]) != "client-7" {
		t.Fatalf("reply identities not mirrored")
	}
	var content message.KernelInfoReply
	if err := reply.Decode(&content); err != nil {
		t.Fatalf("decode kernel_info_reply: %v", err)
	}
	if content.ProtocolVersion != "5.3" || !content.Debugger || content.Status != "ok" {
		t.Fatalf("unexpected kernel_info_reply: %+v", content)
	}
}

func assertStatus(t *testing.T, m message.Message, state, parentID string) {
	t.Helper()
	if m.Header.MsgType != message.Status {
		t.Fatalf("msg_type = %s, want status", m.Header.MsgType)
	}
	var content message.ExecutionState
	if err := m.Decode(&content); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if content.ExecutionState != state {
		t.Fatalf("execution_state = %q, want %q", content.ExecutionState, state)
	}
	if m.ParentHeader.MsgID != parentID {
		t.Fatalf("status parented to %q, want %q", m.ParentHeader.MsgID, parentID)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not reached before deadline")
}

func TestExecuteRequestOrdering(t *testing.T) {
	k := &stubKernel{}
	k.running = func(req language.ExecutionRequest) language.ExecutionReply {
		_ = k.conn.PublishExecuteResult(map[string]interface{}{"text/plain": "2"}, map[string]interface{}{})
		return language.ExecutionReply{OK: true}
	}
	d, iopub, _ := newTestDispatcher(k)
	shell := newScriptedSocket(request(t, message.ExecuteRequest, message.ExecutionRequest{Code: "1+1"}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.loop(ctx, shell, d.handleShell)
		close(done)
	}()
	waitFor(t, func() bool { return len(iopub.messages()) >= 4 })
	cancel()
	<-done

	got := iopub.types()
	want := []string{message.Status, message.ExecuteInput, message.ExecuteResult, message.Status}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("iopub order = %v, want %v", got, want)
		}
	}
	if len(shell.messages()) != 1 {
		t.Fatalf("expected one execute_reply on shell")
	}
}

func TestIsCompleteDefaultsToUnknown(t *testing.T) {
	d, _, _ := newTestDispatcher(&stubKernel{})
	reply, has := d.handleShell(request(t, message.IsCompleteRequest, map[string]string{"code": "1+"}))
	if !has {
		t.Fatalf("expected a reply")
	}
	var content message.IsCompleteReply
	if err := reply.Decode(&content); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if content.Status != "unknown" {
		t.Fatalf("status = %q, want unknown", content.Status)
	}
}

// oracleKernel adds the three optional shell capabilities on top of the
// base stub, recording the cursor offset it was handed.
type oracleKernel struct {
	stubKernel
	sawCursor int
}

func (o *oracleKernel) IsComplete(code string) (string, string) {
	if code == "let x =" {
		return "incomplete", "    "
	}
	return "complete", ""
}

func (o *oracleKernel) Complete(code string, cursorPos int) language.CompletionReply {
	o.sawCursor = cursorPos
	return language.CompletionReply{Matches: []string{"length"}, CursorStart: 0, CursorEnd: cursorPos}
}

func (o *oracleKernel) Inspect(code string, cursorPos, detailLevel int) language.InspectionReply {
	o.sawCursor = cursorPos
	return language.InspectionReply{Found: true, Data: map[string]interface{}{"text/plain": "doc"}}
}

func TestIsCompleteDelegatesToOracle(t *testing.T) {
	d, _, _ := newTestDispatcher(&oracleKernel{})
	reply, has := d.handleShell(request(t, message.IsCompleteRequest, map[string]string{"code": "let x ="}))
	if !has {
		t.Fatalf("expected a reply")
	}
	var content message.IsCompleteReply
	if err := reply.Decode(&content); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if content.Status != "incomplete" || content.Indent != "    " {
		t.Fatalf("oracle answer not used: %+v", content)
	}
}

func TestCompleteDelegatesWithCursorConversion(t *testing.T) {
	k := &oracleKernel{}
	d, _, _ := newTestDispatcher(k)

	// cursor_pos counts code points: 2 points into "héllo" is byte 3.
	reply, has := d.handleShell(request(t, message.CompleteRequest, message.CompleteRequestContent{
		Code: "héllo", CursorPos: 2,
	}))
	if !has {
		t.Fatalf("expected a reply")
	}
	if k.sawCursor != 3 {
		t.Fatalf("provider saw byte offset %d, want 3", k.sawCursor)
	}
	var content message.CompleteReply
	if err := reply.Decode(&content); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(content.Matches) != 1 || content.Matches[0] != "length" {
		t.Fatalf("matches = %v", content.Matches)
	}
	// The provider's byte bounds come back as code-point offsets.
	if content.CursorStart != 0 || content.CursorEnd != 2 {
		t.Fatalf("cursor bounds = [%d, %d], want [0, 2]", content.CursorStart, content.CursorEnd)
	}
}

func TestInspectDelegatesToProvider(t *testing.T) {
	d, _, _ := newTestDispatcher(&oracleKernel{})
	reply, has := d.handleShell(request(t, message.InspectRequest, message.InspectRequestContent{
		Code: "nums", CursorPos: 4,
	}))
	if !has {
		t.Fatalf("expected a reply")
	}
	var content message.InspectReply
	if err := reply.Decode(&content); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !content.Found || content.Data["text/plain"] != "doc" {
		t.Fatalf("provider answer not used: %+v", content)
	}
}

func TestInspectDefaultsToNotFound(t *testing.T) {
	d, _, _ := newTestDispatcher(&stubKernel{})
	reply, has := d.handleShell(request(t, message.InspectRequest, message.InspectRequestContent{Code: "x"}))
	if !has {
		t.Fatalf("expected a reply")
	}
	var content message.InspectReply
	if err := reply.Decode(&content); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if content.Status != "ok" || content.Found {
		t.Fatalf("unexpected fallback reply: %+v", content)
	}
}

func TestCommInfoRepliesWithEmptyTable(t *testing.T) {
	d, _, _ := newTestDispatcher(&stubKernel{})
	reply, has := d.handleShell(request(t, message.CommInfoReq, map[string]interface{}{}))
	if !has {
		t.Fatalf("expected a reply")
	}
	var content message.CommInfoReply
	if err := reply.Decode(&content); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if content.Status != "ok" || len(content.Comms) != 0 {
		t.Fatalf("unexpected comm_info_reply: %+v", content)
	}
}

func TestUnknownTypeYieldsNoReply(t *testing.T) {
	d, _, _ := newTestDispatcher(&stubKernel{})
	_, has := d.handleShell(request(t, "made_up_request", map[string]interface{}{}))
	if has {
		t.Fatalf("custom messages without a handler must not produce a reply")
	}
}

type customKernel struct {
	stubKernel
}

func (c *customKernel) HandleCustom(msgType string, content json.RawMessage) (interface{}, bool) {
	if msgType == "echo_request" {
		return map[string]string{"echo": "yes"}, true
	}
	return nil, false
}

func TestCustomTypeDelegatedToContract(t *testing.T) {
	d, _, _ := newTestDispatcher(&customKernel{})
	reply, has := d.handleShell(request(t, "echo_request", map[string]interface{}{}))
	if !has {
		t.Fatalf("expected the contract-provided reply")
	}
	if reply.Header.MsgType != "echo_reply" {
		t.Fatalf("reply type = %s, want echo_reply", reply.Header.MsgType)
	}
}

func TestInterruptRequest(t *testing.T) {
	d, _, _ := newTestDispatcher(&stubKernel{})
	reply, has := d.handleControl(request(t, message.InterruptRequest, map[string]interface{}{}))
	if !has {
		t.Fatalf("expected interrupt_reply")
	}
	var content message.InterruptReply
	if err := reply.Decode(&content); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if content.Status != "ok" {
		t.Fatalf("status = %q", content.Status)
	}
}

func TestShutdownRepliesBeforeSignalling(t *testing.T) {
	d, _, control := newTestDispatcher(&stubKernel{})

	_, has := d.handleControl(request(t, message.ShutdownRequest, message.ShutdownContent{Restart: true}))
	if has {
		t.Fatalf("shutdown reply is sent directly, not via the loop")
	}

	select {
	case <-d.Shutdown():
	default:
		t.Fatalf("shutdown channel not closed")
	}
	if !d.Restart() {
		t.Fatalf("restart flag not recorded")
	}

	replies := control.messages()
	if len(replies) != 1 || replies[0].Header.MsgType != message.ShutdownReply {
		t.Fatalf("shutdown_reply not sent on control: %v", control.types())
	}
	var content message.ShutdownContent
	if err := replies[0].Decode(&content); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !content.Restart {
		t.Fatalf("restart flag not echoed")
	}
}

func TestDebugRequestCorrelation(t *testing.T) {
	d, _, _ := newTestDispatcher(&stubKernel{})
	dap, _ := json.Marshal(debugadapter.Request{Seq: 7, Type: "request", Command: "debugInfo"})
	reply, has := d.handleControl(message.Message{
		Identities: [][]byte{[]byte("client-7")},
		Header:     message.NewHeader(message.DebugRequest, "sess-1", "tester"),
		Content:    dap,
	})
	if !has {
		t.Fatalf("expected debug_reply")
	}
	if reply.Header.MsgType != message.DebugReply {
		t.Fatalf("reply type = %s", reply.Header.MsgType)
	}
	var resp debugadapter.Response
	if err := reply.Decode(&resp); err != nil {
		t.Fatalf("decode DAP response: %v", err)
	}
	if resp.RequestSeq != 7 || resp.Command != "debugInfo" || !resp.Success {
		t.Fatalf("unexpected DAP response: %+v", resp)
	}
	body, ok := resp.Body.(map[string]interface{})
	if !ok {
		t.Fatalf("body type %T", resp.Body)
	}
	if body["isStarted"] != false || body["hashMethod"] != "Murmur2" || body["richRendering"] != true {
		t.Fatalf("unexpected debugInfo body: %+v", body)
	}
}
