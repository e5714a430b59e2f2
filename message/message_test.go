package message

import (
	"encoding/json"
	"testing"

	"jupyterkernel/wire"
)

func TestFromFrameNoParentHeader(t *testing.T) {
	f := &wire.Frame{
		Header:       []byte(`{"msg_id":"abc","session":"sess","msg_type":"kernel_info_request","version":"5.3"}`),
		ParentHeader: []byte(`{}`),
		Metadata:     []byte(`{}`),
		Content:      []byte(`{}`),
	}
	m, err := FromFrame(f)
	if err != nil {
		t.Fatalf("FromFrame: %v", err)
	}
	if !m.ParentHeader.IsZero() {
		t.Fatalf("expected zero parent header, got %+v", m.ParentHeader)
	}
	if m.Header.MsgType != "kernel_info_request" {
		t.Fatalf("msg_type not decoded: %+v", m.Header)
	}
}

func TestToFrameEmptyParentHeaderSerialisesAsEmptyObject(t *testing.T) {
	m := Message{
		Header:  NewHeader(KernelInfoRequest, "sess", "user"),
		Content: json.RawMessage(`{}`),
	}
	f, err := m.ToFrame()
	if err != nil {
		t.Fatalf("ToFrame: %v", err)
	}
	if string(f.ParentHeader) != "{}" {
		t.Fatalf("expected literal {} for absent parent header, got %s", f.ParentHeader)
	}
}

func TestReplyDerivesTypeAndParent(t *testing.T) {
	req := Message{
		Identities: [][]byte{[]byte("id1")},
		Header:     NewHeader(ExecuteRequest, "sess-1", "user"),
		Content:    json.RawMessage(`{"code":"1+1"}`),
	}
	reply, err := req.Reply(ExecutionReply{Status: "ok", ExecutionCount: 1})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply.Header.MsgType != ExecuteReply {
		t.Fatalf("want execute_reply, got %s", reply.Header.MsgType)
	}
	if reply.ParentHeader.MsgID != req.Header.MsgID {
		t.Fatalf("parent header not set to request's own header")
	}
	if reply.Header.Session != req.Header.Session {
		t.Fatalf("session not carried over")
	}
	if len(reply.Identities) != 1 || string(reply.Identities[0]) != "id1" {
		t.Fatalf("identities not preserved")
	}
}

func TestPublicationHasNoIdentities(t *testing.T) {
	parent := NewHeader(ExecuteRequest, "sess-1", "user")
	pub, err := Publication(Status, parent, ExecutionState{ExecutionState: StateBusy})
	if err != nil {
		t.Fatalf("Publication: %v", err)
	}
	if pub.Identities != nil {
		t.Fatalf("expected no identities on a published message")
	}
	if pub.ParentHeader.MsgID != parent.MsgID {
		t.Fatalf("parent header not attached")
	}
}

func TestHeaderUnmarshalTolerance(t *testing.T) {
	var h Header
	if err := json.Unmarshal([]byte(`{"msg_type":"status"}`), &h); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if h.MsgID != nilUUID {
		t.Fatalf("expected nil UUID default for missing msg_id, got %q", h.MsgID)
	}
	if h.Date == "" {
		t.Fatalf("expected a defaulted date")
	}

	long := make([]byte, 0, 64)
	long = append(long, []byte(`{"msg_id":"`)...)
	for i := 0; i < 50; i++ {
		long = append(long, 'a')
	}
	long = append(long, []byte(`"}`)...)
	var h2 Header
	if err := json.Unmarshal(long, &h2); err != nil {
		t.Fatalf("Unmarshal long msg_id: %v", err)
	}
	if len(h2.MsgID) != 36 {
		t.Fatalf("expected msg_id truncated to 36 chars, got %d", len(h2.MsgID))
	}
}

func TestByteOffsetForRuneHandlesMultibyte(t *testing.T) {
	code := "héllo"
	// cursor_pos=2 means after 'h','é' (2 code points), which is byte offset 3
	// ('h' = 1 byte, 'é' = 2 bytes).
	got := ByteOffsetForRune(code, 2)
	if got != 3 {
		t.Fatalf("ByteOffsetForRune(%q, 2) = %d, want 3", code, got)
	}
	if RuneOffsetForByte(code, 3) != 2 {
		t.Fatalf("RuneOffsetForByte(%q, 3) = %d, want 2", code, RuneOffsetForByte(code, 3))
	}
}
