package language

import (
	"strings"
	"sync"
	"testing"
)

// recordingConnection captures everything the kernel publishes during a
// Running call.
type recordingConnection struct {
	mu      sync.Mutex
	results []map[string]interface{}
	streams []string
}

func (r *recordingConnection) PublishExecuteResult(data, metadata map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, data)
	return nil
}

func (r *recordingConnection) PublishStream(name, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streams = append(r.streams, name+":"+text)
	return nil
}

func (r *recordingConnection) PublishDebugEvent(event string, body interface{}) error { return nil }

func (r *recordingConnection) allStreams() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.streams, "")
}

func runCell(t *testing.T, k *KarlKernel, code string) ExecutionReply {
	t.Helper()
	return k.Running(ExecutionRequest{Code: code, StoreHistory: true, ExecutionCount: 1})
}

func TestRunningPublishesResult(t *testing.T) {
	k := NewKarlKernel()
	conn := &recordingConnection{}
	k.Connected(conn)

	reply := runCell(t, k, "1+1")
	if !reply.OK {
		t.Fatalf("reply not OK: %+v", reply)
	}
	if len(conn.results) != 1 {
		t.Fatalf("expected one execute_result, got %d", len(conn.results))
	}
	if conn.results[0]["text/plain"] != "2" {
		t.Fatalf("text/plain = %v, want 2", conn.results[0]["text/plain"])
	}
}

func TestRunningKeepsStateAcrossCells(t *testing.T) {
	k := NewKarlKernel()
	k.Connected(&recordingConnection{})

	if reply := runCell(t, k, "let a = 40"); !reply.OK {
		t.Fatalf("let failed: %+v", reply)
	}
	conn := &recordingConnection{}
	k.Connected(conn)
	if reply := runCell(t, k, "a + 2"); !reply.OK {
		t.Fatalf("read failed: %+v", reply)
	}
	if len(conn.results) != 1 || conn.results[0]["text/plain"] != "42" {
		t.Fatalf("expected 42 from the second cell, got %+v", conn.results)
	}
}

func TestRunningParseErrorBecomesErrorReply(t *testing.T) {
	k := NewKarlKernel()
	k.Connected(&recordingConnection{})

	reply := runCell(t, k, "let = = =")
	if reply.OK {
		t.Fatalf("expected an error reply")
	}
	if reply.EName == "" || len(reply.Traceback) == 0 {
		t.Fatalf("error reply missing detail: %+v", reply)
	}
}

func TestRunningCapturesStdout(t *testing.T) {
	k := NewKarlKernel()
	conn := &recordingConnection{}
	k.Connected(conn)

	reply := runCell(t, k, `log("hello from cell")`)
	if !reply.OK {
		t.Fatalf("reply not OK: %+v", reply)
	}
	if !strings.Contains(conn.allStreams(), "stdout:") ||
		!strings.Contains(conn.allStreams(), "hello from cell") {
		t.Fatalf("stdout not captured: %q", conn.allStreams())
	}
}

func TestSilentRunPublishesNothing(t *testing.T) {
	k := NewKarlKernel()
	conn := &recordingConnection{}
	k.Connected(conn)

	reply := k.Running(ExecutionRequest{Code: "1+1", Silent: true})
	if !reply.OK {
		t.Fatalf("reply not OK: %+v", reply)
	}
	if len(conn.results) != 0 {
		t.Fatalf("silent execution must not publish execute_result")
	}
}

func TestInspectVariablesRootsAndChildren(t *testing.T) {
	k := NewKarlKernel()
	k.Connected(&recordingConnection{})

	if reply := runCell(t, k, `let nums = [10, 20]`); !reply.OK {
		t.Fatalf("setup failed: %+v", reply)
	}

	roots := k.InspectVariables(nil)
	var nums *InspectVariable
	for i := range roots {
		if roots[i].Name == "nums" {
			nums = &roots[i]
		}
	}
	if nums == nil {
		t.Fatalf("nums not in roots: %+v", roots)
	}
	if nums.Ref == 0 || nums.IndexedChildren != 2 {
		t.Fatalf("nums should be expandable with 2 indexed children: %+v", nums)
	}

	children := k.InspectVariables(&InspectVariableRequest{Ref: nums.Ref})
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %+v", children)
	}
	if children[0].Name != "[0]" || children[0].Value != "10" {
		t.Fatalf("unexpected first child: %+v", children[0])
	}

	// A named filter on an array yields nothing.
	if named := k.InspectVariables(&InspectVariableRequest{Ref: nums.Ref, Filter: "named"}); len(named) != 0 {
		t.Fatalf("named filter on an array should be empty, got %+v", named)
	}
}

func TestInspectVariablesHidesBuiltins(t *testing.T) {
	k := NewKarlKernel()
	k.Connected(&recordingConnection{})
	for _, v := range k.InspectVariables(nil) {
		if v.Typing == "BUILTIN" {
			t.Fatalf("builtins must be filtered from the variable roots: %+v", v)
		}
	}
}

func TestIsCompleteStatuses(t *testing.T) {
	k := NewKarlKernel()

	status, _ := k.IsComplete("let x = 1")
	if status != "complete" {
		t.Fatalf("complete program reported %q", status)
	}

	status, indent := k.IsComplete("let f = (x) -> {")
	if status != "incomplete" {
		t.Fatalf("open block reported %q", status)
	}
	if indent == "" {
		t.Fatalf("incomplete input should suggest an indent")
	}

	status, _ = k.IsComplete("let = = =")
	if status != "invalid" {
		t.Fatalf("broken program reported %q", status)
	}
}

func TestInspectDetailsRendersPlainText(t *testing.T) {
	k := NewKarlKernel()
	rendered, err := k.InspectDetails(InspectVariable{Name: "x", Value: "42"})
	if err != nil {
		t.Fatalf("InspectDetails: %v", err)
	}
	if rendered.MimeType() != "text/plain" {
		t.Fatalf("mime type = %s", rendered.MimeType())
	}
	raw, err := rendered.AsJSON(JupyterContext{})
	if err != nil {
		t.Fatalf("AsJSON: %v", err)
	}
	if string(raw) != `"42"` {
		t.Fatalf("rendered = %s", raw)
	}
}
