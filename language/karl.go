package language

import (
	"fmt"
	"io"
	"os"
	"sync"

	"jupyterkernel/interpreter"
	"jupyterkernel/lexer"
	"jupyterkernel/parser"
	"jupyterkernel/repl"
)

// KarlKernel is the default embedding-contract implementation: it runs
// cells through the karl lexer/parser/interpreter and exposes the
// top-level environment to the debug sub-protocol's variable inspector.
type KarlKernel struct {
	eval *interpreter.Evaluator
	env  *interpreter.Environment

	mu   sync.Mutex
	conn Connection

	refMu   sync.Mutex
	refs    map[int64]interpreter.Value
	nextRef int64
}

// NewKarlKernel builds a fresh interpreter environment seeded with the
// standard builtins, the way karl/main.go's runCommand does for a
// top-level program.
func NewKarlKernel() *KarlKernel {
	return &KarlKernel{
		eval: interpreter.NewEvaluatorWithSourceAndFilename("", "<jupyter>"),
		env:  interpreter.NewBaseEnvironment(),
		refs: map[int64]interpreter.Value{},
	}
}

func (k *KarlKernel) LanguageInfo() Info {
	return Info{
		LanguageKey:    "karl",
		DisplayName:    "Karl",
		Version:        "0.1.0",
		FileExtensions: []string{".k"},
		MIMEType:       "text/x-karl",
		PygmentsLexer:  "text",
		CodeMirrorMode: "text/x-karl",
		NBConvertName:  "script",
	}
}

func (k *KarlKernel) Connected(conn Connection) {
	k.mu.Lock()
	k.conn = conn
	k.mu.Unlock()
}

// Running lexes, parses and evaluates one cell against the kernel's
// persistent top-level environment, capturing anything the cell writes to
// stdout/stderr as stream frames and publishing a final execute_result
// when evaluation produces a displayable value. Output capture redirects
// the process-wide os.Stdout/os.Stderr for the duration of the call: karl's
// builtins (print, log, ...) write to them directly and have no notion of
// a per-evaluator writer, so this is the only way to intercept them
// without changing every builtin's signature.
func (k *KarlKernel) Running(req ExecutionRequest) ExecutionReply {
	conn := k.connection()

	oldStdout, oldStderr := os.Stdout, os.Stderr
	rOut, wOut, errPipe := os.Pipe()
	if errPipe != nil {
		return ExecutionReply{OK: false, EName: "IOError", EValue: errPipe.Error(), Traceback: []string{errPipe.Error()}}
	}
	rErr, wErr, errPipe := os.Pipe()
	if errPipe != nil {
		wOut.Close()
		rOut.Close()
		return ExecutionReply{OK: false, EName: "IOError", EValue: errPipe.Error(), Traceback: []string{errPipe.Error()}}
	}
	os.Stdout, os.Stderr = wOut, wErr

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		copyStream(conn, "stdout", rOut)
	}()
	go func() {
		defer wg.Done()
		copyStream(conn, "stderr", rErr)
	}()

	val, evalErr := k.evalCode(req.Code)

	wOut.Close()
	wErr.Close()
	os.Stdout, os.Stderr = oldStdout, oldStderr
	wg.Wait()

	if evalErr != nil {
		return ExecutionReply{
			OK:        false,
			EName:     "Error",
			EValue:    evalErr.Error(),
			Traceback: []string{evalErr.Error()},
		}
	}

	if val != nil && !req.Silent {
		if _, isUnit := val.(*interpreter.Unit); !isUnit {
			text := inspectValue(val)
			if conn != nil {
				_ = conn.PublishExecuteResult(
					map[string]interface{}{"text/plain": text},
					map[string]interface{}{},
				)
			}
		}
	}

	return ExecutionReply{OK: true, UserExpressions: map[string]interface{}{}}
}

// IsComplete answers is_complete_request with the same heuristic the
// REPL and notebook use to decide whether to keep accumulating lines.
func (k *KarlKernel) IsComplete(code string) (string, string) {
	p := parser.New(lexer.New(code))
	p.ParseProgram()
	errs := p.ErrorsDetailed()
	if repl.IsIncompleteInput(code, errs) {
		return "incomplete", "    "
	}
	if len(errs) > 0 {
		return "invalid", ""
	}
	return "complete", ""
}

func (k *KarlKernel) evalCode(code string) (interpreter.Value, error) {
	l := lexer.New(code)
	p := parser.New(l)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("parse error: %v", errs)
	}
	val, _, err := k.eval.Eval(program, k.env)
	return val, err
}

func (k *KarlKernel) RunningTime(seconds float64) string {
	return DefaultRunningTime(seconds)
}

func (k *KarlKernel) connection() Connection {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.conn
}

func copyStream(conn Connection, name string, r *os.File) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 && conn != nil {
			_ = conn.PublishStream(name, string(buf[:n]))
		}
		if err != nil {
			if err != io.EOF {
			}
			return
		}
	}
}

func inspectValue(v interpreter.Value) string {
	if pp, ok := v.(interpreter.PrettyPrinter); ok {
		return pp.Pretty(0)
	}
	return v.Inspect()
}

// InspectVariables implements capability E. A nil/zero-Ref request returns
// the top-level environment's user-defined bindings (builtins are
// filtered out: they would otherwise dwarf the variable list with
// hundreds of entries a notebook user never bound themselves). A request
// with Ref != 0 returns that variable's children, walking Object/Map/
// Array/ModuleObject the way Inspect() does.
func (k *KarlKernel) InspectVariables(req *InspectVariableRequest) []InspectVariable {
	if req == nil || req.Ref == 0 {
		return k.rootsVars()
	}
	k.refMu.Lock()
	val, ok := k.refs[req.Ref]
	k.refMu.Unlock()
	if !ok {
		return nil
	}
	return k.childrenOf(val, req.Filter, req.Start, req.Count)
}

func (k *KarlKernel) rootsVars() []InspectVariable {
	snapshot := k.env.Snapshot()
	out := make([]InspectVariable, 0, len(snapshot))
	for name, v := range snapshot {
		if _, isBuiltin := v.(*interpreter.Builtin); isBuiltin {
			continue
		}
		out = append(out, k.toVariable(name, v))
	}
	return out
}

func (k *KarlKernel) childrenOf(v interpreter.Value, filter string, start, count int) []InspectVariable {
	var out []InspectVariable
	switch val := v.(type) {
	case *interpreter.Array:
		if filter == "named" {
			return nil
		}
		for i, el := range val.Elements {
			out = append(out, k.toVariable(fmt.Sprintf("[%d]", i), el))
		}
	case *interpreter.Object:
		if filter == "indexed" {
			return nil
		}
		for name, el := range val.Pairs {
			out = append(out, k.toVariable(name, el))
		}
	case *interpreter.ModuleObject:
		if filter == "indexed" {
			return nil
		}
		if val.Env != nil {
			for name, el := range val.Env.Snapshot() {
				out = append(out, k.toVariable(name, el))
			}
		}
	case *interpreter.Map:
		if filter == "indexed" {
			return nil
		}
		for mk, el := range val.Pairs {
			out = append(out, k.toVariable(mk.Value, el))
		}
	}
	if start > 0 && start < len(out) {
		out = out[start:]
	}
	if count > 0 && count < len(out) {
		out = out[:count]
	}
	return out
}

func (k *KarlKernel) toVariable(name string, v interpreter.Value) InspectVariable {
	ref := int64(0)
	namedChildren, indexedChildren := 0, 0
	switch val := v.(type) {
	case *interpreter.Array:
		indexedChildren = len(val.Elements)
	case *interpreter.Object:
		namedChildren = len(val.Pairs)
	case *interpreter.ModuleObject:
		if val.Env != nil {
			namedChildren = len(val.Env.Snapshot())
		}
	case *interpreter.Map:
		namedChildren = len(val.Pairs)
	}
	if namedChildren > 0 || indexedChildren > 0 {
		ref = k.allocRef(v)
	}
	return InspectVariable{
		Ref:             ref,
		Name:            name,
		Value:           inspectValue(v),
		Typing:          string(v.Type()),
		NamedChildren:   namedChildren,
		IndexedChildren: indexedChildren,
	}
}

func (k *KarlKernel) allocRef(v interpreter.Value) int64 {
	k.refMu.Lock()
	defer k.refMu.Unlock()
	k.nextRef++
	ref := k.nextRef
	k.refs[ref] = v
	return ref
}

// InspectDetails implements the richInspectVariables side of capability
// E: the default karl kernel only has a plain-text rendering, so it
// returns the variable's Value string unconditionally.
func (k *KarlKernel) InspectDetails(v InspectVariable) (Executed, error) {
	return PlainText{Text: v.Value}, nil
}

// InspectModules, InspectSources and Interrupt are optional (capability
// F). The karl evaluator runs a single module (the notebook's own code),
// has no separate "source file" concept to report, and offers no
// cooperative cancellation point for a synchronous top-level Eval call
// (only spawned tasks support cancellation), so Interrupt is a
// documented no-op here.
func (k *KarlKernel) InspectModules(totalHint int) ([]InspectModule, int) {
	return []InspectModule{{ID: 1, Name: "<jupyter>", Path: "<jupyter>"}}, 1
}

func (k *KarlKernel) InspectSources() string { return "" }

func (k *KarlKernel) Interrupt() bool { return false }
