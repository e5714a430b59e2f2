package debugadapter

import (
	"encoding/json"
	"log"
	"math/rand"
	"sync"

	"jupyterkernel/language"
)

// Server handles the DAP commands Jupyter front-ends send through
// debug_request envelopes. One
// Server exists per kernel process (the debug session is scoped to the
// kernel, not to a single control-socket connection).
type Server struct {
	kernel language.Kernel

	mu        sync.Mutex
	started   bool
	seq       int
	hashSeed  uint32
	varCache  map[int64][]varEntry // parent ref -> children, for richInspectVariables lookups
	rootCache []varEntry
}

type varEntry struct {
	ref int64
	v   language.InspectVariable
}

// New builds a debug server bound to the embedding contract's variable
// inspector; hashSeed is generated once and stays stable for the
// process's lifetime, matching debugInfo's documented contract.
func New(k language.Kernel) *Server {
	return &Server{kernel: k, hashSeed: rand.Uint32(), varCache: map[int64][]varEntry{}}
}

// Handle dispatches one embedded DAP request and returns the response to
// wrap into a debug_reply. request_seq always equals the request's own
// seq, and command always echoes the request's command.
func (s *Server) Handle(req Request) Response {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	resp := Response{
		Seq:        seq,
		Type:       "response",
		RequestSeq: req.Seq,
		Command:    req.Command,
		Success:    true,
	}

	switch req.Command {
	case "initialize":
		resp.Body = s.initializeCapabilities()
	case "debugInfo":
		resp.Body = s.debugInfo()
	case "inspectVariables":
		resp.Body = s.inspectVariables()
	case "variables":
		body, err := s.variables(req.Arguments)
		if err != nil {
			resp.Success = false
			resp.Message = err.Error()
			break
		}
		resp.Body = body
	case "richInspectVariables":
		body, err := s.richInspectVariables(req.Arguments)
		if err != nil {
			resp.Success = false
			resp.Message = err.Error()
			break
		}
		resp.Body = body
	case "source":
		resp.Body = map[string]interface{}{"content": s.kernel.InspectSources()}
	case "modules":
		resp.Body = s.modules(req.Arguments)
	case "dumpCell":
		body, err := s.dumpCell(req.Arguments)
		if err != nil {
			resp.Success = false
			resp.Message = err.Error()
			break
		}
		resp.Body = body
	case "attach":
		resp.Body = map[string]interface{}{}
	default:
		log.Printf("debugadapter: unknown DAP command %q", req.Command)
		resp.Body = map[string]interface{}{}
	}

	return resp
}

// initializeCapabilities declares the capabilities the kernel
// advertises to the front-end's debugger.
func (s *Server) initializeCapabilities() map[string]interface{} {
	return map[string]interface{}{
		"supportsCompletionsRequest":          true,
		"supportsConditionalBreakpoints":      true,
		"supportsConfigurationDoneRequest":    true,
		"supportsDelayedStackTraceLoading":    true,
		"supportsEvaluateForHovers":           true,
		"supportsExceptionInfoRequest":        true,
		"supportsExceptionOptions":            true,
		"supportsFunctionBreakpoints":         true,
		"supportsHitConditionalBreakpoints":   true,
		"supportsLogPoints":                   true,
		"supportsModulesRequest":              true,
		"supportsSetExpression":                true,
		"supportsSetVariable":                 true,
		"supportsValueFormattingOptions":      true,
		"supportsVariablePaging":              true,
		"supportTerminateDebuggee":            true,
		"supportsGotoTargetsRequest":          true,
		"supportsClipboardContext":            true,
		"supportsStepInTargetsRequest":        true,
	}
}

// debugInfo transitions the session to "started" on its first call
// (isStarted:false) and reports isStarted:true thereafter.
func (s *Server) debugInfo() map[string]interface{} {
	s.mu.Lock()
	wasStarted := s.started
	s.started = true
	seed := s.hashSeed
	s.mu.Unlock()

	return map[string]interface{}{
		"isStarted":       wasStarted,
		"hashMethod":      "Murmur2",
		"hashSeed":        seed,
		"tmpFilePrefix":   "",
		"tmpFileSuffix":   "",
		"breakpoints":     []interface{}{},
		"stoppedThreads":  []interface{}{},
		"richRendering":   true,
		"exceptionPaths":  []interface{}{},
	}
}

func toVariablesBody(entries []varEntry) map[string]interface{} {
	vars := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		vars = append(vars, map[string]interface{}{
			"name":               e.v.Name,
			"value":              e.v.Value,
			"type":               e.v.Typing,
			"variablesReference": e.ref,
			"namedVariables":     e.v.NamedChildren,
			"indexedVariables":   e.v.IndexedChildren,
			"memoryReference":    e.v.MemoryReference,
		})
	}
	return map[string]interface{}{"variables": vars}
}

func (s *Server) inspectVariables() map[string]interface{} {
	vars := s.kernel.InspectVariables(nil)
	entries := make([]varEntry, 0, len(vars))
	for _, v := range vars {
		entries = append(entries, varEntry{ref: v.Ref, v: v})
	}
	s.mu.Lock()
	s.rootCache = entries
	s.mu.Unlock()
	return toVariablesBody(entries)
}

type variablesArgs struct {
	VariablesReference int64  `json:"variablesReference"`
	Filter             string `json:"filter"`
	Start              int    `json:"start"`
	Count              int    `json:"count"`
}

// variables responds with the children of the variable identified by
// variablesReference, honouring filter ("indexed"|"named"|absent means
// both) and start/count paging.
func (s *Server) variables(raw json.RawMessage) (map[string]interface{}, error) {
	var args variablesArgs
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}
	vars := s.kernel.InspectVariables(&language.InspectVariableRequest{
		Ref:    args.VariablesReference,
		Filter: args.Filter,
		Start:  args.Start,
		Count:  args.Count,
	})
	entries := make([]varEntry, 0, len(vars))
	for _, v := range vars {
		entries = append(entries, varEntry{ref: v.Ref, v: v})
	}
	s.mu.Lock()
	s.varCache[args.VariablesReference] = entries
	s.mu.Unlock()
	return toVariablesBody(entries), nil
}

type richInspectArgs struct {
	VariablesReference int64  `json:"variablesReference"`
	Name               string `json:"name"`
}

// richInspectVariables finds the named variable within the scope
// identified by variablesReference (0 meaning the top-level roots) and
// asks the embedding contract to render it.
func (s *Server) richInspectVariables(raw json.RawMessage) (map[string]interface{}, error) {
	var args richInspectArgs
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}

	s.mu.Lock()
	var scope []varEntry
	if args.VariablesReference == 0 {
		scope = s.rootCache
	} else {
		scope = s.varCache[args.VariablesReference]
	}
	s.mu.Unlock()

	var match *language.InspectVariable
	for _, e := range scope {
		if e.v.Name == args.Name {
			v := e.v
			match = &v
			break
		}
	}
	if match == nil {
		return map[string]interface{}{"data": map[string]interface{}{}}, nil
	}

	rendered, err := s.kernel.InspectDetails(*match)
	if err != nil {
		return nil, err
	}
	encoded, err := rendered.AsJSON(language.JupyterContext{})
	if err != nil {
		return nil, err
	}
	var decoded interface{}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		decoded = string(encoded)
	}
	return map[string]interface{}{
		"data": map[string]interface{}{rendered.MimeType(): decoded},
	}, nil
}

type modulesArgs struct {
	StartModule int `json:"startModule"`
	ModuleCount int `json:"moduleCount"`
}

func (s *Server) modules(raw json.RawMessage) map[string]interface{} {
	var args modulesArgs
	_ = unmarshalArgs(raw, &args)
	mods, total := s.kernel.InspectModules(args.ModuleCount)
	out := make([]map[string]interface{}, 0, len(mods))
	for _, m := range mods {
		out = append(out, map[string]interface{}{"id": m.ID, "name": m.Name, "path": m.Path})
	}
	return map[string]interface{}{"modules": out, "totalModules": total}
}

type dumpCellArgs struct {
	Code string `json:"code"`
}

// dumpCell responds with the opaque source path the kernel associates
// with a newly submitted cell. The path is a stable pseudo-path since
// the karl
// embedding contract evaluates every cell against one persistent
// environment rather than one file per cell.
func (s *Server) dumpCell(raw json.RawMessage) (map[string]interface{}, error) {
	var args dumpCellArgs
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}
	return map[string]interface{}{"sourcePath": "<jupyter>"}, nil
}
