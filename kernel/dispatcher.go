package kernel

import (
	"context"
	"errors"
	"log"

	"jupyterkernel/debugadapter"
	"jupyterkernel/language"
	"jupyterkernel/message"
	"jupyterkernel/socket"
	"jupyterkernel/wire"
)

// Dispatcher runs one long-lived task per inbound socket (shell, control,
// stdin), fanning messages to handlers and bracketing every shell/control
// message with busy/idle publications on iopub.
type Dispatcher struct {
	sockets     *socket.Sockets
	iopub       sender
	control     sender
	coordinator *Coordinator
	debug       *debugadapter.Server
	kernel      language.Kernel
	info        language.Info

	shutdown chan struct{}
	restart  bool
}

// NewDispatcher wires the sockets, coordinator, debug server and language
// kernel together. It does not start any goroutines; call Run for that.
func NewDispatcher(sockets *socket.Sockets, k language.Kernel) *Dispatcher {
	coordinator := NewCoordinator(k, sockets.IOPub)
	coordinator.SetHistoryStore(NewRingHistoryStore(1000))
	d := &Dispatcher{
		sockets:     sockets,
		iopub:       sockets.IOPub,
		control:     sockets.Control,
		coordinator: coordinator,
		debug:       debugadapter.New(k),
		kernel:      k,
		info:        k.LanguageInfo(),
		shutdown:    make(chan struct{}),
	}
	k.Connected(newConnection(sockets.IOPub, coordinator))
	return d
}

// Shutdown is closed once a shutdown_request with restart:false has been
// answered; Run's caller selects on it to know when to tear down sockets.
func (d *Dispatcher) Shutdown() <-chan struct{} { return d.shutdown }

// Restart reports whether the shutdown in progress (if any) was
// requested with restart:true.
func (d *Dispatcher) Restart() bool { return d.restart }

// Run starts the shell, control and stdin handler loops. Each runs in its
// own goroutine, one dedicated long-running task per socket;
// Run itself returns immediately.
func (d *Dispatcher) Run(ctx context.Context) {
	go d.loop(ctx, d.sockets.Shell, d.handleShell)
	go d.loop(ctx, d.sockets.Control, d.handleControl)
	go d.loop(ctx, d.sockets.Stdin, d.handleStdin)
	go socket.ServeHeartbeat(d.sockets.Heartbeat)
}

// messageSocket is the slice of socket.Socket a handler loop drives;
// narrowed to an interface so tests can script inbound traffic.
type messageSocket interface {
	Recv(ctx context.Context) (message.Message, error)
	Send(m message.Message) error
}

func (d *Dispatcher) loop(ctx context.Context, s messageSocket, handle func(message.Message) (message.Message, bool)) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := s.Recv(ctx)
		if err != nil {
			// A signature mismatch drops only the offending message;
			// the socket stays open and the next valid request
			// succeeds. A malformed frame or a dead socket ends this
			// handler loop, never the process.
			if errors.Is(err, wire.ErrAuthFailure) {
				log.Printf("kernel: signature verification failed, dropping message")
				continue
			}
			if errors.Is(err, wire.ErrMissingDelimiter) || errors.Is(err, wire.ErrMalformedFrame) {
				log.Printf("kernel: malformed frame, closing handler: %v", err)
				return
			}
			if ctx.Err() != nil {
				return
			}
			log.Printf("kernel: recv error: %v", err)
			return
		}

		if err := d.publishStatus(msg.Header, message.StateBusy); err != nil {
			log.Printf("kernel: publish busy: %v", err)
		}

		reply, hasReply := handle(msg)

		if hasReply {
			if err := s.Send(reply); err != nil {
				log.Printf("kernel: send reply: %v", err)
			}
		}

		if err := d.publishStatus(msg.Header, message.StateIdle); err != nil {
			log.Printf("kernel: publish idle: %v", err)
		}
	}
}

func (d *Dispatcher) publishStatus(parent message.Header, state string) error {
	m, err := message.Publication(message.Status, parent, message.ExecutionState{ExecutionState: state})
	if err != nil {
		return err
	}
	return d.iopub.Send(m)
}

// handleShell dispatches shell-socket messages by msg_type.
func (d *Dispatcher) handleShell(msg message.Message) (message.Message, bool) {
	switch msg.Header.MsgType {
	case message.KernelInfoRequest:
		return d.replyOrLog(d.kernelInfoReply(msg)), true

	case message.ExecuteRequest:
		reply, err := d.coordinator.Handle(msg)
		if err != nil {
			log.Printf("kernel: execute_request: %v", err)
			return message.Message{}, false
		}
		return reply, true

	case message.CommInfoReq:
		return d.replyOrLog(msg.Reply(message.CommInfoReply{Status: "ok", Comms: map[string]interface{}{}})), true

	case message.CommOpen:
		if err := d.handleCommOpen(msg); err != nil {
			log.Printf("kernel: comm_open: %v", err)
		}
		return message.Message{}, false

	case message.IsCompleteRequest:
		return d.replyOrLog(d.isCompleteReply(msg)), true

	case message.CompleteRequest:
		return d.replyOrLog(d.completeReply(msg)), true

	case message.InspectRequest:
		return d.replyOrLog(d.inspectReply(msg)), true

	case message.HistoryRequest:
		var req message.HistoryRequestContent
		_ = msg.Decode(&req)
		n := req.N
		if n <= 0 {
			n = 100
		}
		history := [][]interface{}{}
		for _, e := range d.coordinator.history.Recent(n) {
			if req.Output {
				history = append(history, []interface{}{e.Session, e.Line, []interface{}{e.Input, e.Output}})
			} else {
				history = append(history, []interface{}{e.Session, e.Line, e.Input})
			}
		}
		return d.replyOrLog(msg.Reply(message.HistoryReply{Status: "ok", History: history})), true

	default:
		return d.handleCustom(msg)
	}
}

// isCompleteReply delegates to the embedding contract's completeness
// oracle when it implements one, and answers "unknown" otherwise.
func (d *Dispatcher) isCompleteReply(msg message.Message) (message.Message, error) {
	oracle, ok := d.kernel.(language.CompletenessOracle)
	if !ok {
		return msg.Reply(message.IsCompleteReply{Status: "unknown"})
	}
	var req message.IsCompleteRequestContent
	if err := msg.Decode(&req); err != nil {
		return msg.Reply(message.IsCompleteReply{Status: "unknown"})
	}
	status, indent := oracle.IsComplete(req.Code)
	return msg.Reply(message.IsCompleteReply{Status: status, Indent: indent})
}

// completeReply delegates to the embedding contract's completion
// provider when it implements one. The protocol counts cursor_pos in
// code points; the provider works in byte offsets, so the position is
// converted on the way in and the reply's cursor bounds on the way out.
func (d *Dispatcher) completeReply(msg message.Message) (message.Message, error) {
	provider, ok := d.kernel.(language.CompletionProvider)
	if !ok {
		return msg.Reply(message.CompleteReply{
			Status:      "ok",
			Matches:     []string{},
			CursorStart: 0,
			CursorEnd:   0,
			Metadata:    map[string]interface{}{},
		})
	}
	var req message.CompleteRequestContent
	if err := msg.Decode(&req); err != nil {
		return msg.Reply(message.CompleteReply{Status: "error", Matches: []string{}, Metadata: map[string]interface{}{}})
	}
	result := provider.Complete(req.Code, message.ByteOffsetForRune(req.Code, req.CursorPos))
	matches := result.Matches
	if matches == nil {
		matches = []string{}
	}
	metadata := result.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return msg.Reply(message.CompleteReply{
		Status:      "ok",
		Matches:     matches,
		CursorStart: message.RuneOffsetForByte(req.Code, result.CursorStart),
		CursorEnd:   message.RuneOffsetForByte(req.Code, result.CursorEnd),
		Metadata:    metadata,
	})
}

// inspectReply delegates to the embedding contract's inspection provider
// when it implements one, with the same cursor conversion as
// completeReply.
func (d *Dispatcher) inspectReply(msg message.Message) (message.Message, error) {
	provider, ok := d.kernel.(language.InspectionProvider)
	if !ok {
		return msg.Reply(message.InspectReply{
			Status:   "ok",
			Found:    false,
			Data:     map[string]interface{}{},
			Metadata: map[string]interface{}{},
		})
	}
	var req message.InspectRequestContent
	if err := msg.Decode(&req); err != nil {
		return msg.Reply(message.InspectReply{Status: "error", Data: map[string]interface{}{}, Metadata: map[string]interface{}{}})
	}
	result := provider.Inspect(req.Code, message.ByteOffsetForRune(req.Code, req.CursorPos), req.DetailLevel)
	data := result.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	metadata := result.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return msg.Reply(message.InspectReply{
		Status:   "ok",
		Found:    result.Found,
		Data:     data,
		Metadata: metadata,
	})
}

// handleCustom delegates a msg_type outside the closed set to the
// embedding contract, if it implements language.CustomMessageHandler. If
// the contract doesn't implement the interface, or declines to handle
// this particular message, no reply is sent (busy/idle still bracket the
// (non-)handling).
func (d *Dispatcher) handleCustom(msg message.Message) (message.Message, bool) {
	handler, ok := d.kernel.(language.CustomMessageHandler)
	if !ok {
		return message.Message{}, false
	}
	reply, handled := handler.HandleCustom(msg.Header.MsgType, msg.Content)
	if !handled {
		return message.Message{}, false
	}
	built, err := msg.Reply(reply)
	if err != nil {
		log.Printf("kernel: build custom reply: %v", err)
		return message.Message{}, false
	}
	return built, true
}

// handleControl dispatches control-socket messages by msg_type:
// kernel_info is answered on both sockets, and shutdown/interrupt/debug
// are control-only.
func (d *Dispatcher) handleControl(msg message.Message) (message.Message, bool) {
	switch msg.Header.MsgType {
	case message.KernelInfoRequest:
		return d.replyOrLog(d.kernelInfoReply(msg)), true

	case message.DebugRequest:
		return d.handleDebugRequest(msg), true

	case message.InterruptRequest:
		d.kernel.Interrupt()
		return d.replyOrLog(msg.Reply(message.InterruptReply{Status: "ok"})), true

	case message.ShutdownRequest:
		// Sent directly (not returned for the generic loop to send) so
		// the reply is guaranteed on the wire before the shutdown
		// channel closes and the process begins tearing down sockets.
		d.handleShutdownRequest(msg)
		return message.Message{}, false

	default:
		return message.Message{}, false
	}
}

// handleStdin relays any received message to the embedding contract as a
// custom message; the core only listens on stdin, it never solicits
// input itself, and no reply is ever sent back on the stdin socket.
func (d *Dispatcher) handleStdin(msg message.Message) (message.Message, bool) {
	handler, ok := d.kernel.(language.CustomMessageHandler)
	if !ok {
		log.Printf("kernel: stdin message %s (unsolicited, ignored)", msg.Header.MsgType)
		return message.Message{}, false
	}
	_, _ = handler.HandleCustom(msg.Header.MsgType, msg.Content)
	return message.Message{}, false
}

func (d *Dispatcher) kernelInfoReply(msg message.Message) (message.Message, error) {
	content := message.KernelInfoReply{
		Status:                "ok",
		ProtocolVersion:       message.ProtocolVersion,
		Implementation:        d.info.LanguageKey + "-kernel",
		ImplementationVersion: d.info.Version,
		LanguageInfo: message.LanguageInfoContent{
			Name:           d.info.LanguageKey,
			Version:        d.info.Version,
			MIMEType:       d.info.MIMEType,
			FileExtension:  firstOrEmpty(d.info.FileExtensions),
			PygmentsLexer:  d.info.PygmentsLexer,
			CodeMirrorMode: d.info.CodeMirrorMode,
			NBConvert:      d.info.NBConvertName,
		},
		Banner:    d.info.DisplayName + " Jupyter kernel",
		HelpLinks: []message.HelpLink{},
		Debugger:  true,
	}
	return msg.Reply(content)
}

func (d *Dispatcher) handleShutdownRequest(msg message.Message) {
	var content message.ShutdownContent
	_ = msg.Decode(&content)

	reply, err := msg.Reply(message.ShutdownContent{Restart: content.Restart})
	if err != nil {
		log.Printf("kernel: shutdown reply: %v", err)
		return
	}
	if err := d.control.Send(reply); err != nil {
		log.Printf("kernel: send shutdown reply: %v", err)
	}

	d.restart = content.Restart
	close(d.shutdown)
}

func (d *Dispatcher) handleDebugRequest(msg message.Message) message.Message {
	var dapReq debugadapter.Request
	if err := msg.Decode(&dapReq); err != nil {
		log.Printf("kernel: malformed debug_request: %v", err)
		return message.Message{}
	}
	d.coordinator.SetLatestDebugRequest(msg.Header)
	dapResp := d.debug.Handle(dapReq)
	reply, err := msg.Reply(dapResp)
	if err != nil {
		log.Printf("kernel: debug_reply: %v", err)
		return message.Message{}
	}
	return reply
}

func (d *Dispatcher) replyOrLog(m message.Message, err error) message.Message {
	if err != nil {
		log.Printf("kernel: build reply: %v", err)
		return message.Message{}
	}
	return m
}

func firstOrEmpty(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}
