package socket

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-zeromq/zmq4"

	"jupyterkernel/message"
	"jupyterkernel/wire"
)

// Channel names the five sockets the protocol binds.
type Channel string

const (
	Shell     Channel = "shell"
	Control   Channel = "control"
	Stdin     Channel = "stdin"
	IOPub     Channel = "iopub"
	Heartbeat Channel = "heartbeat"
)

// Socket wraps one zmq4 socket with the signing key needed to frame
// messages on it, and a mutex guarding concurrent sends (iopub in
// particular is written to from multiple goroutines: the shell/control
// dispatcher loops and the execution coordinator's asynchronous output
// path).
type Socket struct {
	name  Channel
	zsock zmq4.Socket
	key   []byte
	mu    sync.Mutex
}

// Recv reads one framed message and decodes it into a message.Message.
// Framing errors (missing delimiter, malformed segment count, signature
// mismatch) are returned to the caller, who is expected to log and
// continue rather than tear down the socket.
func (s *Socket) Recv(ctx context.Context) (message.Message, error) {
	zmsg, err := s.zsock.Recv()
	if err != nil {
		return message.Message{}, fmt.Errorf("socket: recv on %s: %w", s.name, err)
	}
	f, err := wire.Decode(zmsg.Frames, s.key)
	if err != nil {
		return message.Message{}, err
	}
	return message.FromFrame(f)
}

// Send frames m and writes it to the socket. Concurrent Send calls on the
// same Socket are serialised.
func (s *Socket) Send(m message.Message) error {
	f, err := m.ToFrame()
	if err != nil {
		return fmt.Errorf("socket: encode message for %s: %w", s.name, err)
	}
	parts := wire.Encode(f, s.key)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zsock.Send(zmq4.NewMsgFrom(parts...))
}

// Sockets holds the five bound sockets that make up a running kernel.
type Sockets struct {
	Shell     *Socket
	Control   *Socket
	Stdin     *Socket
	IOPub     *Socket
	Heartbeat *Socket

	all []zmq4.Socket
}

// Bind creates and binds all five sockets described by spec. A failure to
// bind any one of them is fatal, per the protocol: sockets already bound
// are closed before returning the error.
func Bind(ctx context.Context, spec ConnectionSpec) (*Sockets, error) {
	key := spec.SigningKey()

	bind := func(name Channel, sockType zmq4.SocketType, port int) (*Socket, error) {
		var z zmq4.Socket
		switch sockType {
		case zmq4.Rep:
			z = zmq4.NewRep(ctx)
		case zmq4.Router:
			z = zmq4.NewRouter(ctx)
		case zmq4.Pub:
			z = zmq4.NewPub(ctx)
		default:
			return nil, fmt.Errorf("socket: unsupported socket type for %s", name)
		}
		addr := spec.Addr(port)
		if err := z.Listen(addr); err != nil {
			return nil, fmt.Errorf("socket: bind %s to %s: %w", name, addr, err)
		}
		return &Socket{name: name, zsock: z, key: key}, nil
	}

	s := &Sockets{}

	var err error
	if s.Heartbeat, err = bind(Heartbeat, zmq4.Rep, spec.HBPort); err != nil {
		return nil, err
	}
	s.all = append(s.all, s.Heartbeat.zsock)

	if s.Shell, err = bind(Shell, zmq4.Router, spec.ShellPort); err != nil {
		s.Close()
		return nil, err
	}
	s.all = append(s.all, s.Shell.zsock)

	if s.Control, err = bind(Control, zmq4.Router, spec.ControlPort); err != nil {
		s.Close()
		return nil, err
	}
	s.all = append(s.all, s.Control.zsock)

	if s.Stdin, err = bind(Stdin, zmq4.Router, spec.StdinPort); err != nil {
		s.Close()
		return nil, err
	}
	s.all = append(s.all, s.Stdin.zsock)

	if s.IOPub, err = bind(IOPub, zmq4.Pub, spec.IOPubPort); err != nil {
		s.Close()
		return nil, err
	}
	s.all = append(s.all, s.IOPub.zsock)

	return s, nil
}

// Close closes every socket that was successfully bound.
func (s *Sockets) Close() {
	for _, z := range s.all {
		z.Close()
	}
}
