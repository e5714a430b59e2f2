package socket

import (
	"log"

	"github.com/go-zeromq/zmq4"
)

// ServeHeartbeat answers every received byte string with the literal
// bytes "ping", ignoring framing entirely, for as long as the heartbeat
// socket is alive. It returns when Recv fails, which happens once the
// socket is closed.
func ServeHeartbeat(s *Socket) {
	for {
		if _, err := s.zsock.Recv(); err != nil {
			return
		}
		if err := s.zsock.Send(zmq4.NewMsg([]byte("ping"))); err != nil {
			log.Printf("socket: heartbeat reply failed: %v", err)
		}
	}
}
