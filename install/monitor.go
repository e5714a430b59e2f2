package install

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// upgrader follows the same "allow all, this is local dev tooling"
// pattern as spreadsheet/server.go's upgrader: the monitor only ever
// listens on localhost, serving the same machine's browser tab.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StatusEvent is one line pushed to the monitor page: either a kernel
// lifecycle state ("busy"/"idle") or a captured stream line.
type StatusEvent struct {
	Kind string `json:"kind"` // "state" | "stream"
	Text string `json:"text"`
}

// Monitor is a tiny websocket status page the "open" subcommand serves
// alongside launching JupyterLab, so a developer sees live busy/idle
// state and the last few stream lines in a browser tab while JupyterLab
// itself is still loading.
type Monitor struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	history []StatusEvent
}

// NewMonitor builds an empty Monitor.
func NewMonitor() *Monitor {
	return &Monitor{clients: map[*websocket.Conn]bool{}}
}

// Publish records an event and fans it out to every connected client.
func (m *Monitor) Publish(kind, text string) {
	ev := StatusEvent{Kind: kind, Text: text}

	m.mu.Lock()
	m.history = append(m.history, ev)
	if len(m.history) > 200 {
		m.history = m.history[len(m.history)-200:]
	}
	clients := make([]*websocket.Conn, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	for _, c := range clients {
		if err := c.WriteJSON(ev); err != nil {
			m.drop(c)
		}
	}
}

func (m *Monitor) drop(c *websocket.Conn) {
	m.mu.Lock()
	delete(m.clients, c)
	m.mu.Unlock()
	c.Close()
}

// HandleWebSocket upgrades the connection and replays recent history
// before streaming new events.
func (m *Monitor) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("install: monitor upgrade error:", err)
		return
	}

	m.mu.Lock()
	m.clients[conn] = true
	history := append([]StatusEvent(nil), m.history...)
	m.mu.Unlock()

	for _, ev := range history {
		if err := conn.WriteJSON(ev); err != nil {
			m.drop(conn)
			return
		}
	}

	// The monitor is outbound-only; drain and discard anything the
	// page sends so the read loop still detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			m.drop(conn)
			return
		}
	}
}

// HandlePage serves the status page itself.
func (m *Monitor) HandlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(monitorPage))
}

// ServeStatusPage starts the monitor's HTTP server on addr. It returns
// once the server stops listening (normally: never, until the process
// exits).
func ServeStatusPage(addr string, m *Monitor) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", m.HandlePage)
	mux.HandleFunc("/ws", m.HandleWebSocket)
	return http.ListenAndServe(addr, mux)
}

const monitorPage = `<!DOCTYPE html>
<html>
<head><title>jupyterkernel status</title></head>
<body>
<h1>jupyterkernel status</h1>
<pre id="log"></pre>
<script>
  const log = document.getElementById("log");
  const ws = new WebSocket("ws://" + location.host + "/ws");
  ws.onmessage = (ev) => {
    const msg = JSON.parse(ev.data);
    log.textContent += "[" + msg.kind + "] " + msg.text + "\n";
  };
</script>
</body>
</html>`
