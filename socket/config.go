// Package socket binds the five ZeroMQ sockets Jupyter front-ends expect
// and moves framed messages across them.
package socket

import (
	"encoding/json"
	"fmt"
	"os"
)

// ConnectionSpec is the front-end-provided connection file. Ports are not
// special-cased when zero: the front-end is responsible for choosing free
// ports, and this struct carries whatever it wrote. Unknown keys in the
// JSON are ignored by encoding/json already.
type ConnectionSpec struct {
	Transport       string `json:"transport"`
	IP              string `json:"ip"`
	ControlPort     int    `json:"control_port"`
	ShellPort       int    `json:"shell_port"`
	StdinPort       int    `json:"stdin_port"`
	IOPubPort       int    `json:"iopub_port"`
	HBPort          int    `json:"hb_port"`
	SignatureScheme string `json:"signature_scheme"`
	Key             string `json:"key"`
	KernelName      string `json:"kernel_name"`
}

// LoadConnectionSpec reads and parses a connection file written by the
// front-end at path.
func LoadConnectionSpec(path string) (ConnectionSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ConnectionSpec{}, fmt.Errorf("socket: read connection file: %w", err)
	}
	var spec ConnectionSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return ConnectionSpec{}, fmt.Errorf("socket: parse connection file: %w", err)
	}
	return spec, nil
}

// Addr formats the transport://ip:port string for one of the spec's ports.
func (c ConnectionSpec) Addr(port int) string {
	return fmt.Sprintf("%s://%s:%d", c.Transport, c.IP, port)
}

// SigningKey returns the HMAC signing key as bytes. An empty key disables
// signing entirely, per the connection file's own convention.
func (c ConnectionSpec) SigningKey() []byte {
	if c.Key == "" {
		return nil
	}
	return []byte(c.Key)
}
