package socket

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConnectionSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connection.json")
	data := `{
		"transport": "tcp", "ip": "127.0.0.1",
		"control_port": 5001, "shell_port": 5002, "stdin_port": 5003,
		"iopub_port": 5004, "hb_port": 5005,
		"signature_scheme": "hmac-sha256",
		"key": "secret-key",
		"kernel_name": "karl",
		"some_future_field": true
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write connection file: %v", err)
	}

	spec, err := LoadConnectionSpec(path)
	if err != nil {
		t.Fatalf("LoadConnectionSpec: %v", err)
	}
	if spec.Transport != "tcp" || spec.IP != "127.0.0.1" {
		t.Fatalf("transport/ip not parsed: %+v", spec)
	}
	if spec.ShellPort != 5002 || spec.IOPubPort != 5004 || spec.HBPort != 5005 {
		t.Fatalf("ports not parsed: %+v", spec)
	}
	if spec.SignatureScheme != "hmac-sha256" || spec.Key != "secret-key" {
		t.Fatalf("signing fields not parsed: %+v", spec)
	}
}

func TestLoadConnectionSpecMissingFile(t *testing.T) {
	if _, err := LoadConnectionSpec(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected an error for a missing connection file")
	}
}

func TestLoadConnectionSpecMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connection.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConnectionSpec(path); err == nil {
		t.Fatalf("expected an error for malformed JSON")
	}
}

func TestAddrFormatting(t *testing.T) {
	spec := ConnectionSpec{Transport: "tcp", IP: "127.0.0.1"}
	if got := spec.Addr(5002); got != "tcp://127.0.0.1:5002" {
		t.Fatalf("Addr = %q", got)
	}
}

func TestSigningKeyEmptyDisablesSigning(t *testing.T) {
	if key := (ConnectionSpec{}).SigningKey(); key != nil {
		t.Fatalf("empty key must yield nil, got %v", key)
	}
	if key := (ConnectionSpec{Key: "abc"}).SigningKey(); string(key) != "abc" {
		t.Fatalf("key bytes = %q", key)
	}
}
