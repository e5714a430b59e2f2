// Package wire implements the Jupyter multipart wire format: parsing and
// serialising the framed, HMAC-authenticated messages exchanged over the
// five ZeroMQ sockets. It has no knowledge of message content; it deals in
// raw JSON segments only.
package wire

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Delimiter separates ZMQ router identities from the signed message parts.
const Delimiter = "<IDS|MSG>"

// Frame is a single decoded multipart message, still carrying its JSON
// segments as raw bytes. The message package is responsible for decoding
// Header/ParentHeader/Metadata/Content into typed values.
type Frame struct {
	Identities   [][]byte
	Signature    string
	Header       []byte
	ParentHeader []byte
	Metadata     []byte
	Content      []byte
	Buffers      [][]byte
}

// Decode splits a raw ZMQ multipart message into a Frame and verifies its
// signature against key. An empty key disables signing: the signature
// field is not checked on receive (and is the empty string on send).
func Decode(parts [][]byte, key []byte) (*Frame, error) {
	idx := -1
	for i, p := range parts {
		if string(p) == Delimiter {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrMissingDelimiter
	}

	rest := parts[idx+1:]
	// signature + header + parent_header + metadata + content
	if len(rest) < 5 {
		return nil, ErrMalformedFrame
	}

	f := &Frame{
		Identities:   parts[:idx],
		Signature:    string(rest[0]),
		Header:       rest[1],
		ParentHeader: rest[2],
		Metadata:     rest[3],
		Content:      rest[4],
		Buffers:      rest[5:],
	}

	if len(key) > 0 {
		expected := sign(key, f.Header, f.ParentHeader, f.Metadata, f.Content)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(f.Signature)) != 1 {
			return nil, ErrAuthFailure
		}
	}

	return f, nil
}

// Encode serialises a Frame into the raw parts of a ZMQ multipart message,
// computing a fresh signature (or the empty string, when key is empty).
func Encode(f *Frame, key []byte) [][]byte {
	sig := sign(key, f.Header, f.ParentHeader, f.Metadata, f.Content)

	out := make([][]byte, 0, len(f.Identities)+6+len(f.Buffers))
	out = append(out, f.Identities...)
	out = append(out, []byte(Delimiter), []byte(sig), f.Header, f.ParentHeader, f.Metadata, f.Content)
	out = append(out, f.Buffers...)
	return out
}

// sign computes the hex-encoded HMAC-SHA256 over parts, concatenated in
// order. An empty key means signing is disabled and sign always returns "".
func sign(key []byte, parts ...[]byte) string {
	if len(key) == 0 {
		return ""
	}
	mac := hmac.New(sha256.New, key)
	for _, p := range parts {
		mac.Write(p)
	}
	return hex.EncodeToString(mac.Sum(nil))
}
