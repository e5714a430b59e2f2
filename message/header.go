// Package message holds the typed representation of a Jupyter message: the
// identity prefix, header, parent header, metadata, and content, plus the
// closed set of message-type tags the core understands.
package message

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is the Jupyter messaging protocol version this core
// implements and advertises in kernel_info_reply.
const ProtocolVersion = "5.3"

// Header is the {msg_id, session, username, date, msg_type, version} tuple
// stamped on every message.
type Header struct {
	MsgID    string `json:"msg_id"`
	Session  string `json:"session"`
	Username string `json:"username"`
	Date     string `json:"date"`
	MsgType  string `json:"msg_type"`
	Version  string `json:"version"`
}

// NewHeader stamps a fresh msg_id and the current UTC time, as every
// outgoing message must.
func NewHeader(msgType, session, username string) Header {
	return Header{
		MsgID:    uuid.NewString(),
		Session:  session,
		Username: username,
		Date:     time.Now().UTC().Format(time.RFC3339),
		MsgType:  msgType,
		Version:  ProtocolVersion,
	}
}

// nilUUID is stamped in place of a missing msg_id/session, matching the
// tolerant-parsing requirement that missing identifiers default to nil
// UUIDs rather than failing the parse.
const nilUUID = "00000000-0000-0000-0000-000000000000"

// UnmarshalJSON is tolerant of the malformed headers observed in the wild:
// a missing date defaults to "now", missing msg_id/session default to the
// nil UUID, and UUIDs longer than the canonical 36 hyphenated characters
// are truncated rather than rejected.
func (h *Header) UnmarshalJSON(data []byte) error {
	type alias Header
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*h = Header(a)

	if h.MsgID == "" {
		h.MsgID = nilUUID
	} else if len(h.MsgID) > 36 {
		h.MsgID = h.MsgID[:36]
	}
	if h.Session == "" {
		h.Session = nilUUID
	} else if len(h.Session) > 36 {
		h.Session = h.Session[:36]
	}
	if h.Date == "" {
		h.Date = time.Now().UTC().Format(time.RFC3339)
	}
	return nil
}

// IsZero reports whether h is the empty header used for an absent
// parent_header before marshalling (it still serialises as "{}", never
// omitted).
func (h Header) IsZero() bool {
	return h == Header{}
}
