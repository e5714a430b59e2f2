package message

import (
	"bytes"
	"encoding/json"

	"jupyterkernel/wire"
)

// Message is the typed, in-memory representation of one Jupyter message:
// the router identity prefix, header, parent header, metadata, and
// content. Content is kept as raw JSON; callers decode it into a
// message-type-specific struct (or a free-form map for custom types) via
// Decode.
type Message struct {
	Identities   [][]byte
	Header       Header
	ParentHeader Header
	Metadata     map[string]interface{}
	Content      json.RawMessage
	// Buffers are the opaque trailing segments after content. The core
	// never interprets them; they are preserved on pass-through.
	Buffers [][]byte
}

// Decode unmarshals the message's content into v.
func (m Message) Decode(v interface{}) error {
	if len(m.Content) == 0 {
		return nil
	}
	return json.Unmarshal(m.Content, v)
}

// FromFrame decodes a wire.Frame into a Message. Frame-level concerns
// (delimiter, signature) are already resolved by the caller; this only
// unmarshals the four JSON segments.
func FromFrame(f *wire.Frame) (Message, error) {
	var m Message
	m.Identities = f.Identities
	if err := json.Unmarshal(f.Header, &m.Header); err != nil {
		return Message{}, err
	}
	// An absent parent_header arrives as the literal "{}"; keep the zero
	// Header for it rather than letting the tolerant header parser fill
	// in nil-UUID defaults, so re-serialisation round-trips.
	if parent := string(bytes.TrimSpace(f.ParentHeader)); parent != "" && parent != "{}" && parent != "null" {
		if err := json.Unmarshal(f.ParentHeader, &m.ParentHeader); err != nil {
			return Message{}, err
		}
	}
	if len(f.Metadata) > 0 {
		if err := json.Unmarshal(f.Metadata, &m.Metadata); err != nil {
			return Message{}, err
		}
	}
	if m.Metadata == nil {
		m.Metadata = map[string]interface{}{}
	}
	m.Content = append(json.RawMessage(nil), f.Content...)
	m.Buffers = f.Buffers
	return m, nil
}

// ToFrame serialises m into a wire.Frame ready for signing and encoding.
// An empty parent_header is always serialised as "{}", never omitted.
func (m Message) ToFrame() (*wire.Frame, error) {
	header, err := json.Marshal(m.Header)
	if err != nil {
		return nil, err
	}

	parentHeader := []byte("{}")
	if !m.ParentHeader.IsZero() {
		parentHeader, err = json.Marshal(m.ParentHeader)
		if err != nil {
			return nil, err
		}
	}

	metadata := m.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadataBytes, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}

	content := m.Content
	if content == nil {
		content = json.RawMessage("{}")
	}

	return &wire.Frame{
		Identities:   m.Identities,
		Header:       header,
		ParentHeader: parentHeader,
		Metadata:     metadataBytes,
		Content:      content,
		Buffers:      m.Buffers,
	}, nil
}

// Reply builds a reply to m: msg_type is request's type with "_request"
// replaced by "_reply", the parent_header is m's header, and zmq
// identities are carried over unchanged (the router-reply invariant).
// session/username come from m's own header so the reply is scoped to the
// same session the request arrived on.
func (m Message) Reply(content interface{}) (Message, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Identities:   m.Identities,
		Header:       NewHeader(ReplyType(m.Header.MsgType), m.Header.Session, "kernel"),
		ParentHeader: m.Header,
		Metadata:     map[string]interface{}{},
		Content:      raw,
	}, nil
}

// Publication builds an unsolicited message (no identities, published on
// iopub) with parent set to parent's header.
func Publication(msgType string, parent Header, content interface{}) (Message, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Header:       NewHeader(msgType, parent.Session, "kernel"),
		ParentHeader: parent,
		Metadata:     map[string]interface{}{},
		Content:      raw,
	}, nil
}
