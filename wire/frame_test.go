package wire

import "testing"

func parts(sig string) [][]byte {
	return [][]byte{
		[]byte("identity-1"),
		[]byte(Delimiter),
		[]byte(sig),
		[]byte(`{"msg_type":"kernel_info_request"}`),
		[]byte(`{}`),
		[]byte(`{}`),
		[]byte(`{}`),
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	key := []byte("secret")
	header := []byte(`{"msg_type":"kernel_info_request"}`)
	sig := sign(key, header, []byte(`{}`), []byte(`{}`), []byte(`{}`))

	f, err := Decode(parts(sig), key)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(f.Identities) != 1 || string(f.Identities[0]) != "identity-1" {
		t.Fatalf("identities not preserved: %+v", f.Identities)
	}
	if string(f.Header) != string(header) {
		t.Fatalf("header mismatch: %s", f.Header)
	}

	out := Encode(f, key)
	f2, err := Decode(out, key)
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if string(f2.Header) != string(f.Header) || string(f2.Content) != string(f.Content) {
		t.Fatalf("round trip mismatch")
	}
}

func TestDecodeMissingDelimiter(t *testing.T) {
	_, err := Decode([][]byte{[]byte("a"), []byte("b")}, nil)
	if err != ErrMissingDelimiter {
		t.Fatalf("want ErrMissingDelimiter, got %v", err)
	}
}

func TestDecodeMalformedFrame(t *testing.T) {
	p := [][]byte{[]byte(Delimiter), []byte("sig"), []byte("{}")}
	_, err := Decode(p, nil)
	if err != ErrMalformedFrame {
		t.Fatalf("want ErrMalformedFrame, got %v", err)
	}
}

func TestDecodeAuthFailureBitFlip(t *testing.T) {
	key := []byte("secret")
	header := []byte(`{"msg_type":"kernel_info_request"}`)
	sig := sign(key, header, []byte(`{}`), []byte(`{}`), []byte(`{}`))
	// Flip one hex character.
	flipped := []byte(sig)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}

	_, err := Decode(parts(string(flipped)), key)
	if err != ErrAuthFailure {
		t.Fatalf("want ErrAuthFailure, got %v", err)
	}
}

func TestDecodeNoSigningWhenKeyEmpty(t *testing.T) {
	// Garbage signature is ignored entirely when the key is empty.
	f, err := Decode(parts("not-a-real-signature"), nil)
	if err != nil {
		t.Fatalf("Decode with empty key: %v", err)
	}
	out := Encode(f, nil)
	// Signature segment (index 2) must be the empty string.
	if string(out[2]) != "" {
		t.Fatalf("expected empty signature on send, got %q", out[2])
	}
}
