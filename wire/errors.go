package wire

import "errors"

// Error kinds distinguished by the framing codec. Framing and signature
// errors are always recoverable: the caller logs them and drops the
// offending message, it never tears down the socket handler loop.
var (
	ErrMissingDelimiter = errors.New("wire: missing <IDS|MSG> delimiter")
	ErrMalformedFrame   = errors.New("wire: fewer than four JSON segments after delimiter")
	ErrAuthFailure      = errors.New("wire: signature mismatch")
)
