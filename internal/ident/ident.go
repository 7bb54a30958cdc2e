// Package ident generates and (de)serializes the trace and span identifiers
// that a build script threads across process boundaries.
//
// A build identifier is 48 lowercase hex characters: a 128-bit trace id
// followed by a 64-bit span id. A step identifier has the same wire shape
// but only its span half names the step; the trace half is ignored so that
// a single `tracebuild id` call can mint either kind.
package ident

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// Hex widths of the two identifier halves and the combined wire format.
const (
	TraceIDHexLen = 32
	SpanIDHexLen  = 16
	BuildIDHexLen = TraceIDHexLen + SpanIDHexLen
)

// ErrInvalid reports identifier text of the wrong length or with non-hex
// characters. Callers treat it as fatal for the subcommand that needed the id.
var ErrInvalid = errors.New("ident: invalid identifier")

// TraceID is a 128-bit trace identifier, constant across every span of one build.
type TraceID [16]byte

// SpanID is a 64-bit span identifier, unique per span.
type SpanID [8]byte

// String returns the fixed 32-character lowercase hex encoding.
func (t TraceID) String() string { return hex.EncodeToString(t[:]) }

// String returns the fixed 16-character lowercase hex encoding.
func (s SpanID) String() string { return hex.EncodeToString(s[:]) }

// IsZero reports whether every bit of the id is zero. All-zero ids are
// accepted by the codec; backends treat them as an absent reference.
func (t TraceID) IsZero() bool { return t == TraceID{} }

// IsZero reports whether every bit of the id is zero.
func (s SpanID) IsZero() bool { return s == SpanID{} }

// BuildID pairs the trace id shared by a whole build with the span id of
// the build's root span.
type BuildID struct {
	Trace TraceID
	Span  SpanID
}

// StepID is a build-shaped identifier of which only the span half is used.
type StepID struct {
	Span SpanID
}

// String returns the 48-character combined hex encoding.
func (b BuildID) String() string { return b.Trace.String() + b.Span.String() }

// NewBuildID draws a fresh identifier uniformly from the full 192-bit range.
// The full range (rather than a UUID subrange) minimizes collision
// probability across concurrent builds sharing a backend.
func NewBuildID() (BuildID, error) {
	var b BuildID
	if _, err := rand.Read(b.Trace[:]); err != nil {
		return BuildID{}, fmt.Errorf("ident: generate trace id: %w", err)
	}
	if _, err := rand.Read(b.Span[:]); err != nil {
		return BuildID{}, fmt.Errorf("ident: generate span id: %w", err)
	}
	return b, nil
}

// ParseBuildID decodes a 48-character hex build identifier.
func ParseBuildID(s string) (BuildID, error) {
	if len(s) != BuildIDHexLen {
		return BuildID{}, fmt.Errorf("%w: want %d hex characters, got %d", ErrInvalid, BuildIDHexLen, len(s))
	}
	trace, err := ParseTraceID(s[:TraceIDHexLen])
	if err != nil {
		return BuildID{}, err
	}
	span, err := ParseSpanID(s[TraceIDHexLen:])
	if err != nil {
		return BuildID{}, err
	}
	return BuildID{Trace: trace, Span: span}, nil
}

// ParseStepID decodes a step identifier. Steps share the 48-character wire
// format of build ids; only the span half is retained.
func ParseStepID(s string) (StepID, error) {
	b, err := ParseBuildID(s)
	if err != nil {
		return StepID{}, err
	}
	return StepID{Span: b.Span}, nil
}

// ParseTraceID decodes a 32-character hex trace identifier.
func ParseTraceID(s string) (TraceID, error) {
	var t TraceID
	if err := decodeHex(t[:], s, TraceIDHexLen); err != nil {
		return TraceID{}, err
	}
	return t, nil
}

// ParseSpanID decodes a 16-character hex span identifier.
func ParseSpanID(s string) (SpanID, error) {
	var id SpanID
	if err := decodeHex(id[:], s, SpanIDHexLen); err != nil {
		return SpanID{}, err
	}
	return id, nil
}

func decodeHex(dst []byte, s string, wantLen int) error {
	if len(s) != wantLen {
		return fmt.Errorf("%w: want %d hex characters, got %d", ErrInvalid, wantLen, len(s))
	}
	if _, err := hex.Decode(dst, []byte(s)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	return nil
}
