package codec

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID (or errors.Is against the sentinels
// below) rather than matching error strings.
type Kind string

const (
	KindTruncatedInput Kind = "TruncatedInput"
	KindMalformed      Kind = "Malformed"
	KindLengthOverflow Kind = "LengthOverflow"

	// KindDecoding and KindEncoding are umbrella categories. Truncated and
	// malformed input are decoding errors; length overflow is an encoding error.
	KindDecoding Kind = "Decoding"
	KindEncoding Kind = "Encoding"
)

// Error is the codec's structured error type.
//
// RuleID is a stable identifier (e.g. KP-CODEC-001) naming the violated rule.
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

var (
	ErrTruncatedInput = &Error{Kind: KindTruncatedInput, Message: "truncated input"}
	ErrMalformed      = &Error{Kind: KindMalformed, Message: "malformed input"}
	ErrLengthOverflow = &Error{Kind: KindLengthOverflow, Message: "length overflow"}
	ErrDecoding       = &Error{Kind: KindDecoding, Message: "decoding error"}
	ErrEncoding       = &Error{Kind: KindEncoding, Message: "encoding error"}
)

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches sentinels by Kind. A decoding sentinel matches every decoding
// sub-kind and likewise for encoding.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	switch t.Kind {
	case KindDecoding:
		return e.Kind == KindTruncatedInput || e.Kind == KindMalformed
	case KindEncoding:
		return e.Kind == KindLengthOverflow
	}
	return false
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

// Truncated reports a declared length that exceeds the remaining input.
func Truncated(ruleID, msg string) error {
	return newError(KindTruncatedInput, ruleID, msg)
}

// Malformed reports an invalid discriminant, tag or trailing data.
func Malformed(ruleID, msg string) error {
	return newError(KindMalformed, ruleID, msg)
}

// Decoding reports a generic decoding failure. It deliberately carries no cause.
func Decoding(ruleID, msg string) error {
	return newError(KindDecoding, ruleID, msg)
}

// Wrap attaches cause to a new structured error of the given kind.
func Wrap(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg + ": " + cause.Error(), Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
