package domain

import "unique"

// InternedString wraps a unique.Handle[string].
// Node names are looked up on every edge insertion and candidate probe, so the
// registry keys on handles instead of raw strings.
type InternedString struct {
	h unique.Handle[string]
}

// NewInternedString interns s.
func NewInternedString(s string) InternedString {
	return InternedString{h: unique.Make(s)}
}

// String returns the underlying string value.
// The zero InternedString reports the empty string.
func (is InternedString) String() string {
	if is.IsZero() {
		return ""
	}
	return is.h.Value()
}

// IsZero reports whether the value was never assigned.
func (is InternedString) IsZero() bool {
	return is.h == unique.Handle[string]{}
}

// MarshalText implements encoding.TextMarshaler.
func (is InternedString) MarshalText() ([]byte, error) {
	return []byte(is.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (is *InternedString) UnmarshalText(text []byte) error {
	is.h = unique.Make(string(text))
	return nil
}
