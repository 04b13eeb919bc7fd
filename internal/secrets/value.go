package secrets

import "log/slog"

const redacted = "[REDACTED]"

// Value holds a decrypted secret. It never prints its content; callers must
// ask for the plaintext explicitly with Reveal.
type Value struct {
	plain string
}

// NewValue wraps plaintext in a Value.
func NewValue(plain string) Value {
	return Value{plain: plain}
}

// Reveal returns the plaintext.
func (v Value) Reveal() string {
	return v.plain
}

// IsZero reports whether the secret is empty.
func (v Value) IsZero() bool {
	return v.plain == ""
}

func (v Value) String() string {
	if v.plain == "" {
		return ""
	}
	return redacted
}

// GoString keeps %#v from printing the plaintext.
func (v Value) GoString() string {
	return "secrets.Value(" + v.String() + ")"
}

// LogValue implements slog.LogValuer.
func (v Value) LogValue() slog.Value {
	return slog.StringValue(v.String())
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}
