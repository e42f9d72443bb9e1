package config

import (
	"errors"
	"fmt"
	"time"
)

// Duration is a time.Duration written as "1m30s" in YAML, JSON and
// environment variables.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	switch {
	case err != nil:
		return err
	case v < 0:
		return fmt.Errorf("negative duration %s", b)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

const mask = "[REDACTED]"

var errMaskedSecret = errors.New("secret holds the redaction placeholder, not a value")

// Secret is a credential. It prints and marshals as "[REDACTED]" (or "" when
// unset); only Value exposes it. Unmarshalling the placeholder fails so a
// dumped config cannot be read back with a fake key.
type Secret string

func (s Secret) masked() string {
	if s == "" {
		return ""
	}
	return mask
}

func (s Secret) String() string   { return s.masked() }
func (s Secret) GoString() string { return "config.Secret(" + mask + ")" }

func (s Secret) MarshalText() ([]byte, error) { return []byte(s.masked()), nil }

func (s *Secret) UnmarshalText(b []byte) error {
	if string(b) == mask {
		return errMaskedSecret
	}
	*s = Secret(b)
	return nil
}

// Value returns the credential itself.
func (s Secret) Value() string { return string(s) }

// IsSet reports whether a credential was configured.
func (s Secret) IsSet() bool { return s != "" }
