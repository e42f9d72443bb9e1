package logging

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/actionitems/internal/config"
)

// maxPatternLen bounds redaction patterns.
const maxPatternLen = 200

const redacted = "[REDACTED]"

type secretField config.Secret

func (s secretField) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddBool("set", config.Secret(s).IsSet())
	enc.AddInt("length", len(config.Secret(s).Value()))
	return nil
}

// Secret logs whether a credential is configured and its length, never the
// value.
func Secret(key string, val config.Secret) zap.Field {
	return zap.Object(key, secretField(val))
}

// redactor decides what happens to one field value.
type redactor struct {
	keys     map[string]bool
	content  map[string]bool
	patterns []*regexp.Regexp
}

func newRedactor(cfg RedactionConfig) (*redactor, error) {
	r := &redactor{
		keys:    lowerSet(cfg.Fields),
		content: lowerSet(cfg.Content),
	}
	for _, p := range cfg.Patterns {
		if len(p) > maxPatternLen {
			return nil, fmt.Errorf("redaction pattern too long (max %d chars): %q", maxPatternLen, p)
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

func lowerSet(keys []string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[strings.ToLower(k)] = true
	}
	return m
}

func (r *redactor) empty() bool {
	return len(r.keys) == 0 && len(r.content) == 0 && len(r.patterns) == 0
}

// hides reports whether the whole value under key must be dropped.
func (r *redactor) hides(key string) bool {
	return r.keys[strings.ToLower(key)]
}

// str returns the loggable form of a string value.
func (r *redactor) str(key, val string) string {
	k := strings.ToLower(key)
	switch {
	case r.keys[k]:
		return redacted
	case r.content[k]:
		// Meeting text is personal data; keep only its size.
		return fmt.Sprintf("[%d chars]", len([]rune(val)))
	}
	for _, re := range r.patterns {
		if re.MatchString(val) {
			return "[REDACTED:pattern]"
		}
	}
	return val
}

func (r *redactor) field(f zapcore.Field) zapcore.Field {
	if f.Type == zapcore.StringType {
		if out := r.str(f.Key, f.String); out != f.String {
			return zap.String(f.Key, out)
		}
		return f
	}
	if r.hides(f.Key) {
		return zap.String(f.Key, redacted)
	}
	return f
}

// RedactingEncoder drops credentials, shortens transcript content and masks
// values matching secret patterns before they reach the wrapped encoder.
type RedactingEncoder struct {
	zapcore.Encoder
	r *redactor
}

// NewRedactingEncoder wraps base. A disabled config passes every field
// through unchanged.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	if !cfg.Enabled {
		return &RedactingEncoder{Encoder: base, r: &redactor{}}, nil
	}
	r, err := newRedactor(cfg)
	if err != nil {
		return nil, err
	}
	return &RedactingEncoder{Encoder: base, r: r}, nil
}

// EncodeEntry redacts call-site fields. The wrapped encoder would add them to
// its own clone without going through this wrapper.
func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if e.r.empty() {
		return e.Encoder.EncodeEntry(ent, fields)
	}
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		out[i] = e.r.field(f)
	}
	return e.Encoder.EncodeEntry(ent, out)
}

// The Add* overrides cover fields attached with Logger.With.

func (e *RedactingEncoder) AddString(key, val string) {
	e.Encoder.AddString(key, e.r.str(key, val))
}

func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.r.hides(key) {
		e.Encoder.AddString(key, redacted)
		return
	}
	e.Encoder.AddByteString(key, val)
}

func (e *RedactingEncoder) AddBinary(key string, val []byte) {
	if e.r.hides(key) {
		e.Encoder.AddString(key, redacted)
		return
	}
	e.Encoder.AddBinary(key, val)
}

func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if e.r.hides(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *RedactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.r.hides(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.r.hides(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

// Clone copies the wrapped encoder and shares the rules.
func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{Encoder: e.Encoder.Clone(), r: e.r}
}
