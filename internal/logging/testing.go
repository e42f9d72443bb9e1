package logging

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records entries in memory at every level, trace included.
// Fields are kept as passed; no redaction is applied.
type TestLogger struct {
	*Logger
	logs *observer.ObservedLogs
}

// NewTestLogger returns a recording logger.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(TraceLevel)
	return &TestLogger{
		Logger: wrap(zap.New(core), NewDefaultConfig()),
		logs:   logs,
	}
}

// All returns every entry recorded so far.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.logs.All()
}

// Take returns the recorded entries and forgets them.
func (t *TestLogger) Take() []observer.LoggedEntry {
	return t.logs.TakeAll()
}

func (t *TestLogger) matching(level zapcore.Level, msg string) []observer.LoggedEntry {
	var out []observer.LoggedEntry
	for _, e := range t.logs.All() {
		if e.Level == level && strings.Contains(e.Message, msg) {
			out = append(out, e)
		}
	}
	return out
}

// AssertLogged fails tb unless an entry at level contains msg.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	assert.NotEmptyf(tb, t.matching(level, msg), "no %s entry containing %q in %v", level, msg, t.messages())
}

// AssertNotLogged fails tb if an entry at level contains msg.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	assert.Emptyf(tb, t.matching(level, msg), "unexpected %s entry containing %q", level, msg)
}

// AssertField fails tb unless some entry with message msg carries key=want.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, want any) {
	tb.Helper()
	entries := t.logs.FilterMessage(msg).All()
	require.NotEmptyf(tb, entries, "no entry with message %q", msg)
	var seen []any
	for _, e := range entries {
		if got, ok := e.ContextMap()[key]; ok {
			if assert.ObjectsAreEqualValues(want, got) {
				return
			}
			seen = append(seen, got)
		}
	}
	assert.Failf(tb, "field mismatch", "%q: want %s=%v, saw %v", msg, key, want, seen)
}

// AssertNoSecrets fails tb if a credential-named field holds a readable
// value or any string value looks like a bearer token or API key.
func (t *TestLogger) AssertNoSecrets(tb testing.TB) {
	tb.Helper()
	r, err := newRedactor(NewDefaultConfig().Redaction)
	require.NoError(tb, err)
	for _, e := range t.logs.All() {
		assert.Equal(tb, e.Message, r.str("message", e.Message), "secret in message")
		for _, f := range e.Context {
			if f.Type != zapcore.StringType || f.String == "" || f.String == redacted {
				continue
			}
			if r.hides(f.Key) || r.str("", f.String) != f.String {
				assert.Failf(tb, "secret logged", "%s: field %q", e.Message, f.Key)
			}
		}
	}
}

// AssertNoText fails tb if any of texts appears in a message or string field.
// Tests use it to check that transcript content stays out of the logs.
func (t *TestLogger) AssertNoText(tb testing.TB, texts ...string) {
	tb.Helper()
	for _, e := range t.logs.All() {
		for _, text := range texts {
			assert.NotContainsf(tb, e.Message, text, "entry %q", e.Message)
			for k, v := range e.ContextMap() {
				if s, ok := v.(string); ok {
					assert.NotContainsf(tb, s, text, "entry %q field %q", e.Message, k)
				}
			}
		}
	}
}

func (t *TestLogger) messages() []string {
	all := t.logs.All()
	out := make([]string, len(all))
	for i, e := range all {
		out[i] = fmt.Sprintf("%s:%s", e.Level, e.Message)
	}
	return out
}
