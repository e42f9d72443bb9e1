package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ctxKey names a correlation value stored on a context. The string is also
// the log field it is written under.
type ctxKey string

const (
	runKey        ctxKey = "run.id"
	transcriptKey ctxKey = "transcript.file"
	requestKey    ctxKey = "request.id"
)

type loggerKey struct{}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

const maxFileLen = 512

// ValidID reports whether id can tag a run or a request.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

func withID(ctx context.Context, key ctxKey, id string) context.Context {
	if !ValidID(id) {
		panic(fmt.Sprintf("logging: invalid %s %q", key, id))
	}
	return context.WithValue(ctx, key, id)
}

func lookup(ctx context.Context, key ctxKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// WithRunID tags ctx with an extraction run. It panics on ids that ValidID
// rejects; run ids are generated, never user input.
func WithRunID(ctx context.Context, id string) context.Context {
	return withID(ctx, runKey, id)
}

// RunIDFromContext returns the run id or "".
func RunIDFromContext(ctx context.Context) string { return lookup(ctx, runKey) }

// WithRequestID tags ctx with an HTTP request id. Callers check ValidID on
// client-supplied ids first.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withID(ctx, requestKey, id)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string { return lookup(ctx, requestKey) }

// WithTranscriptFile records which file is being extracted. Names that are
// empty, oversized or not UTF-8 are ignored.
func WithTranscriptFile(ctx context.Context, file string) context.Context {
	if file == "" || len(file) > maxFileLen || !utf8.ValidString(file) {
		return ctx
	}
	return context.WithValue(ctx, transcriptKey, file)
}

// TranscriptFileFromContext returns the transcript file or "".
func TranscriptFileFromContext(ctx context.Context) string { return lookup(ctx, transcriptKey) }

// ContextFields turns the span and the ids on ctx into log fields.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	for _, k := range [...]ctxKey{runKey, transcriptKey, requestKey} {
		if v := lookup(ctx, k); v != "" {
			fields = append(fields, zap.String(string(k), v))
		}
	}
	return fields
}

// WithLogger stores l on ctx.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger stored on ctx, or one that discards.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return l
	}
	return wrap(zap.NewNop(), NewDefaultConfig())
}
