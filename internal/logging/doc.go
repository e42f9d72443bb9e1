// Package logging wraps zap for the CLI and the HTTP service.
//
// Entries go to stderr (stdout carries extraction results) and, when
// logging.otel is set, to the registered OpenTelemetry log provider through
// the otelzap bridge. Every method takes a context; the active span, the run
// id, the transcript file and the request id found on it become fields.
//
// The stderr encoder hides credentials by key and by value pattern. Keys that
// carry meeting text (text, description, prompt and similar) are logged as a
// character count, so transcripts never reach log storage. Entries below
// error level are sampled; errors never are.
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRunID(ctx, runID)
//	logger.Info(ctx, "extraction complete", zap.Int("items", n))
//
// TraceLevel sits below debug and is used for individual rule hits.
//
// In tests, NewTestLogger records entries without redaction:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "skipped segment")
//	tl.AssertLogged(t, zapcore.InfoLevel, "skipped")
//	tl.AssertNoText(t, "prepare the report")
package logging
