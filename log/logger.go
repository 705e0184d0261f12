package log

import "context"

// Logger defines a standard interface for structured logging.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	Fatal(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	// With returns a new logger with added structured fields.
	With(fields map[string]interface{}) Logger
}

// NewNop returns a logger that discards everything. Intended for tests.
func NewNop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...map[string]interface{})        {}
func (nopLogger) Info(context.Context, string, ...map[string]interface{})         {}
func (nopLogger) Warn(context.Context, string, ...map[string]interface{})         {}
func (nopLogger) Error(context.Context, string, error, ...map[string]interface{}) {}
func (nopLogger) Fatal(context.Context, string, error, ...map[string]interface{}) {}
func (n nopLogger) With(map[string]interface{}) Logger                            { return n }
