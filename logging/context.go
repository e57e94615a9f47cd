package logging

import "context"

type traceKeyType int

const traceKeyID = traceKeyType(iota)

// EnableTracing returns a context under which context aware debug logs are written whatever the
// logger level. An empty label is replaced with "trace".
func EnableTracing(ctx context.Context, label string) context.Context {
	if label == "" {
		label = "trace"
	}
	return context.WithValue(ctx, traceKeyID, label)
}

// TraceLabel returns the label tracing was enabled with, empty when it is not.
func TraceLabel(ctx context.Context) string {
	if label, ok := ctx.Value(traceKeyID).(string); ok {
		return label
	}
	return ""
}
