package shared

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"
)

// ContextKey is the type for request context values owned by the API layer.
type ContextKey string

const (
	// SubjectContextKey carries the operator subject the auth middleware
	// extracted from a validated admin token. Handlers read it to record
	// who performed a grant or triggered a broadcast.
	SubjectContextKey ContextKey = "subject"

	// TraceIDKey carries the per-request trace ID.
	TraceIDKey ContextKey = "traceID"
)

// traceIDBytes sizes the trace ID; 16 bytes renders as 32 hex characters.
const traceIDBytes = 16

// fallbackSeq disambiguates fallback trace IDs minted in the same nanosecond.
var fallbackSeq atomic.Uint64

// SetTraceID returns ctx carrying a freshly generated trace ID. Log lines
// and error payloads produced while handling the request share it, so one
// learner report can be matched to its server-side trail.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, newTraceID())
}

// GetTraceID returns the trace ID carried by ctx, or "" when there is none.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// newTraceID returns a random hex trace ID. When the system entropy source
// fails it degrades to a timestamp-plus-counter ID, which is predictable
// but still unique within the process.
func newTraceID() string {
	b := make([]byte, traceIDBytes)
	if _, err := rand.Read(b); err != nil {
		slog.Error("failed to read random bytes for trace ID",
			slog.String("error", err.Error()))
		binary.BigEndian.PutUint64(b[:8], uint64(time.Now().UnixNano()))
		binary.BigEndian.PutUint64(b[8:], fallbackSeq.Add(1))
	}
	return hex.EncodeToString(b)
}
