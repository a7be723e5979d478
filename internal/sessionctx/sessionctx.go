// Package sessionctx threads a run's session identifier through
// context.Context so any agent needing session correlation can read it
// without a direct import of internal/engine (which would cycle back
// through internal/executor -> internal/tools).
//
// Grounded on polymarket_agent/run.py's _generate_session_id().
package sessionctx

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ctxKey struct{}

// New builds a session identifier in the YYYYMMDDhhmmss_<6-hex-chars>
// format the base spec documents for prediction-market-style agents.
func New(now time.Time) string {
	return now.UTC().Format("20060102150405") + "_" + uuid.NewString()[:6]
}

// With returns a context carrying sessionID.
func With(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, sessionID)
}

// FromContext returns the session id threaded into ctx by With, if any.
func FromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)
	return v, ok
}
