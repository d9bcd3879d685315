package sesam

import (
	"context"
	"time"
)

// commandTimeout bounds how long a command handler may hold a transaction.
const commandTimeout = time.Second * 10

// sendEmail runs an email delivery best-effort. It uses a fresh context so
// the committed transaction's deadline does not leak into delivery, and it
// logs failures instead of returning them: a ticket that was written must
// survive a flaky SMTP server.
func sendEmail(logger Logger, timeout time.Duration, kind string, fn func(ctx context.Context) error) {
	if timeout <= 0 {
		timeout = DefaultEmailSendTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		logger.Warn("failed to send %s email: %v", kind, err)
	}
}

func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		logger.Warn("activity sink error for %s: %v", event.EventType, err)
	}
}
