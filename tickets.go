package sesam

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/goliatone/go-errors"
)

// TicketByteLength is the entropy of a credential ticket before hex encoding.
const TicketByteLength = 32

// GenerateTicket returns a new single-use credential token: 32 random bytes,
// hex encoded.
func GenerateTicket() (string, error) {
	buf := make([]byte, TicketByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate credential token")
	}
	return hex.EncodeToString(buf), nil
}

// CooldownRemaining returns how long a caller must still wait before another
// email may be sent. Zero means the cooldown has elapsed or never started.
func CooldownRemaining(lastSentAt *time.Time, window time.Duration, now time.Time) time.Duration {
	if lastSentAt == nil || window <= 0 {
		return 0
	}

	remaining := window - now.Sub(*lastSentAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
