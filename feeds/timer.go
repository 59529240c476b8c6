package feeds

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

const maxRetryDelay = 30 * time.Second

func backoffTimer(delay time.Duration) *time.Timer {
	if delay == backoff.Stop || delay < 0 {
		delay = maxRetryDelay
	}
	return time.NewTimer(delay)
}
