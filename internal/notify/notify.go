// Package notify delivers alerts to the operator. Sending is best effort,
// failures are reported and never retried.
package notify

import (
	"context"
)

// Notifier sends text that may contain simple HTML emphasis.
type Notifier interface {
	Send(ctx context.Context, text string) bool
}

// Multi sends to every notifier, it succeeds only if all of them did.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, text string) bool {
	ok := true
	for _, n := range m {
		if !n.Send(ctx, text) {
			ok = false
		}
	}
	return ok
}
