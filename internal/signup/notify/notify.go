// Package notify delivers outbox messages through a messaging provider.
package notify

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/signup/internal/signup/domain"
)

// Message is one outbound text to a single recipient.
type Message struct {
	// ID is the outbox row id, used as an idempotency key where the
	// provider supports one.
	ID        string
	UserID    string
	Channel   domain.Channel
	Recipient string // digits only, no leading +
	Body      string
}

// Receipt identifies the message at the provider.
type Receipt struct {
	ProviderRef string
}

// Notifier sends messages. Implementations must be safe for concurrent
// use and should wrap errors that will never succeed on retry with
// Permanent.
type Notifier interface {
	Name() string
	Send(ctx context.Context, msg Message) (Receipt, error)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
