package domain

import (
	"fmt"
	"time"
)

type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// ParseChannel accepts the configured channel names.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(s); c {
	case ChannelWhatsApp, ChannelSMS:
		return c, nil
	default:
		return "", fmt.Errorf("domain: unknown channel %q", s)
	}
}

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is an outbox row: a message committed together with the
// state change that produced it and delivered afterwards.
type Notification struct {
	ID        string
	UserID    string
	Channel   Channel
	Recipient string
	Body      string

	Status      NotificationStatus
	Attempts    int
	LastError   string
	ProviderRef string

	// NextAttemptAt is when a pending row becomes due. A claimed row has it
	// pushed forward to the end of its lease.
	NextAttemptAt time.Time
	SentAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PasscodeMessage renders the text delivered to a newly registered user.
func PasscodeMessage(passcode int) string {
	return fmt.Sprintf("Your registration pin code is %d", passcode)
}
