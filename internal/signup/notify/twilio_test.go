package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/signup/internal/signup/domain"
	"github.com/stretchr/testify/require"
	"github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeCreator struct {
	params *openapi.CreateMessageParams
	sid    string
	err    error
	delay  time.Duration
}

func (f *fakeCreator) CreateMessage(p *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.params = p
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	sid := f.sid
	return &openapi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioNotifier_WhatsApp(t *testing.T) {
	fc := &fakeCreator{sid: "SM123"}
	n := newTwilioNotifier("+14155238886", fc)

	rcpt, err := n.Send(context.Background(), Message{
		ID:        "n1",
		Channel:   domain.ChannelWhatsApp,
		Recipient: "15551234567",
		Body:      "Your registration pin code is 4821",
	})
	require.NoError(t, err)
	require.Equal(t, "SM123", rcpt.ProviderRef)

	require.Equal(t, "whatsapp:+15551234567", *fc.params.To)
	require.Equal(t, "whatsapp:+14155238886", *fc.params.From)
	require.Equal(t, "Your registration pin code is 4821", *fc.params.Body)
}

func TestTwilioNotifier_SMS(t *testing.T) {
	fc := &fakeCreator{sid: "SM9"}
	n := newTwilioNotifier("+61400000000", fc)

	_, err := n.Send(context.Background(), Message{Channel: domain.ChannelSMS, Recipient: "61411111111", Body: "x"})
	require.NoError(t, err)
	require.Equal(t, "+61411111111", *fc.params.To)
	require.Equal(t, "+61400000000", *fc.params.From)
}

func TestTwilioNotifier_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"invalid number", &client.TwilioRestError{Status: 400, Code: 21211, Message: "invalid To"}, true},
		{"auth", &client.TwilioRestError{Status: 401, Code: 20003}, true},
		{"throttled", &client.TwilioRestError{Status: 429, Code: 20429}, false},
		{"provider down", &client.TwilioRestError{Status: 503}, false},
		{"network", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTwilioNotifier("+1", &fakeCreator{err: tt.err})
			_, err := n.Send(context.Background(), Message{Channel: domain.ChannelWhatsApp, Recipient: "1"})
			require.Error(t, err)
			require.ErrorIs(t, err, tt.err)
			require.Equal(t, tt.permanent, IsPermanent(err))
		})
	}
}

func TestTwilioNotifier_Timeout(t *testing.T) {
	n := newTwilioNotifier("+1", &fakeCreator{sid: "late", delay: 200 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := n.Send(ctx, Message{Channel: domain.ChannelWhatsApp, Recipient: "1"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, IsPermanent(err))
}

func TestNewTwilioNotifier_RequiresCredentials(t *testing.T) {
	_, err := NewTwilioNotifier(TwilioConfig{AccountSID: "AC1"})
	require.Error(t, err)

	n, err := NewTwilioNotifier(TwilioConfig{AccountSID: "AC1", AuthToken: "tok", From: "+1"})
	require.NoError(t, err)
	require.Equal(t, "twilio", n.Name())
}
