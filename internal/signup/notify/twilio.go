package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/signup/internal/signup/domain"
	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type TwilioConfig struct {
	AccountSID string
	AuthToken  string

	// From is the sender number in E.164 form, without any channel prefix.
	From string
}

// messageCreator is the slice of the Twilio REST API we use.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioNotifier sends WhatsApp or SMS messages through Twilio's
// Programmable Messaging API.
type TwilioNotifier struct {
	from string
	api  messageCreator
}

func NewTwilioNotifier(cfg TwilioConfig) (*TwilioNotifier, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, errors.New("notify: twilio account sid, auth token and from number are required")
	}

	rc := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newTwilioNotifier(cfg.From, rc.Api), nil
}

func newTwilioNotifier(from string, api messageCreator) *TwilioNotifier {
	return &TwilioNotifier{from: from, api: api}
}

func (n *TwilioNotifier) Name() string { return "twilio" }

func (n *TwilioNotifier) Send(ctx context.Context, msg Message) (Receipt, error) {
	params := &openapi.CreateMessageParams{}
	params.SetTo(twilioAddress(msg.Channel, msg.Recipient))
	params.SetFrom(twilioAddress(msg.Channel, n.from))
	params.SetBody(msg.Body)

	type result struct {
		resp *openapi.ApiV2010Message
		err  error
	}

	// The SDK call takes no context, so bound it here.
	done := make(chan result, 1)
	go func() {
		resp, err := n.api.CreateMessage(params)
		done <- result{resp, err}
	}()

	select {
	case <-ctx.Done():
		return Receipt{}, fmt.Errorf("notify: twilio send: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return Receipt{}, classifyTwilioError(r.err)
		}
		if r.resp == nil || r.resp.Sid == nil {
			return Receipt{}, errors.New("notify: twilio returned no message sid")
		}
		return Receipt{ProviderRef: *r.resp.Sid}, nil
	}
}

// twilioAddress formats number for the channel: "whatsapp:+15551234567"
// or "+15551234567".
func twilioAddress(ch domain.Channel, number string) string {
	e164 := "+" + strings.TrimPrefix(strings.TrimSpace(number), "+")
	if ch == domain.ChannelWhatsApp {
		return "whatsapp:" + e164
	}
	return e164
}

// classifyTwilioError treats client errors other than throttling as
// permanent, e.g. an invalid or unreachable recipient number.
func classifyTwilioError(err error) error {
	err = fmt.Errorf("notify: twilio send: %w", err)

	var te *client.TwilioRestError
	if errors.As(err, &te) &&
		te.Status >= http.StatusBadRequest &&
		te.Status < http.StatusInternalServerError &&
		te.Status != http.StatusTooManyRequests {
		return Permanent(err)
	}
	return err
}
