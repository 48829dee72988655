package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultAMQPExchange       = "signup.notifications"
	defaultAMQPConfirmTimeout = 5 * time.Second
)

type AMQPConfig struct {
	URL            string
	Exchange       string
	AppID          string
	ConfirmTimeout time.Duration
}

// publisher is the part of *amqp.Channel used for publishing.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier hands messages to a broker for an external delivery worker.
// Publishes are mandatory and confirmed, so a message counts as sent only
// once the broker has routed and acknowledged it.
type AMQPNotifier struct {
	cfg AMQPConfig

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       publisher
	confirms <-chan amqp.Confirmation
	returns  <-chan amqp.Return
	closed   func() bool
}

func NewAMQPNotifier(cfg AMQPConfig) (*AMQPNotifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("notify: amqp url is required")
	}
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultAMQPExchange
	}
	if cfg.AppID == "" {
		cfg.AppID = "signup"
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultAMQPConfirmTimeout
	}

	n := &AMQPNotifier{cfg: cfg}

	// Connect eagerly so misconfiguration shows up at startup. Later
	// failures reconnect on the next Send.
	if err := n.connect(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *AMQPNotifier) Name() string { return "amqp" }

func (n *AMQPNotifier) connect() error {
	conn, err := amqp.Dial(n.cfg.URL)
	if err != nil {
		return fmt.Errorf("notify: amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("notify: amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(n.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("notify: amqp exchange declare %q: %w", n.cfg.Exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("notify: amqp confirm mode: %w", err)
	}

	n.conn = conn
	n.ch = ch
	n.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 16))
	n.returns = ch.NotifyReturn(make(chan amqp.Return, 16))
	n.closed = conn.IsClosed
	return nil
}

func (n *AMQPNotifier) reset() {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		_ = n.conn.Close()
	}
	n.conn, n.ch, n.confirms, n.returns, n.closed = nil, nil, nil, nil, nil
}

func (n *AMQPNotifier) Send(ctx context.Context, msg Message) (Receipt, error) {
	pub, key, err := n.envelope(msg)
	if err != nil {
		return Receipt{}, Permanent(err)
	}

	// Confirms are matched to publishes by order, so one publish at a time.
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ch == nil || (n.closed != nil && n.closed()) {
		n.reset()
		if err := n.connect(); err != nil {
			return Receipt{}, err
		}
	}

	// Drop anything left over from a publish that timed out.
drain:
	for {
		select {
		case <-n.confirms:
		case <-n.returns:
		default:
			break drain
		}
	}

	if err := n.ch.PublishWithContext(ctx, n.cfg.Exchange, key, true, false, pub); err != nil {
		n.reset()
		return Receipt{}, fmt.Errorf("notify: amqp publish: %w", err)
	}

	timer := time.NewTimer(n.cfg.ConfirmTimeout)
	defer timer.Stop()

	// A return for an unroutable message arrives before its confirm.
	var returned *amqp.Return
	for {
		select {
		case ret := <-n.returns:
			returned = &ret

		case c, ok := <-n.confirms:
			if !ok {
				n.reset()
				return Receipt{}, errors.New("notify: amqp channel closed before confirm")
			}
			if returned == nil {
				select {
				case ret := <-n.returns:
					returned = &ret
				default:
				}
			}
			if returned != nil {
				return Receipt{}, fmt.Errorf("notify: amqp unroutable: code=%d text=%s rk=%s",
					returned.ReplyCode, returned.ReplyText, returned.RoutingKey)
			}
			if !c.Ack {
				return Receipt{}, fmt.Errorf("notify: amqp nack: delivery_tag=%d", c.DeliveryTag)
			}
			return Receipt{ProviderRef: pub.MessageId}, nil

		case <-timer.C:
			return Receipt{}, errors.New("notify: amqp confirm timeout")

		case <-ctx.Done():
			return Receipt{}, fmt.Errorf("notify: amqp confirm: %w", ctx.Err())
		}
	}
}

// Close releases the broker connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset()
	return nil
}

type amqpEnvelope struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Channel     string    `json:"channel"`
	Recipient   string    `json:"recipient"`
	Body        string    `json:"body"`
	RequestedAt time.Time `json:"requested_at"`
}

func routingKey(msg Message) string {
	return "notification." + string(msg.Channel) + ".requested"
}

func (n *AMQPNotifier) envelope(msg Message) (amqp.Publishing, string, error) {
	now := time.Now().UTC()
	body, err := json.Marshal(amqpEnvelope{
		ID:          msg.ID,
		UserID:      msg.UserID,
		Channel:     string(msg.Channel),
		Recipient:   msg.Recipient,
		Body:        msg.Body,
		RequestedAt: now,
	})
	if err != nil {
		return amqp.Publishing{}, "", fmt.Errorf("notify: encode envelope: %w", err)
	}

	return amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		DeliveryMode:  amqp.Persistent,
		Timestamp:     now,
		MessageId:     msg.ID,
		CorrelationId: msg.UserID,
		AppId:         n.cfg.AppID,
	}, routingKey(msg), nil
}
