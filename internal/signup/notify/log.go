package notify

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/signup/pkg/slogx"
)

// LogNotifier writes messages to the log instead of delivering them. It is
// meant for local development where no provider credentials exist.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Send(ctx context.Context, msg Message) (Receipt, error) {
	n.logger.InfoContext(ctx, "notification delivered to log",
		slog.String("notification_id", msg.ID),
		slog.String("channel", string(msg.Channel)),
		slog.String("recipient", slogx.MaskPhone(msg.Recipient)),
		slog.String("body", msg.Body),
	)
	return Receipt{ProviderRef: "log:" + msg.ID}, nil
}
