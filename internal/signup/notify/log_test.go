package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aussiebroadwan/signup/internal/signup/domain"
	"github.com/stretchr/testify/require"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	rcpt, err := n.Send(context.Background(), Message{ID: "n1", Channel: domain.ChannelWhatsApp, Recipient: "15551234567", Body: "hi"})
	require.NoError(t, err)
	require.Equal(t, "log:n1", rcpt.ProviderRef)
	require.Contains(t, buf.String(), "notification delivered to log")
	require.NotContains(t, buf.String(), "15551234567")
}
