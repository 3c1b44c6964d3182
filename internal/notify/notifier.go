// Package notify isolates outbound notifications behind a single interface so
// every call site is fire-and-forget and testable with a double.
package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flowbot/goradar/pkg/telegram"
)

var log = logrus.WithField("component", "notify")

// Notifier delivers one best-effort Markdown message. Failures are logged and
// dropped; a slow or dead channel must never stall trade processing.
type Notifier interface {
	Send(text string)
}

// TelegramNotifier sends through the Bot API on a background goroutine.
type TelegramNotifier struct {
	client  *telegram.Client
	timeout time.Duration
}

// NewTelegramNotifier wraps a Telegram client. timeout bounds each send.
func NewTelegramNotifier(client *telegram.Client, timeout time.Duration) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TelegramNotifier{client: client, timeout: timeout}
}

// Send fires the message without blocking the caller.
func (n *TelegramNotifier) Send(text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.client.SendMessage(ctx, text); err != nil {
			log.Errorf("notification send failed: %v", err)
		}
	}()
}

// NopNotifier is used when no notification target is configured; the engine
// keeps running and stays queryable.
type NopNotifier struct{}

// Send drops the message.
func (NopNotifier) Send(text string) {
	log.Debugf("no notification target configured, dropping message")
}
