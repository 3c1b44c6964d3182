package universe

import (
	"context"
	"math"
	"time"

	"github.com/gorilla/websocket"
)

const (
	scannerHandshakeTimeout = 10 * time.Second
	scannerReadLimit        = 8 << 20 // the full-market snapshot is large
	scannerMaxBackoff       = 30 * time.Second
)

// Scanner owns the market-wide ticker subscription and feeds each snapshot
// into the selector. It reconnects with capped exponential backoff and never
// returns until the context is cancelled.
type Scanner struct {
	url      string
	selector *Selector
}

// NewScanner creates a scanner for the given snapshot stream URL.
func NewScanner(url string, selector *Selector) *Scanner {
	return &Scanner{url: url, selector: selector}
}

// Run blocks, consuming snapshots until ctx is done.
func (sc *Scanner) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := sc.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warnf("scanner stream disconnected: %v, retrying in %s", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff = time.Duration(math.Min(float64(scannerMaxBackoff), float64(backoff)*1.8))
			continue
		}
		return
	}
}

func (sc *Scanner) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: scannerHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, sc.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Infof("scanner connected to %s", sc.url)
	conn.SetReadLimit(scannerReadLimit)

	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		sc.selector.HandleSnapshot(message)
	}
}
