// Package stream owns the single multiplexed trade subscription for the
// current watchlist. Connection lifecycle is an explicit state machine; every
// terminal failure schedules a delayed reconnect rather than retrying inline,
// and a connecting guard keeps the watchlist-change path and the close-handler
// path from opening two subscriptions at once.
package stream

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/flowbot/goradar/internal/ledger"
)

var log = logrus.WithField("component", "collector")

// ConnState is the collector's subscription lifecycle state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateStable
	StateClosing
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateStable:
		return "STABLE"
	case StateClosing:
		return "CLOSING"
	default:
		return "DISCONNECTED"
	}
}

// Config tunes the collector lifecycle.
type Config struct {
	BaseURL          string        // combined-stream endpoint, e.g. wss://stream.binance.com:9443/stream
	MaxStreams       int           // cap on instruments per subscription
	ReconnectBackoff time.Duration // delay before any reconnect attempt
	SettlePeriod     time.Duration // time after connect before the guard releases
	HandshakeTimeout time.Duration
}

// Collector demultiplexes inbound trade events into the ledger store.
type Collector struct {
	cfg   Config
	store *ledger.Store

	mu        sync.Mutex
	state     ConnState
	conn      *websocket.Conn
	watchlist []string
	watchSet  map[string]bool
	gen       int64 // connection generation; read loops for older gens are stale
	pending   bool  // restart requested while the guard was held

	ctx    context.Context
	cancel context.CancelFunc
}

// NewCollector creates a collector writing into store.
func NewCollector(cfg Config, store *ledger.Store) *Collector {
	if cfg.MaxStreams <= 0 {
		cfg.MaxStreams = 50
	}
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = 5 * time.Second
	}
	if cfg.SettlePeriod <= 0 {
		cfg.SettlePeriod = 10 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		cfg:    cfg,
		store:  store,
		ctx:    ctx,
		cancel: cancel,
	}
}

// State returns the current lifecycle state.
func (c *Collector) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Restart swaps the subscription to a new watchlist. Teardown of the old
// subscription is idempotent: safe to call when it already failed. While the
// connecting guard is held the restart is deferred until the settle period
// expires, so a flapping watchlist cannot thrash the remote.
func (c *Collector) Restart(watchlist []string) {
	c.mu.Lock()
	c.watchlist = append([]string(nil), watchlist...)
	c.watchSet = make(map[string]bool, len(watchlist))
	for _, sym := range watchlist {
		c.watchSet[sym] = true
	}

	if c.state == StateConnecting {
		c.pending = true
		c.mu.Unlock()
		log.Debugf("restart deferred: connecting guard held")
		return
	}

	c.teardownLocked()
	c.mu.Unlock()

	c.connect()
}

// Stop closes the subscription permanently.
func (c *Collector) Stop() {
	c.cancel()
	c.mu.Lock()
	c.teardownLocked()
	c.mu.Unlock()
}

// teardownLocked closes any live connection and invalidates its read loop.
func (c *Collector) teardownLocked() {
	c.gen++
	if c.conn != nil {
		c.state = StateClosing
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected
}

// connect opens a subscription for the current watchlist. The dial runs on
// its own goroutine so ingestion callers never block on the handshake.
func (c *Collector) connect() {
	c.mu.Lock()
	if c.ctx.Err() != nil || c.state == StateConnecting {
		c.mu.Unlock()
		return
	}
	if len(c.watchlist) == 0 {
		c.state = StateDisconnected
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	url := c.streamURL()
	c.mu.Unlock()

	go c.dial(gen, url)
}

func (c *Collector) dial(gen int64, url string) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(c.ctx, url, nil)

	c.mu.Lock()
	if gen != c.gen || c.ctx.Err() != nil {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.state = StateDisconnected
		// The scheduled reconnect dials the latest watchlist anyway, so a
		// restart deferred during this attempt is already satisfied.
		c.pending = false
		c.mu.Unlock()
		log.Errorf("subscription dial failed: %v, reconnecting in %s", err, c.cfg.ReconnectBackoff)
		c.scheduleReconnect()
		return
	}

	conn.SetReadLimit(1 << 20)
	c.conn = conn
	count := len(c.watchlist)
	if count > c.cfg.MaxStreams {
		count = c.cfg.MaxStreams
	}
	c.mu.Unlock()

	log.Infof("trade subscription open: %d streams", count)

	go c.readLoop(gen, conn)
	time.AfterFunc(c.cfg.SettlePeriod, func() { c.settle(gen) })
}

// settle releases the connecting guard once the subscription has had time to
// stabilize, and applies any restart that was deferred meanwhile.
func (c *Collector) settle(gen int64) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateConnecting {
		c.mu.Unlock()
		return
	}
	c.state = StateStable
	pending := c.pending
	c.pending = false
	if pending {
		c.teardownLocked()
	}
	c.mu.Unlock()

	if pending {
		log.Infof("applying deferred watchlist restart")
		c.connect()
	}
}

// scheduleReconnect arms a single delayed reconnect. Never retries inline: a
// misbehaving remote must not be hammered in a hot loop.
func (c *Collector) scheduleReconnect() {
	time.AfterFunc(c.cfg.ReconnectBackoff, func() {
		if c.ctx.Err() != nil {
			return
		}
		c.connect()
	})
}

// readLoop consumes trade events until the connection dies or goes stale.
func (c *Collector) readLoop(gen int64, conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := gen != c.gen
			if !stale {
				c.teardownLocked()
			}
			c.mu.Unlock()

			if stale || c.ctx.Err() != nil {
				return
			}
			log.Warnf("subscription closed: %v, reconnecting in %s", err, c.cfg.ReconnectBackoff)
			c.scheduleReconnect()
			return
		}

		c.handleFrame(message)
	}
}

// handleFrame parses one inbound frame and appends it to the ledger store.
// Trades for instruments no longer on the watchlist are dropped: an old
// connection can still deliver them between an eviction and the restart, and
// appending would silently recreate the evicted ledger.
func (c *Collector) handleFrame(raw []byte) {
	ev, ok := ParseCombinedTrade(raw)
	if !ok {
		// Malformed frames are dropped, never fatal.
		return
	}
	c.mu.Lock()
	watched := c.watchSet[ev.Instrument]
	c.mu.Unlock()
	if !watched {
		return
	}
	c.store.Append(ev)
}

// streamURL builds the combined-stream URL for the watchlist, capped at
// MaxStreams instruments. Callers hold c.mu.
func (c *Collector) streamURL() string {
	list := c.watchlist
	if len(list) > c.cfg.MaxStreams {
		list = list[:c.cfg.MaxStreams]
	}
	streams := make([]string, len(list))
	for i, sym := range list {
		streams[i] = strings.ToLower(sym) + "@aggTrade"
	}
	return c.cfg.BaseURL + "?streams=" + strings.Join(streams, "/")
}
