package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"
)

const (
	heartbeatInterval = 10 * time.Second
	writeDeadline     = 5 * time.Second

	msgTypeBar      = "bar"
	msgTypeUniverse = "universe"
)

// FeedConfig configures the websocket market data feed.
type FeedConfig struct {
	URL         string // e.g. "wss://stream.platform.example/v1"
	APIKey      string
	ClientID    string
	AccessToken string
	FeedToken   string

	Symbols []string // initial subscription list

	// Reconnect backoff. Delay doubles per attempt up to MaxDelay;
	// MaxAttempts <= 0 retries forever.
	RetryDelay  time.Duration // default: 5s
	MaxDelay    time.Duration // default: 2m
	MaxAttempts int
}

// feedMessage is the platform's wire envelope. Bars and universe changes
// share one stream, discriminated by type.
type feedMessage struct {
	Type string `json:"type"`

	// type == "bar"
	Symbol     string  `json:"symbol,omitempty"`
	AssetClass string  `json:"asset_class,omitempty"`
	TS         int64   `json:"ts,omitempty"` // epoch seconds
	Price      float64 `json:"price,omitempty"`
	Volume     float64 `json:"volume,omitempty"`

	// type == "universe"
	Action string `json:"action,omitempty"` // "ADD" | "REMOVE"
}

// Feed streams daily bars and universe events from the platform websocket.
// It reconnects with exponential backoff and resubscribes after reconnect.
type Feed struct {
	cfg    FeedConfig
	dialer *websocket.Dialer

	// OnReconnect, if set, is called before each reconnect attempt.
	OnReconnect func()
	// OnConnect, if set, is called after each successful dial.
	OnConnect func()
}

// NewFeed creates a feed client. Connection happens in Run.
func NewFeed(cfg FeedConfig) (*Feed, error) {
	if cfg.URL == "" || cfg.AccessToken == "" || cfg.FeedToken == "" {
		return nil, errors.New("feed requires url, access token, and feed token")
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 2 * time.Minute
	}
	return &Feed{cfg: cfg, dialer: websocket.DefaultDialer}, nil
}

// Run connects and streams until ctx is cancelled. Bars go to barCh and
// universe changes to eventCh; both sends drop when the channel is full so
// a stalled consumer cannot block the read loop.
func (f *Feed) Run(ctx context.Context, barCh chan<- model.Bar, eventCh chan<- model.UniverseEvent) error {
	delay := f.cfg.RetryDelay
	attempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := f.dial(ctx)
		if err != nil {
			attempts++
			if f.cfg.MaxAttempts > 0 && attempts >= f.cfg.MaxAttempts {
				return fmt.Errorf("feed: giving up after %d attempts: %w", attempts, err)
			}
			log.Printf("[feed] dial failed (attempt %d): %v, retrying in %v", attempts, err, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if delay *= 2; delay > f.cfg.MaxDelay {
				delay = f.cfg.MaxDelay
			}
			continue
		}

		attempts = 0
		delay = f.cfg.RetryDelay

		err = f.stream(ctx, conn, barCh, eventCh)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[feed] stream ended: %v, reconnecting", err)
		if f.OnReconnect != nil {
			f.OnReconnect()
		}
	}
}

func (f *Feed) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Add("Authorization", "Bearer "+f.cfg.AccessToken)
	header.Add("X-API-Key", f.cfg.APIKey)
	header.Add("X-Client-ID", f.cfg.ClientID)
	header.Add("X-Feed-Token", f.cfg.FeedToken)

	conn, resp, err := f.dialer.DialContext(ctx, f.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %s: %w", f.cfg.URL, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", f.cfg.URL, err)
	}

	if err := f.subscribe(conn); err != nil {
		conn.Close()
		return nil, err
	}

	log.Printf("[feed] connected, subscribed to %d symbols", len(f.cfg.Symbols))
	if f.OnConnect != nil {
		f.OnConnect()
	}
	return conn, nil
}

func (f *Feed) subscribe(conn *websocket.Conn) error {
	sub := map[string]interface{}{
		"action":  "subscribe",
		"symbols": f.cfg.Symbols,
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// stream reads messages until the connection breaks or ctx is cancelled.
func (f *Feed) stream(ctx context.Context, conn *websocket.Conn, barCh chan<- model.Bar, eventCh chan<- model.UniverseEvent) error {
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(3 * heartbeatInterval))
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(3 * heartbeatInterval))

	// Heartbeat loop keeps the platform from closing an idle daily-bar feed.
	heartbeatDone := make(chan struct{})
	defer close(heartbeatDone)
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeatDone:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
					return
				}
			}
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var msg feedMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("[feed] unmarshal error: %v", err)
			continue
		}

		switch msg.Type {
		case msgTypeBar:
			bar := model.Bar{
				Symbol:     msg.Symbol,
				AssetClass: model.AssetClass(msg.AssetClass),
				TS:         time.Unix(msg.TS, 0).UTC(),
				Price:      msg.Price,
				Volume:     msg.Volume,
			}
			select {
			case barCh <- bar:
			default:
				log.Printf("[feed] bar channel full, dropping %s", bar.Symbol)
			}

		case msgTypeUniverse:
			ev := model.UniverseEvent{
				Action:     model.UniverseAction(msg.Action),
				Symbol:     msg.Symbol,
				AssetClass: model.AssetClass(msg.AssetClass),
			}
			select {
			case eventCh <- ev:
			default:
				log.Printf("[feed] event channel full, dropping %s %s", ev.Action, ev.Symbol)
			}

		default:
			// Control frames and acks are ignored.
		}
	}
}
