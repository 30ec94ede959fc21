package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/indicator"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// ReaderConfig configures the Redis reader.
type ReaderConfig struct {
	Addr     string
	Password string
	DB       int
}

// Reader consumes published intents and cached snapshots. Used by the
// notifier and by operational tooling that tails the intent stream.
type Reader struct {
	client *goredis.Client
}

// NewReader creates a new Redis Reader and pings the server.
func NewReader(cfg ReaderConfig) (*Reader, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis-reader] connected to %s", cfg.Addr)
	return &Reader{client: client}, nil
}

// SubscribeIntents subscribes to pub:intent:* and feeds decoded intents into
// the output channel. Blocks until ctx is cancelled.
func (r *Reader) SubscribeIntents(ctx context.Context, out chan<- model.Intent) error {
	pubsub := r.client.PSubscribe(ctx, "pub:intent:*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var intent model.Intent
			if err := json.Unmarshal([]byte(msg.Payload), &intent); err != nil {
				log.Printf("[redis-reader] unmarshal intent error: %v", err)
				continue
			}
			select {
			case out <- intent:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// IntentHistory returns the newest count intents from the stream,
// oldest first.
func (r *Reader) IntentHistory(ctx context.Context, count int64) ([]model.Intent, error) {
	msgs, err := r.client.XRevRangeN(ctx, (&model.Intent{}).StreamKey(), "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange intents: %w", err)
	}

	intents := make([]model.Intent, 0, len(msgs))
	// XREVRANGE returns newest first; reverse for chronological order.
	for i := len(msgs) - 1; i >= 0; i-- {
		data, ok := msgs[i].Values["data"].(string)
		if !ok {
			continue
		}
		var intent model.Intent
		if err := json.Unmarshal([]byte(data), &intent); err != nil {
			continue
		}
		intents = append(intents, intent)
	}
	return intents, nil
}

// LatestIntent returns the most recent intent for a symbol, or nil when the
// latest key has expired or was never set.
func (r *Reader) LatestIntent(ctx context.Context, symbol string) (*model.Intent, error) {
	data, err := r.client.Get(ctx, "intent:latest:"+symbol).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get latest intent %s: %w", symbol, err)
	}
	var intent model.Intent
	if err := json.Unmarshal([]byte(data), &intent); err != nil {
		return nil, fmt.Errorf("unmarshal latest intent %s: %w", symbol, err)
	}
	return &intent, nil
}

// LoadSnapshot reads the cached indicator bank snapshot.
// Returns nil without error when none is cached.
func (r *Reader) LoadSnapshot(ctx context.Context) (*indicator.BankSnapshot, error) {
	data, err := r.client.Get(ctx, snapshotKey).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get snapshot: %w", err)
	}
	return indicator.UnmarshalBankSnapshot([]byte(data))
}

// Universe returns the published universe membership.
func (r *Reader) Universe(ctx context.Context) ([]string, error) {
	members, err := r.client.SMembers(ctx, "universe:members").Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis smembers universe: %w", err)
	}
	return members, nil
}

// Close closes the Redis client.
func (r *Reader) Close() error {
	return r.client.Close()
}
