package redis

import (
	"context"
	"fmt"
	"log"
	"time"
	"unsafe"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/indicator"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Stream trimming: a few weeks of daily intents is plenty.
	intentStreamMaxLen = 4096
	defaultLatestTTL   = 24 * time.Hour

	snapshotKey = "indicator:snapshot:latest"
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer publishes trade intents to Redis and caches indicator bank
// snapshots for fast warm restarts.
type Writer struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
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

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Writer{client: client}, nil
}

// Run reads intents from intentCh and publishes them to Redis.
// Blocks until ctx is cancelled or intentCh is closed.
func (w *Writer) Run(ctx context.Context, intentCh <-chan model.Intent) {
	for {
		select {
		case <-ctx.Done():
			return
		case intent, ok := <-intentCh:
			if !ok {
				return
			}
			if err := w.PublishIntent(ctx, intent); err != nil {
				log.Printf("[redis] publish intent error for %s: %v", intent.Symbol, err)
			}
		}
	}
}

// PublishIntent writes one intent with XADD + SET + PUBLISH in a single
// pipeline: the stream is the durable feed for downstream executors, the
// latest key serves dashboards, and the pubsub channel drives live alerts.
func (w *Writer) PublishIntent(ctx context.Context, intent model.Intent) error {
	jsonBytes := intent.JSON()
	// Zero-copy []byte→string (safe: jsonBytes is not mutated after this)
	jsonData := *(*string)(unsafe.Pointer(&jsonBytes))

	pipe := w.client.Pipeline()

	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: intent.StreamKey(),
		MaxLen: intentStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Set(ctx, "intent:latest:"+intent.Symbol, jsonData, defaultLatestTTL)
	pipe.Publish(ctx, intent.PubSubChannel(), jsonData)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("intent pipeline %s: %w", intent.Symbol, err)
	}
	return nil
}

// PublishBatch publishes multiple intents in a single pipeline round trip.
// Used by the backtest runner where intents arrive in bar-batch bursts.
func (w *Writer) PublishBatch(ctx context.Context, intents []model.Intent) error {
	if len(intents) == 0 {
		return nil
	}

	pipe := w.client.Pipeline()
	for i := range intents {
		intent := &intents[i]
		jsonBytes := intent.JSON()
		jsonData := *(*string)(unsafe.Pointer(&jsonBytes))

		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: intent.StreamKey(),
			MaxLen: intentStreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{"data": jsonData},
		})
		pipe.Set(ctx, "intent:latest:"+intent.Symbol, jsonData, defaultLatestTTL)
		pipe.Publish(ctx, intent.PubSubChannel(), jsonData)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("intent batch pipeline (%d intents): %w", len(intents), err)
	}
	return nil
}

// SaveSnapshot caches an indicator bank snapshot in Redis. The snapshot is
// also journaled to SQLite; the Redis copy just makes restarts faster.
func (w *Writer) SaveSnapshot(ctx context.Context, snap *indicator.BankSnapshot) error {
	data, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return w.client.Set(ctx, snapshotKey, string(data), defaultLatestTTL).Err()
}

// LoadSnapshot reads the cached indicator bank snapshot.
// Returns nil without error when none is cached.
func (w *Writer) LoadSnapshot(ctx context.Context) (*indicator.BankSnapshot, error) {
	data, err := w.client.Get(ctx, snapshotKey).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get snapshot: %w", err)
	}
	return indicator.UnmarshalBankSnapshot([]byte(data))
}

// SetUniverse replaces the published universe membership set so external
// consumers can see what the engine is currently trading.
func (w *Writer) SetUniverse(ctx context.Context, symbols []string) error {
	pipe := w.client.Pipeline()
	pipe.Del(ctx, "universe:members")
	if len(symbols) > 0 {
		members := make([]interface{}, len(symbols))
		for i, s := range symbols {
			members[i] = s
		}
		pipe.SAdd(ctx, "universe:members", members...)
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("universe set pipeline: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
