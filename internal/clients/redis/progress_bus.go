package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/learnweave/backend/internal/platform/logger"
	"github.com/learnweave/backend/internal/sse"
)

// ProgressBus relays course-build progress across instances so a browser
// connected to one replica still sees events emitted by another. Every SSE
// channel maps to its own redis channel under a shared prefix; the forwarder
// holds a single pattern subscription and recovers the SSE channel from the
// redis channel name, so the wire payload never has to repeat it.
type ProgressBus interface {
	Publish(ctx context.Context, msg sse.Message) error
	StartForwarder(ctx context.Context, onMsg func(m sse.Message)) error
	Close() error
}

// envelope is the wire form of one progress event.
type envelope struct {
	Event  sse.Event `json:"event"`
	Data   any       `json:"data,omitempty"`
	SentAt time.Time `json:"sent_at"`
}

type progressBus struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string

	mu   sync.Mutex
	stop context.CancelFunc
}

func NewProgressBus(log *logger.Logger) (ProgressBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_CHANNEL_PREFIX"))
	if prefix == "" {
		prefix = "course-progress"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &progressBus{
		log:    log.With("service", "RedisProgressBus"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (b *progressBus) channelName(sseChannel string) string {
	return b.prefix + ":" + sseChannel
}

func (b *progressBus) Publish(ctx context.Context, msg sse.Message) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("progress bus not initialized")
	}
	if msg.Channel == "" {
		return fmt.Errorf("progress message without channel")
	}
	raw, err := json.Marshal(envelope{
		Event:  msg.Event,
		Data:   msg.Data,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channelName(msg.Channel), raw).Err()
}

// StartForwarder subscribes to every progress channel under the bus prefix
// and hands decoded messages to onMsg. The subscription lives until ctx is
// cancelled or the bus is closed.
func (b *progressBus) StartForwarder(ctx context.Context, onMsg func(m sse.Message)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("progress bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.PSubscribe(ctx, b.channelName("*"))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis psubscribe: %w", err)
	}

	fctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.stop = cancel
	b.mu.Unlock()

	// Closing the subscription is what unblocks the consume loop below.
	go func() {
		<-fctx.Done()
		_ = sub.Close()
	}()

	go func() {
		defer cancel()
		for m := range sub.Channel() {
			var env envelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				b.log.Warn("bad progress payload", "channel", m.Channel, "error", err)
				continue
			}
			onMsg(sse.Message{
				Channel: strings.TrimPrefix(m.Channel, b.prefix+":"),
				Event:   env.Event,
				Data:    env.Data,
			})
		}
	}()

	return nil
}

func (b *progressBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	b.mu.Lock()
	if b.stop != nil {
		b.stop()
		b.stop = nil
	}
	b.mu.Unlock()
	return b.rdb.Close()
}
