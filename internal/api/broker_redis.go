package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type EventBroker interface {
	Subscribe(date string) chan BoardEvent
	Unsubscribe(date string, ch chan BoardEvent)
	Publish(date string, evt BoardEvent)
}

// RedisBroker fans board events out across API replicas via Redis Pub/Sub.
type RedisBroker struct {
	rdb *redis.Client
	mu  sync.Mutex
	ps  map[chan BoardEvent]*redis.PubSub
}

func NewRedisBroker(url string) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisBroker{rdb: redis.NewClient(opt), ps: map[chan BoardEvent]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Subscribe(date string) chan BoardEvent {
	ch := make(chan BoardEvent, 16)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(date))
	// initial consume to ensure subscription
	_, _ = ps.Receive(ctx)
	b.mu.Lock()
	b.ps[ch] = ps
	b.mu.Unlock()
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt BoardEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
				select {
				case ch <- evt:
				default:
				}
			}
		}
	}()
	return ch
}

// Unsubscribe closes the underlying pubsub; the reader goroutine then
// closes the channel when Redis drains it.
func (b *RedisBroker) Unsubscribe(_ string, ch chan BoardEvent) {
	b.mu.Lock()
	ps := b.ps[ch]
	delete(b.ps, ch)
	b.mu.Unlock()
	if ps != nil {
		_ = ps.Close()
	}
}

func (b *RedisBroker) Publish(date string, evt BoardEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, _ := json.Marshal(evt)
	_ = b.rdb.Publish(ctx, b.chanName(date), data).Err()
}

func (b *RedisBroker) chanName(date string) string { return "board:" + date }
