package api

import (
	"context"
	"encoding/json"
	"os"
	"time"

	redis "github.com/redis/go-redis/v9"

	"tripnav/internal/model"
)

// RedisBroker implements EventBroker over Redis pub/sub so progress streams
// work across replicas.
type RedisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker() (*RedisBroker, error) {
	opt, err := redis.ParseURL(os.Getenv("REDIS_URL"))
	if err != nil {
		return nil, err
	}
	return &RedisBroker{rdb: redis.NewClient(opt)}, nil
}

// Client exposes the underlying connection for other Redis-backed parts
// (the ingest estimate cache shares it).
func (b *RedisBroker) Client() *redis.Client { return b.rdb }

func (b *RedisBroker) Subscribe(planID string) chan model.PlanEvent {
	ch := make(chan model.PlanEvent, 16)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(planID))
	_, _ = ps.Receive(ctx) // confirm subscription before returning
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt model.PlanEvent
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

func (b *RedisBroker) Unsubscribe(planID string, ch chan model.PlanEvent) {
	// The reader goroutine owns ch; it closes when the pub/sub channel does.
	// Dropping the subscriber reference is enough here.
}

func (b *RedisBroker) Publish(planID string, evt model.PlanEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, _ := json.Marshal(evt)
	_ = b.rdb.Publish(ctx, b.chanName(planID), data).Err()
}

func (b *RedisBroker) chanName(planID string) string { return "plan:" + planID }
