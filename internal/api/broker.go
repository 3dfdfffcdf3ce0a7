package api

import (
	"sync"

	"tripnav/internal/model"
)

// EventBroker fans plan search progress out to stream subscribers, keyed by
// plan id.
type EventBroker interface {
	Subscribe(planID string) chan model.PlanEvent
	Unsubscribe(planID string, ch chan model.PlanEvent)
	Publish(planID string, evt model.PlanEvent)
}

// Broker is the single-process in-memory fan-out used when no REDIS_URL is
// configured.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan model.PlanEvent]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan model.PlanEvent]struct{}{}}
}

func (b *Broker) Subscribe(planID string) chan model.PlanEvent {
	ch := make(chan model.PlanEvent, 8)
	b.mu.Lock()
	if b.subs[planID] == nil {
		b.subs[planID] = map[chan model.PlanEvent]struct{}{}
	}
	b.subs[planID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(planID string, ch chan model.PlanEvent) {
	b.mu.Lock()
	if m := b.subs[planID]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, planID)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(planID string, evt model.PlanEvent) {
	b.mu.Lock()
	for ch := range b.subs[planID] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
