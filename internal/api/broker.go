package api

import (
	"sync"
)

// BoardEvent is one live update on a plan day's dispatch board.
type BoardEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan BoardEvent]struct{} // plan date -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan BoardEvent]struct{}{}}
}

func (b *Broker) Subscribe(date string) chan BoardEvent {
	ch := make(chan BoardEvent, 8)
	b.mu.Lock()
	if b.subs[date] == nil {
		b.subs[date] = map[chan BoardEvent]struct{}{}
	}
	b.subs[date][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(date string, ch chan BoardEvent) {
	b.mu.Lock()
	if m := b.subs[date]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, date)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(date string, evt BoardEvent) {
	b.mu.Lock()
	m := b.subs[date]
	for ch := range m {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
