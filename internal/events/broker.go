// Package events fans source notifications out to streaming clients.
package events

import (
	"sync"
)

// TopicSources carries snapshot rebuild notifications.
const TopicSources = "sources"

// Event types.
const (
	SourceRebuilt = "source.rebuilt"
)

type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Publisher is the write side, used by the graph cache.
type Publisher interface {
	Publish(topic string, evt Event)
}

// Bus is implemented by the in-memory Broker and RedisBroker.
type Bus interface {
	Publisher
	Subscribe(topic string) chan Event
	Unsubscribe(topic string, ch chan Event)
}

// Broker delivers events to in-process subscribers. A slow subscriber drops
// events rather than blocking publishers.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{} // topic -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(topic string) chan Event {
	ch := make(chan Event, 8)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = map[chan Event]struct{}{}
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(topic string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[topic]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, topic)
	}
	close(ch)
}

func (b *Broker) Publish(topic string, evt Event) {
	b.mu.Lock()
	for ch := range b.subs[topic] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}

// Subscribers reports how many channels listen on topic.
func (b *Broker) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
