package web

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Frame is one record pushed to WebSocket clients.
type Frame struct {
	Source string          `json:"source"`
	UTC    string          `json:"utc"`
	Data   json.RawMessage `json:"data"`
}

// Broadcaster fans out encoded frames to any listeners. It keeps the most
// recent frame per source so new subscribers get an immediate picture.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int]chan []byte
	nextID int
	last   map[string][]byte
	order  []string
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]chan []byte),
		last: make(map[string][]byte),
	}
}

func (b *Broadcaster) Subscribe(buffer int) (int, <-chan []byte) {
	if b == nil {
		return 0, nil
	}
	if buffer <= 0 {
		buffer = 16
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan []byte, max(buffer, len(b.order)))
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	for _, src := range b.order {
		ch <- b.last[src]
	}
	return id, ch
}

func (b *Broadcaster) Unsubscribe(id int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers returns the number of active listeners.
func (b *Broadcaster) Subscribers() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish encodes v and sends it to every subscriber without blocking; slow
// subscribers miss frames.
func (b *Broadcaster) Publish(source string, v any) error {
	if b == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ws marshal %s: %w", source, err)
	}
	msg, err := json.Marshal(Frame{
		Source: source,
		UTC:    time.Now().UTC().Format(time.RFC3339Nano),
		Data:   data,
	})
	if err != nil {
		return fmt.Errorf("ws marshal %s: %w", source, err)
	}

	b.mu.Lock()
	if _, ok := b.last[source]; !ok {
		b.order = append(b.order, source)
	}
	b.last[source] = msg
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	b.mu.Unlock()
	return nil
}

// Close drops every subscriber.
func (b *Broadcaster) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}
