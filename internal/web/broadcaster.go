package web

import (
	"sync"
	"time"

	"i2cgps/internal/i2cgps"
)

// Message is one streamed reading.
type Message struct {
	Time    string         `json:"time"`
	Reading i2cgps.Reading `json:"reading"`
}

// FixBroadcaster fans readings out to websocket listeners. It keeps the most
// recent message so new subscribers get an immediate sample.
type FixBroadcaster struct {
	mu       sync.RWMutex
	subs     map[int]chan Message
	nextID   int
	last     Message
	haveLast bool
}

func NewFixBroadcaster() *FixBroadcaster {
	return &FixBroadcaster{
		subs: make(map[int]chan Message),
	}
}

func (b *FixBroadcaster) Subscribe(buffer int) (int, <-chan Message) {
	if b == nil {
		return 0, nil
	}
	if buffer <= 0 {
		buffer = 4
	}
	ch := make(chan Message, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	last := b.last
	have := b.haveLast
	b.mu.Unlock()
	if have {
		select {
		case ch <- last:
		default:
		}
	}
	return id, ch
}

func (b *FixBroadcaster) Unsubscribe(id int) {
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

func (b *FixBroadcaster) Last() (Message, bool) {
	if b == nil {
		return Message{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.haveLast
}

// PublishReading never blocks; slow subscribers miss messages.
func (b *FixBroadcaster) PublishReading(now time.Time, r i2cgps.Reading) error {
	if b == nil {
		return nil
	}
	msg := Message{Time: now.UTC().Format(time.RFC3339Nano), Reading: r}

	b.mu.Lock()
	b.last = msg
	b.haveLast = true
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	b.mu.Unlock()
	return nil
}
