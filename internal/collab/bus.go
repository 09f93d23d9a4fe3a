package collab

import (
	"sync"
)

// MessageType distinguishes collaboration events.
type MessageType string

const (
	MessagePresence MessageType = "presence"
	MessageUpdate   MessageType = "update"
)

// Message is one broadcast event. Presence is set for presence events,
// Content for updates.
type Message struct {
	Type     MessageType `json:"type"`
	SenderID string      `json:"senderId"`
	Presence *Presence   `json:"presence,omitempty"`
	Content  string      `json:"content,omitempty"`
}

// Bus is an unordered, at-most-once broadcast medium. Every subscriber may
// receive every published message; nothing is acknowledged or retried.
type Bus interface {
	Publish(msg Message) error
	Subscribe() (<-chan Message, func())
}

const subscriberBuffer = 64

// LocalBus fans messages out to in-process subscribers. A subscriber whose
// buffer is full misses the message.
type LocalBus struct {
	mu      sync.Mutex
	subs    map[int]chan Message
	nextID  int
	dropped int
}

// NewLocalBus creates an empty in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]chan Message)}
}

// Publish delivers msg to every current subscriber, including the sender's own.
func (b *LocalBus) Publish(msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			b.dropped++
		}
	}
	return nil
}

// Subscribe registers a new receiver. The returned func unsubscribes and
// closes the channel.
func (b *LocalBus) Subscribe() (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Message, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}

// Dropped reports how many deliveries were skipped because a subscriber was full.
func (b *LocalBus) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
