package collab

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	DefaultHeartbeat  = 5 * time.Second
	DefaultStaleAfter = 15 * time.Second
)

// DraftWriter receives draft content pushed by peers.
type DraftWriter interface {
	SetDraft(content string)
}

// Options tunes a Channel. Zero durations fall back to the defaults.
type Options struct {
	HeartbeatInterval time.Duration
	StaleAfter        time.Duration

	// OnUpdate is called after a peer's draft has been applied locally.
	OnUpdate func(senderID, content string)
	// OnRosterChange is called when the set of active collaborators changes.
	OnRosterChange func(active []Presence)
}

// Channel mirrors draft edits and presence between instances sharing a bus.
// Incoming updates replace the local draft verbatim: the last one received wins.
type Channel struct {
	bus   Bus
	self  Session
	draft DraftWriter
	opts  Options
	now   func() time.Time

	mu         sync.Mutex
	roster     []Presence
	lastActive string
	cancel     context.CancelFunc
	unsub      func()
	wg         sync.WaitGroup
}

// NewChannel creates a channel for self on bus. Peer edits are written to draft.
func NewChannel(bus Bus, self Session, draft DraftWriter, opts Options) *Channel {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeat
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	return &Channel{bus: bus, self: self, draft: draft, opts: opts, now: time.Now}
}

// Self returns this instance's session.
func (c *Channel) Self() Session {
	return c.self
}

// Start announces presence and runs the receive, heartbeat and prune loops
// until ctx ends or Close is called.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return errors.New("collaboration channel already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	msgs, unsub := c.bus.Subscribe()
	c.unsub = unsub
	c.mu.Unlock()

	if err := c.Touch(); err != nil {
		log.Printf("Initial presence broadcast failed: %v", err)
	}

	c.wg.Add(3)
	go c.receiveLoop(ctx, msgs)
	go c.heartbeatLoop(ctx)
	go c.pruneLoop(ctx)
	return nil
}

// Close stops the loops and unsubscribes from the bus.
func (c *Channel) Close() {
	c.mu.Lock()
	cancel, unsub := c.cancel, c.unsub
	c.cancel, c.unsub = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	unsub()
	c.wg.Wait()
}

// Edit applies content to the local draft and broadcasts it to peers.
func (c *Channel) Edit(content string) error {
	c.draft.SetDraft(content)
	return c.bus.Publish(Message{Type: MessageUpdate, SenderID: c.self.ID, Content: content})
}

// Touch broadcasts this instance's presence.
func (c *Channel) Touch() error {
	p := c.self.Presence(c.now())
	return c.bus.Publish(Message{Type: MessagePresence, SenderID: c.self.ID, Presence: &p})
}

// HandleMessage applies one received message. Messages from this instance
// are ignored.
func (c *Channel) HandleMessage(msg Message) {
	if msg.SenderID == c.self.ID {
		return
	}
	switch msg.Type {
	case MessageUpdate:
		c.draft.SetDraft(msg.Content)
		if c.opts.OnUpdate != nil {
			c.opts.OnUpdate(msg.SenderID, msg.Content)
		}
	case MessagePresence:
		if msg.Presence == nil || msg.Presence.ID == c.self.ID {
			return
		}
		c.upsert(*msg.Presence)
		c.checkRoster()
	}
}

func (c *Channel) upsert(p Presence) {
	p.LastActive = c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.roster {
		if c.roster[i].ID == p.ID {
			c.roster[i] = p
			return
		}
	}
	c.roster = append(c.roster, p)
}

// Roster returns every peer record seen so far, stale or not.
func (c *Channel) Roster() []Presence {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Presence(nil), c.roster...)
}

// ActiveCollaborators lists this instance first, then peers heard from
// within the staleness window.
func (c *Channel) ActiveCollaborators() []Presence {
	now := c.now()
	active := []Presence{c.self.Presence(now)}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.roster {
		if now.Sub(p.LastActive) < c.opts.StaleAfter {
			active = append(active, p)
		}
	}
	return active
}

func (c *Channel) receiveLoop(ctx context.Context, msgs <-chan Message) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			c.HandleMessage(msg)
		}
	}
}

func (c *Channel) heartbeatLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Touch(); err != nil {
				log.Printf("Presence heartbeat failed: %v", err)
			}
		}
	}
}

// pruneLoop re-evaluates the active view on its own timer so peers that go
// quiet drop out even when no messages arrive.
func (c *Channel) pruneLoop(ctx context.Context) {
	defer c.wg.Done()
	interval := c.opts.StaleAfter / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkRoster()
		}
	}
}

func (c *Channel) checkRoster() {
	active := c.ActiveCollaborators()
	ids := make([]string, 0, len(active))
	for _, p := range active {
		ids = append(ids, p.ID)
	}
	sort.Strings(ids)
	key := strings.Join(ids, ",")

	c.mu.Lock()
	changed := key != c.lastActive
	c.lastActive = key
	c.mu.Unlock()

	if changed && c.opts.OnRosterChange != nil {
		c.opts.OnRosterChange(active)
	}
}
