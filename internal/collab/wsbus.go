package collab

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSBus is a Bus backed by a websocket connection to a Hub. Messages
// published here reach the other peers in the workspace; messages from them
// are fanned out to local subscribers.
type WSBus struct {
	conn  *websocket.Conn
	local *LocalBus

	writeMu sync.Mutex
	done    chan struct{}
}

// DialBus connects to the relay at relayURL (ws:// or wss://) and joins workspace.
func DialBus(ctx context.Context, relayURL, workspace string) (*WSBus, error) {
	u, err := url.Parse(relayURL)
	if err != nil {
		return nil, fmt.Errorf("parsing relay url: %w", err)
	}
	q := u.Query()
	q.Set("workspace", workspace)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to relay: %w", err)
	}

	b := &WSBus{conn: conn, local: NewLocalBus(), done: make(chan struct{})}
	go b.readLoop()
	return b, nil
}

// Publish sends msg to the relay.
func (b *WSBus) Publish(msg Message) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	b.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := b.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("publishing %s: %w", msg.Type, err)
	}
	return nil
}

// Subscribe receives messages relayed from peers.
func (b *WSBus) Subscribe() (<-chan Message, func()) {
	return b.local.Subscribe()
}

// Done is closed when the relay connection ends.
func (b *WSBus) Done() <-chan struct{} {
	return b.done
}

// Close disconnects from the relay.
func (b *WSBus) Close() error {
	b.writeMu.Lock()
	b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	b.writeMu.Unlock()
	err := b.conn.Close()
	<-b.done
	if n := b.local.Dropped(); n > 0 {
		log.Printf("Collaboration: %d relay messages dropped by slow subscribers", n)
	}
	return err
}

func (b *WSBus) readLoop() {
	defer close(b.done)
	for {
		var msg Message
		if err := b.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Relay connection closed: %v", err)
			}
			return
		}
		b.local.Publish(msg)
	}
}
