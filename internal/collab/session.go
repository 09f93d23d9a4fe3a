package collab

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

var palette = []string{"#5B8DEF", "#58D68D", "#F7C55F", "#F57B7B", "#AF7AC5"}

// Session is the identity of one running instance. It is created once and
// handed to the channel; nothing else holds it.
type Session struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// NewSession draws a fresh identity. An empty name gets a random
// "Producer-NN" handle.
func NewSession(name string) Session {
	if name == "" {
		name = fmt.Sprintf("Producer-%d", rand.IntN(90)+10)
	}
	return Session{
		ID:    uuid.NewString(),
		Name:  name,
		Color: palette[rand.IntN(len(palette))],
	}
}

// Presence stamps the session with a last-active time.
func (s Session) Presence(at time.Time) Presence {
	return Presence{ID: s.ID, Name: s.Name, Color: s.Color, LastActive: at}
}

// Presence is a peer's identity plus when it was last heard from.
type Presence struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	LastActive time.Time `json:"lastActive"`
}
