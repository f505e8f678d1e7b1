package thought

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default titles used when a sanitized title comes out empty.
const (
	DefaultTitle      = "Untitled Thought"
	QuickCaptureTitle = "Quick Thought"
)

// Thought is the atomic note entity. Its JSON shape is the wire format
// shared by the REST contract, the data file and exports, so the fields
// stay exported and flat.
type Thought struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Connections []string  `json:"connections"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// New creates a thought with a fresh identity and empty connections.
// An empty title falls back to DefaultTitle.
func New(title, content string, now time.Time) Thought {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	return Thought{
		ID:          uuid.New().String(),
		Title:       title,
		Content:     strings.TrimSpace(content),
		Connections: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy. Connections share no backing array with
// the receiver, so callers can mutate the copy freely.
func (t Thought) Clone() Thought {
	conns := make([]string, len(t.Connections))
	copy(conns, t.Connections)
	t.Connections = conns
	return t
}

// HasConnection reports whether id is in the connection list.
func (t Thought) HasConnection(id string) bool {
	for _, c := range t.Connections {
		if c == id {
			return true
		}
	}
	return false
}

// WithConnection returns a copy with id appended, if not already present.
func (t Thought) WithConnection(id string) Thought {
	c := t.Clone()
	if !c.HasConnection(id) {
		c.Connections = append(c.Connections, id)
	}
	return c
}

// WithoutConnection returns a copy with id removed.
func (t Thought) WithoutConnection(id string) Thought {
	c := t.Clone()
	kept := c.Connections[:0]
	for _, conn := range c.Connections {
		if conn != id {
			kept = append(kept, conn)
		}
	}
	c.Connections = kept
	return c
}

// Touch refreshes the updated timestamp.
func (t Thought) Touch(now time.Time) Thought {
	c := t.Clone()
	c.UpdatedAt = now
	return c
}

// CloneAll deep-copies a collection, preserving order.
func CloneAll(thoughts []Thought) []Thought {
	out := make([]Thought, len(thoughts))
	for i, t := range thoughts {
		out[i] = t.Clone()
	}
	return out
}

// IndexByID builds a lookup map over a collection. Later duplicates of
// an id do not displace earlier ones.
func IndexByID(thoughts []Thought) map[string]Thought {
	idx := make(map[string]Thought, len(thoughts))
	for _, t := range thoughts {
		if _, ok := idx[t.ID]; !ok {
			idx[t.ID] = t
		}
	}
	return idx
}
