// Package local implements the client-side durable fallback: one slot
// holding the serialized thought collection and a second slot holding
// the last local save timestamp.
package local

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"thoughtgraph/domain/thought"
	pkgerrors "thoughtgraph/pkg/errors"
)

const (
	dataSlot  = "thoughts-graph-data.json"
	stampSlot = "last-local-save"
)

// Snapshot is a small key-value style store rooted at a directory.
type Snapshot struct {
	dir string
	now func() time.Time
}

// NewSnapshot creates a snapshot store at dir, creating it if needed.
func NewSnapshot(dir string) (*Snapshot, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, pkgerrors.NewPersistenceError("create snapshot dir", err)
	}
	return &Snapshot{dir: dir, now: time.Now}, nil
}

// Save writes the collection and refreshes the save timestamp. This is
// the last fallback; a failure here is the persistence-error class that
// must surface to the caller.
func (s *Snapshot) Save(thoughts []thought.Thought) error {
	data, err := json.Marshal(thoughts)
	if err != nil {
		return pkgerrors.NewPersistenceError("encode snapshot", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, dataSlot), data, 0o644); err != nil {
		return pkgerrors.NewPersistenceError("write snapshot", err)
	}
	stamp := s.now().UTC().Format(time.RFC3339Nano)
	if err := os.WriteFile(filepath.Join(s.dir, stampSlot), []byte(stamp), 0o644); err != nil {
		return pkgerrors.NewPersistenceError("write snapshot timestamp", err)
	}
	return nil
}

// Load reads the saved collection. A missing slot yields an empty
// collection, not an error.
func (s *Snapshot) Load() ([]thought.Thought, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, dataSlot))
	if os.IsNotExist(err) {
		return []thought.Thought{}, nil
	}
	if err != nil {
		return nil, pkgerrors.NewPersistenceError("read snapshot", err)
	}
	var thoughts []thought.Thought
	if err := json.Unmarshal(data, &thoughts); err != nil {
		return nil, pkgerrors.NewPersistenceError("parse snapshot", err)
	}
	if thoughts == nil {
		thoughts = []thought.Thought{}
	}
	return thoughts, nil
}

// LastSaved returns the recorded local save time, if any.
func (s *Snapshot) LastSaved() (time.Time, bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, stampSlot))
	if err != nil {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, string(data))
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
