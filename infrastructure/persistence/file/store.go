// Package file implements the durable thought store: a single flat JSON
// file holding the full collection, with timestamped sibling backups
// taken before every write. Writes go through a temp-file rename so a
// concurrent read never observes a torn file.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"thoughtgraph/domain/thought"
	pkgerrors "thoughtgraph/pkg/errors"
)

// Store persists the thought collection to a JSON data file.
type Store struct {
	path   string
	mu     sync.Mutex
	now    func() time.Time
	logger *zap.Logger
}

// NewStore creates a store over the given data file path.
func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, now: time.Now, logger: logger}
}

// Path returns the data file location.
func (s *Store) Path() string {
	return s.path
}

// Init creates the data file with an empty collection if it is missing.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return pkgerrors.NewPersistenceError("stat data file", err)
	}
	if err := s.writeAtomic([]byte("[]")); err != nil {
		return err
	}
	s.logger.Info("created new data file", zap.String("path", s.path))
	return nil
}

// Load reads and parses the full collection.
func (s *Store) Load() ([]thought.Thought, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, pkgerrors.NewPersistenceError("read data file", err)
	}
	var thoughts []thought.Thought
	if err := json.Unmarshal(data, &thoughts); err != nil {
		return nil, pkgerrors.NewPersistenceError("parse data file", err)
	}
	if thoughts == nil {
		thoughts = []thought.Thought{}
	}
	return thoughts, nil
}

// Save replaces the full collection. The previous file is copied to a
// timestamped backup first; backup failure is logged and does not block
// the write. The live file is replaced atomically.
func (s *Store) Save(thoughts []thought.Thought) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, err := os.ReadFile(s.path); err == nil {
		backup := filepath.Join(filepath.Dir(s.path),
			fmt.Sprintf("thoughts-backup-%d.json", s.now().UnixMilli()))
		if err := os.WriteFile(backup, prev, 0o644); err != nil {
			s.logger.Warn("could not create backup", zap.Error(err))
		}
	} else if !os.IsNotExist(err) {
		s.logger.Warn("could not read data file for backup", zap.Error(err))
	}

	data, err := json.MarshalIndent(thoughts, "", "  ")
	if err != nil {
		return pkgerrors.NewPersistenceError("encode thoughts", err)
	}
	return s.writeAtomic(data)
}

// writeAtomic writes data to a temp file in the same directory and
// renames it over the live file. Callers hold s.mu.
func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return pkgerrors.NewPersistenceError("create temp file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return pkgerrors.NewPersistenceError("write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return pkgerrors.NewPersistenceError("close temp file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return pkgerrors.NewPersistenceError("replace data file", err)
	}
	return nil
}
