package sync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"thoughtgraph/domain/thought"
	"thoughtgraph/infrastructure/persistence/local"
)

// ServerStatus is the reachability state of the remote collection.
type ServerStatus string

const (
	ServerUnknown ServerStatus = "unknown"
	ServerOnline  ServerStatus = "online"
	ServerOffline ServerStatus = "offline"
)

// SaveStatus is the state of the local edit pipeline.
type SaveStatus string

const (
	SaveIdle   SaveStatus = "idle"
	SaveSaving SaveStatus = "saving"
	SaveSaved  SaveStatus = "saved"
	SaveError  SaveStatus = "error"
)

// Coordinator owns the synchronization loop for one collection. Local
// edits are pushed after a debounce window, the server is polled on an
// interval, and a differing server copy is adopted wholesale. Every
// response is checked against the edit generation it was issued under;
// a response that raced a newer local edit is discarded.
type Coordinator struct {
	client   *Client
	snapshot *local.Snapshot
	logger   *zap.Logger

	debounce time.Duration
	poll     time.Duration

	mu           sync.Mutex
	thoughts     []thought.Thought
	generation   uint64
	dirty        bool
	serverStatus ServerStatus
	saveStatus   SaveStatus
	lastSyncedAt string
	saveTimer    *time.Timer
	onRemote     func([]thought.Thought)

	conflicts     prometheus.Counter
	conflictCount int
}

// NewCoordinator creates a coordinator. onRemote is invoked, outside the
// lock, whenever a server copy replaces the local one.
func NewCoordinator(client *Client, snapshot *local.Snapshot, debounce, poll time.Duration,
	reg prometheus.Registerer, logger *zap.Logger, onRemote func([]thought.Thought)) *Coordinator {

	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "thoughtgraph_sync_conflicts_total",
		Help: "Local collections overwritten by a differing server copy.",
	})
	if reg != nil {
		reg.MustRegister(conflicts)
	}
	return &Coordinator{
		client:       client,
		snapshot:     snapshot,
		logger:       logger,
		debounce:     debounce,
		poll:         poll,
		thoughts:     []thought.Thought{},
		serverStatus: ServerUnknown,
		saveStatus:   SaveIdle,
		onRemote:     onRemote,
		conflicts:    conflicts,
	}
}

// SetOnRemote installs the remote-adoption callback after construction,
// for callers that build the coordinator before its consumer.
func (c *Coordinator) SetOnRemote(fn func([]thought.Thought)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRemote = fn
}

// Bootstrap loads the initial collection: the server copy when
// reachable, the local fallback snapshot otherwise.
func (c *Coordinator) Bootstrap(ctx context.Context) []thought.Thought {
	var thoughts []thought.Thought
	var stamp string
	err := c.client.CheckStatus(ctx)
	if err == nil {
		thoughts, stamp, err = c.client.FetchThoughts(ctx)
	}
	if err != nil {
		c.logger.Warn("server unreachable, loading local snapshot", zap.Error(err))
		fallback, loadErr := c.snapshot.Load()
		if loadErr != nil {
			c.logger.Warn("local snapshot unreadable", zap.Error(loadErr))
			fallback = []thought.Thought{}
		}
		c.mu.Lock()
		c.serverStatus = ServerOffline
		c.thoughts = thought.CloneAll(fallback)
		c.mu.Unlock()
		return fallback
	}

	c.mu.Lock()
	c.serverStatus = ServerOnline
	c.lastSyncedAt = stamp
	c.thoughts = thought.CloneAll(thoughts)
	c.mu.Unlock()
	return thoughts
}

// Run drives the poll loop until the context is cancelled. A pending
// debounced push is flushed on exit.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if c.saveTimer != nil {
				c.saveTimer.Stop()
				c.saveTimer = nil
			}
			pending := c.dirty
			c.mu.Unlock()
			if pending {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.push(flushCtx)
				cancel()
			}
			return
		case <-ticker.C:
			c.Pull(ctx)
		}
	}
}

// NotifyLocalChange records a new local collection state and arms the
// debounced push.
func (c *Coordinator) NotifyLocalChange(thoughts []thought.Thought) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.thoughts = thought.CloneAll(thoughts)
	c.generation++
	c.dirty = true
	c.saveStatus = SaveIdle

	if c.saveTimer != nil {
		c.saveTimer.Stop()
	}
	c.saveTimer = time.AfterFunc(c.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.client.http.Timeout)
		defer cancel()
		c.push(ctx)
	})
}

// Flush pushes any pending local state immediately.
func (c *Coordinator) Flush(ctx context.Context) {
	c.mu.Lock()
	if c.saveTimer != nil {
		c.saveTimer.Stop()
		c.saveTimer = nil
	}
	pending := c.dirty
	c.mu.Unlock()
	if pending {
		c.push(ctx)
	}
}

// push sends the current local collection to the server and mirrors it
// to the fallback snapshot. A network failure degrades to the local
// copy and reports offline, not an error; the error state is reserved
// for the snapshot write itself failing, since there is no further
// fallback. A push that raced a newer local edit keeps the dirty flag
// set so the next debounce covers the newer state.
func (c *Coordinator) push(ctx context.Context) {
	c.mu.Lock()
	toSave := thought.CloneAll(c.thoughts)
	gen := c.generation
	c.saveStatus = SaveSaving
	c.mu.Unlock()

	snapErr := c.snapshot.Save(toSave)
	if snapErr != nil {
		c.logger.Warn("local snapshot save failed", zap.Error(snapErr))
	}

	_, err := c.client.SaveThoughts(ctx, toSave)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Warn("push failed, keeping local copy", zap.Error(err))
		c.serverStatus = ServerOffline
		if snapErr != nil {
			c.saveStatus = SaveError
		} else if c.generation == gen {
			c.saveStatus = SaveSaved
		}
		return
	}
	c.serverStatus = ServerOnline
	if c.generation == gen {
		c.dirty = false
		c.saveStatus = SaveSaved
	}
}

// Pull fetches the server collection and adopts it wholesale when it
// differs from the local one. Replacing a non-empty local collection
// counts as a conflict. The poll loop calls this on its interval;
// callers may also invoke it directly for an on-demand refresh.
func (c *Coordinator) Pull(ctx context.Context) {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	remote, stamp, err := c.client.FetchThoughts(ctx)

	c.mu.Lock()
	if err != nil {
		c.serverStatus = ServerOffline
		c.mu.Unlock()
		c.logger.Warn("poll failed", zap.Error(err))
		return
	}
	c.serverStatus = ServerOnline
	c.lastSyncedAt = stamp

	if c.generation != gen || c.dirty {
		// A local edit landed while the request was in flight, or a
		// push is still outstanding; the next poll sees the settled
		// state.
		c.mu.Unlock()
		return
	}
	if collectionsEqual(c.thoughts, remote) {
		c.mu.Unlock()
		return
	}

	hadLocal := len(c.thoughts) > 0
	c.thoughts = thought.CloneAll(remote)
	c.dirty = false
	if hadLocal {
		c.conflicts.Inc()
		c.conflictCount++
	}
	notify := c.onRemote
	c.mu.Unlock()

	if hadLocal {
		c.logger.Info("adopted differing server collection", zap.Int("count", len(remote)))
	}
	if notify != nil {
		notify(thought.CloneAll(remote))
	}
}

// Thoughts returns a copy of the coordinator's view of the collection.
func (c *Coordinator) Thoughts() []thought.Thought {
	c.mu.Lock()
	defer c.mu.Unlock()
	return thought.CloneAll(c.thoughts)
}

// Status returns the current server and save states.
func (c *Coordinator) Status() (ServerStatus, SaveStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverStatus, c.saveStatus
}

// LastSyncedAt returns the server timestamp from the most recent
// successful exchange.
func (c *Coordinator) LastSyncedAt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSyncedAt
}

// ConflictCount reports how many times a server copy displaced local
// data.
func (c *Coordinator) ConflictCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conflictCount
}

func collectionsEqual(a, b []thought.Thought) bool {
	aj, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(aj) == string(bj)
}
