// Package session ties one user's editing state together: the graph,
// its selection and layout choice, the sync coordinator, and the
// import/export surface. All timers and background work belong to the
// session and die with its context.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"thoughtgraph/application/search"
	syncer "thoughtgraph/application/sync"
	"thoughtgraph/domain/graph"
	"thoughtgraph/domain/layout"
	"thoughtgraph/domain/mention"
	"thoughtgraph/domain/thought"
	pkgerrors "thoughtgraph/pkg/errors"
)

// Session is the top-level application object for one open collection.
// Methods are safe for concurrent use; the coordinator's poll goroutine
// mutates the graph through the same lock path as user edits.
type Session struct {
	graph       *graph.Graph
	coordinator *syncer.Coordinator
	logger      *zap.Logger

	selectedID string
	layoutKind layout.Kind
	viewport   layout.Viewport

	mu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a session at construction.
type Option func(*Session)

// WithViewport sets the initial drawing area.
func WithViewport(vp layout.Viewport) Option {
	return func(s *Session) { s.viewport = vp }
}

// New creates a session over a fresh graph.
func New(coordinator *syncer.Coordinator, logger *zap.Logger, opts ...Option) *Session {
	s := &Session{
		graph:       graph.New(),
		coordinator: coordinator,
		logger:      logger,
		layoutKind:  layout.KindForce,
		viewport:    layout.Viewport{Width: 800, Height: 600},
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the initial collection and launches the sync loop. The
// session stops when ctx is cancelled.
func (s *Session) Start(ctx context.Context) {
	initial := s.coordinator.Bootstrap(ctx)

	s.lock()
	s.graph.Adopt(initial)
	s.unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() {
		defer close(s.done)
		s.coordinator.Run(runCtx)
	}()
}

// Stop cancels the sync loop and waits for its final flush.
func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// AdoptRemote replaces the session's collection with a server copy. The
// coordinator calls this when a poll brings back a differing state.
func (s *Session) AdoptRemote(thoughts []thought.Thought) {
	s.lock()
	defer s.unlock()
	s.graph.Adopt(thoughts)
	if s.selectedID != "" {
		if _, err := s.graph.Get(s.selectedID); err != nil {
			s.selectedID = ""
		}
	}
}

// Thoughts returns a snapshot of the collection.
func (s *Session) Thoughts() []thought.Thought {
	s.lock()
	defer s.unlock()
	return s.graph.All()
}

// Create adds a thought and schedules a push.
func (s *Session) Create(title, content string) thought.Thought {
	s.lock()
	defer s.unlock()
	t := s.graph.Create(title, content)
	s.coordinator.NotifyLocalChange(s.graph.All())
	return t
}

// QuickCapture creates a thought from raw capture text, resolving and
// stripping its mentions.
func (s *Session) QuickCapture(raw string) (thought.Thought, error) {
	s.lock()
	defer s.unlock()
	t, err := s.graph.CreateFromQuickCapture(raw)
	if err != nil {
		return thought.Thought{}, err
	}
	s.coordinator.NotifyLocalChange(s.graph.All())
	return t, nil
}

// Update rewrites a thought's title and content, reconciling mention
// connections on both sides.
func (s *Session) Update(id, titleRaw, contentRaw string) (thought.Thought, error) {
	s.lock()
	defer s.unlock()
	t, err := s.graph.Update(id, titleRaw, contentRaw)
	if err != nil {
		return thought.Thought{}, err
	}
	s.coordinator.NotifyLocalChange(s.graph.All())
	return t, nil
}

// ToggleConnection flips the manual edge between two thoughts.
func (s *Session) ToggleConnection(a, b string) error {
	s.lock()
	defer s.unlock()
	if err := s.graph.ToggleConnection(a, b); err != nil {
		return err
	}
	s.coordinator.NotifyLocalChange(s.graph.All())
	return nil
}

// Delete removes a thought and clears the selection if it pointed at it.
func (s *Session) Delete(id string) error {
	s.lock()
	defer s.unlock()
	if err := s.graph.Delete(id); err != nil {
		return err
	}
	if s.selectedID == id {
		s.selectedID = ""
	}
	s.coordinator.NotifyLocalChange(s.graph.All())
	return nil
}

// Select marks a thought as selected; an empty id clears the selection.
func (s *Session) Select(id string) error {
	s.lock()
	defer s.unlock()
	if id != "" {
		if _, err := s.graph.Get(id); err != nil {
			return err
		}
	}
	s.selectedID = id
	return nil
}

// Selected returns the currently selected thought, if any.
func (s *Session) Selected() (thought.Thought, bool) {
	s.lock()
	defer s.unlock()
	if s.selectedID == "" {
		return thought.Thought{}, false
	}
	t, err := s.graph.Get(s.selectedID)
	if err != nil {
		return thought.Thought{}, false
	}
	return t, true
}

// SetLayout switches the active layout algorithm.
func (s *Session) SetLayout(kind layout.Kind) {
	s.lock()
	defer s.unlock()
	s.layoutKind = kind
}

// SetViewport updates the drawing area used by layout computation.
func (s *Session) SetViewport(vp layout.Viewport) {
	s.lock()
	defer s.unlock()
	s.viewport = vp
}

// GraphData computes positions for the current layout, selection and
// viewport.
func (s *Session) GraphData() layout.GraphData {
	s.lock()
	defer s.unlock()
	return layout.Compute(s.graph.All(), s.selectedID, s.layoutKind, s.viewport)
}

// MinimapData computes the scaled-down companion view of GraphData.
func (s *Session) MinimapData() layout.GraphData {
	return layout.Minimap(s.GraphData())
}

// ConnectedTo lists the thoughts linked to the given one.
func (s *Session) ConnectedTo(id string) ([]thought.Thought, error) {
	s.lock()
	defer s.unlock()
	return s.graph.ConnectedTo(id)
}

// LinkableFrom lists the thoughts not yet linked to the given one.
func (s *Session) LinkableFrom(id string) ([]thought.Thought, error) {
	s.lock()
	defer s.unlock()
	return s.graph.LinkableFrom(id)
}

// Suggest returns mention completion candidates for text at cursor.
func (s *Session) Suggest(text string, cursor int) (mention.Suggestion, bool) {
	s.lock()
	defer s.unlock()
	return mention.Suggest(text, cursor, s.graph.All())
}

// Search runs fuzzy lookup over titles and content.
func (s *Session) Search(query string) []search.Match {
	s.lock()
	defer s.unlock()
	return search.Find(query, s.graph.All())
}

// Export serializes the collection for download.
func (s *Session) Export() ([]byte, error) {
	s.lock()
	defer s.unlock()
	data, err := json.MarshalIndent(s.graph.All(), "", "  ")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "encode export")
	}
	return data, nil
}

// Import validates an exported payload and adopts the valid subset,
// returning the per-record problems alongside the adopted count.
// Rejected outright only when no record validates or the payload
// carries colliding ids.
func (s *Session) Import(data []byte) (int, []string, error) {
	result := thought.ValidateCollection(data)
	if result.ValidCount == 0 {
		return 0, result.Errors, pkgerrors.NewValidationError("no valid thoughts in import").
			WithDetails(map[string]interface{}{"errors": result.Errors})
	}
	seen := make(map[string]struct{}, result.ValidCount)
	for _, t := range result.Valid {
		if _, dup := seen[t.ID]; dup {
			return 0, result.Errors, pkgerrors.NewConflictError("duplicate thought id " + t.ID)
		}
		seen[t.ID] = struct{}{}
	}

	s.lock()
	defer s.unlock()
	s.graph.Adopt(result.Valid)
	s.selectedID = ""
	s.coordinator.NotifyLocalChange(s.graph.All())
	s.logger.Info("imported collection",
		zap.Int("count", result.ValidCount),
		zap.Int("skipped", result.TotalCount-result.ValidCount))
	return result.ValidCount, result.Errors, nil
}

// Sync reconciles with the server immediately: pending local edits are
// flushed first so the refresh cannot clobber them with stale data.
func (s *Session) Sync(ctx context.Context) {
	s.coordinator.Flush(ctx)
	s.coordinator.Pull(ctx)
}

// Status reports the coordinator's server and save states.
func (s *Session) Status() (syncer.ServerStatus, syncer.SaveStatus) {
	return s.coordinator.Status()
}

func (s *Session) lock()   { s.mu.Lock() }
func (s *Session) unlock() { s.mu.Unlock() }
