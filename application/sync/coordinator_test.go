package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"thoughtgraph/domain/thought"
	"thoughtgraph/infrastructure/persistence/local"
	"thoughtgraph/pkg/common"
)

// fakeServer is an in-memory rendition of the collection API.
type fakeServer struct {
	mu       sync.Mutex
	thoughts []thought.Thought
	saves    int
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/thoughts", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			common.RespondJSON(w, http.StatusOK, common.ThoughtsResponse{
				Success:   true,
				Thoughts:  append([]thought.Thought{}, f.thoughts...),
				Timestamp: common.Stamp(time.Now()),
			})
		case http.MethodPost:
			var body struct {
				Thoughts []thought.Thought `json:"thoughts"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Thoughts == nil {
				common.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "thoughts must be an array")
				return
			}
			f.thoughts = body.Thoughts
			f.saves++
			common.RespondJSON(w, http.StatusOK, common.SaveResponse{
				Success:   true,
				Message:   "Thoughts saved successfully",
				Timestamp: common.Stamp(time.Now()),
				Count:     len(body.Thoughts),
			})
		}
	})
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		common.RespondJSON(w, http.StatusOK, common.StatusResponse{
			Success:   true,
			Message:   "Server is running",
			Timestamp: common.Stamp(time.Now()),
			DataFile:  "test.json",
		})
	})
	return mux
}

func (f *fakeServer) set(thoughts []thought.Thought) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thoughts = thoughts
}

func (f *fakeServer) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func testThoughts(ids ...string) []thought.Thought {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	out := make([]thought.Thought, 0, len(ids))
	for _, id := range ids {
		out = append(out, thought.Thought{
			ID:          id,
			Title:       id,
			Connections: []string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return out
}

func newTestCoordinator(t *testing.T, baseURL string, onRemote func([]thought.Thought)) *Coordinator {
	t.Helper()
	snapshot, err := local.NewSnapshot(t.TempDir())
	require.NoError(t, err)
	client := NewClient(baseURL, 2*time.Second, zap.NewNop())
	return NewCoordinator(client, snapshot, 10*time.Millisecond, time.Hour, nil, zap.NewNop(), onRemote)
}

func TestBootstrapFromServer(t *testing.T) {
	server := &fakeServer{thoughts: testThoughts("a", "b")}
	ts := httptest.NewServer(server.handler())
	defer ts.Close()

	c := newTestCoordinator(t, ts.URL, nil)
	got := c.Bootstrap(context.Background())

	assert.Len(t, got, 2)
	serverStatus, _ := c.Status()
	assert.Equal(t, ServerOnline, serverStatus)
	assert.NotEmpty(t, c.LastSyncedAt())
}

func TestBootstrapFallsBackToSnapshot(t *testing.T) {
	snapshot, err := local.NewSnapshot(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, snapshot.Save(testThoughts("cached")))

	client := NewClient("http://127.0.0.1:1", time.Second, zap.NewNop())
	c := NewCoordinator(client, snapshot, 10*time.Millisecond, time.Hour, nil, zap.NewNop(), nil)

	got := c.Bootstrap(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, "cached", got[0].ID)

	serverStatus, _ := c.Status()
	assert.Equal(t, ServerOffline, serverStatus)
}

func TestDebouncedPushReachesServer(t *testing.T) {
	server := &fakeServer{}
	ts := httptest.NewServer(server.handler())
	defer ts.Close()

	c := newTestCoordinator(t, ts.URL, nil)
	c.Bootstrap(context.Background())

	c.NotifyLocalChange(testThoughts("new"))
	_, saveStatus := c.Status()
	assert.Equal(t, SaveIdle, saveStatus)

	require.Eventually(t, func() bool {
		_, s := c.Status()
		return s == SaveSaved
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, server.saveCount())
}

func TestRapidEditsCollapseToOnePush(t *testing.T) {
	server := &fakeServer{}
	ts := httptest.NewServer(server.handler())
	defer ts.Close()

	c := newTestCoordinator(t, ts.URL, nil)
	c.Bootstrap(context.Background())

	c.NotifyLocalChange(testThoughts("a"))
	c.NotifyLocalChange(testThoughts("a", "b"))
	c.NotifyLocalChange(testThoughts("a", "b", "c"))

	require.Eventually(t, func() bool {
		_, s := c.Status()
		return s == SaveSaved
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, server.saveCount())
	assert.Len(t, c.Thoughts(), 3)
}

func TestPullAdoptsDifferingServerCopy(t *testing.T) {
	server := &fakeServer{}
	ts := httptest.NewServer(server.handler())
	defer ts.Close()

	var adopted []thought.Thought
	var adoptedMu sync.Mutex
	c := newTestCoordinator(t, ts.URL, func(thoughts []thought.Thought) {
		adoptedMu.Lock()
		defer adoptedMu.Unlock()
		adopted = thoughts
	})
	c.Bootstrap(context.Background())

	c.NotifyLocalChange(testThoughts("local"))
	require.Eventually(t, func() bool {
		_, s := c.Status()
		return s == SaveSaved
	}, 2*time.Second, 10*time.Millisecond)

	server.set(testThoughts("remote-1", "remote-2"))
	c.Pull(context.Background())

	assert.Len(t, c.Thoughts(), 2)
	assert.Equal(t, 1, c.ConflictCount())

	adoptedMu.Lock()
	defer adoptedMu.Unlock()
	require.Len(t, adopted, 2)
	assert.Equal(t, "remote-1", adopted[0].ID)
}

func TestPullDeferredWhilePushPending(t *testing.T) {
	server := &fakeServer{}
	ts := httptest.NewServer(server.handler())
	defer ts.Close()

	snapshot, err := local.NewSnapshot(t.TempDir())
	require.NoError(t, err)
	client := NewClient(ts.URL, 2*time.Second, zap.NewNop())
	c := NewCoordinator(client, snapshot, time.Hour, time.Hour, nil, zap.NewNop(), nil)
	c.Bootstrap(context.Background())

	// Debounce never fires, so the local edit stays pending.
	c.NotifyLocalChange(testThoughts("local"))
	server.set(testThoughts("stale-remote"))

	c.Pull(context.Background())

	got := c.Thoughts()
	require.Len(t, got, 1)
	assert.Equal(t, "local", got[0].ID)
	assert.Equal(t, 0, c.ConflictCount())
}

func TestPullIdenticalCopyIsNoConflict(t *testing.T) {
	server := &fakeServer{thoughts: testThoughts("a")}
	ts := httptest.NewServer(server.handler())
	defer ts.Close()

	c := newTestCoordinator(t, ts.URL, nil)
	c.Bootstrap(context.Background())

	c.Pull(context.Background())
	assert.Equal(t, 0, c.ConflictCount())
}

func TestPullIntoEmptyLocalIsNoConflict(t *testing.T) {
	server := &fakeServer{}
	ts := httptest.NewServer(server.handler())
	defer ts.Close()

	c := newTestCoordinator(t, ts.URL, nil)
	c.Bootstrap(context.Background())

	server.set(testThoughts("remote"))
	c.Pull(context.Background())

	assert.Len(t, c.Thoughts(), 1)
	assert.Equal(t, 0, c.ConflictCount())
}

func TestPushFailureFallsBackToLocalSave(t *testing.T) {
	dir := t.TempDir()
	snapshot, err := local.NewSnapshot(dir)
	require.NoError(t, err)

	client := NewClient("http://127.0.0.1:1", time.Second, zap.NewNop())
	c := NewCoordinator(client, snapshot, 10*time.Millisecond, time.Hour, nil, zap.NewNop(), nil)

	c.NotifyLocalChange(testThoughts("a"))
	require.Eventually(t, func() bool {
		server, save := c.Status()
		return server == ServerOffline && save == SaveSaved
	}, 2*time.Second, 10*time.Millisecond)

	cached, err := snapshot.Load()
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "a", cached[0].ID)
}

func TestPushFailureWithBrokenSnapshotIsError(t *testing.T) {
	dir := t.TempDir()
	snapshot, err := local.NewSnapshot(dir)
	require.NoError(t, err)
	// A directory squatting on the data slot makes every snapshot
	// write fail, so there is no fallback left.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "thoughts-graph-data.json"), 0o755))

	client := NewClient("http://127.0.0.1:1", time.Second, zap.NewNop())
	c := NewCoordinator(client, snapshot, 10*time.Millisecond, time.Hour, nil, zap.NewNop(), nil)

	c.NotifyLocalChange(testThoughts("a"))
	require.Eventually(t, func() bool {
		_, save := c.Status()
		return save == SaveError
	}, 2*time.Second, 10*time.Millisecond)

	serverStatus, _ := c.Status()
	assert.Equal(t, ServerOffline, serverStatus)
}

func TestPushMirrorsToLocalSnapshot(t *testing.T) {
	dir := t.TempDir()
	snapshot, err := local.NewSnapshot(dir)
	require.NoError(t, err)

	server := &fakeServer{}
	ts := httptest.NewServer(server.handler())
	defer ts.Close()

	client := NewClient(ts.URL, 2*time.Second, zap.NewNop())
	c := NewCoordinator(client, snapshot, 10*time.Millisecond, time.Hour, nil, zap.NewNop(), nil)

	c.NotifyLocalChange(testThoughts("a"))
	require.Eventually(t, func() bool {
		_, s := c.Status()
		return s == SaveSaved
	}, 2*time.Second, 10*time.Millisecond)

	cached, err := snapshot.Load()
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "a", cached[0].ID)

	_, ok := snapshot.LastSaved()
	assert.True(t, ok)
}

func TestFlushPushesImmediately(t *testing.T) {
	server := &fakeServer{}
	ts := httptest.NewServer(server.handler())
	defer ts.Close()

	snapshot, err := local.NewSnapshot(t.TempDir())
	require.NoError(t, err)
	client := NewClient(ts.URL, 2*time.Second, zap.NewNop())
	c := NewCoordinator(client, snapshot, time.Hour, time.Hour, nil, zap.NewNop(), nil)

	c.NotifyLocalChange(testThoughts("a"))
	c.Flush(context.Background())

	assert.Equal(t, 1, server.saveCount())
	_, saveStatus := c.Status()
	assert.Equal(t, SaveSaved, saveStatus)
}
