package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	syncer "thoughtgraph/application/sync"
	"thoughtgraph/domain/layout"
	"thoughtgraph/domain/thought"
	"thoughtgraph/infrastructure/persistence/local"
	"thoughtgraph/pkg/common"
	pkgerrors "thoughtgraph/pkg/errors"
)

// newTestSession builds a session whose coordinator points at nothing;
// the hour-long debounce keeps pushes from firing during the test.
func newTestSession(t *testing.T) *Session {
	t.Helper()
	snapshot, err := local.NewSnapshot(t.TempDir())
	require.NoError(t, err)

	client := syncer.NewClient("http://127.0.0.1:1", 100*time.Millisecond, zap.NewNop())
	coordinator := syncer.NewCoordinator(client, snapshot, time.Hour, time.Hour, nil, zap.NewNop(), nil)
	return New(coordinator, zap.NewNop())
}

func TestSessionCreateAndQuickCapture(t *testing.T) {
	s := newTestSession(t)

	paris := s.Create("Paris", "city notes")
	assert.Equal(t, "Paris", paris.Title)

	captured, err := s.QuickCapture("Trip to @Paris")
	require.NoError(t, err)
	assert.Equal(t, []string{paris.ID}, captured.Connections)

	thoughts := s.Thoughts()
	require.Len(t, thoughts, 2)
	assert.Equal(t, captured.ID, thoughts[0].ID)
}

func TestSessionSelection(t *testing.T) {
	s := newTestSession(t)
	paris := s.Create("Paris", "")

	require.NoError(t, s.Select(paris.ID))
	selected, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, paris.ID, selected.ID)

	t.Run("unknown id rejected", func(t *testing.T) {
		assert.Error(t, s.Select("missing"))
	})

	t.Run("delete clears selection", func(t *testing.T) {
		require.NoError(t, s.Delete(paris.ID))
		_, ok := s.Selected()
		assert.False(t, ok)
	})
}

func TestSessionGraphData(t *testing.T) {
	s := newTestSession(t)
	a := s.Create("A", "")
	b := s.Create("B", "")
	require.NoError(t, s.ToggleConnection(a.ID, b.ID))
	require.NoError(t, s.Select(a.ID))

	data := s.GraphData()
	require.Len(t, data.Nodes, 2)
	require.Len(t, data.Links, 1)
	assert.Equal(t, "#ff3232", data.Nodes[0].Color)

	t.Run("layout switch pins coordinates", func(t *testing.T) {
		s.SetLayout(layout.KindCircular)
		s.SetViewport(layout.Viewport{Width: 500, Height: 500})
		data := s.GraphData()
		require.NotNil(t, data.Nodes[0].FX)
	})

	t.Run("minimap scales positions", func(t *testing.T) {
		full := s.GraphData()
		mini := s.MinimapData()
		assert.InDelta(t, full.Nodes[0].X*0.1, mini.Nodes[0].X, 1e-9)
		assert.Equal(t, 1.0, mini.Nodes[0].Val)
	})
}

func TestSessionSuggest(t *testing.T) {
	s := newTestSession(t)
	s.Create("Paris", "")
	s.Create("Berlin", "")

	suggestion, ok := s.Suggest("note @par", 9)
	require.True(t, ok)
	require.Len(t, suggestion.Candidates, 1)
	assert.Equal(t, "Paris", suggestion.Candidates[0].Title)
}

func TestSessionSearch(t *testing.T) {
	s := newTestSession(t)
	s.Create("Paris travel plans", "")
	s.Create("Grocery list", "")

	matches := s.Search("paris")
	require.NotEmpty(t, matches)
	assert.Equal(t, "Paris travel plans", matches[0].Thought.Title)
}

func TestSessionExportImportRoundTrip(t *testing.T) {
	s := newTestSession(t)
	a := s.Create("A", "")
	b := s.Create("B", "")
	require.NoError(t, s.ToggleConnection(a.ID, b.ID))

	data, err := s.Export()
	require.NoError(t, err)

	fresh := newTestSession(t)
	count, problems, err := fresh.Import(data)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Empty(t, problems)

	thoughts := fresh.Thoughts()
	require.Len(t, thoughts, 2)
	assert.True(t, thoughts[0].HasConnection(thoughts[1].ID))
}

func TestSessionImportAdoptsValidSubset(t *testing.T) {
	s := newTestSession(t)
	s.Create("replaced", "")

	payload := `[
		{"id":"good","title":"Good","content":"","connections":[],"createdAt":"2025-06-01T12:00:00Z","updatedAt":"2025-06-01T12:00:00Z"},
		{"id":"broken"}
	]`
	count, problems, err := s.Import([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "index 1")

	thoughts := s.Thoughts()
	require.Len(t, thoughts, 1)
	assert.Equal(t, "good", thoughts[0].ID)
}

func TestSessionImportRejectsWhenNothingValid(t *testing.T) {
	s := newTestSession(t)
	s.Create("keep me", "")

	count, problems, err := s.Import([]byte(`[{"id":"broken"}]`))
	require.Error(t, err)
	assert.Zero(t, count)
	assert.NotEmpty(t, problems)
	assert.Len(t, s.Thoughts(), 1)
}

func TestSessionImportRejectsDuplicateIDs(t *testing.T) {
	s := newTestSession(t)
	s.Create("keep me", "")

	payload := `[
		{"id":"dup","title":"One","content":"","connections":[],"createdAt":"2025-06-01T12:00:00Z","updatedAt":"2025-06-01T12:00:00Z"},
		{"id":"dup","title":"Two","content":"","connections":[],"createdAt":"2025-06-01T12:00:00Z","updatedAt":"2025-06-01T12:00:00Z"}
	]`
	count, _, err := s.Import([]byte(payload))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
	assert.Zero(t, count)
	assert.Len(t, s.Thoughts(), 1)
}

func TestSessionSyncRefreshesOnDemand(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	remote := []thought.Thought{
		{ID: "remote", Title: "Remote", Connections: []string{}, CreatedAt: now, UpdatedAt: now},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/thoughts", func(w http.ResponseWriter, r *http.Request) {
		common.RespondJSON(w, http.StatusOK, common.ThoughtsResponse{
			Success:   true,
			Thoughts:  remote,
			Timestamp: common.Stamp(now),
		})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	snapshot, err := local.NewSnapshot(t.TempDir())
	require.NoError(t, err)
	client := syncer.NewClient(ts.URL, 2*time.Second, zap.NewNop())
	coordinator := syncer.NewCoordinator(client, snapshot, time.Hour, time.Hour, nil, zap.NewNop(), nil)

	s := New(coordinator, zap.NewNop())
	coordinator.SetOnRemote(s.AdoptRemote)

	// No ticker has fired; the refresh comes purely from the call.
	s.Sync(context.Background())

	thoughts := s.Thoughts()
	require.Len(t, thoughts, 1)
	assert.Equal(t, "remote", thoughts[0].ID)
}

func TestSessionAdoptRemote(t *testing.T) {
	s := newTestSession(t)
	old := s.Create("old", "")
	require.NoError(t, s.Select(old.ID))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.AdoptRemote([]thought.Thought{
		{ID: "remote", Title: "Remote", Connections: []string{}, CreatedAt: now, UpdatedAt: now},
	})

	thoughts := s.Thoughts()
	require.Len(t, thoughts, 1)
	assert.Equal(t, "remote", thoughts[0].ID)

	_, ok := s.Selected()
	assert.False(t, ok)
}
