package layout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoughtgraph/domain/thought"
)

func datedThought(id string, created time.Time) thought.Thought {
	return thought.Thought{
		ID:          id,
		Title:       id,
		Connections: []string{},
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestComputeTimelineOrdering(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	thoughts := []thought.Thought{
		datedThought("third", base.Add(48*time.Hour)),
		datedThought("first", base),
		datedThought("second", base.Add(3*time.Hour)),
	}

	data := Compute(thoughts, "", KindTimeline, testViewport)
	require.Len(t, data.Nodes, 3)

	assert.Equal(t, "first", data.Nodes[0].ID)
	assert.Equal(t, "second", data.Nodes[1].ID)
	assert.Equal(t, "third", data.Nodes[2].ID)

	// Distinct creation instants get strictly increasing x, even within
	// the same day.
	assert.Less(t, data.Nodes[0].X, data.Nodes[1].X)
	assert.Less(t, data.Nodes[1].X, data.Nodes[2].X)
}

func TestComputeTimelineSameDaySpreads(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	thoughts := []thought.Thought{
		datedThought("a", base),
		datedThought("b", base.Add(time.Hour)),
		datedThought("c", base.Add(2*time.Hour)),
	}

	data := Compute(thoughts, "", KindTimeline, testViewport)
	require.Len(t, data.Nodes, 3)
	assert.Less(t, data.Nodes[0].X, data.Nodes[1].X)
	assert.Less(t, data.Nodes[1].X, data.Nodes[2].X)
}

func TestComputeTimelineLanes(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var thoughts []thought.Thought
	for i := 0; i < 7; i++ {
		thoughts = append(thoughts, datedThought(string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour)))
	}

	data := Compute(thoughts, "", KindTimeline, testViewport)
	require.Len(t, data.Nodes, 7)

	// Y repeats with a period of five lanes.
	assert.Equal(t, data.Nodes[0].Y, data.Nodes[5].Y)
	assert.Equal(t, data.Nodes[1].Y, data.Nodes[6].Y)
	assert.NotEqual(t, data.Nodes[0].Y, data.Nodes[1].Y)
}

func TestComputeTimelineNodesCarryDates(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	thoughts := []thought.Thought{datedThought("a", base)}

	data := Compute(thoughts, "", KindTimeline, testViewport)
	require.Len(t, data.Nodes, 1)
	require.NotNil(t, data.Nodes[0].Date)
	assert.True(t, data.Nodes[0].Date.Equal(base))
	require.NotNil(t, data.Nodes[0].FX)
	require.NotNil(t, data.Nodes[0].FY)
}

func TestComputeTimelineStableForEqualInstants(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	thoughts := []thought.Thought{
		datedThought("a", base),
		datedThought("b", base),
	}

	data := Compute(thoughts, "", KindTimeline, testViewport)
	require.Len(t, data.Nodes, 2)
	assert.Equal(t, "a", data.Nodes[0].ID)
	assert.Equal(t, "b", data.Nodes[1].ID)
	assert.Equal(t, data.Nodes[0].X, data.Nodes[1].X)
	assert.NotEqual(t, data.Nodes[0].Y, data.Nodes[1].Y)
}
