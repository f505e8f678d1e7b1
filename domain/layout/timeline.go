package layout

import (
	"math"
	"sort"

	"thoughtgraph/domain/thought"
)

const (
	timelineMargin = 50.0
	timelineLanes  = 5
)

// computeTimeline orders thoughts by creation time along the x axis.
// The x position is linear in the fractional day-offset from the
// earliest creation, so thoughts created at different instants never
// share an x coordinate; the denominator is floored at one day so a
// collection created within a single day still spreads. Y cycles
// through a fixed number of lanes to reduce overlap.
func computeTimeline(thoughts []thought.Thought, selectedID string, vp Viewport) GraphData {
	sorted := thought.CloneAll(thoughts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	start := sorted[0].CreatedAt
	end := sorted[len(sorted)-1].CreatedAt
	totalDays := math.Max(1, end.Sub(start).Hours()/24)

	width := vp.Width * 0.8
	height := vp.Height * 0.6
	laneGap := (height - 2*timelineMargin) / timelineLanes

	nodes := make([]Node, 0, len(sorted))
	for i, t := range sorted {
		days := t.CreatedAt.Sub(start).Hours() / 24
		x := timelineMargin + (days/totalDays)*(width-2*timelineMargin) - width/2
		y := timelineMargin + float64(i%timelineLanes)*laneGap - height/2

		date := t.CreatedAt
		n := Node{
			ID:    t.ID,
			Name:  t.Title,
			Val:   nodeSize(t.Content),
			Color: nodeColor(t.ID, selectedID),
			X:     x,
			Y:     y,
			Date:  &date,
		}
		pin(&n)
		nodes = append(nodes, n)
	}
	return GraphData{Nodes: nodes, Links: links(thoughts)}
}
