// Package layout maps a thought collection to 2D node and link
// positions for visualization. Every function is pure: identical inputs
// produce identical output, so a renderer can diff successive frames.
package layout

import (
	"math"
	"time"

	"thoughtgraph/domain/thought"
)

// Kind selects a layout algorithm.
type Kind string

const (
	KindForce    Kind = "force"
	KindTree     Kind = "tree"
	KindCircular Kind = "circular"
	KindTimeline Kind = "timeline"
)

// Viewport is the drawing area the layout is computed for.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Node colors form a two-value domain keyed on selection.
const (
	colorSelected = "#ff3232"
	colorDefault  = "#333333"
)

const minimapScale = 0.1

// Node is one positioned thought. FX/FY are set for layouts that pin
// coordinates so an external physics layer leaves them alone; force
// layout leaves them nil.
type Node struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Val   float64    `json:"val"`
	Color string     `json:"color"`
	X     float64    `json:"x"`
	Y     float64    `json:"y"`
	FX    *float64   `json:"fx,omitempty"`
	FY    *float64   `json:"fy,omitempty"`
	Date  *time.Time `json:"date,omitempty"`
}

// Link is one connection edge, de-duplicated to a single record per
// unordered pair since connections are symmetric.
type Link struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`
}

// GraphData is the renderable output of a layout computation.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Compute runs the layout of the given kind over the collection.
// selectedID drives node color only.
func Compute(thoughts []thought.Thought, selectedID string, kind Kind, vp Viewport) GraphData {
	if len(thoughts) == 0 {
		return GraphData{Nodes: []Node{}, Links: []Link{}}
	}
	switch kind {
	case KindTree:
		return computeTree(thoughts, selectedID, vp)
	case KindCircular:
		return computeCircular(thoughts, selectedID, vp)
	case KindTimeline:
		return computeTimeline(thoughts, selectedID, vp)
	default:
		return computeForce(thoughts, selectedID)
	}
}

// Minimap scales a computed layout down to minimap proportions with
// uniformly small nodes.
func Minimap(data GraphData) GraphData {
	nodes := make([]Node, len(data.Nodes))
	for i, n := range data.Nodes {
		n.X *= minimapScale
		n.Y *= minimapScale
		if n.FX != nil {
			fx := *n.FX * minimapScale
			fy := *n.FY * minimapScale
			n.FX, n.FY = &fx, &fy
		}
		n.Val = 1
		nodes[i] = n
	}
	return GraphData{Nodes: nodes, Links: data.Links}
}

// computeForce emits node and link attributes only; positioning is left
// to the external force simulation.
func computeForce(thoughts []thought.Thought, selectedID string) GraphData {
	nodes := make([]Node, 0, len(thoughts))
	for _, t := range thoughts {
		nodes = append(nodes, Node{
			ID:    t.ID,
			Name:  t.Title,
			Val:   nodeSize(t.Content),
			Color: nodeColor(t.ID, selectedID),
		})
	}
	return GraphData{Nodes: nodes, Links: links(thoughts)}
}

// computeCircular places nodes at equal angular increments around a
// circle sized to the viewport, in collection order.
func computeCircular(thoughts []thought.Thought, selectedID string, vp Viewport) GraphData {
	radius := 0.3 * math.Min(vp.Width, vp.Height)
	nodes := make([]Node, 0, len(thoughts))
	for i, t := range thoughts {
		angle := 2 * math.Pi * float64(i) / float64(len(thoughts))
		n := Node{
			ID:    t.ID,
			Name:  t.Title,
			Val:   nodeSize(t.Content),
			Color: nodeColor(t.ID, selectedID),
			X:     radius * math.Cos(angle),
			Y:     radius * math.Sin(angle),
		}
		pin(&n)
		nodes = append(nodes, n)
	}
	return GraphData{Nodes: nodes, Links: links(thoughts)}
}

// links enumerates the flat edge list, skipping references to ids that
// are not in the collection and collapsing each unordered pair to one
// record.
func links(thoughts []thought.Thought) []Link {
	present := make(map[string]struct{}, len(thoughts))
	for _, t := range thoughts {
		present[t.ID] = struct{}{}
	}

	type pair struct{ lo, hi string }
	seen := make(map[pair]struct{})
	out := []Link{}
	for _, t := range thoughts {
		for _, conn := range t.Connections {
			if _, ok := present[conn]; !ok {
				continue
			}
			p := pair{lo: t.ID, hi: conn}
			if p.lo > p.hi {
				p.lo, p.hi = p.hi, p.lo
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, Link{Source: t.ID, Target: conn, Value: 1})
		}
	}
	return out
}

// nodeSize derives display size from content length.
func nodeSize(content string) float64 {
	return math.Max(1, float64(len(content))/100)
}

func nodeColor(id, selectedID string) string {
	if id == selectedID && id != "" {
		return colorSelected
	}
	return colorDefault
}

// pin fixes a node at its computed coordinates.
func pin(n *Node) {
	fx, fy := n.X, n.Y
	n.FX, n.FY = &fx, &fy
}
