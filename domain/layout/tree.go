package layout

import (
	"thoughtgraph/domain/thought"
)

// maxTreeDepth bounds the hierarchy DFS. Branch-local visited sets
// already stop cycles; the depth cap keeps pathological imports from
// producing absurdly deep forests.
const maxTreeDepth = 64

// treeNode is one occurrence of a thought in the synthetic forest. The
// same thought can occur under several branches because the visited set
// is branch-local, not global; that multi-appearance is intentional.
type treeNode struct {
	id       string
	depth    int
	children []*treeNode
	x        float64
}

// computeTree builds a rooted forest from the connection relation and
// runs a tidy-tree positioning pass over it. Roots are the thoughts
// with no incoming references; a graph where every thought is referenced
// (for example a cycle) falls back to the single thought with the most
// connections, ties broken by collection order. Links are the original
// flat edge list so non-tree edges overlay the hierarchy.
func computeTree(thoughts []thought.Thought, selectedID string, vp Viewport) GraphData {
	idx := thought.IndexByID(thoughts)

	incoming := make(map[string]struct{})
	for _, t := range thoughts {
		for _, conn := range t.Connections {
			incoming[conn] = struct{}{}
		}
	}

	var roots []thought.Thought
	for _, t := range thoughts {
		if _, referenced := incoming[t.ID]; !referenced {
			roots = append(roots, t)
		}
	}
	if len(roots) == 0 {
		most := thoughts[0]
		for _, t := range thoughts[1:] {
			if len(t.Connections) > len(most.Connections) {
				most = t
			}
		}
		roots = append(roots, most)
	}

	forest := make([]*treeNode, 0, len(roots))
	for _, root := range roots {
		if n := buildHierarchy(root.ID, idx, map[string]struct{}{}, 1); n != nil {
			forest = append(forest, n)
		}
	}

	leafCount, maxDepth := 0, 1
	for _, root := range forest {
		assignLeafOrder(root, &leafCount, &maxDepth)
	}

	layoutW := vp.Width * 0.8
	layoutH := vp.Height * 0.8

	nodes := []Node{}
	emitted := make(map[string]struct{})
	for _, root := range forest {
		emitNodes(root, idx, selectedID, vp, layoutW, layoutH, leafCount, maxDepth, emitted, &nodes)
	}
	return GraphData{Nodes: nodes, Links: links(thoughts)}
}

// buildHierarchy performs the bounded DFS. The visited set is copied per
// child branch, so a node excluded on the current path may still appear
// under a sibling.
func buildHierarchy(id string, idx map[string]thought.Thought, visited map[string]struct{}, depth int) *treeNode {
	if _, onPath := visited[id]; onPath || depth > maxTreeDepth {
		return nil
	}
	t, ok := idx[id]
	if !ok {
		return nil
	}
	visited[id] = struct{}{}

	node := &treeNode{id: id, depth: depth}
	for _, conn := range t.Connections {
		if _, onPath := visited[conn]; onPath {
			continue
		}
		branch := make(map[string]struct{}, len(visited))
		for k := range visited {
			branch[k] = struct{}{}
		}
		if child := buildHierarchy(conn, idx, branch, depth+1); child != nil {
			node.children = append(node.children, child)
		}
	}
	return node
}

// assignLeafOrder walks the forest post-order: leaves take sequential
// slots and every parent centers over its children. This is the classic
// tidy-tree pass, run over the whole synthetic multi-root forest.
func assignLeafOrder(n *treeNode, nextLeaf *int, maxDepth *int) {
	if n.depth > *maxDepth {
		*maxDepth = n.depth
	}
	if len(n.children) == 0 {
		n.x = float64(*nextLeaf)
		*nextLeaf++
		return
	}
	for _, c := range n.children {
		assignLeafOrder(c, nextLeaf, maxDepth)
	}
	n.x = (n.children[0].x + n.children[len(n.children)-1].x) / 2
}

// emitNodes translates tree slots into viewport-centered coordinates.
// Only the first traversal occurrence of an id produces a node record,
// and that occurrence receives the pinned position.
func emitNodes(n *treeNode, idx map[string]thought.Thought,
	selectedID string, vp Viewport, layoutW, layoutH float64,
	leafCount, maxDepth int, emitted map[string]struct{}, out *[]Node) {

	if _, done := emitted[n.id]; !done {
		emitted[n.id] = struct{}{}

		x := layoutW / 2
		if leafCount > 1 {
			x = n.x / float64(leafCount-1) * layoutW
		}
		y := float64(n.depth) / float64(maxDepth) * layoutH

		t := idx[n.id]
		node := Node{
			ID:    t.ID,
			Name:  t.Title,
			Val:   nodeSize(t.Content),
			Color: nodeColor(t.ID, selectedID),
			X:     x - vp.Width*0.4,
			Y:     y - vp.Height*0.4,
		}
		pin(&node)
		*out = append(*out, node)
	}
	for _, c := range n.children {
		emitNodes(c, idx, selectedID, vp, layoutW, layoutH, leafCount, maxDepth, emitted, out)
	}
}
