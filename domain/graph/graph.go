// Package graph holds the authoritative thought collection and performs
// every mutation that must preserve its structural invariants: the
// connection relation is symmetric, never self-referential, never
// dangling, and ids are unique. No operation returns with a partially
// applied bidirectional update.
package graph

import (
	"fmt"
	"strings"
	"time"

	"thoughtgraph/domain/mention"
	"thoughtgraph/domain/thought"
	pkgerrors "thoughtgraph/pkg/errors"
)

// Provenance records how an edge came to exist. Mention-driven edits
// only retract mention edges; a manually toggled connection survives
// its title disappearing from the text.
type Provenance string

const (
	ProvenanceManual  Provenance = "manual"
	ProvenanceMention Provenance = "mention"
)

// edgeKey is an unordered pair of thought ids.
type edgeKey struct {
	lo, hi string
}

func keyFor(a, b string) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{lo: a, hi: b}
}

// Graph owns the canonical in-memory collection for a session. The
// durable copy lives behind the sync layer; Graph never talks to it.
type Graph struct {
	thoughts   []thought.Thought
	provenance map[edgeKey]Provenance
	now        func() time.Time
}

// New creates an empty graph using the wall clock.
func New() *Graph {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty graph with an injected clock, which
// keeps timestamp behavior deterministic under test.
func NewWithClock(now func() time.Time) *Graph {
	return &Graph{
		thoughts:   []thought.Thought{},
		provenance: make(map[edgeKey]Provenance),
		now:        now,
	}
}

// Len returns the number of thoughts.
func (g *Graph) Len() int {
	return len(g.thoughts)
}

// All returns a snapshot copy of the collection in its canonical order.
func (g *Graph) All() []thought.Thought {
	return thought.CloneAll(g.thoughts)
}

// Get returns a copy of the thought with the given id.
func (g *Graph) Get(id string) (thought.Thought, error) {
	i := g.index(id)
	if i < 0 {
		return thought.Thought{}, pkgerrors.NewNotFoundError("thought " + id)
	}
	return g.thoughts[i].Clone(), nil
}

// EdgeProvenance reports how the edge between a and b was created.
func (g *Graph) EdgeProvenance(a, b string) (Provenance, bool) {
	p, ok := g.provenance[keyFor(a, b)]
	return p, ok
}

// Create inserts a new thought with no connections, appending it to the
// collection. A title that sanitizes to empty falls back to the default
// label rather than failing.
func (g *Graph) Create(title, content string) thought.Thought {
	t := thought.New(title, content, g.now())
	g.thoughts = append(thought.CloneAll(g.thoughts), t)
	return t.Clone()
}

// CreateFromQuickCapture parses raw capture text, strips its mentions to
// form the title, and creates a thought connected to every resolved
// mention target. Each matched target gains the reciprocal connection in
// the same operation. The new thought is prepended so recent captures
// surface first.
func (g *Graph) CreateFromQuickCapture(raw string) (thought.Thought, error) {
	if strings.TrimSpace(raw) == "" {
		return thought.Thought{}, pkgerrors.NewValidationError("capture text cannot be empty")
	}

	now := g.now()
	ids := mention.Extract(raw, g.thoughts)
	title := mention.Strip(raw)
	if title == "" {
		title = thought.QuickCaptureTitle
	}

	t := thought.New(title, "", now)
	t.Connections = append([]string{}, ids...)

	mentioned := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		mentioned[id] = struct{}{}
	}

	next := make([]thought.Thought, 0, len(g.thoughts)+1)
	next = append(next, t.Clone())
	for _, existing := range g.thoughts {
		if _, ok := mentioned[existing.ID]; ok {
			next = append(next, existing.WithConnection(t.ID).Touch(now))
		} else {
			next = append(next, existing.Clone())
		}
	}
	g.thoughts = next

	for _, id := range ids {
		g.provenance[keyFor(t.ID, id)] = ProvenanceMention
	}
	return t.Clone(), nil
}

// Update re-parses the raw title and content of a thought, recomputes
// its connection set and reconciles all peers. Mention-provenance edges
// whose titles no longer appear are retracted on both sides; manual
// edges are left alone. Newly resolved mentions become mention edges,
// added reciprocally.
func (g *Graph) Update(id, titleRaw, contentRaw string) (thought.Thought, error) {
	i := g.index(id)
	if i < 0 {
		return thought.Thought{}, pkgerrors.NewNotFoundError("thought " + id)
	}
	now := g.now()
	current := g.thoughts[i]

	resolved := unionIDs(
		mention.Extract(titleRaw, g.thoughts),
		mention.Extract(contentRaw, g.thoughts),
	)
	// A thought cannot mention itself into a connection.
	resolved = removeID(resolved, id)
	resolvedSet := make(map[string]struct{}, len(resolved))
	for _, r := range resolved {
		resolvedSet[r] = struct{}{}
	}

	title := mention.Strip(titleRaw)
	if title == "" {
		title = thought.DefaultTitle
	}
	content := mention.Strip(contentRaw)

	var kept []string
	removedSet := make(map[string]struct{})
	for _, conn := range current.Connections {
		if _, stillMentioned := resolvedSet[conn]; stillMentioned {
			kept = append(kept, conn)
			continue
		}
		if g.provenance[keyFor(id, conn)] == ProvenanceMention {
			removedSet[conn] = struct{}{}
			continue
		}
		kept = append(kept, conn) // manual edge survives mention removal
	}
	addedSet := make(map[string]struct{})
	for _, r := range resolved {
		if !contains(kept, r) {
			kept = append(kept, r)
			addedSet[r] = struct{}{}
		}
	}

	updated := current.Clone()
	updated.Title = title
	updated.Content = content
	updated.Connections = kept
	updated.UpdatedAt = now

	next := make([]thought.Thought, len(g.thoughts))
	for j, peer := range g.thoughts {
		switch {
		case peer.ID == id:
			next[j] = updated.Clone()
		default:
			if _, added := addedSet[peer.ID]; added && !peer.HasConnection(id) {
				next[j] = peer.WithConnection(id).Touch(now)
			} else if _, removed := removedSet[peer.ID]; removed && peer.HasConnection(id) {
				next[j] = peer.WithoutConnection(id).Touch(now)
			} else {
				next[j] = peer.Clone()
			}
		}
	}
	g.thoughts = next

	for conn := range removedSet {
		delete(g.provenance, keyFor(id, conn))
	}
	for conn := range addedSet {
		if _, exists := g.provenance[keyFor(id, conn)]; !exists {
			g.provenance[keyFor(id, conn)] = ProvenanceMention
		}
	}
	return updated.Clone(), nil
}

// ToggleConnection flips the edge between a and b, updating both sides
// atomically. Toggled-on edges carry manual provenance.
func (g *Graph) ToggleConnection(a, b string) error {
	if a == b {
		return pkgerrors.NewValidationError("cannot connect a thought to itself")
	}
	ia, ib := g.index(a), g.index(b)
	if ia < 0 {
		return pkgerrors.NewNotFoundError("thought " + a)
	}
	if ib < 0 {
		return pkgerrors.NewNotFoundError("thought " + b)
	}

	now := g.now()
	connected := g.thoughts[ia].HasConnection(b)

	next := thought.CloneAll(g.thoughts)
	if connected {
		next[ia] = next[ia].WithoutConnection(b).Touch(now)
		next[ib] = next[ib].WithoutConnection(a).Touch(now)
		delete(g.provenance, keyFor(a, b))
	} else {
		next[ia] = next[ia].WithConnection(b).Touch(now)
		next[ib] = next[ib].WithConnection(a).Touch(now)
		g.provenance[keyFor(a, b)] = ProvenanceManual
	}
	g.thoughts = next
	return nil
}

// Delete removes a thought and prunes it from every peer's connection
// list in the same operation.
func (g *Graph) Delete(id string) error {
	if g.index(id) < 0 {
		return pkgerrors.NewNotFoundError("thought " + id)
	}

	now := g.now()
	next := make([]thought.Thought, 0, len(g.thoughts)-1)
	for _, t := range g.thoughts {
		if t.ID == id {
			continue
		}
		if t.HasConnection(id) {
			next = append(next, t.WithoutConnection(id).Touch(now))
		} else {
			next = append(next, t.Clone())
		}
	}
	g.thoughts = next

	for key := range g.provenance {
		if key.lo == id || key.hi == id {
			delete(g.provenance, key)
		}
	}
	return nil
}

// Adopt replaces the whole collection, repairing dangling and self
// references on the way in. Adopted edges are treated as manual, since
// the wire format carries no provenance; that is the conservative
// direction, protecting them from mention-driven retraction.
func (g *Graph) Adopt(thoughts []thought.Thought) {
	g.thoughts = thought.Repair(thought.CloneAll(thoughts), g.now())
	g.provenance = make(map[edgeKey]Provenance)
}

// ConnectedTo returns the thoughts linked to the given one, in its
// connection order.
func (g *Graph) ConnectedTo(id string) ([]thought.Thought, error) {
	i := g.index(id)
	if i < 0 {
		return nil, pkgerrors.NewNotFoundError("thought " + id)
	}
	idx := thought.IndexByID(g.thoughts)
	var out []thought.Thought
	for _, conn := range g.thoughts[i].Connections {
		if t, ok := idx[conn]; ok {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// LinkableFrom returns the thoughts not yet connected to the given one.
func (g *Graph) LinkableFrom(id string) ([]thought.Thought, error) {
	i := g.index(id)
	if i < 0 {
		return nil, pkgerrors.NewNotFoundError("thought " + id)
	}
	source := g.thoughts[i]
	var out []thought.Thought
	for _, t := range g.thoughts {
		if t.ID == id || source.HasConnection(t.ID) {
			continue
		}
		out = append(out, t.Clone())
	}
	return out, nil
}

// Validate checks the structural invariants and is intended for tests
// and import paths; the mutation operations maintain them on their own.
func (g *Graph) Validate() error {
	ids := make(map[string]int, len(g.thoughts))
	for i, t := range g.thoughts {
		if _, dup := ids[t.ID]; dup {
			return fmt.Errorf("duplicate thought id %s", t.ID)
		}
		ids[t.ID] = i
	}
	for _, t := range g.thoughts {
		for _, conn := range t.Connections {
			if conn == t.ID {
				return fmt.Errorf("thought %s connects to itself", t.ID)
			}
			j, ok := ids[conn]
			if !ok {
				return fmt.Errorf("thought %s holds dangling connection %s", t.ID, conn)
			}
			if !g.thoughts[j].HasConnection(t.ID) {
				return fmt.Errorf("asymmetric connection %s -> %s", t.ID, conn)
			}
		}
	}
	return nil
}

func (g *Graph) index(id string) int {
	for i, t := range g.thoughts {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func unionIDs(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, id := range append(append([]string{}, a...), b...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
