package campaign

import (
	"fmt"
	"sync"
)

// UnlockResult describes what a successful unlock changed.
type UnlockResult struct {
	Node      NodeID
	Changed   bool     // false when the node was already unlocked
	Completed []NodeID // predecessors frozen by this unlock, canonical order
	LockedOut []NodeID // siblings excluded by this unlock
}

// Graph is the progression state machine over a fixed Layout.
// All mutations go through transition.
type Graph struct {
	layout *Layout

	mu     sync.Mutex
	status map[NodeID]Status
	active NodeID
}

// NewGraph returns a graph in its initial configuration.
func NewGraph(layout *Layout) *Graph {
	g := &Graph{layout: layout}
	g.reset()
	return g
}

// Layout returns the static campaign graph.
func (g *Graph) Layout() *Layout {
	return g.layout
}

func (g *Graph) reset() {
	g.status = make(map[NodeID]Status, len(g.layout.Nodes))
	for _, id := range g.layout.Order() {
		g.status[id] = Locked
	}
	g.status[g.layout.Root] = Unlocked
	g.active = g.layout.Root
}

// Reset returns every node to the initial configuration.
func (g *Graph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
}

// Status returns the current state of id.
func (g *Graph) Status(id NodeID) (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.status[id]
	if !ok {
		return Locked, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return s, nil
}

// Active returns the area currently open for conversation.
func (g *Graph) Active() NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

func (g *Graph) transition(id NodeID, to Status) error {
	from := g.status[id]
	if !canTransition(from, to) {
		return fmt.Errorf("illegal transition for %s: %s -> %s", id, from, to)
	}
	g.status[id] = to
	return nil
}

// AttemptUnlock opens id. Unlocking one side of an exclusive pair permanently
// locks out the other, and every unlocked predecessor becomes completed.
// Repeating an unlock is a successful no-op.
func (g *Graph) AttemptUnlock(id NodeID) (UnlockResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := UnlockResult{Node: id}
	current, ok := g.status[id]
	if !ok {
		return result, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if current.IsUnlocked() {
		return result, nil
	}

	sibling, hasSibling := g.layout.Sibling(id)
	if current.IsBranchLockedOut() || (hasSibling && g.status[sibling].IsUnlocked()) {
		return result, &LockoutError{
			Node:       id,
			NodeName:   g.layout.Name(id),
			Chosen:     sibling,
			ChosenName: g.layout.Name(sibling),
		}
	}

	reachable := false
	for _, p := range g.layout.Predecessors(id) {
		if g.status[p].IsUnlocked() {
			reachable = true
			break
		}
	}
	if !reachable {
		return result, fmt.Errorf("%w: %s", ErrNotReachable, g.layout.Name(id))
	}

	if err := g.transition(id, Unlocked); err != nil {
		return result, err
	}
	result.Changed = true

	if hasSibling && g.status[sibling] == Locked {
		if err := g.transition(sibling, BranchLockedOut); err != nil {
			return result, err
		}
		result.LockedOut = append(result.LockedOut, sibling)
	}

	for _, p := range g.layout.Order() {
		if !g.isPredecessor(p, id) || g.status[p] != Unlocked {
			continue
		}
		if err := g.transition(p, Completed); err != nil {
			return result, err
		}
		result.Completed = append(result.Completed, p)
	}
	return result, nil
}

func (g *Graph) isPredecessor(p, id NodeID) bool {
	for _, q := range g.layout.Predecessors(id) {
		if q == p {
			return true
		}
	}
	return false
}

// MarkActive selects id as the open conversation area. Locked and completed
// areas are refused.
func (g *Graph) MarkActive(id NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.status[id]
	switch {
	case !ok:
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	case s.IsCompleted():
		return fmt.Errorf("%w: %s", ErrAreaCompleted, g.layout.Name(id))
	case !s.IsUnlocked():
		return fmt.Errorf("%w: %s", ErrAreaLocked, g.layout.Name(id))
	}
	g.active = id
	return nil
}

// CanAcceptInput reports whether new messages may be added to id.
func (g *Graph) CanAcceptInput(id NodeID) error {
	s, err := g.Status(id)
	if err != nil {
		return err
	}
	if s.IsCompleted() {
		return fmt.Errorf("%w: %s", ErrAreaCompleted, g.layout.Name(id))
	}
	if !s.IsUnlocked() {
		return fmt.Errorf("%w: %s", ErrAreaLocked, g.layout.Name(id))
	}
	return nil
}

// Snapshot captures the graph state for persistence.
func (g *Graph) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	nodes := make(map[NodeID]Status, len(g.status))
	for id, s := range g.status {
		nodes[id] = s
	}
	return Snapshot{Nodes: nodes, Active: g.active}
}

// Restore replaces the graph state with a reconciled copy of snap and
// returns the repairs that were needed.
func (g *Graph) Restore(snap Snapshot) []string {
	fixed, repairs := Reconcile(g.layout, snap)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = fixed.Nodes
	g.active = fixed.Active
	return repairs
}
