package campaign

import "fmt"

// Snapshot is the persisted form of the graph state.
type Snapshot struct {
	Nodes  map[NodeID]Status `yaml:"nodes"`
	Active NodeID            `yaml:"active,omitempty"`
}

// Reconcile repairs a snapshot so it satisfies the graph invariants. It
// returns the repaired copy and a human-readable note per change.
//
// The rules, applied in order:
//   - unknown nodes are dropped, missing nodes are locked, the root is unlocked;
//   - a node unlocked without any unlocked predecessor is relocked;
//   - at most one node of an exclusive pair stays unlocked (the first in
//     canonical order), and its sibling is locked out;
//   - a lockout without an unlocked sibling is lifted;
//   - a node is completed iff it is unlocked and one of its successors is;
//   - the active area must be open, else the root, else the furthest open area.
func Reconcile(layout *Layout, snap Snapshot) (Snapshot, []string) {
	var repairs []string
	note := func(format string, args ...any) {
		repairs = append(repairs, fmt.Sprintf(format, args...))
	}

	nodes := make(map[NodeID]Status, len(layout.Nodes))
	for id, s := range snap.Nodes {
		if !layout.Has(id) {
			note("dropped unknown node %s", id)
			continue
		}
		nodes[id] = s
	}
	for _, id := range layout.Order() {
		if _, ok := nodes[id]; !ok {
			if snap.Nodes != nil {
				note("missing node %s reset to locked", id)
			}
			nodes[id] = Locked
		}
	}
	if !nodes[layout.Root].IsUnlocked() {
		note("root %s forced unlocked", layout.Root)
		nodes[layout.Root] = Unlocked
	}
	relockUnreachable(layout, nodes, note)

	for _, id := range layout.Order() {
		sibling, ok := layout.Sibling(id)
		if !ok || layout.position(sibling) < layout.position(id) {
			continue
		}
		first, second := nodes[id], nodes[sibling]
		switch {
		case first.IsUnlocked() && second.IsUnlocked():
			note("both %s and %s unlocked; %s locked out", id, sibling, sibling)
			nodes[sibling] = BranchLockedOut
		case first.IsUnlocked() && second != BranchLockedOut:
			note("%s locked out by chosen sibling %s", sibling, id)
			nodes[sibling] = BranchLockedOut
		case second.IsUnlocked() && first != BranchLockedOut:
			note("%s locked out by chosen sibling %s", id, sibling)
			nodes[id] = BranchLockedOut
		}
	}
	relockUnreachable(layout, nodes, note)

	for _, id := range layout.Order() {
		if nodes[id] != BranchLockedOut {
			continue
		}
		sibling, ok := layout.Sibling(id)
		if !ok || !nodes[sibling].IsUnlocked() {
			note("lockout of %s lifted: no sibling was chosen", id)
			nodes[id] = Locked
		}
	}

	for _, id := range layout.Order() {
		s := nodes[id]
		if !s.IsUnlocked() {
			continue
		}
		successorOpen := false
		for _, next := range layout.Successors(id) {
			if nodes[next].IsUnlocked() {
				successorOpen = true
				break
			}
		}
		switch {
		case successorOpen && s != Completed:
			note("%s marked completed: a successor is unlocked", id)
			nodes[id] = Completed
		case !successorOpen && s == Completed:
			note("%s completion cleared: no successor is unlocked", id)
			nodes[id] = Unlocked
		}
	}

	active := snap.Active
	if nodes[active] != Unlocked {
		fallback := layout.Root
		if nodes[fallback] != Unlocked {
			for _, id := range layout.Order() {
				if nodes[id] == Unlocked {
					fallback = id
				}
			}
		}
		if active != "" && active != fallback {
			note("active area %s is not open; using %s", active, fallback)
		}
		active = fallback
	}

	return Snapshot{Nodes: nodes, Active: active}, repairs
}

// relockUnreachable locks every non-root node that is open while none of
// its predecessors is, repeating until no more nodes change.
func relockUnreachable(layout *Layout, nodes map[NodeID]Status, note func(string, ...any)) {
	for changed := true; changed; {
		changed = false
		for _, id := range layout.Order() {
			if id == layout.Root || !nodes[id].IsUnlocked() {
				continue
			}
			reachable := false
			for _, p := range layout.Predecessors(id) {
				if nodes[p].IsUnlocked() {
					reachable = true
					break
				}
			}
			if !reachable {
				note("%s relocked: no predecessor is unlocked", id)
				nodes[id] = Locked
				changed = true
			}
		}
	}
}
