package campaign

import (
	"errors"
	"testing"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	return NewGraph(DefaultLayout())
}

func TestNewGraphInitialConfiguration(t *testing.T) {
	g := newTestGraph(t)

	for _, id := range g.Layout().Order() {
		s, err := g.Status(id)
		if err != nil {
			t.Fatalf("status %s: %v", id, err)
		}
		want := Locked
		if id == Briefing {
			want = Unlocked
		}
		if s != want {
			t.Errorf("%s: expected %s, got %s", id, want, s)
		}
	}
	if g.Active() != Briefing {
		t.Errorf("expected briefing active, got %s", g.Active())
	}
}

func TestAttemptUnlockBranchChoice(t *testing.T) {
	g := newTestGraph(t)

	res, err := g.AttemptUnlock(MedicalBay)
	if err != nil {
		t.Fatalf("unlock medical bay: %v", err)
	}
	if !res.Changed {
		t.Fatal("expected unlock to change state")
	}
	if len(res.Completed) != 1 || res.Completed[0] != Briefing {
		t.Fatalf("expected briefing completed, got %v", res.Completed)
	}
	if len(res.LockedOut) != 1 || res.LockedOut[0] != Armory {
		t.Fatalf("expected armory locked out, got %v", res.LockedOut)
	}

	assertStatus(t, g, Briefing, Completed)
	assertStatus(t, g, MedicalBay, Unlocked)
	assertStatus(t, g, Armory, BranchLockedOut)
}

func TestAttemptUnlockLockedOutSiblingFails(t *testing.T) {
	g := newTestGraph(t)
	if _, err := g.AttemptUnlock(MedicalBay); err != nil {
		t.Fatalf("unlock medical bay: %v", err)
	}
	before := g.Snapshot()

	_, err := g.AttemptUnlock(Armory)
	if !errors.Is(err, ErrBranchLockedOut) {
		t.Fatalf("expected ErrBranchLockedOut, got %v", err)
	}
	var lockout *LockoutError
	if !errors.As(err, &lockout) {
		t.Fatalf("expected *LockoutError, got %T", err)
	}
	if lockout.Chosen != MedicalBay {
		t.Errorf("expected chosen sibling medicalBay, got %s", lockout.Chosen)
	}

	after := g.Snapshot()
	for id, s := range before.Nodes {
		if after.Nodes[id] != s {
			t.Errorf("%s changed from %s to %s", id, s, after.Nodes[id])
		}
	}
}

func TestAttemptUnlockIsIdempotent(t *testing.T) {
	g := newTestGraph(t)
	if _, err := g.AttemptUnlock(Armory); err != nil {
		t.Fatalf("first unlock: %v", err)
	}
	res, err := g.AttemptUnlock(Armory)
	if err != nil {
		t.Fatalf("second unlock: %v", err)
	}
	if res.Changed || len(res.Completed) != 0 || len(res.LockedOut) != 0 {
		t.Errorf("expected no-op result, got %+v", res)
	}
}

func TestAttemptUnlockRequiresReachablePredecessor(t *testing.T) {
	g := newTestGraph(t)

	_, err := g.AttemptUnlock(FinalArea)
	if !errors.Is(err, ErrNotReachable) {
		t.Fatalf("expected ErrNotReachable, got %v", err)
	}
	assertStatus(t, g, FinalArea, Locked)
}

func TestAttemptUnlockUnknownNode(t *testing.T) {
	g := newTestGraph(t)
	if _, err := g.AttemptUnlock("engineRoom"); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
}

func TestFullPlaythroughCompletesChosenPath(t *testing.T) {
	g := newTestGraph(t)
	for _, id := range []NodeID{Armory, CaptainsQuarters, FinalArea} {
		if _, err := g.AttemptUnlock(id); err != nil {
			t.Fatalf("unlock %s: %v", id, err)
		}
	}

	assertStatus(t, g, Briefing, Completed)
	assertStatus(t, g, Armory, Completed)
	assertStatus(t, g, MedicalBay, BranchLockedOut)
	assertStatus(t, g, CaptainsQuarters, Completed)
	assertStatus(t, g, FinalArea, Unlocked)
}

func TestUnlockNeverRevertsUnlocked(t *testing.T) {
	g := newTestGraph(t)
	seen := map[NodeID]bool{}
	steps := []NodeID{MedicalBay, Armory, CaptainsQuarters, MedicalBay, FinalArea, Armory}
	for _, id := range steps {
		_, _ = g.AttemptUnlock(id)
		for node, s := range g.Snapshot().Nodes {
			if seen[node] && !s.IsUnlocked() {
				t.Fatalf("%s reverted to %s after unlocking %s", node, s, id)
			}
			if s.IsUnlocked() {
				seen[node] = true
			}
		}
	}
}

func TestMarkActive(t *testing.T) {
	g := newTestGraph(t)

	if err := g.MarkActive(MedicalBay); !errors.Is(err, ErrAreaLocked) {
		t.Fatalf("expected ErrAreaLocked, got %v", err)
	}
	if _, err := g.AttemptUnlock(MedicalBay); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := g.MarkActive(Briefing); !errors.Is(err, ErrAreaCompleted) {
		t.Fatalf("expected ErrAreaCompleted, got %v", err)
	}
	if err := g.MarkActive(MedicalBay); err != nil {
		t.Fatalf("mark active: %v", err)
	}
	if g.Active() != MedicalBay {
		t.Errorf("expected medicalBay active, got %s", g.Active())
	}
}

func TestResetRestoresInitialConfiguration(t *testing.T) {
	g := newTestGraph(t)
	for _, id := range []NodeID{MedicalBay, CaptainsQuarters} {
		if _, err := g.AttemptUnlock(id); err != nil {
			t.Fatalf("unlock %s: %v", id, err)
		}
	}
	g.Reset()

	fresh := NewGraph(g.Layout()).Snapshot()
	got := g.Snapshot()
	for id, s := range fresh.Nodes {
		if got.Nodes[id] != s {
			t.Errorf("%s: expected %s after reset, got %s", id, s, got.Nodes[id])
		}
	}
	if got.Active != Briefing {
		t.Errorf("expected briefing active after reset, got %s", got.Active)
	}
}

func TestCanTransitionTerminalStates(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{Locked, Unlocked, true},
		{Locked, BranchLockedOut, true},
		{Locked, Completed, false},
		{Unlocked, Completed, true},
		{Unlocked, BranchLockedOut, false},
		{Unlocked, Locked, false},
		{Completed, Unlocked, false},
		{BranchLockedOut, Unlocked, false},
	}
	for _, tt := range tests {
		if got := canTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.want, got)
		}
	}
}

func assertStatus(t *testing.T, g *Graph, id NodeID, want Status) {
	t.Helper()
	got, err := g.Status(id)
	if err != nil {
		t.Fatalf("status %s: %v", id, err)
	}
	if got != want {
		t.Errorf("%s: expected %s, got %s", id, want, got)
	}
}
