package campaign

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownNode indicates an id that is not part of the layout.
	ErrUnknownNode = errors.New("unknown campaign area")
	// ErrBranchLockedOut indicates an area excluded by an earlier branch choice.
	ErrBranchLockedOut = errors.New("area is permanently inaccessible")
	// ErrNotReachable indicates an area whose predecessors are all still locked.
	ErrNotReachable = errors.New("area is not reachable yet")
	// ErrAreaLocked indicates an area that has not been unlocked.
	ErrAreaLocked = errors.New("area is locked")
	// ErrAreaCompleted indicates a frozen area that refuses new input.
	ErrAreaCompleted = errors.New("area is completed")
)

// LockoutError reports a permanent branch lockout. It is a terminal outcome
// to explain to the player, not something to retry.
type LockoutError struct {
	Node       NodeID
	NodeName   string
	Chosen     NodeID // the sibling taken instead
	ChosenName string
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("%s is permanently inaccessible: the party already chose %s, and that choice cannot be undone",
		e.NodeName, e.ChosenName)
}

func (e *LockoutError) Unwrap() error {
	return ErrBranchLockedOut
}
