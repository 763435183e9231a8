package campaign

import "fmt"

// Status is the lifecycle state of a campaign node.
//
//	Locked ──▶ Unlocked ──▶ Completed
//	   │
//	   └────▶ BranchLockedOut
//
// Completed and BranchLockedOut are terminal until a full reset.
type Status int

const (
	Locked Status = iota
	Unlocked
	Completed
	BranchLockedOut
)

var statusNames = map[Status]string{
	Locked:          "locked",
	Unlocked:        "unlocked",
	Completed:       "completed",
	BranchLockedOut: "branch_locked_out",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// IsUnlocked reports whether the area has ever been opened.
func (s Status) IsUnlocked() bool { return s == Unlocked || s == Completed }

// IsCompleted reports whether the area is frozen.
func (s Status) IsCompleted() bool { return s == Completed }

// IsBranchLockedOut reports whether the area was excluded by a branch choice.
func (s Status) IsBranchLockedOut() bool { return s == BranchLockedOut }

// canTransition lists the only legal edges of the state machine.
func canTransition(from, to Status) bool {
	switch from {
	case Locked:
		return to == Unlocked || to == BranchLockedOut
	case Unlocked:
		return to == Completed
	default:
		return false
	}
}
