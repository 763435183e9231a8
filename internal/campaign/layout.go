package campaign

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed layout.yaml
var defaultLayoutYAML []byte

// NodeID identifies a campaign area.
type NodeID string

const (
	Briefing         NodeID = "briefing"
	MedicalBay       NodeID = "medicalBay"
	Armory           NodeID = "armory"
	CaptainsQuarters NodeID = "captainsQuarters"
	FinalArea        NodeID = "finalArea"
)

// NodeDef is the static definition of one area.
type NodeDef struct {
	ID         NodeID   `yaml:"id"`
	Name       string   `yaml:"name"`
	Scene      string   `yaml:"scene"`
	Successors []NodeID `yaml:"successors"`
	Exclusive  NodeID   `yaml:"exclusive,omitempty"` // mutually exclusive sibling
}

// Layout is the fixed campaign graph. Nodes are kept in canonical order.
type Layout struct {
	Title string    `yaml:"title"`
	Root  NodeID    `yaml:"root"`
	Nodes []NodeDef `yaml:"nodes"`

	index        map[NodeID]int
	predecessors map[NodeID][]NodeID
}

// DefaultLayout returns the embedded campaign graph.
func DefaultLayout() *Layout {
	l, err := ParseLayout(defaultLayoutYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded campaign layout: %v", err))
	}
	return l
}

// ParseLayout decodes and validates a layout document.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to parse layout YAML: %w", err)
	}
	if err := l.build(); err != nil {
		return nil, err
	}
	return &l, nil
}

func (l *Layout) build() error {
	if len(l.Nodes) == 0 {
		return errors.New("layout has no nodes")
	}
	l.index = make(map[NodeID]int, len(l.Nodes))
	for i, n := range l.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node %d has no id", i)
		}
		if _, dup := l.index[n.ID]; dup {
			return fmt.Errorf("node %q listed twice", n.ID)
		}
		l.index[n.ID] = i
	}
	if _, ok := l.index[l.Root]; !ok {
		return fmt.Errorf("root %q is not a node", l.Root)
	}

	l.predecessors = make(map[NodeID][]NodeID)
	for _, n := range l.Nodes {
		for _, s := range n.Successors {
			if _, ok := l.index[s]; !ok {
				return fmt.Errorf("node %q has unknown successor %q", n.ID, s)
			}
			if s == l.Root {
				return fmt.Errorf("node %q points back at the root", n.ID)
			}
			l.predecessors[s] = append(l.predecessors[s], n.ID)
		}
		if n.Exclusive == "" {
			continue
		}
		other, ok := l.Node(n.Exclusive)
		if !ok {
			return fmt.Errorf("node %q has unknown exclusive sibling %q", n.ID, n.Exclusive)
		}
		if other.Exclusive != n.ID {
			return fmt.Errorf("exclusive pair %q/%q is not symmetric", n.ID, n.Exclusive)
		}
	}
	for _, n := range l.Nodes {
		if n.ID != l.Root && len(l.predecessors[n.ID]) == 0 {
			return fmt.Errorf("node %q is unreachable", n.ID)
		}
	}
	return nil
}

// Node returns the definition of id.
func (l *Layout) Node(id NodeID) (NodeDef, bool) {
	i, ok := l.index[id]
	if !ok {
		return NodeDef{}, false
	}
	return l.Nodes[i], true
}

// Has reports whether id names a node in the layout.
func (l *Layout) Has(id NodeID) bool {
	_, ok := l.index[id]
	return ok
}

// Name returns the display name of id, falling back to the raw id.
func (l *Layout) Name(id NodeID) string {
	if n, ok := l.Node(id); ok && n.Name != "" {
		return n.Name
	}
	return string(id)
}

// Order returns node ids in canonical order: root, branches, convergence, finale.
func (l *Layout) Order() []NodeID {
	ids := make([]NodeID, len(l.Nodes))
	for i, n := range l.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Predecessors returns the nodes that lead directly to id.
func (l *Layout) Predecessors(id NodeID) []NodeID {
	return l.predecessors[id]
}

// Successors returns the nodes that id leads to.
func (l *Layout) Successors(id NodeID) []NodeID {
	n, _ := l.Node(id)
	return n.Successors
}

// Sibling returns the mutually exclusive partner of id, if any.
func (l *Layout) Sibling(id NodeID) (NodeID, bool) {
	n, ok := l.Node(id)
	if !ok || n.Exclusive == "" {
		return "", false
	}
	return n.Exclusive, true
}

func (l *Layout) position(id NodeID) int {
	return l.index[id]
}
