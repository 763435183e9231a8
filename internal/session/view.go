package session

import (
	"github.com/tatianab/hero-campaign/internal/campaign"
	"github.com/tatianab/hero-campaign/internal/models"
)

// NodeView is the read-only state of one area.
type NodeView struct {
	ID       campaign.NodeID
	Name     string
	Status   campaign.Status
	Active   bool
	Pending  bool
	Messages int
	Summary  string
}

// View is a read-only copy of the playthrough for presentation.
type View struct {
	Title  string
	Active campaign.NodeID
	Nodes  []NodeView
	Party  []models.Hero
}

// View returns the current state in canonical area order.
func (s *Session) View() View {
	summaries := s.Summaries()
	active := s.graph.Active()
	v := View{
		Title:  s.layout.Title,
		Active: active,
		Party:  s.Party().Heroes,
	}
	for _, id := range s.layout.Order() {
		st, _ := s.graph.Status(id)
		l := s.areaLog(id)
		v.Nodes = append(v.Nodes, NodeView{
			ID:       id,
			Name:     s.layout.Name(id),
			Status:   st,
			Active:   id == active,
			Pending:  l.HasPending(),
			Messages: l.Len(),
			Summary:  summaries[id],
		})
	}
	return v
}

// Node returns the view of one area.
func (v View) Node(id campaign.NodeID) (NodeView, bool) {
	for _, n := range v.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeView{}, false
}
