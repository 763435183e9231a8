package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tatianab/hero-campaign/internal/campaign"
	"github.com/tatianab/hero-campaign/internal/engine"
	"github.com/tatianab/hero-campaign/internal/persistence"
	"github.com/tatianab/hero-campaign/internal/session"
	"github.com/tatianab/hero-campaign/internal/storage"
)

func newTestModel(t *testing.T) model {
	t.Helper()
	layout := campaign.DefaultLayout()
	sess := session.New(session.Deps{
		Layout:    layout,
		Store:     persistence.New(storage.NewMemory(), layout, ""),
		Generator: engine.NewMockGenerator("Welcome aboard."),
	})
	return NewModel(sess)
}

func typeLine(t *testing.T, m model, line string) (model, tea.Cmd) {
	t.Helper()
	m.textInput.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(model), cmd
}

func TestResolveArea(t *testing.T) {
	layout := campaign.DefaultLayout()
	tests := []struct {
		arg  string
		want campaign.NodeID
		ok   bool
	}{
		{"medicalBay", campaign.MedicalBay, true},
		{"medical bay", campaign.MedicalBay, true},
		{"THE BRIDGE", campaign.FinalArea, true},
		{"engine room", "", false},
	}
	for _, tt := range tests {
		got, ok := resolveArea(layout, tt.arg)
		if got != tt.want || ok != tt.ok {
			t.Errorf("resolveArea(%q) = %q, %v; want %q, %v", tt.arg, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSendShowsReply(t *testing.T) {
	m := newTestModel(t)
	m, cmd := typeLine(t, m, "Hello")
	if cmd == nil {
		t.Fatal("expected a command to generate the reply")
	}
	if !m.session.Pending(campaign.Briefing) {
		t.Error("message should be pending until the reply arrives")
	}
	msg := cmd()
	if _, ok := msg.(replyMsg); !ok {
		t.Fatalf("cmd() = %T, want replyMsg", msg)
	}
	msgs := m.session.Messages(campaign.Briefing)
	if len(msgs) != 2 || msgs[1].Text != "Welcome aboard." {
		t.Errorf("log = %+v", msgs)
	}
}

func TestResetNeedsConfirmation(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.session.Unlock(context.Background(), campaign.Armory); err != nil {
		t.Fatal(err)
	}

	m, _ = typeLine(t, m, "/reset")
	if m.state != stateConfirmReset {
		t.Fatalf("state = %v, want confirmation prompt", m.state)
	}
	m, _ = typeLine(t, m, "no")
	if st, _ := m.session.Status(campaign.Armory); st != campaign.Unlocked {
		t.Errorf("declined reset changed armory to %s", st)
	}

	m, _ = typeLine(t, m, "/reset")
	m, _ = typeLine(t, m, "yes")
	if st, _ := m.session.Status(campaign.Armory); st != campaign.Locked {
		t.Errorf("after reset armory = %s, want locked", st)
	}
	if m.state != statePlaying {
		t.Errorf("state = %v, want playing", m.state)
	}
}

func TestUnlockReportsLockout(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.session.Unlock(context.Background(), campaign.MedicalBay); err != nil {
		t.Fatal(err)
	}

	m, cmd := typeLine(t, m, "/unlock armory")
	if cmd == nil {
		t.Fatal("expected an unlock command")
	}
	next, _ := m.Update(cmd())
	m = next.(model)
	if m.notice == "" || m.busy {
		t.Errorf("notice = %q, busy = %v", m.notice, m.busy)
	}
}

func TestUnlockWaitsForReply(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.session.Submit(context.Background(), campaign.Briefing, "Hello"); err != nil {
		t.Fatal(err)
	}

	m, cmd := typeLine(t, m, "/unlock armory")
	if cmd != nil {
		t.Error("expected no unlock while a reply is pending")
	}
	if m.notice == "" || m.busy {
		t.Errorf("notice = %q, busy = %v", m.notice, m.busy)
	}
	if st, _ := m.session.Status(campaign.Armory); st != campaign.Locked {
		t.Errorf("armory = %s, want locked", st)
	}
}
