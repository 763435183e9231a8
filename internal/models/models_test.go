package models

import (
	"errors"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestMessageYAML(t *testing.T) {
	now := time.Date(2026, 2, 14, 18, 30, 0, 0, time.UTC)
	msg := NewCharacterMessage("Vex", "The pod is still warm.", now)

	data, err := yaml.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal message: %v", err)
	}

	var msg2 Message
	if err := yaml.Unmarshal(data, &msg2); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if msg2.ID != msg.ID || msg2.Speaker != "Vex" || !msg2.CreatedAt.Equal(now) {
		t.Errorf("Expected %+v, got %+v", msg, msg2)
	}
	if !msg2.Validate() {
		t.Errorf("Expected round-tripped message to be valid")
	}
}

func TestMessageValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"user", NewUserMessage("hello", now), true},
		{"character", NewCharacterMessage("Narrator", "welcome", now), true},
		{"placeholder", NewPlaceholder("Vex", now), false},
		{"missing id", Message{Sender: SenderUser, Text: "hi"}, false},
		{"missing text", Message{ID: "m1", Sender: SenderUser, Text: "  "}, false},
		{"unknown sender", Message{ID: "m1", Sender: "wizard", Text: "hi"}, false},
	}
	for _, tt := range tests {
		if got := tt.msg.Validate(); got != tt.want {
			t.Errorf("%s: Validate() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMessageIDsAreOrdered(t *testing.T) {
	a, b := NewMessageID(), NewMessageID()
	if a == b {
		t.Fatalf("Expected unique ids, got %s twice", a)
	}
	if a > b {
		t.Errorf("Expected ids to sort in creation order: %s > %s", a, b)
	}
}

func TestRoster(t *testing.T) {
	var r Roster
	for _, id := range []string{"a", "b", "c"} {
		if err := r.Add(Hero{ID: id, Name: "Hero " + id}); err != nil {
			t.Fatalf("Add(%s) error = %v", id, err)
		}
	}
	if err := r.Add(Hero{ID: "d", Name: "Hero d"}); !errors.Is(err, ErrPartyFull) {
		t.Errorf("Add() on a full party error = %v, want ErrPartyFull", err)
	}

	r = Roster{}
	if err := r.Add(Hero{ID: "a", Name: "Vex"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(Hero{ID: "a", Name: "Vex"}); !errors.Is(err, ErrDuplicateHero) {
		t.Errorf("Add() duplicate error = %v, want ErrDuplicateHero", err)
	}
	if err := r.Add(Hero{Name: "Nameless"}); err == nil {
		t.Error("Add() without an id should fail")
	}
	if h, ok := r.Find("vex"); !ok || h.ID != "a" {
		t.Errorf("Find(vex) = %+v, %v", h, ok)
	}
}

func TestHeroDescribe(t *testing.T) {
	h := Hero{Name: "Ilsa", Class: "Ranger", Race: "Elf", Level: 3}
	if got := h.Describe(); got != "Level 3 Elf Ranger" {
		t.Errorf("Describe() = %q", got)
	}
	if got := (Hero{Name: "Plain"}).Describe(); got != "" {
		t.Errorf("Describe() with no details = %q, want empty", got)
	}
}
