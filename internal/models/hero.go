package models

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPartySize caps how many heroes accompany the player.
const MaxPartySize = 3

// ErrPartyFull is returned when a roster would exceed MaxPartySize.
var ErrPartyFull = fmt.Errorf("a party has at most %d heroes", MaxPartySize)

// ErrDuplicateHero is returned when the same hero is added twice.
var ErrDuplicateHero = errors.New("hero is already in the party")

// Hero is a player-created character. Records are owned by the hero store;
// the campaign only reads them to build prompts.
type Hero struct {
	ID                string   `json:"id,omitempty" yaml:"id"`
	UserID            string   `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Name              string   `json:"name" yaml:"name"`
	Class             string   `json:"class,omitempty" yaml:"class,omitempty"`
	Race              string   `json:"race,omitempty" yaml:"race,omitempty"`
	Level             int      `json:"level,omitempty" yaml:"level,omitempty"`
	Alignment         string   `json:"alignment,omitempty" yaml:"alignment,omitempty"`
	Appearance        string   `json:"appearance,omitempty" yaml:"appearance,omitempty"`
	Backstory         string   `json:"backstory,omitempty" yaml:"backstory,omitempty"`
	PersonalityTraits []string `json:"personality_traits,omitempty" yaml:"personality_traits,omitempty"`
	SystemPrompt      string   `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	AvatarURL         string   `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
}

// Describe renders a one-line summary such as "Level 3 Elf Ranger".
func (h Hero) Describe() string {
	var parts []string
	if h.Level > 0 {
		parts = append(parts, fmt.Sprintf("Level %d", h.Level))
	}
	if h.Race != "" {
		parts = append(parts, h.Race)
	}
	if h.Class != "" {
		parts = append(parts, h.Class)
	}
	return strings.Join(parts, " ")
}

// Roster is the ordered party snapshot frozen into a campaign.
type Roster struct {
	Heroes []Hero `yaml:"heroes"`
}

// NewRoster validates heroes and returns them as a roster.
func NewRoster(heroes []Hero) (Roster, error) {
	var r Roster
	for _, h := range heroes {
		if err := r.Add(h); err != nil {
			return Roster{}, err
		}
	}
	return r, nil
}

// Add appends h to the roster.
func (r *Roster) Add(h Hero) error {
	if strings.TrimSpace(h.ID) == "" {
		return errors.New("hero id is required")
	}
	if len(r.Heroes) >= MaxPartySize {
		return ErrPartyFull
	}
	for _, existing := range r.Heroes {
		if existing.ID == h.ID {
			return ErrDuplicateHero
		}
	}
	r.Heroes = append(r.Heroes, h)
	return nil
}

// Len returns the number of heroes in the party.
func (r Roster) Len() int {
	return len(r.Heroes)
}

// Find returns the hero with the given display name.
func (r Roster) Find(name string) (Hero, bool) {
	for _, h := range r.Heroes {
		if strings.EqualFold(h.Name, name) {
			return h, true
		}
	}
	return Hero{}, false
}

// IDs returns hero ids in party order.
func (r Roster) IDs() []string {
	ids := make([]string, 0, len(r.Heroes))
	for _, h := range r.Heroes {
		ids = append(ids, h.ID)
	}
	return ids
}
