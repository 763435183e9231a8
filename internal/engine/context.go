package engine

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/tatianab/hero-campaign/internal/campaign"
	"github.com/tatianab/hero-campaign/internal/models"
)

//go:embed prompts/character.txt
var characterPrompt string

var characterTmpl = template.Must(template.New("character").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(characterPrompt))

// NoHistoryPlaceholder stands in for the campaign context before any area
// has been summarized. Prompts never omit the context block.
const NoHistoryPlaceholder = "No history yet. This is the beginning of the adventure."

// NarratorName is the speaker used when no hero is voicing a reply.
const NarratorName = "Narrator"

// BuildCampaignContext joins the area summaries in canonical order under
// per-area headings.
func BuildCampaignContext(layout *campaign.Layout, summaries map[campaign.NodeID]string) string {
	var b strings.Builder
	for _, id := range layout.Order() {
		text := strings.TrimSpace(summaries[id])
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n%s", layout.Name(id), text)
	}
	if b.Len() == 0 {
		return NoHistoryPlaceholder
	}
	return b.String()
}

// Persona is the voice a character speaks with.
type Persona struct {
	Name         string
	Description  string
	Instructions string
	Backstory    string
	Traits       []string
}

// NarratorPersona voices areas when the party is empty.
func NarratorPersona() Persona {
	return Persona{
		Name:         NarratorName,
		Description:  "the game master narrating this adventure",
		Instructions: "Describe the scene and voice any non-player characters the party meets.",
	}
}

// HeroPersona voices a party member. A hero's custom system prompt replaces
// the generated instructions.
func HeroPersona(h models.Hero) Persona {
	p := Persona{
		Name:         h.Name,
		Description:  strings.ToLower(h.Describe()),
		Instructions: h.SystemPrompt,
		Backstory:    h.Backstory,
		Traits:       h.PersonalityTraits,
	}
	if p.Description != "" {
		p.Description = "a " + p.Description
	}
	if h.Alignment != "" {
		p.Description = strings.TrimSpace(p.Description + " (" + h.Alignment + ")")
	}
	if h.Appearance != "" && p.Instructions == "" {
		p.Instructions = "Appearance: " + h.Appearance
	}
	return p
}

// Scene places a character prompt in the campaign.
type Scene struct {
	Title    string
	AreaName string
	Setting  string
	Party    []string
}

// CharacterPrompt renders the system prompt for p speaking in scene, with
// history (the campaign context) appended.
func CharacterPrompt(p Persona, scene Scene, history string) (string, error) {
	if strings.TrimSpace(history) == "" {
		history = NoHistoryPlaceholder
	}
	var buf bytes.Buffer
	data := struct {
		Name         string
		Description  string
		Instructions string
		Backstory    string
		Traits       []string
		Title        string
		AreaName     string
		Scene        string
		Party        []string
		History      string
	}{
		Name:         p.Name,
		Description:  p.Description,
		Instructions: p.Instructions,
		Backstory:    p.Backstory,
		Traits:       p.Traits,
		Title:        scene.Title,
		AreaName:     scene.AreaName,
		Scene:        scene.Setting,
		Party:        scene.Party,
		History:      history,
	}
	if err := characterTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render character prompt: %w", err)
	}
	return buf.String(), nil
}

// Conversation converts a log into chat turns from the point of view of
// speaker. Other characters' lines are attributed by name.
func Conversation(speaker string, msgs []models.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Pending {
			continue
		}
		switch {
		case m.Sender == models.SenderUser:
			out = append(out, ChatMessage{Role: RoleUser, Content: m.Text})
		case m.Speaker == speaker || m.Speaker == "":
			out = append(out, ChatMessage{Role: RoleAssistant, Content: m.Text})
		default:
			out = append(out, ChatMessage{Role: RoleUser, Content: m.Speaker + ": " + m.Text})
		}
	}
	return out
}
