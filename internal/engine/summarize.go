package engine

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log"
	"strings"
	"text/template"

	"github.com/tatianab/hero-campaign/internal/models"
)

//go:embed prompts/summarize_area.txt
var summarizeAreaPrompt string

var summarizeAreaTmpl = template.Must(template.New("summarize_area").Parse(summarizeAreaPrompt))

// Summarizer turns a finished area's conversation into a short digest.
type Summarizer struct {
	gen Generator
}

func NewSummarizer(gen Generator) *Summarizer {
	return &Summarizer{gen: gen}
}

// FallbackSummary is used whenever the model cannot produce a digest.
func FallbackSummary(areaName string, n int) string {
	return fmt.Sprintf("%s - Conversation completed with %d messages exchanged.", areaName, n)
}

// Summarize never fails: generation errors and blank output fall back to
// FallbackSummary.
func (s *Summarizer) Summarize(ctx context.Context, areaName string, msgs []models.Message) string {
	var lines []string
	for _, m := range msgs {
		if m.Pending {
			continue
		}
		speaker := "Player"
		if m.Sender == models.SenderCharacter {
			speaker = m.Speaker
			if speaker == "" {
				speaker = "Character"
			}
		}
		lines = append(lines, speaker+": "+m.Text)
	}
	fallback := FallbackSummary(areaName, len(lines))

	var buf bytes.Buffer
	data := struct {
		AreaName string
		Messages []string
	}{
		AreaName: areaName,
		Messages: lines,
	}
	if err := summarizeAreaTmpl.Execute(&buf, data); err != nil {
		log.Printf("Warning: failed to render summary prompt for %s: %v", areaName, err)
		return fallback
	}

	text, err := s.gen.Generate(ctx, []ChatMessage{{Role: RoleUser, Content: buf.String()}})
	if err != nil {
		log.Printf("Warning: failed to summarize %s: %v", areaName, err)
		return fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback
	}
	return text
}
