package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Role is the author of a chat message sent to a language model.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of a generation request.
type ChatMessage struct {
	Role    Role
	Content string
}

// Generator is the text-generation service: an ordered conversation in,
// text out. Any failure is reported as an error; there is no partial success.
type Generator interface {
	Generate(ctx context.Context, msgs []ChatMessage) (string, error)
}

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("no content returned from model")

// Gemini generates text with Google's Gemini models.
type Gemini struct {
	client    *genai.Client
	modelName string
}

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &Gemini{
		client:    client,
		modelName: modelName,
	}, nil
}

func (e *Gemini) Close() error {
	return e.client.Close()
}

// Generate sends msgs as a chat: system messages become the system
// instruction, the last user turn is sent, and everything before it is history.
func (e *Gemini) Generate(ctx context.Context, msgs []ChatMessage) (string, error) {
	system, history := toGeminiContents(msgs)
	if len(history) == 0 || history[len(history)-1].Role != "user" {
		return "", errors.New("conversation must end with a user turn")
	}

	model := e.client.GenerativeModel(e.modelName)
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	chat := model.StartChat()
	chat.History = history[:len(history)-1]

	resp, err := chat.SendMessage(ctx, history[len(history)-1].Parts...)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := strings.TrimSpace(getText(resp))
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// toGeminiContents merges consecutive turns with the same role, since the
// API expects user and model turns to alternate.
func toGeminiContents(msgs []ChatMessage) (string, []*genai.Content) {
	var system []string
	var history []*genai.Content
	for _, m := range msgs {
		role := "user"
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
			continue
		case RoleAssistant:
			role = "model"
		}
		if n := len(history); n > 0 && history[n-1].Role == role {
			history[n-1].Parts = append(history[n-1].Parts, genai.Text(m.Content))
			continue
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return strings.Join(system, "\n\n"), history
}

func getText(resp *genai.GenerateContentResponse) string {
	var text string
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				text += string(txt)
			}
		}
	}
	return text
}
