package session

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/tatianab/hero-campaign/internal/campaign"
	"github.com/tatianab/hero-campaign/internal/engine"
	"github.com/tatianab/hero-campaign/internal/models"
)

// Turn is a reply waiting to be generated.
type Turn struct {
	Area          campaign.NodeID
	Speaker       string
	PlaceholderID string
	// Remaining is how many unprompted follow-ups may still come after this reply.
	Remaining int
}

// FollowUp schedules another party member to chime in without user input.
// The caller decides when to run it with Continue.
type FollowUp struct {
	Area      campaign.NodeID
	Speaker   string
	Remaining int
}

// Submit appends the user's message and a typing placeholder to area. The
// area must be open for input and have no reply in flight.
func (s *Session) Submit(ctx context.Context, area campaign.NodeID, text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyMessage
	}
	if err := s.graph.CanAcceptInput(area); err != nil {
		return Turn{}, err
	}

	s.mu.Lock()
	l := s.logs[area]
	if l.HasPending() {
		s.mu.Unlock()
		return Turn{}, ErrGenerationPending
	}
	now := s.now()
	speaker := s.speakerFor(l, text)
	placeholder := models.NewPlaceholder(speaker, now)
	l.Append(models.NewUserMessage(text, now))
	l.Append(placeholder)
	s.mu.Unlock()

	s.saveLog(ctx, area, l)
	return Turn{Area: area, Speaker: speaker, PlaceholderID: placeholder.ID, Remaining: s.maxBanter}, nil
}

// Respond generates the reply for turn and replaces the placeholder with it.
// A failed generation becomes ApologyText; the placeholder is always
// resolved. A follow-up is returned when another party member may continue.
func (s *Session) Respond(ctx context.Context, turn Turn) (models.Message, *FollowUp) {
	l := s.areaLog(turn.Area)
	reply, ok := s.generate(ctx, turn.Area, turn.Speaker, l)

	if err := l.ReplacePending(turn.PlaceholderID, reply); err != nil {
		// The log was cleared while the reply was generated.
		return reply, nil
	}
	s.saveLog(ctx, turn.Area, l)

	if !ok || turn.Remaining <= 0 {
		return reply, nil
	}
	party := s.Party()
	if party.Len() < 2 {
		return reply, nil
	}
	return reply, &FollowUp{
		Area:      turn.Area,
		Speaker:   nextSpeaker(party, reply.Speaker),
		Remaining: turn.Remaining,
	}
}

// Send submits text and waits for the reply.
func (s *Session) Send(ctx context.Context, area campaign.NodeID, text string) (models.Message, *FollowUp, error) {
	turn, err := s.Submit(ctx, area, text)
	if err != nil {
		return models.Message{}, nil, err
	}
	reply, next := s.Respond(ctx, turn)
	return reply, next, nil
}

// Schedule places the typing placeholder for a follow-up. It fails with
// ErrFollowUpDropped when the area closed or another reply is in flight.
func (s *Session) Schedule(ctx context.Context, f FollowUp) (Turn, error) {
	if f.Remaining <= 0 {
		return Turn{}, ErrFollowUpDropped
	}
	if err := s.graph.CanAcceptInput(f.Area); err != nil {
		return Turn{}, errors.Join(ErrFollowUpDropped, err)
	}
	s.mu.Lock()
	l := s.logs[f.Area]
	if l.HasPending() {
		s.mu.Unlock()
		return Turn{}, errors.Join(ErrFollowUpDropped, ErrGenerationPending)
	}
	placeholder := models.NewPlaceholder(f.Speaker, s.now())
	l.Append(placeholder)
	s.mu.Unlock()

	return Turn{Area: f.Area, Speaker: f.Speaker, PlaceholderID: placeholder.ID, Remaining: f.Remaining - 1}, nil
}

// Continue runs one follow-up turn and returns the next one, if any.
func (s *Session) Continue(ctx context.Context, f FollowUp) (models.Message, *FollowUp, error) {
	turn, err := s.Schedule(ctx, f)
	if err != nil {
		return models.Message{}, nil, err
	}
	reply, next := s.Respond(ctx, turn)
	return reply, next, nil
}

func (s *Session) generate(ctx context.Context, area campaign.NodeID, speaker string, l *campaign.Log) (models.Message, bool) {
	party := s.Party()
	persona := engine.NarratorPersona()
	if h, ok := party.Find(speaker); ok {
		persona = engine.HeroPersona(h)
	} else if speaker != "" {
		persona.Name = speaker
	}

	node, _ := s.layout.Node(area)
	scene := engine.Scene{
		Title:    s.layout.Title,
		AreaName: node.Name,
		Setting:  node.Scene,
		Party:    partyNames(party),
	}
	return s.reply(ctx, persona, scene, l.Finalized())
}

// reply asks the generator for persona's next line. It reports false when
// the apology was substituted for a failed generation.
func (s *Session) reply(ctx context.Context, persona engine.Persona, scene engine.Scene, history []models.Message) (models.Message, bool) {
	now := s.now()
	system, err := engine.CharacterPrompt(persona, scene, s.CampaignContext())
	if err != nil {
		log.Printf("Warning: %v", err)
		return models.NewCharacterMessage(engine.NarratorName, ApologyText, now), false
	}
	msgs := append([]engine.ChatMessage{{Role: engine.RoleSystem, Content: system}},
		engine.Conversation(persona.Name, history)...)

	text, err := s.gen.Generate(ctx, msgs)
	if err != nil {
		log.Printf("Warning: failed to generate reply for %s: %v", persona.Name, err)
		return models.NewCharacterMessage(engine.NarratorName, ApologyText, s.now()), false
	}
	return models.NewCharacterMessage(persona.Name, text, s.now()), true
}

// speakerFor picks who answers a user message: a hero addressed by name,
// otherwise the next hero after the last one who spoke.
func (s *Session) speakerFor(l *campaign.Log, text string) string {
	if s.party.Len() == 0 {
		return engine.NarratorName
	}
	lower := strings.ToLower(text)
	for _, h := range s.party.Heroes {
		if strings.Contains(lower, strings.ToLower(h.Name)) {
			return h.Name
		}
	}
	msgs := l.Finalized()
	for i := len(msgs) - 1; i >= 0; i-- {
		if _, ok := s.party.Find(msgs[i].Speaker); ok {
			return nextSpeaker(s.party, msgs[i].Speaker)
		}
	}
	return s.party.Heroes[0].Name
}

func nextSpeaker(party models.Roster, last string) string {
	for i, h := range party.Heroes {
		if h.Name == last {
			return party.Heroes[(i+1)%len(party.Heroes)].Name
		}
	}
	return party.Heroes[0].Name
}

// HeroChat sends text to a private conversation with one hero. These chats
// are outside the campaign graph and only live in memory.
func (s *Session) HeroChat(ctx context.Context, hero models.Hero, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	l, ok := s.chats[hero.ID]
	if !ok {
		l = campaign.NewLog(nil)
		s.chats[hero.ID] = l
	}
	if l.HasPending() {
		s.mu.Unlock()
		return models.Message{}, ErrGenerationPending
	}
	now := s.now()
	placeholder := models.NewPlaceholder(hero.Name, now)
	l.Append(models.NewUserMessage(text, now))
	l.Append(placeholder)
	s.mu.Unlock()

	scene := engine.Scene{
		Title:    s.layout.Title,
		AreaName: "A quiet moment away from the party",
		Party:    partyNames(s.Party()),
	}
	reply, _ := s.reply(ctx, engine.HeroPersona(hero), scene, l.Finalized())
	if err := l.ReplacePending(placeholder.ID, reply); err != nil {
		log.Printf("Warning: chat with %s was closed before the reply arrived", hero.Name)
	}
	return reply, nil
}

// HeroChatMessages returns the private conversation with a hero.
func (s *Session) HeroChatMessages(heroID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.chats[heroID]; ok {
		return l.Messages()
	}
	return nil
}

// CloseHeroChat discards the private conversation with a hero.
func (s *Session) CloseHeroChat(heroID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, heroID)
}
