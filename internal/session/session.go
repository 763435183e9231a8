package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tatianab/hero-campaign/internal/campaign"
	"github.com/tatianab/hero-campaign/internal/engine"
	"github.com/tatianab/hero-campaign/internal/heroes"
	"github.com/tatianab/hero-campaign/internal/models"
	"github.com/tatianab/hero-campaign/internal/persistence"
)

var (
	// ErrEmptyMessage is returned for blank user input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrGenerationPending is returned while a reply for the area is still being generated.
	ErrGenerationPending = errors.New("a reply is still being generated for this area")
	// ErrResetNotConfirmed is returned when a reset is requested without confirmation.
	ErrResetNotConfirmed = errors.New("reset permanently erases progress, conversations and summaries; confirmation is required")
	// ErrFollowUpDropped is returned when a scheduled follow-up no longer applies.
	ErrFollowUpDropped = errors.New("follow-up dropped")
	// ErrNoHeroStore is returned for hero lookups when no hero source is configured.
	ErrNoHeroStore = errors.New("no hero store configured; set supabase_url or heroes_file")
)

// ApologyText replaces a reply that could not be generated.
const ApologyText = "Sorry, something went wrong and no one could answer. Please try again."

// Deps are the collaborators of a Session.
type Deps struct {
	Layout    *campaign.Layout // defaults to campaign.DefaultLayout()
	Store     *persistence.Store
	Generator engine.Generator
	Heroes    heroes.Store // optional; used to validate the party on resume
	MaxBanter int
	Now       func() time.Time
}

// Session is one playthrough of the campaign. It owns the progression graph,
// the per-area logs, the summaries and the party snapshot, and persists each
// change through the Store.
type Session struct {
	layout     *campaign.Layout
	graph      *campaign.Graph
	store      *persistence.Store
	gen        engine.Generator
	summarizer *engine.Summarizer
	heroes     heroes.Store
	maxBanter  int
	now        func() time.Time

	mu        sync.Mutex
	logs      map[campaign.NodeID]*campaign.Log
	summaries map[campaign.NodeID]string
	party     models.Roster
	chats     map[string]*campaign.Log
}

// New starts a fresh playthrough. Nothing is read from the store.
func New(deps Deps) *Session {
	if deps.Layout == nil {
		deps.Layout = campaign.DefaultLayout()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Session{
		layout:     deps.Layout,
		graph:      campaign.NewGraph(deps.Layout),
		store:      deps.Store,
		gen:        deps.Generator,
		summarizer: engine.NewSummarizer(deps.Generator),
		heroes:     deps.Heroes,
		maxBanter:  deps.MaxBanter,
		now:        deps.Now,
	}
	s.clear()
	return s
}

func (s *Session) clear() {
	s.logs = make(map[campaign.NodeID]*campaign.Log, len(s.layout.Nodes))
	for _, id := range s.layout.Order() {
		s.logs[id] = campaign.NewLog(nil)
	}
	s.summaries = make(map[campaign.NodeID]string)
	s.party = models.Roster{}
	s.chats = make(map[string]*campaign.Log)
}

// Resume rebuilds a playthrough from the store. Unreadable records come back
// empty; only storage I/O errors fail the resume. Hero chats are not restored.
func Resume(ctx context.Context, deps Deps) (*Session, error) {
	s := New(deps)

	snap, ok, err := s.store.LoadProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume progress: %w", err)
	}
	if ok {
		s.graph.Restore(snap)
	}

	order := s.layout.Order()
	logs := make([][]models.Message, len(order))
	var summaries map[campaign.NodeID]string
	var party models.Roster

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range order {
		g.Go(func() error {
			msgs, err := s.store.LoadAreaLog(gctx, id)
			logs[i] = msgs
			return err
		})
	}
	g.Go(func() error {
		var err error
		summaries, err = s.store.LoadSummaries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		party, err = s.store.LoadPartySnapshot(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}

	for i, id := range order {
		s.logs[id] = campaign.NewLog(logs[i])
	}
	s.summaries = summaries
	s.party = s.validateParty(ctx, party)

	for _, id := range order {
		if st, _ := s.graph.Status(id); st.IsCompleted() {
			s.Summarize(ctx, id)
		}
	}
	return s, nil
}

// validateParty drops heroes that no longer exist in the hero store. If the
// store cannot be reached, or knows none of the party, the snapshot is kept
// as is.
func (s *Session) validateParty(ctx context.Context, party models.Roster) models.Roster {
	if s.heroes == nil || party.Len() == 0 {
		return party
	}
	var kept models.Roster
	for _, h := range party.Heroes {
		_, err := s.heroes.Get(ctx, h.ID)
		switch {
		case errors.Is(err, heroes.ErrHeroNotFound):
			log.Printf("Warning: hero %q no longer exists; removing from party", h.Name)
		case err != nil:
			log.Printf("Warning: could not validate party: %v", err)
			return party
		default:
			_ = kept.Add(h)
		}
	}
	if kept.Len() == 0 {
		log.Printf("Warning: hero store knows none of the %d party members; keeping the party snapshot", party.Len())
		return party
	}
	if kept.Len() != party.Len() {
		if err := s.store.SavePartySnapshot(ctx, kept); err != nil {
			log.Printf("Warning: failed to save party: %v", err)
		}
	}
	return kept
}

// Layout returns the campaign graph definition.
func (s *Session) Layout() *campaign.Layout {
	return s.layout
}

// Active returns the area currently open for conversation.
func (s *Session) Active() campaign.NodeID {
	return s.graph.Active()
}

// Status returns the state of one area.
func (s *Session) Status(id campaign.NodeID) (campaign.Status, error) {
	return s.graph.Status(id)
}

// Unlock opens id and opens it for conversation. Areas completed by the
// unlock are summarized; summarization never fails the unlock. A lockout is
// reported as a *campaign.LockoutError and changes nothing. While an area
// that the unlock would complete still awaits a reply, the unlock is refused
// with ErrGenerationPending.
func (s *Session) Unlock(ctx context.Context, id campaign.NodeID) (campaign.UnlockResult, error) {
	for _, p := range s.layout.Predecessors(id) {
		if st, _ := s.graph.Status(p); st == campaign.Unlocked && s.Pending(p) {
			return campaign.UnlockResult{Node: id}, fmt.Errorf("%w: %s", ErrGenerationPending, s.layout.Name(p))
		}
	}
	res, err := s.graph.AttemptUnlock(id)
	if err != nil {
		return res, err
	}
	if !res.Changed {
		return res, nil
	}
	if err := s.graph.MarkActive(id); err != nil {
		log.Printf("Warning: could not open %s: %v", id, err)
	}
	s.saveProgress(ctx)

	for _, done := range res.Completed {
		s.Summarize(ctx, done)
	}
	return res, nil
}

// MarkActive opens id for conversation. Locked and completed areas are
// refused.
func (s *Session) MarkActive(ctx context.Context, id campaign.NodeID) error {
	if err := s.graph.MarkActive(id); err != nil {
		return err
	}
	s.saveProgress(ctx)
	return nil
}

// Summarize creates the summary of a completed area if it has none yet. It
// reports whether a summary was created. Areas with an empty log are left
// without a summary.
func (s *Session) Summarize(ctx context.Context, id campaign.NodeID) (string, bool) {
	st, err := s.graph.Status(id)
	if err != nil || !st.IsCompleted() {
		return "", false
	}

	s.mu.Lock()
	if text, ok := s.summaries[id]; ok {
		s.mu.Unlock()
		return text, false
	}
	msgs := s.logs[id].Finalized()
	s.mu.Unlock()
	if len(msgs) == 0 {
		return "", false
	}

	text := s.summarizer.Summarize(ctx, s.layout.Name(id), msgs)

	s.mu.Lock()
	if existing, ok := s.summaries[id]; ok {
		s.mu.Unlock()
		return existing, false
	}
	s.summaries[id] = text
	all := copySummaries(s.summaries)
	s.mu.Unlock()

	if err := s.store.SaveSummaries(ctx, all); err != nil {
		log.Printf("Warning: failed to save summaries: %v", err)
	}
	return text, true
}

// Summaries returns a copy of every area summary.
func (s *Session) Summaries() map[campaign.NodeID]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySummaries(s.summaries)
}

// CampaignContext is the history block given to every character prompt.
func (s *Session) CampaignContext() string {
	return engine.BuildCampaignContext(s.layout, s.Summaries())
}

// Party returns the campaign's party snapshot.
func (s *Session) Party() models.Roster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Roster{Heroes: append([]models.Hero(nil), s.party.Heroes...)}
}

// SetParty snapshots heroes as the campaign's party.
func (s *Session) SetParty(ctx context.Context, members []models.Hero) error {
	roster, err := models.NewRoster(members)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.party = roster
	s.mu.Unlock()
	return s.store.SavePartySnapshot(ctx, roster)
}

// SetPartyByID looks heroes up in the hero store and snapshots them.
func (s *Session) SetPartyByID(ctx context.Context, ids []string) error {
	if len(ids) > models.MaxPartySize {
		return models.ErrPartyFull
	}
	if s.heroes == nil {
		return ErrNoHeroStore
	}
	members := make([]models.Hero, 0, len(ids))
	for _, id := range ids {
		h, err := s.heroes.Get(ctx, id)
		if err != nil {
			return err
		}
		members = append(members, h)
	}
	return s.SetParty(ctx, members)
}

// Reset erases the whole playthrough. It is irreversible and refuses to run
// unless confirmed.
func (s *Session) Reset(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrResetNotConfirmed
	}
	s.graph.Reset()
	s.mu.Lock()
	s.clear()
	s.mu.Unlock()
	if err := s.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("reset campaign: %w", err)
	}
	return nil
}

// Messages returns the log of area, typing placeholders included.
func (s *Session) Messages(area campaign.NodeID) []models.Message {
	l := s.areaLog(area)
	if l == nil {
		return nil
	}
	return l.Messages()
}

// Pending reports whether a reply is being generated for area.
func (s *Session) Pending(area campaign.NodeID) bool {
	l := s.areaLog(area)
	return l != nil && l.HasPending()
}

func (s *Session) areaLog(area campaign.NodeID) *campaign.Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logs[area]
}

func (s *Session) saveProgress(ctx context.Context) {
	if err := s.store.SaveProgress(ctx, s.graph.Snapshot()); err != nil {
		log.Printf("Warning: failed to save progress: %v", err)
	}
}

func (s *Session) saveLog(ctx context.Context, area campaign.NodeID, l *campaign.Log) {
	if err := s.store.SaveAreaLog(ctx, area, l.Messages()); err != nil {
		log.Printf("Warning: failed to save %s log: %v", area, err)
	}
}

func copySummaries(in map[campaign.NodeID]string) map[campaign.NodeID]string {
	out := make(map[campaign.NodeID]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func partyNames(r models.Roster) []string {
	names := make([]string, 0, r.Len())
	for _, h := range r.Heroes {
		names = append(names, h.Name)
	}
	return names
}
