package heroes

import (
	"context"
	"errors"
	"fmt"
	"sort"

	supa "github.com/supabase-community/supabase-go"
	"github.com/tatianab/hero-campaign/internal/models"
)

// HeroesTable is the Supabase table holding hero records.
const HeroesTable = "heroes"

// Supabase reads and writes heroes through the Supabase REST API.
type Supabase struct {
	client *supa.Client
}

// NewSupabase connects to the project at url with an API key.
func NewSupabase(url, key string) (*Supabase, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Supabase: %w", err)
	}
	return &Supabase{client: client}, nil
}

// The postgrest client does not take a context; ctx is checked before each
// request so cancelled callers do not start new ones.

func (s *Supabase) List(ctx context.Context, userID string) ([]models.Hero, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var heroes []models.Hero
	_, err := s.client.From(HeroesTable).
		Select("*", "exact", false).
		Eq("user_id", userID).
		ExecuteTo(&heroes)
	if err != nil {
		return nil, fmt.Errorf("list heroes: %w", err)
	}
	sort.Slice(heroes, func(i, j int) bool { return heroes[i].Name < heroes[j].Name })
	return heroes, nil
}

func (s *Supabase) Get(ctx context.Context, id string) (models.Hero, error) {
	if err := ctx.Err(); err != nil {
		return models.Hero{}, err
	}
	var heroes []models.Hero
	_, err := s.client.From(HeroesTable).
		Select("*", "", false).
		Eq("id", id).
		Limit(1, "").
		ExecuteTo(&heroes)
	if err != nil {
		return models.Hero{}, fmt.Errorf("get hero %s: %w", id, err)
	}
	if len(heroes) == 0 {
		return models.Hero{}, fmt.Errorf("%w: %s", ErrHeroNotFound, id)
	}
	return heroes[0], nil
}

func (s *Supabase) Create(ctx context.Context, hero models.Hero) (models.Hero, error) {
	if err := ctx.Err(); err != nil {
		return models.Hero{}, err
	}
	var inserted []models.Hero
	_, err := s.client.From(HeroesTable).
		Insert(hero, false, "", "representation", "").
		ExecuteTo(&inserted)
	if err != nil {
		return models.Hero{}, fmt.Errorf("create hero: %w", err)
	}
	if len(inserted) == 0 {
		return models.Hero{}, errors.New("hero was not created in the database, but no error was returned")
	}
	return inserted[0], nil
}

func (s *Supabase) Update(ctx context.Context, hero models.Hero) (models.Hero, error) {
	if err := ctx.Err(); err != nil {
		return models.Hero{}, err
	}
	var updated []models.Hero
	_, err := s.client.From(HeroesTable).
		Update(hero, "representation", "").
		Eq("id", hero.ID).
		ExecuteTo(&updated)
	if err != nil {
		return models.Hero{}, fmt.Errorf("update hero %s: %w", hero.ID, err)
	}
	if len(updated) == 0 {
		return models.Hero{}, fmt.Errorf("%w: %s", ErrHeroNotFound, hero.ID)
	}
	return updated[0], nil
}

func (s *Supabase) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.client.From(HeroesTable).
		Delete("", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("delete hero %s: %w", id, err)
	}
	return nil
}
