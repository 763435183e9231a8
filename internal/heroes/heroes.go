package heroes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/hero-campaign/internal/models"
)

// ErrHeroNotFound is returned when a hero record does not exist.
var ErrHeroNotFound = errors.New("hero not found")

// Store is the hero record store. Heroes are managed outside the campaign;
// the campaign only reads them.
type Store interface {
	List(ctx context.Context, userID string) ([]models.Hero, error)
	Get(ctx context.Context, id string) (models.Hero, error)
	Create(ctx context.Context, hero models.Hero) (models.Hero, error)
	Update(ctx context.Context, hero models.Hero) (models.Hero, error)
	Delete(ctx context.Context, id string) error
}

// Memory is an in-process Store for tests and offline play.
type Memory struct {
	mu     sync.RWMutex
	heroes map[string]models.Hero
	nextID int
}

// NewMemory returns a store seeded with heroes.
func NewMemory(heroes ...models.Hero) *Memory {
	m := &Memory{heroes: make(map[string]models.Hero)}
	for _, h := range heroes {
		m.heroes[h.ID] = h
	}
	return m
}

func (m *Memory) List(ctx context.Context, userID string) ([]models.Hero, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Hero
	for _, h := range m.heroes {
		if userID == "" || h.UserID == userID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) Get(ctx context.Context, id string) (models.Hero, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.heroes[id]
	if !ok {
		return models.Hero{}, fmt.Errorf("%w: %s", ErrHeroNotFound, id)
	}
	return h, nil
}

func (m *Memory) Create(ctx context.Context, hero models.Hero) (models.Hero, error) {
	if strings.TrimSpace(hero.Name) == "" {
		return models.Hero{}, errors.New("hero name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if hero.ID == "" {
		m.nextID++
		hero.ID = fmt.Sprintf("hero-%d", m.nextID)
	}
	m.heroes[hero.ID] = hero
	return hero, nil
}

func (m *Memory) Update(ctx context.Context, hero models.Hero) (models.Hero, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.heroes[hero.ID]; !ok {
		return models.Hero{}, fmt.Errorf("%w: %s", ErrHeroNotFound, hero.ID)
	}
	m.heroes[hero.ID] = hero
	return hero, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.heroes, id)
	return nil
}

// LoadFile reads a YAML list of heroes into a Memory store.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read heroes file: %w", err)
	}
	var list []models.Hero
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse heroes file %s: %w", path, err)
	}
	for i, h := range list {
		if h.ID == "" {
			return nil, fmt.Errorf("hero %d (%q) in %s has no id", i+1, h.Name, path)
		}
	}
	return NewMemory(list...), nil
}
