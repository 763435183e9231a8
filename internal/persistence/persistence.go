package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/tatianab/hero-campaign/internal/campaign"
	"github.com/tatianab/hero-campaign/internal/models"
	"github.com/tatianab/hero-campaign/internal/storage"
	"gopkg.in/yaml.v3"
)

// DefaultPrefix namespaces every key written by a Store.
const DefaultPrefix = "campaign:"

// Store snapshots campaign state into a key/value store. Records are YAML.
// Unreadable records are treated as absent; only storage I/O errors are
// returned to the caller.
type Store struct {
	kv     storage.KV
	layout *campaign.Layout
	prefix string
}

// New returns a Store writing keys under prefix.
func New(kv storage.KV, layout *campaign.Layout, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{kv: kv, layout: layout, prefix: prefix}
}

func (s *Store) progressKey() string  { return s.prefix + "progress" }
func (s *Store) summariesKey() string { return s.prefix + "summaries" }
func (s *Store) partyKey() string     { return s.prefix + "party" }
func (s *Store) logKey(area campaign.NodeID) string {
	return s.prefix + "log:" + string(area)
}

// read returns nil data for a missing key.
func (s *Store) read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) write(ctx context.Context, key string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SaveAreaLog persists the finalized messages of area. Typing placeholders
// are never written.
func (s *Store) SaveAreaLog(ctx context.Context, area campaign.NodeID, msgs []models.Message) error {
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if !m.Pending {
			out = append(out, m)
		}
	}
	return s.write(ctx, s.logKey(area), out)
}

// LoadAreaLog returns the stored log of area. Malformed entries are dropped
// and the cleaned list is written back.
func (s *Store) LoadAreaLog(ctx context.Context, area campaign.NodeID) ([]models.Message, error) {
	key := s.logKey(area)
	data, err := s.read(ctx, key)
	if err != nil || data == nil {
		return nil, err
	}

	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		log.Printf("Warning: discarding unreadable log for %s: %v", area, err)
		return nil, nil
	}

	msgs := make([]models.Message, 0, len(nodes))
	for i := range nodes {
		var m models.Message
		if err := nodes[i].Decode(&m); err != nil || !m.Validate() {
			continue
		}
		msgs = append(msgs, m)
	}

	if dropped := len(nodes) - len(msgs); dropped > 0 {
		log.Printf("Warning: dropped %d malformed message(s) from %s log", dropped, area)
		if err := s.SaveAreaLog(ctx, area, msgs); err != nil {
			return msgs, err
		}
	}
	return msgs, nil
}

// SaveProgress persists the graph snapshot.
func (s *Store) SaveProgress(ctx context.Context, snap campaign.Snapshot) error {
	return s.write(ctx, s.progressKey(), snap)
}

// LoadProgress returns the reconciled graph snapshot. ok is false when no
// usable snapshot exists. A snapshot that needed repair is written back.
func (s *Store) LoadProgress(ctx context.Context) (snap campaign.Snapshot, ok bool, err error) {
	data, err := s.read(ctx, s.progressKey())
	if err != nil || data == nil {
		return campaign.Snapshot{}, false, err
	}

	var raw campaign.Snapshot
	if err := yaml.Unmarshal(data, &raw); err != nil {
		log.Printf("Warning: discarding unreadable progress snapshot: %v", err)
		return campaign.Snapshot{}, false, nil
	}
	if len(raw.Nodes) == 0 {
		log.Printf("Warning: discarding progress snapshot with no nodes")
		return campaign.Snapshot{}, false, nil
	}

	fixed, repairs := campaign.Reconcile(s.layout, raw)
	if len(repairs) > 0 {
		log.Printf("Warning: progress snapshot repaired: %s", strings.Join(repairs, "; "))
		if err := s.SaveProgress(ctx, fixed); err != nil {
			return fixed, true, err
		}
	}
	return fixed, true, nil
}

// SaveSummaries persists every area summary.
func (s *Store) SaveSummaries(ctx context.Context, summaries map[campaign.NodeID]string) error {
	return s.write(ctx, s.summariesKey(), summaries)
}

// LoadSummaries returns stored summaries, skipping blank or unknown areas.
func (s *Store) LoadSummaries(ctx context.Context) (map[campaign.NodeID]string, error) {
	out := make(map[campaign.NodeID]string)
	data, err := s.read(ctx, s.summariesKey())
	if err != nil || data == nil {
		return out, err
	}

	var raw map[campaign.NodeID]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		log.Printf("Warning: discarding unreadable summaries: %v", err)
		return out, nil
	}
	for id, text := range raw {
		if !s.layout.Has(id) || strings.TrimSpace(text) == "" {
			log.Printf("Warning: ignoring summary for %q", id)
			continue
		}
		out[id] = text
	}
	return out, nil
}

// SavePartySnapshot freezes the roster into the campaign.
func (s *Store) SavePartySnapshot(ctx context.Context, roster models.Roster) error {
	return s.write(ctx, s.partyKey(), roster)
}

// LoadPartySnapshot returns the frozen roster. Entries without an id,
// duplicates, and heroes beyond the party cap are dropped.
func (s *Store) LoadPartySnapshot(ctx context.Context) (models.Roster, error) {
	data, err := s.read(ctx, s.partyKey())
	if err != nil || data == nil {
		return models.Roster{}, err
	}

	var raw models.Roster
	if err := yaml.Unmarshal(data, &raw); err != nil {
		log.Printf("Warning: discarding unreadable party snapshot: %v", err)
		return models.Roster{}, nil
	}
	var roster models.Roster
	for _, h := range raw.Heroes {
		if err := roster.Add(h); err != nil {
			log.Printf("Warning: dropping hero %q from party snapshot: %v", h.Name, err)
		}
	}
	return roster, nil
}

// ClearAll deletes every key this Store owns.
func (s *Store) ClearAll(ctx context.Context) error {
	keys := []string{s.progressKey(), s.summariesKey(), s.partyKey()}
	for _, id := range s.layout.Order() {
		keys = append(keys, s.logKey(id))
	}
	var errs []error
	for _, key := range keys {
		if err := s.kv.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
