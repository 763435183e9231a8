package persistence

import (
	"bytes"
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/hero-campaign/internal/campaign"
	"github.com/tatianab/hero-campaign/internal/models"
	"github.com/tatianab/hero-campaign/internal/storage"
	"gopkg.in/yaml.v3"
)

func newTestStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	kv := storage.NewMemory()
	return New(kv, campaign.DefaultLayout(), ""), kv
}

func TestAreaLogRoundTripDropsPlaceholders(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	msgs := []models.Message{
		models.NewUserMessage("What happened here?", now),
		models.NewCharacterMessage("Vex", "Looks like a fight.", now),
		models.NewPlaceholder("Narrator", now),
	}
	require.NoError(t, store.SaveAreaLog(ctx, campaign.MedicalBay, msgs))

	got, err := store.LoadAreaLog(ctx, campaign.MedicalBay)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, msgs[0].ID, got[0].ID)
	assert.Equal(t, "Vex", got[1].Speaker)
	assert.True(t, got[0].CreatedAt.Equal(now))
}

func TestLoadAreaLogSelfHeals(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	stored := `
- id: m1
  sender: user
  text: hello there
- id: m2
  sender: character
  speaker: Vex
- id: m3
  sender: wizard
  text: not a real sender
- id: m4
  sender: character
  speaker: Vex
  text: [not, a, string]
- id: m5
  sender: character
  speaker: Vex
  text: general kenobi
`
	require.NoError(t, kv.Set(ctx, "campaign:log:briefing", []byte(stored)))

	got, err := store.LoadAreaLog(ctx, campaign.Briefing)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "m5", got[1].ID)

	raw, err := kv.Get(ctx, "campaign:log:briefing")
	require.NoError(t, err)
	var persisted []models.Message
	require.NoError(t, yaml.Unmarshal(raw, &persisted))
	require.Len(t, persisted, 2, "cleaned list is written back")
	assert.Equal(t, "m5", persisted[1].ID)
}

func TestLoadAreaLogCorruptRecordIsAbsent(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "campaign:log:armory", []byte("{not: [valid")))
	got, err := store.LoadAreaLog(ctx, campaign.Armory)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = store.LoadAreaLog(ctx, campaign.FinalArea)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadProgressReconciles(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	snap := campaign.Snapshot{
		Nodes: map[campaign.NodeID]campaign.Status{
			campaign.Briefing:         campaign.Completed,
			campaign.MedicalBay:       campaign.Locked,
			campaign.Armory:           campaign.Locked,
			campaign.CaptainsQuarters: campaign.Locked,
			campaign.FinalArea:        campaign.Locked,
		},
		Active: campaign.Briefing,
	}
	require.NoError(t, store.SaveProgress(ctx, snap))

	got, ok, err := store.LoadProgress(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, campaign.Unlocked, got.Nodes[campaign.Briefing])

	raw, err := kv.Get(ctx, "campaign:progress")
	require.NoError(t, err)
	var persisted campaign.Snapshot
	require.NoError(t, yaml.Unmarshal(raw, &persisted))
	assert.Equal(t, campaign.Unlocked, persisted.Nodes[campaign.Briefing], "repair is written back")
}

func TestLoadProgressMissingOrCorrupt(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.LoadProgress(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "campaign:progress", []byte("nodes:\n  briefing: exploded\n")))
	_, ok, err = store.LoadProgress(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadProgressEmptyNodesWarning(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	store, kv := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "campaign:progress", []byte("nodes: {}\n")))

	_, ok, err := store.LoadProgress(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "no nodes")
	assert.NotContains(t, buf.String(), "<nil>")
}

func TestSummariesRoundTrip(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSummaries(ctx, map[campaign.NodeID]string{
		campaign.Briefing: "The party took the job.",
	}))
	got, err := store.LoadSummaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, "The party took the job.", got[campaign.Briefing])

	require.NoError(t, kv.Set(ctx, "campaign:summaries", []byte("briefing: ok\nengineRoom: ghost\narmory: \"  \"\n")))
	got, err = store.LoadSummaries(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPartySnapshot(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	roster, err := models.NewRoster([]models.Hero{
		{ID: "h1", Name: "Vex", Class: "Rogue"},
		{ID: "h2", Name: "Brannoc", Class: "Paladin"},
	})
	require.NoError(t, err)
	require.NoError(t, store.SavePartySnapshot(ctx, roster))

	got, err := store.LoadPartySnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1", "h2"}, got.IDs())

	oversized := "heroes:\n  - {id: a, name: A}\n  - {id: b, name: B}\n  - {name: NoID}\n" +
		"  - {id: c, name: C}\n  - {id: d, name: D}\n"
	require.NoError(t, kv.Set(ctx, "campaign:party", []byte(oversized)))
	got, err = store.LoadPartySnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got.IDs())
}

func TestClearAll(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveProgress(ctx, campaign.NewGraph(campaign.DefaultLayout()).Snapshot()))
	require.NoError(t, store.SaveAreaLog(ctx, campaign.Briefing, []models.Message{models.NewUserMessage("hi", time.Now())}))
	require.NoError(t, store.SaveSummaries(ctx, map[campaign.NodeID]string{campaign.Briefing: "x"}))
	require.NoError(t, store.SavePartySnapshot(ctx, models.Roster{}))
	require.NoError(t, kv.Set(ctx, "unrelated", []byte("keep")))

	require.NoError(t, store.ClearAll(ctx))
	assert.Equal(t, []string{"unrelated"}, kv.Keys())
}
