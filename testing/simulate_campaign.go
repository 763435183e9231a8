package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/tatianab/hero-campaign/internal/campaign"
	"github.com/tatianab/hero-campaign/internal/config"
	"github.com/tatianab/hero-campaign/internal/engine"
	"github.com/tatianab/hero-campaign/internal/models"
	"github.com/tatianab/hero-campaign/internal/persistence"
	"github.com/tatianab/hero-campaign/internal/session"
	"github.com/tatianab/hero-campaign/internal/storage"
)

const turnsPerArea = 2

var route = []campaign.NodeID{
	campaign.MedicalBay,
	campaign.CaptainsQuarters,
	campaign.FinalArea,
}

var party = []models.Hero{
	{ID: "sim-1", Name: "Vex", Class: "Rogue", Race: "Tiefling", Level: 3,
		PersonalityTraits: []string{"wry", "suspicious of authority"}},
	{ID: "sim-2", Name: "Brannoc", Class: "Paladin", Race: "Human", Level: 3,
		Backstory: "A former ship's chaplain who lost his crew to the void."},
}

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	opts, err := cfg.GeneratorOptions()
	if err != nil {
		log.Fatalf("Failed to configure generator: %v", err)
	}
	gen, closeGen, err := engine.NewGenerator(ctx, opts)
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}
	defer closeGen()

	layout := campaign.DefaultLayout()
	kv := storage.NewMemory()
	deps := session.Deps{
		Layout:    layout,
		Store:     persistence.New(kv, layout, ""),
		Generator: gen,
		MaxBanter: 1,
	}

	sess := session.New(deps)
	if err := sess.SetParty(ctx, party); err != nil {
		log.Fatalf("Failed to set party: %v", err)
	}

	fmt.Printf("--- %s ---\n\n", layout.Title)
	playArea(ctx, sess, gen, layout.Root)

	for _, next := range route {
		fmt.Printf("--- Unlocking %s ---\n", layout.Name(next))
		res, err := sess.Unlock(ctx, next)
		if err != nil {
			log.Fatalf("Failed to unlock %s: %v", next, err)
		}
		for _, id := range res.Completed {
			fmt.Printf("Completed %s: %s\n", layout.Name(id), sess.Summaries()[id])
		}
		for _, id := range res.LockedOut {
			fmt.Printf("Locked out: %s\n", layout.Name(id))
		}
		fmt.Println()

		if next == campaign.MedicalBay {
			_, err := sess.Unlock(ctx, campaign.Armory)
			var lockout *campaign.LockoutError
			if !errors.As(err, &lockout) {
				log.Fatalf("Expected the armory to be locked out, got %v", err)
			}
			fmt.Printf("Tried the armory anyway: %v\n\n", lockout)
		}
		playArea(ctx, sess, gen, next)
	}

	fmt.Println("--- Resuming from storage ---")
	resumed, err := session.Resume(ctx, deps)
	if err != nil {
		log.Fatalf("Failed to resume: %v", err)
	}
	for _, n := range resumed.View().Nodes {
		fmt.Printf("%-20s %-18s %d messages\n", n.Name, n.Status, n.Messages)
	}
	fmt.Printf("\nCampaign context:\n%s\n", resumed.CampaignContext())
}

func playArea(ctx context.Context, sess *session.Session, gen engine.Generator, area campaign.NodeID) {
	for turn := 1; turn <= turnsPerArea; turn++ {
		action := getPlayerAction(ctx, gen, sess, area)
		fmt.Printf("Player: %s\n", action)

		reply, next, err := sess.Send(ctx, area, action)
		if err != nil {
			log.Fatalf("Failed to send: %v", err)
		}
		fmt.Printf("%s: %s\n", reply.Speaker, reply.Text)
		for next != nil {
			reply, next, err = sess.Continue(ctx, *next)
			if err != nil {
				break
			}
			fmt.Printf("%s: %s\n", reply.Speaker, reply.Text)
		}
		fmt.Println()
	}
}

func getPlayerAction(ctx context.Context, gen engine.Generator, sess *session.Session, area campaign.NodeID) string {
	var history strings.Builder
	for _, m := range sess.Messages(area) {
		speaker := "You"
		if m.Sender == models.SenderCharacter {
			speaker = m.Speaker
		}
		fmt.Fprintf(&history, "%s: %s\n", speaker, m.Text)
	}
	node, _ := sess.Layout().Node(area)

	prompt := fmt.Sprintf(`You are the player in a tabletop adventure, leading a small party.
Area: %s
Scene: %s

Story so far:
%s

Conversation here:
%s

What do you say to your party next? Return ONLY the line you say, no extra commentary.`,
		node.Name, node.Scene, sess.CampaignContext(), history.String())

	text, err := gen.Generate(ctx, []engine.ChatMessage{{Role: engine.RoleUser, Content: prompt}})
	if err != nil {
		return "Let's look around carefully."
	}
	return strings.TrimSpace(text)
}
