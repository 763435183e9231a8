package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tatianab/hero-campaign/internal/campaign"
	"github.com/tatianab/hero-campaign/internal/config"
	"github.com/tatianab/hero-campaign/internal/engine"
	"github.com/tatianab/hero-campaign/internal/heroes"
	"github.com/tatianab/hero-campaign/internal/persistence"
	"github.com/tatianab/hero-campaign/internal/session"
	"github.com/tatianab/hero-campaign/internal/storage"
	"github.com/tatianab/hero-campaign/internal/tui"
)

var (
	configPath string
	confirmYes bool
)

var rootCmd = &cobra.Command{
	Use:           "campaign",
	Short:         "Play a branching tabletop campaign with language-model heroes",
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runPlay,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Resume the campaign in the terminal UI",
	RunE:  runPlay,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show campaign progress, summaries and party",
	RunE:  runStatus,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase all campaign progress",
	Long: `Erase all campaign progress, every area conversation, every summary
and the party snapshot. This cannot be undone; pass --yes to confirm.`,
	RunE: runReset,
}

var partyCmd = &cobra.Command{
	Use:   "party",
	Short: "Manage the campaign party",
}

var partySetCmd = &cobra.Command{
	Use:   "set <hero-id>...",
	Short: "Snapshot up to three heroes into the campaign",
	Args:  cobra.RangeArgs(1, 3),
	RunE:  runPartySet,
}

var heroesCmd = &cobra.Command{
	Use:   "heroes",
	Short: "Browse hero records",
}

var heroesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured user's heroes",
	RunE:  runHeroesList,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	resetCmd.Flags().BoolVar(&confirmYes, "yes", false, "Confirm that all progress should be erased")

	partyCmd.AddCommand(partySetCmd)
	heroesCmd.AddCommand(heroesListCmd)
	rootCmd.AddCommand(playCmd, statusCmd, resetCmd, partyCmd, heroesCmd)
}

// app bundles what every command opens.
type app struct {
	cfg    *config.Config
	layout *campaign.Layout
	kv     storage.KV
	store  *persistence.Store
	heroes heroes.Store
}

func openApp() (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	kv, err := storage.Open(cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	layout := campaign.DefaultLayout()

	var hs heroes.Store
	switch {
	case cfg.SupabaseURL != "":
		hs, err = heroes.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey)
	case cfg.HeroesFile != "":
		hs, err = heroes.LoadFile(cfg.HeroesFile)
	}
	if err != nil {
		kv.Close()
		return nil, err
	}

	return &app{
		cfg:    cfg,
		layout: layout,
		kv:     kv,
		store:  persistence.New(kv, layout, cfg.KeyPrefix),
		heroes: hs,
	}, nil
}

func (a *app) Close() error {
	return a.kv.Close()
}

func (a *app) deps(gen engine.Generator) session.Deps {
	return session.Deps{
		Layout:    a.layout,
		Store:     a.store,
		Generator: gen,
		Heroes:    a.heroes,
		MaxBanter: a.cfg.MaxBanter,
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	logFile, err := tea.LogToFile(a.cfg.LogFile, "campaign")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	opts, err := a.cfg.GeneratorOptions()
	if err != nil {
		return err
	}
	gen, closeGen, err := engine.NewGenerator(ctx, opts)
	if err != nil {
		return err
	}
	defer closeGen()

	sess, err := session.Resume(ctx, a.deps(gen))
	if err != nil {
		return err
	}
	log.Printf("resumed campaign at %s", sess.Active())
	return tui.Run(sess)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	graph := campaign.NewGraph(a.layout)
	snap, ok, err := a.store.LoadProgress(ctx)
	if err != nil {
		return err
	}
	if ok {
		graph.Restore(snap)
	}
	summaries, err := a.store.LoadSummaries(ctx)
	if err != nil {
		return err
	}
	party, err := a.store.LoadPartySnapshot(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n\n", a.layout.Title)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, id := range a.layout.Order() {
		st, _ := graph.Status(id)
		marker := ""
		if id == graph.Active() {
			marker = "<- active"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.layout.Name(id), st, marker)
	}
	w.Flush()

	fmt.Fprintln(out, "\nWhat has happened so far:")
	fmt.Fprintln(out, engine.BuildCampaignContext(a.layout, summaries))

	fmt.Fprintln(out, "\nParty:")
	if party.Len() == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, h := range party.Heroes {
		fmt.Fprintf(out, "  %s  %s\n", h.Name, h.Describe())
	}
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sess := session.New(a.deps(nil))
	if err := sess.Reset(ctx, confirmYes); err != nil {
		if errors.Is(err, session.ErrResetNotConfirmed) {
			return fmt.Errorf("%w (run again with --yes)", err)
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Campaign reset. Progress, conversations and summaries were erased.")
	return nil
}

func runPartySet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sess := session.New(a.deps(nil))
	if err := sess.SetPartyByID(ctx, args); err != nil {
		return fmt.Errorf("setting party: %w", err)
	}
	var names []string
	for _, h := range sess.Party().Heroes {
		names = append(names, h.Name)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Party: %s\n", strings.Join(names, ", "))
	return nil
}

func runHeroesList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if a.heroes == nil {
		return session.ErrNoHeroStore
	}

	list, err := a.heroes.List(ctx, a.cfg.UserID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No heroes found.")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
	for _, h := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", h.ID, h.Name, h.Describe())
	}
	return w.Flush()
}
