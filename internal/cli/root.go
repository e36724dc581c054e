// Package cli wires the application together and exposes it as a set
// of commands: analyze, chat, sessions, config.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	whitecardroot "github.com/lumen-med/whitecard"
	"github.com/lumen-med/whitecard/internal/ai"
	"github.com/lumen-med/whitecard/internal/config"
	"github.com/lumen-med/whitecard/internal/domain"
	"github.com/lumen-med/whitecard/internal/localstore"
	"github.com/lumen-med/whitecard/internal/repository"
	"github.com/lumen-med/whitecard/internal/service"
	"github.com/lumen-med/whitecard/internal/store"
)

// app holds everything a command needs. It is built once per
// invocation in the root PersistentPreRunE and torn down afterwards.
type app struct {
	cfg      *config.Config
	store    *store.Store
	slot     *localstore.Slot
	syncer   *service.Syncer
	pipeline *service.Pipeline

	close func()
}

func (a *app) credentials() ai.Credentials {
	return ai.Credentials{
		GeminiAPIKey:  a.cfg.GeminiAPIKey,
		GeminiBaseURL: a.cfg.GeminiBaseURL,
		OpenAIAPIKey:  a.cfg.OpenAIAPIKey,
	}
}

var current *app

var rootCmd = &cobra.Command{
	Use:   "whitecard",
	Short: "Medical report interpretation sessions, synced to the cloud",
	Long: `whitecard analyzes a medical report image into a structured
interpretation and keeps a follow-up conversation per report. Sessions
live in the hosted backend; model configs and language stay in a small
local cache.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			current.close()
			current = nil
		}
	},
}

// Execute runs the root command. Errors arrive already categorized
// (provider failures keep their engine prefix, sync call sites render
// through service.UserMessage), so nothing is re-labeled here.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// saveSettings persists the slot and renders a failure in the sync
// category.
func saveSettings() error {
	if err := current.syncer.SaveSettings(); err != nil {
		return errors.New(service.UserMessage(err))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd, chatCmd, sessionsCmd, configCmd)
}

func bootstrap(ctx context.Context) (*app, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to backend: %w", err)
	}

	if err := repository.RunMigrations(cfg.DatabaseURL, whitecardroot.MigrationsFS, cfg.SkipMigrate); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slot, err := localstore.Open(cfg.LocalDBPath)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open local cache: %w", err)
	}

	settings, found, err := slot.Load()
	if err != nil {
		// Load never fails on corrupt data, only on I/O.
		slot.Close()
		pool.Close()
		return nil, fmt.Errorf("read local cache: %w", err)
	}
	if !found {
		slog.Info("no persisted settings, starting from defaults")
	}

	st := store.New(settings)
	cloud := repository.NewCloudStore(pool)
	syncer := service.NewSyncer(st, cloud, slot)

	a := &app{cfg: cfg, store: st, slot: slot, syncer: syncer}
	a.pipeline = service.NewPipeline(st, syncer, func(mc domain.ModelConfig) (ai.Client, error) {
		return ai.ForConfig(mc, a.credentials())
	})

	if cfg.UserID != "" {
		profile := &domain.UserProfile{
			ID:          cfg.UserID,
			Email:       cfg.UserEmail,
			DisplayName: cfg.UserName,
			AvatarURL:   cfg.UserAvatar,
		}
		if err := syncer.SetUser(ctx, profile); err != nil {
			slog.Error("session sync failed", "error", err)
			fmt.Fprintln(os.Stderr, service.UserMessage(err))
		}
	}

	a.close = func() {
		syncer.Wait()
		if err := slot.Close(); err != nil {
			slog.Error("close local cache", "error", err)
		}
		pool.Close()
	}
	return a, nil
}
