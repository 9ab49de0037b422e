package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"onboarding-hub/internal/domain"
	"onboarding-hub/internal/logger"
	"onboarding-hub/internal/replica"
	"onboarding-hub/internal/schedule"
	hubsync "onboarding-hub/internal/sync"
)

// app holds what every subcommand shares once the replica is bootstrapped.
type app struct {
	server   string
	dbPath   string
	seedPath string
	share    string
	logLevel string

	storage *replica.GormStorage
	replica *replica.Replica
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "replica",
		Short:         "Command-line replica of the shared onboarding checklist",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.server, "server", envOr("HUB_SERVER", "http://localhost:5174"), "Sync server base URL")
	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", envOr("REPLICA_DB", "replica.db"), "Local SQLite storage")
	rootCmd.PersistentFlags().StringVar(&a.seedPath, "seed", "", "YAML schedule used when nothing is stored yet")
	rootCmd.PersistentFlags().StringVar(&a.share, "share", "", "Share link or payload to adopt instead of local and server state")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level")

	// Add subcommands
	rootCmd.AddCommand(followCmd(a))
	rootCmd.AddCommand(statusCmd(a))
	rootCmd.AddCommand(toggleCmd(a))
	rootCmd.AddCommand(taskCmd(a))
	rootCmd.AddCommand(commentCmd(a))
	rootCmd.AddCommand(uncommentCmd(a))
	rootCmd.AddCommand(nameCmd(a))
	rootCmd.AddCommand(shareCmd(a))

	return rootCmd
}

func (a *app) open(ctx context.Context) error {
	logger.Init(logger.Config{Level: a.logLevel, Environment: "development"})

	var seed []domain.Week
	if a.seedPath != "" {
		weeks, err := schedule.LoadSeed(a.seedPath)
		if err != nil {
			return err
		}
		seed = weeks
	}

	storage, err := replica.OpenStorage(a.dbPath)
	if err != nil {
		return err
	}
	a.storage = storage

	a.replica = replica.New(hubsync.NewSyncClient(a.server), storage, replica.WithSchedule(seed))
	a.replica.Bootstrap(ctx, a.share)
	return nil
}

// close drains pending pushes so one-shot commands reach the server.
func (a *app) close() error {
	if a.replica != nil {
		a.replica.Close()
	}
	if a.storage != nil {
		return a.storage.Close()
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
