package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/config"
	"github.com/Skotchmaster/storefront/pkg/db"
)

var Version = "dev"

// app carries what subcommands need so tests can swap the database.
type app struct {
	out       io.Writer
	openDB    func(ctx context.Context) (*gorm.DB, error)
	closeDB   func(*gorm.DB) error
	publisher func() (events.Publisher, func())
}

func main() {
	cfg := config.Load()

	a := &app{
		out:    os.Stdout,
		openDB: func(ctx context.Context) (*gorm.DB, error) {
			config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
			return db.Open(ctx, cfg.DatabaseURL)
		},
		closeDB:   db.Close,
		publisher: func() (events.Publisher, func()) {
			if len(cfg.KafkaBrokers) == 0 {
				return events.Nop{}, func() {}
			}
			p := events.NewProducer(cfg.KafkaBrokers)
			return p, func() { _ = p.Close() }
		},
	}

	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Operator tooling for the storefront database and webhook ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)

	root.AddCommand(migrateCmd(a))
	root.AddCommand(webhooksCmd(a))
	return root
}

func (a *app) withDB(cmd *cobra.Command, fn func(ctx context.Context, gdb *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	gdb, err := a.openDB(ctx)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = a.closeDB(gdb) }()

	return fn(ctx, gdb)
}

func (a *app) reconciler(gdb *gorm.DB) (*service.ReconcileService, func()) {
	pub, closer := a.publisher()
	return &service.ReconcileService{Repo: &repo.GormRepo{DB: gdb}, Publisher: pub}, closer
}
