package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/voxbilllabs/voxbill/internal/account"
	"github.com/voxbilllabs/voxbill/internal/clock"
	"github.com/voxbilllabs/voxbill/internal/config"
	"github.com/voxbilllabs/voxbill/internal/invoice"
	"github.com/voxbilllabs/voxbill/internal/ledger"
	"github.com/voxbilllabs/voxbill/internal/migration"
	"github.com/voxbilllabs/voxbill/internal/observability"
	"github.com/voxbilllabs/voxbill/internal/ratecard"
	"github.com/voxbilllabs/voxbill/internal/rating"
	"github.com/voxbilllabs/voxbill/internal/scheduler"
	"github.com/voxbilllabs/voxbill/internal/seed"
	"github.com/voxbilllabs/voxbill/internal/server"
	"github.com/voxbilllabs/voxbill/internal/tariff"
	"github.com/voxbilllabs/voxbill/pkg/db"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "voxbill",
		Short:   "Voxbill rating and billing engine",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newBillingRunCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema and seed starter data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the rating API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newBillingRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "billing-run",
		Short: "Run the periodic billing jobs once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBillingOnce()
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API server and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runMonolith()
			return nil
		},
	}
}

func domainModules() fx.Option {
	return fx.Options(
		ratecard.Module,
		tariff.Module,
		account.Module,
		ledger.Module,
		rating.Module,
		invoice.Module,
	)
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
		fx.Invoke(func(conn *gorm.DB) error {
			return seed.EnsureStarterData(conn)
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		domainModules(),
		server.Module,
	)
	app.Run()
}

func runBillingOnce() error {
	var sched *scheduler.Scheduler
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		domainModules(),
		scheduler.Module,
		fx.Populate(&sched),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("billing run failed: %w", err)
	}
	sched.RunOnce(ctx)
	return app.Stop(context.Background())
}

func runMonolith() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		domainModules(),
		scheduler.Module,
		server.Module,
		fx.Invoke(scheduler.StartScheduler),
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
