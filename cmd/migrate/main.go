package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/scentdrive/campaign-backend/pkg/config"
	"github.com/scentdrive/campaign-backend/pkg/db"
	"github.com/scentdrive/campaign-backend/pkg/instance"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

// dbCommands run against the database; create and validate only touch files.
var dbCommands = map[string]func(context.Context, *sql.DB, migrate.Source, options) error{
	"up": func(ctx context.Context, sqlDB *sql.DB, src migrate.Source, _ options) error {
		return migrate.Run(ctx, sqlDB, src, "up")
	},
	"down": func(ctx context.Context, sqlDB *sql.DB, src migrate.Source, _ options) error {
		return migrate.Run(ctx, sqlDB, src, "down")
	},
	"status": func(ctx context.Context, sqlDB *sql.DB, src migrate.Source, _ options) error {
		return migrate.Run(ctx, sqlDB, src, "status")
	},
	"version": func(ctx context.Context, sqlDB *sql.DB, src migrate.Source, opts options) error {
		if opts.version == "" {
			return fmt.Errorf("-version is required")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, src, opts.version)
	},
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", "", "migrations directory on disk; empty uses the migrations built into the binary")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	switch opts.cmd {
	case "create":
		dir := opts.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, opts.name, time.Now())
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		var err error
		if opts.dir != "" {
			err = migrate.ValidateDir(opts.dir)
		} else {
			err = migrate.Validate(migrate.Embedded, "migrations")
		}
		if err != nil {
			return err
		}
		fmt.Println("migrations valid")
		return nil
	}

	command, ok := dbCommands[opts.cmd]
	if !ok {
		return fmt.Errorf("unknown command")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Instance:    instance.GetID(),
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": opts.cmd, "dir": opts.dir})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer client.Close()
	sqlDB, err := client.SQL()
	if err != nil {
		return err
	}

	source := migrate.EmbeddedSource()
	if opts.dir != "" {
		source = migrate.DiskSource(opts.dir)
	}

	start := time.Now()
	if err := command(ctx, sqlDB, source, opts); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		return err
	}
	logg.Info(logg.WithField(ctx, "duration_ms", time.Since(start).Milliseconds()), "migrate.complete")
	return nil
}
