package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/propertyhub-backend/pkg/config"
	"github.com/angelmondragon/propertyhub-backend/pkg/db"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
	"github.com/angelmondragon/propertyhub-backend/pkg/migrate"
)

// destructive commands drop schema objects and need -force outside dev.
var destructive = []string{"down", "redo", "reset"}

var errUsage = errors.New("usage")

type options struct {
	cmd      string
	dir      string
	name     string
	version  string
	embedded bool
	force    bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|redo|reset|status|version|create|validate")
	fs.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	fs.StringVar(&opts.name, "name", "", "migration name (for create)")
	fs.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	fs.BoolVar(&opts.embedded, "embedded", false, "use the migrations compiled into this binary instead of -dir")
	fs.BoolVar(&opts.force, "force", false, "allow down/redo/reset outside dev")
	if err := fs.Parse(args); err != nil {
		return opts, errUsage
	}
	if opts.embedded {
		opts.dir = migrate.EmbeddedDir
	}
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return opts, fmt.Errorf("%w: missing -name for create", errUsage)
		}
		if opts.embedded {
			return opts, fmt.Errorf("%w: create writes to disk; drop -embedded", errUsage)
		}
	case "version":
		if opts.version == "" {
			return opts, fmt.Errorf("%w: missing -version for version command", errUsage)
		}
	case "up", "down", "redo", "reset", "status", "validate":
	default:
		return opts, fmt.Errorf("%w: unknown -cmd value %q", errUsage, opts.cmd)
	}
	return opts, nil
}

// guardDestructive refuses schema-dropping commands against shared
// environments unless the operator passed -force.
func guardDestructive(opts options, app config.AppConfig) error {
	if !slices.Contains(destructive, opts.cmd) || app.IsDev() || opts.force {
		return nil
	}
	return fmt.Errorf("refusing %q in %s without -force", opts.cmd, app.Env)
}

func main() {
	_ = godotenv.Load()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	// Commands that touch only the filesystem run without config.
	switch opts.cmd {
	case "create":
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return fmt.Errorf("failed to create migration: %w", err)
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		validate := func() error { return migrate.ValidateDir(opts.dir) }
		if opts.embedded {
			validate = migrate.ValidateEmbedded
		}
		if err := validate(); err != nil {
			return fmt.Errorf("migration validation failed: %w", err)
		}
		fmt.Println("migration validation passed")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := guardDestructive(opts, cfg.App); err != nil {
		return err
	}

	logg := logger.New(logger.Options{
		ServiceName: "propertyhub-migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "resource not working: database", err)
		return err
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "resource not working: sql database", err)
		return err
	}

	logg.Info(ctx, "migrate ready")
	if opts.cmd == "version" {
		err = migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
	} else {
		err = migrate.Run(ctx, sqlDB, opts.dir, opts.cmd)
	}
	if err != nil {
		logg.Error(ctx, "migration failed", err)
		return err
	}
	logg.Info(ctx, "migration complete")
	return nil
}
