package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/propertyhub-backend/internal/importer"
	"github.com/angelmondragon/propertyhub-backend/pkg/config"
	"github.com/angelmondragon/propertyhub-backend/pkg/db"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "import"})

	_ = godotenv.Load()

	file := flag.String("file", "", "properties CSV to import")
	mapping := flag.String("mapping", "", "JSON file mapping owner aliases to account emails")
	dryRun := flag.Bool("dry-run", true, "match and report without inserting")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "missing -file")
		os.Exit(2)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "import",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"file":    *file,
		"dry_run": *dryRun,
	})

	aliases := map[string]string{}
	if *mapping != "" {
		f, err := os.Open(*mapping)
		requireResource(ctx, logg, "alias mapping", err)
		aliases, err = importer.LoadAliases(f)
		_ = f.Close()
		requireResource(ctx, logg, "alias mapping", err)
	}

	f, err := os.Open(*file)
	requireResource(ctx, logg, "csv", err)
	rows, invalid, err := importer.ReadRows(f)
	_ = f.Close()
	requireResource(ctx, logg, "csv", err)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	imp, err := importer.New(dbClient.DB(), dbClient, logg)
	requireResource(ctx, logg, "importer", err)

	report, err := imp.Run(ctx, rows, invalid, importer.Options{DryRun: *dryRun, Aliases: aliases})
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}
	if err != nil {
		logg.Error(ctx, "import failed", err)
		os.Exit(1)
	}
	if len(report.Unmatched) > 0 || len(report.Invalid) > 0 {
		os.Exit(3)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
