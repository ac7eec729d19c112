package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"tacticsdb/internal/blob"
	"tacticsdb/internal/config"
	"tacticsdb/internal/database"
	"tacticsdb/internal/infra/persistence/postgres"
	"tacticsdb/internal/infra/persistence/sqlite"
	"tacticsdb/internal/observe"
	"tacticsdb/pkg/domain"
)

type rootFlags struct {
	config    string
	project   string
	format    string
	logLevel  string
	logFormat string
	noColor   bool
}

// app carries what every subcommand needs once flags and config are resolved.
type app struct {
	stdout, stderr io.Writer
	flags          rootFlags
	cfg            *config.Config
	logger         *slog.Logger
	metrics        *prometheus.Registry
	recorder       observe.Recorder
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	cmd := &cobra.Command{
		Use:           "tacticsdb",
		Short:         "Catalog and referential-integrity tool for tactics game projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.flags.config, "config", "", "config file (default .tacticsdb.yaml in . or $HOME)")
	pf.StringVarP(&a.flags.project, "project", "p", "", "project directory")
	pf.StringVar(&a.flags.format, "format", "", "catalog file format (json|yaml)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "log format (text|json)")
	pf.BoolVar(&a.flags.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newInitCommand(a),
		newCheckCommand(a),
		newStatsCommand(a),
		newImpactCommand(a),
		newRenameCommand(a),
		newDeleteCommand(a),
		newCreateCommand(a),
		newDuplicateCommand(a),
		newExportCommand(a),
		newImportCommand(a),
		newWatchCommand(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	overrides := map[string]any{}
	for flag, key := range map[string]string{
		"project":    "project_dir",
		"format":     "format",
		"log-level":  "log_level",
		"log-format": "log_format",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}
	cfg, err := config.Load(config.Options{File: a.flags.config, Overrides: overrides})
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(a.stderr, cfg)
	if a.flags.noColor {
		color.NoColor = true
	}
	a.metrics = prometheus.NewRegistry()
	rec, err := observe.NewPrometheusRecorder(a.metrics)
	if err != nil {
		return err
	}
	a.recorder = rec
	if cfg.File != "" {
		a.logger.Debug("config loaded", slog.String("file", cfg.File))
	}
	return nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) newDatabase(opts ...database.Option) *database.Database {
	base := []database.Option{
		database.WithLogger(a.logger),
		database.WithFormat(a.cfg.CatalogFormat()),
		database.WithWriteConcurrency(a.cfg.WriteConcurrency),
		database.WithRecorder(a.recorder),
		database.WithTracer(observe.NewOTelTracer(otel.GetTracerProvider())),
	}
	return database.New(append(base, opts...)...)
}

// open loads the project from the configured blob store.
func (a *app) open(ctx context.Context) (*database.Database, blob.Store, error) {
	store, err := blob.Open(ctx, a.cfg.BlobStore())
	if err != nil {
		return nil, nil, err
	}
	db := a.newDatabase(database.WithoutSeeds())
	if err := db.LoadFrom(ctx, store); err != nil {
		return nil, nil, err
	}
	return db, store, nil
}

func (a *app) save(ctx context.Context, db *database.Database, store blob.Store) error {
	if err := db.SerializeTo(ctx, store); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

func catalogKey(db *database.Database, name string) (domain.CatalogKey, error) {
	key := domain.CatalogKey(strings.ToLower(name))
	if _, ok := db.Table(key); ok {
		return key, nil
	}
	names := make([]string, 0, len(db.Order()))
	for _, k := range db.Order() {
		names = append(names, string(k))
	}
	return "", fmt.Errorf("unknown catalog %q (one of %s)", name, strings.Join(names, ", "))
}

type snapshotStore interface {
	database.SnapshotStore
	Close() error
}

func (a *app) openSnapshot(ctx context.Context) (snapshotStore, error) {
	switch a.cfg.Snapshot.Driver {
	case "postgres":
		return postgres.NewStore(ctx, a.cfg.Snapshot.PostgresDSN)
	default:
		path := a.cfg.Snapshot.SQLitePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(a.cfg.ProjectDir, path)
		}
		return sqlite.NewStore(ctx, path)
	}
}
