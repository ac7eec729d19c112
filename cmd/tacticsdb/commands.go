package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"tacticsdb/internal/blob"
	"tacticsdb/internal/cascade"
	"tacticsdb/internal/config"
	"tacticsdb/internal/database"
	"tacticsdb/internal/integrity"
	"tacticsdb/internal/watch"
)

func newInitCommand(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file and a seeded project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			path := filepath.Join(a.cfg.ProjectDir, config.FileName+".yaml")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := config.WriteDefault(nil, path); err != nil {
				return err
			}
			store, err := blob.Open(ctx, a.cfg.BlobStore())
			if err != nil {
				return err
			}
			db := a.newDatabase()
			if err := a.save(ctx, db, store); err != nil {
				return err
			}
			success.Fprintf(a.stdout, "initialised %s\n", a.cfg.ProjectDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report dangling references, drifted keys and near-duplicate identifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			rep := integrity.Check(db, db.Registry())
			printFindings(a.stdout, rep)
			if !rep.OK() {
				return errReported
			}
			return nil
		},
	}
}

func newStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print entity counts per catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, store, err := a.open(ctx)
			if err != nil {
				return err
			}
			if m, err := database.ReadManifest(ctx, store); err == nil {
				heading.Fprintf(a.stdout, "save %s", m.SaveID)
				fmt.Fprintf(a.stdout, " schema %s, %s\n", m.SchemaVersion, m.SavedAt.Format(time.RFC3339))
			}
			printCounts(a.stdout, db.Counts())
			return nil
		},
	}
}

func newImpactCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "impact <catalog> <nid>",
		Short: "List every entity that references an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			key, err := catalogKey(db, args[0])
			if err != nil {
				return err
			}
			set, err := db.Impact(key, args[1])
			if err != nil {
				return err
			}
			printImpact(a.stdout, set)
			return nil
		},
	}
}

func newRenameCommand(a *app) *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "rename <catalog> <old> <new>",
		Short: "Rename an entity and rewrite every reference to it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, store, err := a.open(ctx)
			if err != nil {
				return err
			}
			key, err := catalogKey(db, args[0])
			if err != nil {
				return err
			}
			nid := args[2]
			var res cascade.Result
			if probe {
				nid, res, err = db.RenameProbed(ctx, key, args[1], args[2])
			} else {
				res, err = db.Rename(ctx, key, args[1], args[2])
			}
			if err != nil {
				return err
			}
			if err := a.save(ctx, db, store); err != nil {
				return err
			}
			success.Fprintf(a.stdout, "renamed %s %s -> %s", key, args[1], nid)
			fmt.Fprintf(a.stdout, " (%d references, %d keys)\n", res.Updated, len(res.Rekeyed))
			for _, k := range res.Rekeyed {
				fmt.Fprintf(a.stdout, "  %s: %s -> %s\n", k.Catalog, k.From, k.To)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "pick the next free name when <new> is taken")
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	var swap string
	cmd := &cobra.Command{
		Use:   "delete <catalog> <nid>",
		Short: "Delete an entity, optionally pointing its dependents at a replacement",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, store, err := a.open(ctx)
			if err != nil {
				return err
			}
			key, err := catalogKey(db, args[0])
			if err != nil {
				return err
			}
			var res cascade.Result
			if swap == "" {
				res, err = db.Delete(ctx, key, args[1])
			} else {
				res, err = db.DeleteWithSwap(ctx, key, args[1], swap)
			}
			if err != nil {
				return err
			}
			if !res.Deleted {
				printImpact(a.stdout, res.Impact)
				warning.Fprintf(a.stdout, "%s %s is still referenced; pass --swap <nid> to reassign its dependents\n", key, args[1])
				return errReported
			}
			if err := a.save(ctx, db, store); err != nil {
				return err
			}
			success.Fprintf(a.stdout, "deleted %s %s", key, args[1])
			if swap != "" {
				fmt.Fprintf(a.stdout, " (%d references now point at %s)", res.Updated, swap)
			}
			fmt.Fprintln(a.stdout)
			return nil
		},
	}
	cmd.Flags().StringVar(&swap, "swap", "", "replacement nid for every reference")
	return cmd
}

func newCreateCommand(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create <catalog>",
		Short: "Append a default entity under a free identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, store, err := a.open(ctx)
			if err != nil {
				return err
			}
			key, err := catalogKey(db, args[0])
			if err != nil {
				return err
			}
			e, err := db.Create(ctx, key, name)
			if err != nil {
				return err
			}
			if err := a.save(ctx, db, store); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, e.NID())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "New", "base identifier")
	return cmd
}

func newDuplicateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <catalog> <nid>",
		Short: "Copy an entity under a free identifier right after the original",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, store, err := a.open(ctx)
			if err != nil {
				return err
			}
			key, err := catalogKey(db, args[0])
			if err != nil {
				return err
			}
			e, err := db.Duplicate(ctx, key, args[1])
			if err != nil {
				return err
			}
			if err := a.save(ctx, db, store); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, e.NID())
			return nil
		},
	}
}

func newExportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the project into the configured SQL snapshot store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, _, err := a.open(ctx)
			if err != nil {
				return err
			}
			snap, err := a.openSnapshot(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = snap.Close() }()
			if err := db.ExportSnapshot(ctx, snap); err != nil {
				return err
			}
			success.Fprintf(a.stdout, "exported to %s\n", a.cfg.Snapshot.Driver)
			return nil
		},
	}
}

func newImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Replace the project with the configured SQL snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := blob.Open(ctx, a.cfg.BlobStore())
			if err != nil {
				return err
			}
			snap, err := a.openSnapshot(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = snap.Close() }()
			db := a.newDatabase(database.WithoutSeeds())
			if err := db.ImportSnapshot(ctx, snap); err != nil {
				return err
			}
			if err := a.save(ctx, db, store); err != nil {
				return err
			}
			success.Fprintf(a.stdout, "imported from %s\n", a.cfg.Snapshot.Driver)
			return nil
		},
	}
}

func newWatchCommand(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload and re-check the project whenever its files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if a.cfg.Blob.Driver != string(blob.DriverFilesystem) {
				return fmt.Errorf("watch needs the %s blob driver, not %s", blob.DriverFilesystem, a.cfg.Blob.Driver)
			}
			reload := func(ctx context.Context, files []string) error {
				db, _, err := a.open(ctx)
				if err != nil {
					return err
				}
				rep := integrity.Check(db, db.Registry())
				a.logger.Info("project reloaded", slog.Any("files", files), slog.Int("findings", len(rep.Findings)))
				printFindings(a.stdout, rep)
				return nil
			}
			if err := reload(ctx, nil); err != nil {
				return err
			}
			w, err := watch.New(a.cfg.DataPath(), reload, watch.WithDebounce(debounce), watch.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			if addr := a.cfg.MetricsAddr; addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
				srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.Error("metrics server", slog.Any("error", err))
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				a.logger.Info("serving metrics", slog.String("addr", addr))
			}
			a.logger.Info("watching", slog.String("dir", w.Dir()))
			return w.Run(ctx)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "settle interval before reloading")
	return cmd
}
