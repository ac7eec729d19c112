package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"tacticsdb/internal/blob"
	"tacticsdb/pkg/domain"
)

// Snapshot maps catalog keys to their saved records.
type Snapshot map[domain.CatalogKey][]domain.Record

// Save serializes every catalog.
func (db *Database) Save() (Snapshot, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	snap := make(Snapshot, len(db.order))
	for _, key := range db.order {
		recs, err := db.tables[key].Save()
		if err != nil {
			return nil, err
		}
		snap[key] = recs
	}
	return snap, nil
}

// Restore replaces every catalog with the records in snap. A catalog absent
// from snap comes back empty. Records that cannot be restored are logged and
// skipped; the rest of the catalog still loads.
func (db *Database) Restore(snap Snapshot) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	for _, key := range db.order {
		recs, ok := snap[key]
		if !ok {
			db.logger.Warn("catalog missing from snapshot, starting empty", slog.String("catalog", string(key)))
		}
		if err := db.tables[key].Restore(recs); err != nil {
			db.logRestoreErrors(key, err)
		}
	}
	return nil
}

func (db *Database) logRestoreErrors(key domain.CatalogKey, err error) {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		db.logger.Warn("record skipped", slog.String("catalog", string(key)), slog.Any("error", err))
		return
	}
	for _, e := range joined.Unwrap() {
		db.logger.Warn("record skipped", slog.String("catalog", string(key)), slog.Any("error", e))
	}
}

// Serialize writes the project into dir on the local filesystem.
func (db *Database) Serialize(ctx context.Context, dir string) error {
	store, err := blob.NewFilesystem(dir)
	if err != nil {
		return err
	}
	return db.SerializeTo(ctx, store)
}

type catalogFile struct {
	key  domain.CatalogKey
	name string
	body []byte
}

// SerializeTo writes one file per catalog through store, then the manifest.
// Catalog bodies are encoded up front; the writes run in parallel since no
// catalog file depends on another. Each write replaces its file atomically,
// so an interrupted save leaves every file either old or new, and the
// manifest is only written once every catalog succeeded.
func (db *Database) SerializeTo(ctx context.Context, store blob.Store) error {
	return db.instrument(ctx, "serialize", func(ctx context.Context) error {
		snap, err := db.Save()
		if err != nil {
			return err
		}
		files := make([]catalogFile, 0, len(db.order))
		for _, key := range db.order {
			body, err := EncodeCatalog(db.format, snap[key])
			if err != nil {
				return fmt.Errorf("encode %s: %w", key, err)
			}
			files = append(files, catalogFile{key: key, name: db.format.FileName(key), body: body})
		}

		manifest := newManifest(db.format, time.Now())
		manifest.Catalogs = make([]ManifestCatalog, len(files))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(db.writeConcurrency)
		for i, f := range files {
			g.Go(func() error {
				info, err := store.Put(gctx, f.name, bytes.NewReader(f.body), blob.PutOptions{ContentType: db.format.ContentType()})
				if err != nil {
					return fmt.Errorf("write %s: %w", f.name, err)
				}
				manifest.Catalogs[i] = ManifestCatalog{Key: f.key, File: f.name, Count: len(snap[f.key]), ETag: info.ETag}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		body, err := manifest.encode()
		if err != nil {
			return err
		}
		if _, err := store.Put(ctx, ManifestFile, bytes.NewReader(body), blob.PutOptions{ContentType: "application/json"}); err != nil {
			return fmt.Errorf("write %s: %w", ManifestFile, err)
		}
		db.logger.Info("project saved",
			slog.String("driver", string(store.Driver())),
			slog.String("save_id", manifest.SaveID),
			slog.Int("catalogs", len(files)),
		)
		return nil
	})
}

// Load reads the project in dir. A missing catalog file loads as an empty
// catalog.
func (db *Database) Load(ctx context.Context, dir string) error {
	st, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("load %s: %w", dir, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("load %s: not a directory", dir)
	}
	store, err := blob.NewFilesystem(dir)
	if err != nil {
		return err
	}
	return db.LoadFrom(ctx, store)
}

// LoadFrom reads every catalog file from store and restores the database.
// Files in the configured format win; a catalog stored only in the other
// format is read from there.
func (db *Database) LoadFrom(ctx context.Context, store blob.Store) error {
	return db.instrument(ctx, "load", func(ctx context.Context) error {
		db.checkManifest(ctx, store)

		records := make([][]domain.Record, len(db.order))
		found := make([]bool, len(db.order))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(db.writeConcurrency)
		for i, key := range db.order {
			g.Go(func() error {
				recs, ok, err := db.readCatalog(gctx, store, key)
				if err != nil {
					return err
				}
				records[i], found[i] = recs, ok
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		snap := make(Snapshot, len(db.order))
		for i, key := range db.order {
			if !found[i] {
				db.logger.Warn("catalog file missing, starting empty", slog.String("catalog", string(key)))
				snap[key] = nil
				continue
			}
			snap[key] = records[i]
		}
		return db.Restore(snap)
	})
}

func (db *Database) readCatalog(ctx context.Context, store blob.Store, key domain.CatalogKey) ([]domain.Record, bool, error) {
	formats := []Format{db.format, FormatJSON, FormatYAML}
	tried := map[Format]bool{}
	for _, f := range formats {
		if tried[f] {
			continue
		}
		tried[f] = true
		body, err := readBlob(ctx, store, f.FileName(key))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("read %s: %w", f.FileName(key), err)
		}
		recs, err := DecodeCatalog(f, body)
		if err != nil {
			return nil, false, fmt.Errorf("decode %s: %w", f.FileName(key), err)
		}
		return recs, true, nil
	}
	return nil, false, nil
}

// checkManifest warns about saves from newer schemas. A project without a
// manifest predates it and loads normally.
func (db *Database) checkManifest(ctx context.Context, store blob.Store) {
	body, err := readBlob(ctx, store, ManifestFile)
	if errors.Is(err, fs.ErrNotExist) {
		db.logger.Debug("no manifest")
		return
	}
	if err != nil {
		db.logger.Warn("manifest unreadable", slog.Any("error", err))
		return
	}
	m, err := decodeManifest(body)
	if err != nil {
		db.logger.Warn("manifest invalid", slog.Any("error", err))
		return
	}
	newer, err := m.Newer()
	if err != nil {
		db.logger.Warn("manifest invalid", slog.Any("error", err))
		return
	}
	if newer {
		db.logger.Warn("project saved by a newer schema; unknown fields are dropped on save",
			slog.String("schema_version", m.SchemaVersion),
			slog.String("supported", SchemaVersion),
		)
	}
	db.logger.Debug("manifest", slog.String("save_id", m.SaveID), slog.Time("saved_at", m.SavedAt))
}

// ReadManifest returns the manifest stored in store.
func ReadManifest(ctx context.Context, store blob.Store) (Manifest, error) {
	body, err := readBlob(ctx, store, ManifestFile)
	if err != nil {
		return Manifest{}, err
	}
	return decodeManifest(body)
}

func readBlob(ctx context.Context, store blob.Store, key string) ([]byte, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
