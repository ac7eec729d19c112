package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"tacticsdb/pkg/domain"
)

// manifestBucket holds the manifest in a bucket snapshot.
const manifestBucket = "metadata"

// SnapshotStore persists a whole project as named buckets of JSON, one per
// catalog plus the manifest. The SQL stores under internal/infra/persistence
// implement it.
type SnapshotStore interface {
	WriteBuckets(ctx context.Context, buckets map[string][]byte) error
	ReadBuckets(ctx context.Context) (map[string][]byte, error)
}

// ExportSnapshot writes every catalog into store in one batch.
func (db *Database) ExportSnapshot(ctx context.Context, store SnapshotStore) error {
	return db.instrument(ctx, "export", func(ctx context.Context) error {
		snap, err := db.Save()
		if err != nil {
			return err
		}
		buckets := make(map[string][]byte, len(snap)+1)
		manifest := newManifest(FormatJSON, time.Now())
		for _, key := range db.order {
			recs := snap[key]
			if recs == nil {
				recs = []domain.Record{}
			}
			body, err := json.Marshal(recs)
			if err != nil {
				return fmt.Errorf("encode %s: %w", key, err)
			}
			buckets[string(key)] = body
			manifest.Catalogs = append(manifest.Catalogs, ManifestCatalog{Key: key, File: string(key), Count: len(recs)})
		}
		body, err := manifest.encode()
		if err != nil {
			return err
		}
		buckets[manifestBucket] = body
		if err := store.WriteBuckets(ctx, buckets); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		db.logger.Info("snapshot exported", slog.String("save_id", manifest.SaveID), slog.Int("buckets", len(buckets)))
		return nil
	})
}

// ImportSnapshot replaces every catalog with the buckets in store.
func (db *Database) ImportSnapshot(ctx context.Context, store SnapshotStore) error {
	return db.instrument(ctx, "import", func(ctx context.Context) error {
		buckets, err := store.ReadBuckets(ctx)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		if body, ok := buckets[manifestBucket]; ok {
			if m, err := decodeManifest(body); err != nil {
				db.logger.Warn("snapshot manifest invalid", slog.Any("error", err))
			} else if newer, _ := m.Newer(); newer {
				db.logger.Warn("snapshot written by a newer schema", slog.String("schema_version", m.SchemaVersion))
			}
		}
		snap := make(Snapshot, len(db.order))
		for _, key := range db.order {
			body, ok := buckets[string(key)]
			if !ok {
				continue
			}
			var recs []domain.Record
			if err := json.Unmarshal(body, &recs); err != nil {
				return fmt.Errorf("import %s: %w", key, err)
			}
			snap[key] = recs
		}
		return db.Restore(snap)
	})
}
