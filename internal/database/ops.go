package database

import (
	"context"
	"fmt"
	"log/slog"

	"tacticsdb/internal/cascade"
	"tacticsdb/internal/catalog"
	"tacticsdb/internal/observe"
	"tacticsdb/pkg/domain"
)

// instrument runs fn as a traced, measured operation.
func (db *Database) instrument(ctx context.Context, op string, fn func(context.Context) error) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	return observe.Instrument(ctx, db.recorder, db.tracer, op, fn)
}

// Impact lists every entity referencing key/nid.
func (db *Database) Impact(key domain.CatalogKey, nid string) (cascade.ImpactSet, error) {
	if err := db.checkOpen(); err != nil {
		return cascade.ImpactSet{}, err
	}
	return db.engine.Impact(key, nid)
}

// Rename changes the nid of key/old and rewrites every reference to it,
// including composite keys derived from it.
func (db *Database) Rename(ctx context.Context, key domain.CatalogKey, old, nid string) (cascade.Result, error) {
	var res cascade.Result
	err := db.instrument(ctx, "rename", func(context.Context) error {
		var err error
		res, err = db.engine.Rename(key, old, nid)
		return err
	})
	if err != nil {
		db.logger.Warn("rename failed", slog.String("catalog", string(key)), slog.String("old", old), slog.String("new", nid), slog.Any("error", err))
		return cascade.Result{}, err
	}
	db.recorder.ObserveReferences("rename", res.Updated)
	db.logger.Info("renamed",
		slog.String("catalog", string(key)),
		slog.String("old", old),
		slog.String("new", nid),
		slog.Int("references", res.Updated),
		slog.Int("rekeyed", len(res.Rekeyed)),
	)
	return res, nil
}

// RenameProbed renames key/old to desired like Rename, except that a taken
// desired nid is replaced by the next free probed name instead of failing.
// It returns the nid the entity ended up with.
func (db *Database) RenameProbed(ctx context.Context, key domain.CatalogKey, old, desired string) (string, cascade.Result, error) {
	t, err := db.table(key)
	if err != nil {
		return "", cascade.Result{}, err
	}
	nid := desired
	if desired != old && t.Has(desired) {
		nid = t.NewNID(desired)
		db.logger.Warn("identifier already in use, reassigned",
			slog.String("catalog", string(key)),
			slog.String("requested", desired),
			slog.String("assigned", nid),
		)
	}
	res, err := db.Rename(ctx, key, old, nid)
	if err != nil {
		return "", cascade.Result{}, err
	}
	return nid, res, nil
}

// Delete removes key/nid if nothing references it. When something does, the
// result carries the impact set, Deleted is false and nothing changes.
func (db *Database) Delete(ctx context.Context, key domain.CatalogKey, nid string) (cascade.Result, error) {
	var res cascade.Result
	err := db.instrument(ctx, "delete", func(context.Context) error {
		var err error
		res, err = db.engine.Delete(key, nid)
		return err
	})
	if err != nil {
		return cascade.Result{}, err
	}
	if !res.Deleted {
		db.logger.Info("delete needs a swap target",
			slog.String("catalog", string(key)),
			slog.String("nid", nid),
			slog.Int("dependents", res.Impact.Len()),
		)
		return res, nil
	}
	db.logger.Info("deleted", slog.String("catalog", string(key)), slog.String("nid", nid))
	return res, nil
}

// DeleteWithSwap points every reference to key/nid at swap, then removes nid.
func (db *Database) DeleteWithSwap(ctx context.Context, key domain.CatalogKey, nid, swap string) (cascade.Result, error) {
	var res cascade.Result
	err := db.instrument(ctx, "delete_with_swap", func(context.Context) error {
		var err error
		res, err = db.engine.DeleteWithSwap(key, nid, swap)
		return err
	})
	if err != nil {
		return cascade.Result{}, err
	}
	db.recorder.ObserveReferences("delete_with_swap", res.Updated)
	db.logger.Info("deleted with swap",
		slog.String("catalog", string(key)),
		slog.String("nid", nid),
		slog.String("swap", swap),
		slog.Int("references", res.Updated),
	)
	return res, nil
}

// Create appends a default entity to key under a free nid derived from base.
// Numerically keyed catalogs probe integers.
func (db *Database) Create(ctx context.Context, key domain.CatalogKey, base string) (domain.Prefab, error) {
	var e domain.Prefab
	err := db.instrument(ctx, "create", func(context.Context) error {
		t, err := db.table(key)
		if err != nil {
			return err
		}
		e, err = t.CreateDefault(base)
		return err
	})
	if err != nil {
		return nil, err
	}
	db.logger.Info("created", slog.String("catalog", string(key)), slog.String("nid", e.NID()))
	return e, nil
}

// Duplicate copies key/nid under a probed nid right after the original.
// Catalogs whose keys are derived from entity fields cannot be duplicated.
func (db *Database) Duplicate(ctx context.Context, key domain.CatalogKey, nid string) (domain.Prefab, error) {
	var e domain.Prefab
	err := db.instrument(ctx, "duplicate", func(context.Context) error {
		t, err := db.table(key)
		if err != nil {
			return err
		}
		if db.engine.Registry().Derives(key) {
			return fmt.Errorf("duplicate %s %q: %w", key, nid, cascade.ErrDerivedKey)
		}
		e, err = t.Clone(nid)
		return err
	})
	if err != nil {
		return nil, err
	}
	db.logger.Info("duplicated", slog.String("catalog", string(key)), slog.String("from", nid), slog.String("nid", e.NID()))
	return e, nil
}

// NextUniqueName returns a name not in existing, derived from base.
func NextUniqueName(base string, existing []string) string {
	return catalog.NextUniqueName(base, existing)
}

// NextUniqueInt returns the smallest free integer key at or above base.
func NextUniqueInt(base string, existing []string) string {
	return catalog.NextUniqueInt(base, existing)
}
