// Package catalog provides the ordered, uniquely keyed entity collection every
// project table is built on.
package catalog

import (
	"errors"
	"fmt"
	"iter"

	"tacticsdb/pkg/domain"
)

var (
	// ErrDuplicateNID reports an insert or key change that would repeat a nid.
	ErrDuplicateNID = errors.New("duplicate nid")
	// ErrNotFound reports a nid that is not in the catalog.
	ErrNotFound = errors.New("nid not found")
	// ErrEmptyNID reports an entity or key change with an empty nid.
	ErrEmptyNID = errors.New("empty nid")
	// ErrIndexOutOfRange reports a position outside the catalog.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Option configures a Catalog.
type Option func(*settings)

type settings struct {
	minCount int
	numeric  bool
}

// WithMinCount sets how many entities must remain after a guarded delete.
func WithMinCount(n int) Option {
	return func(s *settings) { s.minCount = n }
}

// WithNumericKeys makes NewNID probe integers instead of names.
func WithNumericKeys() Option {
	return func(s *settings) { s.numeric = true }
}

// Catalog is an insertion-ordered sequence of entities with unique nids. A
// nid → position index is kept in step with the slice so lookups are O(1).
type Catalog[T domain.Prefab] struct {
	key    domain.CatalogKey
	schema domain.Schema[T]
	items  []T
	index  map[string]int
	settings
}

// New returns an empty catalog.
func New[T domain.Prefab](key domain.CatalogKey, schema domain.Schema[T], opts ...Option) *Catalog[T] {
	c := &Catalog[T]{key: key, schema: schema, index: map[string]int{}}
	for _, opt := range opts {
		opt(&c.settings)
	}
	return c
}

// Key returns the catalog key.
func (c *Catalog[T]) Key() domain.CatalogKey { return c.key }

// Len returns the number of entities.
func (c *Catalog[T]) Len() int { return len(c.items) }

// MinCount returns the configured minimum cardinality.
func (c *Catalog[T]) MinCount() int { return c.minCount }

// NumericKeys reports whether the catalog is keyed by integers.
func (c *Catalog[T]) NumericKeys() bool { return c.numeric }

func (c *Catalog[T]) wrap(err error, format string, args ...any) error {
	return fmt.Errorf("catalog %s: %s: %w", c.key, fmt.Sprintf(format, args...), err)
}

// Append adds e at the end.
func (c *Catalog[T]) Append(e T) error {
	return c.Insert(len(c.items), e)
}

// Insert places e at position i, shifting later entities back.
func (c *Catalog[T]) Insert(i int, e T) error {
	nid := e.NID()
	if nid == "" {
		return c.wrap(ErrEmptyNID, "insert")
	}
	if _, ok := c.index[nid]; ok {
		return c.wrap(ErrDuplicateNID, "insert %q", nid)
	}
	if i < 0 || i > len(c.items) {
		return c.wrap(ErrIndexOutOfRange, "insert at %d", i)
	}
	c.items = append(c.items, e)
	copy(c.items[i+1:], c.items[i:])
	c.items[i] = e
	c.reindex(i)
	return nil
}

// reindex refreshes index entries from position i onwards.
func (c *Catalog[T]) reindex(from int) {
	for i := from; i < len(c.items); i++ {
		c.index[c.items[i].NID()] = i
	}
}

// Get returns the entity with the given nid. A missing nid is not an error.
func (c *Catalog[T]) Get(nid string) (T, bool) {
	i, ok := c.index[nid]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

// Has reports whether nid is present.
func (c *Catalog[T]) Has(nid string) bool {
	_, ok := c.index[nid]
	return ok
}

// IndexOf returns the position of nid.
func (c *Catalog[T]) IndexOf(nid string) (int, bool) {
	i, ok := c.index[nid]
	return i, ok
}

// At returns the entity at position i. It panics when i is out of range, like
// a slice index.
func (c *Catalog[T]) At(i int) T { return c.items[i] }

// RemoveAt removes and returns the entity at position i.
func (c *Catalog[T]) RemoveAt(i int) (T, error) {
	if i < 0 || i >= len(c.items) {
		var zero T
		return zero, c.wrap(ErrIndexOutOfRange, "remove at %d", i)
	}
	e := c.items[i]
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, e.NID())
	c.reindex(i)
	return e, nil
}

// Remove removes and returns the entity with the given nid.
func (c *Catalog[T]) Remove(nid string) (T, error) {
	i, ok := c.index[nid]
	if !ok {
		var zero T
		return zero, c.wrap(ErrNotFound, "remove %q", nid)
	}
	return c.RemoveAt(i)
}

// Move relocates the entity at position from to position to.
func (c *Catalog[T]) Move(from, to int) error {
	n := len(c.items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return c.wrap(ErrIndexOutOfRange, "move %d to %d", from, to)
	}
	if from == to {
		return nil
	}
	e := c.items[from]
	if from < to {
		copy(c.items[from:to], c.items[from+1:to+1])
	} else {
		copy(c.items[to+1:from+1], c.items[to:from])
	}
	c.items[to] = e
	c.reindex(min(from, to))
	return nil
}

// UpdateNID changes a single entity's key. It touches no other catalog.
func (c *Catalog[T]) UpdateNID(old, nid string) error {
	if old == nid {
		if !c.Has(old) {
			return c.wrap(ErrNotFound, "update %q", old)
		}
		return nil
	}
	return c.Rekey(map[string]string{old: nid})
}

// Rekey applies a batch of key changes. The whole batch is validated against
// the resulting key set before anything is modified, so swaps and chains
// within one batch are allowed.
func (c *Catalog[T]) Rekey(changes map[string]string) error {
	if err := c.checkRekey(changes); err != nil {
		return err
	}
	for old, nid := range changes {
		if old == nid {
			continue
		}
		i := c.index[old]
		c.items[i].SetNID(nid)
	}
	clear(c.index)
	c.reindex(0)
	return nil
}

func (c *Catalog[T]) checkRekey(changes map[string]string) error {
	var errs []error
	for old, nid := range changes {
		if !c.Has(old) {
			errs = append(errs, c.wrap(ErrNotFound, "rekey %q", old))
		}
		if nid == "" {
			errs = append(errs, c.wrap(ErrEmptyNID, "rekey %q", old))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	seen := make(map[string]string, len(c.items))
	for _, e := range c.items {
		key := e.NID()
		if nid, ok := changes[key]; ok {
			key = nid
		}
		if prev, dup := seen[key]; dup {
			errs = append(errs, c.wrap(ErrDuplicateNID, "rekey %q and %q to %q", prev, e.NID(), key))
			continue
		}
		seen[key] = e.NID()
	}
	return errors.Join(errs...)
}

// Keys returns the nids in order.
func (c *Catalog[T]) Keys() []string {
	keys := make([]string, len(c.items))
	for i, e := range c.items {
		keys[i] = e.NID()
	}
	return keys
}

// Values returns the entities in order. The slice is a copy; the entities are shared.
func (c *Catalog[T]) Values() []T {
	return append([]T(nil), c.items...)
}

// All iterates positions and entities in order.
func (c *Catalog[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, e := range c.items {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Clear removes every entity.
func (c *Catalog[T]) Clear() {
	c.items = nil
	clear(c.index)
}

// Save serializes every entity in order.
func (c *Catalog[T]) Save() ([]domain.Record, error) {
	out := make([]domain.Record, 0, len(c.items))
	for _, e := range c.items {
		rec, err := e.Save()
		if err != nil {
			return nil, c.wrap(err, "save %q", e.NID())
		}
		out = append(out, rec)
	}
	return out, nil
}

// Restore replaces the contents with the given records, in order. Records
// that fail to restore or repeat an earlier nid are skipped; the returned
// error joins one entry per skipped record while every valid record is kept.
func (c *Catalog[T]) Restore(records []domain.Record) error {
	c.Clear()
	var errs []error
	for i, rec := range records {
		e, err := c.schema.Restore(rec)
		if err != nil {
			errs = append(errs, c.wrap(err, "record %d", i))
			continue
		}
		if err := c.Append(e); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// NewNID returns a free key derived from base, probing integers for
// numerically keyed catalogs.
func (c *Catalog[T]) NewNID(base string) string {
	return c.probe(base, c.Keys())
}

func (c *Catalog[T]) probe(base string, taken []string) string {
	if c.numeric {
		return NextUniqueInt(base, taken)
	}
	return NextUniqueName(base, taken)
}

// Create appends a default entity under a free key derived from base. A
// schema whose default rederives the key (events prefix their level) may turn
// a free candidate into a taken key; such candidates are skipped. The
// returned entity carries the key it was stored under.
func (c *Catalog[T]) Create(base string) (T, error) {
	var zero T
	taken := c.Keys()
	for range len(c.items) + 1 {
		candidate := c.probe(base, taken)
		e := c.schema.Default(candidate)
		if c.Has(e.NID()) {
			taken = append(taken, candidate)
			continue
		}
		if err := c.Append(e); err != nil {
			return zero, err
		}
		return e, nil
	}
	return zero, c.wrap(ErrDuplicateNID, "create %q", base)
}

// Duplicate deep-copies the entity nid through a save/restore round trip,
// gives the copy a probed key and inserts it right after the source.
func (c *Catalog[T]) Duplicate(nid string) (T, error) {
	var zero T
	i, ok := c.index[nid]
	if !ok {
		return zero, c.wrap(ErrNotFound, "duplicate %q", nid)
	}
	rec, err := c.items[i].Save()
	if err != nil {
		return zero, c.wrap(err, "duplicate %q", nid)
	}
	cp, err := c.schema.Restore(rec)
	if err != nil {
		return zero, c.wrap(err, "duplicate %q", nid)
	}
	cp.SetNID(c.NewNID(nid))
	if err := c.Insert(i+1, cp); err != nil {
		return zero, err
	}
	return cp, nil
}
