package cascade

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"tacticsdb/internal/catalog"
	"tacticsdb/pkg/domain"
)

var (
	// ErrUnknownCatalog reports a catalog key the project does not have.
	ErrUnknownCatalog = errors.New("unknown catalog")
	// ErrMinimumCount reports a delete that would leave a catalog below its minimum size.
	ErrMinimumCount = errors.New("catalog at minimum size")
	// ErrKeyCollision reports a cascade whose recomputed composite keys would collide.
	ErrKeyCollision = errors.New("derived key collision")
	// ErrInvalidSwap reports a swap target equal to the entity being deleted.
	ErrInvalidSwap = errors.New("swap target must differ from deleted entity")
	// ErrDerivedKey reports a direct key edit on a catalog whose keys are
	// computed from other fields.
	ErrDerivedKey = errors.New("key is derived from entity fields")
)

// Tables resolves catalog keys to catalogs, in project order.
type Tables interface {
	Table(key domain.CatalogKey) (catalog.Table, bool)
	Order() []domain.CatalogKey
}

// Dependent is one entity holding references to the analysed nid.
type Dependent struct {
	NID    string
	Fields []string
}

// Group collects the dependents found in one catalog.
type Group struct {
	Catalog    domain.CatalogKey
	Dependents []Dependent
}

// ImpactSet lists every entity that references Catalog/NID, grouped by the
// referencing catalog in project order.
type ImpactSet struct {
	Catalog domain.CatalogKey
	NID     string
	Groups  []Group
}

// Empty reports whether nothing references the entity.
func (s ImpactSet) Empty() bool { return len(s.Groups) == 0 }

// Len returns the number of dependent entities.
func (s ImpactSet) Len() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Dependents)
	}
	return n
}

// KeyChange records a composite key recomputed by a cascade.
type KeyChange struct {
	Catalog domain.CatalogKey
	From    string
	To      string
}

// Result describes what a cascade touched.
type Result struct {
	Impact ImpactSet
	// Updated is the number of reference slots rewritten.
	Updated int
	Rekeyed []KeyChange
	// Deleted is false when a delete was refused because of dependents.
	Deleted bool
}

// Engine applies rename and delete cascades over a set of tables.
type Engine struct {
	tables   Tables
	registry *Registry
}

// NewEngine returns an engine over tables using registry.
func NewEngine(tables Tables, registry *Registry) *Engine {
	return &Engine{tables: tables, registry: registry}
}

// Registry returns the engine's reference registry.
func (e *Engine) Registry() *Registry { return e.registry }

type owner struct {
	catalog domain.CatalogKey
	nid     string
}

type hit struct {
	owner owner
	path  string
	slot  *string
}

func (e *Engine) table(key domain.CatalogKey) (catalog.Table, error) {
	t, ok := e.tables.Table(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCatalog, key)
	}
	return t, nil
}

// scan collects every slot equal to nid in references targeting key. Each
// slot is reported once even when overlapping references reach it. Slots
// owned by skip are left out.
func (e *Engine) scan(key domain.CatalogKey, nid string, skip *owner) []hit {
	var hits []hit
	seen := map[*string]struct{}{}
	for _, ref := range e.registry.Into(key) {
		from, ok := e.tables.Table(ref.From)
		if !ok {
			continue
		}
		for _, ent := range from.Entities() {
			o := owner{catalog: ref.From, nid: ent.NID()}
			if skip != nil && o == *skip {
				continue
			}
			ref.Visit(ent, func(slot *string) {
				if *slot != nid {
					return
				}
				if _, dup := seen[slot]; dup {
					return
				}
				seen[slot] = struct{}{}
				hits = append(hits, hit{owner: o, path: ref.Path(), slot: slot})
			})
		}
	}
	return hits
}

func (e *Engine) impact(key domain.CatalogKey, nid string, hits []hit) ImpactSet {
	set := ImpactSet{Catalog: key, NID: nid}
	groups := map[domain.CatalogKey]*Group{}
	positions := map[owner]int{}
	for _, h := range hits {
		g, ok := groups[h.owner.catalog]
		if !ok {
			g = &Group{Catalog: h.owner.catalog}
			groups[h.owner.catalog] = g
		}
		if i, ok := positions[h.owner]; ok {
			if !slices.Contains(g.Dependents[i].Fields, h.path) {
				g.Dependents[i].Fields = append(g.Dependents[i].Fields, h.path)
			}
			continue
		}
		positions[h.owner] = len(g.Dependents)
		g.Dependents = append(g.Dependents, Dependent{NID: h.owner.nid, Fields: []string{h.path}})
	}
	for _, k := range e.tables.Order() {
		if g, ok := groups[k]; ok {
			set.Groups = append(set.Groups, *g)
		}
	}
	return set
}

func sortKeyChanges(changes []KeyChange) {
	slices.SortFunc(changes, func(a, b KeyChange) int {
		if c := cmp.Compare(a.Catalog, b.Catalog); c != 0 {
			return c
		}
		return cmp.Compare(a.From, b.From)
	})
}

// Impact reports every entity that references key/nid.
func (e *Engine) Impact(key domain.CatalogKey, nid string) (ImpactSet, error) {
	if _, err := e.table(key); err != nil {
		return ImpactSet{}, err
	}
	self := owner{catalog: key, nid: nid}
	return e.impact(key, nid, e.scan(key, nid, &self)), nil
}

// Rename changes key/old to nid and rewrites every reference to it, then
// recomputes composite keys built from it. On any failure nothing changes.
// Renaming an entity to its own nid is a no-op. Catalogs with derived keys
// cannot be renamed directly.
func (e *Engine) Rename(key domain.CatalogKey, old, nid string) (Result, error) {
	t, err := e.table(key)
	if err != nil {
		return Result{}, err
	}
	if e.registry.Derives(key) {
		return Result{}, fmt.Errorf("rename %s %q: %w", key, old, ErrDerivedKey)
	}
	if !t.Has(old) {
		return Result{}, fmt.Errorf("rename %s %q: %w", key, old, catalog.ErrNotFound)
	}
	if old == nid {
		return Result{Impact: ImpactSet{Catalog: key, NID: old}}, nil
	}
	if nid == "" {
		return Result{}, fmt.Errorf("rename %s %q: %w", key, old, catalog.ErrEmptyNID)
	}
	if t.Has(nid) {
		return Result{}, fmt.Errorf("rename %s %q to %q: %w", key, old, nid, catalog.ErrDuplicateNID)
	}
	hits := e.scan(key, old, nil)
	return e.commit(key, old, nid, hits, func() error { return t.UpdateNID(old, nid) })
}

// Delete removes key/nid when nothing references it. Otherwise it returns
// the impact set with Deleted false and changes nothing.
func (e *Engine) Delete(key domain.CatalogKey, nid string) (Result, error) {
	t, err := e.guardDelete(key, nid)
	if err != nil {
		return Result{}, err
	}
	self := owner{catalog: key, nid: nid}
	hits := e.scan(key, nid, &self)
	set := e.impact(key, nid, hits)
	if !set.Empty() {
		return Result{Impact: set}, nil
	}
	if err := t.Drop(nid); err != nil {
		return Result{}, err
	}
	return Result{Impact: set, Deleted: true}, nil
}

// DeleteWithSwap removes key/nid after pointing every reference to it at
// swap. Composite keys are recomputed; a collision aborts the whole
// operation. An empty swap behaves like Delete.
func (e *Engine) DeleteWithSwap(key domain.CatalogKey, nid, swap string) (Result, error) {
	if swap == "" {
		return e.Delete(key, nid)
	}
	t, err := e.guardDelete(key, nid)
	if err != nil {
		return Result{}, err
	}
	if swap == nid {
		return Result{}, fmt.Errorf("delete %s %q: %w", key, nid, ErrInvalidSwap)
	}
	if !t.Has(swap) {
		return Result{}, fmt.Errorf("delete %s %q: swap target %q: %w", key, nid, swap, catalog.ErrNotFound)
	}
	self := owner{catalog: key, nid: nid}
	hits := e.scan(key, nid, &self)
	res, err := e.commit(key, nid, swap, hits, func() error { return t.Drop(nid) })
	if err != nil {
		return Result{}, err
	}
	res.Deleted = true
	return res, nil
}

func (e *Engine) guardDelete(key domain.CatalogKey, nid string) (catalog.Table, error) {
	t, err := e.table(key)
	if err != nil {
		return nil, err
	}
	if !t.Has(nid) {
		return nil, fmt.Errorf("delete %s %q: %w", key, nid, catalog.ErrNotFound)
	}
	if t.Len() <= t.MinCount() {
		return nil, fmt.Errorf("delete %s %q: %w (minimum %d)", key, nid, ErrMinimumCount, t.MinCount())
	}
	return t, nil
}

// commit rewrites hits from old to nid, recomputes the derived keys of the
// entities owning those hits and runs finish. Every step is undone if a
// later one fails.
func (e *Engine) commit(key domain.CatalogKey, old, nid string, hits []hit, finish func() error) (Result, error) {
	res := Result{Impact: e.impact(key, old, hits), Updated: len(hits)}
	for _, h := range hits {
		*h.slot = nid
	}
	undoSlots := func() {
		for _, h := range hits {
			*h.slot = old
		}
	}

	plans, err := e.planDerived(key, hits)
	if err != nil {
		undoSlots()
		return Result{}, err
	}
	var applied []rekeyPlan
	undoRekeys := func() error {
		var errs []error
		for i := len(applied) - 1; i >= 0; i-- {
			if err := applied[i].table.Rekey(applied[i].inverse()); err != nil {
				errs = append(errs, fmt.Errorf("rollback %s: %w", applied[i].table.Key(), err))
			}
		}
		return errors.Join(errs...)
	}
	for _, p := range plans {
		if err := p.table.Rekey(p.changes); err != nil {
			rollbackErr := undoRekeys()
			undoSlots()
			return Result{}, errors.Join(fmt.Errorf("%w: %w", ErrKeyCollision, err), rollbackErr)
		}
		applied = append(applied, p)
		for from, to := range p.changes {
			res.Rekeyed = append(res.Rekeyed, KeyChange{Catalog: p.table.Key(), From: from, To: to})
		}
	}
	if err := finish(); err != nil {
		rollbackErr := undoRekeys()
		undoSlots()
		return Result{}, errors.Join(err, rollbackErr)
	}
	sortKeyChanges(res.Rekeyed)
	return res, nil
}

type rekeyPlan struct {
	table   catalog.Table
	changes map[string]string
}

func (p rekeyPlan) inverse() map[string]string {
	inv := make(map[string]string, len(p.changes))
	for from, to := range p.changes {
		inv[to] = from
	}
	return inv
}

// planDerived computes the composite key changes caused by identifiers of
// source having changed. Only entities owning one of hits are rederived;
// every other key stays as it is.
func (e *Engine) planDerived(source domain.CatalogKey, hits []hit) ([]rekeyPlan, error) {
	owners := map[domain.CatalogKey][]string{}
	for _, h := range hits {
		nids := owners[h.owner.catalog]
		if !slices.Contains(nids, h.owner.nid) {
			owners[h.owner.catalog] = append(nids, h.owner.nid)
		}
	}
	var plans []rekeyPlan
	for _, dk := range e.registry.DerivedFrom(source) {
		nids := owners[dk.Catalog]
		if len(nids) == 0 {
			continue
		}
		t, err := e.table(dk.Catalog)
		if err != nil {
			return nil, err
		}
		changes := map[string]string{}
		for _, nid := range nids {
			ent, ok := t.Lookup(nid)
			if !ok {
				continue
			}
			next, ok := dk.Derive(ent)
			if !ok || next == nid {
				continue
			}
			changes[nid] = next
		}
		if len(changes) > 0 {
			plans = append(plans, rekeyPlan{table: t, changes: changes})
		}
	}
	return plans, nil
}
