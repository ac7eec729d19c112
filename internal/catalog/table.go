package catalog

import "tacticsdb/pkg/domain"

// Table is the type-erased view of a Catalog used by code that walks every
// catalog of a project without knowing entity types.
type Table interface {
	Key() domain.CatalogKey
	Len() int
	MinCount() int
	Has(nid string) bool
	Keys() []string
	Lookup(nid string) (domain.Prefab, bool)
	Entities() []domain.Prefab
	UpdateNID(old, nid string) error
	Rekey(changes map[string]string) error
	Drop(nid string) error
	NewNID(base string) string
	CreateDefault(base string) (domain.Prefab, error)
	Clone(nid string) (domain.Prefab, error)
	Save() ([]domain.Record, error)
	Restore(records []domain.Record) error
}

var _ Table = (*Catalog[*domain.Unit])(nil)

// Lookup is Get without the entity type.
func (c *Catalog[T]) Lookup(nid string) (domain.Prefab, bool) {
	e, ok := c.Get(nid)
	if !ok {
		return nil, false
	}
	return e, true
}

// Entities returns the entities in order as Prefabs.
func (c *Catalog[T]) Entities() []domain.Prefab {
	out := make([]domain.Prefab, len(c.items))
	for i, e := range c.items {
		out[i] = e
	}
	return out
}

// Drop removes nid, discarding the entity.
func (c *Catalog[T]) Drop(nid string) error {
	_, err := c.Remove(nid)
	return err
}

// CreateDefault is Create without the entity type.
func (c *Catalog[T]) CreateDefault(base string) (domain.Prefab, error) {
	e, err := c.Create(base)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Clone is Duplicate without the entity type.
func (c *Catalog[T]) Clone(nid string) (domain.Prefab, error) {
	e, err := c.Duplicate(nid)
	if err != nil {
		return nil, err
	}
	return e, nil
}
