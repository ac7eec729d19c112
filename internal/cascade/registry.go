// Package cascade keeps cross-catalog string references consistent. A
// Registry declares, for every field that stores another entity's nid, which
// catalog it points into; the Engine uses it to rename, analyse and delete
// entities without leaving dangling or stale references behind.
package cascade

import (
	"slices"

	"tacticsdb/pkg/domain"
)

// Reference declares that a field of entities in From stores nids of To.
// Discriminator tells apart several shapes registered for the same field,
// such as the kinds of a tagged union.
type Reference struct {
	From          domain.CatalogKey
	Field         string
	Discriminator string
	To            domain.CatalogKey
	except        []string
	visit         func(domain.Prefab, func(*string))
}

// Scalar registers a single-valued reference field.
func Scalar[T domain.Prefab](from domain.CatalogKey, field string, to domain.CatalogKey, slot func(T) *string) Reference {
	return Slots(from, field, to, func(e T, yield func(*string)) {
		yield(slot(e))
	})
}

// List registers a field holding a list of nids.
func List[T domain.Prefab](from domain.CatalogKey, field string, to domain.CatalogKey, list func(T) []string) Reference {
	return Slots(from, field, to, func(e T, yield func(*string)) {
		ids := list(e)
		for i := range ids {
			yield(&ids[i])
		}
	})
}

// Slots registers an arbitrary shape: each calls yield once for every string
// slot holding a nid of to. Pair lists, nested records and tagged unions are
// all expressed this way.
func Slots[T domain.Prefab](from domain.CatalogKey, field string, to domain.CatalogKey, each func(T, func(*string))) Reference {
	return Reference{
		From:  from,
		Field: field,
		To:    to,
		visit: func(p domain.Prefab, yield func(*string)) {
			if e, ok := p.(T); ok {
				each(e, yield)
			}
		},
	}
}

// Tagged returns a copy of r with a discriminator.
func (r Reference) Tagged(discriminator string) Reference {
	r.Discriminator = discriminator
	return r
}

// Excluding returns a copy of r that ignores slots holding one of values.
// Wildcards such as "All" are declared this way.
func (r Reference) Excluding(values ...string) Reference {
	r.except = append(slices.Clone(r.except), values...)
	return r
}

// Visit yields every non-empty slot of e that holds a reference.
func (r Reference) Visit(e domain.Prefab, yield func(*string)) {
	r.visit(e, func(slot *string) {
		if slot == nil || *slot == "" || slices.Contains(r.except, *slot) {
			return
		}
		yield(slot)
	})
}

// Path renders the reference as field or field[discriminator].
func (r Reference) Path() string {
	if r.Discriminator == "" {
		return r.Field
	}
	return r.Field + "[" + r.Discriminator + "]"
}

// DerivedKey declares a catalog whose nids are computed from other
// identifiers. Derive returns false when an entity lacks the parts its key
// is built from; such entities keep their key.
type DerivedKey struct {
	Catalog domain.CatalogKey
	Sources []domain.CatalogKey
	Derive  func(domain.Prefab) (string, bool)
}

// Derived builds a DerivedKey from a typed derivation.
func Derived[T domain.Prefab](catalog domain.CatalogKey, derive func(T) (string, bool), sources ...domain.CatalogKey) DerivedKey {
	return DerivedKey{
		Catalog: catalog,
		Sources: sources,
		Derive: func(p domain.Prefab) (string, bool) {
			e, ok := p.(T)
			if !ok {
				return "", false
			}
			return derive(e)
		},
	}
}

// Registry is the table of references and derived keys of a project schema.
type Registry struct {
	refs    []Reference
	derived []DerivedKey
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends references in declaration order.
func (r *Registry) Register(refs ...Reference) {
	r.refs = append(r.refs, refs...)
}

// RegisterDerived appends derived key declarations.
func (r *Registry) RegisterDerived(keys ...DerivedKey) {
	r.derived = append(r.derived, keys...)
}

// References returns every registered reference.
func (r *Registry) References() []Reference {
	return slices.Clone(r.refs)
}

// Into returns the references pointing at catalog to.
func (r *Registry) Into(to domain.CatalogKey) []Reference {
	var out []Reference
	for _, ref := range r.refs {
		if ref.To == to {
			out = append(out, ref)
		}
	}
	return out
}

// From returns the references stored in catalog from.
func (r *Registry) From(from domain.CatalogKey) []Reference {
	var out []Reference
	for _, ref := range r.refs {
		if ref.From == from {
			out = append(out, ref)
		}
	}
	return out
}

// DerivedKeys returns every derived key declaration.
func (r *Registry) DerivedKeys() []DerivedKey {
	return slices.Clone(r.derived)
}

// DerivedFrom returns the derived keys built from identifiers of source.
func (r *Registry) DerivedFrom(source domain.CatalogKey) []DerivedKey {
	var out []DerivedKey
	for _, dk := range r.derived {
		if slices.Contains(dk.Sources, source) {
			out = append(out, dk)
		}
	}
	return out
}

// Derives reports whether the keys of catalog are derived from other fields.
func (r *Registry) Derives(catalog domain.CatalogKey) bool {
	return slices.ContainsFunc(r.derived, func(dk DerivedKey) bool { return dk.Catalog == catalog })
}
