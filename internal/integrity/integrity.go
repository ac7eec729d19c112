// Package integrity audits a project for problems the editor tolerates at
// runtime: references to entities that no longer exist, composite keys that
// drifted from their parts, identifiers that differ only by case or Unicode
// form, and catalogs below their minimum size.
package integrity

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"tacticsdb/internal/cascade"
	"tacticsdb/pkg/domain"
)

// Kind classifies a Finding.
type Kind string

const (
	KindDangling      Kind = "dangling_reference"
	KindDerivedKey    Kind = "derived_key_mismatch"
	KindNearDuplicate Kind = "near_duplicate"
	KindBelowMinimum  Kind = "below_minimum"
)

// Finding is one problem.
type Finding struct {
	Kind    Kind
	Catalog domain.CatalogKey
	NID     string
	// Field is the reference path for dangling references.
	Field string
	// Value is the offending identifier: the missing target, the expected
	// derived key, or the colliding nid.
	Value  string
	Target domain.CatalogKey
	// Suggestion is the closest existing nid in Target, if any is close.
	Suggestion string
}

// Report lists findings in project order.
type Report struct {
	Findings []Finding
}

// OK reports whether nothing was found.
func (r Report) OK() bool { return len(r.Findings) == 0 }

// Count returns the number of findings of kind.
func (r Report) Count(kind Kind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Check audits every catalog in tables against reg.
func Check(tables cascade.Tables, reg *cascade.Registry) Report {
	var rep Report
	for _, key := range tables.Order() {
		t, ok := tables.Table(key)
		if !ok {
			continue
		}
		if t.Len() < t.MinCount() {
			rep.Findings = append(rep.Findings, Finding{Kind: KindBelowMinimum, Catalog: key, Value: strconv.Itoa(t.MinCount())})
		}
		rep.Findings = append(rep.Findings, dangling(tables, reg.From(key), t.Entities())...)
		rep.Findings = append(rep.Findings, nearDuplicates(key, t.Keys())...)
	}
	rep.Findings = append(rep.Findings, derivedMismatches(tables, reg.DerivedKeys())...)
	return rep
}

func dangling(tables cascade.Tables, refs []cascade.Reference, entities []domain.Prefab) []Finding {
	var out []Finding
	for _, ent := range entities {
		for _, ref := range refs {
			target, ok := tables.Table(ref.To)
			if !ok {
				continue
			}
			ref.Visit(ent, func(slot *string) {
				if target.Has(*slot) {
					return
				}
				out = append(out, Finding{
					Kind:       KindDangling,
					Catalog:    ref.From,
					NID:        ent.NID(),
					Field:      ref.Path(),
					Value:      *slot,
					Target:     ref.To,
					Suggestion: Suggest(*slot, target.Keys()),
				})
			})
		}
	}
	return out
}

func derivedMismatches(tables cascade.Tables, keys []cascade.DerivedKey) []Finding {
	var out []Finding
	for _, dk := range keys {
		t, ok := tables.Table(dk.Catalog)
		if !ok {
			continue
		}
		for _, ent := range t.Entities() {
			want, ok := dk.Derive(ent)
			if !ok || want == ent.NID() {
				continue
			}
			out = append(out, Finding{Kind: KindDerivedKey, Catalog: dk.Catalog, NID: ent.NID(), Value: want})
		}
	}
	return out
}

// Fold returns the form two identifiers share when they differ only by case
// or Unicode normalization.
func Fold(nid string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(nid)))
}

func nearDuplicates(key domain.CatalogKey, nids []string) []Finding {
	first := make(map[string]string, len(nids))
	var out []Finding
	for _, nid := range nids {
		f := Fold(nid)
		prev, seen := first[f]
		if !seen {
			first[f] = nid
			continue
		}
		out = append(out, Finding{Kind: KindNearDuplicate, Catalog: key, NID: nid, Value: prev})
	}
	return out
}

// limit is the largest edit distance still worth suggesting for a word of n bytes.
func limit(n int) int {
	switch {
	case n <= 4:
		return 1
	case n <= 8:
		return 2
	default:
		return 3
	}
}

// Suggest returns the candidate closest to missing, or "" when none is
// within a few edits. Ties go to the lexically smaller candidate.
func Suggest(missing string, candidates []string) string {
	type scored struct {
		nid  string
		dist int
	}
	var best []scored
	folded := Fold(missing)
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(folded, Fold(c))
		if d > limit(len(c)) {
			continue
		}
		best = append(best, scored{nid: c, dist: d})
	}
	if len(best) == 0 {
		return ""
	}
	slices.SortFunc(best, func(a, b scored) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.nid, b.nid)
	})
	return best[0].nid
}
