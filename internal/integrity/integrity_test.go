package integrity_test

import (
	"testing"

	"tacticsdb/internal/database"
	"tacticsdb/internal/integrity"
	"tacticsdb/pkg/domain"
)

func TestSeededProjectIsClean(t *testing.T) {
	db := database.New()
	if rep := integrity.Check(db, db.Registry()); !rep.OK() {
		t.Fatalf("expected a clean seeded project, got %+v", rep.Findings)
	}
}

func TestCheckFindsDanglingReferences(t *testing.T) {
	db := database.New()
	if err := db.Classes.Append(domain.DefaultClass("Paladin")); err != nil {
		t.Fatalf("append class: %v", err)
	}
	seth := domain.DefaultUnit("Seth")
	seth.Klass = "Paladn"
	seth.AlternateClasses = append(seth.AlternateClasses, "Wyvern Lord")
	if err := db.Units.Append(seth); err != nil {
		t.Fatalf("append unit: %v", err)
	}

	rep := integrity.Check(db, db.Registry())
	if n := rep.Count(integrity.KindDangling); n != 2 {
		t.Fatalf("expected 2 dangling references, got %d: %+v", n, rep.Findings)
	}
	first := rep.Findings[0]
	want := integrity.Finding{
		Kind:       integrity.KindDangling,
		Catalog:    domain.CatalogUnits,
		NID:        "Seth",
		Field:      "klass",
		Value:      "Paladn",
		Target:     domain.CatalogClasses,
		Suggestion: "Paladin",
	}
	if first != want {
		t.Fatalf("expected %+v, got %+v", want, first)
	}
	if second := rep.Findings[1]; second.Value != "Wyvern Lord" || second.Suggestion != "" {
		t.Fatalf("unexpected second finding %+v", second)
	}
}

func TestCheckFindsDerivedKeyDrift(t *testing.T) {
	db := database.New()
	for _, nid := range []string{"Eirika", "Seth"} {
		if err := db.Units.Append(domain.DefaultUnit(nid)); err != nil {
			t.Fatalf("append unit: %v", err)
		}
	}
	pair := domain.NewSupportPair("Eirika", "Seth")
	pair.Unit2 = "Eirika"
	if err := db.SupportPairs.Append(pair); err != nil {
		t.Fatalf("append pair: %v", err)
	}

	rep := integrity.Check(db, db.Registry())
	if n := rep.Count(integrity.KindDerivedKey); n != 1 {
		t.Fatalf("expected 1 derived key finding, got %d", n)
	}
	for _, f := range rep.Findings {
		if f.Kind == integrity.KindDerivedKey && (f.NID != "Eirika | Seth" || f.Value != "Eirika | Eirika") {
			t.Fatalf("unexpected drift finding %+v", f)
		}
	}
}

func TestCheckFindsNearDuplicatesAndMinimums(t *testing.T) {
	db := database.New(database.WithoutSeeds())
	for _, nid := range []string{"Caf\u00e9", "Cafe\u0301", "Lute", "LUTE"} {
		if err := db.Units.Append(domain.DefaultUnit(nid)); err != nil {
			t.Fatalf("append unit: %v", err)
		}
	}
	rep := integrity.Check(db, db.Registry())
	if n := rep.Count(integrity.KindNearDuplicate); n != 2 {
		t.Fatalf("expected 2 near duplicates, got %d", n)
	}
	// teams, parties and levels start empty
	if n := rep.Count(integrity.KindBelowMinimum); n != 3 {
		t.Fatalf("expected 3 catalogs below minimum, got %d", n)
	}
}

func TestSuggest(t *testing.T) {
	nids := []string{"Knight", "Night", "Mage", "Paladin"}
	cases := []struct {
		in   string
		nids []string
		want string
	}{
		{"knight", nids, "Knight"},
		{"Mag", nids, "Mage"},
		{"Druid", nids, ""},
		{"x", nil, ""},
	}
	for _, c := range cases {
		if got := integrity.Suggest(c.in, c.nids); got != c.want {
			t.Fatalf("Suggest(%q)=%q want %q", c.in, got, c.want)
		}
	}
	if integrity.Fold("Lute") != integrity.Fold(" LUTE ") {
		t.Fatal("Fold should ignore case and surrounding space")
	}
}
