package cascade_test

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"tacticsdb/internal/cascade"
	"tacticsdb/internal/catalog"
	"tacticsdb/pkg/domain"
)

type project struct {
	classes *catalog.Catalog[*domain.Class]
	units   *catalog.Catalog[*domain.Unit]
	pairs   *catalog.Catalog[*domain.SupportPair]
	parties *catalog.Catalog[*domain.Party]

	overrides map[domain.CatalogKey]catalog.Table
}

func (p *project) Table(key domain.CatalogKey) (catalog.Table, bool) {
	if t, ok := p.overrides[key]; ok {
		return t, true
	}
	switch key {
	case domain.CatalogClasses:
		return p.classes, true
	case domain.CatalogUnits:
		return p.units, true
	case domain.CatalogSupportPairs:
		return p.pairs, true
	case domain.CatalogParties:
		return p.parties, true
	}
	return nil, false
}

func (p *project) Order() []domain.CatalogKey {
	return []domain.CatalogKey{domain.CatalogClasses, domain.CatalogUnits, domain.CatalogSupportPairs, domain.CatalogParties}
}

// faultyTable fails Drop, or the n-th Rekey, of the wrapped table.
type faultyTable struct {
	catalog.Table
	dropErr  error
	rekeyErr error
	failAt   int
	rekeys   int
}

func (f *faultyTable) Drop(nid string) error {
	if f.dropErr != nil {
		return f.dropErr
	}
	return f.Table.Drop(nid)
}

func (f *faultyTable) Rekey(changes map[string]string) error {
	f.rekeys++
	if f.rekeys == f.failAt {
		return f.rekeyErr
	}
	return f.Table.Rekey(changes)
}

func registry() *cascade.Registry {
	reg := cascade.NewRegistry()
	reg.Register(
		cascade.Scalar(domain.CatalogClasses, "promotes_from", domain.CatalogClasses, func(c *domain.Class) *string { return &c.PromotesFrom }),
		cascade.List(domain.CatalogClasses, "turns_into", domain.CatalogClasses, func(c *domain.Class) []string { return c.TurnsInto }),
		cascade.Scalar(domain.CatalogUnits, "klass", domain.CatalogClasses, func(u *domain.Unit) *string { return &u.Klass }),
		cascade.List(domain.CatalogUnits, "alternate_classes", domain.CatalogClasses, func(u *domain.Unit) []string { return u.AlternateClasses }),
		cascade.Scalar(domain.CatalogSupportPairs, "unit1", domain.CatalogUnits, func(s *domain.SupportPair) *string { return &s.Unit1 }),
		cascade.Scalar(domain.CatalogSupportPairs, "unit2", domain.CatalogUnits, func(s *domain.SupportPair) *string { return &s.Unit2 }),
		cascade.Scalar(domain.CatalogParties, "leader", domain.CatalogUnits, func(p *domain.Party) *string { return &p.Leader }),
	)
	reg.RegisterDerived(cascade.Derived(domain.CatalogSupportPairs, func(s *domain.SupportPair) (string, bool) {
		return s.Key(), s.Unit1 != "" && s.Unit2 != ""
	}, domain.CatalogUnits))
	return reg
}

func mustAppend[T domain.Prefab](t *testing.T, c *catalog.Catalog[T], e T) {
	t.Helper()
	if err := c.Append(e); err != nil {
		t.Fatalf("append %s: %v", e.NID(), err)
	}
}

func newProject(t *testing.T) (*project, *cascade.Engine) {
	t.Helper()
	p := &project{
		classes: catalog.New(domain.CatalogClasses, domain.ClassSchema),
		units:   catalog.New(domain.CatalogUnits, domain.UnitSchema),
		pairs:   catalog.New(domain.CatalogSupportPairs, domain.SupportPairSchema),
		parties: catalog.New(domain.CatalogParties, domain.PartySchema, catalog.WithMinCount(1)),
	}
	for _, nid := range []string{"Paladin", "Knight", "Mage"} {
		mustAppend(t, p.classes, domain.DefaultClass(nid))
	}
	paladin, _ := p.classes.Get("Paladin")
	paladin.PromotesFrom = "Knight"
	knight, _ := p.classes.Get("Knight")
	knight.TurnsInto = append(knight.TurnsInto, "Paladin")

	for _, row := range [][2]string{{"Seth", "Paladin"}, {"Franz", "Knight"}, {"Eirika", "Knight"}, {"Lute", "Mage"}} {
		u := domain.DefaultUnit(row[0])
		u.Klass = row[1]
		mustAppend(t, p.units, u)
	}
	franz, _ := p.units.Get("Franz")
	franz.AlternateClasses = append(franz.AlternateClasses, "Paladin")

	mustAppend(t, p.pairs, domain.NewSupportPair("Eirika", "Seth"))
	mustAppend(t, p.pairs, domain.NewSupportPair("Franz", "Seth"))
	mustAppend(t, p.parties, &domain.Party{Nid: "eirika", Name: "Eirika", Leader: "Eirika"})
	return p, cascade.NewEngine(p, registry())
}

func expectKeys(t *testing.T, got, want []string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Fatalf("expected keys %v, got %v", want, got)
	}
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

func TestRenameCascades(t *testing.T) {
	p, engine := newProject(t)

	res, err := engine.Rename(domain.CatalogClasses, "Knight", "Cavalier")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	expectKeys(t, p.classes.Keys(), []string{"Paladin", "Cavalier", "Mage"})
	for _, nid := range []string{"Franz", "Eirika"} {
		if u, _ := p.units.Get(nid); u.Klass != "Cavalier" {
			t.Fatalf("%s klass not rewritten: %s", nid, u.Klass)
		}
	}
	if paladin, _ := p.classes.Get("Paladin"); paladin.PromotesFrom != "Cavalier" {
		t.Fatalf("promotes_from not rewritten: %s", paladin.PromotesFrom)
	}
	if res.Updated != 3 || res.Impact.Len() != 3 {
		t.Fatalf("expected 3 updates over 3 dependents, got %d over %d", res.Updated, res.Impact.Len())
	}
	for _, u := range p.units.Values() {
		if u.Klass == "Knight" {
			t.Fatalf("%s still references Knight", u.Nid)
		}
	}
}

func TestRenameUpdatesDerivedKeys(t *testing.T) {
	p, engine := newProject(t)

	res, err := engine.Rename(domain.CatalogUnits, "Eirika", "Erika")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if !p.pairs.Has("Erika | Seth") || p.pairs.Has("Eirika | Seth") {
		t.Fatalf("pair not rekeyed: %v", p.pairs.Keys())
	}
	if pair, _ := p.pairs.Get("Erika | Seth"); pair.Unit1 != "Erika" {
		t.Fatalf("unit1 not rewritten: %s", pair.Unit1)
	}
	if party, _ := p.parties.Get("eirika"); party.Leader != "Erika" {
		t.Fatalf("leader not rewritten: %s", party.Leader)
	}
	want := []cascade.KeyChange{{Catalog: domain.CatalogSupportPairs, From: "Eirika | Seth", To: "Erika | Seth"}}
	if !reflect.DeepEqual(res.Rekeyed, want) {
		t.Fatalf("expected %v, got %v", want, res.Rekeyed)
	}

	if _, err := engine.Rename(domain.CatalogUnits, "Seth", "Sir Seth"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	expectKeys(t, p.pairs.Keys(), []string{"Erika | Sir Seth", "Franz | Sir Seth"})
}

func TestRenameOnlyRekeysAffectedEntities(t *testing.T) {
	p, engine := newProject(t)
	drifted := domain.NewSupportPair("Lute", "Franz")
	drifted.Nid = "Custom"
	mustAppend(t, p.pairs, drifted)

	res, err := engine.Rename(domain.CatalogUnits, "Eirika", "Erika")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if len(res.Rekeyed) != 1 || res.Rekeyed[0].From != "Eirika | Seth" {
		t.Fatalf("expected only Eirika | Seth rekeyed, got %v", res.Rekeyed)
	}
	if !p.pairs.Has("Custom") {
		t.Fatalf("unrelated key rewritten: %v", p.pairs.Keys())
	}

	// A second pair deriving to an existing key only matters once its own
	// units change.
	clash := domain.NewSupportPair("Franz", "Seth")
	clash.Nid = "Franz and Seth"
	mustAppend(t, p.pairs, clash)
	if _, err := engine.Rename(domain.CatalogClasses, "Mage", "Sage"); err != nil {
		t.Fatalf("unrelated rename blocked: %v", err)
	}
	_, err = engine.Rename(domain.CatalogUnits, "Seth", "Sir Seth")
	expectErr(t, err, cascade.ErrKeyCollision)
	if !p.units.Has("Seth") || !p.pairs.Has("Franz and Seth") {
		t.Fatal("failed rename must leave the project untouched")
	}
}

func TestRenameRejectsDerivedCatalogs(t *testing.T) {
	p, engine := newProject(t)
	_, err := engine.Rename(domain.CatalogSupportPairs, "Eirika | Seth", "Custom")
	expectErr(t, err, cascade.ErrDerivedKey)
	expectKeys(t, p.pairs.Keys(), []string{"Eirika | Seth", "Franz | Seth"})
	if !engine.Registry().Derives(domain.CatalogSupportPairs) || engine.Registry().Derives(domain.CatalogUnits) {
		t.Fatal("Derives reports the wrong catalogs")
	}
}

func TestRenameValidation(t *testing.T) {
	p, engine := newProject(t)

	_, err := engine.Rename(domain.CatalogClasses, "Knight", "Mage")
	expectErr(t, err, catalog.ErrDuplicateNID)
	_, err = engine.Rename(domain.CatalogClasses, "Archer", "Sniper")
	expectErr(t, err, catalog.ErrNotFound)
	_, err = engine.Rename(domain.CatalogClasses, "Knight", "")
	expectErr(t, err, catalog.ErrEmptyNID)
	_, err = engine.Rename("weapons", "Sword", "Blade")
	expectErr(t, err, cascade.ErrUnknownCatalog)

	res, err := engine.Rename(domain.CatalogClasses, "Knight", "Knight")
	if err != nil || res.Updated != 0 {
		t.Fatalf("same nid rename should be a no-op, got %d updates (%v)", res.Updated, err)
	}
	if franz, _ := p.units.Get("Franz"); franz.Klass != "Knight" {
		t.Fatalf("no-op rename changed Franz: %s", franz.Klass)
	}
}

func TestImpactGroupsByCatalog(t *testing.T) {
	_, engine := newProject(t)

	set, err := engine.Impact(domain.CatalogClasses, "Paladin")
	if err != nil {
		t.Fatalf("impact: %v", err)
	}
	if len(set.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %+v", set.Groups)
	}
	if set.Groups[0].Catalog != domain.CatalogClasses || set.Groups[1].Catalog != domain.CatalogUnits {
		t.Fatalf("groups out of project order: %+v", set.Groups)
	}
	if want := []cascade.Dependent{{NID: "Knight", Fields: []string{"turns_into"}}}; !reflect.DeepEqual(set.Groups[0].Dependents, want) {
		t.Fatalf("expected %v, got %v", want, set.Groups[0].Dependents)
	}
	want := []cascade.Dependent{
		{NID: "Seth", Fields: []string{"klass"}},
		{NID: "Franz", Fields: []string{"alternate_classes"}},
	}
	if !reflect.DeepEqual(set.Groups[1].Dependents, want) {
		t.Fatalf("expected %v, got %v", want, set.Groups[1].Dependents)
	}
	if set.Len() != 3 {
		t.Fatalf("expected 3 dependents, got %d", set.Len())
	}
}

func TestDeleteWithoutSwapReportsImpact(t *testing.T) {
	p, engine := newProject(t)
	franz, _ := p.units.Get("Franz")
	franz.AlternateClasses = franz.AlternateClasses[:0]
	knight, _ := p.classes.Get("Knight")
	knight.TurnsInto = knight.TurnsInto[:0]
	eirika, _ := p.units.Get("Eirika")
	eirika.Klass = "Paladin"

	res, err := engine.Delete(domain.CatalogClasses, "Paladin")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res.Deleted || res.Impact.Len() != 2 {
		t.Fatalf("expected refusal with 2 dependents, got %+v", res)
	}
	if p.classes.Len() != 3 || eirika.Klass != "Paladin" {
		t.Fatal("refused delete must change nothing")
	}
}

func TestDeleteWithSwap(t *testing.T) {
	p, engine := newProject(t)
	eirika, _ := p.units.Get("Eirika")
	eirika.Klass = "Paladin"

	res, err := engine.DeleteWithSwap(domain.CatalogClasses, "Paladin", "Mage")
	if err != nil {
		t.Fatalf("delete with swap: %v", err)
	}
	if !res.Deleted || p.classes.Len() != 2 {
		t.Fatalf("expected Paladin deleted, got %+v", res)
	}
	if seth, _ := p.units.Get("Seth"); seth.Klass != "Mage" || eirika.Klass != "Mage" {
		t.Fatalf("klass not swapped: %s, %s", seth.Klass, eirika.Klass)
	}
	if franz, _ := p.units.Get("Franz"); !slices.Equal(franz.AlternateClasses, []string{"Mage"}) {
		t.Fatalf("alternate classes not swapped: %v", franz.AlternateClasses)
	}
	if knight, _ := p.classes.Get("Knight"); !slices.Equal(knight.TurnsInto, []string{"Mage"}) {
		t.Fatalf("turns_into not swapped: %v", knight.TurnsInto)
	}
}

func TestDeleteUnreferenced(t *testing.T) {
	p, engine := newProject(t)

	res, err := engine.Delete(domain.CatalogUnits, "Lute")
	if err != nil || !res.Deleted || !res.Impact.Empty() {
		t.Fatalf("expected Lute deleted, got %+v (%v)", res, err)
	}
	if p.units.Has("Lute") {
		t.Fatal("Lute still present")
	}

	res, err = engine.DeleteWithSwap(domain.CatalogClasses, "Mage", "")
	if err != nil || !res.Deleted {
		t.Fatalf("empty swap should delete unreferenced Mage, got %+v (%v)", res, err)
	}
}

func TestDeleteGuards(t *testing.T) {
	p, engine := newProject(t)

	_, err := engine.Delete(domain.CatalogParties, "eirika")
	expectErr(t, err, cascade.ErrMinimumCount)
	if p.parties.Len() != 1 {
		t.Fatal("minimum-count delete removed the party")
	}

	_, err = engine.DeleteWithSwap(domain.CatalogClasses, "Knight", "Knight")
	expectErr(t, err, cascade.ErrInvalidSwap)
	_, err = engine.DeleteWithSwap(domain.CatalogClasses, "Knight", "Archer")
	expectErr(t, err, catalog.ErrNotFound)
	_, err = engine.Delete(domain.CatalogClasses, "Archer")
	expectErr(t, err, catalog.ErrNotFound)
}

func TestSwapCollisionRollsBack(t *testing.T) {
	p, engine := newProject(t)

	before := p.pairs.Keys()
	_, err := engine.DeleteWithSwap(domain.CatalogUnits, "Eirika", "Franz")
	expectErr(t, err, cascade.ErrKeyCollision)

	if !p.units.Has("Eirika") {
		t.Fatal("Eirika deleted despite collision")
	}
	expectKeys(t, p.pairs.Keys(), before)
	if pair, _ := p.pairs.Get("Eirika | Seth"); pair.Unit1 != "Eirika" {
		t.Fatalf("unit1 not restored: %s", pair.Unit1)
	}
	if party, _ := p.parties.Get("eirika"); party.Leader != "Eirika" {
		t.Fatalf("leader not restored: %s", party.Leader)
	}
}

func TestFailedRollbackIsReported(t *testing.T) {
	p, _ := newProject(t)
	errDrop := errors.New("drop failed")
	errRekey := errors.New("rekey failed")
	p.overrides = map[domain.CatalogKey]catalog.Table{
		domain.CatalogUnits:        &faultyTable{Table: p.units, dropErr: errDrop},
		domain.CatalogSupportPairs: &faultyTable{Table: p.pairs, rekeyErr: errRekey, failAt: 2},
	}
	engine := cascade.NewEngine(p, registry())

	_, err := engine.DeleteWithSwap(domain.CatalogUnits, "Eirika", "Lute")
	expectErr(t, err, errDrop)
	expectErr(t, err, errRekey)
	if party, _ := p.parties.Get("eirika"); party.Leader != "Eirika" {
		t.Fatalf("reference slots not restored: %s", party.Leader)
	}
}

func TestExcludingSkipsWildcards(t *testing.T) {
	ref := cascade.Scalar(domain.CatalogWeapons, "weapon_rank", domain.CatalogWeaponRanks, func(b *domain.WeaponType) *string {
		return &b.IconNid
	}).Excluding(domain.AnyRank).Tagged("advantage")
	if ref.Path() != "weapon_rank[advantage]" {
		t.Fatalf("unexpected path %s", ref.Path())
	}

	var seen []string
	ref.Visit(&domain.WeaponType{IconNid: domain.AnyRank}, func(s *string) { seen = append(seen, *s) })
	ref.Visit(&domain.WeaponType{IconNid: "A"}, func(s *string) { seen = append(seen, *s) })
	ref.Visit(&domain.WeaponType{}, func(s *string) { seen = append(seen, *s) })
	ref.Visit(domain.DefaultTag("x"), func(s *string) { seen = append(seen, *s) })
	expectKeys(t, seen, []string{"A"})
}
