package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tacticsdb/pkg/domain"
)

func sampleUnit() *domain.Unit {
	u := domain.DefaultUnit("Eirika")
	u.Name = "Eirika"
	u.Klass = "Lord"
	u.Tags = append(u.Tags, "Lord")
	u.Bases.Set("HP", 16)
	u.Bases.Set("STR", 4)
	u.Growths.Set("HP", 70)
	u.StartingItems = append(u.StartingItems, domain.ItemGrant{Item: "Rapier"}, domain.ItemGrant{Item: "Vulnerary", Droppable: true})
	u.LearnedSkills = append(u.LearnedSkills, domain.SkillGrant{Level: 1, Skill: "Canto"})
	u.WexpGain = append(u.WexpGain, domain.WeaponExp{Weapon: "Sword", WexpGain: domain.WexpGain{Usable: true, Gain: 1}})
	u.UnitNotes = append(u.UnitNotes, domain.Field{Key: "Likes", Value: "Sparring"})
	u.Affinity = "Light"
	return u
}

func TestUnitRoundTrip(t *testing.T) {
	t.Parallel()

	u := sampleUnit()
	rec, err := u.Save()
	require.NoError(t, err)

	back, err := domain.RestoreUnit(rec)
	require.NoError(t, err)
	assert.Equal(t, u, back)

	again, err := back.Save()
	require.NoError(t, err)
	assert.JSONEq(t, string(rec), string(again))
}

func TestRestoreFillsDefaults(t *testing.T) {
	t.Parallel()

	class, err := domain.RestoreClass(domain.Record(`{"nid": "Knight", "tier": 2}`))
	require.NoError(t, err)

	want := domain.DefaultClass("Knight")
	want.Tier = 2
	assert.Equal(t, want, class)
}

func TestRestoreMissingNID(t *testing.T) {
	t.Parallel()

	restorers := map[string]func(domain.Record) error{
		"unit":     func(r domain.Record) error { _, err := domain.RestoreUnit(r); return err },
		"level":    func(r domain.Record) error { _, err := domain.RestoreLevel(r); return err },
		"constant": func(r domain.Record) error { _, err := domain.RestoreConstant(r); return err },
		"event":    func(r domain.Record) error { _, err := domain.RestoreEvent(r); return err },
	}
	for name, restore := range restorers {
		err := restore(domain.Record(`{"name": "nameless"}`))
		assert.ErrorIs(t, err, domain.ErrMissingNID, name)
	}

	_, err := domain.RestoreConstant(domain.Record(`[null, 3]`))
	assert.ErrorIs(t, err, domain.ErrMissingNID)
}

func TestDefaultsAreFreshlyAllocated(t *testing.T) {
	t.Parallel()

	a := domain.DefaultUnit("a")
	b := domain.DefaultUnit("b")
	a.Tags = append(a.Tags, "Boss")
	a.Bases.Set("HP", 40)
	assert.Empty(t, b.Tags)
	assert.Empty(t, b.Bases)

	l1 := domain.DefaultLevel("0")
	l1.Music[0].Value = "Battle"
	assert.Empty(t, domain.DefaultLevel("1").Music[0].Value)

	c := domain.DefaultConstant("num_save_slots")
	c.Value = 9
	assert.Equal(t, 3, domain.DefaultConstant("num_save_slots").Value)
}

func TestConstantRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rec  string
		want any
	}{
		{rec: `["num_save_slots", 5]`, want: 5},
		{rec: `["kill_worth", 2]`, want: 2.0},
		{rec: `["turnwheel", true]`, want: true},
		{rec: `["title", "Sacred Stones"]`, want: "Sacred Stones"},
		{rec: `{"nid": "title", "value": "Old format"}`, want: "Old format"},
		{rec: `["custom_ratio", 1.5]`, want: 1.5},
		{rec: `["custom_count", 4]`, want: 4},
		{rec: `["initiative"]`, want: false},
	}
	for _, tt := range tests {
		c, err := domain.RestoreConstant(domain.Record(tt.rec))
		require.NoError(t, err, tt.rec)
		assert.Equal(t, tt.want, c.Value, tt.rec)

		rec, err := c.Save()
		require.NoError(t, err)
		back, err := domain.RestoreConstant(rec)
		require.NoError(t, err)
		assert.Equal(t, c, back, tt.rec)
	}
}

func TestComponents(t *testing.T) {
	t.Parallel()

	rec := domain.Record(`{
		"nid": "Rapier",
		"components": [
			["weapon", null],
			["damage", "7"],
			["weapon_type", "Sword"],
			["effective_tag", "Armor"],
			["multi_item", ["Iron Sword", "Steel Sword"]],
			["effective_multiplier", 3],
			["future_component", {"mode": 2}],
			["uses"]
		]
	}`)
	item, err := domain.RestoreItem(rec)
	require.NoError(t, err)

	dmg, ok := item.Components.Get("damage")
	require.True(t, ok)
	assert.Equal(t, domain.KindInt, dmg.Kind)
	assert.Equal(t, 7, dmg.Int)

	tags, ok := item.Components.Get("effective_tag")
	require.True(t, ok)
	assert.Equal(t, []string{"Armor"}, tags.List)

	unknown, ok := item.Components.Get("future_component")
	require.True(t, ok)
	assert.Equal(t, domain.KindRaw, unknown.Kind)
	assert.JSONEq(t, `{"mode": 2}`, string(unknown.Raw))

	uses, ok := item.Components.Get("uses")
	require.True(t, ok)
	assert.Equal(t, 0, uses.Int)

	_, ok = item.Components.Get("hit")
	assert.False(t, ok)

	out, err := item.Save()
	require.NoError(t, err)
	var saved struct {
		Components []json.RawMessage `json:"components"`
	}
	require.NoError(t, json.Unmarshal(out, &saved))
	assert.JSONEq(t, `["weapon", null]`, string(saved.Components[0]))
	assert.JSONEq(t, `["damage", 7]`, string(saved.Components[1]))
	assert.JSONEq(t, `["effective_tag", ["Armor"]]`, string(saved.Components[3]))
	assert.JSONEq(t, `["future_component", {"mode": 2}]`, string(saved.Components[6]))

	back, err := domain.RestoreItem(out)
	require.NoError(t, err)
	assert.Equal(t, item, back)

	var refs []string
	item.Components.ForEachRef(domain.KindItemList, func(s *string) { refs = append(refs, *s) })
	assert.Equal(t, []string{"Iron Sword", "Steel Sword"}, refs)

	item.Components.ForEachRef(domain.KindWeaponType, func(s *string) { *s = "Blade" })
	wt, _ := item.Components.Get("weapon_type")
	assert.Equal(t, "Blade", wt.Value)

	assert.True(t, item.Components.Delete("uses"))
	assert.False(t, item.Components.Has("uses"))
}

func TestCompositeKeys(t *testing.T) {
	t.Parallel()

	sp, err := domain.RestoreSupportPair(domain.Record(`{"nid": "stale", "unit1": "Eirika", "unit2": "Seth"}`))
	require.NoError(t, err)
	assert.Equal(t, "Eirika | Seth", sp.NID())

	def := domain.DefaultSupportPair("Eirika | Ephraim")
	assert.Equal(t, "Eirika", def.Unit1)
	assert.Equal(t, "Ephraim", def.Unit2)

	ev := domain.NewEvent("", "Intro")
	assert.Equal(t, "Global Intro", ev.NID())
	for _, nid := range []string{"Intro", "Global Intro"} {
		def := domain.DefaultEvent(nid)
		assert.Equal(t, "Global Intro", def.NID(), nid)
		assert.Equal(t, def.Key(), def.NID(), nid)
	}
	assert.Equal(t, "3 Intro", domain.NewEvent("3", "Intro").NID())
	ev.LevelNid = "3"
	assert.Equal(t, "3 Intro", ev.Key())

	restored, err := domain.RestoreEvent(domain.Record(`{"nid": "x", "name": "Outro", "level_nid": "0"}`))
	require.NoError(t, err)
	assert.Equal(t, "0 Outro", restored.NID())
	assert.Equal(t, "True", restored.Condition)
}

func TestLevelRoundTrip(t *testing.T) {
	t.Parallel()

	l := domain.DefaultLevel("1")
	l.Party = "eirika"
	l.Units = append(l.Units,
		domain.LevelUnit{Nid: "Eirika", Team: "player", AI: "None", StartingPosition: domain.Position(3, 4), StartingItems: domain.ItemGrants{}},
		domain.LevelUnit{Nid: "101", Generic: true, Team: "enemy", AI: "Attack", Klass: "Fighter", Faction: "Grado", Level: 2, StartingItems: domain.ItemGrants{{Item: "Iron Axe"}}},
	)
	l.Regions = append(l.Regions, domain.Region{Nid: "r1", RegionType: domain.RegionStatus, SubNid: "Poison", Size: domain.Pair{1, 1}})
	l.UnitGroups = append(l.UnitGroups, domain.UnitGroup{Nid: "g", Units: []string{"Eirika"}, Positions: []domain.GroupPosition{{Unit: "Eirika", Position: domain.Pair{1, 2}}}})

	rec, err := l.Save()
	require.NoError(t, err)
	back, err := domain.RestoreLevel(rec)
	require.NoError(t, err)
	assert.Equal(t, l, back)

	u, ok := back.Unit("101")
	require.True(t, ok)
	assert.Equal(t, "Fighter", u.Klass)
}
