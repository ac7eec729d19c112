package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tacticsdb/internal/catalog"
	"tacticsdb/internal/database"
	"tacticsdb/pkg/domain"
)

// referenceShape seeds one reference shape pointing at old and reads back
// every slot it covers. want lists the slot values expected once old has
// been replaced by to.
type referenceShape struct {
	name    string
	catalog domain.CatalogKey
	old     string
	swap    string
	setup   func(t *testing.T, db *database.Database)
	slots   func(db *database.Database) []string
	want    func(to string) []string
}

func component(nid, value string, list ...string) domain.Component {
	c := domain.NewComponent(nid)
	c.Value = value
	if len(list) > 0 {
		c.List = list
	}
	return c
}

func referenceShapes() []referenceShape {
	return []referenceShape{
		{
			name:    "ai target spec class",
			catalog: domain.CatalogClasses,
			old:     "Knight",
			swap:    "Mage",
			setup: func(t *testing.T, db *database.Database) {
				require.NoError(t, db.Classes.Append(domain.DefaultClass("Knight")))
				require.NoError(t, db.Classes.Append(domain.DefaultClass("Mage")))
				ai := domain.DefaultAI("Hunt")
				ai.Behaviours[0].TargetSpec = domain.TargetSpec{Kind: domain.TargetClass, Value: "Knight"}
				ai.Behaviours[1].TargetSpec = domain.TargetSpec{Kind: domain.TargetTag, Value: "Knight"}
				require.NoError(t, db.AI.Append(ai))
			},
			slots: func(db *database.Database) []string {
				ai, _ := db.AI.Get("Hunt")
				return []string{ai.Behaviours[0].TargetSpec.Value, ai.Behaviours[1].TargetSpec.Value}
			},
			want: func(to string) []string { return []string{to, "Knight"} },
		},
		{
			name:    "ai target spec faction",
			catalog: domain.CatalogFactions,
			old:     "Grado",
			swap:    "Frelia",
			setup: func(t *testing.T, db *database.Database) {
				require.NoError(t, db.Factions.Append(domain.DefaultFaction("Grado")))
				require.NoError(t, db.Factions.Append(domain.DefaultFaction("Frelia")))
				ai := domain.DefaultAI("Raid")
				ai.Behaviours[2].TargetSpec = domain.TargetSpec{Kind: domain.TargetFaction, Value: "Grado"}
				require.NoError(t, db.AI.Append(ai))
			},
			slots: func(db *database.Database) []string {
				ai, _ := db.AI.Get("Raid")
				return []string{ai.Behaviours[2].TargetSpec.Value}
			},
			want: func(to string) []string { return []string{to} },
		},
		{
			name:    "unit starting items",
			catalog: domain.CatalogItems,
			old:     "Iron Sword",
			swap:    "Steel Sword",
			setup: func(t *testing.T, db *database.Database) {
				for _, nid := range []string{"Iron Sword", "Steel Sword", "Vulnerary"} {
					require.NoError(t, db.Items.Append(domain.DefaultItem(nid)))
				}
				u := domain.DefaultUnit("Ross")
				u.StartingItems = domain.ItemGrants{{Item: "Iron Sword", Droppable: true}, {Item: "Vulnerary"}}
				require.NoError(t, db.Units.Append(u))
			},
			slots: func(db *database.Database) []string {
				u, _ := db.Units.Get("Ross")
				return u.StartingItems.Items()
			},
			want: func(to string) []string { return []string{to, "Vulnerary"} },
		},
		{
			name:    "item skill component",
			catalog: domain.CatalogSkills,
			old:     "Poison",
			swap:    "Sleep",
			setup: func(t *testing.T, db *database.Database) {
				require.NoError(t, db.Skills.Append(domain.DefaultSkill("Poison")))
				require.NoError(t, db.Skills.Append(domain.DefaultSkill("Sleep")))
				it := domain.DefaultItem("Venin Edge")
				it.Components.Set(component("status_on_hit", "Poison"))
				it.Components.Set(component("desc", "Poison"))
				require.NoError(t, db.Items.Append(it))
			},
			slots: func(db *database.Database) []string {
				it, _ := db.Items.Get("Venin Edge")
				hit, _ := it.Components.Get("status_on_hit")
				desc, _ := it.Components.Get("desc")
				return []string{hit.Value, desc.Value}
			},
			want: func(to string) []string { return []string{to, "Poison"} },
		},
		{
			name:    "skill item component",
			catalog: domain.CatalogItems,
			old:     "Gale",
			swap:    "Rally",
			setup: func(t *testing.T, db *database.Database) {
				require.NoError(t, db.Items.Append(domain.DefaultItem("Gale")))
				require.NoError(t, db.Items.Append(domain.DefaultItem("Rally")))
				sk := domain.DefaultSkill("Galeforce")
				sk.Components.Set(component("ability", "Gale"))
				require.NoError(t, db.Skills.Append(sk))
				bundle := domain.DefaultItem("Bundle")
				bundle.Components.Set(component("multi_item", "", "Gale", "Rally", "Gale"))
				require.NoError(t, db.Items.Append(bundle))
			},
			slots: func(db *database.Database) []string {
				sk, _ := db.Skills.Get("Galeforce")
				ability, _ := sk.Components.Get("ability")
				bundle, _ := db.Items.Get("Bundle")
				multi, _ := bundle.Components.Get("multi_item")
				return append([]string{ability.Value}, multi.List...)
			},
			want: func(to string) []string { return []string{to, to, "Rally", to} },
		},
		{
			name:    "item tag list component",
			catalog: domain.CatalogTags,
			old:     "Armor",
			swap:    "Horse",
			setup: func(t *testing.T, db *database.Database) {
				it := domain.DefaultItem("Hammer")
				it.Components.Set(component("effective_tag", "", "Armor", "Dragon"))
				require.NoError(t, db.Items.Append(it))
			},
			slots: func(db *database.Database) []string {
				it, _ := db.Items.Get("Hammer")
				tags, _ := it.Components.Get("effective_tag")
				return tags.List
			},
			want: func(to string) []string { return []string{to, "Dragon"} },
		},
		{
			name:    "stat map keys",
			catalog: domain.CatalogStats,
			old:     "LCK",
			swap:    "RES",
			setup: func(t *testing.T, db *database.Database) {
				c := domain.DefaultClass("Thief")
				c.Growths.Set("LCK", 50)
				c.Growths.Set("SPD", 60)
				require.NoError(t, db.Classes.Append(c))
				u := domain.DefaultUnit("Colm")
				u.Bases.Set("LCK", 8)
				require.NoError(t, db.Units.Append(u))
			},
			slots: func(db *database.Database) []string {
				c, _ := db.Classes.Get("Thief")
				u, _ := db.Units.Get("Colm")
				return []string{c.Growths[0].Stat, c.Growths[1].Stat, u.Bases[0].Stat}
			},
			want: func(to string) []string { return []string{to, "SPD", to} },
		},
		{
			name:    "level units and unit groups",
			catalog: domain.CatalogUnits,
			old:     "Ross",
			swap:    "Garcia",
			setup: func(t *testing.T, db *database.Database) {
				require.NoError(t, db.Units.Append(domain.DefaultUnit("Ross")))
				require.NoError(t, db.Units.Append(domain.DefaultUnit("Garcia")))
				lvl, _ := db.Levels.Get("0")
				lvl.Units = append(lvl.Units,
					domain.LevelUnit{Nid: "Ross", Team: "player", AI: "None"},
					domain.LevelUnit{Nid: "Ross Bandit", Generic: true, Team: "enemy", AI: "Attack"},
				)
				lvl.UnitGroups = append(lvl.UnitGroups, domain.UnitGroup{
					Nid:       "reinforcements",
					Units:     []string{"Ross", "Ross Bandit"},
					Positions: []domain.GroupPosition{{Unit: "Ross", Position: domain.Pair{2, 3}}},
				})
			},
			slots: func(db *database.Database) []string {
				lvl, _ := db.Levels.Get("0")
				g := lvl.UnitGroups[0]
				return []string{lvl.Units[0].Nid, lvl.Units[1].Nid, g.Units[0], g.Units[1], g.Positions[0].Unit}
			},
			want: func(to string) []string { return []string{to, "Ross Bandit", to, "Ross Bandit", to} },
		},
		{
			name:    "overworld nodes and event level",
			catalog: domain.CatalogLevels,
			old:     "1",
			swap:    "0",
			setup: func(t *testing.T, db *database.Database) {
				require.NoError(t, db.Levels.Append(domain.DefaultLevel("1")))
				ow := domain.DefaultOverworld("Magvel")
				ow.Nodes = append(ow.Nodes, domain.OverworldNode{Nid: "n1", Name: "Border Mulan", Level: "1"})
				require.NoError(t, db.Overworlds.Append(ow))
				require.NoError(t, db.Events.Append(domain.NewEvent("1", "Intro")))
			},
			slots: func(db *database.Database) []string {
				ow, _ := db.Overworlds.Get("Magvel")
				ev := db.Events.At(0)
				return []string{ow.Nodes[0].Level, ev.LevelNid, ev.Nid}
			},
			want: func(to string) []string { return []string{to, to, to + " Intro"} },
		},
	}
}

func TestRenameReachesEveryReferenceShape(t *testing.T) {
	t.Parallel()
	for _, shape := range referenceShapes() {
		t.Run(shape.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			db, _ := newTestDB(t)
			shape.setup(t, db)
			to := shape.old + " Renamed"
			if shape.catalog == domain.CatalogLevels {
				to = "5"
			}

			_, err := db.Rename(ctx, shape.catalog, shape.old, to)
			require.NoError(t, err)
			assert.Equal(t, shape.want(to), shape.slots(db))

			set, err := db.Impact(shape.catalog, shape.old)
			require.NoError(t, err)
			assert.True(t, set.Empty(), "%+v", set.Groups)

			before, err := db.Save()
			require.NoError(t, err)
			res, err := db.Rename(ctx, shape.catalog, to, to)
			require.NoError(t, err)
			assert.Zero(t, res.Updated)
			_, err = db.Rename(ctx, shape.catalog, shape.old, to)
			require.ErrorIs(t, err, catalog.ErrNotFound)
			after, err := db.Save()
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestDeleteWithSwapReachesEveryReferenceShape(t *testing.T) {
	t.Parallel()
	for _, shape := range referenceShapes() {
		t.Run(shape.name, func(t *testing.T) {
			t.Parallel()
			db, _ := newTestDB(t)
			shape.setup(t, db)

			res, err := db.DeleteWithSwap(context.Background(), shape.catalog, shape.old, shape.swap)
			require.NoError(t, err)
			assert.True(t, res.Deleted)
			assert.Equal(t, shape.want(shape.swap), shape.slots(db))

			tbl, ok := db.Table(shape.catalog)
			require.True(t, ok)
			assert.False(t, tbl.Has(shape.old))
		})
	}
}
