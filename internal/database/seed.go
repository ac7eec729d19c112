package database

import (
	"tacticsdb/internal/catalog"
	"tacticsdb/pkg/domain"
)

// seed fills a new project with the defaults every game starts from.
func seed(db *Database) {
	for _, key := range domain.BuiltinConstantKeys() {
		mustAppend(db.Constants, domain.DefaultConstant(key))
	}

	for _, s := range []struct {
		nid, name string
		maximum   int
		position  string
	}{
		{"HP", "Hit Points", 80, "hidden"},
		{"STR", "Strength", 30, "left"},
		{"MAG", "Magic", 30, "left"},
		{"SKL", "Skill", 30, "left"},
		{"SPD", "Speed", 30, "left"},
		{"LCK", "Luck", 30, "right"},
		{"DEF", "Defense", 30, "right"},
		{"RES", "Resistance", 30, "right"},
		{"CON", "Constitution", 20, "right"},
		{"MOV", "Movement", 15, "right"},
	} {
		st := domain.DefaultStat(s.nid)
		st.Name, st.Maximum, st.Position = s.name, s.maximum, s.position
		mustAppend(db.Stats, st)
	}

	for _, e := range [][2]string{
		{"HIT", "SKL*2 + LCK//2"},
		{"AVOID", "SPEED*2 + LCK"},
		{"CRIT_HIT", "SKL//2"},
		{"CRIT_AVOID", "LCK"},
		{"DAMAGE", "STR"},
		{"DEFENSE", "DEF"},
	} {
		eq := domain.DefaultEquation(e[0])
		eq.Expression = e[1]
		mustAppend(db.Equations, eq)
	}

	for _, nid := range []string{"Lord", "Boss", "Armor", "Horse", "Flying", "Dragon", "ZeroMove", "AutoPromote", "NoAutoPromote"} {
		mustAppend(db.Tags, domain.DefaultTag(nid))
	}

	for _, t := range []struct {
		nid, color string
		allies     []string
	}{
		{"player", "blue", []string{"player", "other"}},
		{"enemy", "red", []string{"enemy"}},
		{"enemy2", "purple", []string{"enemy2"}},
		{"other", "green", []string{"player", "other"}},
	} {
		team := domain.DefaultTeam(t.nid)
		team.CombatColor = t.color
		team.Allies = append(team.Allies, t.allies...)
		mustAppend(db.Teams, team)
	}

	for _, r := range []struct {
		nid         string
		requirement int
	}{{"E", 1}, {"D", 31}, {"C", 71}, {"B", 121}, {"A", 181}, {"S", 251}} {
		rank := domain.DefaultWeaponRank(r.nid)
		rank.Requirement = r.requirement
		mustAppend(db.WeaponRanks, rank)
	}

	for i, nid := range []string{"Sword", "Lance", "Axe", "Bow", "Staff", "Light", "Anima", "Dark", "Default"} {
		w := domain.DefaultWeaponType(nid)
		w.IconIndex = domain.Pair{0, i}
		mustAppend(db.Weapons, w)
	}
	triangle := [][2]string{{"Sword", "Axe"}, {"Lance", "Sword"}, {"Axe", "Lance"}}
	for _, pair := range triangle {
		w, _ := db.Weapons.Get(pair[0])
		w.Advantage = append(w.Advantage, domain.CombatBonus{WeaponType: pair[1], WeaponRank: domain.AnyRank, Modifiers: domain.Modifiers{Damage: 1, Accuracy: 15}})
		loser, _ := db.Weapons.Get(pair[1])
		loser.Disadvantage = append(loser.Disadvantage, domain.CombatBonus{WeaponType: pair[0], WeaponRank: domain.AnyRank, Modifiers: domain.Modifiers{Damage: -1, Accuracy: -15}})
	}

	for _, nid := range []string{"C", "B", "A"} {
		mustAppend(db.SupportRanks, domain.DefaultSupportRank(nid))
	}

	for _, a := range []struct {
		nid, action, target string
		viewRange           int
	}{
		{"None", "None", "None", -1},
		{"Attack", "Attack", "Enemy", -1},
		{"Defend", "Attack", "Enemy", 0},
		{"Pursue", "Move_to", "Enemy", -1},
	} {
		ai := domain.DefaultAI(a.nid)
		ai.Behaviours[0] = domain.Behaviour{Action: a.action, Target: a.target, ViewRange: a.viewRange}
		if a.target == "Enemy" {
			ai.Behaviours[0].TargetSpec = domain.TargetSpec{Kind: domain.TargetAll}
		}
		mustAppend(db.AI, ai)
	}

	party := domain.DefaultParty("eirika")
	party.Name = "Eirika's Group"
	mustAppend(db.Parties, party)

	mustAppend(db.DifficultyModes, domain.DefaultDifficultyMode("Normal"))

	level := domain.DefaultLevel("0")
	level.Name = "Prologue"
	level.Party = party.Nid
	mustAppend(db.Levels, level)
}

func mustAppend[T domain.Prefab](c *catalog.Catalog[T], e T) {
	if err := c.Append(e); err != nil {
		panic(err)
	}
}
