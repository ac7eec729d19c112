package database

import (
	"tacticsdb/internal/cascade"
	"tacticsdb/pkg/domain"
)

const (
	stats        = domain.CatalogStats
	tags         = domain.CatalogTags
	teams        = domain.CatalogTeams
	weaponRanks  = domain.CatalogWeaponRanks
	weapons      = domain.CatalogWeapons
	factions     = domain.CatalogFactions
	affinities   = domain.CatalogAffinities
	supportRanks = domain.CatalogSupportRanks
	terrain      = domain.CatalogTerrain
	skills       = domain.CatalogSkills
	items        = domain.CatalogItems
	classes      = domain.CatalogClasses
	units        = domain.CatalogUnits
	supportPairs = domain.CatalogSupportPairs
	ais          = domain.CatalogAI
	parties      = domain.CatalogParties
	difficulties = domain.CatalogDifficultyModes
	levels       = domain.CatalogLevels
	overworlds   = domain.CatalogOverworlds
	events       = domain.CatalogEvents
)

// componentKinds are the component value kinds that hold identifiers.
var componentKinds = []domain.ComponentKind{
	domain.KindWeaponType,
	domain.KindWeaponRank,
	domain.KindSkill,
	domain.KindItem,
	domain.KindItemList,
	domain.KindTagList,
	domain.KindAffinity,
}

// targetKinds are the AI target kinds whose value names an entity.
var targetKinds = []domain.TargetKind{
	domain.TargetClass,
	domain.TargetTag,
	domain.TargetName,
	domain.TargetFaction,
	domain.TargetParty,
	domain.TargetTeam,
}

// NewRegistry declares every cross-catalog reference of the project schema.
func NewRegistry() *cascade.Registry {
	r := cascade.NewRegistry()

	r.Register(
		cascade.List(teams, "allies", teams, func(t *domain.Team) []string { return t.Allies }),
		cascade.Slots(terrain, "status", skills, func(t *domain.Terrain, yield func(*string)) { yield(&t.Status) }),
	)
	r.Register(weaponReferences()...)
	r.Register(
		cascade.Slots(affinities, "bonus.support_rank", supportRanks, func(a *domain.Affinity, yield func(*string)) {
			for i := range a.Bonus {
				yield(&a.Bonus[i].SupportRank)
			}
		}),
	)
	r.Register(componentReferences()...)
	r.Register(classReferences()...)
	r.Register(unitReferences()...)
	r.Register(
		cascade.Scalar(supportPairs, "unit1", units, func(p *domain.SupportPair) *string { return &p.Unit1 }),
		cascade.Scalar(supportPairs, "unit2", units, func(p *domain.SupportPair) *string { return &p.Unit2 }),
		cascade.Slots(supportPairs, "requirements.support_rank", supportRanks, func(p *domain.SupportPair, yield func(*string)) {
			for i := range p.Requirements {
				yield(&p.Requirements[i].SupportRank)
			}
		}),
		cascade.Slots(supportPairs, "requirements.gate", levels, func(p *domain.SupportPair, yield func(*string)) {
			for i := range p.Requirements {
				yield(&p.Requirements[i].Gate)
			}
		}),
	)
	r.Register(aiReferences()...)
	r.Register(
		cascade.Scalar(parties, "leader", units, func(p *domain.Party) *string { return &p.Leader }),
	)
	r.Register(statMapReferences(difficulties, func(d *domain.DifficultyMode) []*domain.StatMap {
		return []*domain.StatMap{&d.PlayerBases, &d.EnemyBases, &d.PlayerGrowths, &d.EnemyGrowths}
	}, "player_bases", "enemy_bases", "player_growths", "enemy_growths")...)
	r.Register(levelReferences()...)
	r.Register(
		cascade.Slots(overworlds, "nodes.level", levels, func(o *domain.Overworld, yield func(*string)) {
			for i := range o.Nodes {
				yield(&o.Nodes[i].Level)
			}
		}),
		cascade.Scalar(events, "level_nid", levels, func(e *domain.Event) *string { return &e.LevelNid }),
	)

	r.RegisterDerived(
		cascade.Derived(supportPairs, func(p *domain.SupportPair) (string, bool) {
			if p.Unit1 == "" || p.Unit2 == "" {
				return "", false
			}
			return p.Key(), true
		}, units),
		cascade.Derived(events, func(e *domain.Event) (string, bool) {
			if e.Name == "" {
				return "", false
			}
			return e.Key(), true
		}, levels),
	)
	return r
}

func combatBonusSlots(bonuses []domain.CombatBonus, weaponType bool, yield func(*string)) {
	for i := range bonuses {
		if weaponType {
			yield(&bonuses[i].WeaponType)
		} else {
			yield(&bonuses[i].WeaponRank)
		}
	}
}

func weaponReferences() []cascade.Reference {
	var refs []cascade.Reference
	lists := []struct {
		field string
		get   func(*domain.WeaponType) []domain.CombatBonus
	}{
		{"rank_bonus", func(w *domain.WeaponType) []domain.CombatBonus { return w.RankBonus }},
		{"advantage", func(w *domain.WeaponType) []domain.CombatBonus { return w.Advantage }},
		{"disadvantage", func(w *domain.WeaponType) []domain.CombatBonus { return w.Disadvantage }},
	}
	for _, l := range lists {
		refs = append(refs,
			cascade.Slots(weapons, l.field+".weapon_type", weapons, func(w *domain.WeaponType, yield func(*string)) {
				combatBonusSlots(l.get(w), true, yield)
			}),
			cascade.Slots(weapons, l.field+".weapon_rank", weaponRanks, func(w *domain.WeaponType, yield func(*string)) {
				combatBonusSlots(l.get(w), false, yield)
			}).Excluding(domain.AnyRank),
		)
	}
	return refs
}

func componentReferences() []cascade.Reference {
	var refs []cascade.Reference
	for _, kind := range componentKinds {
		to, _ := kind.Target()
		refs = append(refs,
			cascade.Slots(items, "components", to, func(it *domain.Item, yield func(*string)) {
				it.Components.ForEachRef(kind, yield)
			}).Tagged(string(kind)),
			cascade.Slots(skills, "components", to, func(sk *domain.Skill, yield func(*string)) {
				sk.Components.ForEachRef(kind, yield)
			}).Tagged(string(kind)),
		)
	}
	return refs
}

// statMapReferences registers the keys of each stat map as references to stats.
func statMapReferences[T domain.Prefab](from domain.CatalogKey, maps func(T) []*domain.StatMap, fields ...string) []cascade.Reference {
	refs := make([]cascade.Reference, 0, len(fields))
	for i, field := range fields {
		refs = append(refs, cascade.Slots(from, field, stats, func(e T, yield func(*string)) {
			m := maps(e)[i]
			for j := range *m {
				yield(&(*m)[j].Stat)
			}
		}))
	}
	return refs
}

func skillGrantSlots(grants domain.SkillGrants, yield func(*string)) {
	for i := range grants {
		yield(&grants[i].Skill)
	}
}

func wexpSlots(gains domain.WexpGains, yield func(*string)) {
	for i := range gains {
		yield(&gains[i].Weapon)
	}
}

func itemGrantSlots(grants domain.ItemGrants, yield func(*string)) {
	for i := range grants {
		yield(&grants[i].Item)
	}
}

func classReferences() []cascade.Reference {
	refs := []cascade.Reference{
		cascade.Scalar(classes, "promotes_from", classes, func(c *domain.Class) *string { return &c.PromotesFrom }),
		cascade.List(classes, "turns_into", classes, func(c *domain.Class) []string { return c.TurnsInto }),
		cascade.List(classes, "tags", tags, func(c *domain.Class) []string { return c.Tags }),
		cascade.Slots(classes, "learned_skills", skills, func(c *domain.Class, yield func(*string)) {
			skillGrantSlots(c.LearnedSkills, yield)
		}),
		cascade.Slots(classes, "wexp_gain", weapons, func(c *domain.Class, yield func(*string)) {
			wexpSlots(c.WexpGain, yield)
		}),
	}
	return append(refs, statMapReferences(classes, func(c *domain.Class) []*domain.StatMap {
		return []*domain.StatMap{&c.Bases, &c.Growths, &c.GrowthBonus, &c.Promotion, &c.MaxStats}
	}, "bases", "growths", "growth_bonus", "promotion", "max_stats")...)
}

func unitReferences() []cascade.Reference {
	refs := []cascade.Reference{
		cascade.Scalar(units, "klass", classes, func(u *domain.Unit) *string { return &u.Klass }),
		cascade.List(units, "tags", tags, func(u *domain.Unit) []string { return u.Tags }),
		cascade.Slots(units, "starting_items", items, func(u *domain.Unit, yield func(*string)) {
			itemGrantSlots(u.StartingItems, yield)
		}),
		cascade.Slots(units, "learned_skills", skills, func(u *domain.Unit, yield func(*string)) {
			skillGrantSlots(u.LearnedSkills, yield)
		}),
		cascade.Slots(units, "wexp_gain", weapons, func(u *domain.Unit, yield func(*string)) {
			wexpSlots(u.WexpGain, yield)
		}),
		cascade.List(units, "alternate_classes", classes, func(u *domain.Unit) []string { return u.AlternateClasses }),
		cascade.Scalar(units, "affinity", affinities, func(u *domain.Unit) *string { return &u.Affinity }),
	}
	return append(refs, statMapReferences(units, func(u *domain.Unit) []*domain.StatMap {
		return []*domain.StatMap{&u.Bases, &u.Growths, &u.StatCapModifiers}
	}, "bases", "growths", "stat_cap_modifiers")...)
}

func aiReferences() []cascade.Reference {
	refs := make([]cascade.Reference, 0, len(targetKinds))
	for _, kind := range targetKinds {
		to, _ := kind.Target()
		refs = append(refs, cascade.Slots(ais, "behaviours.target_spec", to, func(a *domain.AI, yield func(*string)) {
			for i := range a.Behaviours {
				spec := &a.Behaviours[i].TargetSpec
				if spec.Kind == kind {
					yield(&spec.Value)
				}
			}
		}).Tagged(string(kind)))
	}
	return refs
}

// uniqueMember reports whether a unit group member names a unique unit
// placed on the level; such members carry the unit's nid.
func uniqueMember(l *domain.Level, member string) bool {
	lu, ok := l.Unit(member)
	return ok && !lu.Generic
}

func levelReferences() []cascade.Reference {
	return []cascade.Reference{
		cascade.Scalar(levels, "party", parties, func(l *domain.Level) *string { return &l.Party }),
		cascade.Scalar(levels, "roam_unit", units, func(l *domain.Level) *string { return &l.RoamUnit }),
		cascade.Slots(levels, "units.nid", units, func(l *domain.Level, yield func(*string)) {
			for i := range l.Units {
				if !l.Units[i].Generic {
					yield(&l.Units[i].Nid)
				}
			}
		}).Tagged("unique"),
		cascade.Slots(levels, "units.team", teams, func(l *domain.Level, yield func(*string)) {
			for i := range l.Units {
				yield(&l.Units[i].Team)
			}
		}),
		cascade.Slots(levels, "units.ai", ais, func(l *domain.Level, yield func(*string)) {
			for i := range l.Units {
				yield(&l.Units[i].AI)
			}
		}),
		cascade.Slots(levels, "units.klass", classes, func(l *domain.Level, yield func(*string)) {
			for i := range l.Units {
				if l.Units[i].Generic {
					yield(&l.Units[i].Klass)
				}
			}
		}).Tagged("generic"),
		cascade.Slots(levels, "units.faction", factions, func(l *domain.Level, yield func(*string)) {
			for i := range l.Units {
				if l.Units[i].Generic {
					yield(&l.Units[i].Faction)
				}
			}
		}).Tagged("generic"),
		cascade.Slots(levels, "units.starting_items", items, func(l *domain.Level, yield func(*string)) {
			for i := range l.Units {
				if l.Units[i].Generic {
					itemGrantSlots(l.Units[i].StartingItems, yield)
				}
			}
		}).Tagged("generic"),
		cascade.Slots(levels, "regions.sub_nid", skills, func(l *domain.Level, yield func(*string)) {
			for i := range l.Regions {
				if l.Regions[i].RegionType == domain.RegionStatus {
					yield(&l.Regions[i].SubNid)
				}
			}
		}).Tagged(domain.RegionStatus),
		cascade.Slots(levels, "unit_groups.units", units, func(l *domain.Level, yield func(*string)) {
			for i := range l.UnitGroups {
				g := &l.UnitGroups[i]
				for j := range g.Units {
					if uniqueMember(l, g.Units[j]) {
						yield(&g.Units[j])
					}
				}
			}
		}),
		cascade.Slots(levels, "unit_groups.positions", units, func(l *domain.Level, yield func(*string)) {
			for i := range l.UnitGroups {
				g := &l.UnitGroups[i]
				for j := range g.Positions {
					if uniqueMember(l, g.Positions[j].Unit) {
						yield(&g.Positions[j].Unit)
					}
				}
			}
		}),
	}
}
