package domain

// Class is a unit class with its stat tables and promotion graph.
type Class struct {
	Nid           string      `json:"nid"`
	Name          string      `json:"name"`
	Desc          string      `json:"desc"`
	Tier          int         `json:"tier"`
	MovementGroup string      `json:"movement_group"`
	PromotesFrom  string      `json:"promotes_from"`
	TurnsInto     []string    `json:"turns_into"`
	Tags          []string    `json:"tags"`
	MaxLevel      int         `json:"max_level"`
	Bases         StatMap     `json:"bases"`
	Growths       StatMap     `json:"growths"`
	GrowthBonus   StatMap     `json:"growth_bonus"`
	Promotion     StatMap     `json:"promotion"`
	MaxStats      StatMap     `json:"max_stats"`
	LearnedSkills SkillGrants `json:"learned_skills"`
	WexpGain      WexpGains   `json:"wexp_gain"`
	IconNid       string      `json:"icon_nid"`
	IconIndex     Pair        `json:"icon_index"`
	MapSpriteNid  string      `json:"map_sprite_nid"`
	CombatAnimNid string      `json:"combat_anim_nid"`
	Fields        Fields      `json:"fields"`
}

func (c *Class) NID() string           { return c.Nid }
func (c *Class) SetNID(nid string)     { c.Nid = nid }
func (c *Class) Save() (Record, error) { return save(c) }

// DefaultClass returns a tier 1 class capped at level 20.
func DefaultClass(nid string) *Class {
	return &Class{
		Nid:           nid,
		Name:          nid,
		Tier:          1,
		MovementGroup: "Infantry",
		TurnsInto:     []string{},
		Tags:          []string{},
		MaxLevel:      20,
		Bases:         StatMap{},
		Growths:       StatMap{},
		GrowthBonus:   StatMap{},
		Promotion:     StatMap{},
		MaxStats:      StatMap{},
		LearnedSkills: SkillGrants{},
		WexpGain:      WexpGains{},
		IconNid:       "Generic_Portrait",
		Fields:        Fields{},
	}
}

// RestoreClass rebuilds a Class from a record.
func RestoreClass(rec Record) (*Class, error) { return restore(rec, DefaultClass) }

// Unit is a unique character.
type Unit struct {
	Nid              string      `json:"nid"`
	Name             string      `json:"name"`
	Desc             string      `json:"desc"`
	Variant          string      `json:"variant"`
	Level            int         `json:"level"`
	Klass            string      `json:"klass"`
	Tags             []string    `json:"tags"`
	Bases            StatMap     `json:"bases"`
	Growths          StatMap     `json:"growths"`
	StatCapModifiers StatMap     `json:"stat_cap_modifiers"`
	StartingItems    ItemGrants  `json:"starting_items"`
	LearnedSkills    SkillGrants `json:"learned_skills"`
	UnitNotes        Fields      `json:"unit_notes"`
	WexpGain         WexpGains   `json:"wexp_gain"`
	AlternateClasses []string    `json:"alternate_classes"`
	PortraitNid      string      `json:"portrait_nid"`
	Affinity         string      `json:"affinity"`
	Fields           Fields      `json:"fields"`
}

func (u *Unit) NID() string           { return u.Nid }
func (u *Unit) SetNID(nid string)     { u.Nid = nid }
func (u *Unit) Save() (Record, error) { return save(u) }

// DefaultUnit returns a level 1 unit with no class.
func DefaultUnit(nid string) *Unit {
	return &Unit{
		Nid:              nid,
		Name:             nid,
		Level:            1,
		Tags:             []string{},
		Bases:            StatMap{},
		Growths:          StatMap{},
		StatCapModifiers: StatMap{},
		StartingItems:    ItemGrants{},
		LearnedSkills:    SkillGrants{},
		UnitNotes:        Fields{},
		WexpGain:         WexpGains{},
		AlternateClasses: []string{},
		Fields:           Fields{},
	}
}

// RestoreUnit rebuilds a Unit from a record.
func RestoreUnit(rec Record) (*Unit, error) { return restore(rec, DefaultUnit) }
