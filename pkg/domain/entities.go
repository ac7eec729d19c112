// Package domain defines the persistent entities of a tactics-game project,
// the typed field codecs that absorb older save formats, and the Prefab
// contract the catalogs rely on.
package domain

import (
	"encoding/json"
	"fmt"
)

// Constant is a project-wide setting persisted as a [nid, value] pair. Value
// holds a bool, int, float64 or string.
type Constant struct {
	Nid   string
	Name  string
	Value any
}

// NID returns the constant key.
func (c *Constant) NID() string { return c.Nid }

// SetNID replaces the constant key.
func (c *Constant) SetNID(nid string) { c.Nid = nid }

// Save writes [nid, value].
func (c *Constant) Save() (Record, error) { return save([2]any{c.Nid, c.Value}) }

// DefaultConstant returns the built-in constant for nid, or a false-valued one when nid is unknown.
func DefaultConstant(nid string) *Constant {
	for _, c := range builtinConstants {
		if c.Nid == nid {
			cp := c
			return &cp
		}
	}
	return &Constant{Nid: nid, Value: false}
}

// RestoreConstant reads [nid, value] or the older {"nid", "value"} object.
// Built-in constants keep the type of their default.
func RestoreConstant(rec Record) (*Constant, error) {
	var nidRaw, valueRaw json.RawMessage
	if leading(rec) == '{' {
		var obj struct {
			Nid   json.RawMessage `json:"nid"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(rec, &obj); err != nil {
			return nil, fmt.Errorf("decode constant: %w", err)
		}
		nidRaw, valueRaw = obj.Nid, obj.Value
	} else {
		elems, err := decodeTuple(rec)
		if err != nil {
			return nil, fmt.Errorf("decode constant: %w", err)
		}
		nidRaw, valueRaw = element(elems, 0), element(elems, 1)
	}
	if len(nidRaw) == 0 || isNull(nidRaw) {
		return nil, ErrMissingNID
	}
	nid, err := decodeString(nidRaw)
	if err != nil {
		return nil, fmt.Errorf("decode constant: %w", err)
	}
	c := DefaultConstant(nid)
	if len(valueRaw) == 0 || isNull(valueRaw) {
		return c, nil
	}
	if _, known := builtinConstant(nid); !known {
		if c.Value, err = decodeScalar(valueRaw); err != nil {
			return nil, fmt.Errorf("constant %q: %w", nid, err)
		}
		return c, nil
	}
	switch c.Value.(type) {
	case bool:
		c.Value, err = decodeBool(valueRaw)
	case int:
		c.Value, err = decodeInt(valueRaw)
	case float64:
		var f float64
		err = json.Unmarshal(valueRaw, &f)
		c.Value = f
	case string:
		c.Value, err = decodeString(valueRaw)
	}
	if err != nil {
		return nil, fmt.Errorf("constant %q: %w", nid, err)
	}
	return c, nil
}

// decodeScalar types an unknown constant value: integral numbers become int.
func decodeScalar(raw json.RawMessage) (any, error) {
	switch leading(raw) {
	case 't', 'f':
		return decodeBool(raw)
	case '"':
		return decodeString(raw)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("expected scalar, got %s", raw)
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	return n.Float64()
}

var builtinConstants = []Constant{
	{Nid: "num_save_slots", Name: "Number of save slots", Value: 3},
	{Nid: "kill_worth", Name: "Kill experience multiplier", Value: 3.0},
	{Nid: "exp_magnitude", Name: "Experience magnitude", Value: 10.0},
	{Nid: "enemy_leveling", Name: "Method for autoleveling generic units", Value: "Fixed"},
	{Nid: "turnwheel", Name: "Turnwheel enabled", Value: false},
	{Nid: "initiative", Name: "Initiative turn order", Value: false},
	{Nid: "title", Name: "Game title", Value: "Lex Talionis Game"},
	{Nid: "game_nid", Name: "Game identifier", Value: "LT"},
}

func builtinConstant(nid string) (Constant, bool) {
	for _, c := range builtinConstants {
		if c.Nid == nid {
			return c, true
		}
	}
	return Constant{}, false
}

// BuiltinConstantKeys lists the seeded constant keys in order.
func BuiltinConstantKeys() []string {
	keys := make([]string, 0, len(builtinConstants))
	for _, c := range builtinConstants {
		keys = append(keys, c.Nid)
	}
	return keys
}

// Stat is a unit statistic such as HP or STR.
type Stat struct {
	Nid      string `json:"nid"`
	Name     string `json:"name"`
	Maximum  int    `json:"maximum"`
	Desc     string `json:"desc"`
	Position string `json:"position"`
}

func (s *Stat) NID() string           { return s.Nid }
func (s *Stat) SetNID(nid string)     { s.Nid = nid }
func (s *Stat) Save() (Record, error) { return save(s) }

// DefaultStat returns a stat with a 30 point maximum shown in the left column.
func DefaultStat(nid string) *Stat {
	return &Stat{Nid: nid, Name: nid, Maximum: 30, Position: "left"}
}

// RestoreStat rebuilds a Stat from a record.
func RestoreStat(rec Record) (*Stat, error) { return restore(rec, DefaultStat) }

// Equation is a named combat formula.
type Equation struct {
	Nid        string `json:"nid"`
	Expression string `json:"expression"`
}

func (e *Equation) NID() string           { return e.Nid }
func (e *Equation) SetNID(nid string)     { e.Nid = nid }
func (e *Equation) Save() (Record, error) { return save(e) }

// DefaultEquation returns an equation evaluating to zero.
func DefaultEquation(nid string) *Equation { return &Equation{Nid: nid, Expression: "0"} }

// RestoreEquation rebuilds an Equation from a record.
func RestoreEquation(rec Record) (*Equation, error) { return restore(rec, DefaultEquation) }

// Tag is a bare label attached to classes, units and components.
type Tag struct {
	Nid string `json:"nid"`
}

func (t *Tag) NID() string           { return t.Nid }
func (t *Tag) SetNID(nid string)     { t.Nid = nid }
func (t *Tag) Save() (Record, error) { return save(t) }

// DefaultTag returns a tag.
func DefaultTag(nid string) *Tag { return &Tag{Nid: nid} }

// RestoreTag rebuilds a Tag from a record.
func RestoreTag(rec Record) (*Tag, error) { return restore(rec, DefaultTag) }

// Team is an allegiance. Allies lists other team nids fighting on the same side.
type Team struct {
	Nid         string   `json:"nid"`
	Palette     string   `json:"palette"`
	CombatColor string   `json:"combat_color"`
	Allies      []string `json:"allies"`
}

func (t *Team) NID() string           { return t.Nid }
func (t *Team) SetNID(nid string)     { t.Nid = nid }
func (t *Team) Save() (Record, error) { return save(t) }

// DefaultTeam returns a red team with no allies.
func DefaultTeam(nid string) *Team {
	return &Team{Nid: nid, Palette: nid, CombatColor: "red", Allies: []string{}}
}

// RestoreTeam rebuilds a Team from a record.
func RestoreTeam(rec Record) (*Team, error) { return restore(rec, DefaultTeam) }

// WeaponRank is a proficiency threshold.
type WeaponRank struct {
	Nid         string `json:"nid"`
	Requirement int    `json:"requirement"`
}

func (w *WeaponRank) NID() string           { return w.Nid }
func (w *WeaponRank) SetNID(nid string)     { w.Nid = nid }
func (w *WeaponRank) Save() (Record, error) { return save(w) }

// DefaultWeaponRank returns a rank with no experience requirement.
func DefaultWeaponRank(nid string) *WeaponRank { return &WeaponRank{Nid: nid} }

// RestoreWeaponRank rebuilds a WeaponRank from a record.
func RestoreWeaponRank(rec Record) (*WeaponRank, error) { return restore(rec, DefaultWeaponRank) }

// Modifiers are the numeric combat adjustments shared by bonus tables.
type Modifiers struct {
	Damage       int `json:"damage"`
	Resist       int `json:"resist"`
	Accuracy     int `json:"accuracy"`
	Avoid        int `json:"avoid"`
	Crit         int `json:"crit"`
	Dodge        int `json:"dodge"`
	AttackSpeed  int `json:"attack_speed"`
	DefenseSpeed int `json:"defense_speed"`
}

// CombatBonus applies Modifiers when fighting with or against a weapon type at
// a rank. WeaponRank "All" matches every rank.
type CombatBonus struct {
	WeaponType string `json:"weapon_type"`
	WeaponRank string `json:"weapon_rank"`
	Modifiers
}

// AnyRank is the CombatBonus.WeaponRank wildcard.
const AnyRank = "All"

// WeaponType is a weapon class such as Sword or Staff.
type WeaponType struct {
	Nid            string        `json:"nid"`
	Name           string        `json:"name"`
	ForceMeleeAnim bool          `json:"force_melee_anim"`
	RankBonus      []CombatBonus `json:"rank_bonus"`
	Advantage      []CombatBonus `json:"advantage"`
	Disadvantage   []CombatBonus `json:"disadvantage"`
	IconNid        string        `json:"icon_nid"`
	IconIndex      Pair          `json:"icon_index"`
}

func (w *WeaponType) NID() string           { return w.Nid }
func (w *WeaponType) SetNID(nid string)     { w.Nid = nid }
func (w *WeaponType) Save() (Record, error) { return save(w) }

// DefaultWeaponType returns a weapon type with empty bonus tables.
func DefaultWeaponType(nid string) *WeaponType {
	return &WeaponType{
		Nid:          nid,
		Name:         nid,
		RankBonus:    []CombatBonus{},
		Advantage:    []CombatBonus{},
		Disadvantage: []CombatBonus{},
		IconNid:      "Wexp Icons",
	}
}

// RestoreWeaponType rebuilds a WeaponType from a record.
func RestoreWeaponType(rec Record) (*WeaponType, error) { return restore(rec, DefaultWeaponType) }

// Faction groups generic units for naming and portraits.
type Faction struct {
	Nid       string `json:"nid"`
	Name      string `json:"name"`
	Desc      string `json:"desc"`
	IconNid   string `json:"icon_nid"`
	IconIndex Pair   `json:"icon_index"`
}

func (f *Faction) NID() string           { return f.Nid }
func (f *Faction) SetNID(nid string)     { f.Nid = nid }
func (f *Faction) Save() (Record, error) { return save(f) }

// DefaultFaction returns a faction named after its nid.
func DefaultFaction(nid string) *Faction { return &Faction{Nid: nid, Name: nid} }

// RestoreFaction rebuilds a Faction from a record.
func RestoreFaction(rec Record) (*Faction, error) { return restore(rec, DefaultFaction) }

// AffinityBonus grants Modifiers at a support rank.
type AffinityBonus struct {
	SupportRank string `json:"support_rank"`
	Modifiers
}

// Affinity is an elemental alignment used by supports.
type Affinity struct {
	Nid       string          `json:"nid"`
	Name      string          `json:"name"`
	Desc      string          `json:"desc"`
	IconNid   string          `json:"icon_nid"`
	IconIndex Pair            `json:"icon_index"`
	Bonus     []AffinityBonus `json:"bonus"`
}

func (a *Affinity) NID() string           { return a.Nid }
func (a *Affinity) SetNID(nid string)     { a.Nid = nid }
func (a *Affinity) Save() (Record, error) { return save(a) }

// DefaultAffinity returns an affinity without bonuses.
func DefaultAffinity(nid string) *Affinity {
	return &Affinity{Nid: nid, Name: nid, Bonus: []AffinityBonus{}}
}

// RestoreAffinity rebuilds an Affinity from a record.
func RestoreAffinity(rec Record) (*Affinity, error) { return restore(rec, DefaultAffinity) }

// SupportRank is a support conversation tier.
type SupportRank struct {
	Nid string `json:"nid"`
}

func (s *SupportRank) NID() string           { return s.Nid }
func (s *SupportRank) SetNID(nid string)     { s.Nid = nid }
func (s *SupportRank) Save() (Record, error) { return save(s) }

// DefaultSupportRank returns a support rank.
func DefaultSupportRank(nid string) *SupportRank { return &SupportRank{Nid: nid} }

// RestoreSupportRank rebuilds a SupportRank from a record.
func RestoreSupportRank(rec Record) (*SupportRank, error) { return restore(rec, DefaultSupportRank) }

// Terrain describes a map tile type. Status names a skill applied to units standing on it.
type Terrain struct {
	Nid      string `json:"nid"`
	Name     string `json:"name"`
	Color    Triple `json:"color"`
	Minimap  string `json:"minimap"`
	Platform string `json:"platform"`
	MType    string `json:"mtype"`
	Opaque   bool   `json:"opaque"`
	Status   string `json:"status"`
}

func (t *Terrain) NID() string           { return t.Nid }
func (t *Terrain) SetNID(nid string)     { t.Nid = nid }
func (t *Terrain) Save() (Record, error) { return save(t) }

// DefaultTerrain returns walkable grass-coloured terrain.
func DefaultTerrain(nid string) *Terrain {
	return &Terrain{Nid: nid, Name: nid, Color: Triple{0, 0, 0}, Minimap: "Grass", Platform: "Grass", MType: "Normal"}
}

// RestoreTerrain rebuilds a Terrain from a record.
func RestoreTerrain(rec Record) (*Terrain, error) { return restore(rec, DefaultTerrain) }

// Party is a group of player units sharing a convoy.
type Party struct {
	Nid    string `json:"nid"`
	Name   string `json:"name"`
	Leader string `json:"leader"`
}

func (p *Party) NID() string           { return p.Nid }
func (p *Party) SetNID(nid string)     { p.Nid = nid }
func (p *Party) Save() (Record, error) { return save(p) }

// DefaultParty returns a leaderless party.
func DefaultParty(nid string) *Party { return &Party{Nid: nid, Name: nid} }

// RestoreParty rebuilds a Party from a record.
func RestoreParty(rec Record) (*Party, error) { return restore(rec, DefaultParty) }

// DifficultyMode adjusts bases and growths for one difficulty setting.
type DifficultyMode struct {
	Nid              string  `json:"nid"`
	Name             string  `json:"name"`
	Color            string  `json:"color"`
	PermadeathChoice string  `json:"permadeath_choice"`
	GrowthsChoice    string  `json:"growths_choice"`
	RNGChoice        string  `json:"rng_choice"`
	PlayerBases      StatMap `json:"player_bases"`
	EnemyBases       StatMap `json:"enemy_bases"`
	PlayerGrowths    StatMap `json:"player_growths"`
	EnemyGrowths     StatMap `json:"enemy_growths"`
	Autolevels       string  `json:"autolevels"`
	StartLocked      bool    `json:"start_locked"`
}

func (d *DifficultyMode) NID() string           { return d.Nid }
func (d *DifficultyMode) SetNID(nid string)     { d.Nid = nid }
func (d *DifficultyMode) Save() (Record, error) { return save(d) }

// DefaultDifficultyMode returns a classic-permadeath mode with fixed growths.
func DefaultDifficultyMode(nid string) *DifficultyMode {
	return &DifficultyMode{
		Nid:              nid,
		Name:             nid,
		Color:            "green",
		PermadeathChoice: "Classic",
		GrowthsChoice:    "Fixed",
		RNGChoice:        "True Hit",
		PlayerBases:      StatMap{},
		EnemyBases:       StatMap{},
		PlayerGrowths:    StatMap{},
		EnemyGrowths:     StatMap{},
		Autolevels:       "0",
	}
}

// RestoreDifficultyMode rebuilds a DifficultyMode from a record.
func RestoreDifficultyMode(rec Record) (*DifficultyMode, error) {
	return restore(rec, DefaultDifficultyMode)
}

// Lore is an in-game encyclopedia entry.
type Lore struct {
	Nid      string `json:"nid"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

func (l *Lore) NID() string           { return l.Nid }
func (l *Lore) SetNID(nid string)     { l.Nid = nid }
func (l *Lore) Save() (Record, error) { return save(l) }

// DefaultLore returns an empty lore entry in the Character category.
func DefaultLore(nid string) *Lore { return &Lore{Nid: nid, Name: nid, Title: nid, Category: "Character"} }

// RestoreLore rebuilds a Lore entry from a record.
func RestoreLore(rec Record) (*Lore, error) { return restore(rec, DefaultLore) }

// Translation maps a source string to its translated text.
type Translation struct {
	Nid  string `json:"nid"`
	Text string `json:"text"`
}

func (t *Translation) NID() string           { return t.Nid }
func (t *Translation) SetNID(nid string)     { t.Nid = nid }
func (t *Translation) Save() (Record, error) { return save(t) }

// DefaultTranslation returns an untranslated entry.
func DefaultTranslation(nid string) *Translation { return &Translation{Nid: nid} }

// RestoreTranslation rebuilds a Translation from a record.
func RestoreTranslation(rec Record) (*Translation, error) { return restore(rec, DefaultTranslation) }
