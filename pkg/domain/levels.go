package domain

// Objective holds the level's display objective and win/loss conditions.
type Objective struct {
	Simple string `json:"simple"`
	Win    string `json:"win"`
	Loss   string `json:"loss"`
}

// LevelUnit places a unit on a level. A unique level unit's nid names a Unit;
// a generic one is built from Klass, Faction and Level.
type LevelUnit struct {
	Nid              string           `json:"nid"`
	Generic          bool             `json:"generic"`
	Team             string           `json:"team"`
	AI               string           `json:"ai"`
	StartingPosition OptionalPosition `json:"starting_position"`
	Klass            string           `json:"klass"`
	Faction          string           `json:"faction"`
	Variant          string           `json:"variant"`
	Level            int              `json:"level"`
	StartingItems    ItemGrants       `json:"starting_items"`
}

// RegionStatus is the region type whose SubNid names a skill.
const RegionStatus = "status"

// Region is a rectangular area of a level map.
type Region struct {
	Nid        string `json:"nid"`
	RegionType string `json:"region_type"`
	Position   Pair   `json:"position"`
	Size       Pair   `json:"size"`
	SubNid     string `json:"sub_nid"`
	Condition  string `json:"condition"`
	OnlyOnce   bool   `json:"only_once"`
}

// UnitGroup is a named set of level units with optional positions.
type UnitGroup struct {
	Nid       string         `json:"nid"`
	Units     []string       `json:"units"`
	Positions []GroupPosition `json:"positions"`
}

// GroupPosition assigns a map position to one member of a UnitGroup.
type GroupPosition struct {
	Unit     string `json:"unit"`
	Position Pair   `json:"position"`
}

// AIGroup activates its members together once enough of them are triggered.
type AIGroup struct {
	Nid              string `json:"nid"`
	TriggerThreshold int    `json:"trigger_threshold"`
}

// Level is one chapter map with its units and regions. Levels are keyed by
// integers written as strings.
type Level struct {
	Nid           string      `json:"nid"`
	Name          string      `json:"name"`
	Tilemap       string      `json:"tilemap"`
	Party         string      `json:"party"`
	Music         Fields      `json:"music"`
	Objective     Objective   `json:"objective"`
	Roam          bool        `json:"roam"`
	RoamUnit      string      `json:"roam_unit"`
	GoToOverworld bool        `json:"go_to_overworld"`
	Units         []LevelUnit `json:"units"`
	Regions       []Region    `json:"regions"`
	UnitGroups    []UnitGroup `json:"unit_groups"`
	AIGroups      []AIGroup   `json:"ai_groups"`
}

func (l *Level) NID() string           { return l.Nid }
func (l *Level) SetNID(nid string)     { l.Nid = nid }
func (l *Level) Save() (Record, error) { return save(l) }

// Unit returns the level unit with the given nid.
func (l *Level) Unit(nid string) (LevelUnit, bool) {
	for _, u := range l.Units {
		if u.Nid == nid {
			return u, true
		}
	}
	return LevelUnit{}, false
}

// DefaultLevel returns an empty level with the standard music triggers and a rout objective.
func DefaultLevel(nid string) *Level {
	return &Level{
		Nid:  nid,
		Name: nid,
		Music: Fields{
			{Key: "player_phase"}, {Key: "enemy_phase"}, {Key: "other_phase"},
			{Key: "player_battle"}, {Key: "enemy_battle"}, {Key: "prep"}, {Key: "base"},
		},
		Objective: Objective{
			Simple: "Defeat all enemies",
			Win:    "Defeat all enemies",
			Loss:   "Lord dies",
		},
		Units:      []LevelUnit{},
		Regions:    []Region{},
		UnitGroups: []UnitGroup{},
		AIGroups:   []AIGroup{},
	}
}

// RestoreLevel rebuilds a Level from a record.
func RestoreLevel(rec Record) (*Level, error) { return restore(rec, DefaultLevel) }

// OverworldNode is a selectable location on an overworld map.
type OverworldNode struct {
	Nid   string `json:"nid"`
	Name  string `json:"name"`
	Pos   Pair   `json:"pos"`
	Icon  string `json:"icon"`
	Level string `json:"level"`
}

// Overworld is a world map linking levels through nodes and roads.
type Overworld struct {
	Nid     string          `json:"nid"`
	Name    string          `json:"name"`
	Tilemap string          `json:"tilemap"`
	Music   string          `json:"music"`
	Nodes   []OverworldNode `json:"nodes"`
	Roads   [][]Pair        `json:"roads"`
}

func (o *Overworld) NID() string           { return o.Nid }
func (o *Overworld) SetNID(nid string)     { o.Nid = nid }
func (o *Overworld) Save() (Record, error) { return save(o) }

// DefaultOverworld returns an overworld without nodes or roads.
func DefaultOverworld(nid string) *Overworld {
	return &Overworld{Nid: nid, Name: nid, Nodes: []OverworldNode{}, Roads: [][]Pair{}}
}

// RestoreOverworld rebuilds an Overworld from a record.
func RestoreOverworld(rec Record) (*Overworld, error) { return restore(rec, DefaultOverworld) }
