package domain

// Item is an inventory object whose behaviour is described by its components.
type Item struct {
	Nid        string     `json:"nid"`
	Name       string     `json:"name"`
	Desc       string     `json:"desc"`
	IconNid    string     `json:"icon_nid"`
	IconIndex  Pair       `json:"icon_index"`
	Components Components `json:"components"`
}

func (i *Item) NID() string           { return i.Nid }
func (i *Item) SetNID(nid string)     { i.Nid = nid }
func (i *Item) Save() (Record, error) { return save(i) }

// DefaultItem returns an item without components.
func DefaultItem(nid string) *Item {
	return &Item{Nid: nid, Name: nid, Components: Components{}}
}

// RestoreItem rebuilds an Item from a record.
func RestoreItem(rec Record) (*Item, error) { return restore(rec, DefaultItem) }

// Skill is a status or ability whose behaviour is described by its components.
type Skill struct {
	Nid        string     `json:"nid"`
	Name       string     `json:"name"`
	Desc       string     `json:"desc"`
	IconNid    string     `json:"icon_nid"`
	IconIndex  Pair       `json:"icon_index"`
	Components Components `json:"components"`
}

func (s *Skill) NID() string           { return s.Nid }
func (s *Skill) SetNID(nid string)     { s.Nid = nid }
func (s *Skill) Save() (Record, error) { return save(s) }

// DefaultSkill returns a skill without components.
func DefaultSkill(nid string) *Skill {
	return &Skill{Nid: nid, Name: nid, Components: Components{}}
}

// RestoreSkill rebuilds a Skill from a record.
func RestoreSkill(rec Record) (*Skill, error) { return restore(rec, DefaultSkill) }
