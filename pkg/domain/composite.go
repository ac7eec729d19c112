package domain

import "strings"

// SupportPairSeparator joins the two unit nids of a support pair key.
const SupportPairSeparator = " | "

// SupportPairKey derives a support pair nid from its units.
func SupportPairKey(unit1, unit2 string) string {
	return unit1 + SupportPairSeparator + unit2
}

// SupportRequirement gates a support rank behind points and, optionally, a level.
type SupportRequirement struct {
	SupportRank string `json:"support_rank"`
	Requirement int    `json:"requirement"`
	Gate        string `json:"gate"`
	Modifiers
}

// SupportPair links two units that can hold support conversations. Its nid is
// always SupportPairKey(Unit1, Unit2).
type SupportPair struct {
	Nid          string               `json:"nid"`
	Unit1        string               `json:"unit1"`
	Unit2        string               `json:"unit2"`
	OneWay       bool                 `json:"one_way"`
	Requirements []SupportRequirement `json:"requirements"`
}

func (s *SupportPair) NID() string           { return s.Nid }
func (s *SupportPair) SetNID(nid string)     { s.Nid = nid }
func (s *SupportPair) Save() (Record, error) { return save(s) }

// Key derives the nid from the pair's current units.
func (s *SupportPair) Key() string { return SupportPairKey(s.Unit1, s.Unit2) }

// DefaultSupportPair returns a pair whose units are parsed back out of nid.
func DefaultSupportPair(nid string) *SupportPair {
	unit1, unit2, _ := strings.Cut(nid, SupportPairSeparator)
	return &SupportPair{Nid: nid, Unit1: unit1, Unit2: unit2, Requirements: []SupportRequirement{}}
}

// NewSupportPair returns a pair for two units with a derived key.
func NewSupportPair(unit1, unit2 string) *SupportPair {
	return DefaultSupportPair(SupportPairKey(unit1, unit2))
}

// RestoreSupportPair rebuilds a SupportPair from a record, rederiving its
// nid from the stored units when both are present.
func RestoreSupportPair(rec Record) (*SupportPair, error) {
	sp, err := restore(rec, DefaultSupportPair)
	if err != nil {
		return nil, err
	}
	if sp.Unit1 != "" && sp.Unit2 != "" {
		sp.Nid = sp.Key()
	}
	return sp, nil
}

// GlobalEventPrefix keys events that belong to no level.
const GlobalEventPrefix = "Global"

// EventKey derives an event nid from its level and name.
func EventKey(levelNid, name string) string {
	if levelNid == "" {
		return GlobalEventPrefix + " " + name
	}
	return levelNid + " " + name
}

// Event is a scripted sequence fired by a trigger. Its nid is always
// EventKey(LevelNid, Name).
type Event struct {
	Nid       string   `json:"nid"`
	Name      string   `json:"name"`
	Trigger   string   `json:"trigger"`
	LevelNid  string   `json:"level_nid"`
	Condition string   `json:"condition"`
	Commands  []string `json:"commands"`
	OnlyOnce  bool     `json:"only_once"`
	Priority  int      `json:"priority"`
}

func (e *Event) NID() string           { return e.Nid }
func (e *Event) SetNID(nid string)     { e.Nid = nid }
func (e *Event) Save() (Record, error) { return save(e) }

// Key derives the nid from the event's current level and name.
func (e *Event) Key() string { return EventKey(e.LevelNid, e.Name) }

// DefaultEvent returns a global event that always fires. Its name is nid
// without the global prefix and its nid is rederived from that name, so
// DefaultEvent("Intro") is keyed "Global Intro".
func DefaultEvent(nid string) *Event {
	e := &Event{Name: strings.TrimPrefix(nid, GlobalEventPrefix+" "), Condition: "True", Commands: []string{}, Priority: 20}
	e.Nid = e.Key()
	return e
}

// NewEvent returns an event for a level (empty for global) with a derived key.
func NewEvent(levelNid, name string) *Event {
	e := DefaultEvent("")
	e.Name, e.LevelNid = name, levelNid
	e.Nid = e.Key()
	return e
}

// RestoreEvent rebuilds an Event from a record, rederiving its nid when the
// record names the event.
func RestoreEvent(rec Record) (*Event, error) {
	e, err := restore(rec, DefaultEvent)
	if err != nil {
		return nil, err
	}
	if e.Name != "" {
		e.Nid = e.Key()
	}
	return e, nil
}
