package domain

import (
	"encoding/json"
	"fmt"
)

// TargetKind selects what a behaviour's TargetSpec value identifies.
type TargetKind string

// Target spec kinds.
const (
	TargetAll     TargetKind = "All"
	TargetClass   TargetKind = "Class"
	TargetTag     TargetKind = "Tag"
	TargetName    TargetKind = "Name"
	TargetFaction TargetKind = "Faction"
	TargetParty   TargetKind = "Party"
	TargetTeam    TargetKind = "Team"
	TargetID      TargetKind = "ID"
)

// Target returns the catalog a kind's value refers to. All and ID refer to none.
func (k TargetKind) Target() (CatalogKey, bool) {
	switch k {
	case TargetClass:
		return CatalogClasses, true
	case TargetTag:
		return CatalogTags, true
	case TargetName:
		return CatalogUnits, true
	case TargetFaction:
		return CatalogFactions, true
	case TargetParty:
		return CatalogParties, true
	case TargetTeam:
		return CatalogTeams, true
	default:
		return "", false
	}
}

// TargetSpec narrows a behaviour's targets. The zero value means unset and
// persists as null; otherwise it persists as [kind, value].
type TargetSpec struct {
	Kind  TargetKind
	Value string
}

// MarshalJSON writes null or [kind, value]; All carries a null value.
func (t TargetSpec) MarshalJSON() ([]byte, error) {
	if t.Kind == "" {
		return []byte("null"), nil
	}
	if t.Kind == TargetAll {
		return json.Marshal([2]any{t.Kind, nil})
	}
	return json.Marshal([2]any{t.Kind, t.Value})
}

// UnmarshalJSON accepts null, [kind, value], [kind] or a bare kind string.
func (t *TargetSpec) UnmarshalJSON(data []byte) error {
	var out TargetSpec
	switch leading(data) {
	case 'n':
	case '"':
		kind, err := decodeString(data)
		if err != nil {
			return fmt.Errorf("target spec: %w", err)
		}
		out.Kind = TargetKind(kind)
	default:
		elems, err := decodeTuple(data)
		if err != nil {
			return fmt.Errorf("target spec: %w", err)
		}
		kind, err := decodeString(element(elems, 0))
		if err != nil {
			return fmt.Errorf("target spec: %w", err)
		}
		value, err := decodeString(element(elems, 1))
		if err != nil {
			return fmt.Errorf("target spec %q: %w", kind, err)
		}
		out = TargetSpec{Kind: TargetKind(kind), Value: value}
	}
	if out.Kind == TargetAll {
		out.Value = ""
	}
	*t = out
	return nil
}

// Behaviour is one step of an AI script.
type Behaviour struct {
	Action          string     `json:"action"`
	Target          string     `json:"target"`
	TargetSpec      TargetSpec `json:"target_spec"`
	ViewRange       int        `json:"view_range"`
	InvertTargeting bool       `json:"invert_targeting"`
}

// AI is an ordered list of behaviours evaluated each enemy phase.
type AI struct {
	Nid         string      `json:"nid"`
	Priority    int         `json:"priority"`
	OffenseBias float64     `json:"offense_bias"`
	Behaviours  []Behaviour `json:"behaviours"`
}

func (a *AI) NID() string           { return a.Nid }
func (a *AI) SetNID(nid string)     { a.Nid = nid }
func (a *AI) Save() (Record, error) { return save(a) }

// DefaultAI returns an AI with three idle behaviours.
func DefaultAI(nid string) *AI {
	behaviours := make([]Behaviour, 3)
	for i := range behaviours {
		behaviours[i] = Behaviour{Action: "None", Target: "None", ViewRange: -1}
	}
	return &AI{Nid: nid, OffenseBias: 2, Behaviours: behaviours}
}

// RestoreAI rebuilds an AI from a record.
func RestoreAI(rec Record) (*AI, error) { return restore(rec, DefaultAI) }
