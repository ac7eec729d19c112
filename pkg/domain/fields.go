package domain

import (
	"encoding/json"
	"fmt"
)

// StatValue is a single stat → value entry.
type StatValue struct {
	Stat  string
	Value int
}

// StatMap is an ordered mapping from stat nid to value. It persists as a list
// of [stat, value] pairs; projects written by older editors stored a JSON
// object instead, which is accepted with its key order preserved.
type StatMap []StatValue

// Get returns the value stored for stat.
func (m StatMap) Get(stat string) (int, bool) {
	for _, sv := range m {
		if sv.Stat == stat {
			return sv.Value, true
		}
	}
	return 0, false
}

// Set replaces the value for stat, appending it when absent.
func (m *StatMap) Set(stat string, value int) {
	for i := range *m {
		if (*m)[i].Stat == stat {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, StatValue{Stat: stat, Value: value})
}

// MarshalJSON writes the map as [[stat, value], ...].
func (m StatMap) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, 0, len(m))
	for _, sv := range m {
		pairs = append(pairs, [2]any{sv.Stat, sv.Value})
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON accepts the pair list, a legacy object, or null.
func (m *StatMap) UnmarshalJSON(data []byte) error {
	out := StatMap{}
	switch leading(data) {
	case 'n':
	case '{':
		err := decodeObjectInOrder(data, func(key string, raw json.RawMessage) error {
			v, err := decodeInt(raw)
			if err != nil {
				return err
			}
			out = append(out, StatValue{Stat: key, Value: v})
			return nil
		})
		if err != nil {
			return fmt.Errorf("stat map: %w", err)
		}
	default:
		var pairs []json.RawMessage
		if err := json.Unmarshal(data, &pairs); err != nil {
			return fmt.Errorf("stat map: %w", err)
		}
		for _, p := range pairs {
			elems, err := decodeTuple(p)
			if err != nil {
				return fmt.Errorf("stat map: %w", err)
			}
			stat, err := decodeString(element(elems, 0))
			if err != nil {
				return fmt.Errorf("stat map: %w", err)
			}
			v, err := decodeInt(element(elems, 1))
			if err != nil {
				return fmt.Errorf("stat map %q: %w", stat, err)
			}
			out = append(out, StatValue{Stat: stat, Value: v})
		}
	}
	*m = out
	return nil
}

// ItemGrant is an item handed to a unit, optionally droppable on defeat.
type ItemGrant struct {
	Item      string
	Droppable bool
}

// ItemGrants persists as [[item, droppable], ...]. A legacy flat list of item
// nids restores as non-droppable grants.
type ItemGrants []ItemGrant

// MarshalJSON writes [[item, droppable], ...].
func (g ItemGrants) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, 0, len(g))
	for _, ig := range g {
		pairs = append(pairs, [2]any{ig.Item, ig.Droppable})
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON accepts pairs, bare item nids, or a mix of both.
func (g *ItemGrants) UnmarshalJSON(data []byte) error {
	elems, err := decodeTuple(data)
	if err != nil {
		return fmt.Errorf("item grants: %w", err)
	}
	out := make(ItemGrants, 0, len(elems))
	for _, raw := range elems {
		if leading(raw) == '"' {
			item, err := decodeString(raw)
			if err != nil {
				return fmt.Errorf("item grants: %w", err)
			}
			out = append(out, ItemGrant{Item: item})
			continue
		}
		pair, err := decodeTuple(raw)
		if err != nil {
			return fmt.Errorf("item grants: %w", err)
		}
		item, err := decodeString(element(pair, 0))
		if err != nil {
			return fmt.Errorf("item grants: %w", err)
		}
		droppable, err := decodeBool(element(pair, 1))
		if err != nil {
			return fmt.Errorf("item grants %q: %w", item, err)
		}
		out = append(out, ItemGrant{Item: item, Droppable: droppable})
	}
	*g = out
	return nil
}

// Items returns the granted item nids in order.
func (g ItemGrants) Items() []string {
	out := make([]string, 0, len(g))
	for _, ig := range g {
		out = append(out, ig.Item)
	}
	return out
}

// SkillGrant is a skill learned at a given level.
type SkillGrant struct {
	Level int
	Skill string
}

// SkillGrants persists as [[level, skill], ...]. A bare skill nid restores as
// learned at level 1.
type SkillGrants []SkillGrant

// MarshalJSON writes [[level, skill], ...].
func (g SkillGrants) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, 0, len(g))
	for _, sg := range g {
		pairs = append(pairs, [2]any{sg.Level, sg.Skill})
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON accepts [level, skill] pairs or bare skill nids.
func (g *SkillGrants) UnmarshalJSON(data []byte) error {
	elems, err := decodeTuple(data)
	if err != nil {
		return fmt.Errorf("skill grants: %w", err)
	}
	out := make(SkillGrants, 0, len(elems))
	for _, raw := range elems {
		if leading(raw) == '"' {
			skill, err := decodeString(raw)
			if err != nil {
				return fmt.Errorf("skill grants: %w", err)
			}
			out = append(out, SkillGrant{Level: 1, Skill: skill})
			continue
		}
		pair, err := decodeTuple(raw)
		if err != nil {
			return fmt.Errorf("skill grants: %w", err)
		}
		level, err := decodeInt(element(pair, 0))
		if err != nil {
			return fmt.Errorf("skill grants: %w", err)
		}
		skill, err := decodeString(element(pair, 1))
		if err != nil {
			return fmt.Errorf("skill grants: %w", err)
		}
		out = append(out, SkillGrant{Level: level, Skill: skill})
	}
	*g = out
	return nil
}

// Pair is a fixed two-int tuple such as a map position or icon index.
type Pair [2]int

// UnmarshalJSON pads short arrays with zero, truncates long ones and maps null to the zero pair.
func (p *Pair) UnmarshalJSON(data []byte) error {
	vals, err := decodeInts(data, len(p))
	if err != nil {
		return fmt.Errorf("pair: %w", err)
	}
	copy(p[:], vals)
	return nil
}

// Triple is a fixed three-int tuple, used for RGB colours.
type Triple [3]int

// UnmarshalJSON pads short arrays with zero, truncates long ones and maps null to the zero triple.
func (t *Triple) UnmarshalJSON(data []byte) error {
	vals, err := decodeInts(data, len(t))
	if err != nil {
		return fmt.Errorf("triple: %w", err)
	}
	copy(t[:], vals)
	return nil
}

func decodeInts(data []byte, arity int) ([]int, error) {
	elems, err := decodeTuple(data)
	if err != nil {
		return nil, err
	}
	out := make([]int, arity)
	for i := 0; i < arity && i < len(elems); i++ {
		v, err := decodeInt(elems[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// OptionalPosition is a map position that may be unset (null).
type OptionalPosition = *Pair

// Position returns an OptionalPosition for x, y.
func Position(x, y int) OptionalPosition {
	return &Pair{x, y}
}

// WexpGain describes how a class or unit gains experience with one weapon type.
type WexpGain struct {
	Usable bool
	Gain   int
	Cap    int
}

// WeaponExp pairs a weapon type nid with its WexpGain.
type WeaponExp struct {
	Weapon string
	WexpGain
}

// WexpGains is an ordered mapping weapon type → WexpGain. It persists as
// [[weapon, usable, gain, cap], ...]; legacy objects whose values are
// [usable, gain] arrays or {usable, wexp_gain, cap} objects are accepted.
type WexpGains []WeaponExp

// Get returns the gain recorded for weapon.
func (w WexpGains) Get(weapon string) (WexpGain, bool) {
	for _, we := range w {
		if we.Weapon == weapon {
			return we.WexpGain, true
		}
	}
	return WexpGain{}, false
}

// MarshalJSON writes [[weapon, usable, gain, cap], ...].
func (w WexpGains) MarshalJSON() ([]byte, error) {
	rows := make([][4]any, 0, len(w))
	for _, we := range w {
		rows = append(rows, [4]any{we.Weapon, we.Usable, we.Gain, we.Cap})
	}
	return json.Marshal(rows)
}

// UnmarshalJSON accepts the row list or a legacy object keyed by weapon type.
func (w *WexpGains) UnmarshalJSON(data []byte) error {
	out := WexpGains{}
	switch leading(data) {
	case 'n':
	case '{':
		err := decodeObjectInOrder(data, func(key string, raw json.RawMessage) error {
			gain, err := decodeWexpGain(raw)
			if err != nil {
				return err
			}
			out = append(out, WeaponExp{Weapon: key, WexpGain: gain})
			return nil
		})
		if err != nil {
			return fmt.Errorf("wexp gains: %w", err)
		}
	default:
		rows, err := decodeTuple(data)
		if err != nil {
			return fmt.Errorf("wexp gains: %w", err)
		}
		for _, raw := range rows {
			elems, err := decodeTuple(raw)
			if err != nil {
				return fmt.Errorf("wexp gains: %w", err)
			}
			weapon, err := decodeString(element(elems, 0))
			if err != nil {
				return fmt.Errorf("wexp gains: %w", err)
			}
			var gain WexpGain
			if len(elems) > 1 {
				rest, err := json.Marshal(elems[1:])
				if err != nil {
					return err
				}
				if gain, err = decodeWexpGain(rest); err != nil {
					return fmt.Errorf("wexp gains %q: %w", weapon, err)
				}
			}
			out = append(out, WeaponExp{Weapon: weapon, WexpGain: gain})
		}
	}
	*w = out
	return nil
}

func decodeWexpGain(raw json.RawMessage) (WexpGain, error) {
	var gain WexpGain
	var err error
	if leading(raw) == '{' {
		var obj struct {
			Usable   json.RawMessage `json:"usable"`
			WexpGain json.RawMessage `json:"wexp_gain"`
			Cap      json.RawMessage `json:"cap"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return gain, err
		}
		if gain.Usable, err = decodeBool(obj.Usable); err != nil {
			return gain, err
		}
		if gain.Gain, err = decodeInt(obj.WexpGain); err != nil {
			return gain, err
		}
		gain.Cap, err = decodeInt(obj.Cap)
		return gain, err
	}
	elems, err := decodeTuple(raw)
	if err != nil {
		return gain, err
	}
	if gain.Usable, err = decodeBool(element(elems, 0)); err != nil {
		return gain, err
	}
	if gain.Gain, err = decodeInt(element(elems, 1)); err != nil {
		return gain, err
	}
	gain.Cap, err = decodeInt(element(elems, 2))
	return gain, err
}

// Field is a free-form key/value string pair.
type Field struct {
	Key   string
	Value string
}

// Fields persists as [[key, value], ...]; a legacy object is accepted in key order.
type Fields []Field

// Get returns the value stored under key.
func (f Fields) Get(key string) (string, bool) {
	for _, fv := range f {
		if fv.Key == key {
			return fv.Value, true
		}
	}
	return "", false
}

// MarshalJSON writes [[key, value], ...].
func (f Fields) MarshalJSON() ([]byte, error) {
	pairs := make([][2]string, 0, len(f))
	for _, fv := range f {
		pairs = append(pairs, [2]string{fv.Key, fv.Value})
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON accepts the pair list, a legacy object, or null.
func (f *Fields) UnmarshalJSON(data []byte) error {
	out := Fields{}
	switch leading(data) {
	case 'n':
	case '{':
		err := decodeObjectInOrder(data, func(key string, raw json.RawMessage) error {
			v, err := decodeString(raw)
			if err != nil {
				return err
			}
			out = append(out, Field{Key: key, Value: v})
			return nil
		})
		if err != nil {
			return fmt.Errorf("fields: %w", err)
		}
	default:
		pairs, err := decodeTuple(data)
		if err != nil {
			return fmt.Errorf("fields: %w", err)
		}
		for _, raw := range pairs {
			elems, err := decodeTuple(raw)
			if err != nil {
				return fmt.Errorf("fields: %w", err)
			}
			key, err := decodeString(element(elems, 0))
			if err != nil {
				return fmt.Errorf("fields: %w", err)
			}
			value, err := decodeString(element(elems, 1))
			if err != nil {
				return fmt.Errorf("fields %q: %w", key, err)
			}
			out = append(out, Field{Key: key, Value: value})
		}
	}
	*f = out
	return nil
}
