package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ComponentKind selects how a component's value is typed and which catalog,
// if any, it refers to.
type ComponentKind string

// Component value kinds.
const (
	KindFlag       ComponentKind = "flag"
	KindBool       ComponentKind = "bool"
	KindInt        ComponentKind = "int"
	KindFloat      ComponentKind = "float"
	KindString     ComponentKind = "string"
	KindWeaponType ComponentKind = "weapon_type"
	KindWeaponRank ComponentKind = "weapon_rank"
	KindSkill      ComponentKind = "skill"
	KindItem       ComponentKind = "item"
	KindItemList   ComponentKind = "item_list"
	KindTagList    ComponentKind = "tag_list"
	KindAffinity   ComponentKind = "affinity"
	KindRaw        ComponentKind = "raw"
)

// Target returns the catalog a reference kind points into.
func (k ComponentKind) Target() (CatalogKey, bool) {
	switch k {
	case KindWeaponType:
		return CatalogWeapons, true
	case KindWeaponRank:
		return CatalogWeaponRanks, true
	case KindSkill:
		return CatalogSkills, true
	case KindItem, KindItemList:
		return CatalogItems, true
	case KindTagList:
		return CatalogTags, true
	case KindAffinity:
		return CatalogAffinities, true
	default:
		return "", false
	}
}

// IsList reports whether the kind stores a list of identifiers.
func (k ComponentKind) IsList() bool {
	return k == KindItemList || k == KindTagList
}

// componentSchema lists the component nids this editor understands. Anything
// else is carried as KindRaw.
var componentSchema = map[string]ComponentKind{
	// item components
	"weapon":               KindFlag,
	"spell":                KindFlag,
	"usable":               KindFlag,
	"unrepairable":         KindFlag,
	"target_ally":          KindFlag,
	"target_enemy":         KindFlag,
	"promote":              KindFlag,
	"value":                KindInt,
	"uses":                 KindInt,
	"damage":               KindInt,
	"hit":                  KindInt,
	"crit":                 KindInt,
	"weight":               KindInt,
	"min_range":            KindInt,
	"max_range":            KindInt,
	"heal":                 KindInt,
	"exp":                  KindInt,
	"wexp":                 KindInt,
	"effective_multiplier": KindFloat,
	"desc":                 KindString,
	"map_hit_sfx":          KindString,
	"weapon_type":          KindWeaponType,
	"weapon_rank":          KindWeaponRank,
	"status_on_hit":        KindSkill,
	"status_on_equip":      KindSkill,
	"status_on_hold":       KindSkill,
	"multi_item":           KindItemList,
	"sequence_item":        KindItemList,
	"effective_tag":        KindTagList,
	"prf_affinity":         KindAffinity,
	// skill components
	"class_skill":  KindFlag,
	"hidden":       KindFlag,
	"negative":     KindFlag,
	"canto":        KindFlag,
	"vantage":      KindFlag,
	"permanent":    KindBool,
	"time":         KindInt,
	"aura_range":   KindInt,
	"aura":         KindSkill,
	"combat_art":   KindSkill,
	"ability":      KindItem,
	"protection":   KindTagList,
	"gain_skill":   KindSkill,
	"change_ai":    KindString,
	"unit_anim":    KindString,
	"upkeep_sound": KindString,
}

// ComponentKindOf returns the schema kind for a component nid; unknown nids are KindRaw.
func ComponentKindOf(nid string) ComponentKind {
	if kind, ok := componentSchema[nid]; ok {
		return kind
	}
	return KindRaw
}

// Component is one [nid, value] entry of an item or skill. Exactly one value
// field is meaningful, selected by Kind.
type Component struct {
	Nid   string
	Kind  ComponentKind
	Bool  bool
	Int   int
	Float float64
	// Value holds string and single-reference kinds.
	Value string
	// List holds list-reference kinds.
	List []string
	// Raw holds the verbatim value of a component this editor does not know.
	Raw json.RawMessage
}

// NewComponent returns a component carrying the default value for its schema kind.
func NewComponent(nid string) Component {
	c := Component{Nid: nid, Kind: ComponentKindOf(nid)}
	if c.Kind.IsList() {
		c.List = []string{}
	}
	return c
}

func (c Component) value() (any, error) {
	switch c.Kind {
	case KindFlag:
		return nil, nil
	case KindBool:
		return c.Bool, nil
	case KindInt:
		return c.Int, nil
	case KindFloat:
		return c.Float, nil
	case KindString, KindWeaponType, KindWeaponRank, KindSkill, KindItem, KindAffinity:
		return c.Value, nil
	case KindItemList, KindTagList:
		if c.List == nil {
			return []string{}, nil
		}
		return c.List, nil
	case KindRaw:
		if len(c.Raw) == 0 {
			return nil, nil
		}
		return c.Raw, nil
	default:
		return nil, fmt.Errorf("component %q: unknown kind %q", c.Nid, c.Kind)
	}
}

// MarshalJSON writes [nid, value].
func (c Component) MarshalJSON() ([]byte, error) {
	v, err := c.value()
	if err != nil {
		return nil, err
	}
	return json.Marshal([2]any{c.Nid, v})
}

// UnmarshalJSON reads [nid, value] or [nid]. The kind comes from the schema,
// so the stored value is coerced to it; absent values take the kind default.
func (c *Component) UnmarshalJSON(data []byte) error {
	elems, err := decodeTuple(data)
	if err != nil {
		return fmt.Errorf("component: %w", err)
	}
	nid, err := decodeString(element(elems, 0))
	if err != nil {
		return fmt.Errorf("component: %w", err)
	}
	out := NewComponent(nid)
	raw := element(elems, 1)
	switch out.Kind {
	case KindFlag:
	case KindBool:
		out.Bool, err = decodeBool(raw)
	case KindInt:
		out.Int, err = decodeInt(raw)
	case KindFloat:
		if len(raw) > 0 && !isNull(raw) {
			err = json.Unmarshal(raw, &out.Float)
		}
	case KindString, KindWeaponType, KindWeaponRank, KindSkill, KindItem, KindAffinity:
		out.Value, err = decodeString(raw)
	case KindItemList, KindTagList:
		out.List, err = decodeStringList(raw)
	case KindRaw:
		if len(raw) > 0 && !isNull(raw) {
			var buf bytes.Buffer
			if err = json.Compact(&buf, raw); err == nil {
				out.Raw = json.RawMessage(buf.Bytes())
			}
		}
	}
	if err != nil {
		return fmt.Errorf("component %q: %w", nid, err)
	}
	*c = out
	return nil
}

// decodeStringList accepts a list of strings, a single string, or null.
func decodeStringList(raw json.RawMessage) ([]string, error) {
	if leading(raw) == '"' {
		s, err := decodeString(raw)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	elems, err := decodeTuple(raw)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		s, err := decodeString(e)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Components is the ordered component list of an item or skill.
type Components []Component

// Get returns the component named nid.
func (cs Components) Get(nid string) (Component, bool) {
	for _, c := range cs {
		if c.Nid == nid {
			return c, true
		}
	}
	return Component{}, false
}

// Has reports whether a component named nid is present.
func (cs Components) Has(nid string) bool {
	_, ok := cs.Get(nid)
	return ok
}

// Set replaces the component with the same nid, appending it when absent.
func (cs *Components) Set(c Component) {
	for i := range *cs {
		if (*cs)[i].Nid == c.Nid {
			(*cs)[i] = c
			return
		}
	}
	*cs = append(*cs, c)
}

// Delete removes the component named nid and reports whether it was present.
func (cs *Components) Delete(nid string) bool {
	for i := range *cs {
		if (*cs)[i].Nid == nid {
			*cs = append((*cs)[:i], (*cs)[i+1:]...)
			return true
		}
	}
	return false
}

// ForEachRef yields a pointer to every identifier a component of the given
// kind holds. The pointers alias the component list so writes are visible to
// the owning entity.
func (cs Components) ForEachRef(kind ComponentKind, fn func(*string)) {
	for i := range cs {
		c := &cs[i]
		if c.Kind != kind {
			continue
		}
		if kind.IsList() {
			for j := range c.List {
				fn(&c.List[j])
			}
			continue
		}
		fn(&c.Value)
	}
}
