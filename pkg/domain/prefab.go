package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Record is the persisted form of a single entity: one JSON document.
type Record = json.RawMessage

// ErrMissingNID reports a record that carries no nid and therefore cannot be restored.
var ErrMissingNID = errors.New("record has no nid")

// Prefab is the contract every catalog entity implements. NID and SetNID expose
// the unique key; Save produces the entity's Record. The inverse direction is a
// per-type Restore function collected in a Schema.
type Prefab interface {
	NID() string
	SetNID(nid string)
	Save() (Record, error)
}

// Schema bundles the constructors a catalog needs for one entity type.
type Schema[T Prefab] struct {
	// Default returns a freshly allocated entity carrying documented defaults.
	Default func(nid string) T
	// Restore rebuilds an entity from a Record, tolerating legacy shapes.
	Restore func(rec Record) (T, error)
}

// CatalogKey names one catalog of the project database.
type CatalogKey string

// Catalog keys in save-file order.
const (
	CatalogConstants       CatalogKey = "constants"
	CatalogStats           CatalogKey = "stats"
	CatalogEquations       CatalogKey = "equations"
	CatalogTags            CatalogKey = "tags"
	CatalogTeams           CatalogKey = "teams"
	CatalogWeaponRanks     CatalogKey = "weapon_ranks"
	CatalogWeapons         CatalogKey = "weapons"
	CatalogFactions        CatalogKey = "factions"
	CatalogAffinities      CatalogKey = "affinities"
	CatalogSupportRanks    CatalogKey = "support_ranks"
	CatalogTerrain         CatalogKey = "terrain"
	CatalogSkills          CatalogKey = "skills"
	CatalogItems           CatalogKey = "items"
	CatalogClasses         CatalogKey = "classes"
	CatalogUnits           CatalogKey = "units"
	CatalogSupportPairs    CatalogKey = "support_pairs"
	CatalogAI              CatalogKey = "ai"
	CatalogParties         CatalogKey = "parties"
	CatalogDifficultyModes CatalogKey = "difficulty_modes"
	CatalogLevels          CatalogKey = "levels"
	CatalogOverworlds      CatalogKey = "overworlds"
	CatalogEvents          CatalogKey = "events"
	CatalogLore            CatalogKey = "lore"
	CatalogTranslations    CatalogKey = "translations"
)

// CatalogKeys returns every catalog key in save-file order.
func CatalogKeys() []CatalogKey {
	return []CatalogKey{
		CatalogConstants, CatalogStats, CatalogEquations, CatalogTags, CatalogTeams,
		CatalogWeaponRanks, CatalogWeapons, CatalogFactions, CatalogAffinities,
		CatalogSupportRanks, CatalogTerrain, CatalogSkills, CatalogItems, CatalogClasses,
		CatalogUnits, CatalogSupportPairs, CatalogAI, CatalogParties, CatalogDifficultyModes,
		CatalogLevels, CatalogOverworlds, CatalogEvents, CatalogLore, CatalogTranslations,
	}
}

// save marshals a plain struct entity.
func save(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Record(data), nil
}

// restore decodes rec on top of a default entity so that absent fields keep
// their default values. The nid must be present.
func restore[T Prefab](rec Record, dflt func(string) T) (T, error) {
	var zero T
	var probe struct {
		Nid *string `json:"nid"`
	}
	if err := json.Unmarshal(rec, &probe); err != nil {
		return zero, fmt.Errorf("decode record: %w", err)
	}
	if probe.Nid == nil {
		return zero, ErrMissingNID
	}
	entity := dflt(*probe.Nid)
	if err := json.Unmarshal(rec, entity); err != nil {
		return zero, fmt.Errorf("decode %q: %w", *probe.Nid, err)
	}
	return entity, nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// leading reports the first non-space byte of a JSON value.
func leading(data []byte) byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

// decodeInt accepts integers, floats (truncated), numeric strings and null (zero).
func decodeInt(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || isNull(raw) {
		return 0, nil
	}
	var n json.Number
	if leading(raw) == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		if s == "" {
			return 0, nil
		}
		n = json.Number(s)
	} else if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("expected number, got %s", raw)
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("expected number, got %s", raw)
	}
	return int(f), nil
}

// decodeString accepts strings and null (empty).
func decodeString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected string, got %s", raw)
	}
	return s, nil
}

// decodeBool accepts booleans, null (false) and 0/1 integers written by old tools.
func decodeBool(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 || isNull(raw) {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	n, err := decodeInt(raw)
	if err != nil {
		return false, fmt.Errorf("expected bool, got %s", raw)
	}
	return n != 0, nil
}

// decodeTuple splits a JSON array into its elements. null yields no elements.
func decodeTuple(raw json.RawMessage) ([]json.RawMessage, error) {
	if len(raw) == 0 || isNull(raw) {
		return nil, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("expected array, got %s", raw)
	}
	return elems, nil
}

func element(elems []json.RawMessage, i int) json.RawMessage {
	if i < len(elems) {
		return elems[i]
	}
	return nil
}

// decodeObjectInOrder walks a JSON object calling fn for every member in document order.
func decodeObjectInOrder(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("member %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return fmt.Errorf("member %q: %w", key, err)
		}
	}
	_, err = dec.Token()
	return err
}
