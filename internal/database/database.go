// Package database owns the fixed set of catalogs that make up a game
// project, the reference registry that ties them together, and whole-project
// persistence. A Database is an explicit value: construct one per open
// project, mutate it from a single goroutine, serialize it and Close it.
package database

import (
	"errors"
	"fmt"
	"log/slog"

	"tacticsdb/internal/cascade"
	"tacticsdb/internal/catalog"
	"tacticsdb/internal/observe"
	"tacticsdb/pkg/domain"
)

// ErrClosed is returned by operations on a closed Database.
var ErrClosed = errors.New("database closed")

// DefaultWriteConcurrency bounds parallel catalog file writes.
const DefaultWriteConcurrency = 4

// Option configures a Database.
type Option func(*settings)

type settings struct {
	logger           *slog.Logger
	recorder         observe.Recorder
	tracer           observe.Tracer
	format           Format
	writeConcurrency int
	empty            bool
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec observe.Recorder) Option {
	return func(s *settings) {
		if rec != nil {
			s.recorder = rec
		}
	}
}

// WithTracer sets the span tracer.
func WithTracer(tr observe.Tracer) Option {
	return func(s *settings) {
		if tr != nil {
			s.tracer = tr
		}
	}
}

// WithFormat selects the on-disk catalog encoding.
func WithFormat(f Format) Option {
	return func(s *settings) { s.format = f }
}

// WithWriteConcurrency bounds how many catalog files Serialize writes at once.
func WithWriteConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.writeConcurrency = n
		}
	}
}

// WithoutSeeds starts every catalog empty instead of with project defaults.
func WithoutSeeds() Option {
	return func(s *settings) { s.empty = true }
}

// Database is the catalog set of one project.
type Database struct {
	Constants       *catalog.Catalog[*domain.Constant]
	Stats           *catalog.Catalog[*domain.Stat]
	Equations       *catalog.Catalog[*domain.Equation]
	Tags            *catalog.Catalog[*domain.Tag]
	Teams           *catalog.Catalog[*domain.Team]
	WeaponRanks     *catalog.Catalog[*domain.WeaponRank]
	Weapons         *catalog.Catalog[*domain.WeaponType]
	Factions        *catalog.Catalog[*domain.Faction]
	Affinities      *catalog.Catalog[*domain.Affinity]
	SupportRanks    *catalog.Catalog[*domain.SupportRank]
	Terrain         *catalog.Catalog[*domain.Terrain]
	Skills          *catalog.Catalog[*domain.Skill]
	Items           *catalog.Catalog[*domain.Item]
	Classes         *catalog.Catalog[*domain.Class]
	Units           *catalog.Catalog[*domain.Unit]
	SupportPairs    *catalog.Catalog[*domain.SupportPair]
	AI              *catalog.Catalog[*domain.AI]
	Parties         *catalog.Catalog[*domain.Party]
	DifficultyModes *catalog.Catalog[*domain.DifficultyMode]
	Levels          *catalog.Catalog[*domain.Level]
	Overworlds      *catalog.Catalog[*domain.Overworld]
	Events          *catalog.Catalog[*domain.Event]
	Lore            *catalog.Catalog[*domain.Lore]
	Translations    *catalog.Catalog[*domain.Translation]

	tables map[domain.CatalogKey]catalog.Table
	order  []domain.CatalogKey
	engine *cascade.Engine

	logger           *slog.Logger
	recorder         observe.Recorder
	tracer           observe.Tracer
	format           Format
	writeConcurrency int
	closed           bool
}

// New returns a Database holding every catalog, seeded with project defaults
// unless WithoutSeeds is given.
func New(opts ...Option) *Database {
	s := settings{
		logger:           slog.Default(),
		recorder:         observe.NopRecorder{},
		tracer:           observe.NopTracer{},
		format:           FormatJSON,
		writeConcurrency: DefaultWriteConcurrency,
	}
	for _, opt := range opts {
		opt(&s)
	}
	db := &Database{
		Constants:       catalog.New(domain.CatalogConstants, domain.ConstantSchema),
		Stats:           catalog.New(domain.CatalogStats, domain.StatSchema),
		Equations:       catalog.New(domain.CatalogEquations, domain.EquationSchema),
		Tags:            catalog.New(domain.CatalogTags, domain.TagSchema),
		Teams:           catalog.New(domain.CatalogTeams, domain.TeamSchema, catalog.WithMinCount(1)),
		WeaponRanks:     catalog.New(domain.CatalogWeaponRanks, domain.WeaponRankSchema),
		Weapons:         catalog.New(domain.CatalogWeapons, domain.WeaponTypeSchema),
		Factions:        catalog.New(domain.CatalogFactions, domain.FactionSchema),
		Affinities:      catalog.New(domain.CatalogAffinities, domain.AffinitySchema),
		SupportRanks:    catalog.New(domain.CatalogSupportRanks, domain.SupportRankSchema),
		Terrain:         catalog.New(domain.CatalogTerrain, domain.TerrainSchema),
		Skills:          catalog.New(domain.CatalogSkills, domain.SkillSchema),
		Items:           catalog.New(domain.CatalogItems, domain.ItemSchema),
		Classes:         catalog.New(domain.CatalogClasses, domain.ClassSchema),
		Units:           catalog.New(domain.CatalogUnits, domain.UnitSchema),
		SupportPairs:    catalog.New(domain.CatalogSupportPairs, domain.SupportPairSchema),
		AI:              catalog.New(domain.CatalogAI, domain.AISchema),
		Parties:         catalog.New(domain.CatalogParties, domain.PartySchema, catalog.WithMinCount(1)),
		DifficultyModes: catalog.New(domain.CatalogDifficultyModes, domain.DifficultyModeSchema),
		Levels:          catalog.New(domain.CatalogLevels, domain.LevelSchema, catalog.WithMinCount(1), catalog.WithNumericKeys()),
		Overworlds:      catalog.New(domain.CatalogOverworlds, domain.OverworldSchema),
		Events:          catalog.New(domain.CatalogEvents, domain.EventSchema),
		Lore:            catalog.New(domain.CatalogLore, domain.LoreSchema),
		Translations:    catalog.New(domain.CatalogTranslations, domain.TranslationSchema),

		logger:           s.logger,
		recorder:         s.recorder,
		tracer:           s.tracer,
		format:           s.format,
		writeConcurrency: s.writeConcurrency,
	}
	db.order = domain.CatalogKeys()
	db.tables = make(map[domain.CatalogKey]catalog.Table, len(db.order))
	for _, t := range db.all() {
		db.tables[t.Key()] = t
	}
	db.engine = cascade.NewEngine(db, NewRegistry())
	if !s.empty {
		seed(db)
	}
	return db
}

// all lists the catalogs in save order.
func (db *Database) all() []catalog.Table {
	return []catalog.Table{
		db.Constants, db.Stats, db.Equations, db.Tags, db.Teams, db.WeaponRanks,
		db.Weapons, db.Factions, db.Affinities, db.SupportRanks, db.Terrain,
		db.Skills, db.Items, db.Classes, db.Units, db.SupportPairs, db.AI,
		db.Parties, db.DifficultyModes, db.Levels, db.Overworlds, db.Events,
		db.Lore, db.Translations,
	}
}

// Table returns the catalog stored under key.
func (db *Database) Table(key domain.CatalogKey) (catalog.Table, bool) {
	t, ok := db.tables[key]
	return t, ok
}

// Order returns the catalog keys in save order.
func (db *Database) Order() []domain.CatalogKey {
	return append([]domain.CatalogKey(nil), db.order...)
}

// Registry returns the reference registry cascades run against.
func (db *Database) Registry() *cascade.Registry { return db.engine.Registry() }

// Format returns the configured on-disk encoding.
func (db *Database) Format() Format { return db.format }

// Logger returns the database logger.
func (db *Database) Logger() *slog.Logger { return db.logger }

// Counts returns the number of entities per catalog in save order.
func (db *Database) Counts() []CatalogCount {
	out := make([]CatalogCount, 0, len(db.order))
	for _, key := range db.order {
		out = append(out, CatalogCount{Catalog: key, Len: db.tables[key].Len()})
	}
	return out
}

// CatalogCount is one row of Counts.
type CatalogCount struct {
	Catalog domain.CatalogKey
	Len     int
}

// Close tears the database down. Later calls return ErrClosed.
func (db *Database) Close() error {
	if db.closed {
		return ErrClosed
	}
	db.closed = true
	db.logger.Debug("database closed")
	return nil
}

func (db *Database) checkOpen() error {
	if db.closed {
		return ErrClosed
	}
	return nil
}

func (db *Database) table(key domain.CatalogKey) (catalog.Table, error) {
	t, ok := db.tables[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", cascade.ErrUnknownCatalog, key)
	}
	return t, nil
}
