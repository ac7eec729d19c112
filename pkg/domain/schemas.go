package domain

// Schemas for every entity type, ready to hand to a catalog.
var (
	ConstantSchema       = Schema[*Constant]{Default: DefaultConstant, Restore: RestoreConstant}
	StatSchema           = Schema[*Stat]{Default: DefaultStat, Restore: RestoreStat}
	EquationSchema       = Schema[*Equation]{Default: DefaultEquation, Restore: RestoreEquation}
	TagSchema            = Schema[*Tag]{Default: DefaultTag, Restore: RestoreTag}
	TeamSchema           = Schema[*Team]{Default: DefaultTeam, Restore: RestoreTeam}
	WeaponRankSchema     = Schema[*WeaponRank]{Default: DefaultWeaponRank, Restore: RestoreWeaponRank}
	WeaponTypeSchema     = Schema[*WeaponType]{Default: DefaultWeaponType, Restore: RestoreWeaponType}
	FactionSchema        = Schema[*Faction]{Default: DefaultFaction, Restore: RestoreFaction}
	AffinitySchema       = Schema[*Affinity]{Default: DefaultAffinity, Restore: RestoreAffinity}
	SupportRankSchema    = Schema[*SupportRank]{Default: DefaultSupportRank, Restore: RestoreSupportRank}
	TerrainSchema        = Schema[*Terrain]{Default: DefaultTerrain, Restore: RestoreTerrain}
	SkillSchema          = Schema[*Skill]{Default: DefaultSkill, Restore: RestoreSkill}
	ItemSchema           = Schema[*Item]{Default: DefaultItem, Restore: RestoreItem}
	ClassSchema          = Schema[*Class]{Default: DefaultClass, Restore: RestoreClass}
	UnitSchema           = Schema[*Unit]{Default: DefaultUnit, Restore: RestoreUnit}
	SupportPairSchema    = Schema[*SupportPair]{Default: DefaultSupportPair, Restore: RestoreSupportPair}
	AISchema             = Schema[*AI]{Default: DefaultAI, Restore: RestoreAI}
	PartySchema          = Schema[*Party]{Default: DefaultParty, Restore: RestoreParty}
	DifficultyModeSchema = Schema[*DifficultyMode]{Default: DefaultDifficultyMode, Restore: RestoreDifficultyMode}
	LevelSchema          = Schema[*Level]{Default: DefaultLevel, Restore: RestoreLevel}
	OverworldSchema      = Schema[*Overworld]{Default: DefaultOverworld, Restore: RestoreOverworld}
	EventSchema          = Schema[*Event]{Default: DefaultEvent, Restore: RestoreEvent}
	LoreSchema           = Schema[*Lore]{Default: DefaultLore, Restore: RestoreLore}
	TranslationSchema    = Schema[*Translation]{Default: DefaultTranslation, Restore: RestoreTranslation}
)
