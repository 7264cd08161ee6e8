package conquest

// UnitType names a kind of unit stack.
type UnitType string

const (
	Infantry  UnitType = "infantry"
	Cavalry   UnitType = "cavalry"
	Artillery UnitType = "artillery"
)

// Building names.
const (
	Farm     = "farm"
	Fortress = "fortress"
	Barracks = "barracks"
)

// UnitSpec holds the per-type constants of a unit. Cost and Upkeep are per
// point of strength.
type UnitSpec struct {
	Cost       Resources
	BuildTicks int
	Speed      float64 // movement progress gained per tick, out of 100
	Power      float64 // combat coefficient per point of strength
	Upkeep     float64 // food per point of strength per tick
}

// BuildingSpec holds the cost and duration of one construction level.
type BuildingSpec struct {
	Cost     Resources
	Ticks    int
	MaxLevel int
}

// Rules is the full constant set of one simulation. A Registry copies it at
// construction and never changes it.
type Rules struct {
	TicksPerDay         int
	TaxPerProvince      float64
	ManpowerPerProvince float64
	BaseRates           map[ResourceType]float64
	Units               map[UnitType]UnitSpec
	Buildings           map[string]BuildingSpec
	DefaultRelation     Relation

	PostConquestMorale   float64
	MoraleRecovery       float64
	DeficitMoralePenalty float64

	FarmBonus     float64 // production multiplier per farm level
	FortressBonus float64 // defending power multiplier per fortress level

	CombatDamage    float64 // winner health loss at equal-ish power
	StalemateDamage float64 // health loss for both sides on a draw

	StartingStrength  int
	StartingResources Resources
}

// DefaultRules returns the rule set used by the server unless overridden by
// configuration. One tick is one simulated hour.
func DefaultRules() Rules {
	return Rules{
		TicksPerDay:         24,
		TaxPerProvince:      5,
		ManpowerPerProvince: 2,
		BaseRates: map[ResourceType]float64{
			Food:      20,
			Materials: 10,
			Energy:    8,
		},
		Units: map[UnitType]UnitSpec{
			Infantry:  {Cost: Resources{Money: 2, Manpower: 1}, BuildTicks: 6, Speed: 25, Power: 1.0, Upkeep: 0.02},
			Cavalry:   {Cost: Resources{Money: 4, Manpower: 1, Food: 1}, BuildTicks: 10, Speed: 50, Power: 1.5, Upkeep: 0.04},
			Artillery: {Cost: Resources{Money: 6, Manpower: 1, Materials: 3}, BuildTicks: 16, Speed: 20, Power: 2.0, Upkeep: 0.03},
		},
		Buildings: map[string]BuildingSpec{
			Farm:     {Cost: Resources{Money: 100, Materials: 50}, Ticks: 24, MaxLevel: 3},
			Fortress: {Cost: Resources{Money: 150, Materials: 120}, Ticks: 48, MaxLevel: 3},
			Barracks: {Cost: Resources{Money: 120, Materials: 80}, Ticks: 36, MaxLevel: 3},
		},
		DefaultRelation:      RelationWar,
		PostConquestMorale:   40,
		MoraleRecovery:       1,
		DeficitMoralePenalty: 2,
		FarmBonus:            0.1,
		FortressBonus:        0.25,
		CombatDamage:         50,
		StalemateDamage:      10,
		StartingStrength:     100,
		StartingResources:    Resources{Money: 500, Food: 500, Materials: 200, Energy: 100, Manpower: 300},
	}
}

func (r Rules) unit(t UnitType) (UnitSpec, bool) {
	spec, ok := r.Units[t]
	return spec, ok
}
