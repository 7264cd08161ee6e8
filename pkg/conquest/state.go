package conquest

import (
	"maps"
	"slices"
)

// GameStatus is the lifecycle state of a game instance.
type GameStatus string

const (
	StatusWaiting GameStatus = "waiting"
	StatusPlaying GameStatus = "playing"
	StatusEnded   GameStatus = "ended"
)

// Relation is the diplomatic stance between two players.
type Relation string

const (
	RelationWar      Relation = "war"
	RelationPeace    Relation = "peace"
	RelationAlliance Relation = "alliance"
)

// ValidRelation reports whether r is one of the three known stances.
func ValidRelation(r Relation) bool {
	return r == RelationWar || r == RelationPeace || r == RelationAlliance
}

// BattleStatus is the lifecycle state of an engagement.
type BattleStatus string

const (
	BattleActive    BattleStatus = "active"
	BattleCompleted BattleStatus = "completed"
)

// Player is a participant in one game instance.
type Player struct {
	ID        string              `json:"id"`
	ConnID    string              `json:"-"`
	Name      string              `json:"username"`
	Nation    string              `json:"nation"`
	Color     string              `json:"color"`
	Resources Resources           `json:"resources"`
	Online    bool                `json:"online"`
	Relations map[string]Relation `json:"relations,omitempty"` // only explicitly set stances
}

// PlayerInfo is the identity supplied when a player first joins.
type PlayerInfo struct {
	ID     string
	ConnID string
	Name   string
	Nation string
	Color  string
}

// ConstructionOrder is a building level under way in a province.
type ConstructionOrder struct {
	Building  string `json:"building"`
	TicksLeft int    `json:"ticksLeft"`
}

// ProductionOrder is a unit stack being raised in a province.
type ProductionOrder struct {
	UnitType  UnitType `json:"unitType"`
	Strength  int      `json:"strength"`
	TicksLeft int      `json:"ticksLeft"`
}

// Province is a map region. Owner is empty when unowned.
type Province struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Owner           string              `json:"ownerId,omitempty"`
	Resource        ResourceType        `json:"resourceType"`
	BaseProduction  float64             `json:"baseProduction"`
	Morale          float64             `json:"morale"`
	Buildings       map[string]int      `json:"buildings,omitempty"`
	Construction    *ConstructionOrder  `json:"construction,omitempty"`
	Production      *ProductionOrder    `json:"production,omitempty"`
	ProductionQueue []ProductionOrder   `json:"productionQueue,omitempty"`
	Garrison        map[string]struct{} `json:"-"`
	Adjacent        []string            `json:"adjacent"`
}

// GarrisonIDs returns the ids of units in the province, sorted.
func (p *Province) GarrisonIDs() []string {
	return slices.Sorted(maps.Keys(p.Garrison))
}

func (p *Province) clone() Province {
	c := *p
	c.Buildings = maps.Clone(p.Buildings)
	c.Garrison = maps.Clone(p.Garrison)
	c.Adjacent = slices.Clone(p.Adjacent)
	c.ProductionQueue = slices.Clone(p.ProductionQueue)
	if p.Construction != nil {
		co := *p.Construction
		c.Construction = &co
	}
	if p.Production != nil {
		po := *p.Production
		c.Production = &po
	}
	return c
}

// Unit is a stack of one unit type. It always sits in exactly one province;
// Path lists the provinces still to enter, Target is the last of them.
type Unit struct {
	ID        string   `json:"id"`
	Type      UnitType `json:"type"`
	Owner     string   `json:"ownerId"`
	Province  string   `json:"currentProvinceId"`
	Target    string   `json:"targetProvinceId,omitempty"`
	Path      []string `json:"path,omitempty"`
	Progress  float64  `json:"movementProgress"`
	Health    float64  `json:"health"`
	Strength  int      `json:"strength"`
	ArrivedAt uint64   `json:"-"`
}

func (u *Unit) clone() Unit {
	c := *u
	c.Path = slices.Clone(u.Path)
	return c
}

// Battle is one continuous engagement in a province.
type Battle struct {
	ID        string       `json:"battleId"`
	Attacker  string       `json:"attackerId"`
	Defenders []string     `json:"defenderIds"`
	Province  string       `json:"provinceId"`
	Status    BattleStatus `json:"status"`
	Winner    string       `json:"winner,omitempty"`
	Rounds    int          `json:"rounds"`
	StartedAt uint64       `json:"startedAt"`
	EndedAt   uint64       `json:"endedAt,omitempty"`
}

// Participants returns the attacker followed by the defenders.
func (b Battle) Participants() []string {
	return append([]string{b.Attacker}, b.Defenders...)
}

func (b *Battle) clone() Battle {
	c := *b
	c.Defenders = slices.Clone(b.Defenders)
	return c
}

func (p *Player) clone() Player {
	c := *p
	c.Relations = maps.Clone(p.Relations)
	return c
}

// game is the internal state of one instance. It never leaves the package;
// callers see copies through GameSnapshot and the typed accessors.
type game struct {
	id     string
	name   string
	status GameStatus
	tick   uint64
	day    uint64
	winner string

	players     map[string]*Player
	playerOrder []string // join order

	provinces     map[string]*Province
	provinceOrder []string // map order

	units   map[string]*Unit
	battles map[string]*Battle // active battles keyed by province id

	rules *Rules
	newID func() string
}

// GameSnapshot is a deep copy of a game instance at one instant.
type GameSnapshot struct {
	ID        string     `json:"gameId"`
	Name      string     `json:"gameName"`
	Status    GameStatus `json:"status"`
	Tick      uint64     `json:"tick"`
	Day       uint64     `json:"day"`
	Winner    string     `json:"winner,omitempty"`
	Players   []Player   `json:"players"`
	Provinces []Province `json:"provinces"`
	Units     []Unit     `json:"units"`
	Battles   []Battle   `json:"battles"`
}

// GameSummary is the short listing form of a game.
type GameSummary struct {
	ID            string     `json:"gameId"`
	Name          string     `json:"gameName"`
	Status        GameStatus `json:"status"`
	Tick          uint64     `json:"tick"`
	Day           uint64     `json:"day"`
	Players       int        `json:"players"`
	PlayersOnline int        `json:"playersOnline"`
}

func (g *game) snapshot() GameSnapshot {
	s := GameSnapshot{
		ID:     g.id,
		Name:   g.name,
		Status: g.status,
		Tick:   g.tick,
		Day:    g.day,
		Winner: g.winner,
	}
	for _, id := range g.playerOrder {
		s.Players = append(s.Players, g.players[id].clone())
	}
	for _, id := range g.provinceOrder {
		s.Provinces = append(s.Provinces, g.provinces[id].clone())
	}
	for _, id := range g.sortedUnitIDs() {
		s.Units = append(s.Units, g.units[id].clone())
	}
	for _, id := range slices.Sorted(maps.Keys(g.battles)) {
		s.Battles = append(s.Battles, g.battles[id].clone())
	}
	return s
}

func (g *game) summary() GameSummary {
	return GameSummary{
		ID:            g.id,
		Name:          g.name,
		Status:        g.status,
		Tick:          g.tick,
		Day:           g.day,
		Players:       len(g.players),
		PlayersOnline: g.onlineCount(),
	}
}

func (g *game) onlineCount() int {
	n := 0
	for _, p := range g.players {
		if p.Online {
			n++
		}
	}
	return n
}

func (g *game) sortedUnitIDs() []string {
	return slices.Sorted(maps.Keys(g.units))
}

// relation returns the stance between a and b. A player is always allied
// with itself.
func (g *game) relation(a, b string) Relation {
	if a == b {
		return RelationAlliance
	}
	if p, ok := g.players[a]; ok {
		if r, ok := p.Relations[b]; ok {
			return r
		}
	}
	return g.rules.DefaultRelation
}

// hostile reports whether a and b are at war.
func (g *game) hostile(a, b string) bool {
	return a != b && g.relation(a, b) == RelationWar
}
