package conquest

import (
	"maps"
	"slices"

	"github.com/google/uuid"
)

// DayHook is called at the end of every simulated day of a game.
type DayHook func(gameID string, day uint64)

// Registry is the authoritative in-memory store of every game instance.
// It performs no I/O and no locking: the owner must serialise access, and
// every mutation of game state goes through its methods.
type Registry struct {
	rules    Rules
	world    *Map
	games    map[string]*game
	newID    func() string
	dayHooks []DayHook
}

// NewRegistry creates an empty registry over the given map. A nil map
// selects DefaultMap.
func NewRegistry(world *Map, rules Rules) *Registry {
	if world == nil {
		world = DefaultMap()
	}
	return &Registry{
		rules: rules,
		world: world,
		games: make(map[string]*game),
		newID: uuid.NewString,
	}
}

// SetIDGenerator replaces the id source for units and battles.
func (r *Registry) SetIDGenerator(fn func() string) {
	r.newID = fn
}

// OnDayEnd registers a hook fired from AdvanceTick whenever a day ends.
func (r *Registry) OnDayEnd(h DayHook) {
	r.dayHooks = append(r.dayHooks, h)
}

// Rules returns the rule set of the registry.
func (r *Registry) Rules() Rules { return r.rules }

func (r *Registry) game(id string) (*game, error) {
	g, ok := r.games[id]
	if !ok {
		return nil, notFoundf("game %q", id)
	}
	return g, nil
}

func (r *Registry) newGame(id, name string) *game {
	if name == "" {
		name = id
	}
	g := &game{
		id:        id,
		name:      name,
		status:    StatusWaiting,
		players:   make(map[string]*Player),
		provinces: make(map[string]*Province),
		units:     make(map[string]*Unit),
		battles:   make(map[string]*Battle),
		rules:     &r.rules,
		newID:     func() string { return r.newID() },
	}
	for _, d := range r.world.Provinces() {
		g.provinces[d.ID] = &Province{
			ID:             d.ID,
			Name:           d.Name,
			Resource:       d.Resource,
			BaseProduction: r.rules.BaseRates[d.Resource] * d.Yield,
			Morale:         100,
			Buildings:      make(map[string]int),
			Garrison:       make(map[string]struct{}),
			Adjacent:       slices.Clone(d.Adjacent),
		}
		g.provinceOrder = append(g.provinceOrder, d.ID)
	}
	r.games[id] = g
	return g
}

// CreateGame creates a new game in the waiting state.
func (r *Registry) CreateGame(id, name string) (GameSummary, error) {
	if id == "" {
		return GameSummary{}, validationf("game id is required")
	}
	if _, ok := r.games[id]; ok {
		return GameSummary{}, invariantf("game %q already exists", id)
	}
	return r.newGame(id, name).summary(), nil
}

// GetOrCreateGame returns the game with the given id, creating it when it
// does not exist yet. The boolean reports whether it was created.
func (r *Registry) GetOrCreateGame(id, name string) (GameSummary, bool, error) {
	if id == "" {
		return GameSummary{}, false, validationf("game id is required")
	}
	if g, ok := r.games[id]; ok {
		return g.summary(), false, nil
	}
	return r.newGame(id, name).summary(), true, nil
}

// RemoveGame destroys a game instance and everything in it.
func (r *Registry) RemoveGame(id string) error {
	if _, err := r.game(id); err != nil {
		return err
	}
	delete(r.games, id)
	return nil
}

// GameIDs returns the ids of all games, sorted.
func (r *Registry) GameIDs() []string {
	return slices.Sorted(maps.Keys(r.games))
}

// Summaries lists every game, sorted by id.
func (r *Registry) Summaries() []GameSummary {
	out := make([]GameSummary, 0, len(r.games))
	for _, id := range r.GameIDs() {
		out = append(out, r.games[id].summary())
	}
	return out
}

// Summary returns the listing form of one game.
func (r *Registry) Summary(id string) (GameSummary, error) {
	g, err := r.game(id)
	if err != nil {
		return GameSummary{}, err
	}
	return g.summary(), nil
}

// Snapshot returns a deep copy of a game.
func (r *Registry) Snapshot(id string) (GameSnapshot, error) {
	g, err := r.game(id)
	if err != nil {
		return GameSnapshot{}, err
	}
	return g.snapshot(), nil
}

// StartGame moves a waiting game to playing.
func (r *Registry) StartGame(id string) error {
	g, err := r.game(id)
	if err != nil {
		return err
	}
	if g.status != StatusWaiting {
		return invariantf("game %q is %s, not waiting", id, g.status)
	}
	g.status = StatusPlaying
	return nil
}

// EndGame marks a game ended. After this no mutator accepts the game.
func (r *Registry) EndGame(id, winner string) error {
	g, err := r.game(id)
	if err != nil {
		return err
	}
	if g.status == StatusEnded {
		return invariantf("game %q already ended", id)
	}
	g.status = StatusEnded
	g.winner = winner
	return nil
}

// AddPlayer creates a player in a game. It fails if the id is taken.
func (r *Registry) AddPlayer(gameID string, info PlayerInfo) (Player, error) {
	if info.ID == "" {
		return Player{}, validationf("player id is required")
	}
	g, err := r.game(gameID)
	if err != nil {
		return Player{}, err
	}
	if err := g.mutable(); err != nil {
		return Player{}, err
	}
	if _, ok := g.players[info.ID]; ok {
		return Player{}, invariantf("player %q already in game %q", info.ID, gameID)
	}
	p := &Player{
		ID:        info.ID,
		ConnID:    info.ConnID,
		Name:      info.Name,
		Nation:    info.Nation,
		Color:     info.Color,
		Resources: r.rules.StartingResources,
		Online:    info.ConnID != "",
		Relations: make(map[string]Relation),
	}
	g.players[p.ID] = p
	g.playerOrder = append(g.playerOrder, p.ID)
	return p.clone(), nil
}

// Player returns a copy of one player.
func (r *Registry) Player(gameID, playerID string) (Player, error) {
	g, err := r.game(gameID)
	if err != nil {
		return Player{}, err
	}
	p, ok := g.players[playerID]
	if !ok {
		return Player{}, notFoundf("player %q in game %q", playerID, gameID)
	}
	return p.clone(), nil
}

// Players returns copies of all players in join order.
func (r *Registry) Players(gameID string) ([]Player, error) {
	g, err := r.game(gameID)
	if err != nil {
		return nil, err
	}
	out := make([]Player, 0, len(g.playerOrder))
	for _, id := range g.playerOrder {
		out = append(out, g.players[id].clone())
	}
	return out, nil
}

// SetPlayerOnline records a player's connection state. connID is cleared
// when online is false.
func (r *Registry) SetPlayerOnline(gameID, playerID, connID string, online bool) error {
	g, err := r.game(gameID)
	if err != nil {
		return err
	}
	p, ok := g.players[playerID]
	if !ok {
		return notFoundf("player %q in game %q", playerID, gameID)
	}
	p.Online = online
	if online {
		p.ConnID = connID
	} else {
		p.ConnID = ""
	}
	return nil
}

// SetRelation sets the stance between two players in both directions.
func (r *Registry) SetRelation(gameID, a, b string, rel Relation) error {
	if a == b {
		return validationf("a player has no relation with itself")
	}
	if !ValidRelation(rel) {
		return validationf("unknown relation %q", rel)
	}
	g, err := r.game(gameID)
	if err != nil {
		return err
	}
	if err := g.mutable(); err != nil {
		return err
	}
	pa, ok := g.players[a]
	if !ok {
		return notFoundf("player %q in game %q", a, gameID)
	}
	pb, ok := g.players[b]
	if !ok {
		return notFoundf("player %q in game %q", b, gameID)
	}
	pa.Relations[b] = rel
	pb.Relations[a] = rel
	return nil
}

// Relation returns the stance between two players.
func (r *Registry) Relation(gameID, a, b string) (Relation, error) {
	g, err := r.game(gameID)
	if err != nil {
		return "", err
	}
	for _, id := range []string{a, b} {
		if _, ok := g.players[id]; !ok {
			return "", notFoundf("player %q in game %q", id, gameID)
		}
	}
	return g.relation(a, b), nil
}

// Province returns a copy of one province.
func (r *Registry) Province(gameID, provinceID string) (Province, error) {
	g, err := r.game(gameID)
	if err != nil {
		return Province{}, err
	}
	p, ok := g.provinces[provinceID]
	if !ok {
		return Province{}, notFoundf("province %q", provinceID)
	}
	return p.clone(), nil
}

// ProvincesOwnedBy returns the ids of provinces owned by a player, in map order.
func (r *Registry) ProvincesOwnedBy(gameID, playerID string) ([]string, error) {
	g, err := r.game(gameID)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, id := range g.provinceOrder {
		if g.provinces[id].Owner == playerID {
			out = append(out, id)
		}
	}
	return out, nil
}

// UpsertProvinceOwner sets or clears (empty owner) the owner of a province
// and returns the previous owner. Pending orders are dropped when the owner
// changes.
func (r *Registry) UpsertProvinceOwner(gameID, provinceID, owner string) (string, error) {
	g, err := r.game(gameID)
	if err != nil {
		return "", err
	}
	if err := g.mutable(); err != nil {
		return "", err
	}
	p, ok := g.provinces[provinceID]
	if !ok {
		return "", notFoundf("province %q", provinceID)
	}
	if owner != "" {
		if _, ok := g.players[owner]; !ok {
			return "", notFoundf("player %q in game %q", owner, gameID)
		}
	}
	return g.setOwner(p, owner), nil
}

// AssignStartProvince gives a player the first free start province, or the
// first free province of any kind when every start province is taken.
func (r *Registry) AssignStartProvince(gameID, playerID string) (Province, error) {
	g, err := r.game(gameID)
	if err != nil {
		return Province{}, err
	}
	if err := g.mutable(); err != nil {
		return Province{}, err
	}
	if _, ok := g.players[playerID]; !ok {
		return Province{}, notFoundf("player %q in game %q", playerID, gameID)
	}
	var pick *Province
	for _, id := range g.provinceOrder {
		p := g.provinces[id]
		if p.Owner != "" || len(p.Garrison) > 0 {
			continue
		}
		if def, _ := r.world.Province(id); def.Start {
			pick = p
			break
		}
		if pick == nil {
			pick = p
		}
	}
	if pick == nil {
		return Province{}, invariantf("no free province left in game %q", gameID)
	}
	g.setOwner(pick, playerID)
	return pick.clone(), nil
}

// Unit returns a copy of one unit.
func (r *Registry) Unit(gameID, unitID string) (Unit, error) {
	g, err := r.game(gameID)
	if err != nil {
		return Unit{}, err
	}
	u, ok := g.units[unitID]
	if !ok {
		return Unit{}, notFoundf("unit %q", unitID)
	}
	return u.clone(), nil
}

// UnitsOf returns copies of a player's units, sorted by id.
func (r *Registry) UnitsOf(gameID, playerID string) ([]Unit, error) {
	g, err := r.game(gameID)
	if err != nil {
		return nil, err
	}
	var out []Unit
	for _, id := range g.sortedUnitIDs() {
		if u := g.units[id]; u.Owner == playerID {
			out = append(out, u.clone())
		}
	}
	return out, nil
}

// SpawnUnit places a new unit stack in a province.
func (r *Registry) SpawnUnit(gameID, owner, provinceID string, t UnitType, strength int) (Unit, error) {
	g, err := r.game(gameID)
	if err != nil {
		return Unit{}, err
	}
	if err := g.mutable(); err != nil {
		return Unit{}, err
	}
	u, err := g.spawnUnit(owner, provinceID, t, strength)
	if err != nil {
		return Unit{}, err
	}
	return u.clone(), nil
}

// RemoveUnit deletes a unit and takes it out of its garrison.
func (r *Registry) RemoveUnit(gameID, unitID string) error {
	g, err := r.game(gameID)
	if err != nil {
		return err
	}
	u, ok := g.units[unitID]
	if !ok {
		return notFoundf("unit %q", unitID)
	}
	g.removeUnit(u)
	return nil
}

// SetUnitPath orders a player's unit to walk the shortest route to dest.
func (r *Registry) SetUnitPath(gameID, playerID, unitID, dest string) (Unit, error) {
	g, err := r.game(gameID)
	if err != nil {
		return Unit{}, err
	}
	if err := g.mutable(); err != nil {
		return Unit{}, err
	}
	u, err := g.ownedUnit(playerID, unitID)
	if err != nil {
		return Unit{}, err
	}
	if _, ok := g.provinces[dest]; !ok {
		return Unit{}, notFoundf("province %q", dest)
	}
	if dest == u.Province {
		return Unit{}, validationf("unit %q is already in %q", unitID, dest)
	}
	path, ok := r.world.Path(u.Province, dest)
	if !ok {
		return Unit{}, validationf("no route from %q to %q", u.Province, dest)
	}
	if u.Target != "" && len(u.Path) > 0 && u.Path[0] == path[0] {
		// Same next hop: keep the progress already made toward it.
		u.Path = path
	} else {
		u.Path = path
		u.Progress = 0
	}
	u.Target = dest
	return u.clone(), nil
}

// IsHostileTarget reports whether a province is owned by, or holds units
// of, a player at war with playerID.
func (r *Registry) IsHostileTarget(gameID, playerID, provinceID string) (bool, error) {
	g, err := r.game(gameID)
	if err != nil {
		return false, err
	}
	p, ok := g.provinces[provinceID]
	if !ok {
		return false, notFoundf("province %q", provinceID)
	}
	if p.Owner != "" && g.hostile(playerID, p.Owner) {
		return true, nil
	}
	return len(g.hostilesIn(p, playerID)) > 0, nil
}

// EngageBattle opens a battle in the province of a player's unit against the
// hostile units standing there, or returns the battle already under way.
// The boolean reports whether a new battle was created.
func (r *Registry) EngageBattle(gameID, playerID, unitID string) (Battle, bool, error) {
	g, err := r.game(gameID)
	if err != nil {
		return Battle{}, false, err
	}
	if err := g.mutable(); err != nil {
		return Battle{}, false, err
	}
	u, err := g.ownedUnit(playerID, unitID)
	if err != nil {
		return Battle{}, false, err
	}
	p := g.provinces[u.Province]
	if b, ok := g.battles[p.ID]; ok {
		return b.clone(), false, nil
	}
	defenders := g.hostilesIn(p, playerID)
	if len(defenders) == 0 {
		return Battle{}, false, validationf("no hostile units in %q", p.ID)
	}
	b := g.openBattle(p, playerID, defenders)
	return b.clone(), true, nil
}

// ApplyResourceDelta adds delta to a player's stockpile, clamping every
// field at zero. The boolean reports whether clamping occurred.
func (r *Registry) ApplyResourceDelta(gameID, playerID string, delta Resources) (bool, error) {
	g, err := r.game(gameID)
	if err != nil {
		return false, err
	}
	return g.applyResourceDelta(playerID, delta)
}

// SpendResources deducts cost from a player only if every field is covered.
func (r *Registry) SpendResources(gameID, playerID string, cost Resources) error {
	g, err := r.game(gameID)
	if err != nil {
		return err
	}
	return g.spend(playerID, cost)
}

// QueueProduction pays for and enqueues a unit stack in a province owned by
// the player.
func (r *Registry) QueueProduction(gameID, playerID, provinceID string, t UnitType, strength int) (ProductionOrder, error) {
	g, err := r.game(gameID)
	if err != nil {
		return ProductionOrder{}, err
	}
	if err := g.mutable(); err != nil {
		return ProductionOrder{}, err
	}
	spec, ok := r.rules.unit(t)
	if !ok {
		return ProductionOrder{}, validationf("unknown unit type %q", t)
	}
	if strength <= 0 {
		return ProductionOrder{}, validationf("strength must be positive")
	}
	p, err := g.ownedProvince(playerID, provinceID)
	if err != nil {
		return ProductionOrder{}, err
	}
	if err := g.spend(playerID, spec.Cost.Scale(float64(strength))); err != nil {
		return ProductionOrder{}, err
	}
	order := ProductionOrder{
		UnitType:  t,
		Strength:  strength,
		TicksLeft: max(1, spec.BuildTicks-p.Buildings[Barracks]),
	}
	if p.Production == nil {
		p.Production = &order
	} else {
		p.ProductionQueue = append(p.ProductionQueue, order)
	}
	return order, nil
}

// StartConstruction pays for and starts the next level of a building in a
// province owned by the player. Only one construction runs per province.
func (r *Registry) StartConstruction(gameID, playerID, provinceID, building string) (ConstructionOrder, error) {
	g, err := r.game(gameID)
	if err != nil {
		return ConstructionOrder{}, err
	}
	if err := g.mutable(); err != nil {
		return ConstructionOrder{}, err
	}
	spec, ok := r.rules.Buildings[building]
	if !ok {
		return ConstructionOrder{}, validationf("unknown building %q", building)
	}
	p, err := g.ownedProvince(playerID, provinceID)
	if err != nil {
		return ConstructionOrder{}, err
	}
	if p.Construction != nil {
		return ConstructionOrder{}, invariantf("province %q is already building %s", provinceID, p.Construction.Building)
	}
	if p.Buildings[building] >= spec.MaxLevel {
		return ConstructionOrder{}, invariantf("%s in %q is at max level", building, provinceID)
	}
	if err := g.spend(playerID, spec.Cost); err != nil {
		return ConstructionOrder{}, err
	}
	p.Construction = &ConstructionOrder{Building: building, TicksLeft: max(1, spec.Ticks)}
	return *p.Construction, nil
}

// CheckInvariants verifies the structural invariants of a game: units sit
// in the garrison of their province and nowhere else, owners exist,
// resources are non-negative and morale is in range.
func (r *Registry) CheckInvariants(gameID string) error {
	g, err := r.game(gameID)
	if err != nil {
		return err
	}
	for id, u := range g.units {
		p, ok := g.provinces[u.Province]
		if !ok {
			return invariantf("unit %q in unknown province %q", id, u.Province)
		}
		if _, ok := p.Garrison[id]; !ok {
			return invariantf("unit %q missing from garrison of %q", id, p.ID)
		}
		if u.Strength <= 0 || u.Health <= 0 {
			return invariantf("unit %q has strength %d health %.1f", id, u.Strength, u.Health)
		}
	}
	for _, p := range g.provinces {
		if p.Owner != "" {
			if _, ok := g.players[p.Owner]; !ok {
				return invariantf("province %q owned by unknown player %q", p.ID, p.Owner)
			}
		}
		if p.Morale < 0 || p.Morale > 100 {
			return invariantf("province %q morale %.1f out of range", p.ID, p.Morale)
		}
		for id := range p.Garrison {
			u, ok := g.units[id]
			if !ok || u.Province != p.ID {
				return invariantf("garrison of %q lists stray unit %q", p.ID, id)
			}
		}
	}
	for _, pl := range g.players {
		if _, neg := pl.Resources.clamped(); neg {
			return invariantf("player %q has a negative balance", pl.ID)
		}
	}
	return nil
}
