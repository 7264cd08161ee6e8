package conquest

import (
	"maps"
	"slices"
)

func (g *game) mutable() error {
	if g.status == StatusEnded {
		return invariantf("game %q has ended", g.id)
	}
	return nil
}

func (g *game) ownedUnit(playerID, unitID string) (*Unit, error) {
	if _, ok := g.players[playerID]; !ok {
		return nil, notFoundf("player %q in game %q", playerID, g.id)
	}
	u, ok := g.units[unitID]
	if !ok {
		return nil, notFoundf("unit %q", unitID)
	}
	if u.Owner != playerID {
		return nil, validationf("unit %q does not belong to %q", unitID, playerID)
	}
	return u, nil
}

func (g *game) ownedProvince(playerID, provinceID string) (*Province, error) {
	if _, ok := g.players[playerID]; !ok {
		return nil, notFoundf("player %q in game %q", playerID, g.id)
	}
	p, ok := g.provinces[provinceID]
	if !ok {
		return nil, notFoundf("province %q", provinceID)
	}
	if p.Owner != playerID {
		return nil, validationf("province %q does not belong to %q", provinceID, playerID)
	}
	return p, nil
}

// setOwner is the single place a province changes hands. Orders placed by
// the previous owner are dropped.
func (g *game) setOwner(p *Province, owner string) string {
	prev := p.Owner
	if prev == owner {
		return prev
	}
	p.Owner = owner
	p.Construction = nil
	p.Production = nil
	p.ProductionQueue = nil
	return prev
}

// capture transfers a province by conquest or occupation.
func (g *game) capture(p *Province, owner string) ProvinceCaptured {
	prev := g.setOwner(p, owner)
	if prev != "" {
		p.Morale = g.rules.PostConquestMorale
	}
	return ProvinceCaptured{ProvinceID: p.ID, NewOwner: owner, PreviousOwner: prev}
}

func (g *game) applyResourceDelta(playerID string, delta Resources) (bool, error) {
	p, ok := g.players[playerID]
	if !ok {
		return false, notFoundf("player %q in game %q", playerID, g.id)
	}
	next, clamped := p.Resources.Add(delta).clamped()
	p.Resources = next
	return clamped, nil
}

func (g *game) spend(playerID string, cost Resources) error {
	p, ok := g.players[playerID]
	if !ok {
		return notFoundf("player %q in game %q", playerID, g.id)
	}
	if !p.Resources.Covers(cost) {
		return invariantf("insufficient resources for %q", playerID)
	}
	p.Resources, _ = p.Resources.Add(cost.Negate()).clamped()
	return nil
}

func (g *game) spawnUnit(owner, provinceID string, t UnitType, strength int) (*Unit, error) {
	if _, ok := g.rules.unit(t); !ok {
		return nil, validationf("unknown unit type %q", t)
	}
	if strength <= 0 {
		return nil, validationf("strength must be positive")
	}
	if _, ok := g.players[owner]; !ok {
		return nil, notFoundf("player %q in game %q", owner, g.id)
	}
	p, ok := g.provinces[provinceID]
	if !ok {
		return nil, notFoundf("province %q", provinceID)
	}
	u := &Unit{
		ID:        g.newID(),
		Type:      t,
		Owner:     owner,
		Province:  p.ID,
		Health:    100,
		Strength:  strength,
		ArrivedAt: g.tick,
	}
	if _, dup := g.units[u.ID]; dup {
		return nil, invariantf("unit id %q already in use", u.ID)
	}
	g.units[u.ID] = u
	p.Garrison[u.ID] = struct{}{}
	return u, nil
}

func (g *game) removeUnit(u *Unit) {
	if p, ok := g.provinces[u.Province]; ok {
		delete(p.Garrison, u.ID)
	}
	u.Strength = 0
	delete(g.units, u.ID)
}

// relocateUnit moves a unit between garrisons in one step, so it is never
// in two provinces or none.
func (g *game) relocateUnit(u *Unit, provinceID string) {
	delete(g.provinces[u.Province].Garrison, u.ID)
	u.Province = provinceID
	u.ArrivedAt = g.tick
	g.provinces[provinceID].Garrison[u.ID] = struct{}{}
}

// unitsByOwner groups the garrison of p by owner; each list is sorted by id.
func (g *game) unitsByOwner(p *Province) map[string][]*Unit {
	out := make(map[string][]*Unit)
	for _, id := range slices.Sorted(maps.Keys(p.Garrison)) {
		u := g.units[id]
		out[u.Owner] = append(out[u.Owner], u)
	}
	return out
}

// hostilesIn returns the players with units in p that are at war with
// playerID, sorted.
func (g *game) hostilesIn(p *Province, playerID string) []string {
	var out []string
	for owner := range g.unitsByOwner(p) {
		if g.hostile(playerID, owner) {
			out = append(out, owner)
		}
	}
	slices.Sort(out)
	return out
}

func (g *game) openBattle(p *Province, attacker string, defenders []string) *Battle {
	b := &Battle{
		ID:        g.newID(),
		Attacker:  attacker,
		Defenders: slices.Clone(defenders),
		Province:  p.ID,
		Status:    BattleActive,
		StartedAt: g.tick,
	}
	g.battles[p.ID] = b
	return b
}

func (g *game) closeBattle(b *Battle, winner string) BattleEnded {
	b.Status = BattleCompleted
	b.Winner = winner
	b.EndedAt = g.tick
	delete(g.battles, b.Province)
	return BattleEnded{Battle: b.clone()}
}

// soleOwner returns the player owning every province, if there is one.
func (g *game) soleOwner() string {
	owner := ""
	for _, id := range g.provinceOrder {
		p := g.provinces[id]
		if p.Owner == "" {
			return ""
		}
		if owner == "" {
			owner = p.Owner
		} else if owner != p.Owner {
			return ""
		}
	}
	return owner
}
