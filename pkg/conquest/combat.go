package conquest

import (
	"maps"
	"slices"
)

// side is one party of an engagement: a lead player plus its allies.
type side struct {
	players []string
	units   []*Unit
	power   float64
}

func (s *side) has(playerID string) bool {
	return slices.Contains(s.players, playerID)
}

// runCombat resolves every province in map order.
func (g *game) runCombat() []Event {
	var events []Event
	for _, id := range g.provinceOrder {
		events = append(events, g.resolveProvince(g.provinces[id])...)
	}
	return events
}

// resolveProvince settles one province for this tick. The outcome depends
// only on the units present, their owners' relations and the province, so
// identical inputs always give the identical result.
func (g *game) resolveProvince(p *Province) []Event {
	var events []Event
	present := g.unitsByOwner(p)
	battle := g.battles[p.ID]

	def, atk, ok := g.pickSides(p, present)
	if !ok {
		if battle != nil {
			events = append(events, g.closeBattle(battle, g.strongest(present, slices.Sorted(maps.Keys(present)))))
		}
		return append(events, g.occupyUndefended(p)...)
	}

	if battle == nil {
		battle = g.openBattle(p, g.strongest(present, atk.players), def.players)
		events = append(events, BattleStarted{Battle: battle.clone()})
	} else {
		// players may have joined or left either side since the last round
		battle.Attacker = g.strongest(present, atk.players)
		battle.Defenders = slices.Clone(def.players)
	}
	battle.Rounds++

	switch {
	case atk.power > def.power:
		events = append(events, g.destroyAll(def.units)...)
		events = append(events, g.damage(atk.units, g.rules.CombatDamage*def.power/atk.power)...)
		events = append(events, g.finishBattle(p, battle, atk)...)
	case def.power > atk.power:
		events = append(events, g.destroyAll(atk.units)...)
		events = append(events, g.damage(def.units, g.rules.CombatDamage*atk.power/def.power)...)
		events = append(events, g.finishBattle(p, battle, def)...)
	default:
		// A draw never picks a winner; both sides bleed and fight on.
		events = append(events, g.damage(atk.units, g.rules.StalemateDamage)...)
		events = append(events, g.damage(def.units, g.rules.StalemateDamage)...)
	}
	return events
}

// finishBattle closes a decisive battle. When the winning side is hostile
// to the province owner, the strongest surviving winner takes the province.
func (g *game) finishBattle(p *Province, b *Battle, winners side) []Event {
	present := g.unitsByOwner(p)
	winner := g.strongest(present, winners.players)
	if winner == "" {
		winner = winners.players[0]
	}
	events := []Event{g.closeBattle(b, winner)}
	if p.Owner != "" && !winners.has(p.Owner) && g.hostile(winner, p.Owner) && len(present[winner]) > 0 {
		events = append(events, g.capture(p, winner))
	}
	return append(events, g.occupyUndefended(p)...)
}

// occupyUndefended hands an owned province to the strongest player at war
// with the owner when no unit of the owner's side stands in it.
func (g *game) occupyUndefended(p *Province) []Event {
	if p.Owner == "" {
		return nil
	}
	present := g.unitsByOwner(p)
	var hostiles []string
	for owner := range present {
		if owner == p.Owner || g.relation(owner, p.Owner) == RelationAlliance {
			return nil
		}
		if g.hostile(owner, p.Owner) {
			hostiles = append(hostiles, owner)
		}
	}
	if len(hostiles) == 0 {
		return nil
	}
	slices.Sort(hostiles)
	return []Event{g.capture(p, g.strongest(present, hostiles))}
}

// pickSides finds the defending and attacking sides of a contested
// province. Defender candidates are tried in order: the owner, then players
// by earliest arrival, then by id. The first candidate facing at least one
// player at war with it defines the engagement. Players at peace with the
// defender and not allied to it stay out of the fight.
func (g *game) pickSides(p *Province, present map[string][]*Unit) (def, atk side, ok bool) {
	for _, cand := range g.defenderOrder(p, present) {
		var d, a side
		for _, owner := range slices.Sorted(maps.Keys(present)) {
			switch {
			case g.relation(cand, owner) == RelationAlliance:
				d.players = append(d.players, owner)
				d.units = append(d.units, present[owner]...)
			case g.hostile(cand, owner):
				a.players = append(a.players, owner)
				a.units = append(a.units, present[owner]...)
			}
		}
		if len(a.players) == 0 {
			continue
		}
		d.power = g.power(d.units)
		if p.Owner != "" && d.has(p.Owner) {
			d.power *= 1 + g.rules.FortressBonus*float64(p.Buildings[Fortress])
		}
		a.power = g.power(a.units)
		return d, a, true
	}
	return side{}, side{}, false
}

func (g *game) defenderOrder(p *Province, present map[string][]*Unit) []string {
	owners := slices.Collect(maps.Keys(present))
	arrived := func(owner string) uint64 {
		first := present[owner][0].ArrivedAt
		for _, u := range present[owner] {
			first = min(first, u.ArrivedAt)
		}
		return first
	}
	slices.SortFunc(owners, func(a, b string) int {
		if (a == p.Owner) != (b == p.Owner) {
			if a == p.Owner {
				return -1
			}
			return 1
		}
		ta, tb := arrived(a), arrived(b)
		switch {
		case ta < tb:
			return -1
		case ta > tb:
			return 1
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	})
	return owners
}

// power is the effective combat power of a set of units.
func (g *game) power(units []*Unit) float64 {
	total := 0.0
	for _, u := range units {
		spec, _ := g.rules.unit(u.Type)
		total += float64(u.Strength) * spec.Power
	}
	return total
}

// strongest returns the candidate with the most power present, ties broken
// by the candidates' order. Candidates with no units are skipped.
func (g *game) strongest(present map[string][]*Unit, candidates []string) string {
	best, bestPower := "", -1.0
	for _, c := range candidates {
		units := present[c]
		if len(units) == 0 {
			continue
		}
		if pw := g.power(units); pw > bestPower {
			best, bestPower = c, pw
		}
	}
	return best
}

func (g *game) destroyAll(units []*Unit) []Event {
	events := make([]Event, 0, len(units))
	for _, u := range units {
		events = append(events, UnitDestroyed{UnitID: u.ID, Owner: u.Owner, ProvinceID: u.Province})
		g.removeUnit(u)
	}
	return events
}

// damage removes health from each unit and destroys those left at zero.
func (g *game) damage(units []*Unit, amount float64) []Event {
	var events []Event
	for _, u := range units {
		u.Health = max(0, u.Health-amount)
		if u.Health <= 0 {
			events = append(events, UnitDestroyed{UnitID: u.ID, Owner: u.Owner, ProvinceID: u.Province})
			g.removeUnit(u)
		}
	}
	return events
}
