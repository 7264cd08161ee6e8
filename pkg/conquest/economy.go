package conquest

// runEconomy credits production and tax for every owned province, advances
// construction and production orders, then charges food upkeep for every
// unit. Players who cannot pay upkeep lose morale in all their provinces.
func (g *game) runEconomy() []Event {
	var events []Event
	for _, id := range g.provinceOrder {
		p := g.provinces[id]
		if p.Owner == "" {
			continue
		}
		output := p.BaseProduction * (p.Morale / 100) * (1 + g.rules.FarmBonus*float64(p.Buildings[Farm]))
		var delta Resources
		delta.credit(p.Resource, output)
		delta.Money += g.rules.TaxPerProvince
		delta.Manpower += g.rules.ManpowerPerProvince
		g.applyResourceDelta(p.Owner, delta)

		p.Morale = min(100, p.Morale+g.rules.MoraleRecovery)

		if ev, ok := g.advanceConstruction(p); ok {
			events = append(events, ev)
		}
		if ev, ok := g.advanceProduction(p); ok {
			events = append(events, ev)
		}
	}

	upkeep := make(map[string]float64)
	for _, id := range g.sortedUnitIDs() {
		u := g.units[id]
		spec, _ := g.rules.unit(u.Type)
		upkeep[u.Owner] += spec.Upkeep * float64(u.Strength)
	}
	for _, pid := range g.playerOrder {
		cost := upkeep[pid]
		if cost == 0 {
			continue
		}
		if short, _ := g.applyResourceDelta(pid, Resources{Food: -cost}); short {
			g.penalizeMorale(pid)
		}
	}
	return events
}

func (g *game) penalizeMorale(playerID string) {
	for _, id := range g.provinceOrder {
		if p := g.provinces[id]; p.Owner == playerID {
			p.Morale = max(0, p.Morale-g.rules.DeficitMoralePenalty)
		}
	}
}

func (g *game) advanceConstruction(p *Province) (Event, bool) {
	c := p.Construction
	if c == nil {
		return nil, false
	}
	c.TicksLeft--
	if c.TicksLeft > 0 {
		return nil, false
	}
	p.Construction = nil
	p.Buildings[c.Building]++
	return BuildingCompleted{
		ProvinceID: p.ID,
		Owner:      p.Owner,
		Building:   c.Building,
		Level:      p.Buildings[c.Building],
	}, true
}

func (g *game) advanceProduction(p *Province) (Event, bool) {
	o := p.Production
	if o == nil {
		return nil, false
	}
	o.TicksLeft--
	if o.TicksLeft > 0 {
		return nil, false
	}
	done := *o
	p.Production = nil
	if len(p.ProductionQueue) > 0 {
		next := p.ProductionQueue[0]
		p.ProductionQueue = p.ProductionQueue[1:]
		p.Production = &next
	}
	u, err := g.spawnUnit(p.Owner, p.ID, done.UnitType, done.Strength)
	if err != nil {
		return nil, false
	}
	return UnitSpawned{Unit: u.clone()}, true
}
