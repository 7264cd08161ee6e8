package conquest

// runMovement advances every unit with a path. A unit entering a province
// moves there in one step. Unowned provinces are claimed on arrival; hostile
// provinces are left to the combat step of the same tick. A unit leaving a
// contested province fights there until the tick it departs.
func (g *game) runMovement() []Event {
	var events []Event
	for _, id := range g.sortedUnitIDs() {
		u := g.units[id]
		if u.Target == "" || len(u.Path) == 0 {
			continue
		}
		spec, _ := g.rules.unit(u.Type)
		u.Progress = min(100, u.Progress+spec.Speed)
		if u.Progress < 100 {
			continue
		}

		from := u.Province
		next := u.Path[0]
		u.Path = u.Path[1:]
		u.Progress = 0
		g.relocateUnit(u, next)
		if len(u.Path) == 0 {
			u.Path = nil
			u.Target = ""
		}
		events = append(events, UnitArrived{Unit: u.clone(), From: from})

		if p := g.provinces[next]; p.Owner == "" {
			events = append(events, g.capture(p, u.Owner))
		}
	}
	return events
}
