package conquest

// TickResult is the outcome of one simulation step of a game.
type TickResult struct {
	Tick     uint64
	Day      uint64
	DayEnded bool
	Victor   string // set when one player owns every province
	Events   []Event
}

// AdvanceTick runs one step of a playing game: economy, then movement, then
// combat, then the tick counter moves forward by exactly one. Every
// TicksPerDay ticks the day counter advances and the day hooks fire. Games
// that are not playing are left untouched.
func (r *Registry) AdvanceTick(gameID string) (TickResult, error) {
	g, err := r.game(gameID)
	if err != nil {
		return TickResult{}, err
	}
	if g.status != StatusPlaying {
		return TickResult{}, invariantf("game %q is %s, not playing", gameID, g.status)
	}

	var events []Event
	events = append(events, g.runEconomy()...)
	events = append(events, g.runMovement()...)
	events = append(events, g.runCombat()...)

	g.tick++
	res := TickResult{Tick: g.tick, Events: events, Victor: g.soleOwner()}
	if r.rules.TicksPerDay > 0 && g.tick%uint64(r.rules.TicksPerDay) == 0 {
		g.day = g.tick / uint64(r.rules.TicksPerDay)
		res.DayEnded = true
	}
	res.Day = g.day
	if res.DayEnded {
		for _, h := range r.dayHooks {
			h(g.id, g.day)
		}
	}
	return res, nil
}
