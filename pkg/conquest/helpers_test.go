package conquest

import (
	"fmt"
	"testing"
)

// lineMap is p1 - p2 - p3 - p4, all food at yield 1.
func lineMap() *Map {
	return MustMap([]ProvinceDef{
		{ID: "p1", Name: "One", Resource: Food, Yield: 1, Start: true, Adjacent: []string{"p2"}},
		{ID: "p2", Name: "Two", Resource: Food, Yield: 1, Adjacent: []string{"p1", "p3"}},
		{ID: "p3", Name: "Three", Resource: Food, Yield: 1, Adjacent: []string{"p2", "p4"}},
		{ID: "p4", Name: "Four", Resource: Food, Yield: 1, Start: true, Adjacent: []string{"p3"}},
	})
}

// testRules has no tax, upkeep, recovery or starting stockpile so tests can
// reason about exact balances.
func testRules() Rules {
	r := DefaultRules()
	r.BaseRates = map[ResourceType]float64{Food: 1000, Materials: 1000, Energy: 1000}
	r.TaxPerProvince = 0
	r.ManpowerPerProvince = 0
	r.MoraleRecovery = 0
	r.StartingResources = Resources{}
	units := make(map[UnitType]UnitSpec, len(r.Units))
	for t, spec := range r.Units {
		spec.Upkeep = 0
		units[t] = spec
	}
	r.Units = units
	return r
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestRegistry(t *testing.T, rules Rules) *Registry {
	t.Helper()
	reg := NewRegistry(lineMap(), rules)
	reg.SetIDGenerator(sequentialIDs())
	return reg
}

// playingGame creates game g1 with the given players, all online, and
// starts it.
func playingGame(t *testing.T, reg *Registry, players ...string) {
	t.Helper()
	if _, err := reg.CreateGame("g1", "Test"); err != nil {
		t.Fatalf("create game: %v", err)
	}
	for _, id := range players {
		if _, err := reg.AddPlayer("g1", PlayerInfo{ID: id, ConnID: "c-" + id, Name: id}); err != nil {
			t.Fatalf("add player %s: %v", id, err)
		}
	}
	if err := reg.StartGame("g1"); err != nil {
		t.Fatalf("start game: %v", err)
	}
}

func mustOwn(t *testing.T, reg *Registry, province, owner string) {
	t.Helper()
	if _, err := reg.UpsertProvinceOwner("g1", province, owner); err != nil {
		t.Fatalf("own %s: %v", province, err)
	}
}

func mustSpawn(t *testing.T, reg *Registry, owner, province string, ut UnitType, strength int) Unit {
	t.Helper()
	u, err := reg.SpawnUnit("g1", owner, province, ut, strength)
	if err != nil {
		t.Fatalf("spawn %s in %s: %v", ut, province, err)
	}
	return u
}

func mustTick(t *testing.T, reg *Registry) TickResult {
	t.Helper()
	res, err := reg.AdvanceTick("g1")
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if err := reg.CheckInvariants("g1"); err != nil {
		t.Fatalf("invariants after tick %d: %v", res.Tick, err)
	}
	return res
}

func eventsOf[T Event](events []Event) []T {
	var out []T
	for _, e := range events {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
