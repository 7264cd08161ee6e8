package conquest

import (
	"errors"
	"testing"
)

func TestMoveClaimsUnownedProvince(t *testing.T) {
	reg := newTestRegistry(t, testRules())
	playingGame(t, reg, "a")
	mustOwn(t, reg, "p1", "a")
	u := mustSpawn(t, reg, "a", "p1", Infantry, 10)

	if _, err := reg.SetUnitPath("g1", "a", u.ID, "p2"); err != nil {
		t.Fatalf("path: %v", err)
	}
	hops := int(100 / testRules().Units[Infantry].Speed)
	for i := 1; i < hops; i++ {
		mustTick(t, reg)
		got, _ := reg.Unit("g1", u.ID)
		if got.Province != "p1" {
			t.Fatalf("unit left early at tick %d", i)
		}
		if want := float64(i) * testRules().Units[Infantry].Speed; got.Progress != want {
			t.Errorf("tick %d: expected progress %v, got %v", i, want, got.Progress)
		}
	}
	res := mustTick(t, reg)

	got, _ := reg.Unit("g1", u.ID)
	if got.Province != "p2" || got.Target != "" || got.Progress != 0 {
		t.Errorf("unexpected unit after arrival: %+v", got)
	}
	prov, _ := reg.Province("g1", "p2")
	if prov.Owner != "a" {
		t.Errorf("expected p2 owned by a, got %q", prov.Owner)
	}
	if len(eventsOf[UnitArrived](res.Events)) != 1 || len(eventsOf[ProvinceCaptured](res.Events)) != 1 {
		t.Errorf("expected arrival and capture events, got %+v", res.Events)
	}
}

func TestMultiHopMoveKeepsUnitInOneProvince(t *testing.T) {
	reg := newTestRegistry(t, testRules())
	playingGame(t, reg, "a")
	u := mustSpawn(t, reg, "a", "p1", Cavalry, 10)

	moved, err := reg.SetUnitPath("g1", "a", u.ID, "p4")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if len(moved.Path) != 3 || moved.Path[2] != "p4" {
		t.Fatalf("unexpected path %v", moved.Path)
	}
	// cavalry crosses one province every two ticks; mustTick checks the
	// garrison invariant each step
	for range 6 {
		mustTick(t, reg)
	}
	got, _ := reg.Unit("g1", u.ID)
	if got.Province != "p4" {
		t.Errorf("expected unit in p4, got %s", got.Province)
	}
	for _, id := range []string{"p2", "p3", "p4"} {
		if prov, _ := reg.Province("g1", id); prov.Owner != "a" {
			t.Errorf("expected %s claimed on the way, owner %q", id, prov.Owner)
		}
	}
}

func TestSetUnitPathValidation(t *testing.T) {
	reg := newTestRegistry(t, testRules())
	playingGame(t, reg, "a", "b")
	u := mustSpawn(t, reg, "a", "p1", Infantry, 10)

	tests := []struct {
		name   string
		player string
		unit   string
		dest   string
		want   error
	}{
		{"same province", "a", u.ID, "p1", ErrValidation},
		{"foreign unit", "b", u.ID, "p2", ErrValidation},
		{"unknown unit", "a", "ghost", "p2", ErrNotFound},
		{"unknown province", "a", u.ID, "p9", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reg.SetUnitPath("g1", tt.player, tt.unit, tt.dest); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestIdleUnitsDoNotMove(t *testing.T) {
	reg := newTestRegistry(t, testRules())
	playingGame(t, reg, "a")
	u := mustSpawn(t, reg, "a", "p1", Infantry, 10)
	for range 5 {
		mustTick(t, reg)
	}
	got, _ := reg.Unit("g1", u.ID)
	if got.Province != "p1" || got.Progress != 0 {
		t.Errorf("idle unit changed: %+v", got)
	}
}

func TestUnitRetreatsFromDrawnBattle(t *testing.T) {
	rules := testRules()
	reg := newTestRegistry(t, rules)
	playingGame(t, reg, "a", "b")
	mustOwn(t, reg, "p1", "a")
	mustOwn(t, reg, "p2", "b")
	ua := mustSpawn(t, reg, "a", "p2", Infantry, 100)
	mustSpawn(t, reg, "b", "p2", Infantry, 100)

	mustTick(t, reg)
	if snap, _ := reg.Snapshot("g1"); len(snap.Battles) != 1 {
		t.Fatalf("expected a drawn battle, got %+v", snap.Battles)
	}
	if _, err := reg.SetUnitPath("g1", "a", ua.ID, "p1"); err != nil {
		t.Fatalf("path: %v", err)
	}

	hops := int(100 / rules.Units[Infantry].Speed)
	var events []Event
	for range hops {
		events = append(events, mustTick(t, reg).Events...)
	}

	got, err := reg.Unit("g1", ua.ID)
	if err != nil {
		t.Fatalf("retreating unit destroyed: %v", err)
	}
	if got.Province != "p1" {
		t.Fatalf("expected unit back in p1, got %s progress %v", got.Province, got.Progress)
	}
	// one round of bleeding per tick spent in p2 before leaving
	if want := 100 - float64(hops)*rules.StalemateDamage; got.Health != want {
		t.Errorf("expected health %v, got %v", want, got.Health)
	}
	ended := eventsOf[BattleEnded](events)
	if len(ended) != 1 || ended[0].Battle.Winner != "b" {
		t.Errorf("expected b to hold p2, got %+v", ended)
	}
	if snap, _ := reg.Snapshot("g1"); len(snap.Battles) != 0 {
		t.Errorf("expected no active battles, got %+v", snap.Battles)
	}
	if prov, _ := reg.Province("g1", "p2"); prov.Owner != "b" {
		t.Errorf("expected p2 still owned by b, got %q", prov.Owner)
	}
}
