package conquest

import (
	"errors"
	"testing"
)

func TestAdvanceTickRequiresPlaying(t *testing.T) {
	reg := newTestRegistry(t, testRules())
	reg.CreateGame("g1", "")

	if _, err := reg.AdvanceTick("g1"); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected invariant violation for waiting game, got %v", err)
	}
	sum, _ := reg.Summary("g1")
	if sum.Tick != 0 {
		t.Errorf("expected tick 0, got %d", sum.Tick)
	}

	reg.StartGame("g1")
	mustTick(t, reg)
	reg.EndGame("g1", "")
	if _, err := reg.AdvanceTick("g1"); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected invariant violation for ended game, got %v", err)
	}
	sum, _ = reg.Summary("g1")
	if sum.Tick != 1 {
		t.Errorf("expected tick to stay at 1, got %d", sum.Tick)
	}
}

func TestTickCounterIncrementsByOne(t *testing.T) {
	reg := newTestRegistry(t, testRules())
	playingGame(t, reg, "a")
	for want := uint64(1); want <= 5; want++ {
		if res := mustTick(t, reg); res.Tick != want {
			t.Fatalf("expected tick %d, got %d", want, res.Tick)
		}
	}
}

func TestDayHooksFireOnDayBoundary(t *testing.T) {
	rules := testRules()
	rules.TicksPerDay = 3
	reg := newTestRegistry(t, rules)
	var days []uint64
	reg.OnDayEnd(func(gameID string, day uint64) {
		if gameID != "g1" {
			t.Errorf("unexpected game %q", gameID)
		}
		days = append(days, day)
	})
	playingGame(t, reg, "a")

	for i := 1; i <= 7; i++ {
		res := mustTick(t, reg)
		if res.DayEnded != (i%3 == 0) {
			t.Errorf("tick %d: DayEnded=%v", i, res.DayEnded)
		}
	}
	if len(days) != 2 || days[0] != 1 || days[1] != 2 {
		t.Errorf("expected days [1 2], got %v", days)
	}
}

func TestVictorWhenOnePlayerOwnsEverything(t *testing.T) {
	reg := newTestRegistry(t, testRules())
	playingGame(t, reg, "a")
	for _, id := range []string{"p1", "p2", "p3"} {
		mustOwn(t, reg, id, "a")
	}
	if res := mustTick(t, reg); res.Victor != "" {
		t.Fatalf("unexpected victor %q", res.Victor)
	}
	mustOwn(t, reg, "p4", "a")
	if res := mustTick(t, reg); res.Victor != "a" {
		t.Errorf("expected victor a, got %q", res.Victor)
	}
}

func TestResourcesNeverNegative(t *testing.T) {
	rules := testRules()
	rules.BaseRates = map[ResourceType]float64{}
	units := make(map[UnitType]UnitSpec)
	for k, v := range rules.Units {
		v.Upkeep = 1
		units[k] = v
	}
	rules.Units = units
	reg := newTestRegistry(t, rules)
	playingGame(t, reg, "a")
	mustOwn(t, reg, "p1", "a")
	mustSpawn(t, reg, "a", "p1", Artillery, 50)
	for range 10 {
		mustTick(t, reg)
	}
	pl, _ := reg.Player("g1", "a")
	if pl.Resources.Food < 0 {
		t.Errorf("negative food %v", pl.Resources.Food)
	}
}
