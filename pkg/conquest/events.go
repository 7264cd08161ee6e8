package conquest

// Event is a state change produced by a tick. The concrete types below are
// the only implementations.
type Event interface {
	event()
}

// ProvinceCaptured reports an ownership change.
type ProvinceCaptured struct {
	ProvinceID    string
	NewOwner      string
	PreviousOwner string
}

// UnitArrived reports a unit entering the next province of its path.
type UnitArrived struct {
	Unit Unit
	From string
}

// UnitSpawned reports a finished production order.
type UnitSpawned struct {
	Unit Unit
}

// UnitDestroyed reports a unit removed by combat.
type UnitDestroyed struct {
	UnitID     string
	Owner      string
	ProvinceID string
}

// BattleStarted reports a newly detected engagement.
type BattleStarted struct {
	Battle Battle
}

// BattleEnded reports a resolved engagement.
type BattleEnded struct {
	Battle Battle
}

// BuildingCompleted reports a finished construction level.
type BuildingCompleted struct {
	ProvinceID string
	Owner      string
	Building   string
	Level      int
}

func (ProvinceCaptured) event()  {}
func (UnitArrived) event()       {}
func (UnitSpawned) event()       {}
func (UnitDestroyed) event()     {}
func (BattleStarted) event()     {}
func (BattleEnded) event()       {}
func (BuildingCompleted) event() {}
