package service

import (
	"time"

	"github.com/freeeve/conquest/pkg/conquest"
)

// Command is one message for the dispatcher. Every client action and every
// tick request is a Command; the dispatcher applies them one at a time.
type Command interface {
	command()
}

// JoinGame binds a connection to a player, creating game and player as needed.
type JoinGame struct {
	ConnID   string
	GameID   string
	GameName string
	PlayerID string
	Username string
	Nation   string
	Color    string
}

// CreateGame creates an empty game without joining it.
type CreateGame struct {
	ConnID string
	GameID string
	Name   string
}

// LeaveGame tears down the binding of a connection on request.
type LeaveGame struct {
	ConnID string
}

// Disconnect tears down the binding of a closed connection.
type Disconnect struct {
	ConnID string
}

type MoveArmy struct {
	ConnID      string
	ArmyID      string
	Destination string
}

type AttackProvince struct {
	ConnID string
	ArmyID string
	Target string
}

type Recruit struct {
	ConnID     string
	ProvinceID string
	UnitType   conquest.UnitType
	Strength   int
}

type Build struct {
	ConnID     string
	ProvinceID string
	Building   string
}

type SetRelation struct {
	ConnID   string
	PlayerID string
	Relation conquest.Relation
}

type SendChat struct {
	ConnID      string
	Message     string
	Channel     conquest.Channel
	RecipientID string
}

// RecordLatency stores a measured round trip for a connection.
type RecordLatency struct {
	ConnID string
	RTT    time.Duration
}

type tickGame struct {
	gameID string
}

type reapIdle struct{}

// query runs fn on the dispatcher goroutine and closes done afterwards.
type query struct {
	fn   func()
	done chan struct{}
}

func (JoinGame) command()       {}
func (CreateGame) command()     {}
func (LeaveGame) command()      {}
func (Disconnect) command()     {}
func (MoveArmy) command()       {}
func (AttackProvince) command() {}
func (Recruit) command()        {}
func (Build) command()          {}
func (SetRelation) command()    {}
func (SendChat) command()       {}
func (RecordLatency) command()  {}
func (tickGame) command()       {}
func (reapIdle) command()       {}
func (query) command()          {}
