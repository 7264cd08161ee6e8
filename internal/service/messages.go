package service

import (
	"github.com/freeeve/conquest/pkg/conquest"
)

// Inbound message names.
const (
	MsgGameJoin        = "game:join"
	MsgGameCreate      = "game:create"
	MsgGameLeave       = "game:leave"
	MsgArmyMove        = "army:move"
	MsgArmyAttack      = "army:attack"
	MsgProvinceRecruit = "province:recruit"
	MsgProvinceBuild   = "province:build"
	MsgDiplomacySet    = "diplomacy:set"
	MsgChatSend        = "chat:send"
	MsgSystemPing      = "system:ping"
)

// Outbound message names.
const (
	EvtConnected           = "connected"
	EvtGameJoined          = "game:joined"
	EvtGameCreated         = "game:created"
	EvtGameStarted         = "game:started"
	EvtGameEnded           = "game:ended"
	EvtGameTick            = "game:tick"
	EvtGameDay             = "game:day"
	EvtPlayerJoined        = "player:joined"
	EvtPlayerLeft          = "player:left"
	EvtPlayerResources     = "player:resources"
	EvtArmyMoved           = "army:moved"
	EvtArmyArrived         = "army:arrived"
	EvtBattleStarted       = "battle:started"
	EvtBattleEnded         = "battle:ended"
	EvtProvinceCaptured    = "province:captured"
	EvtUnitSpawned         = "unit:spawned"
	EvtUnitDestroyed       = "unit:destroyed"
	EvtBuildingCompleted   = "building:completed"
	EvtProductionQueued    = "production:queued"
	EvtConstructionStarted = "construction:started"
	EvtDiplomacyChanged    = "diplomacy:changed"
	EvtChatMessage         = "chat:message"
	EvtChatHistory         = "chat:history"
	EvtSystemPong          = "system:pong"
	EvtCommandRejected     = "command:rejected"
	EvtSessionReplaced     = "session:replaced"
)

// GameJoinedPayload is the initial snapshot sent to a joining connection.
type GameJoinedPayload struct {
	GameID    string              `json:"gameId"`
	GameName  string              `json:"gameName"`
	PlayerID  string              `json:"playerId"`
	Nation    string              `json:"nation"`
	Color     string              `json:"color"`
	Resources conquest.Resources  `json:"resources"`
	Players   []PlayerPayload     `json:"players"`
	Provinces []conquest.Province `json:"provinces"`
	Units     []conquest.Unit     `json:"units"`
	Battles   []BattlePayload     `json:"battles"`
	Tick      uint64              `json:"tick"`
	Day       uint64              `json:"day"`
	Status    conquest.GameStatus `json:"status"`
}

// PlayerPayload is the public view of a player. Resources are private and
// only sent to their owner.
type PlayerPayload struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Nation   string `json:"nation"`
	Color    string `json:"color"`
	Online   bool   `json:"online"`
}

type BattlePayload struct {
	BattleID     string                `json:"battleId"`
	Participants []string              `json:"participants"`
	AttackerID   string                `json:"attackerId"`
	DefenderIDs  []string              `json:"defenderIds"`
	ProvinceID   string                `json:"provinceId"`
	Status       conquest.BattleStatus `json:"status"`
	Winner       string                `json:"winner,omitempty"`
	Rounds       int                   `json:"rounds"`
}

type ArmyMovedPayload struct {
	ArmyID                string   `json:"armyId"`
	OwnerID               string   `json:"ownerId"`
	FromProvinceID        string   `json:"fromProvinceId"`
	DestinationProvinceID string   `json:"destinationProvinceId"`
	Path                  []string `json:"path"`
	Attack                bool     `json:"attack,omitempty"`
}

type ArmyArrivedPayload struct {
	ArmyID         string  `json:"armyId"`
	OwnerID        string  `json:"ownerId"`
	FromProvinceID string  `json:"fromProvinceId"`
	ProvinceID     string  `json:"provinceId"`
	Progress       float64 `json:"movementProgress"`
}

type ProvinceCapturedPayload struct {
	ProvinceID      string `json:"provinceId"`
	NewOwnerID      string `json:"newOwnerId"`
	PreviousOwnerID string `json:"previousOwnerId,omitempty"`
}

type UnitDestroyedPayload struct {
	UnitID     string `json:"unitId"`
	OwnerID    string `json:"ownerId"`
	ProvinceID string `json:"provinceId"`
}

type BuildingCompletedPayload struct {
	ProvinceID string `json:"provinceId"`
	OwnerID    string `json:"ownerId"`
	Building   string `json:"building"`
	Level      int    `json:"level"`
}

type TickPayload struct {
	Tick          uint64 `json:"tick"`
	Day           uint64 `json:"day"`
	PlayersOnline int    `json:"playersOnline"`
}

// DayReportEntry summarises one player at the end of a day.
type DayReportEntry struct {
	PlayerID  string `json:"playerId"`
	Provinces int    `json:"provinces"`
	Units     int    `json:"units"`
	Strength  int    `json:"strength"`
}

type DayPayload struct {
	Day     uint64           `json:"day"`
	Tick    uint64           `json:"tick"`
	Players []DayReportEntry `json:"players"`
}

type GameEndedPayload struct {
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason"`
	Tick   uint64 `json:"tick"`
	Day    uint64 `json:"day"`
}

type DiplomacyPayload struct {
	PlayerID      string            `json:"playerId"`
	OtherPlayerID string            `json:"otherPlayerId"`
	Relation      conquest.Relation `json:"relation"`
}

type ProductionPayload struct {
	ProvinceID string            `json:"provinceId"`
	UnitType   conquest.UnitType `json:"unitType"`
	Strength   int               `json:"strength"`
	TicksLeft  int               `json:"ticksLeft"`
}

type ConstructionPayload struct {
	ProvinceID string `json:"provinceId"`
	Building   string `json:"building"`
	TicksLeft  int    `json:"ticksLeft"`
}

type ChatHistoryPayload struct {
	Messages []conquest.ChatMessage `json:"messages"`
}

// RejectedPayload tells a client why a command had no effect.
type RejectedPayload struct {
	Command string        `json:"command"`
	Kind    conquest.Kind `json:"kind"`
	Reason  string        `json:"reason"`
}

type SessionReplacedPayload struct {
	PlayerID string `json:"playerId"`
}

func playerPayload(p conquest.Player) PlayerPayload {
	return PlayerPayload{PlayerID: p.ID, Username: p.Name, Nation: p.Nation, Color: p.Color, Online: p.Online}
}

func battlePayload(b conquest.Battle) BattlePayload {
	return BattlePayload{
		BattleID:     b.ID,
		Participants: b.Participants(),
		AttackerID:   b.Attacker,
		DefenderIDs:  b.Defenders,
		ProvinceID:   b.Province,
		Status:       b.Status,
		Winner:       b.Winner,
		Rounds:       b.Rounds,
	}
}

// eventMessage maps a tick event to its outbound message.
func eventMessage(ev conquest.Event) (string, any) {
	switch e := ev.(type) {
	case conquest.ProvinceCaptured:
		return EvtProvinceCaptured, ProvinceCapturedPayload{
			ProvinceID:      e.ProvinceID,
			NewOwnerID:      e.NewOwner,
			PreviousOwnerID: e.PreviousOwner,
		}
	case conquest.UnitArrived:
		return EvtArmyArrived, ArmyArrivedPayload{
			ArmyID:         e.Unit.ID,
			OwnerID:        e.Unit.Owner,
			FromProvinceID: e.From,
			ProvinceID:     e.Unit.Province,
			Progress:       e.Unit.Progress,
		}
	case conquest.UnitSpawned:
		return EvtUnitSpawned, e.Unit
	case conquest.UnitDestroyed:
		return EvtUnitDestroyed, UnitDestroyedPayload{UnitID: e.UnitID, OwnerID: e.Owner, ProvinceID: e.ProvinceID}
	case conquest.BattleStarted:
		return EvtBattleStarted, battlePayload(e.Battle)
	case conquest.BattleEnded:
		return EvtBattleEnded, battlePayload(e.Battle)
	case conquest.BuildingCompleted:
		return EvtBuildingCompleted, BuildingCompletedPayload{
			ProvinceID: e.ProvinceID,
			OwnerID:    e.Owner,
			Building:   e.Building,
			Level:      e.Level,
		}
	}
	return "", nil
}
