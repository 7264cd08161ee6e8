package handler

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/freeeve/conquest/internal/auth"
	"github.com/freeeve/conquest/internal/service"
	"github.com/freeeve/conquest/pkg/conquest"
)

// Envelope is an inbound client message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	Ack  string          `json:"ack,omitempty"`
}

// PongPayload answers system:ping.
type PongPayload struct {
	Ack        string `json:"ack"`
	ServerTime int64  `json:"serverTime"` // unix millis
}

type joinRequest struct {
	GameID   string `json:"gameId"`
	GameName string `json:"gameName"`
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Nation   string `json:"nation"`
	Color    string `json:"color"`
}

type createRequest struct {
	GameID string `json:"gameId"`
	Name   string `json:"name"`
}

type moveRequest struct {
	ArmyID      string `json:"armyId"`
	Destination string `json:"destinationProvinceId"`
}

type attackRequest struct {
	ArmyID string `json:"armyId"`
	Target string `json:"targetProvinceId"`
}

type recruitRequest struct {
	ProvinceID string            `json:"provinceId"`
	UnitType   conquest.UnitType `json:"unitType"`
	Strength   int               `json:"strength"`
}

type buildRequest struct {
	ProvinceID string `json:"provinceId"`
	Building   string `json:"building"`
}

type diplomacyRequest struct {
	PlayerID string            `json:"playerId"`
	Relation conquest.Relation `json:"relation"`
}

type chatRequest struct {
	Message     string           `json:"message"`
	Channel     conquest.Channel `json:"channel"`
	RecipientID string           `json:"recipientId"`
}

type pingRequest struct {
	Ack string `json:"ack"`
}

var errMalformed = conquest.Errorf(conquest.KindValidation, "malformed payload")

const maxIDLength = 64

// decodeCommand shape-checks an inbound envelope and turns it into a
// dispatcher command. authID is the authenticated player of the
// connection, empty when anonymous.
func decodeCommand(connID, authID string, env Envelope) (service.Command, error) {
	switch env.Type {
	case service.MsgGameJoin:
		var req joinRequest
		if err := decodeData(env.Data, &req); err != nil {
			return nil, err
		}
		if err := requireIDs(map[string]string{"gameId": req.GameID, "playerId": req.PlayerID}); err != nil {
			return nil, err
		}
		if err := auth.CheckPlayer(authID, req.PlayerID); err != nil {
			return nil, conquest.Errorf(conquest.KindValidation, "%v", err)
		}
		if req.Username == "" {
			req.Username = req.PlayerID
		}
		return service.JoinGame{
			ConnID:   connID,
			GameID:   req.GameID,
			GameName: req.GameName,
			PlayerID: req.PlayerID,
			Username: req.Username,
			Nation:   req.Nation,
			Color:    req.Color,
		}, nil

	case service.MsgGameCreate:
		var req createRequest
		if err := decodeData(env.Data, &req); err != nil {
			return nil, err
		}
		if err := requireIDs(map[string]string{"gameId": req.GameID}); err != nil {
			return nil, err
		}
		return service.CreateGame{ConnID: connID, GameID: req.GameID, Name: req.Name}, nil

	case service.MsgGameLeave:
		return service.LeaveGame{ConnID: connID}, nil

	case service.MsgArmyMove:
		var req moveRequest
		if err := decodeData(env.Data, &req); err != nil {
			return nil, err
		}
		if err := requireIDs(map[string]string{"armyId": req.ArmyID, "destinationProvinceId": req.Destination}); err != nil {
			return nil, err
		}
		return service.MoveArmy{ConnID: connID, ArmyID: req.ArmyID, Destination: req.Destination}, nil

	case service.MsgArmyAttack:
		var req attackRequest
		if err := decodeData(env.Data, &req); err != nil {
			return nil, err
		}
		if err := requireIDs(map[string]string{"armyId": req.ArmyID, "targetProvinceId": req.Target}); err != nil {
			return nil, err
		}
		return service.AttackProvince{ConnID: connID, ArmyID: req.ArmyID, Target: req.Target}, nil

	case service.MsgProvinceRecruit:
		var req recruitRequest
		if err := decodeData(env.Data, &req); err != nil {
			return nil, err
		}
		if err := requireIDs(map[string]string{"provinceId": req.ProvinceID, "unitType": string(req.UnitType)}); err != nil {
			return nil, err
		}
		if req.Strength <= 0 {
			return nil, conquest.Errorf(conquest.KindValidation, "strength must be positive")
		}
		return service.Recruit{ConnID: connID, ProvinceID: req.ProvinceID, UnitType: req.UnitType, Strength: req.Strength}, nil

	case service.MsgProvinceBuild:
		var req buildRequest
		if err := decodeData(env.Data, &req); err != nil {
			return nil, err
		}
		if err := requireIDs(map[string]string{"provinceId": req.ProvinceID, "building": req.Building}); err != nil {
			return nil, err
		}
		return service.Build{ConnID: connID, ProvinceID: req.ProvinceID, Building: req.Building}, nil

	case service.MsgDiplomacySet:
		var req diplomacyRequest
		if err := decodeData(env.Data, &req); err != nil {
			return nil, err
		}
		if err := requireIDs(map[string]string{"playerId": req.PlayerID}); err != nil {
			return nil, err
		}
		if !conquest.ValidRelation(req.Relation) {
			return nil, conquest.Errorf(conquest.KindValidation, "unknown relation %q", req.Relation)
		}
		return service.SetRelation{ConnID: connID, PlayerID: req.PlayerID, Relation: req.Relation}, nil

	case service.MsgChatSend:
		var req chatRequest
		if err := decodeData(env.Data, &req); err != nil {
			return nil, err
		}
		if req.Channel == "" {
			req.Channel = conquest.ChannelGlobal
		}
		return service.SendChat{ConnID: connID, Message: req.Message, Channel: req.Channel, RecipientID: req.RecipientID}, nil
	}

	if env.Type == "" {
		return nil, conquest.Errorf(conquest.KindValidation, "message type is required")
	}
	return nil, conquest.Errorf(conquest.KindValidation, "unknown message type %q", env.Type)
}

// pingAck extracts the ack of a system:ping. It accepts the ack on the
// envelope or inside data.
func pingAck(env Envelope) (string, bool) {
	if env.Ack != "" {
		return env.Ack, true
	}
	var req pingRequest
	if err := decodeData(env.Data, &req); err != nil || req.Ack == "" {
		return "", false
	}
	return req.Ack, true
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return conquest.Errorf(conquest.KindValidation, "data is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		var typ *json.UnmarshalTypeError
		if errors.As(err, &typ) {
			return conquest.Errorf(conquest.KindValidation, "field %s must be %s", typ.Field, typ.Type)
		}
		return errMalformed
	}
	return nil
}

func requireIDs(fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
			continue
		}
		if len(v) > maxIDLength {
			return conquest.Errorf(conquest.KindValidation, "%s is too long", name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return conquest.Errorf(conquest.KindValidation, "missing %s", strings.Join(missing, ", "))
	}
	return nil
}
