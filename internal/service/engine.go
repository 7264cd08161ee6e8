package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/internal/logger"
	"github.com/freeeve/conquest/internal/model"
	"github.com/freeeve/conquest/pkg/conquest"
)

var (
	ErrQueueFull = errors.New("command queue full")
	ErrStopped   = errors.New("engine stopped")
)

// Config holds the engine settings.
type Config struct {
	TickPeriod        time.Duration
	MinPlayers        int
	ChatHistory       int
	ResourceSyncTicks int
	GameRetention     time.Duration
	QueueSize         int
}

func (c Config) withDefaults() Config {
	if c.TickPeriod <= 0 {
		c.TickPeriod = time.Second
	}
	if c.MinPlayers < 1 {
		c.MinPlayers = 1
	}
	if c.ChatHistory < 1 {
		c.ChatHistory = 50
	}
	if c.ResourceSyncTicks < 1 {
		c.ResourceSyncTicks = 5
	}
	if c.GameRetention <= 0 {
		c.GameRetention = 10 * time.Minute
	}
	if c.QueueSize < 1 {
		c.QueueSize = 1024
	}
	return c
}

type dayReport struct {
	gameID string
	day    uint64
}

// Engine is the single writer of the registry. Client commands and tick
// requests arrive on one queue and are applied in order by Run; broadcasts
// go out after each step completes.
type Engine struct {
	cfg      Config
	reg      *conquest.Registry
	bc       Broadcaster
	pub      *Publisher
	sessions *SessionManager
	chat     *ChatRelay
	sched    *Scheduler

	cmds    chan Command
	stopped chan struct{}
	newID   func() string
	now     func() time.Time

	idleSince  map[string]time.Time
	pendingDay []dayReport
}

// NewEngine creates an Engine over reg. A nil publisher disables
// write-behind I/O.
func NewEngine(cfg Config, reg *conquest.Registry, bc Broadcaster, pub *Publisher) *Engine {
	cfg = cfg.withDefaults()
	if bc == nil {
		bc = NoopBroadcaster{}
	}
	if pub == nil {
		pub = NewPublisher(nil, nil, 0, 1)
	}
	e := &Engine{
		cfg:       cfg,
		reg:       reg,
		bc:        bc,
		pub:       pub,
		sessions:  NewSessionManager(),
		chat:      NewChatRelay(cfg.ChatHistory),
		cmds:      make(chan Command, cfg.QueueSize),
		stopped:   make(chan struct{}),
		newID:     uuid.NewString,
		now:       time.Now,
		idleSince: make(map[string]time.Time),
	}
	e.sched = NewScheduler(cfg.TickPeriod, e.fireTick)
	reg.OnDayEnd(func(gameID string, day uint64) {
		e.pendingDay = append(e.pendingDay, dayReport{gameID: gameID, day: day})
	})
	return e
}

// Run applies commands until ctx is cancelled. It must be called once.
func (e *Engine) Run(ctx context.Context) error {
	e.sched.Bind(ctx)
	defer func() {
		close(e.stopped)
		e.sched.StopAll()
	}()

	janitor := time.NewTicker(e.janitorPeriod())
	defer janitor.Stop()

	log.Info().
		Dur("tickPeriod", e.cfg.TickPeriod).
		Int("minPlayers", e.cfg.MinPlayers).
		Dur("retention", e.cfg.GameRetention).
		Msg("Dispatcher started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("sessions", e.sessions.Count()).Msg("Dispatcher stopped")
			return nil
		case cmd := <-e.cmds:
			e.dispatch(cmd)
		case <-janitor.C:
			e.dispatch(reapIdle{})
		}
	}
}

func (e *Engine) janitorPeriod() time.Duration {
	return min(max(e.cfg.GameRetention/4, time.Second), time.Minute)
}

// Submit queues a command without blocking.
func (e *Engine) Submit(cmd Command) error {
	select {
	case <-e.stopped:
		return ErrStopped
	default:
	}
	select {
	case e.cmds <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// SubmitWait queues a command, blocking while the queue is full. Commands
// that must not be lost, such as disconnects, go through here.
func (e *Engine) SubmitWait(ctx context.Context, cmd Command) error {
	select {
	case e.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrStopped
	}
}

// fireTick blocks until the dispatcher accepts the tick, so a busy queue
// delays ticks instead of losing them.
func (e *Engine) fireTick(ctx context.Context, gameID string) error {
	select {
	case e.cmds <- tickGame{gameID: gameID}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrStopped
	}
}

// do runs fn on the dispatcher goroutine and waits for it.
func (e *Engine) do(ctx context.Context, fn func()) error {
	q := query{fn: fn, done: make(chan struct{})}
	select {
	case e.cmds <- q:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrStopped
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrStopped
	}
}

// Games lists every game.
func (e *Engine) Games(ctx context.Context) ([]conquest.GameSummary, error) {
	var out []conquest.GameSummary
	err := e.do(ctx, func() { out = e.reg.Summaries() })
	return out, err
}

// Game returns the full state of one game.
func (e *Engine) Game(ctx context.Context, gameID string) (conquest.GameSnapshot, error) {
	var snap conquest.GameSnapshot
	var qerr error
	if err := e.do(ctx, func() { snap, qerr = e.reg.Snapshot(gameID) }); err != nil {
		return conquest.GameSnapshot{}, err
	}
	return snap, qerr
}

// dispatch applies one command. A panic is contained to the step that
// raised it; a panicking tick ends its game.
func (e *Engine) dispatch(cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("command", fmt.Sprintf("%T", cmd)).
				Bytes("stack", debug.Stack()).
				Msg("Dispatcher step panicked")
			if t, ok := cmd.(tickGame); ok {
				e.halt(t.gameID)
			}
		}
	}()
	e.handle(cmd)
}

func (e *Engine) handle(cmd Command) {
	switch c := cmd.(type) {
	case JoinGame:
		e.join(c)
	case CreateGame:
		e.create(c)
	case LeaveGame:
		e.leave(c.ConnID, true)
	case Disconnect:
		e.leave(c.ConnID, false)
	case MoveArmy:
		e.move(c)
	case AttackProvince:
		e.attack(c)
	case Recruit:
		e.recruit(c)
	case Build:
		e.build(c)
	case SetRelation:
		e.setRelation(c)
	case SendChat:
		e.sendChat(c)
	case RecordLatency:
		if e.sessions.RecordLatency(c.ConnID, c.RTT) {
			log.Debug().Str("connId", c.ConnID).Dur("rtt", c.RTT).Msg("Latency recorded")
		}
	case tickGame:
		e.tick(c.gameID)
	case reapIdle:
		e.reap()
	case query:
		defer close(c.done)
		c.fn()
	default:
		log.Warn().Str("command", fmt.Sprintf("%T", cmd)).Msg("Unknown command")
	}
}

// emit broadcasts a room event and mirrors it to spectators.
func (e *Engine) emit(gameID, eventType string, data any) {
	e.bc.BroadcastGameEvent(gameID, eventType, data)
	e.pub.Event(gameID, eventType, data)
}

func (e *Engine) reject(connID, command string, err error) {
	reason := err.Error()
	var ce *conquest.Error
	if errors.As(err, &ce) && ce.Msg != "" {
		reason = ce.Msg
	}
	gameID := ""
	if b, ok := e.sessions.Lookup(connID); ok {
		gameID = b.GameID
	}
	log.Debug().Str("connId", connID).Str("command", command).Str("reason", reason).Msg("Command rejected")
	e.bc.SendToConn(connID, gameID, EvtCommandRejected, RejectedPayload{
		Command: command,
		Kind:    conquest.KindOf(err),
		Reason:  reason,
	})
}

func (e *Engine) bound(connID string) (Binding, error) {
	b, ok := e.sessions.Lookup(connID)
	if !ok {
		return Binding{}, conquest.Errorf(conquest.KindValidation, "join a game first")
	}
	return b, nil
}

func (e *Engine) create(c CreateGame) {
	sum, err := e.reg.CreateGame(c.GameID, c.Name)
	if err != nil {
		e.reject(c.ConnID, MsgGameCreate, err)
		return
	}
	e.idleSince[sum.ID] = e.now()
	log.Info().Str("gameId", sum.ID).Str("name", sum.Name).Msg("Game created")
	e.bc.SendToConn(c.ConnID, sum.ID, EvtGameCreated, sum)
}

func (e *Engine) join(c JoinGame) {
	if prev, ok := e.sessions.Lookup(c.ConnID); ok && (prev.GameID != c.GameID || prev.PlayerID != c.PlayerID) {
		e.leave(c.ConnID, false)
	}

	sum, created, err := e.reg.GetOrCreateGame(c.GameID, c.GameName)
	if err != nil {
		e.reject(c.ConnID, MsgGameJoin, err)
		return
	}
	if created {
		log.Info().Str("gameId", sum.ID).Msg("Game created on first join")
	}
	if sum.Status == conquest.StatusEnded {
		e.reject(c.ConnID, MsgGameJoin, conquest.Errorf(conquest.KindInvariant, "game %q has ended", c.GameID))
		return
	}

	_, err = e.reg.Player(c.GameID, c.PlayerID)
	switch {
	case errors.Is(err, conquest.ErrNotFound):
		if _, err := e.reg.AddPlayer(c.GameID, conquest.PlayerInfo{
			ID:     c.PlayerID,
			ConnID: c.ConnID,
			Name:   c.Username,
			Nation: c.Nation,
			Color:  c.Color,
		}); err != nil {
			e.reject(c.ConnID, MsgGameJoin, err)
			return
		}
		e.placeStart(c.GameID, c.PlayerID)
	case err != nil:
		e.reject(c.ConnID, MsgGameJoin, err)
		return
	default:
		if err := e.reg.SetPlayerOnline(c.GameID, c.PlayerID, c.ConnID, true); err != nil {
			e.reject(c.ConnID, MsgGameJoin, err)
			return
		}
	}

	if prev := e.sessions.Bind(c.ConnID, c.GameID, c.PlayerID, e.now()); prev != "" {
		e.bc.SendToConn(prev, c.GameID, EvtSessionReplaced, SessionReplacedPayload{PlayerID: c.PlayerID})
		e.bc.LeaveRoom(prev, c.GameID)
		log.Info().Str("gameId", c.GameID).Str("playerId", c.PlayerID).Str("previousConn", prev).Msg("Session replaced")
	}
	e.bc.JoinRoom(c.ConnID, c.GameID)
	delete(e.idleSince, c.GameID)

	player, _ := e.reg.Player(c.GameID, c.PlayerID)
	snap, _ := e.reg.Snapshot(c.GameID)
	e.bc.SendToConn(c.ConnID, c.GameID, EvtGameJoined, joinedPayload(snap, player))
	e.bc.SendToConn(c.ConnID, c.GameID, EvtChatHistory, ChatHistoryPayload{
		Messages: e.chat.History(c.GameID, c.PlayerID, e.allied(c.GameID)),
	})
	e.emit(c.GameID, EvtPlayerJoined, playerPayload(player))

	log.Info().
		Str("gameId", c.GameID).
		Str("playerId", c.PlayerID).
		Str("connId", c.ConnID).
		Int("players", len(snap.Players)).
		Msg("Player joined")

	if snap.Status == conquest.StatusWaiting && len(snap.Players) >= e.cfg.MinPlayers {
		e.start(c.GameID)
	}
}

// placeStart gives a first-time joiner a province and an army. A full map
// leaves the player landless.
func (e *Engine) placeStart(gameID, playerID string) {
	prov, err := e.reg.AssignStartProvince(gameID, playerID)
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Str("playerId", playerID).Msg("No start province available")
		return
	}
	e.emit(gameID, EvtProvinceCaptured, ProvinceCapturedPayload{ProvinceID: prov.ID, NewOwnerID: playerID})

	strength := e.reg.Rules().StartingStrength
	if strength <= 0 {
		return
	}
	u, err := e.reg.SpawnUnit(gameID, playerID, prov.ID, conquest.Infantry, strength)
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Str("playerId", playerID).Msg("Starting army not spawned")
		return
	}
	e.emit(gameID, EvtUnitSpawned, u)
}

func (e *Engine) start(gameID string) {
	if err := e.reg.StartGame(gameID); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Failed to start game")
		return
	}
	e.sched.Start(gameID)
	sum, _ := e.reg.Summary(gameID)
	e.emit(gameID, EvtGameStarted, sum)
	log.Info().Str("gameId", gameID).Int("players", sum.Players).Msg("Game started")
}

func (e *Engine) leave(connID string, requested bool) {
	b, ok := e.sessions.Unbind(connID)
	if !ok {
		if requested {
			e.reject(connID, MsgGameLeave, conquest.Errorf(conquest.KindValidation, "not in a game"))
		}
		return
	}
	e.bc.LeaveRoom(connID, b.GameID)
	if err := e.reg.SetPlayerOnline(b.GameID, b.PlayerID, "", false); err != nil {
		log.Warn().Err(err).Str("gameId", b.GameID).Str("playerId", b.PlayerID).Msg("Leave for unknown player")
		return
	}
	if p, err := e.reg.Player(b.GameID, b.PlayerID); err == nil {
		e.emit(b.GameID, EvtPlayerLeft, playerPayload(p))
	}
	if sum, err := e.reg.Summary(b.GameID); err == nil && sum.PlayersOnline == 0 {
		e.idleSince[b.GameID] = e.now()
	}
	log.Info().
		Str("gameId", b.GameID).
		Str("playerId", b.PlayerID).
		Str("connId", connID).
		Bool("requested", requested).
		Msg("Player left")
}

func (e *Engine) move(c MoveArmy) {
	b, err := e.bound(c.ConnID)
	if err != nil {
		e.reject(c.ConnID, MsgArmyMove, err)
		return
	}
	from, _ := e.reg.Unit(b.GameID, c.ArmyID)
	u, err := e.reg.SetUnitPath(b.GameID, b.PlayerID, c.ArmyID, c.Destination)
	if err != nil {
		e.reject(c.ConnID, MsgArmyMove, err)
		return
	}
	e.emit(b.GameID, EvtArmyMoved, ArmyMovedPayload{
		ArmyID:                u.ID,
		OwnerID:               u.Owner,
		FromProvinceID:        from.Province,
		DestinationProvinceID: u.Target,
		Path:                  u.Path,
	})
}

// attack engages hostiles in the army's own province at once, or marches
// the army on a hostile province elsewhere.
func (e *Engine) attack(c AttackProvince) {
	b, err := e.bound(c.ConnID)
	if err != nil {
		e.reject(c.ConnID, MsgArmyAttack, err)
		return
	}
	u, err := e.reg.Unit(b.GameID, c.ArmyID)
	if err != nil {
		e.reject(c.ConnID, MsgArmyAttack, err)
		return
	}
	if u.Owner != b.PlayerID {
		e.reject(c.ConnID, MsgArmyAttack, conquest.Errorf(conquest.KindValidation, "army %q is not yours", c.ArmyID))
		return
	}

	if c.Target == u.Province {
		battle, created, err := e.reg.EngageBattle(b.GameID, b.PlayerID, u.ID)
		if err != nil {
			e.reject(c.ConnID, MsgArmyAttack, err)
			return
		}
		if created {
			e.emit(b.GameID, EvtBattleStarted, battlePayload(battle))
		} else {
			e.bc.SendToConn(c.ConnID, b.GameID, EvtBattleStarted, battlePayload(battle))
		}
		return
	}

	hostile, err := e.reg.IsHostileTarget(b.GameID, b.PlayerID, c.Target)
	if err != nil {
		e.reject(c.ConnID, MsgArmyAttack, err)
		return
	}
	if !hostile {
		e.reject(c.ConnID, MsgArmyAttack, conquest.Errorf(conquest.KindValidation, "province %q is not hostile", c.Target))
		return
	}
	moved, err := e.reg.SetUnitPath(b.GameID, b.PlayerID, u.ID, c.Target)
	if err != nil {
		e.reject(c.ConnID, MsgArmyAttack, err)
		return
	}
	e.emit(b.GameID, EvtArmyMoved, ArmyMovedPayload{
		ArmyID:                moved.ID,
		OwnerID:               moved.Owner,
		FromProvinceID:        u.Province,
		DestinationProvinceID: moved.Target,
		Path:                  moved.Path,
		Attack:                true,
	})
}

func (e *Engine) recruit(c Recruit) {
	b, err := e.bound(c.ConnID)
	if err != nil {
		e.reject(c.ConnID, MsgProvinceRecruit, err)
		return
	}
	order, err := e.reg.QueueProduction(b.GameID, b.PlayerID, c.ProvinceID, c.UnitType, c.Strength)
	if err != nil {
		e.reject(c.ConnID, MsgProvinceRecruit, err)
		return
	}
	e.bc.SendToConn(c.ConnID, b.GameID, EvtProductionQueued, ProductionPayload{
		ProvinceID: c.ProvinceID,
		UnitType:   order.UnitType,
		Strength:   order.Strength,
		TicksLeft:  order.TicksLeft,
	})
	e.sendResources(b.GameID, b.PlayerID, c.ConnID)
}

func (e *Engine) build(c Build) {
	b, err := e.bound(c.ConnID)
	if err != nil {
		e.reject(c.ConnID, MsgProvinceBuild, err)
		return
	}
	order, err := e.reg.StartConstruction(b.GameID, b.PlayerID, c.ProvinceID, c.Building)
	if err != nil {
		e.reject(c.ConnID, MsgProvinceBuild, err)
		return
	}
	e.bc.SendToConn(c.ConnID, b.GameID, EvtConstructionStarted, ConstructionPayload{
		ProvinceID: c.ProvinceID,
		Building:   order.Building,
		TicksLeft:  order.TicksLeft,
	})
	e.sendResources(b.GameID, b.PlayerID, c.ConnID)
}

func (e *Engine) setRelation(c SetRelation) {
	b, err := e.bound(c.ConnID)
	if err != nil {
		e.reject(c.ConnID, MsgDiplomacySet, err)
		return
	}
	if err := e.reg.SetRelation(b.GameID, b.PlayerID, c.PlayerID, c.Relation); err != nil {
		e.reject(c.ConnID, MsgDiplomacySet, err)
		return
	}
	e.emit(b.GameID, EvtDiplomacyChanged, DiplomacyPayload{
		PlayerID:      b.PlayerID,
		OtherPlayerID: c.PlayerID,
		Relation:      c.Relation,
	})
}

// sendChat relays a chat line. Invalid chat is dropped without a reply.
func (e *Engine) sendChat(c SendChat) {
	b, ok := e.sessions.Lookup(c.ConnID)
	if !ok {
		return
	}
	text := strings.TrimSpace(c.Message)
	if text == "" || len(text) > maxChatLength || !conquest.ValidChannel(c.Channel) {
		return
	}
	author, err := e.reg.Player(b.GameID, b.PlayerID)
	if err != nil {
		return
	}
	if c.Channel == conquest.ChannelPrivate {
		if c.RecipientID == "" || c.RecipientID == b.PlayerID {
			return
		}
		if _, err := e.reg.Player(b.GameID, c.RecipientID); err != nil {
			return
		}
	}

	msg := conquest.ChatMessage{
		ID:         e.newID(),
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Text:       text,
		Channel:    c.Channel,
		Timestamp:  e.now().UTC(),
	}
	if c.Channel == conquest.ChannelPrivate {
		msg.RecipientID = c.RecipientID
	}
	e.chat.Record(b.GameID, msg)
	e.pub.Chat(b.GameID, msg)

	switch c.Channel {
	case conquest.ChannelGlobal:
		e.emit(b.GameID, EvtChatMessage, msg)
	case conquest.ChannelPrivate:
		e.bc.SendToConn(c.ConnID, b.GameID, EvtChatMessage, msg)
		if conn, ok := e.sessions.ConnFor(b.GameID, c.RecipientID); ok {
			e.bc.SendToConn(conn, b.GameID, EvtChatMessage, msg)
		}
	case conquest.ChannelAlliance:
		allied := e.allied(b.GameID)
		players, _ := e.reg.Players(b.GameID)
		for _, p := range players {
			if p.ID != author.ID && !allied(p.ID, author.ID) {
				continue
			}
			if conn, ok := e.sessions.ConnFor(b.GameID, p.ID); ok {
				e.bc.SendToConn(conn, b.GameID, EvtChatMessage, msg)
			}
		}
	}
}

func (e *Engine) allied(gameID string) func(a, b string) bool {
	return func(a, b string) bool {
		rel, err := e.reg.Relation(gameID, a, b)
		return err == nil && a != b && rel == conquest.RelationAlliance
	}
}

func (e *Engine) tick(gameID string) {
	res, err := e.reg.AdvanceTick(gameID)
	if err != nil {
		// The game ended or was removed after this tick was queued.
		e.sched.Stop(gameID)
		return
	}
	if err := e.reg.CheckInvariants(gameID); err != nil {
		lg := logger.ForGame(gameID)
		lg.Error().Err(err).Uint64("tick", res.Tick).Msg("World state corrupted, halting game")
		e.halt(gameID)
		return
	}

	for _, ev := range res.Events {
		typ, data := eventMessage(ev)
		if typ == "" {
			continue
		}
		e.emit(gameID, typ, data)
		if ended, ok := ev.(conquest.BattleEnded); ok {
			e.pub.Battle(gameID, ended.Battle)
		}
	}

	sum, _ := e.reg.Summary(gameID)
	e.emit(gameID, EvtGameTick, TickPayload{Tick: res.Tick, Day: res.Day, PlayersOnline: sum.PlayersOnline})
	if res.Tick%uint64(e.cfg.ResourceSyncTicks) == 0 {
		e.syncResources(gameID)
	}
	e.flushDayReports()

	if res.Victor != "" {
		e.finish(gameID, res.Victor, "conquest")
	}
	if snap, err := e.reg.Snapshot(gameID); err == nil {
		e.pub.Snapshot(snap)
	}
}

func (e *Engine) syncResources(gameID string) {
	players, _ := e.reg.Players(gameID)
	for _, p := range players {
		if conn, ok := e.sessions.ConnFor(gameID, p.ID); ok {
			e.bc.SendToConn(conn, gameID, EvtPlayerResources, p.Resources)
		}
	}
}

func (e *Engine) sendResources(gameID, playerID, connID string) {
	if p, err := e.reg.Player(gameID, playerID); err == nil {
		e.bc.SendToConn(connID, gameID, EvtPlayerResources, p.Resources)
	}
}

func (e *Engine) flushDayReports() {
	for _, d := range e.pendingDay {
		e.emit(d.gameID, EvtGameDay, e.dayPayload(d))
	}
	e.pendingDay = e.pendingDay[:0]
}

func (e *Engine) dayPayload(d dayReport) DayPayload {
	snap, _ := e.reg.Snapshot(d.gameID)
	entries := make([]DayReportEntry, 0, len(snap.Players))
	index := make(map[string]int, len(snap.Players))
	for _, p := range snap.Players {
		index[p.ID] = len(entries)
		entries = append(entries, DayReportEntry{PlayerID: p.ID})
	}
	for _, prov := range snap.Provinces {
		if i, ok := index[prov.Owner]; ok {
			entries[i].Provinces++
		}
	}
	for _, u := range snap.Units {
		if i, ok := index[u.Owner]; ok {
			entries[i].Units++
			entries[i].Strength += u.Strength
		}
	}
	return DayPayload{Day: d.day, Tick: snap.Tick, Players: entries}
}

// finish ends a game, stops its timer and archives the result.
func (e *Engine) finish(gameID, winner, reason string) {
	if err := e.reg.EndGame(gameID, winner); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to end game")
		return
	}
	e.sched.Stop(gameID)
	e.idleSince[gameID] = e.now()

	sum, _ := e.reg.Summary(gameID)
	e.emit(gameID, EvtGameEnded, GameEndedPayload{Winner: winner, Reason: reason, Tick: sum.Tick, Day: sum.Day})
	e.pub.Result(model.GameResult{
		GameID:   gameID,
		GameName: sum.Name,
		Winner:   winner,
		Ticks:    sum.Tick,
		Days:     sum.Day,
		Players:  sum.Players,
		EndedAt:  e.now().UTC(),
	})
	log.Info().Str("gameId", gameID).Str("winner", winner).Str("reason", reason).Uint64("tick", sum.Tick).Msg("Game ended")
}

// halt ends a game whose tick failed unexpectedly. Other games keep running.
func (e *Engine) halt(gameID string) {
	e.sched.Stop(gameID)
	if sum, err := e.reg.Summary(gameID); err == nil && sum.Status != conquest.StatusEnded {
		e.finish(gameID, "", "internal error")
	}
}

// reap removes ended games and games nobody is connected to once they
// have been idle for the retention window.
func (e *Engine) reap() {
	now := e.now()
	for _, sum := range e.reg.Summaries() {
		if sum.Status != conquest.StatusEnded && sum.PlayersOnline > 0 {
			delete(e.idleSince, sum.ID)
			continue
		}
		since, ok := e.idleSince[sum.ID]
		if !ok {
			e.idleSince[sum.ID] = now
			continue
		}
		if now.Sub(since) < e.cfg.GameRetention {
			continue
		}
		e.remove(sum.ID)
	}
}

func (e *Engine) remove(gameID string) {
	e.sched.Stop(gameID)
	if err := e.reg.RemoveGame(gameID); err != nil {
		return
	}
	for _, conn := range e.sessions.DropGame(gameID) {
		e.bc.LeaveRoom(conn, gameID)
	}
	e.chat.Drop(gameID)
	e.pub.Forget(gameID)
	delete(e.idleSince, gameID)
	log.Info().Str("gameId", gameID).Msg("Idle game removed")
}

func joinedPayload(snap conquest.GameSnapshot, p conquest.Player) GameJoinedPayload {
	players := make([]PlayerPayload, 0, len(snap.Players))
	for _, sp := range snap.Players {
		players = append(players, playerPayload(sp))
	}
	battles := make([]BattlePayload, 0, len(snap.Battles))
	for _, b := range snap.Battles {
		battles = append(battles, battlePayload(b))
	}
	return GameJoinedPayload{
		GameID:    snap.ID,
		GameName:  snap.Name,
		PlayerID:  p.ID,
		Nation:    p.Nation,
		Color:     p.Color,
		Resources: p.Resources,
		Players:   players,
		Provinces: snap.Provinces,
		Units:     snap.Units,
		Battles:   battles,
		Tick:      snap.Tick,
		Day:       snap.Day,
		Status:    snap.Status,
	}
}
