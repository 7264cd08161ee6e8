package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/internal/model"
	"github.com/freeeve/conquest/internal/repository"
	"github.com/freeeve/conquest/pkg/conquest"
)

const publishTimeout = 5 * time.Second

type publishJob struct {
	name   string
	gameID string
	run    func(ctx context.Context) error
}

// Publisher performs write-behind I/O for the dispatcher: snapshot
// mirroring and event fan-out to the cache, and archiving to the match
// store. Jobs are queued without blocking and dropped when the queue is
// full. Either backend may be nil.
type Publisher struct {
	cache       repository.SnapshotCache
	archive     repository.MatchArchive
	snapshotTTL time.Duration
	jobs        chan publishJob
	dropped     atomic.Int64
	failed      atomic.Int64
}

// NewPublisher creates a Publisher with a queue of the given size.
func NewPublisher(cache repository.SnapshotCache, archive repository.MatchArchive, snapshotTTL time.Duration, queue int) *Publisher {
	return &Publisher{
		cache:       cache,
		archive:     archive,
		snapshotTTL: snapshotTTL,
		jobs:        make(chan publishJob, queue),
	}
}

// Run executes queued jobs until ctx is cancelled, then drains what is
// left with a short deadline.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return nil
		case job := <-p.jobs:
			p.exec(context.WithoutCancel(ctx), job)
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	for {
		select {
		case job := <-p.jobs:
			p.exec(ctx, job)
		default:
			return
		}
	}
}

func (p *Publisher) exec(parent context.Context, job publishJob) {
	ctx, cancel := context.WithTimeout(parent, publishTimeout)
	defer cancel()
	if err := job.run(ctx); err != nil {
		p.failed.Add(1)
		log.Warn().Err(err).Str("job", job.name).Str("gameId", job.gameID).Msg("Publish failed")
	}
}

func (p *Publisher) enqueue(job publishJob) {
	select {
	case p.jobs <- job:
	default:
		if p.dropped.Add(1)%100 == 1 {
			log.Warn().Str("job", job.name).Int64("dropped", p.dropped.Load()).Msg("Publish queue full, dropping")
		}
	}
}

// Snapshot mirrors the state of a game.
func (p *Publisher) Snapshot(snap conquest.GameSnapshot) {
	if p.cache == nil {
		return
	}
	p.enqueue(publishJob{name: "snapshot", gameID: snap.ID, run: func(ctx context.Context) error {
		return p.cache.SetSnapshot(ctx, snap, p.snapshotTTL)
	}})
}

// Event fans an outbound room event out to spectators.
func (p *Publisher) Event(gameID, eventType string, data any) {
	if p.cache == nil {
		return
	}
	p.enqueue(publishJob{name: "event", gameID: gameID, run: func(ctx context.Context) error {
		return p.cache.PublishEvent(ctx, gameID, eventType, data)
	}})
}

// Forget removes the mirrored data of a removed game.
func (p *Publisher) Forget(gameID string) {
	if p.cache == nil {
		return
	}
	p.enqueue(publishJob{name: "forget", gameID: gameID, run: func(ctx context.Context) error {
		return p.cache.DeleteGameData(ctx, gameID)
	}})
}

// Battle archives a resolved battle.
func (p *Publisher) Battle(gameID string, b conquest.Battle) {
	if p.archive == nil {
		return
	}
	rec := model.BattleRecord{
		BattleID:    b.ID,
		GameID:      gameID,
		ProvinceID:  b.Province,
		AttackerID:  b.Attacker,
		DefenderIDs: b.Defenders,
		Winner:      b.Winner,
		Rounds:      b.Rounds,
		StartedTick: b.StartedAt,
		EndedTick:   b.EndedAt,
	}
	p.enqueue(publishJob{name: "battle", gameID: gameID, run: func(ctx context.Context) error {
		return p.archive.RecordBattle(ctx, rec)
	}})
}

// Result archives the outcome of an ended game.
func (p *Publisher) Result(res model.GameResult) {
	if p.archive == nil {
		return
	}
	p.enqueue(publishJob{name: "result", gameID: res.GameID, run: func(ctx context.Context) error {
		return p.archive.RecordResult(ctx, res)
	}})
}

// Chat archives a relayed chat line.
func (p *Publisher) Chat(gameID string, m conquest.ChatMessage) {
	if p.archive == nil {
		return
	}
	rec := model.ChatRecord{
		ID:          m.ID,
		GameID:      gameID,
		SenderID:    m.AuthorID,
		RecipientID: m.RecipientID,
		Channel:     string(m.Channel),
		Content:     m.Text,
		CreatedAt:   m.Timestamp,
	}
	p.enqueue(publishJob{name: "chat", gameID: gameID, run: func(ctx context.Context) error {
		return p.archive.RecordChat(ctx, rec)
	}})
}

// Dropped reports how many jobs were discarded on a full queue.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

// Failed reports how many jobs returned an error.
func (p *Publisher) Failed() int64 { return p.failed.Load() }
