// Package historian drains room events from the Redis queue and persists them
// in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/vgmguess/internal/cache"
	"github.com/jason-s-yu/vgmguess/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink is where flushed batches end up. *database.DB satisfies it.
type Sink interface {
	SaveEvents(ctx context.Context, events []models.RoomEvent) error
	MarkAbandoned(ctx context.Context, gameID uuid.UUID) error
}

// Options tune batching and inactivity handling. Zero values take defaults.
type Options struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	PopTimeout time.Duration
	Inactivity time.Duration
	SweepEvery time.Duration
}

// Service pops events, accumulates them, and flushes on size or on a timer.
type Service struct {
	rdb  *redis.Client
	sink Sink
	log  logrus.FieldLogger
	opts Options

	batch        []models.RoomEvent
	lastActivity map[uuid.UUID]time.Time
	now          func() time.Time
}

// New builds a Service over rdb and sink.
func New(rdb *redis.Client, sink Sink, opts Options, logger logrus.FieldLogger) *Service {
	if opts.Queue == "" {
		opts.Queue = cache.DefaultQueueName
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = time.Second
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = 10 * time.Minute
	}
	if opts.SweepEvery <= 0 {
		opts.SweepEvery = time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		rdb:          rdb,
		sink:         sink,
		log:          logger.WithField("component", "historian"),
		opts:         opts,
		batch:        make([]models.RoomEvent, 0, opts.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
		now:          time.Now,
	}
}

// Run consumes the queue until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) error {
	flushTicker := time.NewTicker(s.opts.FlushDelay)
	defer flushTicker.Stop()
	sweepTicker := time.NewTicker(s.opts.SweepEvery)
	defer sweepTicker.Stop()

	s.log.WithField("queue", s.opts.Queue).Info("historian started")
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.flush(flushCtx)
			cancel()
			s.log.Info("historian stopped")
			return nil
		case <-flushTicker.C:
			s.flush(ctx)
		case <-sweepTicker.C:
			s.sweepInactive(ctx)
		default:
			s.pop(ctx)
		}
	}
}

func (s *Service) pop(ctx context.Context) {
	res, err := s.rdb.BLPop(ctx, s.opts.PopTimeout, s.opts.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return
		}
		s.log.WithError(err).Error("BLPop failed")
		select {
		case <-ctx.Done():
		case <-time.After(s.opts.PopTimeout):
		}
		return
	}
	// res[0] is the queue name
	if len(res) < 2 {
		return
	}

	var ev models.RoomEvent
	if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
		s.log.WithError(err).Warn("dropping malformed event")
		return
	}
	s.track(ev)

	s.batch = append(s.batch, ev)
	if len(s.batch) >= s.opts.BatchSize {
		s.flush(ctx)
	}
}

// track follows game activity so abandoned games can be closed out.
func (s *Service) track(ev models.RoomEvent) {
	if ev.GameID == uuid.Nil {
		return
	}
	switch ev.Type {
	case models.EventGameFinished, models.EventGameReset:
		delete(s.lastActivity, ev.GameID)
	default:
		s.lastActivity[ev.GameID] = s.now()
	}
}

func (s *Service) flush(ctx context.Context) {
	if len(s.batch) == 0 {
		return
	}
	out := make([]models.RoomEvent, len(s.batch))
	copy(out, s.batch)
	s.batch = s.batch[:0]

	if err := s.sink.SaveEvents(ctx, out); err != nil {
		s.log.WithError(err).WithField("count", len(out)).Error("flush failed, events dropped")
		return
	}
	s.log.WithField("count", len(out)).Debug("flushed events")
}

func (s *Service) sweepInactive(ctx context.Context) {
	now := s.now()
	for gameID, last := range s.lastActivity {
		if now.Sub(last) <= s.opts.Inactivity {
			continue
		}
		delete(s.lastActivity, gameID)
		if err := s.sink.MarkAbandoned(ctx, gameID); err != nil {
			s.log.WithError(err).WithField("gameId", gameID).Error("failed to mark game abandoned")
			continue
		}
		s.log.WithField("gameId", gameID).Info("marked game abandoned after inactivity")
	}
}
