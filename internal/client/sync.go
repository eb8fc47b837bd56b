package client

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jason-s-yu/vgmguess/internal/gateway"
	"github.com/sirupsen/logrus"
)

// Syncer polls one room and replaces the caller's state with every snapshot.
// Polling runs faster while a game is in progress.
type Syncer struct {
	client *Client
	log    logrus.FieldLogger

	LobbyInterval time.Duration
	GameInterval  time.Duration
	// MaxFailures consecutive failed polls are tolerated before onError hears about them.
	MaxFailures int

	newBackOff func() backoff.BackOff
}

// NewSyncer returns a Syncer with the default intervals.
func NewSyncer(c *Client, logger logrus.FieldLogger) *Syncer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Syncer{
		client:        c,
		log:           logger,
		LobbyInterval: 5 * time.Second,
		GameInterval:  2 * time.Second,
		MaxFailures:   3,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Run polls roomCode until ctx is done or the room disappears. onSnapshot
// receives every snapshot; onError receives failures once MaxFailures
// consecutive polls have failed. Run returns ErrRoomGone when the room is
// deleted and ctx.Err() when cancelled.
func (s *Syncer) Run(ctx context.Context, roomCode string, onSnapshot func(*gateway.Snapshot), onError func(error)) error {
	bo := backoff.WithContext(s.newBackOff(), ctx)
	failures := 0

	for {
		snap, err := s.client.Poll(ctx, roomCode)
		var wait time.Duration
		switch {
		case err == nil:
			failures = 0
			bo.Reset()
			if onSnapshot != nil {
				onSnapshot(snap)
			}
			wait = s.LobbyInterval
			if snap.GameStarted {
				wait = s.GameInterval
			}

		case errors.Is(err, ErrRoomGone):
			s.log.WithField("room", roomCode).Info("room no longer exists; stopping poll")
			return ErrRoomGone

		case ctx.Err() != nil:
			return ctx.Err()

		case IsRejection(err):
			return err

		default:
			failures++
			s.log.WithError(err).WithFields(logrus.Fields{
				"room":     roomCode,
				"failures": failures,
			}).Debug("poll failed")
			if failures >= s.MaxFailures && onError != nil {
				onError(err)
			}
			wait = bo.NextBackOff()
			if wait == backoff.Stop {
				return ctx.Err()
			}
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
