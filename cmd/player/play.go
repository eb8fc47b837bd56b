package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/jason-s-yu/vgmguess/internal/client"
	"github.com/jason-s-yu/vgmguess/internal/gateway"
	"github.com/jason-s-yu/vgmguess/internal/models"
	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
)

func newLogger(cfg *Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	if cfg.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func joinLink(server, code string) string {
	return strings.TrimRight(server, "/") + "/?room=" + url.QueryEscape(code)
}

func runCreate(ctx context.Context, out io.Writer, cfg *Config) error {
	c := client.New(cfg.server)
	code, err := c.CreateRoom(ctx, cfg.nickname)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "room %s created, you are the host\n", code)
	if cfg.qr {
		qr, err := qrcode.New(joinLink(cfg.server, code), qrcode.Medium)
		if err != nil {
			return fmt.Errorf("encode qr code: %w", err)
		}
		fmt.Fprint(out, qr.ToSmallString(false))
		fmt.Fprintln(out, joinLink(cfg.server, code))
	}
	return nil
}

func runWatch(ctx context.Context, out io.Writer, cfg *Config, code string) error {
	syncer := client.NewSyncer(client.New(cfg.server), newLogger(cfg))
	var p printer
	err := syncer.Run(ctx, code, func(s *gateway.Snapshot) {
		p.render(out, s)
	}, func(err error) {
		fmt.Fprintf(out, "connection trouble, still trying: %v\n", err)
	})
	return endOfSync(out, err)
}

func runPlay(ctx context.Context, in io.Reader, out io.Writer, cfg *Config, code string) error {
	c := client.New(cfg.server)
	nick := strings.TrimSpace(cfg.nickname)
	snap, err := c.JoinRoom(ctx, code, nick)
	if err != nil {
		return err
	}
	code = snap.RoomCode

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu     sync.Mutex
		latest = snap
		p      printer
	)
	current := func() *gateway.Snapshot {
		mu.Lock()
		defer mu.Unlock()
		return latest
	}
	apply := func(s *gateway.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		latest = s
		p.render(out, s)
	}
	apply(snap)

	syncErr := make(chan error, 1)
	go func() {
		syncer := client.NewSyncer(c, newLogger(cfg))
		syncErr <- syncer.Run(ctx, code, apply, func(err error) {
			fmt.Fprintf(out, "connection trouble, still trying: %v\n", err)
		})
		cancel()
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return endOfSync(out, <-syncErr)
		case line, ok := <-lines:
			if !ok {
				cancel()
				return nil
			}
			left, err := handleLine(ctx, c, out, code, nick, strings.TrimSpace(line), current(), cfg.rounds, apply)
			if err != nil {
				if client.IsRejection(err) {
					fmt.Fprintf(out, "! %v\n", err)
					continue
				}
				if errors.Is(err, client.ErrRoomGone) {
					cancel()
					return endOfSync(out, err)
				}
				fmt.Fprintf(out, "request failed, try again: %v\n", err)
				continue
			}
			if left {
				cancel()
				fmt.Fprintln(out, "you left the room")
				return nil
			}
		}
	}
}

// handleLine runs one line of input and reports whether the player left.
func handleLine(ctx context.Context, c *client.Client, out io.Writer, code, nick, line string, snap *gateway.Snapshot, rounds int, apply func(*gateway.Snapshot)) (bool, error) {
	round := 0
	if snap != nil && snap.Game != nil {
		round = snap.Game.CurrentRound
	}

	cmd, arg, _ := strings.Cut(line, " ")
	var (
		next *gateway.Snapshot
		err  error
	)
	switch cmd {
	case "/start", "/next", "/reset":
		if snap != nil && snap.Host != nick {
			fmt.Fprintf(out, "only the host (%s) can use %s\n", snap.Host, cmd)
			return false, nil
		}
	}

	switch cmd {
	case "":
		return false, nil
	case "/skip":
		next, err = c.Skip(ctx, code, nick, round)
	case "/next":
		next, err = c.NextRound(ctx, code, nick, round)
	case "/reset":
		next, err = c.Reset(ctx, code, nick)
	case "/start":
		n := rounds
		if arg != "" {
			if n, err = strconv.Atoi(strings.TrimSpace(arg)); err != nil {
				fmt.Fprintln(out, "usage: /start [rounds]")
				return false, nil
			}
		}
		next, err = c.Start(ctx, code, nick, n)
	case "/leave":
		_, _, err = c.Leave(ctx, code, nick)
		return err == nil, err
	default:
		var res *gateway.GuessResult
		res, err = c.Guess(ctx, code, nick, line, round)
		if err == nil {
			fmt.Fprintf(out, "> %s\n", res.Message)
			next = res.Lobby
		}
	}
	if err != nil {
		return false, err
	}
	apply(next)
	return false, nil
}

func endOfSync(out io.Writer, err error) error {
	switch {
	case errors.Is(err, client.ErrRoomGone):
		fmt.Fprintln(out, "the room no longer exists")
		return nil
	case errors.Is(err, context.Canceled):
		return nil
	}
	return err
}

// printer writes a snapshot only when something a player cares about changed.
type printer struct {
	last string
}

func (p *printer) render(out io.Writer, s *gateway.Snapshot) {
	var b strings.Builder
	fmt.Fprintf(&b, "room %s  host %s  players %s\n", s.RoomCode, s.Host, strings.Join(s.Players, ", "))
	if g := s.Game; g != nil && s.GameStarted {
		switch {
		case g.GameFinished:
			fmt.Fprintf(&b, "game over, winners: %s\n", strings.Join(g.Winners, ", "))
		default:
			fmt.Fprintf(&b, "round %d/%d", g.CurrentRound, g.TotalRounds)
			if g.RoundFinished {
				if song := g.CurrentSong; song != nil {
					fmt.Fprintf(&b, "  answer: %s (%s)", song.Title, song.Game)
				}
				if len(g.RoundWinners) == 1 && g.RoundWinners[0] == models.NoWinner {
					b.WriteString("  nobody got it")
				} else {
					fmt.Fprintf(&b, "  solved by %s", strings.Join(g.RoundWinners, ", "))
				}
			}
			b.WriteString("\n")
		}
		for _, st := range g.Standings {
			fmt.Fprintf(&b, "  %d. %-20s %3d  (%d/%d)\n", st.Rank, st.Player, st.Score, g.Attempts[st.Player], models.MaxAttempts)
		}
	} else {
		b.WriteString("waiting for the host to start\n")
	}

	if text := b.String(); text != p.last {
		p.last = text
		fmt.Fprint(out, text)
	}
}
