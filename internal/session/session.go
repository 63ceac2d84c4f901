package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Outbound is what the session sends back to the server.
type Outbound interface {
	RequestCatalog(ctx context.Context, game string) error
	ReportObjectives(ctx context.Context, ids []int64) error
	ReportGoal(ctx context.Context) error
	Say(ctx context.Context, text string) error
	Sync(ctx context.Context) error
}

type Config struct {
	Game string
	Slot string
	// StatusCommand is a format string taking the slot name.
	StatusCommand  string
	ScoutQueueSize int
}

type Session struct {
	cfg Config
	out Outbound
	log zerolog.Logger

	// lock serializes every read-modify-write of st. Acquire takes a
	// context so waiters give up on shutdown.
	lock *semaphore.Weighted
	st   state

	ledger ledger

	seedOnce  sync.Once
	seedReady chan struct{}

	scouts chan ScoutedObjective

	// spawnMu orders tasks.Add against the final tasks.Wait in Run.
	spawnMu sync.Mutex
	stopped bool
	tasks   sync.WaitGroup
	fatal   chan error
}

func New(cfg Config, out Outbound, logger zerolog.Logger) *Session {
	if cfg.Game == "" {
		cfg.Game = "Hangman"
	}
	if cfg.StatusCommand == "" {
		cfg.StatusCommand = "@%s status"
	}
	if cfg.ScoutQueueSize <= 0 {
		cfg.ScoutQueueSize = 64
	}
	return &Session{
		cfg:       cfg,
		out:       out,
		log:       logger.With().Str("component", "session").Str("slot", cfg.Slot).Logger(),
		lock:      semaphore.NewWeighted(1),
		st:        newState(),
		seedReady: make(chan struct{}),
		scouts:    make(chan ScoutedObjective, cfg.ScoutQueueSize),
		fatal:     make(chan error, 1),
	}
}

// Run consumes the scout queue until ctx ends or a task fails with a
// consistency error. On cancellation it lets in-flight tasks finish first.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.spawnMu.Lock()
			s.stopped = true
			s.spawnMu.Unlock()
			s.tasks.Wait()
			return ctx.Err()
		case err := <-s.fatal:
			return err
		case sc := <-s.scouts:
			s.logScout(ctx, sc)
		}
	}
}

// Wait blocks until every spawned task has returned.
func (s *Session) Wait() {
	s.tasks.Wait()
}

func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return Snapshot{}, err
	}
	defer s.lock.Release(1)
	return s.st.snapshot(), nil
}

// Handle applies one inbound event. It is called from a single reader
// goroutine; slow work is spawned so the reader never waits on the lock for
// long.
func (s *Session) Handle(ctx context.Context, ev Event) error {
	switch ev := ev.(type) {
	case RoomInfo:
		return s.onRoomInfo(ctx, ev)
	case Connected:
		return s.onConnected(ctx, ev)
	case CatalogReceived:
		return s.onCatalog(ctx, ev)
	case ItemsGranted:
		return s.onItemsGranted(ctx, ev)
	case ScoutInfo:
		return s.onScoutInfo(ctx, ev)
	case ChatMessage:
		return s.onChat(ctx, ev)
	case Disconnected:
		s.log.Info().Err(ev.Err).Msg("disconnected; keeping session state")
		return nil
	default:
		return fmt.Errorf("session: unhandled event %T", ev)
	}
}

func (s *Session) spawn(ctx context.Context, name string, fn func(context.Context) error) {
	s.spawnMu.Lock()
	if s.stopped || ctx.Err() != nil {
		s.spawnMu.Unlock()
		s.log.Debug().Str("task", name).Msg("session stopped; task not started")
		return
	}
	s.tasks.Add(1)
	s.spawnMu.Unlock()
	go func() {
		defer s.tasks.Done()
		err := fn(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrConsistency):
			s.fail(err)
		case ctx.Err() != nil:
		default:
			s.log.Warn().Err(err).Str("task", name).Msg("task failed; will retry on next trigger")
		}
	}()
}

func (s *Session) fail(err error) error {
	s.log.Error().Err(err).Msg("session state is inconsistent")
	select {
	case s.fatal <- err:
	default:
	}
	return err
}

// say is narration; a lost line is logged, never fatal.
func (s *Session) say(ctx context.Context, text string) {
	s.log.Info().Str("say", text).Msg("chat")
	if err := s.out.Say(ctx, text); err != nil {
		s.log.Warn().Err(err).Msg("say failed")
	}
}

func (s *Session) sayLines(ctx context.Context, lines []string) {
	for _, l := range lines {
		s.say(ctx, l)
	}
}

func (s *Session) isStatusCommand(text string) bool {
	return strings.TrimSpace(text) == fmt.Sprintf(s.cfg.StatusCommand, s.cfg.Slot)
}
