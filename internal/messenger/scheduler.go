package messenger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/estuportal/portalchat/internal/conversation"
	"github.com/estuportal/portalchat/internal/logging"
	"github.com/estuportal/portalchat/internal/store"
)

// Scheduler errors.
var (
	ErrAlreadyActive = errors.New("scheduler already active")
	ErrNotActive     = errors.New("scheduler not active")
	ErrMissingStore  = errors.New("message store is required")
)

// DefaultPollInterval is the delay between scheduled fetches.
const DefaultPollInterval = 3 * time.Second

// SchedulerConfig contains configuration for the Scheduler.
type SchedulerConfig struct {
	// PollInterval is the delay between scheduled fetches.
	// Default: 3s
	PollInterval time.Duration

	// Clock drives the ticker. Default: the wall clock.
	Clock clock.Clock

	// Deriver resolves timestamps for ordering.
	Deriver conversation.Deriver

	// Metrics is optional.
	Metrics *Metrics
}

// Scheduler periodically fetches the local user's records and publishes the
// derived conversation list and active timeline.
type Scheduler struct {
	store   store.MessageStore
	user    string
	config  SchedulerConfig
	clock   clock.Clock
	metrics *Metrics
	logger  zerolog.Logger

	mu          sync.RWMutex
	active      bool
	epoch       uint64
	counterpart string
	pinned      string
	view        View
	cancel      context.CancelFunc
	ticker      *clock.Ticker
	subs        map[int]chan View
	nextSub     int
}

// NewScheduler creates a Scheduler for localUser.
func NewScheduler(st store.MessageStore, localUser string, config SchedulerConfig) (*Scheduler, error) {
	if st == nil {
		return nil, ErrMissingStore
	}
	if strings.TrimSpace(localUser) == "" {
		return nil, store.ErrMissingUser
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}

	return &Scheduler{
		store:   st,
		user:    localUser,
		config:  config,
		clock:   config.Clock,
		metrics: config.Metrics,
		logger:  logging.WithUser(logging.Component("scheduler"), localUser),
		subs:    make(map[int]chan View),
	}, nil
}

// User returns the local identity.
func (s *Scheduler) User() string {
	return s.user
}

// Activate fetches immediately and then once per poll interval until
// Deactivate. pinned names a counterpart that must appear in the list even
// before any message with it exists.
func (s *Scheduler) Activate(ctx context.Context, pinned string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return ErrAlreadyActive
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.active = true
	s.epoch++
	s.pinned = strings.TrimSpace(pinned)
	s.cancel = cancel
	// The ticker is created before the loop starts so a mock clock advanced
	// right after Activate still fires it.
	s.ticker = s.clock.Ticker(s.config.PollInterval)

	s.logger.Info().
		Dur("interval", s.config.PollInterval).
		Str("pinned", s.pinned).
		Msg("scheduler activated")

	go s.runLoop(runCtx, s.ticker, s.epoch)
	return nil
}

// Deactivate stops scheduled fetches. A fetch still in flight completes in
// the background and its result is dropped. Cancelling the context passed
// to Activate has the same effect.
func (s *Scheduler) Deactivate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return ErrNotActive
	}
	s.stopLocked("scheduler deactivated")
	return nil
}

func (s *Scheduler) stopLocked(msg string) {
	s.active = false
	s.epoch++
	s.cancel()
	s.ticker.Stop()
	s.cancel = nil
	s.ticker = nil

	s.logger.Info().Msg(msg)
}

// IsActive returns true between Activate and Deactivate.
func (s *Scheduler) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActive changes the selected counterpart. It does not fetch; the next
// cycle builds the timeline for the new selection. An empty counterpart
// clears the selection.
func (s *Scheduler) SetActive(counterpart string) {
	counterpart = strings.TrimSpace(counterpart)
	s.mu.Lock()
	s.counterpart = counterpart
	s.mu.Unlock()
	s.logger.Debug().Str("counterpart", counterpart).Msg("selection changed")
}

// ActiveCounterpart returns the current selection.
func (s *Scheduler) ActiveCounterpart() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counterpart
}

// Pinned returns the pinned target of the current activation.
func (s *Scheduler) Pinned() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pinned
}

// Refresh runs one fetch cycle outside the schedule.
func (s *Scheduler) Refresh(ctx context.Context) error {
	return s.cycle(ctx, "refresh")
}

// View returns the most recently published snapshot.
func (s *Scheduler) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Subscribe returns a channel that always holds the latest published View.
// Slow readers skip intermediate views. The cancel func closes the channel.
func (s *Scheduler) Subscribe() (<-chan View, func()) {
	out := make(chan View, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = out
	if !s.view.Empty() {
		out <- s.view
	}
	s.mu.Unlock()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(out)
			s.mu.Unlock()
		})
	}
}

// Snapshot fetches and derives once without publishing. It works whether or
// not the scheduler is active.
func (s *Scheduler) Snapshot(ctx context.Context, counterpart, pinned string) (View, error) {
	return s.fetch(ctx, uuid.NewString(), strings.TrimSpace(counterpart), strings.TrimSpace(pinned))
}

func (s *Scheduler) runLoop(ctx context.Context, ticker *clock.Ticker, epoch uint64) {
	_ = s.cycle(ctx, "activate")

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.active && s.epoch == epoch {
				s.stopLocked("scheduler stopped: context done")
			}
			s.mu.Unlock()
			return
		case <-ticker.C:
			_ = s.cycle(ctx, "tick")
		}
	}
}

// cycle fetches with the selection captured at request time and publishes
// the result unless the scheduler was deactivated (or reactivated) since.
func (s *Scheduler) cycle(ctx context.Context, trigger string) error {
	s.mu.RLock()
	if !s.active {
		s.mu.RUnlock()
		return ErrNotActive
	}
	epoch := s.epoch
	counterpart := s.counterpart
	pinned := s.pinned
	s.mu.RUnlock()

	id := uuid.NewString()
	view, err := s.fetch(ctx, id, counterpart, pinned)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return err
		}
		s.metrics.fetch(ResultError)
		s.logger.Warn().
			Err(err).
			Str("cycle", id).
			Str("trigger", trigger).
			Msg("fetch failed; keeping previous state")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.epoch != epoch {
		s.metrics.fetch(ResultDiscarded)
		s.logger.Debug().Str("cycle", id).Str("trigger", trigger).Msg("discarding late response")
		return nil
	}
	s.view = view
	for _, ch := range s.subs {
		offer(ch, view)
	}
	s.metrics.fetch(ResultOK)
	s.logger.Debug().
		Str("cycle", id).
		Str("trigger", trigger).
		Int("conversations", len(view.Conversations)).
		Int("timeline", len(view.Timeline)).
		Msg("view published")
	return nil
}

func (s *Scheduler) fetch(ctx context.Context, id, counterpart, pinned string) (View, error) {
	start := s.clock.Now()
	records, err := s.store.List(ctx, s.user)
	s.metrics.observeFetch(s.clock.Since(start).Seconds())
	if err != nil {
		return View{}, err
	}

	snap := s.config.Deriver.Derive(records, s.user, counterpart, pinned)
	return View{
		Conversations:       snap.Conversations,
		TimelineCounterpart: snap.Counterpart,
		Timeline:            snap.Timeline,
		FetchedAt:           s.clock.Now(),
		Cycle:               id,
	}, nil
}

// offer replaces whatever ch holds with v. Callers hold s.mu, so sends
// never race with close.
func offer(ch chan View, v View) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
