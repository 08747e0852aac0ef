package messenger

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/estuportal/portalchat/internal/conversation"
	"github.com/estuportal/portalchat/internal/models"
	"github.com/estuportal/portalchat/internal/store"
	"github.com/estuportal/portalchat/internal/timestamp"
)

// Options configures a Messenger.
type Options struct {
	// PollInterval is the delay between scheduled fetches. Default: 3s
	PollInterval time.Duration
	// Clock drives the scheduler. Default: the wall clock.
	Clock clock.Clock
	// Location resolves zone-less timestamps. Default: time.Local
	Location *time.Location
	// Metrics is optional.
	Metrics *Metrics
}

// Messenger is what a presentation layer talks to: one scheduler, one
// gateway and the draft for the selected conversation.
type Messenger struct {
	scheduler *Scheduler
	gateway   *Gateway
	draft     *Draft
}

// New wires a Messenger for localUser over st.
func New(st store.MessageStore, localUser string, opts Options) (*Messenger, error) {
	scheduler, err := NewScheduler(st, localUser, SchedulerConfig{
		PollInterval: opts.PollInterval,
		Clock:        opts.Clock,
		Deriver:      conversation.Deriver{Normalizer: timestamp.Normalizer{Location: opts.Location}},
		Metrics:      opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Messenger{
		scheduler: scheduler,
		gateway:   NewGateway(st, localUser, scheduler, opts.Metrics),
		draft:     &Draft{},
	}, nil
}

// User returns the local identity.
func (m *Messenger) User() string { return m.scheduler.User() }

// Activate starts synchronization; see Scheduler.Activate.
func (m *Messenger) Activate(ctx context.Context, pinned string) error {
	return m.scheduler.Activate(ctx, pinned)
}

// Deactivate stops synchronization.
func (m *Messenger) Deactivate() error { return m.scheduler.Deactivate() }

// SetActive selects a conversation. The draft is kept; switching
// conversations does not discard what was typed.
func (m *Messenger) SetActive(counterpart string) { m.scheduler.SetActive(counterpart) }

// Active returns the selected counterpart.
func (m *Messenger) Active() string { return m.scheduler.ActiveCounterpart() }

// Refresh fetches outside the schedule.
func (m *Messenger) Refresh(ctx context.Context) error { return m.scheduler.Refresh(ctx) }

// View returns the latest published snapshot.
func (m *Messenger) View() View { return m.scheduler.View() }

// Conversations returns the latest conversation list.
func (m *Messenger) Conversations() []models.Conversation { return m.scheduler.View().Conversations }

// Timeline returns the latest timeline and the counterpart it belongs to.
func (m *Messenger) Timeline() (string, []models.MessageRecord) {
	v := m.scheduler.View()
	return v.TimelineCounterpart, v.Timeline
}

// Subscribe streams published views; see Scheduler.Subscribe.
func (m *Messenger) Subscribe() (<-chan View, func()) { return m.scheduler.Subscribe() }

// Snapshot fetches and derives once without publishing.
func (m *Messenger) Snapshot(ctx context.Context, counterpart, pinned string) (View, error) {
	return m.scheduler.Snapshot(ctx, counterpart, pinned)
}

// Draft returns the composition buffer.
func (m *Messenger) Draft() *Draft { return m.draft }

// Submit sends the draft to the selected counterpart.
func (m *Messenger) Submit(ctx context.Context) error {
	return m.gateway.Submit(ctx, m.Active(), m.draft)
}

// Send submits text to counterpart without touching the shared draft.
func (m *Messenger) Send(ctx context.Context, counterpart, text string) error {
	return m.gateway.Submit(ctx, counterpart, NewDraft(text))
}
