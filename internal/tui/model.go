// Package tui is the interactive chat client: a conversation list, the
// selected timeline and an input line.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/estuportal/portalchat/internal/logging"
	"github.com/estuportal/portalchat/internal/messenger"
)

// Chat is the presentation boundary the client drives.
type Chat interface {
	User() string
	Activate(ctx context.Context, pinned string) error
	Deactivate() error
	SetActive(counterpart string)
	Active() string
	Refresh(ctx context.Context) error
	View() messenger.View
	Subscribe() (<-chan messenger.View, func())
	Draft() *messenger.Draft
	Submit(ctx context.Context) error
}

// Config configures the client.
type Config struct {
	Chat Chat
	// Pinned is shown in the list even before any message exists.
	Pinned string
	// Initial is selected before the first fetch.
	Initial        string
	Theme          string
	ShowTimestamps bool
	// OnSelect is called when the user opens a conversation.
	OnSelect func(counterpart string)
	// PollInterval lets the header tell live data from stale data.
	PollInterval time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// pulseEvery is how often the header re-evaluates sync freshness.
const pulseEvery = time.Second

type focusArea int

const (
	focusList focusArea = iota
	focusInput
)

type viewMsg struct{ view messenger.View }

type activatedMsg struct{ err error }

type refreshedMsg struct{ err error }

type submittedMsg struct{ err error }

type pulseMsg struct{}

// Model is the bubbletea model of the chat client.
type Model struct {
	chat     Chat
	ctx      context.Context
	cancel   context.CancelFunc
	styles   styles
	pinned   string
	onSelect func(string)
	stamps   bool
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	views       <-chan messenger.View
	unsubscribe func()

	width   int
	height  int
	view    messenger.View
	cursor  int
	focus   focusArea
	sending bool
	status  string
	failed  bool
}

// NewModel builds the client model.
func NewModel(ctx context.Context, cfg Config) (*Model, error) {
	if cfg.Chat == nil {
		return nil, errors.New("chat is required")
	}
	theme, err := LookupTheme(cfg.Theme)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)

	m := &Model{
		chat:     cfg.Chat,
		ctx:      runCtx,
		cancel:   cancel,
		styles:   newStyles(theme),
		pinned:   strings.TrimSpace(cfg.Pinned),
		onSelect: cfg.OnSelect,
		stamps:   cfg.ShowTimestamps,
		interval: cfg.PollInterval,
		now:      cfg.Now,
		logger:   logging.WithUser(logging.Component("tui"), cfg.Chat.User()),
	}
	if m.now == nil {
		m.now = time.Now
	}
	initial := strings.TrimSpace(cfg.Initial)
	if initial == "" {
		initial = m.pinned
	}
	if initial != "" {
		m.chat.SetActive(initial)
		m.focus = focusInput
	}
	m.views, m.unsubscribe = m.chat.Subscribe()
	return m, nil
}

// Run starts the client and blocks until the user quits.
func Run(ctx context.Context, cfg Config) error {
	model, err := NewModel(ctx, cfg)
	if err != nil {
		return err
	}
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Close stops synchronization and releases the subscription.
func (m *Model) Close() {
	if err := m.chat.Deactivate(); err != nil && !errors.Is(err, messenger.ErrNotActive) {
		m.logger.Warn().Err(err).Msg("deactivate failed")
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.cancel()
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.activateCmd(), m.waitForViewCmd(), pulseCmd())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		return m, nil
	case viewMsg:
		m.applyView(typed.view)
		return m, m.waitForViewCmd()
	case pulseMsg:
		// Nothing changes; the redraw re-evaluates the sync pulse.
		return m, pulseCmd()
	case activatedMsg:
		if typed.err != nil {
			m.setError(fmt.Sprintf("sync failed to start: %v", typed.err))
		}
		return m, nil
	case refreshedMsg:
		if typed.err != nil && !errors.Is(typed.err, messenger.ErrNotActive) {
			m.setError(fmt.Sprintf("refresh failed: %v", typed.err))
		}
		return m, nil
	case submittedMsg:
		m.sending = false
		m.handleSubmitResult(typed.err)
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(typed)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit
	case "tab", "shift+tab":
		m.toggleFocus()
		return nil
	case "ctrl+r":
		return m.refreshCmd()
	}

	if m.focus == focusInput {
		return m.handleInputKey(msg)
	}
	return m.handleListKey(msg)
}

func (m *Model) handleListKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "esc":
		return tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.view.Conversations)-1 {
			m.cursor++
		}
	case "enter", "l", "right":
		return m.openAtCursor()
	}
	return nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	draft := m.chat.Draft()
	switch msg.Type {
	case tea.KeyEsc:
		m.focus = focusList
		return nil
	case tea.KeyEnter:
		if m.sending {
			return nil
		}
		m.sending = true
		m.status = "sending…"
		m.failed = false
		return m.submitCmd()
	case tea.KeyBackspace, tea.KeyCtrlH:
		runes := []rune(draft.Text())
		if len(runes) > 0 {
			draft.Set(string(runes[:len(runes)-1]))
		}
	case tea.KeyCtrlU:
		draft.Clear()
	case tea.KeySpace:
		draft.Set(draft.Text() + " ")
	case tea.KeyRunes:
		draft.Set(draft.Text() + string(msg.Runes))
	}
	return nil
}

func (m *Model) toggleFocus() {
	if m.focus == focusList {
		m.focus = focusInput
		return
	}
	m.focus = focusList
}

func (m *Model) openAtCursor() tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(m.view.Conversations) {
		return nil
	}
	counterpart := m.view.Conversations[m.cursor].Counterpart
	m.chat.SetActive(counterpart)
	if m.onSelect != nil {
		m.onSelect(counterpart)
	}
	m.focus = focusInput
	m.status = ""
	m.failed = false
	// Selection alone does not fetch; load the timeline now.
	return m.refreshCmd()
}

func (m *Model) applyView(v messenger.View) {
	m.view = v
	if active := m.chat.Active(); active != "" {
		for i, c := range v.Conversations {
			if c.Counterpart == active {
				m.cursor = i
				return
			}
		}
	}
	if m.cursor >= len(v.Conversations) {
		m.cursor = len(v.Conversations) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) handleSubmitResult(err error) {
	var submitErr *messenger.SubmitError
	switch {
	case err == nil:
		m.status = ""
		m.failed = false
	case errors.Is(err, messenger.ErrEmptyContent):
		m.setError("nothing to send")
	case errors.Is(err, messenger.ErrNoCounterpart):
		m.setError("select a conversation first")
	case errors.As(err, &submitErr):
		m.setError(fmt.Sprintf("send failed: %v (draft kept)", submitErr.Err))
	default:
		m.setError(err.Error())
	}
}

func (m *Model) setError(text string) {
	m.status = text
	m.failed = true
}

func (m *Model) activateCmd() tea.Cmd {
	chat, ctx, pinned := m.chat, m.ctx, m.pinned
	return func() tea.Msg {
		return activatedMsg{err: chat.Activate(ctx, pinned)}
	}
}

func (m *Model) refreshCmd() tea.Cmd {
	chat, ctx := m.chat, m.ctx
	return func() tea.Msg {
		return refreshedMsg{err: chat.Refresh(ctx)}
	}
}

func (m *Model) submitCmd() tea.Cmd {
	chat, ctx := m.chat, m.ctx
	return func() tea.Msg {
		return submittedMsg{err: chat.Submit(ctx)}
	}
}

func pulseCmd() tea.Cmd {
	return tea.Tick(pulseEvery, func(time.Time) tea.Msg { return pulseMsg{} })
}

func (m *Model) waitForViewCmd() tea.Cmd {
	if m.views == nil {
		return nil
	}
	views := m.views
	return func() tea.Msg {
		v, ok := <-views
		if !ok {
			return nil
		}
		return viewMsg{view: v}
	}
}
