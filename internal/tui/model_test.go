package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/estuportal/portalchat/internal/messenger"
	"github.com/estuportal/portalchat/internal/models"
)

type stubChat struct {
	mu          sync.Mutex
	user        string
	active      string
	pinned      string
	activated   bool
	refreshes   int
	submissions int
	submitErr   error
	draft       messenger.Draft
	view        messenger.View
	views       chan messenger.View
	canceled    bool
}

func newStubChat() *stubChat {
	return &stubChat{user: "ayse", views: make(chan messenger.View, 1)}
}

func (s *stubChat) User() string { return s.user }

func (s *stubChat) Activate(_ context.Context, pinned string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activated {
		return messenger.ErrAlreadyActive
	}
	s.activated = true
	s.pinned = pinned
	return nil
}

func (s *stubChat) Deactivate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.activated {
		return messenger.ErrNotActive
	}
	s.activated = false
	return nil
}

func (s *stubChat) SetActive(counterpart string) {
	s.mu.Lock()
	s.active = counterpart
	s.mu.Unlock()
}

func (s *stubChat) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *stubChat) Refresh(context.Context) error {
	s.mu.Lock()
	s.refreshes++
	s.mu.Unlock()
	return nil
}

func (s *stubChat) View() messenger.View { return s.view }

func (s *stubChat) Subscribe() (<-chan messenger.View, func()) {
	return s.views, func() {
		s.mu.Lock()
		s.canceled = true
		s.mu.Unlock()
	}
}

func (s *stubChat) Draft() *messenger.Draft { return &s.draft }

func (s *stubChat) Submit(context.Context) error {
	s.mu.Lock()
	s.submissions++
	err := s.submitErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.draft.Clear()
	return nil
}

func newTestModel(t *testing.T, chat *stubChat, cfg Config) *Model {
	t.Helper()
	cfg.Chat = chat
	model, err := NewModel(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(model.Close)
	return model
}

func applyUpdate(t *testing.T, model *Model, msg tea.Msg) (*Model, tea.Cmd) {
	t.Helper()
	next, cmd := model.Update(msg)
	typed, ok := next.(*Model)
	require.True(t, ok)
	return typed, cmd
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func typeText(t *testing.T, model *Model, text string) *Model {
	t.Helper()
	for _, r := range text {
		if r == ' ' {
			model, _ = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
			continue
		}
		model, _ = applyUpdate(t, model, runeKey(r))
	}
	return model
}

func sampleView() messenger.View {
	return messenger.View{
		Cycle: "c1",
		Conversations: []models.Conversation{
			{Counterpart: "ali", Placeholder: true},
			{Counterpart: "mehmet", LastMessage: "toplantı saat kaçta?", LastTimestamp: "05.03.2024 09:30:00"},
			{Counterpart: "zeynep", LastMessage: "ödev teslim edildi", LastTimestamp: "2024-03-05T09:45:00"},
		},
	}
}

func TestNewModelRejectsInvalidInput(t *testing.T) {
	_, err := NewModel(context.Background(), Config{})
	require.Error(t, err)

	_, err = NewModel(context.Background(), Config{Chat: newStubChat(), Theme: "matrix"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid theme")
}

func TestInitialSelection(t *testing.T) {
	chat := newStubChat()
	model := newTestModel(t, chat, Config{Pinned: "ali"})
	require.Equal(t, "ali", chat.Active())
	require.Equal(t, focusInput, model.focus)

	chat2 := newStubChat()
	newTestModel(t, chat2, Config{Pinned: "ali", Initial: "mehmet"})
	require.Equal(t, "mehmet", chat2.Active())
}

func TestInitActivatesWithPinned(t *testing.T) {
	chat := newStubChat()
	model := newTestModel(t, chat, Config{Pinned: "ali"})

	msg := model.activateCmd()()
	require.Equal(t, activatedMsg{}, msg)
	require.True(t, chat.activated)
	require.Equal(t, "ali", chat.pinned)

	model.Close()
	require.False(t, chat.activated)
	require.True(t, chat.canceled)
}

func TestViewMessagesUpdateList(t *testing.T) {
	chat := newStubChat()
	model := newTestModel(t, chat, Config{ShowTimestamps: true})
	model, _ = applyUpdate(t, model, tea.WindowSizeMsg{Width: 120, Height: 30})

	require.Contains(t, model.View(), "loading…")

	model, cmd := applyUpdate(t, model, viewMsg{view: sampleView()})
	require.NotNil(t, cmd, "keeps listening for views")

	out := model.View()
	require.Contains(t, out, "ali")
	require.Contains(t, out, newChatLabel)
	require.Contains(t, out, "mehmet")
	require.Contains(t, out, "09:30")
	require.Contains(t, out, "select a conversation")
}

func TestWaitForViewReadsSubscription(t *testing.T) {
	chat := newStubChat()
	model := newTestModel(t, chat, Config{})
	chat.views <- sampleView()

	msg := model.waitForViewCmd()()
	got, ok := msg.(viewMsg)
	require.True(t, ok)
	require.Len(t, got.view.Conversations, 3)
}

func TestOpenConversationSelectsAndRefreshes(t *testing.T) {
	chat := newStubChat()
	var remembered string
	model := newTestModel(t, chat, Config{OnSelect: func(c string) { remembered = c }})
	model, _ = applyUpdate(t, model, viewMsg{view: sampleView()})

	model, _ = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyDown})
	model, cmd := applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, "mehmet", chat.Active())
	require.Equal(t, "mehmet", remembered)
	require.Equal(t, focusInput, model.focus)
	require.Zero(t, chat.refreshes, "selection alone does not fetch")

	require.NotNil(t, cmd)
	_, ok := cmd().(refreshedMsg)
	require.True(t, ok)
	require.Equal(t, 1, chat.refreshes)

	require.Contains(t, model.View(), "syncing…")

	view := sampleView()
	view.TimelineCounterpart = "mehmet"
	view.Timeline = []models.MessageRecord{
		{Sender: "mehmet", Receiver: "ayse", Content: "toplantı saat kaçta?", Timestamp: "05.03.2024 09:30:00"},
		{Sender: "ayse", Receiver: "mehmet", Content: "saat 11'de", Timestamp: "05.03.2024 09:31:00"},
	}
	model, _ = applyUpdate(t, model, viewMsg{view: view})
	out := model.View()
	require.NotContains(t, out, "syncing…")
	require.Contains(t, out, "saat 11'de")
	require.Equal(t, 1, model.cursor)
}

func TestCursorBounds(t *testing.T) {
	chat := newStubChat()
	model := newTestModel(t, chat, Config{})
	model, _ = applyUpdate(t, model, viewMsg{view: sampleView()})

	model, _ = applyUpdate(t, model, runeKey('k'))
	require.Zero(t, model.cursor)
	for i := 0; i < 5; i++ {
		model, _ = applyUpdate(t, model, runeKey('j'))
	}
	require.Equal(t, 2, model.cursor)

	shorter := sampleView()
	shorter.Conversations = shorter.Conversations[:1]
	model, _ = applyUpdate(t, model, viewMsg{view: shorter})
	require.Zero(t, model.cursor)
}

func TestComposeAndSubmit(t *testing.T) {
	chat := newStubChat()
	model := newTestModel(t, chat, Config{Initial: "mehmet"})

	model = typeText(t, model, "hi there")
	require.Equal(t, "hi there", chat.draft.Text())
	model, _ = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyBackspace})
	require.Equal(t, "hi ther", chat.draft.Text())

	model, cmd := applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, model.sending)
	_, again := applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, again, "no second submission while sending")

	msg := cmd()
	require.Equal(t, 1, chat.submissions)
	model, _ = applyUpdate(t, model, msg)
	require.False(t, model.sending)
	require.Empty(t, model.status)
	require.Empty(t, chat.draft.Text())
}

func TestSubmitErrorsAreShown(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"empty", messenger.ErrEmptyContent, "nothing to send"},
		{"no counterpart", messenger.ErrNoCounterpart, "select a conversation first"},
		{"store", &messenger.SubmitError{Counterpart: "mehmet", Content: "hi", Err: errors.New("HTTP 502")}, "draft kept"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := newStubChat()
			model := newTestModel(t, chat, Config{Initial: "mehmet"})
			model, _ = applyUpdate(t, model, submittedMsg{err: tt.err})
			require.True(t, model.failed)
			require.Contains(t, model.status, tt.want)
			require.Contains(t, model.View(), tt.want)
		})
	}
}

func TestFocusAndQuitKeys(t *testing.T) {
	chat := newStubChat()
	model := newTestModel(t, chat, Config{Initial: "mehmet"})

	// In the input, q is text.
	model, cmd := applyUpdate(t, model, runeKey('q'))
	require.Nil(t, cmd)
	require.Equal(t, "q", chat.draft.Text())

	model, _ = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, focusList, model.focus)

	_, cmd = applyUpdate(t, model, runeKey('q'))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok)

	model, _ = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusInput, model.focus)

	_, cmd = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyCtrlC})
	_, ok = cmd().(tea.QuitMsg)
	require.True(t, ok)
}

func TestRefreshErrorShown(t *testing.T) {
	chat := newStubChat()
	model := newTestModel(t, chat, Config{})

	model, _ = applyUpdate(t, model, refreshedMsg{err: messenger.ErrNotActive})
	require.Empty(t, model.status)

	model, _ = applyUpdate(t, model, refreshedMsg{err: errors.New("timeout")})
	require.Contains(t, model.status, "refresh failed")
}

func TestWrapAndClip(t *testing.T) {
	require.Equal(t, []string{"abcd", "efgh", "ij"}, wrap("abcdefghij", 4))
	require.Equal(t, []string{"ab", "cd"}, wrap("ab\ncd", 10))
	require.Equal(t, []string{"ğüşi", "öç"}, wrap("ğüşiöç", 4))

	lines := []string{"0", "1", "2", "3", "4", "5"}
	require.Equal(t, []string{"3", "4", "5"}, clipTail(lines, 3, 5))
	require.Equal(t, []string{"0", "1", "2"}, clipTail(lines, 3, 0))
	require.Nil(t, clipTail(lines, 0, 0))
}

func TestHeaderShowsSyncPulse(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	chat := newStubChat()
	model := newTestModel(t, chat, Config{PollInterval: 3 * time.Second, Now: func() time.Time { return now }})
	require.Contains(t, model.View(), "○○○ connecting")

	view := sampleView()
	view.FetchedAt = now.Add(-2 * time.Second)
	model, _ = applyUpdate(t, model, viewMsg{view: view})
	require.Contains(t, model.View(), "●●● live")

	now = now.Add(2 * time.Minute)
	model, cmd := applyUpdate(t, model, pulseMsg{})
	require.NotNil(t, cmd, "keeps ticking")
	require.Contains(t, model.View(), "●○○ synced 2 minutes ago")
}

func TestSyncPulseLevels(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	require.Equal(t, syncNone, syncPulse{}.level(now))
	require.Equal(t, syncLive, syncPulse{FetchedAt: now.Add(-9 * time.Second), Interval: 3 * time.Second}.level(now))
	require.Equal(t, syncStale, syncPulse{FetchedAt: now.Add(-10 * time.Second), Interval: 3 * time.Second}.level(now))
	require.Equal(t, syncLive, syncPulse{FetchedAt: now.Add(-time.Hour)}.level(now))
}
