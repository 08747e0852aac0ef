package messenger

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estuportal/portalchat/internal/models"
	"github.com/estuportal/portalchat/internal/store/sqlite"
)

func TestMessengerOverSQLite(t *testing.T) {
	ctx := context.Background()
	sentAt := time.Date(2024, 3, 5, 10, 1, 0, 0, time.UTC)
	st, err := sqlite.Open(ctx, ":memory:", sqlite.WithNow(func() time.Time { return sentAt }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.Import(ctx, []models.MessageRecord{
		{Sender: "mehmet", Receiver: "ayse", Content: "toplantı saat kaçta?", Timestamp: "2024-03-05T09:30:00Z"},
		{Sender: "zeynep", Receiver: "ayse", Content: "ödev teslim edildi", Timestamp: "05.03.2024 09:45"},
		{Sender: "mehmet", Receiver: "zeynep", Content: "not visible to ayse", Timestamp: "05.03.2024 09:50"},
	}))

	// The mock clock is never advanced, so only explicit refreshes fetch.
	m, err := New(st, "ayse", Options{PollInterval: time.Second, Clock: clock.NewMock(), Location: time.UTC})
	require.NoError(t, err)
	assert.Equal(t, "ayse", m.User())

	views, cancel := m.Subscribe()
	defer cancel()

	require.NoError(t, m.Activate(ctx, "ali"))
	t.Cleanup(func() { _ = m.Deactivate() })
	first := <-views
	assert.Equal(t, []string{"ali", "mehmet", "zeynep"}, counterpartsOf(first.Conversations))

	m.SetActive("mehmet")
	assert.Equal(t, "mehmet", m.Active())
	m.Draft().Set("saat 11'de")
	require.NoError(t, m.Submit(ctx))
	assert.Empty(t, m.Draft().Text())

	counterpart, timeline := m.Timeline()
	assert.Equal(t, "mehmet", counterpart)
	require.Len(t, timeline, 2)
	assert.Equal(t, "toplantı saat kaçta?", timeline[0].Content)
	assert.Equal(t, "saat 11'de", timeline[1].Content)
	assert.True(t, timeline[1].HasID())
	assert.Equal(t, "05.03.2024 10:01:00", timeline[1].Timestamp)

	conv, ok := m.View().Conversation("mehmet")
	require.True(t, ok)
	assert.Equal(t, "saat 11'de", conv.LastMessage)

	require.NoError(t, m.Send(ctx, "ali", "merhaba"))
	require.NoError(t, m.Refresh(ctx))
	list := m.Conversations()
	assert.Equal(t, []string{"mehmet", "zeynep", "ali"}, counterpartsOf(list))
	assert.False(t, list[2].Placeholder)
}

func TestMessengerSnapshotWithoutActivation(t *testing.T) {
	st := &fakeStore{}
	st.add(rec("a", "b", "hi", "05.03.2024 10:00"))
	m, err := New(st, "a", Options{})
	require.NoError(t, err)

	view, err := m.Snapshot(context.Background(), "b", "")
	require.NoError(t, err)
	assert.Len(t, view.Timeline, 1)

	require.ErrorIs(t, m.Submit(context.Background()), ErrEmptyContent)
	m.Draft().Set("hello")
	require.ErrorIs(t, m.Submit(context.Background()), ErrNoCounterpart)
}

func counterpartsOf(list []models.Conversation) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Counterpart
	}
	return out
}
