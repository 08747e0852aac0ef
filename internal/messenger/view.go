// Package messenger keeps a local user's conversations in sync with the
// message store and carries outgoing messages to it.
package messenger

import (
	"time"

	"github.com/estuportal/portalchat/internal/models"
)

// View is one published snapshot of derived state. Views are immutable once
// published; a new cycle replaces the whole value.
type View struct {
	// Conversations is the conversation list, in discovery order with the
	// pinned placeholder (if any) first.
	Conversations []models.Conversation
	// TimelineCounterpart is the counterpart the timeline was built for.
	// It can differ from the current selection when the selection changed
	// while the fetch was in flight.
	TimelineCounterpart string
	// Timeline is the full ordered exchange with TimelineCounterpart.
	Timeline []models.MessageRecord
	// FetchedAt is when the store answered.
	FetchedAt time.Time
	// Cycle correlates the view with scheduler log lines.
	Cycle string
}

// Empty reports whether no cycle has been published yet.
func (v View) Empty() bool {
	return v.Cycle == ""
}

// Conversation returns the list entry for counterpart.
func (v View) Conversation(counterpart string) (models.Conversation, bool) {
	for _, c := range v.Conversations {
		if c.Counterpart == counterpart {
			return c, true
		}
	}
	return models.Conversation{}, false
}
