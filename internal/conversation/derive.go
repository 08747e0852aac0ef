package conversation

import (
	"github.com/estuportal/portalchat/internal/models"
)

// Snapshot is everything derived from one fetch.
type Snapshot struct {
	Conversations []models.Conversation
	// Counterpart is the selection the timeline was built for; empty when
	// nothing was selected.
	Counterpart string
	Timeline    []models.MessageRecord
}

// Derive computes the conversation list and, when active is set, its
// timeline from the same records.
func (d Deriver) Derive(records []models.MessageRecord, localUser, active, pinned string) Snapshot {
	all := resolveAll(records, d.Normalizer)
	snap := Snapshot{
		Conversations: aggregate(all, localUser, pinned),
		Counterpart:   active,
	}
	if active != "" {
		snap.Timeline = buildTimeline(all, localUser, active)
	}
	return snap
}

var defaultDeriver Deriver

// Aggregate uses the default Deriver.
func Aggregate(records []models.MessageRecord, localUser, pinned string) []models.Conversation {
	return defaultDeriver.Aggregate(records, localUser, pinned)
}

// BuildTimeline uses the default Deriver.
func BuildTimeline(records []models.MessageRecord, localUser, counterpart string) []models.MessageRecord {
	return defaultDeriver.BuildTimeline(records, localUser, counterpart)
}

// Derive uses the default Deriver.
func Derive(records []models.MessageRecord, localUser, active, pinned string) Snapshot {
	return defaultDeriver.Derive(records, localUser, active, pinned)
}
