package conversation

import (
	"github.com/estuportal/portalchat/internal/models"
	"github.com/estuportal/portalchat/internal/timestamp"
)

// Deriver holds the settings shared by the aggregator and the timeline
// builder. The zero value resolves zone-less timestamps in time.Local.
type Deriver struct {
	Normalizer timestamp.Normalizer
}

// BuildTimeline returns the messages exchanged between localUser and
// counterpart, oldest first.
func (d Deriver) BuildTimeline(records []models.MessageRecord, localUser, counterpart string) []models.MessageRecord {
	return buildTimeline(resolveAll(records, d.Normalizer), localUser, counterpart)
}

func buildTimeline(all []resolved, localUser, counterpart string) []models.MessageRecord {
	if counterpart == "" {
		return nil
	}
	items := make([]resolved, 0, len(all))
	for _, item := range all {
		r := item.record
		if (r.Sender == localUser && r.Receiver == counterpart) ||
			(r.Sender == counterpart && r.Receiver == localUser) {
			items = append(items, item)
		}
	}
	sortResolved(items, TimelineFetchOrder)
	return unwrap(items)
}
