package conversation

import (
	"github.com/estuportal/portalchat/internal/models"
)

// Aggregate returns one conversation per counterpart of localUser, in the
// order counterparts are first seen in records. A pinned counterpart with
// no messages is prepended as a placeholder.
//
// The list is not ranked by recency.
func (d Deriver) Aggregate(records []models.MessageRecord, localUser, pinned string) []models.Conversation {
	return aggregate(resolveAll(records, d.Normalizer), localUser, pinned)
}

func aggregate(all []resolved, localUser, pinned string) []models.Conversation {
	var order []string
	byCounterpart := make(map[string][]resolved)
	for _, item := range all {
		peer := item.record.Counterpart(localUser)
		if peer == "" {
			continue
		}
		if _, seen := byCounterpart[peer]; !seen {
			order = append(order, peer)
		}
		byCounterpart[peer] = append(byCounterpart[peer], item)
	}

	conversations := make([]models.Conversation, 0, len(order)+1)
	for _, peer := range order {
		items := byCounterpart[peer]
		sortResolved(items, AggregateFetchOrder)
		latest := items[len(items)-1].record
		conversations = append(conversations, models.Conversation{
			Counterpart:   peer,
			LastMessage:   latest.Content,
			LastTimestamp: latest.Timestamp,
		})
	}

	if pinned != "" && pinned != localUser {
		if _, ok := byCounterpart[pinned]; !ok {
			placeholder := models.Conversation{Counterpart: pinned, Placeholder: true}
			conversations = append([]models.Conversation{placeholder}, conversations...)
		}
	}
	return conversations
}
