// Package conversation derives the conversation list and the active
// timeline from one fetched snapshot of message records.
//
// Everything here is a pure function of its inputs: the same snapshot,
// local user and selection always produce the same output.
package conversation

import (
	"sort"
	"time"

	"github.com/estuportal/portalchat/internal/models"
	"github.com/estuportal/portalchat/internal/timestamp"
)

// FetchOrder selects how records with equal instants and no usable ids are
// ordered relative to each other.
type FetchOrder int

const (
	// FetchOrderAscending keeps the store's order: earlier fetch index first.
	FetchOrderAscending FetchOrder = iota
	// FetchOrderDescending reverses it: later fetch index first.
	FetchOrderDescending
)

// The aggregator and the timeline builder intentionally disagree on the
// fetch-order tiebreak. Both are kept for compatibility with the portal's
// web client; see DESIGN.md before unifying them.
const (
	AggregateFetchOrder = FetchOrderAscending
	TimelineFetchOrder  = FetchOrderDescending
)

// resolved is a record paired with its fetch index and normalized instant.
type resolved struct {
	record models.MessageRecord
	index  int
	at     time.Time
}

func resolveAll(records []models.MessageRecord, n timestamp.Normalizer) []resolved {
	out := make([]resolved, len(records))
	for i, record := range records {
		out[i] = resolved{record: record, index: i, at: n.Resolve(record.Timestamp)}
	}
	return out
}

// less orders by instant, then by id, then by fetch index in the given
// direction. A record without an id ranks as id 0, so a mixed group of
// records with and without ids still sorts the same way whatever order the
// store returned them in.
func less(a, b resolved, order FetchOrder) bool {
	if !a.at.Equal(b.at) {
		return a.at.Before(b.at)
	}
	if ai, bi := a.record.IDValue(), b.record.IDValue(); ai != bi {
		return ai < bi
	}
	if order == FetchOrderDescending {
		return a.index > b.index
	}
	return a.index < b.index
}

func sortResolved(items []resolved, order FetchOrder) {
	sort.SliceStable(items, func(i, j int) bool {
		return less(items[i], items[j], order)
	})
}

func unwrap(items []resolved) []models.MessageRecord {
	out := make([]models.MessageRecord, len(items))
	for i, item := range items {
		out[i] = item.record
	}
	return out
}
