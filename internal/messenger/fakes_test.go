package messenger

import (
	"context"
	"fmt"
	"sync"

	"github.com/estuportal/portalchat/internal/models"
)

// fakeStore is an in-memory MessageStore with call counters. When gate is
// set, List blocks on it regardless of ctx, standing in for a slow backend.
type fakeStore struct {
	mu          sync.Mutex
	records     []models.MessageRecord
	listErr     error
	appendErr   error
	listCalls   int
	appendCalls int
	gate        chan struct{}
	entered     chan struct{}
}

func (f *fakeStore) List(_ context.Context, _ string) ([]models.MessageRecord, error) {
	f.mu.Lock()
	f.listCalls++
	records := append([]models.MessageRecord(nil), f.records...)
	err := f.listErr
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (f *fakeStore) Append(_ context.Context, sender, receiver, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendCalls++
	if f.appendErr != nil {
		return f.appendErr
	}
	id := int64(len(f.records) + 1)
	f.records = append(f.records, models.MessageRecord{
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		Timestamp: fmt.Sprintf("05.03.2024 10:%02d", id),
		ID:        models.Int64(id),
	})
	return nil
}

func (f *fakeStore) add(records ...models.MessageRecord) {
	f.mu.Lock()
	f.records = append(f.records, records...)
	f.mu.Unlock()
}

func (f *fakeStore) setListErr(err error) {
	f.mu.Lock()
	f.listErr = err
	f.mu.Unlock()
}

// block makes the next List calls wait until the returned release func is
// called. Each call signals entered first.
func (f *fakeStore) block() (entered <-chan struct{}, release func()) {
	gate := make(chan struct{})
	in := make(chan struct{}, 4)
	f.mu.Lock()
	f.gate = gate
	f.entered = in
	f.mu.Unlock()
	return in, func() {
		f.mu.Lock()
		f.gate = nil
		f.entered = nil
		f.mu.Unlock()
		close(gate)
	}
}

func (f *fakeStore) calls() (list, appended int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.appendCalls
}

type countingRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func (r *countingRefresher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func rec(from, to, content, ts string) models.MessageRecord {
	return models.MessageRecord{Sender: from, Receiver: to, Content: content, Timestamp: ts}
}
