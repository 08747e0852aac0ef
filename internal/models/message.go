// Package models defines the message and conversation types shared by the
// store, the derivation engine and the presentation layers.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Message validation errors.
var (
	ErrMissingSender   = errors.New("sender is required")
	ErrMissingReceiver = errors.New("receiver is required")
	ErrSelfAddressed   = errors.New("sender and receiver must differ")
)

// MessageRecord is one message as returned by the message store. The store
// assigns Timestamp and ID; the client never edits a record.
type MessageRecord struct {
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	ID        *int64 `json:"id,omitempty"`
}

// HasID reports whether the record carries an id usable for ordering.
// Zero is treated as absent, matching the backend which never issues it.
func (m MessageRecord) HasID() bool {
	return m.ID != nil && *m.ID != 0
}

// IDValue returns the id or 0.
func (m MessageRecord) IDValue() int64 {
	if m.ID == nil {
		return 0
	}
	return *m.ID
}

// Involves reports whether user is the sender or receiver.
func (m MessageRecord) Involves(user string) bool {
	return m.Sender == user || m.Receiver == user
}

// Counterpart returns the party that is not user, or "" when the record
// does not belong to any of user's conversations.
func (m MessageRecord) Counterpart(user string) string {
	switch {
	case m.Sender == "" || m.Receiver == "":
		return ""
	case m.Sender == user && m.Receiver != user:
		return m.Receiver
	case m.Receiver == user && m.Sender != user:
		return m.Sender
	default:
		return ""
	}
}

// Validate checks the fields the store requires on append.
func (m MessageRecord) Validate() error {
	v := &ValidationErrors{}
	if strings.TrimSpace(m.Sender) == "" {
		v.Add("sender", ErrMissingSender)
	}
	if strings.TrimSpace(m.Receiver) == "" {
		v.Add("receiver", ErrMissingReceiver)
	}
	if m.Sender != "" && m.Sender == m.Receiver {
		v.Add("receiver", ErrSelfAddressed)
	}
	return v.Err()
}

// UnmarshalJSON accepts ids encoded as numbers, numeric strings or null.
func (m *MessageRecord) UnmarshalJSON(data []byte) error {
	type plain MessageRecord
	var raw struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = MessageRecord(raw.plain)
	m.ID = nil

	id := bytes.TrimSpace(raw.ID)
	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		return nil
	}
	if id[0] == '"' {
		var s string
		if err := json.Unmarshal(id, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		id = []byte(s)
	}
	parsed, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		// Non-numeric ids cannot order anything; keep the record without one.
		return nil
	}
	m.ID = &parsed
	return nil
}

// Conversation is one entry of the conversation list.
type Conversation struct {
	Counterpart   string `json:"counterpart"`
	LastMessage   string `json:"last_message"`
	LastTimestamp string `json:"last_timestamp"`
	// Placeholder marks a pinned counterpart with no messages yet.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Int64 returns a pointer to v, for building records with ids.
func Int64(v int64) *int64 {
	return &v
}
