// Package store defines the message store contract the messenger consumes.
// Implementations live in subpackages.
package store

import (
	"context"
	"errors"

	"github.com/estuportal/portalchat/internal/models"
)

// Store errors.
var (
	ErrStoreClosed = errors.New("message store closed")
	ErrMissingUser = errors.New("user is required")
)

// MessageStore is the remote collection of message records.
type MessageStore interface {
	// List returns every record visible to user, sent or received, in the
	// store's own order. Callers treat the result as unordered.
	List(ctx context.Context, user string) ([]models.MessageRecord, error)
	// Append stores one message. The store assigns timestamp and id.
	Append(ctx context.Context, sender, receiver, content string) error
}

// Closer is implemented by stores holding resources.
type Closer interface {
	Close() error
}
