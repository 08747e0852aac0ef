// Package sqlite is a local message store backed by SQLite. It mimics the
// portal backend: ids are autoincrement integers and timestamps are written
// as "DD.MM.YYYY HH:MM:SS".
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/estuportal/portalchat/internal/logging"
	"github.com/estuportal/portalchat/internal/models"
	"github.com/estuportal/portalchat/internal/store"
)

// TimestampLayout is the layout the portal backend stamps messages with.
const TimestampLayout = "02.01.2006 15:04:05"

// Store implements store.MessageStore on a SQLite database.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithNow overrides the clock used to stamp appended messages.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens (creating if needed) the database at path. Use ":memory:" for
// a private in-memory store.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open message database: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to message database: %w", err)
	}

	s := &Store{
		db:     db,
		now:    time.Now,
		logger: logging.Component("sqlite-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id INTEGER,
			sender TEXT NOT NULL,
			receiver TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS messages_sender_idx ON messages(sender)`,
		`CREATE INDEX IF NOT EXISTS messages_receiver_idx ON messages(receiver)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize message schema: %w", err)
		}
	}
	return nil
}

// Append stores a message stamped with the store's clock.
func (s *Store) Append(ctx context.Context, sender, receiver, content string) error {
	if s == nil || s.db == nil {
		return store.ErrStoreClosed
	}
	record := models.MessageRecord{Sender: sender, Receiver: receiver, Content: content}
	if err := record.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stamp := s.now().Format(TimestampLayout)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (sender, receiver, content, timestamp) VALUES (?, ?, ?, ?)`,
		sender, receiver, content, stamp,
	)
	if err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read message id: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE messages SET id = seq WHERE seq = ?`, id); err != nil {
		return fmt.Errorf("failed to assign message id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	s.logger.Debug().Int64("id", id).Str("sender", sender).Str("receiver", receiver).Msg("message stored")
	return nil
}

// List returns user's messages in insertion order.
func (s *Store) List(ctx context.Context, user string) ([]models.MessageRecord, error) {
	if s == nil || s.db == nil {
		return nil, store.ErrStoreClosed
	}
	if strings.TrimSpace(user) == "" {
		return nil, store.ErrMissingUser
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, receiver, content, timestamp
		FROM messages
		WHERE sender = ? OR receiver = ?
		ORDER BY seq`, user, user)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var records []models.MessageRecord
	for rows.Next() {
		var (
			id        sql.NullInt64
			timestamp sql.NullString
			record    models.MessageRecord
		)
		if err := rows.Scan(&id, &record.Sender, &record.Receiver, &record.Content, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if id.Valid {
			record.ID = models.Int64(id.Int64)
		}
		record.Timestamp = timestamp.String
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return records, nil
}

// Import inserts records verbatim, keeping their timestamps and ids (or
// lack of one). Used to seed fixtures and to copy a remote snapshot for
// offline use.
func (s *Store) Import(ctx context.Context, records []models.MessageRecord) error {
	if s == nil || s.db == nil {
		return store.ErrStoreClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, record := range records {
		if err := record.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		var id any
		if record.HasID() {
			id = record.IDValue()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, sender, receiver, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
			id, record.Sender, record.Receiver, record.Content, record.Timestamp,
		); err != nil {
			return fmt.Errorf("failed to import record %d: %w", i, err)
		}
	}
	return tx.Commit()
}

var _ store.MessageStore = (*Store)(nil)
