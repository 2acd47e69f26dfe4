// Package store provides durable repositories for chat sessions.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhouzirui/opencode-chat/internal/model/chat"
	chatservice "github.com/zhouzirui/opencode-chat/internal/service/chat"
)

// SQLite implements chatservice.Repository on a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at dbPath.
func NewSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL REFERENCES sessions(session_id),
		sender TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) CreateSession(ctx context.Context, session chat.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, title, created_at) VALUES (?, ?, ?)`,
		session.ID, session.Title, session.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SQLite) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, title, created_at FROM sessions WHERE session_id = ?`, sessionID)

	var session chat.Session
	var createdAt int64
	err := row.Scan(&session.ID, &session.Title, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Session{}, chatservice.ErrSessionNotFound
	}
	if err != nil {
		return chat.Session{}, fmt.Errorf("scan session row: %w", err)
	}

	session.CreatedAt = time.UnixMilli(createdAt).UTC()
	return session, nil
}

func (s *SQLite) AppendMessage(ctx context.Context, message chat.Message) error {
	if _, err := s.GetSession(ctx, message.SessionID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, session_id, sender, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		message.ID, message.SessionID, message.Sender, message.Content, message.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *SQLite) ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, session_id, sender, content, created_at
		 FROM messages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]chat.Message, 0, 16)
	for rows.Next() {
		var msg chat.Message
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Sender, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.CreatedAt = time.UnixMilli(createdAt).UTC()
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

var _ chatservice.Repository = (*SQLite)(nil)
