// Package archive persists sessions and their transcript fragments to
// Postgres. It rides along on a bus subscription; the live pipeline never
// waits on it.
package archive

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/steno-audio/steno/bus"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// Open connects the pool and applies the embedded schema.
func Open(ctx context.Context, url string, logger *log.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect archive database: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply archive schema: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Record consumes a bus subscription until the channel closes. Database
// trouble is logged and the event dropped.
func (s *Store) Record(ctx context.Context, events <-chan bus.Envelope) {
	for env := range events {
		switch ev := env.Event.(type) {
		case bus.Connected:
			s.beginSession(ctx, ev, env.Time)
		case bus.Transcript:
			s.addFragment(ctx, ev, env.Seq, env.Time)
		case bus.Disconnected:
			s.endSession(ctx, ev, env.Time)
		}
	}
}

func (s *Store) beginSession(ctx context.Context, ev bus.Connected, at time.Time) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, name, language, remote_addr, started_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		ev.SessionID, ev.Name, ev.Language, ev.RemoteAddr, at)
	if err != nil {
		s.logger.Error("record session", "id", ev.SessionID, "error", err)
	}
}

func (s *Store) addFragment(ctx context.Context, ev bus.Transcript, seq int64, at time.Time) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fragments (session_id, seq, content, created_at)
		 VALUES ($1, $2, $3, $4)`,
		ev.SessionID, seq, ev.Text, at)
	if err != nil {
		s.logger.Error("record fragment", "session", ev.SessionID, "error", err)
	}
}

func (s *Store) endSession(ctx context.Context, ev bus.Disconnected, at time.Time) {
	_, err := s.pool.Exec(ctx,
		`UPDATE sessions SET ended_at = $2 WHERE id = $1`,
		ev.SessionID, at)
	if err != nil {
		s.logger.Error("close session", "id", ev.SessionID, "error", err)
	}
}

// Session is one archived client connection.
type Session struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Language   string     `json:"language"`
	RemoteAddr string     `json:"remote_addr"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at"`
}

// Sessions lists the archive, newest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, language, remote_addr, started_at, ended_at
		 FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Name, &sess.Language,
			&sess.RemoteAddr, &sess.StartedAt, &sess.EndedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Transcript reassembles one session's text from its fragments in bus
// order.
func (s *Store) Transcript(ctx context.Context, sessionID string) (string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT content FROM fragments WHERE session_id = $1 ORDER BY seq`,
		sessionID)
	if err != nil {
		return "", fmt.Errorf("load fragments: %w", err)
	}
	defer rows.Close()

	var sb strings.Builder
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return "", fmt.Errorf("scan fragment: %w", err)
		}
		sb.WriteString(content)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return strings.TrimLeft(sb.String(), " "), nil
}
