package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Session represents one armed pointing interval and its recorded trace.
type Session struct {
	ID         string
	StartedAt  time.Time
	EndedAt    time.Time
	PointCount int
	ImagePath  string
	CreatedAt  time.Time
}

// Duration returns how long the session was armed.
func (s *Session) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// SessionRepository provides persistence for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session. A missing ID is assigned.
func (r *SessionRepository) Create(s *Session) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, started_at, ended_at, point_count, image_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.StartedAt, s.EndedAt, s.PointCount, s.ImagePath, s.CreatedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	s := &Session{}

	err := r.db.QueryRow(
		`SELECT id, started_at, ended_at, point_count, image_path, created_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.StartedAt, &s.EndedAt, &s.PointCount, &s.ImagePath, &s.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s, nil
}

// List retrieves the most recent sessions, newest first.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT id, started_at, ended_at, point_count, image_path, created_at
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s := &Session{}
		err := rows.Scan(&s.ID, &s.StartedAt, &s.EndedAt, &s.PointCount, &s.ImagePath, &s.CreatedAt)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Latest returns the most recent session, or ErrNotFound when none exist.
func (r *SessionRepository) Latest() (*Session, error) {
	s := &Session{}

	err := r.db.QueryRow(
		`SELECT id, started_at, ended_at, point_count, image_path, created_at
		 FROM sessions ORDER BY started_at DESC LIMIT 1`,
	).Scan(&s.ID, &s.StartedAt, &s.EndedAt, &s.PointCount, &s.ImagePath, &s.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s, nil
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
