package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kalambet/signalboard/internal/model"
)

// AppendLog stores a log event. Events are append-only.
func (s *Store) AppendLog(e model.LogEvent) error {
	_, err := s.db.Exec(`
		INSERT INTO activity_log (id, created_at, actor, action, entity, detail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC().Format(time.RFC3339Nano), string(e.Actor), e.Action, e.Entity, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("inserting log event %s: %w", e.ID, err)
	}
	return nil
}

// GetLog returns a single event by id.
func (s *Store) GetLog(id string) (model.LogEvent, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, actor, action, entity, detail
		FROM activity_log WHERE id = ?`, id)
	e, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LogEvent{}, ErrNotFound
	}
	return e, err
}

// ListLogs returns events newest first. A non-positive limit returns all
// events after offset.
func (s *Store) ListLogs(limit, offset int) ([]model.LogEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(`
		SELECT id, created_at, actor, action, entity, detail
		FROM activity_log ORDER BY seq DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.LogEvent
	for rows.Next() {
		e, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// CountLogs returns the number of stored events.
func (s *Store) CountLogs() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM activity_log").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ClearLogs deletes every event and reports how many were removed.
func (s *Store) ClearLogs() (int64, error) {
	res, err := s.db.Exec("DELETE FROM activity_log")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLog(sc scanner) (model.LogEvent, error) {
	var (
		e         model.LogEvent
		createdAt string
		actor     string
	)
	if err := sc.Scan(&e.ID, &createdAt, &actor, &e.Action, &e.Entity, &e.Detail); err != nil {
		return model.LogEvent{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.LogEvent{}, fmt.Errorf("parsing created_at: %w", err)
	}
	e.Timestamp = t
	e.Actor = model.Actor(actor)
	return e, nil
}
