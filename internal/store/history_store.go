package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/nutriscan/internal/domain"
)

// DefaultHistoryLimit is the number of analyses kept.
const DefaultHistoryLimit = 50

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var ErrNotFound = fmt.Errorf("history item %w", domain.ErrNotFound)

type HistoryStore struct {
	db     *sql.DB
	limit  int
	now    func() time.Time
	logger *slog.Logger
}

func NewHistoryStore(db *sql.DB, limit int, logger *slog.Logger) *HistoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryStore{db: db, limit: limit, now: time.Now, logger: logger}
}

// Save appends record as the newest item and drops everything beyond the
// limit.
func (s *HistoryStore) Save(ctx context.Context, record *domain.AnalysisRecord) (*domain.HistoryItem, error) {
	if record == nil {
		return nil, errors.New("history record is nil")
	}
	item := &domain.HistoryItem{
		ID:        uuid.NewString(),
		Timestamp: s.now().UTC(),
		Record:    record.Clone(),
	}
	payload, err := json.Marshal(item.Record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.logger.Error("failed to roll back history save", "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history (id, created_at, record) VALUES (?, ?, ?)
	`, item.ID, item.Timestamp.Format(timeLayout), string(payload)); err != nil {
		return nil, fmt.Errorf("failed to save history item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM history WHERE id NOT IN (
			SELECT id FROM history ORDER BY created_at DESC, rowid DESC LIMIT ?
		)
	`, s.limit); err != nil {
		return nil, fmt.Errorf("failed to truncate history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit history save: %w", err)
	}
	return item, nil
}

// List returns saved items, most recent first. If any stored row cannot be
// decoded the whole history reads as empty.
func (s *HistoryStore) List(ctx context.Context) ([]*domain.HistoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, record FROM history ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, s.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.HistoryItem, 0)
	for rows.Next() {
		var id, createdAt, payload string
		if err := rows.Scan(&id, &createdAt, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan history item: %w", err)
		}
		item, err := decodeItem(id, createdAt, payload)
		if err != nil {
			s.logger.Warn("discarding unreadable history", "id", id, "error", err)
			return make([]*domain.HistoryItem, 0), nil
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return items, nil
}

func decodeItem(id, createdAt, payload string) (*domain.HistoryItem, error) {
	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("bad timestamp: %w", err)
	}
	var rec domain.AnalysisRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("bad record: %w", err)
	}
	return &domain.HistoryItem{ID: id, Timestamp: ts, Record: rec.Clone()}, nil
}

func (s *HistoryStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM history WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete history item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *HistoryStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
