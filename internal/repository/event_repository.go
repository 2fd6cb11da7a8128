package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/model"
)

// EventRepo reads the slice of event configuration the seating service
// needs: table count and default per-table capacity.  Events are
// created and managed by the platform's event service; this repository
// is read-only.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// that span multiple repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

// GetByID loads one event.  ErrEventNotFound is returned when no row
// exists.
func (r *EventRepo) GetByID(ctx context.Context, eventID uint64) (*model.Event, error) {
	const q = `SELECT id, name, table_count, max_guests_per_table, created_at, updated_at
	           FROM events WHERE id = ?`
	var ev model.Event
	err := r.db.QueryRowContext(ctx, q, eventID).Scan(
		&ev.ID, &ev.Name, &ev.TableCount, &ev.MaxGuestsPerTable, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
