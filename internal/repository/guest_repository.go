package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/model"
	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/seating"
)

// GuestRepo provides read and assignment operations over the `guests`
// table.  Guests are created by the registration flow; this service
// only moves them between tables, so there are no insert or delete
// operations here.
type GuestRepo struct {
	db *sql.DB
}

// NewGuestRepo returns a new GuestRepo bound to the given database.
func NewGuestRepo(db *sql.DB) *GuestRepo { return &GuestRepo{db: db} }

const guestColumns = `id, event_id, name, email, bidder_number, table_number, registration_id, created_at, updated_at`

// scanGuest reads one guest row.  Nullable columns map to pointer
// fields on the model.
func scanGuest(row interface{ Scan(...any) error }) (model.Guest, error) {
	var (
		g       model.Guest
		name    sql.NullString
		email   sql.NullString
		bidder  sql.NullInt64
		tableNo sql.NullInt64
	)
	err := row.Scan(&g.ID, &g.EventID, &name, &email, &bidder, &tableNo, &g.RegistrationID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return model.Guest{}, err
	}
	if name.Valid {
		v := name.String
		g.Name = &v
	}
	if email.Valid {
		v := email.String
		g.Email = &v
	}
	if bidder.Valid {
		v := int(bidder.Int64)
		g.BidderNumber = &v
	}
	if tableNo.Valid {
		v := int(tableNo.Int64)
		g.TableNumber = &v
	}
	return g, nil
}

// ListByEvent returns one page of the event's guests ordered by
// creation time, along with the total guest count for the event.
// Pages are 1-based.
func (r *GuestRepo) ListByEvent(ctx context.Context, eventID uint64, page, pageSize int) ([]model.Guest, int, error) {
	if page < 1 {
		page = 1
	}
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM guests WHERE event_id = ?`, eventID).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT ` + guestColumns + ` FROM guests
	           WHERE event_id = ?
	           ORDER BY created_at, id
	           LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, eventID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	guests := make([]model.Guest, 0, pageSize)
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, 0, err
		}
		guests = append(guests, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return guests, total, nil
}

// ListByTable returns the guests currently seated at one table,
// ordered deterministically.
func (r *GuestRepo) ListByTable(ctx context.Context, eventID uint64, tableNumber int) ([]model.Guest, error) {
	const q = `SELECT ` + guestColumns + ` FROM guests
	           WHERE event_id = ? AND table_number = ?
	           ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, eventID, tableNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	guests := make([]model.Guest, 0)
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

// GetByIDTx loads one guest within a transaction, locking the row so a
// concurrent assignment cannot move the guest mid-flight.
// ErrGuestNotFound is returned when the guest does not exist for the
// event.
func (r *GuestRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, eventID uint64, guestID string) (model.Guest, error) {
	const q = `SELECT ` + guestColumns + ` FROM guests
	           WHERE event_id = ? AND id = ? FOR UPDATE`
	g, err := scanGuest(tx.QueryRowContext(ctx, q, eventID, guestID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Guest{}, ErrGuestNotFound
	}
	return g, err
}

// CountByTableTx returns the committed occupancy of one table inside a
// transaction.
func (r *GuestRepo) CountByTableTx(ctx context.Context, tx *sql.Tx, eventID uint64, tableNumber int) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM guests WHERE event_id = ? AND table_number = ?`,
		eventID, tableNumber).Scan(&n)
	return n, err
}

// SetTableTx moves a guest to the given table, or back to the
// unassigned pool when tableNumber is nil.  ErrGuestNotFound is
// returned when no row was updated.
func (r *GuestRepo) SetTableTx(ctx context.Context, tx *sql.Tx, eventID uint64, guestID string, tableNumber *int) error {
	var table sql.NullInt64
	if tableNumber != nil {
		table = sql.NullInt64{Int64: int64(*tableNumber), Valid: true}
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE guests SET table_number = ? WHERE event_id = ? AND id = ?`,
		table, eventID, guestID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// RowsAffected is also 0 when the value did not change, so
		// confirm the guest exists before reporting not-found.
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM guests WHERE event_id = ? AND id = ?`, eventID, guestID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrGuestNotFound
		}
		return err
	}
	return nil
}

// ListUnassignedTx returns the guests with no table, locked for the
// duration of the transaction so the auto-assign batch operates on a
// stable set.
func (r *GuestRepo) ListUnassignedTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]model.Guest, error) {
	const q = `SELECT ` + guestColumns + ` FROM guests
	           WHERE event_id = ? AND table_number IS NULL
	           ORDER BY created_at, id
	           FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	guests := make([]model.Guest, 0)
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

// ApplyPlacementsTx seats a batch of currently unassigned guests.  A
// placement targeting a guest that is no longer unassigned indicates a
// concurrent modification and fails the whole batch with ErrConflict,
// leaving the transaction for the caller to roll back.
func (r *GuestRepo) ApplyPlacementsTx(ctx context.Context, tx *sql.Tx, eventID uint64, placements []seating.Placement) error {
	if len(placements) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`UPDATE guests SET table_number = ?
		 WHERE event_id = ? AND id = ? AND table_number IS NULL`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range placements {
		res, err := stmt.ExecContext(ctx, p.TableNumber, eventID, p.GuestID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrConflict
		}
	}
	return nil
}

// OccupancyByTableTx returns a map of table number to committed
// occupancy for the event.
func (r *GuestRepo) OccupancyByTableTx(ctx context.Context, tx *sql.Tx, eventID uint64) (map[int]int, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT table_number, COUNT(*) FROM guests
		 WHERE event_id = ? AND table_number IS NOT NULL
		 GROUP BY table_number`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	occupancy := make(map[int]int)
	for rows.Next() {
		var table, count int
		if err := rows.Scan(&table, &count); err != nil {
			return nil, err
		}
		occupancy[table] = count
	}
	return occupancy, rows.Err()
}
