package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/model"
)

// TableRepo manages per-table customization rows in `table_details`
// and assembles the derived detail records the API serves.  A row
// exists only once a table has been customized; uncustomized tables
// are synthesized from the event defaults.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

// customization is the raw table_details row.
type customization struct {
	tableNumber    int
	tableName      *string
	customCapacity *int
}

func scanCustomization(row interface{ Scan(...any) error }) (customization, error) {
	var (
		c    customization
		name sql.NullString
		cap  sql.NullInt64
	)
	if err := row.Scan(&c.tableNumber, &name, &cap); err != nil {
		return customization{}, err
	}
	if name.Valid {
		v := name.String
		c.tableName = &v
	}
	if cap.Valid {
		v := int(cap.Int64)
		c.customCapacity = &v
	}
	return c, nil
}

// buildDetail merges a customization (possibly zero) with occupancy
// into the full derived record.
func buildDetail(tableNumber int, c customization, occupancy, defaultCapacity int) model.TableDetail {
	d := model.TableDetail{
		TableNumber:       tableNumber,
		TableName:         c.tableName,
		CustomCapacity:    c.customCapacity,
		EffectiveCapacity: defaultCapacity,
		CurrentOccupancy:  occupancy,
	}
	if c.customCapacity != nil {
		d.EffectiveCapacity = *c.customCapacity
	}
	d.IsFull = d.CurrentOccupancy >= d.EffectiveCapacity
	return d
}

// ListDetails returns the full detail record for every table of the
// event, 1..ev.TableCount, merging stored customizations with live
// occupancy counts.
func (r *TableRepo) ListDetails(ctx context.Context, ev *model.Event) ([]model.TableDetail, error) {
	custom := make(map[int]customization)
	rows, err := r.db.QueryContext(ctx,
		`SELECT table_number, table_name, custom_capacity FROM table_details WHERE event_id = ?`, ev.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanCustomization(rows)
		if err != nil {
			return nil, err
		}
		custom[c.tableNumber] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	occupancy := make(map[int]int)
	orows, err := r.db.QueryContext(ctx,
		`SELECT table_number, COUNT(*) FROM guests
		 WHERE event_id = ? AND table_number IS NOT NULL
		 GROUP BY table_number`, ev.ID)
	if err != nil {
		return nil, err
	}
	defer orows.Close()
	for orows.Next() {
		var table, count int
		if err := orows.Scan(&table, &count); err != nil {
			return nil, err
		}
		occupancy[table] = count
	}
	if err := orows.Err(); err != nil {
		return nil, err
	}

	details := make([]model.TableDetail, 0, ev.TableCount)
	for n := 1; n <= ev.TableCount; n++ {
		details = append(details, buildDetail(n, custom[n], occupancy[n], ev.MaxGuestsPerTable))
	}
	return details, nil
}

// GetDetailTx returns the detail record for one table inside a
// transaction, used by the assignment handler's capacity check.
func (r *TableRepo) GetDetailTx(ctx context.Context, tx *sql.Tx, ev *model.Event, tableNumber int) (model.TableDetail, error) {
	c, err := scanCustomization(tx.QueryRowContext(ctx,
		`SELECT table_number, table_name, custom_capacity FROM table_details
		 WHERE event_id = ? AND table_number = ?`, ev.ID, tableNumber))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.TableDetail{}, err
	}
	var occupancy int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM guests WHERE event_id = ? AND table_number = ?`,
		ev.ID, tableNumber).Scan(&occupancy); err != nil {
		return model.TableDetail{}, err
	}
	return buildDetail(tableNumber, c, occupancy, ev.MaxGuestsPerTable), nil
}

// CustomCapacitiesTx returns the capacity overrides for the event,
// keyed by table number, inside a transaction.  Tables without an
// override are absent from the map.
func (r *TableRepo) CustomCapacitiesTx(ctx context.Context, tx *sql.Tx, eventID uint64) (map[int]int, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT table_number, custom_capacity FROM table_details
		 WHERE event_id = ? AND custom_capacity IS NOT NULL`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	capacities := make(map[int]int)
	for rows.Next() {
		var table, capacity int
		if err := rows.Scan(&table, &capacity); err != nil {
			return nil, err
		}
		capacities[table] = capacity
	}
	return capacities, rows.Err()
}

// UpsertCustomizationTx merges the provided fields into the table's
// customization row, creating it when absent.  Nil fields leave the
// stored value untouched.
func (r *TableRepo) UpsertCustomizationTx(ctx context.Context, tx *sql.Tx, eventID uint64, tableNumber int, tableName *string, customCapacity *int) error {
	const q = `INSERT INTO table_details (event_id, table_number, table_name, custom_capacity)
	           VALUES (?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE
	             table_name = COALESCE(VALUES(table_name), table_name),
	             custom_capacity = COALESCE(VALUES(custom_capacity), custom_capacity)`
	var name sql.NullString
	if tableName != nil {
		name = sql.NullString{String: *tableName, Valid: true}
	}
	var cap sql.NullInt64
	if customCapacity != nil {
		cap = sql.NullInt64{Int64: int64(*customCapacity), Valid: true}
	}
	_, err := tx.ExecContext(ctx, q, eventID, tableNumber, name, cap)
	return err
}
