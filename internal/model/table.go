package model

import "time"

// TableDetail carries the per-table customization and derived
// occupancy figures for one numbered table at an event.  Table
// identities are implicit (1..Event.TableCount); a row exists in the
// `table_details` table only once an organizer customizes the table,
// but the API always reports a full record for every table number.
//
// Fields:
//  TableNumber       – 1-based table number.
//  TableName         – optional custom label ("Head Table", sponsor names).
//  CustomCapacity    – optional per-table capacity override.
//  EffectiveCapacity – CustomCapacity when set, else the event default.
//  CurrentOccupancy  – count of guests whose table_number equals this table.
//  IsFull            – CurrentOccupancy >= EffectiveCapacity.
type TableDetail struct {
	TableNumber       int     // table_details.table_number
	TableName         *string // table_details.table_name (nullable)
	CustomCapacity    *int    // table_details.custom_capacity (nullable)
	EffectiveCapacity int     // derived
	CurrentOccupancy  int     // derived
	IsFull            bool    // derived
}

// Event is the slice of the platform's event record this service needs:
// how many tables the room holds and how many guests fit at each by
// default.  Everything else about an event (venue, schedule, auction
// config) lives in other services.
//
// Fields:
//  ID                – primary key identifier.
//  Name              – event name, used in queue events and logs.
//  TableCount        – number of tables configured for the room.
//  MaxGuestsPerTable – default capacity applied to tables without an override.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Event struct {
	ID                uint64    // events.id
	Name              string    // events.name
	TableCount        int       // events.table_count
	MaxGuestsPerTable int       // events.max_guests_per_table
	CreatedAt         time.Time // events.created_at
	UpdatedAt         time.Time // events.updated_at
}
