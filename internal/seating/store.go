package seating

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/model"
)

// guestPageSize is how many guests LoadGuests requests per page.  The
// gateway caps page sizes at this value, so the store pages until the
// reported total has been fetched.
const guestPageSize = 200

// Sentinel errors surfaced by store mutations.  All of them are
// detected before any state change, so no rollback is involved.
var (
	ErrNotInitialized = errors.New("seating store not initialized")
	ErrGuestNotFound  = errors.New("guest not found")
	ErrGuestNotSeated = errors.New("guest is not seated at any table")
	ErrInvalidTable   = errors.New("table number out of range")
	ErrTableFull      = errors.New("table is at capacity")
)

// TableCustomization holds the optional fields an organizer can change
// on a table.  Nil fields are left untouched.
type TableCustomization struct {
	CustomCapacity *int    `json:"custom_capacity,omitempty"`
	TableName      *string `json:"table_name,omitempty"`
}

// Gateway is the remote seating API the store mediates all mutations
// through.  internal/gateway provides the HTTP implementation; tests
// substitute fakes.
type Gateway interface {
	// ListGuests returns one page of guests for the event along with
	// the total guest count.
	ListGuests(ctx context.Context, eventID uint64, page, pageSize int) ([]model.Guest, int, error)
	// TableGuests returns the guests currently seated at one table.
	TableGuests(ctx context.Context, eventID uint64, tableNumber int) ([]model.Guest, error)
	// AssignGuest seats a guest at a table.
	AssignGuest(ctx context.Context, eventID uint64, guestID string, tableNumber int) error
	// UnassignGuest returns a guest to the unassigned pool.
	UnassignGuest(ctx context.Context, eventID uint64, guestID string) error
	// ListTableDetails returns customization and occupancy records for
	// every table of the event.
	ListTableDetails(ctx context.Context, eventID uint64) ([]model.TableDetail, error)
	// UpdateTableDetail applies a customization and returns the
	// authoritative updated record.
	UpdateTableDetail(ctx context.Context, eventID uint64, tableNumber int, upd TableCustomization) (model.TableDetail, error)
	// ApplyPlacements submits an auto-assignment plan as one
	// all-or-nothing batch.
	ApplyPlacements(ctx context.Context, eventID uint64, placements []Placement) error
}

// snapshot is a deep copy of the store's mutable state, captured
// immediately before an optimistic mutation and restored verbatim when
// the gateway rejects it.  Exactly one snapshot exists at a time.
type snapshot struct {
	tables     map[int][]model.Guest
	unassigned []model.Guest
	details    map[int]model.TableDetail
}

// Store maintains the client-side view of guest-to-table assignments
// for one event.  Every mutation is applied locally first so the UI
// reflects it immediately, then confirmed against the gateway; a
// rejected call restores the pre-mutation snapshot and surfaces the
// failure through the Notifier.
//
// Mutations run one at a time: each method holds the store for the
// full duration of its gateway call, so a second mutation cannot
// overwrite the pending snapshot of the first.
type Store struct {
	gw     Gateway
	notify Notifier

	eventID         uint64
	tableCount      int
	defaultCapacity int

	tables     map[int][]model.Guest
	unassigned []model.Guest
	details    map[int]model.TableDetail

	pending *snapshot
	mu      chan struct{} // single-writer slot; see lock/unlock
}

// NewStore builds a store over the given gateway.  A nil notifier is
// replaced with NopNotifier.  Initialize must be called before any
// load or mutation.
func NewStore(gw Gateway, notify Notifier) *Store {
	if notify == nil {
		notify = NopNotifier{}
	}
	s := &Store{gw: gw, notify: notify, mu: make(chan struct{}, 1)}
	s.mu <- struct{}{}
	return s
}

func (s *Store) lock()   { <-s.mu }
func (s *Store) unlock() { s.mu <- struct{}{} }

// Initialize resets the store to a fresh state for one event context:
// tableCount empty tables, no guests, no details, no pending snapshot.
func (s *Store) Initialize(eventID uint64, tableCount, maxGuestsPerTable int) {
	s.lock()
	defer s.unlock()
	s.eventID = eventID
	s.tableCount = tableCount
	s.defaultCapacity = maxGuestsPerTable
	s.tables = make(map[int][]model.Guest, tableCount)
	for n := 1; n <= tableCount; n++ {
		s.tables[n] = []model.Guest{}
	}
	s.unassigned = []model.Guest{}
	s.details = make(map[int]model.TableDetail)
	s.pending = nil
}

// Reset clears all state back to the pre-Initialize baseline.
func (s *Store) Reset() {
	s.lock()
	defer s.unlock()
	s.eventID = 0
	s.tableCount = 0
	s.defaultCapacity = 0
	s.tables = nil
	s.unassigned = nil
	s.details = nil
	s.pending = nil
}

// LoadGuests fetches the complete guest list for the event, paging
// through the gateway, and partitions guests into per-table buckets
// and the unassigned bucket.  On success it chains into
// LoadTableDetails.  Failures are surfaced through the Notifier and
// returned; no partially fetched data replaces the current state.
func (s *Store) LoadGuests(ctx context.Context) error {
	s.lock()
	if s.tables == nil {
		s.unlock()
		return ErrNotInitialized
	}
	var all []model.Guest
	for page := 1; ; page++ {
		batch, total, err := s.gw.ListGuests(ctx, s.eventID, page, guestPageSize)
		if err != nil {
			s.unlock()
			s.notify.Error("Failed to load guests: " + err.Error())
			return fmt.Errorf("load guests: %w", err)
		}
		all = append(all, batch...)
		if len(batch) == 0 || len(all) >= total {
			break
		}
	}
	for n := 1; n <= s.tableCount; n++ {
		s.tables[n] = []model.Guest{}
	}
	s.unassigned = []model.Guest{}
	for _, g := range all {
		if g.TableNumber != nil && *g.TableNumber >= 1 && *g.TableNumber <= s.tableCount {
			s.tables[*g.TableNumber] = append(s.tables[*g.TableNumber], g)
			continue
		}
		g.TableNumber = nil
		s.unassigned = append(s.unassigned, g)
	}
	s.unlock()
	return s.LoadTableDetails(ctx)
}

// LoadTableDetails fetches per-table customization and occupancy
// records and stores them keyed by table number.  A failure here
// leaves already-loaded guest data untouched.
func (s *Store) LoadTableDetails(ctx context.Context) error {
	s.lock()
	defer s.unlock()
	if s.details == nil {
		return ErrNotInitialized
	}
	recs, err := s.gw.ListTableDetails(ctx, s.eventID)
	if err != nil {
		s.notify.Error("Failed to load table details: " + err.Error())
		return fmt.Errorf("load table details: %w", err)
	}
	details := make(map[int]model.TableDetail, len(recs))
	for _, d := range recs {
		details[d.TableNumber] = d
	}
	s.details = details
	return nil
}

// LoadTableOccupancy re-syncs a single table's guest list from the
// gateway.  On failure the prior bucket is left untouched.
func (s *Store) LoadTableOccupancy(ctx context.Context, tableNumber int) error {
	s.lock()
	defer s.unlock()
	if tableNumber < 1 || tableNumber > s.tableCount {
		s.notify.Error("Failed to refresh table: " + ErrInvalidTable.Error())
		return ErrInvalidTable
	}
	guests, err := s.gw.TableGuests(ctx, s.eventID, tableNumber)
	if err != nil {
		s.notify.Error("Failed to refresh table: " + err.Error())
		return fmt.Errorf("load table occupancy: %w", err)
	}
	for i := range guests {
		n := tableNumber
		guests[i].TableNumber = &n
	}
	s.tables[tableNumber] = guests
	s.refreshDetail(tableNumber)
	return nil
}

// AssignGuestToTable seats a guest at the given table.  The guest is
// looked up in the unassigned bucket first, then in every table
// bucket.  Capacity is checked client-side before any state change;
// the optimistic move is rolled back if the gateway rejects it.
func (s *Store) AssignGuestToTable(ctx context.Context, guestID string, tableNumber int) error {
	s.lock()
	defer s.unlock()
	if tableNumber < 1 || tableNumber > s.tableCount {
		s.notify.Error("Failed to assign guest to table: " + ErrInvalidTable.Error())
		return ErrInvalidTable
	}
	guest, prevTable, ok := s.locate(guestID)
	if !ok {
		s.notify.Error("Failed to assign guest to table: " + ErrGuestNotFound.Error())
		return ErrGuestNotFound
	}
	if prevTable != tableNumber && len(s.tables[tableNumber]) >= s.effectiveCapacity(tableNumber) {
		s.notify.Error(fmt.Sprintf("Failed to assign guest to table %d: %s", tableNumber, ErrTableFull))
		return ErrTableFull
	}

	s.takeSnapshot()
	s.detach(guestID, prevTable)
	n := tableNumber
	guest.TableNumber = &n
	s.tables[tableNumber] = append(s.tables[tableNumber], guest)
	s.refreshDetail(tableNumber)
	if prevTable > 0 {
		s.refreshDetail(prevTable)
	}

	if err := s.gw.AssignGuest(ctx, s.eventID, guestID, tableNumber); err != nil {
		s.restoreSnapshot()
		s.notify.Error("Failed to assign guest to table: " + err.Error())
		return fmt.Errorf("assign guest: %w", err)
	}
	s.pending = nil
	s.notify.Success(fmt.Sprintf("Assigned %s to table %d", guest.DisplayName(), tableNumber))
	return nil
}

// RemoveGuestFromTable moves a seated guest back to the unassigned
// bucket.  Guests that are not seated anywhere produce an error and no
// state change.
func (s *Store) RemoveGuestFromTable(ctx context.Context, guestID string) error {
	s.lock()
	defer s.unlock()
	guest, prevTable, ok := s.locate(guestID)
	if !ok || prevTable == 0 {
		s.notify.Error("Failed to remove guest from table: " + ErrGuestNotSeated.Error())
		return ErrGuestNotSeated
	}

	s.takeSnapshot()
	s.detach(guestID, prevTable)
	guest.TableNumber = nil
	s.unassigned = append(s.unassigned, guest)
	s.refreshDetail(prevTable)

	if err := s.gw.UnassignGuest(ctx, s.eventID, guestID); err != nil {
		s.restoreSnapshot()
		s.notify.Error("Failed to remove guest from table: " + err.Error())
		return fmt.Errorf("unassign guest: %w", err)
	}
	s.pending = nil
	s.notify.Success(fmt.Sprintf("Removed %s from table %d", guest.DisplayName(), prevTable))
	return nil
}

// UpdateTableCustomization merges the given fields into the table's
// detail record optimistically, then calls the gateway.  On success
// the server's returned record replaces the optimistic one, since
// capacity and name changes may be adjusted server-side; on failure
// the snapshot is restored.
func (s *Store) UpdateTableCustomization(ctx context.Context, tableNumber int, upd TableCustomization) error {
	s.lock()
	defer s.unlock()
	if tableNumber < 1 || tableNumber > s.tableCount {
		s.notify.Error("Failed to update table: " + ErrInvalidTable.Error())
		return ErrInvalidTable
	}

	s.takeSnapshot()
	d, ok := s.details[tableNumber]
	if !ok {
		d = model.TableDetail{TableNumber: tableNumber, CurrentOccupancy: len(s.tables[tableNumber])}
	}
	if upd.CustomCapacity != nil {
		d.CustomCapacity = upd.CustomCapacity
	}
	if upd.TableName != nil {
		d.TableName = upd.TableName
	}
	d.EffectiveCapacity = s.defaultCapacity
	if d.CustomCapacity != nil {
		d.EffectiveCapacity = *d.CustomCapacity
	}
	d.IsFull = d.CurrentOccupancy >= d.EffectiveCapacity
	s.details[tableNumber] = d

	authoritative, err := s.gw.UpdateTableDetail(ctx, s.eventID, tableNumber, upd)
	if err != nil {
		s.restoreSnapshot()
		s.notify.Error("Failed to update table: " + err.Error())
		return fmt.Errorf("update table detail: %w", err)
	}
	s.details[tableNumber] = authoritative
	s.pending = nil
	s.notify.Success(fmt.Sprintf("Updated table %d", tableNumber))
	return nil
}

// AutoAssign plans seating for every unassigned guest, applies the
// plan optimistically under a single snapshot and submits it to the
// gateway as one batch.  The whole batch rolls back on rejection, so
// no partial result is ever visible.  Already-seated guests are never
// touched, which makes repeated runs safe.
func (s *Store) AutoAssign(ctx context.Context) (PlanResult, error) {
	s.lock()
	defer s.unlock()
	plan := PlanAssignments(s.unassigned, s.slots())
	if len(plan.Placements) == 0 {
		s.notify.Success("No guests could be auto-assigned")
		return plan, nil
	}

	s.takeSnapshot()
	for _, p := range plan.Placements {
		guest, _, ok := s.locate(p.GuestID)
		if !ok {
			continue
		}
		s.detach(p.GuestID, 0)
		n := p.TableNumber
		guest.TableNumber = &n
		s.tables[n] = append(s.tables[n], guest)
	}
	for n := 1; n <= s.tableCount; n++ {
		s.refreshDetail(n)
	}

	if err := s.gw.ApplyPlacements(ctx, s.eventID, plan.Placements); err != nil {
		s.restoreSnapshot()
		s.notify.Error("Failed to auto-assign guests: " + err.Error())
		return PlanResult{}, fmt.Errorf("auto-assign: %w", err)
	}
	s.pending = nil
	s.notify.Success(fmt.Sprintf("Auto-assigned %d guests, %d left unassigned", plan.AssignedCount, plan.UnassignedCount))
	return plan, nil
}

// Rollback restores the last snapshot, if any, and clears it.  Calling
// it with no pending snapshot is a no-op.
func (s *Store) Rollback() {
	s.lock()
	defer s.unlock()
	s.restoreSnapshot()
}

// TableGuests returns a copy of the guest bucket for one table.
func (s *Store) TableGuests(tableNumber int) []model.Guest {
	s.lock()
	defer s.unlock()
	return append([]model.Guest(nil), s.tables[tableNumber]...)
}

// Unassigned returns a copy of the unassigned guest bucket.
func (s *Store) Unassigned() []model.Guest {
	s.lock()
	defer s.unlock()
	return append([]model.Guest(nil), s.unassigned...)
}

// TableDetail returns the detail record for one table, synthesizing a
// default record when the table has never been customized.
func (s *Store) TableDetail(tableNumber int) model.TableDetail {
	s.lock()
	defer s.unlock()
	if d, ok := s.details[tableNumber]; ok {
		return d
	}
	occ := len(s.tables[tableNumber])
	return model.TableDetail{
		TableNumber:       tableNumber,
		EffectiveCapacity: s.defaultCapacity,
		CurrentOccupancy:  occ,
		IsFull:            occ >= s.defaultCapacity && s.defaultCapacity > 0,
	}
}

// TableCount returns the configured number of tables.
func (s *Store) TableCount() int {
	s.lock()
	defer s.unlock()
	return s.tableCount
}

// locate finds a guest by ID, checking the unassigned bucket first and
// then every table bucket in ascending order.  prevTable is 0 for
// unassigned guests.
func (s *Store) locate(guestID string) (guest model.Guest, prevTable int, ok bool) {
	for _, g := range s.unassigned {
		if g.ID == guestID {
			return g, 0, true
		}
	}
	for n := 1; n <= s.tableCount; n++ {
		for _, g := range s.tables[n] {
			if g.ID == guestID {
				return g, n, true
			}
		}
	}
	return model.Guest{}, 0, false
}

// detach removes the guest from its current bucket.  prevTable 0 means
// the unassigned bucket.
func (s *Store) detach(guestID string, prevTable int) {
	if prevTable == 0 {
		for i, g := range s.unassigned {
			if g.ID == guestID {
				s.unassigned = append(s.unassigned[:i], s.unassigned[i+1:]...)
				return
			}
		}
		return
	}
	bucket := s.tables[prevTable]
	for i, g := range bucket {
		if g.ID == guestID {
			s.tables[prevTable] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// effectiveCapacity returns the custom capacity override for a table
// when present, else the event default.
func (s *Store) effectiveCapacity(tableNumber int) int {
	if d, ok := s.details[tableNumber]; ok && d.CustomCapacity != nil {
		return *d.CustomCapacity
	}
	return s.defaultCapacity
}

// refreshDetail recomputes the derived occupancy fields of one table's
// detail record from the live bucket.
func (s *Store) refreshDetail(tableNumber int) {
	d, ok := s.details[tableNumber]
	if !ok {
		d = model.TableDetail{TableNumber: tableNumber}
	}
	d.CurrentOccupancy = len(s.tables[tableNumber])
	d.EffectiveCapacity = s.defaultCapacity
	if d.CustomCapacity != nil {
		d.EffectiveCapacity = *d.CustomCapacity
	}
	d.IsFull = d.CurrentOccupancy >= d.EffectiveCapacity
	s.details[tableNumber] = d
}

// slots builds the ascending table list with remaining capacities the
// planner consumes.
func (s *Store) slots() []TableSlot {
	slots := make([]TableSlot, 0, s.tableCount)
	for n := 1; n <= s.tableCount; n++ {
		remaining := s.effectiveCapacity(n) - len(s.tables[n])
		if remaining < 0 {
			remaining = 0
		}
		slots = append(slots, TableSlot{Number: n, Remaining: remaining})
	}
	return slots
}

func (s *Store) takeSnapshot() {
	snap := &snapshot{
		tables:     make(map[int][]model.Guest, len(s.tables)),
		unassigned: append([]model.Guest(nil), s.unassigned...),
		details:    make(map[int]model.TableDetail, len(s.details)),
	}
	for n, bucket := range s.tables {
		snap.tables[n] = append([]model.Guest(nil), bucket...)
	}
	for n, d := range s.details {
		snap.details[n] = d
	}
	s.pending = snap
}

func (s *Store) restoreSnapshot() {
	if s.pending == nil {
		return
	}
	s.tables = s.pending.tables
	s.unassigned = s.pending.unassigned
	s.details = s.pending.details
	s.pending = nil
}
