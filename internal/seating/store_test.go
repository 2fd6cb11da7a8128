package seating

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/model"
)

// fakeGateway is an in-memory Gateway with per-operation failure
// injection.  It records call counts so tests can assert which
// operations reached the network.
type fakeGateway struct {
	guests  []model.Guest
	details []model.TableDetail

	failList      error
	failDetails   error
	failAssign    error
	failUnassign  error
	failUpdate    error
	failBatch     error
	updateResp    *model.TableDetail
	listPages     int
	assignCalls   int
	unassignCalls int
	batchCalls    int
}

func (f *fakeGateway) ListGuests(_ context.Context, _ uint64, page, pageSize int) ([]model.Guest, int, error) {
	if f.failList != nil {
		return nil, 0, f.failList
	}
	f.listPages++
	start := (page - 1) * pageSize
	if start >= len(f.guests) {
		return nil, len(f.guests), nil
	}
	end := start + pageSize
	if end > len(f.guests) {
		end = len(f.guests)
	}
	return append([]model.Guest(nil), f.guests[start:end]...), len(f.guests), nil
}

func (f *fakeGateway) TableGuests(_ context.Context, _ uint64, tableNumber int) ([]model.Guest, error) {
	var out []model.Guest
	for _, g := range f.guests {
		if g.TableNumber != nil && *g.TableNumber == tableNumber {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGateway) AssignGuest(context.Context, uint64, string, int) error {
	f.assignCalls++
	return f.failAssign
}

func (f *fakeGateway) UnassignGuest(context.Context, uint64, string) error {
	f.unassignCalls++
	return f.failUnassign
}

func (f *fakeGateway) ListTableDetails(context.Context, uint64) ([]model.TableDetail, error) {
	if f.failDetails != nil {
		return nil, f.failDetails
	}
	return append([]model.TableDetail(nil), f.details...), nil
}

func (f *fakeGateway) UpdateTableDetail(_ context.Context, _ uint64, tableNumber int, upd TableCustomization) (model.TableDetail, error) {
	if f.failUpdate != nil {
		return model.TableDetail{}, f.failUpdate
	}
	if f.updateResp != nil {
		return *f.updateResp, nil
	}
	d := model.TableDetail{TableNumber: tableNumber, TableName: upd.TableName, CustomCapacity: upd.CustomCapacity}
	if upd.CustomCapacity != nil {
		d.EffectiveCapacity = *upd.CustomCapacity
	}
	return d, nil
}

func (f *fakeGateway) ApplyPlacements(context.Context, uint64, []Placement) error {
	f.batchCalls++
	return f.failBatch
}

// recordingNotifier keeps every notification for assertions.
type recordingNotifier struct {
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) { n.successes = append(n.successes, msg) }
func (n *recordingNotifier) Error(msg string)   { n.errors = append(n.errors, msg) }

// storeState is a deep capture of everything the store exposes, used
// for rollback deep-equality checks.
type storeState struct {
	tables     map[int][]model.Guest
	unassigned []model.Guest
	details    map[int]model.TableDetail
}

func captureState(s *Store) storeState {
	st := storeState{
		tables:     map[int][]model.Guest{},
		unassigned: s.Unassigned(),
		details:    map[int]model.TableDetail{},
	}
	for n := 1; n <= s.TableCount(); n++ {
		st.tables[n] = s.TableGuests(n)
		st.details[n] = s.TableDetail(n)
	}
	return st
}

func seatedGuest(id, registrationID string, table int) model.Guest {
	g := model.Guest{ID: id, RegistrationID: registrationID}
	if table > 0 {
		g.TableNumber = &table
	}
	return g
}

func newLoadedStore(t *testing.T, gw *fakeGateway, notifier Notifier, tableCount, defaultCap int) *Store {
	t.Helper()
	s := NewStore(gw, notifier)
	s.Initialize(42, tableCount, defaultCap)
	require.NoError(t, s.LoadGuests(context.Background()))
	return s
}

func TestLoadGuestsPartitionsBuckets(t *testing.T) {
	gw := &fakeGateway{guests: []model.Guest{
		seatedGuest("g1", "reg-1", 2),
		seatedGuest("g2", "reg-1", 0),
		seatedGuest("g3", "reg-2", 0),
	}}
	s := newLoadedStore(t, gw, nil, 3, 8)

	require.Empty(t, s.TableGuests(1))
	require.Len(t, s.TableGuests(2), 1)
	require.Equal(t, "g1", s.TableGuests(2)[0].ID)
	require.Len(t, s.Unassigned(), 2)
}

func TestLoadGuestsPagesUntilComplete(t *testing.T) {
	gw := &fakeGateway{}
	for i := 0; i < 450; i++ {
		gw.guests = append(gw.guests, seatedGuest(fmt.Sprintf("g%03d", i), "", 0))
	}
	s := newLoadedStore(t, gw, nil, 2, 8)

	require.Equal(t, 3, gw.listPages)
	require.Len(t, s.Unassigned(), 450)
}

func TestLoadGuestsFailureNotifiesAndKeepsState(t *testing.T) {
	notifier := &recordingNotifier{}
	gw := &fakeGateway{guests: []model.Guest{seatedGuest("g1", "", 1)}}
	s := newLoadedStore(t, gw, notifier, 2, 8)
	before := captureState(s)

	gw.failList = errors.New("gateway down")
	require.Error(t, s.LoadGuests(context.Background()))
	require.Equal(t, before, captureState(s))
	require.NotEmpty(t, notifier.errors)
	require.Contains(t, notifier.errors[len(notifier.errors)-1], "Failed to load guests")
}

func TestLoadTableDetailsFailureKeepsGuests(t *testing.T) {
	gw := &fakeGateway{guests: []model.Guest{seatedGuest("g1", "", 1)}}
	s := newLoadedStore(t, gw, nil, 2, 8)

	gw.failDetails = errors.New("boom")
	require.Error(t, s.LoadTableDetails(context.Background()))
	require.Len(t, s.TableGuests(1), 1)
}

func TestAssignGuestExclusivity(t *testing.T) {
	gw := &fakeGateway{guests: []model.Guest{seatedGuest("g1", "reg-1", 0)}}
	s := newLoadedStore(t, gw, nil, 3, 8)

	require.NoError(t, s.AssignGuestToTable(context.Background(), "g1", 1))
	require.Len(t, s.TableGuests(1), 1)
	require.Empty(t, s.Unassigned())

	// Re-seating moves the guest; it must never appear twice.
	require.NoError(t, s.AssignGuestToTable(context.Background(), "g1", 3))
	require.Empty(t, s.TableGuests(1))
	require.Len(t, s.TableGuests(3), 1)
	require.NotNil(t, s.TableGuests(3)[0].TableNumber)
	require.Equal(t, 3, *s.TableGuests(3)[0].TableNumber)
	require.Empty(t, s.Unassigned())
}

func TestAssignGuestNotFound(t *testing.T) {
	notifier := &recordingNotifier{}
	gw := &fakeGateway{}
	s := newLoadedStore(t, gw, notifier, 2, 8)
	before := captureState(s)

	err := s.AssignGuestToTable(context.Background(), "nope", 1)
	require.ErrorIs(t, err, ErrGuestNotFound)
	require.Zero(t, gw.assignCalls)
	require.Equal(t, before, captureState(s))
}

func TestAssignGuestCapacityPreCheck(t *testing.T) {
	gw := &fakeGateway{guests: []model.Guest{
		seatedGuest("g1", "", 1),
		seatedGuest("g2", "", 1),
		seatedGuest("g3", "", 0),
	}}
	s := newLoadedStore(t, gw, nil, 2, 2)
	before := captureState(s)

	err := s.AssignGuestToTable(context.Background(), "g3", 1)
	require.ErrorIs(t, err, ErrTableFull)
	require.Zero(t, gw.assignCalls)
	require.Equal(t, before, captureState(s))
}

func TestAssignGuestHonorsCustomCapacity(t *testing.T) {
	ten := 10
	gw := &fakeGateway{
		guests:  []model.Guest{seatedGuest("g1", "", 1), seatedGuest("g2", "", 1), seatedGuest("g3", "", 0)},
		details: []model.TableDetail{{TableNumber: 1, CustomCapacity: &ten, EffectiveCapacity: 10, CurrentOccupancy: 2}},
	}
	// Default capacity 2 would reject; the override admits the guest.
	s := newLoadedStore(t, gw, nil, 2, 2)
	require.NoError(t, s.AssignGuestToTable(context.Background(), "g3", 1))
	require.Len(t, s.TableGuests(1), 3)
}

func TestAssignRollbackOnGatewayRejection(t *testing.T) {
	notifier := &recordingNotifier{}
	gw := &fakeGateway{guests: []model.Guest{seatedGuest("g1", "", 0)}}
	s := newLoadedStore(t, gw, notifier, 2, 8)
	before := captureState(s)

	gw.failAssign = errors.New("capacity exceeded")
	err := s.AssignGuestToTable(context.Background(), "g1", 1)
	require.Error(t, err)
	require.Equal(t, before, captureState(s))
	require.Contains(t, notifier.errors[len(notifier.errors)-1], "Failed to assign guest to table")
	require.Contains(t, notifier.errors[len(notifier.errors)-1], "capacity exceeded")
}

func TestRemoveGuestFromTable(t *testing.T) {
	gw := &fakeGateway{guests: []model.Guest{seatedGuest("g1", "", 2)}}
	s := newLoadedStore(t, gw, nil, 2, 8)

	require.NoError(t, s.RemoveGuestFromTable(context.Background(), "g1"))
	require.Empty(t, s.TableGuests(2))
	require.Len(t, s.Unassigned(), 1)
	require.Nil(t, s.Unassigned()[0].TableNumber)
	require.False(t, s.TableDetail(2).IsFull)
}

func TestRemoveGuestNotSeatedIsNoOp(t *testing.T) {
	gw := &fakeGateway{guests: []model.Guest{seatedGuest("g1", "", 0)}}
	s := newLoadedStore(t, gw, nil, 2, 8)
	before := captureState(s)

	err := s.RemoveGuestFromTable(context.Background(), "g1")
	require.ErrorIs(t, err, ErrGuestNotSeated)
	require.Zero(t, gw.unassignCalls)
	require.Equal(t, before, captureState(s))
}

func TestRemoveGuestRollbackOnGatewayRejection(t *testing.T) {
	gw := &fakeGateway{guests: []model.Guest{seatedGuest("g1", "", 1)}}
	s := newLoadedStore(t, gw, nil, 2, 8)
	before := captureState(s)

	gw.failUnassign = errors.New("concurrent modification")
	require.Error(t, s.RemoveGuestFromTable(context.Background(), "g1"))
	require.Equal(t, before, captureState(s))
}

func TestUpdateTableCustomizationAdoptsServerRecord(t *testing.T) {
	twelve, ten := 12, 10
	name := "Sponsor Row"
	gw := &fakeGateway{
		guests: []model.Guest{seatedGuest("g1", "", 1)},
		// The server trims the requested capacity; the store must keep
		// the authoritative record, not its optimistic guess.
		updateResp: &model.TableDetail{
			TableNumber:       1,
			TableName:         &name,
			CustomCapacity:    &ten,
			EffectiveCapacity: 10,
			CurrentOccupancy:  1,
		},
	}
	s := newLoadedStore(t, gw, nil, 2, 8)

	require.NoError(t, s.UpdateTableCustomization(context.Background(), 1, TableCustomization{
		CustomCapacity: &twelve,
		TableName:      &name,
	}))
	got := s.TableDetail(1)
	require.Equal(t, 10, got.EffectiveCapacity)
	require.NotNil(t, got.CustomCapacity)
	require.Equal(t, 10, *got.CustomCapacity)
}

func TestUpdateTableCustomizationRollback(t *testing.T) {
	one := 1
	gw := &fakeGateway{guests: []model.Guest{seatedGuest("g1", "", 1)}}
	s := newLoadedStore(t, gw, nil, 2, 8)
	before := captureState(s)

	gw.failUpdate = errors.New("validation failed")
	require.Error(t, s.UpdateTableCustomization(context.Background(), 1, TableCustomization{CustomCapacity: &one}))
	require.Equal(t, before, captureState(s))
}

func TestUpdateTableCustomizationAppliesNewCapacity(t *testing.T) {
	two := 2
	gw := &fakeGateway{guests: []model.Guest{seatedGuest("g1", "", 1), seatedGuest("g2", "", 1)}}
	s := newLoadedStore(t, gw, nil, 2, 8)

	require.NoError(t, s.UpdateTableCustomization(context.Background(), 1, TableCustomization{CustomCapacity: &two}))
	got := s.TableDetail(1)
	require.Equal(t, 2, got.EffectiveCapacity)
}

func TestRollbackIsIdempotent(t *testing.T) {
	gw := &fakeGateway{guests: []model.Guest{seatedGuest("g1", "", 0)}}
	s := newLoadedStore(t, gw, nil, 2, 8)
	before := captureState(s)

	s.Rollback()
	s.Rollback()
	require.Equal(t, before, captureState(s))
}

func TestCapacityInvariantHoldsAfterCommittedMutations(t *testing.T) {
	gw := &fakeGateway{guests: []model.Guest{
		seatedGuest("g1", "reg-1", 0),
		seatedGuest("g2", "reg-1", 0),
		seatedGuest("g3", "reg-2", 0),
		seatedGuest("g4", "reg-2", 0),
	}}
	s := newLoadedStore(t, gw, nil, 2, 2)
	ctx := context.Background()

	require.NoError(t, s.AssignGuestToTable(ctx, "g1", 1))
	require.NoError(t, s.AssignGuestToTable(ctx, "g2", 1))
	require.ErrorIs(t, s.AssignGuestToTable(ctx, "g3", 1), ErrTableFull)
	require.NoError(t, s.AssignGuestToTable(ctx, "g3", 2))
	require.NoError(t, s.RemoveGuestFromTable(ctx, "g1"))
	require.NoError(t, s.AssignGuestToTable(ctx, "g4", 1))

	for n := 1; n <= s.TableCount(); n++ {
		d := s.TableDetail(n)
		require.LessOrEqual(t, d.CurrentOccupancy, d.EffectiveCapacity, "table %d", n)
		require.Equal(t, len(s.TableGuests(n)), d.CurrentOccupancy, "table %d", n)
	}
}

func TestAutoAssignAppliesPlanAndNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	gw := &fakeGateway{guests: []model.Guest{
		seatedGuest("g1", "reg-1", 0),
		seatedGuest("g2", "reg-1", 0),
		seatedGuest("g3", "reg-2", 0),
	}}
	s := newLoadedStore(t, gw, notifier, 2, 4)

	result, err := s.AutoAssign(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, result.AssignedCount)
	require.Zero(t, result.UnassignedCount)
	require.Equal(t, 1, gw.batchCalls)
	require.Empty(t, s.Unassigned())
	require.Len(t, s.TableGuests(1), 3)
	require.NotEmpty(t, notifier.successes)
}

func TestAutoAssignAllOrNothingOnRejection(t *testing.T) {
	gw := &fakeGateway{guests: []model.Guest{
		seatedGuest("g1", "reg-1", 0),
		seatedGuest("g2", "reg-2", 0),
	}}
	s := newLoadedStore(t, gw, nil, 2, 4)
	before := captureState(s)

	gw.failBatch = errors.New("concurrent modification")
	_, err := s.AutoAssign(context.Background())
	require.Error(t, err)
	require.Equal(t, before, captureState(s))
}

func TestAutoAssignRerunLeavesSeatedGuestsAlone(t *testing.T) {
	gw := &fakeGateway{guests: []model.Guest{
		seatedGuest("g1", "reg-1", 0),
		seatedGuest("g2", "reg-2", 0),
	}}
	s := newLoadedStore(t, gw, nil, 2, 4)
	ctx := context.Background()

	_, err := s.AutoAssign(ctx)
	require.NoError(t, err)
	after := captureState(s)

	result, err := s.AutoAssign(ctx)
	require.NoError(t, err)
	require.Empty(t, result.Placements)
	require.Equal(t, after, captureState(s))
	require.Equal(t, 1, gw.batchCalls)
}
