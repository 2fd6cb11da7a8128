package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/seating"
)

// testClient lowers the retry delays so failure-path tests stay fast.
func testClient(baseURL, token string) *Client {
	c := NewClient(baseURL, token)
	c.retryBase = time.Millisecond
	c.retryCap = 2 * time.Millisecond
	return c
}

func TestListGuestsPagination(t *testing.T) {
	const total = 450
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/events/7/guests", r.URL.Path)
		page := 1
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)
		pageSize := 200
		fmt.Sscanf(r.URL.Query().Get("page_size"), "%d", &pageSize)

		start := (page - 1) * pageSize
		count := total - start
		if count > pageSize {
			count = pageSize
		}
		if count < 0 {
			count = 0
		}
		guests := make([]map[string]any, 0, count)
		for i := 0; i < count; i++ {
			guests = append(guests, map[string]any{
				"guest_id":        fmt.Sprintf("g%03d", start+i),
				"table_number":    nil,
				"registration_id": "",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"guests": guests, "total": total})
	}))
	defer srv.Close()

	c := testClient(srv.URL, "")
	var all []string
	for page := 1; ; page++ {
		batch, gotTotal, err := c.ListGuests(context.Background(), 7, page, 200)
		require.NoError(t, err)
		require.Equal(t, total, gotTotal)
		for _, g := range batch {
			all = append(all, g.ID)
		}
		if len(all) >= gotTotal {
			break
		}
	}
	require.Len(t, all, total)
	require.Equal(t, "g000", all[0])
	require.Equal(t, "g449", all[total-1])
}

func TestAssignRetriesTransientFailures(t *testing.T) {
	var attempts int
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "try later"})
			return
		}
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body struct {
			GuestID     string `json:"guest_id"`
			TableNumber int    `json:"table_number"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "g1", body.GuestID)
		require.Equal(t, 4, body.TableNumber)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := testClient(srv.URL, "tok")
	require.NoError(t, c.AssignGuest(context.Background(), 7, "g1", 4))
	require.Equal(t, 3, attempts)
	// The same idempotency key must be replayed on every attempt.
	require.NotEmpty(t, keys[0])
	for _, k := range keys {
		require.Equal(t, keys[0], k)
	}
}

func TestAssignDoesNotRetryConflicts(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "table 4 is at capacity"})
	}))
	defer srv.Close()

	c := testClient(srv.URL, "tok")
	err := c.AssignGuest(context.Background(), 7, "g1", 4)
	require.Error(t, err)
	require.Equal(t, 1, attempts)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, http.StatusConflict, serr.Code)
	require.Equal(t, "table 4 is at capacity", serr.Message)
}

func TestRetriesExhausted(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL, "")
	err := c.UnassignGuest(context.Background(), 7, "g1")
	require.Error(t, err)
	require.Equal(t, 4, attempts)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, http.StatusBadGateway, serr.Code)
}

func TestUpdateTableDetailReturnsAuthoritativeRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/v1/events/7/tables/3", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"table_number":       3,
			"table_name":         "Head Table",
			"custom_capacity":    10,
			"effective_capacity": 10,
			"current_occupancy":  6,
			"is_full":            false,
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL, "tok")
	twelve := 12
	got, err := c.UpdateTableDetail(context.Background(), 7, 3, seating.TableCustomization{CustomCapacity: &twelve})
	require.NoError(t, err)
	require.Equal(t, 10, got.EffectiveCapacity)
	require.Equal(t, 6, got.CurrentOccupancy)
	require.NotNil(t, got.TableName)
	require.Equal(t, "Head Table", *got.TableName)
}

func TestApplyPlacementsPostsBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/events/7/auto-assign", r.URL.Path)
		var body struct {
			Placements []seating.Placement `json:"placements"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Placements, 2)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := testClient(srv.URL, "tok")
	err := c.ApplyPlacements(context.Background(), 7, []seating.Placement{
		{GuestID: "g1", TableNumber: 1},
		{GuestID: "g2", TableNumber: 1},
	})
	require.NoError(t, err)
}

func TestAutoAssignDecodesCounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"assigned_count":   6,
			"unassigned_count": 4,
			"warnings":         []string{"insufficient capacity: 4 guests left unassigned"},
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL, "tok")
	got, err := c.AutoAssign(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 6, got.AssignedCount)
	require.Equal(t, 4, got.UnassignedCount)
	require.Len(t, got.Warnings, 1)
}
