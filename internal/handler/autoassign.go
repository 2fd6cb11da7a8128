package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	q "github.com/jeanesdev/fundrbolt-platform-sub003/internal/queue"
	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/repository"
	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/seating"
)

// AutoAssign handles POST /v1/events/:id/auto-assign in two modes.
//
// With an empty body the server plans seating for every unassigned
// guest itself: the planner groups guests into registration parties,
// seats the largest parties first and fills tables sequentially, and
// the resulting batch is applied inside one transaction.  The response
// carries assigned/unassigned counts and any warnings.
//
// With a "placements" body the server applies a plan the client
// computed against its own store.  Capacity and unassigned status are
// re-checked row by row; any conflict fails the whole batch with 409
// so the client's optimistic state rolls back in one piece.
func (h *SeatingHandler) AutoAssign(c echo.Context) error {
	eventID, ok := pathUint(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		Placements []seating.Placement `json:"placements"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	ev, err := h.EventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	for _, p := range body.Placements {
		if p.TableNumber < 1 || p.TableNumber > ev.TableCount {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "table number out of range"})
		}
	}

	tx, err := h.EventRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Both modes need the committed remaining capacity per table.
	occupancy, err := h.GuestRepo.OccupancyByTableTx(ctx, tx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	overrides, err := h.TableRepo.CustomCapacitiesTx(ctx, tx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	remaining := make(map[int]int, ev.TableCount)
	slots := make([]seating.TableSlot, 0, ev.TableCount)
	for n := 1; n <= ev.TableCount; n++ {
		capacity := ev.MaxGuestsPerTable
		if v, ok := overrides[n]; ok {
			capacity = v
		}
		free := capacity - occupancy[n]
		if free < 0 {
			free = 0
		}
		remaining[n] = free
		slots = append(slots, seating.TableSlot{Number: n, Remaining: free})
	}

	placements := body.Placements
	result := seating.PlanResult{}
	serverPlanned := len(placements) == 0
	if serverPlanned {
		unassigned, err := h.GuestRepo.ListUnassignedTx(ctx, tx, eventID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		result = seating.PlanAssignments(unassigned, slots)
		placements = result.Placements
	} else {
		// Client-computed plans are validated against committed
		// capacity before being applied.
		for _, p := range placements {
			remaining[p.TableNumber]--
			if remaining[p.TableNumber] < 0 {
				return c.JSON(http.StatusConflict, echo.Map{"error": "placement exceeds table capacity"})
			}
		}
	}

	if err := h.GuestRepo.ApplyPlacementsTx(ctx, tx, eventID, placements); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "guests were modified concurrently, reload and retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to apply placements"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	guestIDs := make([]string, 0, len(placements))
	for _, p := range placements {
		guestIDs = append(guestIDs, p.GuestID)
	}
	h.publish(ctx, ev, q.SeatingChangedEvent{
		Action:        "AUTO_ASSIGN",
		GuestIDs:      guestIDs,
		AssignedCount: len(placements),
	})

	if !serverPlanned {
		return c.NoContent(http.StatusNoContent)
	}
	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"assigned_count":   result.AssignedCount,
		"unassigned_count": result.UnassignedCount,
		"warnings":         warnings,
	})
}
