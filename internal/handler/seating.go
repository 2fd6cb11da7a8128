package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/model"
	q "github.com/jeanesdev/fundrbolt-platform-sub003/internal/queue"
	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/repository"
	queue_publisher "github.com/jeanesdev/fundrbolt-platform-sub003/internal/service"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ListGuests handles GET /v1/events/:id/guests.  It returns one page
// of the event's guest list with the total count so clients can page
// through the complete set.  page_size is capped at 200.
func (h *SeatingHandler) ListGuests(c echo.Context) error {
	eventID, ok := pathUint(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()
	if _, err := h.EventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	page := 1
	if v := c.QueryParam("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	pageSize := defaultPageSize
	if v := c.QueryParam("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = n
		}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	guests, total, err := h.GuestRepo.ListByEvent(ctx, eventID, page, pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"guests":    toGuestResponses(guests),
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// TableGuests handles GET /v1/events/:id/tables/:table/guests and
// returns the guests currently seated at one table.
func (h *SeatingHandler) TableGuests(c echo.Context) error {
	ev, table, errResp := h.eventAndTable(c)
	if errResp != nil {
		return errResp(c)
	}
	guests, err := h.GuestRepo.ListByTable(c.Request().Context(), ev.ID, table)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, toGuestResponses(guests))
}

// ListTables handles GET /v1/events/:id/tables.  It returns the full
// detail record for every table of the event, synthesizing defaults
// for tables that were never customized.
func (h *SeatingHandler) ListTables(c echo.Context) error {
	eventID, ok := pathUint(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()
	ev, err := h.EventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	details, err := h.TableRepo.ListDetails(ctx, ev)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]tableDetailResponse, 0, len(details))
	for _, d := range details {
		out = append(out, toTableDetailResponse(d))
	}
	return c.JSON(http.StatusOK, out)
}

// AssignGuest handles POST /v1/events/:id/assignments.  The request
// body carries the guest and target table.  Capacity is re-checked
// against committed rows inside the transaction, so two racing clients
// cannot overfill a table: the loser gets 409 and its optimistic
// client state rolls back.
func (h *SeatingHandler) AssignGuest(c echo.Context) error {
	eventID, ok := pathUint(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		GuestID     string `json:"guest_id"`
		TableNumber int    `json:"table_number"`
	}
	if err := c.Bind(&body); err != nil || body.GuestID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "guest_id and table_number are required"})
	}

	ctx := c.Request().Context()
	ev, err := h.EventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if body.TableNumber < 1 || body.TableNumber > ev.TableCount {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "table number out of range"})
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

	guest, err := h.GuestRepo.GetByIDTx(ctx, tx, eventID, body.GuestID)
	if err != nil {
		if errors.Is(err, repository.ErrGuestNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "guest not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if guest.TableNumber == nil || *guest.TableNumber != body.TableNumber {
		detail, err := h.TableRepo.GetDetailTx(ctx, tx, ev, body.TableNumber)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if detail.CurrentOccupancy >= detail.EffectiveCapacity {
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "table " + strconv.Itoa(body.TableNumber) + " is at capacity",
			})
		}
	}
	if err := h.GuestRepo.SetTableTx(ctx, tx, eventID, body.GuestID, &body.TableNumber); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to assign guest"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.publish(ctx, ev, q.SeatingChangedEvent{
		Action:        "ASSIGN",
		GuestIDs:      []string{body.GuestID},
		TableNumber:   &body.TableNumber,
		AssignedCount: 1,
	})
	return c.NoContent(http.StatusNoContent)
}

// UnassignGuest handles DELETE /v1/events/:id/assignments/:guest_id.
// Guests that are not seated produce 409 and no state change.
func (h *SeatingHandler) UnassignGuest(c echo.Context) error {
	eventID, ok := pathUint(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	guestID := c.Param("guest_id")
	if guestID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid guest id"})
	}

	ctx := c.Request().Context()
	ev, err := h.EventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
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

	guest, err := h.GuestRepo.GetByIDTx(ctx, tx, eventID, guestID)
	if err != nil {
		if errors.Is(err, repository.ErrGuestNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "guest not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if guest.TableNumber == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "guest is not seated at any table"})
	}
	if err := h.GuestRepo.SetTableTx(ctx, tx, eventID, guestID, nil); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to unassign guest"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.publish(ctx, ev, q.SeatingChangedEvent{
		Action:   "UNASSIGN",
		GuestIDs: []string{guestID},
	})
	return c.NoContent(http.StatusNoContent)
}

// UpdateTable handles PATCH /v1/events/:id/tables/:table.  It merges
// the provided customization fields and responds with the
// authoritative detail record, which clients adopt over their
// optimistic guess.  A capacity below the table's committed occupancy
// is rejected so the capacity invariant cannot be broken by shrinking
// a full table.
func (h *SeatingHandler) UpdateTable(c echo.Context) error {
	ev, table, errResp := h.eventAndTable(c)
	if errResp != nil {
		return errResp(c)
	}
	var body struct {
		CustomCapacity *int    `json:"custom_capacity"`
		TableName      *string `json:"table_name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.CustomCapacity == nil && body.TableName == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	if body.CustomCapacity != nil && *body.CustomCapacity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "custom_capacity must be positive"})
	}

	ctx := c.Request().Context()
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

	if body.CustomCapacity != nil {
		occupancy, err := h.GuestRepo.CountByTableTx(ctx, tx, ev.ID, table)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if *body.CustomCapacity < occupancy {
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "custom_capacity is below the table's current occupancy",
			})
		}
	}
	if err := h.TableRepo.UpsertCustomizationTx(ctx, tx, ev.ID, table, body.TableName, body.CustomCapacity); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update table"})
	}
	detail, err := h.TableRepo.GetDetailTx(ctx, tx, ev, table)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusOK, toTableDetailResponse(detail))
}

// eventAndTable resolves the :id and :table path parameters and
// validates the table number against the event's configuration.
func (h *SeatingHandler) eventAndTable(c echo.Context) (*model.Event, int, func(echo.Context) error) {
	eventID, ok := pathUint(c, "id")
	if !ok {
		return nil, 0, func(c echo.Context) error {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
		}
	}
	table, ok := pathInt(c, "table")
	if !ok {
		return nil, 0, func(c echo.Context) error {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table number"})
		}
	}
	ev, err := h.EventRepo.GetByID(c.Request().Context(), eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, 0, func(c echo.Context) error {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
			}
		}
		return nil, 0, func(c echo.Context) error {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	if table > ev.TableCount {
		return nil, 0, func(c echo.Context) error {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "table number out of range"})
		}
	}
	return ev, table, nil
}

// publish fires a seating event after commit.  Publish failures are
// logged and ignored; the mutation has already committed.
func (h *SeatingHandler) publish(ctx context.Context, ev *model.Event, event q.SeatingChangedEvent) {
	event.EventID = ev.ID
	event.EventName = ev.Name
	if err := queue_publisher.PublishSeatingChanged(ctx, event); err != nil {
		log.Printf("seating: publish %s event failed: %v", event.Action, err)
	}
}
