package handler // handler defines the HTTP handlers for the seating API

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/model"
	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/repository"
)

// SeatingHandler bundles the repositories behind the seating gateway
// endpoints.  All mutating methods run their database work inside a
// transaction so an assignment is either fully committed or absent.
type SeatingHandler struct {
	EventRepo *repository.EventRepo // event configuration (table count, default capacity)
	GuestRepo *repository.GuestRepo // guest listing and assignment updates
	TableRepo *repository.TableRepo // table customization rows and derived details
}

// NewSeatingHandler constructs a SeatingHandler and panics if any
// dependency is nil.
func NewSeatingHandler(eventRepo *repository.EventRepo, guestRepo *repository.GuestRepo, tableRepo *repository.TableRepo) *SeatingHandler {
	if eventRepo == nil || guestRepo == nil || tableRepo == nil {
		panic("nil repository passed to NewSeatingHandler")
	}
	return &SeatingHandler{EventRepo: eventRepo, GuestRepo: guestRepo, TableRepo: tableRepo}
}

// pathUint parses a numeric path parameter; 0 is never a valid ID.
func pathUint(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	return n, err == nil && n > 0
}

// pathInt parses a small positive numeric path parameter such as a
// table number.
func pathInt(c echo.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	return n, err == nil && n > 0
}

// guestResponse is the wire shape for one guest record.
type guestResponse struct {
	GuestID        string  `json:"guest_id"`
	Name           *string `json:"name,omitempty"`
	Email          *string `json:"email,omitempty"`
	BidderNumber   *int    `json:"bidder_number,omitempty"`
	TableNumber    *int    `json:"table_number"`
	RegistrationID string  `json:"registration_id"`
}

func toGuestResponse(g model.Guest) guestResponse {
	return guestResponse{
		GuestID:        g.ID,
		Name:           g.Name,
		Email:          g.Email,
		BidderNumber:   g.BidderNumber,
		TableNumber:    g.TableNumber,
		RegistrationID: g.RegistrationID,
	}
}

func toGuestResponses(guests []model.Guest) []guestResponse {
	out := make([]guestResponse, 0, len(guests))
	for _, g := range guests {
		out = append(out, toGuestResponse(g))
	}
	return out
}

// tableDetailResponse is the wire shape for one table detail record.
type tableDetailResponse struct {
	TableNumber       int     `json:"table_number"`
	TableName         *string `json:"table_name,omitempty"`
	CustomCapacity    *int    `json:"custom_capacity,omitempty"`
	EffectiveCapacity int     `json:"effective_capacity"`
	CurrentOccupancy  int     `json:"current_occupancy"`
	IsFull            bool    `json:"is_full"`
}

func toTableDetailResponse(d model.TableDetail) tableDetailResponse {
	return tableDetailResponse{
		TableNumber:       d.TableNumber,
		TableName:         d.TableName,
		CustomCapacity:    d.CustomCapacity,
		EffectiveCapacity: d.EffectiveCapacity,
		CurrentOccupancy:  d.CurrentOccupancy,
		IsFull:            d.IsFull,
	}
}
