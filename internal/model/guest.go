package model

import "time"

// Guest represents one attendee eligible for seating.  Guests are
// created by the registration flow elsewhere in the platform; this
// service only reads them and moves them between tables.  The struct
// corresponds to a row in the `guests` table.
//
// Fields:
//  ID             – UUID primary key (guests.id).
//  EventID        – fundraising event the guest belongs to.
//  Name           – display name (nil when registration had none).
//  Email          – contact email (nullable).
//  BidderNumber   – auction bidder number (nullable).
//  TableNumber    – assigned table, nil when unassigned.  A non-nil
//                   value always falls within 1..Event.TableCount.
//  RegistrationID – shared key linking guests registered together
//                   (the "party"); unique per guest for walk-ups.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Guest struct {
	ID             string    // guests.id
	EventID        uint64    // guests.event_id
	Name           *string   // guests.name (nullable)
	Email          *string   // guests.email (nullable)
	BidderNumber   *int      // guests.bidder_number (nullable)
	TableNumber    *int      // guests.table_number (nullable)
	RegistrationID string    // guests.registration_id
	CreatedAt      time.Time // guests.created_at
	UpdatedAt      time.Time // guests.updated_at
}

// DisplayName returns the guest's name when present and falls back to
// the bidder number or the raw ID so notifications always have
// something readable to show.
func (g Guest) DisplayName() string {
	if g.Name != nil && *g.Name != "" {
		return *g.Name
	}
	if g.Email != nil && *g.Email != "" {
		return *g.Email
	}
	return g.ID
}
