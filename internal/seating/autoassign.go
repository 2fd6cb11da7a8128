package seating

import (
	"fmt"
	"sort"

	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/model"
)

// Placement is one planned guest-to-table assignment.
type Placement struct {
	GuestID     string `json:"guest_id"`
	TableNumber int    `json:"table_number"`
}

// TableSlot is a table's remaining capacity as seen by the planner.
// Slots must be ordered by ascending table number.
type TableSlot struct {
	Number    int
	Remaining int
}

// PlanResult is the outcome of one planning run.
type PlanResult struct {
	Placements      []Placement `json:"-"`
	AssignedCount   int         `json:"assigned_count"`
	UnassignedCount int         `json:"unassigned_count"`
	Warnings        []string    `json:"warnings"`
}

// party groups the guests sharing one registration identifier, in
// stable input order.
type party struct {
	guestIDs []string
	order    int
}

// PlanAssignments proposes seats for the given unassigned guests.
//
// Guests are grouped into parties by registration identifier (a guest
// with a blank identifier forms a party of one).  Parties are placed
// largest first, ties broken by input order, to reduce fragmentation.
// Each party goes to the first table, scanning in ascending number,
// with enough remaining capacity for the whole party; tables therefore
// fill sequentially.  A party is split only when no single table can
// hold it: the fullest-capacity candidate takes as many members as it
// can, and the remainder is placed by the same sequential-scan rule.
//
// The planner never touches seated guests, so re-running it after a
// committed run only considers whoever is still unassigned.
func PlanAssignments(unassigned []model.Guest, tables []TableSlot) PlanResult {
	remaining := make([]TableSlot, len(tables))
	copy(remaining, tables)

	byKey := make(map[string]*party)
	parties := make([]*party, 0)
	for i, g := range unassigned {
		key := g.RegistrationID
		if key == "" {
			key = "solo:" + g.ID
		}
		p, ok := byKey[key]
		if !ok {
			p = &party{order: i}
			byKey[key] = p
			parties = append(parties, p)
		}
		p.guestIDs = append(p.guestIDs, g.ID)
	}
	sort.SliceStable(parties, func(a, b int) bool {
		if len(parties[a].guestIDs) != len(parties[b].guestIDs) {
			return len(parties[a].guestIDs) > len(parties[b].guestIDs)
		}
		return parties[a].order < parties[b].order
	})

	var result PlanResult
	for _, p := range parties {
		placed, tablesUsed := placeParty(p.guestIDs, remaining, &result)
		result.AssignedCount += placed
		result.UnassignedCount += len(p.guestIDs) - placed
		if tablesUsed > 1 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("party of %d split across %d tables", len(p.guestIDs), tablesUsed))
		}
	}
	if result.UnassignedCount > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("insufficient capacity: %d guests left unassigned", result.UnassignedCount))
	}
	return result
}

// placeParty seats as many of the party's members as capacity allows
// and reports how many were placed and how many distinct tables were
// used.  remaining is mutated in place.
func placeParty(guestIDs []string, remaining []TableSlot, result *PlanResult) (placed, tablesUsed int) {
	members := guestIDs
	for len(members) > 0 {
		// First table, in ascending order, that fits everyone left.
		idx := -1
		for i := range remaining {
			if remaining[i].Remaining >= len(members) {
				idx = i
				break
			}
		}
		if idx >= 0 {
			fill(remaining, idx, members, result)
			placed += len(members)
			tablesUsed++
			return placed, tablesUsed
		}
		// No table fits the rest of the party: last resort, fill the
		// table with the most remaining capacity (lowest number wins a
		// tie) and keep going with whoever is left.
		best := -1
		for i := range remaining {
			if remaining[i].Remaining > 0 && (best < 0 || remaining[i].Remaining > remaining[best].Remaining) {
				best = i
			}
		}
		if best < 0 {
			return placed, tablesUsed // room is full
		}
		n := remaining[best].Remaining
		fill(remaining, best, members[:n], result)
		members = members[n:]
		placed += n
		tablesUsed++
	}
	return placed, tablesUsed
}

func fill(remaining []TableSlot, idx int, guestIDs []string, result *PlanResult) {
	for _, id := range guestIDs {
		result.Placements = append(result.Placements, Placement{GuestID: id, TableNumber: remaining[idx].Number})
	}
	remaining[idx].Remaining -= len(guestIDs)
}
