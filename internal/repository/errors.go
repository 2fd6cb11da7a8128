// Package repository defines sentinel error values shared across the
// repositories so handlers can map failure scenarios to HTTP statuses
// without inspecting driver errors.
package repository

import "errors"

// ErrEventNotFound is returned when no event exists for the given ID.
// Handlers translate this into a 404 response.
var ErrEventNotFound = errors.New("event not found")

// ErrGuestNotFound is returned when a guest does not exist for the
// event.  Handlers translate this into a 404 response.
var ErrGuestNotFound = errors.New("guest not found")

// ErrCapacityExceeded is returned when an assignment would push a
// table past its effective capacity.  Handlers translate this into a
// 409 response; the client store rolls back its optimistic change.
var ErrCapacityExceeded = errors.New("table is at capacity")

// ErrConflict is returned when a mutation loses a race with a
// concurrent modification, such as a batch placement targeting guests
// that were seated in between.  Handlers translate this into 409.
var ErrConflict = errors.New("conflict")
