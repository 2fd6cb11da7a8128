// Package seating implements the client-side seating assignment store
// used by the admin console: an in-memory view of guest-to-table
// assignments that is mutated optimistically and rolled back when the
// remote gateway rejects a change, plus the auto-assignment planner
// that seats registration parties together.
package seating

// Notifier is the side-channel the store uses to report outcomes.
// The consoles surface these as toasts; mutating store actions always
// notify, so callers can treat them as fire-and-forget.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// NopNotifier discards all notifications.  It is the default when no
// notifier is configured and keeps the store usable in tests and
// batch tooling.
type NopNotifier struct{}

func (NopNotifier) Success(string) {}
func (NopNotifier) Error(string)   {}
