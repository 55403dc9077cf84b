// Package lookup defines the contract for the external address lookup
// service and the structured result type returned by it. The service itself
// (browser automation against the provider's area-search site) lives in a
// separate process; this package only speaks its boundary.
package lookup

import "context"

// Result statuses reported by the lookup service.
const (
	StatusAvailable   = "available"
	StatusUnavailable = "unavailable"
	StatusCancelled   = "cancelled"
	StatusError       = "error"
)

// Details holds the optional structured fields of a lookup result.
type Details struct {
	// Note is the provider's remark for the searched address.
	Note string `json:"note,omitempty"`

	// ProvidedArea is the provider's area availability text.
	ProvidedArea string `json:"providedArea,omitempty"`
}

// Result is the outcome of a single lookup call. The service reports a
// coarse status plus free-form message text; the details and search notes
// carry whatever the provider surfaced during the search.
type Result struct {
	Status      string   `json:"status"`
	Message     string   `json:"message,omitempty"`
	Details     *Details `json:"details,omitempty"`
	SearchNotes []string `json:"searchNotes,omitempty"`
}

// ProgressFunc receives human-readable progress messages emitted while a
// lookup is in flight.
type ProgressFunc func(message string)

// Service is the lookup collaborator consumed by the judgement engine.
//
// Lookup performs one availability check. It must honor ctx and the
// service's own cancel flag with low latency, returning ErrCancelled when
// aborted. A session-level failure that a reset would recover from is
// reported as a *TransientDriverError.
//
// ResetSession tears down and rebuilds the underlying session. It must only
// be called when a single worker uses the service: a concurrent reset kills
// sibling workers' live sessions.
//
// RequestCancel sets the service's cancel flag so in-flight work aborts
// promptly; ClearCancel resets it. Both are idempotent.
type Service interface {
	Lookup(ctx context.Context, postalCode, address string, onProgress ProgressFunc) (*Result, error)
	ResetSession(ctx context.Context) error
	RequestCancel()
	ClearCancel()
}
