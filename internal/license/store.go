package license

import "context"

// UpdateFunc inspects and optionally rewrites the full record list inside a
// store's critical section. It returns the records to persist, whether
// anything changed (nothing is written when dirty is false), and an error
// that aborts the update without persisting.
type UpdateFunc func(records []Record) (updated []Record, dirty bool, err error)

// Store is the durable collection of license records, loaded and saved as a
// whole. Implementations must serialize Update so the entire
// load-inspect-save cycle is one critical section per store; that exclusion
// is what keeps concurrent device registrations from overrunning a quota.
type Store interface {
	// LoadAll returns a snapshot of every record. Implementations load
	// fresh state on each call rather than caching across requests.
	LoadAll(ctx context.Context) ([]Record, error)

	// Update runs fn under the store's exclusion and persists the returned
	// records when fn reports dirty. A load or save failure is returned to
	// the caller; fn is never invoked after a load failure.
	Update(ctx context.Context, fn UpdateFunc) error
}
