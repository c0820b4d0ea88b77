// Package cursor persists incremental-export watermarks. A watermark is
// the next start_time (unix seconds) to resume an incremental endpoint
// from; stores only ever raise the effective floor, never force it down.
package cursor

import "context"

// Store is the watermark persistence contract. Implementations must be
// safe for concurrent use.
type Store interface {
	// GetCursor returns the stored watermark for key. ok is false when
	// no watermark has been stored yet.
	GetCursor(ctx context.Context, key string) (value int64, ok bool, err error)

	// SetCursor stores the watermark for key, overwriting any previous
	// value.
	SetCursor(ctx context.Context, key string, value int64) error
}
