package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// storeTimeout bounds every database operation so a stalled connection
// cannot hold a request open indefinitely.
var storeTimeout = 15 * time.Second

// SetStoreTimeout overrides the per-operation database deadline. Zero and
// negative values are ignored.
func SetStoreTimeout(d time.Duration) {
	if d > 0 {
		storeTimeout = d
	}
}

func storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

// withTimeout scopes a DB handle to the store deadline. The caller must
// invoke the cancel func once the operation finishes.
func withTimeout(db *gorm.DB) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := storeContext()
	return db.WithContext(ctx), cancel
}
