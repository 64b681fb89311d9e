package store

import (
	"context"
	"time"

	"call-audit-go/internal/types"
)

// Filter narrows a Find to status equality and/or a date range. Zero
// values mean "no constraint". These are the only query shapes the
// pipeline issues.
type Filter struct {
	Status types.CallStatus
	From   time.Time
	To     time.Time
}

// CallStore is the persistence contract for call records. Any
// implementation is interchangeable; each call is an independent
// transaction, there is no batch-wide locking. Concurrent external
// writers could race between selection and write-back; acceptable under
// the single-process, single-run deployment model.
type CallStore interface {
	Find(ctx context.Context, f Filter) ([]*types.CallRecord, error)
	Upsert(ctx context.Context, call *types.CallRecord) error
	Exists(ctx context.Context, id string) (bool, error)
}
