package joblock

import (
	"context"
	"time"
)

// Repository is a lease-based run lock for scheduled jobs. A job acquires
// the named lock with a unique token before running and releases it after;
// an unexpired lease held by another token refuses the acquire, preventing
// overlapping runs of the same job across processes.
type Repository interface {
	// Acquire takes the named lease for ttl. Reports false when another
	// holder's unexpired lease exists.
	Acquire(ctx context.Context, name, token string, ttl time.Duration) (bool, error)
	// Release frees the lease if the token still holds it.
	Release(ctx context.Context, name, token string) error
}
