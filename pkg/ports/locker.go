package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serialises work on one key across service replicas.
// The session manager uses it so that only one replica reconciles a given
// session at a time.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx is done. The lock expires after
	// ttl if never released. The returned UnlockFunc must be called.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
