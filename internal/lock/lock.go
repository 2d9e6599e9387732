package lock

import (
	"context"
	"errors"
	"fmt"
)

// ErrLockBusy is returned when the key stays locked past the wait budget
var ErrLockBusy = errors.New("resource is locked by another request")

// Locker serializes work on one key across requests
type Locker interface {
	// Acquire blocks until the key is held or ctx ends. The returned func releases it.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// ApplicationKey is the lock key for workflow transitions on one application
func ApplicationKey(applicationID uint) string {
	return fmt.Sprintf("lock:application:%d", applicationID)
}

// Noop never blocks; used when no lock backend is configured
type Noop struct{}

func (Noop) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}
