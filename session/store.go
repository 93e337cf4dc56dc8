package session

import (
	"context"
	"errors"
)

// ErrStoreUnavailable is returned when the backing store cannot be reached.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrStoreCorrupt is returned when persisted data cannot be decoded.
var ErrStoreCorrupt = errors.New("session store corrupt")

// Store persists a single [Session].
//
// Load returns the zero Session (and no error) when nothing is stored. Save replaces
// both tokens atomically. Clear removes both tokens and is idempotent.
type Store interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, sess Session) error
	Clear(ctx context.Context) error
}

func namespaced(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
