package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/urlmonitor/internal/domain"
)

// ErrCorrupt marks a backing store that exists but could not be decoded.
// Load returns it together with an empty, usable mapping.
var ErrCorrupt = errors.New("state store corrupt")

// StateStore persists the debounce state of every target.
//
// A missing store loads as an empty mapping and nil, an undecodable one as
// an empty mapping and an error wrapping ErrCorrupt. Any other Load error
// means the store could not be reached; callers must not Save over it.
// Save replaces the whole mapping.
type StateStore interface {
	Load(ctx context.Context) (domain.States, error)
	Save(ctx context.Context, states domain.States) error
}

// Deleter is implemented by stores that can drop a single entry.
type Deleter interface {
	Delete(ctx context.Context, id domain.TargetID) (bool, error)
}

// IsCorrupt reports whether err is a recoverable decode failure.
func IsCorrupt(err error) bool { return errors.Is(err, ErrCorrupt) }
