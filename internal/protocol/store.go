package protocol

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// Store persists protocols by ID. The built-in legacy protocol is always
// readable, always listed first, and can be neither stored nor deleted.
type Store interface {
	Get(ctx context.Context, id string) (Protocol, error)
	Put(ctx context.Context, p Protocol) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Protocol, error)
}

// Resolve returns the protocol for id, reconstructing and storing it on first
// use. created reports whether a new protocol was stored.
func Resolve(ctx context.Context, store Store, id string) (p Protocol, created bool, err error) {
	if IsLegacy(id) {
		return Legacy(), false, nil
	}
	p, err = store.Get(ctx, id)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Protocol{}, false, err
	}
	p = Reconstruct(id)
	if err := store.Put(ctx, p); err != nil {
		return Protocol{}, false, err
	}
	return p, true, nil
}

func checkWritable(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	if IsLegacy(id) {
		return ErrBuiltIn
	}
	return nil
}

// withLegacy sorts custom protocols by creation time then ID and prepends the
// legacy protocol.
func withLegacy(custom []Protocol) []Protocol {
	sort.Slice(custom, func(i, j int) bool {
		if !custom[i].CreatedAt.Equal(custom[j].CreatedAt) {
			return custom[i].CreatedAt.Before(custom[j].CreatedAt)
		}
		return custom[i].ID < custom[j].ID
	})
	return append([]Protocol{Legacy()}, custom...)
}
