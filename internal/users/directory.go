// Package users resolves bidder display names. User management lives elsewhere;
// the bidding engine only reads through Directory.
package users

import (
	"context"
	"sync"
)

// Directory looks up a user's display name. An empty name with a nil error means unknown.
type Directory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// StaticDirectory is an in-memory Directory
type StaticDirectory struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewStaticDirectory creates a directory seeded with names keyed by user id
func NewStaticDirectory(names map[string]string) *StaticDirectory {
	d := &StaticDirectory{names: make(map[string]string, len(names))}
	for id, name := range names {
		d.names[id] = name
	}
	return d
}

func (d *StaticDirectory) DisplayName(_ context.Context, userID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.names[userID], nil
}

// Set adds or replaces a display name
func (d *StaticDirectory) Set(userID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names[userID] = name
}
