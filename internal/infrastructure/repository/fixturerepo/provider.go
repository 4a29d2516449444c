package fixturerepo

import (
	"context"

	"github.com/rs/zerolog"
)

// NewSeeded creates a store seeded from path, or from DefaultFixtures when path is empty.
func NewSeeded(ctx context.Context, path string, log zerolog.Logger) (*Store, error) {
	fixtures := DefaultFixtures()
	if path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		fixtures = loaded
	}

	store := New(log)
	if err := store.Seed(ctx, fixtures); err != nil {
		return nil, err
	}
	return store, nil
}
