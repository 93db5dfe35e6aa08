package settings

import (
	"context"

	"github.com/Bookaj/footalk/engine"
)

// Change runs fn against the store and returns the fields of host's
// resolved state that fn changed. A control surface sends that partial as
// its one notification; an empty partial means nothing needs sending.
func Change(ctx context.Context, s *Store, host string, fn func(ctx context.Context, s *Store) error) (engine.Partial, error) {
	before, err := s.Load(ctx)
	if err != nil {
		return engine.Partial{}, err
	}
	if err := fn(ctx, s); err != nil {
		return engine.Partial{}, err
	}
	after, err := s.Load(ctx)
	if err != nil {
		return engine.Partial{}, err
	}
	return before.Resolve(host).Diff(after.Resolve(host)), nil
}
