package services

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"classconnect-scraper/scraper/registration"
)

// Source is a push-style catalog feed: it calls fn once per record and returns when the
// feed is exhausted, fn returns registration.ErrStop, or something fails.
type Source[R any] func(ctx context.Context, fn func(R, time.Time) error) error

// Collect drains a Source into a slice. The return of the source call is the completion
// signal, so a short feed finishes as soon as the source does. A cap of zero or more stops
// the feed once that many records arrived; a negative cap means no cap. tap, when set,
// sees every record before it is kept and may abort the walk by returning an error.
func Collect[R any](ctx context.Context, source Source[R], fetchCap int, tap func(R, time.Time) error) ([]R, error) {
	out := make([]R, 0)
	if fetchCap == 0 {
		return out, nil
	}

	err := source(ctx, func(rec R, discoveredAt time.Time) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tap != nil {
			if err := tap(rec, discoveredAt); err != nil {
				return err
			}
		}
		out = append(out, rec)
		if fetchCap > 0 && len(out) >= fetchCap {
			return registration.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetch")
	}
	return out, nil
}
