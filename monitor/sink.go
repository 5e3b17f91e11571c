package monitor

import (
	"context"
	"errors"
	"log/slog"
)

// Sink renders or forwards readings. Render is only ever called from the
// Dispatch goroutine.
type Sink interface {
	Render(ctx context.Context, addr byte, r Reading) error
}

type SinkFunc func(ctx context.Context, addr byte, r Reading) error

func (f SinkFunc) Render(ctx context.Context, addr byte, r Reading) error {
	return f(ctx, addr, r)
}

// Dispatch drains readings into the sinks until the channel is closed or ctx
// is cancelled. Sink failures are logged and do not stop the loop.
func Dispatch(ctx context.Context, addr byte, readings <-chan Reading, sinks ...Sink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-readings:
			if !ok {
				return nil
			}
			var errs []error
			for _, sink := range sinks {
				if err := sink.Render(ctx, addr, r); err != nil {
					errs = append(errs, err)
				}
			}
			if err := errors.Join(errs...); err != nil {
				slog.Error("could not render reading", "error", err)
			}
		}
	}
}
