package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/webtext/internal/domain"
)

// Watch issues call immediately and then every interval until ctx is
// cancelled, handing each exchange to out. Transport failures of plain
// modes are logged and the loop keeps going; an error from out stops it.
// Cancellation also abandons a request that is still in flight.
func (r *Runner) Watch(ctx context.Context, call Call, every time.Duration, out func(domain.Exchange) error) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("runner is not initialized")
	}
	if every <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", every)
	}
	if out == nil {
		out = func(domain.Exchange) error { return nil }
	}

	r.log.InfoObj("watch loop starting", "watch_state", map[string]any{
		"method":   call.Method,
		"url":      call.URL,
		"mode":     string(call.Mode),
		"interval": every.String(),
	})

	if err := r.runOnce(ctx, call, out); err != nil {
		return err
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("watch loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := r.runOnce(ctx, call, out); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, call Call, out func(domain.Exchange) error) error {
	ex, err := r.Exchange(ctx, call)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	if err != nil {
		if ex.ID == "" {
			return err
		}
		r.log.ErrorObj("scheduled exchange failed", "error", err)
	}
	return out(ex)
}
