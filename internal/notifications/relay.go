package notifications

import (
	"context"
	"log/slog"

	"shiori/internal/config"
	"shiori/internal/events"
	"shiori/internal/logging"
)

// Relay forwards status changes from the emitter to the notification
// service, honoring the per-category toggles in the config.
type Relay struct {
	cfg     *config.Config
	service Service
	changes <-chan events.StatusChange
	logger  *slog.Logger
}

// NewRelay builds a relay subscribed to the emitter; Run must be called to
// start forwarding.
func NewRelay(cfg *config.Config, service Service, emitter *events.Emitter, logger *slog.Logger) *Relay {
	return &Relay{
		cfg:     cfg,
		service: service,
		changes: emitter.Subscribe(),
		logger:  logging.NewComponentLogger(logger, "notifications"),
	}
}

// Run consumes status changes until the context is cancelled or the
// emitter closes. Delivery failures are logged, never propagated.
func (r *Relay) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-r.changes:
			if !ok {
				return
			}
			r.dispatch(ctx, change)
		}
	}
}

func (r *Relay) dispatch(ctx context.Context, change events.StatusChange) {
	var err error
	switch {
	case change.Completed():
		if !r.cfg.Notifications.Completion {
			return
		}
		err = r.service.NotifyCompletion(ctx, change)
	default:
		if !r.cfg.Notifications.Progress {
			return
		}
		err = r.service.NotifyProgress(ctx, change)
	}
	if err != nil {
		r.logger.Warn("notification delivery failed",
			logging.String("title", change.Title),
			logging.Error(err),
		)
	}
}
