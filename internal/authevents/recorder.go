package authevents

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/coach-portal/internal/metrics"
)

const recorderBuffer = 256

// Recorder counts and logs every auth event.
type Recorder struct {
	broker *Broker
	logger *slog.Logger
}

func NewRecorder(broker *Broker, logger *slog.Logger) *Recorder {
	return &Recorder{broker: broker, logger: logger.With("component", "authevents")}
}

// Run consumes events until ctx is cancelled or the broker is closed.
func (r *Recorder) Run(ctx context.Context) error {
	events, unsubscribe := r.broker.Subscribe(recorderBuffer)
	defer unsubscribe()

	r.logger.Info("recorder started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("recorder stopped")
			return nil
		case e, ok := <-events:
			if !ok {
				r.logger.Info("broker closed")
				return nil
			}
			metrics.AuthEventsTotal.WithLabelValues(string(e.Type)).Inc()
			r.logger.Info("auth event", "type", e.Type, "user_id", e.UserID, "at", e.At)
		}
	}
}
