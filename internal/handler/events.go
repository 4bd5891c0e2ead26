package handler

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-directory/internal/model"
	"github.com/jwalitptl/patient-directory/pkg/messaging"
)

// Events publishes change events after successful mutations. Failures are
// logged and counted; they never fail the request.
type Events struct {
	publisher messaging.Publisher
	counter   *prometheus.CounterVec
	logger    zerolog.Logger
}

// NewEvents builds an event sink. counter may be nil.
func NewEvents(publisher messaging.Publisher, counter *prometheus.CounterVec, logger zerolog.Logger) *Events {
	return &Events{publisher: publisher, counter: counter, logger: logger}
}

func (e *Events) Created(ctx context.Context, p model.Patient) {
	e.publish(ctx, model.PatientCreated, p)
}

func (e *Events) Updated(ctx context.Context, p model.Patient) {
	e.publish(ctx, model.PatientUpdated, p)
}

func (e *Events) Deleted(ctx context.Context, id string) {
	e.publish(ctx, model.PatientDeleted, map[string]string{"id": id})
}

func (e *Events) publish(ctx context.Context, change model.ChangeType, payload interface{}) {
	if e == nil || e.publisher == nil {
		return
	}
	status := "ok"
	if err := e.publisher.Publish(ctx, string(change), payload); err != nil {
		status = "error"
		e.logger.Error().Err(err).Str("type", string(change)).Msg("failed to publish change event")
	}
	if e.counter != nil {
		e.counter.WithLabelValues(string(change), status).Inc()
	}
}
