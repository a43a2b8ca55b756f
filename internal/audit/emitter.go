package audit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Emitter makes audit emission fire-and-forget: a sink failure is logged and
// counted but never returned to the caller.
type Emitter struct {
	sink     Sink
	log      logrus.FieldLogger
	failures prometheus.Counter
	now      func() time.Time
}

// NewEmitter wires a sink with its failure channel. The failure counter is registered on reg.
func NewEmitter(sink Sink, log logrus.FieldLogger, reg prometheus.Registerer) (*Emitter, error) {
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_emit_failures_total",
		Help: "Audit events that could not be recorded.",
	})
	if err := reg.Register(failures); err != nil {
		return nil, err
	}
	return &Emitter{
		sink:     sink,
		log:      log.WithField("component", "audit"),
		failures: failures,
		now:      time.Now,
	}, nil
}

// Emit records e, filling in the timestamp when missing.
func (em *Emitter) Emit(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = em.now().UTC()
	}
	if err := em.sink.Record(ctx, e); err != nil {
		em.failures.Inc()
		em.log.WithError(err).WithFields(logrus.Fields{
			"event_type": e.Type,
			"subject_id": e.SubjectID,
			"actor_id":   e.Actor.ID,
		}).Error("audit event not recorded")
	}
}
