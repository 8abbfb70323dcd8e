package service

import (
	"context"

	"go.uber.org/zap"

	"recipeshare/internal/events"
	"recipeshare/internal/metrics"
)

// notifier publica eventos sin afectar el resultado de la operacion que los origina.
type notifier struct {
	publisher events.Publisher
	recorder  metrics.Recorder
	logger    *zap.Logger
}

func newNotifier(publisher events.Publisher, recorder metrics.Recorder, logger *zap.Logger) notifier {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	if recorder == nil {
		recorder = metrics.Noop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return notifier{publisher: publisher, recorder: recorder, logger: logger}
}

func (n notifier) publish(ctx context.Context, subject string, payload any) {
	if err := n.publisher.Publish(context.WithoutCancel(ctx), subject, payload); err != nil {
		n.recorder.RecordEventFailure(subject)
		n.logger.Warn("publish event failed", zap.String("subject", subject), zap.Error(err))
	}
}
