package email

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Sender entrega codigos de confirmacion de cuenta.
type Sender interface {
	SendConfirmationCode(ctx context.Context, toEmail string, code string, expiresAt time.Time) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendConfirmationCode(_ context.Context, _ string, _ string, _ time.Time) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

// logSender escribe el codigo en el log en lugar de enviarlo. Solo para desarrollo.
type logSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logSender{logger: logger}
}

func (s *logSender) SendConfirmationCode(_ context.Context, toEmail string, code string, expiresAt time.Time) error {
	s.logger.Info("confirmation code",
		zap.String("email", toEmail),
		zap.String("code", code),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}
