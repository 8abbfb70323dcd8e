// Package events publica notificaciones del ciclo de vida de recetas y del grafo social.
// Son avisos fire-and-forget: un fallo de publicacion nunca revierte la operacion.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectRecipePublished = "recipe.published"
	SubjectRecipeDeleted   = "recipe.deleted"
	SubjectFollowCreated   = "follow.created"
)

type RecipeEvent struct {
	RecipeID   string    `json:"recipe_id"`
	CreatorID  string    `json:"creator_id"`
	Visibility string    `json:"visibility,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type FollowEvent struct {
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher serializa el payload como JSON y lo envia al subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

type noopPublisher struct{}

func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, string, any) error { return nil }

type natsConn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publica sobre una conexion core NATS.
type NATSPublisher struct {
	conn   natsConn
	logger *zap.Logger
}

type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	ClientName    string
}

// Connect abre la conexion con reconexion automatica.
func Connect(cfg Config, logger *zap.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 10
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.ClientName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	return nats.Connect(cfg.URL, opts...)
}

func NewNATSPublisher(conn *nats.Conn, logger *zap.Logger) *NATSPublisher {
	return newNATSPublisher(conn, logger)
}

func newNATSPublisher(conn natsConn, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, logger: logger}
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return err
	}
	p.logger.Debug("event published", zap.String("subject", subject))
	return nil
}
