package event

import (
	"context"
	"log/slog"
)

// NopPublisher drops events. It is used when no broker is configured.
type NopPublisher struct {
	logger *slog.Logger
}

func NewNopPublisher(logger *slog.Logger) *NopPublisher {
	return &NopPublisher{logger: logger.With("component", "NopPublisher")}
}

func (p *NopPublisher) Publish(ctx context.Context, evt Event) error {
	p.logger.DebugContext(ctx, "Broker disabled, dropping event", slog.String("routingKey", evt.RoutingKey()))
	return nil
}
