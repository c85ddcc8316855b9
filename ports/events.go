package ports

import "context"

// EventPublisher publishes events to notify other node instances
type EventPublisher interface {
	PublishLogout(ctx context.Context, address string, tokenID string) error
}

// SignalPublisher announces that a client finished authenticating
type SignalPublisher interface {
	PublishLoaded(ctx context.Context, address string) error
}
