package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/orbisauth/ports"
)

const (
	// LogoutTopic carries node logout events
	LogoutTopic = "orbis.logout"

	// LoadedTopic carries the client completion signal
	LoadedTopic = "loaded"

	// AddressMetadataKey holds the wallet address on loaded messages
	AddressMetadataKey = "address"
)

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Address string `json:"address"`
	TokenID string `json:"token_id"`
}

// WatermillPublisher implements the EventPublisher and SignalPublisher
// interfaces using Watermill
type WatermillPublisher struct {
	publisher   message.Publisher
	logoutTopic string
	loadedTopic string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{
		publisher:   publisher,
		logoutTopic: LogoutTopic,
		loadedTopic: LoadedTopic,
	}
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	payload, err := json.Marshal(LogoutEvent{
		Address: address,
		TokenID: tokenID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.logoutTopic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// PublishLoaded publishes the payload-less completion signal
func (p *WatermillPublisher) PublishLoaded(ctx context.Context, address string) error {
	msg := message.NewMessage(watermill.NewUUID(), nil)
	msg.Metadata.Set(AddressMetadataKey, address)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.loadedTopic, msg); err != nil {
		return fmt.Errorf("failed to publish loaded signal: %w", err)
	}

	return nil
}

var (
	_ ports.EventPublisher  = (*WatermillPublisher)(nil)
	_ ports.SignalPublisher = (*WatermillPublisher)(nil)
)
