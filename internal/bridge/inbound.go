package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Hatles/rx-home/internal/core"
	"github.com/Hatles/rx-home/internal/infrastructure/mqtt"
)

// setRequest is the payload shape for rxhome/set/<entity_id>.
type setRequest struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// handleSet processes an external state write. Errors are returned to
// the MQTT client, which logs them; broker publishers get no reply.
func (b *Bridge) handleSet(topic string, payload []byte) error {
	entityID, ok := mqtt.ParseEntitySet(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}

	var req setRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBadPayload, topic, err)
	}

	if _, err := b.hub.States.Set(entityID, req.State, req.Attributes, core.NewContext()); err != nil {
		return fmt.Errorf("bridge: set %s: %w", entityID, err)
	}

	b.logger.Debug("state written from broker", "entity_id", entityID, "state", req.State)
	return nil
}

// handleCall processes an external service invocation. The payload is
// the service data object; an empty payload means no data. Calls are
// fire-and-forget: handler failures are logged by the registry, not
// reported back to the broker.
func (b *Bridge) handleCall(topic string, payload []byte) error {
	domain, service, ok := mqtt.ParseServiceCall(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}

	var data map[string]any
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &data); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBadPayload, topic, err)
		}
	}

	if err := b.hub.Services.Call(context.Background(), domain, service, data, false, core.NewContext()); err != nil {
		return fmt.Errorf("bridge: call %s.%s: %w", domain, service, err)
	}

	b.logger.Debug("service called from broker", "domain", domain, "service", service)
	return nil
}
