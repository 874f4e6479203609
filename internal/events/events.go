// Package events publishes locations.Change notifications to a message broker.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/illmade-knight/bikepark/pkg/locations"
)

// ContentType is set on every published message.
const ContentType = "application/json"

// encode renders a change as the JSON payload shared by every broker.
func encode(change locations.Change) ([]byte, error) {
	payload, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s change: %w", change.Type, err)
	}
	return payload, nil
}

// Decode parses a payload produced by one of the notifiers.
func Decode(payload []byte) (locations.Change, error) {
	var change locations.Change
	if err := json.Unmarshal(payload, &change); err != nil {
		return locations.Change{}, fmt.Errorf("failed to decode change: %w", err)
	}
	return change, nil
}
