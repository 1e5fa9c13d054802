// Package events publishes and consumes export notifications over NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/fleet/internal/model"
)

// Event topic constants
const (
	TopicExportCompleted = "fleet.export.completed"
	TopicExportFailed    = "fleet.export.failed"

	// TopicExports matches every export topic.
	TopicExports = "fleet.export.>"
)

type ExportCompleted struct {
	Export *model.ExportEvent `json:"export"`
}

type ExportFailed struct {
	ID      string `json:"id"`
	Listing string `json:"listing"`
	Error   string `json:"error"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Envelope is a received event with its topic.
type Envelope struct {
	Topic string
	Data  []byte
}

// Decode unmarshals an envelope into the event type of its topic.
func Decode(env Envelope) (any, error) {
	var v any
	switch env.Topic {
	case TopicExportCompleted:
		v = &ExportCompleted{}
	case TopicExportFailed:
		v = &ExportFailed{}
	default:
		return nil, fmt.Errorf("unknown topic %q", env.Topic)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", env.Topic, err)
	}
	return v, nil
}
