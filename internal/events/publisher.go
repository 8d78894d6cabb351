package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Stream carries attendance lifecycle events for downstream consumers
// (payroll, notifications). Publishing is best-effort: a failed XADD is
// logged by the caller, never propagated into the attendance mutation.
const Stream = "attendance:events"

const (
	EventCheckedIn       = "checked_in"
	EventCheckedOut      = "checked_out"
	EventTrackingStopped = "tracking_stopped"
)

// Publisher appends attendance events to a Redis stream.
type Publisher struct {
	client *redis.Client
	logger *zap.Logger
}

func NewPublisher(client *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

// Publish XADDs one event. Non-string values are flattened to strings so the
// stream entry stays consumable from any client.
func (p *Publisher) Publish(ctx context.Context, event string, fields map[string]any) (string, error) {
	values := map[string]any{"event": event}
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			values[k] = val
		case []byte:
			values[k] = string(val)
		case int, int32, int64:
			values[k] = fmt.Sprintf("%d", val)
		case float32, float64:
			values[k] = fmt.Sprintf("%f", val)
		case bool:
			if val {
				values[k] = "true"
			} else {
				values[k] = "false"
			}
		default:
			jsonBytes, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("failed to encode event field %s: %w", k, err)
			}
			values[k] = string(jsonBytes)
		}
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: Stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Published attendance event",
		zap.String("event", event),
		zap.String("stream_id", id),
	)

	return id, nil
}
