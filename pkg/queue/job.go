package queue

import (
	"context"
	"encoding/json"
)

// Job handles one message type pulled from the queue.
type Job interface {
	Name() string
	// Type is the message type the job consumes.
	Type() string
	Handle(ctx context.Context, payload json.RawMessage) error
}
