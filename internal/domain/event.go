package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic. Its value
// is one decoded BUFR message in the JSON wire form.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form of one observation row destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
