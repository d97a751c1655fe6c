package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Stream and group names. The events stream carries optimize commands today but
// is open to future event kinds; consumers skip tags they don't know.
const (
	SaveStream = "dispatch:save-requests"
	SaveGroup  = "dispatch-workers"

	EventsStream = "events:stream"
	EventsGroup  = "events-workers"

	ResultsStream = "results:stream"
)

const readCount = 16

// Message is one stream entry: the stream-assigned id plus flat field pairs.
type Message struct {
	ID     string
	Fields map[string]string
}

// Streams is a thin adapter over Redis Streams providing append, consumer-group
// reads with acknowledgment, and plain reads for single-reader streams.
type Streams struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Streams {
	return &Streams{rdb: rdb}
}

// Publish appends fields to the stream and returns the assigned id. It never
// waits on consumers.
func (s *Streams) Publish(ctx context.Context, stream string, fields map[string]any) (string, error) {
	id, err := s.rdb.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: fields}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}
	return id, nil
}

// EnsureGroup creates the consumer group from the beginning of the stream,
// creating the stream too if absent. An already-existing group is not an error.
func (s *Streams) EnsureGroup(ctx context.Context, stream, group string) error {
	err := s.rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("xgroup create %s/%s: %w", stream, group, err)
	}
	return nil
}

// ReadGroup blocks up to block waiting for messages not yet delivered to the
// group. A timeout returns an empty slice, not an error.
func (s *Streams) ReadGroup(ctx context.Context, stream, group, consumer string, block time.Duration) ([]Message, error) {
	return s.readGroup(ctx, stream, group, consumer, ">", block)
}

// Pending returns messages already delivered to this consumer but never
// acknowledged, e.g. after a crash mid-handling. It does not block.
func (s *Streams) Pending(ctx context.Context, stream, group, consumer string) ([]Message, error) {
	return s.readGroup(ctx, stream, group, consumer, "0", time.Millisecond)
}

func (s *Streams) readGroup(ctx context.Context, stream, group, consumer, id string, block time.Duration) ([]Message, error) {
	res, err := s.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, id},
		Count:    readCount,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup %s/%s: %w", stream, group, err)
	}
	return flatten(res), nil
}

// Ack marks the message processed for the group. Acking twice is harmless.
func (s *Streams) Ack(ctx context.Context, stream, group, id string) error {
	if err := s.rdb.XAck(ctx, stream, group, id).Err(); err != nil {
		return fmt.Errorf("xack %s/%s %s: %w", stream, group, id, err)
	}
	return nil
}

// Read blocks up to block for entries after lastID, without any consumer group.
// Use "$" to start at only-new-messages. A timeout returns an empty slice.
func (s *Streams) Read(ctx context.Context, stream, lastID string, block time.Duration) ([]Message, error) {
	res, err := s.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Count:   readCount,
		Block:   block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xread %s: %w", stream, err)
	}
	return flatten(res), nil
}

func flatten(res []redis.XStream) []Message {
	var out []Message
	for _, str := range res {
		for _, m := range str.Messages {
			fields := make(map[string]string, len(m.Values))
			for k, v := range m.Values {
				fields[k] = fmt.Sprint(v)
			}
			out = append(out, Message{ID: m.ID, Fields: fields})
		}
	}
	return out
}
