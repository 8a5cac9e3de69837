// Package events defines the messages the censor service ships to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofrs/uuid"
	"github.com/segmentio/kafka-go"

	"censorship/pkg/censor"
	"censorship/pkg/models"
)

// TypeHeader tells a consumer how to decode the message value.
const TypeHeader = "type"

const (
	TypeLog        = "log"
	TypeModeration = "moderation"
)

// LogEntry describes one served HTTP request.
type LogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	IP         string    `json:"ip"`
	StatusCode int       `json:"status_code"`
	RequestID  string    `json:"request_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Duration   float64   `json:"duration_sec"`
	Service    string    `json:"service"`
}

// ModerationEvent is emitted for every rejected comment.
type ModerationEvent struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Service   string    `json:"service"`
	CommentID uuid.UUID `json:"comment_id,omitempty"`
	PostID    uuid.UUID `json:"post_id"`
	Author    string    `json:"author"`
	Matched   []string  `json:"matched"`
	Clean     string    `json:"clean"`
}

// Writer is the part of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	w       Writer
	service string
}

func NewPublisher(w Writer, service string) *Publisher {
	return &Publisher{w: w, service: service}
}

func (p *Publisher) PublishLog(ctx context.Context, entry LogEntry) error {
	entry.Service = p.service
	return p.publish(ctx, TypeLog, entry.RequestID, entry)
}

// PublishModeration reports a rejected comment and returns the event sent.
func (p *Publisher) PublishModeration(ctx context.Context, requestID string, comment models.Comment, res censor.Result) (ModerationEvent, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return ModerationEvent{}, err
	}

	ev := ModerationEvent{
		ID:        id,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		Service:   p.service,
		CommentID: comment.ID,
		PostID:    comment.PostID,
		Author:    comment.Author,
		Matched:   res.Matched,
		Clean:     res.Clean,
	}

	return ev, p.publish(ctx, TypeModeration, requestID, ev)
}

func (p *Publisher) publish(ctx context.Context, typ, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return p.w.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   b,
		Headers: []kafka.Header{{Key: TypeHeader, Value: []byte(typ)}},
	})
}

// MessageType returns the type header of msg. Messages without one are logs.
func MessageType(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == TypeHeader {
			return string(h.Value)
		}
	}
	return TypeLog
}

// CreateTopic creates a single partition topic on broker.
func CreateTopic(ctx context.Context, broker, topic string) error {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
}
