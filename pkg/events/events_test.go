package events

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/segmentio/kafka-go"

	"censorship/pkg/censor"
	"censorship/pkg/models"
)

type memWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *memWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestPublisher_PublishLog(t *testing.T) {
	w := &memWriter{}
	p := NewPublisher(w, "censor")

	entry := LogEntry{
		Timestamp:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		StatusCode: 200,
		RequestID:  "req-1",
		Method:     "POST",
		Path:       "/censor",
	}
	if err := p.PublishLog(context.Background(), entry); err != nil {
		t.Fatalf("PublishLog() returned error: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("want 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "req-1" {
		t.Errorf("want key %q, got %q", "req-1", msg.Key)
	}
	if got := MessageType(msg); got != TypeLog {
		t.Errorf("want type %q, got %q", TypeLog, got)
	}

	var got LogEntry
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	entry.Service = "censor"
	if !reflect.DeepEqual(got, entry) {
		t.Errorf("want %+v, got %+v", entry, got)
	}
}

func TestPublisher_PublishModeration(t *testing.T) {
	w := &memWriter{}
	p := NewPublisher(w, "censor")

	postID, _ := uuid.NewV4()
	comment := models.Comment{PostID: postID, Author: "John Doe", Text: "a badword"}
	res := censor.Result{Orig: comment.Text, Clean: "a *******", Matched: []string{"badword"}}

	ev, err := p.PublishModeration(context.Background(), "req-2", comment, res)
	if err != nil {
		t.Fatalf("PublishModeration() returned error: %v", err)
	}
	if ev.ID == uuid.Nil {
		t.Error("want event id generated")
	}

	if got := MessageType(w.msgs[0]); got != TypeModeration {
		t.Errorf("want type %q, got %q", TypeModeration, got)
	}

	var got ModerationEvent
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	if got.PostID != postID || got.Author != "John Doe" || got.Clean != "a *******" || got.Service != "censor" {
		t.Errorf("unexpected event %+v", got)
	}
	if !reflect.DeepEqual(got.Matched, []string{"badword"}) {
		t.Errorf("want matched %q, got %q", []string{"badword"}, got.Matched)
	}
}

func TestPublisher_writeError(t *testing.T) {
	wantErr := errors.New("broker down")
	p := NewPublisher(&memWriter{err: wantErr}, "censor")

	if err := p.PublishLog(context.Background(), LogEntry{}); !errors.Is(err, wantErr) {
		t.Errorf("want %v, got %v", wantErr, err)
	}
}

func TestMessageType_default(t *testing.T) {
	if got := MessageType(kafka.Message{Value: []byte("{}")}); got != TypeLog {
		t.Errorf("want %q for messages without header, got %q", TypeLog, got)
	}
}
