// Package logkeeper moves request logs and moderation events from Kafka to
// Elasticsearch.
package logkeeper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"censorship/pkg/events"
)

// Indexer stores a document under an id.
type Indexer interface {
	Index(ctx context.Context, index, docID string, body []byte) error
}

// Reader is the part of *kafka.Reader the keeper needs.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type Elastic struct {
	es *elasticsearch.Client
}

func NewElastic(nodes []string) (*Elastic, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: nodes})
	if err != nil {
		return nil, err
	}
	return &Elastic{es: es}, nil
}

func (e *Elastic) Index(ctx context.Context, index, docID string, body []byte) error {
	res, err := e.es.Index(
		index,
		bytes.NewReader(body),
		e.es.Index.WithDocumentID(docID),
		e.es.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch responded %s", res.Status())
	}
	return nil
}

// Indices names the index for each message type.
type Indices struct {
	Logs       string
	Moderation string
}

// Keeper reads messages and spreads them over a pool of workers.
type Keeper struct {
	r       Reader
	idx     Indexer
	indices Indices
	workers int
}

func New(r Reader, idx Indexer, indices Indices, workers int) *Keeper {
	if workers <= 0 {
		workers = 1
	}
	return &Keeper{r: r, idx: idx, indices: indices, workers: workers}
}

// Run blocks until ctx is cancelled and all workers have drained.
func (k *Keeper) Run(ctx context.Context) {
	jobs := make(chan kafka.Message, k.workers*5) // buffer is needed to increase throughput
	var wg sync.WaitGroup
	wg.Add(k.workers)
	for workerID := 0; workerID < k.workers; workerID++ {
		go func(id int) {
			defer wg.Done()
			k.worker(ctx, jobs, id)
		}(workerID)
	}

	log.Info("[logkeeper] accepting logs...")
	for {
		msg, err := k.r.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				break
			}
			log.Errorf("[logkeeper] failed to read message from Kafka: %v", err)
			continue
		}
		log.Debugf("[logkeeper] received message: %s", string(msg.Value))

		select {
		case jobs <- msg:
		case <-ctx.Done():
		}
	}

	close(jobs)
	wg.Wait()
}

func (k *Keeper) worker(ctx context.Context, jobs <-chan kafka.Message, workerID int) {
	for {
		select {
		case <-ctx.Done():
			log.Infof("[logkeeper][workerID:%d] context cancelled, exiting worker", workerID)
			return

		case msg, ok := <-jobs:
			if !ok {
				log.Infof("[logkeeper][workerID:%d] jobs channel closed, exiting worker", workerID)
				return
			}

			if err := k.handle(ctx, msg); err != nil {
				log.Errorf("[logkeeper][workerID:%d] failed to index document: %v", workerID, err)
			}
		}
	}
}

// handle indexes one message. Log entries are keyed by service and request id
// so a redelivered entry overwrites itself; moderation events by their id.
func (k *Keeper) handle(ctx context.Context, msg kafka.Message) error {
	switch typ := events.MessageType(msg); typ {
	case events.TypeLog:
		var entry events.LogEntry
		if err := json.Unmarshal(msg.Value, &entry); err != nil {
			return fmt.Errorf("failed to unmarshal log entry: %w", err)
		}
		if err := k.idx.Index(ctx, k.indices.Logs, entry.Service+entry.RequestID, msg.Value); err != nil {
			return err
		}
		log.Infof("[logkeeper][%s] log entry indexed", shorten(entry.RequestID))

	case events.TypeModeration:
		var ev events.ModerationEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("failed to unmarshal moderation event: %w", err)
		}
		if err := k.idx.Index(ctx, k.indices.Moderation, ev.ID.String(), msg.Value); err != nil {
			return err
		}
		log.Infof("[logkeeper][%s] moderation event indexed", shorten(ev.RequestID))

	default:
		return fmt.Errorf("unknown message type %q", typ)
	}

	return nil
}

func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
