// Package batch implements the batch submission queue behind
// POST /api/batch (spec.md §6): each URL in a submission is auto-analyzed
// with C1-C5, its top segment is handed to the job orchestrator, and the
// aggregate progress across the whole batch is exposed to one listener.
//
// The queue is modeled the same shape an AMQP work queue would be: a
// bounded channel of tasks drained by a fixed pool of workers. When
// config.Cli.AMQPURL is set, the same tasks are published onto a real
// RabbitMQ queue instead, so a batch can fan out across multiple
// processes rather than just goroutines in this one (spec.md Non-goals
// exclude distributed execution as a baseline requirement, but allow it
// as an extension; this is that extension, off by default).
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/livepeer/catalyst-api/autodetect"
	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/combiner"
	"github.com/livepeer/catalyst-api/detect"
	"github.com/livepeer/catalyst-api/log"
	"github.com/livepeer/catalyst-api/pipeline"
)

const queueName = "highlight_batch_tasks"

// workers bounds how many URLs in a batch are analyzed concurrently when
// running in single-process (no AMQPURL) mode.
const workers = 4

// task is one URL within a batch, published onto the queue and consumed
// by a worker that runs auto-detection and starts a cut job for it.
type task struct {
	BatchID  string           `json:"batchId"`
	URL      string           `json:"url"`
	CropMode clients.CropKind `json:"cropMode"`
	Captions bool             `json:"captions"`
}

// Status is one URL's outcome within a batch.
type Status struct {
	URL   string `json:"url"`
	JobID string `json:"jobId,omitempty"`
	Error string `json:"error,omitempty"`
	Done  bool   `json:"done"`
}

// Batch tracks every URL submitted together under one batch id.
type Batch struct {
	ID        string
	TotalURLs int

	mu       sync.Mutex
	statuses map[string]*Status
	order    []string
}

func (b *Batch) snapshot() []Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Status, 0, len(b.order))
	for _, url := range b.order {
		out = append(out, *b.statuses[url])
	}
	return out
}

func (b *Batch) update(url string, s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses[url] = &s
}

// Tracker owns every in-flight batch and the workers that drain the
// submission queue. One Tracker is shared across all requests.
type Tracker struct {
	Probes      autodetect.Probes
	Coordinator *pipeline.Coordinator
	DetectOpts  detect.Options
	CombineOpts combiner.Options

	// AMQPURL, when non-empty, publishes tasks to this RabbitMQ broker
	// instead of the in-process channel; a separate consumer process can
	// then pull from the same queue.
	AMQPURL string

	mu      sync.Mutex
	batches map[string]*Batch

	tasks chan task
	once  sync.Once
}

func NewTracker(probes autodetect.Probes, coordinator *pipeline.Coordinator, amqpURL string) *Tracker {
	return &Tracker{
		Probes:      probes,
		Coordinator: coordinator,
		DetectOpts:  detect.DefaultOptions(),
		CombineOpts: combiner.DefaultOptions(),
		AMQPURL:     amqpURL,
		batches:     make(map[string]*Batch),
		tasks:       make(chan task, 64),
	}
}

func (t *Tracker) startWorkers() {
	t.once.Do(func() {
		if t.AMQPURL != "" {
			go t.runAMQPConsumer()
			return
		}
		for i := 0; i < workers; i++ {
			go t.runLocalWorker()
		}
	})
}

// Submit registers a new batch and enqueues one task per URL, returning
// the batch id synchronously (the same submit-then-stream contract C7
// uses for a single job).
func (t *Tracker) Submit(urls []string, cropMode clients.CropKind, captions bool) string {
	t.startWorkers()

	b := &Batch{ID: uuid.NewString(), TotalURLs: len(urls), statuses: make(map[string]*Status), order: urls}
	for _, url := range urls {
		b.statuses[url] = &Status{URL: url}
	}

	t.mu.Lock()
	t.batches[b.ID] = b
	t.mu.Unlock()

	for _, url := range urls {
		tk := task{BatchID: b.ID, URL: url, CropMode: cropMode, Captions: captions}
		if t.AMQPURL != "" {
			if err := t.publishAMQP(tk); err != nil {
				log.LogNoRequestID("failed to publish batch task, falling back to local execution", "err", err, "batch_id", b.ID)
				t.tasks <- tk
			}
			continue
		}
		t.tasks <- tk
	}

	return b.ID
}

// Statuses returns the current per-URL status list for a batch.
func (t *Tracker) Statuses(batchID string) ([]Status, bool) {
	t.mu.Lock()
	b, ok := t.batches[batchID]
	t.mu.Unlock()
	if !ok {
		return nil, false
	}
	return b.snapshot(), true
}

func (t *Tracker) runLocalWorker() {
	for tk := range t.tasks {
		t.process(tk)
	}
}

func (t *Tracker) process(tk task) {
	t.mu.Lock()
	b, ok := t.batches[tk.BatchID]
	t.mu.Unlock()
	if !ok {
		return
	}

	requestID := uuid.NewString()
	result, err := t.Probes.Run(requestID, tk.URL, t.DetectOpts, t.CombineOpts)
	if err != nil || len(result.Segments) == 0 {
		msg := "no highlight segments detected"
		if err != nil {
			msg = err.Error()
		}
		b.update(tk.URL, Status{URL: tk.URL, Error: msg, Done: true})
		return
	}

	best := result.Segments[0]
	for _, seg := range result.Segments[1:] {
		if result.ViralityScores[seg.ID].Overall > result.ViralityScores[best.ID].Overall {
			best = seg
		}
	}

	jobID := t.Coordinator.StartCutJob(requestID, pipeline.CutRequest{
		URL:        tk.URL,
		Segments:   []pipeline.ClipSpec{{ID: best.ID, StartS: best.StartS, EndS: best.EndS}},
		CropMode:   tk.CropMode,
		Captions:   tk.Captions,
		VideoTitle: tk.URL,
		Quality:    0,
	})

	b.update(tk.URL, Status{URL: tk.URL, JobID: jobID, Done: true})
}

// publishAMQP pushes tk onto the durable RabbitMQ queue for an external
// consumer pool to pick up; used only when AMQPURL is configured.
func (t *Tracker) publishAMQP(tk task) error {
	conn, err := amqp.Dial(t.AMQPURL)
	if err != nil {
		return fmt.Errorf("failed to dial amqp broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open amqp channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare amqp queue: %w", err)
	}

	body, err := json.Marshal(tk)
	if err != nil {
		return fmt.Errorf("failed to encode batch task: %w", err)
	}
	return ch.PublishWithContext(context.Background(), "", q.Name, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// runAMQPConsumer drains the same queue this process publishes to, so a
// single process with AMQPURL set still makes progress on its own
// batches without requiring a separate consumer deployment.
func (t *Tracker) runAMQPConsumer() {
	conn, err := amqp.Dial(t.AMQPURL)
	if err != nil {
		log.LogNoRequestID("failed to dial amqp broker for batch consumer", "err", err)
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.LogNoRequestID("failed to open amqp channel for batch consumer", "err", err)
		return
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		log.LogNoRequestID("failed to declare amqp queue for batch consumer", "err", err)
		return
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		log.LogNoRequestID("failed to start amqp consumer", "err", err)
		return
	}

	for msg := range msgs {
		var tk task
		if err := json.Unmarshal(msg.Body, &tk); err != nil {
			log.LogNoRequestID("failed to decode batch task from amqp", "err", err)
			continue
		}
		t.process(tk)
	}
}
