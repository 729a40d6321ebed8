// Package progress implements C7, the progress hub: it owns job records,
// emits progress to any number of attached listeners, cleans listeners up
// on disconnect, and terminates streams on terminal job states
// (spec.md §4.7).
package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/livepeer/catalyst-api/log"
)

type Status string

const (
	StatusDownloading Status = "downloading"
	StatusAnalyzing   Status = "analyzing"
	StatusProcessing  Status = "processing"
	StatusCaptioning  Status = "captioning"
	StatusDone        Status = "done"
	StatusError       Status = "error"
)

// JobProgress is the snapshot pushed to listeners (spec.md §3).
type JobProgress struct {
	Status      Status   `json:"status"`
	CurrentClip int      `json:"currentClip"`
	TotalClips  int      `json:"totalClips"`
	Message     string   `json:"message"`
	Files       []string `json:"files,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func (p JobProgress) IsTerminal() bool {
	return p.Status == StatusDone || p.Status == StatusError
}

// listenerBufferSize bounds how many events a slow handle can fall
// behind by before the hub gives up on it (spec.md §5, back-pressure).
const listenerBufferSize = 8

// sendTimeout is how long the hub waits for a slow handle to drain
// before detaching it.
const sendTimeout = 2 * time.Second

// Handle is a push handle returned by attach; the caller reads Events
// until it's closed.
type Handle struct {
	id     string
	Events chan JobProgress
}

// Job owns its listener set exclusively; listeners never back-reference
// the job, only the id, so cleanup on disconnect is trivial and no cycle
// is ever formed (spec.md §9).
type Job struct {
	ID string

	mu        sync.Mutex
	latest    JobProgress
	listeners map[string]*Handle
	cancelled bool
	cancelCh  chan struct{}
}

func newJob(id string) *Job {
	return &Job{
		ID:        id,
		listeners: make(map[string]*Handle),
		cancelCh:  make(chan struct{}),
		latest:    JobProgress{Status: StatusDownloading, Message: "queued"},
	}
}

// Cancel flips the job's cancel flag; every blocking stage in the
// orchestrator observes this via Cancelled()/Done() (spec.md §5).
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.cancelled {
		j.cancelled = true
		close(j.cancelCh)
	}
}

func (j *Job) Cancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelled
}

// Done returns a channel that's closed once Cancel is called, for use in
// selects inside long-running stage loops.
func (j *Job) Done() <-chan struct{} {
	return j.cancelCh
}

// Report pushes a new JobProgress to every attached listener, in the
// order the worker calls Report (spec.md §4.7's ordering guarantee). A
// handle that can't accept the event within sendTimeout is detached so
// one slow listener never blocks the others.
func (j *Job) Report(p JobProgress) {
	j.mu.Lock()
	j.latest = p
	handles := make([]*Handle, 0, len(j.listeners))
	for _, h := range j.listeners {
		handles = append(handles, h)
	}
	terminal := p.IsTerminal()
	j.mu.Unlock()

	for _, h := range handles {
		j.sendOrDetach(h, p)
	}

	if terminal {
		j.mu.Lock()
		for id, h := range j.listeners {
			close(h.Events)
			delete(j.listeners, id)
		}
		j.mu.Unlock()
	}
}

func (j *Job) sendOrDetach(h *Handle, p JobProgress) {
	select {
	case h.Events <- p:
	case <-time.After(sendTimeout):
		log.LogNoRequestID("detaching slow progress listener", "job_id", j.ID, "handle_id", h.id)
		j.removeListener(h.id)
	}
}

func (j *Job) removeListener(handleID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.detachLocked(handleID)
}

// attach registers a new handle and replays the latest known progress to
// it synchronously, per spec.md §4.7.
func (j *Job) attach() *Handle {
	h := &Handle{id: uuid.NewString(), Events: make(chan JobProgress, listenerBufferSize)}
	j.mu.Lock()
	j.listeners[h.id] = h
	latest := j.latest
	j.mu.Unlock()

	h.Events <- latest
	if latest.IsTerminal() {
		j.mu.Lock()
		delete(j.listeners, h.id)
		j.mu.Unlock()
		close(h.Events)
	}
	return h
}

// detach is idempotent, as required when a client simply disconnects.
func (j *Job) detach(h *Handle) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.detachLocked(h.id)
}

func (j *Job) detachLocked(handleID string) {
	if h, ok := j.listeners[handleID]; ok {
		delete(j.listeners, handleID)
		close(h.Events)
	}
}

func (j *Job) Latest() JobProgress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.latest
}

// Hub owns every live Job for the process lifetime; jobs are in-memory
// only and do not survive a restart (spec.md §1 Non-goals).
type Hub struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func NewHub() *Hub {
	return &Hub{jobs: make(map[string]*Job)}
}

// Submit allocates a Job and returns its id synchronously, before any
// work starts (spec.md §4.7).
func (h *Hub) Submit() *Job {
	job := newJob(uuid.NewString())
	h.mu.Lock()
	h.jobs[job.ID] = job
	h.mu.Unlock()
	return job
}

func (h *Hub) Job(jobID string) (*Job, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	j, ok := h.jobs[jobID]
	return j, ok
}

// Attach registers a push handle with jobID's job; ok is false if the job
// doesn't exist (already evicted, or never submitted).
func (h *Hub) Attach(jobID string) (*Handle, bool) {
	job, ok := h.Job(jobID)
	if !ok {
		return nil, false
	}
	return job.attach(), true
}

// Detach is idempotent; safe to call after the handle's channel was
// already closed by a terminal Report.
func (h *Hub) Detach(jobID string, handle *Handle) {
	job, ok := h.Job(jobID)
	if !ok {
		return
	}
	job.detach(handle)
}

// Remove drops a job's record entirely. Nothing in this repository calls
// it, so job records stay in memory for the life of the process.
func (h *Hub) Remove(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.jobs, jobID)
}
