// Package pipeline implements C6, the job orchestrator: a staged,
// per-clip pipeline (partial fetch -> optional reframe analysis ->
// transcode -> optional caption/translate/dub), with cancellation,
// progress eventing, and one-shot caches (spec.md §4.6). Grounded on the
// teacher's pipeline/coordinator.go: a cache-backed job table, an
// async-with-panic-recovery runner, and per-job failure isolation.
package pipeline

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/livepeer/catalyst-api/cache"
	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/log"
	"github.com/livepeer/catalyst-api/metrics"
	"github.com/livepeer/catalyst-api/progress"
	"github.com/livepeer/catalyst-api/video"
)

// ClipSpec is one segment the client asked to cut; a trimmed-down mirror
// of detect.Segment that only carries what /api/cut needs to re-identify
// a previously-detected segment.
type ClipSpec struct {
	ID     string
	StartS float64
	EndS   float64
}

// CutRequest is the body of POST /api/cut (spec.md §6).
type CutRequest struct {
	URL             string
	Segments        []ClipSpec
	CropMode        clients.CropKind
	Captions        bool
	VideoTitle      string
	Quality         int
	TranslateTo     string
	TranslateMode   string
	EditedSubtitles map[string][]clients.SubtitleEntry
}

// Coordinator wires together every external collaborator C6 needs and
// drives the per-clip state machine.
type Coordinator struct {
	Downloader  clients.Downloader
	Transcoder  clients.Transcoder
	Transcriber clients.Transcriber
	Translator  clients.Translator
	TTS         clients.TTS
	Prober      video.Prober
	Output      clients.OutputStore

	Hub *progress.Hub

	TempDir string

	// MetricsDB is the optional postgres sink completed jobs are recorded
	// to (spec.md's ambient metrics, supplemented per the teacher's own
	// sendDBMetrics). Nil disables it.
	MetricsDB *sql.DB

	// jobCaches holds the process-scoped caches (full-video fallback,
	// subtitle set) for each in-flight job, keyed by job id. Cleared at
	// job completion (spec.md §4.6).
	jobCaches *cache.Cache[*jobCacheEntry]
}

func NewCoordinator(hub *progress.Hub, tempDir string) *Coordinator {
	return &Coordinator{
		Hub:       hub,
		TempDir:   tempDir,
		jobCaches: cache.New[*jobCacheEntry](),
	}
}

type jobCacheEntry struct {
	fullVideoPath string
	subtitles     []clients.SubtitleEntry
}

// StartCutJob allocates a job and returns its id synchronously, then
// drives the clip loop asynchronously (spec.md §4.7's submit contract).
func (c *Coordinator) StartCutJob(requestID string, req CutRequest) string {
	job := c.Hub.Submit()
	c.jobCaches.Store(job.ID, &jobCacheEntry{})

	go recovered(func() (struct{}, error) {
		c.runJob(requestID, job, req)
		return struct{}{}, nil
	})

	return job.ID
}

func recovered[T any](f func() (T, error)) (t T, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.LogNoRequestID("panic in job goroutine, recovering", "err", p, "trace", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return f()
}

func (c *Coordinator) runJob(requestID string, job *progress.Job, req CutRequest) {
	metrics.Metrics.JobsInFlight.Inc()
	defer metrics.Metrics.JobsInFlight.Dec()
	defer c.jobCaches.Remove(requestID, job.ID)

	startTime := time.Now()

	jobDir := filepath.Join(c.TempDir, job.ID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		c.fail(job, fmt.Errorf("failed to create job temp dir: %w", err))
		return
	}
	defer os.RemoveAll(jobDir)

	total := len(req.Segments)
	var files []string
	failed := 0

	for i, seg := range req.Segments {
		if job.Cancelled() {
			c.cancel(job)
			return
		}

		job.Report(progress.JobProgress{
			Status:      progress.StatusDownloading,
			CurrentClip: i,
			TotalClips:  total,
			Message:     fmt.Sprintf("Downloading clip %d/%d: %s -> %s", i+1, total, formatClock(seg.StartS), formatClock(seg.EndS)),
		})

		outputFile, err := c.processClip(requestID, job, jobDir, req, i, seg)
		if err != nil {
			// S1/S3 failures are fatal for this clip only; the job
			// continues with the remaining clips (spec.md §4.6).
			log.LogError(requestID, "clip failed, continuing with remaining clips", err, "job_id", job.ID, "clip", i)
			failed++
			continue
		}
		files = append(files, outputFile)
	}

	job.Report(progress.JobProgress{
		Status:      progress.StatusDone,
		CurrentClip: total,
		TotalClips:  total,
		Message:     "done",
		Files:       files,
	})

	c.sendDBMetrics(requestID, job.ID, req, len(files), failed, startTime)
}

func (c *Coordinator) cancel(job *progress.Job) {
	job.Report(progress.JobProgress{Status: progress.StatusError, Error: "cancelled"})
}

func (c *Coordinator) fail(job *progress.Job, err error) {
	job.Report(progress.JobProgress{Status: progress.StatusError, Error: err.Error()})
}

func (c *Coordinator) cacheFor(jobID string) *jobCacheEntry {
	entry := c.jobCaches.Get(jobID)
	if entry == nil {
		entry = &jobCacheEntry{}
		c.jobCaches.Store(jobID, entry)
	}
	return entry
}

func formatClock(s float64) string {
	m := int(s) / 60
	sec := int(s) % 60
	return fmt.Sprintf("%d:%02d", m, sec)
}

func outputFilename(videoTitle string, clipIndex int, startS float64) string {
	sanitized := sanitizeTitle(videoTitle)
	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}
	m := int(startS) / 60
	s := int(startS) % 60
	return fmt.Sprintf("%s_clip%d_%dm%02ds.mp4", sanitized, clipIndex+1, m, s)
}

func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "clip"
	}
	return b.String()
}
