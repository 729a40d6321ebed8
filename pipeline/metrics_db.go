package pipeline

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/livepeer/catalyst-api/log"
)

// OpenMetricsDB opens the optional postgres sink completed jobs are
// recorded to, mirroring the teacher's sendDBMetrics setup in main.go.
// An empty connStr means the sink is disabled; callers should leave
// Coordinator.MetricsDB nil in that case rather than call this.
func OpenMetricsDB(connStr string) (*sql.DB, error) {
	return sql.Open("postgres", connStr)
}

// sendDBMetrics records one completed cut job, the same shape as the
// teacher's vod_completed insert but renamed and trimmed to what this
// domain tracks: clip count, failures, and total job duration rather
// than per-stage transcode timings the teacher's fallback pipeline needs.
func (c *Coordinator) sendDBMetrics(requestID, jobID string, req CutRequest, clipsWritten, clipsFailed int, startTime time.Time) {
	if c.MetricsDB == nil {
		return
	}

	insertDynStmt := `insert into "clip_jobs_completed"(
                            "finished_at",
                            "started_at",
                            "request_id",
                            "job_id",
                            "source_url",
                            "video_title",
                            "segments_requested",
                            "clips_written",
                            "clips_failed",
                            "captions",
                            "translate_to",
                            "quality",
                            "job_duration_ms"
                            ) values($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := c.MetricsDB.Exec(
		insertDynStmt,
		time.Now().Unix(),
		startTime.Unix(),
		requestID,
		jobID,
		log.RedactURL(req.URL),
		req.VideoTitle,
		len(req.Segments),
		clipsWritten,
		clipsFailed,
		req.Captions,
		req.TranslateTo,
		req.Quality,
		time.Since(startTime).Milliseconds(),
	)
	if err != nil {
		log.LogError(requestID, "error writing postgres metrics", err)
	}
}
