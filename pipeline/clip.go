package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/config"
	"github.com/livepeer/catalyst-api/log"
	"github.com/livepeer/catalyst-api/metrics"
	"github.com/livepeer/catalyst-api/progress"
)

// processClip drives one clip through S1-S4 and returns the filename it
// was published under in the output store.
func (c *Coordinator) processClip(requestID string, job *progress.Job, jobDir string, req CutRequest, index int, seg ClipSpec) (string, error) {
	preset, ok := config.QualityPresets[req.Quality]
	if !ok {
		preset = config.QualityPresets[config.DefaultQuality]
	}

	mediaPath, offsetS, err := c.fetchClip(requestID, job.ID, req.URL, jobDir, index, seg, req.Quality)
	if err != nil {
		metrics.Metrics.StageFailures.WithLabelValues("fetch").Inc()
		metrics.Metrics.ClipsTotal.WithLabelValues("fetch_failed").Inc()
		return "", fmt.Errorf("partial/full fetch failed: %w", err)
	}

	iv, err := c.Prober.ProbeFile(requestID, mediaPath)
	if err != nil {
		metrics.Metrics.StageFailures.WithLabelValues("probe").Inc()
		metrics.Metrics.ClipsTotal.WithLabelValues("fetch_failed").Inc()
		return "", fmt.Errorf("probing fetched clip failed: %w", err)
	}

	crop := clients.CropMode{Kind: req.CropMode}
	if req.CropMode == clients.CropSmartReframe {
		if iv.IsPortrait() {
			crop.Kind = clients.CropCenter
		} else {
			job.Report(progress.JobProgress{
				Status:      progress.StatusAnalyzing,
				CurrentClip: index,
				TotalClips:  len(req.Segments),
				Message:     fmt.Sprintf("Analyzing framing for clip %d/%d", index+1, len(req.Segments)),
			})
			crops, err := c.analyzeReframe(requestID, mediaPath, offsetS, seg.EndS-seg.StartS)
			if err != nil {
				// S2 failures are non-fatal (spec.md §4.6): fall back to a
				// plain center crop and keep going.
				log.LogError(requestID, "reframe analysis failed, falling back to center crop", err, "job_id", job.ID, "clip", index)
				crop.Kind = clients.CropCenter
			} else {
				crop.Crops = crops
			}
		}
	}

	job.Report(progress.JobProgress{
		Status:      progress.StatusProcessing,
		CurrentClip: index,
		TotalClips:  len(req.Segments),
		Message:     fmt.Sprintf("Transcoding clip %d/%d", index+1, len(req.Segments)),
	})

	outW, outH := outputDimensions(preset.MaxHeight)
	outFile := filepath.Join(jobDir, fmt.Sprintf("clip-%d.mp4", index))
	ctx, cancel := context.WithTimeout(context.Background(), config.TranscodeTimeoutMs*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = c.Transcoder.Transcode(ctx, mediaPath, outFile, clients.TranscodeOptions{
		Crop:         crop,
		OutputWidth:  outW,
		OutputHeight: outH,
		SeekS:        offsetS,
		DurationS:    seg.EndS - seg.StartS,
		CRF:          preset.CRF,
	})
	metrics.Metrics.StageDurationSec.WithLabelValues("transcode").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Metrics.StageFailures.WithLabelValues("transcode").Inc()
		metrics.Metrics.ClipsTotal.WithLabelValues("transcode_failed").Inc()
		return "", fmt.Errorf("transcode failed: %w", err)
	}

	if req.Captions || req.TranslateTo != "" {
		job.Report(progress.JobProgress{
			Status:      progress.StatusCaptioning,
			CurrentClip: index,
			TotalClips:  len(req.Segments),
			Message:     fmt.Sprintf("Captioning clip %d/%d", index+1, len(req.Segments)),
		})
		if captioned, err := c.applyCaptions(requestID, job.ID, jobDir, req, index, seg, mediaPath, outFile, outW, outH, preset.CRF); err != nil {
			// S4 failures are non-fatal: ship the clip without captions.
			log.LogError(requestID, "captioning failed, shipping clip without captions", err, "job_id", job.ID, "clip", index)
		} else {
			outFile = captioned
		}
	}

	filename := outputFilename(req.VideoTitle, index, seg.StartS)
	f, err := os.Open(outFile)
	if err != nil {
		return "", fmt.Errorf("failed to open finished clip: %w", err)
	}
	defer f.Close()

	if err := c.Output.Put(requestID, filename, f); err != nil {
		return "", fmt.Errorf("failed to publish clip: %w", err)
	}

	metrics.Metrics.ClipsTotal.WithLabelValues("success").Inc()
	return filename, nil
}

// fetchClip implements S1: a partial fetch of [startS-3, endS+3], falling
// back to a job-scoped full download when the downloader can't honor a
// range request, or when the partial artifact has no audio track.
func (c *Coordinator) fetchClip(requestID, jobID, videoURL, jobDir string, index int, seg ClipSpec, quality int) (string, float64, error) {
	bufferedStart := math.Max(0, seg.StartS-config.PartialFetchBufferS)
	bufferedEnd := seg.EndS + config.PartialFetchBufferS
	offsetS := seg.StartS - bufferedStart

	dest := filepath.Join(jobDir, fmt.Sprintf("clip-%d-source.mp4", index))
	start := time.Now()
	err := c.Downloader.FetchRange(requestID, videoURL, dest, bufferedStart, bufferedEnd, quality)
	metrics.Metrics.StageDurationSec.WithLabelValues("fetch").Observe(time.Since(start).Seconds())

	if err == nil {
		if iv, probeErr := c.Prober.ProbeFile(requestID, dest); probeErr == nil && iv.HasAudio() {
			return dest, offsetS, nil
		}
		log.Log(requestID, "partial fetch missing audio track, falling back to full download", "job_id", jobID, "clip", index)
	} else if !errors.Is(err, clients.ErrPartialFetchUnsupported) {
		log.LogError(requestID, "partial fetch failed, falling back to full download", err, "job_id", jobID, "clip", index)
	}

	fullPath, err := c.fullVideo(requestID, jobID, videoURL, jobDir)
	if err != nil {
		return "", 0, err
	}
	return fullPath, seg.StartS, nil
}

// fullVideo returns the job-scoped cached full download, fetching it the
// first time it's needed by any clip in this job (spec.md §4.6 caches).
func (c *Coordinator) fullVideo(requestID, jobID, videoURL, jobDir string) (string, error) {
	entry := c.cacheFor(jobID)
	if entry.fullVideoPath != "" {
		return entry.fullVideoPath, nil
	}

	dest := filepath.Join(jobDir, "full-source.mp4")
	if err := c.Downloader.FetchFull(requestID, videoURL, dest); err != nil {
		return "", fmt.Errorf("full download failed: %w", err)
	}
	entry.fullVideoPath = dest
	return dest, nil
}

// analyzeReframe implements S2: sample frames at config.ReframeSampleFPS
// from offsetS for durationS, score five vertical strips per frame, and
// smooth the resulting per-frame crop-x sequence (spec.md §4.6 step 2).
func (c *Coordinator) analyzeReframe(requestID, mediaPath string, offsetS, durationS float64) ([]clients.DynamicCrop, error) {
	ctx, cancel := context.WithTimeout(context.Background(), config.FrameAnalysisTimeout*time.Millisecond*20)
	defer cancel()

	sampleEvery := 1.0 / config.ReframeSampleFPS
	frameCount := int(durationS / sampleEvery)
	if frameCount < 1 {
		frameCount = 1
	}

	rawX := make([]int, 0, frameCount)
	atS := make([]float64, 0, frameCount)
	framesDir, err := os.MkdirTemp("", "reframe-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create reframe scratch dir: %w", err)
	}
	defer os.RemoveAll(framesDir)

	for i := 0; i < frameCount; i++ {
		t := offsetS + float64(i)*sampleEvery
		framePath := filepath.Join(framesDir, fmt.Sprintf("frame-%d.jpg", i))
		if err := c.Transcoder.ExtractFrame(ctx, mediaPath, t, framePath); err != nil {
			return nil, fmt.Errorf("failed to extract frame at %gs: %w", t, err)
		}
		x, err := scoreFrameCropX(framePath)
		if err != nil {
			return nil, fmt.Errorf("failed to score frame at %gs: %w", t, err)
		}
		rawX = append(rawX, x)
		atS = append(atS, t-offsetS)
	}

	smoothed := smoothCropX(rawX, config.ReframeSmoothFrames)
	crops := make([]clients.DynamicCrop, len(smoothed))
	for i, x := range smoothed {
		crops[i] = clients.DynamicCrop{AtS: atS[i], X: x}
	}
	return crops, nil
}

// smoothCropX applies a centered moving average of the given window size
// over the raw per-frame crop-x sequence (spec.md §4.6 step 2).
func smoothCropX(xs []int, window int) []int {
	out := make([]int, len(xs))
	half := window / 2
	for i := range xs {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi >= len(xs) {
			hi = len(xs) - 1
		}
		sum, n := 0, 0
		for j := lo; j <= hi; j++ {
			sum += xs[j]
			n++
		}
		out[i] = sum / n
	}
	return out
}

func outputDimensions(maxHeight int) (int, int) {
	h := maxHeight
	w := h * 9 / 16
	return w, h
}
