package clients

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/livepeer/catalyst-api/subprocess"
)

// Transcoder is the external media-tooling collaborator: a single binary
// (or API) capable of analysis passes (audio stats, silence detection,
// scene-change detection) and of producing the final MP4 clip. Its exact
// binary resolution is out of scope; only the invocations below and the
// artifacts they produce are part of this contract.
type Transcoder interface {
	AudioStats(ctx context.Context, path string, windowS float64) (string, error)
	SilenceDetect(ctx context.Context, path string, noiseDB float64, minDurationS float64) (string, error)
	SceneChanges(ctx context.Context, path string, threshold float64, fps int, scaleWidth int, timeout time.Duration) (string, error)
	ExtractFrame(ctx context.Context, path string, atS float64, outPath string) error
	Transcode(ctx context.Context, in, out string, opts TranscodeOptions) error
}

// CropMode is the tagged variant spec.md §9 calls for: the transcoder call
// is a pure function of (mode, in, out, quality) to ffmpeg args.
type CropMode struct {
	Kind  CropKind
	Crops []DynamicCrop // only populated for SmartReframe
}

type CropKind int

const (
	CropCenter CropKind = iota
	CropBlurPad
	CropLetterbox
	CropSmartReframe
)

// DynamicCrop is one keyframe of a piecewise-linear crop-x function over
// time, produced by the reframe analysis stage (C6 step 2).
type DynamicCrop struct {
	AtS float64
	X   int
}

type TranscodeOptions struct {
	Crop                  CropMode
	OutputWidth           int
	OutputHeight          int
	SeekS                 float64
	DurationS             float64
	CRF                   int
	SubtitlesPath         string // burned in via the ass filter when non-empty
	DubbedAudioPath       string // mixed in at reduced gain when non-empty
	DubbedAudioGain       float64
}

// FFTranscoder shells out to ffmpeg/ffprobe directly for analysis passes
// (their stdout is parsed by the signal probes, not ffmpeg-go, since it's
// plain text astats/silencedetect/scdet logging) and uses ffmpeg-go to
// build the final transcode argument graph, which is intricate enough
// (four crop modes, optional caption/dub overlays) to benefit from a
// fluent builder instead of a hand-assembled arg slice.
type FFTranscoder struct {
	FFmpegPath  string
	FFprobePath string
}

func NewFFTranscoder(ffmpegPath, ffprobePath string) *FFTranscoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFTranscoder{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// AudioStats runs a single astats pass, resetting its RMS accumulator
// every windowS seconds and printing each reset via ametadata, which the
// audio probe then parses line by line.
func (f *FFTranscoder) AudioStats(ctx context.Context, path string, windowS float64) (string, error) {
	resetFrames := int(windowS * 50) // astats operates per-audio-frame; 50 is ffmpeg's default audio frame rate for this filter chain
	args := []string{
		"-i", path,
		"-af", fmt.Sprintf("astats=metadata=1:reset=%d,ametadata=print:key=lavfi.astats.Overall.RMS_level", resetFrames),
		"-f", "null", "-",
	}
	return f.run(ctx, args)
}

func (f *FFTranscoder) SilenceDetect(ctx context.Context, path string, noiseDB float64, minDurationS float64) (string, error) {
	args := []string{
		"-i", path,
		"-af", fmt.Sprintf("silencedetect=noise=%gdB:d=%g", noiseDB, minDurationS),
		"-f", "null", "-",
	}
	return f.run(ctx, args)
}

func (f *FFTranscoder) SceneChanges(ctx context.Context, path string, threshold float64, fps int, scaleWidth int, timeout time.Duration) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	vf := fmt.Sprintf("select='gt(scene,%g)',scale=%d:-2,showinfo", threshold, scaleWidth)
	if fps > 0 {
		vf = fmt.Sprintf("fps=%d,%s", fps, vf)
	}
	args := []string{
		"-i", path,
		"-vf", vf,
		"-f", "null", "-",
	}
	return f.run(runCtx, args)
}

func (f *FFTranscoder) ExtractFrame(ctx context.Context, path string, atS float64, outPath string) error {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	args := []string{
		"-ss", fmt.Sprintf("%g", atS),
		"-i", path,
		"-frames:v", "1",
		"-y", outPath,
	}
	_, err := f.run(runCtx, args)
	return err
}

// Transcode builds the crop/caption/dub argument graph with ffmpeg-go and
// runs it with a budget generous enough for a full-length clip.
func (f *FFTranscoder) Transcode(ctx context.Context, in, out string, opts TranscodeOptions) error {
	runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	inputKwargs := ffmpeg.KwArgs{}
	if opts.SeekS > 0 {
		inputKwargs["ss"] = opts.SeekS
	}
	if opts.DurationS > 0 {
		inputKwargs["t"] = opts.DurationS
	}
	stream := ffmpeg.Input(in, inputKwargs)

	vf := cropFilter(opts)
	if opts.SubtitlesPath != "" {
		vf = fmt.Sprintf("%s,ass=%s", vf, ffmpeg.Quote(opts.SubtitlesPath))
	}

	outputKwargs := ffmpeg.KwArgs{
		"vf":        vf,
		"c:v":       "libx264",
		"profile:v": "high",
		"pix_fmt":   "yuv420p",
		"crf":       opts.CRF,
		"c:a":       "aac",
		"b:a":       "192k",
		"ar":        44100,
		"movflags":  "+faststart",
	}

	if opts.DubbedAudioPath == "" {
		return stream.Output(out, outputKwargs).OverWriteOutput().ErrorToStdOut().RunWithContext(runCtx)
	}

	// Dubbing mixes the original audio with the synthesized track at
	// reduced gain instead of replacing it, so the original language
	// remains faintly audible underneath (spec.md §4.6 step 4).
	outputKwargs["filter_complex"] = fmt.Sprintf(
		"[0:a]volume=1.0[a0];[1:a]volume=%g[a1];[a0][a1]amix=inputs=2:duration=first[aout]",
		opts.DubbedAudioGain)
	outputKwargs["map"] = []string{"0:v", "[aout]"}
	delete(outputKwargs, "c:a")

	return ffmpeg.Input(in, inputKwargs).
		Output(out, outputKwargs).
		GlobalArgs("-i", opts.DubbedAudioPath).
		OverWriteOutput().ErrorToStdOut().RunWithContext(runCtx)
}

func cropFilter(opts TranscodeOptions) string {
	w, h := opts.OutputWidth, opts.OutputHeight
	switch opts.Crop.Kind {
	case CropBlurPad:
		return fmt.Sprintf(
			"split=2[bg][fg];[bg]scale=%d:%d,boxblur=20:5[bg2];[fg]scale=%d:-2[fg2];[bg2][fg2]overlay=(W-w)/2:(H-h)/2",
			w, h, w)
	case CropLetterbox:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2", w, h, w, h)
	case CropSmartReframe:
		return dynamicCropExpr(opts.Crop.Crops, w, h)
	default: // CropCenter
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", w, h, w, h)
	}
}

// dynamicCropExpr turns a sequence of (time, x) keyframes into ffmpeg's
// crop filter with a piecewise-linear `x` expression built from nested
// `if(between(...))` terms, interpolating linearly between keyframes.
func dynamicCropExpr(crops []DynamicCrop, w, h int) string {
	if len(crops) == 0 {
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", w, h, w, h)
	}
	if len(crops) == 1 {
		return fmt.Sprintf("crop=%d:%d:%d:0", w, h, crops[0].X)
	}
	expr := fmt.Sprintf("%d", crops[len(crops)-1].X)
	for i := len(crops) - 2; i >= 0; i-- {
		a, b := crops[i], crops[i+1]
		lerp := fmt.Sprintf("%d+(t-%g)*(%d-%d)/(%g-%g)", a.X, a.AtS, b.X, a.X, b.AtS, a.AtS)
		expr = fmt.Sprintf("if(lt(t,%g),%s,%s)", b.AtS, lerp, expr)
	}
	return fmt.Sprintf("crop=%d:%d:'%s':0", w, h, expr)
}

func (f *FFTranscoder) run(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, f.FFmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	subprocess.LogOutputs(cmd)
	if err := cmd.Run(); err != nil {
		return stderr.String(), fmt.Errorf("ffmpeg invocation failed: %w", err)
	}
	return stderr.String(), nil
}
