// Package config holds process-wide tunables: the numeric defaults the
// peak-detection pipeline uses (spec.md §4), and the Cli flags the
// http-server binary parses at startup. Grounded on the teacher's
// config/config.go split between package-level vars and a flag-parsed Cli.
package config

var Version string

// Used so tests can generate fixed timestamps instead of time.Now().
var Clock TimestampGenerator = RealTimestampGenerator{}

// Peak detector defaults (spec.md §4.3).
const (
	DefaultTopN               = 5
	DefaultMinDurationS       = 15.0
	DefaultMaxDurationS       = 60.0
	DefaultMinGapS            = 30.0
	DefaultIntensityThreshold = 0.6
	ThresholdStep             = 0.1
	ThresholdFloor            = 0.2
	MinMarkersBeforeStop      = 5
	ZoneMergeGapMs            = 3000
)

// Signal combiner defaults (spec.md §4.2).
const (
	DefaultWindowMs     = 2000
	DefaultSmoothWindow = 3
)

// Per-source fallback weights used when no heatmap is available
// (spec.md §4.2).
const (
	WeightAudio    = 1.0
	WeightScene    = 0.6
	WeightComments = 1.2
)

// Audio probe defaults (spec.md §4.1).
const (
	AudioProbeWindowS  = 2.0
	AudioSilenceNoiseDB = -35.0
	AudioSilenceMinS    = 0.3
	AudioDBFloor        = -60.0
	AudioDBCeiling      = -10.0
)

// Scene probe defaults (spec.md §4.1).
const (
	SceneChangeThreshold = 0.3
	SceneProbeWindowS    = 2.0
	SceneLongInputS      = 30 * 60
	SceneVeryLongInputS  = 2 * 60 * 60
	SceneFPSShort        = 0 // native fps, no downsampling
	SceneFPSLong         = 2
	SceneFPSVeryLong     = 1
	SceneScaleWidth      = 640
)

// Comment probe defaults (spec.md §4.1).
const (
	DefaultMaxComments  = 200
	CommentWindowS      = 5.0
	StrongCommentBuckets = 5
)

// Boundary optimizer defaults (spec.md §4.4).
const (
	BoundaryStartWindowBeforeS = 5.0
	BoundaryStartWindowAfterS  = 2.0
	HookWindowS                = 3.0
	EnergyPeakThreshold        = 0.5
	EnergyDropPrevMin          = 0.4
	EnergyDropRatio            = 0.5
)

// Job orchestrator defaults (spec.md §4.6, §5).
const (
	PartialFetchBufferS   = 3.0
	DefaultDubbingGain    = 0.15
	ReframeSampleFPS      = 2.0
	ReframeStripCount     = 5
	ReframeWindowStrips   = 3
	ReframeSmoothFrames   = 5
	MaxBatchURLs          = 20
	SubtitleFetchTimeout  = 30_000 // ms
	TranscodeTimeoutMs    = 10 * 60 * 1000
	FrameAnalysisTimeout  = 5_000 // ms
)

// Quality presets map a requested quality tier to an output resolution
// cap and a CRF value (spec.md §4.6 step 3).
type QualityPreset struct {
	MaxHeight int
	CRF       int
}

var QualityPresets = map[int]QualityPreset{
	1080: {MaxHeight: 1080, CRF: 18},
	720:  {MaxHeight: 720, CRF: 20},
	480:  {MaxHeight: 480, CRF: 22},
}

const DefaultQuality = 720

// MaxJobsInFlight mirrors the teacher's MAX_JOBS_IN_FLIGHT capacity guard.
// Nothing in this repository reads it, so the number of concurrently
// running clip-cut jobs is not limited.
const MaxJobsInFlight = 8
