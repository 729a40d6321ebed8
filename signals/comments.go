package signals

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/config"
	"github.com/livepeer/catalyst-api/log"
)

var timestampTokenRe = regexp.MustCompile(`\b(\d{1,2}):(\d{2})(?::(\d{2}))?\b`)

// CommentProbe fetches up to maxComments comments and buckets any
// timestamp tokens it finds in their text (spec.md §4.1).
type CommentProbe struct {
	Downloader  clients.Downloader
	MaxComments int
}

func NewCommentProbe(d clients.Downloader) CommentProbe {
	return CommentProbe{Downloader: d, MaxComments: config.DefaultMaxComments}
}

// CommentProbeResult carries both the fused intensity sequence and the
// explain-ability side-channel spec.md §4.1 asks for.
type CommentProbeResult struct {
	Source     SignalSource
	Highlights []CommentHighlight
}

func (p CommentProbe) Probe(requestID, videoURL string, durationS float64) CommentProbeResult {
	max := p.MaxComments
	if max <= 0 {
		max = config.DefaultMaxComments
	}
	comments, err := p.Downloader.Comments(requestID, videoURL, max)
	if err != nil || len(comments) == 0 {
		if err != nil {
			log.Log(requestID, "comment probe empty", "err", err)
		}
		return CommentProbeResult{Source: SignalSource{Method: MethodComments}}
	}

	type bucket struct {
		count   int
		samples []string
	}
	buckets := map[int64]*bucket{}
	for _, c := range comments {
		secs, ok := parseTimestampToken(c.Text, durationS)
		if !ok {
			continue
		}
		idx := int64(secs / config.CommentWindowS)
		b, found := buckets[idx]
		if !found {
			b = &bucket{}
			buckets[idx] = b
		}
		b.count++
		if len(b.samples) < 3 {
			b.samples = append(b.samples, c.Text)
		}
	}

	if len(buckets) == 0 {
		return CommentProbeResult{Source: SignalSource{Method: MethodComments}}
	}

	indices := make([]int64, 0, len(buckets))
	for idx := range buckets {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	points := make([]IntensityPoint, 0, len(indices))
	highlights := make([]CommentHighlight, 0, len(indices))
	for _, idx := range indices {
		b := buckets[idx]
		startS := float64(idx) * config.CommentWindowS
		points = append(points, IntensityPoint{
			StartMs:   int64(startS * 1000),
			EndMs:     int64((startS + config.CommentWindowS) * 1000),
			Intensity: float64(b.count),
		})
		sample := ""
		if len(b.samples) > 0 {
			sample = b.samples[0]
		}
		highlights = append(highlights, CommentHighlight{TimeS: startS, Count: b.count, SampleText: sample})
	}
	normalizeMinMax(points)

	sort.Slice(highlights, func(i, j int) bool { return highlights[i].Count > highlights[j].Count })

	return CommentProbeResult{
		Source:     SignalSource{Method: MethodComments, Weight: config.WeightComments, Points: points},
		Highlights: highlights,
	}
}

// IsStrong reports whether the comment signal found enough distinct
// timestamp buckets to be considered reliable on its own (spec.md §4.1:
// "strong comment signal" is >=5 distinct buckets).
func (r CommentProbeResult) IsStrong() bool {
	return len(r.Source.Points) >= config.StrongCommentBuckets
}

// parseTimestampToken finds the first h:mm:ss / m:ss token in text and
// converts it to seconds, rejecting anything beyond duration+5s
// (spec.md §4.1) and anything that fails the round-trip property in
// spec.md §8 property 9.
func parseTimestampToken(text string, durationS float64) (float64, bool) {
	m := timestampTokenRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	if b > 59 {
		return 0, false
	}
	var secs float64
	if m[3] != "" {
		c, _ := strconv.Atoi(m[3])
		if c > 59 {
			return 0, false
		}
		secs = float64(a*3600 + b*60 + c)
	} else {
		secs = float64(a*60 + b)
	}
	if durationS > 0 && secs > durationS+5 {
		return 0, false
	}
	return secs, true
}
