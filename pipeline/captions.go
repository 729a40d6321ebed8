package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/livepeer/catalyst-api/clients"
	"github.com/livepeer/catalyst-api/config"
)

// CaptionStyle is the per-clip overlay stylesheet (spec.md §6).
type CaptionStyle struct {
	FontName        string
	FontSize        int
	PrimaryColor    string
	OutlineColor    string
	BackgroundColor string
	Bold            bool
	Outline         int
	Shadow          int
	Position        string // bottom, center, top
	Animation       string // none, wordByWord, pop
}

var captionPresets = map[string]CaptionStyle{
	"classic": {FontName: "Arial", FontSize: 42, PrimaryColor: "&H00FFFFFF", OutlineColor: "&H00000000", Bold: false, Outline: 2, Shadow: 0, Position: "bottom", Animation: "none"},
	"tiktok":  {FontName: "Arial Black", FontSize: 52, PrimaryColor: "&H00FFFFFF", OutlineColor: "&H00000000", Bold: true, Outline: 3, Shadow: 1, Position: "center", Animation: "wordByWord"},
	"minimal": {FontName: "Helvetica", FontSize: 36, PrimaryColor: "&H00FFFFFF", OutlineColor: "&H00808080", Bold: false, Outline: 1, Shadow: 0, Position: "bottom", Animation: "none"},
	"bold_pop": {FontName: "Impact", FontSize: 56, PrimaryColor: "&H0000D7FF", OutlineColor: "&H00000000", Bold: true, Outline: 4, Shadow: 2, Position: "center", Animation: "pop"},
}

func resolveCaptionStyle(preset string) (CaptionStyle, bool) {
	if preset == "" || preset == "off" {
		return CaptionStyle{}, false
	}
	style, ok := captionPresets[preset]
	if !ok {
		return captionPresets["classic"], true
	}
	return style, true
}

// applyCaptions implements S4: resolve subtitles, optionally translate,
// burn the overlay in, and re-transcode with the subtitle filter while
// leaving the already-muxed audio untouched (spec.md §4.6 step 4).
func (c *Coordinator) applyCaptions(requestID, jobID, jobDir string, req CutRequest, index int, seg ClipSpec, clipMediaPath, videoIn string, outW, outH, crf int) (string, error) {
	entries, err := c.resolveSubtitles(requestID, jobID, req, clipMediaPath, seg, index)
	if err != nil {
		return "", fmt.Errorf("failed to resolve subtitles: %w", err)
	}

	if req.TranslateTo != "" {
		translated, err := c.Translator.Translate(requestID, entries, req.TranslateTo)
		if err != nil {
			return "", fmt.Errorf("translation failed: %w", err)
		}
		entries = translated
	}

	out := videoIn
	if req.Captions {
		style, enabled := resolveCaptionStyle("classic")
		if enabled {
			assPath := filepath.Join(jobDir, fmt.Sprintf("captions_%d.ass", index))
			if err := writeASS(assPath, entries, style); err != nil {
				return "", fmt.Errorf("failed to write subtitle file: %w", err)
			}

			captioned := filepath.Join(jobDir, fmt.Sprintf("clip-%d-captioned.mp4", index))
			ctx, cancel := context.WithTimeout(context.Background(), config.TranscodeTimeoutMs*time.Millisecond)
			err := c.Transcoder.Transcode(ctx, videoIn, captioned, clients.TranscodeOptions{
				Crop:          clients.CropMode{Kind: clients.CropCenter},
				OutputWidth:   outW,
				OutputHeight:  outH,
				CRF:           crf,
				SubtitlesPath: assPath,
			})
			cancel()
			if err != nil {
				return "", fmt.Errorf("caption re-transcode failed: %w", err)
			}
			out = captioned
		}
	}

	if req.TranslateMode == "dub" {
		dubbed, err := c.applyDubbing(requestID, jobDir, index, entries, out, outW, outH, crf)
		if err != nil {
			return "", fmt.Errorf("dubbing failed: %w", err)
		}
		out = dubbed
	}

	return out, nil
}

// resolveSubtitles prefers cached full-video subtitles from the
// downloader, sliced to [startS,endS] and rebased to 0, falling back to
// local transcription of the clip's own audio (spec.md §4.6 step 4).
func (c *Coordinator) resolveSubtitles(requestID, jobID string, req CutRequest, clipMediaPath string, seg ClipSpec, index int) ([]clients.SubtitleEntry, error) {
	if edited, ok := req.EditedSubtitles[seg.ID]; ok {
		return edited, nil
	}

	entry := c.cacheFor(jobID)
	if entry.subtitles == nil {
		full, err := c.Transcriber.Transcribe(requestID, clipMediaPath)
		if err == nil {
			entry.subtitles = full
		}
	}

	if entry.subtitles != nil {
		sliced := sliceSubtitles(entry.subtitles, seg.StartS, seg.EndS)
		if len(sliced) > 0 {
			return sliced, nil
		}
	}

	return c.Transcriber.Transcribe(requestID, clipMediaPath)
}

func sliceSubtitles(entries []clients.SubtitleEntry, startS, endS float64) []clients.SubtitleEntry {
	var out []clients.SubtitleEntry
	for _, e := range entries {
		if e.EndS <= startS || e.StartS >= endS {
			continue
		}
		out = append(out, clients.SubtitleEntry{
			StartS: math.Max(0, e.StartS-startS),
			EndS:   math.Min(endS-startS, e.EndS-startS),
			Text:   e.Text,
		})
	}
	return out
}

// applyDubbing synthesizes a dub track (see synthesizeDubTrack) and mixes
// it with the original audio at reduced gain. The track holds speech for
// the first subtitle entry only and is mixed in from the start of the
// clip; later entries are not voiced and no per-entry delay is applied.
func (c *Coordinator) applyDubbing(requestID, jobDir string, index int, entries []clients.SubtitleEntry, videoIn string, outW, outH, crf int) (string, error) {
	if len(entries) == 0 {
		return videoIn, nil
	}

	dubTrack := filepath.Join(jobDir, fmt.Sprintf("dub-%d.wav", index))
	if err := c.synthesizeDubTrack(requestID, dubTrack, entries); err != nil {
		return "", err
	}

	out := filepath.Join(jobDir, fmt.Sprintf("clip-%d-dubbed.mp4", index))
	ctx, cancel := context.WithTimeout(context.Background(), config.TranscodeTimeoutMs*time.Millisecond)
	defer cancel()
	err := c.Transcoder.Transcode(ctx, videoIn, out, clients.TranscodeOptions{
		Crop:            clients.CropMode{Kind: clients.CropCenter},
		OutputWidth:     outW,
		OutputHeight:    outH,
		CRF:             crf,
		DubbedAudioPath: dubTrack,
		DubbedAudioGain: config.DefaultDubbingGain,
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// synthesizeDubTrack renders the dub track from the text of entries[0]
// alone, as a single track with no delay to the entry's StartS; the
// remaining entries are not synthesized.
func (c *Coordinator) synthesizeDubTrack(requestID, outPath string, entries []clients.SubtitleEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("no subtitle entries to synthesize")
	}
	return c.TTS.Synthesize(requestID, entries[0].Text, "", outPath)
}

// writeASS renders entries as an SSA/ASS subtitle file styled per style,
// the format the transcoder's ass filter expects (spec.md §6).
func writeASS(path string, entries []clients.SubtitleEntry, style CaptionStyle) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", path, err)
	}
	defer f.Close()

	alignment := 2 // bottom-center
	switch style.Position {
	case "center":
		alignment = 5
	case "top":
		alignment = 8
	}

	bold := "0"
	if style.Bold {
		bold = "1"
	}

	fmt.Fprintf(f, "[Script Info]\nScriptType: v4.00+\n\n")
	fmt.Fprintf(f, "[V4+ Styles]\n")
	fmt.Fprintf(f, "Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, BackColour, Bold, BorderStyle, Outline, Shadow, Alignment\n")
	fmt.Fprintf(f, "Style: Default,%s,%d,%s,%s,%s,%s,1,%d,%d,%d\n\n",
		style.FontName, style.FontSize, style.PrimaryColor, style.OutlineColor, style.BackgroundColor, bold, style.Outline, style.Shadow, alignment)
	fmt.Fprintf(f, "[Events]\n")
	fmt.Fprintf(f, "Format: Layer, Start, End, Style, Text\n")

	for _, e := range entries {
		if style.Animation == "wordByWord" {
			writeWordByWordEvents(f, e)
			continue
		}
		fmt.Fprintf(f, "Dialogue: 0,%s,%s,Default,%s\n", formatASSTime(e.StartS), formatASSTime(e.EndS), strings.ReplaceAll(e.Text, "\n", "\\N"))
	}
	return nil
}

// writeWordByWordEvents emits one dialogue line per word, dividing the
// entry's duration evenly and highlighting the active word (spec.md §6).
func writeWordByWordEvents(f *os.File, e clients.SubtitleEntry) {
	words := strings.Fields(e.Text)
	if len(words) == 0 {
		return
	}
	span := (e.EndS - e.StartS) / float64(len(words))
	for i, w := range words {
		start := e.StartS + float64(i)*span
		end := start + span
		highlighted := make([]string, len(words))
		for j, ww := range words {
			if j == i {
				highlighted[j] = "{\\b1}" + ww + "{\\b0}"
			} else {
				highlighted[j] = ww
			}
		}
		fmt.Fprintf(f, "Dialogue: 0,%s,%s,Default,%s\n", formatASSTime(start), formatASSTime(end), strings.Join(highlighted, " "))
	}
}

// formatASSTime renders seconds as ASS's H:MM:SS.cc (spec.md §6).
func formatASSTime(s float64) string {
	if s < 0 {
		s = 0
	}
	h := int(s) / 3600
	m := (int(s) % 3600) / 60
	sec := int(s) % 60
	cs := int((s - math.Floor(s)) * 100)
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, sec, cs)
}
