package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/livepeer/catalyst-api/log"
)

// SubtitleEntry is one caption line, in the shape spec.md §6 returns from
// /api/subtitles and consumes back from /api/cut's editedSubtitles.
type SubtitleEntry struct {
	StartS float64 `json:"startS"`
	EndS   float64 `json:"endS"`
	Text   string  `json:"text"`
}

// Transcriber is the speech-recognition capability spec.md §1 abstracts
// away: given an audio/video file it returns a subtitle track. The model
// itself (whisper, a cloud API, anything) is out of scope.
type Transcriber interface {
	Transcribe(requestID, mediaPath string) ([]SubtitleEntry, error)
}

// Translator is the machine-translation capability; it rewrites subtitle
// text into another language without touching timing.
type Translator interface {
	Translate(requestID string, entries []SubtitleEntry, targetLang string) ([]SubtitleEntry, error)
}

// TTS is the dubbing capability: synthesize speech for a subtitle entry's
// text and return a path to the rendered audio clip.
type TTS interface {
	Synthesize(requestID, text, lang, outPath string) error
}

// NoopTranscriber/Translator/TTS let the orchestrator run with captioning
// disabled, or in tests, without a real model behind it; every call is an
// EnhancementFailure (spec.md §7), which is always non-fatal.
type NoopTranscriber struct{}

func (NoopTranscriber) Transcribe(string, string) ([]SubtitleEntry, error) {
	return nil, errNoModelConfigured
}

type NoopTranslator struct{}

func (NoopTranslator) Translate(string, []SubtitleEntry, string) ([]SubtitleEntry, error) {
	return nil, errNoModelConfigured
}

type NoopTTS struct{}

func (NoopTTS) Synthesize(string, string, string, string) error {
	return errNoModelConfigured
}

var errNoModelConfigured = noModelConfiguredError{}

type noModelConfiguredError struct{}

func (noModelConfiguredError) Error() string { return "no model configured for this capability" }

// newSidecarClient builds a bounded-retry HTTP client like HTTPDownloader's
// (two retries, 60s timeout), shared by every sidecar-backed capability below.
func newSidecarClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 60 * time.Second
	rc.Logger = nil
	return rc.StandardClient()
}

// HTTPTranscriber talks to a sidecar speech-recognition service over
// HTTP, the same request shape as HTTPDownloader.
type HTTPTranscriber struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPTranscriber(baseURL string) *HTTPTranscriber {
	return &HTTPTranscriber{BaseURL: baseURL, Client: newSidecarClient()}
}

func (t *HTTPTranscriber) Transcribe(requestID, mediaPath string) ([]SubtitleEntry, error) {
	if t.BaseURL == "" {
		return nil, errNoModelConfigured
	}
	u := t.BaseURL + "/transcribe?path=" + url.QueryEscape(mediaPath)
	resp, err := t.Client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("transcription request to %q failed with status %d", log.RedactURL(u), resp.StatusCode)
	}
	var entries []SubtitleEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode transcription response: %w", err)
	}
	return entries, nil
}

// HTTPTranslator talks to a sidecar machine-translation service.
type HTTPTranslator struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPTranslator(baseURL string) *HTTPTranslator {
	return &HTTPTranslator{BaseURL: baseURL, Client: newSidecarClient()}
}

func (t *HTTPTranslator) Translate(requestID string, entries []SubtitleEntry, targetLang string) ([]SubtitleEntry, error) {
	if t.BaseURL == "" {
		return nil, errNoModelConfigured
	}
	body, err := json.Marshal(struct {
		Entries []SubtitleEntry `json:"entries"`
		Target  string          `json:"targetLang"`
	}{entries, targetLang})
	if err != nil {
		return nil, fmt.Errorf("failed to encode translation request: %w", err)
	}

	resp, err := t.Client.Post(t.BaseURL+"/translate", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("translation request to %q failed with status %d", log.RedactURL(t.BaseURL), resp.StatusCode)
	}
	var translated []SubtitleEntry
	if err := json.NewDecoder(resp.Body).Decode(&translated); err != nil {
		return nil, fmt.Errorf("failed to decode translation response: %w", err)
	}
	return translated, nil
}

// HTTPTTS talks to a sidecar text-to-speech service, writing the
// synthesized audio to outPath.
type HTTPTTS struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPTTS(baseURL string) *HTTPTTS {
	return &HTTPTTS{BaseURL: baseURL, Client: newSidecarClient()}
}

func (t *HTTPTTS) Synthesize(requestID, text, lang, outPath string) error {
	if t.BaseURL == "" {
		return errNoModelConfigured
	}
	u := fmt.Sprintf("%s/synthesize?lang=%s", t.BaseURL, url.QueryEscape(lang))
	resp, err := t.Client.Post(u, "text/plain", bytes.NewBufferString(text))
	if err != nil {
		return fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("synthesis request to %q failed with status %d", log.RedactURL(u), resp.StatusCode)
	}
	return writeBodyToFile(resp, outPath)
}
