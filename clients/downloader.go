package clients

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/livepeer/catalyst-api/log"
)

// Downloader is the external collaborator that knows how to resolve a
// public video URL: it fetches the whole file or a byte/time range of it,
// and it can answer platform-specific questions (viewer heatmap, comment
// list) that the source video has no other way to expose. Its binary
// resolution and installation are out of scope; only the invocations
// below and the shapes they return are part of this contract.
type Downloader interface {
	// Heatmap returns the platform's precomputed viewer-engagement curve
	// for a URL, or an empty slice if the platform has none.
	Heatmap(requestID, videoURL string) ([]HeatmapPoint, error)
	// Comments returns up to max top comments for a URL, newest first.
	Comments(requestID, videoURL string, max int) ([]Comment, error)
	// FetchRange retrieves [startS, endS] of videoURL at the given
	// resolution cap and writes it to destPath. PartialFetchUnsupported
	// is returned when the downloader cannot honor a range request at
	// all, signalling the caller to fall back to FetchFull.
	FetchRange(requestID, videoURL, destPath string, startS, endS float64, quality int) error
	// FetchFull retrieves the entire file to destPath.
	FetchFull(requestID, videoURL, destPath string) error
}

type HeatmapPoint struct {
	StartS float64 `json:"start"`
	EndS   float64 `json:"end"`
	Value  float64 `json:"value"`
}

type Comment struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrPartialFetchUnsupported signals that the downloader rejected a
// section/range flag; internal only, never surfaced to API clients
// (spec.md §7, PartialFetchUnsupported).
var ErrPartialFetchUnsupported = fmt.Errorf("downloader: partial fetch unsupported")

// HTTPDownloader talks to a sidecar downloader service over HTTP, using
// the same retrying client shape the teacher built for its callback
// client (bounded retries, bounded wait, a shared timeout).
type HTTPDownloader struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPDownloader(baseURL string) *HTTPDownloader {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = nil
	return &HTTPDownloader{BaseURL: baseURL, Client: rc.StandardClient()}
}

func (d *HTTPDownloader) Heatmap(requestID, videoURL string) ([]HeatmapPoint, error) {
	var points []HeatmapPoint
	u := d.BaseURL + "/heatmap?url=" + url.QueryEscape(videoURL)
	if err := d.getJSON(requestID, u, &points); err != nil {
		log.Log(requestID, "heatmap probe failed, continuing without it", "err", err)
		return nil, nil
	}
	return points, nil
}

func (d *HTTPDownloader) Comments(requestID, videoURL string, max int) ([]Comment, error) {
	var comments []Comment
	u := d.BaseURL + "/comments?url=" + url.QueryEscape(videoURL) + "&max=" + strconv.Itoa(max)
	if err := d.getJSON(requestID, u, &comments); err != nil {
		log.Log(requestID, "comment probe failed, continuing without it", "err", err)
		return nil, nil
	}
	return comments, nil
}

func (d *HTTPDownloader) FetchRange(requestID, videoURL, destPath string, startS, endS float64, quality int) error {
	u := fmt.Sprintf("%s/fetch?url=%s&start=%f&end=%f&quality=%d", d.BaseURL, url.QueryEscape(videoURL), startS, endS, quality)
	resp, err := d.Client.Get(u)
	if err != nil {
		return fmt.Errorf("failed to request partial fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotImplemented || resp.StatusCode == http.StatusBadRequest {
		return ErrPartialFetchUnsupported
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("partial fetch failed with status %d", resp.StatusCode)
	}
	return writeBodyToFile(resp, destPath)
}

func (d *HTTPDownloader) FetchFull(requestID, videoURL, destPath string) error {
	u := d.BaseURL + "/fetch?url=" + url.QueryEscape(videoURL)
	resp, err := d.Client.Get(u)
	if err != nil {
		return fmt.Errorf("failed to request full fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("full fetch failed with status %d", resp.StatusCode)
	}
	return writeBodyToFile(resp, destPath)
}

func (d *HTTPDownloader) getJSON(requestID, u string, out interface{}) error {
	resp, err := d.Client.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request to %q failed with status %d", log.RedactURL(u), resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func writeBodyToFile(resp *http.Response, destPath string) error {
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", destPath, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("failed to write %q: %w", destPath, err)
	}
	return nil
}
