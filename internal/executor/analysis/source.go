package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/cuongbtq/tool-sidecar/internal/executor/domain"
)

// Content is the text acquired for one URL
type Content struct {
	Title   string
	Text    string
	VideoID string
}

// Source acquires analyzable text for a URL
type Source interface {
	Acquire(ctx context.Context, u *url.URL) (*Content, error)
}

// TranscriptSource fetches video transcripts from a captioning service
type TranscriptSource struct {
	baseURL    string
	language   string
	httpClient *http.Client
	timeout    time.Duration
}

// NewTranscriptSource creates a transcript source for the service at baseURL
func NewTranscriptSource(baseURL, language string, httpClient *http.Client, timeout time.Duration) *TranscriptSource {
	return &TranscriptSource{
		baseURL:    baseURL,
		language:   language,
		httpClient: httpClient,
		timeout:    timeout,
	}
}

type transcriptResponse struct {
	Transcript string `json:"transcript"`
}

// Acquire extracts the video id and fetches its transcript. When the id is
// known but the transcript is not, the returned Content still carries the id
// and the error wraps domain.ErrTranscriptUnavailable.
func (s *TranscriptSource) Acquire(ctx context.Context, u *url.URL) (*Content, error) {
	videoID, err := ExtractVideoID(u)
	if err != nil {
		return nil, err
	}

	content := &Content{VideoID: videoID}

	transcript, err := s.fetch(ctx, videoID)
	if err != nil {
		return content, fmt.Errorf("%w: %v", domain.ErrTranscriptUnavailable, err)
	}

	content.Text = strings.TrimSpace(transcript)
	return content, nil
}

func (s *TranscriptSource) fetch(ctx context.Context, videoID string) (string, error) {
	endpoint, err := url.JoinPath(s.baseURL, "transcript")
	if err != nil {
		return "", fmt.Errorf("building transcript url: %w", err)
	}

	query := url.Values{}
	query.Set("video_id", videoID)
	if s.language != "" {
		query.Set("lang", s.language)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcript service returned HTTP %d", resp.StatusCode)
	}

	var decoded transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding transcript response: %w", err)
	}

	return decoded.Transcript, nil
}

// PageSource fetches a web page and extracts its readable text
type PageSource struct {
	httpClient *http.Client
	timeout    time.Duration
	maxBytes   int64
	userAgent  string
}

// NewPageSource creates a generic page source
func NewPageSource(httpClient *http.Client, timeout time.Duration, maxBytes int64, userAgent string) *PageSource {
	return &PageSource{
		httpClient: httpClient,
		timeout:    timeout,
		maxBytes:   maxBytes,
		userAgent:  userAgent,
	}
}

// Acquire downloads u, reading at most maxBytes of the body
func (s *PageSource) Acquire(ctx context.Context, u *url.URL) (*Content, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrContentFetch, err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrContentFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrContentFetch, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")

	// Undeclared charsets are sniffed from <meta> or the bytes themselves
	body, err := charset.NewReader(io.LimitReader(resp.Body, s.maxBytes), contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrContentFetch, err)
	}

	if isPlainText(contentType) {
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrContentFetch, err)
		}
		return &Content{Text: collapseWhitespace(string(raw))}, nil
	}

	page := ExtractText(body)
	return &Content{Title: page.Title, Text: page.Text}, nil
}

func isPlainText(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/plain"
}
