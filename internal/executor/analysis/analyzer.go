// Package analysis turns a URL into pattern-analyzed markdown. Video URLs are
// analyzed from their transcript; everything else from the page text.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/cuongbtq/tool-sidecar/internal/config"
	"github.com/cuongbtq/tool-sidecar/internal/executor/domain"
)

const defaultPatternTimeout = 90 * time.Second

// Request is one analysis request
type Request struct {
	URL  string
	Mode string
}

// Result is returned to the caller as the tool result
type Result struct {
	Content       string   `json:"content"`
	URL           string   `json:"url"`
	Route         Route    `json:"route"`
	Mode          string   `json:"mode"`
	Patterns      []string `json:"patterns"`
	VideoID       string   `json:"video_id,omitempty"`
	ContentLength int      `json:"content_length"`
	Status        string   `json:"status"`
}

// Config holds analyzer collaborators and pattern selection
type Config struct {
	Logger           *slog.Logger
	Policy           RoutePolicy
	Video            Source
	Generic          Source
	Runner           PatternRunner
	Patterns         map[string][]string
	PatternTimeouts  map[string]time.Duration
	MinContentLength int
}

// Analyzer is stateless across requests and safe for concurrent use
type Analyzer struct {
	logger           *slog.Logger
	policy           RoutePolicy
	video            Source
	generic          Source
	runner           PatternRunner
	patterns         map[string][]string
	timeouts         map[string]time.Duration
	minContentLength int
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{
		logger:           cfg.Logger,
		policy:           cfg.Policy,
		video:            cfg.Video,
		generic:          cfg.Generic,
		runner:           cfg.Runner,
		patterns:         cfg.Patterns,
		timeouts:         cfg.PatternTimeouts,
		minContentLength: cfg.MinContentLength,
	}
}

// Analyze runs one request through routing, acquisition and the pattern
// runs. Missing transcripts, thin pages and a missing runner are results,
// not errors.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	u, err := ParseURL(req.URL)
	if err != nil {
		return nil, err
	}

	mode, err := resolveMode(req.Mode)
	if err != nil {
		return nil, err
	}

	route, err := a.route(u)
	if err != nil {
		return nil, err
	}

	patterns := a.patterns[mode]
	logger := a.logger.With(
		slog.String("url", u.String()),
		slog.String("route", string(route)),
		slog.String("mode", mode),
	)
	logger.Info("Analysis routed", slog.Int("patterns", len(patterns)))

	result := &Result{
		URL:      u.String(),
		Route:    route,
		Mode:     mode,
		Patterns: append([]string{}, patterns...),
	}

	content, err := a.source(route).Acquire(ctx, u)
	if content != nil {
		result.VideoID = content.VideoID
	}
	if err != nil {
		if errors.Is(err, domain.ErrTranscriptUnavailable) {
			logger.Warn("Transcript unavailable", slog.String("error", err.Error()))
			return a.noTranscript(result), nil
		}
		return nil, err
	}

	header := reportHeader{
		Title:         content.Title,
		URL:           result.URL,
		Route:         route,
		Mode:          mode,
		VideoID:       content.VideoID,
		ContentLength: utf8.RuneCountInString(content.Text),
	}
	result.ContentLength = header.ContentLength

	if header.ContentLength < a.minContentLength {
		logger.Info("Content too short to analyze", slog.Int("content_length", header.ContentLength))
		if route == RouteVideo {
			return a.noTranscript(result), nil
		}
		result.Status = domain.StatusInsufficientContent
		result.Content = renderNotice("Insufficient Content", header, fmt.Sprintf(
			"The page returned only %d characters of readable text, which is not enough to analyze. "+
				"It may require JavaScript or a login to render.", header.ContentLength))
		return result, nil
	}

	if !a.runner.Available() {
		logger.Warn("Pattern runner unavailable, skipping analysis")
		result.Status = domain.StatusAnalysisUnavailable
		result.Content = renderNotice("Analysis Unavailable", header,
			"The pattern analysis command is not installed or not on PATH, so no patterns were run.")
		return result, nil
	}

	timeout := a.timeouts[mode]
	if timeout <= 0 {
		timeout = defaultPatternTimeout
	}

	sections := make([]patternSection, 0, len(patterns))
	for _, pattern := range patterns {
		start := time.Now()
		output, err := a.runner.RunPattern(ctx, content.Text, pattern, timeout)
		if err != nil {
			logger.Warn("Pattern failed",
				slog.String("pattern", pattern),
				slog.String("error", err.Error()),
			)
			sections = append(sections, patternSection{Pattern: pattern, Failed: true})
			continue
		}
		logger.Info("Pattern completed",
			slog.String("pattern", pattern),
			slog.Duration("duration", time.Since(start)),
		)
		sections = append(sections, patternSection{Pattern: pattern, Output: output})
	}

	result.Status = domain.StatusAnalyzed
	result.Content = renderReport(header, sections)
	return result, nil
}

func (a *Analyzer) route(u *url.URL) (Route, error) {
	switch a.policy {
	case VideoOnly:
		if !IsVideoHost(u) {
			return "", domain.ErrNotVideoURL
		}
		return RouteVideo, nil
	case GenericOnly:
		return RouteGeneric, nil
	default:
		return DetectRoute(u), nil
	}
}

func (a *Analyzer) source(route Route) Source {
	if route == RouteVideo {
		return a.video
	}
	return a.generic
}

func (a *Analyzer) noTranscript(result *Result) *Result {
	result.Status = domain.StatusNoTranscript
	result.Content = renderNotice("No Transcript Available", reportHeader{
		URL:           result.URL,
		Route:         RouteVideo,
		Mode:          result.Mode,
		VideoID:       result.VideoID,
		ContentLength: result.ContentLength,
	}, "This video has no transcript available, or the transcript is too short to analyze. "+
		"Try a video with captions enabled.")
	return result
}

func resolveMode(mode string) (string, error) {
	switch mode {
	case "":
		return config.AnalysisStandard, nil
	case config.AnalysisQuick, config.AnalysisStandard, config.AnalysisDeep:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q (expected quick, standard or deep)", domain.ErrInvalidMode, mode)
	}
}
