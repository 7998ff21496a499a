// Package tool holds the interchangeable tools the executor can serve.
package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongbtq/tool-sidecar/internal/config"
	"github.com/cuongbtq/tool-sidecar/internal/executor/analysis"
	"github.com/cuongbtq/tool-sidecar/internal/executor/domain"
)

// Tool executes one request's input and returns a JSON-serializable result
type Tool interface {
	Name() string
	Execute(ctx context.Context, input map[string]any) (any, error)
}

// New returns the tool for mode. Analyzer tools share cfg and differ only
// in their route policy.
func New(mode string, cfg analysis.Config) (Tool, error) {
	switch mode {
	case config.ToolModeGeneric:
		return NewEchoTool(), nil
	case config.ToolModeYouTubeAnalyzer:
		cfg.Policy = analysis.VideoOnly
		return NewAnalyzerTool(domain.ToolYouTubeAnalyzer, analysis.NewAnalyzer(cfg)), nil
	case config.ToolModeContentAnalyzer:
		cfg.Policy = analysis.GenericOnly
		return NewAnalyzerTool(domain.ToolContentAnalyzer, analysis.NewAnalyzer(cfg)), nil
	case config.ToolModeAuto, "":
		cfg.Policy = analysis.RouteByHost
		return NewAnalyzerTool(domain.ToolURLAnalyzer, analysis.NewAnalyzer(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown tool mode: %q", mode)
	}
}

// EchoTool is the placeholder tool: it echoes its input back
type EchoTool struct {
	now func() time.Time
}

func NewEchoTool() *EchoTool {
	return &EchoTool{now: time.Now}
}

func (t *EchoTool) Name() string { return domain.ToolGeneric }

func (t *EchoTool) Execute(_ context.Context, input map[string]any) (any, error) {
	return map[string]any{
		"message":        "Tool execution placeholder - configure a tool mode to run real analysis",
		"input_received": input,
		"timestamp":      t.now().UTC().Format(time.RFC3339Nano),
	}, nil
}

// AnalyzerTool adapts an analyzer to the tool contract. It reads "url" and
// the optional "mode" from the input.
type AnalyzerTool struct {
	name     string
	analyzer *analysis.Analyzer
}

func NewAnalyzerTool(name string, analyzer *analysis.Analyzer) *AnalyzerTool {
	return &AnalyzerTool{name: name, analyzer: analyzer}
}

func (t *AnalyzerTool) Name() string { return t.name }

func (t *AnalyzerTool) Execute(ctx context.Context, input map[string]any) (any, error) {
	rawURL, _ := input["url"].(string)

	mode, ok := input["mode"].(string)
	if raw, present := input["mode"]; present && raw != nil && !ok {
		// A missing URL still takes precedence over a bad mode
		if _, err := analysis.ParseURL(rawURL); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v (expected quick, standard or deep)", domain.ErrInvalidMode, raw)
	}

	result, err := t.analyzer.Analyze(ctx, analysis.Request{URL: rawURL, Mode: mode})
	if err != nil {
		return nil, err
	}
	return result, nil
}
