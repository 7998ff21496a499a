package domain

// Analysis result statuses
const (
	StatusAnalyzed            = "analyzed"
	StatusNoTranscript        = "no_transcript"
	StatusInsufficientContent = "insufficient_content"
	StatusAnalysisUnavailable = "analysis_unavailable"
)

// Tool names reported by /health
const (
	ToolGeneric         = "generic-tool"
	ToolYouTubeAnalyzer = "youtube-analyzer"
	ToolContentAnalyzer = "content-analyzer"
	ToolURLAnalyzer     = "url-analyzer"
)
