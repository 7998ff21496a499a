package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sectionHeadings(markdown string) []string {
	var headings []string
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "## ") {
			headings = append(headings, strings.TrimPrefix(line, "## "))
		}
	}
	return headings
}

func TestPatternTitle(t *testing.T) {
	tests := map[string]string{
		"summarize":        "Summarize",
		"extract_wisdom":   "Extract Wisdom",
		"analyze_claims":   "Analyze Claims",
		"create-5-bullets": "Create 5 Bullets",
		"élan_vital":       "Élan Vital",
		"":                 "",
	}

	for in, want := range tests {
		assert.Equal(t, want, PatternTitle(in), in)
	}
}

func TestRenderReport(t *testing.T) {
	header := reportHeader{
		Title:         "Never\nGonna",
		URL:           "https://youtu.be/dQw4w9WgXcQ",
		Route:         RouteVideo,
		Mode:          "standard",
		VideoID:       "dQw4w9WgXcQ",
		ContentLength: 2048,
	}
	sections := []patternSection{
		{Pattern: "summarize", Output: "# ONE SENTENCE SUMMARY\n\nA song.\n\n## MAIN POINTS\n\n- a"},
		{Pattern: "extract_wisdom", Failed: true},
	}

	got := renderReport(header, sections)

	assert.True(t, strings.HasPrefix(got, "# Video Analysis: Never Gonna\n\n"))
	assert.Contains(t, got, "**URL:** https://youtu.be/dQw4w9WgXcQ\n")
	assert.Contains(t, got, "**Video ID:** dQw4w9WgXcQ\n")
	assert.Contains(t, got, "**Mode:** standard\n")
	assert.Contains(t, got, "**Content Length:** 2048 characters\n")
	assert.Contains(t, got, "### ONE SENTENCE SUMMARY")
	assert.Contains(t, got, "#### MAIN POINTS")
	assert.Contains(t, got, "## Extract Wisdom\n\n_Pattern execution failed._\n")
	assert.Equal(t, []string{"Summarize", "Extract Wisdom"}, sectionHeadings(got))
}

func TestRenderNotice(t *testing.T) {
	got := renderNotice("Insufficient Content", reportHeader{URL: "https://example.com", ContentLength: 12}, "Too short.")

	assert.Equal(t, "# Insufficient Content\n\n**URL:** https://example.com\n**Content Length:** 12 characters\n\nToo short.\n", got)
	assert.Empty(t, sectionHeadings(got))
}

func TestDemoteHeadings(t *testing.T) {
	in := "# Title\n##Not a heading\n## Sub\n```\n# comment in code\n```\n  ### Indented\n#hashtag"
	want := "### Title\n##Not a heading\n#### Sub\n```\n# comment in code\n```\n##### Indented\n#hashtag"

	assert.Equal(t, want, demoteHeadings(in))
}

func TestDemoteHeadings_Setext(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "dash underline",
			in:   "Overview\n--------\nbody",
			want: "#### Overview\nbody",
		},
		{
			name: "equals underline",
			in:   "Summary\n===\n\ntext",
			want: "### Summary\n\ntext",
		},
		{
			name: "thematic break after blank line",
			in:   "para\n\n---\nmore",
			want: "para\n\n---\nmore",
		},
		{
			name: "dash after list item",
			in:   "- item\n---",
			want: "- item\n---",
		},
		{
			name: "underline inside code fence",
			in:   "```\ntext\n---\n```",
			want: "```\ntext\n---\n```",
		},
		{
			name: "underline after atx heading",
			in:   "# Title\n---",
			want: "### Title\n---",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, demoteHeadings(tt.in))
		})
	}
}

func TestRenderReport_SetextOutputKeepsOneSectionHeading(t *testing.T) {
	got := renderReport(reportHeader{URL: "https://example.com", Mode: "quick", ContentLength: 200}, []patternSection{
		{Pattern: "summarize", Output: "Overview\n--------\nbody"},
	})

	assert.Equal(t, []string{"Summarize"}, sectionHeadings(got))
	assert.Contains(t, got, "#### Overview\nbody")
	assert.NotContains(t, got, "--------")
}
