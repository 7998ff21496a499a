package analysis

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const failedPatternBody = "_Pattern execution failed._"

// reportHeader is the metadata block shown above the pattern sections
type reportHeader struct {
	Title         string
	URL           string
	Route         Route
	Mode          string
	VideoID       string
	ContentLength int
}

// patternSection is one pattern's output, or its failure
type patternSection struct {
	Pattern string
	Output  string
	Failed  bool
}

// PatternTitle turns a pattern name such as extract_wisdom into a heading
func PatternTitle(pattern string) string {
	words := strings.FieldsFunc(pattern, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// renderReport builds the analysis markdown: one top-level title, the
// metadata lines and exactly one "## " section per pattern in order.
func renderReport(h reportHeader, sections []patternSection) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", reportTitle(h))
	writeMetadata(&b, h)

	for _, s := range sections {
		fmt.Fprintf(&b, "\n## %s\n\n", PatternTitle(s.Pattern))
		if s.Failed {
			b.WriteString(failedPatternBody)
		} else {
			b.WriteString(demoteHeadings(s.Output))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// renderNotice builds the markdown for results that ran no patterns
func renderNotice(title string, h reportHeader, message string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	writeMetadata(&b, h)
	fmt.Fprintf(&b, "\n%s\n", message)

	return b.String()
}

func reportTitle(h reportHeader) string {
	base := "Content Analysis"
	if h.Route == RouteVideo {
		base = "Video Analysis"
	}
	if title := singleLine(h.Title); title != "" {
		return base + ": " + title
	}
	return base
}

func writeMetadata(b *strings.Builder, h reportHeader) {
	fmt.Fprintf(b, "**URL:** %s\n", singleLine(h.URL))
	if h.VideoID != "" {
		fmt.Fprintf(b, "**Video ID:** %s\n", h.VideoID)
	}
	if h.Mode != "" {
		fmt.Fprintf(b, "**Mode:** %s\n", h.Mode)
	}
	fmt.Fprintf(b, "**Content Length:** %d characters\n", h.ContentLength)
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// demoteHeadings pushes every heading in pattern output two levels down so
// the report keeps one "## " heading per pattern. Setext headings are
// rewritten as ATX. Fenced code is left untouched.
func demoteHeadings(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	out := make([]string, 0, len(lines))
	inFence := false
	prevParagraph := false

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			prevParagraph = false
			out = append(out, line)
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}

		switch {
		case isHeading(trimmed):
			out = append(out, "##"+trimmed)
			prevParagraph = false
		case prevParagraph && setextLevel(line) > 0:
			text := strings.TrimSpace(out[len(out)-1])
			out[len(out)-1] = strings.Repeat("#", setextLevel(line)+2) + " " + text
			prevParagraph = false
		default:
			out = append(out, line)
			prevParagraph = isParagraphLine(line)
		}
	}

	return strings.Join(out, "\n")
}

// setextLevel reports 1 for an "===" underline, 2 for "---" and 0 otherwise
func setextLevel(line string) int {
	if len(line)-len(strings.TrimLeft(line, " ")) > 3 {
		return 0
	}
	marker := strings.TrimSpace(line)
	switch {
	case marker == "":
		return 0
	case strings.Trim(marker, "=") == "":
		return 1
	case strings.Trim(marker, "-") == "":
		return 2
	}
	return 0
}

// isParagraphLine reports whether a setext underline after line would make
// it a heading
func isParagraphLine(line string) bool {
	if strings.TrimSpace(line) == "" || len(line)-len(strings.TrimLeft(line, " ")) > 3 {
		return false
	}
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, ">") || isListItem(trimmed) || setextLevel(line) == 2 {
		return false
	}
	return true
}

func isListItem(line string) bool {
	if len(line) >= 2 && strings.ContainsRune("-*+", rune(line[0])) && (line[1] == ' ' || line[1] == '\t') {
		return true
	}
	digits := 0
	for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}
	return digits > 0 && digits+1 < len(line) && (line[digits] == '.' || line[digits] == ')') && line[digits+1] == ' '
}

func isHeading(line string) bool {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return false
	}
	return level == len(line) || line[level] == ' ' || line[level] == '\t'
}
