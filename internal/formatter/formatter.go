package formatter

import (
	"regexp"
	"strings"
)

// Canonical section markers enforced on generated notes.
const (
	MarkerCornell   = "[!cornell]"
	MarkerSummary   = "[!summary]"
	MarkerAdLibitum = "[!ad-libitum]"
)

// calloutFixes rewrites the marker variants models tend to emit
// ([[!cornell]], [!Cornell], [!adlibitum], [!ad_libitum]) to the canonical
// spelling. Spelling variants are fixed before doubled brackets so
// [[!ad_libitum]] collapses all the way down.
var calloutFixes = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\[!adlibitum\]`), MarkerAdLibitum},
	{regexp.MustCompile(`(?i)\[!ad_libitum\]`), MarkerAdLibitum},
	{regexp.MustCompile(`(?i)\[\[!cornell\]\]`), MarkerCornell},
	{regexp.MustCompile(`(?i)\[\[!summary\]\]`), MarkerSummary},
	{regexp.MustCompile(`(?i)\[\[!ad-libitum\]\]`), MarkerAdLibitum},
	{regexp.MustCompile(`(?i)\[!cornell\]`), MarkerCornell},
	{regexp.MustCompile(`(?i)\[!summary\]`), MarkerSummary},
	{regexp.MustCompile(`(?i)\[!ad-libitum\]`), MarkerAdLibitum},
}

var (
	leadingQuoteRe    = regexp.MustCompile(`^[>\s]+`)
	headingPrefixRe   = regexp.MustCompile(`^#+\s*`)
	questionHeadingRe = regexp.MustCompile(`(?i)^#{1,2}\s*(questions?|cues?|reference\s*points?)`)
	conceptHeadingRe  = regexp.MustCompile(`^#{2,4}\s+`)
	doubledCornellRe  = regexp.MustCompile(`(?i)\[\[!cornell\]\]`)
	doubledSummaryRe  = regexp.MustCompile(`(?i)\[\[!summary\]\]`)
	doubledAdLibRe    = regexp.MustCompile(`(?i)\[\[!ad-libitum\]\]`)
	cornellRe         = regexp.MustCompile(`(?i)\[!cornell\]`)
	summaryRe         = regexp.MustCompile(`(?i)\[!summary\]`)
	adLibitumRe       = regexp.MustCompile(`(?i)\[!ad-libitum\]`)
)

// section is the top-level region the line scanner is in.
type section int

const (
	sectionNone section = iota
	sectionCornell
	sectionSummary
	sectionAdLibitum
)

// cornellSub is the sub-state inside the cornell section: plain body lines
// at depth 1, the Questions/Cues/Reference Points block at depth 2, or the
// sequence of concept sub-blocks at depth 2.
type cornellSub int

const (
	subBody cornellSub = iota
	subQuestions
	subConcepts
)

// NoteFormatter post-processes model output into the canonical
// cornell/summary/ad-libitum nested-callout structure. FormatNote is total
// and deterministic: it never fails and is idempotent on its own output.
type NoteFormatter struct{}

func NewNoteFormatter() *NoteFormatter {
	return &NoteFormatter{}
}

// FormatNote rewrites raw generated markdown into the canonical structure.
func (f *NoteFormatter) FormatNote(markdown string) string {
	markdown = fixCalloutSyntax(markdown)
	lines := rebuildStructure(strings.Split(markdown, "\n"))
	lines = insertSectionSpacing(lines)
	lines = cleanupWhitespace(lines)
	return strings.Join(lines, "\n")
}

// ValidateFormat reports residual structural defects after formatting.
// The issues are advisory; callers log them and keep the note.
func (f *NoteFormatter) ValidateFormat(markdown string) (bool, []string) {
	var issues []string

	if doubledCornellRe.MatchString(markdown) {
		issues = append(issues, "Found [[!cornell]] instead of [!cornell]")
	}
	if doubledSummaryRe.MatchString(markdown) {
		issues = append(issues, "Found [[!summary]] instead of [!summary]")
	}
	if doubledAdLibRe.MatchString(markdown) {
		issues = append(issues, "Found [[!ad-libitum]] instead of [!ad-libitum]")
	}

	if !cornellRe.MatchString(markdown) {
		issues = append(issues, "Missing [!cornell] section")
	}
	if !summaryRe.MatchString(markdown) {
		issues = append(issues, "Missing [!summary] section")
	}
	if !adLibitumRe.MatchString(markdown) {
		issues = append(issues, "Missing [!ad-libitum] section")
	}

	return len(issues) == 0, issues
}

func fixCalloutSyntax(text string) string {
	for _, fix := range calloutFixes {
		text = fix.re.ReplaceAllString(text, fix.repl)
	}
	return text
}

// stripQuoteMarkers removes leading blockquote markers and whitespace so a
// line can be re-rendered at its canonical depth.
func stripQuoteMarkers(line string) string {
	return strings.TrimSpace(leadingQuoteRe.ReplaceAllString(line, ""))
}

func markerIn(line string) string {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, MarkerCornell):
		return MarkerCornell
	case strings.Contains(lower, MarkerSummary):
		return MarkerSummary
	case strings.Contains(lower, MarkerAdLibitum):
		return MarkerAdLibitum
	}
	return ""
}

// blankBeforeOpener reports whether every line after i up to the next
// non-blank line is blank and that non-blank line opens a section. Such
// blanks are dropped so the spacing pass can insert exactly one separator,
// which keeps the whole rewrite idempotent.
func blankBeforeOpener(lines []string, i int) bool {
	for j := i + 1; j < len(lines); j++ {
		if stripQuoteMarkers(lines[j]) == "" {
			continue
		}
		return markerIn(lines[j]) != ""
	}
	return false
}

// rebuildStructure is the per-line pass: it tracks which section is open and,
// inside the cornell section, which sub-block, and re-renders every line at
// its canonical blockquote depth.
func rebuildStructure(lines []string) []string {
	result := make([]string, 0, len(lines))
	sec := sectionNone
	sub := subBody
	pendingBlank := false

	flushPending := func() {
		if pendingBlank {
			result = append(result, "> >")
			pendingBlank = false
		}
	}

	lastIsSeparator := func() bool {
		return len(result) > 0 && result[len(result)-1] == ">"
	}

	for i, line := range lines {
		content := stripQuoteMarkers(line)

		if marker := markerIn(line); marker != "" {
			flushPending()
			switch marker {
			case MarkerCornell:
				sec = sectionCornell
				sub = subBody
			case MarkerSummary:
				sec = sectionSummary
			case MarkerAdLibitum:
				sec = sectionAdLibitum
			}
			result = append(result, "> "+content)
			continue
		}

		switch sec {
		case sectionNone:
			result = append(result, line)

		case sectionSummary, sectionAdLibitum:
			if content == "" {
				if !blankBeforeOpener(lines, i) {
					result = append(result, ">")
				}
				continue
			}
			result = append(result, "> "+content)

		case sectionCornell:
			if content == "" {
				if blankBeforeOpener(lines, i) {
					continue
				}
				switch sub {
				case subQuestions:
					pendingBlank = true
				case subConcepts:
					// Concept sub-blocks get their separator from the
					// heading that opens them; stray blanks are dropped.
				default:
					result = append(result, ">")
				}
				continue
			}

			if questionHeadingRe.MatchString(content) {
				flushPending()
				sub = subQuestions
				result = append(result, "> > ## "+headingPrefixRe.ReplaceAllString(content, ""))
				continue
			}

			if conceptHeadingRe.MatchString(content) {
				pendingBlank = false
				sub = subConcepts
				if !lastIsSeparator() {
					result = append(result, ">")
				}
				result = append(result, "> > ### "+headingPrefixRe.ReplaceAllString(content, ""))
				continue
			}

			switch sub {
			case subQuestions:
				flushPending()
				result = append(result, "> > "+content)
			case subConcepts:
				result = append(result, "> > "+content)
			default:
				result = append(result, "> "+content)
			}
		}
	}

	flushPending()
	return result
}

// insertSectionSpacing guarantees one blank line before every section opener.
// The inserted line is empty (no quote marker) so re-running the pass never
// inserts a second separator.
func insertSectionSpacing(lines []string) []string {
	result := make([]string, 0, len(lines)+4)
	for i, line := range lines {
		if isOpenerLine(line) && i > 0 && len(result) > 0 && result[len(result)-1] != "" {
			result = append(result, "")
		}
		result = append(result, line)
	}
	return result
}

func isOpenerLine(line string) bool {
	return strings.HasPrefix(line, "> "+MarkerCornell) ||
		strings.HasPrefix(line, "> "+MarkerSummary) ||
		strings.HasPrefix(line, "> "+MarkerAdLibitum)
}

// cleanupWhitespace trims trailing whitespace and collapses runs of more
// than two consecutive blank-or-bare-marker lines down to two.
func cleanupWhitespace(lines []string) []string {
	result := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" || line == ">" {
			blanks++
			if blanks <= 2 {
				result = append(result, line)
			}
			continue
		}
		blanks = 0
		result = append(result, line)
	}
	return result
}
