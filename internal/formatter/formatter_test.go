package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNote_CalloutSyntax(t *testing.T) {
	f := NewNoteFormatter()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "doubled cornell brackets",
			input:    "[[!cornell]] Intro\n\nSome fact",
			expected: "> [!cornell] Intro\n>\n> Some fact",
		},
		{
			name:     "case normalization",
			input:    "[!Cornell] Intro",
			expected: "> [!cornell] Intro",
		},
		{
			name:     "underscore ad-libitum variant",
			input:    "[!ad_libitum]- Extra",
			expected: "> [!ad-libitum]- Extra",
		},
		{
			name:     "no-hyphen ad-libitum variant",
			input:    "[!adlibitum]- Extra",
			expected: "> [!ad-libitum]- Extra",
		},
		{
			name:     "doubled underscore variant collapses fully",
			input:    "[[!ad_libitum]]- Extra",
			expected: "> [!ad-libitum]- Extra",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.FormatNote(tt.input))
		})
	}
}

func TestFormatNote_CornellStructure(t *testing.T) {
	f := NewNoteFormatter()

	input := strings.Join([]string{
		"[[!Cornell]] Topic One",
		"",
		"## Questions/Cues",
		"- What is X?",
		"",
		"## Reference Points",
		"- p. 12",
		"",
		"### Major Concept",
		"X is a thing.",
		"Another line.",
		"",
		"### Second Concept",
		"More.",
		"",
		"[!Summary]",
		"One paragraph.",
		"",
		"[[!ad-libitum]]- Additional Information",
		"Extra trivia.",
	}, "\n")

	expected := strings.Join([]string{
		"> [!cornell] Topic One",
		">",
		"> > ## Questions/Cues",
		"> > - What is X?",
		"> >",
		"> > ## Reference Points",
		"> > - p. 12",
		">",
		"> > ### Major Concept",
		"> > X is a thing.",
		"> > Another line.",
		">",
		"> > ### Second Concept",
		"> > More.",
		"",
		"> [!summary]",
		"> One paragraph.",
		"",
		"> [!ad-libitum]- Additional Information",
		"> Extra trivia.",
	}, "\n")

	assert.Equal(t, expected, f.FormatNote(input))
}

func TestFormatNote_AlreadyQuotedInput(t *testing.T) {
	f := NewNoteFormatter()

	// Quote markers the model already emitted are stripped and re-rendered
	// at canonical depth.
	input := strings.Join([]string{
		"> > [!cornell] Deeply quoted",
		"> > ",
		"> > ## Questions",
		"> > > - nested question",
	}, "\n")

	expected := strings.Join([]string{
		"> [!cornell] Deeply quoted",
		">",
		"> > ## Questions",
		"> > - nested question",
	}, "\n")

	assert.Equal(t, expected, f.FormatNote(input))
}

func TestFormatNote_HeadingDepthFolding(t *testing.T) {
	f := NewNoteFormatter()

	// Headings at levels 2-4 that are not Questions/Cues/Reference Points
	// all fold to a level-3 concept heading at depth 2.
	input := strings.Join([]string{
		"[!cornell] T",
		"#### Deep Concept",
		"body",
		"## Shallow Concept",
		"more",
	}, "\n")

	expected := strings.Join([]string{
		"> [!cornell] T",
		">",
		"> > ### Deep Concept",
		"> > body",
		">",
		"> > ### Shallow Concept",
		"> > more",
	}, "\n")

	assert.Equal(t, expected, f.FormatNote(input))
}

func TestFormatNote_TotalFunction(t *testing.T) {
	f := NewNoteFormatter()

	inputs := []string{
		"",
		"\n\n\n",
		"plain text with no markers",
		"just > a quote\n> another",
		strings.Repeat("x", 10000),
		"[!cornell]",
		"[!summary]\n\n\n\n\n[!ad-libitum]",
	}

	for _, in := range inputs {
		assert.NotPanics(t, func() { f.FormatNote(in) })
	}
}

func TestFormatNote_Idempotent(t *testing.T) {
	f := NewNoteFormatter()

	inputs := []string{
		"",
		"no markers at all\n\nplain paragraph",
		"[[!cornell]] Intro\n\nSome fact",
		strings.Join([]string{
			"[!cornell] Topic",
			"intro line",
			"",
			"## Questions/Cues",
			"- q1",
			"",
			"- q2",
			"",
			"## Reference Points",
			"- r1",
			"",
			"### Concept A",
			"alpha",
			"",
			"",
			"### Concept B",
			"beta",
			"",
			"[!summary]",
			"",
			"sum",
			"",
			"[!ad-libitum]- More",
			"extra",
		}, "\n"),
		"preamble text\n\n\n\n[!cornell] X\n\n\ntext\n[!summary]\nend",
		"[!cornell]\n#### deep\nbody\n\n## Cues\n- c\n### next concept",
	}

	for i, in := range inputs {
		once := f.FormatNote(in)
		twice := f.FormatNote(once)
		require.Equal(t, once, twice, "input %d not idempotent", i)
		require.Equal(t, once, f.FormatNote(twice), "input %d not stable on third pass", i)
	}
}

func TestFormatNote_CollapsesBlankRuns(t *testing.T) {
	f := NewNoteFormatter()

	out := f.FormatNote("[!cornell] T\n\n\n\n\ntext")
	assert.Equal(t, "> [!cornell] T\n>\n>\n> text", out)
}

func TestValidateFormat(t *testing.T) {
	f := NewNoteFormatter()

	t.Run("valid note", func(t *testing.T) {
		ok, issues := f.ValidateFormat("> [!cornell] T\n\n> [!summary]\n\n> [!ad-libitum]- X")
		assert.True(t, ok)
		assert.Empty(t, issues)
	})

	t.Run("missing sections", func(t *testing.T) {
		ok, issues := f.ValidateFormat("> [!cornell] T")
		assert.False(t, ok)
		assert.Equal(t, []string{
			"Missing [!summary] section",
			"Missing [!ad-libitum] section",
		}, issues)
	})

	t.Run("doubled brackets flagged first", func(t *testing.T) {
		ok, issues := f.ValidateFormat("[[!cornell]] T\n[!summary]\n[!ad-libitum]")
		assert.False(t, ok)
		require.NotEmpty(t, issues)
		assert.Equal(t, "Found [[!cornell]] instead of [!cornell]", issues[0])
	})

	t.Run("all checks evaluated", func(t *testing.T) {
		ok, issues := f.ValidateFormat("[[!summary]]")
		assert.False(t, ok)
		// Doubled summary, plus missing cornell and ad-libitum. The doubled
		// marker still contains the canonical spelling, so the missing
		// [!summary] check does not fire.
		assert.Len(t, issues, 3)
	})

	t.Run("empty input", func(t *testing.T) {
		ok, issues := f.ValidateFormat("")
		assert.False(t, ok)
		assert.Len(t, issues, 3)
	})
}

func TestValidateFormat_CleanAfterFormat(t *testing.T) {
	f := NewNoteFormatter()

	raw := "[[!cornell]] T\ncontent\n[[!summary]]\nsum\n[[!ad-libitum]]- x\nextra"
	ok, issues := f.ValidateFormat(f.FormatNote(raw))
	assert.True(t, ok, "unexpected issues: %v", issues)
}
