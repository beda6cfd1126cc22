package services

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"cornell/internal/models"
)

// cornellMasterPrompt is the built-in instruction template for Cornell note
// generation. Operators can override it through configuration.
const cornellMasterPrompt = `# Cornell Note Generation

You are an expert note-taker producing Cornell-style study notes in Obsidian-flavored markdown.

Output exactly three callout sections, in this order:

1. A main section opening with ` + "`> [!cornell] <topic title>`" + `. Inside it, as nested blockquotes (depth 2):
   - A ` + "`## Questions/Cues`" + ` block listing recall questions as bullet points.
   - A ` + "`## Reference Points`" + ` block listing source locations as bullet points.
   - One ` + "`### <concept>`" + ` sub-block per major concept, each followed by its explanatory lines.
2. A summary section opening with ` + "`> [!summary]`" + ` containing a short synthesis paragraph.
3. A trailing section opening with ` + "`> [!ad-libitum]- Additional Information`" + ` containing related material that goes beyond the sources.

Rules:
- Use single brackets around callout markers, never doubled brackets.
- Every content line inside a section carries blockquote markers at the correct depth.
- Ground the cornell and summary sections strictly in the provided source materials.
- Do not wrap the output in code fences.`

var languageModifiers = map[string]string{
	models.LanguageEnglish:    "Write all notes in English.",
	models.LanguageIndonesian: "Write all notes in Bahasa Indonesia.",
}

var depthModifiers = map[string]string{
	models.DepthConcise:  "Keep the notes concise: only the essential concepts, short explanations.",
	models.DepthBalanced: "Balance coverage and brevity: all major concepts with moderate detail.",
	models.DepthInDepth:  "Cover the material in depth: thorough explanations, examples, and edge cases.",
}

// PromptBuilder assembles the full prompt sent to the model.
type PromptBuilder struct {
	master string
}

// NewPromptBuilder creates a builder. An empty master falls back to the
// built-in Cornell template.
func NewPromptBuilder(master string) *PromptBuilder {
	if strings.TrimSpace(master) == "" {
		master = cornellMasterPrompt
	}
	return &PromptBuilder{master: master}
}

// Build produces the complete prompt for one cluster. With UseDefault set,
// the master template is extended with language and depth modifiers;
// otherwise the caller's custom prompt replaces the template entirely. An
// empty custom prompt falls back to the default template.
func (b *PromptBuilder) Build(topicTitle, sourceContent string, opts models.PromptOptions) string {
	base := b.master

	if !opts.UseDefault {
		if custom := strings.TrimSpace(opts.CustomPrompt); custom != "" {
			base = custom
		} else {
			log.Warn("Custom prompt requested but empty, falling back to default template")
		}
	} else {
		var modifiers []string
		if m, ok := languageModifiers[opts.Language]; ok {
			modifiers = append(modifiers, m)
		}
		if m, ok := depthModifiers[opts.Depth]; ok {
			modifiers = append(modifiers, m)
		}
		if len(modifiers) > 0 {
			base = base + "\n\n" + strings.Join(modifiers, "\n")
		}
	}

	return fmt.Sprintf(`%s

---

## Generate Notes for This Topic

**Topic Title:** %s

**Source Materials:**

%s
`, base, topicTitle, sourceContent)
}
