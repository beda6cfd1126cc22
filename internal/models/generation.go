package models

// GenerationStatus is the polling snapshot of one generation task. The
// owning orchestrator is the only writer; API callers receive copies.
type GenerationStatus struct {
	TaskID            string   `json:"task_id"`
	Status            string   `json:"status"`
	Progress          float64  `json:"progress"`
	CurrentCluster    string   `json:"current_cluster,omitempty"`
	CompletedClusters []string `json:"completed_clusters"`
	FailedClusters    []string `json:"failed_clusters"`
}

// PromptOptions selects how the generation prompt is assembled.
// When UseDefault is false, CustomPrompt replaces the built-in master prompt
// and the structural normalizer is skipped (the caller owns the output shape).
type PromptOptions struct {
	UseDefault   bool   `json:"use_default"`
	Language     string `json:"language"`
	Depth        string `json:"depth"`
	CustomPrompt string `json:"custom_prompt,omitempty"`
}

// DefaultPromptOptions returns the balanced English default prompt setup.
func DefaultPromptOptions() PromptOptions {
	return PromptOptions{
		UseDefault: true,
		Language:   LanguageEnglish,
		Depth:      DepthBalanced,
	}
}
