package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"cornell/internal/models"
)

// Defaults for the OpenRouter-backed generator.
const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultGenerationModel   = "tngtech/deepseek-r1t2-chimera:free"
	DefaultRequestTimeout    = 180 * time.Second

	generationTemperature = 0.7
	generationMaxTokens   = 8192
)

// Sentinel errors for generation outcomes.
var (
	ErrGenerationTimeout = errors.New("generation request timed out")
	ErrEmptyCompletion   = errors.New("model returned an empty completion")
	ErrServiceDisabled   = errors.New("generation service is not configured")
)

// GenerationService produces the markdown for one cluster.
type GenerationService interface {
	GenerateNote(ctx context.Context, topicTitle, sourceContent string, opts models.PromptOptions) (string, error)
}

// OpenRouterGenerationService calls OpenRouter's OpenAI-compatible chat API.
type OpenRouterGenerationService struct {
	client  *openai.Client
	model   string
	prompts *PromptBuilder
	timeout time.Duration
}

var _ GenerationService = (*OpenRouterGenerationService)(nil)

// OpenRouterConfig carries the tunables for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Prompts *PromptBuilder
}

// NewOpenRouterGenerationService builds the service. Without an API key the
// service is created disabled and every call returns ErrServiceDisabled.
func NewOpenRouterGenerationService(cfg OpenRouterConfig) *OpenRouterGenerationService {
	s := &OpenRouterGenerationService{
		model:   cfg.Model,
		prompts: cfg.Prompts,
		timeout: cfg.Timeout,
	}
	if s.model == "" {
		s.model = DefaultGenerationModel
	}
	if s.timeout <= 0 {
		s.timeout = DefaultRequestTimeout
	}
	if s.prompts == nil {
		s.prompts = NewPromptBuilder("")
	}

	if cfg.APIKey == "" {
		log.Warn("OpenRouter API key not set, note generation disabled")
		return s
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if clientCfg.BaseURL == "" {
		clientCfg.BaseURL = DefaultOpenRouterBaseURL
	}
	s.client = openai.NewClientWithConfig(clientCfg)
	return s
}

// GenerateNote runs one chat completion for the cluster and returns the
// cleaned markdown.
func (s *OpenRouterGenerationService) GenerateNote(ctx context.Context, topicTitle, sourceContent string, opts models.PromptOptions) (string, error) {
	if s.client == nil {
		return "", ErrServiceDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := s.prompts.Build(topicTitle, sourceContent, opts)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: generationTemperature,
		MaxTokens:   generationMaxTokens,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrGenerationTimeout, s.timeout)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}

	return cleanResponse(resp.Choices[0].Message.Content), nil
}

// cleanResponse strips code fences models sometimes wrap the output in.
func cleanResponse(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```markdown") {
		text = text[len("```markdown"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
