package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"cornell/internal/models"
)

// DefaultGeminiModel is used when no model is configured for the Gemini
// provider.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiGenerationService produces notes through the Google Gemini API. It
// is the alternative provider for deployments without OpenRouter access.
type GeminiGenerationService struct {
	client  *genai.Client
	model   string
	prompts *PromptBuilder
	timeout time.Duration
}

var _ GenerationService = (*GeminiGenerationService)(nil)

// GeminiConfig carries the tunables for the Gemini client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	Prompts *PromptBuilder
}

// NewGeminiGenerationService builds the service. An empty APIKey falls back
// to the GEMINI_API_KEY environment variable; without either the service is
// created disabled.
func NewGeminiGenerationService(ctx context.Context, cfg GeminiConfig) (*GeminiGenerationService, error) {
	s := &GeminiGenerationService{
		model:   cfg.Model,
		prompts: cfg.Prompts,
		timeout: cfg.Timeout,
	}
	if s.model == "" {
		s.model = DefaultGeminiModel
	}
	if s.timeout <= 0 {
		s.timeout = DefaultRequestTimeout
	}
	if s.prompts == nil {
		s.prompts = NewPromptBuilder("")
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		log.Warn("Gemini API key not provided, Gemini provider disabled")
		return s, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	s.client = client

	log.Infof("Gemini provider initialized with model %s", s.model)
	return s, nil
}

// GenerateNote runs one Gemini completion for the cluster.
func (s *GeminiGenerationService) GenerateNote(ctx context.Context, topicTitle, sourceContent string, opts models.PromptOptions) (string, error) {
	if s.client == nil {
		return "", ErrServiceDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	model := s.client.GenerativeModel(s.model)
	model.SetTemperature(generationTemperature)
	model.SetMaxOutputTokens(generationMaxTokens)

	prompt := s.prompts.Build(topicTitle, sourceContent, opts)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrGenerationTimeout, s.timeout)
		}
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := extractGeminiText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return cleanResponse(text), nil
}

// Close releases the underlying API client.
func (s *GeminiGenerationService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func extractGeminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return sb.String()
}
