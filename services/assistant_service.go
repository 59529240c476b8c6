package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kendall-kelly/nafs-essence-api/logging"
	"github.com/kendall-kelly/nafs-essence-api/models"
	"github.com/kendall-kelly/nafs-essence-api/telemetry"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = telemetry.Tracer("github.com/kendall-kelly/nafs-essence-api/services")

// Fixed replies used when the language model gives nothing usable
const (
	DescribeEmptyFallback  = "A mysterious blend crafted for the soul."
	DescribeErrorFallback  = "An exquisite essence of unmatched quality."
	RecommendEmptyFallback = "I recommend our signature Midnight Oud for a timeless experience."
	RecommendErrorFallback = "I recommend exploring our Oud collection for a truly profound experience."
)

// ErrAssistantUnavailable is logged when no language model is configured
var ErrAssistantUnavailable = errors.New("assistant is not configured")

// Completer sends a single prompt to a language model and returns its text reply
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer
type CompleterFunc func(ctx context.Context, model, prompt string) (string, error)

// Complete implements Completer
func (f CompleterFunc) Complete(ctx context.Context, model, prompt string) (string, error) {
	return f(ctx, model, prompt)
}

// OpenAICompleter calls an OpenAI compatible chat completions endpoint
type OpenAICompleter struct {
	client openai.Client
}

// NewOpenAICompleter creates a completer for baseURL. Requests are never retried.
func NewOpenAICompleter(apiKey, baseURL string) *OpenAICompleter {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAICompleter{client: openai.NewClient(opts...)}
}

// Complete implements Completer
func (c *OpenAICompleter) Complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// AssistantModels names the model used for each task
type AssistantModels struct {
	Describe  string
	Recommend string
}

// AssistantService writes product copy and recommends products.
// It never fails: every error is logged and replaced by a fixed reply.
type AssistantService struct {
	completer Completer
	models    AssistantModels
	logger    *slog.Logger
}

// NewAssistantService creates the assistant. A nil completer makes every call
// return its error fallback.
func NewAssistantService(completer Completer, m AssistantModels, logger *slog.Logger) *AssistantService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AssistantService{completer: completer, models: m, logger: logger}
}

// Describe writes a short luxury description for a product
func (s *AssistantService) Describe(ctx context.Context, name, category string) string {
	prompt := fmt.Sprintf(`You are a world-class luxury perfume copywriter for "Nafs Essence".
Write a short, evocative, and sophisticated description for a perfume oil.
Name: %s
Category: %s
Tone: Deep, traditional, elegant, and mysterious.
Length: 2-3 sentences max. Do not use emojis.`, name, category)

	return s.complete(ctx, "describe", s.models.Describe, prompt, DescribeEmptyFallback, DescribeErrorFallback)
}

// Recommend answers a shopper's request with one or two products from the catalog
func (s *AssistantService) Recommend(ctx context.Context, request string, products []models.Product) string {
	var inventory strings.Builder
	for i, p := range products {
		if i > 0 {
			inventory.WriteString("\n")
		}
		fmt.Fprintf(&inventory, "- %s: %s (Category: %s)", p.Name, p.Description, p.Category)
	}

	prompt := fmt.Sprintf(`You are the "Scent Alchemist" for Nafs Essence, a luxury perfume oil boutique.

Our Current Inventory:
%s

User Request: "%s"

Your Task: Recommend 1 or 2 specific oils from our inventory that match the user's request.
Explain why in a poetic, high-end manner. If nothing matches, suggest our signature Midnight Oud.
Keep the response concise (under 80 words).`, inventory.String(), request)

	return s.complete(ctx, "recommend", s.models.Recommend, prompt, RecommendEmptyFallback, RecommendErrorFallback)
}

func (s *AssistantService) complete(ctx context.Context, task, model, prompt, emptyFallback, errorFallback string) string {
	ctx, span := tracer.Start(ctx, "assistant."+task)
	span.SetAttributes(attribute.String("assistant.model", model))

	var err error
	defer func() { telemetry.End(span, err) }()

	if s.completer == nil {
		err = ErrAssistantUnavailable
		s.logger.Warn("assistant request failed", "task", task, "error", err)
		return errorFallback
	}

	reply, err := s.completer.Complete(ctx, model, prompt)
	if err != nil {
		s.logger.Error("assistant request failed", "task", task, "model", model, "error", err)
		return errorFallback
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		span.SetAttributes(attribute.Bool("assistant.empty_reply", true))
		return emptyFallback
	}
	return reply
}
