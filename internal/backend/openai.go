package backend

// #region imports
import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/agent"
)

// #endregion

// #region config

// OpenAIConfig configures the hosted chat-completion backend.
type OpenAIConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint, e.g. for a compatible proxy.
	BaseURL      string
	DefaultModel string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
}

// DefaultOpenAIConfig returns gpt-4o-mini with a neutral system prompt.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		DefaultModel: "gpt-4o-mini",
		SystemPrompt: "You are a member of a starship crew advising on the request you are given.",
		MaxTokens:    512,
		Temperature:  0.7,
	}
}

// Confidence reported for each finish reason. The API exposes no
// per-answer confidence, so a completed answer scores higher than a cut-off one.
var finishConfidence = map[openai.FinishReason]float64{
	openai.FinishReasonStop:   0.8,
	openai.FinishReasonLength: 0.6,
}

const unknownFinishConfidence = 0.5

// ErrNoChoices is returned when the API answers without any choice.
var ErrNoChoices = errors.New("openai returned no choices")

// #endregion

// #region invoker

// OpenAIInvoker sends prompts to an OpenAI-compatible chat completion API.
// Backend ids take the form "openai:<model>"; "openai" alone uses the
// default model.
type OpenAIInvoker struct {
	client *openai.Client
	config OpenAIConfig
	logger *zap.Logger
}

// NewOpenAIInvoker creates an invoker. logger may be nil.
func NewOpenAIInvoker(config OpenAIConfig, logger *zap.Logger) *OpenAIInvoker {
	clientCfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientCfg.BaseURL = config.BaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIInvoker{
		client: openai.NewClientWithConfig(clientCfg),
		config: config,
		logger: logger.Named("openai"),
	}
}

// Invoke implements agent.Invoker.
func (o *OpenAIInvoker) Invoke(ctx context.Context, backendID, prompt string) (agent.Response, error) {
	_, model := SplitBackendID(backendID)
	if model == "" {
		model = o.config.DefaultModel
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.config.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   o.config.MaxTokens,
		Temperature: o.config.Temperature,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return agent.Response{}, fmt.Errorf("openai %s: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return agent.Response{}, fmt.Errorf("openai %s: %w", model, ErrNoChoices)
	}

	choice := resp.Choices[0]
	conf, ok := finishConfidence[choice.FinishReason]
	if !ok {
		conf = unknownFinishConfidence
	}
	o.logger.Debug("completion received",
		zap.String("model", model),
		zap.String("finish_reason", string(choice.FinishReason)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return agent.Response{Content: choice.Message.Content, Confidence: conf}, nil
}

// #endregion
