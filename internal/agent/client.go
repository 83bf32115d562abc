package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"

	"health-report-agent/internal/consultation"
)

const (
	DefaultBaseURL = "https://api.deepseek.com"
	DefaultModel   = "deepseek-chat"

	temperature = 0.3
	maxTokens   = 1500
)

// DefaultSystemPrompt keeps the model on medical topics and makes every
// answer end with the disclaimer sentence.
const DefaultSystemPrompt = `You are a strictly medical-only AI health assistant.

RULES:
1. You ONLY answer questions related to:
   - symptoms
   - diseases and causes
   - possible diagnosis (informational only)
   - safe OTC medications
   - home-care guidance
   - when to seek urgent or emergency care

2. If user asks ANYTHING non-medical:
   Reply exactly: "I can only help with medical or health-related questions."

3. Do NOT give:
   - prescription medication
   - harmful instructions
   - non-medical advice

4. Your answers MUST:
   - Ask clarifying questions when needed
   - Suggest possible causes (NOT a diagnosis)
   - Give safe OTC remedies
   - Tell when to seek emergency care
   - Use simple, empathetic language

End EVERY answer with:
"I am not a medical professional. This is general information only."`

type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
}

type DeepSeekClient struct {
	client       openai.Client
	model        string
	systemPrompt string
	log          logrus.FieldLogger
}

// NewDeepSeekClient talks to any OpenAI-compatible chat completions API;
// DeepSeek is the default endpoint.
func NewDeepSeekClient(cfg Config, log logrus.FieldLogger) *DeepSeekClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}

	return &DeepSeekClient{
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(baseURL),
		),
		model:        model,
		systemPrompt: prompt,
		log:          log,
	}
}

// Reply sends the system prompt followed by the whole history and returns
// the assistant's answer.
func (c *DeepSeekClient) Reply(ctx context.Context, history []consultation.Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    buildMessages(c.systemPrompt, history),
		MaxTokens:   openai.Int(maxTokens),
		Temperature: openai.Float(temperature),
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("deepseek chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	c.log.WithFields(logrus.Fields{
		"model":             c.model,
		"duration_ms":       time.Since(start).Milliseconds(),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("agent chat completed")

	return resp.Choices[0].Message.Content, nil
}

func buildMessages(systemPrompt string, history []consultation.Message) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	msgs = append(msgs, openai.SystemMessage(systemPrompt))
	for _, m := range history {
		switch m.Role {
		case consultation.RoleUser:
			msgs = append(msgs, openai.UserMessage(m.Content))
		case consultation.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		}
	}
	return msgs
}
