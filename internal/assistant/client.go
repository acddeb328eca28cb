package assistant

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

var ErrEmptyResponse = errors.New("chat completion returned no choices")

// FunctionCallDecision is the model's request to invoke a named function.
// Arguments is the raw JSON blob as produced by the model.
type FunctionCallDecision struct {
	Name      string
	Arguments string
}

// Reply is the outcome of one chat turn: either free text or a function call.
type Reply struct {
	Content string
	Call    *FunctionCallDecision
}

// Config controls client construction.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// Observer is notified once per completion request.
type Observer func(outcome string, elapsed time.Duration)

// Client asks an OpenAI-compatible chat API which memo function, if any, a
// user message calls for.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	observer    Observer
}

func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		oc.BaseURL = base
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	// The request field is omitempty, so an exact zero would fall back to the API default of 1.
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	return &Client{
		api:         openai.NewClientWithConfig(oc),
		model:       model,
		temperature: temperature,
	}
}

// SetObserver installs a hook used for metrics. Not safe to call concurrently with Decide.
func (c *Client) SetObserver(obs Observer) {
	c.observer = obs
}

// Decide sends message as a single user turn with the memo tools attached.
func (c *Client) Decide(ctx context.Context, message string) (Reply, error) {
	started := time.Now()
	reply, err := c.decide(ctx, message)
	if c.observer != nil {
		outcome := "text"
		switch {
		case err != nil:
			outcome = "error"
		case reply.Call != nil:
			outcome = "function_call"
		}
		c.observer(outcome, time.Since(started))
	}
	return reply, err
}

func (c *Client) decide(ctx context.Context, message string) (Reply, error) {
	resp, err := c.api.CreateChatCompletion(ctx, c.request(message))
	if err != nil {
		return Reply{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Reply{}, ErrEmptyResponse
	}
	return replyFromMessage(resp.Choices[0].Message), nil
}

func (c *Client) request(message string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Tools:       Tools(),
		ToolChoice:  "auto",
		Temperature: c.temperature,
	}
}

// replyFromMessage prefers tool calls and falls back to the legacy function_call field.
func replyFromMessage(msg openai.ChatCompletionMessage) Reply {
	for _, tc := range msg.ToolCalls {
		if tc.Type != "" && tc.Type != openai.ToolTypeFunction {
			continue
		}
		return Reply{Call: &FunctionCallDecision{Name: tc.Function.Name, Arguments: tc.Function.Arguments}}
	}
	if msg.FunctionCall != nil && msg.FunctionCall.Name != "" {
		return Reply{Call: &FunctionCallDecision{Name: msg.FunctionCall.Name, Arguments: msg.FunctionCall.Arguments}}
	}
	return Reply{Content: msg.Content}
}
