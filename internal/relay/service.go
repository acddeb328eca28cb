package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ent0n29/vocabrelay/internal/assistant"
	"github.com/ent0n29/vocabrelay/internal/memo"
	"github.com/ent0n29/vocabrelay/internal/policy"
)

const (
	SourceChat    = "ChatGPT"
	SourceWebhook = "GAS"
)

var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrUnsupportedFunction   = errors.New("unsupported function")
	ErrMalformedFunctionArgs = errors.New("malformed function arguments")
)

// Assistant picks a function for a free-form message.
type Assistant interface {
	Decide(ctx context.Context, message string) (assistant.Reply, error)
}

// Webhook delivers envelopes to the sheet backend.
type Webhook interface {
	Send(ctx context.Context, env memo.Envelope) (json.RawMessage, error)
}

// Outcome is what a relay operation produced. Exactly one of Content (Source ==
// SourceChat) or Result (Source == SourceWebhook) is meaningful.
type Outcome struct {
	Source  string
	Content string
	Result  json.RawMessage
}

// Service routes chat messages and direct calls to the webhook. It holds no
// per-request state.
type Service struct {
	assistant Assistant
	webhook   Webhook
	logger    *zap.Logger
}

func NewService(a Assistant, w Webhook, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{assistant: a, webhook: w, logger: logger}
}

// Chat asks the assistant what to do with message and carries out its choice.
func (s *Service) Chat(ctx context.Context, message string) (Outcome, error) {
	if strings.TrimSpace(message) == "" {
		return Outcome{}, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}

	s.logger.Debug("chat message received", zap.String("message", policy.Redact(policy.Truncate(message, 256))))
	reply, err := s.assistant.Decide(ctx, message)
	if err != nil {
		return Outcome{}, err
	}
	if reply.Call == nil {
		return Outcome{Source: SourceChat, Content: reply.Content}, nil
	}

	call, err := memo.ParseFunctionCall(reply.Call.Name, reply.Call.Arguments)
	switch {
	case errors.Is(err, memo.ErrUnsupportedFunction):
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnsupportedFunction, reply.Call.Name)
	case errors.Is(err, memo.ErrMalformedArguments):
		return Outcome{}, fmt.Errorf("%w: %v", ErrMalformedFunctionArgs, err)
	case err != nil:
		return Outcome{}, err
	}

	s.logger.Debug("assistant chose function", zap.String("function", call.Name()))
	return s.forward(ctx, call.Envelope())
}

// AddWord forwards rec without consulting the assistant.
func (s *Service) AddWord(ctx context.Context, rec memo.Record) (Outcome, error) {
	if err := rec.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return s.forward(ctx, memo.AddMemoEnvelope(rec))
}

// GetMemos lists stored records without consulting the assistant.
func (s *Service) GetMemos(ctx context.Context) (Outcome, error) {
	return s.forward(ctx, memo.GetMemosEnvelope())
}

func (s *Service) forward(ctx context.Context, env memo.Envelope) (Outcome, error) {
	result, err := s.webhook.Send(ctx, env)
	if err != nil {
		return Outcome{}, fmt.Errorf("webhook %s: %w", env.Action, err)
	}
	return Outcome{Source: SourceWebhook, Result: result}, nil
}
