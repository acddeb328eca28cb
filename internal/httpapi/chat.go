package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ent0n29/vocabrelay/internal/relay"
	"github.com/ent0n29/vocabrelay/internal/webhook"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatTextResponse struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

type webhookResultResponse struct {
	Source string          `json:"source"`
	Result json.RawMessage `json:"result"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	out, err := s.relay.Chat(r.Context(), req.Message)
	if err != nil {
		s.respondChatError(w, r, err)
		return
	}
	respondOutcome(w, out)
}

func (s *Server) respondChatError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, relay.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required")
	case errors.Is(err, relay.ErrUnsupportedFunction):
		respondError(w, http.StatusBadRequest, "unsupported_function", err.Error())
	case errors.Is(err, relay.ErrMalformedFunctionArgs):
		s.requestLogger(r).Error("chat function arguments rejected", errField(err))
		respondError(w, http.StatusInternalServerError, "malformed_function_args", err.Error())
	default:
		s.requestLogger(r).Error("chat upstream failure", errField(err))
		respondError(w, http.StatusInternalServerError, "upstream_failure", upstreamPayload(err))
	}
}

// upstreamPayload echoes a JSON error body from the webhook when there is one,
// otherwise the error text.
func upstreamPayload(err error) any {
	var upErr *webhook.UpstreamError
	if errors.As(err, &upErr) && upErr.Err == nil && len(upErr.Body) > 0 && json.Valid(upErr.Body) {
		return json.RawMessage(upErr.Body)
	}
	return err.Error()
}

func respondOutcome(w http.ResponseWriter, out relay.Outcome) {
	if out.Source == relay.SourceChat {
		respondJSON(w, http.StatusOK, chatTextResponse{Source: out.Source, Content: out.Content})
		return
	}
	respondJSON(w, http.StatusOK, webhookResultResponse{Source: out.Source, Result: out.Result})
}
