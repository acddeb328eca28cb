package httpapi

import (
	"errors"
	"net/http"

	"github.com/ent0n29/vocabrelay/internal/memo"
	"github.com/ent0n29/vocabrelay/internal/relay"
)

type addWordRequest struct {
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
	Example string `json:"example"`
	Memo    string `json:"memo"`
}

func (s *Server) handleAddWord(w http.ResponseWriter, r *http.Request) {
	var req addWordRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	out, err := s.relay.AddWord(r.Context(), memo.Record{
		Word:    req.Word,
		Meaning: req.Meaning,
		Example: req.Example,
		Memo:    req.Memo,
	})
	if errors.Is(err, relay.ErrInvalidRequest) {
		respondError(w, http.StatusBadRequest, "invalid_request", "word and meaning are required")
		return
	}
	if err != nil {
		s.requestLogger(r).Error("addWord webhook call failed", errField(err))
		respondError(w, http.StatusInternalServerError, "upstream_failure", "Failed to call GAS Web App")
		return
	}
	respondOutcome(w, out)
}

func (s *Server) handleGetMemos(w http.ResponseWriter, r *http.Request) {
	out, err := s.relay.GetMemos(r.Context())
	if err != nil {
		s.requestLogger(r).Error("getMemos webhook call failed", errField(err))
		respondError(w, http.StatusInternalServerError, "upstream_failure", "Failed to call GAS Web App for getMemos")
		return
	}
	respondOutcome(w, out)
}
