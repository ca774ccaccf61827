package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/assistant"
	"github.com/dvloznov/finance-dashboard/internal/txview"
)

// AssistantHandler answers questions about the current transactions view.
type AssistantHandler struct {
	feed      TransactionFeed
	assistant assistant.Assistant
	now       func() time.Time
	log       zerolog.Logger
}

// NewAssistantHandler creates a new assistant handler. A nil assistant
// makes the endpoint answer 503.
func NewAssistantHandler(feed TransactionFeed, a assistant.Assistant, log zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{
		feed:      feed,
		assistant: a,
		now:       time.Now,
		log:       log,
	}
}

// Ask handles POST /api/assistant
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Assistant is not configured")
		return
	}

	var req struct {
		Question string `json:"question"`
		Search   string `json:"search"`
		Type     string `json:"type"`
		Sort     string `json:"sort"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := txview.ParseState(req.Search, req.Type, req.Sort)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	view := txview.Derive(h.feed.Snapshot().Transactions, state, h.now())
	answer, err := h.assistant.Answer(r.Context(), req.Question, view)
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyQuestion) {
			middleware.WriteError(w, http.StatusBadRequest, "Question is required")
			return
		}
		h.log.Error().Err(err).Msg("Assistant request failed")
		middleware.WriteError(w, http.StatusBadGateway, "Assistant request failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"answer": answer,
		"state":  view.State,
		"stats":  view.Stats,
	})
}
