package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/blog-platform/internal/service"
)

// AIHandler exposes the writing assistant.
type AIHandler struct {
	ai     *service.AIService
	logger *slog.Logger
}

func NewAIHandler(ai *service.AIService, logger *slog.Logger) *AIHandler {
	return &AIHandler{ai: ai, logger: logger}
}

type aiRequest struct {
	Text   string `json:"text"`
	Prompt string `json:"prompt"`
}

// HandleSummary: POST /api/ai/summary {text} → {summary}
func (h *AIHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	var req aiRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	summary, err := h.ai.Summarize(r.Context(), req.Text)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// HandleContent: POST /api/ai/content {text} → {title, content, summary}
func (h *AIHandler) HandleContent(w http.ResponseWriter, r *http.Request) {
	var req aiRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	post, err := h.ai.GeneratePost(r.Context(), req.Text)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleImage: POST /api/ai/image {prompt} → {imageUrl}
func (h *AIHandler) HandleImage(w http.ResponseWriter, r *http.Request) {
	var req aiRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	url, err := h.ai.GenerateImage(r.Context(), req.Prompt)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"imageUrl": url})
}
