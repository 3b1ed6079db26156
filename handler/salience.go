package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/salience-gateway/gateway/service"
	"github.com/salience-gateway/gateway/traceid"
)

// SalienceHandler serves the gateway's one request-path endpoint.
type SalienceHandler struct {
	svc    *service.Service
	logger zerolog.Logger
}

// NewSalienceHandler creates a new salience handler.
func NewSalienceHandler(svc *service.Service, logger zerolog.Logger) *SalienceHandler {
	return &SalienceHandler{
		svc:    svc,
		logger: logger.With().Str("handler", "salience").Logger(),
	}
}

type evaluateRequestBody struct {
	EventID   string    `json:"event_id,omitempty"`
	EventText string    `json:"event_text"`
	Embedding []float64 `json:"embedding,omitempty"`
}

type evaluateResponseBody struct {
	EventID                 string `json:"event_id"`
	Salience                vector `json:"salience"`
	FromCache               bool   `json:"from_cache"`
	MatchedHeuristicID      string `json:"matched_heuristic_id"`
	Error                   string `json:"error"`
	NoveltyDetectionSkipped bool   `json:"novelty_detection_skipped"`
}

type vector struct {
	Threat        float64 `json:"threat"`
	Opportunity   float64 `json:"opportunity"`
	Humor         float64 `json:"humor"`
	Novelty       float64 `json:"novelty"`
	GoalRelevance float64 `json:"goal_relevance"`
	Social        float64 `json:"social"`
	Emotional     float64 `json:"emotional"`
	Actionability float64 `json:"actionability"`
	Habituation   float64 `json:"habituation"`
}

// Evaluate handles POST /v1/salience/evaluate.
func (h *SalienceHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var body evaluateRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if body.EventText == "" && body.Embedding == nil {
		writeError(w, http.StatusBadRequest, "event_text or embedding is required")
		return
	}

	eventID := uuid.New()
	if body.EventID != "" {
		parsed, err := uuid.Parse(body.EventID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid event_id")
			return
		}
		eventID = parsed
	}

	traceID := traceid.FromRequest(r)
	resp, err := h.svc.EvaluateSalience(r.Context(), service.EvaluateRequest{
		EventID:   eventID,
		EventText: body.EventText,
		Embedding: body.Embedding,
		TraceID:   traceID,
	})
	if err != nil {
		// EvaluateSalience still returns a usable novelty-only response
		// alongside the error (the storage fallback failed); degrade
		// rather than fail the call outright, and surface the failure on
		// the wire body's error field rather than only logging it.
		h.logger.Warn().Err(err).Str("trace_id", traceID).Msg("evaluate_salience degraded to novelty-only")
	}

	matchedID := ""
	if resp.MatchedHeuristicID != nil {
		matchedID = resp.MatchedHeuristicID.String()
	}

	writeJSON(w, http.StatusOK, evaluateResponseBody{
		EventID: resp.EventID.String(),
		Salience: vector{
			Threat:        resp.Salience.Threat,
			Opportunity:   resp.Salience.Opportunity,
			Humor:         resp.Salience.Humor,
			Novelty:       resp.Salience.Novelty,
			GoalRelevance: resp.Salience.GoalRelevance,
			Social:        resp.Salience.Social,
			Emotional:     resp.Salience.Emotional,
			Actionability: resp.Salience.Actionability,
			Habituation:   resp.Salience.Habituation,
		},
		FromCache:               resp.FromCache,
		MatchedHeuristicID:      matchedID,
		Error:                   resp.Error,
		NoveltyDetectionSkipped: resp.NoveltyDetectionSkipped,
	})
}
