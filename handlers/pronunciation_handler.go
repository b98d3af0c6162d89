package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"speakUpAPI/middleware"
	"speakUpAPI/services"
)

type PronunciationHandler struct {
	scorer       *services.PronunciationService
	progression  *services.ProgressionService
	notifService *services.NotificationService
}

func NewPronunciationHandler(scorer *services.PronunciationService, progression *services.ProgressionService, notifService *services.NotificationService) *PronunciationHandler {
	return &PronunciationHandler{
		scorer:       scorer,
		progression:  progression,
		notifService: notifService,
	}
}

type assessRequest struct {
	Transcript    string `json:"transcript"`
	ReferenceText string `json:"reference_text"`
}

// ScorePhrase runs the scorer without touching progression state. Used by
// the practice screen for instant feedback.
func (h *PronunciationHandler) ScorePhrase(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	score, err := h.scorer.Score(req.Transcript, req.ReferenceText)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, score)
}

// RecordAttempt scores the transcript and feeds the result into the
// progression engine. This is the main lesson-flow endpoint.
func (h *PronunciationHandler) RecordAttempt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req assessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	score, err := h.scorer.Score(req.Transcript, req.ReferenceText)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.progression.RecordSession(ctx, clerkID, score)
	if err != nil {
		if errors.Is(err, services.ErrPersistenceFailed) {
			// The session was applied in memory; hand the result back so the
			// client can retry the save without recomputing.
			respondWithJSON(w, http.StatusInternalServerError, map[string]any{
				"error":  "Session recorded but not saved, please retry",
				"score":  score,
				"result": result,
			})
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.notifService != nil {
		go h.notifService.NotifySessionMilestones(context.Background(), clerkID, result)
	}

	middleware.RecordSessionScored(score.Overall, len(result.NewBadges))

	respondWithJSON(w, http.StatusOK, map[string]any{
		"score":  score,
		"result": result,
	})
}

// Sample phrases for the practice screen. The real lesson catalog lives in
// the content service; this keeps the endpoint useful in development.
var referencePhrases = []string{
	"the quick brown fox jumps over the lazy dog",
	"she sells seashells by the seashore",
	"how much wood would a woodchuck chuck",
	"good morning how are you today",
	"I would like a cup of coffee please",
}

func (h *PronunciationHandler) GetReferencePhrases(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{"phrases": referencePhrases})
}
