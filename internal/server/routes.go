package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/promptgenie/internal/keys"
	"github.com/ziadkadry99/promptgenie/internal/prompt"
)

const maxBodyBytes = 1 << 20

// Generator is the prompt generation service exposed over HTTP.
type Generator interface {
	AnalyzeQuery(ctx context.Context, query string) ([]prompt.FollowUpQuestion, error)
	GenerateFinalPrompt(ctx context.Context, req prompt.FinalPromptRequest) (*prompt.FinalPrompt, error)
}

type analyzeRequest struct {
	Query string `json:"query"`
}

type analyzeResponse struct {
	Questions []prompt.FollowUpQuestion `json:"questions"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// RegisterRoutes mounts the generation endpoints under /api/ai.
func RegisterRoutes(r chi.Router, gen Generator, logger *zap.Logger) {
	r.Route("/api/ai", func(r chi.Router) {
		r.Post("/analyze-query", handleAnalyzeQuery(gen, logger))
		r.Post("/generate-final-prompt", handleGenerateFinalPrompt(gen, logger))
	})
}

func handleAnalyzeQuery(gen Generator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			writeError(w, http.StatusUnprocessableEntity, "query must not be empty")
			return
		}

		questions, err := gen.AnalyzeQuery(r.Context(), req.Query)
		if err != nil {
			writeGenerationError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, analyzeResponse{Questions: questions})
	}
}

func handleGenerateFinalPrompt(gen Generator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req prompt.FinalPromptRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			writeError(w, http.StatusUnprocessableEntity, "query must not be empty")
			return
		}

		out, err := gen.GenerateFinalPrompt(r.Context(), req)
		if err != nil {
			writeGenerationError(w, logger, err)
			return
		}
		if out.RetrievedSources == nil {
			out.RetrievedSources = []string{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeGenerationError maps generator errors to HTTP statuses.
func writeGenerationError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, prompt.ErrInvalidRequest):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, keys.ErrNoCredentials):
		status = http.StatusInternalServerError
	case errors.Is(err, prompt.ErrMalformedOutput), errors.Is(err, prompt.ErrGeneration):
		status = http.StatusBadGateway
	}
	logger.Warn("generation request failed", zap.Int("status", status), zap.Error(err))
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
