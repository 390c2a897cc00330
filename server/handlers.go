package server

import (
	_ "embed"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

//go:embed static/index.html
var indexPage []byte

type chatRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}

	s.logger.Debug("chat request", zap.String("question", req.Question))
	result, err := s.answerer.Ask(r.Context(), req.Question)
	if err != nil {
		// The turn failed but the session stays usable; the client shows
		// the error for this turn only.
		s.logger.Error("chat turn failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"turns": s.answerer.Memory().All(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		s.logger.Error("stats: count failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"vectors":         count,
		"turns":           s.answerer.Memory().Len(),
		"store_backend":   s.cfg.Store.Backend,
		"store_name":      s.cfg.Store.Name,
		"embedding_model": s.cfg.Embedding.Model,
		"chat_model":      s.cfg.Chat.Model,
		"top_k":           s.cfg.Chat.TopK,
		"chunk_size":      s.cfg.Knowledge.ChunkSize,
		"chunk_overlap":   s.cfg.Knowledge.ChunkOverlap,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
