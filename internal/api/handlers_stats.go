package api

import (
	"net/http"

	"github.com/dgallion1/pagewright/internal/oracle"
)

type modelInfo struct {
	oracle.Model
	Available bool `json:"available"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := oracle.Models()
	out := make([]modelInfo, 0, len(models))
	for _, m := range models {
		out = append(out, modelInfo{Model: m, Available: s.oracles != nil && s.oracles.Available(m)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"default": s.cfg.DefaultModel,
		"models":  out,
	})
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window": s.cfg.StatsWindow.String(),
		"stats":  s.stats.Snapshot(),
	})
}
