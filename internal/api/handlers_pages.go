package api

import (
	"net/http"

	"github.com/dgallion1/pagewright/internal/pipeline"
)

type pageResponse struct {
	OK bool `json:"ok"`
	pipeline.Page
}

type patchResponse struct {
	OK bool `json:"ok"`
	pipeline.PatchResult
}

type reconcileRequest struct {
	Raw         string `json:"raw"`
	ContainerID string `json:"container_id,omitempty"`
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req pipeline.BuildRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	page, err := s.svc.Build(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{OK: true, Page: page})
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	var req pipeline.PatchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	res, err := s.svc.Patch(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, patchResponse{OK: true, PatchResult: res})
}

func (s *Server) handleRewriteElement(w http.ResponseWriter, r *http.Request) {
	var req pipeline.ElementReplaceRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	page, err := s.svc.ReplaceElement(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{OK: true, Page: page})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	page, err := s.svc.Reconcile(req.Raw, req.ContainerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{OK: true, Page: page})
}
