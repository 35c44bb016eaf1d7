package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radiusdt/adintelli/internal/integrations"
)

func (s *Server) integrationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, integrations.ErrUnknownPlatform):
		s.errorResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, integrations.ErrOAuthUnsupported),
		errors.Is(err, integrations.ErrStateMismatch),
		errors.Is(err, integrations.ErrMissingCode):
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, integrations.ErrNotConfigured):
		s.errorResponse(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.logger.Error("integration store failed", zap.Error(err))
		s.errorResponse(w, "integration store unavailable", http.StatusInternalServerError)
	}
}

func (s *Server) handleListIntegrations(w http.ResponseWriter, r *http.Request) {
	list, err := s.integrations.List(r.Context())
	if err != nil {
		s.integrationError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, list)
}

func (s *Server) handleStartIntegration(w http.ResponseWriter, r *http.Request) {
	url, err := s.integrations.Start(r.Context(), chi.URLParam(r, "platform"))
	if err != nil {
		s.integrationError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleIntegrationCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		s.errorResponse(w, "authorization denied: "+reason, http.StatusBadRequest)
		return
	}

	c, err := s.integrations.Callback(r.Context(), chi.URLParam(r, "platform"), q.Get("state"), q.Get("code"))
	if err != nil {
		s.integrationError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, c)
}

func (s *Server) handleIntegrationStatus(w http.ResponseWriter, r *http.Request) {
	c, err := s.integrations.Status(r.Context(), chi.URLParam(r, "platform"))
	if err != nil {
		s.integrationError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, c)
}

func (s *Server) handleDisconnectIntegration(w http.ResponseWriter, r *http.Request) {
	if err := s.integrations.Disconnect(r.Context(), chi.URLParam(r, "platform")); err != nil {
		s.integrationError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
}
