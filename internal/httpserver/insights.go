package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radiusdt/adintelli/internal/analytics"
	"github.com/radiusdt/adintelli/internal/models"
)

type insightsResponse struct {
	Seq         uint64                    `json:"seq"`
	RefreshedAt *time.Time                `json:"refreshed_at"`
	Error       string                    `json:"error,omitempty"`
	Insights    []analytics.InsightRecord `json:"insights"`
}

// handleInsights serves the latest refreshed insights. A failed refresh
// keeps the previous insights and reports the failure alongside them.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	snap := s.refresher.Snapshot()

	resp := insightsResponse{
		Seq:      snap.Seq,
		Error:    snap.Err,
		Insights: analytics.RenderAll(snap.Insights),
	}
	if snap.Loaded() {
		at := snap.RefreshedAt.UTC()
		resp.RefreshedAt = &at
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleProjection projects one budget, or every slider step when no
// budget is given.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("budget"))
	if raw == "" {
		steps := s.projection.Steps()
		out := make([]analytics.Projection, 0, len(steps))
		for _, b := range steps {
			p, err := s.projection.Project(b)
			if err != nil {
				s.logger.Error("projection step rejected", zap.Float64("budget", b), zap.Error(err))
				continue
			}
			out = append(out, p)
		}
		s.jsonResponse(w, http.StatusOK, out)
		return
	}

	budget, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.errorResponse(w, "budget must be a number", http.StatusBadRequest)
		return
	}
	p, err := s.projection.Project(budget)
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req analytics.PredictRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	// ad-hoc metrics do not need the stored campaigns
	var campaigns []models.CampaignMetric
	if strings.TrimSpace(req.CampaignName) != "" {
		var ok bool
		if campaigns, ok = s.loadCampaigns(w, r); !ok {
			return
		}
	}

	pred, err := analytics.Predict(req, campaigns)
	switch {
	case errors.Is(err, analytics.ErrCampaignNotFound):
		s.errorResponse(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.jsonResponse(w, http.StatusOK, pred)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.assistant.Reply(r.Context(), req.Message))
}
