package httpserver

import (
	"net/http"

	"github.com/radiusdt/adintelli/internal/analytics"
	"github.com/radiusdt/adintelli/internal/models"
)

// Dashboard endpoints read the record source on every request so the
// tables always reflect the latest rows.

func (s *Server) loadRecords(w http.ResponseWriter, r *http.Request) ([]models.AdRecord, bool) {
	records, err := s.source.ListRecords(r.Context())
	if err != nil {
		s.storageError(w, r, err)
		return nil, false
	}
	return records, true
}

func (s *Server) loadCampaigns(w http.ResponseWriter, r *http.Request) ([]models.CampaignMetric, bool) {
	records, ok := s.loadRecords(w, r)
	if !ok {
		return nil, false
	}
	return analytics.AggregateCampaigns(records), true
}

func (s *Server) handleAllCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, ok := s.loadCampaigns(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, analytics.CampaignRows(campaigns))
}

func (s *Server) handleWeeklyTrends(w http.ResponseWriter, r *http.Request) {
	records, ok := s.loadRecords(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, analytics.WeeklyTrends(records))
}

func (s *Server) handleDeviceDemographics(w http.ResponseWriter, r *http.Request) {
	records, ok := s.loadRecords(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, analytics.DeviceDemographics(records))
}

func (s *Server) handleKPIData(w http.ResponseWriter, r *http.Request) {
	campaigns, ok := s.loadCampaigns(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, analytics.KPIData(campaigns))
}

func (s *Server) handleCampaignPerformance(w http.ResponseWriter, r *http.Request) {
	campaigns, ok := s.loadCampaigns(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, analytics.CampaignPerformance(campaigns))
}

func (s *Server) handleROI(w http.ResponseWriter, r *http.Request) {
	campaigns, ok := s.loadCampaigns(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]models.Ratio{"roi": analytics.PortfolioROI(campaigns)})
}

func (s *Server) handleCTR(w http.ResponseWriter, r *http.Request) {
	campaigns, ok := s.loadCampaigns(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]models.Ratio{"ctr": analytics.PortfolioCTR(campaigns)})
}

func (s *Server) handleConversions(w http.ResponseWriter, r *http.Request) {
	campaigns, ok := s.loadCampaigns(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]int64{"conversions": analytics.Sum(campaigns).Conversions})
}

func (s *Server) handleCampaignScore(w http.ResponseWriter, r *http.Request) {
	campaigns, ok := s.loadCampaigns(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, analytics.CampaignScores(campaigns))
}

func (s *Server) handlePlatformData(w http.ResponseWriter, r *http.Request) {
	records, ok := s.loadRecords(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, analytics.PlatformData(records))
}

func (s *Server) handlePredictiveInsights(w http.ResponseWriter, r *http.Request) {
	campaigns, ok := s.loadCampaigns(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, analytics.PredictiveRows(campaigns))
}

func (s *Server) handleRealTime(w http.ResponseWriter, r *http.Request) {
	campaigns, ok := s.loadCampaigns(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, analytics.RealTime(campaigns))
}
