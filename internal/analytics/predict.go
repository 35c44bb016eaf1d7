package analytics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/radiusdt/adintelli/internal/models"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrEmptyPrediction  = errors.New("campaign_name or metrics are required")
)

// PredictRequest names a known campaign or carries ad-hoc metrics. When
// CampaignName is set the metric fields are ignored. CTR is a percentage;
// CTR and ROAS override the values derived from the other fields.
type PredictRequest struct {
	CampaignName string   `json:"campaign_name"`
	Platform     string   `json:"platform"`
	Impressions  int64    `json:"impressions"`
	Clicks       float64  `json:"clicks"`
	Spend        float64  `json:"spend"`
	Revenue      float64  `json:"revenue"`
	Conversions  int64    `json:"conversions"`
	CTR          *float64 `json:"CTR,omitempty"`
	ROAS         *float64 `json:"ROAS,omitempty"`
}

// Prediction is the answer shown in the predictive insights panel.
type Prediction struct {
	Campaign             string       `json:"Campaign"`
	CTR                  models.Ratio `json:"CTR"` // percent
	ROAS                 models.Ratio `json:"ROAS"`
	Profitable           string       `json:"Profitable"`
	PerformanceAlerts    string       `json:"Performance Alerts"`
	AudienceExpansion    string       `json:"Audience Expansion"`
	BudgetRecommendation string       `json:"Budget Recommendation"`
	PredictedConversions int64        `json:"Predicted Conversions"`
	PredictedRevenue     models.Ratio `json:"Predicted Revenue"`
}

// Predict grades a campaign from the batch, or the ad-hoc metrics in req.
func Predict(req PredictRequest, metrics []models.CampaignMetric) (Prediction, error) {
	name := strings.TrimSpace(req.CampaignName)
	if name != "" {
		for _, m := range metrics {
			if strings.EqualFold(m.Name, name) {
				return predict(m, Derive(m)), nil
			}
		}
		return Prediction{}, fmt.Errorf("%w: %s", ErrCampaignNotFound, name)
	}

	if req.Impressions == 0 && req.Clicks == 0 && req.Spend == 0 && req.Revenue == 0 && req.CTR == nil && req.ROAS == nil {
		return Prediction{}, ErrEmptyPrediction
	}

	m := models.CampaignMetric{
		Name:        label(req.Platform),
		Impressions: max(req.Impressions, 0),
		Clicks:      nonNeg(req.Clicks),
		Cost:        nonNeg(req.Spend),
		SaleAmount:  nonNeg(req.Revenue),
		Conversions: max(req.Conversions, 0),
	}
	d := Derive(m)
	if req.CTR != nil {
		d.CTR = models.Ratio{Value: *req.CTR / 100, Defined: true}
	}
	if req.ROAS != nil {
		d.ROAS = models.Ratio{Value: *req.ROAS, Defined: true}
		if m.SaleAmount == 0 {
			m.SaleAmount = *req.ROAS * m.Cost
		}
	}
	return predict(m, d), nil
}

func predict(m models.CampaignMetric, d Derived) Prediction {
	p := Prediction{
		Campaign:             m.Name,
		CTR:                  d.CTR.Scale(100).Round(2),
		ROAS:                 d.ROAS.Round(2),
		Profitable:           yesNo(m.SaleAmount >= m.Cost),
		PerformanceAlerts:    "Normal",
		AudienceExpansion:    yesNo(d.ROAS.Defined && d.ROAS.Value > ROASThreshold),
		BudgetRecommendation: "Maintain budget",
		PredictedConversions: int64(roundHalfUp(m.Cost * ConversionRate)),
		PredictedRevenue:     d.ROAS.Scale(m.Cost).Round(2),
	}

	switch {
	case d.ROAS.Defined && d.ROAS.Value < 1:
		p.PerformanceAlerts = "Unprofitable"
	case d.CTR.Defined && d.CTR.Value < CreativeRefreshCTR:
		p.PerformanceAlerts = "Low CTR"
	}

	switch {
	case !d.ROAS.Defined:
	case d.ROAS.Value > ROASThreshold:
		p.BudgetRecommendation = "Increase budget"
	case d.ROAS.Value < 1:
		p.BudgetRecommendation = "Decrease budget"
	}
	return p
}

// PredictiveRows builds the predictive insights table: a campaign is
// profitable and active when revenue covers spend.
func PredictiveRows(metrics []models.CampaignMetric) []models.PredictiveRow {
	out := make([]models.PredictiveRow, 0, len(metrics))
	for _, m := range metrics {
		row := models.PredictiveRow{
			CampaignName:    m.Name,
			Spend:           round2(m.Cost),
			Revenue:         round2(m.SaleAmount),
			Status:          "Active",
			Profitable:      "Yes",
			BiddingStrategy: "Maximize clicks",
			CPC:             Derive(m).CPC.Round(2),
			Conversions:     m.Conversions,
			Recommendation:  "Maintain",
		}
		if m.SaleAmount < m.Cost {
			row.Status = "Paused"
			row.Profitable = "No"
		}
		switch {
		case m.SaleAmount > m.Cost:
			row.Recommendation = "Increase budget"
		case m.SaleAmount < m.Cost:
			row.Recommendation = "Optimize targeting"
		}
		out = append(out, row)
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
