// Package analytics turns raw campaign metrics into derived ratios, ranked
// recommendations, budget projections and the aggregates behind the dashboard.
// Everything here is pure: no I/O, no shared state, safe to call repeatedly.
package analytics

import (
	"math"
	"strings"

	"github.com/radiusdt/adintelli/internal/models"
)

// Derived holds the ratios computed from one CampaignMetric. A ratio whose
// denominator is zero is left undefined rather than NaN or Inf, and rules
// that read it skip the campaign.
type Derived struct {
	CTR  models.Ratio `json:"ctr"`  // clicks / impressions
	ROAS models.Ratio `json:"roas"` // sale amount / cost
	CPC  models.Ratio `json:"cpc"`  // cost / clicks
}

// Derive computes CTR, ROAS and CPC for a campaign.
func Derive(m models.CampaignMetric) Derived {
	return Derived{
		CTR:  models.Div(m.Clicks, float64(m.Impressions)),
		ROAS: models.Div(m.SaleAmount, m.Cost),
		CPC:  models.Div(m.Cost, m.Clicks),
	}
}

// AggregateCampaigns sums raw ad records per campaign name. Campaigns keep
// the order in which they first appear; names are compared after trimming.
func AggregateCampaigns(records []models.AdRecord) []models.CampaignMetric {
	index := make(map[string]int)
	out := make([]models.CampaignMetric, 0)
	for _, r := range records {
		name := strings.TrimSpace(r.CampaignName)
		if name == "" {
			continue
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, models.CampaignMetric{Name: name})
		}
		m := &out[i]
		m.Impressions += max(r.Impressions, 0)
		m.Clicks += nonNeg(r.Clicks)
		m.Cost += nonNeg(r.Cost)
		m.SaleAmount += nonNeg(r.SaleAmount)
		m.Conversions += max(r.Conversions, 0)
	}
	return out
}

// roundHalfUp rounds .5 toward positive infinity, the way the dashboard
// front end always has.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

func nonNeg(f float64) float64 {
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	return f
}
