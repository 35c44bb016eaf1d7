package models

// CampaignRow is one line of the campaign management table.
type CampaignRow struct {
	CampaignName string  `json:"campaign_name"`
	Cost         float64 `json:"cost"`
	SaleAmount   float64 `json:"sale_amount"`
	Impressions  int64   `json:"impressions"`
	Clicks       float64 `json:"clicks"`
	Conversions  int64   `json:"conversions"`
	CTR          Ratio   `json:"ctr"` // percent
	CPC          Ratio   `json:"cpc"`
	ROAS         Ratio   `json:"roas"`
}

// TrendPoint aggregates one ISO week, keyed by the Monday it starts on.
type TrendPoint struct {
	Date        string  `json:"date"`
	Impressions int64   `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	Conversions int64   `json:"conversions"`
}

type DeviceBreakdown struct {
	Device      string `json:"device"`
	Impressions int64  `json:"impressions"`
	Conversions int64  `json:"conversions"`
}

type KPIRow struct {
	Name string `json:"name"`
	ROI  Ratio  `json:"roi"` // percent
	CTR  Ratio  `json:"ctr"` // percent
}

// PerformanceSlice is a campaign's share of total revenue, for the pie chart.
type PerformanceSlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

type PlatformRow struct {
	Platform    string  `json:"platform"`
	Impressions int64   `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	Conversions int64   `json:"conversions"`
	Cost        float64 `json:"cost"`
	SaleAmount  float64 `json:"sale_amount"`
	CPC         Ratio   `json:"cpc"`
	ROAS        Ratio   `json:"roas"`
	Performance string  `json:"performance"` // excellent, good, average, poor or unknown
}

// PredictiveRow is one line of the predictive insights table.
type PredictiveRow struct {
	CampaignName    string  `json:"campaign_name"`
	Spend           float64 `json:"spend"`
	Revenue         float64 `json:"revenue"`
	Status          string  `json:"status"`
	Profitable      string  `json:"profitable"`
	BiddingStrategy string  `json:"bidding_strategy"`
	CPC             Ratio   `json:"cpc"`
	Conversions     int64   `json:"conversions"`
	Recommendation  string  `json:"recommendation"`
}

type CampaignScore struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// RealTimeSummary feeds the live monitoring tiles.
type RealTimeSummary struct {
	TotalCampaigns   int     `json:"total_campaigns"`
	TotalImpressions int64   `json:"total_impressions"`
	AvgCTR           Ratio   `json:"avg_ctr"` // percent
	TotalClicks      float64 `json:"total_clicks"`
	AvgConversions   Ratio   `json:"avg_conversions"`
	TotalCPC         Ratio   `json:"total_cpc"`
}
