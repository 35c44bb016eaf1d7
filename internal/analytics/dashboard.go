package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/radiusdt/adintelli/internal/models"
)

// ChartPalette colors the campaign performance pie, cycling when there are
// more campaigns than colors.
var ChartPalette = []string{
	"var(--chart-1)",
	"var(--chart-2)",
	"var(--chart-3)",
	"var(--chart-4)",
	"var(--chart-5)",
}

const unknownLabel = "Unknown"

// CampaignRows builds the campaign management table. CTR is a percentage;
// every ratio is rounded to two decimals.
func CampaignRows(metrics []models.CampaignMetric) []models.CampaignRow {
	rows := make([]models.CampaignRow, 0, len(metrics))
	for _, m := range metrics {
		d := Derive(m)
		rows = append(rows, models.CampaignRow{
			CampaignName: m.Name,
			Cost:         round2(m.Cost),
			SaleAmount:   round2(m.SaleAmount),
			Impressions:  m.Impressions,
			Clicks:       m.Clicks,
			Conversions:  m.Conversions,
			CTR:          d.CTR.Scale(100).Round(2),
			CPC:          d.CPC.Round(2),
			ROAS:         d.ROAS.Round(2),
		})
	}
	return rows
}

// WeeklyTrends sums records per ISO week, keyed by the week's Monday, oldest
// first. Records without a date are skipped.
func WeeklyTrends(records []models.AdRecord) []models.TrendPoint {
	byWeek := make(map[time.Time]*models.TrendPoint)
	for _, r := range records {
		if r.AdDate.IsZero() {
			continue
		}
		wk := weekStart(r.AdDate)
		p, ok := byWeek[wk]
		if !ok {
			p = &models.TrendPoint{Date: wk.Format("2006-01-02")}
			byWeek[wk] = p
		}
		p.Impressions += max(r.Impressions, 0)
		p.Clicks += nonNeg(r.Clicks)
		p.Conversions += max(r.Conversions, 0)
	}

	weeks := make([]time.Time, 0, len(byWeek))
	for wk := range byWeek {
		weeks = append(weeks, wk)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	out := make([]models.TrendPoint, 0, len(weeks))
	for _, wk := range weeks {
		out = append(out, *byWeek[wk])
	}
	return out
}

func weekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// DeviceDemographics sums impressions and conversions per device in
// first-seen order.
func DeviceDemographics(records []models.AdRecord) []models.DeviceBreakdown {
	index := make(map[string]int)
	out := make([]models.DeviceBreakdown, 0)
	for _, r := range records {
		device := label(r.Device)
		i, ok := index[device]
		if !ok {
			i = len(out)
			index[device] = i
			out = append(out, models.DeviceBreakdown{Device: device})
		}
		out[i].Impressions += max(r.Impressions, 0)
		out[i].Conversions += max(r.Conversions, 0)
	}
	return out
}

// KPIData reports ROI and CTR (both percentages) per campaign.
func KPIData(metrics []models.CampaignMetric) []models.KPIRow {
	out := make([]models.KPIRow, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, models.KPIRow{
			Name: m.Name,
			ROI:  ROI(m.SaleAmount, m.Cost).Round(2),
			CTR:  Derive(m).CTR.Scale(100).Round(2),
		})
	}
	return out
}

// ROI is (gain - cost) / cost as a percentage.
func ROI(gain, cost float64) models.Ratio {
	return models.Div(gain-cost, cost).Scale(100)
}

// CampaignPerformance splits total revenue between campaigns as percentages
// rounded to one decimal. With no revenue every share is zero.
func CampaignPerformance(metrics []models.CampaignMetric) []models.PerformanceSlice {
	var total float64
	for _, m := range metrics {
		total += m.SaleAmount
	}
	out := make([]models.PerformanceSlice, 0, len(metrics))
	for i, m := range metrics {
		var share float64
		if total > 0 {
			share = math.Round(m.SaleAmount/total*1000) / 10
		}
		out = append(out, models.PerformanceSlice{
			Name:  m.Name,
			Value: share,
			Color: ChartPalette[i%len(ChartPalette)],
		})
	}
	return out
}

// Totals is the portfolio-wide sum of a campaign batch.
type Totals struct {
	Impressions int64
	Clicks      float64
	Cost        float64
	SaleAmount  float64
	Conversions int64
}

func Sum(metrics []models.CampaignMetric) Totals {
	var t Totals
	for _, m := range metrics {
		t.Impressions += m.Impressions
		t.Clicks += m.Clicks
		t.Cost += m.Cost
		t.SaleAmount += m.SaleAmount
		t.Conversions += m.Conversions
	}
	return t
}

// PortfolioROI is the ROI percentage over every campaign.
func PortfolioROI(metrics []models.CampaignMetric) models.Ratio {
	t := Sum(metrics)
	return ROI(t.SaleAmount, t.Cost).Round(2)
}

// PortfolioCTR is total clicks over total impressions, as a percentage.
func PortfolioCTR(metrics []models.CampaignMetric) models.Ratio {
	t := Sum(metrics)
	return models.Div(t.Clicks, float64(t.Impressions)).Scale(100).Round(2)
}

// Score weights. A campaign reaching every target scores 100.
const (
	scoreROASWeight = 50
	scoreCTRWeight  = 30
	scoreCVRWeight  = 20

	scoreROASTarget = 4.0  // sale amount per unit of cost
	scoreCTRTarget  = 0.05 // clicks per impression
	scoreCVRTarget  = 0.10 // conversions per click
)

// CampaignScores grades each campaign from 0 to 100: ROAS, CTR and
// click-to-conversion rate each earn their weight in proportion to the
// target, capped at the target. Undefined ratios earn nothing.
func CampaignScores(metrics []models.CampaignMetric) []models.CampaignScore {
	out := make([]models.CampaignScore, 0, len(metrics))
	for _, m := range metrics {
		d := Derive(m)
		cvr := models.Div(float64(m.Conversions), m.Clicks)
		score := scoreROASWeight*attainment(d.ROAS, scoreROASTarget) +
			scoreCTRWeight*attainment(d.CTR, scoreCTRTarget) +
			scoreCVRWeight*attainment(cvr, scoreCVRTarget)
		out = append(out, models.CampaignScore{Name: m.Name, Score: int(roundHalfUp(score))})
	}
	return out
}

func attainment(r models.Ratio, target float64) float64 {
	if !r.Defined || r.Value <= 0 {
		return 0
	}
	return math.Min(r.Value/target, 1)
}

// PlatformData sums records per ad platform in first-seen order.
func PlatformData(records []models.AdRecord) []models.PlatformRow {
	index := make(map[string]int)
	out := make([]models.PlatformRow, 0)
	for _, r := range records {
		platform := label(r.Platform)
		i, ok := index[platform]
		if !ok {
			i = len(out)
			index[platform] = i
			out = append(out, models.PlatformRow{Platform: platform})
		}
		p := &out[i]
		p.Impressions += max(r.Impressions, 0)
		p.Clicks += nonNeg(r.Clicks)
		p.Conversions += max(r.Conversions, 0)
		p.Cost += nonNeg(r.Cost)
		p.SaleAmount += nonNeg(r.SaleAmount)
	}
	for i := range out {
		p := &out[i]
		p.Cost = round2(p.Cost)
		p.SaleAmount = round2(p.SaleAmount)
		p.CPC = models.Div(p.Cost, p.Clicks).Round(2)
		p.ROAS = models.Div(p.SaleAmount, p.Cost).Round(2)
		p.Performance = performanceGrade(p.ROAS)
	}
	return out
}

func performanceGrade(roas models.Ratio) string {
	switch {
	case !roas.Defined:
		return "unknown"
	case roas.Value >= 4:
		return "excellent"
	case roas.Value >= ROASThreshold:
		return "good"
	case roas.Value >= 1:
		return "average"
	default:
		return "poor"
	}
}

// RealTime summarizes the batch for the live monitoring tiles.
func RealTime(metrics []models.CampaignMetric) models.RealTimeSummary {
	t := Sum(metrics)
	return models.RealTimeSummary{
		TotalCampaigns:   len(metrics),
		TotalImpressions: t.Impressions,
		AvgCTR:           models.Div(t.Clicks, float64(t.Impressions)).Scale(100).Round(2),
		TotalClicks:      t.Clicks,
		AvgConversions:   models.Div(float64(t.Conversions), float64(len(metrics))).Round(2),
		TotalCPC:         models.Div(t.Cost, t.Clicks).Round(2),
	}
}

func label(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return unknownLabel
	}
	return s
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
