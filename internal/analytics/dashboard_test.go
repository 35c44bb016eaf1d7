package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/adintelli/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCampaignRows(t *testing.T) {
	rows := CampaignRows(scenarioCampaigns())

	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].CampaignName)
	assert.Equal(t, models.Ratio{Value: 20, Defined: true}, rows[0].CTR)
	assert.Equal(t, models.Ratio{Value: 0.5, Defined: true}, rows[0].CPC)
	assert.Equal(t, models.Ratio{Value: 1, Defined: true}, rows[0].ROAS)
	assert.Equal(t, models.Ratio{Value: 6, Defined: true}, rows[1].ROAS)

	empty := CampaignRows([]models.CampaignMetric{{Name: "new"}})
	assert.False(t, empty[0].CTR.Defined)
	assert.False(t, empty[0].ROAS.Defined)
}

func TestWeeklyTrends(t *testing.T) {
	records := []models.AdRecord{
		{Impressions: 100, Clicks: 10, Conversions: 1, AdDate: date(2024, 1, 3)}, // Wednesday
		{Impressions: 50, Clicks: 5, Conversions: 1, AdDate: date(2024, 1, 7)},   // Sunday, same week
		{Impressions: 70, Clicks: 7, Conversions: 0, AdDate: date(2024, 1, 8)},   // next Monday
		{Impressions: 10, Clicks: 1, Conversions: 0, AdDate: date(2023, 12, 29)}, // previous week
		{Impressions: 999, Clicks: 99, Conversions: 9},                           // undated
	}

	got := WeeklyTrends(records)

	assert.Equal(t, []models.TrendPoint{
		{Date: "2023-12-25", Impressions: 10, Clicks: 1, Conversions: 0},
		{Date: "2024-01-01", Impressions: 150, Clicks: 15, Conversions: 2},
		{Date: "2024-01-08", Impressions: 70, Clicks: 7, Conversions: 0},
	}, got)
}

func TestDeviceAndPlatformBreakdown(t *testing.T) {
	records := []models.AdRecord{
		{Device: "Mobile", Platform: "Google Ads", Impressions: 100, Clicks: 10, Cost: 10, SaleAmount: 50, Conversions: 2},
		{Device: "Desktop", Platform: "Facebook", Impressions: 40, Clicks: 4, Cost: 8, SaleAmount: 4, Conversions: 1},
		{Device: "Mobile", Platform: "Google Ads", Impressions: 60, Clicks: 10, Cost: 10, SaleAmount: 30, Conversions: 3},
		{Device: "", Platform: "", Impressions: 5},
	}

	assert.Equal(t, []models.DeviceBreakdown{
		{Device: "Mobile", Impressions: 160, Conversions: 5},
		{Device: "Desktop", Impressions: 40, Conversions: 1},
		{Device: "Unknown", Impressions: 5, Conversions: 0},
	}, DeviceDemographics(records))

	platforms := PlatformData(records)
	require.Len(t, platforms, 3)
	assert.Equal(t, "Google Ads", platforms[0].Platform)
	assert.Equal(t, 20.0, platforms[0].Clicks)
	assert.Equal(t, int64(5), platforms[0].Conversions)
	assert.Equal(t, models.Ratio{Value: 1, Defined: true}, platforms[0].CPC)
	assert.Equal(t, models.Ratio{Value: 4, Defined: true}, platforms[0].ROAS)
	assert.Equal(t, "excellent", platforms[0].Performance)
	assert.Equal(t, "poor", platforms[1].Performance)
	assert.Equal(t, "unknown", platforms[2].Performance)
	assert.False(t, platforms[2].CPC.Defined)
}

func TestKPIDataAndPortfolio(t *testing.T) {
	metrics := scenarioCampaigns()

	kpis := KPIData(metrics)
	require.Len(t, kpis, 2)
	assert.Equal(t, models.KPIRow{
		Name: "A",
		ROI:  models.Ratio{Value: 0, Defined: true},
		CTR:  models.Ratio{Value: 20, Defined: true},
	}, kpis[0])
	assert.Equal(t, models.Ratio{Value: 500, Defined: true}, kpis[1].ROI)

	assert.Equal(t, models.Ratio{Value: 166.67, Defined: true}, PortfolioROI(metrics))
	assert.Equal(t, models.Ratio{Value: 12.5, Defined: true}, PortfolioCTR(metrics))

	assert.False(t, PortfolioROI(nil).Defined)
	assert.False(t, PortfolioCTR(nil).Defined)
}

func TestROI(t *testing.T) {
	assert.Equal(t, models.Ratio{Value: 50, Defined: true}, ROI(1500, 1000))
	assert.False(t, ROI(1500, 0).Defined)
}

func TestCampaignPerformance(t *testing.T) {
	slices := CampaignPerformance(scenarioCampaigns())

	assert.Equal(t, []models.PerformanceSlice{
		{Name: "A", Value: 25, Color: "var(--chart-1)"},
		{Name: "B", Value: 75, Color: "var(--chart-2)"},
	}, slices)

	many := make([]models.CampaignMetric, 7)
	for i := range many {
		many[i] = models.CampaignMetric{Name: string(rune('a' + i))}
	}
	got := CampaignPerformance(many)
	assert.Equal(t, "var(--chart-1)", got[5].Color)
	assert.Equal(t, 0.0, got[6].Value)
}

func TestCampaignScores(t *testing.T) {
	metrics := []models.CampaignMetric{
		{Name: "perfect", Impressions: 1000, Clicks: 100, Cost: 100, SaleAmount: 800, Conversions: 20},
		{Name: "half", Impressions: 1000, Clicks: 25, Cost: 100, SaleAmount: 200, Conversions: 1},
		{Name: "none", Impressions: 0, Clicks: 0, Cost: 0, SaleAmount: 0},
	}

	scores := CampaignScores(metrics)

	assert.Equal(t, []models.CampaignScore{
		{Name: "perfect", Score: 100},
		{Name: "half", Score: 48},
		{Name: "none", Score: 0},
	}, scores)
}

func TestRealTime(t *testing.T) {
	metrics := scenarioCampaigns()
	metrics[0].Conversions = 3
	metrics[1].Conversions = 2

	assert.Equal(t, models.RealTimeSummary{
		TotalCampaigns:   2,
		TotalImpressions: 2000,
		AvgCTR:           models.Ratio{Value: 12.5, Defined: true},
		TotalClicks:      250,
		AvgConversions:   models.Ratio{Value: 2.5, Defined: true},
		TotalCPC:         models.Ratio{Value: 0.6, Defined: true},
	}, RealTime(metrics))

	empty := RealTime(nil)
	assert.Equal(t, 0, empty.TotalCampaigns)
	assert.False(t, empty.AvgCTR.Defined)
	assert.False(t, empty.AvgConversions.Defined)
	assert.False(t, empty.TotalCPC.Defined)
}
