package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radiusdt/adintelli/internal/models"
)

// MemorySource keeps ad records in memory. It is the default source and the
// one tests run against.
type MemorySource struct {
	mu      sync.RWMutex
	records []models.AdRecord
}

// NewMemorySource returns a source holding a copy of records.
func NewMemorySource(records []models.AdRecord) *MemorySource {
	s := &MemorySource{records: make([]models.AdRecord, 0, len(records))}
	for _, r := range records {
		if r.AdID == "" {
			r.AdID = uuid.NewString()
		}
		s.records = append(s.records, r)
	}
	return s
}

func (s *MemorySource) ListRecords(ctx context.Context) ([]models.AdRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AdRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// InsertRecord appends a record, generating an ad id when none is given.
func (s *MemorySource) InsertRecord(ctx context.Context, r *models.AdRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepareRecord(r)
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records {
		if existing.AdID == r.AdID {
			return fmt.Errorf("%w: %s", ErrDuplicate, r.AdID)
		}
	}
	s.records = append(s.records, *r)
	return nil
}

// Replace swaps the whole record set.
func (s *MemorySource) Replace(records []models.AdRecord) {
	next := make([]models.AdRecord, len(records))
	copy(next, records)

	s.mu.Lock()
	s.records = next
	s.mu.Unlock()
}

func (s *MemorySource) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// prepareRecord fills the defaults applied to every inserted record.
func prepareRecord(r *models.AdRecord) {
	r.AdID = strings.TrimSpace(r.AdID)
	if r.AdID == "" {
		r.AdID = uuid.NewString()
	}
	r.CampaignName = strings.TrimSpace(r.CampaignName)
	if r.AdDate.IsZero() {
		r.AdDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
}

// SeedRecords returns a small demo data set: three campaigns over two weeks
// on two platforms and devices.
func SeedRecords() []models.AdRecord {
	start := time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC)
	type seed struct {
		campaign, platform, device, keyword, location string
		impressions                                   int64
		clicks, cost, sale                            float64
		leads, conversions                            int64
	}
	seeds := []seed{
		{"Summer Sale 2024", "Google Ads", "Mobile", "summer deals", "New York", 12000, 540, 950, 3100, 60, 41},
		{"Summer Sale 2024", "Facebook", "Desktop", "summer deals", "Chicago", 8000, 310, 620, 1700, 35, 22},
		{"Brand Awareness Q4", "Facebook", "Mobile", "brand", "Austin", 30000, 450, 1400, 1100, 20, 9},
		{"Brand Awareness Q4", "Google Ads", "Desktop", "brand", "Seattle", 15000, 210, 700, 640, 11, 5},
		{"Retargeting Campaign", "Google Ads", "Mobile", "cart recovery", "Boston", 5000, 600, 450, 2900, 70, 48},
		{"Retargeting Campaign", "LinkedIn", "Desktop", "cart recovery", "Denver", 2500, 150, 380, 900, 18, 12},
	}

	out := make([]models.AdRecord, 0, len(seeds)*2)
	for week := 0; week < 2; week++ {
		for i, s := range seeds {
			// second week trends up slightly
			f := 1.0 + 0.1*float64(week)
			out = append(out, models.AdRecord{
				AdID:           fmt.Sprintf("seed-%d-%d", week, i),
				CampaignName:   s.campaign,
				Clicks:         s.clicks * f,
				Impressions:    int64(float64(s.impressions) * f),
				Cost:           s.cost,
				Leads:          s.leads,
				Conversions:    s.conversions,
				ConversionRate: float64(s.conversions) / s.clicks,
				SaleAmount:     s.sale * f,
				AdDate:         start.AddDate(0, 0, 7*week+i),
				Location:       s.location,
				Device:         s.device,
				Keyword:        s.keyword,
				Platform:       s.platform,
			})
		}
	}
	return out
}
