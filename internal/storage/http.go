package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/radiusdt/adintelli/internal/models"
)

const maxErrorBody = 512

// HTTPDoer is the subset of *http.Client the upstream source needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource fetches ad records as a JSON array from another backend. One
// attempt per call; the caller decides when to try again.
type HTTPSource struct {
	url    string
	client HTTPDoer
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient replaces the HTTP client.
func (s *HTTPSource) SetHTTPClient(client HTTPDoer) {
	s.client = client
}

func (s *HTTPSource) ListRecords(ctx context.Context) ([]models.AdRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var records []models.AdRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformed)
	}
	for i, r := range records {
		if strings.TrimSpace(r.CampaignName) == "" {
			return nil, fmt.Errorf("%w: record %d has no campaign_name", ErrMalformed, i)
		}
	}
	return records, nil
}

func (s *HTTPSource) InsertRecord(context.Context, *models.AdRecord) error {
	return ErrReadOnly
}
