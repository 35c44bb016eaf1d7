package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radiusdt/adintelli/internal/models"
)

const campaignsSchema = `
CREATE TABLE IF NOT EXISTS campaigns (
	ad_id           TEXT PRIMARY KEY,
	campaign_name   TEXT NOT NULL,
	clicks          DOUBLE PRECISION NOT NULL DEFAULT 0,
	impressions     BIGINT NOT NULL DEFAULT 0,
	cost            DOUBLE PRECISION NOT NULL DEFAULT 0,
	leads           BIGINT NOT NULL DEFAULT 0,
	conversions     BIGINT NOT NULL DEFAULT 0,
	conversion_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
	sale_amount     DOUBLE PRECISION NOT NULL DEFAULT 0,
	ad_date         DATE,
	location        TEXT NOT NULL DEFAULT '',
	device          TEXT NOT NULL DEFAULT '',
	keyword         TEXT NOT NULL DEFAULT '',
	platform        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS campaigns_campaign_name_idx ON campaigns (campaign_name);
`

// PostgresSource reads and writes ad records in the campaigns table.
type PostgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// EnsureSchema creates the campaigns table if it does not exist.
func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, campaignsSchema); err != nil {
		return fmt.Errorf("failed to create campaigns schema: %w", err)
	}
	return nil
}

func (s *PostgresSource) ListRecords(ctx context.Context) ([]models.AdRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ad_id, campaign_name, clicks, impressions, cost, leads, conversions,
			   conversion_rate, sale_amount, ad_date,
			   location, device, keyword, platform
		FROM campaigns
		ORDER BY ad_date NULLS FIRST, ad_id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list campaigns: %v", ErrTransport, err)
	}
	defer rows.Close()

	var records []models.AdRecord
	for rows.Next() {
		var (
			r      models.AdRecord
			adDate *time.Time
		)
		if err := rows.Scan(
			&r.AdID, &r.CampaignName, &r.Clicks, &r.Impressions, &r.Cost, &r.Leads, &r.Conversions,
			&r.ConversionRate, &r.SaleAmount, &adDate,
			&r.Location, &r.Device, &r.Keyword, &r.Platform,
		); err != nil {
			return nil, fmt.Errorf("%w: failed to scan campaign row: %v", ErrMalformed, err)
		}
		if adDate != nil {
			r.AdDate = adDate.UTC()
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return records, nil
}

// InsertRecord stores one ad row, generating an ad id when none is given.
func (s *PostgresSource) InsertRecord(ctx context.Context, r *models.AdRecord) error {
	prepareRecord(r)
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO campaigns (
			ad_id, campaign_name, clicks, impressions, cost, leads, conversions,
			conversion_rate, sale_amount, ad_date, location, device, keyword, platform
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, r.AdID, r.CampaignName, r.Clicks, r.Impressions, r.Cost, r.Leads, r.Conversions,
		r.ConversionRate, r.SaleAmount, r.AdDate, r.Location, r.Device, r.Keyword, r.Platform)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrDuplicate, r.AdID)
		}
		return fmt.Errorf("failed to insert campaign row: %w", err)
	}
	return nil
}

// InsertRecords bulk-loads rows with COPY, used to import a CSV export.
func (s *PostgresSource) InsertRecords(ctx context.Context, records []models.AdRecord) (int64, error) {
	rows := make([][]any, 0, len(records))
	for i := range records {
		r := &records[i]
		prepareRecord(r)
		if err := r.Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		rows = append(rows, []any{
			r.AdID, r.CampaignName, r.Clicks, r.Impressions, r.Cost, r.Leads, r.Conversions,
			r.ConversionRate, r.SaleAmount, r.AdDate, r.Location, r.Device, r.Keyword, r.Platform,
		})
	}

	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"campaigns"},
		[]string{
			"ad_id", "campaign_name", "clicks", "impressions", "cost", "leads", "conversions",
			"conversion_rate", "sale_amount", "ad_date", "location", "device", "keyword", "platform",
		},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy campaign rows: %w", err)
	}
	return n, nil
}

// Ping checks the database is reachable.
func (s *PostgresSource) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
