package storage

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/radiusdt/adintelli/internal/models"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ClickHouseSource reads ad records from a warehouse table with the same
// columns as the PostgreSQL campaigns table. It is read-only.
type ClickHouseSource struct {
	conn  driver.Conn
	table string
}

func NewClickHouseSource(conn driver.Conn, table string) (*ClickHouseSource, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid clickhouse table name %q", table)
	}
	return &ClickHouseSource{conn: conn, table: table}, nil
}

func (s *ClickHouseSource) ListRecords(ctx context.Context) ([]models.AdRecord, error) {
	// Casts pin the Go scan types regardless of the table's column widths.
	query := fmt.Sprintf(`
		SELECT
			toString(ad_id),
			toString(campaign_name),
			toFloat64(clicks),
			toInt64(impressions),
			toFloat64(cost),
			toInt64(leads),
			toInt64(conversions),
			toFloat64(conversion_rate),
			toFloat64(sale_amount),
			toDateTime(ad_date),
			toString(location),
			toString(device),
			toString(keyword),
			toString(platform)
		FROM %s
		ORDER BY ad_date, ad_id`, s.table)

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: clickhouse query: %v", ErrTransport, err)
	}
	defer rows.Close()

	var records []models.AdRecord
	for rows.Next() {
		var (
			r      models.AdRecord
			adDate time.Time
		)
		if err := rows.Scan(
			&r.AdID, &r.CampaignName, &r.Clicks, &r.Impressions, &r.Cost, &r.Leads, &r.Conversions,
			&r.ConversionRate, &r.SaleAmount, &adDate,
			&r.Location, &r.Device, &r.Keyword, &r.Platform,
		); err != nil {
			return nil, fmt.Errorf("%w: clickhouse scan: %v", ErrMalformed, err)
		}
		r.AdDate = adDate.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return records, nil
}

func (s *ClickHouseSource) InsertRecord(context.Context, *models.AdRecord) error {
	return ErrReadOnly
}

func (s *ClickHouseSource) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}
