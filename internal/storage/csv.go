package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/radiusdt/adintelli/internal/models"
)

// CSV column names of the ad platform export.
const (
	colAdID           = "ad_id"
	colCampaignName   = "campaign_name"
	colClicks         = "clicks"
	colImpressions    = "impressions"
	colCost           = "cost"
	colLeads          = "leads"
	colConversions    = "conversions"
	colConversionRate = "conversion rate"
	colSaleAmount     = "sale_amount"
	colAdDate         = "ad_date"
	colLocation       = "location"
	colDevice         = "device"
	colKeyword        = "keyword"
	colPlatform       = "platform"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006/01/02", "01/02/2006", "02-01-2006"}

// LoadCSVFile reads ad records from a CSV export on disk.
func LoadCSVFile(path string) ([]models.AdRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV parses ad records. Headers are matched case-insensitively and
// Campaign_Name is the only required column. Currency symbols and thousands
// separators are stripped from numbers; a missing Ad_ID gets a fresh uuid.
func LoadCSV(r io.Reader) ([]models.AdRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv is empty")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols[colCampaignName]; !ok {
		return nil, fmt.Errorf("csv has no %s column", colCampaignName)
	}

	var out []models.AdRecord
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		rec := models.AdRecord{
			AdID:         get(colAdID),
			CampaignName: get(colCampaignName),
			Location:     get(colLocation),
			Device:       get(colDevice),
			Keyword:      get(colKeyword),
			Platform:     get(colPlatform),
		}
		if rec.CampaignName == "" {
			continue
		}
		if rec.AdID == "" {
			rec.AdID = uuid.NewString()
		}

		if rec.Clicks, err = parseNumber(get(colClicks)); err != nil {
			return nil, fmt.Errorf("line %d: clicks: %w", line, err)
		}
		if rec.Cost, err = parseNumber(get(colCost)); err != nil {
			return nil, fmt.Errorf("line %d: cost: %w", line, err)
		}
		if rec.SaleAmount, err = parseNumber(get(colSaleAmount)); err != nil {
			return nil, fmt.Errorf("line %d: sale_amount: %w", line, err)
		}
		if rec.ConversionRate, err = parseNumber(get(colConversionRate)); err != nil {
			return nil, fmt.Errorf("line %d: conversion rate: %w", line, err)
		}
		if rec.Impressions, err = parseCount(get(colImpressions)); err != nil {
			return nil, fmt.Errorf("line %d: impressions: %w", line, err)
		}
		if rec.Leads, err = parseCount(get(colLeads)); err != nil {
			return nil, fmt.Errorf("line %d: leads: %w", line, err)
		}
		if rec.Conversions, err = parseCount(get(colConversions)); err != nil {
			return nil, fmt.Errorf("line %d: conversions: %w", line, err)
		}
		if rec.AdDate, err = parseDate(get(colAdDate)); err != nil {
			return nil, fmt.Errorf("line %d: ad_date: %w", line, err)
		}

		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseNumber(s string) (float64, error) {
	s = strings.NewReplacer("$", "", ",", "", "%", "").Replace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseCount(s string) (int64, error) {
	f, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
