package models

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"
)

// AdRecord is one raw row of ad performance (one ad on one day), the shape
// stored in the campaigns table and exported by the ad platforms.
type AdRecord struct {
	AdID           string    `json:"ad_id"`
	CampaignName   string    `json:"campaign_name"`
	Clicks         float64   `json:"clicks"` // fractional when the platform samples
	Impressions    int64     `json:"impressions"`
	Cost           float64   `json:"cost"`
	Leads          int64     `json:"leads"`
	Conversions    int64     `json:"conversions"`
	ConversionRate float64   `json:"conversion_rate"`
	SaleAmount     float64   `json:"sale_amount"`
	AdDate         time.Time `json:"ad_date"`
	Location       string    `json:"location,omitempty"`
	Device         string    `json:"device,omitempty"`
	Keyword        string    `json:"keyword,omitempty"`
	Platform       string    `json:"platform,omitempty"`
}

// Validate checks the record can be aggregated.
func (r *AdRecord) Validate() error {
	if strings.TrimSpace(r.CampaignName) == "" {
		return errors.New("campaign_name is required")
	}
	if r.Impressions < 0 || r.Leads < 0 || r.Conversions < 0 {
		return errors.New("counts must be non-negative")
	}
	for _, v := range []float64{r.Clicks, r.Cost, r.SaleAmount, r.ConversionRate} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("clicks, cost, sale_amount and conversion_rate must be finite and non-negative")
		}
	}
	return nil
}

// CampaignMetric is the per-campaign raw input of the insight engine. A batch
// is immutable once fetched; names are unique within a batch.
type CampaignMetric struct {
	Name        string  `json:"name"`
	Impressions int64   `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	Cost        float64 `json:"cost"`
	SaleAmount  float64 `json:"sale_amount"`
	Conversions int64   `json:"conversions"`
}

// Ratio is a derived metric that may be undefined because its denominator
// was zero. Undefined ratios encode as JSON null.
type Ratio struct {
	Value   float64
	Defined bool
}

// Undefined is the sentinel for a ratio with a zero denominator.
var Undefined = Ratio{}

// Div returns num/den, or Undefined when den is zero or the result is not finite.
func Div(num, den float64) Ratio {
	if den == 0 {
		return Undefined
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined
	}
	return Ratio{Value: v, Defined: true}
}

// Scale multiplies a defined ratio, leaving undefined ones untouched.
func (r Ratio) Scale(f float64) Ratio {
	if !r.Defined {
		return r
	}
	return Ratio{Value: r.Value * f, Defined: true}
}

// Round rounds a defined ratio to the given number of decimals.
func (r Ratio) Round(decimals int) Ratio {
	if !r.Defined {
		return r
	}
	p := math.Pow(10, float64(decimals))
	return Ratio{Value: math.Round(r.Value*p) / p, Defined: true}
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

func (r *Ratio) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = Undefined
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = Ratio{Value: v, Defined: true}
	return nil
}
