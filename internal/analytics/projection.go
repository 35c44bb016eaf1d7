package analytics

import (
	"errors"
	"fmt"
	"math"

	"github.com/radiusdt/adintelli/internal/config"
)

// Projection model coefficients.
const (
	ConversionRate    = 0.012
	BaselineROAS      = 4.2
	ROASSlope         = 0.00001
	RevenueMultiplier = 4.2
)

var (
	ErrBudgetOutOfRange = errors.New("budget out of range")
	ErrBudgetOffStep    = errors.New("budget is not on a step boundary")
)

// Projection is the projected outcome of a total budget.
type Projection struct {
	TotalBudget          float64 `json:"total_budget"`
	ProjectedConversions int64   `json:"projected_conversions"`
	ProjectedROAS        float64 `json:"projected_roas"`
	ProjectedRevenue     int64   `json:"projected_revenue"`
}

// ProjectionModel is a linear budget-to-outcome model for the budget slider.
// It is deterministic and holds no state beyond its bounds.
type ProjectionModel struct {
	MinBudget float64
	MaxBudget float64
	Step      float64
	Baseline  float64
}

// NewProjectionModel builds a model from the configured slider bounds.
func NewProjectionModel(cfg config.ProjectionConfig) *ProjectionModel {
	return &ProjectionModel{
		MinBudget: cfg.MinBudget,
		MaxBudget: cfg.MaxBudget,
		Step:      cfg.Step,
		Baseline:  cfg.Baseline,
	}
}

// Project returns the projection for totalBudget. Revenue uses the fixed
// RevenueMultiplier, not the projected ROAS.
func (m *ProjectionModel) Project(totalBudget float64) (Projection, error) {
	if err := m.Check(totalBudget); err != nil {
		return Projection{}, err
	}
	return Projection{
		TotalBudget:          totalBudget,
		ProjectedConversions: int64(roundHalfUp(totalBudget * ConversionRate)),
		ProjectedROAS:        BaselineROAS + (totalBudget-m.Baseline)*ROASSlope,
		ProjectedRevenue:     int64(roundHalfUp(totalBudget * RevenueMultiplier)),
	}, nil
}

// Check validates a budget against the slider range and step.
func (m *ProjectionModel) Check(totalBudget float64) error {
	if math.IsNaN(totalBudget) || math.IsInf(totalBudget, 0) ||
		totalBudget < m.MinBudget || totalBudget > m.MaxBudget {
		return fmt.Errorf("%w: %v not in [%.0f, %.0f]", ErrBudgetOutOfRange, totalBudget, m.MinBudget, m.MaxBudget)
	}
	if m.Step > 0 && math.Mod(totalBudget-m.MinBudget, m.Step) != 0 {
		return fmt.Errorf("%w: %v (step %.0f from %.0f)", ErrBudgetOffStep, totalBudget, m.Step, m.MinBudget)
	}
	return nil
}

// Steps lists every budget the slider can take, lowest first.
func (m *ProjectionModel) Steps() []float64 {
	if m.Step <= 0 {
		return []float64{m.MinBudget}
	}
	n := int((m.MaxBudget-m.MinBudget)/m.Step) + 1
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, m.MinBudget+float64(i)*m.Step)
	}
	return out
}
