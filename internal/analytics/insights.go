package analytics

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/radiusdt/adintelli/internal/models"
)

// Kind names the recommendation family an Insight belongs to.
type Kind string

const (
	KindBudgetReallocation Kind = "budget-reallocation"
	KindCreativeRefresh    Kind = "creative-refresh"
	KindAudienceExpansion  Kind = "audience-expansion"
	KindBidOptimization    Kind = "bid-optimization"
)

// Kinds lists every insight kind in rule order.
var Kinds = []Kind{KindBudgetReallocation, KindCreativeRefresh, KindAudienceExpansion, KindBidOptimization}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rule thresholds.
const (
	CreativeRefreshCTR = 0.10
	ROASThreshold      = 2.0
)

// Insight is a generated recommendation. The concrete types below are the
// only implementations.
type Insight interface {
	Kind() Kind
	Priority() Priority
	Title() string
	Description() string
	ImpactEstimate() string
	Confidence() int
	Campaigns() []string

	sealed()
}

// BudgetReallocation moves spend from the lowest-ROAS campaign to the highest.
type BudgetReallocation struct {
	Source          string
	Destination     string
	SourceCost      float64
	SourceROAS      float64
	DestinationROAS float64
}

func (BudgetReallocation) Kind() Kind         { return KindBudgetReallocation }
func (BudgetReallocation) Priority() Priority { return PriorityHigh }
func (BudgetReallocation) Title() string      { return "Budget Reallocation Opportunity" }
func (BudgetReallocation) Confidence() int    { return 92 }
func (BudgetReallocation) sealed()            {}

func (b BudgetReallocation) Description() string {
	return fmt.Sprintf("Move $%s from underperforming %s to high-ROAS %s campaign",
		FormatThousands(int64(roundHalfUp(b.SourceCost))), b.Source, b.Destination)
}

// ImpactEstimate scales the ROAS spread by 100 and labels it as conversions.
// The dashboard has always shown it this way.
func (b BudgetReallocation) ImpactEstimate() string {
	return fmt.Sprintf("+%d%% conversions", int64(roundHalfUp((b.DestinationROAS-b.SourceROAS)*100)))
}

func (b BudgetReallocation) Campaigns() []string { return []string{b.Source, b.Destination} }

// CreativeRefresh flags a campaign whose CTR fell under CreativeRefreshCTR.
type CreativeRefresh struct {
	Campaign string
	CTR      float64
}

func (CreativeRefresh) Kind() Kind             { return KindCreativeRefresh }
func (CreativeRefresh) Priority() Priority     { return PriorityMedium }
func (CreativeRefresh) Title() string          { return "Creative Refresh Needed" }
func (CreativeRefresh) ImpactEstimate() string { return "+15% CTR" }
func (CreativeRefresh) Confidence() int        { return 87 }
func (CreativeRefresh) sealed()                {}
func (c CreativeRefresh) Campaigns() []string  { return []string{c.Campaign} }

func (c CreativeRefresh) Description() string {
	return fmt.Sprintf("%s is showing creative fatigue with CTR at %.1f%%", c.Campaign, c.CTR*100)
}

// AudienceExpansion suggests lookalike audiences for a campaign above ROASThreshold.
type AudienceExpansion struct {
	Campaign string
	ROAS     float64
}

func (AudienceExpansion) Kind() Kind             { return KindAudienceExpansion }
func (AudienceExpansion) Priority() Priority     { return PriorityHigh }
func (AudienceExpansion) Title() string          { return "Audience Expansion Opportunity" }
func (AudienceExpansion) ImpactEstimate() string { return "+34% reach" }
func (AudienceExpansion) Confidence() int        { return 89 }
func (AudienceExpansion) sealed()                {}
func (a AudienceExpansion) Campaigns() []string  { return []string{a.Campaign} }

func (a AudienceExpansion) Description() string {
	return fmt.Sprintf("Similar audiences to %s converters show %.1fx ROAS potential", a.Campaign, a.ROAS)
}

// BidOptimization suggests a bidding change for a campaign below ROASThreshold.
type BidOptimization struct {
	Campaign string
	ROAS     float64
}

func (BidOptimization) Kind() Kind             { return KindBidOptimization }
func (BidOptimization) Priority() Priority     { return PriorityLow }
func (BidOptimization) Title() string          { return "Bid Strategy Optimization" }
func (BidOptimization) ImpactEstimate() string { return "-12% CPC" }
func (BidOptimization) Confidence() int        { return 78 }
func (BidOptimization) sealed()                {}
func (b BidOptimization) Campaigns() []string  { return []string{b.Campaign} }

func (b BidOptimization) Description() string {
	return fmt.Sprintf("Switch %s to Target ROAS bidding for better cost efficiency (current ROAS %.1fx)", b.Campaign, b.ROAS)
}

// InsightRecord is the flattened wire form of an Insight.
type InsightRecord struct {
	Kind           Kind     `json:"kind"`
	Priority       Priority `json:"priority"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	ImpactEstimate string   `json:"impact_estimate"`
	Confidence     int      `json:"confidence"`
	Campaigns      []string `json:"campaigns"`
}

// Render flattens an Insight for the API.
func Render(i Insight) InsightRecord {
	return InsightRecord{
		Kind:           i.Kind(),
		Priority:       i.Priority(),
		Title:          i.Title(),
		Description:    i.Description(),
		ImpactEstimate: i.ImpactEstimate(),
		Confidence:     i.Confidence(),
		Campaigns:      i.Campaigns(),
	}
}

// RenderAll flattens a list of insights, keeping order.
func RenderAll(in []Insight) []InsightRecord {
	out := make([]InsightRecord, 0, len(in))
	for _, i := range in {
		out = append(out, Render(i))
	}
	return out
}

// Ranked pairs a campaign with its defined ROAS.
type Ranked struct {
	Index int // position in the input batch
	Name  string
	Cost  float64
	ROAS  float64
}

// RankByROAS orders campaigns with a defined ROAS from highest to lowest.
// Equal ROAS keeps input order.
func RankByROAS(metrics []models.CampaignMetric) []Ranked {
	ranked := make([]Ranked, 0, len(metrics))
	for i, m := range metrics {
		roas := Derive(m).ROAS
		if !roas.Defined {
			continue
		}
		ranked = append(ranked, Ranked{Index: i, Name: m.Name, Cost: m.Cost, ROAS: roas.Value})
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].ROAS > ranked[b].ROAS })
	return ranked
}

// GenerateInsights runs the four rules over a batch: budget reallocation,
// then creative refresh, audience expansion and bid optimization, each in
// input order. A campaign may appear under several rules.
func GenerateInsights(metrics []models.CampaignMetric) []Insight {
	out := make([]Insight, 0)

	if b, ok := budgetReallocation(metrics); ok {
		out = append(out, b)
	}

	derived := make([]Derived, len(metrics))
	for i, m := range metrics {
		derived[i] = Derive(m)
	}

	for i, m := range metrics {
		if ctr := derived[i].CTR; ctr.Defined && ctr.Value < CreativeRefreshCTR {
			out = append(out, CreativeRefresh{Campaign: m.Name, CTR: ctr.Value})
		}
	}
	for i, m := range metrics {
		if roas := derived[i].ROAS; roas.Defined && roas.Value > ROASThreshold {
			out = append(out, AudienceExpansion{Campaign: m.Name, ROAS: roas.Value})
		}
	}
	for i, m := range metrics {
		if roas := derived[i].ROAS; roas.Defined && roas.Value < ROASThreshold {
			out = append(out, BidOptimization{Campaign: m.Name, ROAS: roas.Value})
		}
	}
	return out
}

// budgetReallocation picks the first highest-ROAS campaign as destination and
// the first lowest-ROAS campaign as source. It needs two ranked campaigns
// with different ROAS.
func budgetReallocation(metrics []models.CampaignMetric) (BudgetReallocation, bool) {
	ranked := RankByROAS(metrics)
	if len(ranked) < 2 {
		return BudgetReallocation{}, false
	}

	dst := ranked[0]
	src := LowestROAS(ranked)
	if src.Index == dst.Index {
		return BudgetReallocation{}, false
	}

	return BudgetReallocation{
		Source:          src.Name,
		Destination:     dst.Name,
		SourceCost:      src.Cost,
		SourceROAS:      src.ROAS,
		DestinationROAS: dst.ROAS,
	}, true
}

// LowestROAS returns the first campaign, in input order, among those tied
// for the lowest ROAS. ranked must come from RankByROAS and be non-empty.
func LowestROAS(ranked []Ranked) Ranked {
	lo := len(ranked) - 1
	for lo > 0 && ranked[lo-1].ROAS == ranked[lo].ROAS {
		lo--
	}
	return ranked[lo]
}

// FormatThousands prints n with comma thousands separators.
func FormatThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if n < 0 {
		neg = true
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-" + s
	}
	return s
}
