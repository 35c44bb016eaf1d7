// Package assistant answers free-text questions about the campaign portfolio
// from the latest refreshed snapshot. Intents are matched by keyword.
package assistant

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/radiusdt/adintelli/internal/analytics"
	"github.com/radiusdt/adintelli/internal/integrations"
	"github.com/radiusdt/adintelli/internal/models"
	"github.com/radiusdt/adintelli/internal/refresh"
)

// Reply is the assistant's answer to one message.
type Reply struct {
	Reply       string   `json:"reply"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// SnapshotSource provides the latest refreshed data.
type SnapshotSource interface {
	Snapshot() *refresh.Snapshot
}

// IntegrationLister lists ad platform connections.
type IntegrationLister interface {
	List(ctx context.Context) ([]integrations.PlatformStatus, error)
}

type Assistant struct {
	snapshots    SnapshotSource
	projection   *analytics.ProjectionModel
	integrations IntegrationLister
	logger       *zap.Logger
}

// New creates an assistant. lister may be nil.
func New(snapshots SnapshotSource, projection *analytics.ProjectionModel, lister IntegrationLister, logger *zap.Logger) *Assistant {
	return &Assistant{
		snapshots:    snapshots,
		projection:   projection,
		integrations: lister,
		logger:       logger,
	}
}

var defaultSuggestions = []string{
	"What should I optimize?",
	"Which campaign has the best ROAS?",
	"What happens with a $50,000 budget?",
}

// Reply answers message. Intent priority follows the order of the cases.
func (a *Assistant) Reply(ctx context.Context, message string) Reply {
	query := strings.ToLower(strings.TrimSpace(message))
	if query == "" {
		return a.help()
	}

	snap := a.snapshots.Snapshot()

	switch {
	case containsAny(query, []string{"budget", "project", "forecast", "spend"}) && budgetPattern.MatchString(query):
		return a.projectionReply(query)
	case containsAny(query, []string{"integration", "connect", "platform", "google ads", "meta", "linkedin", "tiktok"}):
		return a.integrationsReply(ctx)
	}

	if !snap.Loaded() {
		if snap.Err != "" {
			return Reply{Reply: "I can't reach the campaign data right now: " + snap.Err}
		}
		return Reply{Reply: "Campaign data is still loading. Try again in a few seconds."}
	}

	if m, ok := mentionedCampaign(query, snap.Campaigns); ok {
		return campaignReply(m)
	}

	switch {
	case containsAny(query, []string{"insight", "optimiz", "recommend", "suggest", "should i", "improve"}):
		return insightsReply(snap.Insights)
	case containsAny(query, []string{"best", "top", "highest", "winning"}):
		return rankedReply(snap.Campaigns, true)
	case containsAny(query, []string{"worst", "lowest", "underperform", "losing"}):
		return rankedReply(snap.Campaigns, false)
	case containsAny(query, []string{"roi", "return", "profit"}):
		return roiReply(snap.Campaigns)
	case containsAny(query, []string{"ctr", "click"}):
		return ctrReply(snap.Campaigns)
	case containsAny(query, []string{"how", "overview", "summary", "doing", "performance"}):
		return overviewReply(snap.Campaigns)
	default:
		return a.help()
	}
}

func (a *Assistant) help() Reply {
	return Reply{
		Reply: "I can summarize campaign performance, explain the current insights, " +
			"compare campaigns by ROAS and project results for a budget.",
		Suggestions: defaultSuggestions,
	}
}

var budgetPattern = regexp.MustCompile(`\$?\s*(\d[\d,]*(?:\.\d+)?)\s*(k)?\b`)

// parseBudget reads the first amount in query. "50k" and "$50,000" are both 50000.
func parseBudget(query string) (float64, bool) {
	m := budgetPattern.FindStringSubmatch(query)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if m[2] != "" {
		v *= 1000
	}
	return v, true
}

func (a *Assistant) projectionReply(query string) Reply {
	budget, _ := parseBudget(query)
	p, err := a.projection.Project(budget)
	if err != nil {
		return Reply{Reply: fmt.Sprintf("I can project budgets from $%s to $%s in steps of $%s.",
			humanize(a.projection.MinBudget), humanize(a.projection.MaxBudget), humanize(a.projection.Step))}
	}
	return Reply{Reply: fmt.Sprintf(
		"With a total budget of $%s you can expect about %s conversions, a projected ROAS of %.2fx and $%s in revenue.",
		humanize(p.TotalBudget), humanize(float64(p.ProjectedConversions)), p.ProjectedROAS, humanize(float64(p.ProjectedRevenue)))}
}

func (a *Assistant) integrationsReply(ctx context.Context) Reply {
	if a.integrations == nil {
		return Reply{Reply: "Platform integrations are not enabled on this server."}
	}
	list, err := a.integrations.List(ctx)
	if err != nil {
		a.logger.Warn("failed to list integrations", zap.Error(err))
		return Reply{Reply: "I couldn't load the integration status right now."}
	}

	var connected, other []string
	for _, p := range list {
		if p.Status == integrations.StatusConnected {
			connected = append(connected, p.Name)
		} else {
			other = append(other, p.Name)
		}
	}
	if len(connected) == 0 {
		return Reply{Reply: "No ad platforms are connected yet. Available: " + strings.Join(other, ", ") + "."}
	}
	return Reply{Reply: fmt.Sprintf("Connected: %s. Not connected: %s.", strings.Join(connected, ", "), strings.Join(other, ", "))}
}

// mentionedCampaign finds a campaign whose name appears in query as whole
// words. The longest name wins so "Summer Sale 2" beats "Summer Sale".
func mentionedCampaign(query string, campaigns []models.CampaignMetric) (models.CampaignMetric, bool) {
	words := tokenize(query)
	var (
		best    models.CampaignMetric
		bestLen int
	)
	for _, c := range campaigns {
		name := tokenize(c.Name)
		if len(name) > bestLen && containsRun(words, name) {
			best, bestLen = c, len(name)
		}
	}
	return best, bestLen > 0
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// containsRun reports whether run occurs in words as consecutive elements.
func containsRun(words, run []string) bool {
	for i := 0; i+len(run) <= len(words); i++ {
		match := true
		for j := range run {
			if words[i+j] != run[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func campaignReply(m models.CampaignMetric) Reply {
	d := analytics.Derive(m)
	return Reply{Reply: fmt.Sprintf("%s: %s impressions, %s clicks, CTR %s, ROAS %s, CPC %s on $%s spend.",
		m.Name, humanize(float64(m.Impressions)), humanize(m.Clicks),
		percent(d.CTR), multiple(d.ROAS), dollars(d.CPC), humanize(m.Cost))}
}

func insightsReply(insights []analytics.Insight) Reply {
	if len(insights) == 0 {
		return Reply{Reply: "Nothing needs attention right now."}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "I found %d insight(s):", len(insights))
	for _, in := range insights {
		fmt.Fprintf(&sb, "\n- [%s] %s: %s (%s)", in.Priority(), in.Title(), in.Description(), in.ImpactEstimate())
	}
	return Reply{Reply: sb.String()}
}

func rankedReply(campaigns []models.CampaignMetric, best bool) Reply {
	ranked := analytics.RankByROAS(campaigns)
	if len(ranked) == 0 {
		return Reply{Reply: "No campaign has spend yet, so ROAS can't be compared."}
	}
	pick, word := ranked[0], "best"
	if !best {
		pick, word = analytics.LowestROAS(ranked), "lowest"
	}
	return Reply{Reply: fmt.Sprintf("%s has the %s ROAS at %.2fx on $%s spend.", pick.Name, word, pick.ROAS, humanize(pick.Cost))}
}

func roiReply(campaigns []models.CampaignMetric) Reply {
	roi := analytics.PortfolioROI(campaigns)
	if !roi.Defined {
		return Reply{Reply: "There is no spend yet, so ROI is undefined."}
	}
	return Reply{Reply: fmt.Sprintf("Portfolio ROI is %.1f%%.", roi.Value)}
}

func ctrReply(campaigns []models.CampaignMetric) Reply {
	ctr := analytics.PortfolioCTR(campaigns)
	if !ctr.Defined {
		return Reply{Reply: "There are no impressions yet, so CTR is undefined."}
	}
	return Reply{Reply: fmt.Sprintf("Portfolio CTR is %.2f%%.", ctr.Value)}
}

func overviewReply(campaigns []models.CampaignMetric) Reply {
	t := analytics.Sum(campaigns)
	return Reply{
		Reply: fmt.Sprintf("%d campaigns: %s impressions, %s clicks, %s conversions, $%s spend and $%s revenue.",
			len(campaigns), humanize(float64(t.Impressions)), humanize(t.Clicks), humanize(float64(t.Conversions)),
			humanize(t.Cost), humanize(t.SaleAmount)),
		Suggestions: defaultSuggestions,
	}
}

func containsAny(s string, substrs []string) bool {
	for _, substr := range substrs {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

// humanize rounds f to a whole number with thousands separators.
func humanize(f float64) string {
	return analytics.FormatThousands(int64(math.Round(f)))
}

func percent(r models.Ratio) string {
	if !r.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", r.Value*100)
}

func multiple(r models.Ratio) string {
	if !r.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.2fx", r.Value)
}

func dollars(r models.Ratio) string {
	if !r.Defined {
		return "n/a"
	}
	return fmt.Sprintf("$%.2f", r.Value)
}
