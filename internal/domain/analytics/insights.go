package analytics

import (
	"fmt"
	"sort"
	"strings"

	"finpath/internal/domain/ledger"
)

// InsightSeverity classifies an insight for the feed.
type InsightSeverity string

const (
	SeveritySuccess InsightSeverity = "success"
	SeverityWarning InsightSeverity = "warning"
	SeverityInfo    InsightSeverity = "info"
)

// Insight is a short advisory message derived from aggregate and category
// thresholds. Insights are recomputed fresh on every call and never persisted;
// persisted security alerts are a separate entity owned by the alert service.
type Insight struct {
	Severity InsightSeverity `json:"severity"`
	Title    string          `json:"title"`
	Message  string          `json:"message"`
}

// expenseRatioThreshold triggers the overspend warning when expenses exceed
// this fraction of income.
const expenseRatioThreshold = 0.8

// InsightConfig tunes the rule thresholds.
type InsightConfig struct {
	// CategoryThresholds maps a category keyword (matched case-insensitively
	// as a substring of the transaction category) to a per-month spend limit.
	CategoryThresholds map[string]float64
}

// DefaultInsightConfig flags dining spend above 5000 per month.
func DefaultInsightConfig() InsightConfig {
	return InsightConfig{
		CategoryThresholds: map[string]float64{
			"dining": 5000,
		},
	}
}

// GenerateInsights evaluates the insight rules against a monthly aggregate
// and the period's transactions. Rules are independent and evaluated in a
// fixed order (savings, expense ratio, category thresholds); every applicable
// rule fires. A nil aggregate means no ledger data and produces no insights.
func GenerateInsights(agg *MonthlyAggregate, txns []ledger.Transaction, cfg InsightConfig) []Insight {
	if agg == nil {
		return nil
	}

	var insights []Insight

	// Rule 1: positive savings
	if agg.TotalSavings > 0 {
		insights = append(insights, Insight{
			Severity: SeveritySuccess,
			Title:    "You saved this month",
			Message:  fmt.Sprintf("You saved %s this month. Keep it up!", FormatAmount(agg.TotalSavings)),
		})
	}

	// Rule 2: expense ratio warning
	if agg.TotalExpense > agg.TotalIncome*expenseRatioThreshold {
		insights = append(insights, Insight{
			Severity: SeverityWarning,
			Title:    "High spending",
			Message: fmt.Sprintf("Your expenses (%s) are over %d%% of your income this month.",
				FormatAmount(agg.TotalExpense), int(expenseRatioThreshold*100)),
		})
	}

	// Rule 3: per-keyword category thresholds. Keywords are walked in sorted
	// order so repeated calls emit insights in the same sequence.
	breakdown := CategoryBreakdown(txns, agg.Period)
	keywords := make([]string, 0, len(cfg.CategoryThresholds))
	for keyword := range cfg.CategoryThresholds {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)
	for _, keyword := range keywords {
		limit := cfg.CategoryThresholds[keyword]
		total := 0.0
		for category, amount := range breakdown {
			if strings.Contains(strings.ToLower(category), strings.ToLower(keyword)) {
				total += amount
			}
		}
		if total > limit {
			insights = append(insights, Insight{
				Severity: SeverityWarning,
				Title:    fmt.Sprintf("High %s spend", keyword),
				Message: fmt.Sprintf("You spent %s on %s this month, above your %s limit.",
					FormatAmount(total), keyword, FormatAmount(limit)),
			})
		}
	}

	return insights
}

// FormatAmount renders a monetary magnitude with thousands separators and at
// most two decimal places, e.g. 36800 -> "36,800" and 1234.5 -> "1,234.50".
func FormatAmount(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimSuffix(s, ".00")

	intPart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart, fracPart = s[:idx], s[idx:]
	}

	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign, intPart = "-", intPart[1:]
	}

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	return sign + b.String() + fracPart
}
