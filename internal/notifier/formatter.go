package notifier

import (
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"MarketPsyche/internal/analysis"
	"MarketPsyche/internal/model"
	"MarketPsyche/internal/recorder"
)

var riskBadges = map[model.RiskLevel]string{
	model.RiskLow:     "🟢",
	model.RiskMedium:  "🟡",
	model.RiskHigh:    "🟠",
	model.RiskExtreme: "🔴",
}

func riskBadge(l model.RiskLevel) string {
	if b, ok := riskBadges[l]; ok {
		return b
	}
	return "⚪"
}

// bar renders a share in [0, 1] as a ten-cell gauge.
func bar(share float64) string {
	n := int(math.Round(share * 10))
	if n < 0 {
		n = 0
	}
	if n > 10 {
		n = 10
	}
	return strings.Repeat("█", n) + strings.Repeat("░", 10-n)
}

// FormatAnalysisReport renders a full reading as a Telegram HTML message.
func FormatAnalysisReport(res *model.AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🧠 <b>%s</b> (%s, %s) | %s\n\n",
		html.EscapeString(res.Instrument), res.Kind, res.Period, res.CreatedAt.UTC().Format("2006-01-02 15:04"))

	fmt.Fprintf(&b, "Price: %.2f | Last return: %+.2f%%\n", res.CurrentPrice, res.CurrentReturn*100)
	fmt.Fprintf(&b, "Position: %.0fth percentile\n\n", res.Percentile*100)

	b.WriteString("👥 <b>Crowd</b>\n")
	fmt.Fprintf(&b, "  Buyers  %s %4.1f%%\n", bar(res.Ratios.Buyers), res.Ratios.Buyers*100)
	fmt.Fprintf(&b, "  Holders %s %4.1f%%\n", bar(res.Ratios.Holders), res.Ratios.Holders*100)
	fmt.Fprintf(&b, "  Sellers %s %4.1f%%\n\n", bar(res.Ratios.Sellers), res.Ratios.Sellers*100)

	fmt.Fprintf(&b, "Sentiment: %+.2f\n", res.Sentiment)
	fmt.Fprintf(&b, "Risk: %s %s\n", riskBadge(res.Risk), strings.ToUpper(string(res.Risk)))
	fmt.Fprintf(&b, "Confidence: %.0f%% (%d bars)\n\n", res.Confidence*100, res.DataPoints)

	d := res.Distribution
	fmt.Fprintf(&b, "σ %.2f%% | skew %+.2f | kurt %+.2f\n\n", d.Std*100, d.Skewness, d.Kurtosis)

	b.WriteString(html.EscapeString(res.Interpretation))
	return b.String()
}

// FormatRiskAlert renders a short alert for a reading at or above the alert tier.
func FormatRiskAlert(res *model.AnalysisResult) string {
	return fmt.Sprintf("%s <b>Risk alert: %s</b>\n%s risk is %s (sentiment %+.2f, %.0fth percentile).\nBuyers %.0f%% / Holders %.0f%% / Sellers %.0f%%",
		riskBadge(res.Risk), html.EscapeString(res.Instrument),
		html.EscapeString(res.Instrument), strings.ToUpper(string(res.Risk)),
		res.Sentiment, res.Percentile*100,
		res.Ratios.Buyers*100, res.Ratios.Holders*100, res.Ratios.Sellers*100)
}

// FormatError explains a failed analysis without internal detail.
func FormatError(instrument string, err error) string {
	msg := "analysis failed"
	var ae *analysis.Error
	if errors.As(err, &ae) {
		msg = ae.Message
	}
	return fmt.Sprintf("⚠️ <b>%s</b>: %s", html.EscapeString(instrument), html.EscapeString(msg))
}

// FormatHistory lists stored readings, newest first.
func FormatHistory(instrument string, rows []recorder.Snapshot) string {
	if len(rows) == 0 {
		return fmt.Sprintf("No history for <b>%s</b> yet.", html.EscapeString(instrument))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🗂 <b>%s history</b>\n\n", html.EscapeString(instrument))
	for _, r := range rows {
		fmt.Fprintf(&b, "%s %s  p%.0f  s%+.2f  %s\n",
			riskBadge(model.RiskLevel(r.Risk)), r.CreatedAt.Format("01-02 15:04"),
			r.Percentile*100, r.Sentiment, r.Risk)
	}
	return b.String()
}

// FormatHealth renders engine uptime and cache counters.
func FormatHealth(h analysis.HealthStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🩺 <b>Status: %s</b>\n\n", h.Status)
	fmt.Fprintf(&b, "Uptime: %s\n", h.Uptime.Truncate(time.Second))
	fmt.Fprintf(&b, "Cache: %d active / %d expired\n", h.Cache.Active, h.Cache.Expired)
	fmt.Fprintf(&b, "Hits %d | Misses %d | Runs %d | In flight %d\n",
		h.Cache.Hits, h.Cache.Misses, h.Cache.Computations, h.Cache.InFlight)
	return b.String()
}

// FormatSymbols lists supported instruments of one market.
func FormatSymbols(kind model.MarketKind, symbols []string) string {
	if len(symbols) == 0 {
		return fmt.Sprintf("No symbols for market %q.", kind)
	}
	return fmt.Sprintf("<b>%s</b>: %s", kind, html.EscapeString(strings.Join(symbols, ", ")))
}

// HelpText lists the bot commands.
const HelpText = `<b>MarketPsyche commands</b>
/analyze SYMBOL [stock|crypto] [1mo|3mo|6mo|1y|2y]: full reading
/quick SYMBOL [kind] [period]: headline only
/history SYMBOL [kind]: stored readings
/symbols [stock|crypto]: well-known instruments
/refresh: rerun the watchlist now
/status: uptime and cache
/help: this message`
