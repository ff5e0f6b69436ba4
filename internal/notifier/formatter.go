package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"CryptoDash/internal/collector"
	"CryptoDash/internal/model"
)

// FormatUpdateReport formats a daily price update for the chat.
func FormatUpdateReport(r *collector.UpdateReport, took time.Duration) string {
	var b strings.Builder
	icon := "✅"
	if len(r.Errors) > 0 {
		icon = "⚠️"
	}
	b.WriteString(fmt.Sprintf("%s <b>CryptoDash daily update</b> | %s\n\n", icon, r.AsOf))
	b.WriteString(fmt.Sprintf("Inserted: %d\n", r.Inserted))
	b.WriteString(fmt.Sprintf("Updated: %d\n", r.Updated))
	b.WriteString(fmt.Sprintf("Unchanged: %d\n", r.Skipped))
	b.WriteString(fmt.Sprintf("Errors: %d\n", len(r.Errors)))
	for _, e := range r.Errors {
		b.WriteString(fmt.Sprintf("  • %s: %s\n", html.EscapeString(e.CoinGeckoID), html.EscapeString(e.Error)))
	}
	b.WriteString(fmt.Sprintf("\nTook %s", took.Round(time.Millisecond)))
	return b.String()
}

// FormatLatestPrices lists the latest stored price of every crypto.
func FormatLatestPrices(list []model.CryptoSummary, currency string) string {
	if len(list) == 0 {
		return "No cryptos tracked yet."
	}
	var b strings.Builder
	b.WriteString("📈 <b>Latest prices</b>\n\n")
	cur := strings.ToUpper(currency)
	for _, c := range list {
		name := c.Name
		if name == "" {
			name = c.CoinGeckoID
		}
		if c.LatestPrice == nil {
			b.WriteString(fmt.Sprintf("%s: --\n", html.EscapeString(name)))
			continue
		}
		p := decimal.NewFromFloat(*c.LatestPrice).StringFixed(2)
		b.WriteString(fmt.Sprintf("%s: %s %s (%s)\n", html.EscapeString(name), p, cur, *c.LatestDate))
	}
	return b.String()
}
