package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"CryptoDash/internal/model"
	"CryptoDash/internal/store"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price  decimal.Decimal
	Prices map[string]decimal.Decimal
	Coins  map[string]CoinInfo
	Err    error
	Calls  int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCurrentPrice(_ context.Context, coinID string) (decimal.Decimal, error) {
	m.Calls++
	if m.Err != nil {
		return decimal.Decimal{}, m.Err
	}
	return m.Price, nil
}

func (m *MockFetcher) FetchRange(_ context.Context, _ string, from, to time.Time) ([]DailyPrice, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	var out []DailyPrice
	for d := from.UTC().Truncate(24 * time.Hour); !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(model.DateLayout)
		if p, ok := m.Prices[key]; ok {
			out = append(out, DailyPrice{Date: key, Price: p})
		} else if m.Prices == nil {
			out = append(out, DailyPrice{Date: key, Price: m.Price})
		}
	}
	return out, nil
}

func (m *MockFetcher) FetchCoin(_ context.Context, coinID string) (*CoinInfo, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if c, ok := m.Coins[coinID]; ok {
		return &c, nil
	}
	if m.Coins == nil {
		return &CoinInfo{ID: coinID, Name: coinID, Symbol: coinID}, nil
	}
	return nil, nil
}

// Collector writes fetched prices into the store.
type Collector struct {
	Fetcher Fetcher
	// History serves range requests when set; Fetcher does otherwise.
	History Fetcher
	Store   store.Store
	// MaxHistoryDays caps a backfill.
	MaxHistoryDays int
	// MaxRequestDays caps the span of one range request.
	MaxRequestDays int
	now            func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, st store.Store, maxHistoryDays int) *Collector {
	req := 365
	if maxHistoryDays > 0 && maxHistoryDays < req {
		req = maxHistoryDays
	}
	return &Collector{
		Fetcher:        fetcher,
		Store:          st,
		MaxHistoryDays: maxHistoryDays,
		MaxRequestDays: req,
		now:            time.Now,
	}
}

// UpdateError records one crypto that could not be updated.
type UpdateError struct {
	CryptoID    int64  `json:"crypto_id"`
	CoinGeckoID string `json:"coingecko_id"`
	Error       string `json:"error"`
}

// UpdateReport summarises a daily update.
type UpdateReport struct {
	AsOf     string        `json:"as_of"`
	Inserted int           `json:"inserted"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Errors   []UpdateError `json:"errors"`
}

// Total is the number of cryptos looked at.
func (r *UpdateReport) Total() int { return r.Inserted + r.Updated + r.Skipped + len(r.Errors) }

// UpdateDaily stores today's price of every tracked crypto under asOf's
// calendar date. A failure for one crypto is recorded and the rest proceed.
func (c *Collector) UpdateDaily(ctx context.Context, asOf time.Time) (*UpdateReport, error) {
	cryptos, err := c.Store.ListCryptos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cryptos: %w", err)
	}
	report := &UpdateReport{AsOf: asOf.Format(model.DateLayout), Errors: []UpdateError{}}
	for _, cr := range cryptos {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		w, err := c.updateOne(ctx, cr.Crypto, report.AsOf)
		if err != nil {
			log.Warn().Err(err).Str("coin", cr.CoinGeckoID).Msg("daily price update failed")
			report.Errors = append(report.Errors, UpdateError{
				CryptoID: cr.ID, CoinGeckoID: cr.CoinGeckoID, Error: err.Error(),
			})
			continue
		}
		report.count(w)
	}
	return report, nil
}

// UpdateOne refreshes a single crypto for asOf.
func (c *Collector) UpdateOne(ctx context.Context, cryptoID int64, asOf time.Time) (store.PriceWrite, error) {
	cr, err := c.Store.GetCrypto(ctx, cryptoID)
	if err != nil {
		return 0, err
	}
	return c.updateOne(ctx, cr, asOf.Format(model.DateLayout))
}

func (c *Collector) updateOne(ctx context.Context, cr model.Crypto, date string) (store.PriceWrite, error) {
	price, err := c.Fetcher.FetchCurrentPrice(ctx, cr.CoinGeckoID)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", cr.CoinGeckoID, err)
	}
	return c.Store.UpsertPrice(ctx, cr.ID, date, price)
}

func (r *UpdateReport) count(w store.PriceWrite) {
	switch w {
	case store.PriceInserted:
		r.Inserted++
	case store.PriceUpdated:
		r.Updated++
	default:
		r.Skipped++
	}
}

// BackfillReport summarises a backfill.
type BackfillReport struct {
	Days int `json:"days"`
	windowStats
}

// Backfill fills the missing daily prices of the last days days, today
// excluded. Only missing dates are requested, in windows of at most
// MaxRequestDays. days is capped at MaxHistoryDays.
func (c *Collector) Backfill(ctx context.Context, cryptoID int64, days int) (*BackfillReport, error) {
	if days <= 0 {
		return nil, fmt.Errorf("history days must be greater than zero")
	}
	if c.MaxHistoryDays > 0 && days > c.MaxHistoryDays {
		days = c.MaxHistoryDays
	}
	cr, err := c.Store.GetCrypto(ctx, cryptoID)
	if err != nil {
		return nil, err
	}

	today := c.now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -days)
	end := today.AddDate(0, 0, -1)

	have, err := c.Store.PriceSeries(ctx, cryptoID, start.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("existing prices: %w", err)
	}
	existing := make(map[string]bool, len(have))
	for _, p := range have {
		existing[p.Date] = true
	}

	report := &BackfillReport{Days: days}
	err = c.fetchMissing(ctx, cr, existing, missingRanges(existing, start, end), &report.windowStats)
	log.Info().Str("coin", cr.CoinGeckoID).Int("requested", report.Requested).
		Int("inserted", report.Inserted).Msg("backfill done")
	return report, err
}

// FillReport summarises a gap fill.
type FillReport struct {
	// HasHistory is false when fewer than two prices are stored, so there
	// is no span to fill.
	HasHistory bool   `json:"has_history"`
	First      string `json:"first,omitempty"`
	Last       string `json:"last,omitempty"`
	windowStats
}

// FillMissing requests the days missing between the first and the last
// stored price of cryptoID and stores them.
func (c *Collector) FillMissing(ctx context.Context, cryptoID int64) (*FillReport, error) {
	cr, err := c.Store.GetCrypto(ctx, cryptoID)
	if err != nil {
		return nil, err
	}
	have, err := c.Store.PriceSeries(ctx, cryptoID, "")
	if err != nil {
		return nil, fmt.Errorf("existing prices: %w", err)
	}
	report := &FillReport{}
	if len(have) < 2 {
		return report, nil
	}
	report.HasHistory = true
	report.First, report.Last = have[0].Date, have[len(have)-1].Date

	first, err := time.Parse(model.DateLayout, report.First)
	if err != nil {
		return report, fmt.Errorf("first date: %w", err)
	}
	last, err := time.Parse(model.DateLayout, report.Last)
	if err != nil {
		return report, fmt.Errorf("last date: %w", err)
	}
	existing := make(map[string]bool, len(have))
	for _, p := range have {
		existing[p.Date] = true
	}
	err = c.fetchMissing(ctx, cr, existing, missingRanges(existing, first, last), &report.windowStats)
	log.Info().Str("coin", cr.CoinGeckoID).Int("requested", report.Requested).
		Int("inserted", report.Inserted).Msg("gap fill done")
	return report, err
}

// windowStats counts the work of fetchMissing.
type windowStats struct {
	Requested int `json:"requested"`
	Requests  int `json:"requests"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
}

func (c *Collector) historyFetcher() Fetcher {
	if c.History != nil {
		return c.History
	}
	return c.Fetcher
}

// fetchMissing requests ranges in windows of at most MaxRequestDays and
// stores the returned days that fall inside a window and are not in
// existing.
func (c *Collector) fetchMissing(ctx context.Context, cr model.Crypto, existing map[string]bool, ranges [][2]time.Time, st *windowStats) error {
	src := c.historyFetcher()
	for _, win := range splitWindows(ranges, c.MaxRequestDays) {
		st.Requested += int(win[1].Sub(win[0]).Hours()/24) + 1
		st.Requests++
		// Through the end of the window's last day.
		prices, err := src.FetchRange(ctx, cr.CoinGeckoID, win[0], win[1].Add(24*time.Hour-time.Second))
		if err != nil {
			return fmt.Errorf("fetch %s %s..%s from %s: %w", cr.CoinGeckoID,
				win[0].Format(model.DateLayout), win[1].Format(model.DateLayout), src.Name(), err)
		}
		lo, hi := win[0].Format(model.DateLayout), win[1].Format(model.DateLayout)
		for _, p := range prices {
			if p.Date < lo || p.Date > hi || existing[p.Date] {
				continue
			}
			w, err := c.Store.UpsertPrice(ctx, cr.ID, p.Date, p.Price)
			if err != nil {
				return fmt.Errorf("store %s: %w", p.Date, err)
			}
			switch w {
			case store.PriceInserted:
				st.Inserted++
			case store.PriceUpdated:
				st.Updated++
			default:
				st.Skipped++
			}
		}
	}
	return nil
}

// missingRanges lists the runs of consecutive days in [start, end] absent
// from have.
func missingRanges(have map[string]bool, start, end time.Time) [][2]time.Time {
	var out [][2]time.Time
	var runStart time.Time
	open := false
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		missing := !have[d.Format(model.DateLayout)]
		switch {
		case missing && !open:
			runStart, open = d, true
		case !missing && open:
			out = append(out, [2]time.Time{runStart, d.AddDate(0, 0, -1)})
			open = false
		}
	}
	if open {
		out = append(out, [2]time.Time{runStart, end})
	}
	return out
}

// splitWindows cuts ranges into windows spanning at most maxDays days.
func splitWindows(ranges [][2]time.Time, maxDays int) [][2]time.Time {
	if maxDays <= 0 {
		return ranges
	}
	var out [][2]time.Time
	for _, r := range ranges {
		for from := r[0]; !from.After(r[1]); from = from.AddDate(0, 0, maxDays) {
			to := from.AddDate(0, 0, maxDays-1)
			if to.After(r[1]) {
				to = r[1]
			}
			out = append(out, [2]time.Time{from, to})
		}
	}
	return out
}
