package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"CryptoDash/internal/model"
)

// ErrNoPrice is returned when a response carries no price for the coin.
var ErrNoPrice = errors.New("price not found in response")

// CoinGeckoOptions configures the CoinGecko client.
type CoinGeckoOptions struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	VsCurrency   string
	RequestDelay time.Duration
	RetryCount   int
	RetryDelay   time.Duration
	Timeout      time.Duration
}

// CoinGeckoFetcher implements Fetcher using the CoinGecko REST API. Requests
// are paced to one per RequestDelay.
type CoinGeckoFetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
	vs      string
}

// NewCoinGeckoFetcher creates a fetcher for opts.
func NewCoinGeckoFetcher(opts CoinGeckoOptions) *CoinGeckoFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.VsCurrency == "" {
		opts.VsCurrency = "usd"
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryDelay).
		SetRetryMaxWaitTime(opts.RetryDelay * 4).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	if opts.APIKey != "" && opts.APIKeyHeader != "" {
		client.SetHeader(opts.APIKeyHeader, opts.APIKey)
	}

	limit := rate.Inf
	if opts.RequestDelay > 0 {
		limit = rate.Every(opts.RequestDelay)
	}
	return &CoinGeckoFetcher{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		vs:      strings.ToLower(opts.VsCurrency),
	}
}

func (f *CoinGeckoFetcher) Name() string { return "coingecko" }

// StatusError is a non-success HTTP response.
type StatusError struct {
	Source string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Source, e.Path, e.Status, e.Body)
}

func (f *CoinGeckoFetcher) get(ctx context.Context, path string, params map[string]string, out any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return fmt.Errorf("coingecko %s: %w", path, err)
	}
	if !resp.IsSuccess() {
		body := resp.String()
		if len(body) > 200 {
			body = body[:200]
		}
		return &StatusError{Source: "coingecko", Path: path, Status: resp.StatusCode(), Body: body}
	}
	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (f *CoinGeckoFetcher) FetchCurrentPrice(ctx context.Context, coinID string) (decimal.Decimal, error) {
	var payload map[string]map[string]json.Number
	if err := f.get(ctx, "/simple/price", map[string]string{
		"ids":           coinID,
		"vs_currencies": f.vs,
	}, &payload); err != nil {
		return decimal.Decimal{}, err
	}
	num, ok := payload[coinID][f.vs]
	if !ok {
		return decimal.Decimal{}, ErrNoPrice
	}
	return decimal.NewFromString(num.String())
}

type marketChart struct {
	Prices [][]json.Number `json:"prices"`
}

func (f *CoinGeckoFetcher) FetchRange(ctx context.Context, coinID string, from, to time.Time) ([]DailyPrice, error) {
	var chart marketChart
	if err := f.get(ctx, "/coins/"+coinID+"/market_chart/range", map[string]string{
		"vs_currency": f.vs,
		"from":        strconv.FormatInt(from.Unix(), 10),
		"to":          strconv.FormatInt(to.Unix(), 10),
	}, &chart); err != nil {
		return nil, err
	}
	return lastPerDay(chart.Prices)
}

func (f *CoinGeckoFetcher) FetchCoin(ctx context.Context, coinID string) (*CoinInfo, error) {
	var info CoinInfo
	err := f.get(ctx, "/coins/"+coinID, map[string]string{
		"localization":   "false",
		"tickers":        "false",
		"market_data":    "false",
		"community_data": "false",
		"developer_data": "false",
		"sparkline":      "false",
	}, &info)
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// lastPerDay reduces [ms, price] samples to the last sample of each UTC day.
func lastPerDay(raw [][]json.Number) ([]DailyPrice, error) {
	samples := make([]sample, 0, len(raw))
	for _, s := range raw {
		if len(s) < 2 || s[1] == "" {
			continue
		}
		ms, err := s[0].Float64()
		if err != nil {
			return nil, fmt.Errorf("sample time %q: %w", s[0], err)
		}
		price, err := decimal.NewFromString(s[1].String())
		if err != nil {
			return nil, fmt.Errorf("sample price %q: %w", s[1], err)
		}
		samples = append(samples, sample{ms: int64(ms), price: price})
	}
	return closesPerDay(samples), nil
}

// sample is one timestamped quote.
type sample struct {
	ms    int64
	price decimal.Decimal
}

// closesPerDay keeps the last sample of each UTC day, oldest day first.
func closesPerDay(samples []sample) []DailyPrice {
	byDay := make(map[string]sample)
	for _, s := range samples {
		day := time.UnixMilli(s.ms).UTC().Format(model.DateLayout)
		if prev, ok := byDay[day]; !ok || s.ms >= prev.ms {
			byDay[day] = s
		}
	}
	out := make([]DailyPrice, 0, len(byDay))
	for day, s := range byDay {
		out = append(out, DailyPrice{Date: day, Price: s.price})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
