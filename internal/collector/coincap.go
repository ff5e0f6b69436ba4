package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// DefaultCoinCapURL is the public CoinCap API.
const DefaultCoinCapURL = "https://api.coincap.io/v2"

// CoinCapOptions configures the CoinCap client.
type CoinCapOptions struct {
	BaseURL      string
	APIKey       string
	RequestDelay time.Duration
	RetryCount   int
	RetryDelay   time.Duration
	Timeout      time.Duration
}

// CoinCapFetcher implements Fetcher using the CoinCap REST API. CoinCap
// quotes in USD only. Asset ids match CoinGecko ids for the major coins.
type CoinCapFetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// NewCoinCapFetcher creates a fetcher for opts.
func NewCoinCapFetcher(opts CoinCapOptions) *CoinCapFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultCoinCapURL
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
	if opts.APIKey != "" {
		client.SetAuthToken(opts.APIKey)
	}

	limit := rate.Inf
	if opts.RequestDelay > 0 {
		limit = rate.Every(opts.RequestDelay)
	}
	return &CoinCapFetcher{client: client, limiter: rate.NewLimiter(limit, 1)}
}

func (f *CoinCapFetcher) Name() string { return "coincap" }

type coinCapAsset struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	PriceUSD string `json:"priceUsd"`
}

type coinCapSample struct {
	PriceUSD string `json:"priceUsd"`
	Time     int64  `json:"time"`
}

func (f *CoinCapFetcher) get(ctx context.Context, path string, params map[string]string, out any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("coincap %s: %w", path, err)
	}
	if !resp.IsSuccess() {
		body := resp.String()
		if len(body) > 200 {
			body = body[:200]
		}
		return &StatusError{Source: "coincap", Path: path, Status: resp.StatusCode(), Body: body}
	}
	return nil
}

func (f *CoinCapFetcher) asset(ctx context.Context, coinID string) (*coinCapAsset, error) {
	var payload struct {
		Data *coinCapAsset `json:"data"`
	}
	if err := f.get(ctx, "/assets/"+coinID, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (f *CoinCapFetcher) FetchCurrentPrice(ctx context.Context, coinID string) (decimal.Decimal, error) {
	a, err := f.asset(ctx, coinID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if a == nil || a.PriceUSD == "" {
		return decimal.Decimal{}, ErrNoPrice
	}
	return decimal.NewFromString(a.PriceUSD)
}

func (f *CoinCapFetcher) FetchRange(ctx context.Context, coinID string, from, to time.Time) ([]DailyPrice, error) {
	var payload struct {
		Data []coinCapSample `json:"data"`
	}
	if err := f.get(ctx, "/assets/"+coinID+"/history", map[string]string{
		"interval": "d1",
		"start":    strconv.FormatInt(from.UnixMilli(), 10),
		"end":      strconv.FormatInt(to.UnixMilli(), 10),
	}, &payload); err != nil {
		return nil, err
	}
	samples := make([]sample, 0, len(payload.Data))
	for _, s := range payload.Data {
		if s.PriceUSD == "" {
			continue
		}
		price, err := decimal.NewFromString(s.PriceUSD)
		if err != nil {
			return nil, fmt.Errorf("sample price %q: %w", s.PriceUSD, err)
		}
		samples = append(samples, sample{ms: s.Time, price: price})
	}
	return closesPerDay(samples), nil
}

func (f *CoinCapFetcher) FetchCoin(ctx context.Context, coinID string) (*CoinInfo, error) {
	a, err := f.asset(ctx, coinID)
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}
	return &CoinInfo{ID: a.ID, Symbol: strings.ToLower(a.Symbol), Name: a.Name}, nil
}
