package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"CryptoDash/internal/model"
)

// Memory is an in-process Store used when no database is configured and in
// tests.
type Memory struct {
	mu        sync.RWMutex
	nextID    int64
	cryptos   map[int64]model.Crypto
	prices    map[int64]map[string]decimal.Decimal
	forecasts map[int64]map[model.ForecastModel]model.Forecast
	kv        map[string]string
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		cryptos:   make(map[int64]model.Crypto),
		prices:    make(map[int64]map[string]decimal.Decimal),
		forecasts: make(map[int64]map[model.ForecastModel]model.Forecast),
		kv:        make(map[string]string),
	}
}

func (m *Memory) ListCryptos(_ context.Context) ([]model.CryptoSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.CryptoSummary, 0, len(m.cryptos))
	for id, c := range m.cryptos {
		s := model.CryptoSummary{Crypto: c}
		var latest string
		for d := range m.prices[id] {
			if d > latest {
				latest = d
			}
		}
		if latest != "" {
			p := m.prices[id][latest].InexactFloat64()
			d := latest
			s.LatestPrice, s.LatestDate = &p, &d
		}
		out = append(out, s)
	}
	sortSummaries(out)
	return out, nil
}

func (m *Memory) GetCrypto(_ context.Context, id int64) (model.Crypto, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cryptos[id]
	if !ok {
		return model.Crypto{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) AddCrypto(_ context.Context, c model.Crypto) (model.Crypto, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.cryptos {
		if strings.EqualFold(existing.CoinGeckoID, c.CoinGeckoID) {
			return model.Crypto{}, ErrDuplicate
		}
	}
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt = time.Now().UTC()
	m.cryptos[c.ID] = c
	return c, nil
}

func (m *Memory) UpsertPrice(_ context.Context, cryptoID int64, date string, price decimal.Decimal) (PriceWrite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cryptos[cryptoID]; !ok {
		return 0, ErrNotFound
	}
	byDate := m.prices[cryptoID]
	if byDate == nil {
		byDate = make(map[string]decimal.Decimal)
		m.prices[cryptoID] = byDate
	}
	old, exists := byDate[date]
	byDate[date] = price
	switch {
	case !exists:
		return PriceInserted, nil
	case old.Equal(price):
		return PriceUnchanged, nil
	default:
		return PriceUpdated, nil
	}
}

func (m *Memory) PriceSeries(_ context.Context, cryptoID int64, since string) ([]model.PricePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.PricePoint, 0, len(m.prices[cryptoID]))
	for d, p := range m.prices[cryptoID] {
		if since != "" && d < since {
			continue
		}
		out = append(out, model.PricePoint{Date: d, Price: p.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *Memory) ReplaceForecast(_ context.Context, cryptoID int64, f model.Forecast) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cryptos[cryptoID]; !ok {
		return ErrNotFound
	}
	byModel := m.forecasts[cryptoID]
	if byModel == nil {
		byModel = make(map[model.ForecastModel]model.Forecast)
		m.forecasts[cryptoID] = byModel
	}
	f.Rows = append([]model.ForecastRow(nil), f.Rows...)
	sort.Slice(f.Rows, func(i, j int) bool { return f.Rows[i].Date < f.Rows[j].Date })
	byModel[f.Model] = f
	return nil
}

func (m *Memory) Forecast(_ context.Context, cryptoID int64, fm model.ForecastModel, since string) (model.Forecast, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.forecasts[cryptoID][fm]
	if !ok {
		return model.Forecast{Model: fm}, false, nil
	}
	rows := make([]model.ForecastRow, 0, len(f.Rows))
	for _, r := range f.Rows {
		if since == "" || r.Date >= since {
			rows = append(rows, r)
		}
	}
	f.Rows = rows
	return f, true, nil
}

// Get implements kv.Store.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.kv[key]
	return v, ok, nil
}

// Set implements kv.Store.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	return nil
}

// Remove implements kv.Store.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kv, key)
	return nil
}

func (m *Memory) Close() error { return nil }

func sortSummaries(s []model.CryptoSummary) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Name != s[j].Name {
			return s[i].Name < s[j].Name
		}
		return s[i].ID < s[j].ID
	})
}
