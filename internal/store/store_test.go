package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"CryptoDash/internal/kv"
	"CryptoDash/internal/model"
)

var (
	_ Store    = (*SQLite)(nil)
	_ Store    = (*Memory)(nil)
	_ kv.Store = (*SQLite)(nil)
	_ kv.Store = (*Memory)(nil)
)

func openSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func backends(t *testing.T) map[string]Store {
	return map[string]Store{
		"sqlite": openSQLite(t),
		"memory": NewMemory(),
	}
}

func val(v float64) *float64 { return &v }

func TestStore_Cryptos(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			btc, err := s.AddCrypto(ctx, model.Crypto{CoinGeckoID: "bitcoin", Name: "Bitcoin", Symbol: "btc"})
			if err != nil || btc.ID == 0 {
				t.Fatalf("add: %+v %v", btc, err)
			}
			if _, err := s.AddCrypto(ctx, model.Crypto{CoinGeckoID: "bitcoin"}); !errors.Is(err, ErrDuplicate) {
				t.Fatalf("duplicate add: %v", err)
			}
			if _, err := s.AddCrypto(ctx, model.Crypto{CoinGeckoID: "ethereum", Name: "Ethereum"}); err != nil {
				t.Fatal(err)
			}
			got, err := s.GetCrypto(ctx, btc.ID)
			if err != nil || got.CoinGeckoID != "bitcoin" || got.Symbol != "btc" {
				t.Fatalf("get: %+v %v", got, err)
			}
			if _, err := s.GetCrypto(ctx, 999); !errors.Is(err, ErrNotFound) {
				t.Fatalf("missing: %v", err)
			}

			s.UpsertPrice(ctx, btc.ID, "2024-01-01", decimal.RequireFromString("42000.5"))
			s.UpsertPrice(ctx, btc.ID, "2024-01-02", decimal.RequireFromString("43000.25"))
			list, err := s.ListCryptos(ctx)
			if err != nil || len(list) != 2 {
				t.Fatalf("list: %+v %v", list, err)
			}
			if list[0].Name != "Bitcoin" || list[0].LatestDate == nil || *list[0].LatestDate != "2024-01-02" || *list[0].LatestPrice != 43000.25 {
				t.Errorf("bitcoin summary = %+v", list[0])
			}
			if list[1].LatestPrice != nil {
				t.Errorf("ethereum has no prices: %+v", list[1])
			}
		})
	}
}

func TestStore_Prices(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c, _ := s.AddCrypto(ctx, model.Crypto{CoinGeckoID: "solana"})
			steps := []struct {
				date  string
				price string
				want  PriceWrite
			}{
				{"2024-01-02", "100.10", PriceInserted},
				{"2024-01-01", "99", PriceInserted},
				{"2024-01-02", "100.1", PriceUnchanged},
				{"2024-01-02", "101", PriceUpdated},
			}
			for _, st := range steps {
				got, err := s.UpsertPrice(ctx, c.ID, st.date, decimal.RequireFromString(st.price))
				if err != nil || got != st.want {
					t.Fatalf("upsert %s %s = %v %v, want %v", st.date, st.price, got, err, st.want)
				}
			}
			all, err := s.PriceSeries(ctx, c.ID, "")
			if err != nil || len(all) != 2 || all[0].Date != "2024-01-01" || all[1].Price != 101 {
				t.Fatalf("series = %+v %v", all, err)
			}
			recent, _ := s.PriceSeries(ctx, c.ID, "2024-01-02")
			if len(recent) != 1 {
				t.Fatalf("since filter = %+v", recent)
			}
			if _, err := s.UpsertPrice(ctx, 999, "2024-01-01", decimal.NewFromInt(1)); !errors.Is(err, ErrNotFound) {
				t.Fatalf("unknown crypto: %v", err)
			}
		})
	}
}

func TestStore_Forecasts(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c, _ := s.AddCrypto(ctx, model.Crypto{CoinGeckoID: "bitcoin"})
			if _, ok, err := s.Forecast(ctx, c.ID, model.ForecastProphet, ""); ok || err != nil {
				t.Fatalf("never ingested: ok=%v err=%v", ok, err)
			}
			first := model.Forecast{
				Model: model.ForecastProphet, CutoffDate: "2024-01-02", HorizonDays: 2,
				Rows: []model.ForecastRow{
					{Date: "2024-01-03", YHat: val(3)},
					{Date: "2024-01-01", YHat: val(1), YHatLower: val(0.5), YHatUpper: val(1.5)},
				},
			}
			if err := s.ReplaceForecast(ctx, c.ID, first); err != nil {
				t.Fatal(err)
			}
			second := model.Forecast{
				Model: model.ForecastProphet, CutoffDate: "2024-01-05", HorizonDays: 1,
				Rows: []model.ForecastRow{{Date: "2024-01-06", YHat: val(6)}},
			}
			if err := s.ReplaceForecast(ctx, c.ID, second); err != nil {
				t.Fatal(err)
			}
			got, ok, err := s.Forecast(ctx, c.ID, model.ForecastProphet, "")
			if err != nil || !ok || got.CutoffDate != "2024-01-05" || len(got.Rows) != 1 {
				t.Fatalf("replaced forecast = %+v ok=%v err=%v", got, ok, err)
			}
			if got.Rows[0].YHatLower != nil {
				t.Error("missing bound should stay nil")
			}

			s.ReplaceForecast(ctx, c.ID, first)
			filtered, _, _ := s.Forecast(ctx, c.ID, model.ForecastProphet, "2024-01-02")
			if n := len(filtered.Rows); n != 1 {
				t.Fatalf("since filter kept %d rows", n)
			}
			if _, ok, _ := s.Forecast(ctx, c.ID, model.ForecastGRU, ""); ok {
				t.Error("gru was never ingested")
			}
		})
	}
}

func TestSQLite_KV(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("empty kv")
	}
	s.Set(ctx, "k", "1")
	s.Set(ctx, "k", "2")
	if v, ok, _ := s.Get(ctx, "k"); !ok || v != "2" {
		t.Fatalf("get = %q %v", v, ok)
	}
	s.Remove(ctx, "k")
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("removed")
	}
}
