package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"CryptoDash/internal/chart"
	"CryptoDash/internal/model"
	"CryptoDash/internal/series"
	"CryptoDash/internal/session"
	"CryptoDash/internal/view"
)

const (
	// paddingRows is the lookback handed to the EMA engine.
	paddingRows = 49
	// warmupDays is fetched ahead of the window so indicators start seeded.
	warmupDays = 100
)

// chartResponse is a chart as the saved toggles leave it.
type chartResponse struct {
	Asset      string                 `json:"asset"`
	Currency   string                 `json:"currency"`
	Days       int                    `json:"days"`
	Figure     chart.Figure           `json:"figure"`
	Groups     map[string]chart.Group `json:"groups"`
	GroupOrder []string               `json:"group_order"`
	Forecasts  []chart.ForecastMeta   `json:"forecasts"`
	Controls   []view.Control         `json:"controls"`
}

// detached is a surface with nothing behind it. Every command completes at
// once, so a View can be started to learn its initial figure.
type detached struct{}

func (detached) Plot(_ chart.Figure, done chart.Completion)             { chart.Complete(done, nil) }
func (detached) Restyle(_ chart.Props, _ []int, done chart.Completion) { chart.Complete(done, nil) }
func (detached) Relayout(_ chart.Props, done chart.Completion)         { chart.Complete(done, nil) }

// source loads the rows, padding and forecasts of cr for the last days days.
func (s *Server) source(ctx context.Context, cr model.Crypto, days int) (series.Source, error) {
	src := series.Source{
		Asset:     cr.CoinGeckoID,
		Currency:  strings.ToUpper(s.Currency),
		Forecasts: make(map[model.ForecastModel]model.Forecast),
	}
	var start, since string
	if days > 0 {
		today := s.now().UTC()
		start = today.AddDate(0, 0, -days).Format(model.DateLayout)
		since = today.AddDate(0, 0, -(days + warmupDays)).Format(model.DateLayout)
	}
	points, err := s.Store.PriceSeries(ctx, cr.ID, since)
	if err != nil {
		return src, fmt.Errorf("load prices: %w", err)
	}
	src.Rows, src.Padding = series.Window(points, start, paddingRows)

	for _, m := range model.ForecastModels {
		f, ok, err := s.Store.Forecast(ctx, cr.ID, m, start)
		if err != nil {
			return src, fmt.Errorf("load %s forecast: %w", m, err)
		}
		if ok {
			src.Forecasts[m] = f
		}
	}
	return src, nil
}

// build returns the chart of cr, reusing a cached build when one exists.
func (s *Server) build(ctx context.Context, cr model.Crypto, days int) (*chart.BuildResult, error) {
	key := fmt.Sprintf("chart:%d:%d", cr.ID, days)
	if v, ok := s.charts.Get(key); ok {
		return v.(*chart.BuildResult), nil
	}
	src, err := s.source(ctx, cr, days)
	if err != nil {
		return nil, err
	}
	attrs, err := series.Encode(src)
	if err != nil {
		return nil, err
	}
	title := cr.Name
	if title == "" {
		title = cr.CoinGeckoID
	}
	result := chart.Build(series.Adapt(attrs), chart.Options{Title: title})
	s.charts.SetDefault(key, result)
	return result, nil
}

// render starts a detached view of result so the response carries the
// saved toggle state and the cutoff markers.
func (s *Server) render(ctx context.Context, asset, currency string, days int, result *chart.BuildResult) chartResponse {
	v := view.New(asset, result, detached{}, s.Toggles, s.viewOptions())
	v.Start(ctx)
	return chartResponse{
		Asset:      asset,
		Currency:   currency,
		Days:       days,
		Figure:     v.Figure(),
		Groups:     result.Groups(),
		GroupOrder: result.GroupKeys(),
		Forecasts:  result.Forecasts(),
		Controls:   v.Controls(),
	}
}

func (s *Server) getChart(c *gin.Context) {
	cr, ok := s.crypto(c)
	if !ok {
		return
	}
	days := s.chartDays(c.Query("days"))
	ctx := c.Request.Context()
	result, err := s.build(ctx, cr, days)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.render(ctx, cr.CoinGeckoID, strings.ToUpper(s.Currency), days, result))
}

func (s *Server) chartFromAttributes(c *gin.Context) {
	var attrs series.Attributes
	if err := c.ShouldBindJSON(&attrs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be an object of string attributes"})
		return
	}
	in := series.Adapt(attrs)
	result := chart.Build(in, chart.Options{Title: in.Asset})
	c.JSON(http.StatusOK, s.render(c.Request.Context(), in.Asset, in.Currency, 0, result))
}

func (s *Server) getSeries(c *gin.Context) {
	cr, ok := s.crypto(c)
	if !ok {
		return
	}
	days := ClampDays(c.Query("days"), s.MaxDays)
	switch strings.ToLower(strings.TrimSpace(c.DefaultQuery("indicators", "1"))) {
	case "0", "false", "no":
		s.plainSeries(c, cr, days)
		return
	}
	src, err := s.source(c.Request.Context(), cr, days)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"crypto_id":    cr.ID,
		"coingecko_id": cr.CoinGeckoID,
		"currency":     s.Currency,
		"days":         days,
		"count":        len(src.Rows),
		"series":       src.Rows,
	})
}

func (s *Server) plainSeries(c *gin.Context, cr model.Crypto, days int) {
	var since string
	if days > 0 {
		since = s.now().UTC().AddDate(0, 0, -days).Format(model.DateLayout)
	}
	points, err := s.Store.PriceSeries(c.Request.Context(), cr.ID, since)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"crypto_id":    cr.ID,
		"coingecko_id": cr.CoinGeckoID,
		"currency":     s.Currency,
		"days":         days,
		"count":        len(points),
		"series":       points,
	})
}

func (s *Server) chartSocket(c *gin.Context) {
	cr, ok := s.crypto(c)
	if !ok {
		return
	}
	days := s.chartDays(c.Query("days"))
	ctx := c.Request.Context()
	result, err := s.build(ctx, cr, days)
	if err != nil {
		fail(c, err)
		return
	}
	err = session.Serve(ctx, c.Writer, c.Request, func(surface chart.Surface) *view.View {
		return view.New(cr.CoinGeckoID, result, surface, s.Toggles, s.viewOptions())
	})
	if err != nil {
		log.Warn().Err(err).Str("coin", cr.CoinGeckoID).Msg("chart session ended with error")
	}
}
