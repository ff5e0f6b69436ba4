// Package server exposes the dashboard over HTTP: the JSON API, the chart
// websocket and the renderer page.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"CryptoDash/internal/collector"
	"CryptoDash/internal/dashboard"
	"CryptoDash/internal/model"
	"CryptoDash/internal/ruler"
	"CryptoDash/internal/store"
	"CryptoDash/internal/toggle"
	"CryptoDash/internal/view"
)

// Deps are the collaborators of the server.
type Deps struct {
	Store     store.Store
	Collector *collector.Collector
	Toggles   *toggle.Store
	// Currency is the quote currency of stored prices.
	Currency string
	// MaxDays caps every days parameter.
	MaxDays int
	// CacheTTL bounds how long a built chart is reused.
	CacheTTL       time.Duration
	AllowedOrigins []string
	// DayThreshold switches ruler durations from two to one decimal.
	DayThreshold time.Duration
}

// Server handles HTTP requests.
type Server struct {
	Deps
	charts *cache.Cache
	now    func() time.Time
}

// New creates a server.
func New(d Deps) *Server {
	if d.CacheTTL <= 0 {
		d.CacheTTL = 5 * time.Minute
	}
	if d.MaxDays <= 0 {
		d.MaxDays = 3650
	}
	return &Server{
		Deps:   d,
		charts: cache.New(d.CacheTTL, 2*d.CacheTTL),
		now:    time.Now,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	if len(s.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  s.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.HEAD("/health", s.health)

		api.GET("/dashboard", s.dashboard)
		api.GET("/cryptos", s.listCryptos)
		api.POST("/cryptos", s.addCrypto)
		api.GET("/cryptos/:id/prices", s.prices)
		api.GET("/cryptos/:id/series", s.getSeries)
		api.GET("/cryptos/:id/chart", s.getChart)
		api.POST("/chart", s.chartFromAttributes)

		api.GET("/cryptos/:id/toggles", s.getToggles)
		api.PUT("/cryptos/:id/toggles", s.putToggles)
		api.DELETE("/cryptos/:id/toggles", s.deleteToggles)

		api.POST("/cryptos/:id/prices/update", s.updatePrice)
		api.POST("/cryptos/:id/backfill", s.backfill)
		api.POST("/cryptos/:id/prices/fill", s.fillMissing)
		api.POST("/cryptos/:id/forecasts/:model", s.ingestForecast)
	}

	r.GET("/ws/cryptos/:id", s.chartSocket)
	r.GET("/cryptos/:id", s.page)
	return r
}

// requestLogger logs one line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ev := log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}

// ClampDays parses a days parameter: anything but digits means 0 (all
// history) and values above max are lowered to max.
func ClampDays(raw string, max int) int {
	raw = strings.TrimSpace(raw)
	days := 0
	if raw != "" && strings.Trim(raw, "0123456789") == "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			n = max
		}
		days = n
	}
	if days > max {
		return max
	}
	return days
}

// chartDays applies ClampDays, defaulting to one year when raw is empty.
func (s *Server) chartDays(raw string) int {
	if strings.TrimSpace(raw) == "" {
		raw = strconv.Itoa(min(365, s.MaxDays))
	}
	return ClampDays(raw, s.MaxDays)
}

func (s *Server) viewOptions() view.Options {
	return view.Options{Ruler: ruler.Options{DayThreshold: s.DayThreshold}}
}

// crypto loads the :id crypto, writing a 404 when it does not exist.
func (s *Server) crypto(c *gin.Context) (model.Crypto, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return model.Crypto{}, false
	}
	cr, err := s.Store.GetCrypto(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return model.Crypto{}, false
	}
	if err != nil {
		fail(c, err)
		return model.Crypto{}, false
	}
	return cr, true
}

func fail(c *gin.Context, err error) {
	log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// invalidate drops every cached chart of cryptoID.
func (s *Server) invalidate(cryptoID int64) {
	prefix := fmt.Sprintf("chart:%d:", cryptoID)
	for k := range s.charts.Items() {
		if strings.HasPrefix(k, prefix) {
			s.charts.Delete(k)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listCryptos(c *gin.Context) {
	list, err := s.Store.ListCryptos(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) dashboard(c *gin.Context) {
	rows, err := dashboard.Build(c.Request.Context(), s.Store)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currency": strings.ToUpper(s.Currency), "rows": rows})
}

type addCryptoRequest struct {
	CoinGeckoID string `json:"coingecko_id"`
}

func (s *Server) addCrypto(c *gin.Context) {
	var req addCryptoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	id := strings.ToLower(strings.TrimSpace(req.CoinGeckoID))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coingecko_id is required"})
		return
	}
	ctx := c.Request.Context()
	info, err := s.Collector.Fetcher.FetchCoin(ctx, id)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if info == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown coin " + id})
		return
	}
	cr, err := s.Store.AddCrypto(ctx, model.Crypto{CoinGeckoID: info.ID, Name: info.Name, Symbol: info.Symbol})
	if errors.Is(err, store.ErrDuplicate) {
		c.JSON(http.StatusConflict, gin.H{"error": "already tracked"})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	log.Info().Str("coin", cr.CoinGeckoID).Int64("id", cr.ID).Msg("crypto added")
	c.JSON(http.StatusCreated, cr)
}

func (s *Server) prices(c *gin.Context) {
	cr, ok := s.crypto(c)
	if !ok {
		return
	}
	points, err := s.Store.PriceSeries(c.Request.Context(), cr.ID, "")
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

func (s *Server) updatePrice(c *gin.Context) {
	cr, ok := s.crypto(c)
	if !ok {
		return
	}
	w, err := s.Collector.UpdateOne(c.Request.Context(), cr.ID, s.now())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	s.invalidate(cr.ID)
	result := map[store.PriceWrite]string{
		store.PriceInserted:  "inserted",
		store.PriceUpdated:   "updated",
		store.PriceUnchanged: "unchanged",
	}[w]
	c.JSON(http.StatusOK, gin.H{"crypto_id": cr.ID, "result": result})
}

func (s *Server) backfill(c *gin.Context) {
	cr, ok := s.crypto(c)
	if !ok {
		return
	}
	raw := c.Query("days")
	if raw == "" {
		raw = c.PostForm("days")
	}
	days := ClampDays(raw, s.Collector.MaxHistoryDays)
	if days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive number"})
		return
	}
	report, err := s.Collector.Backfill(c.Request.Context(), cr.ID, days)
	if report != nil && report.Inserted+report.Updated > 0 {
		s.invalidate(cr.ID)
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

// fillMissing requests the days missing inside the stored span.
func (s *Server) fillMissing(c *gin.Context) {
	cr, ok := s.crypto(c)
	if !ok {
		return
	}
	report, err := s.Collector.FillMissing(c.Request.Context(), cr.ID)
	if report != nil && report.Inserted+report.Updated > 0 {
		s.invalidate(cr.ID)
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

type forecastRequest struct {
	CutoffDate  string              `json:"cutoff_date"`
	HorizonDays int                 `json:"horizon_days"`
	Rows        []model.ForecastRow `json:"rows"`
}

func (s *Server) ingestForecast(c *gin.Context) {
	cr, ok := s.crypto(c)
	if !ok {
		return
	}
	m := model.ForecastModel(strings.ToLower(c.Param("model")))
	if !m.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown model " + c.Param("model")})
		return
	}
	var req forecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if req.CutoffDate != "" {
		if _, err := time.Parse(model.DateLayout, req.CutoffDate); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cutoff_date must be YYYY-MM-DD"})
			return
		}
	}
	for _, r := range req.Rows {
		if _, err := time.Parse(model.DateLayout, r.Date); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid row date " + r.Date})
			return
		}
	}
	f := model.Forecast{Model: m, CutoffDate: req.CutoffDate, HorizonDays: req.HorizonDays, Rows: req.Rows}
	if err := s.Store.ReplaceForecast(c.Request.Context(), cr.ID, f); err != nil {
		fail(c, err)
		return
	}
	s.invalidate(cr.ID)
	log.Info().Str("coin", cr.CoinGeckoID).Str("model", string(m)).Int("rows", len(req.Rows)).Msg("forecast ingested")
	c.JSON(http.StatusOK, gin.H{"crypto_id": cr.ID, "model": m, "rows": len(req.Rows)})
}

func (s *Server) getToggles(c *gin.Context) {
	cr, ok := s.crypto(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Toggles.Load(c.Request.Context(), cr.CoinGeckoID))
}

func (s *Server) putToggles(c *gin.Context) {
	cr, ok := s.crypto(c)
	if !ok {
		return
	}
	var st toggle.State
	if err := c.ShouldBindJSON(&st); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	ctx := c.Request.Context()
	s.Toggles.Replace(ctx, cr.CoinGeckoID, st)
	c.JSON(http.StatusOK, s.Toggles.Load(ctx, cr.CoinGeckoID))
}

func (s *Server) deleteToggles(c *gin.Context) {
	cr, ok := s.crypto(c)
	if !ok {
		return
	}
	s.Toggles.Reset(c.Request.Context(), cr.CoinGeckoID)
	c.Status(http.StatusNoContent)
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("http server shutting down")
		return srv.Shutdown(shutdown)
	}
}
