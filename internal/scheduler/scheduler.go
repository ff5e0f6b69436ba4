package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"CryptoDash/internal/collector"
	"CryptoDash/internal/notifier"
)

// ErrBusy is returned when an update is already running.
var ErrBusy = errors.New("scheduler: update already running")

// Scheduler runs the daily price update.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Notifier  *notifier.TelegramNotifier
	Location  *time.Location
	// Currency labels prices in chat replies.
	Currency string
	Ctx      context.Context

	running atomic.Bool
	now     func() time.Time
}

// NewScheduler creates a new Scheduler. Jobs fire in loc; nil means UTC.
func NewScheduler(ctx context.Context, col *collector.Collector, tn *notifier.TelegramNotifier, loc *time.Location, currency string) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Collector: col,
		Notifier:  tn,
		Location:  loc,
		Currency:  currency,
		Ctx:       ctx,
		now:       time.Now,
	}
}

// DailySpec is the cron expression for hour:minute every day.
func DailySpec(hour, minute int) string {
	return fmt.Sprintf("0 %d %d * * *", minute, hour)
}

// Register schedules the daily update at hour:minute.
func (s *Scheduler) Register(hour, minute int) error {
	if _, err := s.Cron.AddFunc(DailySpec(hour, minute), s.dailyTask); err != nil {
		return fmt.Errorf("register daily update: %w", err)
	}
	log.Info().
		Str("timezone", s.Location.String()).
		Str("at", fmt.Sprintf("%02d:%02d", hour, minute)).
		Msg("daily price update scheduled")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes the daily update immediately and reports it.
func (s *Scheduler) RunNow(ctx context.Context) (*collector.UpdateReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.running.Store(false)

	start := time.Now()
	report, err := s.Collector.UpdateDaily(ctx, s.now().In(s.Location))
	if err != nil {
		log.Error().Err(err).Msg("daily price update failed")
		s.trySend(ctx, fmt.Sprintf("❌ Daily price update failed: %v", err))
		return report, err
	}
	log.Info().
		Str("as_of", report.AsOf).
		Int("inserted", report.Inserted).
		Int("updated", report.Updated).
		Int("skipped", report.Skipped).
		Int("errors", len(report.Errors)).
		Msgf("Updated %d cryptos; errors: %d", report.Inserted+report.Updated, len(report.Errors))
	s.trySend(ctx, notifier.FormatUpdateReport(report, time.Since(start)))
	return report, nil
}

func (s *Scheduler) dailyTask() {
	if _, err := s.RunNow(s.Ctx); errors.Is(err, ErrBusy) {
		log.Warn().Msg("daily price update skipped, previous run still active")
	}
}

// HandleCommand answers a chat command.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/update":
		go func() {
			if _, err := s.RunNow(s.Ctx); errors.Is(err, ErrBusy) {
				s.trySend(ctx, "⏳ An update is already running.")
			}
		}()
		return "🔄 Updating prices..."
	case "/prices":
		list, err := s.Collector.Store.ListCryptos(ctx)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatLatestPrices(list, s.Currency)
	case "/help", "/start":
		return "/update - fetch today's prices now\n/prices - latest stored prices\n/help - this message"
	default:
		return ""
	}
}

func (s *Scheduler) trySend(ctx context.Context, msg string) {
	if !s.Notifier.Enabled() {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, msg, 3, 2*time.Second); err != nil {
		log.Error().Err(err).Msg("telegram send failed")
	}
}
