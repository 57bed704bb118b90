// Package supervisor implements the Portfolio Supervisor (spec §4.6): a
// periodic drawdown monitor that pauses and resumes trading via the
// kill-switch channel based on high-water-mark hysteresis.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	msgbus "github.com/shinertx/memev1/internal/bus"
)

// Period is the interval between drawdown checks.
const Period = 30 * time.Second

// resumeFactor scales the stop-loss threshold down for resume, so a
// strategy that only just dips below it doesn't immediately re-pause.
const resumeFactor = 0.8

// Ledger is the subset of domain.Ledger the supervisor needs.
type Ledger interface {
	TotalRealisedPnL(ctx context.Context) (float64, error)
}

// Bus publishes pause/resume signals.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Supervisor tracks the portfolio high-water-mark and drawdown.
type Supervisor struct {
	mu            sync.Mutex
	ledger        Ledger
	bus           Bus
	stopLossPct   float64
	logger        *slog.Logger
	highWaterMark float64
	paused        bool
}

// New creates a Supervisor. stopLossPct is the drawdown percentage (e.g.
// 15.0 for 15%) at which trading pauses.
func New(ledger Ledger, bus Bus, stopLossPct float64, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		ledger:      ledger,
		bus:         bus,
		stopLossPct: stopLossPct,
		logger:      logger.With(slog.String("component", "portfolio_supervisor")),
	}
}

// Run blocks, checking drawdown every Period until ctx is done.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info("portfolio supervisor online")
	ticker := time.NewTicker(Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.checkOnce(ctx)
		}
	}
}

// checkOnce runs a single drawdown check. It is unexported; tests in this
// package call it directly to drive the loop deterministically instead of
// waiting on a ticker.
func (s *Supervisor) checkOnce(ctx context.Context) {
	pnl, err := s.ledger.TotalRealisedPnL(ctx)
	if err != nil {
		s.logger.Error("failed to read total realised pnl", slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	if pnl > s.highWaterMark {
		s.highWaterMark = pnl
	}
	hwm := s.highWaterMark
	wasPaused := s.paused
	s.mu.Unlock()

	drawdownPct := 0.0
	if hwm > 0 {
		drawdownPct = (hwm - pnl) / hwm * 100.0
	}

	s.logger.Info("portfolio drawdown check", slog.Float64("pnl_usd", pnl), slog.Float64("high_water_mark_usd", hwm), slog.Float64("drawdown_pct", drawdownPct))

	switch {
	case drawdownPct > s.stopLossPct && !wasPaused:
		if err := s.bus.Publish(ctx, msgbus.TopicKillSwitch, []byte(msgbus.KillSwitchPause)); err != nil {
			s.logger.Error("failed to publish PAUSE", slog.String("error", err.Error()))
			return
		}
		s.setPaused(true)
		s.logger.Error("trading paused: drawdown exceeds stop-loss threshold", slog.Float64("drawdown_pct", drawdownPct), slog.Float64("threshold_pct", s.stopLossPct))
	case wasPaused && drawdownPct < s.stopLossPct*resumeFactor:
		if err := s.bus.Publish(ctx, msgbus.TopicKillSwitch, []byte(msgbus.KillSwitchResume)); err != nil {
			s.logger.Error("failed to publish RESUME", slog.String("error", err.Error()))
			return
		}
		s.setPaused(false)
		s.logger.Info("trading resumed: drawdown recovered", slog.Float64("drawdown_pct", drawdownPct))
	}
}

func (s *Supervisor) setPaused(v bool) {
	s.mu.Lock()
	s.paused = v
	s.mu.Unlock()
}

// Paused reports whether the supervisor currently believes trading is
// paused.
func (s *Supervisor) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}
