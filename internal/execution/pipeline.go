// Package execution implements the Execution Pipeline (spec §4.4): cap
// sizing, price probing, ledger attempt logging, and the paper/live/
// short/long branches.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shinertx/memev1/internal/domain"
)

// Config holds the execution-affecting environment knobs named in spec §6.
type Config struct {
	PaperTradingMode        bool
	GlobalMaxPositionUSD    float64
	JitoTipLamports         int64
	SolPerpMarket           string
}

// Pipeline executes orders strategies emit.
type Pipeline struct {
	cfg        Config
	ledger     domain.Ledger
	aggregator Aggregator
	perp       PerpVenue
	relay      BundleRelay
	signer     Signer
	solMark    *SolMark
	dedup      *dedup
	logger     *slog.Logger
}

// New creates a Pipeline. aggregator, perp, relay, and signer may be nil
// when PaperTradingMode is true — paper mode never calls them.
func New(cfg Config, ledger domain.Ledger, aggregator Aggregator, perp PerpVenue, relay BundleRelay, signer Signer, solMark *SolMark, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		ledger:     ledger,
		aggregator: aggregator,
		perp:       perp,
		relay:      relay,
		signer:     signer,
		solMark:    solMark,
		dedup:      newDedup(2 * time.Minute),
		logger:     logger.With(slog.String("component", "execution_pipeline")),
	}
}

// Execute runs the full pipeline for one order (spec §4.4).
func (p *Pipeline) Execute(ctx context.Context, order domain.OrderDetails, strategyID string) error {
	size := order.SuggestedSizeUSD
	if size > p.cfg.GlobalMaxPositionUSD {
		size = p.cfg.GlobalMaxPositionUSD
	}

	entryPrice, err := p.probePrice(ctx, size, order.Token)
	if err != nil {
		// Failure here aborts the attempt with no ledger row written.
		return fmt.Errorf("%w: probe price for %s: %v", domain.ErrQuoteFailed, order.Token, err)
	}

	id, err := p.ledger.LogAttempt(ctx, domain.OrderDetails{Token: order.Token, SuggestedSizeUSD: size, Confidence: order.Confidence, Side: order.Side}, strategyID, entryPrice)
	if err != nil {
		return fmt.Errorf("log attempt: %w", err)
	}

	if !p.dedup.start(id) {
		p.logger.Warn("duplicate execute for in-flight trade, skipping", slog.Int64("trade_id", id))
		return nil
	}
	defer p.dedup.finish(id)

	switch {
	case p.cfg.PaperTradingMode:
		return p.fillPaper(ctx, id, size, order.Side)
	case order.Side == domain.SideShort:
		return p.fillLiveShort(ctx, id, size, order.Side)
	default:
		return p.fillLiveLong(ctx, id, order, size)
	}
}

func (p *Pipeline) probePrice(ctx context.Context, size float64, token string) (float64, error) {
	if p.aggregator == nil {
		// Paper mode with no aggregator wired: a minimal-notional quote of
		// $1 is what the original asks for; without a real aggregator we
		// fall back to the last known SOL mark as a stand-in reference
		// price so paper-mode tests don't need a live collaborator.
		return p.solMark.Get(), nil
	}
	return p.aggregator.Quote(ctx, 1.0, token)
}

func (p *Pipeline) fillPaper(ctx context.Context, id int64, size float64, side domain.Side) error {
	pnl := simulateFill(size, side == domain.SideShort)
	status := domain.StatusClosedProfit
	if pnl <= 0 {
		status = domain.StatusClosedLoss
	}

	if err := p.ledger.Open(ctx, id, "paper"); err != nil {
		return fmt.Errorf("paper open: %w", err)
	}
	// close_price_usd is recorded as 0 in paper mode even though pnl is
	// nonzero — an intentional sentinel spec §9 flags as breaking the
	// dashboard's "close price" semantics; documented here rather than
	// papered over with a synthetic value.
	if err := p.ledger.Close(ctx, id, status, 0, pnl); err != nil {
		return fmt.Errorf("paper close: %w", err)
	}
	return nil
}

func (p *Pipeline) fillLiveShort(ctx context.Context, id int64, size float64, side domain.Side) error {
	handle, err := p.perp.EnsureMarginAccount(ctx)
	if err != nil {
		return fmt.Errorf("%w: margin account: %v", domain.ErrVenueFailed, err)
	}

	mark := p.solMark.Get()
	if mark <= 0 {
		return fmt.Errorf("%w: sol mark unavailable", domain.ErrVenueFailed)
	}
	baseLamports := uint64(size / mark * 1e9)

	sig, err := p.perp.OpenPosition(ctx, handle, OpenPositionArgs{
		Market:           p.cfg.SolPerpMarket,
		BaseSizeLamports: baseLamports,
		Short:            true,
		ReduceOnly:       false,
	})
	if err != nil {
		return fmt.Errorf("%w: open position: %v", domain.ErrVenueFailed, err)
	}
	if err := p.ledger.Open(ctx, id, sig); err != nil {
		return fmt.Errorf("ledger open: %w", err)
	}
	return nil
}

func (p *Pipeline) fillLiveLong(ctx context.Context, id int64, order domain.OrderDetails, size float64) error {
	tx, err := p.aggregator.SwapTx(ctx, p.signer.PubKey(), order.Token, size)
	if err != nil {
		return fmt.Errorf("%w: swap tx: %v", domain.ErrVenueFailed, err)
	}

	signed, err := p.signer.Sign(ctx, tx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}

	blockhash, err := p.relay.RecentBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("%w: recent blockhash: %v", domain.ErrVenueFailed, err)
	}
	_ = blockhash // the relay attaches the blockhash internally in AttachTip.

	withTip, err := p.relay.AttachTip(signed, p.cfg.JitoTipLamports)
	if err != nil {
		return fmt.Errorf("%w: attach tip: %v", domain.ErrVenueFailed, err)
	}

	sig, err := p.relay.Send(ctx, withTip)
	if err != nil {
		return fmt.Errorf("%w: send: %v", domain.ErrVenueFailed, err)
	}

	if err := p.ledger.Open(ctx, id, sig); err != nil {
		return fmt.Errorf("ledger open: %w", err)
	}
	return nil
}
