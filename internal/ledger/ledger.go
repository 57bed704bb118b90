// Package ledger implements the Trade Ledger (spec §4.1): the embedded
// single-file durable store of trade attempts and their lifecycle
// transitions.
package ledger

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shinertx/memev1/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ledger is a single-writer-per-connection durable store keyed by
// auto-assigned id, backed by SQLite. Mutations on a given id are
// serialised via conditional updates (`WHERE id=? AND status=?`), so
// concurrent callers racing on the same id never produce an invalid
// transition silently — the loser's update affects zero rows and gets
// ErrInvalidTransition.
type Ledger struct {
	db *sql.DB
}

// Open creates or attaches to the SQLite file at path and applies any
// pending migrations. path may be a "file:" URI that already carries its own
// query parameters; the ledger's connection options are appended to them.
func Open(ctx context.Context, path string) (*Ledger, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", path+sep+"_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer, avoids SQLITE_BUSY under our own load.

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: ping %s: %w", path, err)
	}

	l := &Ledger{db: db}
	if err := l.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) migrate(ctx context.Context) error {
	const createTracker = `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := l.db.ExecContext(ctx, createTracker); err != nil {
		return fmt.Errorf("ledger: create schema_migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ledger: read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var exists bool
		row := l.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = ?)", entry.Name())
		if err := row.Scan(&exists); err != nil {
			return fmt.Errorf("ledger: check migration %s: %w", entry.Name(), err)
		}
		if exists {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("ledger: read migration %s: %w", entry.Name(), err)
		}

		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("ledger: begin tx for %s: %w", entry.Name(), err)
		}
		if _, err := tx.ExecContext(ctx, string(data)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("ledger: exec migration %s: %w", entry.Name(), err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", entry.Name()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("ledger: record migration %s: %w", entry.Name(), err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("ledger: commit migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// LogAttempt inserts a PENDING row with now() as entry time.
func (l *Ledger) LogAttempt(ctx context.Context, details domain.OrderDetails, strategyID string, entryRefPrice float64) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO trades (strategy_id, token_address, symbol, amount_usd, status, entry_time, entry_price_usd, confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		strategyID, details.Token, details.Token, details.SuggestedSizeUSD, domain.StatusPending,
		time.Now().Unix(), entryRefPrice, details.Confidence,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: log attempt: %v", domain.ErrLedgerIO, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: log attempt id: %v", domain.ErrLedgerIO, err)
	}
	return id, nil
}

// Open transitions PENDING -> OPEN. A call that finds the row already OPEN
// with the same signature is a no-op (idempotent per spec §4.1); any other
// starting state, or an OPEN row with a different signature, is rejected.
func (l *Ledger) Open(ctx context.Context, id int64, signature string) error {
	var status, existingSig string
	row := l.db.QueryRowContext(ctx, `SELECT status, signature FROM trades WHERE id = ?`, id)
	if err := row.Scan(&status, &existingSig); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: trade %d", domain.ErrNotFound, id)
		}
		return fmt.Errorf("%w: open %d: %v", domain.ErrLedgerIO, id, err)
	}

	if domain.TradeStatus(status) == domain.StatusOpen {
		if existingSig == signature {
			return nil
		}
		return fmt.Errorf("%w: trade %d already open with signature %q", domain.ErrInvalidTransition, id, existingSig)
	}
	if domain.TradeStatus(status) != domain.StatusPending {
		return fmt.Errorf("%w: trade %d is %s, not pending", domain.ErrInvalidTransition, id, status)
	}

	res, err := l.db.ExecContext(ctx,
		`UPDATE trades SET status = ?, signature = ? WHERE id = ? AND status = ?`,
		domain.StatusOpen, signature, id, domain.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("%w: open %d: %v", domain.ErrLedgerIO, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: open %d: %v", domain.ErrLedgerIO, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: trade %d changed underneath us", domain.ErrInvalidTransition, id)
	}
	return nil
}

// Close transitions OPEN -> CLOSED_PROFIT|CLOSED_LOSS, setting close_time to
// now(). Rejects any source state other than OPEN.
func (l *Ledger) Close(ctx context.Context, id int64, status domain.TradeStatus, closePrice float64, pnl float64) error {
	if status != domain.StatusClosedProfit && status != domain.StatusClosedLoss {
		return fmt.Errorf("%w: close %d: target status %s is not a closed status", domain.ErrInvalidTransition, id, status)
	}

	res, err := l.db.ExecContext(ctx,
		`UPDATE trades SET status = ?, close_time = ?, close_price_usd = ?, pnl_usd = ?
		 WHERE id = ? AND status = ?`,
		status, time.Now().Unix(), closePrice, pnl, id, domain.StatusOpen,
	)
	if err != nil {
		return fmt.Errorf("%w: close %d: %v", domain.ErrLedgerIO, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: close %d: %v", domain.ErrLedgerIO, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: trade %d is not open", domain.ErrInvalidTransition, id)
	}
	return nil
}

// All returns rows ordered by entry_time descending, for dashboards.
func (l *Ledger) All(ctx context.Context) ([]domain.TradeRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, strategy_id, token_address, symbol, amount_usd, status, signature,
		        entry_time, entry_price_usd, close_time, close_price_usd, pnl_usd, confidence
		 FROM trades ORDER BY entry_time DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: all: %v", domain.ErrLedgerIO, err)
	}
	defer rows.Close()

	var out []domain.TradeRecord
	for rows.Next() {
		var (
			r                     domain.TradeRecord
			entryUnix             int64
			status                string
			closeUnix             sql.NullInt64
			closePrice, pnl       sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.StrategyID, &r.TokenAddress, &r.Symbol, &r.AmountUSD, &status,
			&r.Signature, &entryUnix, &r.EntryPriceUSD, &closeUnix, &closePrice, &pnl, &r.Confidence); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrLedgerIO, err)
		}
		r.Status = domain.TradeStatus(status)
		r.EntryTime = time.Unix(entryUnix, 0)
		if closeUnix.Valid {
			t := time.Unix(closeUnix.Int64, 0)
			r.CloseTime = &t
		}
		if closePrice.Valid {
			v := closePrice.Float64
			r.ClosePriceUSD = &v
		}
		if pnl.Valid {
			v := pnl.Float64
			r.PnLUSD = &v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", domain.ErrLedgerIO, err)
	}
	return out, nil
}

// TotalRealisedPnL sums pnl over rows with a CLOSED_* status, returning 0
// if there are none.
func (l *Ledger) TotalRealisedPnL(ctx context.Context) (float64, error) {
	var total sql.NullFloat64
	row := l.db.QueryRowContext(ctx,
		`SELECT SUM(pnl_usd) FROM trades WHERE status IN (?, ?)`,
		domain.StatusClosedProfit, domain.StatusClosedLoss,
	)
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: total realised pnl: %v", domain.ErrLedgerIO, err)
	}
	if !total.Valid {
		return 0, nil
	}
	return total.Float64, nil
}

// ListClosedBefore returns all CLOSED_* rows with close_time strictly
// before cutoff, for archival.
func (l *Ledger) ListClosedBefore(ctx context.Context, cutoff time.Time) ([]domain.TradeRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, strategy_id, token_address, symbol, amount_usd, status, signature,
		        entry_time, entry_price_usd, close_time, close_price_usd, pnl_usd, confidence
		 FROM trades WHERE status IN (?, ?) AND close_time < ?`,
		domain.StatusClosedProfit, domain.StatusClosedLoss, cutoff.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list closed before: %v", domain.ErrLedgerIO, err)
	}
	defer rows.Close()

	var out []domain.TradeRecord
	for rows.Next() {
		var (
			r               domain.TradeRecord
			entryUnix       int64
			status          string
			closeUnix       sql.NullInt64
			closePrice, pnl sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.StrategyID, &r.TokenAddress, &r.Symbol, &r.AmountUSD, &status,
			&r.Signature, &entryUnix, &r.EntryPriceUSD, &closeUnix, &closePrice, &pnl, &r.Confidence); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrLedgerIO, err)
		}
		r.Status = domain.TradeStatus(status)
		r.EntryTime = time.Unix(entryUnix, 0)
		if closeUnix.Valid {
			t := time.Unix(closeUnix.Int64, 0)
			r.CloseTime = &t
		}
		if closePrice.Valid {
			v := closePrice.Float64
			r.ClosePriceUSD = &v
		}
		if pnl.Valid {
			v := pnl.Float64
			r.PnLUSD = &v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", domain.ErrLedgerIO, err)
	}
	return out, nil
}

// DeleteArchived removes rows by id. Called only after the archiver has
// confirmed the upload succeeded.
func (l *Ledger) DeleteArchived(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := l.db.ExecContext(ctx, `DELETE FROM trades WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("%w: delete archived: %v", domain.ErrLedgerIO, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.Ledger = (*Ledger)(nil)
