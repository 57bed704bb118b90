package archives3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shinertx/memev1/internal/domain"
)

// LedgerSource is the narrow read/delete slice of the ledger the archiver
// needs: list closed rows older than a cutoff, then delete them once the
// upload has been confirmed.
type LedgerSource interface {
	ListClosedBefore(ctx context.Context, cutoff time.Time) ([]domain.TradeRecord, error)
	DeleteArchived(ctx context.Context, ids []int64) error
}

// Blob is the narrow write slice of Writer the archiver needs.
type Blob interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver implements domain.Archiver by moving CLOSED_* ledger rows older
// than a cutoff to a JSONL blob in S3, deleting them from the primary store,
// then recording the move in the audit log. Adapted from the teacher's
// blob/s3 archiver.go, narrowed from three domain stores (trades/orders/
// arb_history) down to the one ledger table this spec's domain has.
type Archiver struct {
	writer Blob
	ledger LedgerSource
	audit  domain.AuditStore
}

// NewArchiver creates an Archiver.
func NewArchiver(writer Blob, ledger LedgerSource, audit domain.AuditStore) *Archiver {
	return &Archiver{writer: writer, ledger: ledger, audit: audit}
}

// ArchiveClosed implements domain.Archiver.
func (a *Archiver) ArchiveClosed(ctx context.Context, olderThan time.Time) (int, error) {
	rows, err := a.ledger.ListClosedBefore(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("archive: list closed: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(rows)
	if err != nil {
		return 0, fmt.Errorf("archive: marshal: %w", err)
	}

	path := archivePath(olderThan)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("archive: upload: %w", err)
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	if err := a.ledger.DeleteArchived(ctx, ids); err != nil {
		return 0, fmt.Errorf("archive: delete archived rows after upload: %w", err)
	}

	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.trades", map[string]any{
			"path":       path,
			"count":      len(rows),
			"older_than": olderThan.Format(time.RFC3339),
		}); err != nil {
			return len(rows), fmt.Errorf("archive: audit log: %w", err)
		}
	}

	return len(rows), nil
}

// archivePath partitions archive files by year-month, matching the
// teacher's archive/<kind>/<YYYY-MM>.jsonl convention.
func archivePath(cutoff time.Time) string {
	return fmt.Sprintf("archive/trades/%s.jsonl", cutoff.Format("2006-01"))
}

var _ domain.Archiver = (*Archiver)(nil)

func marshalJSONL(records []domain.TradeRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
