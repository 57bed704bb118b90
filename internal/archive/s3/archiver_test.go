package archives3

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinertx/memev1/internal/domain"
)

type fakeLedgerSource struct {
	rows    []domain.TradeRecord
	deleted []int64
}

func (f *fakeLedgerSource) ListClosedBefore(context.Context, time.Time) ([]domain.TradeRecord, error) {
	return f.rows, nil
}

func (f *fakeLedgerSource) DeleteArchived(_ context.Context, ids []int64) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

type fakeBlob struct {
	puts int
	last string
}

func (f *fakeBlob) Put(_ context.Context, path string, data io.Reader, _ string) error {
	f.puts++
	f.last = path
	return nil
}

type fakeAudit struct {
	events []string
}

func (f *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	f.events = append(f.events, event)
	return nil
}
func (f *fakeAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) { return nil, nil }

func TestArchiveClosedNoOpWhenNothingToArchive(t *testing.T) {
	ledger := &fakeLedgerSource{}
	blob := &fakeBlob{}
	a := NewArchiver(blob, ledger, &fakeAudit{})

	n, err := a.ArchiveClosed(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, blob.puts)
}

func TestArchiveClosedUploadsDeletesAndAudits(t *testing.T) {
	pnl := 12.5
	ledger := &fakeLedgerSource{rows: []domain.TradeRecord{{ID: 1, StrategyID: "s", PnLUSD: &pnl}, {ID: 2, StrategyID: "s"}}}
	blob := &fakeBlob{}
	audit := &fakeAudit{}
	a := NewArchiver(blob, ledger, audit)

	n, err := a.ArchiveClosed(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, blob.puts)
	assert.ElementsMatch(t, []int64{1, 2}, ledger.deleted)
	assert.Equal(t, []string{"archive.trades"}, audit.events)
}
