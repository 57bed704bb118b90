package execution

import "context"

// The collaborator capabilities named in spec §6. They are abstract by
// design — spec §1 places the concrete aggregator/venue/signer/relay
// clients out of scope as external collaborators. No live implementation
// ships here; paper mode exercises the whole pipeline without them, and a
// deployment wires real clients satisfying these interfaces.

// Aggregator is the spot aggregator collaborator.
type Aggregator interface {
	Quote(ctx context.Context, usdNotional float64, token string) (pricePerToken float64, err error)
	SwapTx(ctx context.Context, userPK, token string, usd float64) ([]byte, error)
}

// Signer is the remote signer collaborator.
type Signer interface {
	PubKey() string
	Sign(ctx context.Context, opaque []byte) ([]byte, error)
}

// PerpVenue is the perpetual futures venue collaborator.
type PerpVenue interface {
	EnsureMarginAccount(ctx context.Context) (handle string, err error)
	OpenPosition(ctx context.Context, handle string, args OpenPositionArgs) (signature string, err error)
}

// OpenPositionArgs is the set of parameters OpenPosition needs.
type OpenPositionArgs struct {
	Market        string
	BaseSizeLamports uint64
	Short         bool
	ReduceOnly    bool
}

// BundleRelay is the bundle/tip relay collaborator.
type BundleRelay interface {
	RecentBlockhash(ctx context.Context) (string, error)
	AttachTip(tx []byte, lamports int64) ([]byte, error)
	Send(ctx context.Context, tx []byte) (signature string, err error)
}
