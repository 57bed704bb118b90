package domain

import "errors"

// Sentinel errors corresponding to the error taxonomy: configuration,
// bus transport, ledger durability, state-machine, and collaborator
// failures are each distinguishable by callers that need to react
// differently (e.g. the execution pipeline aborts an attempt without
// writing a ledger row on ErrQuoteFailed, but leaves the row PENDING on
// ErrVenueFailed).
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrBusUnavailable     = errors.New("message bus unavailable")
	ErrLedgerIO           = errors.New("ledger i/o error")
	ErrInvalidTransition  = errors.New("invalid trade status transition")
	ErrQuoteFailed        = errors.New("aggregator quote failed")
	ErrVenueFailed        = errors.New("venue submission failed")
	ErrSigningFailed      = errors.New("signing failed")
	ErrStrategyInit       = errors.New("strategy init failed")
	ErrStrategyNotFound   = errors.New("strategy not registered")
	ErrContextDone        = errors.New("context cancelled")
)
