package paysplit

import (
	"context"
	"math/big"
)

// Ledger is the external, authoritative on-chain store of invoice and
// payment state. Reads return the ledger's current view; writes are
// idempotent from the caller's perspective. The implementation owns the
// payer's signing identity: Authorize and PayInvoice act on behalf of
// Payer().
type Ledger interface {
	// Payer returns the address whose funds settle invoices through this
	// ledger client.
	Payer() string

	// GetInvoice returns the stored invoice, or ErrInvoiceNotFound.
	GetInvoice(ctx context.Context, id string) (*LedgerInvoice, error)

	// GetSplits returns the ordered split configuration stored for an
	// invoice.
	GetSplits(ctx context.Context, id string) ([]LedgerSplit, error)

	// Allowance returns how much the settlement contract may currently
	// move on the payer's behalf, in minor units.
	Allowance(ctx context.Context) (*big.Int, error)

	// BalanceOf returns the payer's token balance in minor units.
	BalanceOf(ctx context.Context) (*big.Int, error)

	// Authorize grants the settlement contract an allowance of at least
	// amount. Safe to call repeatedly; the allowance is re-read at
	// execution time. Returns the transaction reference.
	Authorize(ctx context.Context, amount *big.Int) (string, error)

	// PayInvoice pulls authorized funds and distributes them according to
	// the stored splits. Returns the transaction reference and the payer
	// only after the ledger confirms success.
	PayInvoice(ctx context.Context, id string) (string, error)

	// CreateInvoice records a validated invoice on the ledger and returns
	// the ledger-assigned id. All recipients must carry resolved
	// addresses.
	CreateInvoice(ctx context.Context, invoice *Invoice) (string, error)
}

// Extractor turns free text into a candidate invoice via the external
// language-understanding service. Implementations classify their failures
// as extraction_empty, extraction_malformed, or extraction_failed; retry
// policy belongs to the caller.
type Extractor interface {
	Extract(ctx context.Context, text string) (*CandidateInvoice, error)
}
