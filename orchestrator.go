package paysplit

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultGuardTTL is how long a cached execution result deduplicates
// repeated execute calls for the same invoice.
const DefaultGuardTTL = 5 * time.Minute

// Orchestrator drives the two-phase settlement protocol against the ledger:
// authorize the payer's funds, then execute the transfer-and-split. The
// ledger's invoice record is the single source of truth; the orchestrator's
// view is a read-through cache and only confirmed ledger transitions move
// an invoice to Paid.
type Orchestrator struct {
	ledger   Ledger
	calc     *SplitCalculator
	guard    *ExecutionGuard
	decimals int32
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithGuardTTL sets the execution-result cache lifetime.
func WithGuardTTL(ttl time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.guard = NewExecutionGuard(ttl)
	}
}

// WithDisplayDecimals sets the minor-unit precision used for previews.
func WithDisplayDecimals(decimals int32) OrchestratorOption {
	return func(o *Orchestrator) {
		o.decimals = decimals
	}
}

// NewOrchestrator creates an orchestrator over the given ledger. The
// calculator is used for local previews only; the ledger's stored split
// configuration stays authoritative at execution time.
func NewOrchestrator(ledger Ledger, calc *SplitCalculator, opts ...OrchestratorOption) *Orchestrator {
	if calc == nil {
		calc = NewSplitCalculator()
	}
	o := &Orchestrator{
		ledger:   ledger,
		calc:     calc,
		guard:    NewExecutionGuard(DefaultGuardTTL),
		decimals: DefaultDecimals,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Status returns the current read-through view of an invoice: the ledger's
// stored record and splits, with Approved derived from a live allowance
// read.
func (o *Orchestrator) Status(ctx context.Context, invoiceID string) (*Invoice, error) {
	stored, err := o.readInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	splits, err := o.ledger.GetSplits(ctx, invoiceID)
	if err != nil {
		return nil, NewLedgerError(CodeLedgerRejected, "failed to read invoice splits", err)
	}

	if !stored.Amount.IsInt64() {
		return nil, NewInternalError("ledger amount exceeds representable range")
	}
	amount := stored.Amount.Int64()

	inv := &Invoice{
		ID:          stored.ID,
		Creator:     stored.Creator,
		Amount:      amount,
		Currency:    stored.Token,
		Description: stored.Description,
		Status:      StatusCreated,
		CreatedAt:   stored.CreatedAt,
	}

	if len(splits) > 0 {
		previews, err := o.Preview(amount, splits)
		if err != nil {
			return nil, err
		}
		inv.Splits = make([]Split, len(splits))
		for i, s := range splits {
			inv.Splits[i] = Split{
				Address:     s.Recipient,
				Percentage:  float64(s.BasisPoints) / 100,
				BasisPoints: s.BasisPoints,
				Amount:      previews[i].Amount,
			}
		}
	}

	if stored.Paid {
		inv.Status = StatusPaid
		inv.PaidBy = stored.PaidBy
		if !stored.PaidAt.IsZero() {
			paidAt := stored.PaidAt
			inv.PaidAt = &paidAt
		}
		return inv, nil
	}

	allowance, err := o.ledger.Allowance(ctx)
	if err != nil {
		return nil, NewLedgerError(CodeLedgerRejected, "failed to read allowance", err)
	}
	if allowance.Cmp(stored.Amount) >= 0 {
		inv.Status = StatusApproved
	}
	return inv, nil
}

// Authorize asks the ledger's funding primitive to allow at least the
// invoice amount to be moved on the payer's behalf. Idempotent: repeated
// calls re-grant the same allowance and never transition invoice status;
// the allowance is tracked by the ledger and re-read at execution time.
func (o *Orchestrator) Authorize(ctx context.Context, invoiceID string) (*AuthorizeResult, error) {
	stored, err := o.readInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	payer := o.ledger.Payer()

	if stored.Paid {
		// Nothing left to authorize; report the idempotent observation.
		return &AuthorizeResult{Authorized: true, Payer: payer, Allowance: "0"}, nil
	}

	balance, err := o.ledger.BalanceOf(ctx)
	if err != nil {
		return nil, NewLedgerError(CodeLedgerRejected, "failed to read payer balance", err)
	}
	if balance.Cmp(stored.Amount) < 0 {
		return nil, NewLedgerError(CodeAuthorizationRejected, "payer balance does not cover the invoice amount", nil)
	}

	tx, err := o.ledger.Authorize(ctx, stored.Amount)
	if err != nil {
		return nil, NewLedgerError(CodeAuthorizationRejected, "ledger rejected the authorization", err)
	}

	allowance := "0"
	if current, err := o.ledger.Allowance(ctx); err == nil {
		allowance = current.String()
	}
	return &AuthorizeResult{
		Authorized:  true,
		Payer:       payer,
		Transaction: tx,
		Allowance:   allowance,
	}, nil
}

// Execute settles an invoice: re-reads the ledger's invoice state, treats
// an already-paid record as a successful no-op, verifies the allowance, and
// only then asks the ledger to pull and distribute the funds. Concurrent
// calls for the same invoice in this process share one ledger write.
func (o *Orchestrator) Execute(ctx context.Context, invoiceID string) (*ExecuteResult, error) {
	status, cached, done := o.guard.CheckAndMark(invoiceID)
	switch status {
	case ExecutionCached:
		return cached, nil
	case ExecutionInFlight:
		result, err := o.guard.WaitForResult(ctx, invoiceID, done)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
		// The in-flight attempt failed without a terminal result; take our
		// own turn.
		return o.Execute(ctx, invoiceID)
	}

	result, err := o.executeLocked(ctx, invoiceID)
	if err != nil {
		o.guard.Fail(invoiceID, done)
		return nil, err
	}
	o.guard.Complete(invoiceID, result, done)
	return result, nil
}

func (o *Orchestrator) executeLocked(ctx context.Context, invoiceID string) (*ExecuteResult, error) {
	stored, err := o.readInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	// Idempotent retry: a ledger-side Paid means the funds already moved.
	if stored.Paid {
		return &ExecuteResult{
			Success:     true,
			AlreadyPaid: true,
			Payer:       stored.PaidBy,
		}, nil
	}

	allowance, err := o.ledger.Allowance(ctx)
	if err != nil {
		return nil, NewLedgerError(CodeLedgerRejected, "failed to read allowance", err)
	}
	if allowance.Cmp(stored.Amount) < 0 {
		return nil, NewLedgerError(CodeAllowanceInsufficient, "authorization not yet effective or below the invoice amount", nil)
	}

	tx, err := o.ledger.PayInvoice(ctx, invoiceID)
	if err != nil {
		return nil, NewLedgerError(CodeLedgerRejected, "ledger rejected the settlement", err)
	}

	return &ExecuteResult{
		Success:     true,
		Transaction: tx,
		Payer:       o.ledger.Payer(),
	}, nil
}

// Preview renders per-recipient shares for display before authorization,
// using the ledger's stored basis points. It must agree with the ledger's
// own distribution; the exactness tests pin that down.
func (o *Orchestrator) Preview(amount int64, splits []LedgerSplit) ([]SplitPreview, error) {
	bps := make([]int64, len(splits))
	for i, s := range splits {
		bps[i] = s.BasisPoints
	}
	amounts, err := o.calc.Apportion(amount, bps)
	if err != nil {
		return nil, err
	}
	previews := make([]SplitPreview, len(splits))
	for i, s := range splits {
		previews[i] = SplitPreview{
			Recipient:   s.Recipient,
			BasisPoints: s.BasisPoints,
			Percent:     float64(s.BasisPoints) / 100,
			Amount:      amounts[i],
			Display:     FormatMinorUnits(amounts[i], o.decimals),
		}
	}
	return previews, nil
}

func (o *Orchestrator) readInvoice(ctx context.Context, invoiceID string) (*LedgerInvoice, error) {
	stored, err := o.ledger.GetInvoice(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			return nil, NewLedgerError(CodeInvoiceNotFound, "invoice does not exist on the ledger", err)
		}
		return nil, NewLedgerError(CodeLedgerRejected, "failed to read invoice", err)
	}
	if stored.Amount == nil {
		stored.Amount = big.NewInt(0)
	}
	return stored, nil
}

// FormatMinorUnits renders a minor-unit amount at the given decimal
// precision, e.g. 1500000 at 6 decimals -> "1.5".
func FormatMinorUnits(amount int64, decimals int32) string {
	return decimal.NewFromInt(amount).Shift(-decimals).String()
}
