package paysplit

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the externally observable categories.
type Kind int

const (
	// KindInput marks caller-fixable problems with the request itself.
	// Never retried automatically.
	KindInput Kind = iota
	// KindUpstream marks failures of the extraction service boundary,
	// surfaced distinctly so callers can retry or fall back to manual entry.
	KindUpstream
	// KindLedger marks on-chain failures: rejected authorization,
	// insufficient allowance, generic reverts. Already-paid is not an error.
	KindLedger
	// KindInternal marks invariant violations between the calculator and
	// the validator. Fatal; the operation halts rather than recover.
	KindInternal
)

// Validation failure codes.
const (
	CodeEmptyRecipients    = "empty_recipients"
	CodeInvalidIdentity    = "invalid_identity"
	CodePercentageMismatch = "percentage_mismatch"
	CodeInvalidAmount      = "invalid_amount"
	CodeUnknownCurrency    = "unknown_currency"
)

// Extraction failure codes.
const (
	CodeExtractionEmpty     = "extraction_empty"
	CodeExtractionMalformed = "extraction_malformed"
	CodeExtractionFailed    = "extraction_failed"
)

// Settlement failure codes.
const (
	CodeAuthorizationRejected = "authorization_rejected"
	CodeAllowanceInsufficient = "allowance_insufficient"
	CodeAlreadyPaid           = "already_paid"
	CodeLedgerRejected        = "ledger_rejected"
	CodeInvoiceNotFound       = "invoice_not_found"
)

// Internal failure codes.
const (
	CodeInvariantViolation = "invariant_violation"
)

// ErrInvoiceNotFound is returned by Ledger implementations when no invoice
// exists for the requested id.
var ErrInvoiceNotFound = errors.New("invoice not found")

// Error is the typed failure carried across component boundaries. Code is a
// stable machine-readable identifier; Field and Value name the offending
// input for diagnostics when the error is caller-fixable.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Field   string
	Value   interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s, value %v)", e.Code, e.Message, e.Field, e.Value)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As matching.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewInputError reports a caller-fixable validation failure on a field.
func NewInputError(code, field string, value interface{}, message string) *Error {
	return &Error{Kind: KindInput, Code: code, Field: field, Value: value, Message: message}
}

// NewUpstreamError reports an extraction-service failure.
func NewUpstreamError(code, message string, err error) *Error {
	return &Error{Kind: KindUpstream, Code: code, Message: message, Err: err}
}

// NewLedgerError reports an on-chain failure, passing the ledger's own
// diagnostic text through.
func NewLedgerError(code, message string, err error) *Error {
	return &Error{Kind: KindLedger, Code: code, Message: message, Err: err}
}

// NewInternalError reports an invariant violation. Callers must halt the
// operation; this is a logic bug, not a recoverable condition.
func NewInternalError(message string) *Error {
	return &Error{Kind: KindInternal, Code: CodeInvariantViolation, Message: message}
}

// KindOf classifies any error. Errors that did not originate here are
// treated as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the failure code of an error, or empty for foreign errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
