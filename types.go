package paysplit

import (
	"math/big"
	"time"
)

// InvoiceStatus tracks the settlement state of an invoice.
// The only legal progression is Created -> Approved -> Paid; Paid is terminal.
type InvoiceStatus string

const (
	// StatusCreated means the invoice exists on the ledger but the payer's
	// funds are not yet authorized for transfer.
	StatusCreated InvoiceStatus = "created"
	// StatusApproved means the payer's allowance covers the invoice amount
	// but funds have not moved. This state is derived from a live allowance
	// read, never stored locally.
	StatusApproved InvoiceStatus = "approved"
	// StatusPaid means funds have moved and splits have been distributed.
	StatusPaid InvoiceStatus = "paid"
)

// Recipient is one entry of a candidate invoice before validation.
// Either Address or Name identifies the recipient; Address wins when both
// are present and well-formed.
type Recipient struct {
	Address    string  `json:"address,omitempty"`
	Name       string  `json:"name,omitempty"`
	Percentage float64 `json:"percentage"`
}

// CandidateInvoice is the unvalidated invoice shape, as produced by the
// extraction service or submitted directly by a caller. Amount is in the
// currency's display unit (e.g., 1.50 for 1.50 USDC); validation converts
// it to minor units.
type CandidateInvoice struct {
	Recipients  []Recipient `json:"recipients"`
	Amount      float64     `json:"amount"`
	Currency    string      `json:"currency,omitempty"`
	Description string      `json:"description,omitempty"`
}

// Split is one validated, materialized share of an invoice.
// BasisPoints and Amount are derived by the SplitCalculator and are never
// authored directly.
type Split struct {
	// Address is the resolved on-chain recipient, empty when the recipient
	// is identified only by name and resolution is pending.
	Address string `json:"address,omitempty"`
	// Name is the human-readable recipient identity, may be empty when an
	// address was supplied.
	Name        string  `json:"name,omitempty"`
	Percentage  float64 `json:"percentage"`
	BasisPoints int64   `json:"basisPoints"`
	// Amount is the recipient's exact share in minor units.
	Amount int64 `json:"amount"`
}

// Invoice is a validated invoice. It is immutable after construction except
// for the status and transition fields, which only the orchestrator mutates
// in response to confirmed ledger transitions.
type Invoice struct {
	// ID is the opaque ledger-assigned identifier, empty until the invoice
	// has been created on the ledger.
	ID      string `json:"id,omitempty"`
	Creator string `json:"creator,omitempty"`
	// Amount is the invoice total in minor units (10^-6 of the display unit
	// for the default token).
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	Description string        `json:"description"`
	Splits      []Split       `json:"splits"`
	Status      InvoiceStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt,omitzero"`
	ApprovedAt  *time.Time    `json:"approvedAt,omitempty"`
	PaidAt      *time.Time    `json:"paidAt,omitempty"`
	PaidBy      string        `json:"paidBy,omitempty"`
}

// LedgerInvoice is the ledger's authoritative view of an invoice.
// The ledger stores only paid/unpaid; Approved is observed through the
// allowance, not stored.
type LedgerInvoice struct {
	ID          string
	Creator     string
	Amount      *big.Int
	Token       string
	Description string
	Paid        bool
	CreatedAt   time.Time
	PaidAt      time.Time
	PaidBy      string
}

// LedgerSplit is one entry of the ledger's stored split configuration.
type LedgerSplit struct {
	Recipient   string
	BasisPoints int64
}

// AuthorizeResult reports the outcome of an allowance authorization.
// Authorization does not transition invoice status; the resulting allowance
// is tracked by the ledger and re-read at execution time.
type AuthorizeResult struct {
	Authorized  bool   `json:"authorized"`
	Payer       string `json:"payer"`
	Transaction string `json:"transaction,omitempty"`
	// Allowance is the ledger-side allowance observed after the write,
	// as a decimal string in minor units.
	Allowance string `json:"allowance"`
}

// ExecuteResult reports the outcome of a settlement execution.
// AlreadyPaid marks the idempotent case: the ledger reported the invoice
// paid before this call issued a transfer, which is a success, not an error.
type ExecuteResult struct {
	Success     bool   `json:"success"`
	AlreadyPaid bool   `json:"alreadyPaid,omitempty"`
	Transaction string `json:"transaction,omitempty"`
	Payer       string `json:"payer,omitempty"`
}

// SplitPreview is a human-readable rendering of one share, computed locally
// for display before authorization. The ledger's stored configuration
// remains authoritative at execution time.
type SplitPreview struct {
	Recipient   string  `json:"recipient"`
	BasisPoints int64   `json:"basisPoints"`
	Percent     float64 `json:"percent"`
	Amount      int64   `json:"amount"`
	Display     string  `json:"display"`
}
