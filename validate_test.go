package paysplit

import (
	"math"
	"testing"
)

const (
	testAddrA = "0x1111111111111111111111111111111111111111"
	testAddrB = "0x2222222222222222222222222222222222222222"
)

func testCandidate() CandidateInvoice {
	return CandidateInvoice{
		Recipients: []Recipient{
			{Address: testAddrA, Percentage: 60},
			{Address: testAddrB, Percentage: 40},
		},
		Amount:      10.5,
		Currency:    "USDC",
		Description: "dinner split",
	}
}

func newTestValidator() *InvoiceValidator {
	return NewInvoiceValidator(ValidatorConfig{}, nil)
}

func TestValidate_Accepts(t *testing.T) {
	inv, err := newTestValidator().Validate(testCandidate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Amount != 10500000 {
		t.Errorf("expected 10500000 minor units, got %d", inv.Amount)
	}
	if inv.Currency != "USDC" {
		t.Errorf("expected USDC, got %s", inv.Currency)
	}
	if inv.Status != StatusCreated {
		t.Errorf("expected created status, got %s", inv.Status)
	}
	if len(inv.Splits) != 2 {
		t.Fatalf("expected 2 splits, got %d", len(inv.Splits))
	}
	if inv.Splits[0].BasisPoints != 6000 || inv.Splits[1].BasisPoints != 4000 {
		t.Errorf("expected basis points [6000 4000], got [%d %d]", inv.Splits[0].BasisPoints, inv.Splits[1].BasisPoints)
	}
	if inv.Splits[0].Amount+inv.Splits[1].Amount != inv.Amount {
		t.Errorf("split amounts must sum to the invoice amount")
	}
}

func TestValidate_EmptyRecipients(t *testing.T) {
	_, err := newTestValidator().Validate(CandidateInvoice{Amount: 10})
	if CodeOf(err) != CodeEmptyRecipients {
		t.Errorf("expected empty_recipients, got %v", err)
	}
	if KindOf(err) != KindInput {
		t.Errorf("expected input kind, got %v", KindOf(err))
	}
}

func TestValidate_PercentageSum(t *testing.T) {
	for _, sum := range []float64{95, 105} {
		c := testCandidate()
		c.Recipients[0].Percentage = sum - 40
		_, err := newTestValidator().Validate(c)
		if CodeOf(err) != CodePercentageMismatch {
			t.Errorf("sum %v: expected percentage_mismatch, got %v", sum, err)
		}
	}

	// 99.995 is within the default tolerance.
	c := testCandidate()
	c.Recipients[0].Percentage = 59.995
	if _, err := newTestValidator().Validate(c); err != nil {
		t.Errorf("expected 99.995 to be accepted, got %v", err)
	}
}

func TestValidate_PercentageRange(t *testing.T) {
	for _, pct := range []float64{0, -10, 100.5} {
		c := testCandidate()
		c.Recipients[0].Percentage = pct
		_, err := newTestValidator().Validate(c)
		if CodeOf(err) != CodePercentageMismatch {
			t.Errorf("pct %v: expected percentage_mismatch, got %v", pct, err)
		}
	}
}

func TestValidate_Amount(t *testing.T) {
	for _, amount := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		c := testCandidate()
		c.Amount = amount
		_, err := newTestValidator().Validate(c)
		if CodeOf(err) != CodeInvalidAmount {
			t.Errorf("amount %v: expected invalid_amount, got %v", amount, err)
		}
	}

	// Below one minor unit after conversion.
	c := testCandidate()
	c.Amount = 0.0000001
	if _, err := newTestValidator().Validate(c); CodeOf(err) != CodeInvalidAmount {
		t.Errorf("expected sub-minor-unit amount to be rejected")
	}
}

func TestValidate_RecipientIdentity(t *testing.T) {
	v := newTestValidator()

	// A malformed address is rejected even when a name is present.
	c := testCandidate()
	c.Recipients[0] = Recipient{Address: "0xnothex", Name: "alice", Percentage: 60}
	if _, err := v.Validate(c); CodeOf(err) != CodeInvalidIdentity {
		t.Errorf("expected invalid_identity for malformed address")
	}

	// Name-only recipients are accepted; the address stays empty for later
	// resolution.
	c = testCandidate()
	c.Recipients[0] = Recipient{Name: "alice", Percentage: 60}
	inv, err := v.Validate(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Splits[0].Address != "" || inv.Splits[0].Name != "alice" {
		t.Errorf("expected name-only split, got %+v", inv.Splits[0])
	}

	// Neither address nor name.
	c = testCandidate()
	c.Recipients[0] = Recipient{Name: "   ", Percentage: 60}
	if _, err := v.Validate(c); CodeOf(err) != CodeInvalidIdentity {
		t.Errorf("expected invalid_identity for blank recipient")
	}
}

func TestValidate_AddressChecksummed(t *testing.T) {
	c := testCandidate()
	c.Recipients[0].Address = "0xd8da6bf26964af9d7eed9e03e53415d37aa96045"
	inv, err := newTestValidator().Validate(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Splits[0].Address != "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045" {
		t.Errorf("expected checksummed address, got %s", inv.Splits[0].Address)
	}
}

func TestValidate_Currency(t *testing.T) {
	v := newTestValidator()

	c := testCandidate()
	c.Currency = ""
	inv, err := v.Validate(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Currency != "USDC" {
		t.Errorf("expected default currency, got %s", inv.Currency)
	}

	c = testCandidate()
	c.Currency = "usdc"
	if inv, err = v.Validate(c); err != nil || inv.Currency != "USDC" {
		t.Errorf("expected case-insensitive match, got %v %v", inv, err)
	}

	c = testCandidate()
	c.Currency = "DOGE"
	if _, err := v.Validate(c); CodeOf(err) != CodeUnknownCurrency {
		t.Errorf("expected unknown_currency, got %v", err)
	}
}

func TestValidate_SingleRecipient(t *testing.T) {
	c := CandidateInvoice{
		Recipients: []Recipient{{Address: testAddrA, Percentage: 100}},
		Amount:     1,
	}
	inv, err := newTestValidator().Validate(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Splits[0].BasisPoints != TotalBasisPoints || inv.Splits[0].Amount != inv.Amount {
		t.Errorf("single recipient must receive the whole invoice, got %+v", inv.Splits[0])
	}
}
