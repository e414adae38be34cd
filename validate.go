package paysplit

import (
	"fmt"
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the canonical stable unit used when a candidate
// invoice does not name one.
const DefaultCurrency = "USDC"

// DefaultDecimals is the minor-unit precision of the default currency.
const DefaultDecimals = 6

// ValidatorConfig configures invoice validation. The zero value is usable:
// defaults are applied by NewInvoiceValidator.
type ValidatorConfig struct {
	// Tolerance is the accepted deviation of the percentage sum from 100.
	Tolerance float64
	// DefaultCurrency is substituted when the candidate omits a currency.
	DefaultCurrency string
	// Currencies is the recognized symbol set. Matching is case-insensitive.
	Currencies []string
	// Decimals converts display amounts to minor units.
	Decimals int32
}

// InvoiceValidator turns a candidate invoice into a validated Invoice or a
// typed failure. It never mutates its input and never partially accepts:
// checks run in a fixed order and short-circuit on the first violation.
type InvoiceValidator struct {
	cfg        ValidatorConfig
	calc       *SplitCalculator
	currencies map[string]struct{}
}

// NewInvoiceValidator creates a validator sharing the given calculator so
// that validation and settlement previews agree on rounding policy.
func NewInvoiceValidator(cfg ValidatorConfig, calc *SplitCalculator) *InvoiceValidator {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = DefaultCurrency
	}
	if len(cfg.Currencies) == 0 {
		cfg.Currencies = []string{DefaultCurrency}
	}
	if cfg.Decimals <= 0 {
		cfg.Decimals = DefaultDecimals
	}
	if calc == nil {
		calc = NewSplitCalculator(WithTolerance(cfg.Tolerance))
	}
	v := &InvoiceValidator{
		cfg:        cfg,
		calc:       calc,
		currencies: make(map[string]struct{}, len(cfg.Currencies)),
	}
	for _, cur := range cfg.Currencies {
		v.currencies[strings.ToUpper(cur)] = struct{}{}
	}
	return v
}

// Validate checks a candidate invoice and materializes its splits.
//
// Checks run in order, short-circuiting on the first failure:
// recipients non-empty, each recipient resolvable, percentage sum within
// tolerance of 100, amount finite and positive, currency recognized (or
// defaulted), and finally the derived basis points and amounts must
// reconcile exactly against 10000 and the invoice total.
func (v *InvoiceValidator) Validate(candidate CandidateInvoice) (*Invoice, error) {
	if len(candidate.Recipients) == 0 {
		return nil, NewInputError(CodeEmptyRecipients, "recipients", nil, "at least one recipient is required")
	}

	for i, r := range candidate.Recipients {
		if r.Address != "" {
			if !common.IsHexAddress(r.Address) {
				return nil, NewInputError(CodeInvalidIdentity, recipientField(i, "address"), r.Address, "recipient address is not a valid chain address")
			}
		} else if strings.TrimSpace(r.Name) == "" {
			return nil, NewInputError(CodeInvalidIdentity, recipientField(i, "name"), r.Name, "recipient needs an address or a name")
		}
		if r.Percentage <= 0 || r.Percentage > 100 {
			return nil, NewInputError(CodePercentageMismatch, recipientField(i, "percentage"), r.Percentage, "percentage must be in (0, 100]")
		}
	}

	sum := 0.0
	for _, r := range candidate.Recipients {
		sum += r.Percentage
	}
	if math.Abs(sum-100.0) > v.cfg.Tolerance {
		return nil, NewInputError(CodePercentageMismatch, "recipients.percentage", sum, "percentages must add up to 100")
	}

	if math.IsNaN(candidate.Amount) || math.IsInf(candidate.Amount, 0) || candidate.Amount <= 0 {
		return nil, NewInputError(CodeInvalidAmount, "amount", candidate.Amount, "amount must be a finite number greater than zero")
	}

	currency := strings.ToUpper(strings.TrimSpace(candidate.Currency))
	if currency == "" {
		currency = strings.ToUpper(v.cfg.DefaultCurrency)
	} else if _, ok := v.currencies[currency]; !ok {
		return nil, NewInputError(CodeUnknownCurrency, "currency", candidate.Currency, "currency is not a recognized symbol")
	}

	// Display units to minor units, truncating precision beyond the
	// currency's decimals.
	amount := decimal.NewFromFloat(candidate.Amount).Shift(v.cfg.Decimals).IntPart()
	if amount <= 0 {
		return nil, NewInputError(CodeInvalidAmount, "amount", candidate.Amount, "amount is below one minor unit")
	}

	percentages := make([]float64, len(candidate.Recipients))
	for i, r := range candidate.Recipients {
		percentages[i] = r.Percentage
	}
	bps, amounts, err := v.calc.Resolve(amount, percentages)
	if err != nil {
		return nil, err
	}

	// Defensive reconciliation against calculator bugs: the derived sums
	// must reproduce 10000 and the invoice total exactly.
	var bpSum, amountSum int64
	for i := range bps {
		bpSum += bps[i]
		amountSum += amounts[i]
	}
	if bpSum != TotalBasisPoints {
		return nil, NewInternalError("derived basis points do not sum to 10000")
	}
	if amountSum != amount {
		return nil, NewInternalError("derived split amounts do not sum to the invoice amount")
	}

	splits := make([]Split, len(candidate.Recipients))
	for i, r := range candidate.Recipients {
		address := r.Address
		if address != "" {
			address = common.HexToAddress(address).Hex()
		}
		splits[i] = Split{
			Address:     address,
			Name:        strings.TrimSpace(r.Name),
			Percentage:  r.Percentage,
			BasisPoints: bps[i],
			Amount:      amounts[i],
		}
	}

	return &Invoice{
		Amount:      amount,
		Currency:    currency,
		Description: candidate.Description,
		Splits:      splits,
		Status:      StatusCreated,
	}, nil
}

func recipientField(i int, name string) string {
	return fmt.Sprintf("recipients[%d].%s", i, name)
}
