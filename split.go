package paysplit

import (
	"math"
	"math/big"
	"sort"

	"github.com/shopspring/decimal"
)

const (
	// TotalBasisPoints is the whole of an invoice: 10000 bp = 100%.
	TotalBasisPoints = 10000

	// DefaultTolerance is the accepted deviation of a percentage sum
	// from 100, absorbing floating-point noise in authored splits.
	DefaultTolerance = 0.01
)

// TieBreak selects which entry wins when two shares carry the same
// truncation remainder during largest-remainder distribution.
type TieBreak int

const (
	// TieBreakInputOrder awards remainder units to the earlier entry.
	TieBreakInputOrder TieBreak = iota
	// TieBreakLargestShare awards remainder units to the larger original
	// share, falling back to input order between equal shares.
	TieBreakLargestShare
)

// SplitCalculator converts percentage splits into exact basis points and
// exact minor-unit amounts with zero dust loss. It is pure: no I/O, no
// mutation of inputs.
type SplitCalculator struct {
	tieBreak  TieBreak
	tolerance float64
}

// CalculatorOption customizes a SplitCalculator.
type CalculatorOption func(*SplitCalculator)

// WithTieBreak sets the remainder-distribution tie-break policy.
func WithTieBreak(tb TieBreak) CalculatorOption {
	return func(c *SplitCalculator) {
		c.tieBreak = tb
	}
}

// WithTolerance sets the accepted deviation of a percentage sum from 100.
func WithTolerance(tolerance float64) CalculatorOption {
	return func(c *SplitCalculator) {
		c.tolerance = tolerance
	}
}

// NewSplitCalculator creates a calculator with input-order tie-breaking and
// the default percentage-sum tolerance.
func NewSplitCalculator(opts ...CalculatorOption) *SplitCalculator {
	c := &SplitCalculator{
		tieBreak:  TieBreakInputOrder,
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tolerance returns the configured percentage-sum tolerance.
func (c *SplitCalculator) Tolerance() float64 {
	return c.tolerance
}

// BasisPoints converts an ordered percentage list summing to 100 (within the
// configured tolerance) into basis points summing to exactly
// TotalBasisPoints. Each percentage is truncated to whole basis points
// first; the leftover units are then distributed to the entries with the
// largest truncation remainder.
func (c *SplitCalculator) BasisPoints(percentages []float64) ([]int64, error) {
	if len(percentages) == 0 {
		return nil, NewInputError(CodeEmptyRecipients, "percentages", percentages, "at least one percentage is required")
	}

	// A single recipient always receives the whole invoice.
	if len(percentages) == 1 {
		return []int64{TotalBasisPoints}, nil
	}

	sum := 0.0
	for _, p := range percentages {
		sum += p
	}
	if math.Abs(sum-100.0) > c.tolerance {
		return nil, NewInputError(CodePercentageMismatch, "percentages", sum, "percentages must add up to 100")
	}

	bps := make([]int64, len(percentages))
	remainders := make([]decimal.Decimal, len(percentages))
	var assigned int64
	hundred := decimal.NewFromInt(100)
	for i, p := range percentages {
		exact := decimal.NewFromFloat(p).Mul(hundred)
		floor := exact.Floor()
		bps[i] = floor.IntPart()
		remainders[i] = exact.Sub(floor)
		assigned += bps[i]
	}

	leftover := int64(TotalBasisPoints) - assigned
	if leftover > 0 {
		order := c.rankDescending(len(bps), bps, func(i, j int) int {
			return remainders[i].Cmp(remainders[j])
		})
		for k := int64(0); k < leftover; k++ {
			bps[order[int(k)%len(order)]]++
		}
	} else if leftover < 0 {
		// The tolerance admits sums slightly above 100; shave the excess
		// from the entries with the smallest truncation remainder.
		order := c.rankDescending(len(bps), bps, func(i, j int) int {
			return remainders[i].Cmp(remainders[j])
		})
		for k := int64(0); k < -leftover; k++ {
			bps[order[len(order)-1-int(k)%len(order)]]--
		}
	}

	return bps, nil
}

// Apportion distributes a positive minor-unit amount across basis points
// summing to exactly TotalBasisPoints. The returned amounts sum to exactly
// amount regardless of recipient count or rounding.
func (c *SplitCalculator) Apportion(amount int64, basisPoints []int64) ([]int64, error) {
	if amount <= 0 {
		return nil, NewInputError(CodeInvalidAmount, "amount", amount, "amount must be a positive integer")
	}
	if len(basisPoints) == 0 {
		return nil, NewInputError(CodeEmptyRecipients, "basisPoints", basisPoints, "at least one split is required")
	}

	if len(basisPoints) == 1 {
		if basisPoints[0] != TotalBasisPoints {
			return nil, NewInternalError("single split must carry 10000 basis points")
		}
		return []int64{amount}, nil
	}

	var total int64
	for _, bp := range basisPoints {
		if bp < 0 || bp > TotalBasisPoints {
			return nil, NewInternalError("basis points out of range")
		}
		total += bp
	}
	if total != TotalBasisPoints {
		return nil, NewInternalError("basis points must sum to exactly 10000")
	}

	// amount*bp can exceed int64 for large invoices; stay exact in big.Int.
	amounts := make([]int64, len(basisPoints))
	remainders := make([]*big.Int, len(basisPoints))
	denom := big.NewInt(TotalBasisPoints)
	var assigned int64
	for i, bp := range basisPoints {
		exact := new(big.Int).Mul(big.NewInt(amount), big.NewInt(bp))
		quo, rem := new(big.Int).QuoRem(exact, denom, new(big.Int))
		amounts[i] = quo.Int64()
		remainders[i] = rem
		assigned += amounts[i]
	}

	leftover := amount - assigned
	if leftover > 0 {
		order := c.rankDescending(len(amounts), basisPoints, func(i, j int) int {
			return remainders[i].Cmp(remainders[j])
		})
		for k := int64(0); k < leftover; k++ {
			amounts[order[int(k)%len(order)]]++
		}
	}

	return amounts, nil
}

// Resolve materializes both derived forms in one step: basis points from the
// percentages, then exact minor-unit amounts from those basis points.
func (c *SplitCalculator) Resolve(amount int64, percentages []float64) (bps, amounts []int64, err error) {
	bps, err = c.BasisPoints(percentages)
	if err != nil {
		return nil, nil, err
	}
	amounts, err = c.Apportion(amount, bps)
	if err != nil {
		return nil, nil, err
	}
	return bps, amounts, nil
}

// rankDescending returns entry indices ordered by remainder (largest first),
// applying the configured tie-break. weights carries the original share
// sizes for the largest-share policy.
func (c *SplitCalculator) rankDescending(n int, weights []int64, cmp func(i, j int) int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		i, j := order[a], order[b]
		switch cmp(i, j) {
		case 1:
			return true
		case -1:
			return false
		}
		if c.tieBreak == TieBreakLargestShare && weights[i] != weights[j] {
			return weights[i] > weights[j]
		}
		return i < j
	})
	return order
}
