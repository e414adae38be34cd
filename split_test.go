package paysplit

import (
	"testing"
)

func TestBasisPoints_EvenSplit(t *testing.T) {
	calc := NewSplitCalculator()

	bps, err := calc.BasisPoints([]float64{60, 40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bps[0] != 6000 || bps[1] != 4000 {
		t.Errorf("expected [6000 4000], got %v", bps)
	}
}

func TestBasisPoints_SingleRecipient(t *testing.T) {
	calc := NewSplitCalculator()

	// A single recipient always receives the whole invoice, even when the
	// authored percentage carries rounding noise.
	for _, pct := range []float64{100, 99.995, 100.005} {
		bps, err := calc.BasisPoints([]float64{pct})
		if err != nil {
			t.Fatalf("pct %v: unexpected error: %v", pct, err)
		}
		if len(bps) != 1 || bps[0] != TotalBasisPoints {
			t.Errorf("pct %v: expected [10000], got %v", pct, bps)
		}
	}
}

func TestBasisPoints_LargestRemainder(t *testing.T) {
	calc := NewSplitCalculator()

	bps, err := calc.BasisPoints([]float64{33.33, 33.33, 33.34})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum int64
	for _, bp := range bps {
		sum += bp
		if bp <= 0 {
			t.Errorf("no share may be zero or negative, got %v", bps)
		}
	}
	if sum != TotalBasisPoints {
		t.Errorf("expected basis points to sum to 10000, got %d (%v)", sum, bps)
	}
	if bps[0] != 3333 || bps[1] != 3333 || bps[2] != 3334 {
		t.Errorf("expected [3333 3333 3334], got %v", bps)
	}
}

func TestBasisPoints_RemainderTieBreakInputOrder(t *testing.T) {
	calc := NewSplitCalculator()

	// Three equal remainders of 0.33 bp; one leftover unit goes to the
	// earliest entry.
	bps, err := calc.BasisPoints([]float64{33.3333, 33.3333, 33.3333})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum int64
	for _, bp := range bps {
		sum += bp
	}
	if sum != TotalBasisPoints {
		t.Errorf("expected sum 10000, got %d (%v)", sum, bps)
	}
	if bps[0] <= bps[2] {
		t.Errorf("expected leftover unit awarded in input order, got %v", bps)
	}
}

func TestBasisPoints_TieBreakLargestShare(t *testing.T) {
	calc := NewSplitCalculator(WithTieBreak(TieBreakLargestShare))

	// Remainders are equal (0.5 bp each); the larger share wins the
	// leftover unit even though it appears later.
	bps, err := calc.BasisPoints([]float64{24.995, 75.005})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bps[0]+bps[1] != TotalBasisPoints {
		t.Fatalf("expected sum 10000, got %v", bps)
	}
	if bps[1] != 7501 {
		t.Errorf("expected larger share to win the tie, got %v", bps)
	}
}

func TestBasisPoints_SumOutsideTolerance(t *testing.T) {
	calc := NewSplitCalculator()

	for _, pcts := range [][]float64{{60, 35}, {60, 45}} {
		if _, err := calc.BasisPoints(pcts); err == nil {
			t.Errorf("expected error for %v", pcts)
		} else if CodeOf(err) != CodePercentageMismatch {
			t.Errorf("expected percentage_mismatch, got %s", CodeOf(err))
		}
	}
}

func TestBasisPoints_WithinTolerance(t *testing.T) {
	calc := NewSplitCalculator()

	for _, pcts := range [][]float64{{49.9975, 49.9975}, {50.005, 50.005}} {
		bps, err := calc.BasisPoints(pcts)
		if err != nil {
			t.Fatalf("pcts %v: unexpected error: %v", pcts, err)
		}
		var sum int64
		for _, bp := range bps {
			sum += bp
		}
		if sum != TotalBasisPoints {
			t.Errorf("pcts %v: expected sum 10000, got %d (%v)", pcts, sum, bps)
		}
	}
}

func TestBasisPoints_Empty(t *testing.T) {
	calc := NewSplitCalculator()

	if _, err := calc.BasisPoints(nil); err == nil {
		t.Error("expected error for empty percentage list")
	}
}

func TestApportion_ExactExample(t *testing.T) {
	calc := NewSplitCalculator()

	amounts, err := calc.Apportion(1000, []int64{6000, 4000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amounts[0] != 600 || amounts[1] != 400 {
		t.Errorf("expected [600 400], got %v", amounts)
	}
}

func TestApportion_NoDust(t *testing.T) {
	calc := NewSplitCalculator()

	cases := []struct {
		amount int64
		bps    []int64
	}{
		{100, []int64{3333, 3333, 3334}},
		{1, []int64{5000, 5000}},
		{7, []int64{1429, 1428, 1429, 1428, 1429, 1428, 1429}},
		{999999999999, []int64{1, 1, 1, 9997}},
	}
	for _, tc := range cases {
		amounts, err := calc.Apportion(tc.amount, tc.bps)
		if err != nil {
			t.Fatalf("amount %d: unexpected error: %v", tc.amount, err)
		}
		var sum int64
		for _, a := range amounts {
			sum += a
			if a < 0 {
				t.Errorf("amount %d: negative share in %v", tc.amount, amounts)
			}
		}
		if sum != tc.amount {
			t.Errorf("amount %d: shares sum to %d (%v)", tc.amount, sum, amounts)
		}
	}
}

func TestApportion_SingleRecipient(t *testing.T) {
	calc := NewSplitCalculator()

	amounts, err := calc.Apportion(12345, []int64{TotalBasisPoints})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(amounts) != 1 || amounts[0] != 12345 {
		t.Errorf("expected full amount to single recipient, got %v", amounts)
	}
}

func TestApportion_LargeAmountNoOverflow(t *testing.T) {
	calc := NewSplitCalculator()

	// amount * basisPoints would overflow int64 if computed naively.
	amount := int64(5_000_000_000_000_000_000)
	amounts, err := calc.Apportion(amount, []int64{3333, 6667})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amounts[0]+amounts[1] != amount {
		t.Errorf("shares %v do not sum to %d", amounts, amount)
	}
}

func TestApportion_RejectsInvalidInputs(t *testing.T) {
	calc := NewSplitCalculator()

	if _, err := calc.Apportion(0, []int64{TotalBasisPoints}); err == nil {
		t.Error("expected error for zero amount")
	}
	if _, err := calc.Apportion(-5, []int64{TotalBasisPoints}); err == nil {
		t.Error("expected error for negative amount")
	}
	if _, err := calc.Apportion(100, []int64{5000, 4000}); err == nil {
		t.Error("expected error for basis points not summing to 10000")
	}
	if _, err := calc.Apportion(100, nil); err == nil {
		t.Error("expected error for empty basis points")
	}
}

func TestResolve_PropertySweep(t *testing.T) {
	calc := NewSplitCalculator()

	splits := [][]float64{
		{100},
		{60, 40},
		{33.33, 33.33, 33.34},
		{50, 25, 25},
		{10, 20, 30, 40},
		{0.01, 99.99},
		{12.5, 12.5, 12.5, 12.5, 12.5, 12.5, 12.5, 12.5},
	}
	amounts := []int64{1, 2, 3, 7, 99, 100, 101, 1000, 123456789}

	for _, pcts := range splits {
		for _, amount := range amounts {
			bps, shares, err := calc.Resolve(amount, pcts)
			if err != nil {
				t.Fatalf("pcts %v amount %d: %v", pcts, amount, err)
			}
			var bpSum, shareSum int64
			for i := range bps {
				bpSum += bps[i]
				shareSum += shares[i]
			}
			if bpSum != TotalBasisPoints {
				t.Errorf("pcts %v: basis points sum %d", pcts, bpSum)
			}
			if shareSum != amount {
				t.Errorf("pcts %v amount %d: shares sum %d", pcts, amount, shareSum)
			}
		}
	}
}
