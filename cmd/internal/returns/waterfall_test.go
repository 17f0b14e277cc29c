package returns

import "testing"

func TestInvestedAfterFee(t *testing.T) {
	t.Parallel()

	if got := InvestedAfterFee(1_000_000, 0.05); !approx(got, 950_000, 1e-6) {
		t.Fatalf("InvestedAfterFee=%v want 950000", got)
	}
	for _, c := range []float64{1, 250, 1e6, 3.3e9} {
		for _, fee := range []float64{0, 0.01, 0.02, 0.2, 1} {
			if got, want := InvestedAfterFee(c, fee), c*(1-fee); got != want {
				t.Fatalf("InvestedAfterFee(%v,%v)=%v want %v", c, fee, got, want)
			}
		}
	}
}

func TestCarryNeverOnLoss(t *testing.T) {
	t.Parallel()

	for _, profit := range []float64{0, -1, -1e9} {
		for _, pct := range []float64{0, 0.1, 0.2, 1} {
			if got := Carry(profit, pct); got != 0 {
				t.Fatalf("Carry(%v,%v)=%v want 0", profit, pct, got)
			}
		}
	}
	if got := Carry(1000, 0.2); !approx(got, 200, 1e-9) {
		t.Fatalf("Carry(1000,0.2)=%v", got)
	}
}

func TestNetToInvestors_Reference(t *testing.T) {
	t.Parallel()

	w := NetToInvestors(1_000_000, 0.05, 3.77, 0.1)

	if !approx(w.Invested, 950_000, 1e-6) {
		t.Fatalf("invested=%v", w.Invested)
	}
	if !approx(w.Gross, 3_581_500, 1e-3) {
		t.Fatalf("gross=%v", w.Gross)
	}
	if !approx(w.GrossProfit, 2_631_500, 1e-3) {
		t.Fatalf("grossProfit=%v", w.GrossProfit)
	}
	if !approx(w.Carry, 263_150, 1e-3) {
		t.Fatalf("carry=%v", w.Carry)
	}
	if !approx(w.Net, 3_318_350, 1e-3) {
		t.Fatalf("net=%v", w.Net)
	}
	if w.Net <= w.Invested || w.NetMoM <= 1 {
		t.Fatalf("expected a net gain: %+v", w)
	}
	if !approx(w.NetMoM, 3.31835, 1e-9) {
		t.Fatalf("netMoM=%v", w.NetMoM)
	}
}

func TestNetToInvestors_LossAndZeroCommitment(t *testing.T) {
	t.Parallel()

	loss := NetToInvestors(1_000_000, 0.02, 0.5, 0.2)
	if loss.Carry != 0 || loss.Net != loss.Gross {
		t.Fatalf("loss scenario charged carry: %+v", loss)
	}

	zero := NetToInvestors(0, 0.02, 3, 0.2)
	if zero != (Waterfall{}) {
		t.Fatalf("zero commitment should be all zero: %+v", zero)
	}
}

func TestNetToInvestorsFromOwnership(t *testing.T) {
	t.Parallel()

	// 0.01% of a 500bn company against a 10m commitment with 2% fee and 20% carry.
	w := NetToInvestorsFromOwnership(10_000_000, 0.02, 0.0001, 500e9, 0.2)
	if !approx(w.Invested, 9_800_000, 1e-6) || !approx(w.Gross, 50_000_000, 1e-3) {
		t.Fatalf("unexpected waterfall %+v", w)
	}
	if !approx(w.Carry, (50_000_000-9_800_000)*0.2, 1e-3) {
		t.Fatalf("carry=%v", w.Carry)
	}
	if !approx(w.NetMoM, w.Net/10_000_000, 1e-12) {
		t.Fatalf("netMoM=%v", w.NetMoM)
	}
}
