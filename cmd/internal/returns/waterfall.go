package returns

import "math"

// Waterfall traces a commitment through fees and carry. Percentages are fractions (0.05 = 5%).
type Waterfall struct {
	Invested    float64 `json:"invested"`
	Gross       float64 `json:"gross"`
	GrossProfit float64 `json:"grossProfit"`
	Carry       float64 `json:"carry"`
	Net         float64 `json:"net"`
	NetMoM      float64 `json:"netMoM"`
}

// InvestedAfterFee is the capital left to invest after the upfront management fee.
func InvestedAfterFee(commitment, mgmtFeePct float64) float64 {
	return commitment * (1 - mgmtFeePct)
}

// GrossProceeds applies a gross multiple to invested capital.
func GrossProceeds(invested, grossMoM float64) float64 {
	return invested * grossMoM
}

// GrossFromOwnership values a stake at marketCap.
func GrossFromOwnership(ownership, marketCap float64) float64 {
	return ownership * marketCap
}

// Carry is the fund's performance fee. It is charged on profit only.
func Carry(grossProfit, carryPct float64) float64 {
	return math.Max(0, grossProfit) * carryPct
}

// NetToInvestors runs the waterfall for a gross-multiple scenario.
func NetToInvestors(commitment, mgmtFeePct, grossMoM, carryPct float64) Waterfall {
	invested := InvestedAfterFee(commitment, mgmtFeePct)
	return settle(commitment, invested, GrossProceeds(invested, grossMoM), carryPct)
}

// NetToInvestorsFromOwnership runs the waterfall where gross comes from an ownership
// stake valued at marketCap.
func NetToInvestorsFromOwnership(commitment, mgmtFeePct, ownership, marketCap, carryPct float64) Waterfall {
	invested := InvestedAfterFee(commitment, mgmtFeePct)
	return settle(commitment, invested, GrossFromOwnership(ownership, marketCap), carryPct)
}

func settle(commitment, invested, gross, carryPct float64) Waterfall {
	w := Waterfall{
		Invested:    invested,
		Gross:       gross,
		GrossProfit: gross - invested,
	}
	w.Carry = Carry(w.GrossProfit, carryPct)
	w.Net = w.Gross - w.Carry
	if commitment != 0 {
		w.NetMoM = w.Net / commitment
	}
	return w
}
