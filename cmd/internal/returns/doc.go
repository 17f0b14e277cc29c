// Package returns holds the pure calculators behind the investor simulator: return
// metrics (MOIC, annualized IRR, value trajectory) and the fee waterfall from commitment
// to net proceeds.
//
// IRR here is the closed-form annualized growth rate (MOIC^(1/years) - 1), not a
// cash-flow solver, and it is floored at zero: loss scenarios report 0, never a negative
// rate.
package returns
