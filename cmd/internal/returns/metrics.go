package returns

import "math"

// Billion converts scenario valuations (quoted in billions) to currency units.
const Billion = 1e9

// Scenario is a simulator input. Valuations are in billions; percentages are 0-100.
type Scenario struct {
	EntryValuation   float64 `json:"entryValuation"`
	ExitValuation    float64 `json:"exitValuation"`
	OwnershipPct     float64 `json:"ownershipPct"`
	DilutionFollowOn float64 `json:"dilutionFollowOn"`
	Years            int     `json:"years"`
}

// DefaultScenario is what a new visitor sees before changing any input.
func DefaultScenario() Scenario {
	return Scenario{
		EntryValuation:   61.5,
		ExitValuation:    150,
		OwnershipPct:     0.1,
		DilutionFollowOn: 10,
		Years:            5,
	}
}

// Normalize clamps percentages to [0,100] and replaces NaN/Inf with 0.
func (s Scenario) Normalize() Scenario {
	s.EntryValuation = finite(s.EntryValuation)
	s.ExitValuation = finite(s.ExitValuation)
	s.OwnershipPct = clamp(finite(s.OwnershipPct), 0, 100)
	s.DilutionFollowOn = clamp(finite(s.DilutionFollowOn), 0, 100)
	return s
}

// Metrics is the result of CalculateReturnMetrics.
type Metrics struct {
	MOIC         float64 `json:"moic"`
	IRR          float64 `json:"irr"`
	Investment   float64 `json:"investment"`
	ExitProceeds float64 `json:"exitProceeds"`
}

// CalculateReturnMetrics derives MOIC and IRR for s.
// When investment <= 0 or years <= 0 the ratios are 0; investment and exit proceeds are
// still reported as computed. The result never contains NaN or Inf.
func CalculateReturnMetrics(s Scenario) Metrics {
	s = s.Normalize()

	own := s.OwnershipPct / 100
	m := Metrics{
		Investment:   finite(s.EntryValuation * Billion * own),
		ExitProceeds: finite(s.ExitValuation * Billion * own * (1 - s.DilutionFollowOn/100)),
	}
	if m.Investment <= 0 || s.Years <= 0 {
		return m
	}

	m.MOIC = finite(m.ExitProceeds / m.Investment)
	if m.MOIC > 0 {
		m.IRR = math.Max(0, finite(math.Pow(m.MOIC, 1/float64(s.Years))-1))
	}
	return m
}

// Point is one sample of the value trajectory.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// BuildValueTrajectory interpolates linearly from Investment at year 0 to ExitProceeds at
// the final year, one point per year. Years <= 0 yields the single point (0, Investment).
func BuildValueTrajectory(s Scenario, m Metrics) []Point {
	if s.Years <= 0 {
		return []Point{{Year: 0, Value: m.Investment}}
	}

	out := make([]Point, 0, s.Years+1)
	step := (m.ExitProceeds - m.Investment) / float64(s.Years)
	for y := 0; y <= s.Years; y++ {
		v := m.Investment + step*float64(y)
		if y == s.Years {
			v = m.ExitProceeds
		}
		out = append(out, Point{Year: y, Value: v})
	}
	return out
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
