package bsm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	daysPerYear = 365.0
	perPoint    = 100.0

	// minScale bounds S·σ√T from below so that gamma = φ(d1)/(S·σ√T) stays finite.
	minScale = 1 / math.MaxFloat64
)

// terms are the quantities shared by the price and Greeks formulas.
// They are only meaningful when settled is false.
type terms struct {
	settled  bool
	d1, d2   float64
	sqrtT    float64
	discount float64
	pdfD1    float64
}

// derive computes d1/d2 once per evaluation. A quote is treated as settled
// when σ√T is zero or too small to divide by, which covers expiry, zero
// volatility and a σ√T that underflows: the formulas divide by σ√T and their
// σ→0⁺ limit is the intrinsic payoff.
func derive(q Quote) terms {
	if q.Expiry <= 0 {
		return terms{settled: true}
	}
	sqrtT := math.Sqrt(q.Expiry)
	volT := q.Volatility * sqrtT
	if !(volT > 0) || q.Spot*volT < minScale {
		return terms{settled: true}
	}
	d1 := (math.Log(q.Spot/q.Strike) + (q.Rate+0.5*q.Volatility*q.Volatility)*q.Expiry) / volT
	if math.IsNaN(d1) {
		return terms{settled: true}
	}
	return terms{
		d1:       d1,
		d2:       d1 - volT,
		sqrtT:    sqrtT,
		discount: math.Exp(-q.Rate * q.Expiry),
		pdfD1:    distuv.UnitNormal.Prob(d1),
	}
}

func cdf(x float64) float64 { return distuv.UnitNormal.CDF(x) }

// CallPrice values a European call.
func CallPrice(q Quote) (float64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	return callPrice(q, derive(q)), nil
}

// PutPrice values a European put.
func PutPrice(q Quote) (float64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	return putPrice(q, derive(q)), nil
}

// CallGreeks returns the call sensitivities.
func CallGreeks(q Quote) (Greeks, error) {
	if err := q.Validate(); err != nil {
		return Greeks{}, err
	}
	return callGreeks(q, derive(q)), nil
}

// PutGreeks returns the put sensitivities.
func PutGreeks(q Quote) (Greeks, error) {
	if err := q.Validate(); err != nil {
		return Greeks{}, err
	}
	return putGreeks(q, derive(q)), nil
}

// Price dispatches on the option type.
func Price(q Quote, t OptionType) (float64, error) {
	switch t {
	case Call:
		return CallPrice(q)
	case Put:
		return PutPrice(q)
	}
	return 0, fmt.Errorf("unknown option type %q", t)
}

// GreeksFor dispatches on the option type.
func GreeksFor(q Quote, t OptionType) (Greeks, error) {
	switch t {
	case Call:
		return CallGreeks(q)
	case Put:
		return PutGreeks(q)
	}
	return Greeks{}, fmt.Errorf("unknown option type %q", t)
}

// Value prices both legs and their Greeks from a single derivation.
func Value(q Quote) (Valuation, error) {
	if err := q.Validate(); err != nil {
		return Valuation{}, err
	}
	tm := derive(q)
	return Valuation{
		Quote:      q,
		CallPrice:  callPrice(q, tm),
		PutPrice:   putPrice(q, tm),
		CallGreeks: callGreeks(q, tm),
		PutGreeks:  putGreeks(q, tm),
	}, nil
}

func callPrice(q Quote, tm terms) float64 {
	if tm.settled {
		return math.Max(q.Spot-q.Strike, 0)
	}
	return q.Spot*cdf(tm.d1) - q.Strike*tm.discount*cdf(tm.d2)
}

func putPrice(q Quote, tm terms) float64 {
	if tm.settled {
		return math.Max(q.Strike-q.Spot, 0)
	}
	return q.Strike*tm.discount*cdf(-tm.d2) - q.Spot*cdf(-tm.d1)
}

func callGreeks(q Quote, tm terms) Greeks {
	if tm.settled {
		var delta float64
		if q.Spot > q.Strike {
			delta = 1
		}
		return Greeks{Delta: delta}
	}
	nd2 := cdf(tm.d2)
	return Greeks{
		Delta: cdf(tm.d1),
		Gamma: gamma(q, tm),
		Theta: (timeDecay(q, tm) - q.Rate*q.Strike*tm.discount*nd2) / daysPerYear,
		Vega:  vega(q, tm),
		Rho:   q.Strike * q.Expiry * tm.discount * nd2 / perPoint,
	}
}

func putGreeks(q Quote, tm terms) Greeks {
	if tm.settled {
		var delta float64
		if q.Spot < q.Strike {
			delta = -1
		}
		return Greeks{Delta: delta}
	}
	nmd2 := cdf(-tm.d2)
	return Greeks{
		Delta: cdf(tm.d1) - 1,
		Gamma: gamma(q, tm),
		Theta: (timeDecay(q, tm) + q.Rate*q.Strike*tm.discount*nmd2) / daysPerYear,
		Vega:  vega(q, tm),
		Rho:   -q.Strike * q.Expiry * tm.discount * nmd2 / perPoint,
	}
}

// gamma is identical for calls and puts.
func gamma(q Quote, tm terms) float64 {
	return tm.pdfD1 / (q.Spot * q.Volatility * tm.sqrtT)
}

func vega(q Quote, tm terms) float64 {
	return q.Spot * tm.pdfD1 * tm.sqrtT / perPoint
}

// timeDecay is the volatility part of annual theta, shared by both legs.
func timeDecay(q Quote, tm terms) float64 {
	return -q.Spot * tm.pdfD1 * q.Volatility / (2 * tm.sqrtT)
}
