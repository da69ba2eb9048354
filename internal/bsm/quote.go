package bsm

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidQuote is returned for quotes the model cannot evaluate.
var ErrInvalidQuote = errors.New("invalid quote")

// OptionType selects the call or put leg.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// ParseOptionType accepts "call" or "put" in any case.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return "", fmt.Errorf("unknown option type %q", s)
}

// Title returns the display form, e.g. "Call".
func (t OptionType) Title() string {
	switch t {
	case Call:
		return "Call"
	case Put:
		return "Put"
	}
	return string(t)
}

// Quote is the full set of model inputs for one evaluation.
// Spot, Strike, Expiry (years), Rate and Volatility are annualized where applicable.
type Quote struct {
	Spot       float64 `json:"spot" schema:"spot"`
	Strike     float64 `json:"strike" schema:"strike"`
	Expiry     float64 `json:"expiry" schema:"expiry"`
	Rate       float64 `json:"rate" schema:"rate"`
	Volatility float64 `json:"volatility" schema:"volatility"`
}

// NewQuote builds a validated Quote.
func NewQuote(spot, strike, expiry, rate, volatility float64) (Quote, error) {
	q := Quote{Spot: spot, Strike: strike, Expiry: expiry, Rate: rate, Volatility: volatility}
	if err := q.Validate(); err != nil {
		return Quote{}, err
	}
	return q, nil
}

// Validate reports the first field that violates the model's domain.
// The comparisons are written so that NaN fails them.
func (q Quote) Validate() error {
	switch {
	case !(q.Spot > 0) || math.IsInf(q.Spot, 0):
		return fmt.Errorf("%w: spot must be positive and finite, got %v", ErrInvalidQuote, q.Spot)
	case !(q.Strike > 0) || math.IsInf(q.Strike, 0):
		return fmt.Errorf("%w: strike must be positive and finite, got %v", ErrInvalidQuote, q.Strike)
	case !(q.Expiry >= 0) || math.IsInf(q.Expiry, 0):
		return fmt.Errorf("%w: expiry must be non-negative and finite, got %v", ErrInvalidQuote, q.Expiry)
	case math.IsNaN(q.Rate) || math.IsInf(q.Rate, 0):
		return fmt.Errorf("%w: rate must be finite, got %v", ErrInvalidQuote, q.Rate)
	case !(q.Volatility >= 0) || math.IsInf(q.Volatility, 0):
		return fmt.Errorf("%w: volatility must be non-negative and finite, got %v", ErrInvalidQuote, q.Volatility)
	}
	return nil
}

// WithSpotVol returns a copy of q with spot and volatility replaced.
func (q Quote) WithSpotVol(spot, vol float64) Quote {
	q.Spot = spot
	q.Volatility = vol
	return q
}

// Greeks holds first-order sensitivities in display units:
// theta per calendar day, vega and rho per one percentage point.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// Valuation holds both legs and their Greeks for one quote.
type Valuation struct {
	Quote      Quote   `json:"quote"`
	CallPrice  float64 `json:"call_price"`
	PutPrice   float64 `json:"put_price"`
	CallGreeks Greeks  `json:"call_greeks"`
	PutGreeks  Greeks  `json:"put_greeks"`
}
