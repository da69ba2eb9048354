package grid

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"optionpricer/internal/bsm"
)

// DefaultResolution is the number of points per axis when the caller does not choose one.
const DefaultResolution = 25

const (
	spotLow  = 0.7
	spotHigh = 1.3
	volLow   = 0.5
	volHigh  = 1.5
	volFloor = 0.05
)

var (
	ErrInvalidGridSize  = errors.New("invalid grid size")
	ErrMissingParameter = errors.New("missing parameter")
)

// Mode is what each cell holds.
type Mode string

const (
	ModePrice Mode = "price"
	ModePnL   Mode = "pnl"
)

// Request describes one sensitivity grid around a base quote.
type Request struct {
	Quote         bsm.Quote      `json:"quote"`
	Type          bsm.OptionType `json:"type"`
	Resolution    int            `json:"resolution"`
	PnL           bool           `json:"pnl"`
	PurchasePrice *float64       `json:"purchase_price,omitempty"`
}

// Validate checks the request before any cell is evaluated.
func (r Request) Validate() error {
	if err := r.Quote.Validate(); err != nil {
		return err
	}
	if err := checkAxes(r.Quote); err != nil {
		return err
	}
	if r.Type != bsm.Call && r.Type != bsm.Put {
		return fmt.Errorf("%w: option type %q", ErrMissingParameter, r.Type)
	}
	if r.Resolution <= 0 {
		return fmt.Errorf("%w: resolution must be positive, got %d", ErrInvalidGridSize, r.Resolution)
	}
	if r.PnL && (r.PurchasePrice == nil || math.IsNaN(*r.PurchasePrice) || math.IsInf(*r.PurchasePrice, 0)) {
		return fmt.Errorf("%w: purchase price is required in P&L mode", ErrMissingParameter)
	}
	return nil
}

// Mode reports whether the request asks for prices or P&L.
func (r Request) Mode() Mode {
	if r.PnL {
		return ModePnL
	}
	return ModePrice
}

// Key is a canonical representation of the request, stable across calls.
func (r Request) Key() string {
	f := func(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) }
	parts := []string{
		string(r.Type),
		strconv.Itoa(r.Resolution),
		f(r.Quote.Spot), f(r.Quote.Strike), f(r.Quote.Expiry), f(r.Quote.Rate), f(r.Quote.Volatility),
	}
	if r.PnL && r.PurchasePrice != nil {
		parts = append(parts, "pnl", f(*r.PurchasePrice))
	}
	return strings.Join(parts, "|")
}

// Grid is a spot x volatility matrix. Values[i][j] is evaluated at Vols[i] and Spots[j].
type Grid struct {
	Type          bsm.OptionType `json:"type"`
	Mode          Mode           `json:"mode"`
	PurchasePrice *float64       `json:"purchase_price,omitempty"`
	Spots         []float64      `json:"spots"`
	Vols          []float64      `json:"vols"`
	Values        [][]float64    `json:"values"`

	Title      string `json:"title"`
	XAxisTitle string `json:"x_axis_title"`
	YAxisTitle string `json:"y_axis_title"`
	ValueTitle string `json:"value_title"`

	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Cells returns the number of evaluated cells.
func (g *Grid) Cells() int { return len(g.Spots) * len(g.Vols) }

// Generator produces sensitivity grids.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Grid, error)
}

// Engine evaluates grids with the Black-Scholes-Merton model, one row per goroutine.
// Workers <= 0 means GOMAXPROCS.
type Engine struct {
	Workers int
}

func (e *Engine) workers() int {
	if e == nil || e.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return e.Workers
}

// Generate builds the axes and evaluates every cell.
func (e *Engine) Generate(ctx context.Context, req Request) (*Grid, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	spots, vols := Axes(req.Quote, req.Resolution)
	var offset float64
	if req.PnL {
		offset = *req.PurchasePrice
	}

	values := make([][]float64, len(vols))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i, vol := range vols {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row := make([]float64, len(spots))
			for j, spot := range spots {
				p, err := bsm.Price(req.Quote.WithSpotVol(spot, vol), req.Type)
				if err != nil {
					return fmt.Errorf("cell (%d,%d): %w", i, j, err)
				}
				row[j] = p - offset
			}
			values[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Grid{
		Type:       req.Type,
		Mode:       req.Mode(),
		Spots:      spots,
		Vols:       vols,
		Values:     values,
		Title:      title(req),
		XAxisTitle: "Spot Price ($)",
		YAxisTitle: "Volatility (%)",
		ValueTitle: "Price ($)",
	}
	if req.PnL {
		pp := *req.PurchasePrice
		out.PurchasePrice = &pp
		out.ValueTitle = "P&L ($)"
	}
	out.Min, out.Max, out.Mean = summarize(values)
	return out, nil
}

func title(req Request) string {
	if req.PnL {
		return req.Type.Title() + " P&L Sensitivity"
	}
	return req.Type.Title() + " Price Sensitivity"
}

// Axes returns the spot and volatility axes for n points around q.
// The volatility lower bound is floored at 5% but the upper bound is not,
// so for very small σ the axis runs downward.
func Axes(q bsm.Quote, n int) (spots, vols []float64) {
	spots = linspace(spotLow*q.Spot, spotHigh*q.Spot, n)
	vols = linspace(math.Max(volFloor, volLow*q.Volatility), volHigh*q.Volatility, n)
	return spots, vols
}

// checkAxes rejects base quotes whose axis bounds are not positive finite numbers.
func checkAxes(q bsm.Quote) error {
	if lo, hi := spotLow*q.Spot, spotHigh*q.Spot; !(lo > 0) || math.IsInf(hi, 0) {
		return fmt.Errorf("%w: spot %v is outside the range a %v-%v spot axis can represent", bsm.ErrInvalidQuote, q.Spot, spotLow, spotHigh)
	}
	if math.IsInf(volHigh*q.Volatility, 0) {
		return fmt.Errorf("%w: volatility %v is too large for a volatility axis up to %vσ", bsm.ErrInvalidQuote, q.Volatility, volHigh)
	}
	return nil
}

func linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

func summarize(values [][]float64) (lo, hi, mean float64) {
	flat := make([]float64, 0, len(values)*len(values[0]))
	for _, row := range values {
		flat = append(flat, row...)
	}
	data := stats.Float64Data(flat)
	lo, _ = data.Min()
	hi, _ = data.Max()
	mean, _ = data.Mean()
	return lo, hi, mean
}
