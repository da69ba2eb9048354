package grid_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"optionpricer/internal/bsm"
	"optionpricer/internal/grid"
)

var base = bsm.Quote{Spot: 100, Strike: 100, Expiry: 1, Rate: 0.05, Volatility: 0.2}

func ptr(f float64) *float64 { return &f }

func TestEngine_Generate_Shape(t *testing.T) {
	t.Parallel()

	// Arrange
	e := &grid.Engine{Workers: 3}

	// Act
	g, err := e.Generate(t.Context(), grid.Request{Quote: base, Type: bsm.Call, Resolution: 5})

	// Assert
	require.NoError(t, err)
	require.Equal(t, []float64{70, 85, 100, 115, 130}, roundAll(g.Spots))
	require.Equal(t, []float64{0.1, 0.15, 0.2, 0.25, 0.3}, roundAll(g.Vols))
	require.Len(t, g.Values, 5)
	for _, row := range g.Values {
		require.Len(t, row, 5)
	}
	require.Equal(t, 25, g.Cells())
	require.Equal(t, grid.ModePrice, g.Mode)
	require.Equal(t, "Call Price Sensitivity", g.Title)
	require.Equal(t, "Spot Price ($)", g.XAxisTitle)
	require.Equal(t, "Volatility (%)", g.YAxisTitle)
	require.Equal(t, "Price ($)", g.ValueTitle)
	require.Nil(t, g.PurchasePrice)
}

func TestEngine_Generate_CellsMatchModel(t *testing.T) {
	t.Parallel()

	e := &grid.Engine{}
	for _, typ := range []bsm.OptionType{bsm.Call, bsm.Put} {
		g, err := e.Generate(t.Context(), grid.Request{Quote: base, Type: typ, Resolution: 7})
		require.NoError(t, err)

		for i, vol := range g.Vols {
			for j, spot := range g.Spots {
				want, err := bsm.Price(base.WithSpotVol(spot, vol), typ)
				require.NoError(t, err)
				require.Equal(t, want, g.Values[i][j])
			}
		}
	}
}

func TestEngine_Generate_CentreCellIsBaseQuote(t *testing.T) {
	t.Parallel()

	g, err := (&grid.Engine{}).Generate(t.Context(), grid.Request{Quote: base, Type: bsm.Call, Resolution: 5})
	require.NoError(t, err)
	require.InDelta(t, 10.450583572185565, g.Values[2][2], 1e-9)
}

func TestEngine_Generate_Reproducible(t *testing.T) {
	t.Parallel()

	req := grid.Request{Quote: base, Type: bsm.Put, Resolution: 25}
	a, err := (&grid.Engine{Workers: 1}).Generate(t.Context(), req)
	require.NoError(t, err)
	b, err := (&grid.Engine{Workers: 8}).Generate(t.Context(), req)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestEngine_Generate_PnL(t *testing.T) {
	t.Parallel()

	e := &grid.Engine{}
	price, err := e.Generate(t.Context(), grid.Request{Quote: base, Type: bsm.Call, Resolution: 4})
	require.NoError(t, err)
	pnl, err := e.Generate(t.Context(), grid.Request{Quote: base, Type: bsm.Call, Resolution: 4, PnL: true, PurchasePrice: ptr(10)})
	require.NoError(t, err)

	for i := range price.Values {
		for j := range price.Values[i] {
			require.InDelta(t, price.Values[i][j]-10, pnl.Values[i][j], 1e-12)
		}
	}
	require.Equal(t, grid.ModePnL, pnl.Mode)
	require.Equal(t, "Call P&L Sensitivity", pnl.Title)
	require.Equal(t, "P&L ($)", pnl.ValueTitle)
	require.NotNil(t, pnl.PurchasePrice)
	require.Equal(t, 10.0, *pnl.PurchasePrice)
	require.InDelta(t, price.Min-10, pnl.Min, 1e-9)
	require.InDelta(t, price.Max-10, pnl.Max, 1e-9)
}

func TestEngine_Generate_PurchasePriceIgnoredOutsidePnL(t *testing.T) {
	t.Parallel()

	e := &grid.Engine{}
	a, err := e.Generate(t.Context(), grid.Request{Quote: base, Type: bsm.Put, Resolution: 3})
	require.NoError(t, err)
	b, err := e.Generate(t.Context(), grid.Request{Quote: base, Type: bsm.Put, Resolution: 3, PurchasePrice: ptr(4)})
	require.NoError(t, err)
	require.Equal(t, a.Values, b.Values)
}

func TestEngine_Generate_SingleResolution(t *testing.T) {
	t.Parallel()

	g, err := (&grid.Engine{}).Generate(t.Context(), grid.Request{Quote: base, Type: bsm.Call, Resolution: 1})
	require.NoError(t, err)
	require.Equal(t, []float64{70}, roundAll(g.Spots))
	require.Equal(t, []float64{0.1}, roundAll(g.Vols))
	require.Len(t, g.Values, 1)
	require.Len(t, g.Values[0], 1)
	require.Equal(t, g.Values[0][0], g.Min)
	require.Equal(t, g.Values[0][0], g.Max)
	require.Equal(t, g.Values[0][0], g.Mean)
}

func TestAxes_VolFloor(t *testing.T) {
	t.Parallel()

	q := base
	q.Volatility = 0.02
	_, vols := grid.Axes(q, 3)
	require.InDelta(t, 0.05, vols[0], 1e-12)
	require.InDelta(t, 0.03, vols[2], 1e-12)

	q.Volatility = 0
	_, vols = grid.Axes(q, 2)
	require.Equal(t, []float64{0.05, 0}, vols)
}

func TestEngine_Generate_ZeroVolBase(t *testing.T) {
	t.Parallel()

	q := base
	q.Volatility = 0
	g, err := (&grid.Engine{}).Generate(t.Context(), grid.Request{Quote: q, Type: bsm.Call, Resolution: 3})
	require.NoError(t, err)
	for j, spot := range g.Spots {
		require.Equal(t, math.Max(spot-100, 0), g.Values[2][j])
	}
}

func TestEngine_Generate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  grid.Request
		want error
	}{
		{"zero resolution", grid.Request{Quote: base, Type: bsm.Call, Resolution: 0}, grid.ErrInvalidGridSize},
		{"negative resolution", grid.Request{Quote: base, Type: bsm.Call, Resolution: -3}, grid.ErrInvalidGridSize},
		{"pnl without purchase price", grid.Request{Quote: base, Type: bsm.Call, Resolution: 5, PnL: true}, grid.ErrMissingParameter},
		{"pnl with nan purchase price", grid.Request{Quote: base, Type: bsm.Call, Resolution: 5, PnL: true, PurchasePrice: ptr(math.NaN())}, grid.ErrMissingParameter},
		{"missing type", grid.Request{Quote: base, Resolution: 5}, grid.ErrMissingParameter},
		{"invalid quote", grid.Request{Quote: bsm.Quote{Spot: -1, Strike: 100, Expiry: 1, Volatility: 0.2}, Type: bsm.Call, Resolution: 5}, bsm.ErrInvalidQuote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g, err := (&grid.Engine{}).Generate(t.Context(), tt.req)
			require.ErrorIs(t, err, tt.want)
			require.Nil(t, g)
		})
	}
}

func TestRequest_Validate_AxisOutOfRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		quote bsm.Quote
		want  string
	}{
		{"spot overflows upper bound", bsm.Quote{Spot: math.MaxFloat64, Strike: 100, Expiry: 1, Volatility: 0.2}, "spot"},
		{"volatility overflows upper bound", bsm.Quote{Spot: 100, Strike: 100, Expiry: 1, Volatility: math.MaxFloat64}, "volatility"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// the base quote alone is valid
			require.NoError(t, tt.quote.Validate())

			req := grid.Request{Quote: tt.quote, Type: bsm.Call, Resolution: 3}
			err := req.Validate()
			require.ErrorIs(t, err, bsm.ErrInvalidQuote)
			require.ErrorContains(t, err, tt.want)
			require.NotContains(t, err.Error(), "cell")

			g, err := (&grid.Engine{}).Generate(t.Context(), req)
			require.ErrorIs(t, err, bsm.ErrInvalidQuote)
			require.Nil(t, g)
		})
	}
}

func TestEngine_Generate_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := (&grid.Engine{Workers: 1}).Generate(ctx, grid.Request{Quote: base, Type: bsm.Call, Resolution: 10})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRequest_Key(t *testing.T) {
	t.Parallel()

	a := grid.Request{Quote: base, Type: bsm.Call, Resolution: 25}
	b := a
	require.Equal(t, a.Key(), b.Key())

	b.Type = bsm.Put
	require.NotEqual(t, a.Key(), b.Key())

	c := a
	c.PnL = true
	c.PurchasePrice = ptr(3)
	d := c
	d.PurchasePrice = ptr(4)
	require.NotEqual(t, a.Key(), c.Key())
	require.NotEqual(t, c.Key(), d.Key())

	// purchase price only matters in P&L mode
	e := a
	e.PurchasePrice = ptr(3)
	require.Equal(t, a.Key(), e.Key())
}

func roundAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Round(x*1e9) / 1e9
	}
	return out
}
