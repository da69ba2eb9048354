package report_test

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"optionpricer/internal/bsm"
	"optionpricer/internal/grid"
	"optionpricer/internal/history"
	"optionpricer/internal/report"
)

func TestMoney(t *testing.T) {
	t.Parallel()

	require.Equal(t, "$10.4506", report.Money(10.450583572185565))
	require.Equal(t, "$1,234.5000", report.Money(1234.5))
	require.Equal(t, "-$2.5000", report.Money(-2.5))
	require.Equal(t, "$0.0000", report.Money(0))
}

func TestFormattersDoNotPanicOnNonFinite(t *testing.T) {
	t.Parallel()

	require.Equal(t, "NaN", report.Money(math.NaN()))
	require.Equal(t, "+Inf", report.Money(math.Inf(1)))
	require.Equal(t, "NaN", report.Fixed(math.NaN()))
	require.Equal(t, "-Inf%", report.Percent(math.Inf(-1), 2))

	var buf bytes.Buffer
	require.NotPanics(t, func() {
		report.Greeks(&buf, bsm.Call, bsm.Greeks{Delta: math.NaN()})
	})
	require.Contains(t, buf.String(), "NaN")
}

func TestPercent(t *testing.T) {
	t.Parallel()

	require.Equal(t, "5.00%", report.Percent(0.05, 2))
	require.Equal(t, "20.0%", report.Percent(0.2, 1))
	require.Equal(t, "12.35%", report.Percent(0.123456, 2))
}

func TestValuation(t *testing.T) {
	t.Parallel()

	v, err := bsm.Value(bsm.Quote{Spot: 100, Strike: 100, Expiry: 1, Rate: 0.05, Volatility: 0.2})
	require.NoError(t, err)

	var buf bytes.Buffer
	report.Valuation(&buf, v)

	out := buf.String()
	require.Contains(t, out, "Call")
	require.Contains(t, out, "Put")
	require.Contains(t, out, "$10.4506")
	require.Contains(t, out, "$5.5735")
	require.Contains(t, out, "0.6368")
	require.Contains(t, out, "Delta")
	require.Contains(t, out, "Rho")
}

func TestGreeks(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	report.Greeks(&buf, bsm.Put, bsm.Greeks{Delta: -0.3632, Gamma: 0.0188})
	require.Contains(t, buf.String(), "Put")
	require.Contains(t, buf.String(), "-0.3632")
	require.Contains(t, buf.String(), "0.0188")
}

func TestGrid(t *testing.T) {
	t.Parallel()

	g, err := (&grid.Engine{}).Generate(t.Context(), grid.Request{
		Quote:      bsm.Quote{Spot: 100, Strike: 100, Expiry: 1, Rate: 0.05, Volatility: 0.2},
		Type:       bsm.Call,
		Resolution: 3,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	report.Grid(&buf, g)
	out := buf.String()
	require.Contains(t, out, "Call Price Sensitivity (Price ($))")
	require.Contains(t, out, "70.00")
	require.Contains(t, out, "130.00")
	require.Contains(t, out, "10.0%")
	require.Contains(t, out, "30.0%")
	require.Contains(t, out, "10.45")
}

func TestGridCSV(t *testing.T) {
	t.Parallel()

	g := &grid.Grid{
		Spots:  []float64{90, 110},
		Vols:   []float64{0.1},
		Values: [][]float64{{1.5, 12.25}},
	}

	var buf bytes.Buffer
	require.NoError(t, report.GridCSV(&buf, g))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, []string{"volatility,spot,value", "0.1,90,1.5", "0.1,110,12.25"}, lines)
}

func TestHistory(t *testing.T) {
	t.Parallel()

	recs := []history.Record{{
		Timestamp:  time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		Spot:       100,
		Strike:     95.5,
		Expiry:     0.25,
		Rate:       0.05,
		Volatility: 0.2,
		CallPrice:  1234.56789,
		PutPrice:   0.5,
	}}

	var buf bytes.Buffer
	report.History(&buf, recs)
	out := buf.String()
	require.Contains(t, out, "2024-05-01 12:30:00")
	require.Contains(t, out, "95.5")
	require.Contains(t, out, "5.00%")
	require.Contains(t, out, "20.00%")
	require.Contains(t, out, "$1,234.5679")
	require.Contains(t, out, "$0.5000")

	buf.Reset()
	report.History(&buf, nil)
	require.Equal(t, "No calculations yet.\n", buf.String())
}

func TestHistoryCSV(t *testing.T) {
	t.Parallel()

	recs := []history.Record{{Timestamp: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC), Spot: 100, Strike: 100, Expiry: 1, Rate: 0.05, Volatility: 0.2, CallPrice: 10.45, PutPrice: 5.57}}

	var buf bytes.Buffer
	require.NoError(t, report.HistoryCSV(&buf, recs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "timestamp,spot_price,strike_price,time_to_expiry,risk_free_rate,volatility,call_price,put_price", lines[0])
	require.Equal(t, "2024-05-01T12:30:00,100,100,1,0.05,0.2,10.45,5.57", lines[1])
}
