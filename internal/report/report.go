// Package report renders valuations, grids and history for terminals and CSV.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"optionpricer/internal/bsm"
	"optionpricer/internal/grid"
	"optionpricer/internal/history"
)

var printer = message.NewPrinter(language.English)

// round uses decimal arithmetic so that halves round away from zero.
// NaN and ±Inf have no decimal form and are returned unchanged.
func round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}

// Money formats x as $1,234.5678.
func Money(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return fmt.Sprint(x)
	}
	r := round(x, 4)
	if r < 0 {
		return "-$" + printer.Sprintf("%.4f", -r)
	}
	return "$" + printer.Sprintf("%.4f", r)
}

// Percent formats a fraction as a percentage, e.g. 0.05 -> 5.00%.
func Percent(x float64, places int) string {
	return fmt.Sprintf("%.*f%%", places, round(x*100, int32(places)))
}

// Fixed formats x with four decimals, as Greeks are shown.
func Fixed(x float64) string {
	return fmt.Sprintf("%.4f", round(x, 4))
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	return table
}

// Valuation writes call and put side by side.
func Valuation(w io.Writer, v bsm.Valuation) {
	table := newTable(w, []string{"", "Call", "Put"})
	table.Append([]string{"Price", Money(v.CallPrice), Money(v.PutPrice)})
	for _, row := range greekRows(v.CallGreeks, v.PutGreeks) {
		table.Append(row)
	}
	table.Render()
}

// Greeks writes the sensitivities of a single leg.
func Greeks(w io.Writer, t bsm.OptionType, g bsm.Greeks) {
	table := newTable(w, []string{"", t.Title()})
	for _, row := range greekRows(g) {
		table.Append(row)
	}
	table.Render()
}

func greekRows(gs ...bsm.Greeks) [][]string {
	names := []string{"Delta", "Gamma", "Theta", "Vega", "Rho"}
	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{name}
	}
	for _, g := range gs {
		for i, x := range []float64{g.Delta, g.Gamma, g.Theta, g.Vega, g.Rho} {
			rows[i] = append(rows[i], Fixed(x))
		}
	}
	return rows
}

// Grid writes the matrix with volatilities down the side and spots across the top.
func Grid(w io.Writer, g *grid.Grid) {
	fmt.Fprintf(w, "%s (%s)\n", g.Title, g.ValueTitle)
	header := make([]string, 0, len(g.Spots)+1)
	header = append(header, "Vol \\ Spot")
	for _, s := range g.Spots {
		header = append(header, fmt.Sprintf("%.2f", round(s, 2)))
	}
	table := newTable(w, header)
	for i, vol := range g.Vols {
		row := make([]string, 0, len(g.Spots)+1)
		row = append(row, Percent(vol, 1))
		for _, v := range g.Values[i] {
			row = append(row, fmt.Sprintf("%.2f", round(v, 2)))
		}
		table.Append(row)
	}
	table.Render()
	fmt.Fprintf(w, "min %s  max %s  mean %s\n", Money(g.Min), Money(g.Max), Money(g.Mean))
}

type gridRow struct {
	Volatility float64 `csv:"volatility"`
	Spot       float64 `csv:"spot"`
	Value      float64 `csv:"value"`
}

// GridCSV writes the grid in long form, one cell per line.
func GridCSV(w io.Writer, g *grid.Grid) error {
	rows := make([]*gridRow, 0, g.Cells())
	for i, vol := range g.Vols {
		for j, spot := range g.Spots {
			rows = append(rows, &gridRow{Volatility: vol, Spot: spot, Value: g.Values[i][j]})
		}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write grid csv: %w", err)
	}
	return nil
}

// History writes records as the history view shows them.
func History(w io.Writer, recs []history.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No calculations yet.")
		return
	}
	table := newTable(w, []string{"Timestamp", "Spot", "Strike", "Expiry", "Rate", "Vol", "Call", "Put"})
	for _, r := range recs {
		table.Append([]string{
			r.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			trimFloat(r.Spot),
			trimFloat(r.Strike),
			trimFloat(r.Expiry),
			Percent(r.Rate, 2),
			Percent(r.Volatility, 2),
			Money(r.CallPrice),
			Money(r.PutPrice),
		})
	}
	table.Render()
}

type historyRow struct {
	Timestamp    string  `csv:"timestamp"`
	SpotPrice    float64 `csv:"spot_price"`
	StrikePrice  float64 `csv:"strike_price"`
	TimeToExpiry float64 `csv:"time_to_expiry"`
	RiskFreeRate float64 `csv:"risk_free_rate"`
	Volatility   float64 `csv:"volatility"`
	CallPrice    float64 `csv:"call_price"`
	PutPrice     float64 `csv:"put_price"`
}

// HistoryCSV writes records with the column names of the calculations table.
func HistoryCSV(w io.Writer, recs []history.Record) error {
	rows := make([]*historyRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, &historyRow{
			Timestamp:    r.Timestamp.UTC().Format("2006-01-02T15:04:05"),
			SpotPrice:    r.Spot,
			StrikePrice:  r.Strike,
			TimeToExpiry: r.Expiry,
			RiskFreeRate: r.Rate,
			Volatility:   r.Volatility,
			CallPrice:    r.CallPrice,
			PutPrice:     r.PutPrice,
		})
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write history csv: %w", err)
	}
	return nil
}

func trimFloat(x float64) string {
	s := fmt.Sprintf("%.4f", x)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
