package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"optionpricer/internal/bsm"
	"optionpricer/internal/grid"
	"optionpricer/internal/history"
	"optionpricer/internal/report"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

// quoteFlags registers the five model inputs on cmd. Defaults match a
// one-year at-the-money option at 20% volatility and a 5% rate.
func quoteFlags(cmd *cobra.Command, q *bsm.Quote) {
	cmd.Flags().Float64Var(&q.Spot, "spot", 100, "current price of the underlying")
	cmd.Flags().Float64Var(&q.Strike, "strike", 100, "strike price")
	cmd.Flags().Float64Var(&q.Expiry, "expiry", 1, "time to expiry in years")
	cmd.Flags().Float64Var(&q.Rate, "rate", 0.05, "annualized risk-free rate, e.g. 0.05 for 5%")
	cmd.Flags().Float64Var(&q.Volatility, "vol", 0.2, "annualized volatility, e.g. 0.2 for 20%")
}

func typeFlag(cmd *cobra.Command, t *string) {
	cmd.Flags().StringVarP(t, "type", "t", string(bsm.Call), "option type: call or put")
}

func formatFlag(cmd *cobra.Command, f *string, allowed ...string) {
	cmd.Flags().StringVarP(f, "format", "f", formatTable, fmt.Sprintf("output format: %v", allowed))
}

func checkFormat(f string, allowed ...string) error {
	if slices.Contains(allowed, f) {
		return nil
	}
	return fmt.Errorf("unsupported format %q, want one of %v", f, allowed)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) priceCmd() *cobra.Command {
	var (
		q      bsm.Quote
		typ    string
		format string
	)
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price one option leg",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, formatTable, formatJSON); err != nil {
				return err
			}
			t, err := bsm.ParseOptionType(typ)
			if err != nil {
				return err
			}
			p, err := a.p.Price(cmd.Context(), q, t)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(a.out, map[string]any{"type": t, "price": p})
			}
			_, err = fmt.Fprintf(a.out, "%s price: %s\n", t.Title(), report.Money(p))
			return err
		},
	}
	quoteFlags(cmd, &q)
	typeFlag(cmd, &typ)
	formatFlag(cmd, &format, formatTable, formatJSON)
	return cmd
}

func (a *app) greeksCmd() *cobra.Command {
	var (
		q      bsm.Quote
		typ    string
		format string
	)
	cmd := &cobra.Command{
		Use:   "greeks",
		Short: "Show delta, gamma, theta, vega and rho for one leg",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, formatTable, formatJSON); err != nil {
				return err
			}
			t, err := bsm.ParseOptionType(typ)
			if err != nil {
				return err
			}
			g, err := a.p.Greeks(cmd.Context(), q, t)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(a.out, g)
			}
			report.Greeks(a.out, t, g)
			return nil
		},
	}
	quoteFlags(cmd, &q)
	typeFlag(cmd, &typ)
	formatFlag(cmd, &format, formatTable, formatJSON)
	return cmd
}

func (a *app) calcCmd() *cobra.Command {
	var (
		q      bsm.Quote
		save   bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Price both legs with their Greeks, optionally saving the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, formatTable, formatJSON); err != nil {
				return err
			}
			v, err := a.p.Calculate(cmd.Context(), q, save)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(a.out, v)
			}
			report.Valuation(a.out, v)
			return nil
		},
	}
	quoteFlags(cmd, &q)
	cmd.Flags().BoolVar(&save, "save", false, "append the result to the calculation history")
	formatFlag(cmd, &format, formatTable, formatJSON)
	return cmd
}

func (a *app) gridCmd() *cobra.Command {
	var (
		q             bsm.Quote
		typ           string
		resolution    int
		pnl           bool
		purchasePrice float64
		format        string
	)
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Build a spot x volatility sensitivity grid",
		Long: `grid values one leg across spot prices from 70% to 130% of --spot and
volatilities from half (at least 5%) to 150% of --vol. With --pnl each cell is
the value minus --purchase-price.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, formatTable, formatCSV, formatJSON); err != nil {
				return err
			}
			t, err := bsm.ParseOptionType(typ)
			if err != nil {
				return fmt.Errorf("%w: %v", grid.ErrMissingParameter, err)
			}
			req := grid.Request{Quote: q, Type: t, Resolution: resolution, PnL: pnl}
			if cmd.Flags().Changed("purchase-price") {
				req.PurchasePrice = &purchasePrice
			}
			g, err := a.p.GenerateGrid(cmd.Context(), req)
			if err != nil {
				return err
			}
			switch format {
			case formatCSV:
				return report.GridCSV(a.out, g)
			case formatJSON:
				return writeJSON(a.out, g)
			}
			report.Grid(a.out, g)
			return nil
		},
	}
	quoteFlags(cmd, &q)
	typeFlag(cmd, &typ)
	cmd.Flags().IntVarP(&resolution, "resolution", "n", grid.DefaultResolution, "points per axis")
	cmd.Flags().BoolVar(&pnl, "pnl", false, "show profit and loss against --purchase-price instead of value")
	cmd.Flags().Float64Var(&purchasePrice, "purchase-price", 0, "premium paid, required with --pnl")
	formatFlag(cmd, &format, formatTable, formatCSV, formatJSON)
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var (
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent saved calculations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, formatTable, formatCSV, formatJSON); err != nil {
				return err
			}
			if !cmd.Flags().Changed("limit") && a.cfg.Store.HistoryLimit > 0 {
				limit = a.cfg.Store.HistoryLimit
			}
			recs, err := a.p.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			switch format {
			case formatCSV:
				return report.HistoryCSV(a.out, recs)
			case formatJSON:
				return writeJSON(a.out, recs)
			}
			report.History(a.out, recs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", history.DefaultLimit, "number of records to show")
	formatFlag(cmd, &format, formatTable, formatCSV, formatJSON)
	return cmd
}
