package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cobra.CheckErr(newRootCmd(os.Stdout).ExecuteContext(ctx))
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	rootCmd := &cobra.Command{
		Use:   "bsm",
		Short: "Price European options with Black-Scholes-Merton",
		Long: `bsm prices European calls and puts, reports their Greeks, builds spot/volatility
sensitivity grids and lists saved calculations. It runs the model locally, or
against a running pricer server when --server is set.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", getenv("CONFIG_FILE", ""), "path to a JSON or YAML config file")
	rootCmd.PersistentFlags().StringVar(&a.serverURL, "server", getenv("PRICER_SERVER", ""), "base URL of a pricer server, e.g. http://localhost:8080. Prices locally when empty.")

	rootCmd.AddCommand(
		a.priceCmd(),
		a.greeksCmd(),
		a.calcCmd(),
		a.gridCmd(),
		a.historyCmd(),
	)
	return rootCmd
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
