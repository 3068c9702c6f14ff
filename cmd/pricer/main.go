package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jwaldner/optionlab/internal/cli"
	"github.com/jwaldner/optionlab/internal/config"
	"github.com/jwaldner/optionlab/internal/convergence"
	"github.com/jwaldner/optionlab/internal/logger"
	"github.com/jwaldner/optionlab/internal/treasury"
	"github.com/jwaldner/optionlab/pricing"
)

var modelCommands = []struct {
	use     string
	aliases []string
	short   string
	model   pricing.Model
}{
	{"black-scholes", []string{"bs", "analytic"}, "Price with the closed-form Black-Scholes formula", pricing.BlackScholesModel},
	{"binomial", []string{"crr", "lattice"}, "Price on a Cox-Ross-Rubinstein binomial tree", pricing.BinomialModel},
	{"monte-carlo", []string{"mc"}, "Price by Monte Carlo simulation of terminal prices", pricing.MonteCarloModel},
}

// loadOptions reads the config file and applies the per-run flag overrides
func loadOptions(cmd *cobra.Command) (*config.Config, pricing.Options, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, pricing.Options{}, err
	}

	opts := cfg.Pricing.Options()
	if cmd.Flags().Changed("steps") {
		opts.Steps, _ = cmd.Flags().GetInt("steps")
	}
	if cmd.Flags().Changed("simulations") {
		opts.Simulation.Paths, _ = cmd.Flags().GetInt("simulations")
	}
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint64("seed")
		opts.Simulation.Seed = pricing.FixedSeed(seed)
	}
	return cfg, opts, nil
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "pricer",
		Short:         "Price European options with analytic, lattice or simulation models",
		Long: "Price European options with analytic, lattice or simulation models.\n\n" +
			"Flags go before the option type; everything after it is positional, so a\n" +
			"negative rate such as -0.01 needs no quoting.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", config.DefaultPath, "YAML configuration file")
	root.PersistentFlags().Int("steps", 0, "binomial tree steps (default from config)")
	root.PersistentFlags().Int("simulations", 0, "Monte Carlo paths (default from config)")
	root.PersistentFlags().Uint64("seed", 0, "fix the Monte Carlo seed for a reproducible price")

	for _, mc := range modelCommands {
		model := mc.model
		sub := &cobra.Command{
			Use:     mc.use + " <option_type> <S> <K> <T> <r> <sigma> [<view> [<reference_price>]]",
			Aliases: mc.aliases,
			Short:   mc.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				req, err := cli.Parse(args)
				if err != nil {
					return err
				}
				_, opts, err := loadOptions(cmd)
				if err != nil {
					return err
				}
				return cli.Run(stdout, model, req, opts)
			},
		}
		sub.Flags().SetInterspersed(false)
		root.AddCommand(sub)
	}

	converge := &cobra.Command{
		Use:   "converge [<option_type> <S> <K> <T> <r> <sigma>]",
		Short: "Compare the binomial and Monte Carlo prices against Black-Scholes",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := cli.Request{
				Type:   pricing.Call,
				Params: pricing.MarketParameters{Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2},
			}
			if len(args) > 0 {
				var err error
				if req, err = cli.Parse(args); err != nil {
					return err
				}
			}

			cfg, _, err := loadOptions(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("simulations") {
				cfg.Convergence.Simulations, _ = cmd.Flags().GetInt("simulations")
			}

			report, err := convergence.Study(cmd.Context(), cfg.Convergence, req.Params, req.Type)
			if err != nil {
				return err
			}
			convergence.Render(stdout, report)
			return nil
		},
	}
	converge.Flags().SetInterspersed(false)
	root.AddCommand(converge)

	root.AddCommand(&cobra.Command{
		Use:   "rate",
		Short: "Fetch the Treasury bill rate the API uses when a request has no rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadOptions(cmd)
			if err != nil {
				return err
			}
			client := treasury.NewTreasuryClient(cfg.Treasury, logger.L())
			rate, err := client.GetRiskFreeRate(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(stdout, cli.Format(rate))
			return err
		},
	})

	return root
}

// execute runs the command line and returns the process exit code
func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteC()
	if err == nil {
		return 0
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	if errors.Is(err, cli.ErrParse) {
		fmt.Fprint(stderr, cli.Usage(cmd.CommandPath()))
	}
	return 1
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
