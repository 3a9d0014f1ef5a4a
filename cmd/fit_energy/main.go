package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	fitenergy "github.com/lucasjlepore/fit-energy"
	"github.com/lucasjlepore/fit-energy/config"
	"github.com/lucasjlepore/fit-energy/pipeline"
)

// Exit codes.
const (
	exitOK         = 0
	exitNoInput    = 1
	exitNotFound   = 2
	exitOutOfRange = 3
	exitFailure    = 4
)

var errUsage = errors.New("usage")

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, isTerminal(os.Stdin)))
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func execute(args []string, in io.Reader, out, errOut io.Writer, interactive bool) int {
	cmd := newRootCmd(in, out, errOut, interactive)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(errOut, "fit_energy: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pipeline.ErrNoInput), errors.Is(err, errPromptAborted), errors.Is(err, errUsage):
		return exitNoInput
	case errors.Is(err, pipeline.ErrNotFound):
		return exitNotFound
	case errors.Is(err, config.ErrOutOfRange), errors.Is(err, config.ErrUnsupportedFormat):
		return exitOutOfRange
	default:
		return exitFailure
	}
}

type cliFlags struct {
	configFile string
	verbose    bool
	quiet      bool
}

func newRootCmd(in io.Reader, out, errOut io.Writer, interactive bool) *cobra.Command {
	var f cliFlags

	cmd := &cobra.Command{
		Use:   "fit_energy [file.fit]",
		Short: "Rider work, motor energy and calories from an e-bike FIT activity",
		Long: `fit_energy reads one FIT activity file, rebuilds missing distance, speed and
altitude, integrates rider power into mechanical work and adds the motor share
measured at the wall socket. It writes <name>_analysis.csv (semicolon separated,
comma decimal) and <name>_analysis.json next to the input file.

Without a file argument on a terminal, the path and the three parameters are
asked for interactively.

Examples:
  fit_energy ride.fit
  fit_energy ride.fit --wall-energy-kwh 0.35 --muscle-eff-pct 22
  fit_energy ride.fit --format parquet --out-dir ./analysis`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("%w: expected at most one fit file, got %d", errUsage, len(args))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd, args, f, in, out, errOut, interactive)
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	flags := cmd.Flags()
	flags.Float64("wall-energy-kwh", fitenergy.DefaultWallEnergyKWh, "energy drawn from the wall socket to recharge the battery (kWh)")
	flags.Float64("wall2battery-eff-pct", fitenergy.DefaultWallToBatteryEffPct, "charger efficiency from wall to battery (%)")
	flags.Float64("muscle-eff-pct", fitenergy.DefaultMuscleEffPct, "muscular efficiency for the food calorie estimate (%)")
	flags.String("out-dir", "", "output directory (default: next to the input file)")
	flags.String("format", config.FormatCSV, "sample table format: csv|parquet")
	flags.StringVar(&f.configFile, "config", "", "optional config file (yaml, toml or json)")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "only print output paths and errors")

	return cmd
}

func runAnalysis(cmd *cobra.Command, args []string, f cliFlags, in io.Reader, out, errOut io.Writer, interactive bool) error {
	log := newLogger(errOut, f)

	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	params, err := config.Load(v, f.configFile)
	if err != nil {
		return err
	}

	var fitPath string
	switch {
	case len(args) == 1:
		fitPath = args[0]
	case interactive:
		p := newPrompter(in, out)
		if fitPath, err = p.askPath(); err != nil {
			return err
		}
		if err := p.askParams(&params, cmd.Flags().Changed); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w (pass a path or run on a terminal)", pipeline.ErrNoInput)
	}

	if err := params.Validate(); err != nil {
		return err
	}
	log.Debug("parameters resolved",
		"wall_energy_kwh", params.WallEnergyKWh,
		"wall2battery_eff_pct", params.WallToBatteryEffPct,
		"muscle_eff_pct", params.MuscleEffPct,
		"format", params.Format,
	)

	res, err := pipeline.Run(context.Background(), pipeline.Options{
		FitPath: fitPath,
		OutDir:  params.OutDir,
		Format:  params.Format,
		Inputs:  params.Inputs(),
		Logger:  log,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Table:   %s\n", res.TablePath)
	fmt.Fprintf(out, "Summary: %s\n", res.SummaryPath)
	if !f.quiet {
		fmt.Fprintf(out, "\n%s\n", fitenergy.BuildReport(res.Summary))
	}
	return nil
}

func newLogger(w io.Writer, f cliFlags) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case f.quiet:
		level = slog.LevelError
	case f.verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
