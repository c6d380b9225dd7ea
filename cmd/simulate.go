package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/pvcharge/config"
	"github.com/kilianp07/pvcharge/infra/logger"
	"github.com/kilianp07/pvcharge/pkg/export"
	"github.com/kilianp07/pvcharge/simulator"
)

var simOpts struct {
	trace     string
	synthetic bool
	format    string
	out       string
	step      time.Duration
	duration  time.Duration
	seed      int64
	soc       float64
	peak      float64
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a power trace or a synthetic day against the controller",
	RunE:  runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simOpts.trace, "trace", "", "power trace file (csv, json or yaml)")
	f.BoolVar(&simOpts.synthetic, "synthetic", false, "simulate a synthetic sunny day")
	f.StringVar(&simOpts.format, "format", export.FormatCSV, "report format: csv or json")
	f.StringVar(&simOpts.out, "out", "", "report file (default stdout)")
	f.DurationVar(&simOpts.step, "step", 30*time.Second, "interval between samples")
	f.DurationVar(&simOpts.duration, "duration", 24*time.Hour, "length of the synthetic day")
	f.Int64Var(&simOpts.seed, "seed", 1, "noise seed of the synthetic plant")
	f.Float64Var(&simOpts.soc, "soc", 0.4, "initial state of charge [0,1]")
	f.Float64Var(&simOpts.peak, "peak", 6000, "peak solar production in watts")
	simulateCmd.MarkFlagsMutuallyExclusive("trace", "synthetic")
	simulateCmd.MarkFlagsOneRequired("trace", "synthetic")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := simulator.Config{
		Step:       simOpts.step,
		Duration:   simOpts.duration,
		Seed:       simOpts.seed,
		InitialSoC: simOpts.soc,
		PeakSolarW: simOpts.peak,
	}
	// controller settings come from the service config when one exists
	if c, err := config.Load(cfgPath); err == nil {
		cfg.Controller = c.Controller
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load config: %w", err)
	}

	var src simulator.PowerSource
	if simOpts.trace != "" {
		tr, err := simulator.LoadTrace(simOpts.trace)
		if err != nil {
			return fmt.Errorf("load trace: %w", err)
		}
		cfg.Start = tr.Start()
		cfg.Duration = tr.End().Sub(tr.Start())
		src = tr.Source()
	}

	rep, err := simulator.Run(ctx, cfg, src, logger.New("simulator"))
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if simOpts.out != "" {
		f, err := os.Create(simOpts.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := export.Write(w, simOpts.format, rep); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.ErrOrStderr(), rep.Summary())
	return err
}
