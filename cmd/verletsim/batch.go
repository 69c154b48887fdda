package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/verletsim/internal/automation"
	"github.com/san-kum/verletsim/internal/experiment"
	"github.com/san-kum/verletsim/internal/optim"
	"github.com/san-kum/verletsim/internal/sim"
	"github.com/san-kum/verletsim/internal/storage"
	"github.com/san-kum/verletsim/internal/telemetry"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

var (
	benchLevels []int
	benchCSV    string

	noSave bool

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	workers    int

	trials    int
	tolerance float64

	grid   []string
	metric string
)

func benchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench [scene]",
		Short: "time the engine pipeline at several substep counts",
		Args:  cobra.ExactArgs(1),
		RunE:  benchScene,
	}
	addSceneFlags(cmd)
	cmd.Flags().IntSliceVar(&benchLevels, "levels", []int{1, 2, 4, 8}, "substep counts to measure")
	cmd.Flags().StringVar(&benchCSV, "csv", "", "also write the measurements to this CSV file")
	return cmd
}

func benchScene(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s (%d frames)\n\n", args[0], base.Frames())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SUBSTEPS\tPARTICLES\tLINKS\tAVG\tMAX\tFRAMES/SEC\tHOTTEST")

	rows := make([]*telemetry.PerfRow, 0, len(benchLevels))
	for _, level := range benchLevels {
		cfg := base.Clone()
		cfg.Engine.SubSteps = level

		exp := experiment.New(cfg)
		if err := exp.Setup(registry, nil); err != nil {
			return err
		}
		s := exp.GetSimulator()
		perf := telemetry.NewPerfCollector(cfg.Frames())
		s.SetPhaseTimer(perf)

		simCfg := sim.Config{Frames: cfg.Frames(), RecordEvery: 1}
		if err := s.RunWithCallback(context.Background(), simCfg, func(int, float64) bool { return true }); err != nil {
			return err
		}

		stats := perf.Stats()
		slog.Debug("bench level", "sub_steps", level, "perf", stats)

		hottest := ""
		if order := stats.Breakdown(); len(order) > 0 {
			hottest = fmt.Sprintf("%s %.0f%%", order[0], stats.PhasePct[order[0]])
		}
		e := s.Engine()
		fmt.Fprintf(w, "%d\t%d\t%d\t%v\t%v\t%.0f\t%s\n",
			level, e.NumParticles(), e.NumLinks(), stats.AvgFrame, stats.MaxFrame, stats.FramesPerSecond, hottest)

		rows = append(rows, stats.Row(fmt.Sprintf("%s/%d", args[0], level), e))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if benchCSV == "" {
		return nil
	}
	file, err := os.Create(benchCSV)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := telemetry.WriteCSV(file, rows); err != nil {
		return err
	}
	fmt.Printf("\nwrote %s\n", benchCSV)
	return nil
}

func scenarioCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [file.yaml]",
		Short: "run a scripted sequence of scenes",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store steps that set save_as")
	return cmd
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	var st *storage.Store
	if !noSave {
		st = storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	fmt.Printf("scenario: %s\n", sc.Name)
	if sc.Description != "" {
		fmt.Printf("%s\n", sc.Description)
	}

	results, runErr := automation.RunScenario(cmd.Context(), sc, registry, st)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nSTEP\tSCENE\tPRESET\tFRAMES\tERRORS\tRUN ID")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n",
			i+1, r.Step.Scene, r.Step.Preset, r.Result.StepsTaken, len(r.Result.Errors), r.RunID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func sweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep [scene]",
		Short: "run a scene across a range of one parameter",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "named preset for the scene")
	cmd.Flags().Float64Var(&duration, "time", 2, "simulated seconds per point")
	cmd.Flags().StringVar(&sweepParam, "param", "sub_steps", fmt.Sprintf("parameter to vary %v", automation.Parameters()))
	cmd.Flags().Float64Var(&sweepMin, "min", 1, "first value")
	cmd.Flags().Float64Var(&sweepMax, "max", 8, "last value")
	cmd.Flags().IntVar(&sweepSteps, "steps", 8, "number of values")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent runs")
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	sweep := &automation.ParameterSweep{
		Scene:    args[0],
		Preset:   preset,
		Param:    sweepParam,
		Min:      sweepMin,
		Max:      sweepMax,
		Steps:    sweepSteps,
		Duration: duration,
		Workers:  workers,
	}

	results, err := automation.RunSweep(cmd.Context(), sweep, registry)
	if err != nil {
		return err
	}

	metricNames := make([]string, 0)
	if len(results) > 0 {
		for name := range results[0].Metrics {
			metricNames = append(metricNames, name)
		}
		sort.Strings(metricNames)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tFRAMES\tPARTICLES\tERRORS", sweepParam)
	for _, name := range metricNames {
		fmt.Fprintf(w, "\t%s", name)
	}
	fmt.Fprintln(w)

	for _, r := range results {
		fmt.Fprintf(w, "%g\t%d\t%d\t%d", r.Value, r.StepsTaken, r.Particles, len(r.Errors))
		for _, name := range metricNames {
			fmt.Fprintf(w, "\t%.4f", r.Metrics[name])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func monteCarloCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "montecarlo [scene]",
		Short: "rerun a scene with consecutive seeds and check stability",
		Args:  cobra.ExactArgs(1),
		RunE:  runMonteCarlo,
	}
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "named preset for the scene")
	cmd.Flags().Float64Var(&duration, "time", 2, "simulated seconds per trial")
	cmd.Flags().IntVar(&trials, "trials", 10, "number of trials")
	cmd.Flags().Int64Var(&seed, "seed", 1, "seed of the first trial")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent runs")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "containment slack (0 for one particle radius)")
	return cmd
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	mc := &automation.MonteCarloConfig{
		Scene:     args[0],
		Preset:    preset,
		NumTrials: trials,
		Seed:      seed,
		Duration:  duration,
		Workers:   workers,
		Tolerance: tolerance,
	}

	results, err := automation.RunMonteCarlo(cmd.Context(), mc, registry)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tSEED\tMAX OVERLAP\tCONTAINMENT\tSTABLE")
	overlaps := make([]float64, len(results))
	for i, r := range results {
		overlaps[i] = r.MaxOverlap
		fmt.Fprintf(w, "%d\t%d\t%.4f\t%.4f\t%t\n", r.TrialID, r.Seed, r.MaxOverlap, r.Containment, r.Stable)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	mean, std := stat.MeanStdDev(overlaps, nil)
	fmt.Printf("\nstable: %d  unstable: %d\n", stable, unstable)
	fmt.Printf("max overlap: mean %.4f  std %.4f\n", mean, std)
	return nil
}

func optimizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize [scene]",
		Short: "grid search for the parameters that minimize a metric",
		Args:  cobra.ExactArgs(1),
		RunE:  runOptimize,
	}
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "named preset for the scene")
	cmd.Flags().Float64Var(&duration, "time", 2, "simulated seconds per candidate")
	cmd.Flags().StringArrayVar(&grid, "grid", nil, "parameter values, e.g. sub_steps=2,4,8 (repeatable)")
	cmd.Flags().StringVar(&metric, "metric", "max_overlap", "metric to minimize")
	return cmd
}

// parseGrid reads name=v1,v2,... entries.
func parseGrid(entries []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(entries))
	ranges := make([][]float64, 0, len(entries))
	for _, entry := range entries {
		name, list, ok := strings.Cut(entry, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("invalid grid entry %q, want name=v1,v2", entry)
		}
		var vals []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid entry %q: %w", entry, err)
			}
			vals = append(vals, v)
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	names, ranges, err := parseGrid(grid)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("at least one --grid entry is required")
	}

	search := optim.NewGridSearch(names, ranges)
	search.Scene = args[0]
	search.Preset = preset
	search.Duration = duration

	fmt.Printf("searching %d combinations for the lowest %s\n", search.Candidates(), metric)
	params, best, err := search.Search(cmd.Context(), registry, metric)
	if err != nil {
		return err
	}

	fmt.Printf("\nbest %s: %.6f\n", metric, best)
	for _, name := range names {
		fmt.Printf("  %s = %g\n", name, params[name])
	}
	return nil
}
