package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/verletsim/internal/analysis"
	"github.com/san-kum/verletsim/internal/config"
	"github.com/san-kum/verletsim/internal/experiment"
	"github.com/san-kum/verletsim/internal/export"
	"github.com/san-kum/verletsim/internal/gui"
	"github.com/san-kum/verletsim/internal/storage"
	"github.com/san-kum/verletsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir  string
	logLevel string
	logJSON  bool

	configFile  string
	preset      string
	duration    float64
	subSteps    int
	frameRate   float64
	seed        int64
	count       int
	boundary    string
	gravity     float64
	radius      float64
	recordEvery int

	outPath    string
	frameIndex int
	svgScale   float64
	trail      int
	gifPath    string

	seriesName string
	particle   int
	axis       string
)

var registry = experiment.NewRegistry()

func main() {
	rootCmd := &cobra.Command{
		Use:           "verletsim",
		Short:         "verlet particle physics sandbox",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel, logJSON)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(registry)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".verletsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run a scene headless and store the result",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addSceneFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the recorded series of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export particle positions to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(args[0], outPath)
		},
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render a recorded frame or a particle trail to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <run_id>.svg)")
	exportSVGCmd.Flags().IntVar(&frameIndex, "frame", -1, "recorded frame to render (-1 for the last)")
	exportSVGCmd.Flags().Float64Var(&svgScale, "scale", 1, "pixels per world unit")
	exportSVGCmd.Flags().IntVar(&trail, "trail", -1, "render the path of this particle instead of a frame")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a recorded series",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&seriesName, "series", "kinetic_energy", "recorded series to analyze")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase portrait of one particle",
		Args:  cobra.ExactArgs(1),
		RunE:  plotPhase,
	}
	phaseCmd.Flags().IntVar(&particle, "particle", 0, "particle index")
	phaseCmd.Flags().StringVar(&axis, "axis", "y", "axis to trace (x or y)")

	presetsCmd := &cobra.Command{
		Use:   "presets [scene]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	scenesCmd := &cobra.Command{
		Use:   "scenes",
		Short: "list registered scenes",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range registry.ListScenes() {
				fmt.Println(name)
			}
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the default configuration as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(args[0], config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live [scene]",
		Short: "watch a scene in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addSceneFlags(liveCmd)
	liveCmd.Flags().StringVar(&gifPath, "gif", viz.GIFPath, "where the recorder writes its GIF")

	guiCmd := &cobra.Command{
		Use:   "gui [scene]",
		Short: "open the raylib editor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scene := "free"
			if len(args) > 0 {
				scene = args[0]
			}
			cfg, err := resolveConfig(cmd, scene)
			if err != nil {
				return err
			}
			return gui.Run(cfg, registry)
		},
	}
	addSceneFlags(guiCmd)

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd,
		analyzeCmd, phaseCmd, presetsCmd, scenesCmd, initCmd, liveCmd, guiCmd,
		benchCommand(), scenarioCommand(), sweepCommand(), monteCarloCommand(), optimizeCommand())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func setupLogging(level string, asJSON bool) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if asJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func addSceneFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	f := cmd.Flags()
	f.StringVarP(&configFile, "config", "c", "", "YAML config file")
	f.StringVarP(&preset, "preset", "p", "", "named preset for the scene")
	f.Float64Var(&duration, "time", def.Run.Duration, "simulated seconds")
	f.IntVar(&subSteps, "substeps", def.Engine.SubSteps, "substeps per frame")
	f.Float64Var(&frameRate, "rate", def.Engine.FrameRate, "frames per simulated second")
	f.Int64Var(&seed, "seed", def.Scene.Seed, "random seed")
	f.IntVar(&count, "count", def.Scene.Count, "particles in the pile scene")
	f.StringVar(&boundary, "boundary", def.Engine.Boundary, "boundary mode (reflect, pushback)")
	f.Float64Var(&gravity, "gravity", def.Engine.GravityY, "downward gravity")
	f.Float64Var(&radius, "radius", def.Particle.Radius, "particle radius")
	f.IntVar(&recordEvery, "record-every", def.Run.RecordEvery, "record one frame in N")
}

// resolveConfig layers defaults, preset, config file and explicitly set
// flags, in that order.
func resolveConfig(cmd *cobra.Command, scene string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(scene, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(scene))
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.Scene.Name = scene

	flags := cmd.Flags()
	if flags.Changed("time") {
		cfg.Run.Duration = duration
	}
	if flags.Changed("substeps") {
		cfg.Engine.SubSteps = subSteps
	}
	if flags.Changed("rate") {
		cfg.Engine.FrameRate = frameRate
	}
	if flags.Changed("seed") {
		cfg.Scene.Seed = seed
	}
	if flags.Changed("count") {
		cfg.Scene.Count = count
	}
	if flags.Changed("boundary") {
		cfg.Engine.Boundary = boundary
	}
	if flags.Changed("gravity") {
		cfg.Engine.GravityY = gravity
	}
	if flags.Changed("radius") {
		cfg.Particle.Radius = radius
	}
	if flags.Changed("record-every") {
		cfg.Run.RecordEvery = recordEvery
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	scene := args[0]
	cfg, err := resolveConfig(cmd, scene)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg)
	if err := exp.Setup(registry, registry.DefaultMetrics(scene)); err != nil {
		return err
	}

	slog.Info("running simulation", "scene", scene, "preset", preset, "frames", cfg.Frames(), "sub_steps", cfg.Engine.SubSteps)
	start := time.Now()

	result, err := exp.Run(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(cfg, preset, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("frames: %d\n", result.StepsTaken)
	fmt.Printf("particles: %d\n", exp.GetSimulator().Engine().NumParticles())
	for _, e := range result.Errors {
		fmt.Printf("error: %v\n", e)
	}
	printMetrics(result.Metrics)

	return nil
}

func printMetrics(metrics map[string]float64) {
	if len(metrics) == 0 {
		return
	}
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, metrics[name])
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tPRESET\tTIME\tDURATION\tSUBSTEPS\tPARTICLES\tLINKS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%d\t%d\t%d\n",
			run.ID,
			run.Scene,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.SubSteps,
			run.Particles,
			run.Links,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(series))
	for name, data := range series {
		if name != "time" && len(data) > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no data to plot")
	}
	sort.Strings(names)

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("frames: %d\n\n", meta.Steps)

	for _, name := range names {
		graph := asciigraph.Plot(series[name],
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if outPath == "" {
		return st.ExportCSV(args[0], os.Stdout)
	}

	file, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := st.ExportCSV(args[0], file); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outPath)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("run %s has no frames", runID)
	}

	cfg := meta.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	bounds := cfg.Bounds()

	var svg string
	if trail >= 0 {
		svg = export.TrailToSVG(export.Trail(frames, trail), bounds, svgScale, "#00ffcc")
		if svg == "" {
			return fmt.Errorf("particle %d has fewer than two recorded positions", trail)
		}
	} else {
		i := frameIndex
		if i < 0 {
			i = len(frames) - 1
		}
		if i >= len(frames) {
			return fmt.Errorf("frame %d out of range (%d recorded)", i, len(frames))
		}
		svg = export.FrameToSVG(frames[i], bounds, svgScale)
	}

	path := outPath
	if path == "" {
		path = runID + ".svg"
	}
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", path)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}

	data, ok := series[seriesName]
	if !ok {
		return fmt.Errorf("run %s has no series %q", runID, seriesName)
	}
	rate := analysis.SampleRate(series["time"])
	if rate == 0 {
		return fmt.Errorf("run %s has too few samples", runID)
	}

	ps, err := analysis.PowerSpectrum(data, rate)
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("series: %s (%.1f samples/s)\n\n", seriesName, rate)

	plotData := ps.Power
	if len(plotData) > 8 {
		plotData = plotData[:len(plotData)/4]
	}
	fmt.Println(asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum ("+seriesName+")"),
	))
	fmt.Println()

	freq, _ := ps.Dominant()
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}

	return nil
}

func plotPhase(cmd *cobra.Command, args []string) error {
	runID := args[0]

	ax, err := analysis.ParseAxis(axis)
	if err != nil {
		return err
	}

	frames, err := storage.New(dataDir).LoadFrames(runID)
	if err != nil {
		return err
	}

	portrait := analysis.ParticlePhase(frames, particle, ax)
	if portrait == nil {
		return fmt.Errorf("particle %d appears in fewer than two recorded frames", particle)
	}

	fmt.Printf("phase portrait: particle %d, %s against d%s/dt\n\n", particle, ax, ax)
	fmt.Print(analysis.PhasePortraitToASCII(portrait, 60, 20))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	scenes := config.PresetScenes()
	if len(args) > 0 {
		scenes = args
	}

	for _, scene := range scenes {
		presets := config.ListPresets(scene)
		if len(presets) == 0 {
			fmt.Printf("no presets for scene: %s\n", scene)
			continue
		}
		fmt.Printf("presets for %s:\n", scene)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return viz.RunInteractive(registry)
	}

	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	viz.GIFPath = gifPath

	// The TUI owns the terminal; keep log output out of it.
	if !cmd.Flags().Changed("log-level") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	}
	return viz.Run(cfg, registry)
}
