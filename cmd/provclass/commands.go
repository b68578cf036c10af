package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"provclassifier/internal/balance"
	"provclassifier/internal/data"
	"provclassifier/internal/experiment"
	"provclassifier/internal/features"
	"provclassifier/internal/persistence"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	dataFile     string
	configFile   string
	outputDir    string
	bundleFile   string
	balancedFile string
	runLabel     string
	iterations   int
	seed         int64
	workers      int
	kNeighbors   int
	doBalance    bool
	noProgress   bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run repeated cross-validation for every feature set",
	RunE:  runEvaluate,
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Balance a dataset with SMOTE and write it as CSV",
	RunE:  runBalance,
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "List the feature sets and their metrics",
	RunE:  runFeatures,
}

func init() {
	evaluateCmd.Flags().StringVarP(&dataFile, "data", "d", "", "Path to the metrics CSV file")
	evaluateCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file")
	evaluateCmd.Flags().BoolVar(&doBalance, "balance", false, "Balance classes with SMOTE before evaluating")
	evaluateCmd.Flags().IntVarP(&iterations, "iterations", "n", 0, "Minimum number of fold accuracies per feature set")
	evaluateCmd.Flags().StringVarP(&runLabel, "label", "l", "", "Run label used in the summary lines")
	evaluateCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = time based)")
	evaluateCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel fold workers (0 = all CPUs, 1 = serial)")
	evaluateCmd.Flags().StringVarP(&outputDir, "out", "o", "results", "Directory for the result CSV files")
	evaluateCmd.Flags().StringVar(&bundleFile, "bundle", "", "Also save a result bundle to this file")
	evaluateCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	_ = evaluateCmd.MarkFlagRequired("data")

	balanceCmd.Flags().StringVarP(&dataFile, "data", "d", "", "Path to the metrics CSV file")
	balanceCmd.Flags().StringVarP(&balancedFile, "out", "o", "balanced.csv", "Output CSV file")
	balanceCmd.Flags().IntVarP(&kNeighbors, "k-neighbors", "k", balance.DefaultKNeighbors, "SMOTE neighbours")
	balanceCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = time based)")
	_ = balanceCmd.MarkFlagRequired("data")
}

func loadConfig(cmd *cobra.Command) (*experiment.Config, error) {
	conf := experiment.DefaultConfig()
	if configFile != "" {
		loaded, err := experiment.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		conf = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("balance") {
		conf.Balance = doBalance
	}
	if flags.Changed("iterations") {
		conf.Iterations = iterations
	}
	if flags.Changed("label") {
		conf.RunLabel = runLabel
	}
	if flags.Changed("seed") {
		conf.Seed = seed
	}
	if flags.Changed("workers") {
		conf.Workers = workers
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	if logLevel == "" {
		if lvl, err := zerolog.ParseLevel(conf.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	}
	return conf, nil
}

func loadTable(path string) (*data.Table, error) {
	reader, err := data.NewCSVReader(path)
	if err != nil {
		return nil, err
	}
	t, err := reader.LoadTable()
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	stats := data.NewDataValidator().GetDatasetStats(t)
	log.Info().
		Str("file", path).
		Interface("samples", stats["samples"]).
		Interface("features", stats["features"]).
		Interface("classes", stats["class_distribution"]).
		Msg("dataset loaded")
	return t, nil
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	t, err := loadTable(dataFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ev := experiment.NewEvaluator(features.Default(), conf)
	if !noProgress {
		ev.Progress = newProgressReporter()
	}

	start := time.Now()
	out, err := ev.RunExperiment(ctx, t)
	if err != nil {
		return err
	}

	fmt.Println()
	if out.Balance != nil {
		printBalanceReport(*out.Balance)
	}
	fmt.Println(cyan("=== Accuracy ==="))
	for _, s := range out.Results.Summaries {
		fmt.Printf("%s %s\n", green("✓"), s.Line)
	}
	fmt.Printf("Finished in %s\n", time.Since(start).Round(time.Millisecond))

	paths, err := out.Results.ExportResults(outputDir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Printf("Saved %s\n", yellow(p))
	}

	if bundleFile != "" {
		if err := saveBundle(out, conf, t); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", yellow(bundleFile))
	}
	return nil
}

func saveBundle(out *experiment.RunOutput, conf *experiment.Config, original *data.Table) error {
	bundle := persistence.NewResultBundle(out.Results, conf)
	bundle.Metadata.Dataset = filepath.Base(dataFile)
	bundle.Metadata.OriginalShape = original.Shape()
	bundle.Metadata.BalancedShape = out.Table.Shape()

	if dir := filepath.Dir(bundleFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := bundle.Save(bundleFile); err != nil {
		return err
	}
	return bundle.SaveMetadata(strings.TrimSuffix(bundleFile, filepath.Ext(bundleFile)) + ".txt")
}

// newProgressReporter draws one bar per feature set.
func newProgressReporter() experiment.SetProgressFunc {
	var (
		bar     *progressbar.ProgressBar
		current string
	)
	return func(metrics string, recorded, target int) {
		if bar == nil || metrics != current {
			if bar != nil {
				_ = bar.Finish()
			}
			current = metrics
			bar = progressbar.Default(int64(target), "evaluating "+metrics)
		}
		if recorded > target {
			recorded = target
		}
		_ = bar.Set(recorded)
	}
}

func printBalanceReport(r balance.Report) {
	fmt.Println(cyan("=== Balancing ==="))
	fmt.Printf("Shape: %s -> %s (%d passes)\n", r.OriginalShape, r.BalancedShape, r.Passes)
	classes := make([]string, 0, len(r.BalancedCounts))
	for c := range r.BalancedCounts {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	for _, c := range classes {
		fmt.Printf("  %-12s %6d -> %d\n", c, r.OriginalCounts[c], r.BalancedCounts[c])
	}
}

func runBalance(_ *cobra.Command, _ []string) error {
	t, err := loadTable(dataFile)
	if err != nil {
		return err
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	smote := balance.NewSMOTE(kNeighbors, rand.New(rand.NewSource(seed)))
	balanced, report, err := balance.NewBalancer(smote).Balance(t)
	if err != nil {
		fmt.Printf("%s %v\n", red("✗"), err)
		return err
	}
	printBalanceReport(report)

	if err := data.SaveCSV(balancedFile, balanced); err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", yellow(balancedFile))
	return nil
}

func runFeatures(_ *cobra.Command, _ []string) error {
	catalog := features.Default()
	if err := catalog.Validate(); err != nil {
		return err
	}
	for _, fs := range catalog.Sets() {
		fmt.Printf("%s (%d)\n", cyan(fs.Name), fs.Len())
		for _, m := range fs.Metrics {
			fmt.Printf("  %s\n", m)
		}
	}
	return nil
}
