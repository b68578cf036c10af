package experiment

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"provclassifier/internal/balance"
	"provclassifier/internal/data"
	"provclassifier/internal/evaluation"
	"provclassifier/internal/features"
	"provclassifier/internal/jobs"
	"provclassifier/internal/models"
	"provclassifier/internal/preprocessing"

	"github.com/rs/zerolog/log"
)

type AccuracySample struct {
	Metrics  string
	Accuracy float64
}

// ImportanceTable has one row per fold of the combined feature set.
type ImportanceTable struct {
	Columns []string
	Rows    [][]float64
}

type SetSummary struct {
	Metrics string
	evaluation.Summary
	Line string
}

type Results struct {
	Accuracies  []AccuracySample
	Importances ImportanceTable
	Summaries   []SetSummary
}

// AccuraciesFor returns the samples recorded under one feature set.
func (r *Results) AccuraciesFor(metrics string) []float64 {
	var out []float64
	for _, s := range r.Accuracies {
		if s.Metrics == metrics {
			out = append(out, s.Accuracy)
		}
	}
	return out
}

// SetProgressFunc reports progress of the feature set currently evaluated.
type SetProgressFunc func(metrics string, recorded, target int)

type Evaluator struct {
	Catalog  features.Catalog
	Config   *Config
	Jobs     *jobs.Manager
	Progress SetProgressFunc
}

func NewEvaluator(catalog features.Catalog, conf *Config) *Evaluator {
	if conf == nil {
		conf = DefaultConfig()
	}
	return &Evaluator{
		Catalog: catalog,
		Config:  conf,
		Jobs:    jobs.NewManager(),
	}
}

// DiagnosticTag names a run in the summary line.
func DiagnosticTag(runLabel, metrics string) string {
	if runLabel == "" {
		return metrics
	}
	return runLabel + "-" + metrics
}

func FormatSummary(s evaluation.Summary, tag string) string {
	return fmt.Sprintf("Accuracy: %.2f%% ±%.4f <-- %s", s.Mean*100, s.HalfWidth*100, tag)
}

// Evaluate cross-validates the decision tree under every feature set of the
// catalog. Nothing is returned unless all feature sets finish.
func (e *Evaluator) Evaluate(ctx context.Context, t *data.Table, iterations int, runLabel string) (*Results, error) {
	if iterations < 1 {
		return nil, fmt.Errorf("invalid number of iterations: %d", iterations)
	}
	if err := e.Catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feature catalog: %w", err)
	}
	validator := data.NewDataValidator()
	if err := validator.ValidateSchema(t, e.Catalog.RequiredColumns()); err != nil {
		return nil, err
	}
	if err := validator.ValidateClasses(t, e.Config.Folds); err != nil {
		return nil, err
	}

	factory, err := models.NewFactory(e.Config.Tree)
	if err != nil {
		return nil, err
	}

	encoder := preprocessing.NewLabelEncoder()
	y, err := encoder.FitTransform(t.Labels)
	if err != nil {
		return nil, err
	}

	combined := e.Catalog.Combined()
	results := &Results{
		Importances: ImportanceTable{Columns: combined.Metrics},
	}

	for i, fs := range e.Catalog.Sets() {
		tag := DiagnosticTag(runLabel, fs.Name)
		job := e.Jobs.CreateJob(fs.Name, tag)

		X, err := t.Project(fs.Metrics)
		if err != nil {
			job.Fail(err)
			return nil, err
		}

		cv := e.newValidator(factory, iterations, i, fs.Name, job)
		job.Start(iterations)
		job.AddLog(fmt.Sprintf("%d rows, %d metrics", len(X), fs.Len()))
		start := time.Now()

		res, err := cv.Run(ctx, X, y)
		if err != nil {
			job.Fail(err)
			return nil, fmt.Errorf("evaluation of %s failed: %w", tag, err)
		}

		summary := SetSummary{
			Metrics: fs.Name,
			Summary: evaluation.Summarize(res.Accuracies),
		}
		summary.Line = FormatSummary(summary.Summary, tag)
		results.Summaries = append(results.Summaries, summary)

		for _, acc := range res.Accuracies {
			results.Accuracies = append(results.Accuracies, AccuracySample{Metrics: fs.Name, Accuracy: acc})
		}
		if fs.Name == combined.Name {
			results.Importances.Rows = res.Importances
		}

		log.Info().
			Str("metrics", fs.Name).
			Int("folds", len(res.Accuracies)).
			Int("batches", res.Batches).
			Dur("elapsed", time.Since(start)).
			Msg(summary.Line)
		job.AddLog(summary.Line)
		job.Complete(summary)
	}

	return results, nil
}

func (e *Evaluator) newValidator(factory models.Factory, iterations, setIdx int, name string, job *jobs.Job) *evaluation.RepeatedCrossValidator {
	cv := evaluation.NewRepeatedCrossValidator(factory)
	cv.NFolds = e.Config.Folds
	cv.Iterations = iterations
	if e.Config.Seed != 0 {
		cv.RandomSeed = e.Config.Seed + int64(setIdx)
		cv.Seeded = true
	}
	switch {
	case e.Config.Workers == 1:
		cv.Parallel = false
	case e.Config.Workers > 1:
		cv.MaxWorkers = e.Config.Workers
	default:
		cv.MaxWorkers = runtime.NumCPU()
	}
	cv.Progress = func(recorded, target int) {
		job.Advance(recorded)
		if e.Progress != nil {
			e.Progress(name, recorded, target)
		}
	}
	return cv
}

type RunOutput struct {
	Results *Results
	Balance *balance.Report
	Table   *data.Table
}

// RunExperiment optionally balances the table and then evaluates it with the
// configured iterations and run label.
func (e *Evaluator) RunExperiment(ctx context.Context, t *data.Table) (*RunOutput, error) {
	out := &RunOutput{Table: t}

	if e.Config.Balance {
		seed := e.Config.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		smote := balance.NewSMOTE(e.Config.SMOTE.KNeighbors, rand.New(rand.NewSource(seed)))
		balanced, report, err := balance.NewBalancer(smote).Balance(t)
		if err != nil {
			return nil, fmt.Errorf("balancing failed: %w", err)
		}
		out.Table = balanced
		out.Balance = &report
	}

	results, err := e.Evaluate(ctx, out.Table, e.Config.Iterations, e.Config.RunLabel)
	if err != nil {
		return nil, err
	}
	out.Results = results
	return out, nil
}
