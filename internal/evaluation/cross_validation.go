package evaluation

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"provclassifier/internal/models"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultFolds      = 10
	DefaultIterations = 1000
)

// ProgressFunc is called after every recorded batch of folds.
type ProgressFunc func(recorded, target int)

// RepeatedCrossValidator reshuffles a stratified k-fold split until at least
// Iterations fold scores are recorded. Whole batches are recorded, so the
// final count may exceed Iterations by up to NFolds-1.
//
// RandomSeed is used when Seeded is set or when it is non-zero; otherwise the
// run is seeded from the clock.
type RepeatedCrossValidator struct {
	NFolds     int
	Iterations int
	RandomSeed int64
	Seeded     bool
	Parallel   bool
	MaxWorkers int
	Factory    models.Factory
	Progress   ProgressFunc
}

type CVResult struct {
	Accuracies  []float64
	Importances [][]float64
	Batches     int
}

func NewRepeatedCrossValidator(factory models.Factory) *RepeatedCrossValidator {
	return &RepeatedCrossValidator{
		NFolds:     DefaultFolds,
		Iterations: DefaultIterations,
		Parallel:   true,
		MaxWorkers: runtime.NumCPU(),
		Factory:    factory,
	}
}

type foldOutcome struct {
	accuracy    float64
	importances []float64
}

func (cv *RepeatedCrossValidator) Run(ctx context.Context, X [][]float64, y []int) (*CVResult, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("x and y must have the same length: %d vs %d", len(X), len(y))
	}
	if cv.Iterations <= 0 {
		return nil, fmt.Errorf("invalid number of iterations: %d", cv.Iterations)
	}
	if cv.Factory == nil {
		return nil, fmt.Errorf("no model factory configured")
	}

	seed := cv.RandomSeed
	if !cv.Seeded && seed == 0 {
		seed = time.Now().UnixNano()
	}
	master := rand.New(rand.NewSource(seed))
	splitter := NewStratifiedKFold(cv.NFolds, true, master)

	result := &CVResult{
		Accuracies:  make([]float64, 0, cv.Iterations+cv.NFolds),
		Importances: make([][]float64, 0, cv.Iterations+cv.NFolds),
	}

	for len(result.Accuracies) < cv.Iterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		folds, err := splitter.Split(y)
		if err != nil {
			return nil, err
		}

		seeds := make([]int64, len(folds))
		for i := range seeds {
			seeds[i] = master.Int63()
		}

		var outcomes []foldOutcome
		if cv.Parallel {
			outcomes, err = cv.runBatchParallel(ctx, X, y, folds, seeds)
		} else {
			outcomes, err = cv.runBatchSerial(ctx, X, y, folds, seeds)
		}
		if err != nil {
			return nil, err
		}

		for _, o := range outcomes {
			result.Accuracies = append(result.Accuracies, o.accuracy)
			result.Importances = append(result.Importances, o.importances)
		}
		result.Batches++

		if cv.Progress != nil {
			cv.Progress(len(result.Accuracies), cv.Iterations)
		}
	}

	return result, nil
}

func (cv *RepeatedCrossValidator) runBatchSerial(ctx context.Context, X [][]float64, y []int, folds []Fold, seeds []int64) ([]foldOutcome, error) {
	outcomes := make([]foldOutcome, len(folds))
	for i, fold := range folds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		acc, imp, err := cv.evaluateFold(X, y, fold, seeds[i])
		if err != nil {
			return nil, fmt.Errorf("fold %d failed: %w", i, err)
		}
		outcomes[i] = foldOutcome{accuracy: acc, importances: imp}
	}
	return outcomes, nil
}

// runBatchParallel trains the folds of one batch on at most MaxWorkers
// goroutines. The first failing fold or a cancelled ctx stops the batch.
func (cv *RepeatedCrossValidator) runBatchParallel(ctx context.Context, X [][]float64, y []int, folds []Fold, seeds []int64) ([]foldOutcome, error) {
	outcomes := make([]foldOutcome, len(folds))

	workers := cv.MaxWorkers
	if workers <= 0 {
		workers = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range folds {
		i := i
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			acc, imp, err := cv.evaluateFold(X, y, folds[i], seeds[i])
			if err != nil {
				return fmt.Errorf("fold %d failed: %w", i, err)
			}
			outcomes[i] = foldOutcome{accuracy: acc, importances: imp}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// evaluateFold trains a fresh model on its own copy of the training rows and
// scores it on the held-out rows.
func (cv *RepeatedCrossValidator) evaluateFold(X [][]float64, y []int, fold Fold, seed int64) (float64, []float64, error) {
	XTrain := make([][]float64, len(fold.Train))
	yTrain := make([]int, len(fold.Train))
	for i, idx := range fold.Train {
		XTrain[i] = make([]float64, len(X[idx]))
		copy(XTrain[i], X[idx])
		yTrain[i] = y[idx]
	}

	XTest := make([][]float64, len(fold.Test))
	yTest := make([]int, len(fold.Test))
	for i, idx := range fold.Test {
		XTest[i] = X[idx]
		yTest[i] = y[idx]
	}

	model := cv.Factory(rand.New(rand.NewSource(seed)))
	if err := model.Fit(XTrain, yTrain); err != nil {
		return 0, nil, err
	}

	acc, err := Accuracy(yTest, model.Predict(XTest))
	if err != nil {
		return 0, nil, err
	}

	return acc, model.FeatureImportances(), nil
}
