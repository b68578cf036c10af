package evaluation

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"provclassifier/internal/data"
	"provclassifier/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(counts ...int) []int {
	var y []int
	for class, n := range counts {
		for i := 0; i < n; i++ {
			y = append(y, class)
		}
	}
	return y
}

func TestStratifiedKFoldPartitions(t *testing.T) {
	y := labels(80, 23)
	skf := NewStratifiedKFold(10, true, rand.New(rand.NewSource(3)))

	folds, err := skf.Split(y)
	require.NoError(t, err)
	require.Len(t, folds, 10)

	seen := make(map[int]int)
	for _, fold := range folds {
		assert.Equal(t, len(y), len(fold.Train)+len(fold.Test))
		perClass := make(map[int]int)
		for _, idx := range fold.Test {
			seen[idx]++
			perClass[y[idx]]++
		}
		assert.Equal(t, 8, perClass[0])
		assert.InDelta(t, 2.3, float64(perClass[1]), 1.0)

		test := make(map[int]bool)
		for _, idx := range fold.Test {
			test[idx] = true
		}
		for _, idx := range fold.Train {
			assert.False(t, test[idx])
		}
	}
	assert.Len(t, seen, len(y))
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}
}

func TestStratifiedKFoldTooFewMembers(t *testing.T) {
	skf := NewStratifiedKFold(10, true, nil)
	_, err := skf.Split(labels(20, 9))
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrInsufficientData))
}

func TestStratifiedKFoldReshuffles(t *testing.T) {
	skf := NewStratifiedKFold(5, true, rand.New(rand.NewSource(1)))
	y := labels(25, 25)
	a, err := skf.Split(y)
	require.NoError(t, err)
	b, err := skf.Split(y)
	require.NoError(t, err)
	assert.NotEqual(t, a[0].Test, b[0].Test)
}

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy([]int{1, 0, 1, 1}, []int{1, 1, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.5, acc)

	_, err = Accuracy([]int{1}, nil)
	assert.Error(t, err)
	_, err = Accuracy(nil, nil)
	assert.Error(t, err)
}

func TestConfidenceIntervalSymmetry(t *testing.T) {
	samples := []float64{0.8, 0.9, 0.85, 0.7, 1.0, 0.95}
	lo, hi := ConfidenceInterval(samples, 0.95)
	assert.InDelta(t, -hi, lo, 1e-12)
	assert.Greater(t, hi, 0.0)
}

func TestConfidenceIntervalKnownValue(t *testing.T) {
	// population std of {1,2,3,4} is sqrt(1.25); t(0.975, 3) = 3.182446
	_, hi := ConfidenceInterval([]float64{1, 2, 3, 4}, 0.95)
	expected := 3.182446305284263 * math.Sqrt(1.25) / 2
	assert.InDelta(t, expected, hi, 1e-6)
}

func TestConfidenceIntervalDegenerate(t *testing.T) {
	lo, hi := ConfidenceInterval([]float64{0.5}, 0.95)
	assert.True(t, math.IsNaN(lo))
	assert.True(t, math.IsNaN(hi))

	_, hi = ConfidenceInterval([]float64{0.5, 0.5, 0.5}, 0.95)
	assert.Equal(t, 0.0, hi)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{0.5, 1})
	assert.Equal(t, 2, s.N)
	assert.Equal(t, 0.75, s.Mean)
	assert.False(t, math.IsNaN(s.HalfWidth))
	assert.True(t, math.IsNaN(Summarize(nil).Mean))
}

func separableData(n int, rng *rand.Rand) ([][]float64, []int) {
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		y[i] = i % 2
		X[i] = []float64{float64(y[i])*10 + rng.Float64(), rng.Float64()}
	}
	return X, y
}

func newCV(t *testing.T, iterations int, seed int64, parallel bool) *RepeatedCrossValidator {
	factory, err := models.NewFactory(models.DefaultConfig())
	require.NoError(t, err)
	cv := NewRepeatedCrossValidator(factory)
	cv.Iterations = iterations
	cv.RandomSeed = seed
	cv.Parallel = parallel
	cv.MaxWorkers = 3
	return cv
}

func TestRepeatedCrossValidatorOvershoot(t *testing.T) {
	X, y := separableData(40, rand.New(rand.NewSource(1)))

	for _, target := range []int{1, 10, 11, 25} {
		cv := newCV(t, target, 5, true)
		res, err := cv.Run(context.Background(), X, y)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, len(res.Accuracies), target)
		assert.LessOrEqual(t, len(res.Accuracies), target+9)
		assert.Equal(t, 0, len(res.Accuracies)%10)
		assert.Len(t, res.Importances, len(res.Accuracies))
		for _, acc := range res.Accuracies {
			assert.GreaterOrEqual(t, acc, 0.0)
			assert.LessOrEqual(t, acc, 1.0)
		}
	}
}

func TestRepeatedCrossValidatorSeparable(t *testing.T) {
	X, y := separableData(40, rand.New(rand.NewSource(2)))
	res, err := newCV(t, 20, 9, false).Run(context.Background(), X, y)
	require.NoError(t, err)

	for _, acc := range res.Accuracies {
		assert.Equal(t, 1.0, acc)
	}
	for _, imp := range res.Importances {
		require.Len(t, imp, 2)
		assert.InDelta(t, 1.0, imp[0], 1e-9)
	}
}

func TestRepeatedCrossValidatorSeedIsReproducible(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	X := make([][]float64, 60)
	y := make([]int, 60)
	for i := range X {
		X[i] = []float64{rng.Float64(), rng.Float64(), rng.Float64()}
		y[i] = rng.Intn(2)
	}
	for i := 0; i < 20; i++ {
		y[i] = i % 2
	}

	a, err := newCV(t, 30, 11, true).Run(context.Background(), X, y)
	require.NoError(t, err)
	b, err := newCV(t, 30, 11, false).Run(context.Background(), X, y)
	require.NoError(t, err)

	assert.Equal(t, a.Accuracies, b.Accuracies)
	assert.Equal(t, a.Importances, b.Importances)
}

func TestRepeatedCrossValidatorErrors(t *testing.T) {
	X, y := separableData(30, rand.New(rand.NewSource(1)))
	y[0], y[2] = 1, 1 // leaves class 0 with 13 members, class 1 with 17

	cv := newCV(t, 10, 1, true)
	cv.NFolds = 15
	_, err := cv.Run(context.Background(), X, y)
	assert.True(t, errors.Is(err, data.ErrInsufficientData))

	cv = newCV(t, 0, 1, true)
	_, err = cv.Run(context.Background(), X, y)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newCV(t, 10, 1, true).Run(ctx, X, y)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRepeatedCrossValidatorProgress(t *testing.T) {
	X, y := separableData(20, rand.New(rand.NewSource(1)))
	cv := newCV(t, 15, 1, true)
	var calls []int
	cv.Progress = func(recorded, target int) {
		assert.Equal(t, 15, target)
		calls = append(calls, recorded)
	}
	_, err := cv.Run(context.Background(), X, y)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, calls)
}

// hookedTree runs fit before every Fit call.
type hookedTree struct {
	*models.DecisionTree
	fit func() error
}

func (h *hookedTree) Fit(X [][]float64, y []int) error {
	if err := h.fit(); err != nil {
		return err
	}
	return h.DecisionTree.Fit(X, y)
}

func hookedCV(iterations int, parallel bool, fit func() error) *RepeatedCrossValidator {
	cv := NewRepeatedCrossValidator(func(rng *rand.Rand) models.Model {
		return &hookedTree{DecisionTree: models.NewDecisionTree(0, 2).WithRand(rng), fit: fit}
	})
	cv.Iterations = iterations
	cv.RandomSeed = 1
	cv.Parallel = parallel
	cv.MaxWorkers = 1
	return cv
}

func TestRepeatedCrossValidatorFoldErrorStopsBatch(t *testing.T) {
	X, y := separableData(40, rand.New(rand.NewSource(1)))

	for _, parallel := range []bool{true, false} {
		var calls atomic.Int32
		cv := hookedCV(10, parallel, func() error {
			calls.Add(1)
			return errors.New("fit failed")
		})
		res, err := cv.Run(context.Background(), X, y)
		require.Error(t, err)
		assert.Nil(t, res)
		assert.Contains(t, err.Error(), "fit failed")
		assert.Equal(t, int32(1), calls.Load(), "parallel=%v", parallel)
	}
}

func TestRepeatedCrossValidatorCancelInsideBatch(t *testing.T) {
	X, y := separableData(40, rand.New(rand.NewSource(1)))

	for _, parallel := range []bool{true, false} {
		ctx, cancel := context.WithCancel(context.Background())
		var calls atomic.Int32
		cv := hookedCV(10, parallel, func() error {
			calls.Add(1)
			cancel()
			return nil
		})
		_, err := cv.Run(ctx, X, y)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(1), calls.Load(), "parallel=%v", parallel)
	}
}

func TestRepeatedCrossValidatorZeroSeed(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	X := make([][]float64, 40)
	y := make([]int, 40)
	for i := range X {
		X[i] = []float64{rng.Float64(), rng.Float64()}
		y[i] = i % 2
	}

	run := func() *CVResult {
		cv := newCV(t, 20, 0, true)
		cv.Seeded = true
		res, err := cv.Run(context.Background(), X, y)
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()
	assert.Equal(t, a.Accuracies, b.Accuracies)
	assert.Equal(t, a.Importances, b.Importances)
}
