package evaluation

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"provclassifier/internal/data"
)

type Fold struct {
	Train []int
	Test  []int
}

// StratifiedKFold deals each class's shuffled members round-robin over the
// folds, so every test fold keeps the class proportions of y.
type StratifiedKFold struct {
	nSplits int
	shuffle bool
	rng     *rand.Rand
}

func NewStratifiedKFold(nSplits int, shuffle bool, rng *rand.Rand) *StratifiedKFold {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &StratifiedKFold{
		nSplits: nSplits,
		shuffle: shuffle,
		rng:     rng,
	}
}

func (skf *StratifiedKFold) NSplits() int {
	return skf.nSplits
}

func (skf *StratifiedKFold) Split(y []int) ([]Fold, error) {
	if len(y) == 0 {
		return nil, fmt.Errorf("cannot split empty dataset")
	}

	if skf.nSplits < 2 {
		return nil, fmt.Errorf("number of folds must be at least 2, got %d", skf.nSplits)
	}

	classIndices := make(map[int][]int)
	for i, label := range y {
		classIndices[label] = append(classIndices[label], i)
	}

	classes := make([]int, 0, len(classIndices))
	for c := range classIndices {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	for _, c := range classes {
		if len(classIndices[c]) < skf.nSplits {
			return nil, fmt.Errorf("%w: class %d has %d members, %d folds need at least %d",
				data.ErrInsufficientData, c, len(classIndices[c]), skf.nSplits, skf.nSplits)
		}
	}

	testSets := make([][]int, skf.nSplits)
	offset := 0
	for _, c := range classes {
		indices := classIndices[c]
		if skf.shuffle {
			skf.rng.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
		for j, idx := range indices {
			fold := (offset + j) % skf.nSplits
			testSets[fold] = append(testSets[fold], idx)
		}
		offset = (offset + len(indices)) % skf.nSplits
	}

	folds := make([]Fold, skf.nSplits)
	inTest := make([]int, len(y))
	for f, test := range testSets {
		sort.Ints(test)
		for _, idx := range test {
			inTest[idx] = f
		}
		folds[f].Test = test
	}
	for f := range folds {
		train := make([]int, 0, len(y)-len(folds[f].Test))
		for i := range y {
			if inTest[i] != f {
				train = append(train, i)
			}
		}
		folds[f].Train = train
	}

	return folds, nil
}
