package balance

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"provclassifier/internal/data"

	"gonum.org/v1/gonum/floats"
)

const DefaultKNeighbors = 5

// MinorityOversampler runs one oversampling pass. The returned matrix starts
// with the input rows, unchanged and in order, followed by synthetic rows.
type MinorityOversampler interface {
	Oversample(X [][]float64, y []int) ([][]float64, []int, error)
}

// SMOTE is the regular variant: each pass picks the smallest class and
// interpolates between its members and their k nearest same-class neighbours
// until that class matches the largest one.
type SMOTE struct {
	KNeighbors int
	rng        *rand.Rand
}

func NewSMOTE(kNeighbors int, rng *rand.Rand) *SMOTE {
	if kNeighbors <= 0 {
		kNeighbors = DefaultKNeighbors
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SMOTE{KNeighbors: kNeighbors, rng: rng}
}

func (s *SMOTE) Oversample(X [][]float64, y []int) ([][]float64, []int, error) {
	if len(X) != len(y) {
		return nil, nil, fmt.Errorf("x and y must have the same length: %d vs %d", len(X), len(y))
	}

	counts := make(map[int]int)
	for _, label := range y {
		counts[label]++
	}
	if len(counts) < 2 {
		return nil, nil, fmt.Errorf("%w: oversampling needs at least 2 classes, found %d",
			data.ErrDegenerateInput, len(counts))
	}

	minority, majorityCount := minorityClass(counts)
	need := majorityCount - counts[minority]

	outX := make([][]float64, len(X), len(X)+need)
	outY := make([]int, len(y), len(y)+need)
	for i, row := range X {
		outX[i] = make([]float64, len(row))
		copy(outX[i], row)
	}
	copy(outY, y)

	if need == 0 {
		return outX, outY, nil
	}

	var members []int
	for i, label := range y {
		if label == minority {
			members = append(members, i)
		}
	}
	if len(members) < s.KNeighbors+1 {
		return nil, nil, fmt.Errorf("%w: class %d has %d members, SMOTE with k=%d needs at least %d",
			data.ErrInsufficientData, minority, len(members), s.KNeighbors, s.KNeighbors+1)
	}

	neighbors := nearestNeighbors(X, members, s.KNeighbors)

	diff := make([]float64, len(X[0]))
	for n := 0; n < need; n++ {
		i := s.rng.Intn(len(members))
		base := X[members[i]]
		nn := X[neighbors[i][s.rng.Intn(s.KNeighbors)]]
		gap := s.rng.Float64()

		floats.SubTo(diff, nn, base)
		synthetic := make([]float64, len(base))
		floats.AddScaledTo(synthetic, base, gap, diff)

		outX = append(outX, synthetic)
		outY = append(outY, minority)
	}

	return outX, outY, nil
}

// minorityClass returns the smallest class (lowest label on ties) and the
// size of the largest class.
func minorityClass(counts map[int]int) (int, int) {
	classes := make([]int, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	minority := classes[0]
	majority := 0
	for _, c := range classes {
		if counts[c] < counts[minority] {
			minority = c
		}
		if counts[c] > majority {
			majority = counts[c]
		}
	}
	return minority, majority
}

// nearestNeighbors returns, for each member, the indices of its k closest
// other members by Euclidean distance.
func nearestNeighbors(X [][]float64, members []int, k int) [][]int {
	out := make([][]int, len(members))
	type candidate struct {
		idx  int
		dist float64
	}
	cands := make([]candidate, 0, len(members)-1)

	for i, a := range members {
		cands = cands[:0]
		for j, b := range members {
			if i == j {
				continue
			}
			cands = append(cands, candidate{idx: b, dist: floats.Distance(X[a], X[b], 2)})
		}
		sort.SliceStable(cands, func(p, q int) bool {
			return cands[p].dist < cands[q].dist
		})
		out[i] = make([]int, k)
		for n := 0; n < k; n++ {
			out[i][n] = cands[n].idx
		}
	}
	return out
}
