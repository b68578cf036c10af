package models

import (
	"fmt"
	"math/rand"
	"sort"
)

// featureThreshold is the smallest gap between two sorted values that is
// treated as a split point.
const featureThreshold = 1e-7

type TreeNode struct {
	IsLeaf           bool
	Class            int
	Feature          int
	Threshold        float64
	Left             *TreeNode
	Right            *TreeNode
	Samples          int
	Impurity         float64
	ImpurityDecrease float64
}

// DecisionTree is a CART classifier using Gini impurity. Samples with
// x[Feature] <= Threshold go left. Candidate features are visited in a random
// order at every node, so equally good splits are chosen at random.
type DecisionTree struct {
	BaseModel
	Root            *TreeNode
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	NFeatures       int

	importances []float64
	classIndex  map[int]int
	rng         *rand.Rand
}

// NewDecisionTree creates a tree; maxDepth <= 0 grows until leaves are pure.
func NewDecisionTree(maxDepth, minSamplesSplit int) *DecisionTree {
	if maxDepth < 0 {
		maxDepth = 0
	}

	if minSamplesSplit < 2 {
		minSamplesSplit = 2
	}

	return &DecisionTree{
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
		MinSamplesLeaf:  1,
		BaseModel: BaseModel{
			Name: "DecisionTree",
			Params: map[string]any{
				"max_depth":         maxDepth,
				"min_samples_split": minSamplesSplit,
				"min_samples_leaf":  1,
				"criterion":         "gini",
			},
		},
	}
}

func (dt *DecisionTree) WithRand(r *rand.Rand) *DecisionTree {
	dt.rng = r
	return dt
}

func (dt *DecisionTree) WithMinSamplesLeaf(n int) *DecisionTree {
	if n < 1 {
		n = 1
	}
	dt.MinSamplesLeaf = n
	dt.Params["min_samples_leaf"] = n
	return dt
}

func (dt *DecisionTree) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("cannot fit tree on empty dataset")
	}
	if len(X) != len(y) {
		return fmt.Errorf("x and y must have the same length: %d vs %d", len(X), len(y))
	}
	dt.NFeatures = len(X[0])
	if dt.NFeatures == 0 {
		return fmt.Errorf("cannot fit tree without features")
	}
	for i, row := range X {
		if len(row) != dt.NFeatures {
			return fmt.Errorf("inconsistent feature count at sample %d: expected %d, got %d", i, dt.NFeatures, len(row))
		}
	}

	dt.Classes = ExtractClasses(y)
	dt.classIndex = make(map[int]int, len(dt.Classes))
	for i, c := range dt.Classes {
		dt.classIndex[c] = i
	}
	encoded := make([]int, len(y))
	for i, label := range y {
		encoded[i] = dt.classIndex[label]
	}

	indices := make([]int, len(X))
	for i := range indices {
		indices[i] = i
	}

	dt.importances = make([]float64, dt.NFeatures)
	dt.Root = dt.buildTree(X, encoded, indices, 0)
	dt.normalizeImportances()
	return nil
}

func (dt *DecisionTree) buildTree(X [][]float64, y []int, indices []int, depth int) *TreeNode {
	counts := dt.classCounts(y, indices)
	node := &TreeNode{
		Samples:  len(indices),
		Impurity: gini(counts, len(indices)),
		Class:    argmax(counts),
	}

	if (dt.MaxDepth > 0 && depth >= dt.MaxDepth) ||
		len(indices) < dt.MinSamplesSplit ||
		len(indices) < 2*dt.MinSamplesLeaf ||
		node.Impurity <= 0 {

		node.IsLeaf = true
		return node
	}

	split, ok := dt.findBestSplit(X, y, indices)
	if !ok {
		node.IsLeaf = true
		return node
	}

	node.Feature = split.feature
	node.Threshold = split.threshold

	leftIndices, rightIndices := dt.splitData(X, indices, split.feature, split.threshold)
	if len(leftIndices) == 0 || len(rightIndices) == 0 {
		node.IsLeaf = true
		return node
	}

	n := float64(len(indices))
	decrease := n*node.Impurity -
		float64(len(leftIndices))*split.leftImpurity -
		float64(len(rightIndices))*split.rightImpurity
	if decrease < 0 {
		decrease = 0
	}
	node.ImpurityDecrease = decrease
	dt.importances[split.feature] += decrease

	node.Left = dt.buildTree(X, y, leftIndices, depth+1)
	node.Right = dt.buildTree(X, y, rightIndices, depth+1)

	return node
}

type treeSplit struct {
	feature       int
	threshold     float64
	leftImpurity  float64
	rightImpurity float64
}

func (dt *DecisionTree) findBestSplit(X [][]float64, y []int, indices []int) (treeSplit, bool) {
	var best treeSplit
	bestScore := 0.0
	found := false

	n := len(indices)
	nClasses := len(dt.Classes)
	totalCounts := dt.classCounts(y, indices)
	sorted := make([]int, n)
	leftCounts := make([]int, nClasses)
	rightCounts := make([]int, nClasses)

	for _, feature := range dt.featureOrder() {
		copy(sorted, indices)
		sort.SliceStable(sorted, func(a, b int) bool {
			return X[sorted[a]][feature] < X[sorted[b]][feature]
		})

		if X[sorted[n-1]][feature] <= X[sorted[0]][feature]+featureThreshold {
			continue
		}

		for c := range leftCounts {
			leftCounts[c] = 0
			rightCounts[c] = totalCounts[c]
		}

		for i := 1; i < n; i++ {
			moved := y[sorted[i-1]]
			leftCounts[moved]++
			rightCounts[moved]--

			if i < dt.MinSamplesLeaf || n-i < dt.MinSamplesLeaf {
				continue
			}

			prev := X[sorted[i-1]][feature]
			cur := X[sorted[i]][feature]
			if cur <= prev+featureThreshold {
				continue
			}

			leftImp := gini(leftCounts, i)
			rightImp := gini(rightCounts, n-i)
			score := float64(i)*leftImp + float64(n-i)*rightImp

			if !found || score < bestScore {
				threshold := prev/2 + cur/2
				if threshold >= cur || threshold < prev {
					threshold = prev
				}
				best = treeSplit{
					feature:       feature,
					threshold:     threshold,
					leftImpurity:  leftImp,
					rightImpurity: rightImp,
				}
				bestScore = score
				found = true
			}
		}
	}

	return best, found
}

func (dt *DecisionTree) featureOrder() []int {
	if dt.rng != nil {
		return dt.rng.Perm(dt.NFeatures)
	}
	order := make([]int, dt.NFeatures)
	for i := range order {
		order[i] = i
	}
	return order
}

func (dt *DecisionTree) normalizeImportances() {
	total := 0.0
	for _, v := range dt.importances {
		total += v
	}
	if total <= 0 {
		for i := range dt.importances {
			dt.importances[i] = 0
		}
		return
	}
	for i := range dt.importances {
		dt.importances[i] /= total
	}
}

// FeatureImportances returns the normalised Gini importance per feature.
// The values sum to 1, or are all zero when the tree is a single leaf.
func (dt *DecisionTree) FeatureImportances() []float64 {
	out := make([]float64, len(dt.importances))
	copy(out, dt.importances)
	return out
}

func (dt *DecisionTree) Predict(X [][]float64) []int {
	predictions := make([]int, len(X))

	for i, sample := range X {
		predictions[i] = dt.predictSample(sample, dt.Root)
	}

	return predictions
}

func (dt *DecisionTree) predictSample(sample []float64, node *TreeNode) int {
	for !node.IsLeaf {
		if sample[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return dt.Classes[node.Class]
}

func (dt *DecisionTree) GetClasses() []int {
	return dt.Classes
}

func (dt *DecisionTree) Reset() {
	dt.Root = nil
	dt.Classes = nil
	dt.classIndex = nil
	dt.importances = nil
}

// Depth returns the length of the longest root-to-leaf path.
func (dt *DecisionTree) Depth() int {
	return nodeDepth(dt.Root)
}

func nodeDepth(node *TreeNode) int {
	if node == nil || node.IsLeaf {
		return 0
	}
	l, r := nodeDepth(node.Left), nodeDepth(node.Right)
	if l > r {
		return l + 1
	}
	return r + 1
}

func (dt *DecisionTree) classCounts(y []int, indices []int) []int {
	counts := make([]int, len(dt.Classes))
	for _, idx := range indices {
		counts[y[idx]]++
	}
	return counts
}

func (dt *DecisionTree) splitData(X [][]float64, indices []int, feature int, threshold float64) ([]int, []int) {
	var leftIndices, rightIndices []int

	for _, idx := range indices {
		if X[idx][feature] <= threshold {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}

	return leftIndices, rightIndices
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0.0
	}

	impurity := 1.0
	total := float64(n)
	for _, count := range counts {
		p := float64(count) / total
		impurity -= p * p
	}

	return impurity
}

// argmax picks the most frequent class, lowest index on ties.
func argmax(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}
