package services

import (
	"fmt"
	"math"
	"math/rand"
)

// isolationForest is an ensemble outlier model built from randomized
// partition trees. Points that can be separated from the bulk in few random
// splits receive shorter average path lengths and therefore more anomalous
// scores. ScoreSamples returns values in (-1, 0); DecisionFunction subtracts
// the contamination-quantile offset so that negative values mark anomalies.
type isolationForest struct {
	trees         []*isoNode
	subsampleSize int
	contamination float64
	offset        float64
}

type isoNode struct {
	splitAttr int
	splitVal  float64
	left      *isoNode
	right     *isoNode
	size      int // external nodes only
}

const (
	isoForestTrees     = 100
	isoForestSubsample = 256
	isoForestSeed      = 42
)

// newIsolationForest 既定の木数・サブサンプルサイズでモデルを作る。
func newIsolationForest(contamination float64) *isolationForest {
	return &isolationForest{contamination: contamination}
}

// Fit trains the forest on the given feature matrix with a fixed random seed
// for reproducibility, then derives the decision offset from the
// contamination rate.
func (f *isolationForest) Fit(matrix [][]float64) error {
	n := len(matrix)
	if n == 0 {
		return fmt.Errorf("isolation forest: empty training set")
	}
	dims := len(matrix[0])
	for _, row := range matrix {
		if len(row) != dims {
			return fmt.Errorf("isolation forest: inconsistent feature dimensions")
		}
	}

	f.subsampleSize = isoForestSubsample
	if n < f.subsampleSize {
		f.subsampleSize = n
	}
	heightLimit := int(math.Ceil(math.Log2(float64(f.subsampleSize))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	rng := rand.New(rand.NewSource(isoForestSeed))
	f.trees = make([]*isoNode, 0, isoForestTrees)
	for t := 0; t < isoForestTrees; t++ {
		sample := make([][]float64, 0, f.subsampleSize)
		for _, idx := range rng.Perm(n)[:f.subsampleSize] {
			sample = append(sample, matrix[idx])
		}
		f.trees = append(f.trees, buildIsoTree(sample, 0, heightLimit, rng))
	}

	// 学習データのスコア分布から汚染率分位点をオフセットとして決定
	scores := f.ScoreSamples(matrix)
	f.offset = quantile(scores, f.contamination)
	return nil
}

// ScoreSamples returns the raw anomaly scores (higher is more normal).
func (f *isolationForest) ScoreSamples(matrix [][]float64) []float64 {
	scores := make([]float64, len(matrix))
	cNorm := averagePathLength(float64(f.subsampleSize))
	for i, row := range matrix {
		var total float64
		for _, tree := range f.trees {
			total += pathLength(row, tree, 0)
		}
		avgPath := total / float64(len(f.trees))
		scores[i] = -math.Pow(2, -avgPath/cNorm)
	}
	return scores
}

// DecisionFunction returns ScoreSamples shifted by the fitted offset.
// Negative values indicate anomalies.
func (f *isolationForest) DecisionFunction(matrix [][]float64) []float64 {
	scores := f.ScoreSamples(matrix)
	for i := range scores {
		scores[i] -= f.offset
	}
	return scores
}

// Predict returns -1 for anomalies and 1 for normal points.
func (f *isolationForest) Predict(matrix [][]float64) []int {
	decisions := f.DecisionFunction(matrix)
	labels := make([]int, len(decisions))
	for i, d := range decisions {
		if d < 0 {
			labels[i] = -1
		} else {
			labels[i] = 1
		}
	}
	return labels
}

// buildIsoTree 乱択の軸・分割値で再帰的に木を構築する。
func buildIsoTree(sample [][]float64, depth, heightLimit int, rng *rand.Rand) *isoNode {
	if depth >= heightLimit || len(sample) <= 1 {
		return &isoNode{splitAttr: -1, size: len(sample)}
	}

	dims := len(sample[0])
	// 値に幅のある特徴量だけが分割候補
	candidates := make([]int, 0, dims)
	for d := 0; d < dims; d++ {
		minVal, maxVal := sample[0][d], sample[0][d]
		for _, row := range sample[1:] {
			if row[d] < minVal {
				minVal = row[d]
			}
			if row[d] > maxVal {
				maxVal = row[d]
			}
		}
		if maxVal > minVal {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return &isoNode{splitAttr: -1, size: len(sample)}
	}

	attr := candidates[rng.Intn(len(candidates))]
	minVal, maxVal := sample[0][attr], sample[0][attr]
	for _, row := range sample[1:] {
		if row[attr] < minVal {
			minVal = row[attr]
		}
		if row[attr] > maxVal {
			maxVal = row[attr]
		}
	}
	splitVal := minVal + rng.Float64()*(maxVal-minVal)

	var left, right [][]float64
	for _, row := range sample {
		if row[attr] < splitVal {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &isoNode{
		splitAttr: attr,
		splitVal:  splitVal,
		left:      buildIsoTree(left, depth+1, heightLimit, rng),
		right:     buildIsoTree(right, depth+1, heightLimit, rng),
	}
}

// pathLength 1点の分離に要した深さ。外部ノードではノードサイズ分の補正を加える。
func pathLength(row []float64, node *isoNode, depth float64) float64 {
	if node.splitAttr < 0 {
		return depth + averagePathLength(float64(node.size))
	}
	if row[node.splitAttr] < node.splitVal {
		return pathLength(row, node.left, depth+1)
	}
	return pathLength(row, node.right, depth+1)
}

// averagePathLength c(n): BSTの平均不成功探索長。パス長の正規化に使う。
func averagePathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	const eulerGamma = 0.5772156649015329
	harmonic := math.Log(n-1) + eulerGamma
	return 2*harmonic - 2*(n-1)/n
}
