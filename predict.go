package main

import (
	"fmt"
	"sort"
	"strconv"
)

// Label is one predicted label with its score
type Label struct {
	Label       string  `json:"label"`
	Index       int     `json:"index"`
	Probability float32 `json:"probability"`
}

// ClassifyResult represents result of our image classification
type ClassifyResult struct {
	Filename string  `json:"filename"`
	Labels   []Label `json:"labels"`
}

// ByProbability implements sort.Interface for []Label based on
// the Probability field in descending order
type ByProbability []Label

func (a ByProbability) Len() int           { return len(a) }
func (a ByProbability) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ByProbability) Less(i, j int) bool { return a[i].Probability > a[j].Probability }

// findBestLabels picks topN labels with highest scores, ties are
// resolved by original index order which keeps output deterministic
func findBestLabels(labels []string, probs []float32, topN int) []Label {
	var resultLabels []Label
	for i, p := range probs {
		name := strconv.Itoa(i)
		if i < len(labels) {
			name = labels[i]
		}
		resultLabels = append(resultLabels, Label{Label: name, Index: i, Probability: p})
	}
	sort.Stable(ByProbability(resultLabels))
	if topN > len(resultLabels) {
		topN = len(resultLabels)
	}
	return resultLabels[:topN]
}

// sumVectors adds src vector into dst elementwise, dst is allocated
// on first use
func sumVectors(dst, src []float32) ([]float32, error) {
	if dst == nil {
		dst = make([]float32, len(src))
	}
	if len(dst) != len(src) {
		return dst, fmt.Errorf("vector length mismatch: %d vs %d", len(dst), len(src))
	}
	for i, v := range src {
		dst[i] += v
	}
	return dst, nil
}

// classIDs converts label strings into integer class ids, labels which
// do not parse as integers yield -1 and never match any ground truth
func classIDs(labels []string) []int {
	ids := make([]int, len(labels))
	for i, l := range labels {
		id, err := strconv.Atoi(l)
		if err != nil {
			id = -1
		}
		ids[i] = id
	}
	return ids
}

// topKAccuracy computes fraction of result vectors whose ground truth
// class appears within the k highest scoring labels
func topKAccuracy(results [][]float32, truth []int, ids []int, k int) float64 {
	if len(results) == 0 {
		return 0
	}
	prediction := 0
	for n, probs := range results {
		topK := findBestLabels(nil, probs, k)
		for _, l := range topK {
			if l.Index < len(ids) && ids[l.Index] == truth[n] {
				prediction += 1
				break
			}
		}
	}
	return float64(prediction) / float64(len(results))
}
