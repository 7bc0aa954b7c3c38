package main

import (
	"math/rand"
	"testing"
)

func TestFindBestLabels(t *testing.T) {
	labels := []string{"cat", "dog", "manta", "shark"}
	probs := []float32{0.1, 0.6, 0.25, 0.05}
	best := findBestLabels(labels, probs, 3)
	if len(best) != 3 {
		t.Fatalf("expected 3 labels, got %d", len(best))
	}
	if best[0].Label != "dog" || best[1].Label != "manta" || best[2].Label != "cat" {
		t.Errorf("wrong label order: %+v", best)
	}
	for i := 1; i < len(best); i++ {
		if best[i].Probability > best[i-1].Probability {
			t.Errorf("scores not sorted in non-increasing order: %+v", best)
		}
	}
}

func TestFindBestLabelsTopNTruncation(t *testing.T) {
	labels := []string{"a", "b"}
	probs := []float32{0.5, 0.5}
	best := findBestLabels(labels, probs, 10)
	if len(best) != 2 {
		t.Errorf("expected 2 labels, got %d", len(best))
	}
	// ties keep original index order
	if best[0].Index != 0 || best[1].Index != 1 {
		t.Errorf("tie not resolved by index order: %+v", best)
	}
}

func TestFindBestLabelsMismatch(t *testing.T) {
	// more scores than labels, extra entries get index names
	labels := []string{"a"}
	probs := []float32{0.1, 0.9}
	best := findBestLabels(labels, probs, 2)
	if best[0].Label != "1" {
		t.Errorf("expected index name for unlabeled class, got %s", best[0].Label)
	}
}

func TestSumVectors(t *testing.T) {
	vectors := [][]float32{
		{1, 2, 3},
		{4, 5, 6},
		{0.5, 0.25, 0.125},
	}
	var sum []float32
	var err error
	for _, v := range vectors {
		if sum, err = sumVectors(sum, v); err != nil {
			t.Fatal(err)
		}
	}
	// iteration order must not matter
	var rsum []float32
	for i := len(vectors) - 1; i >= 0; i-- {
		if rsum, err = sumVectors(rsum, vectors[i]); err != nil {
			t.Fatal(err)
		}
	}
	for i := range sum {
		if sum[i] != rsum[i] {
			t.Errorf("sum differs with iteration order: %v vs %v", sum, rsum)
		}
	}
	if sum[0] != 5.5 || sum[1] != 7.25 || sum[2] != 9.125 {
		t.Errorf("wrong elementwise sum: %v", sum)
	}
}

func TestSumVectorsMismatch(t *testing.T) {
	sum := []float32{1, 2}
	if _, err := sumVectors(sum, []float32{1, 2, 3}); err == nil {
		t.Error("expected error for vector length mismatch")
	}
}

func TestClassIDs(t *testing.T) {
	ids := classIDs([]string{"0", "42", "manta", "7"})
	expect := []int{0, 42, -1, 7}
	for i, id := range ids {
		if id != expect[i] {
			t.Errorf("classIDs[%d] = %d, expected %d", i, id, expect[i])
		}
	}
}

func TestTopKAccuracy(t *testing.T) {
	ids := classIDs([]string{"0", "1", "2"})
	results := [][]float32{
		{0.8, 0.1, 0.1}, // class 0, correct at k=1
		{0.3, 0.5, 0.2}, // class 2, correct at k=3
		{0.2, 0.7, 0.1}, // class 1, correct at k=1
	}
	truth := []int{0, 2, 1}
	if acc := topKAccuracy(results, truth, ids, 1); acc != 2.0/3.0 {
		t.Errorf("top-1 accuracy = %v, expected 2/3", acc)
	}
	if acc := topKAccuracy(results, truth, ids, 2); acc != 2.0/3.0 {
		t.Errorf("top-2 accuracy = %v, expected 2/3", acc)
	}
	// k covering all classes must yield 100% when every ground truth
	// class appears in the label file
	if acc := topKAccuracy(results, truth, ids, 3); acc != 1.0 {
		t.Errorf("top-3 accuracy = %v, expected 1", acc)
	}
}

func TestTopKAccuracyAllClasses(t *testing.T) {
	classes := 99
	ids := make([]int, classes)
	for i := range ids {
		ids[i] = i
	}
	rnd := rand.New(rand.NewSource(1))
	var results [][]float32
	var truth []int
	for n := 0; n < 50; n++ {
		probs := make([]float32, classes)
		for i := range probs {
			probs[i] = rnd.Float32()
		}
		results = append(results, probs)
		truth = append(truth, rnd.Intn(classes))
	}
	if acc := topKAccuracy(results, truth, ids, classes); acc != 1.0 {
		t.Errorf("top-%d accuracy = %v, expected 1", classes, acc)
	}
}

func TestTopKAccuracyEmpty(t *testing.T) {
	if acc := topKAccuracy(nil, nil, nil, 5); acc != 0 {
		t.Errorf("expected zero accuracy for empty results, got %v", acc)
	}
}
