package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	tf "github.com/galeone/tensorflow/tensorflow/go"
	logs "github.com/sirupsen/logrus"
)

// number of labels printed by single image and voting modes
const topNLabels = 10

// classifyImage runs inference over a single image file and prints
// top-10 (label, score) pairs sorted by descending score
func classifyImage(tfm *TFModel, fname string) error {
	tensor, err := readTensorFromImageFile(fname)
	if err != nil {
		return err
	}
	probs, err := tfm.Predict(tensor)
	if err != nil {
		return err
	}
	for _, l := range findBestLabels(tfm.Labels, probs, topNLabels) {
		fmt.Println(l.Label, l.Probability)
	}
	return nil
}

// classifyVote runs inference over all images in given folder, sums
// their output vectors elementwise and prints top-10 labels by summed
// score
func classifyVote(tfm *TFModel, folder string) error {
	var sum []float32
	files := listImages(folder)
	for _, fname := range files {
		tensor, err := readTensorFromImageFile(fname)
		if err != nil {
			return err
		}
		probs, err := tfm.Predict(tensor)
		if err != nil {
			return err
		}
		if sum, err = sumVectors(sum, probs); err != nil {
			return err
		}
	}
	if sum == nil {
		return fmt.Errorf("no images with extensions %v found in %s", imageExtensions, folder)
	}
	logs.WithFields(logs.Fields{"Folder": folder, "Images": len(files)}).Info("voting over folder")
	for _, l := range findBestLabels(tfm.Labels, sum, topNLabels) {
		fmt.Println(l.Label, l.Probability)
	}
	return nil
}

// evalTopK iterates numbered class folders under given root, folder
// name is the ground truth class index, runs inference per image and
// for each K computes fraction of images whose true class appears in
// the top-K predictions. Each fraction is printed and recorded as a
// scalar summary. One session is held open for the whole loop.
func evalTopK(tfm *TFModel, folder string) error {
	var session *tf.Session
	if tfm.Graph != nil {
		var err error
		session, err = tf.NewSession(tfm.Graph, _sessionOptions)
		if err != nil {
			return err
		}
		defer session.Close()
	}

	var results [][]float32
	var truth []int
	for i := 0; i < _config.Classes; i++ {
		files := listImages(filepath.Join(folder, strconv.Itoa(i)))
		for _, fname := range files {
			tensor, err := readTensorFromImageFile(fname)
			if err != nil {
				return err
			}
			var probs []float32
			if session != nil {
				probs, err = tfm.PredictWith(session, tensor)
			} else {
				probs, err = tfm.Predict(tensor)
			}
			if err != nil {
				return err
			}
			results = append(results, probs)
			truth = append(truth, i)
		}
	}
	if len(results) == 0 {
		return fmt.Errorf("no images found under %s", folder)
	}

	writer, err := newSummaryWriter(_config.SummariesDir, modelBase(_config.Graph))
	if err != nil {
		return err
	}
	defer writer.Close()

	ids := classIDs(tfm.Labels)
	for k := 1; k <= _config.Classes; k++ {
		accuracy := topKAccuracy(results, truth, ids, k)
		if err := writer.Add("Top_K", k, accuracy); err != nil {
			return err
		}
		fmt.Printf("top %d is %v%% correct from %d images\n", k, accuracy*100, len(results))
	}
	return nil
}
