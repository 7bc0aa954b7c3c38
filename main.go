package main

import (
	"flag"

	logs "github.com/sirupsen/logrus"
)

// VERBOSE controls verbosity of the tool
var VERBOSE int

// global configuration
var _config Configuration

func main() {
	var config string
	flag.StringVar(&config, "config", "", "configuration file")
	var image string
	flag.StringVar(&image, "image", "data/grace_hopper.jpg", "image to be processed")
	var vote string
	flag.StringVar(&vote, "vote", "", "vote over all images in given folder")
	var topKGraph string
	flag.StringVar(&topKGraph, "top_k_graph", "", "produce top-k accuracy graph over numbered class folders under given root")
	var serve bool
	flag.BoolVar(&serve, "serve", false, "start HTTP server")
	var graph string
	flag.StringVar(&graph, "graph", "data/inception_v3_2016_08_28_frozen.pb", "graph/model to be executed")
	var labels string
	flag.StringVar(&labels, "labels", "data/imagenet_slim_labels.txt", "name of file containing labels")
	var inputHeight int
	flag.IntVar(&inputHeight, "input_height", 299, "input height")
	var inputWidth int
	flag.IntVar(&inputWidth, "input_width", 299, "input width")
	var inputMean float64
	flag.Float64Var(&inputMean, "input_mean", 0, "input mean")
	var inputStd float64
	flag.Float64Var(&inputStd, "input_std", 255, "input std")
	var inputLayer string
	flag.StringVar(&inputLayer, "input_layer", "input", "name of input layer")
	var outputLayer string
	flag.StringVar(&outputLayer, "output_layer", "InceptionV3/Predictions/Reshape_1", "name of output layer")
	var classes int
	flag.IntVar(&classes, "classes", 99, "number of class folders in top-k evaluation")
	var summariesDir string
	flag.StringVar(&summariesDir, "summaries_dir", "retrain_logs", "where to save summary logs")
	var verbose int
	flag.IntVar(&verbose, "verbose", 0, "verbosity level")
	flag.Parse()

	if config != "" {
		if err := parseConfig(config); err != nil {
			logs.WithFields(logs.Fields{
				"Error": err,
			}).Fatal("Unable to parse config")
		}
	}

	// command line flags take precedence over the configuration file,
	// unset config values fall back to flag defaults
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	if setFlags["graph"] || _config.Graph == "" {
		_config.Graph = graph
	}
	if setFlags["labels"] || _config.Labels == "" {
		_config.Labels = labels
	}
	if setFlags["input_height"] || _config.InputHeight == 0 {
		_config.InputHeight = inputHeight
	}
	if setFlags["input_width"] || _config.InputWidth == 0 {
		_config.InputWidth = inputWidth
	}
	if setFlags["input_mean"] {
		_config.InputMean = inputMean
	}
	if setFlags["input_std"] || _config.InputStd == 0 {
		_config.InputStd = inputStd
	}
	if setFlags["input_layer"] || _config.InputLayer == "" {
		_config.InputLayer = inputLayer
	}
	if setFlags["output_layer"] || _config.OutputLayer == "" {
		_config.OutputLayer = outputLayer
	}
	if setFlags["classes"] || _config.Classes == 0 {
		_config.Classes = classes
	}
	if setFlags["summaries_dir"] || _config.SummariesDir == "" {
		_config.SummariesDir = summariesDir
	}
	if setFlags["verbose"] || _config.Verbose == 0 {
		_config.Verbose = verbose
	}
	VERBOSE = _config.Verbose

	// create session options from given config TF proto file
	_sessionOptions = readConfigProto(_config.ConfigProto)

	if serve {
		server()
		return
	}

	params := TFParams{
		Name:       modelBase(_config.Graph),
		Model:      _config.Graph,
		Labels:     _config.Labels,
		InputNode:  _config.InputLayer,
		OutputNode: _config.OutputLayer,
	}
	tfm, err := loadModel(_config.Graph, _config.Labels, params)
	if err != nil {
		logs.WithFields(logs.Fields{
			"Error":  err,
			"Model":  _config.Graph,
			"Labels": _config.Labels,
		}).Fatal("unable to open TF model")
	}

	switch {
	case topKGraph != "":
		err = evalTopK(tfm, topKGraph)
	case vote != "":
		err = classifyVote(tfm, vote)
	default:
		err = classifyImage(tfm, image)
	}
	if err != nil {
		logs.WithFields(logs.Fields{
			"Error": err,
		}).Fatal("classification failed")
	}
}
