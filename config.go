package main

import "fmt"

// Configuration stores labelimg configuration parameters
type Configuration struct {
	Graph         string  `json:"graph"`         // model file (frozen graph) or SavedModel dir
	Labels        string  `json:"labels"`        // labels file, one label per line
	InputHeight   int     `json:"inputHeight"`   // input image height
	InputWidth    int     `json:"inputWidth"`    // input image width
	InputMean     float64 `json:"inputMean"`     // normalization mean
	InputStd      float64 `json:"inputStd"`      // normalization std
	InputLayer    string  `json:"inputLayer"`    // TF input node name to use
	OutputLayer   string  `json:"outputLayer"`   // TF output node name to use
	Classes       int     `json:"classes"`       // number of class folders in top-k evaluation
	SummariesDir  string  `json:"summariesDir"`  // where to write top-k scalar summaries
	ConfigProto   string  `json:"configProto"`   // TF config proto file to use
	Port          int     `json:"port"`          // server port number
	Base          string  `json:"base"`          // server base path
	ModelDir      string  `json:"modelDir"`      // location of server model directory
	CacheLimit    int     `json:"cacheLimit"`    // number of TF models to keep in server cache
	LimiterPeriod string  `json:"limiterPeriod"` // server rate limit period, e.g. 100-S
	LogFile       string  `json:"logFile"`       // server log file
	PrintJSONLogs bool    `json:"printJsonLogs"` // print server log records as JSON
	Verbose       int     `json:"verbose"`       // verbosity level
	ServerKey     string  `json:"serverKey"`     // server key for https
	ServerCrt     string  `json:"serverCrt"`     // server certificate for https
}

// String returns string representation of labelimg configuration
func (c *Configuration) String() string {
	return fmt.Sprintf("<Config graph=%s labels=%s h=%d w=%d mean=%v std=%v inputLayer=%s outputLayer=%s classes=%d summaries=%s configProto=%s port=%d modelDir=%s verbose=%d log=%s crt=%s key=%s>", c.Graph, c.Labels, c.InputHeight, c.InputWidth, c.InputMean, c.InputStd, c.InputLayer, c.OutputLayer, c.Classes, c.SummariesDir, c.ConfigProto, c.Port, c.ModelDir, c.Verbose, c.LogFile, c.ServerCrt, c.ServerKey)
}

// Params returns string representation of inference parameters
func (c *Configuration) Params() string {
	return fmt.Sprintf("<Params graph=%s labels=%s inputLayer=%s outputLayer=%s configProto=%s verbose=%d>", c.Graph, c.Labels, c.InputLayer, c.OutputLayer, c.ConfigProto, c.Verbose)
}
