package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tf "github.com/galeone/tensorflow/tensorflow/go"
	tfpb "github.com/galeone/tensorflow/tensorflow/go/core/protobuf/for_core_protos_go_proto"
	tg "github.com/galeone/tfgo"
	"github.com/golang/protobuf/proto"
	jsoniter "github.com/json-iterator/go"
	logs "github.com/sirupsen/logrus"
)

// global session options, initialized from config proto file
var _sessionOptions *tf.SessionOptions

// TFParams represents meta-data of a TF model
type TFParams struct {
	Name        string `json:"name"`        // model name
	Model       string `json:"model"`       // model file name
	Labels      string `json:"labels"`      // labels file name
	InputNode   string `json:"inputNode"`   // TF input node name
	OutputNode  string `json:"outputNode"`  // TF output node name
	Description string `json:"description"` // model description
	TimeStamp   string `json:"timestamp"`   // timestamp of the model
}

// String returns string representation of TF model parameters
func (p *TFParams) String() string {
	return fmt.Sprintf("<TFParams name=%s model=%s labels=%s inputNode=%s outputNode=%s ts=%s>", p.Name, p.Model, p.Labels, p.InputNode, p.OutputNode, p.TimeStamp)
}

// TFModel holds a loaded TF model, either a frozen graph or a SavedModel
type TFModel struct {
	Graph  *tf.Graph // frozen graph, nil when model is a SavedModel
	Saved  *tg.Model // SavedModel, nil when model is a frozen graph
	Labels []string  // ordered labels, index is the class ID
	Params TFParams  // model parameters
}

// loadModel loads TF model from fname (a frozen graph file or a SavedModel
// directory) together with its labels file
func loadModel(fname, flabels string, params TFParams) (tfm *TFModel, err error) {
	// tfgo panics on a malformed SavedModel, convert it back to an error
	defer func() {
		if r := recover(); r != nil {
			tfm, err = nil, fmt.Errorf("unable to load SavedModel %s: %v", fname, r)
		}
	}()
	tfm = &TFModel{Params: params}
	if looksLikeSavedModel(fname) {
		tfm.Saved = tg.LoadModel(fname, []string{"serve"}, _sessionOptions)
	} else {
		model, err := os.ReadFile(fname)
		if err != nil {
			return nil, err
		}
		graph := tf.NewGraph()
		if err := graph.Import(model, ""); err != nil {
			return nil, fmt.Errorf("unable to import graph model %s: %v", fname, err)
		}
		tfm.Graph = graph
	}
	labels, err := loadLabels(flabels)
	if err != nil {
		return nil, err
	}
	tfm.Labels = labels
	logs.WithFields(logs.Fields{
		"Model":  fname,
		"Labels": flabels,
	}).Info("loaded TF model")
	return tfm, nil
}

// loadLabels reads newline separated labels from given file,
// trailing whitespace is stripped, line index is the class ID
func loadLabels(flabels string) ([]string, error) {
	var labels []string
	file, err := os.Open(flabels)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		labels = append(labels, strings.TrimRight(scanner.Text(), " \t\r\n"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}

// Predict runs inference over given tensor, a new session is created
// and teared down per call
func (m *TFModel) Predict(tensor *tf.Tensor) ([]float32, error) {
	if m.Saved != nil {
		return m.predictSaved(tensor)
	}
	session, err := tf.NewSession(m.Graph, _sessionOptions)
	if err != nil {
		return nil, err
	}
	defer session.Close()
	return m.PredictWith(session, tensor)
}

// PredictWith runs inference over given tensor re-using an open session,
// used by the top-k evaluation loop which holds one session open
func (m *TFModel) PredictWith(session *tf.Session, tensor *tf.Tensor) ([]float32, error) {
	if VERBOSE > 1 {
		devices, err := session.ListDevices()
		if err == nil {
			logs.Info("devices ", devices)
		} else {
			logs.Info("node availability ", err)
		}
	}
	output, err := session.Run(
		map[tf.Output]*tf.Tensor{
			m.Graph.Operation(m.Params.InputNode).Output(0): tensor,
		},
		[]tf.Output{
			m.Graph.Operation(m.Params.OutputNode).Output(0),
		},
		nil)
	if err != nil {
		return nil, err
	}
	probs := output[0].Value().([][]float32)[0]
	m.checkLabels(probs)
	return probs, nil
}

// helper function to run inference over a SavedModel, tfgo panics
// internally so we convert it back to an error
func (m *TFModel) predictSaved(tensor *tf.Tensor) (probs []float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("SavedModel inference failed: %v", r)
		}
	}()
	results := m.Saved.Exec([]tf.Output{
		m.Saved.Op(m.Params.OutputNode, 0),
	}, map[tf.Output]*tf.Tensor{
		m.Saved.Op(m.Params.InputNode, 0): tensor,
	})
	probs = results[0].Value().([][]float32)[0]
	m.checkLabels(probs)
	return probs, nil
}

// helper function to flag label list and output vector length mismatch
func (m *TFModel) checkLabels(probs []float32) {
	if len(m.Labels) != len(probs) {
		logs.WithFields(logs.Fields{
			"Labels": len(m.Labels),
			"Probs":  len(probs),
		}).Warn("label list and output vector lengths differ")
	}
}

// readConfigProto reads TF config proto file and yields session options.
// The file holds a serialized ConfigProto message which is passed as-is
// to every new session.
func readConfigProto(fname string) *tf.SessionOptions {
	session := tf.SessionOptions{}
	if fname != "" {
		body, err := os.ReadFile(fname)
		if err != nil {
			logs.WithFields(logs.Fields{"File": fname, "Error": err}).Error("unable to read config proto file")
			return &session
		}
		cfg := &tfpb.ConfigProto{}
		if err := proto.Unmarshal(body, cfg); err != nil {
			logs.WithFields(logs.Fields{"File": fname, "Error": err}).Error("config proto file is not a valid ConfigProto")
			return &session
		}
		if VERBOSE > 0 {
			logs.WithFields(logs.Fields{"Config": cfg.String()}).Info("TF session config")
		}
		session = tf.SessionOptions{Config: body}
	}
	return &session
}

// TFCacheEntry represents a cached TF model with its access time
type TFCacheEntry struct {
	Model *TFModel
	Atime time.Time
}

// TFCache keeps loaded TF models in memory up to a given limit,
// least recently used models are evicted first
type TFCache struct {
	Models map[string]TFCacheEntry
	Limit  int
}

// global cache of TF models used by the server
var _cache TFCache

// get returns cached TF model for given name, loading it from the
// model directory when necessary
func (c *TFCache) get(name string) (*TFModel, error) {
	if entry, ok := c.Models[name]; ok {
		entry.Atime = time.Now()
		c.Models[name] = entry
		return entry.Model, nil
	}
	params, err := readParams(name)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(_config.ModelDir, name)
	tfm, err := loadModel(filepath.Join(path, params.Model), filepath.Join(path, params.Labels), params)
	if err != nil {
		return nil, err
	}
	if len(c.Models) >= c.Limit && c.Limit > 0 {
		c.evict()
	}
	c.Models[name] = TFCacheEntry{Model: tfm, Atime: time.Now()}
	return tfm, nil
}

// remove drops given model from the cache
func (c *TFCache) remove(name string) {
	delete(c.Models, name)
}

// evict removes least recently used model from the cache
func (c *TFCache) evict() {
	var oldest string
	for name, entry := range c.Models {
		if oldest == "" || entry.Atime.Before(c.Models[oldest].Atime) {
			oldest = name
		}
	}
	if oldest != "" {
		logs.WithFields(logs.Fields{"Model": oldest}).Info("evict model from cache")
		delete(c.Models, oldest)
	}
}

// readParams reads params.json of given model from the model directory
func readParams(name string) (TFParams, error) {
	var params TFParams
	fname := filepath.Join(_config.ModelDir, name, "params.json")
	data, err := os.ReadFile(fname)
	if err != nil {
		return params, fmt.Errorf("unable to read %s: %v", fname, err)
	}
	if err := jsoniter.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("unable to parse %s: %v", fname, err)
	}
	return params, nil
}

// TFModels returns parameters of all models known to the server
func TFModels() ([]TFParams, error) {
	var models []TFParams
	entries, err := os.ReadDir(_config.ModelDir)
	if err != nil {
		return models, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		params, err := readParams(entry.Name())
		if err != nil {
			logs.WithFields(logs.Fields{"Model": entry.Name(), "Error": err}).Warn("skip model without params.json")
			continue
		}
		models = append(models, params)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}
