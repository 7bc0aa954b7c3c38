package main

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	tf "github.com/galeone/tensorflow/tensorflow/go"
	jsoniter "github.com/json-iterator/go"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"
)

// TotalGetRequests counts total number of GET requests received by the server
var TotalGetRequests uint64

// TotalPostRequests counts total number of POST requests received by the server
var TotalPostRequests uint64

// TotalDeleteRequests counts total number of DELETE requests received by the server
var TotalDeleteRequests uint64

// current default model parameters used by predict APIs
var _params TFParams

// Row represents input for the predict APIs
type Row struct {
	Keys   []string  `json:"keys"`
	Values []float32 `json:"values"`
	Model  string    `json:"model"`
}

// Memory contains details about memory information
type Memory struct {
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"usedPercent"`
}

// Mem keeps memory information
type Mem struct {
	Virtual Memory
	Swap    Memory
}

// helper function to provide response
func responseError(w http.ResponseWriter, msg string, err error, code int) {
	log.Println("ERROR", msg, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	jsoniter.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// helper function to provide response in JSON data format
func responseJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	jsoniter.NewEncoder(w).Encode(data)
}

// helper function to generate predictions for given input record
func makePredictions(recs *Row) ([]float32, error) {
	name := recs.Model
	if name == "" {
		name = _params.Name
	}
	if name == "" {
		return nil, fmt.Errorf("no model name given and no default model set")
	}
	tfm, err := _cache.get(name)
	if err != nil {
		return nil, err
	}
	tensor, err := tf.NewTensor([][]float32{recs.Values})
	if err != nil {
		return nil, err
	}
	return tfm.Predict(tensor)
}

//
// HTTP handlers, GET methods
//

// DataHandler serves model files from the model directory
func DataHandler(w http.ResponseWriter, r *http.Request) {
	args := r.URL.Query()
	if files, ok := args["model"]; ok {
		fname := filepath.Join(_config.ModelDir, filepath.Clean("/"+files[0]))
		if _, err := os.Stat(fname); !os.IsNotExist(err) {
			var fin *os.File
			fin, err := os.Open(fname)
			if err != nil {
				responseError(w, fmt.Sprintf("unable to open file: %s", fname), err, http.StatusInternalServerError)
				return
			}
			// we don't need to WriteHeader here since it is handled by http.ServeContent
			http.ServeContent(w, r, fname, time.Now(), fin)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusBadRequest)
}

// ImageHandler sends prediction for uploaded image from TF ML model
func ImageHandler(w http.ResponseWriter, r *http.Request) {
	if !(r.Method == "POST") {
		responseError(w, fmt.Sprintf("wrong HTTP method: %v", r.Method), nil, http.StatusMethodNotAllowed)
		return
	}
	model := r.FormValue("model")
	if model == "" {
		model = _params.Name
	}
	if model == "" {
		responseError(w, "no model name given and no default model set", nil, http.StatusBadRequest)
		return
	}
	tfm, err := _cache.get(model)
	if err != nil {
		responseError(w, "unable to get image model from the cache", err, http.StatusInternalServerError)
		return
	}

	// Read image
	imageFile, header, err := r.FormFile("image")
	if err != nil {
		responseError(w, "unable to read image", err, http.StatusInternalServerError)
		return
	}
	defer imageFile.Close()
	fileName := header.Filename
	var imageBuffer bytes.Buffer
	io.Copy(&imageBuffer, imageFile)

	// Make tensor
	tensor, err := makeTensorFromImage(&imageBuffer, fileName, _config.InputHeight, _config.InputWidth, float32(_config.InputMean), float32(_config.InputStd))
	if err != nil {
		responseError(w, "Invalid image", err, http.StatusBadRequest)
		return
	}

	// Run inference
	probs, err := tfm.Predict(tensor)
	if err != nil {
		responseError(w, "Could not run inference", err, http.StatusInternalServerError)
		return
	}

	// make prediction response
	topN := topNLabels
	if len(tfm.Labels) < topN {
		topN = len(tfm.Labels)
	}
	responseJSON(w, ClassifyResult{
		Filename: fileName,
		Labels:   findBestLabels(tfm.Labels, probs, topN),
	})
}

// PredictHandler sends prediction from TF ML model for raw input vector
func PredictHandler(w http.ResponseWriter, r *http.Request) {
	if !(r.Method == "POST") {
		responseError(w, fmt.Sprintf("wrong HTTP method: %v", r.Method), nil, http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		responseError(w, "unable to read incoming data", err, http.StatusInternalServerError)
		return
	}
	// unmarshal incoming JSON message into Row data structure
	recs := &Row{}
	if err := jsoniter.Unmarshal(body, recs); err != nil {
		responseError(w, "unable to unmarshal Row", err, http.StatusInternalServerError)
		return
	}
	if VERBOSE > 0 {
		log.Println("received", recs)
	}

	// generate predictions
	probs, err := makePredictions(recs)
	if err != nil {
		responseError(w, "PredictHandler: unable to make predictions", err, http.StatusInternalServerError)
		return
	}
	responseJSON(w, probs)
}

// POST methods

// GzipReader struct to handle GZip'ed content of HTTP requests
type GzipReader struct {
	*gzip.Reader
	io.Closer
}

// helper function to close gzip reader
func (gz GzipReader) Close() error {
	return gz.Closer.Close()
}

// UploadHandler uploads TF models into the server
func UploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.FormValue("model") == "model" {
		// we received request for upload via form values
		UploadFormHandler(w, r)
		return
	}
	UploadBundleHandler(w, r)
}

// UploadBundleHandler uploads TF model bundles into the server
func UploadBundleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		msg := "wrong HTTP method"
		responseError(w, msg, nil, http.StatusMethodNotAllowed)
		return
	}
	var err error
	var bundle []byte
	defer r.Body.Close()
	if r.Header.Get("Content-Encoding") == "gzip" {
		r.Header.Del("Content-Length")
		reader, gerr := gzip.NewReader(r.Body)
		if gerr != nil {
			msg := "unable to get gzip reader"
			responseError(w, msg, gerr, http.StatusInternalServerError)
			return
		}
		body := GzipReader{reader, r.Body}
		bundle, err = io.ReadAll(body)
	} else {
		bundle, err = io.ReadAll(r.Body)
	}
	if err != nil {
		msg := "unable to read body"
		responseError(w, msg, err, http.StatusInternalServerError)
		return
	}
	fname := fmt.Sprintf("%s/bundle.tar", os.TempDir())
	defer os.Remove(fname)
	err = os.WriteFile(fname, bundle, 0600)
	if err != nil {
		msg := fmt.Sprintf("unable to write %s", fname)
		responseError(w, msg, err, http.StatusInternalServerError)
		return
	}
	err = Untar(fname, _config.ModelDir)
	if err != nil {
		msg := fmt.Sprintf("unable to untar %s", fname)
		responseError(w, msg, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// UploadFormHandler uploads TF models into the server via form key-value pairs
func UploadFormHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		msg := "wrong HTTP method"
		responseError(w, msg, nil, http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	if VERBOSE > 0 {
		log.Println("UploadHandler", r.Header)
	}
	ctype := r.Header.Get("Content-Encoding")
	var mkey, path string
	var params TFParams
	for _, name := range []string{"name", "params", "model", "labels"} {
		emsg := fmt.Sprintf("request does not provide %s", name)
		if name == "name" {
			mkey = r.FormValue(name)
			if mkey == "" {
				responseError(w, emsg, nil, http.StatusBadRequest)
				return
			}
			path = filepath.Join(_config.ModelDir, mkey)
			// create requested area for TF model
			err := os.MkdirAll(path, 0744)
			if err != nil {
				msg := fmt.Sprintf("unable to create %s", path)
				responseError(w, msg, err, http.StatusInternalServerError)
				return
			}
			continue
		}
		// read other parameters which represent files
		modelFile, header, err := r.FormFile(name)
		if err != nil {
			responseError(w, emsg, err, http.StatusBadRequest)
			return
		}
		defer modelFile.Close()

		// prepare file name to write to
		arr := strings.Split(header.Filename, "/")
		fname := arr[len(arr)-1]
		if name == "params" && fname != "params.json" {
			fname = "params.json"
			log.Println("file", header.Filename, "store as", fname)
		}
		fileName := filepath.Join(path, fname)

		// read data from request and write it out to our local file
		data, err := io.ReadAll(modelFile)
		if err != nil {
			responseError(w, "unable to read model file", err, http.StatusInternalServerError)
			return
		}

		// read TF parameters
		if name == "params" {
			err = jsoniter.Unmarshal(data, &params)
			if err != nil {
				responseError(w, "unable to unmarshal TF parameters", err, http.StatusInternalServerError)
				return
			}
			if params.TimeStamp == "" {
				params.TimeStamp = time.Now().String()
			}
			if mkey != params.Name {
				msg := fmt.Sprintf("mismatch of mkey=%s and TFParams.Name=%s", mkey, params.Name)
				responseError(w, msg, err, http.StatusBadRequest)
				return
			}
			log.Println("TF model parameters", params.String())
		}

		if ctype == "base64" && name == "model" {
			var newData []byte
			newData, err = base64.StdEncoding.DecodeString(string(data))
			if err != nil {
				responseError(w, "unable to decode input data", err, http.StatusInternalServerError)
				return
			}
			err = os.WriteFile(fileName, newData, 0644)
			if err != nil {
				responseError(w, "unable to write file", err, http.StatusInternalServerError)
				return
			}

		} else {
			// write out content to our store
			err = os.WriteFile(fileName, data, 0644)
			if err != nil {
				responseError(w, "unable to write file", err, http.StatusInternalServerError)
				return
			}
		}
		log.Println("Uploaded", fileName)
	}
	// drop stale cache entry and set current parameters set
	_cache.remove(mkey)
	_params = params
	w.WriteHeader(http.StatusOK)
}

// ParamsHandler gets or sets current default model parameters
func ParamsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		responseJSON(w, _params)
		return
	}
	defer r.Body.Close()
	var params TFParams
	err := jsoniter.NewDecoder(r.Body).Decode(&params)
	if err != nil {
		msg := "unable to decode parameters"
		responseError(w, msg, err, http.StatusBadRequest)
		return
	}
	log.Println("update TF parameters", params.String())
	// set current parameters set
	_params = params
	w.WriteHeader(http.StatusOK)
}

// ModelsHandler returns a list of known models
func ModelsHandler(w http.ResponseWriter, r *http.Request) {
	models, err := TFModels()
	if err != nil {
		responseError(w, "unable to get TF models", err, http.StatusInternalServerError)
		return
	}
	responseJSON(w, models)
}

// DefaultHandler provides basic information about the server
func DefaultHandler(w http.ResponseWriter, r *http.Request) {
	models, _ := TFModels()
	info := map[string]interface{}{
		"server":   "labelimg",
		"modelDir": _config.ModelDir,
		"models":   models,
		"params":   _params,
	}
	responseJSON(w, info)
}

// StatusHandler handles Status requests
func StatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		msg := "wrong HTTP method"
		responseError(w, msg, nil, http.StatusMethodNotAllowed)
		return
	}
	// get cpu and mem profiles
	m, _ := mem.VirtualMemory()
	s, _ := mem.SwapMemory()
	l, _ := load.Avg()
	c, _ := cpu.Percent(time.Millisecond, true)

	tmplData := make(map[string]interface{})
	tmplData["NGo"] = runtime.NumGoroutine()
	virt := Memory{Total: m.Total, Free: m.Free, Used: m.Used, UsedPercent: m.UsedPercent}
	swap := Memory{Total: s.Total, Free: s.Free, Used: s.Used, UsedPercent: s.UsedPercent}
	tmplData["Memory"] = Mem{Virtual: virt, Swap: swap}
	tmplData["Load"] = l
	tmplData["CPU"] = c
	tmplData["Uptime"] = time.Since(Time0).Seconds()
	tmplData["getRequests"] = TotalGetRequests
	tmplData["postRequests"] = TotalPostRequests
	tmplData["deleteRequests"] = TotalDeleteRequests
	tmplData["cachedModels"] = len(_cache.Models)
	responseJSON(w, tmplData)
}

// DELETE APIs

// DeleteHandler removes given model from the server
func DeleteHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "DELETE" {
		msg := "wrong HTTP method"
		responseError(w, msg, nil, http.StatusMethodNotAllowed)
		return
	}
	model := r.FormValue("model")
	files, err := os.ReadDir(_config.ModelDir)
	if err != nil {
		responseError(w, fmt.Sprintf("unable to read: %s", _config.ModelDir), err, http.StatusInternalServerError)
		return
	}
	for _, f := range files {
		if f.Name() == model {
			path := filepath.Join(_config.ModelDir, f.Name())
			err = os.RemoveAll(path)
			if err != nil {
				responseError(w, fmt.Sprintf("unable to remove: %s", path), err, http.StatusInternalServerError)
				return
			}
		}
	}
	_cache.remove(model)
	w.WriteHeader(http.StatusOK)
}
