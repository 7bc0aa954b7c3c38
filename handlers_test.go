package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
)

func TestResponseJSON(t *testing.T) {
	w := httptest.NewRecorder()
	responseJSON(w, map[string]int{"answer": 42})
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("wrong content type: %s", ct)
	}
	var data map[string]int
	if err := jsoniter.Unmarshal(w.Body.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	if data["answer"] != 42 {
		t.Errorf("wrong payload: %v", data)
	}
}

func TestResponseError(t *testing.T) {
	w := httptest.NewRecorder()
	responseError(w, "bad input", nil, http.StatusBadRequest)
	if w.Code != http.StatusBadRequest {
		t.Errorf("wrong status: %d", w.Code)
	}
	var data map[string]string
	if err := jsoniter.Unmarshal(w.Body.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	if data["error"] != "bad input" {
		t.Errorf("wrong error message: %v", data)
	}
}

func TestModelsHandler(t *testing.T) {
	dir := t.TempDir()
	defer func() { _config = Configuration{} }()
	_config.ModelDir = dir
	if err := os.MkdirAll(filepath.Join(dir, "mantas"), 0755); err != nil {
		t.Fatal(err)
	}
	content := `{"name": "mantas", "model": "graph.pb", "labels": "labels.txt"}`
	if err := os.WriteFile(filepath.Join(dir, "mantas", "params.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/models", nil)
	w := httptest.NewRecorder()
	ModelsHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("wrong status: %d", w.Code)
	}
	var models []TFParams
	if err := jsoniter.Unmarshal(w.Body.Bytes(), &models); err != nil {
		t.Fatal(err)
	}
	if len(models) != 1 || models[0].Name != "mantas" {
		t.Errorf("wrong models: %+v", models)
	}
}

func TestParamsHandler(t *testing.T) {
	defer func() { _params = TFParams{} }()
	payload := `{"name": "mantas", "model": "graph.pb", "labels": "labels.txt", "inputNode": "input", "outputNode": "output"}`
	req := httptest.NewRequest("POST", "/params", strings.NewReader(payload))
	w := httptest.NewRecorder()
	ParamsHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("wrong status: %d", w.Code)
	}
	if _params.Name != "mantas" {
		t.Errorf("params not updated: %+v", _params)
	}

	req = httptest.NewRequest("GET", "/params", nil)
	w = httptest.NewRecorder()
	ParamsHandler(w, req)
	var params TFParams
	if err := jsoniter.Unmarshal(w.Body.Bytes(), &params); err != nil {
		t.Fatal(err)
	}
	if params.Name != "mantas" || params.OutputNode != "output" {
		t.Errorf("wrong params: %+v", params)
	}
}

func TestDataHandler(t *testing.T) {
	dir := t.TempDir()
	defer func() { _config = Configuration{} }()
	_config.ModelDir = dir
	if err := os.WriteFile(filepath.Join(dir, "graph.pb"), []byte("model-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/data?model=graph.pb", nil)
	w := httptest.NewRecorder()
	DataHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("wrong status: %d", w.Code)
	}
	if w.Body.String() != "model-bytes" {
		t.Errorf("wrong content: %s", w.Body.String())
	}

	// missing model argument
	req = httptest.NewRequest("GET", "/data", nil)
	w = httptest.NewRecorder()
	DataHandler(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("wrong status for missing model: %d", w.Code)
	}

	// unknown model file
	req = httptest.NewRequest("GET", "/data?model=nope.pb", nil)
	w = httptest.NewRecorder()
	DataHandler(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("wrong status for unknown model: %d", w.Code)
	}
}

func TestDeleteHandler(t *testing.T) {
	dir := t.TempDir()
	defer func() { _config = Configuration{} }()
	_config.ModelDir = dir
	_cache = TFCache{Models: make(map[string]TFCacheEntry), Limit: 10}
	if err := os.MkdirAll(filepath.Join(dir, "mantas"), 0755); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("DELETE", "/delete?model=mantas", nil)
	w := httptest.NewRecorder()
	DeleteHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("wrong status: %d", w.Code)
	}
	if fileExists(filepath.Join(dir, "mantas")) {
		t.Error("model dir not removed")
	}

	// wrong method
	req = httptest.NewRequest("GET", "/delete?model=mantas", nil)
	w = httptest.NewRecorder()
	DeleteHandler(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong status for GET: %d", w.Code)
	}
}

func TestStatusHandler(t *testing.T) {
	_cache = TFCache{Models: make(map[string]TFCacheEntry), Limit: 10}
	req := httptest.NewRequest("GET", "/status", nil)
	w := httptest.NewRecorder()
	StatusHandler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("wrong status: %d", w.Code)
	}
	var data map[string]interface{}
	if err := jsoniter.Unmarshal(w.Body.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"NGo", "Memory", "Uptime", "getRequests"} {
		if _, ok := data[key]; !ok {
			t.Errorf("status response misses %s", key)
		}
	}
}
