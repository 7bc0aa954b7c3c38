package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// ScalarSummary is one scalar data point written to the summaries dir,
// consumable by external plotting tooling
type ScalarSummary struct {
	Tag      string  `json:"tag"`
	Step     int     `json:"step"`
	Value    float64 `json:"value"`
	WallTime int64   `json:"wallTime"`
}

// SummaryWriter appends scalar summaries to a newline separated JSON
// file under <dir>/<model>_top_k/
type SummaryWriter struct {
	file *os.File
}

// newSummaryWriter creates the summary directory for given model and
// opens the events file for appending
func newSummaryWriter(dir, model string) (*SummaryWriter, error) {
	sdir := filepath.Join(dir, fmt.Sprintf("%s_top_k", model))
	if err := os.MkdirAll(sdir, 0755); err != nil {
		return nil, err
	}
	fname := filepath.Join(sdir, fmt.Sprintf("events.%d.json", time.Now().Unix()))
	file, err := os.OpenFile(fname, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &SummaryWriter{file: file}, nil
}

// Add writes one scalar summary record and flushes it out
func (w *SummaryWriter) Add(tag string, step int, value float64) error {
	rec := ScalarSummary{Tag: tag, Step: step, Value: value, WallTime: time.Now().UnixMilli()}
	data, err := jsoniter.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := w.file.Write(append(data, '\n')); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close closes underlying events file
func (w *SummaryWriter) Close() error {
	return w.file.Close()
}
