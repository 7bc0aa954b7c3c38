package main

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"
)

func TestInList(t *testing.T) {
	list := []string{"a", "b", "c"}
	if !InList("b", list) {
		t.Error("expected b in list")
	}
	if InList("d", list) {
		t.Error("unexpected d in list")
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"one.jpg", "two.jpeg", "three.JPG", "notes.txt", "four.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	files := listImages(dir)
	if len(files) != 3 {
		t.Errorf("expected 3 images, got %d: %v", len(files), files)
	}
	for _, f := range files {
		if filepath.Ext(f) == ".txt" || filepath.Ext(f) == ".png" {
			t.Errorf("unexpected file picked up: %s", f)
		}
	}
}

func TestListImagesMissingFolder(t *testing.T) {
	files := listImages(filepath.Join(t.TempDir(), "no-such-dir"))
	if len(files) != 0 {
		t.Errorf("expected empty list for missing folder, got %v", files)
	}
}

func TestModelBase(t *testing.T) {
	cases := map[string]string{
		"/path/to/inception_v3_output_graph.pb": "inception_v3",
		"data/mobilenet.pb":                     "mobilenet",
		"model":                                 "model",
	}
	for input, want := range cases {
		if got := modelBase(input); got != want {
			t.Errorf("modelBase(%s) = %s, expected %s", input, got, want)
		}
	}
}

func TestLooksLikeSavedModel(t *testing.T) {
	dir := t.TempDir()
	if looksLikeSavedModel(dir) {
		t.Error("empty dir must not look like a SavedModel")
	}
	if err := os.WriteFile(filepath.Join(dir, "saved_model.pb"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !looksLikeSavedModel(dir) {
		t.Error("dir with saved_model.pb must look like a SavedModel")
	}
}

func TestUntar(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "bundle.tar")
	file, err := os.Create(fname)
	if err != nil {
		t.Fatal(err)
	}
	writer := tar.NewWriter(file)
	content := []byte("hello")
	hdr := &tar.Header{Name: "model/params.json", Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}
	if err := writer.WriteHeader(hdr); err != nil {
		t.Fatal(err)
	}
	if _, err := writer.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	file.Close()

	dtar := filepath.Join(dir, "out")
	if err := Untar(fname, dtar); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dtar, "model", "params.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("wrong content: %s", data)
	}
}

func TestUntarIllegalPath(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "evil.tar")
	file, err := os.Create(fname)
	if err != nil {
		t.Fatal(err)
	}
	writer := tar.NewWriter(file)
	content := []byte("evil")
	hdr := &tar.Header{Name: "../evil.txt", Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}
	if err := writer.WriteHeader(hdr); err != nil {
		t.Fatal(err)
	}
	if _, err := writer.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	file.Close()

	if err := Untar(fname, filepath.Join(dir, "out")); err == nil {
		t.Error("expected error for path escaping destination")
	}
}
