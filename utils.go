package main

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	logs "github.com/sirupsen/logrus"
)

// imageExtensions lists file extensions picked up when scanning image folders
var imageExtensions = []string{"jpg", "jpeg", "JPG", "JPEG"}

// helper function to parse configuration file
func parseConfig(configFile string) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		logs.WithFields(logs.Fields{"configFile": configFile}).Fatal("Unable to read", err)
		return err
	}
	err = jsoniter.Unmarshal(data, &_config)
	if err != nil {
		logs.WithFields(logs.Fields{"configFile": configFile}).Fatal("Unable to parse", err)
		return err
	}
	logs.Info(_config.String())
	return nil
}

// InList helper function to check item in a list
func InList(a string, list []string) bool {
	check := 0
	for _, b := range list {
		if b == a {
			check += 1
		}
	}
	if check != 0 {
		return true
	}
	return false
}

// helper function to check if given path exists
func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// helper function to check if given dir holds a TF SavedModel,
// the canonical marker is saved_model.pb
func looksLikeSavedModel(dir string) bool {
	return fileExists(filepath.Join(dir, "saved_model.pb"))
}

// listImages collects image files with known extensions from given folder.
// A missing folder is logged as an error and yields an empty list.
func listImages(folder string) []string {
	var flist []string
	if !fileExists(folder) {
		logs.WithFields(logs.Fields{"Folder": folder}).Error("Image directory not found")
		return flist
	}
	for _, ext := range imageExtensions {
		files, err := filepath.Glob(filepath.Join(folder, "*."+ext))
		if err != nil {
			logs.WithFields(logs.Fields{"Folder": folder, "Error": err}).Error("Unable to glob image files")
			continue
		}
		flist = append(flist, files...)
	}
	return flist
}

// modelBase extracts model name from given model file, e.g.
// /path/inception_v3_output_graph.pb => inception_v3
func modelBase(fname string) string {
	base := filepath.Base(fname)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.SplitN(base, "_output", 2)[0]
}

// Untar unpacks given tarball into dtar destination directory
func Untar(fname, dtar string) error {
	file, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer file.Close()
	reader := tar.NewReader(file)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		path := filepath.Join(dtar, header.Name)
		if !strings.HasPrefix(path, filepath.Clean(dtar)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal path in tarball: %s", header.Name)
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, reader); err != nil {
				out.Close()
				return err
			}
			out.Close()
		}
	}
	return nil
}
