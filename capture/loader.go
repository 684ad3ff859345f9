package capture

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// File represents a persisted capture file.
type File struct {
	// Path is the path to the image file.
	Path string
	// Ordinal is the capture ordinal parsed from the file name.
	Ordinal int
	// Minutes is the timestamp parsed from the file name.
	Minutes float64
}

// LoadFiles reads all capture files from a directory.
//
// Arguments:
// - dir: Directory path containing capture image files.
//
// Returns:
// - []File: The capture files sorted by ordinal. Zero padding stops at three
// digits, so sorting by name would misplace ordinal 1000 and above.
// - error: Error if the directory cannot be read or a file name does not
// follow the "<ordinal>_<minutes>.<ext>" pattern.
func LoadFiles(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		switch ext {
		case ".png", ".jpg", ".jpeg":
			file, err := parseFileName(entry.Name())
			if err != nil {
				return nil, err
			}
			file.Path = filepath.Join(dir, entry.Name())
			files = append(files, file)
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Ordinal < files[j].Ordinal
	})

	return files, nil
}

// Paths returns the paths of the files in order.
func Paths(files []File) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

func parseFileName(name string) (File, error) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	ordinalPart, minutesPart, ok := strings.Cut(stem, "_")
	if !ok {
		return File{}, errors.Errorf("capture file %q: missing '_' separator", name)
	}

	ordinal, err := strconv.Atoi(ordinalPart)
	if err != nil {
		return File{}, errors.Wrapf(err, "capture file %q: ordinal", name)
	}
	minutes, err := strconv.ParseFloat(minutesPart, 64)
	if err != nil {
		return File{}, errors.Wrapf(err, "capture file %q: minutes", name)
	}
	return File{Ordinal: ordinal, Minutes: minutes}, nil
}
