// Package labelconv converts per-split CSV box annotations into YOLO label files.
package labelconv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultSplits are the dataset partitions converted when none are given.
var DefaultSplits = []string{"train", "val", "test"}

// DefaultClassMap matches the class order the detector is trained with.
var DefaultClassMap = map[string]int{
	"Drone":      0,
	"Helicopter": 1,
	"AirPlane":   2,
}

var requiredColumns = []string{"filename", "width", "height", "class", "xmin", "ymin", "xmax", "ymax"}

// Annotation is one bounding box row of a split CSV.
type Annotation struct {
	Filename string
	Width    float64
	Height   float64
	Class    string
	XMin     float64
	YMin     float64
	XMax     float64
	YMax     float64
}

// LabelFile holds the YOLO lines of one image.
type LabelFile struct {
	Image   string
	Lines   []string
	Skipped []string // class names absent from the class map
}

// Name returns the label file name: the image stem with a .txt extension.
func (f LabelFile) Name() string {
	return strings.TrimSuffix(f.Image, filepath.Ext(f.Image)) + ".txt"
}

// Converter turns <base>/labels/<split>/<split>_labels.csv into one .txt per image.
type Converter struct {
	BaseDir string
	Classes map[string]int
}

func NewConverter(baseDir string, classes map[string]int) *Converter {
	if len(classes) == 0 {
		classes = DefaultClassMap
	}
	return &Converter{BaseDir: baseDir, Classes: classes}
}

// SplitDir is where a split's CSV lives and its label files are written.
func (c *Converter) SplitDir(split string) string {
	return filepath.Join(c.BaseDir, "labels", split)
}

// CSVPath returns the annotation CSV of a split.
func (c *Converter) CSVPath(split string) string {
	return filepath.Join(c.SplitDir(split), split+"_labels.csv")
}

// LoadSplit reads a split CSV and builds the label files, sorted by image name.
func (c *Converter) LoadSplit(split string) ([]LabelFile, error) {
	file, err := os.Open(c.CSVPath(split))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s annotations: %w", split, err)
	}
	defer file.Close()

	annotations, err := ReadAnnotations(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.CSVPath(split), err)
	}
	return c.Build(annotations), nil
}

// Build groups annotations by image. The first row of each image supplies
// the image size used for normalization.
func (c *Converter) Build(annotations []Annotation) []LabelFile {
	groups := make(map[string][]Annotation)
	for _, a := range annotations {
		groups[a.Filename] = append(groups[a.Filename], a)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	files := make([]LabelFile, 0, len(names))
	for _, name := range names {
		rows := groups[name]
		width, height := rows[0].Width, rows[0].Height

		labelFile := LabelFile{Image: name}
		for _, row := range rows {
			classID, ok := c.Classes[row.Class]
			if !ok {
				labelFile.Skipped = append(labelFile.Skipped, row.Class)
				continue
			}
			labelFile.Lines = append(labelFile.Lines, FormatLine(classID, row, width, height))
		}
		files = append(files, labelFile)
	}
	return files
}

// FormatLine renders "<class> <xc> <yc> <w> <h>" normalized to the image size.
func FormatLine(classID int, a Annotation, width, height float64) string {
	xCenter := ((a.XMin + a.XMax) / 2) / width
	yCenter := ((a.YMin + a.YMax) / 2) / height
	boxWidth := (a.XMax - a.XMin) / width
	boxHeight := (a.YMax - a.YMin) / height
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", classID, xCenter, yCenter, boxWidth, boxHeight)
}

// WriteLabelFile writes the lines joined by newlines, without a trailing one.
func WriteLabelFile(dir string, f LabelFile) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	path := filepath.Join(dir, f.Name())
	if err := os.WriteFile(path, []byte(strings.Join(f.Lines, "\n")), 0644); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}

// ReadAnnotations parses a CSV with a header row. Columns are located by
// name, so extra columns and any column order are accepted.
func ReadAnnotations(r io.Reader) ([]Annotation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty annotations file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, column := range requiredColumns {
		if _, ok := index[column]; !ok {
			return nil, fmt.Errorf("missing column %q", column)
		}
	}

	var annotations []Annotation
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		a := Annotation{
			Filename: record[index["filename"]],
			Class:    record[index["class"]],
		}
		numbers := []struct {
			column string
			dst    *float64
		}{
			{"width", &a.Width},
			{"height", &a.Height},
			{"xmin", &a.XMin},
			{"ymin", &a.YMin},
			{"xmax", &a.XMax},
			{"ymax", &a.YMax},
		}
		for _, n := range numbers {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[index[n.column]]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s: %w", line, n.column, err)
			}
			*n.dst = v
		}
		if a.Width <= 0 || a.Height <= 0 {
			return nil, fmt.Errorf("line %d: image size must be positive", line)
		}

		annotations = append(annotations, a)
	}

	return annotations, nil
}

// SplitResult summarizes one converted split.
type SplitResult struct {
	Split   string
	Files   int
	Boxes   int
	Skipped int
}

// ConvertSplit loads and writes a whole split. onFile, if set, is called after each written file.
func (c *Converter) ConvertSplit(split string, onFile func(LabelFile)) (SplitResult, error) {
	result := SplitResult{Split: split}

	files, err := c.LoadSplit(split)
	if err != nil {
		return result, err
	}

	dir := c.SplitDir(split)
	for _, f := range files {
		if err := WriteLabelFile(dir, f); err != nil {
			return result, err
		}
		result.Files++
		result.Boxes += len(f.Lines)
		result.Skipped += len(f.Skipped)
		if onFile != nil {
			onFile(f)
		}
	}
	return result, nil
}
