package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"aerodetect/internal/config"
	"aerodetect/internal/logger"
)

const (
	// KeyLength is the number of hex characters of the content hash used as a storage key.
	KeyLength = 16
	// DefaultVideoExt is used when an upload name carries no usable extension.
	DefaultVideoExt = ".mp4"
	// OutputRoute is the URL prefix the output directory is served under.
	OutputRoute = "/output/"
)

// StoredUpload describes a persisted upload and where its annotated output goes.
type StoredUpload struct {
	Key        string
	Ext        string
	InputPath  string
	OutputPath string
	OutputURL  string
	Size       int64
}

// UploadStore persists uploaded media under content-derived names.
type UploadStore struct {
	uploadDir string
	outputDir string
	logger    *logger.Logger
}

// NewUploadStore creates an UploadStore over the configured upload and output directories.
func NewUploadStore(config *config.Config, logger *logger.Logger) *UploadStore {
	return &UploadStore{
		uploadDir: config.UploadDirectory,
		outputDir: config.OutputDirectory,
		logger:    logger,
	}
}

// EnsureDirs creates the upload and output directories if missing.
func (s *UploadStore) EnsureDirs() error {
	for _, dir := range []string{s.uploadDir, s.outputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// OutputDir returns the directory annotated media is written to.
func (s *UploadStore) OutputDir() string {
	return s.outputDir
}

// Save streams body to the upload directory. The key is derived from the
// content so identical uploads map to the same input and output files; the
// client supplied filename only contributes its extension.
func (s *UploadStore) Save(filename string, body io.Reader) (*StoredUpload, error) {
	if err := s.EnsureDirs(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.uploadDir, "upload-*.part")
	if err != nil {
		return nil, fmt.Errorf("error creating upload file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hash), body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("error saving upload: %w", err)
	}

	key := hex.EncodeToString(hash.Sum(nil))[:KeyLength]
	ext := SanitizeExt(filename)
	upload := s.pathsFor(key, ext)
	upload.Size = size

	if err := os.Rename(tmpPath, upload.InputPath); err != nil {
		return nil, fmt.Errorf("error saving upload: %w", err)
	}

	s.logger.Info("Stored upload %q as %s (%d bytes)", filename, filepath.Base(upload.InputPath), size)
	return upload, nil
}

func (s *UploadStore) pathsFor(key, ext string) *StoredUpload {
	outputName := key + "_output" + ext
	return &StoredUpload{
		Key:        key,
		Ext:        ext,
		InputPath:  filepath.Join(s.uploadDir, key+ext),
		OutputPath: filepath.Join(s.outputDir, outputName),
		OutputURL:  OutputRoute + outputName,
	}
}

// SanitizeExt returns the lowercase extension of a client filename, or
// DefaultVideoExt when it is missing or contains anything but letters and digits.
func SanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) < 2 || len(ext) > 6 {
		return DefaultVideoExt
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return DefaultVideoExt
		}
	}
	return ext
}

// ParseOutputName splits an output file name back into its storage key and extension.
func ParseOutputName(name string) (key, ext string, ok bool) {
	ext = filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	key, found := strings.CutSuffix(stem, "_output")
	if !found || len(key) != KeyLength || ext == "" {
		return "", "", false
	}
	if _, err := hex.DecodeString(key); err != nil {
		return "", "", false
	}
	return key, ext, true
}

// PathsFor returns the locations a stored upload with the given key and extension uses.
func (s *UploadStore) PathsFor(key, ext string) *StoredUpload {
	return s.pathsFor(key, ext)
}
