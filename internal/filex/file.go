// Package filex holds file helpers for the device agent.
package filex

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// MaxPhotoBytes bounds the size of a photo read for upload.
const MaxPhotoBytes = 25 << 20

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// ReadPhoto loads a photo and sniffs its content type.
func ReadPhoto(path string) ([]byte, string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, "", fmt.Errorf("%s is a directory", path)
	}
	if fi.Size() > MaxPhotoBytes {
		return nil, "", fmt.Errorf("%s is %d bytes, limit is %d", path, fi.Size(), MaxPhotoBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return data, http.DetectContentType(data), nil
}
