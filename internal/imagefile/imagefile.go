// Package imagefile moves notification images between files on disk and the
// base64 strings stored on records.
package imagefile

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/afero"
)

// MaxSize bounds how large an attached image may be.
const MaxSize = 5 << 20

// Encode reads the file at path and returns its contents as standard base64.
func Encode(fs afero.Fs, path string) (string, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat image: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("image path %s is a directory", path)
	}
	if info.Size() > MaxSize {
		return "", fmt.Errorf("image %s is larger than %d bytes", path, MaxSize)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode turns a stored payload back into raw bytes.
func Decode(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return data, nil
}

// Materialize decodes payload into a new temporary file inside dir and returns
// its path. The caller owns the file and must remove it.
func Materialize(fs afero.Fs, dir, payload string) (string, error) {
	data, err := Decode(payload)
	if err != nil {
		return "", err
	}

	if dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create image directory: %w", err)
		}
	}

	f, err := afero.TempFile(fs, dir, "notification-*"+extension(data))
	if err != nil {
		return "", fmt.Errorf("failed to create temp image: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		fs.Remove(path)
		return "", fmt.Errorf("failed to write temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		fs.Remove(path)
		return "", fmt.Errorf("failed to close temp image: %w", err)
	}
	return path, nil
}

// Remove deletes a file created by Materialize. A missing file is not an error.
func Remove(fs afero.Fs, path string) error {
	if path == "" {
		return nil
	}
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return fmt.Errorf("failed to check temp image: %w", err)
	}
	if !exists {
		return nil
	}
	if err := fs.Remove(path); err != nil {
		return fmt.Errorf("failed to remove temp image: %w", err)
	}
	return nil
}

func extension(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	case "image/x-icon":
		return ".ico"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
