package cache

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/packmap/internal/model"
)

// ErrCacheNotFound is returned by Load when the cache file does not exist.
var ErrCacheNotFound = errors.New("cache file not found")

// Save writes mapping to path as indented JSON, creating parent directories.
// Keys are written in sorted order, so identical mappings produce identical files.
func Save(path string, mapping model.ControlMapping) error {
	data, err := Marshal(mapping)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".packmap-cache-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// Load reads a cache file written by Save.
func Load(path string) (model.ControlMapping, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCacheNotFound, path)
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	return Unmarshal(data)
}

// Marshal encodes mapping in the cache file format.
func Marshal(mapping model.ControlMapping) ([]byte, error) {
	if mapping == nil {
		mapping = model.ControlMapping{}
	}
	data, err := json.MarshalIndent(mapping, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache: %w", err)
	}
	return append(data, '\n'), nil
}

// Unmarshal decodes the cache file format.
func Unmarshal(data []byte) (model.ControlMapping, error) {
	var mapping model.ControlMapping
	if err := json.Unmarshal(bytes.TrimSpace(data), &mapping); err != nil {
		return nil, fmt.Errorf("failed to decode cache: %w", err)
	}
	if mapping == nil {
		mapping = model.ControlMapping{}
	}
	return mapping, nil
}

// Fingerprint returns a hex SHA3-256 digest of the canonical encoding of
// mapping. Two mappings with the same content have the same fingerprint.
func Fingerprint(mapping model.ControlMapping) (string, error) {
	data, err := Marshal(mapping)
	if err != nil {
		return "", err
	}
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
