package cache

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/nao1215/packmap/internal/model"
)

func sampleMapping() model.ControlMapping {
	return model.ControlMapping{
		"operational-best-practices-for-cis_top_20": {
			{
				model.ColumnControlID:          "1",
				model.ColumnConfigRule:         "ec2-instance-managed-by-systems-manager",
				model.ColumnControlDescription: "Inventory",
				model.ColumnGuidance:           "g",
			},
		},
		"operational-best-practices-for-nist_800-171": {
			{model.ColumnControlID: "3.1.3", model.ColumnConfigRule: "vpc-flow-logs-enabled"},
		},
	}
}

// TestSaveLoad tests the cache file round trip.
func TestSaveLoad(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "framework_mappings.json")
		if err := Save(path, sampleMapping()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(got, sampleMapping()) {
			t.Errorf("expected %v, got %v", sampleMapping(), got)
		}
	})

	t.Run("file layout", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "cache.json")
		if err := Save(path, sampleMapping()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		content := string(data)
		if !strings.Contains(content, "\n    \"operational-best-practices-for-cis_top_20\": [") {
			t.Errorf("expected four space indentation, got:\n%s", content)
		}
		if strings.Index(content, "cis_top_20") > strings.Index(content, "nist_800-171") {
			t.Error("expected sorted framework keys")
		}
	})

	t.Run("overwrite leaves no temporary files", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "cache.json")
		for range 2 {
			if err := Save(path, sampleMapping()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("expected only the cache file, got %d entries", len(entries))
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
		if !errors.Is(err, ErrCacheNotFound) {
			t.Errorf("expected ErrCacheNotFound, got %v", err)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "cache.json")
		if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err := Load(path)
		if err == nil || errors.Is(err, ErrCacheNotFound) {
			t.Errorf("expected decode error, got %v", err)
		}
	})

	t.Run("nil mapping", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "cache.json")
		if err := Save(path, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty mapping, got %v", got)
		}
	})
}

// TestFingerprint tests content-based fingerprints.
func TestFingerprint(t *testing.T) {
	t.Parallel()

	a, err := Fingerprint(sampleMapping())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Fingerprint(sampleMapping())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Errorf("expected stable fingerprint, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a))
	}

	changed := sampleMapping()
	changed["operational-best-practices-for-nist_800-171"][0][model.ColumnGuidance] = "new"
	c, err := Fingerprint(changed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == a {
		t.Error("expected fingerprint to change with content")
	}
}
