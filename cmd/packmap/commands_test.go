package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/packmap/internal/cache"
	"github.com/nao1215/packmap/internal/config"
	"github.com/nao1215/packmap/internal/extract"
	"github.com/nao1215/packmap/internal/framework"
	"github.com/nao1215/packmap/internal/model"
	"github.com/nao1215/packmap/internal/search"
)

const (
	nist53ID   = "operational-best-practices-for-nist-800-53_rev_5"
	cisV8ID    = "operational-best-practices-for-cis-critical-security-controls-v8"
	cisTop20ID = "operational-best-practices-for-cis_top_20"
)

// conformancePage renders a conformance pack page with the given data rows.
func conformancePage(rows ...[4]string) string {
	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html><html><body><div class="table-container table-contents"><table>`)
	sb.WriteString(`<tr><th>Control ID</th><th>Control Description</th><th>AWS Config Rule</th><th>Guidance</th></tr>`)
	for _, r := range rows {
		fmt.Fprintf(&sb, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>", r[0], r[1], r[2], r[3])
	}
	sb.WriteString(`</table></div></body></html>`)
	return sb.String()
}

// newDocsServer serves NIST 800-53 and CIS v8 pages; every other page is missing.
func newDocsServer(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string]string{
		"/" + nist53ID + ".html": conformancePage(
			[4]string{"AC-2", "Account management", "iam-user-unused-credentials-check", "Remove unused credentials"},
			[4]string{"IR-4(1)", "Incident handling", "guardduty-enabled-centralized", "Enable GuardDuty"},
		),
		"/" + cisV8ID + ".html": conformancePage(
			[4]string{"12.2", "Network infrastructure", "guardduty-enabled-centralized", "GuardDuty guidance from CIS"},
		),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeTestConfig writes a config file that keeps the test away from the
// network defaults and the user's data directory.
func writeTestConfig(t *testing.T, baseURL string) string {
	t.Helper()

	content := fmt.Sprintf("baseURL: %q\nretries: 0\ntimeout: 5s\n", baseURL)
	path := filepath.Join(t.TempDir(), ".packmap")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// TestCommands_EndToEnd drives every phase against a local documentation server.
func TestCommands_EndToEnd(t *testing.T) {
	t.Parallel()

	srv := newDocsServer(t)
	cfgPath := writeTestConfig(t, srv.URL+"/")
	outDir := t.TempDir()
	dbDir := t.TempDir()

	t.Run("run", func(t *testing.T) {
		stdout, stderr, err := execute(t, "run", "-c", cfgPath,
			"-F", nist53ID, "-F", cisV8ID, "-F", cisTop20ID,
			"-o", outDir, "--db-dir", dbDir, "--coverage", "--rules",
			"--summary-file", filepath.Join(outDir, "summary.txt"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stderr, "skipped framework "+cisTop20ID) {
			t.Errorf("expected warning for missing page, got %q", stderr)
		}
		for _, want := range []string{"CONFORMANCE PACK MAPPING SUMMARY", "Config Rules:   2", "guardduty-enabled-centralized"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected summary to contain %q, got:\n%s", want, stdout)
			}
		}

		if summary := readFile(t, filepath.Join(outDir, "summary.txt")); !strings.Contains(stdout, summary) {
			t.Errorf("expected summary file to match stdout, got:\n%s", summary)
		}

		mapping, err := cache.Load(filepath.Join(outDir, config.DefaultCacheFile))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(mapping) != 2 || mapping.RecordCount() != 3 {
			t.Errorf("unexpected cache content %v", mapping)
		}

		doc := readFile(t, filepath.Join(outDir, config.DefaultDocumentFile))
		for _, want := range []string{
			"## guardduty-enabled-centralized",
			"## Framework Coverage",
			"(https://csf.tools/reference/nist-sp-800-53/r5/ir/ir-4/)",
		} {
			if !strings.Contains(doc, want) {
				t.Errorf("expected document to contain %q", want)
			}
		}
	})

	t.Run("search", func(t *testing.T) {
		stdout, _, err := execute(t, "search", "-c", cfgPath, "-o", outDir, "guardduty", "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var hits []search.Hit
		if err := json.Unmarshal([]byte(stdout), &hits); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, stdout)
		}
		if len(hits) != 2 {
			t.Fatalf("expected 2 hits, got %d", len(hits))
		}
		if hits[1].Category != "Incident Response" {
			t.Errorf("expected Incident Response category, got %q", hits[1].Category)
		}

		stdout, _, err = execute(t, "search", "-c", cfgPath, "-o", outDir,
			"--framework", cisV8ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "1 controls in 1 config rules") {
			t.Errorf("unexpected framework filter output:\n%s", stdout)
		}
	})

	t.Run("history", func(t *testing.T) {
		stdout, _, err := execute(t, "history", "-c", cfgPath, "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "succeeded") {
			t.Errorf("expected a succeeded run, got:\n%s", stdout)
		}
	})

	t.Run("aggregate from history then render", func(t *testing.T) {
		replayDir := t.TempDir()
		stdout, _, err := execute(t, "aggregate", "-c", cfgPath, "-o", replayDir,
			"--db-dir", dbDir, "--from-history")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Aggregated 3 controls into 2 config rules") {
			t.Errorf("unexpected output:\n%s", stdout)
		}
		if _, err := os.Stat(filepath.Join(replayDir, config.DefaultDocumentFile)); !errors.Is(err, os.ErrNotExist) {
			t.Error("aggregate must not write the document")
		}

		if _, _, err := execute(t, "render", "-c", cfgPath, "-o", replayDir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		doc := readFile(t, filepath.Join(replayDir, config.DefaultDocumentFile))
		if !strings.Contains(doc, "## iam-user-unused-credentials-check") {
			t.Error("expected rendered rule section")
		}
	})
}

// TestScrapeCmd_NothingExtracted tests that scrape fails when every page is missing.
func TestScrapeCmd_NothingExtracted(t *testing.T) {
	t.Parallel()

	srv := newDocsServer(t)
	cfgPath := writeTestConfig(t, srv.URL+"/")

	_, _, err := execute(t, "scrape", "-c", cfgPath, "-F", cisTop20ID,
		"-o", t.TempDir(), "--no-history")
	if err == nil || !strings.Contains(err.Error(), "scrape failed") {
		t.Errorf("expected scrape failure, got %v", err)
	}
}

// TestScrapeCmd_HeaderOnlyTable tests that a table without data rows is
// reported as a skipped framework instead of extracted as empty.
func TestScrapeCmd_HeaderOnlyTable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(conformancePage()))
	}))
	t.Cleanup(srv.Close)
	cfgPath := writeTestConfig(t, srv.URL+"/")

	_, stderr, err := execute(t, "scrape", "-c", cfgPath, "-F", cisTop20ID,
		"-o", t.TempDir(), "--no-history")
	if err == nil || !strings.Contains(err.Error(), "scrape failed") {
		t.Errorf("expected scrape failure, got %v", err)
	}
	if !strings.Contains(stderr, "skipped framework "+cisTop20ID) {
		t.Errorf("expected skipped framework warning, got %q", stderr)
	}
}

// TestAggregateCmd_MalformedControl tests fail-fast and collect modes.
func TestAggregateCmd_MalformedControl(t *testing.T) {
	t.Parallel()

	cfgPath := writeTestConfig(t, "https://example.com/")
	mapping := model.ControlMapping{
		nist53ID: {
			{model.ColumnControlID: "AC 2", model.ColumnConfigRule: "iam-root-access-key-check"},
			{model.ColumnControlID: "AC-2", model.ColumnConfigRule: "vpc-flow-logs-enabled"},
		},
	}

	t.Run("fail fast writes nothing", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		if err := cache.Save(filepath.Join(dir, config.DefaultCacheFile), mapping); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, _, err := execute(t, "aggregate", "-c", cfgPath, "-o", dir, "--no-history")
		if !errors.Is(err, framework.ErrMalformedControlID) {
			t.Fatalf("expected ErrMalformedControlID, got %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, config.DefaultAggregatedFile)); !errors.Is(err, os.ErrNotExist) {
			t.Error("expected no aggregated file")
		}
	})

	t.Run("collect mode keeps the rest", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		if err := cache.Save(filepath.Join(dir, config.DefaultCacheFile), mapping); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		stdout, stderr, err := execute(t, "aggregate", "-c", cfgPath, "-o", dir,
			"--no-history", "--collect-errors")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stderr, "skipped control") {
			t.Errorf("expected skipped control warning, got %q", stderr)
		}
		if !strings.Contains(stdout, "Aggregated 1 controls into 1 config rules") {
			t.Errorf("unexpected output:\n%s", stdout)
		}
	})
}

// TestBuildConfig tests flag overrides on top of the config file.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	cfgPath := writeTestConfig(t, "https://example.com/docs/")

	t.Run("file values survive unset flags", func(t *testing.T) {
		t.Parallel()
		sub, _, err := NewRootCmd().Find([]string{"frameworks"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := sub.ParseFlags([]string{"-c", cfgPath}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg, err := buildConfig(sub)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.BaseURL != "https://example.com/docs/" || cfg.Retries != 0 {
			t.Errorf("unexpected config %+v", cfg)
		}
	})

	t.Run("flags override the file", func(t *testing.T) {
		t.Parallel()
		sub, _, err := NewRootCmd().Find([]string{"scrape"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := sub.ParseFlags([]string{"-c", cfgPath, "--retries", "5", "-j", "3", "--no-history", "-F", cisV8ID}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg, err := buildConfig(sub)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Retries != 5 || cfg.Concurrency != 3 {
			t.Errorf("expected flag values, got retries=%d concurrency=%d", cfg.Retries, cfg.Concurrency)
		}
		if cfg.DBDir != "" {
			t.Errorf("expected history disabled, got %q", cfg.DBDir)
		}
		if len(cfg.Frameworks) != 1 || cfg.Frameworks[0] != cisV8ID {
			t.Errorf("unexpected frameworks %v", cfg.Frameworks)
		}
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		t.Parallel()
		_, _, err := execute(t, "scrape", "-c", cfgPath, "-j", "0", "--no-history")
		if !errors.Is(err, config.ErrInvalidConcurrency) {
			t.Errorf("expected ErrInvalidConcurrency, got %v", err)
		}
	})

	t.Run("invalid proxy address", func(t *testing.T) {
		t.Parallel()
		_, _, err := execute(t, "scrape", "-c", cfgPath, "--proxy", "no-port", "--no-history")
		if !errors.Is(err, extract.ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()
		_, _, err := execute(t, "frameworks", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

// TestFrameworksCmd tests the framework listing.
func TestFrameworksCmd(t *testing.T) {
	t.Parallel()

	cfgPath := writeTestConfig(t, "https://example.com/docs/")

	stdout, _, err := execute(t, "frameworks", "-c", cfgPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != framework.DefaultRegistry().Len()+1 {
		t.Errorf("expected header plus %d lines, got %d", framework.DefaultRegistry().Len(), len(lines))
	}
	if !strings.Contains(stdout, string(framework.FamilyNIST80053R5)) {
		t.Error("expected family column")
	}

	stdout, _, err = execute(t, "frameworks", "-c", cfgPath, "--urls")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "https://example.com/docs/"+cisV8ID+".html") {
		t.Errorf("expected page URL under base URL, got:\n%s", stdout)
	}
}

// TestSearchCmd_Categories tests the category listing.
func TestSearchCmd_Categories(t *testing.T) {
	t.Parallel()

	stdout, _, err := execute(t, "search", "--categories")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "Access Control") || !strings.Contains(stdout, search.CategoryWellArchitected) {
		t.Errorf("unexpected categories:\n%s", stdout)
	}
}

// TestShortFingerprint tests fingerprint display truncation.
func TestShortFingerprint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", "-"},
		{"abc", "abc"},
		{"0123456789abcdef", "0123456789ab"},
	}
	for _, tt := range tests {
		if got := shortFingerprint(tt.in); got != tt.want {
			t.Errorf("shortFingerprint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
