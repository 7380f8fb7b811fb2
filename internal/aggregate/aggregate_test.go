package aggregate

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/nao1215/packmap/internal/framework"
	"github.com/nao1215/packmap/internal/model"
)

const (
	cisTop20ID = "operational-best-practices-for-cis_top_20"
	cisV8ID    = "operational-best-practices-for-cis-critical-security-controls-v8"
	nist171ID  = "operational-best-practices-for-nist_800-171"
	nist53ID   = "operational-best-practices-for-nist-800-53_rev_5"
	waRelID    = "operational-best-practices-for-wa-Reliability-Pillar"
)

func record(controlID, rule, description, guidance string) model.RawRecord {
	return model.RawRecord{
		model.ColumnControlID:          controlID,
		model.ColumnConfigRule:         rule,
		model.ColumnControlDescription: description,
		model.ColumnGuidance:           guidance,
	}
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
}

func newTestAggregator(opts ...Option) *Aggregator {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	opts = append([]Option{WithLogger(logger), WithClock(fixedClock)}, opts...)
	return New(framework.DefaultRegistry(), opts...)
}

func sampleMapping() model.ControlMapping {
	return model.ControlMapping{
		nist53ID: {
			record("IR-4(1)", "guardduty-enabled-centralized", "Incident handling", "Enable GuardDuty"),
			record("AC-2", "iam-user-unused-credentials-check", "Account management", "Remove unused credentials"),
		},
		cisV8ID: {
			record("12.2", "guardduty-enabled-centralized", "Network infrastructure", "GuardDuty guidance from CIS"),
		},
		waRelID: {
			record("REL 1", "cloudtrail-enabled", "Reliability", "Trail"),
		},
	}
}

// TestAggregate tests grouping by config rule.
func TestAggregate(t *testing.T) {
	t.Parallel()

	result, err := newTestAggregator().Aggregate(sampleMapping())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("keys are sorted", func(t *testing.T) {
		t.Parallel()
		var names []string
		for _, e := range result.Entries {
			names = append(names, e.ConfigRuleName)
		}
		want := []string{"cloudtrail-enabled", "guardduty-enabled-centralized", "iam-user-unused-credentials-check"}
		if !reflect.DeepEqual(names, want) {
			t.Errorf("expected %v, got %v", want, names)
		}
	})

	t.Run("controls follow registration order", func(t *testing.T) {
		t.Parallel()
		controls := result.Entries[1].Controls
		if len(controls) != 2 {
			t.Fatalf("expected 2 controls, got %d", len(controls))
		}
		// CIS v8 is registered before NIST 800-53 rev 5.
		if controls[0].FrameworkID != cisV8ID || controls[1].FrameworkID != nist53ID {
			t.Errorf("unexpected order %s, %s", controls[0].FrameworkID, controls[1].FrameworkID)
		}
		if result.Entries[1].Guidance() != "GuardDuty guidance from CIS" {
			t.Errorf("unexpected first guidance %q", result.Entries[1].Guidance())
		}
	})

	t.Run("links are resolved", func(t *testing.T) {
		t.Parallel()
		c := result.Entries[1].Controls[1]
		if c.Link != "https://csf.tools/reference/nist-sp-800-53/r5/ir/ir-4/" {
			t.Errorf("unexpected link %q", c.Link)
		}
		if c.Description != "Incident handling" || c.Guidance != "Enable GuardDuty" {
			t.Errorf("unexpected reference %+v", c)
		}
	})

	t.Run("version stamp uses aggregation clock", func(t *testing.T) {
		t.Parallel()
		if !result.Version.CreationDate.Equal(fixedClock()) {
			t.Errorf("unexpected version %v", result.Version)
		}
	})
}

// TestAggregate_Idempotent tests that re-running yields identical entries.
func TestAggregate_Idempotent(t *testing.T) {
	t.Parallel()

	calls := 0
	clock := func() time.Time {
		calls++
		return fixedClock().Add(time.Duration(calls) * time.Hour)
	}
	agg := newTestAggregator(WithClock(clock))

	first, err := agg.Aggregate(sampleMapping())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := agg.Aggregate(sampleMapping())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first.Entries, second.Entries) {
		t.Error("expected identical entries across runs")
	}
	if first.Version.CreationDate.Equal(second.Version.CreationDate) {
		t.Error("expected a fresh version stamp per run")
	}
}

// TestAggregate_FailFast tests that one malformed control aborts the run.
func TestAggregate_FailFast(t *testing.T) {
	t.Parallel()

	mapping := sampleMapping()
	mapping[nist171ID] = []model.RawRecord{
		record("3.1.3", "vpc-flow-logs-enabled", "", ""),
		record("3.1", "s3-bucket-ssl-requests-only", "", ""),
	}

	result, err := newTestAggregator().Aggregate(mapping)
	if result != nil {
		t.Error("expected no partial result")
	}
	if !errors.Is(err, framework.ErrMalformedControlID) {
		t.Fatalf("expected ErrMalformedControlID, got %v", err)
	}
	var mErr *framework.MalformedControlIDError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected *MalformedControlIDError, got %T", err)
	}
	if mErr.FrameworkID != nist171ID || mErr.ControlID != "3.1" {
		t.Errorf("unexpected offending pair (%s, %s)", mErr.FrameworkID, mErr.ControlID)
	}
}

// TestAggregate_CollectErrors tests the collect-all mode.
func TestAggregate_CollectErrors(t *testing.T) {
	t.Parallel()

	mapping := model.ControlMapping{
		nist171ID: {
			record("3.1.3", "vpc-flow-logs-enabled", "", ""),
			record("3.1", "s3-bucket-ssl-requests-only", "", ""),
		},
		nist53ID: {
			record("AC 2", "iam-root-access-key-check", "", ""),
			record("AC-2", "vpc-flow-logs-enabled", "", ""),
		},
	}

	result, err := newTestAggregator(WithCollectErrors(true)).Aggregate(mapping)
	if result == nil {
		t.Fatal("expected partial result")
	}
	failures := Failures(err)
	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %d: %v", len(failures), err)
	}
	for _, f := range failures {
		if !errors.Is(f, framework.ErrMalformedControlID) {
			t.Errorf("expected malformed control error, got %v", f)
		}
	}
	if len(result.Entries) != 1 || result.Entries[0].ConfigRuleName != "vpc-flow-logs-enabled" {
		t.Fatalf("unexpected entries %+v", result.Entries)
	}
	if len(result.Entries[0].Controls) != 2 {
		t.Errorf("expected 2 controls, got %d", len(result.Entries[0].Controls))
	}
}

// TestAggregate_UnknownFramework tests that unregistered keys are fatal.
func TestAggregate_UnknownFramework(t *testing.T) {
	t.Parallel()

	mapping := model.ControlMapping{
		"operational-best-practices-for-hipaa-security": {record("1", "rule", "", "")},
	}

	for _, collect := range []bool{false, true} {
		_, err := newTestAggregator(WithCollectErrors(collect)).Aggregate(mapping)
		if !errors.Is(err, framework.ErrUnknownFramework) {
			t.Errorf("collect=%v: expected ErrUnknownFramework, got %v", collect, err)
		}
	}
}

// TestAggregate_EndToEndShape tests the documented CIS Top 20 example.
func TestAggregate_EndToEndShape(t *testing.T) {
	t.Parallel()

	mapping := model.ControlMapping{
		cisTop20ID: {record("1", "ec2-instance-managed-by-systems-manager", "...", "g")},
	}

	result, err := newTestAggregator().Aggregate(mapping)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := result.Output()
	controls := out["ec2-instance-managed-by-systems-manager"].Controls
	if len(controls) != 1 {
		t.Fatalf("expected 1 control, got %d", len(controls))
	}
	want := model.ControlReference{
		FrameworkID: cisTop20ID,
		ControlID:   "1",
		Description: "...",
		Guidance:    "g",
		Link:        "https://www.cisecurity.org/controls/cis-controls-list",
	}
	if controls[0] != want {
		t.Errorf("expected %+v, got %+v", want, controls[0])
	}
}

// TestAggregate_EmptyMapping tests that an empty mapping yields no entries.
func TestAggregate_EmptyMapping(t *testing.T) {
	t.Parallel()

	result, err := newTestAggregator().Aggregate(model.ControlMapping{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(result.Entries))
	}
}
