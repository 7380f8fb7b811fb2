package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/packmap/internal/aggregate"
	"github.com/nao1215/packmap/internal/cache"
	"github.com/nao1215/packmap/internal/database"
	"github.com/nao1215/packmap/internal/model"
	"github.com/nao1215/packmap/internal/report"
)

// ExtractStep fills Run.Mapping from the documentation pages.
type ExtractStep struct {
	extractor *Extractor
}

// NewExtractStep creates an extraction step.
func NewExtractStep(extractor *Extractor) *ExtractStep {
	return &ExtractStep{extractor: extractor}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do runs the extractor. Failed frameworks are recorded and skipped; the
// step only fails when nothing at all was extracted.
func (s *ExtractStep) Do(ctx context.Context, run *Run) error {
	mapping, failures, err := s.extractor.Extract(ctx)
	if err != nil {
		return fmt.Errorf("failed to extract mappings: %w", err)
	}
	run.Mapping = mapping
	run.ExtractionFailures = failures

	if len(mapping) == 0 {
		return ErrNoData
	}
	return nil
}

// SaveCacheStep writes Run.Mapping to the cache file.
type SaveCacheStep struct {
	path string
}

// NewSaveCacheStep creates a step that writes the cache file at path.
func NewSaveCacheStep(path string) *SaveCacheStep {
	return &SaveCacheStep{path: path}
}

// Name returns the step name.
func (s *SaveCacheStep) Name() string {
	return "save_cache"
}

// Do writes the cache file.
func (s *SaveCacheStep) Do(_ context.Context, run *Run) error {
	if run.Mapping == nil {
		return ErrNoMapping
	}
	if err := cache.Save(s.path, run.Mapping); err != nil {
		return err
	}
	run.Outputs = append(run.Outputs, s.path)
	return nil
}

// LoadCacheStep fills Run.Mapping from the cache file.
type LoadCacheStep struct {
	path string
}

// NewLoadCacheStep creates a step that reads the cache file at path.
func NewLoadCacheStep(path string) *LoadCacheStep {
	return &LoadCacheStep{path: path}
}

// Name returns the step name.
func (s *LoadCacheStep) Name() string {
	return "load_cache"
}

// Do reads the cache file.
func (s *LoadCacheStep) Do(_ context.Context, run *Run) error {
	mapping, err := cache.Load(s.path)
	if err != nil {
		return err
	}
	run.Mapping = mapping
	return nil
}

// SnapshotStore is the part of the history database that stores mappings.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, mapping model.ControlMapping) (string, bool, error)
	LatestSnapshot(ctx context.Context) (*database.Snapshot, error)
	SnapshotByFingerprint(ctx context.Context, fingerprint string) (*database.Snapshot, error)
}

var (
	_ SnapshotStore = (*database.HistoryDB)(nil)
	_ RunRecorder   = (*database.HistoryDB)(nil)
)

// SnapshotStep stores Run.Mapping in the history database.
type SnapshotStep struct {
	store  SnapshotStore
	logger *slog.Logger
}

// NewSnapshotStep creates a step that persists the mapping.
func NewSnapshotStep(store SnapshotStore, logger *slog.Logger) *SnapshotStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *SnapshotStep) Name() string {
	return "snapshot"
}

// Do saves the snapshot and records its fingerprint.
func (s *SnapshotStep) Do(ctx context.Context, run *Run) error {
	if run.Mapping == nil {
		return ErrNoMapping
	}
	fingerprint, inserted, err := s.store.SaveSnapshot(ctx, run.Mapping)
	if err != nil {
		return err
	}
	run.Fingerprint = fingerprint
	if inserted {
		s.logger.Info("stored new snapshot", "fingerprint", fingerprint)
	} else {
		s.logger.Info("mapping unchanged since stored snapshot", "fingerprint", fingerprint)
	}
	return nil
}

// LoadSnapshotStep fills Run.Mapping from a stored snapshot.
type LoadSnapshotStep struct {
	store       SnapshotStore
	fingerprint string
}

// NewLoadSnapshotStep creates a step that loads the snapshot whose
// fingerprint starts with fingerprint, or the latest one when it is empty.
func NewLoadSnapshotStep(store SnapshotStore, fingerprint string) *LoadSnapshotStep {
	return &LoadSnapshotStep{store: store, fingerprint: fingerprint}
}

// Name returns the step name.
func (s *LoadSnapshotStep) Name() string {
	return "load_snapshot"
}

// Do loads the snapshot.
func (s *LoadSnapshotStep) Do(ctx context.Context, run *Run) error {
	var snap *database.Snapshot
	var err error
	if s.fingerprint == "" {
		snap, err = s.store.LatestSnapshot(ctx)
	} else {
		snap, err = s.store.SnapshotByFingerprint(ctx, s.fingerprint)
	}
	if err != nil {
		return err
	}
	run.Mapping = snap.Mapping
	run.Fingerprint = snap.Fingerprint
	return nil
}

// AggregateStep regroups Run.Mapping by config rule.
type AggregateStep struct {
	aggregator *aggregate.Aggregator
}

// NewAggregateStep creates an aggregation step.
func NewAggregateStep(aggregator *aggregate.Aggregator) *AggregateStep {
	return &AggregateStep{aggregator: aggregator}
}

// Name returns the step name.
func (s *AggregateStep) Name() string {
	return "aggregate"
}

// Do aggregates the mapping. In collect mode the partial result is kept and
// the skipped controls are listed in Run.ResolutionErrors.
func (s *AggregateStep) Do(_ context.Context, run *Run) error {
	if run.Mapping == nil {
		return ErrNoMapping
	}
	result, err := s.aggregator.Aggregate(run.Mapping)
	if result == nil {
		return err
	}
	run.Result = result
	run.ResolutionErrors = aggregate.Failures(err)
	return nil
}

// LoadResult reads a result back from an aggregated JSON file and its
// version file. An empty versionPath leaves the version stamp zero.
func LoadResult(aggregatedPath, versionPath string) (*aggregate.Result, error) {
	f, err := os.Open(filepath.Clean(aggregatedPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open aggregated file: %w", err)
	}
	defer f.Close()

	out, err := report.ReadAggregated(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", aggregatedPath, err)
	}
	result := &aggregate.Result{Entries: out.Entries()}

	if versionPath == "" {
		return result, nil
	}
	vf, err := os.Open(filepath.Clean(versionPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open version file: %w", err)
	}
	defer vf.Close()

	if result.Version, err = report.ReadVersion(vf); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", versionPath, err)
	}
	return result, nil
}

// LoadResultStep fills Run.Result from previously written output files.
type LoadResultStep struct {
	aggregatedPath string
	versionPath    string
}

// NewLoadResultStep creates a step that reads the aggregated and version files.
func NewLoadResultStep(aggregatedPath, versionPath string) *LoadResultStep {
	return &LoadResultStep{aggregatedPath: aggregatedPath, versionPath: versionPath}
}

// Name returns the step name.
func (s *LoadResultStep) Name() string {
	return "load_result"
}

// Do reads the files.
func (s *LoadResultStep) Do(_ context.Context, run *Run) error {
	result, err := LoadResult(s.aggregatedPath, s.versionPath)
	if err != nil {
		return err
	}
	run.Result = result
	return nil
}

// OutputFiles names the files written by RenderStep.
type OutputFiles struct {
	// Dir is the directory all files are written to.
	Dir string

	// Aggregated is the aggregated JSON file name.
	Aggregated string

	// Version is the version JSON file name.
	Version string

	// Document is the Markdown document file name.
	Document string
}

// RenderStep writes the aggregated JSON, the version file and the document.
type RenderStep struct {
	files      OutputFiles
	markdown   []report.MarkdownOption
	jsonIndent bool
}

// RenderStepOption configures a RenderStep.
type RenderStepOption func(*RenderStep)

// WithMarkdownOptions passes options to the document writer.
func WithMarkdownOptions(opts ...report.MarkdownOption) RenderStepOption {
	return func(s *RenderStep) {
		s.markdown = append(s.markdown, opts...)
	}
}

// WithCompactJSON writes the aggregated file without indentation.
func WithCompactJSON() RenderStepOption {
	return func(s *RenderStep) {
		s.jsonIndent = false
	}
}

// NewRenderStep creates a rendering step. Empty file names are skipped.
func NewRenderStep(files OutputFiles, opts ...RenderStepOption) *RenderStep {
	s := &RenderStep{files: files, jsonIndent: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *RenderStep) Name() string {
	return "render"
}

// Do writes every configured output file.
func (s *RenderStep) Do(_ context.Context, run *Run) error {
	if run.Result == nil {
		return ErrNoResult
	}
	doc := report.NewDocument(run.Result.Entries, run.Result.Version)

	var jsonOpts []report.JSONWriterOption
	if s.jsonIndent {
		jsonOpts = append(jsonOpts, report.WithPrettyPrint())
	}

	outputs := []struct {
		name  string
		write func(w io.Writer) error
	}{
		{s.files.Aggregated, func(w io.Writer) error {
			_, err := report.NewJSONWriter(w, jsonOpts...).Write(doc)
			return err
		}},
		{s.files.Version, func(w io.Writer) error {
			_, err := report.NewJSONWriter(w).WriteVersion(doc.Version)
			return err
		}},
		{s.files.Document, func(w io.Writer) error {
			_, err := report.NewMarkdownWriter(w, s.markdown...).Write(doc)
			return err
		}},
	}

	for _, out := range outputs {
		if out.name == "" {
			continue
		}
		path := filepath.Join(s.files.Dir, out.name)
		if err := writeFile(path, out.write); err != nil {
			return err
		}
		run.Outputs = append(run.Outputs, path)
	}
	return nil
}

// writeFile creates path, creating parent directories, and fills it with write.
func writeFile(path string, write func(w io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// RunRecorder is the part of the history database that logs runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *database.Run) (int64, error)
}

// HistoryStep appends the run outcome to the run log.
// Register it with WithFinally so failed runs are logged too.
type HistoryStep struct {
	recorder RunRecorder
	now      func() time.Time
}

// NewHistoryStep creates a run log step.
func NewHistoryStep(recorder RunRecorder) *HistoryStep {
	return &HistoryStep{recorder: recorder, now: time.Now}
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "history"
}

// Do records the run.
func (s *HistoryStep) Do(ctx context.Context, run *Run) error {
	entry := &database.Run{
		SnapshotFingerprint: run.Fingerprint,
		CreationDate:        s.now(),
		RuleCount:           run.RuleCount(),
		ControlCount:        run.ControlCount(),
		Status:              database.RunSucceeded,
	}
	if run.Result != nil {
		entry.CreationDate = run.Result.Version.CreationDate
	}
	if run.Err != nil {
		entry.Status = database.RunFailed
		entry.Error = run.Err.Error()
	}

	_, err := s.recorder.RecordRun(ctx, entry)
	return err
}
