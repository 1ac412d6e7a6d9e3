// Package runner drives one normalization run per AHJ: load the exports,
// normalize them, write the clean workbook and record the run.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"permitnorm/internal"
	"permitnorm/internal/config"
	"permitnorm/internal/pipeline"
	"permitnorm/internal/sheet"
	"permitnorm/internal/storage"
	"permitnorm/internal/table"
	"permitnorm/internal/vocab"
)

// Filter keeps only the rows whose Column value is one of Keep.
type Filter struct {
	Column string
	Keep   []string
}

// ParseFilter reads the "column=v1,v2" form used on the command line.
func ParseFilter(expr string) (Filter, error) {
	column, values, ok := strings.Cut(expr, "=")
	column = strings.TrimSpace(column)
	if !ok || column == "" {
		return Filter{}, fmt.Errorf("invalid filter %q, want column=value[,value]", expr)
	}
	var keep []string
	for _, v := range strings.Split(values, ",") {
		if v = strings.TrimSpace(v); v != "" {
			keep = append(keep, v)
		}
	}
	if len(keep) == 0 {
		return Filter{}, fmt.Errorf("invalid filter %q: no values", expr)
	}
	return Filter{Column: column, Keep: keep}, nil
}

type Options struct {
	AHJ    string
	Mode   string
	Filter *Filter
	// Output overrides the configured OUTPUT_DIR/<AHJ>/OUTPUT_FILE path.
	Output string
	// Extensions picked up by folder runs; sheet.DefaultExtensions when empty.
	Extensions []string
}

// Result is the outcome of one run. Table is nil when the run failed.
type Result struct {
	Run     internal.RunRecord
	Report  pipeline.Report
	Merge   *sheet.Merged
	Removed int
	Table   *table.Table
}

type Service struct {
	cfg        config.Config
	db         *storage.DB
	normalizer *pipeline.Normalizer
	version    string
	logger     *zap.Logger
}

// New builds a run service. db may be nil, in which case runs are not
// recorded.
func New(cfg config.Config, db *storage.DB, set *vocab.Set, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:        cfg,
		db:         db,
		normalizer: pipeline.NewNormalizer(set, logger),
		version:    set.Version,
		logger:     logger.Named("runner"),
	}
}

// RunFiles merges paths into one table and normalizes it for opts.AHJ.
// Without any loadable file the run still succeeds and writes an empty
// standard table. A failed run is still recorded, with its error.
func (s *Service) RunFiles(ctx context.Context, paths []string, opts Options) (Result, error) {
	if opts.Mode == "" {
		opts.Mode = internal.RunFiles
	}
	inputs, _ := json.Marshal(paths)
	res := Result{Run: internal.RunRecord{
		ID:           uuid.NewString(),
		AHJ:          strings.TrimSpace(opts.AHJ),
		Mode:         opts.Mode,
		InputsJSON:   string(inputs),
		VocabVersion: s.version,
		StartedAt:    time.Now().UTC().Format(time.RFC3339Nano),
	}}
	logger := s.logger.With(zap.String("run_id", res.Run.ID), zap.String("ahj", res.Run.AHJ))

	var extra []internal.NoticeRow
	err := s.run(ctx, paths, opts, &res, &extra, logger)

	res.Run.FinishedAt = time.Now().UTC().Format(time.RFC3339Nano)
	res.Run.Status = internal.RunOK
	if err != nil {
		res.Run.Status = internal.RunFailed
		res.Run.Error = err.Error()
		res.Table = nil
		logger.Error("run failed", zap.Error(err))
	}
	if s.db != nil {
		if rerr := s.db.InsertRun(res.Run, reviewRows(res.Report), append(extra, noticeRows(res.Report)...)); rerr != nil {
			return res, errors.Join(err, fmt.Errorf("record run: %w", rerr))
		}
	}
	return res, err
}

func (s *Service) run(ctx context.Context, paths []string, opts Options, res *Result, extra *[]internal.NoticeRow, logger *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if res.Run.AHJ == "" {
		return pipeline.ErrMissingAHJ
	}

	res.Merge = sheet.LoadFiles(paths, logger)
	for _, f := range res.Merge.Files {
		if f.Status == sheet.FileLoaded {
			res.Run.FilesLoaded++
			continue
		}
		res.Run.FilesSkipped++
		msg := fmt.Sprintf("%s skipped: %s", filepath.Base(f.Path), f.Status)
		if f.Err != nil {
			msg = fmt.Sprintf("%s skipped: %v", filepath.Base(f.Path), f.Err)
		}
		*extra = append(*extra, internal.NoticeRow{Stage: "load", Level: "warn", Message: msg})
	}
	if res.Merge.Warning != "" {
		*extra = append(*extra, internal.NoticeRow{Stage: "load", Level: "warn", Message: res.Merge.Warning})
	}

	raw := res.Merge.Table
	if opts.Filter != nil {
		filtered, removed, err := pipeline.FilterRows(raw, opts.Filter.Column, opts.Filter.Keep...)
		if err != nil {
			return err
		}
		raw, res.Removed = filtered, removed
		*extra = append(*extra, internal.NoticeRow{
			Stage:   "filter",
			Level:   "info",
			Message: fmt.Sprintf("%d rows removed, %d kept by %s", removed, filtered.Len(), opts.Filter.Column),
		})
	}

	out, report, err := s.normalizer.Run(raw, res.Run.AHJ)
	res.Report = report
	if err != nil {
		return err
	}
	res.Run.RowsIn = report.RowsIn
	res.Run.RowsOut = report.RowsOut
	res.Run.Pivoted = report.Pivoted
	res.Run.OverflowDropped = report.OverflowDropped
	res.Run.DuplicatesRemoved = report.DuplicatesRemoved

	path := opts.Output
	if path == "" {
		path = s.cfg.OutputPath(res.Run.AHJ)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sheet.Write(out, path, s.cfg.OutputSheet); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	res.Run.OutputPath = path
	res.Table = out
	logger.Info("run finished", zap.String("output", path), zap.Int("rows", out.Len()))
	return nil
}

// RunFolder normalizes every export in dir. The AHJ defaults to the folder
// name.
func (s *Service) RunFolder(ctx context.Context, dir string, opts Options) (Result, error) {
	if opts.Mode == "" {
		opts.Mode = internal.RunFolder
	}
	if strings.TrimSpace(opts.AHJ) == "" {
		opts.AHJ = filepath.Base(filepath.Clean(dir))
	}
	paths, err := sheet.ListFiles(dir, opts.Extensions...)
	if err != nil {
		return Result{}, err
	}
	return s.RunFiles(ctx, paths, opts)
}

// BatchResult pairs an AHJ with the outcome of its run.
type BatchResult struct {
	AHJ    string
	Result Result
	Err    error
}

// RunBatch runs every AHJ folder under root, or only the named ones, with
// at most BATCH_WORKERS runs at a time. One AHJ failing does not stop the
// others; only cancellation of ctx fails the batch.
func (s *Service) RunBatch(ctx context.Context, root string, ahjs []string, opts Options) ([]BatchResult, error) {
	if len(ahjs) == 0 {
		var err error
		if ahjs, err = subfolders(root); err != nil {
			return nil, err
		}
	}

	results := make([]BatchResult, len(ahjs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.cfg.BatchWorkers))
	for i, ahj := range ahjs {
		i, ahj := i, ahj
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o := opts
			o.AHJ = ahj
			o.Output = ""
			res, err := s.RunFolder(gctx, filepath.Join(root, ahj), o)
			results[i] = BatchResult{AHJ: ahj, Result: res, Err: err}
			if err != nil {
				s.logger.Warn("ahj failed", zap.String("ahj", ahj), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func subfolders(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func reviewRows(r pipeline.Report) []internal.ReviewValueRow {
	var out []internal.ReviewValueRow
	for _, v := range r.Unmapped() {
		out = append(out, internal.ReviewValueRow{AHJ: r.AHJ, Domain: string(v.Domain), Value: v.Value, Count: v.Count})
	}
	return out
}

func noticeRows(r pipeline.Report) []internal.NoticeRow {
	out := make([]internal.NoticeRow, 0, len(r.Notices))
	for _, n := range r.Notices {
		out = append(out, internal.NoticeRow{Stage: n.Stage, Level: n.Level.String(), Message: n.Message})
	}
	return out
}
