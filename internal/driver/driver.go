// Package driver runs the per-file pipeline: load, parse, validate,
// re-print canonically, and optionally lower to a backend. Directory
// runs fan out over a bounded worker pool and report progress through
// a pipeline.Sink.
package driver

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"spirit/internal/diag"
	"spirit/internal/ir"
	"spirit/internal/pipeline"
	"spirit/internal/project"
	"spirit/internal/source"
	"spirit/internal/text"
)

// FileExt is the extension of textual IR files.
const FileExt = ".sir"

// Options configures a driver run.
type Options struct {
	Jobs           int
	MaxDiagnostics int
	Cache          *DiskCache
	Sink           pipeline.Sink
}

func (o Options) sink() pipeline.Sink {
	if o.Sink == nil {
		return pipeline.NopSink{}
	}
	return o.Sink
}

func (o Options) jobs() int {
	if o.Jobs > 0 {
		return o.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) maxDiagnostics() int {
	if o.MaxDiagnostics > 0 {
		return o.MaxDiagnostics
	}
	return 100
}

// FileResult is the outcome of the pipeline for one file.
type FileResult struct {
	Path      string
	FileID    source.FileID
	Module    *ir.Module // nil on failure or cache hit
	Canonical string
	Bag       *diag.Bag
	Err       error
	CacheHit  bool
	Elapsed   time.Duration
}

// ListFiles returns the sorted list of textual IR files under dir.
func ListFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, FileExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// CheckDir runs the pipeline over every file under dir in parallel.
// Per-file failures land in the results, not in the returned error.
func CheckDir(ctx context.Context, dir string, opts Options) (*source.FileSet, []FileResult, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	fileSet := source.NewFileSet()
	if len(files) == 0 {
		return fileSet, nil, nil
	}

	// The file set is not safe for concurrent mutation; preload before
	// fanning out.
	results := make([]FileResult, len(files))
	ids := make([]source.FileID, len(files))
	loaded := make([]bool, len(files))
	for i, path := range files {
		id, err := fileSet.Load(path)
		if err != nil {
			results[i] = FileResult{Path: path, Err: err, Bag: diag.NewBag(opts.maxDiagnostics())}
			opts.sink().OnEvent(pipeline.Event{File: path, Stage: pipeline.StageParse, Status: pipeline.StatusError, Err: err})
			continue
		}
		ids[i], loaded[i] = id, true
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(opts.jobs(), len(files)))
	for i, path := range files {
		if !loaded[i] {
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = checkOne(fileSet, ids[i], path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fileSet, results, err
	}
	return fileSet, results, nil
}

// CheckFile runs the pipeline for a single file.
func CheckFile(path string, opts Options) (*source.FileSet, FileResult) {
	fileSet := source.NewFileSet()
	id, err := fileSet.Load(path)
	if err != nil {
		return fileSet, FileResult{Path: path, Err: err, Bag: diag.NewBag(opts.maxDiagnostics())}
	}
	return fileSet, checkOne(fileSet, id, path, opts)
}

func checkOne(fileSet *source.FileSet, id source.FileID, path string, opts Options) FileResult {
	start := time.Now()
	sink := opts.sink()
	res := FileResult{
		Path:   path,
		FileID: id,
		Bag:    diag.NewBag(opts.maxDiagnostics()),
	}
	file := fileSet.Get(id)
	key := project.HashBytes(file.Content)

	if opts.Cache != nil {
		var payload CachePayload
		if ok, err := opts.Cache.Get(key, &payload); err == nil && ok &&
			payload.Schema == cacheSchemaVersion && payload.DiagCount == 0 {
			res.Canonical = payload.Canonical
			res.CacheHit = true
			res.Elapsed = time.Since(start)
			sink.OnEvent(pipeline.Event{File: path, Stage: pipeline.StagePrint, Status: pipeline.StatusCached, Elapsed: res.Elapsed})
			return res
		}
	}

	sink.OnEvent(pipeline.Event{File: path, Stage: pipeline.StageParse, Status: pipeline.StatusWorking})
	m, err := text.ParseModule(path, string(file.Content), ir.NewContext())
	if err != nil {
		var te *text.FromTextError
		if errors.As(err, &te) {
			res.Bag.Add(te.Diagnostic(id))
		}
		res.Err = err
		res.Elapsed = time.Since(start)
		sink.OnEvent(pipeline.Event{File: path, Stage: pipeline.StageParse, Status: pipeline.StatusError, Err: err, Elapsed: res.Elapsed})
		return res
	}
	res.Module = m

	sink.OnEvent(pipeline.Event{File: path, Stage: pipeline.StageValidate, Status: pipeline.StatusWorking})
	if err := ir.Validate(m); err != nil {
		res.Bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.ValBadModule,
			Message:  err.Error(),
			Primary:  source.Span{File: id},
		})
		res.Err = err
		res.Elapsed = time.Since(start)
		sink.OnEvent(pipeline.Event{File: path, Stage: pipeline.StageValidate, Status: pipeline.StatusError, Err: err, Elapsed: res.Elapsed})
		return res
	}

	sink.OnEvent(pipeline.Event{File: path, Stage: pipeline.StagePrint, Status: pipeline.StatusWorking})
	res.Canonical = text.PrintModule(m)
	if opts.Cache != nil {
		// Cache write failures only cost the next run time.
		_ = opts.Cache.Put(key, &CachePayload{
			Schema:    cacheSchemaVersion,
			Canonical: res.Canonical,
			DiagCount: res.Bag.Len(),
		})
	}
	res.Elapsed = time.Since(start)
	sink.OnEvent(pipeline.Event{File: path, Stage: pipeline.StagePrint, Status: pipeline.StatusDone, Elapsed: res.Elapsed})
	return res
}
