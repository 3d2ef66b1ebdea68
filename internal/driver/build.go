package driver

import (
	"path/filepath"
	"strings"
	"time"

	"spirit/internal/backend"
	"spirit/internal/backend/llvm"
	"spirit/internal/lower"
	"spirit/internal/pipeline"
	"spirit/internal/source"
)

// BuildResult extends a pipeline run with backend output.
type BuildResult struct {
	FileResult
	Assembly string
}

// BuildFile checks path and lowers the module to LLVM assembly. A cache
// hit still re-lowers, since only the canonical text is cached.
func BuildFile(path string, opts Options) (*source.FileSet, BuildResult) {
	// Lowering needs the in-memory module, so bypass the check cache.
	checkOpts := opts
	checkOpts.Cache = nil
	fileSet, res := CheckFile(path, checkOpts)
	out := BuildResult{FileResult: res}
	if res.Err != nil {
		return fileSet, out
	}

	start := time.Now()
	opts.sink().OnEvent(pipeline.Event{File: path, Stage: pipeline.StageLower, Status: pipeline.StatusWorking})
	user := &lower.User{
		ModuleName: moduleName(path),
		Module:     res.Module,
	}
	code, err := llvm.NewCompiler[string]().Run(user, backend.Config{})
	if err != nil {
		out.Err = err
		opts.sink().OnEvent(pipeline.Event{File: path, Stage: pipeline.StageLower, Status: pipeline.StatusError, Err: err, Elapsed: time.Since(start)})
		return fileSet, out
	}
	out.Assembly = code.(*llvm.Code[string]).Text()
	opts.sink().OnEvent(pipeline.Event{File: path, Stage: pipeline.StageLower, Status: pipeline.StatusDone, Elapsed: time.Since(start)})
	return fileSet, out
}

func moduleName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), FileExt)
}
