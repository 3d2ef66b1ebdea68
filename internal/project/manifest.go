// Package project loads spirit.toml manifests and locates project
// roots.
package project

import (
	"fmt"
	"runtime"

	"github.com/BurntSushi/toml"

	"spirit/internal/ir"
)

// ManifestName is the manifest file a project root is identified by.
const ManifestName = "spirit.toml"

// Manifest is a parsed spirit.toml with defaults applied.
type Manifest struct {
	Package PackageSection `toml:"package"`
	Target  TargetSection  `toml:"target"`
	Build   BuildSection   `toml:"build"`
}

// PackageSection is the [package] table.
type PackageSection struct {
	Name   string `toml:"name"`
	Source string `toml:"source"`
}

// TargetSection is the [target] table. Widths are spelled like the
// textual IR types ("i32", "i64").
type TargetSection struct {
	DataPointerWidth     string `toml:"data_pointer_width"`
	FunctionPointerWidth string `toml:"function_pointer_width"`
}

// BuildSection is the [build] table.
type BuildSection struct {
	Jobs           int  `toml:"jobs"`
	MaxDiagnostics int  `toml:"max_diagnostics"`
	Cache          bool `toml:"cache"`
}

// DefaultManifest returns the manifest an empty spirit.toml denotes.
func DefaultManifest() Manifest {
	return Manifest{
		Package: PackageSection{Name: "spirit", Source: "."},
		Target: TargetSection{
			DataPointerWidth:     "i64",
			FunctionPointerWidth: "i64",
		},
		Build: BuildSection{
			Jobs:           0, // 0 = GOMAXPROCS
			MaxDiagnostics: 100,
			Cache:          true,
		},
	}
}

// LoadManifest parses path and applies defaults for omitted fields.
func LoadManifest(path string) (Manifest, error) {
	m := DefaultManifest()
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	for _, undecoded := range meta.Undecoded() {
		return Manifest{}, fmt.Errorf("%s: unknown key %q", path, undecoded.String())
	}
	if err := m.validate(path); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func (m *Manifest) validate(path string) error {
	if m.Package.Name == "" {
		return fmt.Errorf("%s: [package].name must not be empty", path)
	}
	if _, err := parseWidth(m.Target.DataPointerWidth); err != nil {
		return fmt.Errorf("%s: [target].data_pointer_width: %w", path, err)
	}
	if _, err := parseWidth(m.Target.FunctionPointerWidth); err != nil {
		return fmt.Errorf("%s: [target].function_pointer_width: %w", path, err)
	}
	if m.Build.Jobs < 0 {
		return fmt.Errorf("%s: [build].jobs must not be negative", path)
	}
	if m.Build.MaxDiagnostics <= 0 {
		return fmt.Errorf("%s: [build].max_diagnostics must be positive", path)
	}
	return nil
}

func parseWidth(s string) (ir.IntWidth, error) {
	switch s {
	case "i8":
		return ir.Int8, nil
	case "i16":
		return ir.Int16, nil
	case "i32":
		return ir.Int32, nil
	case "i64":
		return ir.Int64, nil
	}
	return 0, fmt.Errorf("unknown width %q", s)
}

// TargetProperties converts the [target] table to IR target properties.
// The manifest is already validated, so a bad width panics.
func (m *Manifest) TargetProperties() ir.TargetProperties {
	data, err := parseWidth(m.Target.DataPointerWidth)
	if err != nil {
		panic(err)
	}
	fn, err := parseWidth(m.Target.FunctionPointerWidth)
	if err != nil {
		panic(err)
	}
	return ir.TargetProperties{DataPointerWidth: data, FunctionPointerWidth: fn}
}

// EffectiveJobs resolves [build].jobs to a concrete worker count.
func (m *Manifest) EffectiveJobs() int {
	if m.Build.Jobs > 0 {
		return m.Build.Jobs
	}
	return runtime.GOMAXPROCS(0)
}
