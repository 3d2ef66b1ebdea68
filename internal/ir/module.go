package ir

// TargetProperties describes the integer widths underlying the
// target's pointer abstractions.
type TargetProperties struct {
	DataPointerWidth     IntWidth
	FunctionPointerWidth IntWidth
}

// DefaultTargetProperties returns the Int64/Int64 default.
func DefaultTargetProperties() TargetProperties {
	return TargetProperties{
		DataPointerWidth:     Int64,
		FunctionPointerWidth: Int64,
	}
}

// Module is an ordered list of functions plus target properties and one
// designated entry point.
type Module struct {
	Target     TargetProperties
	Funcs      []*Function
	EntryPoint *Function // non-owning reference into Funcs
}

// NewModule creates an empty module with the given target properties.
func NewModule(target TargetProperties) *Module {
	return &Module{Target: target}
}

// AddFunction appends f to the module.
func (m *Module) AddFunction(f *Function) {
	m.Funcs = append(m.Funcs, f)
}
