package ir

import (
	"errors"
	"fmt"
)

// Validate checks module invariants. Returns a joined error describing
// every violation found, or nil.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error

	if m.EntryPoint == nil {
		errs = append(errs, errors.New("module has no entry point"))
	} else {
		found := false
		for _, f := range m.Funcs {
			if f == m.EntryPoint {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Errorf("entry point %q is not a module function", m.EntryPoint.Name))
		}
	}

	for _, f := range m.Funcs {
		if err := validateFunc(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

func validateFunc(f *Function) error {
	var errs []error

	if f.Body == nil {
		return errors.New("missing body")
	}
	if f.Type == nil || f.Type.Kind != TypeFunction {
		errs = append(errs, errors.New("function type is not a function pointer type"))
	} else {
		// Derived-by-construction, but a hand-assembled Function can
		// still disagree.
		if len(f.Type.Fn.Args) != len(f.Entry.Args) {
			errs = append(errs, fmt.Errorf("type lists %d arguments, entry has %d", len(f.Type.Fn.Args), len(f.Entry.Args)))
		} else {
			for i, a := range f.Entry.Args {
				if f.Type.Fn.Args[i] != a.Value.Type {
					errs = append(errs, fmt.Errorf("argument %d type mismatch", i))
				}
			}
		}
	}

	if err := validateBlock(f.Body); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validateBlock(b *Block) error {
	var errs []error
	for i := range b.Body {
		if err := validateInstr(&b.Body[i]); err != nil {
			errs = append(errs, fmt.Errorf("block %s, instruction %d: %w", b.Name, i, err))
		}
	}
	return errors.Join(errs...)
}

func validateInstr(in *Instruction) error {
	switch in.Kind {
	case InstrSimple:
		info := in.Simple.Op.Info()
		if len(in.Simple.Args) != info.Args {
			return fmt.Errorf("%s takes %d arguments, got %d", info.Name, info.Args, len(in.Simple.Args))
		}
		if len(in.Simple.Results) != info.Results {
			return fmt.Errorf("%s produces %d results, got %d", info.Name, info.Results, len(in.Simple.Results))
		}
		if in.Simple.Op == OpConst && in.Simple.Const == nil {
			return errors.New("const instruction without a literal")
		}
		return nil
	case InstrBlock:
		return validateBlock(in.Block)
	case InstrLoop:
		loop := in.Loop
		if len(loop.Arguments) != len(loop.Header.Args) {
			return fmt.Errorf("loop %s: %d arguments for %d parameters", loop.Name, len(loop.Arguments), len(loop.Header.Args))
		}
		for i, a := range loop.Arguments {
			if a.Type() != loop.Header.Args[i].Value.Type {
				return fmt.Errorf("loop %s: argument %d type mismatch", loop.Name, i)
			}
		}
		return validateBlock(loop.Body)
	case InstrContinue:
		return validateContinue(&in.Continue)
	case InstrBreak:
		return validateBreak(&in.Break)
	case InstrBranch:
		if in.Branch.Cond.Type().Kind != TypeBool {
			return errors.New("branch condition must be bool")
		}
		if err := validateBreak(&in.Branch.True); err != nil {
			return err
		}
		return validateBreak(&in.Branch.False)
	default:
		return fmt.Errorf("unknown instruction kind %d", in.Kind)
	}
}

func validateBreak(br *BreakBlock) error {
	if br.Block == nil {
		return errors.New("break without a target block")
	}
	results, ok := br.Block.Results.Get()
	if !ok {
		if len(br.Args) != 0 {
			return fmt.Errorf("break %s: arguments for an uninhabited block", br.Block.Name)
		}
		return nil
	}
	if len(br.Args) != len(results) {
		return fmt.Errorf("break %s: %d arguments for %d results", br.Block.Name, len(br.Args), len(results))
	}
	for i, a := range br.Args {
		if a.Type() != results[i].Value.Type {
			return fmt.Errorf("break %s: argument %d type mismatch", br.Block.Name, i)
		}
	}
	return nil
}

func validateContinue(ct *ContinueLoop) error {
	if ct.Loop == nil {
		return errors.New("continue without a target loop")
	}
	params := ct.Loop.Header.Args
	if len(ct.Args) != len(params) {
		return fmt.Errorf("continue %s: %d arguments for %d parameters", ct.Loop.Name, len(ct.Args), len(params))
	}
	for i, a := range ct.Args {
		if a.Type() != params[i].Value.Type {
			return fmt.Errorf("continue %s: argument %d type mismatch", ct.Loop.Name, i)
		}
	}
	return nil
}
