package arena

// KeyFunc produces a canonical key for a value. Two values must map to
// the same key iff they are structurally equal; the interner relies on
// this to collapse equal values to one pointer.
type KeyFunc[T any] func(*T) string

// Interner canonicalizes values of T: Intern returns the same *T for
// structurally equal inputs, so equality checks downstream become
// pointer comparisons. Storage is arena-backed and never moves.
type Interner[T any] struct {
	arena Arena[T]
	index map[string]*T
	key   KeyFunc[T]
}

// NewInterner constructs an interner using key for canonicalization.
func NewInterner[T any](key KeyFunc[T]) *Interner[T] {
	return &Interner[T]{
		index: make(map[string]*T, 64),
		key:   key,
	}
}

// Intern returns the canonical handle for v, allocating on first sight.
func (in *Interner[T]) Intern(v T) *T {
	k := in.key(&v)
	if p, ok := in.index[k]; ok {
		return p
	}
	p := in.arena.Alloc(v)
	in.index[k] = p
	return p
}

// Lookup returns the canonical handle for v without allocating.
func (in *Interner[T]) Lookup(v T) (*T, bool) {
	p, ok := in.index[in.key(&v)]
	return p, ok
}

// Len returns the number of distinct interned values.
func (in *Interner[T]) Len() int {
	return len(in.index)
}
