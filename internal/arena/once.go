package arena

// Once is a define-once cell for late-bound fields (a function's locals,
// a value's resolved constant). The second Set panics: a double write
// means the builder itself is inconsistent, not that the input was bad.
type Once[T any] struct {
	value T
	ok    bool
}

// Set stores v. Panics if the cell was already set.
func (o *Once[T]) Set(v T) {
	if o.ok {
		panic("arena: Once cell set twice")
	}
	o.value = v
	o.ok = true
}

// Get returns the stored value and whether it was set.
func (o *Once[T]) Get() (T, bool) {
	return o.value, o.ok
}

// MustGet panics when the cell is still unset.
func (o *Once[T]) MustGet() T {
	if !o.ok {
		panic("arena: Once cell read before set")
	}
	return o.value
}

// IsSet reports whether the cell holds a value.
func (o *Once[T]) IsSet() bool {
	return o.ok
}
