package ir

// Inhabitable wraps a value that may instead be uninhabited: the result
// set of an instruction or block that never falls through. Distinct from
// "inhabited but empty" (a block producing zero values still returns).
type Inhabitable[T any] struct {
	value T
	ok    bool
}

// Inhabited wraps v.
func Inhabited[T any](v T) Inhabitable[T] {
	return Inhabitable[T]{value: v, ok: true}
}

// Uninhabited returns the never-returns marker.
func Uninhabited[T any]() Inhabitable[T] {
	return Inhabitable[T]{}
}

// Get returns the value and whether it is inhabited.
func (i Inhabitable[T]) Get() (T, bool) {
	return i.value, i.ok
}

// IsInhabited reports whether a value is present.
func (i Inhabitable[T]) IsInhabited() bool {
	return i.ok
}

// MustGet panics on an uninhabited value.
func (i Inhabitable[T]) MustGet() T {
	if !i.ok {
		panic("ir: value is uninhabited")
	}
	return i.value
}
