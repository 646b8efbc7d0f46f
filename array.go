package omfile

import "github.com/hupe1980/omfile/format"

// Array is the decoded result of a read: a row-major buffer plus its shape.
type Array[T format.Element] struct {
	shape []uint64
	data  []T
}

// Shape returns the array dimensions. A scalar selection over every
// dimension yields an empty shape and a single element.
func (a *Array[T]) Shape() []uint64 { return a.shape }

// Data returns the elements in row-major order.
func (a *Array[T]) Data() []T { return a.data }

// Len returns the number of elements.
func (a *Array[T]) Len() int { return len(a.data) }

// At returns the element at the given multi-dimensional index.
func (a *Array[T]) At(indices ...uint64) T {
	if len(indices) != len(a.shape) {
		panic("omfile: index rank does not match array shape")
	}
	var pos uint64
	for i, idx := range indices {
		if idx >= a.shape[i] {
			panic("omfile: array index out of range")
		}
		pos = pos*a.shape[i] + idx
	}
	return a.data[pos]
}
