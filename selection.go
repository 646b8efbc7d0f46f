package omfile

import "fmt"

type dimKind uint8

const (
	dimAll dimKind = iota
	dimAt
	dimRange
	dimEllipsis
)

// Dim selects along a single dimension of an array.
type Dim struct {
	kind  dimKind
	start int64
	end   int64
	step  int64
}

// Selection addresses a hyper-rectangle of an array, one Dim per dimension.
// Omitted trailing dimensions default to the full range.
type Selection []Dim

// Sel builds a Selection from per-dimension selectors.
func Sel(dims ...Dim) Selection { return Selection(dims) }

// At selects a single index. The dimension is squeezed from the result
// shape. Negative indices count from the end.
func At(i int64) Dim { return Dim{kind: dimAt, start: i} }

// Range selects the half-open interval [start, end).
func Range(start, end int64) Dim { return Dim{kind: dimRange, start: start, end: end, step: 1} }

// Step selects [start, end) with a stride. Strides other than 1 are
// rejected at read time.
func Step(start, end, step int64) Dim {
	return Dim{kind: dimRange, start: start, end: end, step: step}
}

// All selects the full extent of a dimension.
func All() Dim { return Dim{kind: dimAll} }

// Ellipsis stands in for any number of full-range dimensions. At most one
// may appear in a selection.
func Ellipsis() Dim { return Dim{kind: dimEllipsis} }

// axis is a resolved per-dimension selection.
type axis struct {
	start   uint64
	count   uint64
	squeeze bool
}

// resolve normalizes a selection against a concrete shape. Trailing
// dimensions are expanded to full ranges and a single ellipsis is widened
// to cover the unaddressed middle dimensions.
func (s Selection) resolve(shape []uint64) ([]axis, error) {
	explicit := 0
	ellipses := 0

	for _, d := range s {
		if d.kind == dimEllipsis {
			ellipses++
		} else {
			explicit++
		}
	}
	if ellipses > 1 {
		return nil, &SelectionError{Reason: "selection contains more than one ellipsis"}
	}
	if explicit > len(shape) {
		return nil, &SelectionError{Reason: fmt.Sprintf("selection has %d dimensions, array has %d", explicit, len(shape))}
	}

	axes := make([]axis, 0, len(shape))
	dim := 0

	for _, d := range s {
		if d.kind == dimEllipsis {
			for fill := len(shape) - explicit; fill > 0; fill-- {
				axes = append(axes, axis{start: 0, count: shape[dim]})
				dim++
			}
			continue
		}

		extent := shape[dim]
		ax, err := d.resolve(dim, extent)
		if err != nil {
			return nil, err
		}
		axes = append(axes, ax)
		dim++
	}

	// Omitted trailing dimensions select everything.
	for ; dim < len(shape); dim++ {
		axes = append(axes, axis{start: 0, count: shape[dim]})
	}

	return axes, nil
}

func (d Dim) resolve(dim int, extent uint64) (axis, error) {
	norm := func(i int64) (uint64, error) {
		if i < 0 {
			i += int64(extent)
		}
		if i < 0 || uint64(i) > extent {
			return 0, &SelectionError{Reason: fmt.Sprintf("index %d out of bounds for dimension %d of size %d", i, dim, extent)}
		}
		return uint64(i), nil
	}

	switch d.kind {
	case dimAll:
		return axis{start: 0, count: extent}, nil

	case dimAt:
		i, err := norm(d.start)
		if err != nil {
			return axis{}, err
		}
		if i == extent {
			return axis{}, &SelectionError{Reason: fmt.Sprintf("index %d out of bounds for dimension %d of size %d", d.start, dim, extent)}
		}
		return axis{start: i, count: 1, squeeze: true}, nil

	case dimRange:
		if d.step != 1 {
			return axis{}, &SelectionError{Reason: fmt.Sprintf("unsupported step %d for dimension %d, only step 1 is supported", d.step, dim)}
		}
		start, err := norm(d.start)
		if err != nil {
			return axis{}, err
		}
		end, err := norm(d.end)
		if err != nil {
			return axis{}, err
		}
		if end < start {
			return axis{}, &SelectionError{Reason: fmt.Sprintf("range end %d before start %d for dimension %d", d.end, d.start, dim)}
		}
		return axis{start: start, count: end - start}, nil

	default:
		return axis{}, &SelectionError{Reason: "malformed selection dimension"}
	}
}

// outputShape returns the result shape after squeezing scalar-index
// dimensions.
func outputShape(axes []axis) []uint64 {
	shape := make([]uint64, 0, len(axes))
	for _, ax := range axes {
		if ax.squeeze {
			continue
		}
		shape = append(shape, ax.count)
	}
	return shape
}
