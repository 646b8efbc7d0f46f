package omfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionResolve(t *testing.T) {
	shape := []uint64{3, 4, 5}

	tests := []struct {
		name string
		sel  Selection
		want []axis
	}{
		{
			name: "nil selects everything",
			sel:  nil,
			want: []axis{{0, 3, false}, {0, 4, false}, {0, 5, false}},
		},
		{
			name: "trailing dims default to full",
			sel:  Sel(At(1)),
			want: []axis{{1, 1, true}, {0, 4, false}, {0, 5, false}},
		},
		{
			name: "mixed",
			sel:  Sel(At(2), Range(1, 3), All()),
			want: []axis{{2, 1, true}, {1, 2, false}, {0, 5, false}},
		},
		{
			name: "negative index",
			sel:  Sel(At(-1), At(-4)),
			want: []axis{{2, 1, true}, {0, 1, true}, {0, 5, false}},
		},
		{
			name: "ellipsis in the middle",
			sel:  Sel(At(0), Ellipsis(), At(4)),
			want: []axis{{0, 1, true}, {0, 4, false}, {4, 1, true}},
		},
		{
			name: "leading ellipsis",
			sel:  Sel(Ellipsis(), Range(0, 2)),
			want: []axis{{0, 3, false}, {0, 4, false}, {0, 2, false}},
		},
		{
			name: "empty range",
			sel:  Sel(Range(2, 2)),
			want: []axis{{2, 0, false}, {0, 4, false}, {0, 5, false}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.sel.resolve(shape)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectionResolveErrors(t *testing.T) {
	shape := []uint64{3, 4, 5}

	tests := []struct {
		name string
		sel  Selection
	}{
		{name: "index out of bounds", sel: Sel(At(3))},
		{name: "negative out of bounds", sel: Sel(At(-4))},
		{name: "range out of bounds", sel: Sel(Range(0, 6))},
		{name: "step not supported", sel: Sel(Step(0, 3, 2))},
		{name: "too many dims", sel: Sel(All(), All(), All(), All())},
		{name: "double ellipsis", sel: Sel(Ellipsis(), Ellipsis())},
		{name: "reversed range", sel: Sel(Range(3, 1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.sel.resolve(shape)
			var selErr *SelectionError
			require.ErrorAs(t, err, &selErr)
		})
	}
}

func TestOutputShape(t *testing.T) {
	axes := []axis{{1, 1, true}, {0, 4, false}, {2, 1, false}}
	assert.Equal(t, []uint64{4, 1}, outputShape(axes))

	all := []axis{{0, 1, true}, {0, 1, true}}
	assert.Empty(t, outputShape(all))
}
