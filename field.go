/*
Copyright © 2025 the iconkit authors.
This file is part of iconkit.

iconkit is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

iconkit is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with iconkit.  If not, see <http://www.gnu.org/licenses/>.
*/

package iconkit

import (
	"fmt"
	"math"
	"time"

	"github.com/ctessum/sparse"
)

// Field holds one variable of a dataset in memory.
type Field struct {
	Name  string
	Units string

	// Dims are the dimension names, outermost first. Data.Shape
	// has the same length and order.
	Dims []string
	Data *sparse.DenseArray

	// Coords holds 1-D coordinate values for the dimensions that
	// have them, keyed by dimension name.
	Coords map[string][]float64

	// CoordUnits holds the units attribute of the coordinates.
	CoordUnits map[string]string

	// Attributes holds the variable attributes as read from the file.
	Attributes map[string]interface{}

	// Time is the timestamp of the selected time step, if a time
	// step was selected and the time coordinate could be decoded.
	Time time.Time
}

// NewField creates a field of zeros with the given dimensions
// and lengths.
func NewField(name string, dims []string, lengths []int) *Field {
	if len(dims) != len(lengths) {
		panic(fmt.Errorf("iconkit: %d dimensions but %d lengths", len(dims), len(lengths)))
	}
	return &Field{
		Name:       name,
		Dims:       append([]string(nil), dims...),
		Data:       sparse.ZerosDense(append([]int(nil), lengths...)...),
		Coords:     make(map[string][]float64),
		CoordUnits: make(map[string]string),
	}
}

// DimIndex returns the position of dimension dim, or -1.
func (f *Field) DimIndex(dim string) int {
	for i, d := range f.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// Len returns the length of dimension dim, or 0 if f doesn't have it.
func (f *Field) Len(dim string) int {
	i := f.DimIndex(dim)
	if i < 0 {
		return 0
	}
	return f.Data.Shape[i]
}

// Clone returns a deep copy of f.
func (f *Field) Clone() *Field {
	o := &Field{
		Name:       f.Name,
		Units:      f.Units,
		Dims:       append([]string(nil), f.Dims...),
		Data:       f.Data.Copy(),
		Coords:     make(map[string][]float64, len(f.Coords)),
		CoordUnits: make(map[string]string, len(f.CoordUnits)),
		Attributes: f.Attributes,
		Time:       f.Time,
	}
	for k, v := range f.Coords {
		o.Coords[k] = append([]float64(nil), v...)
	}
	for k, v := range f.CoordUnits {
		o.CoordUnits[k] = v
	}
	return o
}

// Select returns the slab of f at the given index along dim.
// The dimension is removed from the result.
func (f *Field) Select(dim string, index int) (*Field, error) {
	axis := f.DimIndex(dim)
	if axis < 0 {
		return nil, fmt.Errorf("iconkit: variable %s has no dimension %s", f.Name, dim)
	}
	n := f.Data.Shape[axis]
	if index < 0 || index >= n {
		return nil, fmt.Errorf("iconkit: index %d out of range for dimension %s of length %d", index, dim, n)
	}
	outer, inner := strides(f.Data.Shape, axis)
	shape := removeInt(f.Data.Shape, axis)
	data := sparse.ZerosDense(shape...)
	for o := 0; o < outer; o++ {
		src := (o*n + index) * inner
		copy(data.Elements[o*inner:(o+1)*inner], f.Data.Elements[src:src+inner])
	}
	out := &Field{
		Name:       f.Name,
		Units:      f.Units,
		Dims:       removeString(f.Dims, axis),
		Data:       data,
		Coords:     make(map[string][]float64, len(f.Coords)),
		CoordUnits: make(map[string]string, len(f.CoordUnits)),
		Attributes: f.Attributes,
		Time:       f.Time,
	}
	for k, v := range f.Coords {
		if k != dim {
			out.Coords[k] = v
		}
	}
	for k, v := range f.CoordUnits {
		if k != dim {
			out.CoordUnits[k] = v
		}
	}
	return out, nil
}

// Nearest selects the index along dim whose coordinate value is
// closest to value.
func (f *Field) Nearest(dim string, value float64) (*Field, error) {
	c, ok := f.Coords[dim]
	if !ok {
		return nil, fmt.Errorf("iconkit: variable %s has no coordinate for dimension %s", f.Name, dim)
	}
	return f.Select(dim, NearestIndex(c, value))
}

// NearestIndex returns the index of the element of c closest to value.
// Ties go to the lower index.
func NearestIndex(c []float64, value float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, v := range c {
		if d := math.Abs(v - value); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Squeeze returns f with all dimensions of length 1 removed.
func (f *Field) Squeeze() *Field {
	o := f
	for i := len(o.Dims) - 1; i >= 0; i-- {
		if o.Data.Shape[i] == 1 {
			o, _ = o.Select(o.Dims[i], 0)
		}
	}
	if o == f {
		return f.Clone()
	}
	return o
}

// Range returns the minimum and maximum of the non-NaN values in f.
// Both are NaN if there are no finite values.
func (f *Field) Range() (min, max float64) {
	return rangeOf(f.Data.Elements)
}

func rangeOf(v []float64) (min, max float64) {
	min, max = math.NaN(), math.NaN()
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		if math.IsNaN(min) || x < min {
			min = x
		}
		if math.IsNaN(max) || x > max {
			max = x
		}
	}
	return
}

// At returns the value of a 2-D field at row j, column i.
func (f *Field) At(j, i int) float64 {
	return f.Data.Elements[j*f.Data.Shape[1]+i]
}

// Check2D returns an error unless f has exactly two dimensions.
func (f *Field) Check2D() error {
	if len(f.Dims) != 2 {
		return fmt.Errorf("iconkit: variable %s has dimensions %v; need 2 after selection", f.Name, f.Dims)
	}
	return nil
}

// strides returns the number of elements before and after axis
// for a row-major array of the given shape.
func strides(shape []int, axis int) (outer, inner int) {
	outer, inner = 1, 1
	for i, s := range shape {
		if i < axis {
			outer *= s
		} else if i > axis {
			inner *= s
		}
	}
	return
}

func removeInt(s []int, i int) []int {
	o := make([]int, 0, len(s)-1)
	o = append(o, s[:i]...)
	return append(o, s[i+1:]...)
}

func removeString(s []string, i int) []string {
	o := make([]string, 0, len(s)-1)
	o = append(o, s[:i]...)
	return append(o, s[i+1:]...)
}
