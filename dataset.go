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
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Dimension is a named NetCDF dimension.
type Dimension struct {
	Name      string
	Len       int
	Unlimited bool
}

// Dataset is an open NetCDF classic or 64-bit offset file, such as the
// output of `cdo -f nc copy`.
type Dataset struct {
	Path string

	f    *os.File
	cf   *cdf.File
	nrec int
}

var hdf5Magic = []byte("\x89HDF")

// Open opens the NetCDF file at path for reading.
func Open(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("iconkit: opening dataset: %v", err)
	}
	magic := make([]byte, 4)
	if _, err := f.ReadAt(magic, 0); err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("iconkit: reading %s: %v", path, err)
	}
	if bytes.Equal(magic, hdf5Magic) {
		f.Close()
		return nil, fmt.Errorf("iconkit: %s is a NetCDF-4/HDF5 file; convert it to NetCDF classic first (cdo -f nc copy)", path)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("iconkit: reading NetCDF header of %s: %v", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("iconkit: %v", err)
	}
	return &Dataset{
		Path: path,
		f:    f,
		cf:   cf,
		nrec: int(cf.Header.NumRecs(fi.Size())),
	}, nil
}

// Close closes the underlying file.
func (ds *Dataset) Close() error { return ds.f.Close() }

// Variables returns the names of all variables in the file, in file order.
func (ds *Dataset) Variables() []string { return ds.cf.Header.Variables() }

// HasVariable reports whether the file contains variable v.
func (ds *Dataset) HasVariable(v string) bool {
	for _, vv := range ds.cf.Header.Variables() {
		if vv == v {
			return true
		}
	}
	return false
}

// Dimensions returns the dimensions of the file. The length of the
// record dimension is the number of records in the file.
func (ds *Dataset) Dimensions() []Dimension {
	h := ds.cf.Header
	names := h.Dimensions("")
	lengths := h.Lengths("")
	o := make([]Dimension, len(names))
	for i, n := range names {
		o[i] = Dimension{Name: n, Len: lengths[i]}
		if lengths[i] == 0 {
			o[i].Len = ds.nrec
			o[i].Unlimited = true
		}
	}
	return o
}

// VariableDims returns the dimension names and lengths of variable v.
func (ds *Dataset) VariableDims(v string) ([]string, []int, error) {
	if !ds.HasVariable(v) {
		return nil, nil, fmt.Errorf("iconkit: variable '%s' not found in %s", v, ds.Path)
	}
	h := ds.cf.Header
	lengths := append([]int(nil), h.Lengths(v)...)
	if h.IsRecordVariable(v) {
		lengths[0] = ds.nrec
	}
	return h.Dimensions(v), lengths, nil
}

// GlobalAttributes returns the global attributes of the file.
func (ds *Dataset) GlobalAttributes() map[string]interface{} { return ds.Attributes("") }

// Attributes returns the attributes of variable v.
func (ds *Dataset) Attributes(v string) map[string]interface{} {
	h := ds.cf.Header
	names := h.Attributes(v)
	o := make(map[string]interface{}, len(names))
	for _, a := range names {
		o[a] = h.GetAttribute(v, a)
	}
	return o
}

// AttributeNames returns the attribute names of variable v, or of the
// file if v is empty, in file order.
func (ds *Dataset) AttributeNames(v string) []string { return ds.cf.Header.Attributes(v) }

// Read reads the whole of variable v. Fill and missing values are
// replaced with NaN and packing attributes are applied. Coordinates are
// attached for every dimension with a same-named 1-D variable.
func (ds *Dataset) Read(v string) (*Field, error) {
	f, err := ds.readRaw(v)
	if err != nil {
		return nil, err
	}
	for _, d := range f.Dims {
		if d == v || !ds.HasVariable(d) {
			continue
		}
		cdims, _, err := ds.VariableDims(d)
		if err != nil || len(cdims) != 1 || cdims[0] != d {
			continue
		}
		c, err := ds.readRaw(d)
		if err != nil {
			return nil, err
		}
		f.Coords[d] = c.Data.Elements
		if c.Units != "" {
			f.CoordUnits[d] = c.Units
		}
	}
	return f, nil
}

// ReadStep reads variable v and selects the given index along dimension
// dim, which is removed from the result. If the coordinate of dim carries
// CF time units, the selected time is decoded into Field.Time.
func (ds *Dataset) ReadStep(v, dim string, index int) (*Field, error) {
	f, err := ds.Read(v)
	if err != nil {
		return nil, err
	}
	if c, ok := f.Coords[dim]; ok && index >= 0 && index < len(c) {
		if units, ok := f.CoordUnits[dim]; ok {
			if t, err := DecodeTime(c[index], units); err == nil {
				f.Time = t
			}
		}
	}
	o, err := f.Select(dim, index)
	if err != nil {
		return nil, err
	}
	o.Time = f.Time
	return o, nil
}

// ReadFirstStep reads variable v, selecting the first time step if v
// has a time dimension, and removes any dimensions of length one.
func (ds *Dataset) ReadFirstStep(v string) (*Field, error) {
	dims, _, err := ds.VariableDims(v)
	if err != nil {
		return nil, err
	}
	for _, d := range dims {
		if d == "time" {
			f, err := ds.ReadStep(v, "time", 0)
			if err != nil {
				return nil, err
			}
			return f.Squeeze(), nil
		}
	}
	f, err := ds.Read(v)
	if err != nil {
		return nil, err
	}
	return f.Squeeze(), nil
}

func (ds *Dataset) readRaw(v string) (*Field, error) {
	dims, lengths, err := ds.VariableDims(v)
	if err != nil {
		return nil, err
	}
	n := 1
	for _, l := range lengths {
		n *= l
	}
	f := &Field{
		Name:       v,
		Dims:       dims,
		Data:       sparse.ZerosDense(lengths...),
		Coords:     make(map[string][]float64),
		CoordUnits: make(map[string]string),
		Attributes: ds.Attributes(v),
	}
	if u, ok := f.Attributes["units"].(string); ok {
		f.Units = u
	}
	if n == 0 {
		return f, nil
	}
	begin := make([]int, len(lengths))
	end := make([]int, len(lengths))
	for i, l := range lengths {
		end[i] = l - 1
	}
	r := ds.cf.Reader(v, begin, end)
	if r == nil {
		return nil, fmt.Errorf("iconkit: variable '%s' not found in %s", v, ds.Path)
	}
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("iconkit: reading variable %s from %s: %v", v, ds.Path, err)
	}
	if err := toFloat64(f.Data.Elements, buf); err != nil {
		return nil, fmt.Errorf("iconkit: variable %s: %v", v, err)
	}

	missing := []float64{}
	if fv, ok := scalarFloat(ds.cf.Header.FillValue(v)); ok {
		missing = append(missing, fv)
	}
	if mv, ok := attrFloat(f.Attributes["missing_value"]); ok {
		missing = append(missing, mv)
	}
	scale, hasScale := attrFloat(f.Attributes["scale_factor"])
	offset, hasOffset := attrFloat(f.Attributes["add_offset"])
	for i, x := range f.Data.Elements {
		for _, m := range missing {
			if x == m {
				x = math.NaN()
				break
			}
		}
		if hasScale {
			x *= scale
		}
		if hasOffset {
			x += offset
		}
		f.Data.Elements[i] = x
	}
	return f, nil
}

// toFloat64 copies the NetCDF read buffer into dst.
func toFloat64(dst []float64, buf interface{}) error {
	switch b := buf.(type) {
	case []float32:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []float64:
		copy(dst, b)
	case []int32:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []int16:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []uint8:
		for i, v := range b {
			dst[i] = float64(v)
		}
	default:
		return fmt.Errorf("unsupported data type %T", buf)
	}
	return nil
}

func scalarFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case int32:
		return float64(x), true
	case int16:
		return float64(x), true
	case uint8:
		return float64(x), true
	}
	return 0, false
}

// attrFloat returns the first value of a numeric attribute.
func attrFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case []float32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []float64:
		if len(x) > 0 {
			return x[0], true
		}
	case []int32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []int16:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	}
	return 0, false
}
