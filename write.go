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
	"io"
	"math"
	"os"
	"sort"

	"github.com/ctessum/cdf"
)

// defaultFill is the NetCDF default fill value for type FLOAT.
const defaultFill float32 = 9.9692099683868690e+36

// skipAttributes are not copied when writing, because the data has
// already been unpacked or the attribute is written separately.
var skipAttributes = map[string]bool{
	"units":         true,
	"_FillValue":    true,
	"missing_value": true,
	"scale_factor":  true,
	"add_offset":    true,
}

// WriteFields writes the given fields, and the coordinate variables of
// their dimensions, to a new NetCDF classic file at path. Fields sharing
// a dimension must agree on its length. NaN values are written as the
// fill value.
func WriteFields(path string, fields ...*Field) error {
	if len(fields) == 0 {
		return fmt.Errorf("iconkit: no fields to write to %s", path)
	}
	lengths := make(map[string]int)
	coords := make(map[string][]float64)
	coordUnits := make(map[string]string)
	var dimNames []string
	for _, f := range fields {
		for i, d := range f.Dims {
			l := f.Data.Shape[i]
			if ll, ok := lengths[d]; ok {
				if ll != l {
					return fmt.Errorf("iconkit: dimension %s has length %d in %s but %d elsewhere", d, l, f.Name, ll)
				}
				continue
			}
			lengths[d] = l
			dimNames = append(dimNames, d)
			if c, ok := f.Coords[d]; ok && len(c) == l {
				coords[d] = c
				if u, ok := f.CoordUnits[d]; ok {
					coordUnits[d] = u
				}
			}
		}
	}
	dimLengths := make([]int, len(dimNames))
	for i, d := range dimNames {
		dimLengths[i] = lengths[d]
	}

	h := cdf.NewHeader(dimNames, dimLengths)
	h.AddAttribute("", "source", "iconkit")

	coordNames := make([]string, 0, len(coords))
	for d := range coords {
		coordNames = append(coordNames, d)
	}
	sort.Strings(coordNames)
	for _, d := range coordNames {
		h.AddVariable(d, []string{d}, []float64{0})
		if u, ok := coordUnits[d]; ok {
			h.AddAttribute(d, "units", u)
		}
	}
	for _, f := range fields {
		if _, ok := coords[f.Name]; ok {
			return fmt.Errorf("iconkit: variable name %s clashes with a coordinate", f.Name)
		}
		h.AddVariable(f.Name, f.Dims, []float32{0})
		if f.Units != "" {
			h.AddAttribute(f.Name, "units", f.Units)
		}
		h.AddAttribute(f.Name, "_FillValue", []float32{defaultFill})
		names := make([]string, 0, len(f.Attributes))
		for a := range f.Attributes {
			names = append(names, a)
		}
		sort.Strings(names)
		for _, a := range names {
			if s, ok := f.Attributes[a].(string); ok && !skipAttributes[a] {
				h.AddAttribute(f.Name, a, s)
			}
		}
	}
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return fmt.Errorf("iconkit: invalid NetCDF header for %s: %v", path, errs[0])
	}

	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("iconkit: creating %s: %v", path, err)
	}
	defer w.Close()
	cf, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return fmt.Errorf("iconkit: writing header of %s: %v", path, err)
	}
	for _, d := range coordNames {
		if err := writeVar(cf, d, coords[d]); err != nil {
			return fmt.Errorf("iconkit: writing coordinate %s: %v", d, err)
		}
	}
	for _, f := range fields {
		data32 := make([]float32, len(f.Data.Elements))
		for i, v := range f.Data.Elements {
			if math.IsNaN(v) {
				data32[i] = defaultFill
			} else {
				data32[i] = float32(v)
			}
		}
		if err := writeVar(cf, f.Name, data32); err != nil {
			return fmt.Errorf("iconkit: writing variable %s to %s: %v", f.Name, path, err)
		}
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		return err
	}
	return w.Close()
}

// writeVar writes all of variable v. The writer returns io.EOF once the
// last element is written.
func writeVar(cf *cdf.File, v string, data interface{}) error {
	if _, err := cf.Writer(v, nil, nil).Write(data); err != nil && err != io.EOF {
		return err
	}
	return nil
}
