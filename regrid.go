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
	"errors"
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// Aggregation is a block reduction used by Coarsen.
type Aggregation string

// These are the supported aggregations.
const (
	Mean Aggregation = "mean"
	Sum  Aggregation = "sum"
)

// Errors returned by Coarsen.
var (
	ErrMissingDims    = errors.New("iconkit: field must have both the longitude and latitude dimensions")
	ErrTargetTooLarge = errors.New("iconkit: target size larger than source size; use interpolation instead")
	ErrFactor         = errors.New("iconkit: computed coarsen factor < 1; cannot coarsen")
	ErrNotDivisible   = errors.New("iconkit: source dimensions not divisible by target and cropping is disabled")
	ErrAggregation    = errors.New("iconkit: unsupported aggregation; choose 'mean' or 'sum'")
)

// CoarsenOptions configures Coarsen.
type CoarsenOptions struct {
	LonDim, LatDim string
	Agg            Aggregation

	// Crop specifies whether sizes that are not a multiple of the target
	// are cropped symmetrically. If false such sizes are an error.
	Crop bool
}

// DefaultCoarsenOptions returns the options for a mean over "lon" and
// "lat" with cropping enabled.
func DefaultCoarsenOptions() CoarsenOptions {
	return CoarsenOptions{LonDim: "lon", LatDim: "lat", Agg: Mean, Crop: true}
}

// Coarsen regrids f to targetY latitudes by targetX longitudes by
// aggregating rectangular blocks of cells. NaN cells are skipped; a block
// with no valid cells is NaN for Mean and 0 for Sum. Dimensions other than
// longitude and latitude are kept. Coordinates of the output blocks are the
// mean of the input coordinates they cover.
func Coarsen(f *Field, targetX, targetY int, opts CoarsenOptions) (*Field, error) {
	latAxis, lonAxis := f.DimIndex(opts.LatDim), f.DimIndex(opts.LonDim)
	if latAxis < 0 || lonAxis < 0 {
		return nil, fmt.Errorf("%w: want '%s' and '%s', have %v", ErrMissingDims, opts.LatDim, opts.LonDim, f.Dims)
	}
	if opts.Agg != Mean && opts.Agg != Sum {
		return nil, fmt.Errorf("%w: '%s'", ErrAggregation, opts.Agg)
	}
	nlat, nlon := f.Data.Shape[latAxis], f.Data.Shape[lonAxis]
	if nlat < targetY || nlon < targetX {
		return nil, fmt.Errorf("%w: source %dx%d, target %dx%d", ErrTargetTooLarge, nlon, nlat, targetX, targetY)
	}
	if targetX < 1 || targetY < 1 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrFactor, targetX, targetY)
	}
	factorLat, factorLon := nlat/targetY, nlon/targetX
	if factorLat < 1 || factorLon < 1 {
		return nil, ErrFactor
	}

	newNLat, newNLon := factorLat*targetY, factorLon*targetX
	var latStart, lonStart int
	if newNLat != nlat || newNLon != nlon {
		if !opts.Crop {
			return nil, fmt.Errorf("%w: source %dx%d, target %dx%d", ErrNotDivisible, nlon, nlat, targetX, targetY)
		}
		latStart = (nlat - newNLat) / 2
		lonStart = (nlon - newNLon) / 2
	}

	shape := append([]int(nil), f.Data.Shape...)
	shape[latAxis], shape[lonAxis] = targetY, targetX
	sum := sparse.ZerosDense(shape...)
	count := make([]int, len(sum.Elements))

	inStride := rowMajorStrides(f.Data.Shape)
	outStride := rowMajorStrides(shape)
	for i, v := range f.Data.Elements {
		if math.IsNaN(v) {
			continue
		}
		o := 0
		skip := false
		for axis, s := range inStride {
			idx := (i / s) % f.Data.Shape[axis]
			switch axis {
			case latAxis:
				idx -= latStart
				if idx < 0 || idx >= newNLat {
					skip = true
				}
				idx /= factorLat
			case lonAxis:
				idx -= lonStart
				if idx < 0 || idx >= newNLon {
					skip = true
				}
				idx /= factorLon
			}
			if skip {
				break
			}
			o += idx * outStride[axis]
		}
		if skip {
			continue
		}
		sum.Elements[o] += v
		count[o]++
	}
	if opts.Agg == Mean {
		for i, n := range count {
			if n == 0 {
				sum.Elements[i] = math.NaN()
			} else {
				sum.Elements[i] /= float64(n)
			}
		}
	}

	out := &Field{
		Name:       f.Name,
		Units:      f.Units,
		Dims:       append([]string(nil), f.Dims...),
		Data:       sum,
		Coords:     make(map[string][]float64, len(f.Coords)),
		CoordUnits: make(map[string]string, len(f.CoordUnits)),
		Attributes: f.Attributes,
		Time:       f.Time,
	}
	for k, v := range f.CoordUnits {
		out.CoordUnits[k] = v
	}
	for k, v := range f.Coords {
		switch {
		case k == opts.LatDim && len(v) == nlat:
			out.Coords[k] = blockMean(v[latStart:latStart+newNLat], factorLat)
		case k == opts.LonDim && len(v) == nlon:
			out.Coords[k] = blockMean(v[lonStart:lonStart+newNLon], factorLon)
		case k != opts.LatDim && k != opts.LonDim:
			out.Coords[k] = append([]float64(nil), v...)
		}
	}

	if out.Len(opts.LatDim) != targetY || out.Len(opts.LonDim) != targetX {
		return nil, fmt.Errorf("iconkit: regrid produced %dx%d, expected %dx%d",
			out.Len(opts.LonDim), out.Len(opts.LatDim), targetX, targetY)
	}
	return out, nil
}

// blockMean averages consecutive groups of factor values.
func blockMean(v []float64, factor int) []float64 {
	o := make([]float64, len(v)/factor)
	for i := range o {
		var s float64
		for _, x := range v[i*factor : (i+1)*factor] {
			s += x
		}
		o[i] = s / float64(factor)
	}
	return o
}

// rowMajorStrides returns the element stride of each axis.
func rowMajorStrides(shape []int) []int {
	s := make([]int, len(shape))
	n := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = n
		n *= shape[i]
	}
	return s
}
