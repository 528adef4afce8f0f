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

	"github.com/ctessum/unit"
)

var (
	// Gravity is the gravitational acceleration used to convert
	// geopotential to geopotential height.
	Gravity = unit.New(9.8, unit.Dimensions{unit.LengthDim: 1, unit.TimeDim: -2})

	// EarthRadius is the mean radius of the Earth.
	EarthRadius = unit.New(6371.0e3, unit.Meter)

	geopotentialDims = unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -2}
)

// GeometricHeight converts geopotential [m2 s-2] into geometric height
// above sea level [m]. The geopotential height z/g is corrected for the
// decrease of gravity with height as h = zg*R / (R - zg).
func GeometricHeight(z *Field) (*Field, error) {
	if err := unit.Div(unit.New(1, geopotentialDims), Gravity).Check(unit.Meter); err != nil {
		return nil, fmt.Errorf("iconkit: geopotential height: %v", err)
	}
	if err := EarthRadius.Check(unit.Meter); err != nil {
		return nil, fmt.Errorf("iconkit: earth radius: %v", err)
	}
	g, r := Gravity.Value(), EarthRadius.Value()

	o := z.Clone()
	o.Name = "height"
	o.Units = "m"
	for i, v := range o.Data.Elements {
		zg := v / g
		o.Data.Elements[i] = zg * r / (r - zg)
	}
	return o, nil
}
