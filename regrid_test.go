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
	"math"
	"reflect"
	"testing"
)

func TestCoarsenMean(t *testing.T) {
	f := testField("t2m", []string{"lat", "lon"}, []int{4, 6})
	f.Coords["lat"] = []float64{0, 1, 2, 3}
	f.Coords["lon"] = []float64{10, 11, 12, 13, 14, 15}
	f.CoordUnits["lat"] = "degrees_north"

	o, err := Coarsen(f, 3, 2, DefaultCoarsenOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(o.Data.Shape, []int{2, 3}) {
		t.Fatalf("shape: have %v", o.Data.Shape)
	}
	// Block (0,0) holds 0, 1, 6, 7.
	want := []float64{3.5, 5.5, 7.5, 15.5, 17.5, 19.5}
	if !reflect.DeepEqual(o.Data.Elements, want) {
		t.Errorf("data: have %v, want %v", o.Data.Elements, want)
	}
	if want := []float64{0.5, 2.5}; !reflect.DeepEqual(o.Coords["lat"], want) {
		t.Errorf("lat: have %v, want %v", o.Coords["lat"], want)
	}
	if want := []float64{10.5, 12.5, 14.5}; !reflect.DeepEqual(o.Coords["lon"], want) {
		t.Errorf("lon: have %v, want %v", o.Coords["lon"], want)
	}
	if o.CoordUnits["lat"] != "degrees_north" {
		t.Errorf("coordinate units not kept: %v", o.CoordUnits)
	}
}

func TestCoarsenCrop(t *testing.T) {
	// 5 latitudes onto 2 crops one row after; 7 longitudes onto 3 crops
	// none before and one after.
	f := testField("x", []string{"lat", "lon"}, []int{5, 7})
	f.Coords["lat"] = []float64{0, 1, 2, 3, 4}
	o, err := Coarsen(f, 3, 2, DefaultCoarsenOptions())
	if err != nil {
		t.Fatal(err)
	}
	if o.Len("lat") != 2 || o.Len("lon") != 3 {
		t.Fatalf("shape: have %v", o.Data.Shape)
	}
	// Block (0,0) holds 0, 1, 7, 8.
	want := []float64{4, 6, 8, 18, 20, 22}
	if !reflect.DeepEqual(o.Data.Elements, want) {
		t.Errorf("data: have %v, want %v", o.Data.Elements, want)
	}
	if want := []float64{0.5, 2.5}; !reflect.DeepEqual(o.Coords["lat"], want) {
		t.Errorf("lat: have %v, want %v", o.Coords["lat"], want)
	}

	// 10 latitudes onto 4 with factor 2 drops one row on each side.
	g := testField("x", []string{"lat", "lon"}, []int{10, 1})
	o, err = Coarsen(g, 1, 4, DefaultCoarsenOptions())
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{1.5, 3.5, 5.5, 7.5}; !reflect.DeepEqual(o.Data.Elements, want) {
		t.Errorf("symmetric crop: have %v, want %v", o.Data.Elements, want)
	}
}

func TestCoarsenSumNaN(t *testing.T) {
	f := NewField("tp", []string{"lat", "lon"}, []int{2, 4})
	nan := math.NaN()
	copy(f.Data.Elements, []float64{1, nan, nan, nan, 2, 3, nan, nan})

	opts := DefaultCoarsenOptions()
	opts.Agg = Sum
	o, err := Coarsen(f, 2, 1, opts)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{6, 0}; !reflect.DeepEqual(o.Data.Elements, want) {
		t.Errorf("sum: have %v, want %v", o.Data.Elements, want)
	}

	o, err = Coarsen(f, 2, 1, DefaultCoarsenOptions())
	if err != nil {
		t.Fatal(err)
	}
	if o.Data.Elements[0] != 2 || !math.IsNaN(o.Data.Elements[1]) {
		t.Errorf("mean: have %v, want [2 NaN]", o.Data.Elements)
	}
}

func TestCoarsenOtherDims(t *testing.T) {
	f := testField("t", []string{"time", "lon", "height", "lat"}, []int{2, 4, 3, 2})
	f.Coords["height"] = []float64{1, 2, 3}
	o, err := Coarsen(f, 2, 1, DefaultCoarsenOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(o.Data.Shape, []int{2, 2, 3, 1}) {
		t.Fatalf("shape: have %v", o.Data.Shape)
	}
	// time=0, lon block 0, height=0 averages lon 0,1 and lat 0,1:
	// indices 0, 1, 6, 7.
	if o.Data.Elements[0] != 3.5 {
		t.Errorf("have %g, want 3.5", o.Data.Elements[0])
	}
	if !reflect.DeepEqual(o.Coords["height"], []float64{1, 2, 3}) {
		t.Errorf("height coordinate: %v", o.Coords["height"])
	}
}

func TestCoarsenErrors(t *testing.T) {
	f := testField("x", []string{"lat", "lon"}, []int{5, 6})
	noCrop := DefaultCoarsenOptions()
	noCrop.Crop = false
	median := DefaultCoarsenOptions()
	median.Agg = "median"
	tests := []struct {
		name   string
		f      *Field
		x, y   int
		opts   CoarsenOptions
		target error
	}{
		{name: "missing dims", f: testField("x", []string{"y", "x"}, []int{2, 2}), x: 1, y: 1, opts: DefaultCoarsenOptions(), target: ErrMissingDims},
		{name: "too large", f: f, x: 7, y: 2, opts: DefaultCoarsenOptions(), target: ErrTargetTooLarge},
		{name: "zero target", f: f, x: 0, y: 2, opts: DefaultCoarsenOptions(), target: ErrFactor},
		{name: "not divisible", f: f, x: 3, y: 2, opts: noCrop, target: ErrNotDivisible},
		{name: "aggregation", f: f, x: 3, y: 5, opts: median, target: ErrAggregation},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Coarsen(test.f, test.x, test.y, test.opts)
			if !errors.Is(err, test.target) {
				t.Errorf("have error %v, want %v", err, test.target)
			}
		})
	}

	if _, err := Coarsen(f, 3, 5, noCrop); err != nil {
		t.Errorf("divisible sizes should not need cropping: %v", err)
	}
}
