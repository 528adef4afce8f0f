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

import "testing"

func TestGeometricHeight(t *testing.T) {
	z := NewField("z", []string{"height", "lon"}, []int{1, 3})
	copy(z.Data.Elements, []float64{0, 9800, 98000})
	z.Units = "m2 s-2"
	h, err := GeometricHeight(z)
	if err != nil {
		t.Fatal(err)
	}
	const r = 6371.0e3
	want := []float64{0, 1000 * r / (r - 1000), 10000 * r / (r - 10000)}
	for i, w := range want {
		if different(h.Data.Elements[i], w, 1e-12) {
			t.Errorf("element %d: have %g, want %g", i, h.Data.Elements[i], w)
		}
	}
	if h.Units != "m" {
		t.Errorf("units: have %s", h.Units)
	}
	if z.Data.Elements[1] != 9800 {
		t.Error("input modified")
	}
}
