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
	"math"
	"strings"
	"testing"

	"github.com/kr/pretty"
)

const gridDescText = `# 500 m domain
gridtype = lonlat
xsize    = 4
ysize    = 3 # rows
xfirst   = 10.5
xinc     = 0.25

yfirst   = 45
yinc     = 0.5
gridname = "teamx"
`

func TestParseGridDesc(t *testing.T) {
	g, err := ParseGridDesc(strings.NewReader(gridDescText))
	if err != nil {
		t.Fatal(err)
	}
	want := &GridDesc{
		GridType: "lonlat",
		XSize:    4,
		YSize:    3,
		XFirst:   10.5,
		XInc:     0.25,
		YFirst:   45,
		YInc:     0.5,
		Extra:    map[string]string{"gridname": "teamx"},
	}
	if diff := pretty.Diff(g, want); len(diff) > 0 {
		t.Errorf("grid description differs: %v", diff)
	}
	if diff := pretty.Diff(g.Lon(), []float64{10.5, 10.75, 11, 11.25}); len(diff) > 0 {
		t.Errorf("lon: %v", diff)
	}
	if diff := pretty.Diff(g.Lat(), []float64{45, 45.5, 46}); len(diff) > 0 {
		t.Errorf("lat: %v", diff)
	}

	b := new(bytes.Buffer)
	if _, err := g.WriteTo(b); err != nil {
		t.Fatal(err)
	}
	g2, err := ParseGridDesc(b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(g, g2); len(diff) > 0 {
		t.Errorf("written grid description differs: %v", diff)
	}

	if _, err := ParseGridDesc(strings.NewReader("xsize = many\n")); err == nil {
		t.Error("expected error for non-numeric size")
	}
	if _, err := ParseGridDesc(strings.NewReader("gridtype = lonlat\n")); err == nil {
		t.Error("expected error for missing sizes")
	}
}

func TestDetectResolution(t *testing.T) {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	// Unique coordinates along a diagonal give the spacing directly.
	var clon, clat []float64
	for i := 0; i < 9; i++ {
		clon = append(clon, toRad(10+0.02*float64(i)))
		clat = append(clat, toRad(45+0.01*float64(i)))
	}
	dlon, dlat, err := DetectResolution(clon, clat)
	if err != nil {
		t.Fatal(err)
	}
	if dlon != 0.02 || dlat != 0.01 {
		t.Errorf("have %g, %g; want 0.02, 0.01", dlon, dlat)
	}

	if _, _, err := DetectResolution([]float64{1}, []float64{1}); err == nil {
		t.Error("expected error for a single cell")
	}
}

func TestGlobalGridDesc(t *testing.T) {
	g := GlobalGridDesc(0.5, 0.25)
	if g.XSize != 720 || g.YSize != 720 {
		t.Errorf("sizes: have %d, %d", g.XSize, g.YSize)
	}
	if g.XFirst != -179.75 || g.YFirst != -89.875 {
		t.Errorf("first: have %g, %g", g.XFirst, g.YFirst)
	}
	b := new(bytes.Buffer)
	g.WriteTo(b)
	if !strings.HasPrefix(b.String(), "gridtype  = lonlat\nxsize     = 720\n") {
		t.Errorf("unexpected output:\n%s", b.String())
	}
}
