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

package figure

import (
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/iconglori/iconkit"
	"github.com/kr/pretty"
	"gonum.org/v1/plot/vg"
)

// testMap returns a (lat, lon) field with a NaN cell.
func testMap() *iconkit.Field {
	f := iconkit.NewField("t2m", []string{"lat", "lon"}, []int{3, 4})
	f.Units = "K"
	for i := range f.Data.Elements {
		f.Data.Elements[i] = 280 + float64(i)
	}
	f.Data.Elements[5] = math.NaN()
	f.Coords["lat"] = []float64{47, 46, 45}
	f.Coords["lon"] = []float64{10, 11, 12, 13}
	return f
}

func pngSize(t *testing.T, path string) (int, int) {
	t.Helper()
	r, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	c, err := png.DecodeConfig(r)
	if err != nil {
		t.Fatal(err)
	}
	return c.Width, c.Height
}

func TestMapPlot(t *testing.T) {
	dir := t.TempDir()
	cm, err := iconkit.ColormapByName("precip20")
	if err != nil {
		t.Fatal(err)
	}
	vmin, vmax := 250.0, 300.0
	path := filepath.Join(dir, "t2m", "t2m_2025063000.png")
	err = MapPlot(path, testMap(), nil, nil, MapOptions{
		Title:    "t2m on 2025-06-30T00:00:00",
		Colormap: cm,
		VMin:     &vmin,
		VMax:     &vmax,
		Overlay:  []geom.Geom{geom.LineString{{X: 10, Y: 45}, {X: 13, Y: 47}}},
		Width:    5 * vg.Inch,
		Height:   3 * vg.Inch,
	})
	if err != nil {
		t.Fatal(err)
	}
	if w, h := pngSize(t, path); w != 5*DPI || h != 3*DPI {
		t.Errorf("size = %dx%d, want %dx%d", w, h, 5*DPI, 3*DPI)
	}
	if cm.Min() != vmin || cm.Max() != vmax {
		t.Errorf("colormap range = [%g, %g]", cm.Min(), cm.Max())
	}
}

func TestMapPlotErrors(t *testing.T) {
	cm, err := iconkit.ColormapByName("coolwarm")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "x.png")
	f3 := iconkit.NewField("q", []string{"time", "lat", "lon"}, []int{1, 2, 2})
	tests := []struct {
		name string
		f    *iconkit.Field
		lon  []float64
		o    MapOptions
	}{
		{name: "3d", f: f3, o: MapOptions{Colormap: cm}},
		{name: "lon length", f: testMap(), lon: []float64{1, 2}, o: MapOptions{Colormap: cm}},
		{name: "no colormap", f: testMap()},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := MapPlot(path, test.f, test.lon, nil, test.o); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestGrid(t *testing.T) {
	f := testMap()
	g := newGrid(f, f.Coords["lon"], f.Coords["lat"])
	if c, r := g.Dims(); c != 4 || r != 3 {
		t.Fatalf("dims = %d, %d", c, r)
	}
	// Latitudes are stored north to south.
	if g.Y(0) != 45 || g.Y(2) != 47 {
		t.Errorf("y = %g, %g", g.Y(0), g.Y(2))
	}
	if z := g.Z(1, 0); z != 289 {
		t.Errorf("z = %g, want 289", z)
	}
	if g.Min() != 280 || g.Max() != 291 {
		t.Errorf("range = [%g, %g]", g.Min(), g.Max())
	}
}

func TestDegreeTicks(t *testing.T) {
	tests := []struct {
		v        float64
		label    string
		pos, neg string
		want     string
	}{
		{v: 12.5, label: "12.5", pos: "E", neg: "W", want: "12.5°E"},
		{v: -30, label: "-30", pos: "E", neg: "W", want: "30°W"},
		{v: 45, label: "45", pos: "N", neg: "S", want: "45°N"},
		{v: 0, label: "0", pos: "N", neg: "S", want: "0°"},
	}
	for _, test := range tests {
		if got := degreeLabel(test.v, test.label, test.pos, test.neg); got != test.want {
			t.Errorf("degreeLabel(%g) = %s, want %s", test.v, got, test.want)
		}
	}
	for _, tk := range (degreeTicks{pos: "E", neg: "W"}).Ticks(-10, 10) {
		if tk.Label != "" && tk.Label[len(tk.Label)-1] != 'E' && tk.Label[len(tk.Label)-1] != 'W' && tk.Label != "0°" {
			t.Errorf("unexpected label %s", tk.Label)
		}
	}
}

func TestCellEdges(t *testing.T) {
	tests := []struct {
		c, want []float64
	}{
		{c: []float64{0, 1, 3}, want: []float64{-0.5, 0.5, 2, 4}},
		{c: []float64{5}, want: []float64{4.5, 5.5}},
		{c: []float64{100, 50}, want: []float64{125, 75, 25}},
	}
	for _, test := range tests {
		if diff := pretty.Diff(cellEdges(test.c), test.want); len(diff) > 0 {
			t.Errorf("cellEdges(%v): %v", test.c, diff)
		}
	}
}

func TestAsinhScale(t *testing.T) {
	s := asinhScale{}
	if v := s.Normalize(0, 1000, 0); v != 0 {
		t.Errorf("min normalizes to %g", v)
	}
	if v := s.Normalize(0, 1000, 1000); math.Abs(v-1) > 1e-12 {
		t.Errorf("max normalizes to %g", v)
	}
	if v := s.Normalize(0, 1000, 100); v < 0.6 {
		t.Errorf("100 of 1000 normalizes to %g; should be logarithmic", v)
	}
	ticks := asinhTicks{}.Ticks(0, 1500)
	var labels []string
	for _, tk := range ticks {
		if tk.Label != "" {
			labels = append(labels, tk.Label)
		}
	}
	want := []string{"0", "1", "10", "100", "1000"}
	if diff := pretty.Diff(labels, want); len(diff) > 0 {
		t.Errorf("labels: %v", diff)
	}
}

func TestCrossSection(t *testing.T) {
	f := iconkit.NewField("qc", []string{"height", "lon"}, []int{3, 4})
	f.Units = "kg kg-1"
	h := iconkit.NewField("height", []string{"height", "lon"}, []int{3, 4})
	for k := 0; k < 3; k++ {
		for i := 0; i < 4; i++ {
			f.Data.Set(float64(k*i)*1e-3, k, i)
			// Terrain rises along the section.
			h.Data.Set(float64(3-k)*1000+float64(i)*100, k, i)
		}
	}
	f.Data.Set(math.NaN(), 0, 0)
	lon := []float64{10, 10.5, 11, 11.5}
	cm, err := iconkit.ColormapByName("precip20")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "qc_46lat.png")
	err = CrossSection(path, f, lon, h, CrossOptions{
		Title:    "qc Vertical Profile at 46° Latitude",
		Colormap: cm,
		Width:    6 * vg.Inch,
		Height:   2 * vg.Inch,
	})
	if err != nil {
		t.Fatal(err)
	}
	if w, hgt := pngSize(t, path); w != 6*DPI || hgt != 2*DPI {
		t.Errorf("size = %dx%d", w, hgt)
	}

	m := newMesh(f, lon, h, cm)
	xmin, xmax, ymin, ymax := m.DataRange()
	if xmin != 9.75 || xmax != 11.75 || ymin != 500 || ymax != 3800 {
		t.Errorf("data range = %g, %g, %g, %g", xmin, xmax, ymin, ymax)
	}

	bad := iconkit.NewField("height", []string{"height", "lon"}, []int{2, 4})
	if err := CrossSection(path, f, lon, bad, CrossOptions{Colormap: cm}); err == nil {
		t.Error("expected an error for mismatched height")
	}
}

func TestOutlines(t *testing.T) {
	square := geom.Polygon{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}}
	tests := []struct {
		name string
		g    geom.Geom
		want [][]geom.Point
	}{
		{
			name: "polygon",
			g:    square,
			want: [][]geom.Point{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}}},
		},
		{
			name: "multilinestring",
			g:    geom.MultiLineString{{{X: 0, Y: 0}, {X: 2, Y: 2}}, {{X: 3, Y: 3}, {X: 4, Y: 3}}},
			want: [][]geom.Point{{{X: 0, Y: 0}, {X: 2, Y: 2}}, {{X: 3, Y: 3}, {X: 4, Y: 3}}},
		},
		{
			name: "point",
			g:    geom.Point{X: 1, Y: 1},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if diff := pretty.Diff(outlines(test.g), test.want); len(diff) > 0 {
				t.Error(diff)
			}
		})
	}
	if len(square[0]) != 4 {
		t.Error("closing a ring modified the input polygon")
	}
}

func TestLoadShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coast.shp")
	type coast struct {
		geom.MultiLineString
		Name string
	}
	e, err := shp.NewEncoder(path, coast{})
	if err != nil {
		t.Fatal(err)
	}
	lines := []geom.MultiLineString{
		{{{X: 10, Y: 45}, {X: 11, Y: 46}}},
		{{{X: 12, Y: 45}, {X: 12.5, Y: 45.5}, {X: 13, Y: 47}}},
	}
	for _, l := range lines {
		if err := e.Encode(coast{MultiLineString: l, Name: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	e.Close()

	g, err := LoadShapefile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(g) != len(lines) {
		t.Fatalf("got %d shapes, want %d", len(g), len(lines))
	}
	for i, l := range lines {
		if diff := pretty.Diff(g[i], l); len(diff) > 0 {
			t.Errorf("shape %d: %v", i, diff)
		}
	}
	if _, err := LoadShapefile(filepath.Join(t.TempDir(), "missing.shp")); err == nil {
		t.Error("expected an error for a missing shapefile")
	}
}

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestAnimate(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b_20250630_0100.png"), 8, 6, color.Black)
	writePNG(t, filepath.Join(dir, "a_20250630_0000.png"), 8, 6, color.White)
	out := filepath.Join(dir, "gif", "movie.gif")
	if err := AnimateDir(dir, out, 2); err != nil {
		t.Fatal(err)
	}
	r, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	g, err := gif.DecodeAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Image) != 2 {
		t.Fatalf("got %d frames, want 2", len(g.Image))
	}
	if diff := pretty.Diff(g.Delay, []int{50, 50}); len(diff) > 0 {
		t.Errorf("delay: %v", diff)
	}
	// Frames are in name order, so the white frame comes first.
	if r, _, _, _ := g.Image[0].At(0, 0).RGBA(); r != 0xffff {
		t.Errorf("first frame red = %#x, want 0xffff", r)
	}
}

func TestAnimateErrors(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 8, 6, color.White)
	writePNG(t, filepath.Join(dir, "b.png"), 4, 6, color.White)
	out := filepath.Join(dir, "movie.gif")
	tests := []struct {
		name   string
		frames []string
		fps    float64
	}{
		{name: "no frames", fps: 1},
		{name: "fps", frames: []string{filepath.Join(dir, "a.png")}},
		{name: "size", frames: []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")}, fps: 1},
		{name: "missing", frames: []string{filepath.Join(dir, "c.png")}, fps: 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := Animate(test.frames, out, test.fps); err == nil {
				t.Error("expected an error")
			}
		})
	}
	if err := AnimateDir(t.TempDir(), out, 1); err == nil {
		t.Error("expected an error for an empty folder")
	}
}
