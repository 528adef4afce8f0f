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
	"fmt"
	"image/color"
	"math"
	"strconv"

	"github.com/iconglori/iconkit"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// CrossOptions configures CrossSection.
type CrossOptions struct {
	Title string

	// Label is the colorbar label. It defaults to the field units.
	Label string

	Colormap palette.ColorMap

	// VMin and VMax fix the color range. If nil, the data range is used.
	VMin, VMax *float64

	// Width and Height are the figure size, by default 18 by 5 inches.
	Width, Height vg.Length
}

// CrossSection draws the vertical (level, lon) field f against longitude
// and the geometric height of each cell, which may vary along the
// section, and writes it to path as a PNG. The height axis has an asinh
// scale and cells without data show the black background.
func CrossSection(path string, f *iconkit.Field, lon []float64, height *iconkit.Field, o CrossOptions) error {
	if err := f.Check2D(); err != nil {
		return err
	}
	if !sameShape(f.Data.Shape, height.Data.Shape) {
		return fmt.Errorf("figure: %s has shape %v but height has shape %v", f.Name, f.Data.Shape, height.Data.Shape)
	}
	if lon == nil {
		lon = f.Coords[f.Dims[1]]
	}
	if len(lon) != f.Data.Shape[1] {
		return fmt.Errorf("figure: %s has %d columns but %d longitudes", f.Name, f.Data.Shape[1], len(lon))
	}
	if o.Colormap == nil {
		return fmt.Errorf("figure: no colormap for %s", f.Name)
	}
	if err := iconkit.SetColorRange(o.Colormap, f, o.VMin, o.VMax); err != nil {
		return err
	}
	if o.Width == 0 {
		o.Width = 18 * vg.Inch
	}
	if o.Height == 0 {
		o.Height = 5 * vg.Inch
	}
	label := o.Label
	if label == "" {
		label = f.Units
	}

	m := newMesh(f, lon, height, o.Colormap)
	p := plot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Geometric Height (m)"
	p.Y.Scale = asinhScale{}
	p.Y.Tick.Marker = asinhTicks{}
	p.Add(background{color.Black}, m)

	cb := colorBar(o.Colormap, label, o.Title != "")
	return savePNG(path, render(p, cb, o.Width, o.Height))
}

// mesh is a plotter for a quadrilateral mesh whose
// columns have their own vertical cell edges.
type mesh struct {
	z      *iconkit.Field
	xEdges []float64
	// yEdges[i] holds the vertical cell edges of column i.
	yEdges [][]float64
	cm     palette.ColorMap
}

func newMesh(z *iconkit.Field, x []float64, y *iconkit.Field, cm palette.ColorMap) *mesh {
	nz, nx := z.Data.Shape[0], z.Data.Shape[1]
	m := &mesh{
		z:      z,
		xEdges: cellEdges(x),
		yEdges: make([][]float64, nx),
		cm:     cm,
	}
	col := make([]float64, nz)
	for i := 0; i < nx; i++ {
		for k := 0; k < nz; k++ {
			col[k] = y.At(k, i)
		}
		m.yEdges[i] = cellEdges(col)
	}
	return m
}

// cellEdges returns the len(c)+1 edges of cells centered on c,
// halfway between neighbors.
func cellEdges(c []float64) []float64 {
	n := len(c)
	e := make([]float64, n+1)
	if n == 1 {
		e[0], e[1] = c[0]-0.5, c[0]+0.5
		return e
	}
	for i := 1; i < n; i++ {
		e[i] = (c[i-1] + c[i]) / 2
	}
	e[0] = c[0] - (c[1]-c[0])/2
	e[n] = c[n-1] + (c[n-1]-c[n-2])/2
	return e
}

// Plot implements the plot.Plotter interface.
func (m *mesh) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	nz, nx := m.z.Data.Shape[0], m.z.Data.Shape[1]
	for i := 0; i < nx; i++ {
		x0, x1 := trX(m.xEdges[i]), trX(m.xEdges[i+1])
		for k := 0; k < nz; k++ {
			v := m.z.At(k, i)
			y0, y1 := m.yEdges[i][k], m.yEdges[i][k+1]
			if math.IsNaN(v) || math.IsNaN(y0) || math.IsNaN(y1) {
				continue
			}
			col, err := m.cm.At(clip(m.cm, v))
			if err != nil {
				continue
			}
			pts := []vg.Point{
				{X: x0, Y: trY(y0)},
				{X: x1, Y: trY(y0)},
				{X: x1, Y: trY(y1)},
				{X: x0, Y: trY(y1)},
			}
			c.FillPolygon(col, c.ClipPolygonXY(pts))
		}
	}
}

// DataRange implements the plot.DataRanger interface.
func (m *mesh) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, xmax = minMax(m.xEdges)
	ymin, ymax = math.Inf(1), math.Inf(-1)
	for _, e := range m.yEdges {
		lo, hi := minMax(e)
		ymin = math.Min(ymin, lo)
		ymax = math.Max(ymax, hi)
	}
	return
}

func minMax(v []float64) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		min = math.Min(min, x)
		max = math.Max(max, x)
	}
	return
}

// background fills the data area of a plot.
type background struct {
	color.Color
}

func (b background) Plot(c draw.Canvas, _ *plot.Plot) {
	c.SetColor(b.Color)
	c.Fill(c.Rectangle.Path())
}

// asinhScale is an axis scale that is linear near zero and
// logarithmic far from it.
type asinhScale struct{}

// Normalize implements the plot.Normalizer interface.
func (asinhScale) Normalize(min, max, x float64) float64 {
	lo, hi := math.Asinh(min), math.Asinh(max)
	return (math.Asinh(x) - lo) / (hi - lo)
}

// asinhTicks puts labeled ticks at zero and powers of ten, and
// unlabeled ticks at their multiples.
type asinhTicks struct{}

// Ticks implements the plot.Ticker interface.
func (asinhTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	add := func(v float64, major bool) {
		if v < min || v > max {
			return
		}
		t := plot.Tick{Value: v}
		if major {
			t.Label = strconv.FormatFloat(v, 'f', -1, 64)
		}
		ticks = append(ticks, t)
	}
	add(0, true)
	for e := 0; e <= 6; e++ {
		p := math.Pow(10, float64(e))
		for mult := 1.0; mult < 10; mult++ {
			add(mult*p, mult == 1)
			add(-mult*p, mult == 1)
		}
	}
	return ticks
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
