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
	"strings"

	"github.com/ctessum/geom"
	"github.com/iconglori/iconkit"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// MapOptions configures MapPlot.
type MapOptions struct {
	Title string

	// Label is the colorbar label. It defaults to the field units.
	Label string

	Colormap palette.ColorMap

	// VMin and VMax fix the color range. If nil, the data range is used.
	VMin, VMax *float64

	// Overlay holds outlines, such as coast lines, drawn over the map.
	Overlay []geom.Geom

	// Width and Height are the figure size, by default 10 by 6 inches.
	Width, Height vg.Length
}

// MapPlot draws the 2-D (lat, lon) field f as a heat map with a colorbar and
// writes it to path as a PNG. If lon or lat is nil, the coordinates of the
// field are used.
func MapPlot(path string, f *iconkit.Field, lon, lat []float64, o MapOptions) error {
	if err := f.Check2D(); err != nil {
		return err
	}
	if lon == nil {
		lon = f.Coords[f.Dims[1]]
	}
	if lat == nil {
		lat = f.Coords[f.Dims[0]]
	}
	ny, nx := f.Data.Shape[0], f.Data.Shape[1]
	if len(lon) != nx || len(lat) != ny {
		return fmt.Errorf("figure: %s has shape %v but %d longitudes and %d latitudes", f.Name, f.Data.Shape, len(lon), len(lat))
	}
	if nx < 2 || ny < 2 {
		return fmt.Errorf("figure: %s needs at least 2 cells along each axis to map, has %v", f.Name, f.Data.Shape)
	}
	if o.Colormap == nil {
		return fmt.Errorf("figure: no colormap for %s", f.Name)
	}
	if err := iconkit.SetColorRange(o.Colormap, f, o.VMin, o.VMax); err != nil {
		return err
	}
	if o.Width == 0 {
		o.Width = 10 * vg.Inch
	}
	if o.Height == 0 {
		o.Height = 6 * vg.Inch
	}
	label := o.Label
	if label == "" {
		label = f.Units
	}

	p := plot.New()
	p.Title.Text = o.Title
	p.X.Tick.Marker = degreeTicks{pos: "E", neg: "W"}
	p.Y.Tick.Marker = degreeTicks{pos: "N", neg: "S"}

	pal := o.Colormap.Palette(256).Colors()
	hm := plotter.NewHeatMap(newGrid(f, lon, lat), o.Colormap.Palette(256))
	hm.Min, hm.Max = o.Colormap.Min(), o.Colormap.Max()
	hm.Underflow = pal[0]
	hm.Overflow = pal[len(pal)-1]
	p.Add(hm)
	if len(o.Overlay) > 0 {
		p.Add(NewOverlay(o.Overlay))
	}

	cb := colorBar(o.Colormap, label, o.Title != "")
	return savePNG(path, render(p, cb, o.Width, o.Height))
}

// grid presents a (lat, lon) field as a plotter.GridXYZ with
// increasing coordinates.
type grid struct {
	f            *iconkit.Field
	lon, lat     []float64
	flipX, flipY bool
	min, max     float64
}

func newGrid(f *iconkit.Field, lon, lat []float64) grid {
	g := grid{
		f:     f,
		lon:   lon,
		lat:   lat,
		flipX: lon[0] > lon[len(lon)-1],
		flipY: lat[0] > lat[len(lat)-1],
	}
	g.min, g.max = f.Range()
	return g
}

func (g grid) Dims() (c, r int) { return len(g.lon), len(g.lat) }

func (g grid) Z(c, r int) float64 { return g.f.At(g.row(r), g.col(c)) }

func (g grid) X(c int) float64 { return g.lon[g.col(c)] }

func (g grid) Y(r int) float64 { return g.lat[g.row(r)] }

// Min and Max let the heat map skip scanning the data.
func (g grid) Min() float64 { return g.min }
func (g grid) Max() float64 { return g.max }

func (g grid) col(c int) int {
	if g.flipX {
		return len(g.lon) - 1 - c
	}
	return c
}

func (g grid) row(r int) int {
	if g.flipY {
		return len(g.lat) - 1 - r
	}
	return r
}

// degreeTicks labels longitude or latitude ticks with hemisphere
// suffixes, e.g. 10°E.
type degreeTicks struct {
	pos, neg string
}

func (t degreeTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i, tk := range ticks {
		if tk.Label == "" {
			continue
		}
		ticks[i].Label = degreeLabel(tk.Value, tk.Label, t.pos, t.neg)
	}
	return ticks
}

func degreeLabel(v float64, label, pos, neg string) string {
	label = strings.TrimPrefix(label, "-")
	switch {
	case v > 1e-9:
		return label + "°" + pos
	case v < -1e-9:
		return label + "°" + neg
	default:
		return "0°"
	}
}
