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

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// LoadShapefile reads all shapes of a shapefile, such as coast lines or
// country borders in longitude-latitude coordinates.
func LoadShapefile(path string) ([]geom.Geom, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("figure: opening shapefile: %v", err)
	}
	defer d.Close()
	var o []geom.Geom
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		if g != nil {
			o = append(o, g)
		}
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("figure: reading shapefile %s: %v", path, err)
	}
	return o, nil
}

// Overlay draws the outlines of geometries, whose coordinates are in the
// units of the plot axes.
type Overlay struct {
	Geoms []geom.Geom
	draw.LineStyle
}

// NewOverlay returns an overlay of thin black lines.
func NewOverlay(g []geom.Geom) *Overlay {
	return &Overlay{
		Geoms: g,
		LineStyle: draw.LineStyle{
			Color: color.Black,
			Width: vg.Points(0.75),
		},
	}
}

// Plot implements the plot.Plotter interface.
func (o *Overlay) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for _, g := range o.Geoms {
		for _, l := range outlines(g) {
			pts := make([]vg.Point, len(l))
			for i, p := range l {
				pts[i] = vg.Point{X: trX(p.X), Y: trY(p.Y)}
			}
			c.StrokeLines(o.LineStyle, c.ClipLinesXY(pts)...)
		}
	}
}

// outlines returns the lines that make up g, with polygon rings closed.
func outlines(g geom.Geom) [][]geom.Point {
	switch t := g.(type) {
	case geom.LineString:
		return [][]geom.Point{t}
	case geom.MultiLineString:
		o := make([][]geom.Point, len(t))
		for i, l := range t {
			o[i] = l
		}
		return o
	case geom.Polygon:
		o := make([][]geom.Point, 0, len(t))
		for _, r := range t {
			if len(r) > 1 && r[0] != r[len(r)-1] {
				r = append(r[:len(r):len(r)], r[0])
			}
			o = append(o, r)
		}
		return o
	case geom.MultiPolygon:
		var o [][]geom.Point
		for _, p := range t {
			o = append(o, outlines(p)...)
		}
		return o
	}
	return nil
}
