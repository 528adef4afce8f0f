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

// Package figure draws maps, vertical cross sections and animations
// of iconkit fields.
package figure

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// DPI is the resolution of the PNG figures.
const DPI = 96

const colorBarWidth = 1.2 * vg.Inch

// colorBar returns a plot that holds a vertical colorbar for cm.
func colorBar(cm palette.ColorMap, label string, title bool) *plot.Plot {
	p := plot.New()
	p.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	p.HideX()
	p.Y.Label.Text = label
	p.Y.Padding = 0
	if title {
		// Leave room matching the title of the main plot.
		p.Title.Text = " "
	}
	return p
}

// render draws p with the colorbar cb on its right side into a w by h
// image canvas.
func render(p, cb *plot.Plot, w, h vg.Length) *vgimg.Canvas {
	img := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(DPI))
	dc := draw.New(img)
	p.Draw(draw.Crop(dc, 0, -colorBarWidth, 0, 0))
	cb.Draw(draw.Crop(dc, w-colorBarWidth, 0, 0, 0))
	return img
}

// savePNG writes c to path, creating the parent directory.
func savePNG(path string, c *vgimg.Canvas) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("figure: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("figure: %v", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("figure: writing %s: %v", path, err)
	}
	return f.Close()
}

// clip limits v to the range of cm.
func clip(cm palette.ColorMap, v float64) float64 {
	if v < cm.Min() {
		return cm.Min()
	}
	if v > cm.Max() {
		return cm.Max()
	}
	return v
}
