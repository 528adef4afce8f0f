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
	"image/color"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// ListedColormap maps values to a fixed list of colors by dividing
// [Min, Max] into len(Colors) equal bins.
type ListedColormap struct {
	Colors   []color.Color
	min, max float64
	alpha    float64
}

// NewListedColormap returns a listed colormap over [0, 1].
func NewListedColormap(colors []color.Color) *ListedColormap {
	return &ListedColormap{Colors: colors, max: 1, alpha: 1}
}

// At implements palette.ColorMap.
func (l *ListedColormap) At(v float64) (color.Color, error) {
	switch {
	case math.IsNaN(v):
		return nil, palette.ErrNaN
	case v < l.min:
		return nil, palette.ErrUnderflow
	case v > l.max:
		return nil, palette.ErrOverflow
	}
	n := len(l.Colors)
	i := n - 1
	if l.max > l.min {
		i = int(float64(n) * (v - l.min) / (l.max - l.min))
	}
	if i >= n {
		i = n - 1
	}
	return withAlpha(l.Colors[i], l.alpha), nil
}

// Min implements palette.ColorMap.
func (l *ListedColormap) Min() float64 { return l.min }

// SetMin implements palette.ColorMap.
func (l *ListedColormap) SetMin(v float64) { l.min = v }

// Max implements palette.ColorMap.
func (l *ListedColormap) Max() float64 { return l.max }

// SetMax implements palette.ColorMap.
func (l *ListedColormap) SetMax(v float64) { l.max = v }

// Alpha implements palette.ColorMap.
func (l *ListedColormap) Alpha() float64 { return l.alpha }

// SetAlpha implements palette.ColorMap.
func (l *ListedColormap) SetAlpha(a float64) { l.alpha = a }

// Palette implements palette.ColorMap.
func (l *ListedColormap) Palette(n int) palette.Palette {
	if n < 1 {
		n = len(l.Colors)
	}
	c := make([]color.Color, n)
	for i := range c {
		v := l.min
		if n > 1 {
			v += (l.max - l.min) * float64(i) / float64(n-1)
		}
		c[i], _ = l.At(v)
	}
	return colors(c)
}

type colors []color.Color

func (c colors) Colors() []color.Color { return c }

func withAlpha(c color.Color, alpha float64) color.Color {
	if alpha >= 1 {
		return c
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(float64(n.A) * alpha)
	return n
}

// precip20 is the 20-color precipitation map, white for no rain.
var precip20 = []color.Color{
	color.NRGBA{255, 255, 255, 255},
	color.NRGBA{255, 255, 204, 255},
	color.NRGBA{204, 255, 204, 255},
	color.NRGBA{153, 255, 204, 255},
	color.NRGBA{102, 255, 204, 255},
	color.NRGBA{51, 255, 204, 255},
	color.NRGBA{0, 204, 204, 255},
	color.NRGBA{0, 153, 204, 255},
	color.NRGBA{0, 102, 204, 255},
	color.NRGBA{0, 51, 204, 255},
	color.NRGBA{0, 0, 204, 255},
	color.NRGBA{204, 204, 255, 255},
	color.NRGBA{204, 204, 153, 255},
	color.NRGBA{204, 204, 102, 255},
	color.NRGBA{255, 204, 102, 255},
	color.NRGBA{255, 153, 51, 255},
	color.NRGBA{255, 102, 51, 255},
	color.NRGBA{255, 51, 51, 255},
	color.NRGBA{204, 51, 51, 255},
	color.NRGBA{153, 51, 51, 255},
}

var colormaps = map[string]func() palette.ColorMap{
	"coolwarm": func() palette.ColorMap { return moreland.SmoothBlueRed() },
	"heat":     moreland.BlackBody,
	"greyscale": func() palette.ColorMap {
		cm, err := moreland.NewLuminance([]color.Color{
			color.NRGBA{A: 255},
			color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		})
		if err != nil {
			panic(err)
		}
		return cm
	},
	"precip20": func() palette.ColorMap { return NewListedColormap(precip20) },
}

// ColormapNames returns the names accepted by ColormapByName.
func ColormapNames() []string {
	o := make([]string, 0, len(colormaps))
	for n := range colormaps {
		o = append(o, n)
	}
	sort.Strings(o)
	return o
}

// ColormapByName returns a new instance of the named colormap with
// its range set to [0, 1].
func ColormapByName(name string) (palette.ColorMap, error) {
	f, ok := colormaps[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("iconkit: unknown colormap '%s'; valid names are %s",
			name, strings.Join(ColormapNames(), ", "))
	}
	cm := f()
	cm.SetMin(0)
	cm.SetMax(1)
	return cm, nil
}
