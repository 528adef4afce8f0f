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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GridDesc is a CDO grid description of a regular longitude-latitude grid.
type GridDesc struct {
	GridType     string
	XSize, YSize int
	XFirst, XInc float64
	YFirst, YInc float64

	// Extra holds any other keys, with their values as written.
	Extra map[string]string
}

// ParseGridDesc reads a CDO grid description such as the output of
// `cdo griddes`. Blank lines and lines starting with '#' are skipped, and
// anything after a '#' in a value is ignored.
func ParseGridDesc(r io.Reader) (*GridDesc, error) {
	g := &GridDesc{Extra: make(map[string]string)}
	s := bufio.NewScanner(r)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(strings.SplitN(kv[1], "#", 2)[0])
		num, numErr := strconv.ParseFloat(val, 64)
		str := strings.Trim(val, `"`)

		var err error
		switch key {
		case "gridtype":
			g.GridType = str
		case "xsize":
			g.XSize, err = gridSize(num, numErr)
		case "ysize":
			g.YSize, err = gridSize(num, numErr)
		case "xfirst":
			g.XFirst, err = num, numErr
		case "xinc":
			g.XInc, err = num, numErr
		case "yfirst":
			g.YFirst, err = num, numErr
		case "yinc":
			g.YInc, err = num, numErr
		default:
			g.Extra[key] = str
		}
		if err != nil {
			return nil, fmt.Errorf("iconkit: grid description line %d: invalid %s '%s'", lineNo, key, val)
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("iconkit: reading grid description: %v", err)
	}
	if g.XSize <= 0 || g.YSize <= 0 {
		return nil, fmt.Errorf("iconkit: grid description needs positive xsize and ysize, got %d and %d", g.XSize, g.YSize)
	}
	return g, nil
}

func gridSize(v float64, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Lon returns the longitudes of the grid cell centers.
func (g *GridDesc) Lon() []float64 { return axis(g.XFirst, g.XInc, g.XSize) }

// Lat returns the latitudes of the grid cell centers.
func (g *GridDesc) Lat() []float64 { return axis(g.YFirst, g.YInc, g.YSize) }

func axis(first, inc float64, n int) []float64 {
	o := make([]float64, n)
	for i := range o {
		o[i] = first + float64(i)*inc
	}
	return o
}

// WriteTo writes g in the CDO grid description format.
func (g *GridDesc) WriteTo(w io.Writer) (int64, error) {
	b := new(bytes.Buffer)
	gt := g.GridType
	if gt == "" {
		gt = "lonlat"
	}
	fmt.Fprintf(b, "gridtype  = %s\n", gt)
	fmt.Fprintf(b, "xsize     = %d\n", g.XSize)
	fmt.Fprintf(b, "ysize     = %d\n", g.YSize)
	fmt.Fprintf(b, "xfirst    = %s\n", formatFloat(g.XFirst))
	fmt.Fprintf(b, "xinc      = %s\n", formatFloat(g.XInc))
	fmt.Fprintf(b, "yfirst    = %s\n", formatFloat(g.YFirst))
	fmt.Fprintf(b, "yinc      = %s\n", formatFloat(g.YInc))
	keys := make([]string, 0, len(g.Extra))
	for k := range g.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%-9s = %s\n", k, g.Extra[k])
	}
	return b.WriteTo(w)
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// DetectResolution estimates the longitude and latitude spacing, in
// degrees, of an unstructured ICON grid from its cell center coordinates
// in radians. Each spacing is the median absolute difference between
// neighboring sorted coordinates, rounded to 5 decimals.
func DetectResolution(clon, clat []float64) (dlon, dlat float64, err error) {
	if len(clon) != len(clat) {
		return 0, 0, fmt.Errorf("iconkit: %d longitudes but %d latitudes", len(clon), len(clat))
	}
	if len(clon) < 2 {
		return 0, 0, fmt.Errorf("iconkit: need at least 2 grid cells to detect resolution, have %d", len(clon))
	}
	lon := make([]float64, len(clon))
	lat := make([]float64, len(clat))
	for i := range clon {
		lon[i] = clon[i] * 180 / math.Pi
		lat[i] = clat[i] * 180 / math.Pi
	}
	floats.Argsort(lon, make([]int, len(lon)))
	sort.Float64s(lat)
	dlon = round5(median(absDiff(lon)))
	dlat = round5(median(absDiff(lat)))
	if dlon <= 0 || dlat <= 0 {
		return 0, 0, fmt.Errorf("iconkit: detected non-positive resolution %g, %g", dlon, dlat)
	}
	return dlon, dlat, nil
}

func absDiff(v []float64) []float64 {
	o := make([]float64, len(v)-1)
	for i := range o {
		o[i] = math.Abs(v[i+1] - v[i])
	}
	return o
}

// median returns the median of v, averaging the two middle values
// for even lengths. v is sorted in place.
func median(v []float64) float64 {
	sort.Float64s(v)
	n := len(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return stat.Mean(v[n/2-1:n/2+1], nil)
}

func round5(v float64) float64 { return math.Round(v*1e5) / 1e5 }

// GlobalGridDesc returns a global regular grid with the given spacing,
// with cell centers offset half a cell from the -180 and -90 edges.
func GlobalGridDesc(dlon, dlat float64) *GridDesc {
	return &GridDesc{
		GridType: "lonlat",
		XSize:    int(360 / dlon),
		YSize:    int(180 / dlat),
		XFirst:   -180 + dlon/2,
		XInc:     dlon,
		YFirst:   -90 + dlat/2,
		YInc:     dlat,
		Extra:    map[string]string{},
	}
}
