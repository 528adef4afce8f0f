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

package iconkitutil

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ctessum/geom"
	"github.com/iconglori/iconkit"
	"github.com/iconglori/iconkit/figure"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot/palette"
)

// Inspect writes a description of each of the given NetCDF files to w.
func Inspect(w io.Writer, files ...string) error {
	for i, path := range files {
		if i > 0 {
			fmt.Fprintln(w)
		}
		ds, err := iconkit.Open(path)
		if err != nil {
			return err
		}
		err = iconkit.Describe(w, ds)
		ds.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// fileTimestamp returns the standardized timestamp found in the file
// name, the date and hour of an ICON output file, or the base name
// without extension, whichever works first.
func fileTimestamp(path string) string {
	base := filepath.Base(path)
	if ts, ok := iconkit.ExtractTimestamp(base); ok {
		return ts
	}
	if ts, err := iconkit.ICONTimestamp(path); err == nil {
		return ts
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// when describes the time of f, falling back to ts if f has no time.
func when(f *iconkit.Field, ts string) string {
	if f.Time.IsZero() {
		return ts
	}
	return f.Time.Format("2006-01-02 15:04")
}

func readGridDesc(path string) (*iconkit.GridDesc, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("iconkit: %v", err)
	}
	defer r.Close()
	return iconkit.ParseGridDesc(r)
}

type valueRange struct{ min, max *float64 }

// mapPlotter holds the settings shared by the maps of the plot command.
type mapPlotter struct {
	vars    []string
	derived map[string]string
	ranges  map[string]valueRange
	cm      palette.ColorMap
	overlay []geom.Geom

	// lon and lat override the coordinates of the fields if not nil.
	lon, lat []float64

	outDir string
	log    logrus.FieldLogger

	// plotted counts the maps written for each variable.
	plotted map[string]int
}

// Plot draws maps of the configured variables of each input file.
func (cfg *Cfg) Plot() error {
	files, err := cfg.inputFiles()
	if err != nil {
		return err
	}
	vars, err := cfg.variables()
	if err != nil {
		return err
	}
	derived, err := GetStringMapString("Plot.Derived", cfg.Viper)
	if err != nil {
		return err
	}
	cm, err := cfg.colormap()
	if err != nil {
		return err
	}
	vmin, vmax, err := cfg.valueRange()
	if err != nil {
		return err
	}
	p := &mapPlotter{
		derived: derived,
		ranges:  make(map[string]valueRange),
		cm:      cm,
		outDir:  cfg.getPath("outdir"),
		log:     logrus.StandardLogger(),
		plotted: make(map[string]int),
	}

	if shp := cfg.getPath("Plot.Shapefile"); shp != "" {
		if p.overlay, err = figure.LoadShapefile(shp); err != nil {
			return err
		}
	}
	if gf := cfg.getPath("Plot.GridFile"); gf != "" {
		gd, err := readGridDesc(gf)
		if err != nil {
			return err
		}
		p.lon, p.lat = gd.Lon(), gd.Lat()
	}

	for _, v := range vars {
		r := valueRange{vmin, vmax}
		if cfg.GetBool("Plot.GlobalRange") && (r.min == nil || r.max == nil) {
			have, err := filesWith(files, v)
			if err != nil {
				return err
			}
			if len(have) == 0 {
				p.ranges[v] = r
				p.vars = append(p.vars, v)
				continue
			}
			min, max, err := iconkit.GlobalRange(have, v)
			if err != nil {
				return err
			}
			r = r.fill(min, max)
			p.log.WithField("variable", v).Infof("global range [%g, %g]", *r.min, *r.max)
		}
		p.ranges[v] = r
		p.vars = append(p.vars, v)
	}
	derivedNames := make([]string, 0, len(derived))
	for name := range derived {
		derivedNames = append(derivedNames, name)
	}
	sort.Strings(derivedNames)
	for _, name := range derivedNames {
		r := valueRange{vmin, vmax}
		if cfg.GetBool("Plot.GlobalRange") && (r.min == nil || r.max == nil) {
			min, max, ok, err := p.derivedRange(files, name)
			if err != nil {
				return err
			}
			if ok {
				r = r.fill(min, max)
				p.log.WithField("variable", name).Infof("global range [%g, %g]", *r.min, *r.max)
			}
		}
		p.ranges[name] = r
		p.vars = append(p.vars, name)
	}

	for _, file := range files {
		if err := p.plotFile(file); err != nil {
			return err
		}
	}

	if !cfg.GetBool("Plot.GIF") {
		return nil
	}
	for _, v := range p.vars {
		if p.plotted[v] == 0 {
			continue
		}
		out := filepath.Join(p.outDir, v+".gif")
		if err := figure.AnimateDir(filepath.Join(p.outDir, v), out, cfg.GetFloat64("fps")); err != nil {
			return err
		}
		p.log.WithField("file", out).Info("created animation")
	}
	return nil
}

// fill sets the unset ends of r to min and max.
func (r valueRange) fill(min, max float64) valueRange {
	if r.min == nil {
		r.min = &min
	}
	if r.max == nil {
		r.max = &max
	}
	return r
}

// derivedRange returns the extrema of the derived variable v over files,
// skipping files that lack its inputs. ok is false if no file has them.
func (p *mapPlotter) derivedRange(files []string, v string) (min, max float64, ok bool, err error) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, path := range files {
		ds, err := iconkit.Open(path)
		if err != nil {
			return 0, 0, false, err
		}
		f, err := p.field(ds, v)
		ds.Close()
		if err != nil {
			return 0, 0, false, err
		}
		if f == nil {
			continue
		}
		fmin, fmax := f.Range()
		if math.IsNaN(fmin) {
			continue
		}
		ok = true
		min, max = math.Min(min, fmin), math.Max(max, fmax)
	}
	return min, max, ok, nil
}

// filesWith returns the files that contain variable v.
func filesWith(files []string, v string) ([]string, error) {
	var o []string
	for _, path := range files {
		ds, err := iconkit.Open(path)
		if err != nil {
			return nil, err
		}
		if ds.HasVariable(v) {
			o = append(o, path)
		}
		ds.Close()
	}
	return o, nil
}

func (p *mapPlotter) plotFile(path string) error {
	ds, err := iconkit.Open(path)
	if err != nil {
		return err
	}
	defer ds.Close()
	ts := fileTimestamp(path)
	flog := p.log.WithField("file", filepath.Base(path))
	for _, v := range p.vars {
		f, err := p.field(ds, v)
		if err != nil {
			return err
		}
		if f == nil {
			flog.WithField("variable", v).Warn("variable not found, skipping")
			continue
		}
		out := filepath.Join(p.outDir, v, fmt.Sprintf("%s_%s.png", v, ts))
		err = figure.MapPlot(out, f.Squeeze(), p.lon, p.lat, figure.MapOptions{
			Title:    fmt.Sprintf("%s on %s", v, when(f, ts)),
			Colormap: p.cm,
			VMin:     p.ranges[v].min,
			VMax:     p.ranges[v].max,
			Overlay:  p.overlay,
		})
		if err != nil {
			return fmt.Errorf("iconkit: plotting %s from %s: %v", v, path, err)
		}
		flog.WithField("variable", v).Debugf("created %s", out)
		p.plotted[v]++
	}
	return nil
}

// field reads or derives the first time step of v, returning nil if
// ds doesn't have the variables needed.
func (p *mapPlotter) field(ds *iconkit.Dataset, v string) (*iconkit.Field, error) {
	expr, ok := p.derived[v]
	if !ok {
		if !ds.HasVariable(v) {
			return nil, nil
		}
		return ds.ReadFirstStep(v)
	}
	inputs, err := iconkit.ExpressionVars(expr)
	if err != nil {
		return nil, err
	}
	for _, in := range inputs {
		if !ds.HasVariable(in) {
			return nil, nil
		}
	}
	return iconkit.Derive(ds, v, expr, "")
}

// CrossSection draws vertical cross sections at the configured latitude
// of the configured variables of each input file.
func (cfg *Cfg) CrossSection() error {
	files, err := cfg.inputFiles()
	if err != nil {
		return err
	}
	vars, err := cfg.variables()
	if err != nil {
		return err
	}
	cm, err := cfg.colormap()
	if err != nil {
		return err
	}
	vmin, vmax, err := cfg.valueRange()
	if err != nil {
		return err
	}
	lat := cfg.GetFloat64("CrossSection.Lat")
	latDim := cfg.GetString("LatDim")
	hv := cfg.GetString("CrossSection.Height")
	outDir := cfg.getPath("outdir")
	log := logrus.StandardLogger()

	for _, file := range files {
		ds, err := iconkit.Open(file)
		if err != nil {
			return err
		}
		err = func() error {
			defer ds.Close()
			z, err := ds.ReadFirstStep(hv)
			if err != nil {
				return err
			}
			if z, err = z.Nearest(latDim, lat); err != nil {
				return err
			}
			height, err := iconkit.GeometricHeight(z.Squeeze())
			if err != nil {
				return err
			}
			ts := fileTimestamp(file)
			for _, v := range vars {
				if !ds.HasVariable(v) {
					log.WithFields(logrus.Fields{"file": filepath.Base(file), "variable": v}).Warn("variable not found, skipping")
					continue
				}
				f, err := ds.ReadFirstStep(v)
				if err != nil {
					return err
				}
				if f, err = f.Nearest(latDim, lat); err != nil {
					return err
				}
				f = f.Squeeze()
				out := filepath.Join(outDir, v, fmt.Sprintf("lat_%g", lat),
					fmt.Sprintf("%s_%glat_%s.png", v, lat, ts))
				err = figure.CrossSection(out, f, nil, height, figure.CrossOptions{
					Title:    fmt.Sprintf("%s Vertical Profile at %g° Latitude on %s", v, lat, when(f, ts)),
					Colormap: cm,
					VMin:     vmin,
					VMax:     vmax,
				})
				if err != nil {
					return fmt.Errorf("iconkit: plotting %s from %s: %v", v, file, err)
				}
				log.WithField("variable", v).Debugf("created %s", out)
			}
			return nil
		}()
		if err != nil {
			return err
		}
	}
	return nil
}

// Animate combines the images in the configured directory into an
// animated GIF.
func (cfg *Cfg) Animate() error {
	dir := cfg.getPath("Animate.Dir")
	if dir == "" {
		return fmt.Errorf("iconkit: Animate.Dir must be specified")
	}
	out := cfg.getPath("Animate.Output")
	if err := figure.AnimateDir(dir, out, cfg.GetFloat64("fps")); err != nil {
		return err
	}
	logrus.WithField("file", out).Info("created animation")
	return nil
}
