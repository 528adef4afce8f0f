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
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iconglori/iconkit"
	"github.com/sirupsen/logrus"
)

// Crop exports the configured variables of each input file as
// fixed-size images.
func (cfg *Cfg) Crop() error {
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
	mode := iconkit.ColorMode(cfg.GetString("Crop.Mode"))
	if err := mode.Validate(); err != nil {
		return err
	}
	w, h := cfg.GetInt("Crop.Width"), cfg.GetInt("Crop.Height")
	coarsen := cfg.GetBool("Crop.Coarsen")
	opts := cfg.coarsenOptions(true)
	maskVar := cfg.GetString("Crop.Mask")
	log := logrus.StandardLogger()

	var fileMask *iconkit.Field
	if mf := cfg.getPath("Crop.MaskFile"); maskVar != "" && mf != "" {
		if fileMask, err = readSqueezed(mf, maskVar); err != nil {
			return err
		}
	}

	for _, file := range files {
		ds, err := iconkit.Open(file)
		if err != nil {
			return err
		}
		err = func() error {
			defer ds.Close()
			mask := fileMask
			if maskVar != "" && mask == nil {
				m, err := ds.ReadFirstStep(maskVar)
				if err != nil {
					return err
				}
				mask = m.Squeeze()
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
				f = f.Squeeze()
				if mask != nil {
					if f, err = iconkit.ApplyMask(f, mask, cfg.GetFloat64("Crop.MaskThreshold")); err != nil {
						return err
					}
				}
				nlon, nlat := f.Len(opts.LonDim), f.Len(opts.LatDim)
				if coarsen && nlon >= w && nlat >= h && (nlon > w || nlat > h) {
					if f, err = iconkit.Coarsen(f, w, h, opts); err != nil {
						return fmt.Errorf("iconkit: coarsening %s from %s: %v", v, file, err)
					}
				}
				tiffPath, _, err := iconkit.SaveCrop(f, iconkit.CropOutput{
					Width:    w,
					Height:   h,
					Filename: fmt.Sprintf("%s_%s", v, ts),
					Format:   cfg.GetString("Crop.Format"),
					OutDir:   cfg.getPath("outdir"),
					Mode:     mode,
					CMA:      mask != nil,
					RasterOptions: iconkit.RasterOptions{
						Colormap: cm,
						VMin:     vmin,
						VMax:     vmax,
						Flip:     cfg.GetBool("Crop.Flip"),
					},
				})
				if err != nil {
					return err
				}
				log.WithField("variable", v).Debugf("created %s", tiffPath)
			}
			return nil
		}()
		if err != nil {
			return err
		}
	}
	return nil
}

// readSqueezed reads the first time step of v from the file at path.
func readSqueezed(path, v string) (*iconkit.Field, error) {
	ds, err := iconkit.Open(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()
	f, err := ds.ReadFirstStep(v)
	if err != nil {
		return nil, err
	}
	return f.Squeeze(), nil
}

// Regrid coarsens the configured variables of each input file and
// writes them to a new file in the output directory.
func (cfg *Cfg) Regrid() error {
	files, err := cfg.inputFiles()
	if err != nil {
		return err
	}
	vars, err := cfg.variables()
	if err != nil {
		return err
	}
	outDir := cfg.getPath("outdir")
	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return fmt.Errorf("iconkit: %v", err)
	}
	opts := cfg.coarsenOptions(cfg.GetBool("Regrid.Crop"))
	x, y := cfg.GetInt("Regrid.XSize"), cfg.GetInt("Regrid.YSize")
	for _, file := range files {
		fields, err := coarsenFile(file, vars, x, y, opts)
		if err != nil {
			return err
		}
		base := filepath.Base(file)
		out := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+"_regrid.nc")
		if err := iconkit.WriteFields(out, fields...); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"file":   out,
			"lon":    x,
			"lat":    y,
			"fields": len(fields),
		}).Info("regridded")
	}
	return nil
}

func coarsenFile(path string, vars []string, x, y int, opts iconkit.CoarsenOptions) ([]*iconkit.Field, error) {
	ds, err := iconkit.Open(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()
	fields := make([]*iconkit.Field, len(vars))
	for i, v := range vars {
		f, err := ds.Read(v)
		if err != nil {
			return nil, err
		}
		if fields[i], err = iconkit.Coarsen(f, x, y, opts); err != nil {
			return nil, fmt.Errorf("iconkit: regridding %s from %s: %v", v, path, err)
		}
	}
	return fields, nil
}

// Rename copies the images of the configured sources to standardized
// names and writes a summary to w.
func (cfg *Cfg) Rename(w io.Writer) error {
	sources, err := GetStringMapString("Rename.Sources", cfg.Viper)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("iconkit: Rename.Sources must be specified")
	}
	labels := make([]string, 0, len(sources))
	for label := range sources {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	rc := iconkit.RenameConfig{
		Extension: cfg.GetString("Rename.Extension"),
		OutRoot:   cfg.getPath("Rename.OutRoot"),
	}
	for _, label := range labels {
		rc.Sources = append(rc.Sources, iconkit.RenameSource{
			Dir:   os.ExpandEnv(sources[label]),
			Label: label,
		})
	}
	res, err := iconkit.Rename(rc)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "copied %d files, %d already existed, %d without timestamp\n",
		res.Copied, res.Existing, res.NoTimestamp)
	return nil
}

// GridDesc writes the description of a global regular grid with the
// resolution of the configured ICON grid to the configured output file,
// or to w if there is none.
func (cfg *Cfg) GridDesc(w io.Writer) error {
	in := cfg.getPath("GridDesc.Input")
	if in == "" {
		return fmt.Errorf("iconkit: GridDesc.Input must be specified")
	}
	ds, err := iconkit.Open(in)
	if err != nil {
		return err
	}
	defer ds.Close()
	clon, err := ds.Read("clon")
	if err != nil {
		return err
	}
	clat, err := ds.Read("clat")
	if err != nil {
		return err
	}
	dlon, dlat, err := iconkit.DetectResolution(clon.Data.Elements, clat.Data.Elements)
	if err != nil {
		return err
	}
	logrus.WithField("file", in).Infof("detected resolution %g° by %g°", dlon, dlat)
	g := iconkit.GlobalGridDesc(dlon, dlat)

	out := cfg.getPath("GridDesc.Output")
	if out == "" {
		_, err = g.WriteTo(w)
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("iconkit: %v", err)
	}
	if _, err = g.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("iconkit: writing %s: %v", out, err)
	}
	return f.Close()
}
