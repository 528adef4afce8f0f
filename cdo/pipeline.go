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

package cdo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iconglori/iconkit/cloud"
	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
)

// Pipeline converts ICON GRIB output on its native unstructured grid to
// NetCDF on a regular grid.
type Pipeline struct {
	CDO *CDO

	// GridFile is the CDO description of the target grid.
	GridFile string

	// WeightsFile holds the remapping weights. It is generated by
	// Prepare if it doesn't exist.
	WeightsFile string

	// GridInfoFile is the ICON grid file that the unstructured grid
	// is extracted from.
	GridInfoFile string

	// UnstructuredGrid is generated by Prepare if it doesn't exist.
	UnstructuredGrid string
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Prepare creates the unstructured grid and the remapping weights
// unless they already exist.
func (p *Pipeline) Prepare(ctx context.Context) error {
	log := p.CDO.log()
	if !exists(p.UnstructuredGrid) {
		log.WithField("file", p.GridInfoFile).Info("extracting unstructured grid")
		if err := p.CDO.SelGrid(ctx, 2, p.GridInfoFile, p.UnstructuredGrid); err != nil {
			return err
		}
	}
	if !exists(p.WeightsFile) {
		log.WithField("file", p.WeightsFile).Info("generating remapping weights")
		if err := p.CDO.GenNN(ctx, p.GridFile, p.UnstructuredGrid, p.WeightsFile); err != nil {
			return err
		}
	}
	return nil
}

// Convert converts grib to NetCDF, attaches the unstructured grid, and
// remaps it to the target grid in outDir, named after grib with a .nc
// extension. The input and intermediate files are removed whether or not
// the conversion succeeds. It returns the path of the remapped file.
func (p *Pipeline) Convert(ctx context.Context, grib, outDir string) (string, error) {
	base := strings.TrimSuffix(grib, filepath.Ext(grib))
	ncPath := base + "_copy.nc"
	gridPath := base + "_grid.nc"
	out := filepath.Join(outDir, filepath.Base(base)+".nc")
	defer func() {
		for _, f := range []string{grib, ncPath, gridPath} {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				p.CDO.log().WithField("file", f).Warnf("removing intermediate file: %v", err)
			}
		}
	}()

	if err := p.CDO.Copy(ctx, grib, ncPath); err != nil {
		return "", err
	}
	if err := p.CDO.SetGrid(ctx, p.UnstructuredGrid, ncPath, gridPath); err != nil {
		return "", err
	}
	if err := p.CDO.Remap(ctx, p.GridFile, p.WeightsFile, gridPath, out); err != nil {
		return "", err
	}
	return out, nil
}

// ProcessResult counts the files handled by Process.
type ProcessResult struct {
	Converted, Failed int
}

// Process downloads each gzipped file under prefix in b into outDir,
// decompresses it, and converts it. A file that fails is logged and
// skipped.
func (p *Pipeline) Process(ctx context.Context, b *blob.Bucket, prefix, outDir string) (ProcessResult, error) {
	var res ProcessResult
	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return res, fmt.Errorf("cdo: %v", err)
	}
	if err := p.Prepare(ctx); err != nil {
		return res, err
	}
	keys, err := cloud.List(ctx, b, prefix, ".gz")
	if err != nil {
		return res, err
	}
	log := p.CDO.log()
	log.WithField("prefix", prefix).Infof("found %d gzipped files", len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		klog := log.WithField("key", key)
		klog.Info("processing")
		grib, err := cloud.DownloadGunzip(ctx, b, key, outDir)
		if err != nil {
			klog.Error(err)
			res.Failed++
			continue
		}
		out, err := p.Convert(ctx, grib, outDir)
		if err != nil {
			klog.WithFields(logrus.Fields{"file": grib}).Errorf("converting: %v", err)
			res.Failed++
			continue
		}
		klog.WithField("file", out).Info("created")
		res.Converted++
	}
	return res, nil
}
