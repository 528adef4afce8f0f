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
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/iconglori/iconkit/cdo"
	"github.com/iconglori/iconkit/cloud"
	"github.com/sirupsen/logrus"
)

// BucketList writes the keys in the configured bucket that match the
// configured prefix and suffix to w, one per line.
func (cfg *Cfg) BucketList(ctx context.Context, w io.Writer) error {
	b, err := cfg.bucket(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	keys, err := cloud.List(ctx, b, cfg.GetString("prefix"), cfg.GetString("suffix"))
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Fprintln(w, k)
	}
	return nil
}

// BucketUpload uploads the files matching each of the patterns to the
// configured bucket. Every pattern is tried even if an earlier one
// fails.
func (cfg *Cfg) BucketUpload(ctx context.Context, w io.Writer, patterns ...string) error {
	b, err := cfg.bucket(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	var total int
	var firstErr error
	for _, p := range patterns {
		n, err := cloud.UploadGlob(ctx, b, p)
		total += n
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	fmt.Fprintf(w, "uploaded %d files\n", total)
	return firstErr
}

// BucketDownload downloads the given keys from the configured bucket
// into the output directory, decompressing gzipped ones.
func (cfg *Cfg) BucketDownload(ctx context.Context, w io.Writer, keys ...string) error {
	b, err := cfg.bucket(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	outDir := cfg.getPath("outdir")
	for _, key := range keys {
		var out string
		if strings.HasSuffix(key, ".gz") {
			if out, err = cloud.DownloadGunzip(ctx, b, key, outDir); err != nil {
				return err
			}
		} else {
			out = filepath.Join(outDir, path.Base(key))
			if err = cloud.Download(ctx, b, key, out); err != nil {
				return err
			}
		}
		fmt.Fprintln(w, out)
	}
	return nil
}

// pipeline returns the conversion pipeline described by the
// configuration.
func (cfg *Cfg) pipeline() (*cdo.Pipeline, error) {
	p := &cdo.Pipeline{
		CDO: &cdo.CDO{
			Command: cfg.getPath("CDO.Command"),
			Threads: cfg.GetInt("CDO.Threads"),
			Runner:  cfg.Runner,
			Log:     logrus.StandardLogger(),
		},
		GridFile:         cfg.getPath("CDO.GridFile"),
		WeightsFile:      cfg.getPath("CDO.WeightsFile"),
		GridInfoFile:     cfg.getPath("CDO.GridInfoFile"),
		UnstructuredGrid: cfg.getPath("CDO.UnstructuredGrid"),
	}
	for _, name := range []string{"CDO.GridFile", "CDO.WeightsFile", "CDO.GridInfoFile", "CDO.UnstructuredGrid"} {
		if cfg.GetString(name) == "" {
			return nil, fmt.Errorf("iconkit: %s must be specified", name)
		}
	}
	return p, nil
}

// Process converts the gzipped GRIB files under the configured prefix
// in the configured bucket and writes a summary to w.
func (cfg *Cfg) Process(ctx context.Context, w io.Writer) error {
	p, err := cfg.pipeline()
	if err != nil {
		return err
	}
	b, err := cfg.bucket(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	res, err := p.Process(ctx, b, cfg.GetString("prefix"), cfg.getPath("outdir"))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "converted %d files, %d failed\n", res.Converted, res.Failed)
	return nil
}
