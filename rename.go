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
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// RenameSource is a folder of images and the data type label given to
// its copies.
type RenameSource struct {
	Dir   string
	Label string
}

// RenameConfig configures Rename.
type RenameConfig struct {
	Sources []RenameSource

	// Extension selects the files to copy, e.g. "png" or "tiff".
	Extension string

	// OutRoot is the folder under which one subfolder per label
	// is created.
	OutRoot string

	Log logrus.FieldLogger
}

// RenameResult counts the outcomes of Rename.
type RenameResult struct {
	Copied, Existing, NoTimestamp int
}

// Rename copies the images of each source into {OutRoot}/{Label}, naming
// each copy {timestamp}_{Label}{ext} where the timestamp is extracted from
// the original name. Existing files are never overwritten and files
// without a timestamp are skipped. Modification times are preserved.
func Rename(cfg RenameConfig) (RenameResult, error) {
	var res RenameResult
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	ext := strings.TrimPrefix(cfg.Extension, ".")
	for _, src := range cfg.Sources {
		files, err := Glob(src.Dir, "*."+ext, "")
		if err != nil {
			return res, err
		}
		log.WithFields(logrus.Fields{
			"dir":   src.Dir,
			"label": src.Label,
		}).Infof("found %d files", len(files))

		outDir := filepath.Join(cfg.OutRoot, src.Label)
		if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
			return res, fmt.Errorf("iconkit: creating %s: %v", outDir, err)
		}
		for _, f := range files {
			base := filepath.Base(f)
			t, ok := extractTime(base, log)
			if !ok {
				log.WithField("file", base).Warn("could not extract datetime, skipping")
				res.NoTimestamp++
				continue
			}
			newName := fmt.Sprintf("%s_%s%s", t.Format(TimestampLayout), src.Label, strings.ToLower(filepath.Ext(base)))
			outPath := filepath.Join(outDir, newName)
			if _, err := os.Stat(outPath); err == nil {
				log.WithField("file", outPath).Info("already exists, skipping")
				res.Existing++
				continue
			}
			if err := copyFile(f, outPath); err != nil {
				return res, err
			}
			log.WithFields(logrus.Fields{
				"file": base,
				"to":   filepath.Join(src.Label, newName),
			}).Info("copied")
			res.Copied++
		}
	}
	return res, nil
}

// copyFile copies src to a new file dst, keeping its permissions and
// modification time.
func copyFile(src, dst string) error {
	r, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("iconkit: copying file: %v", err)
	}
	defer r.Close()
	fi, err := r.Stat()
	if err != nil {
		return fmt.Errorf("iconkit: copying file: %v", err)
	}
	w, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fi.Mode().Perm())
	if err != nil {
		return fmt.Errorf("iconkit: copying file: %v", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("iconkit: copying %s: %v", src, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("iconkit: copying %s: %v", src, err)
	}
	return os.Chtimes(dst, fi.ModTime(), fi.ModTime())
}
