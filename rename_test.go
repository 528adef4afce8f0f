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
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

var testTime = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func touch(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestRename(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	touch(t, filepath.Join(dir, "icon", "ilf3f2506301200_greyscale.TIF"), "a", mtime)
	touch(t, filepath.Join(dir, "icon", "const_greyscale.TIF"), "b", mtime)
	touch(t, filepath.Join(dir, "msg", "msg_20250630_12:00_greyscale.TIF"), "c", mtime)
	touch(t, filepath.Join(dir, "msg", "msg_20250630_12:00_greyscale.png"), "d", mtime)
	out := filepath.Join(dir, "data_plot")
	touch(t, filepath.Join(out, "msg", "20250630_1200_msg.tif"), "old", mtime)

	cfg := RenameConfig{
		Sources: []RenameSource{
			{Dir: filepath.Join(dir, "icon"), Label: "icon"},
			{Dir: filepath.Join(dir, "msg"), Label: "msg"},
		},
		Extension: "TIF",
		OutRoot:   out,
	}
	res, err := Rename(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if want := (RenameResult{Copied: 1, Existing: 1, NoTimestamp: 1}); res != want {
		t.Errorf("have %+v, want %+v", res, want)
	}

	copied := filepath.Join(out, "icon", "20250630_1200_icon.tif")
	b, err := os.ReadFile(copied)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "a" {
		t.Errorf("content: have %q", b)
	}
	fi, err := os.Stat(copied)
	if err != nil {
		t.Fatal(err)
	}
	if !fi.ModTime().Equal(mtime) {
		t.Errorf("modification time: have %v, want %v", fi.ModTime(), mtime)
	}
	b, err = os.ReadFile(filepath.Join(out, "msg", "20250630_1200_msg.tif"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "old" {
		t.Error("existing file overwritten")
	}

	// A second run copies nothing.
	res, err = Rename(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if want := (RenameResult{Existing: 2, NoTimestamp: 1}); !reflect.DeepEqual(res, want) {
		t.Errorf("second run: have %+v, want %+v", res, want)
	}
}
