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
	"math"
	"path/filepath"
	"sort"
)

// Glob returns the sorted paths in dir whose base names match pattern,
// leaving out those that also match exclude, if it is not empty.
func Glob(dir, pattern, exclude string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("iconkit: glob '%s': %v", pattern, err)
	}
	if exclude != "" {
		if _, err := filepath.Match(exclude, ""); err != nil {
			return nil, fmt.Errorf("iconkit: exclude pattern '%s': %v", exclude, err)
		}
	}
	o := files[:0]
	for _, f := range files {
		if exclude != "" {
			if ok, _ := filepath.Match(exclude, filepath.Base(f)); ok {
				continue
			}
		}
		o = append(o, f)
	}
	sort.Strings(o)
	return o, nil
}

// GlobalRange returns the minimum and maximum of variable across all
// of the given files, ignoring NaN.
func GlobalRange(files []string, variable string) (min, max float64, err error) {
	min, max = math.NaN(), math.NaN()
	for _, path := range files {
		ds, err := Open(path)
		if err != nil {
			return min, max, err
		}
		f, err := ds.Read(variable)
		ds.Close()
		if err != nil {
			return min, max, err
		}
		lo, hi := f.Range()
		if math.IsNaN(min) || lo < min {
			min = lo
		}
		if math.IsNaN(max) || hi > max {
			max = hi
		}
	}
	return min, max, nil
}
