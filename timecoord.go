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
	"strings"
	"time"
)

var refTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-1-2 15:4:5",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-1-2",
}

// DecodeTime converts a value of a time coordinate into a time, given
// the coordinate's units attribute. Both the CF form
// ("hours since 2025-06-30 00:00:00") and the CDO absolute form
// ("day as %Y%m%d.%f") are understood. Times are in UTC.
func DecodeTime(value float64, units string) (time.Time, error) {
	units = strings.TrimSpace(units)
	if strings.HasPrefix(units, "day as %Y%m%d") {
		day := math.Floor(value)
		d, err := time.Parse("20060102", fmt.Sprintf("%08d", int64(day)))
		if err != nil {
			return time.Time{}, fmt.Errorf("iconkit: decoding absolute time %v: %v", value, err)
		}
		return d.Add(time.Duration(math.Round((value - day) * 24 * float64(time.Hour)))), nil
	}

	parts := strings.SplitN(units, " since ", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("iconkit: unsupported time units '%s'", units)
	}
	var step time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "seconds", "second", "secs", "sec", "s":
		step = time.Second
	case "minutes", "minute", "mins", "min":
		step = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		step = time.Hour
	case "days", "day", "d":
		step = 24 * time.Hour
	default:
		return time.Time{}, fmt.Errorf("iconkit: unsupported time step in units '%s'", units)
	}
	ref := strings.TrimSpace(parts[1])
	ref = strings.TrimSuffix(ref, "UTC")
	ref = strings.TrimSuffix(ref, "Z")
	ref = strings.TrimSpace(ref)
	for _, layout := range refTimeLayouts {
		t, err := time.Parse(layout, ref)
		if err == nil {
			return t.Add(time.Duration(math.Round(value * float64(step)))), nil
		}
	}
	return time.Time{}, fmt.Errorf("iconkit: can't parse reference time '%s'", parts[1])
}
