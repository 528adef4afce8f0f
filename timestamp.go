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
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// TimestampLayout is the layout of standardized file timestamps.
const TimestampLayout = "20060102_1504"

type timestampPattern struct {
	re     *regexp.Regexp
	layout string
}

// timestampPatterns are tried in order by ExtractTimestamp.
var timestampPatterns = []timestampPattern{
	// 20250701_23:00
	{regexp.MustCompile(`(\d{8}_\d{2}:\d{2})`), "20060102_15:04"},
	// ilf3f2506301200
	{regexp.MustCompile(`ilf3f(\d{10})`), "0601021504"},
	// 2025-06-30T01:00:00
	{regexp.MustCompile(`(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})`), "2006-01-02T15:04:05"},
}

// ExtractTimestamp finds a date and time in a file name and returns it
// formatted with TimestampLayout. A match that can't be parsed is logged
// and the next pattern is tried.
func ExtractTimestamp(name string) (string, bool) {
	t, ok := extractTime(name, logrus.StandardLogger())
	if !ok {
		return "", false
	}
	return t.Format(TimestampLayout), true
}

func extractTime(name string, log logrus.FieldLogger) (time.Time, bool) {
	for _, p := range timestampPatterns {
		m := p.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		t, err := time.Parse(p.layout, m[1])
		if err != nil {
			log.WithFields(logrus.Fields{
				"file":   name,
				"layout": p.layout,
			}).Warnf("failed parsing datetime from %s: %v", m[1], err)
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// ICONTimestamp returns the date and hour of an ICON output file named
// like icon_<date>_<hour>_<rest>.nc, concatenated.
func ICONTimestamp(path string) (string, error) {
	base := filepath.Base(path)
	parts := strings.Split(strings.TrimSuffix(base, filepath.Ext(base)), "_")
	if len(parts) < 3 {
		return "", fmt.Errorf("iconkit: can't find date and hour in file name '%s'", base)
	}
	return parts[1] + parts[2], nil
}
