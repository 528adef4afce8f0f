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
	"fmt"
	"io"
	"strings"

	"github.com/kr/pretty"
)

// Describe writes the global attributes, dimensions and variables of ds
// to w in a human-readable form.
func Describe(w io.Writer, ds *Dataset) error {
	b := bufio.NewWriter(w)
	fmt.Fprintf(b, "File: %s\n\nGlobal attributes:\n", ds.Path)
	global := ds.GlobalAttributes()
	for _, a := range ds.AttributeNames("") {
		fmt.Fprintf(b, "%s: %s\n", a, attrString(global[a]))
	}

	fmt.Fprintln(b, "\nDimensions:")
	for _, d := range ds.Dimensions() {
		if d.Unlimited {
			fmt.Fprintf(b, "%s: %d (unlimited)\n", d.Name, d.Len)
		} else {
			fmt.Fprintf(b, "%s: %d\n", d.Name, d.Len)
		}
	}

	fmt.Fprintln(b, "\nVariables:")
	for _, v := range ds.Variables() {
		dims, lengths, err := ds.VariableDims(v)
		if err != nil {
			return err
		}
		shape := make([]string, len(dims))
		for i, d := range dims {
			shape[i] = fmt.Sprintf("%s=%d", d, lengths[i])
		}
		fmt.Fprintf(b, "%s(%s)\n", v, strings.Join(shape, ", "))
		attrs := ds.Attributes(v)
		for _, a := range ds.AttributeNames(v) {
			fmt.Fprintf(b, "    %s: %s\n", a, attrString(attrs[a]))
		}
	}
	return b.Flush()
}

func attrString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := attrFloat(v); ok && attrLen(v) == 1 {
		return fmt.Sprint(f)
	}
	return pretty.Sprint(v)
}

func attrLen(v interface{}) int {
	switch x := v.(type) {
	case []float32:
		return len(x)
	case []float64:
		return len(x)
	case []int32:
		return len(x)
	case []int16:
		return len(x)
	}
	return 0
}
