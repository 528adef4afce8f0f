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

// Package cdo runs Climate Data Operators (CDO) commands to convert and
// remap ICON output.
package cdo

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Runner runs an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// CDO is a CDO executable.
type CDO struct {
	// Command is the executable, "cdo" by default.
	Command string

	// Threads is passed as '-P n' to the operators that support it
	// when greater than zero.
	Threads int

	// Runner defaults to ExecRunner.
	Runner Runner

	Log logrus.FieldLogger
}

func (c *CDO) command() string {
	if c.Command == "" {
		return "cdo"
	}
	return c.Command
}

func (c *CDO) log() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

// Run runs CDO with the given arguments.
func (c *CDO) Run(ctx context.Context, args ...string) ([]byte, error) {
	r := c.Runner
	if r == nil {
		r = ExecRunner{}
	}
	c.log().WithField("cmd", c.command()).Debug(strings.Join(args, " "))
	out, err := r.Run(ctx, c.command(), args...)
	if err != nil {
		return out, fmt.Errorf("cdo: %s %s: %v: %s", c.command(), strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

func (c *CDO) parallel(args ...string) []string {
	if c.Threads <= 0 {
		return args
	}
	return append([]string{"-P", strconv.Itoa(c.Threads)}, args...)
}

var versionRE = regexp.MustCompile(`version\s+(\S+)`)

// Version returns the CDO version number.
func (c *CDO) Version(ctx context.Context) (string, error) {
	out, err := c.Run(ctx, "-V")
	if err != nil {
		return "", err
	}
	m := versionRE.FindSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("cdo: can't find version in output %q", firstLine(out))
	}
	return string(m[1]), nil
}

func firstLine(b []byte) string {
	s := string(b)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Copy converts in, e.g. a GRIB file, to NetCDF at out.
func (c *CDO) Copy(ctx context.Context, in, out string) error {
	_, err := c.Run(ctx, c.parallel("-f", "nc", "copy", in, out)...)
	return err
}

// SetGrid attaches the grid described in grid to the data in in.
func (c *CDO) SetGrid(ctx context.Context, grid, in, out string) error {
	_, err := c.Run(ctx, "setgrid,"+grid, in, out)
	return err
}

// Remap remaps in to the target grid using precomputed weights.
func (c *CDO) Remap(ctx context.Context, grid, weights, in, out string) error {
	_, err := c.Run(ctx, c.parallel("remap,"+grid+","+weights, in, out)...)
	return err
}

// SelGrid extracts grid number n from in.
func (c *CDO) SelGrid(ctx context.Context, n int, in, out string) error {
	_, err := c.Run(ctx, "selgrid,"+strconv.Itoa(n), in, out)
	return err
}

// GenNN generates nearest-neighbor remapping weights from the
// unstructured grid to grid.
func (c *CDO) GenNN(ctx context.Context, grid, unstructured, out string) error {
	_, err := c.Run(ctx, c.parallel("gennn,"+grid+","+unstructured, out)...)
	return err
}
