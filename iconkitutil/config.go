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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iconglori/iconkit"
	"github.com/iconglori/iconkit/cloud"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"gocloud.dev/blob"
	"gonum.org/v1/plot/palette"
)

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

// options returns the configuration options available to iconkit.
func (cfg *Cfg) options() []option {
	dataCmds := []*pflag.FlagSet{cfg.plotCmd.Flags(), cfg.crossCmd.Flags(), cfg.cropCmd.Flags(), cfg.regridCmd.Flags()}
	imageCmds := []*pflag.FlagSet{cfg.plotCmd.Flags(), cfg.crossCmd.Flags(), cfg.cropCmd.Flags()}
	cloudCmds := []*pflag.FlagSet{cfg.bucketCmd.PersistentFlags(), cfg.processCmd.Flags()}

	return []option{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name: "loglevel",
			usage: `
              loglevel sets the logging level: one of debug, info, warning
              or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name: "input",
			usage: `
              input is a glob pattern matching the NetCDF files to process,
              for example "data/icon_*.nc". It can include environment
              variables.`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   dataCmds,
		},
		{
			name: "exclude",
			usage: `
              exclude is a pattern for base names of input files to
              leave out, such as constant fields written alongside the
              time steps.`,
			defaultVal: "",
			flagsets:   dataCmds,
		},
		{
			name: "variables",
			usage: `
              variables lists the variables to process.`,
			defaultVal: []string{"t2m"},
			flagsets:   dataCmds,
		},
		{
			name: "outdir",
			usage: `
              outdir is the directory output files are written to. It can
              include environment variables.`,
			shorthand:  "o",
			defaultVal: "output",
			flagsets: append(append([]*pflag.FlagSet{}, dataCmds...),
				cfg.processCmd.Flags(), cfg.bucketDownloadCmd.Flags()),
		},
		{
			name: "colormap",
			usage: fmt.Sprintf(`
              colormap is the name of the colormap used for images. Options
              are %s.`, strings.Join(iconkit.ColormapNames(), ", ")),
			defaultVal: "precip20",
			flagsets:   imageCmds,
		},
		{
			name: "vmin",
			usage: `
              vmin is the value at the bottom of the colormap. If empty,
              the minimum of the data is used.`,
			defaultVal: "",
			flagsets:   imageCmds,
		},
		{
			name: "vmax",
			usage: `
              vmax is the value at the top of the colormap. If empty,
              the maximum of the data is used.`,
			defaultVal: "",
			flagsets:   imageCmds,
		},
		{
			name: "LonDim",
			usage: `
              LonDim is the name of the longitude dimension.`,
			defaultVal: "lon",
			flagsets:   []*pflag.FlagSet{cfg.cropCmd.Flags(), cfg.regridCmd.Flags()},
		},
		{
			name: "LatDim",
			usage: `
              LatDim is the name of the latitude dimension.`,
			defaultVal: "lat",
			flagsets:   []*pflag.FlagSet{cfg.crossCmd.Flags(), cfg.cropCmd.Flags(), cfg.regridCmd.Flags()},
		},
		{
			name: "Plot.GlobalRange",
			usage: `
              Plot.GlobalRange specifies whether each variable is drawn with
              the range of its values across all input files, so that the
              colors of different time steps can be compared. vmin and vmax
              take precedence.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.plotCmd.Flags()},
		},
		{
			name: "Plot.GridFile",
			usage: `
              Plot.GridFile is an optional CDO grid description giving the
              longitudes and latitudes of the cells, for files without
              coordinate variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.plotCmd.Flags()},
		},
		{
			name: "Plot.Shapefile",
			usage: `
              Plot.Shapefile is an optional shapefile of coastlines or
              borders drawn over each map.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.plotCmd.Flags()},
		},
		{
			name: "Plot.Derived",
			usage: `
              Plot.Derived maps the names of additional variables to plot
              to expressions computing them from the variables in each
              file, for example {"t2m_C": "t2m - 273.15"}. Variable names
              containing special characters are enclosed in braces.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{cfg.plotCmd.Flags()},
		},
		{
			name: "Plot.GIF",
			usage: `
              Plot.GIF specifies whether an animated GIF is made of the maps
              of each variable.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.plotCmd.Flags()},
		},
		{
			name: "fps",
			usage: `
              fps is the number of frames per second of animations.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{cfg.plotCmd.Flags(), cfg.animateCmd.Flags()},
		},
		{
			name: "CrossSection.Lat",
			usage: `
              CrossSection.Lat is the latitude of the vertical cross section.
              The nearest latitude in the data is used.`,
			defaultVal: 43.3,
			flagsets:   []*pflag.FlagSet{cfg.crossCmd.Flags()},
		},
		{
			name: "CrossSection.Height",
			usage: `
              CrossSection.Height is the geopotential variable [m2 s-2] the
              heights of the model levels are computed from.`,
			defaultVal: "z",
			flagsets:   []*pflag.FlagSet{cfg.crossCmd.Flags()},
		},
		{
			name: "Crop.Width",
			usage: `
              Crop.Width is the width of the exported images in pixels.`,
			defaultVal: 256,
			flagsets:   []*pflag.FlagSet{cfg.cropCmd.Flags()},
		},
		{
			name: "Crop.Height",
			usage: `
              Crop.Height is the height of the exported images in pixels.`,
			defaultVal: 256,
			flagsets:   []*pflag.FlagSet{cfg.cropCmd.Flags()},
		},
		{
			name: "Crop.Coarsen",
			usage: `
              Crop.Coarsen specifies whether fields larger than the image
              are first coarsened to one cell per pixel. Fields smaller
              than the image along either axis are resampled instead.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{cfg.cropCmd.Flags()},
		},
		{
			name: "Crop.Format",
			usage: `
              Crop.Format names the directory of the TIFF output, which is
              {outdir}/{Crop.Format}_{Crop.Mode}.`,
			defaultVal: "tiff",
			flagsets:   []*pflag.FlagSet{cfg.cropCmd.Flags()},
		},
		{
			name: "Crop.Mode",
			usage: `
              Crop.Mode is the color mode of the exported images: RGB or
              greyscale.`,
			defaultVal: string(iconkit.RGB),
			flagsets:   []*pflag.FlagSet{cfg.cropCmd.Flags()},
		},
		{
			name: "Crop.Flip",
			usage: `
              Crop.Flip specifies whether the first row of the field is put
              at the bottom of the image.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{cfg.cropCmd.Flags()},
		},
		{
			name: "Crop.Mask",
			usage: `
              Crop.Mask is an optional cloud mask variable. Cells where the
              mask is below Crop.MaskThreshold are left blank.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.cropCmd.Flags()},
		},
		{
			name: "Crop.MaskFile",
			usage: `
              Crop.MaskFile is the file Crop.Mask is read from. If empty,
              the mask is read from each input file.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.cropCmd.Flags()},
		},
		{
			name: "Crop.MaskThreshold",
			usage: `
              Crop.MaskThreshold is the lowest mask value that is kept.`,
			defaultVal: 0.5,
			flagsets:   []*pflag.FlagSet{cfg.cropCmd.Flags()},
		},
		{
			name: "Regrid.XSize",
			usage: `
              Regrid.XSize is the number of longitudes of the coarse grid.`,
			defaultVal: 256,
			flagsets:   []*pflag.FlagSet{cfg.regridCmd.Flags()},
		},
		{
			name: "Regrid.YSize",
			usage: `
              Regrid.YSize is the number of latitudes of the coarse grid.`,
			defaultVal: 256,
			flagsets:   []*pflag.FlagSet{cfg.regridCmd.Flags()},
		},
		{
			name: "Regrid.Agg",
			usage: `
              Regrid.Agg is the aggregation of the cells in each block:
              mean or sum.`,
			defaultVal: string(iconkit.Mean),
			flagsets:   []*pflag.FlagSet{cfg.regridCmd.Flags()},
		},
		{
			name: "Regrid.Crop",
			usage: `
              Regrid.Crop specifies whether grids that are not a multiple of
              the coarse grid are cropped symmetrically instead of failing.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{cfg.regridCmd.Flags()},
		},
		{
			name: "Animate.Dir",
			usage: `
              Animate.Dir is the directory of PNG frames to animate, in
              name order.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.animateCmd.Flags()},
		},
		{
			name: "Animate.Output",
			usage: `
              Animate.Output is the path of the animated GIF.`,
			defaultVal: "animation.gif",
			flagsets:   []*pflag.FlagSet{cfg.animateCmd.Flags()},
		},
		{
			name: "Rename.Sources",
			usage: `
              Rename.Sources maps data type labels to the directories of
              images to copy, for example {"ICON": "plots/icon"}.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{cfg.renameCmd.Flags()},
		},
		{
			name: "Rename.Extension",
			usage: `
              Rename.Extension is the extension of the images to copy.`,
			defaultVal: "png",
			flagsets:   []*pflag.FlagSet{cfg.renameCmd.Flags()},
		},
		{
			name: "Rename.OutRoot",
			usage: `
              Rename.OutRoot is the directory under which one directory per
              label is created.`,
			defaultVal: "renamed",
			flagsets:   []*pflag.FlagSet{cfg.renameCmd.Flags()},
		},
		{
			name: "GridDesc.Input",
			usage: `
              GridDesc.Input is an ICON grid file with the cell center
              coordinates clon and clat in radians.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.gridDescCmd.Flags()},
		},
		{
			name: "GridDesc.Output",
			usage: `
              GridDesc.Output is the path the grid description is written
              to. If empty, it is written to standard output.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.gridDescCmd.Flags()},
		},
		{
			name: "bucket",
			usage: `
              bucket is the URL of the bucket holding the data, for example
              "s3://icon-output", "gs://icon-output" or "file:///data".`,
			shorthand:  "b",
			defaultVal: "",
			flagsets:   cloudCmds,
		},
		{
			name: "S3.Endpoint",
			usage: `
              S3.Endpoint is the address of an S3-compatible object store.
              If empty, AWS is used.`,
			defaultVal: "",
			flagsets:   cloudCmds,
		},
		{
			name: "S3.Region",
			usage: `
              S3.Region is the region of the S3 bucket.`,
			defaultVal: "",
			flagsets:   cloudCmds,
		},
		{
			name: "S3.AccessKey",
			usage: `
              S3.AccessKey is the access key of the object store. If empty,
              the AWS environment variables are used. It is best set using
              the ICONKIT_S3_ACCESSKEY environment variable.`,
			defaultVal: "",
			flagsets:   cloudCmds,
		},
		{
			name: "S3.SecretKey",
			usage: `
              S3.SecretKey is the secret key of the object store. It is best
              set using the ICONKIT_S3_SECRETKEY environment variable.`,
			defaultVal: "",
			flagsets:   cloudCmds,
		},
		{
			name: "S3.PathStyle",
			usage: `
              S3.PathStyle specifies whether the bucket name is put in the
              path of the request URL rather than its host name, as most
              S3-compatible stores require.`,
			defaultVal: true,
			flagsets:   cloudCmds,
		},
		{
			name: "prefix",
			usage: `
              prefix selects the bucket objects whose keys begin with it.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.bucketListCmd.Flags(), cfg.processCmd.Flags()},
		},
		{
			name: "suffix",
			usage: `
              suffix selects the bucket objects whose keys end with it.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.bucketListCmd.Flags()},
		},
		{
			name: "CDO.Command",
			usage: `
              CDO.Command is the path of the cdo program.`,
			defaultVal: "cdo",
			flagsets:   []*pflag.FlagSet{cfg.processCmd.Flags()},
		},
		{
			name: "CDO.Threads",
			usage: `
              CDO.Threads is the number of threads cdo runs with.`,
			defaultVal: 4,
			flagsets:   []*pflag.FlagSet{cfg.processCmd.Flags()},
		},
		{
			name: "CDO.GridFile",
			usage: `
              CDO.GridFile is the description of the regular target grid,
              as written by the griddesc command.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.processCmd.Flags()},
		},
		{
			name: "CDO.GridInfoFile",
			usage: `
              CDO.GridInfoFile is the ICON grid file of the model output.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.processCmd.Flags()},
		},
		{
			name: "CDO.WeightsFile",
			usage: `
              CDO.WeightsFile is where the remapping weights are stored.
              They are computed if the file does not exist.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.processCmd.Flags()},
		},
		{
			name: "CDO.UnstructuredGrid",
			usage: `
              CDO.UnstructuredGrid is where the cell grid selected from
              CDO.GridInfoFile is stored. It is created if it does not exist.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.processCmd.Flags()},
		},
	}
}

// addOptions creates the command-line flags for the options and binds
// them to the configuration.
func (cfg *Cfg) addOptions() {
	for _, option := range cfg.options() {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
			case int:
				set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				set.StringP(option.name, option.shorthand, b.String(), option.usage)
			default:
				panic("invalid argument type")
			}
			cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func (cfg *Cfg) setConfig() error {
	if cfgpath := cfg.GetString("config"); cfgpath != "" {
		cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("iconkit: problem reading configuration file: %v", err)
		}
	}
	lvl, err := logrus.ParseLevel(cfg.GetString("loglevel"))
	if err != nil {
		return fmt.Errorf("iconkit: %v", err)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a JSON string given on the
// command line or in an environment variable.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch x := i.(type) {
	case map[string]string:
		return x, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(x)
	case string:
		o := make(map[string]string)
		if strings.TrimSpace(x) == "" {
			return o, nil
		}
		d := json.NewDecoder(strings.NewReader(x))
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("iconkit: parsing %s: %v", varName, err)
		}
		return o, nil
	case nil:
		return map[string]string{}, nil
	default:
		return nil, fmt.Errorf("iconkit: invalid type for map variable %s: %#v", varName, i)
	}
}

func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// getPath returns a configuration value with any environment
// variables in it expanded.
func (cfg *Cfg) getPath(name string) string {
	return os.ExpandEnv(cfg.GetString(name))
}

// inputFiles returns the files matching the input pattern, without
// those matching the exclude pattern.
func (cfg *Cfg) inputFiles() ([]string, error) {
	pattern := cfg.getPath("input")
	if pattern == "" {
		return nil, fmt.Errorf("iconkit: input files must be specified")
	}
	files, err := iconkit.Glob(filepath.Dir(pattern), filepath.Base(pattern), cfg.GetString("exclude"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("iconkit: no files match '%s'", pattern)
	}
	return files, nil
}

// variables returns the configured variables, which must not be empty.
func (cfg *Cfg) variables() ([]string, error) {
	vars := cfg.GetStringSlice("variables")
	if len(vars) == 0 {
		return nil, fmt.Errorf("iconkit: no variables specified")
	}
	return vars, nil
}

func (cfg *Cfg) colormap() (palette.ColorMap, error) {
	return iconkit.ColormapByName(cfg.GetString("colormap"))
}

// valueRange returns the configured colormap bounds, which are nil
// when not set.
func (cfg *Cfg) valueRange() (vmin, vmax *float64, err error) {
	parse := func(name string) (*float64, error) {
		s := strings.TrimSpace(cfg.GetString(name))
		if s == "" {
			return nil, nil
		}
		v, err := cast.ToFloat64E(s)
		if err != nil {
			return nil, fmt.Errorf("iconkit: invalid %s '%s'", name, s)
		}
		return &v, nil
	}
	if vmin, err = parse("vmin"); err != nil {
		return nil, nil, err
	}
	if vmax, err = parse("vmax"); err != nil {
		return nil, nil, err
	}
	if vmin != nil && vmax != nil && *vmin > *vmax {
		return nil, nil, fmt.Errorf("iconkit: vmin %g is larger than vmax %g", *vmin, *vmax)
	}
	return vmin, vmax, nil
}

func (cfg *Cfg) coarsenOptions(crop bool) iconkit.CoarsenOptions {
	return iconkit.CoarsenOptions{
		LonDim: cfg.GetString("LonDim"),
		LatDim: cfg.GetString("LatDim"),
		Agg:    iconkit.Aggregation(cfg.GetString("Regrid.Agg")),
		Crop:   crop,
	}
}

func (cfg *Cfg) s3Config() cloud.S3Config {
	return cloud.S3Config{
		Endpoint:  cfg.getPath("S3.Endpoint"),
		Region:    cfg.GetString("S3.Region"),
		AccessKey: os.ExpandEnv(cfg.GetString("S3.AccessKey")),
		SecretKey: os.ExpandEnv(cfg.GetString("S3.SecretKey")),
		PathStyle: cfg.GetBool("S3.PathStyle"),
	}
}

// bucket opens the configured bucket.
func (cfg *Cfg) bucket(ctx context.Context) (*blob.Bucket, error) {
	name := cfg.getPath("bucket")
	if name == "" {
		return nil, fmt.Errorf("iconkit: bucket must be specified")
	}
	return cloud.OpenBucket(ctx, name, cfg.s3Config())
}
