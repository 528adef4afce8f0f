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

// Package iconkitutil contains the iconkit command-line interface.
package iconkitutil

import (
	"strings"

	"github.com/iconglori/iconkit"
	"github.com/iconglori/iconkit/cdo"
	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
)

// Cfg holds configuration information and the commands using it.
type Cfg struct {
	*viper.Viper

	// Runner runs the external programs of the process command.
	// If nil, they are run as subprocesses.
	Runner cdo.Runner

	// Root is the main command.
	Root *cobra.Command

	versionCmd, inspectCmd, plotCmd, crossCmd, cropCmd, regridCmd,
	animateCmd, renameCmd, gridDescCmd, processCmd *cobra.Command

	bucketCmd, bucketListCmd, bucketUploadCmd, bucketDownloadCmd *cobra.Command
}

// InitializeConfig returns a new configuration with the commands and
// options of iconkit.
func InitializeConfig() *Cfg {
	cfg := &Cfg{Viper: viper.New()}

	cfg.Root = &cobra.Command{
		Use:   "iconkit",
		Short: "Tools for ICON weather model output.",
		Long: `iconkit plots, regrids and exports ICON weather model output in NetCDF
format and moves it to and from object storage. Use the subcommands specified
below to access the functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'ICONKIT_var' where 'var' is the
name of the variable to be set, with any '.' replaced by '_' (for example,
ICONKIT_S3_ACCESSKEY). Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return cfg.setConfig() },
	}

	cfg.versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Long:  "version prints the version number of this version of iconkit.",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("iconkit v%s\n", iconkit.Version)
		},
		DisableAutoGenTag: true,
	}

	cfg.inspectCmd = &cobra.Command{
		Use:   "inspect file...",
		Short: "Describe the contents of NetCDF files.",
		Long: `inspect prints the global attributes, dimensions and variables of
each of the given NetCDF files.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Inspect(cmd.OutOrStdout(), expandStringSlice(args)...)
		},
		DisableAutoGenTag: true,
	}

	cfg.plotCmd = &cobra.Command{
		Use:   "plot",
		Short: "Draw maps of 2-D variables.",
		Long: `plot draws a map of the first time step of each of the given variables
in each input file, written to {outdir}/{variable}/{variable}_{timestamp}.png.
The timestamp is the date and hour in the name of the input file.
Optionally, the maps of each variable are combined into an animated GIF.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Plot()
		},
		DisableAutoGenTag: true,
	}

	cfg.crossCmd = &cobra.Command{
		Use:   "crosssection",
		Short: "Draw vertical cross sections of 3-D variables.",
		Long: `crosssection draws longitude by height cross sections of the given
variables at a fixed latitude. Heights are computed from geopotential.
Images are written to
{outdir}/{variable}/lat_{lat}/{variable}_{lat}lat_{timestamp}.png.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.CrossSection()
		},
		DisableAutoGenTag: true,
	}

	cfg.cropCmd = &cobra.Command{
		Use:   "crop",
		Short: "Export variables as fixed-size images.",
		Long: `crop exports each of the given variables of each input file as TIFF
and PNG images of a fixed size with no axes, such as for training
image-based models. Fields can be coarsened to the image size first and
masked by a cloud mask.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Crop()
		},
		DisableAutoGenTag: true,
	}

	cfg.regridCmd = &cobra.Command{
		Use:   "regrid",
		Short: "Coarsen regular grids by block aggregation.",
		Long: `regrid coarsens the given variables of each input file to a grid of
Regrid.XSize by Regrid.YSize cells, writing them to
{outdir}/{name}_regrid.nc.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Regrid()
		},
		DisableAutoGenTag: true,
	}

	cfg.animateCmd = &cobra.Command{
		Use:   "animate",
		Short: "Combine PNG images into an animated GIF.",
		Long: `animate combines the PNG images in Animate.Dir, in name order, into an
animated GIF.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Animate()
		},
		DisableAutoGenTag: true,
	}

	cfg.renameCmd = &cobra.Command{
		Use:   "rename",
		Short: "Copy images to standardized names.",
		Long: `rename copies the images in each of the Rename.Sources directories to
{Rename.OutRoot}/{label}/{timestamp}_{label}.{ext}, where the timestamp is
found in the original name. Existing files are never overwritten.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Rename(cmd.OutOrStdout())
		},
		DisableAutoGenTag: true,
	}

	cfg.gridDescCmd = &cobra.Command{
		Use:   "griddesc",
		Short: "Create a regular grid description for remapping.",
		Long: `griddesc detects the resolution of an ICON grid and writes the CDO
description of a global regular grid with the same resolution.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.GridDesc(cmd.OutOrStdout())
		},
		DisableAutoGenTag: true,
	}

	cfg.bucketCmd = &cobra.Command{
		Use:   "bucket",
		Short: "Interact with object storage.",
		Long: `bucket lists, uploads and downloads files in a bucket. Use the
subcommands specified below.`,
		DisableAutoGenTag: true,
	}

	cfg.bucketListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the keys in the bucket.",
		Long: `list prints the keys of the objects in the bucket that begin with
prefix and end with suffix.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.BucketList(cmd.Context(), cmd.OutOrStdout())
		},
		DisableAutoGenTag: true,
	}

	cfg.bucketUploadCmd = &cobra.Command{
		Use:   "upload pattern...",
		Short: "Upload files to the bucket.",
		Long: `upload uploads the files matching each of the given glob patterns to
the bucket, using their base names as keys. Files that fail are reported
and the rest are still uploaded.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.BucketUpload(cmd.Context(), cmd.OutOrStdout(), expandStringSlice(args)...)
		},
		DisableAutoGenTag: true,
	}

	cfg.bucketDownloadCmd = &cobra.Command{
		Use:   "download key...",
		Short: "Download objects from the bucket.",
		Long: `download downloads the objects with the given keys into outdir.
Objects ending in .gz are decompressed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.BucketDownload(cmd.Context(), cmd.OutOrStdout(), args...)
		},
		DisableAutoGenTag: true,
	}

	cfg.processCmd = &cobra.Command{
		Use:   "process",
		Short: "Convert ICON GRIB output in a bucket to regular-grid NetCDF.",
		Long: `process downloads each gzipped GRIB file under prefix in the bucket,
decompresses it and remaps it with cdo to the regular grid described by
CDO.GridFile, writing NetCDF files to outdir. Files that fail are
logged and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Process(cmd.Context(), cmd.OutOrStdout())
		},
		DisableAutoGenTag: true,
	}

	// Link the commands together.
	cfg.Root.AddCommand(cfg.versionCmd, cfg.inspectCmd, cfg.plotCmd, cfg.crossCmd,
		cfg.cropCmd, cfg.regridCmd, cfg.animateCmd, cfg.renameCmd, cfg.gridDescCmd,
		cfg.bucketCmd, cfg.processCmd)
	cfg.bucketCmd.AddCommand(cfg.bucketListCmd, cfg.bucketUploadCmd, cfg.bucketDownloadCmd)

	cfg.SetEnvPrefix("ICONKIT")
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()
	cfg.addOptions()
	return cfg
}

// Execute runs the command specified by args, which excludes the
// program name.
func (cfg *Cfg) Execute(args ...string) error {
	cfg.Root.SetArgs(args)
	return cfg.Root.Execute()
}
