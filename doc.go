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

// Package iconkit reads, regrids and rasterizes ICON weather model output
// and satellite imagery stored as NetCDF.
//
// Files are opened with Open and variables read into a Field. The main
// transformations are Coarsen, which block-aggregates a longitude-latitude
// field onto a coarser grid, and SaveCrop, which renders a field into a
// fixed-size TIFF and PNG image. Subpackages provide plotting (figure),
// object storage (cloud), the CDO command line interface (cdo) and the
// iconkit command (iconkitutil).
package iconkit

// Version gives the version of iconkit.
const Version = "0.1.0"
