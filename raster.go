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
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/tiff"
	"gonum.org/v1/plot/palette"
)

// ColorMode is the pixel format of exported crops.
type ColorMode string

// These are the supported color modes.
const (
	RGB       ColorMode = "RGB"
	Greyscale ColorMode = "greyscale"
)

// ErrColorMode is returned for an unsupported ColorMode.
var ErrColorMode = errors.New("iconkit: color mode must be 'RGB' or 'greyscale'")

// Validate returns ErrColorMode if m is not a supported mode.
func (m ColorMode) Validate() error {
	if m != RGB && m != Greyscale {
		return fmt.Errorf("%w: got '%s'", ErrColorMode, m)
	}
	return nil
}

// RasterOptions configures Rasterize.
type RasterOptions struct {
	Colormap palette.ColorMap

	// VMin and VMax set the value range mapped onto the colormap.
	// If nil, the data minimum and maximum are used.
	VMin, VMax *float64

	// Flip puts row 0 of the field at the bottom of the image,
	// so that south is down for fields stored south to north.
	Flip bool
}

// Rasterize draws the 2-D field f into a width by height image with no
// axes or margins. Cells are sampled by nearest neighbor. Values outside
// the range are clipped to the ends of the colormap and NaN cells are
// white.
func Rasterize(f *Field, width, height int, o RasterOptions) (*image.RGBA, error) {
	if err := f.Check2D(); err != nil {
		return nil, err
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("iconkit: invalid image size %dx%d", width, height)
	}
	if o.Colormap == nil {
		return nil, fmt.Errorf("iconkit: no colormap for rasterizing %s", f.Name)
	}
	ny, nx := f.Data.Shape[0], f.Data.Shape[1]
	if ny == 0 || nx == 0 {
		return nil, fmt.Errorf("iconkit: variable %s is empty", f.Name)
	}

	cm := o.Colormap
	if err := SetColorRange(cm, f, o.VMin, o.VMax); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	for py := 0; py < height; py++ {
		j := py * ny / height
		if o.Flip {
			j = ny - 1 - j
		}
		for px := 0; px < width; px++ {
			i := px * nx / width
			v := f.At(j, i)
			if math.IsNaN(v) {
				continue
			}
			v = math.Max(cm.Min(), math.Min(cm.Max(), v))
			c, err := cm.At(v)
			if err != nil {
				return nil, fmt.Errorf("iconkit: coloring %s: %v", f.Name, err)
			}
			img.Set(px, py, c)
		}
	}
	return img, nil
}

// Convert returns img in the given color mode. Greyscale uses the
// ITU-R 601-2 luma transform L = R*299/1000 + G*587/1000 + B*114/1000.
func Convert(img image.Image, m ColorMode) (image.Image, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if m == RGB {
		o := image.NewRGBA(b)
		draw.Draw(o, b, img, b.Min, draw.Src)
		return o, nil
	}
	o := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			l := (uint32(c.R)*299 + uint32(c.G)*587 + uint32(c.B)*114) / 1000
			o.SetGray(x, y, color.Gray{Y: uint8(l)})
		}
	}
	return o, nil
}

// SetColorRange sets the range of cm to [vmin, vmax], taking either
// bound from the data of f when it is nil. A zero-width range is widened
// by 0.5 on each side and an all-NaN field gets [0, 1].
func SetColorRange(cm palette.ColorMap, f *Field, vmin, vmax *float64) error {
	lo, hi := f.Range()
	if vmin != nil {
		lo = *vmin
	}
	if vmax != nil {
		hi = *vmax
	}
	if math.IsNaN(lo) || math.IsNaN(hi) {
		lo, hi = 0, 1
	}
	if hi < lo {
		return fmt.Errorf("iconkit: vmin %g greater than vmax %g", lo, hi)
	}
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}
	cm.SetMin(lo)
	cm.SetMax(hi)
	return nil
}

// CropOutput specifies how SaveCrop exports an image.
type CropOutput struct {
	Width, Height int

	// Filename is the base name of the output files, without
	// extension or color mode.
	Filename string

	// Format names the directory of the TIFF output, which is
	// {OutDir}/{Format}_{Mode}.
	Format string
	OutDir string
	Mode   ColorMode

	// CMA marks the TIFF output as cloud-masked.
	CMA bool

	RasterOptions

	Log logrus.FieldLogger
}

// Paths returns the TIFF and PNG paths SaveCrop writes to.
func (o CropOutput) Paths() (tiffPath, pngPath string) {
	suffix := ""
	if o.CMA {
		suffix = "_CMA"
	}
	tiffPath = filepath.Join(o.OutDir, fmt.Sprintf("%s_%s", o.Format, o.Mode),
		fmt.Sprintf("%s_%s%s.tiff", o.Filename, o.Mode, suffix))
	pngPath = filepath.Join(o.OutDir, fmt.Sprintf("png_%s", o.Mode),
		fmt.Sprintf("%s_%s.png", o.Filename, o.Mode))
	return
}

// SaveCrop rasterizes f and writes it as both TIFF and PNG in the
// requested color mode, creating output directories as needed. The
// size of the written image is checked against the requested size.
func SaveCrop(f *Field, o CropOutput) (tiffPath, pngPath string, err error) {
	if err = o.Mode.Validate(); err != nil {
		return "", "", err
	}
	log := o.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	rgba, err := Rasterize(f, o.Width, o.Height, o.RasterOptions)
	if err != nil {
		return "", "", err
	}
	img, err := Convert(rgba, o.Mode)
	if err != nil {
		return "", "", err
	}
	tiffPath, pngPath = o.Paths()

	if err = writeImage(tiffPath, img, func(w *os.File, img image.Image) error {
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}); err != nil {
		return "", "", err
	}
	if err = writeImage(pngPath, img, func(w *os.File, img image.Image) error {
		return png.Encode(w, img)
	}); err != nil {
		return "", "", err
	}

	cfg, err := imageConfig(tiffPath, tiff.DecodeConfig)
	if err != nil {
		return "", "", err
	}
	log.WithFields(logrus.Fields{
		"variable": f.Name,
		"file":     tiffPath,
	}).Infof("Image size: (%d, %d), expected: (%d, %d)", cfg.Width, cfg.Height, o.Width, o.Height)
	if cfg.Width != o.Width || cfg.Height != o.Height {
		return "", "", fmt.Errorf("iconkit: %s is %dx%d, expected %dx%d",
			tiffPath, cfg.Width, cfg.Height, o.Width, o.Height)
	}
	return tiffPath, pngPath, nil
}

func writeImage(path string, img image.Image, encode func(*os.File, image.Image) error) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("iconkit: creating output directory: %v", err)
	}
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("iconkit: creating image file: %v", err)
	}
	if err := encode(w, img); err != nil {
		w.Close()
		return fmt.Errorf("iconkit: encoding %s: %v", path, err)
	}
	return w.Close()
}

func imageConfig(path string, decode func(io.Reader) (image.Config, error)) (image.Config, error) {
	r, err := os.Open(path)
	if err != nil {
		return image.Config{}, fmt.Errorf("iconkit: checking image size: %v", err)
	}
	defer r.Close()
	cfg, err := decode(r)
	if err != nil {
		return image.Config{}, fmt.Errorf("iconkit: checking image size of %s: %v", path, err)
	}
	return cfg, nil
}

// ApplyMask sets the cells of f where mask is below threshold to NaN,
// such as cloud-free cells of a cloud mask. NaN mask cells also mask f.
func ApplyMask(f, mask *Field, threshold float64) (*Field, error) {
	if len(f.Data.Elements) != len(mask.Data.Elements) {
		return nil, fmt.Errorf("iconkit: mask %s has %v cells but %s has %v",
			mask.Name, mask.Data.Shape, f.Name, f.Data.Shape)
	}
	o := f.Clone()
	for i, m := range mask.Data.Elements {
		if m < threshold || math.IsNaN(m) {
			o.Data.Elements[i] = math.NaN()
		}
	}
	return o, nil
}
