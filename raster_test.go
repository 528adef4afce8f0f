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
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"
)

func float(v float64) *float64 { return &v }

func TestRasterize(t *testing.T) {
	// Row 0 is the south edge.
	f := NewField("bt", []string{"lat", "lon"}, []int{2, 2})
	copy(f.Data.Elements, []float64{0, 1, math.NaN(), 2})
	cm, err := ColormapByName("greyscale")
	if err != nil {
		t.Fatal(err)
	}
	img, err := Rasterize(f, 4, 6, RasterOptions{Colormap: cm, Flip: true})
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 6 {
		t.Fatalf("size: have %v", b)
	}
	grey := func(x, y int) uint8 {
		return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
	}
	// Bottom left is value 0, black.
	if g := grey(0, 5); g > 5 {
		t.Errorf("bottom left: have %d, want black", g)
	}
	// Top right is the maximum, white.
	if g := grey(3, 0); g < 250 {
		t.Errorf("top right: have %d, want white", g)
	}
	// Top left is NaN, white background.
	if c := img.RGBAAt(0, 0); c != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("NaN pixel: have %v, want white", c)
	}

	// Values above VMax clip to the end of the colormap.
	img, err = Rasterize(f, 2, 2, RasterOptions{Colormap: cm, VMin: float(0), VMax: float(1)})
	if err != nil {
		t.Fatal(err)
	}
	if g := color.GrayModel.Convert(img.At(1, 1)).(color.Gray).Y; g < 250 {
		t.Errorf("clipped pixel: have %d, want white", g)
	}

	if _, err := Rasterize(f, 2, 2, RasterOptions{Colormap: cm, VMin: float(2), VMax: float(1)}); err == nil {
		t.Error("expected error for vmin > vmax")
	}
	if _, err := Rasterize(testField("x", []string{"a"}, []int{3}), 2, 2, RasterOptions{Colormap: cm}); err == nil {
		t.Error("expected error for 1-D field")
	}
}

func TestConvert(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 100, G: 150, B: 200, A: 255})
	g, err := Convert(img, Greyscale)
	if err != nil {
		t.Fatal(err)
	}
	// 100*299/1000 + 150*587/1000 + 200*114/1000 = 140.75
	if y := g.(*image.Gray).GrayAt(0, 0).Y; y != 140 {
		t.Errorf("have %d, want 140", y)
	}
	if _, err := Convert(img, "CMYK"); !errors.Is(err, ErrColorMode) {
		t.Errorf("have %v, want ErrColorMode", err)
	}
}

func TestSaveCrop(t *testing.T) {
	f := testField("bt", []string{"lat", "lon"}, []int{3, 4})
	cm, err := ColormapByName("coolwarm")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	for _, mode := range []ColorMode{RGB, Greyscale} {
		t.Run(string(mode), func(t *testing.T) {
			o := CropOutput{
				Width:         40,
				Height:        30,
				Filename:      "msg_20250630_12:00",
				Format:        "tiff",
				OutDir:        dir,
				Mode:          mode,
				CMA:           true,
				RasterOptions: RasterOptions{Colormap: cm, Flip: true},
			}
			tiffPath, pngPath, err := SaveCrop(f, o)
			if err != nil {
				t.Fatal(err)
			}
			wantTIFF := filepath.Join(dir, "tiff_"+string(mode), "msg_20250630_12:00_"+string(mode)+"_CMA.tiff")
			wantPNG := filepath.Join(dir, "png_"+string(mode), "msg_20250630_12:00_"+string(mode)+".png")
			if tiffPath != wantTIFF || pngPath != wantPNG {
				t.Errorf("paths: have %s, %s; want %s, %s", tiffPath, pngPath, wantTIFF, wantPNG)
			}
			checkImage(t, tiffPath, tiff.Decode, 40, 30, mode)
			checkImage(t, pngPath, png.Decode, 40, 30, mode)
		})
	}

	if _, _, err := SaveCrop(f, CropOutput{Width: 1, Height: 1, Mode: "L"}); !errors.Is(err, ErrColorMode) {
		t.Errorf("have %v, want ErrColorMode", err)
	}
}

func checkImage(t *testing.T, path string, decode func(r io.Reader) (image.Image, error), w, h int, mode ColorMode) {
	t.Helper()
	r, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	img, err := decode(r)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		t.Errorf("%s: size %v, want %dx%d", path, b, w, h)
	}
	_, isGray := img.(*image.Gray)
	if isGray != (mode == Greyscale) {
		t.Errorf("%s: image type %T for mode %s", path, img, mode)
	}
}

func TestApplyMask(t *testing.T) {
	f := testField("bt", []string{"lat", "lon"}, []int{1, 3})
	mask := NewField("cma", []string{"lat", "lon"}, []int{1, 3})
	copy(mask.Data.Elements, []float64{1, 0, math.NaN()})
	o, err := ApplyMask(f, mask, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if o.Data.Elements[0] != 0 || !math.IsNaN(o.Data.Elements[1]) || !math.IsNaN(o.Data.Elements[2]) {
		t.Errorf("have %v", o.Data.Elements)
	}
	if math.IsNaN(f.Data.Elements[1]) {
		t.Error("input modified")
	}
	if _, err := ApplyMask(f, NewField("cma", []string{"x"}, []int{2}), 0.5); err == nil {
		t.Error("expected error for mismatched shapes")
	}
}
