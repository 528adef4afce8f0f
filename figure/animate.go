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

package figure

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"math"
	"os"
	"path/filepath"

	// Register the PNG decoder.
	_ "image/png"

	"github.com/iconglori/iconkit"
)

// Animate combines the images in frames, in order, into an animated GIF
// at out showing fps frames per second. All frames must have the
// same size.
func Animate(frames []string, out string, fps float64) error {
	if len(frames) == 0 {
		return fmt.Errorf("figure: no frames for animation %s", out)
	}
	if fps <= 0 {
		return fmt.Errorf("figure: invalid frame rate %g", fps)
	}
	delay := int(math.Round(100 / fps))
	anim := &gif.GIF{}
	var size image.Rectangle
	for i, path := range frames {
		img, err := readImage(path)
		if err != nil {
			return err
		}
		b := img.Bounds()
		if i == 0 {
			size = b
		} else if b.Dx() != size.Dx() || b.Dy() != size.Dy() {
			return fmt.Errorf("figure: frame %s is %dx%d but the first frame is %dx%d",
				path, b.Dx(), b.Dy(), size.Dx(), size.Dy())
		}
		pm := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette.Plan9)
		draw.FloydSteinberg.Draw(pm, pm.Bounds(), img, b.Min)
		anim.Image = append(anim.Image, pm)
		anim.Delay = append(anim.Delay, delay)
	}
	if err := os.MkdirAll(filepath.Dir(out), os.ModePerm); err != nil {
		return fmt.Errorf("figure: %v", err)
	}
	w, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("figure: %v", err)
	}
	if err := gif.EncodeAll(w, anim); err != nil {
		w.Close()
		return fmt.Errorf("figure: writing %s: %v", out, err)
	}
	return w.Close()
}

// AnimateDir animates the PNG images in dir, in name order.
func AnimateDir(dir, out string, fps float64) error {
	frames, err := iconkit.Glob(dir, "*.png", "")
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("figure: no .png files found in %s", dir)
	}
	return Animate(frames, out, fps)
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("figure: %v", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("figure: decoding %s: %v", path, err)
	}
	return img, nil
}
