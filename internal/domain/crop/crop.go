package crop

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
)

// Region returns the lower band of the frame where burned-in subtitles
// usually sit: the middle five sevenths horizontally, the bottom quarter
// vertically.
func Region(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	x1 := w / 7
	y1 := 3 * (h / 4)
	x2 := 6 * (w / 7)
	y2 := h
	return image.Rect(x1, y1, x2, y2).Add(b.Min)
}

func Image(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, errors.New("crop: nil image")
	}
	r := Region(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("crop: image %dx%d too small", img.Bounds().Dx(), img.Bounds().Dy())
	}
	if s, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return s.SubImage(r), nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst, nil
}

// File crops the image at in and writes a JPEG to out. in and out may be the
// same path.
func File(in, out string) error {
	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("crop: open %s: %w", in, err)
	}
	img, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("crop: decode %s: %w", in, err)
	}
	cropped, err := Image(img)
	if err != nil {
		return err
	}
	tmp := out + ".crop"
	w, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("crop: create %s: %w", tmp, err)
	}
	if err := jpeg.Encode(w, cropped, &jpeg.Options{Quality: 95}); err != nil {
		_ = w.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("crop: encode: %w", err)
	}
	if err := w.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, out)
}
