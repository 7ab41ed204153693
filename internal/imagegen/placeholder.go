package imagegen

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

const (
	placeholderWidth  = 1080
	placeholderHeight = 1920
)

// writePlaceholder renders a plain dark frame so downstream clip
// assembly always has a readable input file.
func writePlaceholder(path string) error {
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	fill := color.RGBA{R: 24, G: 24, B: 32, A: 255}
	for y := 0; y < placeholderHeight; y++ {
		for x := 0; x < placeholderWidth; x++ {
			img.Set(x, y, fill)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create placeholder: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode placeholder: %w", err)
	}
	return nil
}
