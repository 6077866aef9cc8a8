// Package mask rewrites the alpha channel of an image using a second image
// as a mask.
//
// The mask's unweighted RGB mean and its own alpha together scale the alpha
// of the matching main pixel. Colour channels of the main image pass through
// untouched. Buffers are row-major, 4 bytes per pixel, straight (not
// premultiplied) R,G,B,A, which is the layout of image.NRGBA.Pix.
package mask

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrShapeMismatch is returned when a buffer's length does not match the
	// declared dimensions, or when main and mask disagree on their size.
	ErrShapeMismatch = errors.New("mask: shape mismatch")
	// ErrInvalidDimensions is returned for a non-positive width or height.
	ErrInvalidDimensions = errors.New("mask: invalid dimensions")
)

const bytesPerPixel = 4

// Brightness is the unweighted mean of the three colour channels, in [0,255].
func Brightness(r, g, b uint8) float64 {
	return float64(int(r)+int(g)+int(b)) / 3
}

// Fraction is the share of the main pixel's alpha that survives under a mask
// pixel, in [0,1]. Opaque black gives 0, opaque white gives 1.
func Fraction(mr, mg, mb, ma uint8) float64 {
	maskAlpha := float64(ma) / 255
	return (Brightness(mr, mg, mb) / 255) * maskAlpha
}

// Composite returns a new buffer holding main with its alpha scaled by mask.
// Neither input is modified.
func Composite(main, mask []uint8, width, height int) ([]uint8, error) {
	if err := validate(main, mask, width, height); err != nil {
		return nil, err
	}
	out := make([]uint8, len(main))
	apply(out, main, mask)
	return out, nil
}

func validate(main, mask []uint8, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	want := width * height * bytesPerPixel
	if want/bytesPerPixel/height != width {
		return fmt.Errorf("%w: %dx%d overflows", ErrInvalidDimensions, width, height)
	}
	if len(main) != want {
		return fmt.Errorf("%w: main buffer has %d bytes, %dx%d needs %d", ErrShapeMismatch, len(main), width, height, want)
	}
	if len(mask) != want {
		return fmt.Errorf("%w: mask buffer has %d bytes, %dx%d needs %d", ErrShapeMismatch, len(mask), width, height, want)
	}
	return nil
}

// apply writes the composited pixels of main and mask into out. All three
// slices have the same length, a multiple of 4.
func apply(out, main, mask []uint8) {
	for i := 0; i+3 < len(main); i += bytesPerPixel {
		out[i+0] = main[i+0]
		out[i+1] = main[i+1]
		out[i+2] = main[i+2]
		f := Fraction(mask[i+0], mask[i+1], mask[i+2], mask[i+3])
		out[i+3] = uint8(math.Round(float64(main[i+3]) * f))
	}
}
