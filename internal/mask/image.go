package mask

import (
	"context"
	"fmt"
	"image"
)

// CompositeImage is Composite for decoded images. The two images must have
// the same size; the result has its origin at (0,0).
func CompositeImage(main, mask *image.NRGBA) (*image.NRGBA, error) {
	mainPix, maskPix, w, h, err := imagePair(main, mask)
	if err != nil {
		return nil, err
	}
	pix, err := Composite(mainPix, maskPix, w, h)
	if err != nil {
		return nil, err
	}
	return wrap(pix, w, h), nil
}

// CompositeImageParallel is CompositeParallel for decoded images.
func CompositeImageParallel(ctx context.Context, main, mask *image.NRGBA, workers int) (*image.NRGBA, error) {
	mainPix, maskPix, w, h, err := imagePair(main, mask)
	if err != nil {
		return nil, err
	}
	pix, err := CompositeParallel(ctx, mainPix, maskPix, w, h, workers)
	if err != nil {
		return nil, err
	}
	return wrap(pix, w, h), nil
}

func imagePair(main, mask *image.NRGBA) (mainPix, maskPix []uint8, w, h int, err error) {
	if main == nil || mask == nil {
		return nil, nil, 0, 0, fmt.Errorf("%w: nil image", ErrInvalidDimensions)
	}
	mb, kb := main.Bounds(), mask.Bounds()
	if mb.Empty() {
		return nil, nil, 0, 0, fmt.Errorf("%w: main image is %dx%d", ErrInvalidDimensions, mb.Dx(), mb.Dy())
	}
	if kb.Empty() {
		return nil, nil, 0, 0, fmt.Errorf("%w: mask image is %dx%d", ErrInvalidDimensions, kb.Dx(), kb.Dy())
	}
	if mb.Size() != kb.Size() {
		return nil, nil, 0, 0, fmt.Errorf("%w: main is %dx%d, mask is %dx%d",
			ErrShapeMismatch, mb.Dx(), mb.Dy(), kb.Dx(), kb.Dy())
	}
	return packed(main), packed(mask), mb.Dx(), mb.Dy(), nil
}

// packed returns the pixels of m as a tight row-major buffer. A tight m is
// returned without copying; callers must only read it.
func packed(m *image.NRGBA) []uint8 {
	b := m.Bounds()
	rowBytes := b.Dx() * bytesPerPixel
	start := m.PixOffset(b.Min.X, b.Min.Y)
	if m.Stride == rowBytes {
		return m.Pix[start : start+rowBytes*b.Dy()]
	}
	pix := make([]uint8, rowBytes*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		off := start + y*m.Stride
		copy(pix[y*rowBytes:], m.Pix[off:off+rowBytes])
	}
	return pix
}

func wrap(pix []uint8, w, h int) *image.NRGBA {
	return &image.NRGBA{
		Pix:    pix,
		Stride: w * bytesPerPixel,
		Rect:   image.Rect(0, 0, w, h),
	}
}
