// Package resample scales a mask to the size of the image it will be applied
// to.
package resample

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

var ErrInvalidSize = errors.New("resample: invalid size")

// Kernel selects the interpolation used when scaling.
type Kernel int

const (
	BiLinear Kernel = iota
	Nearest
	ApproxBiLinear
	CatmullRom
	Lanczos
)

// Default matches what a browser canvas typically does when drawing a
// scaled image.
const Default = BiLinear

var kernelNames = []struct {
	k    Kernel
	name string
}{
	{BiLinear, "bilinear"},
	{Nearest, "nearest"},
	{ApproxBiLinear, "approx-bilinear"},
	{CatmullRom, "catmull-rom"},
	{Lanczos, "lanczos"},
}

func (k Kernel) String() string {
	for _, kn := range kernelNames {
		if kn.k == k {
			return kn.name
		}
	}
	return fmt.Sprintf("Kernel(%d)", int(k))
}

// Names lists every kernel name accepted by ParseKernel.
func Names() []string {
	names := make([]string, 0, len(kernelNames))
	for _, kn := range kernelNames {
		names = append(names, kn.name)
	}
	return names
}

// ParseKernel looks up a kernel by name. An empty name means Default.
func ParseKernel(s string) (Kernel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Default, nil
	}
	for _, kn := range kernelNames {
		if kn.name == s {
			return kn.k, nil
		}
	}
	return 0, fmt.Errorf("resample: unknown kernel %q, want one of %s", s, strings.Join(Names(), ", "))
}

func (k Kernel) scaler() draw.Scaler {
	switch k {
	case Nearest:
		return draw.NearestNeighbor
	case ApproxBiLinear:
		return draw.ApproxBiLinear
	case CatmullRom:
		return draw.CatmullRom
	default:
		return draw.BiLinear
	}
}

// To scales src to width x height. The result is a new tightly packed image
// with its origin at (0,0), even when no scaling is needed.
func To(src *image.NRGBA, width, height int, k Kernel) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrInvalidSize, width, height)
	}
	if src == nil || src.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty source", ErrInvalidSize)
	}

	sb := src.Bounds()
	sameSize := sb.Dx() == width && sb.Dy() == height
	if k == Lanczos && !sameSize {
		return imaging.Resize(src, width, height, imaging.Lanczos), nil
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	if sameSize {
		draw.Copy(dst, image.Point{}, src, sb, draw.Src, nil)
		return dst, nil
	}
	k.scaler().Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
	return dst, nil
}
