package mask

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompositeTwoPixels(t *testing.T) {
	main := []uint8{
		10, 20, 30, 255,
		40, 50, 60, 100,
	}
	mask := []uint8{
		255, 255, 255, 255,
		0, 0, 0, 255,
	}
	out, err := Composite(main, mask, 2, 1)
	require.NoError(t, err)
	require.Equal(t, []uint8{
		10, 20, 30, 255,
		40, 50, 60, 0,
	}, out)
}

func TestCompositeSinglePixel(t *testing.T) {
	tests := []struct {
		name string
		main [4]uint8
		mask [4]uint8
		want uint8
	}{
		{
			name: "opaque black hides",
			main: [4]uint8{1, 2, 3, 255},
			mask: [4]uint8{0, 0, 0, 255},
			want: 0,
		},
		{
			name: "opaque white keeps",
			main: [4]uint8{1, 2, 3, 77},
			mask: [4]uint8{255, 255, 255, 255},
			want: 77,
		},
		{
			name: "transparent mask hides",
			main: [4]uint8{1, 2, 3, 255},
			mask: [4]uint8{255, 255, 255, 0},
			want: 0,
		},
		{
			name: "mid grey rounds down",
			main: [4]uint8{9, 9, 9, 200},
			mask: [4]uint8{128, 128, 128, 255},
			want: 100,
		},
		{
			name: "mean of channels not luma",
			main: [4]uint8{0, 0, 0, 255},
			mask: [4]uint8{255, 0, 0, 255},
			want: 85,
		},
		{
			name: "half alpha white mask",
			main: [4]uint8{0, 0, 0, 255},
			mask: [4]uint8{255, 255, 255, 128},
			want: 128,
		},
		{
			name: "transparent main stays transparent",
			main: [4]uint8{200, 100, 50, 0},
			mask: [4]uint8{255, 255, 255, 255},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Composite(tt.main[:], tt.mask[:], 1, 1)
			require.NoError(t, err)
			require.Equal(t, tt.main[:3], out[:3], "colour must pass through")
			require.Equal(t, tt.want, out[3])
		})
	}
}

func TestCompositeErrors(t *testing.T) {
	tests := []struct {
		name   string
		main   []uint8
		mask   []uint8
		w, h   int
		target error
	}{
		{
			name:   "mask smaller than declared",
			main:   make([]uint8, 9*4),
			mask:   make([]uint8, 4*4),
			w:      3,
			h:      3,
			target: ErrShapeMismatch,
		},
		{
			name:   "main smaller than declared",
			main:   make([]uint8, 4),
			mask:   make([]uint8, 8),
			w:      2,
			h:      1,
			target: ErrShapeMismatch,
		},
		{
			name:   "zero width",
			main:   nil,
			mask:   nil,
			w:      0,
			h:      5,
			target: ErrInvalidDimensions,
		},
		{
			name:   "negative height",
			main:   make([]uint8, 4),
			mask:   make([]uint8, 4),
			w:      1,
			h:      -1,
			target: ErrInvalidDimensions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Composite(tt.main, tt.mask, tt.w, tt.h)
			require.ErrorIs(t, err, tt.target)
			require.Nil(t, out)

			out, err = CompositeParallel(context.Background(), tt.main, tt.mask, tt.w, tt.h, 2)
			require.ErrorIs(t, err, tt.target)
			require.Nil(t, out)
		})
	}
}

func randomPixels(r *rand.Rand, n int) []uint8 {
	buf := make([]uint8, n*4)
	r.Read(buf)
	return buf
}

func TestCompositeProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	const w, h = 37, 23
	main := randomPixels(r, w*h)
	mask := randomPixels(r, w*h)
	mainCopy := bytes.Clone(main)
	maskCopy := bytes.Clone(mask)

	out, err := Composite(main, mask, w, h)
	require.NoError(t, err)
	require.Len(t, out, w*h*4)
	require.Equal(t, mainCopy, main, "main must not be modified")
	require.Equal(t, maskCopy, mask, "mask must not be modified")

	for i := 0; i < len(out); i += 4 {
		require.Equal(t, main[i:i+3], out[i:i+3])
		require.LessOrEqual(t, out[i+3], main[i+3])
	}

	again, err := Composite(out, mask, w, h)
	require.NoError(t, err)
	for i := 0; i < len(out); i += 4 {
		require.Equal(t, main[i:i+3], again[i:i+3])
	}
}

func TestCompositeParallelMatchesSequential(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, size := range []image.Point{{1, 1}, {3, 100}, {64, 17}, {129, 257}} {
		main := randomPixels(r, size.X*size.Y)
		mask := randomPixels(r, size.X*size.Y)

		want, err := Composite(main, mask, size.X, size.Y)
		require.NoError(t, err)

		for _, workers := range []int{0, 1, 3, 16} {
			got, err := CompositeParallel(context.Background(), main, mask, size.X, size.Y, workers)
			require.NoError(t, err)
			require.Equal(t, want, got, "size %v workers %d", size, workers)
		}
	}
}

func TestCompositeParallelCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	buf := make([]uint8, 64*64*4)
	out, err := CompositeParallel(ctx, buf, buf, 64, 64, 4)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, out)
}

func TestCompositeImage(t *testing.T) {
	main := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	main.SetNRGBA(0, 0, color.NRGBA{10, 20, 30, 255})
	main.SetNRGBA(1, 0, color.NRGBA{40, 50, 60, 100})

	// Offset origin and a sub-image so the stride is not tight.
	big := image.NewNRGBA(image.Rect(5, 5, 9, 7))
	big.SetNRGBA(6, 6, color.NRGBA{255, 255, 255, 255})
	big.SetNRGBA(7, 6, color.NRGBA{0, 0, 0, 255})
	mask := big.SubImage(image.Rect(6, 6, 8, 7)).(*image.NRGBA)

	out, err := CompositeImage(main, mask)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 2, 1), out.Bounds())
	require.Equal(t, color.NRGBA{10, 20, 30, 255}, out.NRGBAAt(0, 0))
	require.Equal(t, color.NRGBA{40, 50, 60, 0}, out.NRGBAAt(1, 0))

	par, err := CompositeImageParallel(context.Background(), main, mask, 2)
	require.NoError(t, err)
	require.Equal(t, out.Pix, par.Pix)
}

func TestCompositeImageErrors(t *testing.T) {
	a := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	b := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	_, err := CompositeImage(a, b)
	require.ErrorIs(t, err, ErrShapeMismatch)

	_, err = CompositeImage(image.NewNRGBA(image.Rectangle{}), a)
	require.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = CompositeImage(nil, a)
	require.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestFraction(t *testing.T) {
	require.Equal(t, 0.0, Fraction(0, 0, 0, 255))
	require.Equal(t, 1.0, Fraction(255, 255, 255, 255))
	require.Equal(t, 0.0, Fraction(255, 255, 255, 0))
	require.InDelta(t, 128.0/255.0, Fraction(128, 128, 128, 255), 1e-12)
	require.Equal(t, 85.0, Brightness(255, 0, 0))
}

func BenchmarkComposite(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	const w, h = 1024, 1024
	main := randomPixels(r, w*h)
	mask := randomPixels(r, w*h)
	b.Run("sequential", func(b *testing.B) {
		for b.Loop() {
			_, _ = Composite(main, mask, w, h)
		}
	})
	b.Run("parallel", func(b *testing.B) {
		for b.Loop() {
			_, _ = CompositeParallel(b.Context(), main, mask, w, h, 0)
		}
	})
}
