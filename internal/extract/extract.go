// Package extract cuts content out of a main image using a mask image: it
// fetches and decodes both, fits the mask to the main image, rewrites the
// main image's alpha and encodes the result.
package extract

import (
	"context"
	"fmt"
	"image"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/erinpentecost/maskcut/internal/codec"
	"github.com/erinpentecost/maskcut/internal/mask"
	"github.com/erinpentecost/maskcut/internal/resample"
	"github.com/erinpentecost/maskcut/internal/source"
)

// Fetcher returns the raw bytes behind an image reference.
type Fetcher interface {
	Load(ctx context.Context, ref string) ([]byte, error)
}

// Extractor loads a main and a mask image, fits the mask, and encodes the cut-out.
type Extractor struct {
	// Fetcher defaults to a source.Loader with default settings.
	Fetcher Fetcher
	Kernel  resample.Kernel
	Format  codec.Format
	// Workers bounds compositing goroutines. <= 0 means GOMAXPROCS.
	Workers int
	// Log receives progress lines. nil discards them.
	Log io.Writer
}

// Result is one encoded cut-out.
type Result struct {
	Image  *image.NRGBA
	Data   []byte
	Format codec.Format
	Width  int
	Height int
}

// DataURL is the encoded result as a base64 data URL.
func (r *Result) DataURL() string {
	return codec.DataURL(r.Data, r.Format)
}

type decoded struct {
	img    *image.NRGBA
	format string
}

// Run extracts the part of mainRef selected by maskRef. Both references are
// fetched and decoded concurrently; if either fails the other is cancelled
// and nothing is composited.
func (e *Extractor) Run(ctx context.Context, mainRef, maskRef string) (*Result, error) {
	var mainImg, maskImg decoded

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mainImg, err = e.load(gctx, mainRef)
		if err != nil {
			return fmt.Errorf("load main image: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		maskImg, err = e.load(gctx, maskRef)
		if err != nil {
			return fmt.Errorf("load mask image: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.logf("Loaded main %s %dx%d and mask %s %dx%d.\n",
		mainImg.format, mainImg.img.Bounds().Dx(), mainImg.img.Bounds().Dy(),
		maskImg.format, maskImg.img.Bounds().Dx(), maskImg.img.Bounds().Dy())

	out, err := e.Images(ctx, mainImg.img, maskImg.img)
	if err != nil {
		return nil, err
	}

	e.logf("Encoding %dx%d %v...\n", out.Rect.Dx(), out.Rect.Dy(), e.Format)
	data, err := codec.EncodeBytes(out, e.Format)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &Result{
		Image:  out,
		Data:   data,
		Format: e.Format,
		Width:  out.Rect.Dx(),
		Height: out.Rect.Dy(),
	}, nil
}

// Images fits maskImg to mainImg's size and returns the composited image.
// Neither input is modified.
func (e *Extractor) Images(ctx context.Context, mainImg, maskImg *image.NRGBA) (*image.NRGBA, error) {
	if mainImg == nil || maskImg == nil {
		return nil, fmt.Errorf("composite: %w: nil image", mask.ErrInvalidDimensions)
	}
	w, h := mainImg.Bounds().Dx(), mainImg.Bounds().Dy()
	if mb := maskImg.Bounds(); mb.Dx() != w || mb.Dy() != h {
		e.logf("Resampling mask %dx%d to %dx%d with %v...\n", mb.Dx(), mb.Dy(), w, h, e.Kernel)
		fitted, err := resample.To(maskImg, w, h, e.Kernel)
		if err != nil {
			return nil, fmt.Errorf("resample mask: %w", err)
		}
		maskImg = fitted
	}

	e.logf("Applying mask to %dx%d pixels...\n", w, h)
	out, err := mask.CompositeImageParallel(ctx, mainImg, maskImg, e.Workers)
	if err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}
	return out, nil
}

func (e *Extractor) load(ctx context.Context, ref string) (decoded, error) {
	f := e.Fetcher
	if f == nil {
		f = &source.Loader{}
	}
	raw, err := f.Load(ctx, ref)
	if err != nil {
		return decoded{}, err
	}
	img, format, err := codec.Decode(raw)
	if err != nil {
		return decoded{}, err
	}
	return decoded{img: img, format: format}, nil
}

func (e *Extractor) logf(format string, args ...any) {
	if e.Log == nil {
		return
	}
	fmt.Fprintf(e.Log, format, args...)
}
