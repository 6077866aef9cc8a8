package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.coder.com/cli"
	"golang.org/x/sync/errgroup"

	"github.com/erinpentecost/maskcut/internal/codec"
	"github.com/erinpentecost/maskcut/internal/mask"
	"github.com/erinpentecost/maskcut/internal/source"
)

type inspectCmd struct {
	threads int
}

func (c *inspectCmd) Spec() cli.CommandSpec {
	return cli.CommandSpec{
		Name:  "inspect",
		Usage: "REF [REF...]",
		Desc:  "Decode images and report their format, size and how much alpha they would keep as a mask.",
	}
}

func (c *inspectCmd) RegisterFlags(fl *pflag.FlagSet) {
	fl.IntVar(&c.threads, "threads", 4, "images decoded at once")
}

func (c *inspectCmd) Run(fl *pflag.FlagSet) {
	if err := c.run(context.Background(), fl.Args(), os.Stdout); err != nil {
		fail(err)
	}
}

type imageReport struct {
	Ref      string
	Format   string
	Width    int
	Height   int
	Coverage float64
}

func (c *inspectCmd) run(ctx context.Context, refs []string, stdout io.Writer) error {
	if len(refs) == 0 {
		return errors.New("no images given")
	}
	reports := make([]imageReport, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, c.threads))
	for i, ref := range refs {
		g.Go(func() error {
			raw, err := source.Load(gctx, ref)
			if err != nil {
				return err
			}
			img, format, err := codec.Decode(raw)
			if err != nil {
				return fmt.Errorf("decode %q: %w", ref, err)
			}
			reports[i] = imageReport{
				Ref:      ref,
				Format:   format,
				Width:    img.Rect.Dx(),
				Height:   img.Rect.Dy(),
				Coverage: coverage(img),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range reports {
		fmt.Fprintf(stdout, "%s: %s %dx%d, mask coverage %.1f%%\n", r.Ref, r.Format, r.Width, r.Height, 100*r.Coverage)
	}
	return nil
}

// coverage is the mean share of alpha img would keep if used as a mask.
func coverage(img *image.NRGBA) float64 {
	n := img.Rect.Dx() * img.Rect.Dy()
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+3 < len(img.Pix); i += 4 {
		sum += mask.Fraction(img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3])
	}
	return sum / float64(n)
}
