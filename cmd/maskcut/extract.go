package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"go.coder.com/cli"

	"github.com/erinpentecost/maskcut/internal/codec"
	"github.com/erinpentecost/maskcut/internal/config"
	"github.com/erinpentecost/maskcut/internal/extract"
	"github.com/erinpentecost/maskcut/internal/resample"
	"github.com/erinpentecost/maskcut/internal/source"
)

type extractCmd struct {
	mainRef    string
	maskRef    string
	outPath    string
	configPath string
	kernel     string
	format     string
	workers    int
	dataURL    bool
	quiet      bool
}

func (c *extractCmd) Spec() cli.CommandSpec {
	return cli.CommandSpec{
		Name:  "extract",
		Usage: "--main REF --mask REF [-o FILE] [flags]",
		Desc: "Scale the mask to the main image, then set each main pixel's alpha to " +
			"alpha * mean(mask RGB)/255 * mask alpha/255. REF is a path, file://, http(s):// or data: URL.",
	}
}

func (c *extractCmd) RegisterFlags(fl *pflag.FlagSet) {
	fl.StringVar(&c.mainRef, "main", "", "main image reference")
	fl.StringVar(&c.maskRef, "mask", "", "mask image reference")
	fl.StringVarP(&c.outPath, "output", "o", "", "output file, stdout when empty")
	fl.StringVar(&c.configPath, "config", "", "YAML config file")
	fl.StringVar(&c.kernel, "kernel", "", "mask resample kernel: "+strings.Join(resample.Names(), ", "))
	fl.StringVar(&c.format, "format", "", "output format: png, bmp, tga, dds (default from -o extension, else png)")
	fl.IntVar(&c.workers, "workers", -1, "compositing goroutines, 0 for GOMAXPROCS")
	fl.BoolVar(&c.dataURL, "data-url", false, "write a base64 data URL instead of raw bytes")
	fl.BoolVarP(&c.quiet, "quiet", "q", false, "no progress output")
}

func (c *extractCmd) Run(fl *pflag.FlagSet) {
	if err := c.run(context.Background(), os.Stdout, os.Stderr); err != nil {
		fail(err)
	}
}

// settings merges the config file and the flags; flags win. Without
// --format or --config the output format follows the -o extension.
func (c *extractCmd) settings() (*config.Config, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.Load(c.configPath); err != nil {
			return nil, err
		}
	}
	if c.kernel != "" {
		cfg.Kernel = c.kernel
	}
	switch {
	case c.format != "":
		cfg.Format = c.format
	case c.outPath != "" && c.configPath == "":
		if f, err := codec.ParseFormat(filepath.Ext(c.outPath)); err == nil {
			cfg.Format = f.String()
		}
	}
	if c.workers >= 0 {
		cfg.Workers = c.workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *extractCmd) run(ctx context.Context, stdout, stderr io.Writer) error {
	if c.mainRef == "" || c.maskRef == "" {
		return errors.New("both --main and --mask are required")
	}
	cfg, err := c.settings()
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	e := &extract.Extractor{
		Fetcher: &source.Loader{MaxBytes: cfg.MaxSourceBytes},
		Kernel:  cfg.ResampleKernel(),
		Format:  cfg.OutputFormat(),
		Workers: cfg.Workers,
	}
	if !c.quiet {
		e.Log = stderr
	}

	res, err := e.Run(ctx, c.mainRef, c.maskRef)
	if err != nil {
		return err
	}

	payload := res.Data
	if c.dataURL {
		payload = []byte(res.DataURL() + "\n")
	}
	if c.outPath == "" {
		_, err := stdout.Write(payload)
		return err
	}
	if err := os.WriteFile(c.outPath, payload, 0666); err != nil {
		return fmt.Errorf("write %q: %w", c.outPath, err)
	}
	if !c.quiet {
		fmt.Fprintf(stderr, "Wrote %dx%d %v to %q (%d bytes).\n", res.Width, res.Height, res.Format, c.outPath, len(payload))
	}
	return nil
}
