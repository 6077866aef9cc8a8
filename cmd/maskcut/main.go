package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.coder.com/cli"
)

type rootCmd struct{}

func (r *rootCmd) Spec() cli.CommandSpec {
	return cli.CommandSpec{
		Name:  "maskcut",
		Usage: "[subcommand] [flags]",
		Desc:  "Cut the content out of an image using the brightness and alpha of a mask image.",
	}
}

func (r *rootCmd) Run(fl *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "usage: maskcut <subcommand> [flags]\n\n")
	for _, sub := range r.Subcommands() {
		spec := sub.Spec()
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", spec.Name, spec.Usage)
	}
	os.Exit(2)
}

func (r *rootCmd) Subcommands() []cli.Command {
	return []cli.Command{
		&extractCmd{},
		&inspectCmd{},
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "FAILED: %v\n", err)
	os.Exit(33)
}

func main() {
	cli.RunRoot(&rootCmd{})
}
