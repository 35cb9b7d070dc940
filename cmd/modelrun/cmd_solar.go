package main

import (
	"context"
	"flag"
	"path/filepath"

	"github.com/kjk/modelrun/log"
	"github.com/kjk/modelrun/solar"
)

func cmdSolar(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("solar", flag.ContinueOnError)
	dir := fs.String("dir", ".", "directory with data files")
	in := fs.String("in", "data.in", "inputs file")
	out := fs.String("out", "data.out", "outputs file")
	if _, err := parseFlags(fs, args, 0); err != nil {
		return err
	}
	inPath := filepath.Join(*dir, *in)
	outPath := filepath.Join(*dir, *out)
	if err := solar.Run(ctx, solar.Placeholder, inPath, outPath); err != nil {
		return err
	}
	log.Event("solar", "in", inPath, "out", outPath)
	return nil
}
