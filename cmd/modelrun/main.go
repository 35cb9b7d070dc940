package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/kjk/modelrun/log"
)

const usage = `usage: modelrun [-verbose] [-log-dir DIR] <command> [flags]

commands:
  solar  [-dir DIR] [-in data.in] [-out data.out]   run the solar model on a data file pair
  study  -config study.yaml [-metrics-addr :9100] [-csv out.csv]
  show   [-json|-toon|-dump] FILE
  diff   A B
  push   LOCAL REMOTE    upload a record file (S3 settings from MODELRUN_S3_* env)
  pull   REMOTE LOCAL    download a record file
  serve  [-addr localhost:8080] [-api-key-env VAR]   serve the solar model on /evaluate
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	log.Close()
	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("modelrun", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	verbose := fs.Bool("verbose", false, "verbose logging")
	logDir := fs.String("log-dir", "", "directory for log files")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s", errUsage, err)
	}
	log.Verbose = *verbose
	log.Out = stdout
	log.Init(&log.Config{Dir: *logDir})

	args = fs.Args()
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "solar":
		return cmdSolar(ctx, args)
	case "study":
		return cmdStudy(ctx, args, stdout)
	case "show":
		return cmdShow(args, stdout)
	case "diff":
		return cmdDiff(args, stdout)
	case "push":
		return cmdPush(ctx, args)
	case "pull":
		return cmdPull(ctx, args)
	case "serve":
		return cmdServe(ctx, args)
	}
	return fmt.Errorf("%w: unknown command '%s'", errUsage, cmd)
}

func parseFlags(fs *flag.FlagSet, args []string, nArgs int) ([]string, error) {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", errUsage, fs.Name(), err)
	}
	if nArgs >= 0 && fs.NArg() != nArgs {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", errUsage, fs.Name(), nArgs, fs.NArg())
	}
	return fs.Args(), nil
}
