package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"

	"github.com/kjk/modelrun/export"
	"github.com/kjk/modelrun/kvfile"
	"github.com/kjk/modelrun/log"
	"github.com/kjk/modelrun/minioutil"
)

const s3EnvPrefix = "MODELRUN_S3_"

func cmdShow(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "show as json")
	asTOON := fs.Bool("toon", false, "show as toon")
	dump := fs.Bool("dump", false, "dump parsed record")
	args, err := parseFlags(fs, args, 1)
	if err != nil {
		return err
	}
	rec, err := kvfile.Read(args[0])
	if err != nil {
		return err
	}
	var d []byte
	switch {
	case *dump:
		spew.Fdump(stdout, rec.Entries())
		return nil
	case *asJSON:
		d, err = export.JSON(rec, true)
	case *asTOON:
		d, err = export.TOON(rec)
		d = append(d, '\n')
	default:
		d, err = kvfile.Marshal(rec)
	}
	if err != nil {
		return err
	}
	_, err = stdout.Write(d)
	return err
}

func cmdDiff(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("diff", flag.ContinueOnError)
	args, err := parseFlags(fs, args, 2)
	if err != nil {
		return err
	}
	a, err := kvfile.Read(args[0])
	if err != nil {
		return err
	}
	b, err := kvfile.Read(args[1])
	if err != nil {
		return err
	}
	diff, err := export.Diff(a, b, args[0], args[1])
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Fprintf(stdout, "%s and %s are the same\n", args[0], args[1])
		return nil
	}
	_, err = io.WriteString(stdout, diff)
	return err
}

func newS3Client(ctx context.Context) (*minioutil.Client, error) {
	c, err := minioutil.New(ctx, minioutil.ConfigFromEnv(s3EnvPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w (set %sACCESS, %sSECRET, %sBUCKET and %sENDPOINT)", err, s3EnvPrefix, s3EnvPrefix, s3EnvPrefix, s3EnvPrefix)
	}
	return c, nil
}

// push validates the file before uploading it
func cmdPush(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("push", flag.ContinueOnError)
	args, err := parseFlags(fs, args, 2)
	if err != nil {
		return err
	}
	local, remote := args[0], args[1]
	if _, err = kvfile.Read(local); err != nil {
		return err
	}
	c, err := newS3Client(ctx)
	if err != nil {
		return err
	}
	info, err := c.UploadFile(ctx, remote, local)
	if err != nil {
		return err
	}
	log.Event("push", "path", local, "url", c.URLForPath(remote), "size", info.Size)
	log.Logf("uploaded %s to %s\n", local, c.URLForPath(remote))
	return nil
}

func cmdPull(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pull", flag.ContinueOnError)
	args, err := parseFlags(fs, args, 2)
	if err != nil {
		return err
	}
	remote, local := args[0], args[1]
	c, err := newS3Client(ctx)
	if err != nil {
		return err
	}
	if err = c.DownloadFileAtomically(ctx, local, remote); err != nil {
		return err
	}
	if _, err = kvfile.Read(local); err != nil {
		return fmt.Errorf("downloaded %s is not a valid record: %w", local, err)
	}
	log.Event("pull", "path", local, "url", c.URLForPath(remote))
	log.Logf("downloaded %s to %s\n", c.URLForPath(remote), local)
	return nil
}
