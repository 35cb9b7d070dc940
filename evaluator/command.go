package evaluator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kjk/modelrun/kvfile"
	"github.com/kjk/modelrun/log"
	"github.com/kjk/modelrun/u"
)

// Command evaluates a model by running an executable in a working
// directory: inputs are written to InFile, outputs read from OutFile.
type Command struct {
	Exe  string
	Args []string
	// working directory. If empty, a new temporary directory is
	// created for every evaluation and removed afterwards
	Dir string
	// default "data.in"
	InFile string
	// default "data.out"
	OutFile string
	// extra environment variables, in "key=value" form
	Env []string

	// Dir is shared so evaluations must not overlap
	mu sync.Mutex
}

// CommandError is returned when the executable fails
type CommandError struct {
	Cmd    string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("'%s' failed with '%s'", e.Cmd, e.Err)
	}
	return fmt.Sprintf("'%s' failed with '%s'. Output:\n%s", e.Cmd, e.Err, out)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (c *Command) Evaluate(ctx context.Context, in *kvfile.Record) (*kvfile.Record, error) {
	dir := c.Dir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "modelrun-")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(dir)
	} else {
		if !u.DirExists(dir) {
			return nil, fmt.Errorf("work directory '%s' doesn't exist", dir)
		}
		c.mu.Lock()
		defer c.mu.Unlock()
	}
	return c.evaluateInDir(ctx, dir, in)
}

func (c *Command) evaluateInDir(ctx context.Context, dir string, in *kvfile.Record) (*kvfile.Record, error) {
	inPath := filepath.Join(dir, orDefault(c.InFile, DefaultInFile))
	outPath := filepath.Join(dir, orDefault(c.OutFile, DefaultOutFile))

	if err := kvfile.Write(inPath, in); err != nil {
		return nil, err
	}
	// outputs of the previous run must not be mistaken for ours
	if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, c.Exe, c.Args...)
	cmd.Dir = dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	log.Verbosef("running '%s' in '%s'\n", cmd.String(), dir)
	if err := cmd.Run(); err != nil {
		return nil, &CommandError{Cmd: cmd.String(), Output: out.String(), Err: err}
	}
	return kvfile.Read(outPath)
}
