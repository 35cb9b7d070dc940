package evaluator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/kjk/modelrun/kvfile"
	"github.com/kjk/modelrun/log"
	"github.com/kjk/modelrun/u"
	"github.com/melbahja/goph"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SSH evaluates a model on a remote machine: inputs are uploaded over sftp
// to RemoteDir/InFile, Exe runs in RemoteDir and RemoteDir/OutFile is
// downloaded. The connection is opened on first use and re-used until Close.
type SSH struct {
	User string
	Host string
	// default 22
	Port uint
	// private key, ~ is expanded
	KeyPath    string
	Passphrase string
	// if true, host key is not checked against ~/.ssh/known_hosts
	InsecureHostKey bool
	Timeout         time.Duration

	RemoteDir string
	Exe       string
	Args      []string
	InFile    string
	OutFile   string

	mu     sync.Mutex
	client *goph.Client
	sftp   *sftp.Client
}

func (s *SSH) validate() error {
	switch {
	case s.User == "":
		return errors.New("ssh: user not set")
	case s.Host == "":
		return errors.New("ssh: host not set")
	case s.KeyPath == "":
		return errors.New("ssh: key path not set")
	case s.RemoteDir == "":
		return errors.New("ssh: remote dir not set")
	case s.Exe == "":
		return errors.New("ssh: exe not set")
	}
	return nil
}

func (s *SSH) connect() error {
	if s.client != nil {
		return nil
	}
	if err := s.validate(); err != nil {
		return err
	}
	keyPath := u.ExpandTildeInPath(s.KeyPath)
	if !u.FileExists(keyPath) {
		return fmt.Errorf("ssh: key file '%s' doesn't exist", keyPath)
	}
	auth, err := goph.Key(keyPath, s.Passphrase)
	if err != nil {
		return fmt.Errorf("goph.Key() failed with '%w'", err)
	}
	var callback ssh.HostKeyCallback
	if s.InsecureHostKey {
		callback = ssh.InsecureIgnoreHostKey()
	} else if callback, err = goph.DefaultKnownHosts(); err != nil {
		return fmt.Errorf("goph.DefaultKnownHosts() failed with '%w'", err)
	}
	port := s.Port
	if port == 0 {
		port = 22
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = goph.DefaultTimeout
	}
	client, err := goph.NewConn(&goph.Config{
		User:     s.User,
		Addr:     s.Host,
		Port:     port,
		Auth:     auth,
		Timeout:  timeout,
		Callback: callback,
	})
	if err != nil {
		return fmt.Errorf("ssh: connecting to %s@%s:%d failed with '%w'", s.User, s.Host, port, err)
	}
	sc, err := client.NewSftp()
	if err != nil {
		client.Close()
		return fmt.Errorf("client.NewSftp() failed with '%w'", err)
	}
	if err = sc.MkdirAll(s.RemoteDir); err != nil {
		sc.Close()
		client.Close()
		return fmt.Errorf("sftp.MkdirAll('%s') failed with '%w'", s.RemoteDir, err)
	}
	s.client = client
	s.sftp = sc
	log.Verbosef("ssh: connected to %s@%s:%d\n", s.User, s.Host, port)
	return nil
}

// Close closes the connection. Evaluate re-connects if needed.
func (s *SSH) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.close()
}

func (s *SSH) close() error {
	if s.client == nil {
		return nil
	}
	err := errors.Join(s.sftp.Close(), s.client.Close())
	s.client = nil
	s.sftp = nil
	return err
}

// remoteCommand returns a shell command that runs Exe in RemoteDir
func (s *SSH) remoteCommand() (string, []string) {
	args := []string{u.ShellQuote(s.RemoteDir), "&&", u.ShellQuote(s.Exe)}
	for _, a := range s.Args {
		args = append(args, u.ShellQuote(a))
	}
	return "cd", args
}

func (s *SSH) Evaluate(ctx context.Context, in *kvfile.Record) (*kvfile.Record, error) {
	d, err := kvfile.Marshal(in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.connect(); err != nil {
		return nil, err
	}
	out, err := s.evaluate(ctx, d)
	if err != nil && !isCommandError(err) {
		// connection might be broken, re-connect on next Evaluate
		s.close()
	}
	return out, err
}

func isCommandError(err error) bool {
	var cerr *CommandError
	return errors.As(err, &cerr)
}

func (s *SSH) evaluate(ctx context.Context, d []byte) (*kvfile.Record, error) {
	inPath := path.Join(s.RemoteDir, orDefault(s.InFile, DefaultInFile))
	outPath := path.Join(s.RemoteDir, orDefault(s.OutFile, DefaultOutFile))

	if err := s.upload(inPath, d); err != nil {
		return nil, err
	}
	if err := s.sftp.Remove(outPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("sftp.Remove('%s') failed with '%w'", outPath, err)
	}

	exe, args := s.remoteCommand()
	cmd, err := s.client.CommandContext(ctx, exe, args...)
	if err != nil {
		return nil, fmt.Errorf("client.Command() failed with '%w'", err)
	}
	log.Verbosef("ssh: running '%s' on %s\n", cmd.String(), s.Host)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &CommandError{Cmd: cmd.String(), Output: string(output), Err: err}
	}
	return s.download(outPath)
}

func (s *SSH) upload(remotePath string, d []byte) error {
	f, err := s.sftp.Create(remotePath)
	if err != nil {
		return fmt.Errorf("sftp.Create('%s') failed with '%w'", remotePath, err)
	}
	_, err = f.Write(d)
	return errors.Join(err, f.Close())
}

func (s *SSH) download(remotePath string) (*kvfile.Record, error) {
	f, err := s.sftp.Open(remotePath)
	if err != nil {
		return nil, &kvfile.Error{Kind: kvfile.ErrFileNotFound, Path: remotePath, Err: err}
	}
	defer f.Close()
	rec, err := kvfile.Decode(f)
	if err != nil {
		var kerr *kvfile.Error
		if errors.As(err, &kerr) {
			kerr.Path = remotePath
			return nil, err
		}
		return nil, &kvfile.Error{Kind: kvfile.ErrFileNotFound, Path: remotePath, Err: err}
	}
	return rec, nil
}
