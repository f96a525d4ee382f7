package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/pyramid-go/config"
	"github.com/bitfsorg/pyramid-go/ledger"
	"github.com/bitfsorg/pyramid-go/session"
)

// initCmd writes a config file with a fresh key derivation salt.
func (a *app) initCmd(dataDir string, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	force := fs.Bool("force", false, "overwrite an existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := config.ConfigPath(dataDir)
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", path)
	}

	cfg := config.DefaultConfig()
	cfg.DataDir = dataDir
	cfg.Ledger = filepath.Join(dataDir, "nonces.db")
	salt, err := config.NewSalt()
	if err != nil {
		return err
	}
	cfg.Salt = salt
	if err := config.SaveConfig(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "configuration saved to %s\n", path)
	return nil
}

// openMode says how withSession treats missing files.
type openMode int

const (
	// openExisting requires the data file; missing metadata is created.
	openExisting openMode = iota
	// openCreate also creates a missing data file.
	openCreate
	// openVerify requires both the data file and its metadata file.
	openVerify
)

// env is what every file command runs with.
type env struct {
	log    *logrus.Logger
	ledger *ledger.Ledger
	file   string
	offset int64
	length int64
}

// withSession loads the config, parses the command's flags and file
// argument, opens a session according to mode and hands it to fn. The session is closed, and its metadata sealed,
// even when fn fails.
func (a *app) withSession(dataDir string, args []string, mode openMode, fn func(*env, *session.Session) error) error {
	cfg, err := config.LoadConfig(config.ConfigPath(dataDir))
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return fmt.Errorf("%w (run pyramidfs init first)", err)
		}
		return err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	e := &env{}
	fs := flag.NewFlagSet("pyramidfs", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Int64Var(&e.offset, "offset", 0, "byte offset in the file")
	fs.Int64Var(&e.length, "length", -1, "bytes to read (-1 reads to end of file)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected exactly one file argument")
	}
	e.file = fs.Arg(0)

	pass, err := a.passphrase()
	if err != nil {
		return err
	}
	key, err := cfg.DeriveKey(pass)
	if err != nil {
		return err
	}

	log, closer, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer closer.Close()
	if cfg.LogFile == "" {
		log.SetOutput(a.stderr)
	}
	e.log = log

	if e.ledger, err = cfg.OpenLedger(); err != nil {
		return err
	}
	if e.ledger != nil {
		defer e.ledger.Close()
	}

	oflag := os.O_RDWR
	switch mode {
	case openCreate:
		oflag |= os.O_CREATE
	case openVerify:
		meta := e.file + cfg.MetaSuffix
		if _, err := os.Stat(meta); err != nil {
			return fmt.Errorf("%s has no metadata file %s: %w", e.file, meta, err)
		}
	}
	s, err := session.Open(e.file, oflag, key, cfg.Options(e.log, e.ledger))
	if err != nil {
		return err
	}
	err = fn(e, s)
	if cerr := s.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// catCmd copies a byte range of the file to stdout.
func (a *app) catCmd(e *env, s *session.Session) error {
	if _, err := s.Seek(e.offset, io.SeekStart); err != nil {
		return err
	}
	var r io.Reader = s
	if e.length >= 0 {
		r = io.LimitReader(s, e.length)
	}
	_, err := io.Copy(a.stdout, r)
	return err
}

// putCmd writes stdin into the file starting at the offset.
func (a *app) putCmd(e *env, s *session.Session) error {
	off := e.offset
	buf := make([]byte, 64*1024)
	total := int64(0)
	for {
		n, err := a.stdin.Read(buf)
		if n > 0 {
			if _, werr := s.WriteAt(buf[:n], off+total); werr != nil {
				return werr
			}
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
	fmt.Fprintf(a.stderr, "wrote %d bytes at offset %d\n", total, off)
	return nil
}

// statCmd prints the level structure of the file's pyramid.
func (a *app) statCmd(e *env, s *session.Session) error {
	st, err := s.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "file:   %s\nmeta:   %s\nsize:   %d bytes\nblocks: %d\nlevels: %d\n\n",
		s.Path(), s.MetaPath(), st.Size, st.Blocks, st.Levels)

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "LEVEL\tCAPACITY\tOCCUPIED\t")
	for i := 0; i < st.Levels; i++ {
		fmt.Fprintf(tw, "%d\t%d\t%d\t\n", i+1, st.Capacity[i], st.Occupancy[i])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if e.ledger != nil {
		n, err := e.ledger.Count(s.MetaPath())
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "\nsealed %d times", n)
		if last, err := e.ledger.Latest(s.MetaPath()); err == nil {
			fmt.Fprintf(a.stdout, ", last at %s", last.Recorded.Format("2006-01-02 15:04:05 MST"))
		}
		fmt.Fprintln(a.stdout)
	}
	return nil
}

// verifyCmd opens the file, which checks the metadata signature, and
// closes it again.
func (a *app) verifyCmd(e *env, s *session.Session) error {
	fmt.Fprintf(a.stdout, "%s: metadata signature ok, %d levels\n", s.Path(), s.Chain().LevelCount())
	return nil
}
