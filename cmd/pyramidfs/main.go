// Command pyramidfs reads and writes files through an oblivious pyramid.
//
// Usage:
//
//	pyramidfs [-datadir dir] init
//	pyramidfs [-datadir dir] cat [-offset n] [-length n] file
//	pyramidfs [-datadir dir] put [-offset n] file < input
//	pyramidfs [-datadir dir] stat file
//	pyramidfs [-datadir dir] verify file
//
// The passphrase is read from $PYRAMIDFS_PASSPHRASE or prompted for.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/bitfsorg/pyramid-go/config"
)

// PassphraseEnv names the environment variable consulted before prompting.
const PassphraseEnv = "PYRAMIDFS_PASSPHRASE"

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// passphrase returns the user's passphrase.
	passphrase func() ([]byte, error)
}

func main() {
	a := &app{
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		passphrase: promptPassphrase,
	}
	os.Exit(a.run(os.Args[1:]))
}

func (a *app) run(args []string) int {
	fs := flag.NewFlagSet("pyramidfs", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	dataDir := fs.String("datadir", config.DefaultDataDir(), "directory holding the config file and nonce ledger")
	fs.Usage = func() {
		fmt.Fprintln(a.stderr, "usage: pyramidfs [-datadir dir] init|cat|put|stat|verify [flags] [file]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	var err error
	switch cmd {
	case "init":
		err = a.initCmd(*dataDir, rest)
	case "cat":
		err = a.withSession(*dataDir, rest, openExisting, a.catCmd)
	case "put":
		err = a.withSession(*dataDir, rest, openCreate, a.putCmd)
	case "stat":
		err = a.withSession(*dataDir, rest, openExisting, a.statCmd)
	case "verify":
		err = a.withSession(*dataDir, rest, openVerify, a.verifyCmd)
	default:
		fmt.Fprintf(a.stderr, "pyramidfs: unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(a.stderr, "pyramidfs %s: %v\n", cmd, err)
		return 1
	}
	return 0
}

// promptPassphrase reads the passphrase from PassphraseEnv, or from the
// terminal with echo disabled.
func promptPassphrase() ([]byte, error) {
	if p, ok := os.LookupEnv(PassphraseEnv); ok {
		return []byte(p), nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("no terminal to prompt on; set %s", PassphraseEnv)
	}
	fmt.Fprint(os.Stderr, "Passphrase: ")
	p, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	if len(p) == 0 {
		return nil, errors.New("passphrase cannot be empty")
	}
	return p, nil
}
