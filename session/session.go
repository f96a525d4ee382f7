// Package session binds a data file, its encrypted pyramid metadata file and
// the in-memory chain into one handle. Reads and writes go through the
// oblivious accessor block by block; Close seals the chain back to disk.
//
// The metadata file sits next to the data file under the same name plus a
// suffix (default "_pyramid") and holds signature || nonce || ciphertext.
package session

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/pyramid-go/block"
	"github.com/bitfsorg/pyramid-go/ledger"
	"github.com/bitfsorg/pyramid-go/oblivious"
	"github.com/bitfsorg/pyramid-go/pyramid"
	"github.com/bitfsorg/pyramid-go/seal"
)

// DefaultMetaSuffix is appended to the data file path to name its metadata file.
const DefaultMetaSuffix = "_pyramid"

// Options configures Open. The zero value is usable.
type Options struct {
	// Logger receives session events. Nil discards them.
	Logger *logrus.Logger

	// Ledger, when set, journals every sealing nonce and refuses reuse.
	Ledger *ledger.Ledger

	// MetaSuffix overrides DefaultMetaSuffix.
	MetaSuffix string

	// Sequential registers the blocks of a new metadata file in increasing
	// order instead of a random permutation.
	Sequential bool

	// NoLock skips the advisory lock on the metadata file.
	NoLock bool

	// Rand overrides crypto/rand for decoy selection, placement and nonces.
	Rand io.Reader
}

func (o *Options) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Session is one open data file with its pyramid.
// A Session is not safe for concurrent use.
type Session struct {
	path     string
	metaPath string

	data *os.File
	meta *os.File

	codec  *seal.Codec
	chain  *pyramid.Chain
	acc    *oblivious.Accessor
	ledger *ledger.Ledger
	log    *logrus.Entry

	pos     int64
	locked  bool
	created bool
	closed  bool
}

// Open opens the data file at path with flag and loads its pyramid from the
// metadata file, creating the metadata file if it does not exist yet. key
// must be seal.KeySize bytes.
//
// A new metadata file gets mode 0600 and a chain holding every block of the
// data file. An existing one is verified before anything is decrypted; a
// signature mismatch fails with seal.ErrIntegrityMismatch.
func Open(path string, flag int, key []byte, opts *Options) (*Session, error) {
	if opts == nil {
		opts = &Options{}
	}
	codec, err := seal.New(key, seal.WithRand(opts.Rand))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	suffix := opts.MetaSuffix
	if suffix == "" {
		suffix = DefaultMetaSuffix
	}

	s := &Session{
		path:     path,
		metaPath: path + suffix,
		codec:    codec,
		ledger:   opts.Ledger,
		log:      opts.logger().WithFields(logrus.Fields{"path": path}),
	}

	s.data, err = os.OpenFile(path, flag, 0600)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenData, err)
	}
	if err := s.openMeta(); err != nil {
		_ = s.data.Close()
		return nil, err
	}

	if err := s.load(opts); err != nil {
		s.abandon()
		return nil, err
	}
	s.acc = oblivious.New(s.chain)

	s.log.WithFields(logrus.Fields{
		"created": s.created,
		"levels":  s.chain.LevelCount(),
		"blocks":  s.chain.Len(),
	}).Info("session opened")
	return s, nil
}

// openMeta creates the metadata file exclusively, falling back to opening
// the existing one.
func (s *Session) openMeta() error {
	f, err := os.OpenFile(s.metaPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	switch {
	case err == nil:
		s.created = true
	case errors.Is(err, fs.ErrExist):
		f, err = os.OpenFile(s.metaPath, os.O_RDWR, 0)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrOpenMeta, err)
		}
	default:
		return fmt.Errorf("%w: %w", ErrOpenMeta, err)
	}
	s.meta = f
	return nil
}

func (s *Session) load(opts *Options) error {
	if !opts.NoLock {
		if err := tryLock(s.meta); err != nil {
			return err
		}
		s.locked = true
	}
	if s.created {
		return s.initChain(opts)
	}
	return s.readChain(opts)
}

// initChain restricts a new metadata file and registers every block of the
// data file at level 1.
func (s *Session) initChain(opts *Options) error {
	if err := s.meta.Chmod(0600); err != nil {
		return fmt.Errorf("%w: %w", ErrPermission, err)
	}
	size, err := s.size()
	if err != nil {
		return err
	}
	s.chain = pyramid.New(pyramid.WithRand(opts.Rand))
	if err := s.chain.Populate(block.Count(size), !opts.Sequential); err != nil {
		return fmt.Errorf("%w: %w", ErrIDRegistration, err)
	}
	return nil
}

// readChain verifies, decrypts and rebuilds the chain stored in an existing
// metadata file. The number of levels follows from the ciphertext length.
func (s *Session) readChain(opts *Options) error {
	raw, err := io.ReadAll(s.meta)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMetaRead, err)
	}
	if len(raw) < seal.HeaderSize {
		return fmt.Errorf("%w: %d bytes: %w", ErrMetaRead, len(raw), io.ErrUnexpectedEOF)
	}
	b, err := seal.UnmarshalBlob(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMetaRead, err)
	}
	ids, err := s.codec.Unseal(b)
	if err != nil {
		return err
	}
	s.chain, err = pyramid.FromFlat(ids, pyramid.WithRand(opts.Rand))
	if err != nil {
		return fmt.Errorf("%w: %w", seal.ErrDecrypt, err)
	}
	return s.reconcile()
}

// reconcile matches the chain to a data file whose size changed outside a
// session, for example when opened with O_TRUNC. Identifiers of blocks past
// the end are dropped and blocks the chain does not know are registered at
// level 1.
func (s *Session) reconcile() error {
	size, err := s.size()
	if err != nil {
		return err
	}
	count := block.Count(size)
	dropped := s.chain.Prune(count)
	added := 0
	for id := int64(0); id < count; id++ {
		if _, ok := s.chain.Locate(id); ok {
			continue
		}
		if err := s.chain.Add(1, id); err != nil {
			return fmt.Errorf("%w: %w", ErrIDRegistration, err)
		}
		added++
	}
	if dropped > 0 || added > 0 {
		s.log.WithFields(logrus.Fields{
			"dropped": dropped,
			"added":   added,
			"blocks":  count,
		}).Info("reconciled chain with data file")
	}
	return nil
}

// abandon releases everything Open acquired. A metadata file created by
// the failed Open is removed so the next Open starts afresh.
func (s *Session) abandon() {
	if s.locked {
		releaseLock(s.meta)
	}
	_ = s.meta.Close()
	_ = s.data.Close()
	if s.created {
		_ = os.Remove(s.metaPath)
	}
}

// Path returns the data file path.
func (s *Session) Path() string { return s.path }

// MetaPath returns the metadata file path.
func (s *Session) MetaPath() string { return s.metaPath }

// Chain returns the session's chain.
func (s *Session) Chain() *pyramid.Chain { return s.chain }

func (s *Session) size() (int64, error) {
	fi, err := s.data.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStat, err)
	}
	return fi.Size(), nil
}

func (s *Session) check(off int64) error {
	if s == nil {
		return fmt.Errorf("%w: nil session", ErrInvalidArgument)
	}
	if s.closed {
		return ErrClosed
	}
	if off < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrInvalidArgument, off)
	}
	return nil
}
