package session

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/pyramid-go/block"
	"github.com/bitfsorg/pyramid-go/pyramid"
	"github.com/bitfsorg/pyramid-go/seal"
)

// Close seals the chain under a fresh nonce, replaces the metadata file
// contents with signature || nonce || ciphertext and closes both files.
// The files are closed even when sealing fails; the first error is
// returned. A second Close returns ErrClosed.
func (s *Session) Close() error {
	if s == nil {
		return fmt.Errorf("%w: nil session", ErrInvalidArgument)
	}
	if s.closed {
		return ErrClosed
	}
	s.closed = true

	err := s.persist()
	if cerr := s.data.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("%w: %w", ErrCloseData, cerr)
	}
	if s.locked {
		releaseLock(s.meta)
	}
	if cerr := s.meta.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("%w: %w", ErrCloseMeta, cerr)
	}
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"levels": s.chain.LevelCount(),
		"blocks": s.chain.Len(),
		"reads":  s.acc.Reads(),
		"writes": s.acc.Writes(),
	}).Info("session closed")
	return nil
}

// persist seals before touching the metadata file, so a sealing failure
// leaves the previous metadata intact.
func (s *Session) persist() error {
	flat, err := pyramid.Flatten(s.chain.Top())
	if err != nil {
		return err
	}
	b, err := s.codec.Seal(flat)
	if err != nil {
		return err
	}
	if want := seal.HeaderSize + seal.IDSize*s.chain.TotalSlots(); b.Len() != want {
		return fmt.Errorf("%w: sealed %d bytes, chain needs %d", ErrSize, b.Len(), want)
	}
	if s.ledger != nil {
		if _, err := s.ledger.Record(s.metaPath, b.Nonce, len(flat)); err != nil {
			return err
		}
	}

	if err := s.meta.Truncate(0); err != nil {
		return fmt.Errorf("%w: %w", ErrTruncate, err)
	}
	if _, err := s.meta.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %w", ErrSeek, err)
	}
	raw := b.Marshal()
	n, err := s.meta.Write(raw)
	if err != nil {
		return fmt.Errorf("%w: %d of %d bytes: %w", ErrShortWrite, n, len(raw), err)
	}
	if n != len(raw) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(raw))
	}
	return nil
}

// Stats describes the state of a session's chain.
type Stats struct {
	Size      int64 // data file bytes
	Blocks    int64 // blocks of the data file
	Levels    int
	Capacity  []int // slots per level, top first
	Occupancy []int // occupied slots per level, top first
	Reads     int64 // physical block reads since Open
	Writes    int64 // physical block writes since Open
}

// Stats reports the level structure and access counters of the session.
func (s *Session) Stats() (*Stats, error) {
	if err := s.check(0); err != nil {
		return nil, err
	}
	size, err := s.size()
	if err != nil {
		return nil, err
	}
	st := &Stats{
		Size:      size,
		Blocks:    block.Count(size),
		Levels:    s.chain.LevelCount(),
		Occupancy: s.chain.Occupancy(),
		Reads:     s.acc.Reads(),
		Writes:    s.acc.Writes(),
	}
	for i := 1; i <= st.Levels; i++ {
		st.Capacity = append(st.Capacity, pyramid.Capacity(i))
	}
	return st, nil
}
