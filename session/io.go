package session

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/pyramid-go/block"
)

// Read reads up to len(p) bytes at the cursor and advances it by the number
// of bytes read. Reads stop at end of file; at or past it Read returns
// io.EOF. On error the cursor does not move.
func (s *Session) Read(p []byte) (int, error) {
	if err := s.check(0); err != nil {
		return 0, err
	}
	n, err := s.readAt(p, s.pos)
	if err != nil {
		return 0, err
	}
	s.pos += int64(n)
	return n, nil
}

// ReadAt reads len(p) bytes at off without using or moving the cursor.
// Fewer bytes are returned only at end of file, together with io.EOF.
func (s *Session) ReadAt(p []byte, off int64) (int, error) {
	if err := s.check(off); err != nil {
		return 0, err
	}
	n, err := s.readAt(p, off)
	if err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// readAt fetches every block overlapping the clamped range and copies its
// covered part into p. Any failing block fails the whole read.
func (s *Session) readAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	size, err := s.size()
	if err != nil {
		return 0, err
	}
	if off >= size {
		return 0, io.EOF
	}
	count := min(int64(len(p)), size-off)

	spans := block.Spans(count, off)
	for _, sp := range spans {
		acc, err := s.acc.Fetch(s.data, size, sp.Block)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrBlockFetch, err)
		}
		copy(p[sp.Buf:sp.Buf+sp.Len], acc.Block()[sp.Start:])
	}

	s.log.WithFields(logrus.Fields{
		"offset": off,
		"bytes":  count,
		"blocks": len(spans),
		"levels": s.chain.LevelCount(),
	}).Debug("read")
	return int(count), nil
}

// Write writes p at the cursor. The cursor is left where it was; use Seek
// or WriteAt to address the following bytes.
func (s *Session) Write(p []byte) (int, error) {
	if err := s.check(0); err != nil {
		return 0, err
	}
	return s.writeAt(p, s.pos)
}

// WriteAt writes p at off, growing the file as needed. The cursor is not
// used or moved.
func (s *Session) WriteAt(p []byte, off int64) (int, error) {
	if err := s.check(off); err != nil {
		return 0, err
	}
	return s.writeAt(p, off)
}

// writeAt extends the file and the chain to cover the range, then for each
// block fetches one block per level, splices p into the real block and
// writes all of them back.
func (s *Session) writeAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	size, err := s.size()
	if err != nil {
		return 0, err
	}
	if end := off + int64(len(p)); end > size {
		if err := s.grow(size, end); err != nil {
			return 0, err
		}
		size = end
	}

	spans := block.Spans(int64(len(p)), off)
	for _, sp := range spans {
		acc, err := s.acc.Fetch(s.data, size, sp.Block)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrBlockFetch, err)
		}
		copy(acc.Block()[sp.Start:sp.Start+sp.Len], p[sp.Buf:])
		if err := s.acc.WriteBack(s.data, size, acc); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"offset": off,
		"bytes":  len(p),
		"blocks": len(spans),
		"levels": s.chain.LevelCount(),
	}).Debug("write")
	return len(p), nil
}

// grow extends the data file from size to end bytes and registers the new
// blocks at level 1. A failed registration shrinks the file back.
func (s *Session) grow(size, end int64) error {
	if err := s.data.Truncate(end); err != nil {
		return fmt.Errorf("%w: %w", ErrTruncate, err)
	}
	for id := block.Count(size); id < block.Count(end); id++ {
		if _, ok := s.chain.Locate(id); ok {
			continue
		}
		if err := s.chain.Add(1, id); err != nil {
			_ = s.data.Truncate(size)
			return fmt.Errorf("%w: %w", ErrIDRegistration, err)
		}
	}
	s.log.WithFields(logrus.Fields{
		"from":   size,
		"to":     end,
		"levels": s.chain.LevelCount(),
	}).Debug("grew data file")
	return nil
}

// Seek sets the cursor for the next Read or Write. Seeking past the end is
// allowed; a negative result is not.
func (s *Session) Seek(offset int64, whence int) (int64, error) {
	if err := s.check(0); err != nil {
		return 0, err
	}
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = s.pos
	case io.SeekEnd:
		size, err := s.size()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrSeek, err)
		}
		base = size
	default:
		return 0, fmt.Errorf("%w: invalid whence %d", ErrSeek, whence)
	}
	pos := base + offset
	if pos < 0 {
		return 0, fmt.Errorf("%w: negative position %d", ErrSeek, pos)
	}
	s.pos = pos
	return pos, nil
}
