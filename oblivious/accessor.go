// Package oblivious fetches blocks so that every access touches exactly one
// physical block per pyramid level: the real block at the level that held
// it, a decoy everywhere else.
package oblivious

import (
	"errors"
	"fmt"
	"io"

	"github.com/bitfsorg/pyramid-go/block"
	"github.com/bitfsorg/pyramid-go/pyramid"
)

// Device is the storage a block file lives on. *os.File satisfies it.
type Device interface {
	io.ReaderAt
	io.WriterAt
}

// Access is the outcome of one fetch: one block buffer per level, the block
// each buffer came from and the level that held the target.
type Access struct {
	Target int64
	IDs    []int64 // block read for each level, top first
	Real   int     // 0-based level index that held Target
	Buf    []byte  // len(IDs) * block.Size bytes
}

// Levels returns the number of levels the access touched.
func (a *Access) Levels() int { return len(a.IDs) }

// Slot returns the buffer of the i-th level.
func (a *Access) Slot(i int) []byte {
	return a.Buf[i*block.Size : (i+1)*block.Size]
}

// Block returns the buffer holding the target block.
func (a *Access) Block() []byte { return a.Slot(a.Real) }

// RealOffset returns the offset of the target block within Buf.
func (a *Access) RealOffset() int { return a.Real * block.Size }

// Accessor drives oblivious fetches against one chain.
// An Accessor is not safe for concurrent use.
type Accessor struct {
	chain *pyramid.Chain
	reads int64
	write int64
}

// New returns an Accessor over chain.
func New(chain *pyramid.Chain) *Accessor {
	return &Accessor{chain: chain}
}

// Chain returns the chain the accessor drives.
func (a *Accessor) Chain() *pyramid.Chain { return a.chain }

// Reads returns the number of physical block reads performed so far.
func (a *Accessor) Reads() int64 { return a.reads }

// Writes returns the number of physical block writes performed so far.
func (a *Accessor) Writes() int64 { return a.write }

// Fetch reads one block per level of the chain from dev, a file of size
// bytes. The level holding target serves target itself, which is promoted
// to the top level; every other level serves a random decoy. The number of
// reads equals the level count whether or not, and wherever, target is
// found.
func (a *Accessor) Fetch(dev Device, size, target int64) (*Access, error) {
	if target < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidID, target)
	}
	levels := a.chain.LevelCount()
	acc := &Access{
		Target: target,
		IDs:    make([]int64, levels),
		Real:   -1,
		Buf:    make([]byte, levels*block.Size),
	}

	for i := 0; i < levels; i++ {
		n := i + 1
		chosen := pyramid.Empty
		if acc.Real < 0 {
			found, err := a.chain.FindAndPromote(n, target)
			if err != nil {
				return nil, err
			}
			if found {
				chosen = target
				acc.Real = i
			}
		}
		if chosen == pyramid.Empty {
			id, err := a.decoy(n)
			if err != nil {
				return nil, err
			}
			chosen = id
		}
		acc.IDs[i] = chosen
		if err := a.read(dev, size, chosen, acc.Slot(i)); err != nil {
			return nil, err
		}
	}
	if acc.Real < 0 {
		return nil, fmt.Errorf("%w: searched %d levels", ErrTargetNotFound, levels)
	}
	return acc, nil
}

// decoy picks a decoy for level n. A level emptied by an overflow cascade
// borrows a decoy from the whole chain so the level still costs one read.
func (a *Accessor) decoy(n int) (int64, error) {
	id, err := a.chain.SelectDecoy(n)
	if errors.Is(err, pyramid.ErrEmptyLevel) {
		id, err = a.chain.SelectAny()
	}
	if err != nil {
		return pyramid.Empty, fmt.Errorf("%w: level %d: %w", ErrDecoy, n, err)
	}
	return id, nil
}

// read fills buf with block id. The part of buf past the end of the file is
// zeroed and a partial final block must be read in full.
func (a *Accessor) read(dev Device, size, id int64, buf []byte) error {
	a.reads++
	want := block.Valid(id, size)
	n, err := dev.ReadAt(buf, block.Offset(id))
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: block at offset %d: %w", ErrRead, block.Offset(id), err)
	}
	if n != want {
		return fmt.Errorf("%w: got %d of %d bytes", ErrShortRead, n, want)
	}
	clear(buf[want:])
	return nil
}

// WriteBack writes every level's buffer of acc back to the block it was read
// from, decoys included, so a write touches the same blocks as the fetch.
// Only the bytes inside a file of size bytes are written, leaving its length
// unchanged. A decoy that happens to be the target block receives the
// target's bytes.
func (a *Accessor) WriteBack(dev Device, size int64, acc *Access) error {
	target := acc.Block()
	for i, id := range acc.IDs {
		buf := acc.Slot(i)
		if i != acc.Real && id == acc.Target {
			copy(buf, target)
		}
		a.write++
		if _, err := dev.WriteAt(buf[:block.Valid(id, size)], block.Offset(id)); err != nil {
			return fmt.Errorf("%w: block at offset %d: %w", ErrWrite, block.Offset(id), err)
		}
	}
	return nil
}
