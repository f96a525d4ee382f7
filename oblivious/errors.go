package oblivious

import "errors"

var (
	// ErrTargetNotFound indicates the target block is not registered in any
	// level of the chain.
	ErrTargetNotFound = errors.New("oblivious: target block not in chain")

	// ErrInvalidID indicates a negative block id.
	ErrInvalidID = errors.New("oblivious: invalid block id")

	// ErrDecoy indicates no decoy block could be chosen for a level.
	ErrDecoy = errors.New("oblivious: decoy selection failed")

	// ErrRead indicates a physical block read failed.
	ErrRead = errors.New("oblivious: block read failed")

	// ErrShortRead indicates a block read returned fewer bytes than the
	// file holds for that block.
	ErrShortRead = errors.New("oblivious: short block read")

	// ErrWrite indicates a physical block write failed.
	ErrWrite = errors.New("oblivious: block write failed")
)
