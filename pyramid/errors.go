package pyramid

import "errors"

var (
	// ErrInvalidID indicates a negative block identifier was supplied.
	ErrInvalidID = errors.New("pyramid: block identifier must be non-negative")

	// ErrInvalidLevel indicates a level number outside 1..LevelCount().
	ErrInvalidLevel = errors.New("pyramid: level does not exist")

	// ErrEmptyLevel indicates a decoy was requested from a level with no
	// occupied slots.
	ErrEmptyLevel = errors.New("pyramid: level has no occupied slots")

	// ErrEmptyChain indicates a decoy was requested from a chain with no
	// occupied slots at any level.
	ErrEmptyChain = errors.New("pyramid: chain has no occupied slots")

	// ErrTooDeep indicates a cascade would need more than MaxLevels levels.
	ErrTooDeep = errors.New("pyramid: cascade exceeds maximum depth")

	// ErrNilChain indicates a nil chain or level was passed where the top
	// level of a chain is required.
	ErrNilChain = errors.New("pyramid: chain is nil")

	// ErrNotTopLevel indicates a level other than level 1 was passed where
	// the top level of a chain is required.
	ErrNotTopLevel = errors.New("pyramid: not the top level of its chain")

	// ErrLayout indicates a flat identifier array whose length is not the
	// total slot count of any whole number of levels.
	ErrLayout = errors.New("pyramid: identifier array does not match a level layout")

	// ErrCorrupt indicates a flat identifier array holding an invalid
	// sentinel or a duplicated identifier.
	ErrCorrupt = errors.New("pyramid: identifier array is corrupt")

	// ErrRandom indicates the random source failed.
	ErrRandom = errors.New("pyramid: random source failure")
)
