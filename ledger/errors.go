package ledger

import "errors"

var (
	// ErrNonceReuse indicates a nonce already recorded for the same metadata file.
	ErrNonceReuse = errors.New("ledger: nonce already used")

	// ErrInvalidParam indicates an empty file name or nonce.
	ErrInvalidParam = errors.New("ledger: invalid parameter")

	// ErrNotFound indicates no nonce has been recorded for the file.
	ErrNotFound = errors.New("ledger: no entries for file")
)
