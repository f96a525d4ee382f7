package session

import "errors"

var (
	// ErrOpenData indicates the data file could not be opened.
	ErrOpenData = errors.New("session: open data file failed")

	// ErrOpenMeta indicates the metadata file could not be opened or created.
	ErrOpenMeta = errors.New("session: open metadata file failed")

	// ErrLocked indicates another session holds the metadata file.
	ErrLocked = errors.New("session: metadata file is locked")

	// ErrStat indicates the data file size could not be determined.
	ErrStat = errors.New("session: stat failed")

	// ErrIDRegistration indicates block ids could not be added to the chain.
	ErrIDRegistration = errors.New("session: block id registration failed")

	// ErrMetaRead indicates the metadata file could not be read in full.
	ErrMetaRead = errors.New("session: metadata read failed")

	// ErrPermission indicates the permissions of a new metadata file could
	// not be restricted.
	ErrPermission = errors.New("session: metadata permission change failed")

	// ErrInvalidArgument indicates a negative offset, a bad key or a nil
	// session.
	ErrInvalidArgument = errors.New("session: invalid argument")

	// ErrBlockFetch indicates an oblivious block fetch failed.
	ErrBlockFetch = errors.New("session: block fetch failed")

	// ErrSeek indicates an invalid seek or a failed cursor move.
	ErrSeek = errors.New("session: seek failed")

	// ErrTruncate indicates a file length change failed.
	ErrTruncate = errors.New("session: truncate failed")

	// ErrWrite indicates writing blocks back to the data file failed.
	ErrWrite = errors.New("session: write failed")

	// ErrClosed indicates use of a closed session.
	ErrClosed = errors.New("session: session is closed")

	// ErrSize indicates the sealed metadata does not have the size its
	// chain requires.
	ErrSize = errors.New("session: metadata size mismatch")

	// ErrShortWrite indicates the metadata was not written in full.
	ErrShortWrite = errors.New("session: short metadata write")

	// ErrCloseData indicates closing the data file failed.
	ErrCloseData = errors.New("session: close data file failed")

	// ErrCloseMeta indicates closing the metadata file failed.
	ErrCloseMeta = errors.New("session: close metadata file failed")
)
