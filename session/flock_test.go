//go:build unix

package session

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SecondSessionLocked(t *testing.T) {
	path := dataFile(t, patterned(4096))
	s := open(t, path, nil)

	_, err := Open(path, os.O_RDWR, testKey, nil)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, s.Close())
	s2, err := Open(path, os.O_RDWR, testKey, nil)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestOpen_LockedDuringCreation(t *testing.T) {
	path := dataFile(t, patterned(4096))
	s := open(t, path, nil)
	defer s.Close()

	// The new metadata file belongs to the first session and survives the
	// refused open.
	_, err := Open(path, os.O_RDWR, testKey, nil)
	require.ErrorIs(t, err, ErrLocked)
	_, err = os.Stat(s.MetaPath())
	assert.NoError(t, err)
}

func TestOpen_NoLock(t *testing.T) {
	path := dataFile(t, patterned(4096))
	s := open(t, path, nil)
	require.NoError(t, s.Close())

	a, err := Open(path, os.O_RDWR, testKey, &Options{NoLock: true})
	require.NoError(t, err)
	b, err := Open(path, os.O_RDWR, testKey, &Options{NoLock: true})
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
}
