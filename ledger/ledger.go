// Package ledger keeps a persistent journal of the nonces used to seal each
// metadata file, so that a nonce is never used twice under the same key.
package ledger

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketNonces = []byte("nonces")
	bucketLatest = []byte("latest")
)

// Entry describes one sealing event of a metadata file.
type Entry struct {
	Nonce    []byte
	Slots    int // identifier slots sealed
	Sequence uint64
	Recorded time.Time
}

// Ledger wraps a bbolt database of nonce entries keyed by metadata file.
type Ledger struct {
	db *bbolt.DB
}

// Open opens or creates the ledger database at dbPath.
// The parent directory is created if it does not exist.
func Open(dbPath string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("ledger: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketNonces, bucketLatest} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("ledger: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error { return l.db.Close() }

// fileKey normalizes a metadata path so that different spellings of the
// same file share one history.
func fileKey(file string) ([]byte, error) {
	if file == "" {
		return nil, fmt.Errorf("%w: empty file name", ErrInvalidParam)
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("ledger: resolve %q: %w", file, err)
	}
	return []byte(abs), nil
}

func seqKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}

// Record stores nonce as used for file. A nonce already recorded for file
// yields ErrNonceReuse and nothing is written.
func (l *Ledger) Record(file string, nonce []byte, slots int) (*Entry, error) {
	key, err := fileKey(file)
	if err != nil {
		return nil, err
	}
	if len(nonce) == 0 {
		return nil, fmt.Errorf("%w: empty nonce", ErrInvalidParam)
	}

	var entry *Entry
	err = l.db.Update(func(tx *bbolt.Tx) error {
		fb, err := tx.Bucket(bucketNonces).CreateBucketIfNotExists(key)
		if err != nil {
			return fmt.Errorf("ledger: create file bucket: %w", err)
		}
		if fb.Get(nonce) != nil {
			return ErrNonceReuse
		}
		seq, err := fb.NextSequence()
		if err != nil {
			return fmt.Errorf("ledger: next sequence: %w", err)
		}
		entry = &Entry{
			Nonce:    append([]byte(nil), nonce...),
			Slots:    slots,
			Sequence: seq,
			Recorded: time.Now().UTC(),
		}
		data, err := encodeGob(entry)
		if err != nil {
			return fmt.Errorf("ledger: encode entry: %w", err)
		}
		if err := fb.Put(entry.Nonce, data); err != nil {
			return fmt.Errorf("ledger: put entry: %w", err)
		}
		if err := tx.Bucket(bucketLatest).Put(key, seqKey(seq)); err != nil {
			return fmt.Errorf("ledger: put latest: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Seen reports whether nonce has been recorded for file.
func (l *Ledger) Seen(file string, nonce []byte) (bool, error) {
	key, err := fileKey(file)
	if err != nil {
		return false, err
	}
	seen := false
	err = l.db.View(func(tx *bbolt.Tx) error {
		if fb := tx.Bucket(bucketNonces).Bucket(key); fb != nil {
			seen = fb.Get(nonce) != nil
		}
		return nil
	})
	return seen, err
}

// Count returns how many nonces have been recorded for file.
func (l *Ledger) Count(file string) (int, error) {
	key, err := fileKey(file)
	if err != nil {
		return 0, err
	}
	n := 0
	err = l.db.View(func(tx *bbolt.Tx) error {
		if fb := tx.Bucket(bucketNonces).Bucket(key); fb != nil {
			n = fb.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// Latest returns the most recent entry recorded for file.
func (l *Ledger) Latest(file string) (*Entry, error) {
	key, err := fileKey(file)
	if err != nil {
		return nil, err
	}
	var entry Entry
	err = l.db.View(func(tx *bbolt.Tx) error {
		seq := tx.Bucket(bucketLatest).Get(key)
		fb := tx.Bucket(bucketNonces).Bucket(key)
		if seq == nil || fb == nil {
			return ErrNotFound
		}
		want := binary.BigEndian.Uint64(seq)
		return fb.ForEach(func(_, v []byte) error {
			var e Entry
			if err := decodeGob(v, &e); err != nil {
				return fmt.Errorf("ledger: decode entry: %w", err)
			}
			if e.Sequence == want {
				entry = e
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if entry.Nonce == nil {
		return nil, ErrNotFound
	}
	return &entry, nil
}

// Forget removes every entry recorded for file.
func (l *Ledger) Forget(file string) error {
	key, err := fileKey(file)
	if err != nil {
		return err
	}
	return l.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketNonces).Bucket(key) != nil {
			if err := tx.Bucket(bucketNonces).DeleteBucket(key); err != nil {
				return fmt.Errorf("ledger: delete file bucket: %w", err)
			}
		}
		return tx.Bucket(bucketLatest).Delete(key)
	})
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
