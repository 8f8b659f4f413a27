package carmine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"unsafe"

	"go.etcd.io/bbolt"
)

// compactTxMaxSize bounds the size of each transaction used while copying
// data during compaction.
const compactTxMaxSize = 64 * 1024 * 1024

type boltStorage struct {
	bdb  *bbolt.DB
	path string
	bopt bbolt.Options
}

func openBoltStorage(path string, mustExist bool, bopt bbolt.Options) (*boltStorage, error) {
	if mustExist || bopt.ReadOnly {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
	}
	bdb, err := bbolt.Open(path, 0666, &bopt)
	if err != nil {
		return nil, err
	}
	return &boltStorage{bdb: bdb, path: path, bopt: bopt}, nil
}

func (s *boltStorage) BeginTx(writable bool) (StorageTx, error) {
	btx, err := s.bdb.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &boltStorageTx{btx: btx}, nil
}

func (s *boltStorage) Close() error {
	return s.bdb.Close()
}

// Check runs Bolt's consistency check inside a read transaction and reports
// every problem found.
func (s *boltStorage) Check() error {
	return s.bdb.View(func(btx *bbolt.Tx) error {
		var errs []error
		for err := range btx.Check() {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			return fmt.Errorf("%w: %w", ErrCorrupted, errors.Join(errs...))
		}
		return nil
	})
}

// Compact copies the live data into a fresh file, replaces the original file
// with it and reopens the database.
func (s *boltStorage) Compact() error {
	if s.bopt.ReadOnly {
		return bbolt.ErrDatabaseReadOnly
	}
	tmpPath := s.path + ".compact"
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	dstOpt := s.bopt
	dst, err := bbolt.Open(tmpPath, 0666, &dstOpt)
	if err != nil {
		return err
	}
	err = bbolt.Compact(dst, s.bdb, compactTxMaxSize)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("compacting: %w", err)
	}

	if err := s.bdb.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	renameErr := os.Rename(tmpPath, s.path)
	if renameErr != nil {
		os.Remove(tmpPath)
	}
	s.bdb, err = bbolt.Open(s.path, 0666, &s.bopt)
	if err != nil {
		return fmt.Errorf("reopening after compaction: %w", err)
	}
	return renameErr
}

func (s *boltStorage) Size() (int64, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

type boltStorageTx struct {
	btx *bbolt.Tx
}

func (tx *boltStorageTx) Writable() bool { return tx.btx.Writable() }

func (tx *boltStorageTx) Bucket(name string) StorageBucket {
	b := tx.btx.Bucket(unsafeBytesFromString(name))
	if b == nil {
		return nil
	}
	return boltBucket{b: b}
}

func (tx *boltStorageTx) CreateBucket(name string) (StorageBucket, error) {
	b, err := tx.btx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, err
	}
	return boltBucket{b: b}, nil
}

func (tx *boltStorageTx) DeleteBucket(name string) error {
	err := tx.btx.DeleteBucket(unsafeBytesFromString(name))
	if err == bbolt.ErrBucketNotFound {
		return ErrBucketNotFound
	}
	return err
}

func (tx *boltStorageTx) ForEachBucket(f func(name string) error) error {
	return tx.btx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
		return f(string(name))
	})
}

func (tx *boltStorageTx) Commit() error { return tx.btx.Commit() }

func (tx *boltStorageTx) Rollback() error {
	err := tx.btx.Rollback()
	if err == bbolt.ErrTxClosed {
		return nil
	}
	return err
}

type boltBucket struct {
	b *bbolt.Bucket
}

func (b boltBucket) Get(key []byte) []byte { return b.b.Get(key) }

func (b boltBucket) Put(key, value []byte) error { return b.b.Put(key, value) }

func (b boltBucket) Delete(key []byte) error { return b.b.Delete(key) }

func (b boltBucket) Cursor() StorageCursor { return boltCursor{c: b.b.Cursor()} }

// KeyCount uses page stats for read transactions. Stats only see committed
// pages, so writable transactions count with a cursor instead.
func (b boltBucket) KeyCount() int {
	if !b.b.Tx().Writable() {
		return b.b.Stats().KeyN
	}
	var n int
	c := b.b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n
}

type boltCursor struct {
	c *bbolt.Cursor
}

func (c boltCursor) First() ([]byte, []byte) { return c.c.First() }

func (c boltCursor) Seek(seek []byte) ([]byte, []byte) { return c.c.Seek(seek) }

func (c boltCursor) Next() ([]byte, []byte) { return c.c.Next() }

func (c boltCursor) Last() ([]byte, []byte) { return c.c.Last() }

func (c boltCursor) Prev() ([]byte, []byte) { return c.c.Prev() }

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
