package carmine

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Readable is the part of a store's API that never modifies data. Both
// *Store and *ReadOnlyStore implement it.
type Readable interface {
	Name() string
	BeginRead() (*ReadTx, error)
	View(f func(tx *ReadTx) error) error
	Collection(name string, keyKind KeyKind, valueKind ValueKind) (Collection, error)
	Collections() ([]Collection, error)
}

// Writable is the mutating part of a store's API. Only *Store implements it.
type Writable interface {
	BeginWrite() (*WriteTx, error)
	Update(f func(tx *WriteTx) error) error
	Compact() error
	CheckIntegrity() error
}

var (
	_ Readable = (*Store)(nil)
	_ Writable = (*Store)(nil)
	_ Readable = (*ReadOnlyStore)(nil)
)

// engine is the state shared by Store and ReadOnlyStore.
type engine struct {
	name        atomic.Pointer[string]
	storage     Storage
	logger      *slog.Logger
	verbose     bool
	trackStacks bool
	gate        gate
	stats       counters
}

// Store is an open read-write connection to one database.
type Store struct {
	engine
}

// ReadOnlyStore is an open connection that can only begin read transactions.
type ReadOnlyStore struct {
	engine
}

type openMode int

const (
	modeCreate openMode = iota
	modeOpen
	modeReadOnly
)

func (m openMode) String() string {
	return [...]string{"create", "open", "open read-only"}[m]
}

// Create opens the database at path, initializing a new one if the file does
// not exist. Pass InMemory as the path for a transient store.
func Create(name, path string, opt Options) (*Store, error) {
	if err := ValidateStoreName(name); err != nil {
		return nil, err
	}
	storage, err := openStorage(path, modeCreate, opt)
	if err != nil {
		return nil, err
	}
	return newStore(name, storage, opt, path)
}

// Open opens an existing database. If path does not exist, the error wraps
// fs.ErrNotExist.
func Open(name, path string, opt Options) (*Store, error) {
	if err := ValidateStoreName(name); err != nil {
		return nil, err
	}
	storage, err := openStorage(path, modeOpen, opt)
	if err != nil {
		return nil, err
	}
	return newStore(name, storage, opt, path)
}

// OpenReadOnly opens an existing database without write access. Other
// processes may have it open read-only at the same time.
func OpenReadOnly(name, path string, opt Options) (*ReadOnlyStore, error) {
	if err := ValidateStoreName(name); err != nil {
		return nil, err
	}
	storage, err := openStorage(path, modeReadOnly, opt)
	if err != nil {
		return nil, err
	}
	s := &ReadOnlyStore{}
	s.init(name, storage, opt)
	if err := s.repairIfNeeded(opt.RepairCallback, false); err != nil {
		storage.Close()
		return nil, err
	}
	s.logInfo("opened", "path", path, "mode", modeReadOnly)
	return s, nil
}

// CreateFile is like Create, but uses an already open file. The store takes
// ownership of f and closes it.
func CreateFile(name string, f *os.File, opt Options) (*Store, error) {
	defer f.Close()
	if err := ValidateStoreName(name); err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		return nil, engineErr("create", "", err)
	}
	if !fi.Mode().IsRegular() {
		return nil, engineErr("create", "", fmt.Errorf("%s is not a regular file", f.Name()))
	}
	storage, err := openStorage(f.Name(), modeCreate, opt)
	if err != nil {
		return nil, err
	}
	return newStore(name, storage, opt, f.Name())
}

// CreateWithStorage wraps a caller-supplied engine. The store owns storage
// and closes it in Close.
func CreateWithStorage(name string, storage Storage, opt Options) (*Store, error) {
	if err := ValidateStoreName(name); err != nil {
		return nil, err
	}
	if storage == nil {
		return nil, engineErr("create", "", errors.New("nil storage"))
	}
	return newStore(name, storage, opt, fmt.Sprintf("%T", storage))
}

func openStorage(path string, mode openMode, opt Options) (Storage, error) {
	if path == InMemory {
		if mode != modeCreate {
			return nil, engineErr(mode.String(), "", fmt.Errorf("%s: %w", path, fs.ErrNotExist))
		}
		return NewMemoryStorage(), nil
	}
	s, err := openBoltStorage(path, mode != modeCreate, opt.boltOptions(mode == modeReadOnly))
	if err != nil {
		return nil, engineErr(mode.String(), "", err)
	}
	return s, nil
}

func newStore(name string, storage Storage, opt Options, location string) (*Store, error) {
	s := &Store{}
	s.init(name, storage, opt)
	if err := s.repairIfNeeded(opt.RepairCallback, true); err != nil {
		storage.Close()
		return nil, err
	}
	s.logInfo("opened", "path", location)
	return s, nil
}

func (db *engine) init(name string, storage Storage, opt Options) {
	db.name.Store(&name)
	db.storage = storage
	db.logger = opt.Logger
	db.verbose = opt.Verbose
	db.trackStacks = opt.IsTesting || opt.Verbose
}

// Name returns the store's display name.
func (db *engine) Name() string {
	return *db.name.Load()
}

// Rename changes the store's display name. Stored data is unaffected.
func (db *engine) Rename(name string) error {
	if err := ValidateStoreName(name); err != nil {
		return err
	}
	db.name.Store(&name)
	return nil
}

// Collection returns a typed reference to a collection of this store. It only
// validates its arguments; the table is created by the first Write.
func (db *engine) Collection(name string, keyKind KeyKind, valueKind ValueKind) (Collection, error) {
	return NewCollection(name, keyKind, valueKind)
}

// Collections lists every collection that has been written to, in name order.
func (db *engine) Collections() ([]Collection, error) {
	var result []Collection
	err := db.View(func(tx *ReadTx) error {
		return tx.stx.ForEachBucket(func(bucketName string) error {
			name, ok := strings.CutSuffix(bucketName, schemaBucketSuffix)
			if !ok {
				return nil
			}
			c, ok, err := tx.collectionFromSchema(name, bucketName)
			if err != nil || !ok {
				return err
			}
			result = append(result, c)
			return nil
		})
	})
	return result, err
}

// BeginRead starts a read transaction. The caller must Close it.
func (db *engine) BeginRead() (*ReadTx, error) {
	tx := &ReadTx{}
	if err := db.begin(&tx.txn, false); err != nil {
		return nil, err
	}
	return tx, nil
}

// View runs f inside a read transaction. A panic in f is returned as an
// error.
func (db *engine) View(f func(tx *ReadTx) error) error {
	tx, err := db.BeginRead()
	if err != nil {
		return err
	}
	defer tx.Close()
	return safelyCall(f, tx)
}

// CheckIntegrity asks the engine to verify the stored data. Corruption is
// reported as an error wrapping ErrCorrupted.
func (db *engine) CheckIntegrity() error {
	marker := &txn{db: db, startTime: time.Now()}
	if err := db.gate.enter(marker); err != nil {
		return engineErr("check", "", err)
	}
	defer db.gate.leave(marker)

	err := db.storage.Check()
	if err != nil {
		db.logError("integrity check failed", err)
		return engineErr("check", "", err)
	}
	return nil
}

// Close closes the engine. It fails with ErrTransactionsOpen while any
// transaction is still open.
func (db *engine) Close() error {
	release, err := db.gate.exclusive("close")
	if err != nil {
		return engineErr("close", "", err)
	}
	defer release()
	if err := db.storage.Close(); err != nil {
		return engineErr("close", "", err)
	}
	db.logInfo("closed")
	return nil
}

// BeginWrite starts the write transaction, waiting for the current writer
// (if any) to finish. The caller must Commit or Close it.
func (s *Store) BeginWrite() (*WriteTx, error) {
	tx := &WriteTx{}
	if err := s.begin(&tx.txn, true); err != nil {
		return nil, err
	}
	return tx, nil
}

// Update runs f inside a write transaction and commits if f returns nil.
// An error or a panic in f rolls everything back.
func (s *Store) Update(f func(tx *WriteTx) error) error {
	tx, err := s.BeginWrite()
	if err != nil {
		return err
	}
	defer tx.Close()
	if err := safelyCall(f, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Compact reclaims unused space. It refuses to run, with ErrTransactionsOpen,
// while any transaction is open; transactions begun during compaction fail
// with ErrBusy.
func (s *Store) Compact() error {
	release, err := s.gate.exclusive("compaction")
	if err != nil {
		return engineErr("compact", "", err)
	}
	defer release()

	start := time.Now()
	before := storageSize(s.storage)
	if err := s.storage.Compact(); err != nil {
		s.logError("compaction failed", err)
		return engineErr("compact", "", err)
	}
	s.logInfo("compacted", "elapsed", time.Since(start), "before", before, "after", storageSize(s.storage))
	return nil
}

// storageSize reports the on-disk size for engines that have one, or -1.
func storageSize(storage Storage) int64 {
	if sz, ok := storage.(interface{ Size() (int64, error) }); ok {
		if n, err := sz.Size(); err == nil {
			return n
		}
	}
	return -1
}
