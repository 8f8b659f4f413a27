package carmine

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Builder collects Options for one of its terminal calls: Create, Open,
// OpenReadOnly, CreateFile or CreateWithBackend. Each of them validates the
// store name again.
type Builder struct {
	name string
	opt  Options
}

func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// SetCacheSize sets the size in bytes of the engine's page cache.
func (b *Builder) SetCacheSize(bytes int) *Builder {
	b.opt.MmapSize = bytes
	return b
}

func (b *Builder) SetRepairCallback(f func(rs *RepairSession)) *Builder {
	b.opt.RepairCallback = f
	return b
}

func (b *Builder) SetLogger(logger *slog.Logger) *Builder {
	b.opt.Logger = logger
	return b
}

func (b *Builder) SetVerbose(verbose bool) *Builder {
	b.opt.Verbose = verbose
	return b
}

func (b *Builder) SetTesting(testing bool) *Builder {
	b.opt.IsTesting = testing
	return b
}

func (b *Builder) SetLockTimeout(d time.Duration) *Builder {
	b.opt.LockTimeout = d
	return b
}

// Options returns the configuration collected so far.
func (b *Builder) Options() Options {
	return b.opt
}

func (b *Builder) Create(path string) (*Store, error) {
	return Create(b.name, path, b.opt)
}

func (b *Builder) Open(path string) (*Store, error) {
	return Open(b.name, path, b.opt)
}

func (b *Builder) OpenReadOnly(path string) (*ReadOnlyStore, error) {
	return OpenReadOnly(b.name, path, b.opt)
}

func (b *Builder) CreateFile(f *os.File) (*Store, error) {
	return CreateFile(b.name, f, b.opt)
}

func (b *Builder) CreateWithBackend(storage Storage) (*Store, error) {
	return CreateWithStorage(b.name, storage, b.opt)
}

// RepairSession is handed to the repair callback when the integrity check run
// while opening a store fails.
type RepairSession struct {
	err     error
	aborted bool
}

// Err returns the integrity check failure.
func (rs *RepairSession) Err() error {
	return rs.err
}

// Abort makes the open fail with ErrRepairAborted instead of repairing.
func (rs *RepairSession) Abort() {
	rs.aborted = true
}

func (rs *RepairSession) Aborted() bool {
	return rs.aborted
}

// repairIfNeeded checks the storage and, if it is damaged, lets cb decide
// whether to rebuild it by compaction. Read-only stores cannot be repaired.
func (db *engine) repairIfNeeded(cb func(rs *RepairSession), canRepair bool) error {
	if cb == nil {
		return nil
	}
	checkErr := db.storage.Check()
	if checkErr == nil {
		return nil
	}
	db.logError("integrity check failed", checkErr)

	rs := &RepairSession{err: checkErr}
	cb(rs)
	if rs.aborted {
		return engineErr("repair", "", fmt.Errorf("%w: %w", ErrRepairAborted, checkErr))
	}
	if !canRepair {
		return engineErr("repair", "", fmt.Errorf("read-only store: %w", checkErr))
	}

	start := time.Now()
	if err := db.storage.Compact(); err != nil {
		return engineErr("repair", "", err)
	}
	if err := db.storage.Check(); err != nil {
		return engineErr("repair", "", err)
	}
	db.logInfo("repaired", "elapsed", time.Since(start))
	return nil
}
