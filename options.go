package carmine

import (
	"log/slog"
	"time"

	"go.etcd.io/bbolt"
)

const (
	defaultLockTimeout = 10 * time.Second
	defaultMmapSize    = 256 * 1024 * 1024
	testingMmapSize    = 5 * 1024 * 1024
)

// Options configure a store. The zero value is usable.
type Options struct {
	// Logger receives lifecycle events and, with Verbose, every table
	// operation at debug level. Nil disables logging.
	Logger  *slog.Logger
	Verbose bool

	// IsTesting trades durability for speed and captures stacks of open
	// transactions for DescribeOpenTxns.
	IsTesting bool

	// MmapSize is the initial size of Bolt's memory map, which acts as its
	// page cache. Zero picks a default.
	MmapSize int

	// LockTimeout bounds the wait for Bolt's file lock. Zero means 10 seconds;
	// negative means wait forever.
	LockTimeout time.Duration

	// RepairCallback, if set, makes opening run an integrity check first and
	// is called when that check fails. See RepairSession.
	RepairCallback func(rs *RepairSession)
}

func (opt Options) boltOptions(readOnly bool) bbolt.Options {
	bopt := *bbolt.DefaultOptions
	switch {
	case opt.LockTimeout == 0:
		bopt.Timeout = defaultLockTimeout
	case opt.LockTimeout > 0:
		bopt.Timeout = opt.LockTimeout
	}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = testingMmapSize
	} else {
		bopt.InitialMmapSize = defaultMmapSize
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}
	bopt.ReadOnly = readOnly
	return bopt
}
