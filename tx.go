package carmine

import (
	"fmt"
	"runtime/debug"
	"time"
)

type txn struct {
	db        *engine
	stx       StorageTx
	closed    bool
	startTime time.Time
	stack     string
}

// begin registers tx and starts its engine transaction.
func (db *engine) begin(tx *txn, writable bool) error {
	tx.db = db
	tx.startTime = time.Now()
	if db.trackStacks {
		tx.stack = string(debug.Stack())
	}
	if err := db.gate.enter(tx); err != nil {
		return engineErr("begin", "", err)
	}
	stx, err := db.storage.BeginTx(writable)
	if err != nil {
		db.gate.leave(tx)
		return engineErr("begin", "", err)
	}
	tx.stx = stx
	if writable {
		db.stats.writers.Add(1)
	} else {
		db.stats.readers.Add(1)
	}
	return nil
}

func (tx *txn) check() error {
	if tx.closed {
		return ErrTxClosed
	}
	return nil
}

func (tx *txn) end() {
	tx.closed = true
	tx.db.gate.leave(tx)
	if tx.stx.Writable() {
		tx.db.stats.writers.Add(-1)
	} else {
		tx.db.stats.readers.Add(-1)
	}
}

func (tx *txn) rollback() {
	if tx.closed {
		return
	}
	err := tx.stx.Rollback()
	tx.end()
	if err != nil {
		tx.db.logError("rollback failed", err)
	}
}

// ReadTx is a snapshot of the store as of BeginRead. Table handles obtained
// from it stop working once it is closed.
type ReadTx struct {
	txn
}

// Close releases the snapshot. Calling Close more than once is fine.
func (tx *ReadTx) Close() {
	tx.rollback()
}

// WriteTx is the store's single writable transaction. Nothing it does is
// visible to other transactions until Commit succeeds.
type WriteTx struct {
	txn
	written bool

	changeHandler func(chg Change)
}

// Commit makes the transaction's changes durable and visible. The transaction
// is closed afterwards whether or not the commit succeeds.
func (tx *WriteTx) Commit() error {
	if err := tx.check(); err != nil {
		return err
	}
	err := tx.stx.Commit()
	if err != nil {
		// Bolt leaves the tx open when commit fails
		if rerr := tx.stx.Rollback(); rerr != nil {
			tx.db.logError("rollback after failed commit", rerr)
		}
	}
	tx.end()
	if err != nil {
		return engineErr("commit", "", err)
	}
	if tx.written {
		tx.db.stats.commits.Add(1)
	}
	return nil
}

// Close aborts the transaction unless it has been committed. Calling Close
// after Commit is fine, so the usual pattern is:
//
//	tx, err := store.BeginWrite()
//	if err != nil {
//		return err
//	}
//	defer tx.Close()
//	...
//	return tx.Commit()
func (tx *WriteTx) Close() {
	tx.rollback()
}

func (tx *WriteTx) markWritten() {
	tx.written = true
}

type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

func safelyCall[T any](fn func(T) error, arg T) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return fn(arg)
}
