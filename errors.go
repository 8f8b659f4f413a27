package carmine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTableNotFound is returned when reading a collection that no write
	// transaction has created yet. It is an expected condition for a freshly
	// declared collection.
	ErrTableNotFound = errors.New("table not found")

	// ErrTableTypeMismatch is returned when a collection's kinds disagree with
	// the physical table already stored under its name.
	ErrTableTypeMismatch = errors.New("table type mismatch")

	// ErrCorrupted is returned by integrity checks.
	ErrCorrupted = errors.New("storage corrupted")

	// ErrRepairAborted is returned by Open when the repair callback aborts.
	ErrRepairAborted = errors.New("repair aborted")

	// ErrTransactionsOpen is returned by maintenance operations that need
	// exclusive access to the store.
	ErrTransactionsOpen = errors.New("transactions are still open")

	// ErrBusy is returned when beginning a transaction while a maintenance
	// operation holds the store.
	ErrBusy = errors.New("store is busy with maintenance")

	// ErrTxClosed is returned when a transaction or a table handle is used
	// after the transaction has been committed or closed.
	ErrTxClosed = errors.New("transaction closed")

	// ErrStorageClosed is returned by storage backends after Close.
	ErrStorageClosed = errors.New("storage closed")

	// ErrBucketNotFound is returned by StorageTx.DeleteBucket when the bucket
	// doesn't exist.
	ErrBucketNotFound = errors.New("bucket not found")
)

// EngineError wraps any failure reported by the storage engine.
type EngineError struct {
	Op    string
	Table string
	Err   error
}

func engineErr(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if errors.As(err, &ee) && ee.Op == op && ee.Table == table {
		return err
	}
	return &EngineError{Op: op, Table: table, Err: err}
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) Error() string {
	var buf strings.Builder
	buf.WriteString("carmine: ")
	buf.WriteString(e.Op)
	if e.Table != "" {
		buf.WriteString(" ")
		buf.WriteString(e.Table)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// IsTableNotFound reports whether err says that a collection's table hasn't
// been created yet.
func IsTableNotFound(err error) bool {
	return errors.Is(err, ErrTableNotFound)
}

// ValidationError reports an invalid name or key. Validation always happens
// before the engine is touched.
type ValidationError struct {
	Subject string // "store name", "collection name", "key" or "value"
	Value   string
	Reason  string
}

func validationErrf(subject, value, format string, args ...any) error {
	return &ValidationError{subject, value, fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	const maxLen = 80
	v := e.Value
	if len(v) > maxLen {
		v = v[:maxLen] + "..."
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Subject, v, e.Reason)
}

// KeyKindMismatchError is returned when a key cannot be projected onto the
// key kind of the table it is used with.
type KeyKindMismatchError struct {
	Table    string
	Expected KeyKind
	Actual   KeyKind
}

func (e *KeyKindMismatchError) Error() string {
	return fmt.Sprintf("%s: key kind mismatch: expected %v, got %v", e.Table, e.Expected, e.Actual)
}

// ValueKindMismatchError is returned when a value cannot be projected onto the
// value kind of the table it is used with.
type ValueKindMismatchError struct {
	Table    string
	Expected ValueKind
	Actual   ValueKind
}

func (e *ValueKindMismatchError) Error() string {
	return fmt.Sprintf("%s: value kind mismatch: expected %v, got %v", e.Table, e.Expected, e.Actual)
}

// DataError reports bytes in the engine that cannot be decoded with the
// table's codecs.
type DataError struct {
	Data []byte
	Msg  string
}

func dataErrf(data []byte, format string, args ...any) error {
	return &DataError{data, fmt.Sprintf(format, args...)}
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
	}
	p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
	return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
}
