package carmine

import (
	"bytes"
	"unicode/utf8"
)

// tableView holds the read operations shared by both handle types.
type tableView struct {
	coll   Collection
	shape  physicalShape
	tx     *txn
	bucket StorageBucket
}

// ReadOnlyTableHandle reads one collection inside a ReadTx.
type ReadOnlyTableHandle struct {
	tableView
}

// TableHandle reads and writes one collection inside a WriteTx.
type TableHandle struct {
	tableView
	wtx *WriteTx
}

// Collection returns the collection this handle was opened for.
func (t *tableView) Collection() Collection {
	return t.coll
}

func (t *tableView) encodeKey(key Key) ([]byte, error) {
	if key == nil {
		return nil, validationErrf("key", "", "key required")
	}
	raw, ok := t.shape.encodeKey(key)
	if !ok {
		return nil, &KeyKindMismatchError{Table: t.coll.name, Expected: t.coll.keyKind, Actual: key.KeyKind()}
	}
	return raw, nil
}

// Get returns the value stored under key, or nil if there is none.
func (t *tableView) Get(key Key) (Value, error) {
	if err := t.tx.check(); err != nil {
		return nil, err
	}
	rawKey, err := t.encodeKey(key)
	if err != nil {
		return nil, err
	}
	raw := t.bucket.Get(rawKey)
	if raw == nil {
		t.tx.db.logOp("GET.NOTFOUND", t.coll.name, key, nil)
		return nil, nil
	}
	v, err := t.shape.decodeValue(raw, t.coll.valueKind)
	if err != nil {
		return nil, engineErr("get", t.coll.name, err)
	}
	t.tx.db.logOp("GET", t.coll.name, key, v)
	return v, nil
}

// Has reports whether key is present.
func (t *tableView) Has(key Key) (bool, error) {
	if err := t.tx.check(); err != nil {
		return false, err
	}
	rawKey, err := t.encodeKey(key)
	if err != nil {
		return false, err
	}
	return t.bucket.Get(rawKey) != nil, nil
}

// Len returns the number of entries in the table.
func (t *tableView) Len() (int, error) {
	if err := t.tx.check(); err != nil {
		return 0, err
	}
	return t.bucket.KeyCount(), nil
}

// Scan calls f for every entry with a key greater than or equal to from, in
// ascending key order, until f returns false. A nil from starts at the first
// key.
func (t *tableView) Scan(from Key, f func(key Key, value Value) bool) error {
	if err := t.tx.check(); err != nil {
		return err
	}
	c := t.bucket.Cursor()
	var k, v []byte
	if from == nil {
		k, v = c.First()
	} else {
		rawFrom, err := t.encodeKey(from)
		if err != nil {
			return err
		}
		k, v = c.Seek(rawFrom)
	}
	return t.walk(c, k, v, c.Next, f)
}

// ScanReverse is like Scan, but walks keys less than or equal to from in
// descending order. A nil from starts at the last key.
func (t *tableView) ScanReverse(from Key, f func(key Key, value Value) bool) error {
	if err := t.tx.check(); err != nil {
		return err
	}
	c := t.bucket.Cursor()
	var k, v []byte
	if from == nil {
		k, v = c.Last()
	} else {
		rawFrom, err := t.encodeKey(from)
		if err != nil {
			return err
		}
		k, v = c.Seek(rawFrom)
		if k == nil {
			k, v = c.Last()
		} else if !bytes.Equal(k, rawFrom) {
			k, v = c.Prev()
		}
	}
	return t.walk(c, k, v, c.Prev, f)
}

func (t *tableView) walk(c StorageCursor, k, v []byte, advance func() ([]byte, []byte), f func(key Key, value Value) bool) error {
	for ; k != nil; k, v = advance() {
		key, err := t.shape.decodeKey(k)
		if err != nil {
			return engineErr("scan", t.coll.name, err)
		}
		value, err := t.shape.decodeValue(v, t.coll.valueKind)
		if err != nil {
			return engineErr("scan", t.coll.name, err)
		}
		if !f(key, value) {
			break
		}
		// f may have closed the tx
		if err := t.tx.check(); err != nil {
			return err
		}
	}
	return nil
}

// Insert stores value under key, replacing any previous value.
func (t *TableHandle) Insert(key Key, value Value) error {
	if err := t.tx.check(); err != nil {
		return err
	}
	if key == nil {
		return validationErrf("key", "", "key required")
	}
	if value == nil {
		return validationErrf("value", "", "value required")
	}
	rawKey, err := t.encodeKey(key)
	if err != nil {
		return err
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	rawValue, ok := t.shape.encodeValue(value)
	if !ok {
		return &ValueKindMismatchError{Table: t.coll.name, Expected: t.coll.valueKind, Actual: value.ValueKind()}
	}
	if text, ok := value.AsText(); ok && !utf8.ValidString(text) {
		return validationErrf("value", text, "must be valid UTF-8")
	}
	if err := t.bucket.Put(rawKey, rawValue); err != nil {
		return engineErr("insert", t.coll.name, err)
	}
	t.wtx.markWritten()
	t.tx.db.stats.puts.Add(1)
	t.tx.db.logOp("PUT", t.coll.name, key, value)
	t.wtx.notify(Change{Collection: t.coll, Op: OpPut, Key: key, Value: value})
	return nil
}

// Remove deletes key and reports whether it was present.
func (t *TableHandle) Remove(key Key) (bool, error) {
	if err := t.tx.check(); err != nil {
		return false, err
	}
	rawKey, err := t.encodeKey(key)
	if err != nil {
		return false, err
	}
	if t.bucket.Get(rawKey) == nil {
		t.tx.db.logOp("DELETE.NOOP", t.coll.name, key, nil)
		return false, nil
	}
	if err := t.bucket.Delete(rawKey); err != nil {
		return false, engineErr("remove", t.coll.name, err)
	}
	t.wtx.markWritten()
	t.tx.db.stats.deletes.Add(1)
	t.tx.db.logOp("DELETE", t.coll.name, key, nil)
	t.wtx.notify(Change{Collection: t.coll, Op: OpDelete, Key: key})
	return true, nil
}
