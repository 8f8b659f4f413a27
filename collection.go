package carmine

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const schemaBucketSuffix = internalSep + internalPrefix + "schema"

var schemaRecordKey = []byte("kinds")

// Collection is a named, typed reference to a table inside a store. It holds
// no data and no resources, so it can be copied and shared freely.
type Collection struct {
	name      string
	keyKind   KeyKind
	valueKind ValueKind
}

// NewCollection validates name and the kind pair.
func NewCollection(name string, keyKind KeyKind, valueKind ValueKind) (Collection, error) {
	if err := ValidateCollectionName(name); err != nil {
		return Collection{}, err
	}
	if !keyKind.Valid() {
		return Collection{}, validationErrf("collection name", name, "unknown key kind %v", keyKind)
	}
	if !valueKind.Valid() {
		return Collection{}, validationErrf("collection name", name, "unknown value kind %v", valueKind)
	}
	return Collection{name, keyKind, valueKind}, nil
}

// MustCollection is like NewCollection but panics on error. Handy for
// package-level declarations.
func MustCollection(name string, keyKind KeyKind, valueKind ValueKind) Collection {
	return must(NewCollection(name, keyKind, valueKind))
}

func (c Collection) Name() string         { return c.name }
func (c Collection) KeyKind() KeyKind     { return c.keyKind }
func (c Collection) ValueKind() ValueKind { return c.valueKind }

func (c Collection) String() string {
	return fmt.Sprintf("%s(%v => %v)", c.name, c.keyKind, c.valueKind)
}

// Rename points the collection at a different table. Existing data is not
// moved.
func (c *Collection) Rename(newName string) error {
	if err := ValidateCollectionName(newName); err != nil {
		return err
	}
	c.name = newName
	return nil
}

func (c Collection) valid() error {
	if c.name == "" {
		return validationErrf("collection name", "", "zero Collection, use NewCollection")
	}
	return nil
}

func schemaBucketName(name string) string {
	return name + schemaBucketSuffix
}

type tableSchema struct {
	KeyKind   KeyKind   `msgpack:"k"`
	ValueKind ValueKind `msgpack:"v"`
}

func (c Collection) schema() tableSchema {
	return tableSchema{KeyKind: c.keyKind, ValueKind: c.valueKind}
}

// compatible reports whether data written by a collection declared as s can
// be read and written as c.
func (c Collection) compatible(s tableSchema) bool {
	return s.KeyKind == c.keyKind && s.ValueKind.Valid() && s.ValueKind.shape() == c.valueKind.shape()
}

func (c Collection) checkSchema(meta StorageBucket) error {
	if meta == nil {
		// created outside of carmine, adopt as is
		return nil
	}
	raw := meta.Get(schemaRecordKey)
	if raw == nil {
		return nil
	}
	var s tableSchema
	if err := msgpack.Unmarshal(raw, &s); err != nil {
		return engineErr("open", c.name, dataErrf(raw, "cannot decode table schema: %v", err))
	}
	if !s.KeyKind.Valid() || !c.compatible(s) {
		return engineErr("open", c.name, fmt.Errorf("%w: stored as %v => %v, declared as %v => %v", ErrTableTypeMismatch, s.KeyKind, s.ValueKind, c.keyKind, c.valueKind))
	}
	return nil
}

// collectionFromSchema reconstructs a collection from its schema bucket.
func (tx *txn) collectionFromSchema(name, bucketName string) (Collection, bool, error) {
	raw := tx.stx.Bucket(bucketName).Get(schemaRecordKey)
	if raw == nil {
		return Collection{}, false, nil
	}
	var s tableSchema
	if err := msgpack.Unmarshal(raw, &s); err != nil {
		return Collection{}, false, engineErr("list", name, dataErrf(raw, "cannot decode table schema: %v", err))
	}
	c, err := NewCollection(name, s.KeyKind, s.ValueKind)
	if err != nil {
		return Collection{}, false, engineErr("list", name, err)
	}
	return c, true, nil
}

// Write opens the collection's table for reading and writing, creating it if
// needed. It fails with ErrTableTypeMismatch if the table already exists with
// a different physical layout.
func (c Collection) Write(tx *WriteTx) (*TableHandle, error) {
	if err := c.valid(); err != nil {
		return nil, err
	}
	if err := tx.check(); err != nil {
		return nil, err
	}

	data := tx.stx.Bucket(c.name)
	meta := tx.stx.Bucket(schemaBucketName(c.name))
	if err := c.checkSchema(meta); err != nil {
		return nil, err
	}
	if meta == nil {
		var err error
		meta, err = tx.stx.CreateBucket(schemaBucketName(c.name))
		if err != nil {
			return nil, engineErr("create", c.name, err)
		}
		raw, err := msgpack.Marshal(c.schema())
		if err != nil {
			return nil, engineErr("create", c.name, err)
		}
		if err := meta.Put(schemaRecordKey, raw); err != nil {
			return nil, engineErr("create", c.name, err)
		}
		tx.markWritten()
	}
	if data == nil {
		var err error
		data, err = tx.stx.CreateBucket(c.name)
		if err != nil {
			return nil, engineErr("create", c.name, err)
		}
		tx.markWritten()
		tx.db.logOp("CREATE", c.name, nil, nil)
	}

	return &TableHandle{
		tableView: tableView{
			coll:   c,
			shape:  shapeOf(c.keyKind, c.valueKind),
			tx:     &tx.txn,
			bucket: data,
		},
		wtx: tx,
	}, nil
}

// Read opens the collection's table for reading. If no write transaction has
// ever created the table, the error satisfies IsTableNotFound.
func (c Collection) Read(tx *ReadTx) (*ReadOnlyTableHandle, error) {
	if err := c.valid(); err != nil {
		return nil, err
	}
	if err := tx.check(); err != nil {
		return nil, err
	}

	data := tx.stx.Bucket(c.name)
	if data == nil {
		return nil, engineErr("open", c.name, ErrTableNotFound)
	}
	if err := c.checkSchema(tx.stx.Bucket(schemaBucketName(c.name))); err != nil {
		return nil, err
	}
	return &ReadOnlyTableHandle{
		tableView: tableView{
			coll:   c,
			shape:  shapeOf(c.keyKind, c.valueKind),
			tx:     &tx.txn,
			bucket: data,
		},
	}, nil
}

// Drop deletes the collection's table and everything in it.
func (c Collection) Drop(tx *WriteTx) error {
	if err := c.valid(); err != nil {
		return err
	}
	if err := tx.check(); err != nil {
		return err
	}
	err := tx.stx.DeleteBucket(c.name)
	if errors.Is(err, ErrBucketNotFound) {
		return engineErr("drop", c.name, ErrTableNotFound)
	} else if err != nil {
		return engineErr("drop", c.name, err)
	}
	err = tx.stx.DeleteBucket(schemaBucketName(c.name))
	if err != nil && !errors.Is(err, ErrBucketNotFound) {
		return engineErr("drop", c.name, err)
	}
	tx.markWritten()
	tx.db.logOp("DROP", c.name, nil, nil)
	return nil
}

// WriteOne inserts a single entry in its own transaction.
func (c Collection) WriteOne(store Writable, key Key, value Value) error {
	return c.WriteMany(store, []Key{key}, []Value{value})
}

// WriteMany inserts keys[i] => values[i] in a single transaction. If the
// slices differ in length, the extra elements of the longer one are ignored.
// Any failure rolls back the whole batch.
func (c Collection) WriteMany(store Writable, keys []Key, values []Value) error {
	return store.Update(func(tx *WriteTx) error {
		t, err := c.Write(tx)
		if err != nil {
			return err
		}
		for i := 0; i < min(len(keys), len(values)); i++ {
			if err := t.Insert(keys[i], values[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteOne removes key in its own transaction and reports whether it was
// present.
func (c Collection) DeleteOne(store Writable, key Key) (bool, error) {
	n, err := c.DeleteMany(store, []Key{key})
	return n > 0, err
}

// DeleteMany removes keys in a single transaction and returns how many of
// them were present.
func (c Collection) DeleteMany(store Writable, keys []Key) (int, error) {
	if err := c.valid(); err != nil {
		return 0, err
	}
	var removed int
	err := store.Update(func(tx *WriteTx) error {
		removed = 0
		if tx.stx.Bucket(c.name) == nil {
			return nil
		}
		t, err := c.Write(tx)
		if err != nil {
			return err
		}
		for _, key := range keys {
			found, err := t.Remove(key)
			if err != nil {
				return err
			}
			if found {
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ReadOne looks up key in a fresh read transaction. It returns nil if the key
// is absent, and an IsTableNotFound error if the table doesn't exist yet.
func (c Collection) ReadOne(store Readable, key Key) (Value, error) {
	var result Value
	err := store.View(func(tx *ReadTx) error {
		t, err := c.Read(tx)
		if err != nil {
			return err
		}
		result, err = t.Get(key)
		return err
	})
	return result, err
}
