/*
Package carmine is a typed access layer over an embedded, transactional,
ordered key-value engine (Bolt by default).

A Store owns one engine connection. A Collection is a named, typed reference
to a table inside a store: it fixes a key kind (Text, Int64, Number, Bytes)
and a value kind (the same four plus Structured and Opaque). Inside a
transaction, a collection yields a table handle that checks every key and
value against those kinds.

	store, err := carmine.Create("orders", path, carmine.Options{})
	totals, err := store.Collection("order_totals", carmine.KeyNumber, carmine.ValueText)

	err = store.Update(func(tx *carmine.WriteTx) error {
		t, err := totals.Write(tx)
		if err != nil {
			return err
		}
		return t.Insert(carmine.NumberOf(19.99), carmine.Text("pending"))
	})

# Technical Details

**Physical shapes.**
Structured and Opaque values are stored as raw bytes, so there are 16 physical
table shapes (4 key kinds × 4 value shapes). All of them share one generic
implementation parameterized by a key codec and a value codec.

**Key encoding.**
Text and Bytes keys are stored verbatim. Int64 keys are big-endian with the
sign bit flipped. Number keys use package numkey, so that byte order matches
numeric order for floats too.

**Internal tables.**
Names containing "::" or "__" are reserved. Each collection {name} has a
companion bucket {name}::__schema holding its declared kinds (msgpack), which
is how reopening a collection with incompatible kinds is detected.

**Transactions.**
Read transactions see a snapshot fixed at BeginRead. There is at most one
write transaction at a time. Table handles stop working (ErrTxClosed) once
their transaction ends. Compaction needs the store to itself and fails with
ErrTransactionsOpen instead of waiting.
*/
package carmine
