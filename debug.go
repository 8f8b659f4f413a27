package carmine

import (
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpTableHeaders = DumpFlags(1 << iota)
	DumpRows

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var dumpSep = strings.Repeat("=", 80)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders the contents of every collection visible to tx, for debugging
// and tests.
func (tx *ReadTx) Dump(f DumpFlags) string {
	var buf strings.Builder
	var colls []Collection
	err := tx.stx.ForEachBucket(func(bucketName string) error {
		name, ok := strings.CutSuffix(bucketName, schemaBucketSuffix)
		if !ok {
			return nil
		}
		c, ok, err := tx.collectionFromSchema(name, bucketName)
		if err != nil {
			fmt.Fprintf(&buf, "%s ** ERROR: %v\n", name, err)
		} else if ok {
			colls = append(colls, c)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(&buf, "** ERROR: %v\n", err)
	}
	for _, c := range colls {
		tx.dumpCollection(&buf, f, c)
	}
	return buf.String()
}

func (tx *ReadTx) dumpCollection(w *strings.Builder, f DumpFlags, c Collection) {
	t, err := c.Read(tx)
	if err != nil {
		fmt.Fprintf(w, "%s ** ERROR: %v\n", c.name, err)
		return
	}
	if f.Contains(DumpTableHeaders) {
		n, _ := t.Len()
		fmt.Fprintln(w, dumpSep)
		fmt.Fprintf(w, "%s (%v => %v, %d rows)\n", c.name, c.keyKind, c.valueKind, n)
	}
	if f.Contains(DumpRows) {
		var rowPos int
		err := t.Scan(nil, func(k Key, v Value) bool {
			rowPos++
			fmt.Fprintf(w, "%s.%d: %s => %s\n", c.name, rowPos, loggableKey(k), loggableValue(v))
			return true
		})
		if err != nil {
			fmt.Fprintf(w, "%s ** ERROR: %v\n", c.name, err)
		}
	}
}
