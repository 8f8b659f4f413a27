package carmine

import (
	"testing"
)

func memPut(t testing.TB, s Storage, bucket string, kvs ...string) {
	t.Helper()
	tx := must(s.BeginTx(true))
	b := must(tx.CreateBucket(bucket))
	for i := 0; i+1 < len(kvs); i += 2 {
		success(t, b.Put([]byte(kvs[i]), []byte(kvs[i+1])))
	}
	success(t, tx.Commit())
}

func TestMemoryStorageSnapshots(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()
	memPut(t, s, "b", "k", "v1")

	rtx := must(s.BeginTx(false))
	memPut(t, s, "b", "k", "v2", "k2", "x")

	deepEqual(t, string(rtx.Bucket("b").Get([]byte("k"))), "v1")
	deepEqual(t, rtx.Bucket("b").KeyCount(), 1)
	success(t, rtx.Rollback())

	rtx = must(s.BeginTx(false))
	defer rtx.Rollback()
	deepEqual(t, string(rtx.Bucket("b").Get([]byte("k"))), "v2")
	deepEqual(t, rtx.Bucket("b").KeyCount(), 2)
}

func TestMemoryStorageRollback(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()
	memPut(t, s, "b", "k", "v1")

	wtx := must(s.BeginTx(true))
	success(t, wtx.Bucket("b").Put([]byte("k"), []byte("v2")))
	success(t, wtx.DeleteBucket("b"))
	success(t, wtx.Rollback())

	rtx := must(s.BeginTx(false))
	defer rtx.Rollback()
	deepEqual(t, string(rtx.Bucket("b").Get([]byte("k"))), "v1")
}

func TestMemoryStorageCursor(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()
	memPut(t, s, "b", "c", "3", "a", "1", "b", "2", "d", "")

	tx := must(s.BeginTx(false))
	defer tx.Rollback()
	c := tx.Bucket("b").Cursor()

	var keys []string
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, string(k))
	}
	deepEqual(t, keys, []string{"a", "b", "c", "d"})

	k, v := c.Seek([]byte("bb"))
	deepEqual(t, string(k), "c")
	deepEqual(t, string(v), "3")

	_, v = c.Seek([]byte("d"))
	if v == nil {
		t.Errorf("** empty value came back as nil")
	}
	k, _ = c.Next()
	if k != nil {
		t.Errorf("** got %q past the end", k)
	}

	keys = nil
	for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
		keys = append(keys, string(k))
	}
	deepEqual(t, keys, []string{"d", "c", "b", "a"})
}

func TestMemoryStorageCheckDetectsCorruption(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()
	memPut(t, s, "b", "k1", "v1", "k2", "v2")
	success(t, s.Check())

	ms := s.(*memStorage)
	ms.buckets["b"].items[0].value[0] ^= 0xFF
	failsWith(t, s.Check(), ErrCorrupted)

	// compaction alone does not fix a bad digest
	success(t, s.Compact())
	failsWith(t, s.Check(), ErrCorrupted)
}

func TestMemoryStorageClosed(t *testing.T) {
	s := NewMemoryStorage()
	success(t, s.Close())
	_, err := s.BeginTx(false)
	failsWith(t, err, ErrStorageClosed)
	failsWith(t, s.Check(), ErrStorageClosed)
}
