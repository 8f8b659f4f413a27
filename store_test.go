package carmine

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func setup(t testing.TB) *Store {
	t.Helper()

	if testing.Short() {
		s := must(Create("test", InMemory, Options{IsTesting: true}))
		t.Cleanup(func() { s.Close() })
		return s
	}

	dbFile := must(os.CreateTemp("", "carmine_test_*.db"))
	t.Logf("DB: %s", dbFile.Name())
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	s := must(Create("test", dbFile.Name(), Options{IsTesting: true}))
	t.Cleanup(func() { s.Close() })
	return s
}

func tempPath(t testing.TB) string {
	return filepath.Join(t.TempDir(), "test.db")
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func success(t testing.TB, err error) {
	if err != nil {
		t.Helper()
		t.Fatalf("** failed: %v", err)
	}
}

func failsWith(t testing.TB, err, target error) {
	if !errors.Is(err, target) {
		t.Helper()
		t.Fatalf("** got error %v, wanted %v", err, target)
	}
}

func TestCreateAndReopen(t *testing.T) {
	path := tempPath(t)
	names := MustCollection("names", KeyInt64, ValueText)

	s := must(Create("prod", path, Options{IsTesting: true}))
	success(t, names.WriteOne(s, Int64(1), Text("one")))
	success(t, s.Close())

	s = must(Open("prod", path, Options{IsTesting: true}))
	defer s.Close()
	deepEqual[Value](t, must(names.ReadOne(s, Int64(1))), Text("one"))
}

func TestOpenMissing(t *testing.T) {
	path := tempPath(t)
	_, err := Open("prod", path, Options{})
	failsWith(t, err, fs.ErrNotExist)
	var ee *EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("** got %T, wanted *EngineError", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("** Open created %s", path)
	}

	_, err = OpenReadOnly("prod", path, Options{})
	failsWith(t, err, fs.ErrNotExist)

	_, err = Open("prod", InMemory, Options{})
	failsWith(t, err, fs.ErrNotExist)
}

func TestCreateInvalidName(t *testing.T) {
	path := tempPath(t)
	_, err := Create("my::db", path, Options{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("** got %v, wanted *ValidationError", err)
	}
	deepEqual(t, ve.Subject, "store name")
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("** Create touched the engine before validating")
	}
}

func TestOpenReadOnly(t *testing.T) {
	path := tempPath(t)
	totals := MustCollection("totals", KeyText, ValueNumber)

	s := must(Create("prod", path, Options{IsTesting: true}))
	success(t, totals.WriteOne(s, Text("a"), NumberOf(1.5)))
	success(t, s.Close())

	ro := must(OpenReadOnly("prod", path, Options{IsTesting: true}))
	defer ro.Close()

	deepEqual[Value](t, must(totals.ReadOne(ro, Text("a"))), NumberOf(1.5))
	if _, ok := any(ro).(Writable); ok {
		t.Errorf("** ReadOnlyStore implements Writable")
	}
}

func TestCompact(t *testing.T) {
	s := setup(t)
	c := MustCollection("items", KeyInt64, ValueBytes)
	keys := make([]Key, 100)
	values := make([]Value, 100)
	for i := range keys {
		keys[i] = Int64(i)
		values[i] = Bytes(strings.Repeat("x", 100))
	}
	success(t, c.WriteMany(s, keys, values))
	_, err := c.DeleteMany(s, keys[:50])
	success(t, err)

	tx := must(s.BeginRead())
	failsWith(t, s.Compact(), ErrTransactionsOpen)
	tx.Close()

	success(t, s.Compact())
	success(t, s.CheckIntegrity())

	success(t, s.View(func(tx *ReadTx) error {
		tbl, err := c.Read(tx)
		if err != nil {
			return err
		}
		deepEqual(t, must(tbl.Len()), 50)
		deepEqual[Value](t, must(tbl.Get(Int64(75))), Bytes(strings.Repeat("x", 100)))
		return nil
	}))
}

func TestStorageSize(t *testing.T) {
	s := must(Create("test", tempPath(t), Options{IsTesting: true}))
	defer s.Close()
	if n := storageSize(s.storage); n <= 0 {
		t.Errorf("** got size %d, wanted > 0", n)
	}

	m := must(Create("test", InMemory, Options{IsTesting: true}))
	defer m.Close()
	deepEqual(t, storageSize(m.storage), int64(-1))
}

func TestCheckIntegrity(t *testing.T) {
	s := setup(t)
	success(t, MustCollection("a", KeyText, ValueText).WriteOne(s, Text("k"), Text("v")))
	success(t, s.CheckIntegrity())
}

func TestCollections(t *testing.T) {
	s := setup(t)
	deepEqual(t, len(must(s.Collections())), 0)

	b := MustCollection("b_things", KeyBytes, ValueStructured)
	a := MustCollection("a_things", KeyNumber, ValueInt64)
	success(t, b.WriteOne(s, Bytes("k"), Structured(must(MarshalStructured(1)))))
	success(t, a.WriteOne(s, NumberOf(1), Int64(1)))

	deepEqual(t, must(s.Collections()), []Collection{a, b})
}

func TestStoreCollectionValidates(t *testing.T) {
	s := setup(t)
	_, err := s.Collection("bad name", KeyText, ValueText)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("** got %v, wanted *ValidationError", err)
	}
	c := must(s.Collection("good_name", KeyText, ValueOpaque))
	deepEqual(t, c.Name(), "good_name")
	deepEqual(t, c.ValueKind(), ValueOpaque)
}

func TestStoreRename(t *testing.T) {
	s := setup(t)
	success(t, s.Rename("analytics-v2"))
	deepEqual(t, s.Name(), "analytics-v2")
	if err := s.Rename("123db"); err == nil {
		t.Fatalf("** Rename(123db) succeeded")
	}
	deepEqual(t, s.Name(), "analytics-v2")
}

func TestCloseWithOpenTx(t *testing.T) {
	s := must(Create("test", InMemory, Options{}))
	tx := must(s.BeginRead())
	failsWith(t, s.Close(), ErrTransactionsOpen)
	tx.Close()
	success(t, s.Close())

	_, err := s.BeginRead()
	failsWith(t, err, ErrStorageClosed)
}

func TestDescribeOpenTxns(t *testing.T) {
	s := setup(t)
	deepEqual(t, s.DescribeOpenTxns(), "NO OPEN TRANSACTIONS")

	tx := must(s.BeginRead())
	defer tx.Close()
	if d := s.DescribeOpenTxns(); !strings.HasPrefix(d, "1 OPEN TRANSACTIONS:") {
		t.Errorf("** got %q", d)
	}
}

func TestUpdatePanicRollsBack(t *testing.T) {
	s := setup(t)
	c := MustCollection("things", KeyText, ValueText)

	err := s.Update(func(tx *WriteTx) error {
		tbl := must(c.Write(tx))
		ensure(tbl.Insert(Text("k"), Text("v")))
		panic("boom")
	})
	if err == nil || !strings.Contains(err.Error(), "panic: boom") {
		t.Fatalf("** got %v, wanted panic error", err)
	}

	_, err = c.ReadOne(s, Text("k"))
	if !IsTableNotFound(err) {
		t.Fatalf("** got %v, wanted table not found", err)
	}
	deepEqual(t, s.DescribeOpenTxns(), "NO OPEN TRANSACTIONS")
}

func TestCreateFile(t *testing.T) {
	f := must(os.Create(tempPath(t)))
	s := must(CreateFile("prod", f, Options{IsTesting: true}))
	defer s.Close()

	c := MustCollection("things", KeyText, ValueInt64)
	success(t, c.WriteOne(s, Text("k"), Int64(42)))
	deepEqual[Value](t, must(c.ReadOne(s, Text("k"))), Int64(42))
}

func TestCreateWithStorage(t *testing.T) {
	s := must(CreateWithStorage("mem", NewMemoryStorage(), Options{}))
	defer s.Close()

	c := MustCollection("things", KeyText, ValueInt64)
	success(t, c.WriteOne(s, Text("k"), Int64(42)))
	deepEqual[Value](t, must(c.ReadOne(s, Text("k"))), Int64(42))

	_, err := CreateWithStorage("mem", nil, Options{})
	if err == nil {
		t.Fatalf("** CreateWithStorage(nil) succeeded")
	}
}

func TestStats(t *testing.T) {
	s := setup(t)
	c := MustCollection("things", KeyText, ValueInt64)
	success(t, c.WriteMany(s, []Key{Text("a"), Text("b")}, []Value{Int64(1), Int64(2)}))
	_, err := c.DeleteOne(s, Text("a"))
	success(t, err)

	tx := must(s.BeginRead())
	st := s.Stats()
	tx.Close()

	deepEqual(t, st, Stats{OpenReaders: 1, Commits: 2, Puts: 2, Deletes: 1})
	deepEqual(t, s.Stats().OpenReaders, int64(0))
}

// failingCommitStorage makes every commit fail, and every rollback after it
// report an error too.
type failingCommitStorage struct {
	Storage
}

type failingCommitTx struct {
	StorageTx
}

func (s failingCommitStorage) BeginTx(writable bool) (StorageTx, error) {
	tx, err := s.Storage.BeginTx(writable)
	if err != nil {
		return nil, err
	}
	return failingCommitTx{tx}, nil
}

func (tx failingCommitTx) Commit() error {
	return errors.New("disk full")
}

func (tx failingCommitTx) Rollback() error {
	tx.StorageTx.Rollback()
	return errors.New("rollback refused")
}

func TestFailedCommitLogsRollbackError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s := must(CreateWithStorage("test", failingCommitStorage{NewMemoryStorage()}, Options{Logger: logger}))
	defer s.Close()

	err := MustCollection("things", KeyText, ValueText).WriteOne(s, Text("k"), Text("v"))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("** got %v, wanted commit failure", err)
	}
	if !strings.Contains(buf.String(), "rollback after failed commit") || !strings.Contains(buf.String(), "rollback refused") {
		t.Errorf("** rollback error not logged:\n%s", buf.String())
	}
	deepEqual(t, s.Stats().OpenWriters, int64(0))

	// the writer slot was released
	tx := must(s.BeginWrite())
	tx.Close()
}
