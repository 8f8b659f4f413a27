package carmine

import (
	"errors"
	"os"
	"testing"
)

// damagedStorage fails its first n integrity checks.
type damagedStorage struct {
	Storage
	failures int
	compacts int
}

func (s *damagedStorage) Check() error {
	if s.failures > 0 {
		s.failures--
		return errors.Join(ErrCorrupted, errors.New("page 3: unreachable"))
	}
	return s.Storage.Check()
}

func (s *damagedStorage) Compact() error {
	s.compacts++
	return s.Storage.Compact()
}

func TestBuilder(t *testing.T) {
	path := tempPath(t)
	c := MustCollection("things", KeyText, ValueText)

	b := NewBuilder("prod").SetCacheSize(8 << 20).SetTesting(true)
	deepEqual(t, b.Options().MmapSize, 8<<20)

	s := must(b.Create(path))
	success(t, c.WriteOne(s, Text("k"), Text("v")))
	success(t, s.Close())

	s = must(b.Open(path))
	deepEqual(t, s.Name(), "prod")
	deepEqual[Value](t, must(c.ReadOne(s, Text("k"))), Text("v"))
	success(t, s.Close())

	ro := must(b.OpenReadOnly(path))
	deepEqual[Value](t, must(c.ReadOne(ro, Text("k"))), Text("v"))
	success(t, ro.Close())
}

func TestBuilderValidatesNameAtEveryTerminal(t *testing.T) {
	b := NewBuilder("bad::name")
	path := tempPath(t)

	var ve *ValidationError
	_, err := b.Create(path)
	if !errors.As(err, &ve) {
		t.Errorf("** Create: got %v, wanted *ValidationError", err)
	}
	_, err = b.Open(path)
	if !errors.As(err, &ve) {
		t.Errorf("** Open: got %v, wanted *ValidationError", err)
	}
	_, err = b.OpenReadOnly(path)
	if !errors.As(err, &ve) {
		t.Errorf("** OpenReadOnly: got %v, wanted *ValidationError", err)
	}
	_, err = b.CreateWithBackend(NewMemoryStorage())
	if !errors.As(err, &ve) {
		t.Errorf("** CreateWithBackend: got %v, wanted *ValidationError", err)
	}
	_, err = b.CreateFile(must(os.Create(path)))
	if !errors.As(err, &ve) {
		t.Errorf("** CreateFile: got %v, wanted *ValidationError", err)
	}
}

func TestRepairCallback(t *testing.T) {
	var calls int
	var seen error
	ds := &damagedStorage{Storage: NewMemoryStorage(), failures: 1}

	s := must(NewBuilder("prod").
		SetRepairCallback(func(rs *RepairSession) {
			calls++
			seen = rs.Err()
		}).
		CreateWithBackend(ds))
	defer s.Close()

	deepEqual(t, calls, 1)
	failsWith(t, seen, ErrCorrupted)
	deepEqual(t, ds.compacts, 1)
	success(t, s.CheckIntegrity())
}

func TestRepairAbort(t *testing.T) {
	ds := &damagedStorage{Storage: NewMemoryStorage(), failures: 1}
	var session *RepairSession
	_, err := NewBuilder("prod").
		SetRepairCallback(func(rs *RepairSession) {
			deepEqual(t, rs.Aborted(), false)
			rs.Abort()
			session = rs
		}).
		CreateWithBackend(ds)

	deepEqual(t, session.Aborted(), true)
	failsWith(t, err, ErrRepairAborted)
	failsWith(t, err, ErrCorrupted)
	deepEqual(t, ds.compacts, 0)
}

func TestRepairNotNeeded(t *testing.T) {
	var calls int
	s := must(NewBuilder("prod").
		SetRepairCallback(func(rs *RepairSession) { calls++ }).
		Create(InMemory))
	defer s.Close()
	deepEqual(t, calls, 0)
}

func TestRepairFailsWhenStillDamaged(t *testing.T) {
	ds := &damagedStorage{Storage: NewMemoryStorage(), failures: 2}
	_, err := NewBuilder("prod").
		SetRepairCallback(func(rs *RepairSession) {}).
		CreateWithBackend(ds)
	failsWith(t, err, ErrCorrupted)
	deepEqual(t, ds.compacts, 1)
}
