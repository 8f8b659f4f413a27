package carmine

import (
	"errors"
	"strings"
	"testing"
)

func TestDataError(t *testing.T) {
	t.Run("small data", func(t *testing.T) {
		err := dataErrf([]byte{0xAA, 0xBB}, "oops %d", 1)
		var de *DataError
		if !errors.As(err, &de) {
			t.Fatalf("err = %T, wanted *DataError", err)
		}
		s := err.Error()
		if !strings.Contains(s, "oops 1") || !strings.Contains(s, "(2) aabb") {
			t.Fatalf("err.Error() = %q, wanted message with oops 1 and (2) aabb", s)
		}
	})

	t.Run("large data includes prefix+suffix", func(t *testing.T) {
		data := make([]byte, 200)
		for i := range data {
			data[i] = byte(i)
		}
		s := dataErrf(data, "oops").Error()
		if !strings.Contains(s, "(200)") || !strings.Contains(s, "...") {
			t.Fatalf("err.Error() = %q, wanted message with (200) and ...", s)
		}
	})
}

func TestEngineError(t *testing.T) {
	err := engineErr("open", "things", ErrTableNotFound)
	deepEqual(t, err.Error(), "carmine: open things: table not found")
	if !errors.Is(err, ErrTableNotFound) || !IsTableNotFound(err) {
		t.Fatalf("** %v does not unwrap to ErrTableNotFound", err)
	}

	deepEqual(t, engineErr("open", "things", err), err)
	deepEqual(t, engineErr("commit", "", nil), nil)
	deepEqual(t, engineErr("commit", "", errors.New("disk full")).Error(), "carmine: commit: disk full")
}

func TestKindMismatchErrors(t *testing.T) {
	kerr := &KeyKindMismatchError{Table: "t", Expected: KeyInt64, Actual: KeyText}
	deepEqual(t, kerr.Error(), "t: key kind mismatch: expected Int64, got Text")
	verr := &ValueKindMismatchError{Table: "t", Expected: ValueBytes, Actual: ValueNumber}
	deepEqual(t, verr.Error(), "t: value kind mismatch: expected Bytes, got Number")
}
