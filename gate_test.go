package carmine

import (
	"errors"
	"testing"
)

func TestGate(t *testing.T) {
	var g gate
	a, b := &txn{}, &txn{}

	success(t, g.enter(a))
	success(t, g.enter(b))
	_, err := g.exclusive("compaction")
	failsWith(t, err, ErrTransactionsOpen)

	g.leave(a)
	g.leave(b)
	release, err := g.exclusive("compaction")
	success(t, err)

	err = g.enter(a)
	failsWith(t, err, ErrBusy)
	_, err = g.exclusive("close")
	failsWith(t, err, ErrBusy)

	release()
	success(t, g.enter(a))
	deepEqual(t, len(g.snapshot()), 1)
	g.leave(a)
}

func TestGateReleasedAfterFailedMaintenance(t *testing.T) {
	var g gate
	run := func() (err error) {
		release, err := g.exclusive("compaction")
		if err != nil {
			return err
		}
		defer release()
		defer func() {
			if p := recover(); p != nil {
				err = errors.New("recovered")
			}
		}()
		panic("engine blew up")
	}
	if err := run(); err == nil {
		t.Fatalf("** wanted an error")
	}
	success(t, g.enter(&txn{}))
}
