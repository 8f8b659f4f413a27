package carmine

import (
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"
)

type counters struct {
	readers atomic.Int64
	writers atomic.Int64
	commits atomic.Uint64
	puts    atomic.Uint64
	deletes atomic.Uint64
}

// Stats is a point-in-time view of a store's activity counters.
type Stats struct {
	OpenReaders int64
	OpenWriters int64
	Commits     uint64
	Puts        uint64
	Deletes     uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("readers=%d writers=%d commits=%d puts=%d deletes=%d", s.OpenReaders, s.OpenWriters, s.Commits, s.Puts, s.Deletes)
}

// Stats returns the store's activity counters.
func (db *engine) Stats() Stats {
	return Stats{
		OpenReaders: db.stats.readers.Load(),
		OpenWriters: db.stats.writers.Load(),
		Commits:     db.stats.commits.Load(),
		Puts:        db.stats.puts.Load(),
		Deletes:     db.stats.deletes.Load(),
	}
}

// DescribeOpenTxns returns a human-readable list of the transactions that are
// currently open, oldest first. Stacks are only captured when the store was
// opened with Verbose or IsTesting.
func (db *engine) DescribeOpenTxns() string {
	txns := db.gate.snapshot()
	if len(txns) == 0 {
		return "NO OPEN TRANSACTIONS"
	}

	slices.SortFunc(txns, func(a, b *txn) int {
		return a.startTime.Compare(b.startTime)
	})

	now := time.Now()

	var buf strings.Builder
	fmt.Fprintf(&buf, "%d OPEN TRANSACTIONS:\n", len(txns))
	for _, tx := range txns {
		ms := now.Sub(tx.startTime).Milliseconds()
		if ms < 100 || tx.stack == "" {
			fmt.Fprintf(&buf, "\n---\nopen for %d ms\n", ms)
		} else {
			fmt.Fprintf(&buf, "\n---\nopen for %d ms:\n%s", ms, tx.stack)
		}
	}

	return buf.String()
}
