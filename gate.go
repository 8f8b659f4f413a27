package carmine

import (
	"fmt"
	"slices"
	"sync"
)

// gate admits either any number of transactions or a single maintenance
// operation, never both. It fails instead of waiting, and a panicking holder
// cannot leave it in a state that later callers have to recover from.
type gate struct {
	mu          sync.Mutex
	txns        []*txn
	maintenance string
}

func (g *gate) enter(tx *txn) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.maintenance != "" {
		return fmt.Errorf("%w: %s in progress", ErrBusy, g.maintenance)
	}
	g.txns = append(g.txns, tx)
	return nil
}

func (g *gate) leave(tx *txn) {
	g.mu.Lock()
	defer g.mu.Unlock()

	found := slices.Index(g.txns, tx)
	if found < 0 {
		panic("tx not found in list")
	}

	n := len(g.txns)
	g.txns[found] = g.txns[n-1]
	g.txns[n-1] = nil
	g.txns = g.txns[:n-1]
}

// exclusive reserves the gate for op. The returned release func must be called
// exactly once, typically via defer.
func (g *gate) exclusive(op string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.maintenance != "" {
		return nil, fmt.Errorf("%w: %s in progress", ErrBusy, g.maintenance)
	}
	if n := len(g.txns); n > 0 {
		return nil, fmt.Errorf("%w: %d open", ErrTransactionsOpen, n)
	}
	g.maintenance = op
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.maintenance = ""
	}, nil
}

func (g *gate) snapshot() []*txn {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.txns)
}
