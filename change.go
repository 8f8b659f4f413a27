package carmine

import "fmt"

type Op int

const (
	OpPut    Op = 1
	OpDelete Op = 2
)

func (op Op) String() string {
	switch op {
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// Change describes one mutation made through a TableHandle.
type Change struct {
	Collection Collection
	Op         Op
	Key        Key
	Value      Value // nil for OpDelete
}

// OnChange registers f to be called after every successful Insert and every
// Remove that deleted something in this transaction. Changes are reported as
// they happen, so f sees them even if the transaction is later rolled back.
func (tx *WriteTx) OnChange(f func(chg Change)) {
	tx.changeHandler = f
}

func (tx *WriteTx) notify(chg Change) {
	if tx.changeHandler != nil {
		tx.changeHandler(chg)
	}
}
