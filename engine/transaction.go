package engine

import "sync/atomic"

// TransactionID is an opaque handle scoping lock holdership and dirty
// page ownership. Callers create one with NewTID, use it as a map key
// across GetPage/insertTuple/deleteTuple calls, and retire it by calling
// BufferPool.TransactionComplete exactly once.
type TransactionID int64

var nextTID int64

// NewTID allocates a fresh, process-unique transaction id.
func NewTID() TransactionID {
	return TransactionID(atomic.AddInt64(&nextTID, 1))
}
