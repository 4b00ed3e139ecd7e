package engine

// InsertOp inserts every tuple from its child into a table, routing
// each insert through the buffer pool (so locking and dirty tracking
// happen the normal way), and reports how many rows it inserted.
type InsertOp struct {
	bufPool    *BufferPool
	insertFile DBFile
	child      Operator
	desc       *TupleDesc
}

// NewInsertOp constructs an insert of child's rows into insertFile via
// bp.
func NewInsertOp(bp *BufferPool, insertFile DBFile, child Operator) *InsertOp {
	return &InsertOp{
		bufPool:    bp,
		insertFile: insertFile,
		child:      child,
		desc:       &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}},
	}
}

// Descriptor is a single "count" integer column.
func (i *InsertOp) Descriptor() *TupleDesc {
	return i.desc
}

func (iop *InsertOp) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	childIter, err := iop.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	done := false
	return func() (*Tuple, error) {
		if done {
			return nil, nil
		}
		done = true

		count := int64(0)
		for {
			t, err := childIter()
			if err != nil {
				return nil, err
			}
			if t == nil {
				break
			}
			if err := iop.bufPool.InsertTuple(tid, iop.insertFile, t); err != nil {
				return nil, err
			}
			count++
		}
		return &Tuple{Desc: *iop.desc, Fields: []DBValue{IntField{Value: count}}}, nil
	}, nil
}
