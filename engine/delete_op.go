package engine

// DeleteOp deletes every tuple from its child out of a table, routing
// each delete through the buffer pool, and reports how many rows it
// deleted.
type DeleteOp struct {
	bufPool    *BufferPool
	deleteFile DBFile
	child      Operator
	desc       *TupleDesc
}

// NewDeleteOp constructs a delete of child's rows from deleteFile via
// bp.
func NewDeleteOp(bp *BufferPool, deleteFile DBFile, child Operator) *DeleteOp {
	return &DeleteOp{
		bufPool:    bp,
		deleteFile: deleteFile,
		child:      child,
		desc:       &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}},
	}
}

func (d *DeleteOp) Descriptor() *TupleDesc {
	return d.desc
}

func (dop *DeleteOp) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	childIter, err := dop.child.Iterator(tid)
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
			if err := dop.bufPool.DeleteTuple(tid, dop.deleteFile, t); err != nil {
				return nil, err
			}
			count++
		}
		return &Tuple{Desc: *dop.desc, Fields: []DBValue{IntField{Value: count}}}, nil
	}, nil
}
