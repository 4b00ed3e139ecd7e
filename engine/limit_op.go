package engine

// LimitOp caps its child's output to the first N tuples, where N is
// evaluated once (against a nil tuple) from limitTups.
type LimitOp struct {
	child     Operator
	limitTups Expr
}

// NewLimitOp constructs a limit operator returning at most lim tuples
// from child.
func NewLimitOp(lim Expr, child Operator) *LimitOp {
	return &LimitOp{child: child, limitTups: lim}
}

func (l *LimitOp) Descriptor() *TupleDesc {
	return l.child.Descriptor()
}

func (l *LimitOp) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	limitVal, err := l.limitTups.EvalExpr(nil)
	if err != nil {
		return nil, err
	}
	limit, ok := limitVal.(IntField)
	if !ok {
		return nil, GoDBError{Kind: TypeMismatchError, Message: "LIMIT expression must be an integer"}
	}

	childIter, err := l.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	count := int64(0)
	return func() (*Tuple, error) {
		if count >= limit.Value {
			return nil, nil
		}
		tuple, err := childIter()
		if err != nil || tuple == nil {
			return nil, err
		}
		count++
		return tuple, nil
	}, nil
}
