package engine

// Filter applies a comparison predicate (left op right) to each tuple
// from its child and passes through only the tuples where it holds.
type Filter struct {
	op    BoolOp
	left  Expr
	right Expr
	child Operator
}

// NewFilter constructs a filter evaluating left op right against each
// child tuple.
func NewFilter(left Expr, op BoolOp, right Expr, child Operator) (*Filter, error) {
	return &Filter{op: op, left: left, right: right, child: child}, nil
}

// Descriptor returns the child's descriptor unchanged: a filter never
// changes a tuple's shape.
func (f *Filter) Descriptor() *TupleDesc {
	return f.child.Descriptor()
}

func (f *Filter) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	childIter, err := f.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	return func() (*Tuple, error) {
		for {
			tuple, err := childIter()
			if err != nil || tuple == nil {
				return nil, err
			}

			leftVal, err := f.left.EvalExpr(tuple)
			if err != nil {
				return nil, err
			}
			rightVal, err := f.right.EvalExpr(tuple)
			if err != nil {
				return nil, err
			}

			if leftVal.EvalPred(rightVal, f.op) {
				return tuple, nil
			}
		}
	}, nil
}
