package engine

import (
	"sort"
)

// OrderBy is a blocking sort: it drains its child fully, sorts by a
// list of expressions (each with its own ascending/descending
// direction), and then replays the sorted result one tuple at a time.
type OrderBy struct {
	orderBy   []Expr
	ascending []bool
	child     Operator
}

// NewOrderBy constructs a sort over child by orderByFields, where
// ascending[i] says whether orderByFields[i] sorts ascending or
// descending.
func NewOrderBy(orderByFields []Expr, child Operator, ascending []bool) (*OrderBy, error) {
	return &OrderBy{orderBy: orderByFields, child: child, ascending: ascending}, nil
}

// Descriptor returns the child's descriptor: sorting does not change a
// tuple's shape.
func (o *OrderBy) Descriptor() *TupleDesc {
	return o.child.Descriptor()
}

func (o *OrderBy) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	childIter, err := o.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	var all []*Tuple
	for {
		tuple, err := childIter()
		if err != nil {
			return nil, err
		}
		if tuple == nil {
			break
		}
		all = append(all, tuple)
	}

	var sortErr error
	sort.SliceStable(all, func(i, j int) bool {
		less, err := lessTuples(all[i], all[j], o.orderBy, o.ascending)
		if err != nil {
			sortErr = err
		}
		return less
	})
	if sortErr != nil {
		return nil, sortErr
	}

	idx := 0
	return func() (*Tuple, error) {
		if idx >= len(all) {
			return nil, nil
		}
		tuple := all[idx]
		idx++
		return tuple, nil
	}, nil
}

func lessTuples(a, b *Tuple, orderBy []Expr, ascending []bool) (bool, error) {
	for i, expr := range orderBy {
		valA, err := expr.EvalExpr(a)
		if err != nil {
			return false, err
		}
		valB, err := expr.EvalExpr(b)
		if err != nil {
			return false, err
		}
		if valA.EvalPred(valB, OpEq) {
			continue
		}
		if ascending[i] {
			return valA.EvalPred(valB, OpLt), nil
		}
		return valA.EvalPred(valB, OpGt), nil
	}
	return false, nil
}
