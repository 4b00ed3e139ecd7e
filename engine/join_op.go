package engine

import (
	"encoding/binary"
	"sort"

	boom "github.com/tylertreat/BoomFilters"
)

// EqualityJoin joins two operators on an equality predicate between
// leftField and rightField, evaluated against the left and right
// child's tuples respectively.
type EqualityJoin struct {
	leftField, rightField Expr

	left, right *Operator

	// maxBufferSize is recorded by NewJoin but not consulted: Iterator
	// materializes both inputs in full whatever its value.
	maxBufferSize int
}

// NewJoin constructs an equality join of left and right on leftField
// and rightField, which must have the same type.
func NewJoin(left Operator, leftField Expr, right Operator, rightField Expr, maxBufferSize int) (*EqualityJoin, error) {
	if leftField.GetExprType().Ftype != rightField.GetExprType().Ftype {
		return nil, GoDBError{Kind: IncompatibleTypesError, Message: "join fields must have the same type"}
	}
	switch leftField.GetExprType().Ftype {
	case IntType, StringType:
		return &EqualityJoin{leftField, rightField, &left, &right, maxBufferSize}, nil
	}
	return nil, GoDBError{Kind: IncompatibleTypesError, Message: "join fields must be int or string"}
}

// Descriptor is the union of the left and right descriptors.
func (hj *EqualityJoin) Descriptor() *TupleDesc {
	return (*hj.left).Descriptor().merge((*hj.right).Descriptor())
}

// Iterator runs a sort-merge join. Before sorting the right side, a
// Bloom filter built over the left side's join keys is used to drop
// any right tuple that cannot possibly find a match, which keeps the
// merge pass cheap when one side is much larger than the other.
func (joinOp *EqualityJoin) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	leftIterator, err := (*joinOp.left).Iterator(tid)
	if err != nil {
		return nil, err
	}
	leftTuples, err := fetchAllTuples(leftIterator)
	if err != nil {
		return nil, err
	}

	rightIterator, err := (*joinOp.right).Iterator(tid)
	if err != nil {
		return nil, err
	}
	rightTuples, err := fetchAllTuples(rightIterator)
	if err != nil {
		return nil, err
	}

	filter := boom.NewBloomFilter(uint(len(leftTuples))+1, 0.01)
	for _, t := range leftTuples {
		key, err := joinKeyBytes(t, joinOp.leftField)
		if err != nil {
			return nil, err
		}
		filter.Add(key)
	}

	candidates := rightTuples[:0:0]
	for _, t := range rightTuples {
		key, err := joinKeyBytes(t, joinOp.rightField)
		if err != nil {
			return nil, err
		}
		if filter.Test(key) {
			candidates = append(candidates, t)
		}
	}

	if err := sortTupleList(leftTuples, joinOp.leftField); err != nil {
		return nil, err
	}
	if err := sortTupleList(candidates, joinOp.rightField); err != nil {
		return nil, err
	}

	joinedTuples, err := mergeAndJoinTuples(leftTuples, candidates, joinOp.leftField, joinOp.rightField)
	if err != nil {
		return nil, err
	}

	currentIndex := 0
	return func() (*Tuple, error) {
		if currentIndex >= len(joinedTuples) {
			return nil, nil
		}
		currentIndex++
		return joinedTuples[currentIndex-1], nil
	}, nil
}

// joinKeyBytes renders a join key as bytes suitable for feeding to a
// Bloom filter.
func joinKeyBytes(t *Tuple, field Expr) ([]byte, error) {
	val, err := field.EvalExpr(t)
	if err != nil {
		return nil, err
	}
	switch v := val.(type) {
	case IntField:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(v.Value))
		return buf, nil
	case StringField:
		return []byte(v.Value), nil
	default:
		return nil, GoDBError{Kind: TypeMismatchError, Message: "unsupported join key type"}
	}
}

func fetchAllTuples(iterator func() (*Tuple, error)) ([]*Tuple, error) {
	var tuples []*Tuple
	for {
		tuple, err := iterator()
		if err != nil {
			return nil, err
		}
		if tuple == nil {
			break
		}
		tuples = append(tuples, tuple)
	}
	return tuples, nil
}

func sortTupleList(tuples []*Tuple, field Expr) error {
	var sortErr error
	sort.SliceStable(tuples, func(i, j int) bool {
		result, err := tuples[i].compareField(tuples[j], field)
		if err != nil {
			sortErr = err
			return false
		}
		return result == OrderedLessThan
	})
	return sortErr
}

func mergeAndJoinTuples(leftTuples, rightTuples []*Tuple, leftField, rightField Expr) ([]*Tuple, error) {
	var joinedTuples []*Tuple
	leftIndex, rightIndex := 0, 0

	for leftIndex < len(leftTuples) && rightIndex < len(rightTuples) {
		order, err := compareAcross(leftTuples[leftIndex], rightTuples[rightIndex], leftField, rightField)
		if err != nil {
			return nil, err
		}

		switch order {
		case OrderedEqual:
			leftEnd, err := findEqualRange(leftTuples, leftIndex, leftField)
			if err != nil {
				return nil, err
			}
			rightEnd, err := findEqualRange(rightTuples, rightIndex, rightField)
			if err != nil {
				return nil, err
			}
			for i := leftIndex; i < leftEnd; i++ {
				for j := rightIndex; j < rightEnd; j++ {
					joinedTuples = append(joinedTuples, joinTuples(leftTuples[i], rightTuples[j]))
				}
			}
			leftIndex = leftEnd
			rightIndex = rightEnd
		case OrderedLessThan:
			leftIndex++
		case OrderedGreaterThan:
			rightIndex++
		}
	}

	return joinedTuples, nil
}

func compareAcross(leftTuple, rightTuple *Tuple, leftField, rightField Expr) (orderByState, error) {
	leftVal, err := leftField.EvalExpr(leftTuple)
	if err != nil {
		return 0, err
	}
	rightVal, err := rightField.EvalExpr(rightTuple)
	if err != nil {
		return 0, err
	}

	switch l := leftVal.(type) {
	case IntField:
		r, ok := rightVal.(IntField)
		if !ok {
			return 0, GoDBError{Kind: TypeMismatchError, Message: "join key type mismatch"}
		}
		switch {
		case l.Value < r.Value:
			return OrderedLessThan, nil
		case l.Value > r.Value:
			return OrderedGreaterThan, nil
		default:
			return OrderedEqual, nil
		}
	case StringField:
		r, ok := rightVal.(StringField)
		if !ok {
			return 0, GoDBError{Kind: TypeMismatchError, Message: "join key type mismatch"}
		}
		switch {
		case l.Value < r.Value:
			return OrderedLessThan, nil
		case l.Value > r.Value:
			return OrderedGreaterThan, nil
		default:
			return OrderedEqual, nil
		}
	default:
		return OrderedEqual, nil
	}
}

// findEqualRange returns the end (exclusive) of the run of tuples
// starting at startIndex whose field value equals tuples[startIndex]'s.
func findEqualRange(tuples []*Tuple, startIndex int, field Expr) (int, error) {
	endIndex := startIndex + 1
	for endIndex < len(tuples) {
		result, err := tuples[endIndex].compareField(tuples[startIndex], field)
		if err != nil {
			return 0, err
		}
		if result != OrderedEqual {
			break
		}
		endIndex++
	}
	return endIndex, nil
}
