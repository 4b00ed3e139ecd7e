package engine

import (
	"strconv"
	"strings"
)

// Aggregator computes one or more aggregate functions over its child,
// optionally grouped by a list of expressions. With no group-by
// expressions it produces exactly one output tuple.
type Aggregator struct {
	child        Operator
	groupByExprs []Expr
	newAggState  []AggState
}

// NewAggregator constructs an aggregation of child's tuples: newAggState[i]
// is a template state (already wired to its aggregated expression via
// Init, by the caller) cloned once per distinct group-by key, and groupByExprs are
// evaluated per input tuple to assign it to a group. An empty
// groupByExprs produces a single implicit group.
func NewAggregator(newAggState []AggState, groupByExprs []Expr, child Operator) *Aggregator {
	return &Aggregator{
		child:        child,
		groupByExprs: groupByExprs,
		newAggState:  newAggState,
	}
}

// Descriptor is the concatenation of the group-by columns followed by
// each aggregate's output column.
func (a *Aggregator) Descriptor() *TupleDesc {
	fields := make([]FieldType, 0, len(a.groupByExprs)+len(a.newAggState))
	for _, g := range a.groupByExprs {
		fields = append(fields, g.GetExprType())
	}
	for _, st := range a.newAggState {
		fields = append(fields, st.GetTupleDesc().Fields[0])
	}
	return &TupleDesc{Fields: fields}
}

type aggGroup struct {
	key      any
	groupVals []DBValue
	states   []AggState
}

func (a *Aggregator) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	childIter, err := a.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	groupIndex := make(map[any]int)
	var groups []*aggGroup

	for {
		t, err := childIter()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}

		groupVals := make([]DBValue, len(a.groupByExprs))
		for i, g := range a.groupByExprs {
			v, err := g.EvalExpr(t)
			if err != nil {
				return nil, err
			}
			groupVals[i] = v
		}
		key := groupKey(groupVals)

		idx, ok := groupIndex[key]
		if !ok {
			states := make([]AggState, len(a.newAggState))
			for i, template := range a.newAggState {
				states[i] = template.Copy()
			}
			groups = append(groups, &aggGroup{key: key, groupVals: groupVals, states: states})
			idx = len(groups) - 1
			groupIndex[key] = idx
		}

		for _, st := range groups[idx].states {
			st.AddTuple(t)
		}
	}

	desc := a.Descriptor()
	if len(groups) == 0 && len(a.groupByExprs) == 0 {
		// No rows at all, but with no group-by there is still exactly
		// one group whose aggregates are evaluated over zero tuples.
		states := make([]AggState, len(a.newAggState))
		for i, template := range a.newAggState {
			states[i] = template.Copy()
		}
		groups = append(groups, &aggGroup{states: states})
	}

	idx := 0
	return func() (*Tuple, error) {
		if idx >= len(groups) {
			return nil, nil
		}
		g := groups[idx]
		idx++

		fields := make([]DBValue, 0, len(desc.Fields))
		fields = append(fields, g.groupVals...)
		for _, st := range g.states {
			fields = append(fields, st.Finalize().Fields[0])
		}
		return &Tuple{Desc: *desc, Fields: fields}, nil
	}, nil
}

func groupKey(vals []DBValue) any {
	var buf strings.Builder
	for _, v := range vals {
		switch f := v.(type) {
		case IntField:
			buf.WriteString("i:")
			buf.WriteString(strconv.FormatInt(f.Value, 10))
			buf.WriteByte('|')
		case StringField:
			buf.WriteString("s:")
			buf.WriteString(f.Value)
			buf.WriteByte('|')
		}
	}
	return buf.String()
}
