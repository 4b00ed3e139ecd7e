package engine

// AggState is the running state of one aggregate function (e.g. COUNT,
// SUM) as it consumes tuples one at a time.
type AggState interface {
	// Init resets the state for a fresh pass, recording the output
	// column's alias and the expression that extracts the aggregated
	// value from each input tuple.
	Init(alias string, expr Expr) error

	// Copy returns an independent copy of the state, used to start a
	// new group's accumulator from a group-by template.
	Copy() AggState

	// AddTuple folds one input tuple into the running state.
	AddTuple(*Tuple)

	// Finalize returns the aggregate's result as a single-field tuple.
	Finalize() *Tuple

	// GetTupleDesc describes the tuple Finalize returns.
	GetTupleDesc() *TupleDesc
}

// CountAggState implements COUNT(expr).
type CountAggState struct {
	alias string
	expr  Expr
	count int
}

func (a *CountAggState) Copy() AggState {
	return &CountAggState{a.alias, a.expr, a.count}
}

func (a *CountAggState) Init(alias string, expr Expr) error {
	a.count = 0
	a.expr = expr
	a.alias = alias
	return nil
}

func (a *CountAggState) AddTuple(t *Tuple) {
	a.count++
}

func (a *CountAggState) Finalize() *Tuple {
	td := a.GetTupleDesc()
	f := IntField{Value: int64(a.count)}
	return &Tuple{Desc: *td, Fields: []DBValue{f}}
}

func (a *CountAggState) GetTupleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: a.alias, Ftype: IntType}}}
}

// SumAggState implements SUM(expr) over an integer expr.
type SumAggState struct {
	sum   int64
	alias string
	expr  Expr
}

func (a *SumAggState) Copy() AggState {
	return &SumAggState{a.sum, a.alias, a.expr}
}

func (a *SumAggState) Init(alias string, expr Expr) error {
	a.sum = 0
	a.alias = alias
	a.expr = expr
	return nil
}

func (a *SumAggState) AddTuple(t *Tuple) {
	val, err := a.expr.EvalExpr(t)
	if err != nil {
		return
	}
	if iv, ok := val.(IntField); ok {
		a.sum += iv.Value
	}
}

func (a *SumAggState) GetTupleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: a.alias, Ftype: IntType}}}
}

func (a *SumAggState) Finalize() *Tuple {
	return &Tuple{Desc: *a.GetTupleDesc(), Fields: []DBValue{IntField{Value: a.sum}}}
}

// AvgAggState implements AVG(expr) over an integer expr. Finalize
// reports 0 when no integer value has been added.
type AvgAggState struct {
	alias string
	expr  Expr
	count int64
	sum   int64
}

func (a *AvgAggState) Copy() AggState {
	return &AvgAggState{a.alias, a.expr, a.count, a.sum}
}

func (a *AvgAggState) Init(alias string, expr Expr) error {
	a.alias = alias
	a.expr = expr
	a.sum = 0
	a.count = 0
	return nil
}

func (a *AvgAggState) AddTuple(t *Tuple) {
	val, err := a.expr.EvalExpr(t)
	if err != nil {
		return
	}
	iv, ok := val.(IntField)
	if !ok {
		return
	}
	a.sum += iv.Value
	a.count++
}

func (a *AvgAggState) GetTupleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: a.alias, Ftype: IntType}}}
}

func (a *AvgAggState) Finalize() *Tuple {
	if a.count == 0 {
		return &Tuple{Desc: *a.GetTupleDesc(), Fields: []DBValue{IntField{Value: 0}}}
	}
	return &Tuple{Desc: *a.GetTupleDesc(), Fields: []DBValue{IntField{Value: a.sum / a.count}}}
}

// MaxAggState implements MAX(expr) over an int or string expr.
// If no value has been added, Finalize's single field is nil.
type MaxAggState struct {
	maximum DBValue
	alias   string
	expr    Expr
}

func (a *MaxAggState) Copy() AggState {
	return &MaxAggState{a.maximum, a.alias, a.expr}
}

func (a *MaxAggState) Init(alias string, expr Expr) error {
	a.maximum = nil
	a.alias = alias
	a.expr = expr
	return nil
}

func (a *MaxAggState) AddTuple(t *Tuple) {
	val, err := a.expr.EvalExpr(t)
	if err != nil {
		return
	}
	if a.maximum == nil || val.EvalPred(a.maximum, OpGt) {
		a.maximum = val
	}
}

func (a *MaxAggState) GetTupleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: a.alias, Ftype: a.expr.GetExprType().Ftype}}}
}

func (a *MaxAggState) Finalize() *Tuple {
	return &Tuple{Desc: *a.GetTupleDesc(), Fields: []DBValue{a.maximum}}
}

// MinAggState implements MIN(expr) over an int or string expr.
// If no value has been added, Finalize's single field is nil.
type MinAggState struct {
	minimum DBValue
	alias   string
	expr    Expr
}

func (a *MinAggState) Copy() AggState {
	return &MinAggState{a.minimum, a.alias, a.expr}
}

func (a *MinAggState) Init(alias string, expr Expr) error {
	a.minimum = nil
	a.alias = alias
	a.expr = expr
	return nil
}

func (a *MinAggState) AddTuple(t *Tuple) {
	val, err := a.expr.EvalExpr(t)
	if err != nil {
		return
	}
	if a.minimum == nil || val.EvalPred(a.minimum, OpLt) {
		a.minimum = val
	}
}

func (a *MinAggState) GetTupleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: a.alias, Ftype: a.expr.GetExprType().Ftype}}}
}

func (a *MinAggState) Finalize() *Tuple {
	return &Tuple{Desc: *a.GetTupleDesc(), Fields: []DBValue{a.minimum}}
}
