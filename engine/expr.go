package engine

// Expr evaluates to a DBValue given a tuple. Operators (filter, project,
// order by, join, aggregate) are all written against this interface
// rather than against a raw field index, so that, e.g., an ORDER BY can
// sort on any expression instead of just a named column.
type Expr interface {
	// EvalExpr computes this expression's value against t. t may be nil
	// for expressions that do not depend on their input (e.g. LimitOp
	// evaluates its limit expression once against a nil tuple).
	EvalExpr(t *Tuple) (DBValue, error)
	// GetExprType reports the FieldType this expression would produce,
	// used to build a TupleDesc without evaluating any tuple.
	GetExprType() FieldType
}

// FieldExpr extracts a single named field from a tuple.
type FieldExpr struct {
	field FieldType
}

// NewFieldExpr wraps field as an Expr.
func NewFieldExpr(field FieldType) *FieldExpr {
	return &FieldExpr{field: field}
}

func (e *FieldExpr) EvalExpr(t *Tuple) (DBValue, error) {
	idx, err := findFieldInTd(e.field, &t.Desc)
	if err != nil {
		return nil, err
	}
	return t.Fields[idx], nil
}

func (e *FieldExpr) GetExprType() FieldType {
	return e.field
}

// ConstExpr is a literal value, independent of any tuple.
type ConstExpr struct {
	val       DBValue
	fieldType FieldType
}

// NewConstExpr wraps a literal DBValue of type t as an Expr.
func NewConstExpr(val DBValue, t DBType) *ConstExpr {
	return &ConstExpr{val: val, fieldType: FieldType{Ftype: t}}
}

func (e *ConstExpr) EvalExpr(t *Tuple) (DBValue, error) {
	return e.val, nil
}

func (e *ConstExpr) GetExprType() FieldType {
	return e.fieldType
}
