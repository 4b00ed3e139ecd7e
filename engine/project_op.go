package engine

// Project evaluates a list of expressions against each child tuple,
// optionally suppressing duplicate output rows.
type Project struct {
	selectFields []Expr
	outputNames  []string
	child        Operator
	distinct     bool
}

// NewProjectOp constructs a projection over selectFields, naming the
// outputs outputNames (must be the same length). distinct reports
// whether duplicate output rows should be suppressed.
func NewProjectOp(selectFields []Expr, outputNames []string, distinct bool, child Operator) (Operator, error) {
	if len(selectFields) != len(outputNames) {
		return nil, GoDBError{Kind: SchemaMismatchError, Message: "selectFields and outputNames must be the same length"}
	}
	return &Project{
		selectFields: selectFields,
		outputNames:  outputNames,
		distinct:     distinct,
		child:        child,
	}, nil
}

func (p *Project) Descriptor() *TupleDesc {
	fields := make([]FieldType, len(p.selectFields))
	for i, expr := range p.selectFields {
		ft := expr.GetExprType()
		ft.Fname = p.outputNames[i]
		fields[i] = ft
	}
	return &TupleDesc{Fields: fields}
}

func (p *Project) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	childIter, err := p.child.Iterator(tid)
	if err != nil {
		return nil, err
	}
	projDesc := *p.Descriptor()
	var seen map[any]struct{}
	if p.distinct {
		seen = make(map[any]struct{})
	}

	return func() (*Tuple, error) {
		for {
			tuple, err := childIter()
			if err != nil || tuple == nil {
				return nil, err
			}

			out := &Tuple{Desc: projDesc, Fields: make([]DBValue, len(p.selectFields))}
			for i, expr := range p.selectFields {
				val, err := expr.EvalExpr(tuple)
				if err != nil {
					return nil, err
				}
				out.Fields[i] = val
			}

			if p.distinct {
				key := out.tupleKey()
				if _, exists := seen[key]; exists {
					continue
				}
				seen[key] = struct{}{}
			}

			return out, nil
		}
	}, nil
}
