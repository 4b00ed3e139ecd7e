package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/tuplestore/tuplestore/engine"
)

// planner lowers a parsed SQL statement into an engine.Operator tree (or,
// for INSERT/DELETE, an Operator whose single output row reports how
// many rows were affected), resolving table names against cat.
type planner struct {
	cat *engine.Catalog
	bp  *engine.BufferPool
}

func newPlanner(cat *engine.Catalog, bp *engine.BufferPool) *planner {
	return &planner{cat: cat, bp: bp}
}

// Plan translates one parsed statement into an Operator. Only the
// subset of SQL this REPL advertises is supported: single-table SELECT
// (with an optional WHERE, ORDER BY, LIMIT), INSERT INTO ... VALUES,
// and single-table DELETE with an optional WHERE.
func (p *planner) Plan(stmt sqlparser.Statement) (engine.Operator, error) {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		return p.planSelect(s)
	case *sqlparser.Insert:
		return p.planInsert(s)
	case *sqlparser.Delete:
		return p.planDelete(s)
	default:
		return nil, fmt.Errorf("unsupported statement: %T", stmt)
	}
}

func (p *planner) planSelect(s *sqlparser.Select) (engine.Operator, error) {
	if len(s.From) != 1 {
		return nil, fmt.Errorf("only single-table SELECT is supported")
	}
	alias, file, err := p.resolveTableExpr(s.From[0])
	if err != nil {
		return nil, err
	}

	var op engine.Operator = engine.NewSeqScan(file, alias)

	if s.Where != nil {
		left, bop, right, err := p.planComparison(s.Where.Expr, op.Descriptor())
		if err != nil {
			return nil, err
		}
		op, err = engine.NewFilter(left, bop, right, op)
		if err != nil {
			return nil, err
		}
	}

	if len(s.OrderBy) > 0 {
		var exprs []engine.Expr
		var ascending []bool
		for _, ord := range s.OrderBy {
			fieldExpr, err := p.resolveExpr(ord.Expr, op.Descriptor())
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, fieldExpr)
			ascending = append(ascending, ord.Direction != sqlparser.DescScr)
		}
		op, err = engine.NewOrderBy(exprs, op, ascending)
		if err != nil {
			return nil, err
		}
	}

	op, err = p.planProject(s.SelectExprs, op)
	if err != nil {
		return nil, err
	}

	if s.Limit != nil && s.Limit.Rowcount != nil {
		limitExpr, err := p.planConst(s.Limit.Rowcount)
		if err != nil {
			return nil, err
		}
		op = engine.NewLimitOp(limitExpr, op)
	}

	return op, nil
}

func (p *planner) planProject(selectExprs sqlparser.SelectExprs, child engine.Operator) (engine.Operator, error) {
	for _, se := range selectExprs {
		if _, ok := se.(*sqlparser.StarExpr); ok {
			// SELECT * needs no projection.
			return child, nil
		}
	}

	var exprs []engine.Expr
	var names []string
	for _, se := range selectExprs {
		aliased, ok := se.(*sqlparser.AliasedExpr)
		if !ok {
			return nil, fmt.Errorf("unsupported select expression: %T", se)
		}
		fieldExpr, err := p.resolveExpr(aliased.Expr, child.Descriptor())
		if err != nil {
			return nil, err
		}
		name := fieldExpr.GetExprType().Fname
		if !aliased.As.IsEmpty() {
			name = aliased.As.String()
		}
		exprs = append(exprs, fieldExpr)
		names = append(names, name)
	}
	return engine.NewProjectOp(exprs, names, false, child)
}

func (p *planner) planInsert(s *sqlparser.Insert) (engine.Operator, error) {
	file, err := p.lookupTable(s.Table.Name.String())
	if err != nil {
		return nil, err
	}
	rows, ok := s.Rows.(sqlparser.Values)
	if !ok {
		return nil, fmt.Errorf("only INSERT ... VALUES is supported")
	}

	desc := file.Descriptor()
	var tuples []*engine.Tuple
	for _, tuple := range rows {
		if len(tuple) != len(desc.Fields) {
			return nil, fmt.Errorf("expected %d values, got %d", len(desc.Fields), len(tuple))
		}
		fields := make([]engine.DBValue, len(tuple))
		for i, val := range tuple {
			v, err := literalValue(val, desc.Fields[i].Ftype)
			if err != nil {
				return nil, err
			}
			fields[i] = v
		}
		tuples = append(tuples, &engine.Tuple{Desc: *desc, Fields: fields})
	}

	source := &literalScan{desc: desc, tuples: tuples}
	return engine.NewInsertOp(p.bp, file, source), nil
}

func (p *planner) planDelete(s *sqlparser.Delete) (engine.Operator, error) {
	if len(s.TableExprs) != 1 {
		return nil, fmt.Errorf("only single-table DELETE is supported")
	}
	alias, file, err := p.resolveTableExpr(s.TableExprs[0])
	if err != nil {
		return nil, err
	}
	var scan engine.Operator = engine.NewSeqScan(file, alias)

	if s.Where != nil {
		left, bop, right, err := p.planComparison(s.Where.Expr, scan.Descriptor())
		if err != nil {
			return nil, err
		}
		scan, err = engine.NewFilter(left, bop, right, scan)
		if err != nil {
			return nil, err
		}
	}

	return engine.NewDeleteOp(p.bp, file, scan), nil
}

func (p *planner) resolveTableExpr(te sqlparser.TableExpr) (alias string, file engine.DBFile, err error) {
	aliased, ok := te.(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", nil, fmt.Errorf("unsupported table expression: %T", te)
	}
	name, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return "", nil, fmt.Errorf("unsupported table expression: %T", aliased.Expr)
	}
	file, err = p.lookupTable(name.Name.String())
	if err != nil {
		return "", nil, err
	}
	alias = name.Name.String()
	if !aliased.As.IsEmpty() {
		alias = aliased.As.String()
	}
	return alias, file, nil
}

func (p *planner) lookupTable(name string) (*engine.HeapFile, error) {
	id, err := p.cat.GetTableID(name)
	if err != nil {
		return nil, err
	}
	return p.cat.GetDatabaseFile(id)
}

// planComparison lowers a WHERE clause's top-level comparison into the
// (left, op, right) triple Filter expects. Only a single comparison is
// supported; conjunctions are out of scope for this REPL.
func (p *planner) planComparison(expr sqlparser.Expr, desc *engine.TupleDesc) (engine.Expr, engine.BoolOp, engine.Expr, error) {
	cmp, ok := expr.(*sqlparser.ComparisonExpr)
	if !ok {
		return nil, 0, nil, fmt.Errorf("only a single comparison is supported in WHERE")
	}
	left, err := p.resolveExpr(cmp.Left, desc)
	if err != nil {
		return nil, 0, nil, err
	}
	bop, err := comparisonOp(cmp.Operator)
	if err != nil {
		return nil, 0, nil, err
	}
	right, err := p.resolveComparand(cmp.Right, left.GetExprType().Ftype)
	if err != nil {
		return nil, 0, nil, err
	}
	return left, bop, right, nil
}

func (p *planner) resolveComparand(expr sqlparser.Expr, ftype engine.DBType) (engine.Expr, error) {
	if val, ok := expr.(*sqlparser.SQLVal); ok {
		v, err := literalValue(val, ftype)
		if err != nil {
			return nil, err
		}
		return engine.NewConstExpr(v, ftype), nil
	}
	return nil, fmt.Errorf("unsupported comparison operand: %T", expr)
}

func (p *planner) resolveExpr(expr sqlparser.Expr, desc *engine.TupleDesc) (engine.Expr, error) {
	col, ok := expr.(*sqlparser.ColName)
	if !ok {
		return nil, fmt.Errorf("unsupported expression: %T", expr)
	}
	name := col.Name.String()
	qualifier := col.Qualifier.Name.String()
	for _, f := range desc.Fields {
		if f.Fname == name && (qualifier == "" || f.TableQualifier == qualifier) {
			return engine.NewFieldExpr(f), nil
		}
	}
	return nil, fmt.Errorf("unknown column %s", name)
}

func (p *planner) planConst(expr sqlparser.Expr) (engine.Expr, error) {
	val, ok := expr.(*sqlparser.SQLVal)
	if !ok {
		return nil, fmt.Errorf("unsupported constant expression: %T", expr)
	}
	v, err := literalValue(val, engine.IntType)
	if err != nil {
		return nil, err
	}
	return engine.NewConstExpr(v, engine.IntType), nil
}

func comparisonOp(op string) (engine.BoolOp, error) {
	switch op {
	case sqlparser.EqualStr:
		return engine.OpEq, nil
	case sqlparser.NotEqualStr:
		return engine.OpNe, nil
	case sqlparser.LessThanStr:
		return engine.OpLt, nil
	case sqlparser.LessEqualStr:
		return engine.OpLe, nil
	case sqlparser.GreaterThanStr:
		return engine.OpGt, nil
	case sqlparser.GreaterEqualStr:
		return engine.OpGe, nil
	}
	return 0, fmt.Errorf("unsupported comparison operator: %s", op)
}

func literalValue(expr sqlparser.Expr, ftype engine.DBType) (engine.DBValue, error) {
	val, ok := expr.(*sqlparser.SQLVal)
	if !ok {
		return nil, fmt.Errorf("unsupported literal: %T", expr)
	}
	switch val.Type {
	case sqlparser.StrVal:
		return engine.StringField{Value: string(val.Val)}, nil
	case sqlparser.IntVal:
		n, err := strconv.ParseInt(string(val.Val), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed integer literal %q: %w", val.Val, err)
		}
		return engine.IntField{Value: n}, nil
	}
	return nil, fmt.Errorf("unsupported literal kind for %s", strings.TrimSpace(string(val.Val)))
}

// literalScan is an Operator replaying a fixed, in-memory slice of
// tuples; it feeds InsertOp the rows parsed out of an INSERT statement.
type literalScan struct {
	desc   *engine.TupleDesc
	tuples []*engine.Tuple
}

func (l *literalScan) Descriptor() *engine.TupleDesc { return l.desc }

func (l *literalScan) Iterator(tid engine.TransactionID) (func() (*engine.Tuple, error), error) {
	idx := 0
	return func() (*engine.Tuple, error) {
		if idx >= len(l.tuples) {
			return nil, nil
		}
		t := l.tuples[idx]
		idx++
		return t, nil
	}, nil
}
