package engine

import (
	"path/filepath"
	"testing"
)

func numbersOp() *sliceOp {
	desc := &TupleDesc{Fields: []FieldType{{Fname: "n", Ftype: IntType}}}
	var tuples []*Tuple
	for _, v := range []int64{3, 1, 4, 1, 5} {
		tuples = append(tuples, &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: v}}})
	}
	return &sliceOp{desc: desc, tuples: tuples}
}

func drainInts(t *testing.T, iter func() (*Tuple, error)) []int64 {
	t.Helper()
	var out []int64
	for {
		tup, err := iter()
		if err != nil {
			t.Fatalf("iterator: %v", err)
		}
		if tup == nil {
			return out
		}
		out = append(out, tup.Fields[0].(IntField).Value)
	}
}

func TestFilterKeepsMatchingRows(t *testing.T) {
	nExpr := NewFieldExpr(FieldType{Fname: "n", Ftype: IntType})
	threshold := NewConstExpr(IntField{Value: 2}, IntType)
	f, err := NewFilter(nExpr, OpGt, threshold, numbersOp())
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	iter, err := f.Iterator(0)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	got := drainInts(t, iter)
	want := []int64{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
}

func TestLimitCapsOutput(t *testing.T) {
	limit := NewLimitOp(NewConstExpr(IntField{Value: 2}, IntType), numbersOp())
	iter, err := limit.Iterator(0)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	got := drainInts(t, iter)
	if len(got) != 2 {
		t.Errorf("expected 2 rows, got %v", got)
	}
}

func TestOrderByAscendingAndDescending(t *testing.T) {
	nExpr := NewFieldExpr(FieldType{Fname: "n", Ftype: IntType})

	asc, err := NewOrderBy([]Expr{nExpr}, numbersOp(), []bool{true})
	if err != nil {
		t.Fatalf("NewOrderBy: %v", err)
	}
	iter, err := asc.Iterator(0)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	got := drainInts(t, iter)
	want := []int64{1, 1, 3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ascending sort: got %v, want %v", got, want)
		}
	}

	desc, err := NewOrderBy([]Expr{nExpr}, numbersOp(), []bool{false})
	if err != nil {
		t.Fatalf("NewOrderBy: %v", err)
	}
	iter2, err := desc.Iterator(0)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	got2 := drainInts(t, iter2)
	wantDesc := []int64{5, 4, 3, 1, 1}
	for i := range wantDesc {
		if got2[i] != wantDesc[i] {
			t.Fatalf("descending sort: got %v, want %v", got2, wantDesc)
		}
	}
}

func TestProjectDistinct(t *testing.T) {
	desc := &TupleDesc{Fields: []FieldType{{Fname: "parity", Ftype: IntType}}}
	var tuples []*Tuple
	for _, v := range []int64{0, 1, 0, 1, 0} {
		tuples = append(tuples, &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: v}}})
	}
	child := &sliceOp{desc: desc, tuples: tuples}

	parity := NewFieldExpr(FieldType{Fname: "parity", Ftype: IntType})
	proj, err := NewProjectOp([]Expr{parity}, []string{"parity"}, true, child)
	if err != nil {
		t.Fatalf("NewProjectOp: %v", err)
	}
	iter, err := proj.Iterator(0)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	got := drainInts(t, iter)
	if len(got) != 2 {
		t.Errorf("expected distinct projection to collapse to 2 rows, got %v", got)
	}
}

func TestInsertAndDeleteOpsRouteThroughBufferPool(t *testing.T) {
	bp, err := NewBufferPool(10)
	if err != nil {
		t.Fatalf("NewBufferPool: %v", err)
	}
	desc := &TupleDesc{Fields: []FieldType{{Fname: "n", Ftype: IntType}}}
	path := filepath.Join(t.TempDir(), "ins.dat")
	hf, err := NewHeapFile(path, desc, bp)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}

	source := &sliceOp{desc: desc, tuples: []*Tuple{
		{Desc: *desc, Fields: []DBValue{IntField{Value: 1}}},
		{Desc: *desc, Fields: []DBValue{IntField{Value: 2}}},
	}}

	insertTid := NewTID()
	bp.BeginTransaction(insertTid)
	insertOp := NewInsertOp(bp, hf, source)
	iter, err := insertOp.Iterator(insertTid)
	if err != nil {
		t.Fatalf("InsertOp.Iterator: %v", err)
	}
	result, err := iter()
	if err != nil {
		t.Fatalf("InsertOp iterator: %v", err)
	}
	if result == nil || result.Fields[0].(IntField).Value != 2 {
		t.Fatalf("expected an insert count of 2, got %+v", result)
	}
	bp.CommitTransaction(insertTid)

	scanTid := NewTID()
	bp.BeginTransaction(scanTid)
	scanIter, err := hf.Iterator(scanTid)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	var rows []*Tuple
	for {
		tup, err := scanIter()
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if tup == nil {
			break
		}
		rows = append(rows, tup)
	}
	bp.CommitTransaction(scanTid)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after insert, got %d", len(rows))
	}

	deleteTid := NewTID()
	bp.BeginTransaction(deleteTid)
	toDelete := &sliceOp{desc: desc, tuples: rows[:1]}
	deleteOp := NewDeleteOp(bp, hf, toDelete)
	delIter, err := deleteOp.Iterator(deleteTid)
	if err != nil {
		t.Fatalf("DeleteOp.Iterator: %v", err)
	}
	delResult, err := delIter()
	if err != nil {
		t.Fatalf("DeleteOp iterator: %v", err)
	}
	if delResult == nil || delResult.Fields[0].(IntField).Value != 1 {
		t.Fatalf("expected a delete count of 1, got %+v", delResult)
	}
	bp.CommitTransaction(deleteTid)

	finalTid := NewTID()
	bp.BeginTransaction(finalTid)
	finalIter, err := hf.Iterator(finalTid)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	remaining := drainInts(t, finalIter)
	bp.CommitTransaction(finalTid)
	if len(remaining) != 1 {
		t.Errorf("expected 1 row remaining after delete, got %v", remaining)
	}
}
