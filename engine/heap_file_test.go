package engine

import (
	"path/filepath"
	"testing"
)

func heapFileTestDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{
		{Fname: "name", Ftype: StringType},
		{Fname: "age", Ftype: IntType},
	}}
}

func makeHeapFileTestVars(t *testing.T) (*HeapFile, *BufferPool, TransactionID) {
	t.Helper()
	bp, err := NewBufferPool(25)
	if err != nil {
		t.Fatalf("NewBufferPool: %v", err)
	}
	path := filepath.Join(t.TempDir(), "people.dat")
	hf, err := NewHeapFile(path, heapFileTestDesc(), bp)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	tid := NewTID()
	if err := bp.BeginTransaction(tid); err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	return hf, bp, tid
}

func TestHeapFileInsertAndIterate(t *testing.T) {
	hf, bp, tid := makeHeapFileTestVars(t)

	names := []string{"josie", "annie", "sam"}
	for i, name := range names {
		tup := &Tuple{Desc: *heapFileTestDesc(), Fields: []DBValue{StringField{Value: name}, IntField{Value: int64(i)}}}
		if err := bp.InsertTuple(tid, hf, tup); err != nil {
			t.Fatalf("InsertTuple: %v", err)
		}
	}
	bp.CommitTransaction(tid)

	readTid := NewTID()
	bp.BeginTransaction(readTid)
	iter, err := hf.Iterator(readTid)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	count := 0
	for {
		tup, err := iter()
		if err != nil {
			t.Fatalf("iterator: %v", err)
		}
		if tup == nil {
			break
		}
		count++
	}
	bp.CommitTransaction(readTid)
	if count != len(names) {
		t.Errorf("expected %d tuples, got %d", len(names), count)
	}
}

func TestHeapFileSpansMultiplePages(t *testing.T) {
	SetPageSize(256)
	defer SetPageSize(4096)

	hf, bp, tid := makeHeapFileTestVars(t)

	// A 136-byte row leaves room for one slot per 256-byte page, and every
	// page stays dirty until the single commit, so n must stay within the
	// buffer pool's 25 pages.
	const n = 20
	for i := 0; i < n; i++ {
		tup := &Tuple{Desc: *heapFileTestDesc(), Fields: []DBValue{StringField{Value: "row"}, IntField{Value: int64(i)}}}
		if err := bp.InsertTuple(tid, hf, tup); err != nil {
			t.Fatalf("InsertTuple %d: %v", i, err)
		}
	}
	bp.CommitTransaction(tid)

	if hf.NumPages() < 2 {
		t.Errorf("expected inserting %d rows into a 256-byte-page file to span multiple pages, got %d", n, hf.NumPages())
	}

	readTid := NewTID()
	bp.BeginTransaction(readTid)
	iter, err := hf.Iterator(readTid)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	count := 0
	for {
		tup, err := iter()
		if err != nil {
			t.Fatalf("iterator: %v", err)
		}
		if tup == nil {
			break
		}
		count++
	}
	bp.CommitTransaction(readTid)
	if count != n {
		t.Errorf("expected %d tuples back out, got %d", n, count)
	}
}

func TestHeapFileDeleteThenReinsertReusesSlot(t *testing.T) {
	hf, bp, tid := makeHeapFileTestVars(t)

	tup := &Tuple{Desc: *heapFileTestDesc(), Fields: []DBValue{StringField{Value: "josie"}, IntField{Value: 20}}}
	if err := bp.InsertTuple(tid, hf, tup); err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	bp.CommitTransaction(tid)

	delTid := NewTID()
	bp.BeginTransaction(delTid)
	if err := bp.DeleteTuple(delTid, hf, tup); err != nil {
		t.Fatalf("DeleteTuple: %v", err)
	}
	bp.CommitTransaction(delTid)

	pagesAfterDelete := hf.NumPages()

	reinsertTid := NewTID()
	bp.BeginTransaction(reinsertTid)
	newTup := &Tuple{Desc: *heapFileTestDesc(), Fields: []DBValue{StringField{Value: "annie"}, IntField{Value: 17}}}
	if err := bp.InsertTuple(reinsertTid, hf, newTup); err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	bp.CommitTransaction(reinsertTid)

	if hf.NumPages() != pagesAfterDelete {
		t.Errorf("expected reinsertion to reuse the freed slot instead of allocating a new page")
	}
}
