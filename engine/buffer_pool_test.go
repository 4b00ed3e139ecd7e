package engine

import (
	"path/filepath"
	"testing"
)

func bufferPoolTestDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: "x", Ftype: IntType}}}
}

func makeBufferPoolTestFile(t *testing.T, bp *BufferPool) *HeapFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bp.dat")
	hf, err := NewHeapFile(path, bufferPoolTestDesc(), bp)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	return hf
}

func TestBufferPoolEvictsOnlyCleanPages(t *testing.T) {
	SetPageSize(128)
	defer SetPageSize(4096)

	bp, err := NewBufferPool(1)
	if err != nil {
		t.Fatalf("NewBufferPool: %v", err)
	}
	hfA := makeBufferPoolTestFile(t, bp)
	hfB := makeBufferPoolTestFile(t, bp)

	// Seed hfB with a committed page so it exists on disk before the
	// eviction race below tries to read it.
	seedTid := NewTID()
	bp.BeginTransaction(seedTid)
	seed := &Tuple{Desc: *bufferPoolTestDesc(), Fields: []DBValue{IntField{Value: 0}}}
	if err := bp.InsertTuple(seedTid, hfB, seed); err != nil {
		t.Fatalf("seeding hfB: %v", err)
	}
	bp.CommitTransaction(seedTid)

	tid := NewTID()
	bp.BeginTransaction(tid)

	dirty := &Tuple{Desc: *bufferPoolTestDesc(), Fields: []DBValue{IntField{Value: 1}}}
	if err := bp.InsertTuple(tid, hfA, dirty); err != nil {
		t.Fatalf("InsertTuple into hfA: %v", err)
	}

	// hfA's page is now dirty and cached; with capacity 1, fetching a
	// page from hfB must evict something, but NO-STEAL forbids evicting
	// hfA's dirty page, so it should fail with BufferPoolFullError.
	if _, err := bp.GetPage(tid, hfB, 0, ReadPerm); err == nil {
		t.Fatalf("expected BufferPoolFullError when the only evictable page is dirty")
	} else if godbErr, ok := err.(GoDBError); !ok || godbErr.Kind != BufferPoolFullError {
		t.Fatalf("expected BufferPoolFullError, got %v", err)
	}

	bp.CommitTransaction(tid)

	// After commit, hfA's page is clean and can be evicted to make room.
	tid2 := NewTID()
	bp.BeginTransaction(tid2)
	if _, err := bp.GetPage(tid2, hfB, 0, ReadPerm); err != nil {
		t.Fatalf("expected hfB's page to load after hfA's clean page was evicted: %v", err)
	}
	bp.CommitTransaction(tid2)
}

func TestBufferPoolCommitPersistsWrites(t *testing.T) {
	bp, err := NewBufferPool(10)
	if err != nil {
		t.Fatalf("NewBufferPool: %v", err)
	}
	hf := makeBufferPoolTestFile(t, bp)

	tid := NewTID()
	bp.BeginTransaction(tid)
	tup := &Tuple{Desc: *bufferPoolTestDesc(), Fields: []DBValue{IntField{Value: 7}}}
	if err := bp.InsertTuple(tid, hf, tup); err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	bp.CommitTransaction(tid)

	// A fresh buffer pool reading the same backing file should see the
	// committed row.
	bp2, err := NewBufferPool(10)
	if err != nil {
		t.Fatalf("NewBufferPool: %v", err)
	}
	hf2, err := NewHeapFile(hf.BackingFile(), bufferPoolTestDesc(), bp2)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}

	tid2 := NewTID()
	bp2.BeginTransaction(tid2)
	iter, err := hf2.Iterator(tid2)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	got, err := iter()
	if err != nil {
		t.Fatalf("iterator: %v", err)
	}
	if got == nil || got.Fields[0].(IntField).Value != 7 {
		t.Errorf("expected the committed row to be visible after reopening the file")
	}
	bp2.CommitTransaction(tid2)
}

func TestBufferPoolAbortRevertsWrites(t *testing.T) {
	bp, err := NewBufferPool(10)
	if err != nil {
		t.Fatalf("NewBufferPool: %v", err)
	}
	hf := makeBufferPoolTestFile(t, bp)

	seedTid := NewTID()
	bp.BeginTransaction(seedTid)
	seed := &Tuple{Desc: *bufferPoolTestDesc(), Fields: []DBValue{IntField{Value: 1}}}
	if err := bp.InsertTuple(seedTid, hf, seed); err != nil {
		t.Fatalf("seed insert: %v", err)
	}
	bp.CommitTransaction(seedTid)

	abortTid := NewTID()
	bp.BeginTransaction(abortTid)
	victim := &Tuple{Desc: *bufferPoolTestDesc(), Fields: []DBValue{IntField{Value: 2}}}
	if err := bp.InsertTuple(abortTid, hf, victim); err != nil {
		t.Fatalf("abort-path insert: %v", err)
	}
	bp.AbortTransaction(abortTid)

	readTid := NewTID()
	bp.BeginTransaction(readTid)
	iter, err := hf.Iterator(readTid)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	count := 0
	var values []int64
	for {
		tup, err := iter()
		if err != nil {
			t.Fatalf("iterator: %v", err)
		}
		if tup == nil {
			break
		}
		count++
		values = append(values, tup.Fields[0].(IntField).Value)
	}
	bp.CommitTransaction(readTid)

	if count != 1 || values[0] != 1 {
		t.Errorf("expected only the committed row to survive an abort, got %v", values)
	}
}
