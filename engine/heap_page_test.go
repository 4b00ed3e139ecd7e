package engine

import (
	"testing"
)

func intPageTestDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{{Fname: "x", Ftype: IntType}}}
}

func TestHeapPageInsertFillsAndRejects(t *testing.T) {
	SetPageSize(128)
	defer SetPageSize(4096)

	desc := intPageTestDesc()
	pid := PageID{TableID: 1, PageNumber: 0}
	page := newHeapPage(desc, pid, nil)

	capacity := page.numSlots()
	if capacity == 0 {
		t.Fatalf("expected a positive slot capacity for a 128-byte page")
	}

	for i := 0; i < capacity; i++ {
		tup := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: int64(i)}}}
		if _, err := page.insertTuple(tup); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if tup.Rid == nil || tup.Rid.SlotNum != i {
			t.Errorf("expected tuple %d to land in slot %d, got %+v", i, i, tup.Rid)
		}
	}

	if page.numEmptySlots() != 0 {
		t.Errorf("expected a full page, got %d empty slots", page.numEmptySlots())
	}

	overflow := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: 999}}}
	if _, err := page.insertTuple(overflow); err == nil {
		t.Errorf("expected PageFullError inserting into a full page")
	}
}

func TestHeapPageDeleteFreesSlot(t *testing.T) {
	SetPageSize(128)
	defer SetPageSize(4096)

	desc := intPageTestDesc()
	pid := PageID{TableID: 1, PageNumber: 0}
	page := newHeapPage(desc, pid, nil)

	tup := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: 42}}}
	if _, err := page.insertTuple(tup); err != nil {
		t.Fatalf("insert: %v", err)
	}
	before := page.numEmptySlots()

	if err := page.deleteTuple(tup); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if page.numEmptySlots() != before+1 {
		t.Errorf("expected one more empty slot after delete")
	}
	if tup.Rid != nil {
		t.Errorf("expected deleteTuple to clear the tuple's Rid")
	}

	if err := page.deleteTuple(tup); err == nil {
		t.Errorf("expected deleting an already-deleted tuple to fail")
	}
}

func TestHeapPageRoundTripsThroughBuffer(t *testing.T) {
	SetPageSize(128)
	defer SetPageSize(4096)

	desc := intPageTestDesc()
	pid := PageID{TableID: 1, PageNumber: 0}
	page := newHeapPage(desc, pid, nil)

	for i := 0; i < 3; i++ {
		tup := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: int64(i * 10)}}}
		if _, err := page.insertTuple(tup); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	// leave a hole in the middle
	hole := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: 1}}, Rid: &RecordID{PageID: pid, SlotNum: 1}}
	if err := page.deleteTuple(hole); err != nil {
		t.Fatalf("delete: %v", err)
	}

	data := page.pageData()
	if len(data) != PageSize {
		t.Fatalf("expected a %d-byte page image, got %d", PageSize, len(data))
	}

	reloaded, err := newHeapPageFromBuffer(desc, pid, nil, data)
	if err != nil {
		t.Fatalf("newHeapPageFromBuffer: %v", err)
	}

	iter := reloaded.tupleIter()
	var values []int64
	for {
		tup, err := iter()
		if err != nil {
			t.Fatalf("tupleIter: %v", err)
		}
		if tup == nil {
			break
		}
		values = append(values, tup.Fields[0].(IntField).Value)
	}
	if len(values) != 2 || values[0] != 0 || values[1] != 20 {
		t.Errorf("unexpected reloaded values: %v", values)
	}
}

func TestNewHeapPageFromBufferRejectsWrongSize(t *testing.T) {
	desc := intPageTestDesc()
	pid := PageID{TableID: 1, PageNumber: 0}
	if _, err := newHeapPageFromBuffer(desc, pid, nil, make([]byte, 10)); err == nil {
		t.Errorf("expected an error parsing a page image of the wrong size")
	}
}
