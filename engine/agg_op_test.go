package engine

import "testing"

func salesOp() *sliceOp {
	desc := &TupleDesc{Fields: []FieldType{
		{Fname: "region", Ftype: StringType},
		{Fname: "amount", Ftype: IntType},
	}}
	return &sliceOp{desc: desc, tuples: []*Tuple{
		{Desc: *desc, Fields: []DBValue{StringField{Value: "east"}, IntField{Value: 10}}},
		{Desc: *desc, Fields: []DBValue{StringField{Value: "east"}, IntField{Value: 30}}},
		{Desc: *desc, Fields: []DBValue{StringField{Value: "west"}, IntField{Value: 5}}},
	}}
}

func TestAggregatorSumNoGroupBy(t *testing.T) {
	sum := &SumAggState{}
	amount := NewFieldExpr(FieldType{Fname: "amount", Ftype: IntType})
	if err := sum.Init("total", amount); err != nil {
		t.Fatalf("Init: %v", err)
	}

	agg := NewAggregator([]AggState{sum}, nil, salesOp())
	iter, err := agg.Iterator(0)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	tup, err := iter()
	if err != nil {
		t.Fatalf("iterator: %v", err)
	}
	if tup == nil || tup.Fields[0].(IntField).Value != 45 {
		t.Errorf("expected a total of 45, got %+v", tup)
	}
	if next, _ := iter(); next != nil {
		t.Errorf("expected exactly one output row with no group-by")
	}
}

func TestAggregatorCountGroupByRegion(t *testing.T) {
	region := NewFieldExpr(FieldType{Fname: "region", Ftype: StringType})
	count := &CountAggState{}
	if err := count.Init("n", region); err != nil {
		t.Fatalf("Init: %v", err)
	}

	agg := NewAggregator([]AggState{count}, []Expr{region}, salesOp())
	iter, err := agg.Iterator(0)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}

	got := map[string]int64{}
	for {
		tup, err := iter()
		if err != nil {
			t.Fatalf("iterator: %v", err)
		}
		if tup == nil {
			break
		}
		region := tup.Fields[0].(StringField).Value
		n := tup.Fields[1].(IntField).Value
		got[region] = n
	}

	if got["east"] != 2 || got["west"] != 1 {
		t.Errorf("unexpected group counts: %v", got)
	}
}

func TestAggregatorMaxGroupByRegion(t *testing.T) {
	region := NewFieldExpr(FieldType{Fname: "region", Ftype: StringType})
	amount := NewFieldExpr(FieldType{Fname: "amount", Ftype: IntType})
	max := &MaxAggState{}
	if err := max.Init("maxAmount", amount); err != nil {
		t.Fatalf("Init: %v", err)
	}

	agg := NewAggregator([]AggState{max}, []Expr{region}, salesOp())
	iter, err := agg.Iterator(0)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}

	got := map[string]int64{}
	for {
		tup, err := iter()
		if err != nil {
			t.Fatalf("iterator: %v", err)
		}
		if tup == nil {
			break
		}
		got[tup.Fields[0].(StringField).Value] = tup.Fields[1].(IntField).Value
	}

	if got["east"] != 30 || got["west"] != 5 {
		t.Errorf("unexpected group maxima: %v", got)
	}
}
