package engine

import (
	"os"
)

// LoadCSVAndSumField loads the comma-delimited, header-having CSV file
// named fileName into a fresh heap file backed by backingFile (created
// if it doesn't already exist; any existing contents are discarded
// first), using td as the table's schema, and returns the sum of the
// integer-typed column named sumField across every loaded row.
//
// It returns an error if fileName can't be opened, sumField doesn't
// name a column of td, or that column isn't an integer.
func LoadCSVAndSumField(bp *BufferPool, backingFile string, fileName string, td TupleDesc, sumField string) (int64, error) {
	os.Remove(backingFile)
	heapFile, err := NewHeapFile(backingFile, &td, bp)
	if err != nil {
		return 0, err
	}
	index, err := findFieldInTd(FieldType{Fname: sumField, Ftype: UnknownType}, &td)
	if err != nil {
		return 0, err
	}
	if td.Fields[index].Ftype != IntType {
		return 0, GoDBError{Kind: TypeMismatchError, Message: "sum field is not an integer column"}
	}

	file, err := os.Open(fileName)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	if err := heapFile.LoadFromCSV(file, true, ",", false); err != nil {
		return 0, err
	}

	tid := NewTID()
	if err := bp.BeginTransaction(tid); err != nil {
		return 0, err
	}
	iterator, err := heapFile.Iterator(tid)
	if err != nil {
		bp.AbortTransaction(tid)
		return 0, err
	}

	var sum int64
	for {
		t, err := iterator()
		if err != nil {
			bp.AbortTransaction(tid)
			return 0, err
		}
		if t == nil {
			break
		}
		val, ok := t.Fields[index].(IntField)
		if !ok {
			bp.AbortTransaction(tid)
			return 0, GoDBError{Kind: TypeMismatchError, Message: "sum field is not an integer column"}
		}
		sum += val.Value
	}

	bp.CommitTransaction(tid)
	return sum, nil
}
