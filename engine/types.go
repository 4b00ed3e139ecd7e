package engine

// PageSize is the size in bytes of every page in every HeapFile. It is a
// package variable rather than a constant so tests can shrink it to
// exercise multi-page behavior without gigabyte-sized fixtures; production
// code should treat it as fixed once any file has been created.
var PageSize int = 4096

// StringLength is the fixed on-disk byte length of a StringField,
// including NUL padding.
var StringLength int = 128

// SetPageSize overrides PageSize. Test-only: changing it after any
// HeapFile/BufferPool has been constructed produces inconsistent page
// images.
func SetPageSize(size int) {
	PageSize = size
}

// DBType is the type tag of a tuple field.
type DBType int

const (
	IntType DBType = iota
	StringType
	// UnknownType is used internally during parsing, when a field's type
	// has not yet been resolved against a schema.
	UnknownType
)

func (t DBType) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	}
	return "unknown"
}

// byteLength returns the fixed on-disk size of a field of this type.
func (t DBType) byteLength() int {
	switch t {
	case IntType:
		return 4
	case StringType:
		return 4 + StringLength
	}
	return 0
}

// BoolOp is a comparison operator usable in a predicate.
type BoolOp int

const (
	OpEq BoolOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op BoolOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	}
	return "?"
}

// DBValue is an immutable, comparable tuple field value: an IntField or a
// StringField.
type DBValue interface {
	EvalPred(other DBValue, op BoolOp) bool
}

// IntField is a 4-byte signed integer field.
type IntField struct {
	Value int64
}

// EvalPred compares this field against other using op. Comparing across
// field kinds always evaluates false.
func (f IntField) EvalPred(other DBValue, op BoolOp) bool {
	o, ok := other.(IntField)
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return f.Value == o.Value
	case OpNe:
		return f.Value != o.Value
	case OpLt:
		return f.Value < o.Value
	case OpLe:
		return f.Value <= o.Value
	case OpGt:
		return f.Value > o.Value
	case OpGe:
		return f.Value >= o.Value
	}
	return false
}

// StringField is a fixed-length, NUL-padded UTF-8 string field.
type StringField struct {
	Value string
}

func (f StringField) EvalPred(other DBValue, op BoolOp) bool {
	o, ok := other.(StringField)
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return f.Value == o.Value
	case OpNe:
		return f.Value != o.Value
	case OpLt:
		return f.Value < o.Value
	case OpLe:
		return f.Value <= o.Value
	case OpGt:
		return f.Value > o.Value
	case OpGe:
		return f.Value >= o.Value
	}
	return false
}

// FieldType describes one column of a TupleDesc: its name, the table it
// was qualified with (if any, as set by the parser), and its DBType.
type FieldType struct {
	Fname          string
	TableQualifier string
	Ftype          DBType
}

// Page is implemented by heapPage. The buffer pool tracks dirtiness and
// flushes through this interface; HeapFile and BufferPool.markDirtyAndCache
// assert to *heapPage where they need its slots or its id.
type Page interface {
	isDirty() bool
	setDirty(tid TransactionID, dirty bool)
	dirtyTid() (TransactionID, bool)
	getFile() DBFile
	pageData() []byte
}

// DBFile is implemented by HeapFile. Operators and the buffer pool only
// interact with on-disk tables through this interface, which keeps the
// storage format substitutable even though HeapFile is the only
// implementation today, since every operator in this package is written
// against the interface rather than the concrete type.
type DBFile interface {
	Descriptor() *TupleDesc
	insertTuple(t *Tuple, tid TransactionID) ([]Page, error)
	deleteTuple(t *Tuple, tid TransactionID) ([]Page, error)
	Iterator(tid TransactionID) (func() (*Tuple, error), error)
	pageKey(pageNo int) PageID
	readPage(pageNo int) (Page, error)
	flushPage(p Page) error
	ID() int
}

// Operator is a pull iterator over tuples: the sole interface the
// (out-of-scope) planner and CLI use to drive execution.
type Operator interface {
	Descriptor() *TupleDesc
	Iterator(tid TransactionID) (func() (*Tuple, error), error)
}
