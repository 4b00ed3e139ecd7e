package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// RecordID identifies a tuple's coordinates on disk: the page it lives on
// and its slot index within that page's slot array. Equality is
// structural.
type RecordID struct {
	PageID  PageID
	SlotNum int
}

// TupleDesc is the schema of a row: an ordered sequence of fields. A
// TupleDesc always has at least one field once constructed by NewTupleDesc.
type TupleDesc struct {
	Fields []FieldType
}

// NewTupleDesc builds a TupleDesc, returning an error if fields is empty;
// a schema needs at least one field.
func NewTupleDesc(fields []FieldType) (*TupleDesc, error) {
	if len(fields) == 0 {
		return nil, GoDBError{Kind: SchemaMismatchError, Message: "a TupleDesc needs at least one field"}
	}
	return &TupleDesc{Fields: fields}, nil
}

// equals compares two descriptors by type sequence only; field names are
// ignored.
func (d1 *TupleDesc) equals(d2 *TupleDesc) bool {
	if d2 == nil || len(d1.Fields) != len(d2.Fields) {
		return false
	}
	for i := range d1.Fields {
		if d1.Fields[i].Ftype != d2.Fields[i].Ftype {
			return false
		}
	}
	return true
}

// findFieldByName returns the index of the first field named name.
func (td *TupleDesc) findFieldByName(name string) (int, error) {
	for i, f := range td.Fields {
		if f.Fname == name {
			return i, nil
		}
	}
	return -1, GoDBError{Kind: IncompatibleTypesError, Message: fmt.Sprintf("field %s not found", name)}
}

// findFieldInTd finds the best matching field in desc for field: a match
// requires the same name and a compatible type, preferring a match on
// TableQualifier when field specifies one. This lets an unqualified
// column reference resolve against a joined descriptor as long as it
// isn't ambiguous.
func findFieldInTd(field FieldType, desc *TupleDesc) (int, error) {
	best := -1
	for i, f := range desc.Fields {
		if f.Fname != field.Fname {
			continue
		}
		if f.Ftype != field.Ftype && field.Ftype != UnknownType {
			continue
		}
		if field.TableQualifier == "" && best != -1 {
			return 0, GoDBError{Kind: AmbiguousNameError, Message: fmt.Sprintf("select name %s is ambiguous", f.Fname)}
		}
		if f.TableQualifier == field.TableQualifier || best == -1 {
			best = i
		}
	}
	if best != -1 {
		return best, nil
	}
	return -1, GoDBError{Kind: IncompatibleTypesError, Message: fmt.Sprintf("field %s.%s not found", field.TableQualifier, field.Fname)}
}

func (td *TupleDesc) copy() *TupleDesc {
	fields := make([]FieldType, len(td.Fields))
	copy(fields, td.Fields)
	return &TupleDesc{Fields: fields}
}

func (td *TupleDesc) setTableAlias(alias string) {
	fields := make([]FieldType, len(td.Fields))
	copy(fields, td.Fields)
	for i := range fields {
		fields[i].TableQualifier = alias
	}
	td.Fields = fields
}

// merge returns a new TupleDesc consisting of desc's fields followed by
// desc2's fields.
func (desc *TupleDesc) merge(desc2 *TupleDesc) *TupleDesc {
	fields := make([]FieldType, 0, len(desc.Fields)+len(desc2.Fields))
	fields = append(fields, desc.Fields...)
	fields = append(fields, desc2.Fields...)
	return &TupleDesc{Fields: fields}
}

// tupleSize is the fixed on-disk byte length of a row matching this
// descriptor: the sum of each field's byte length.
func (td *TupleDesc) tupleSize() int {
	size := 0
	for _, f := range td.Fields {
		size += f.Ftype.byteLength()
	}
	return size
}

// Tuple is a fixed-size row: a schema, one value per column, and an
// optional RecordID set once the tuple has been placed on a page.
type Tuple struct {
	Desc   TupleDesc
	Fields []DBValue
	Rid    *RecordID
}

func writeIntField(b *bytes.Buffer, f IntField) error {
	return binary.Write(b, binary.BigEndian, int32(f.Value))
}

func writeStringField(b *bytes.Buffer, f StringField) error {
	payload := []byte(f.Value)
	if len(payload) > StringLength {
		payload = payload[:StringLength]
	}
	if err := binary.Write(b, binary.BigEndian, int32(len(payload))); err != nil {
		return err
	}
	padded := make([]byte, StringLength)
	copy(padded, payload)
	_, err := b.Write(padded)
	return err
}

// writeTo serializes the tuple's fields, in field order: big-endian
// 4-byte ints, and 4-byte big-endian length-prefixed, NUL-padded
// strings.
func (t *Tuple) writeTo(b *bytes.Buffer) error {
	for _, field := range t.Fields {
		switch v := field.(type) {
		case IntField:
			if err := writeIntField(b, v); err != nil {
				return err
			}
		case StringField:
			if err := writeStringField(b, v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported field type %T", field)
		}
	}
	return nil
}

func readIntField(b *bytes.Buffer) (IntField, error) {
	var v int32
	if err := binary.Read(b, binary.BigEndian, &v); err != nil {
		return IntField{}, err
	}
	return IntField{Value: int64(v)}, nil
}

func readStringField(b *bytes.Buffer) (StringField, error) {
	var length int32
	if err := binary.Read(b, binary.BigEndian, &length); err != nil {
		return StringField{}, err
	}
	raw := make([]byte, StringLength)
	if _, err := b.Read(raw); err != nil {
		return StringField{}, err
	}
	if int(length) > len(raw) {
		length = int32(len(raw))
	}
	return StringField{Value: strings.TrimRight(string(raw[:length]), "\x00")}, nil
}

// readTupleFrom deserializes one row matching desc from b.
func readTupleFrom(b *bytes.Buffer, desc *TupleDesc) (*Tuple, error) {
	t := &Tuple{Desc: *desc, Fields: make([]DBValue, len(desc.Fields))}
	for i, fd := range desc.Fields {
		switch fd.Ftype {
		case IntType:
			f, err := readIntField(b)
			if err != nil {
				return nil, err
			}
			t.Fields[i] = f
		case StringType:
			f, err := readStringField(b)
			if err != nil {
				return nil, err
			}
			t.Fields[i] = f
		default:
			return nil, GoDBError{Kind: TypeMismatchError, Message: "unknown field type in descriptor"}
		}
	}
	return t, nil
}

// equals reports whether t1 and t2 have equal descriptors and equal
// field values.
func (t1 *Tuple) equals(t2 *Tuple) bool {
	if t1 == nil || t2 == nil {
		return t1 == t2
	}
	if !t1.Desc.equals(&t2.Desc) || len(t1.Fields) != len(t2.Fields) {
		return false
	}
	for i := range t1.Fields {
		if t1.Fields[i] != t2.Fields[i] {
			return false
		}
	}
	return true
}

// joinTuples returns a new tuple with t2's fields appended to t1's,
// and a merged descriptor.
func joinTuples(t1, t2 *Tuple) *Tuple {
	if t1 == nil {
		return t2
	}
	if t2 == nil {
		return t1
	}
	return &Tuple{
		Desc:   *t1.Desc.merge(&t2.Desc),
		Fields: append(append([]DBValue{}, t1.Fields...), t2.Fields...),
	}
}

type orderByState int

const (
	OrderedLessThan orderByState = iota
	OrderedEqual
	OrderedGreaterThan
)

// compareField evaluates field against both tuples and compares the
// results.
func (t *Tuple) compareField(t2 *Tuple, field Expr) (orderByState, error) {
	v1, err := field.EvalExpr(t)
	if err != nil {
		return OrderedEqual, err
	}
	v2, err := field.EvalExpr(t2)
	if err != nil {
		return OrderedEqual, err
	}
	switch {
	case v1.EvalPred(v2, OpLt):
		return OrderedLessThan, nil
	case v1.EvalPred(v2, OpGt):
		return OrderedGreaterThan, nil
	default:
		return OrderedEqual, nil
	}
}

// project returns a new tuple containing only the named fields, in the
// order given. A field match prefers one whose TableQualifier also
// matches.
func (t *Tuple) project(fields []FieldType) (*Tuple, error) {
	out := &Tuple{Desc: TupleDesc{}, Fields: []DBValue{}}
	for _, field := range fields {
		idx := -1
		for i, df := range t.Desc.Fields {
			if df.Fname == field.Fname && df.TableQualifier == field.TableQualifier {
				idx = i
				break
			}
		}
		if idx == -1 {
			for i, df := range t.Desc.Fields {
				if df.Fname == field.Fname {
					idx = i
					break
				}
			}
		}
		if idx == -1 {
			return nil, GoDBError{Kind: IncompatibleTypesError, Message: fmt.Sprintf("field %s.%s not found", field.TableQualifier, field.Fname)}
		}
		out.Fields = append(out.Fields, t.Fields[idx])
		out.Desc.Fields = append(out.Desc.Fields, t.Desc.Fields[idx])
	}
	return out, nil
}

// tupleKey returns a value usable as a map key to detect duplicate rows,
// used by distinct projection.
func (t *Tuple) tupleKey() any {
	var buf bytes.Buffer
	_ = t.writeTo(&buf)
	return buf.String()
}

var winWidth = 120

func fmtCol(v string, ncols int) string {
	colWid := winWidth / ncols
	remLen := colWid - (len(v) + 3)
	if remLen > 0 {
		left := remLen - remLen/2
		return strings.Repeat(" ", left) + v + strings.Repeat(" ", remLen-left) + " |"
	}
	if colWid-4 < 0 || colWid-4 > len(v) {
		return " " + v + " |"
	}
	return " " + v[:colWid-4] + " |"
}

// HeaderString renders a header row for this descriptor, aligned into
// columns when aligned is true, or comma-separated otherwise.
func (d *TupleDesc) HeaderString(aligned bool) string {
	out := ""
	for i, f := range d.Fields {
		name := f.Fname
		if f.TableQualifier != "" {
			name = f.TableQualifier + "." + name
		}
		if aligned {
			out += fmtCol(name, len(d.Fields))
		} else {
			if i > 0 {
				out += ","
			}
			out += name
		}
	}
	return out
}

// PrettyPrintString renders this tuple's values, aligned into columns
// when aligned is true, or comma-separated otherwise.
func (t *Tuple) PrettyPrintString(aligned bool) string {
	out := ""
	for i, f := range t.Fields {
		var s string
		switch v := f.(type) {
		case IntField:
			s = strconv.FormatInt(v.Value, 10)
		case StringField:
			s = v.Value
		}
		if aligned {
			out += fmtCol(s, len(t.Fields))
		} else {
			if i > 0 {
				out += ","
			}
			out += s
		}
	}
	return out
}
