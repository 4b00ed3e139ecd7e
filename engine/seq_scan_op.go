package engine

// SeqScan is a full-table scan operator: it wraps a DBFile's Iterator
// as an Operator, optionally tagging every emitted tuple's descriptor
// with a table alias (so joins over two scans of the same table can
// disambiguate field references).
type SeqScan struct {
	file  DBFile
	alias string
	desc  *TupleDesc
}

// NewSeqScan constructs a scan of file, qualifying its output fields
// with alias (pass the empty string for no qualifier).
func NewSeqScan(file DBFile, alias string) *SeqScan {
	desc := file.Descriptor().copy()
	if alias != "" {
		desc.setTableAlias(alias)
	}
	return &SeqScan{file: file, alias: alias, desc: desc}
}

func (s *SeqScan) Descriptor() *TupleDesc {
	return s.desc
}

func (s *SeqScan) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	inner, err := s.file.Iterator(tid)
	if err != nil {
		return nil, err
	}
	desc := *s.desc
	return func() (*Tuple, error) {
		t, err := inner()
		if err != nil || t == nil {
			return t, err
		}
		t.Desc = desc
		return t, nil
	}, nil
}
