package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// HeapFile is an unordered collection of tuples backed by a file on
// disk, whose length is always a multiple of PageSize. Page k occupies
// bytes [k*PageSize, (k+1)*PageSize).
type HeapFile struct {
	backingFile string
	id          int
	tupleDesc   *TupleDesc
	bufPool     *BufferPool

	// allocMu serializes new-page allocation: two concurrent inserts
	// that both find no free slot must not both append a page.
	allocMu sync.Mutex
}

// NewHeapFile returns a HeapFile backed by fromFile with schema td,
// caching pages in bp. It does not touch the file; the first page read
// or write creates it if it is missing. The table id is derived deterministically from
// fromFile's absolute path, so restarts of the same file agree on it.
func NewHeapFile(fromFile string, td *TupleDesc, bp *BufferPool) (*HeapFile, error) {
	f := &HeapFile{
		backingFile: fromFile,
		id:          tableIDFromPath(fromFile),
		tupleDesc:   td,
		bufPool:     bp,
	}
	return f, nil
}

// ID returns this file's table id.
func (f *HeapFile) ID() int {
	return f.id
}

// BackingFile returns the path supplied to NewHeapFile.
func (f *HeapFile) BackingFile() string {
	return f.backingFile
}

// NumPages returns fileLength / PageSize. File length is always an
// exact multiple of PageSize since pages are only ever appended whole.
func (f *HeapFile) NumPages() int {
	info, err := os.Stat(f.backingFile)
	if err != nil {
		return 0
	}
	return int(info.Size() / int64(PageSize))
}

// Descriptor returns this file's schema.
func (f *HeapFile) Descriptor() *TupleDesc {
	return f.tupleDesc
}

func (f *HeapFile) pageKey(pageNo int) PageID {
	return PageID{TableID: f.id, PageNumber: pageNo}
}

// readPage reads page pageNo directly from disk (bypassing the buffer
// pool), for use by BufferPool on a cache miss. Returns PageOutOfRangeError
// if the file does not have that many bytes.
func (f *HeapFile) readPage(pageNo int) (Page, error) {
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, newIOError("opening heap file", err)
	}
	defer file.Close()

	offset := int64(pageNo) * int64(PageSize)
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, newIOError("seeking to page", err)
	}

	data := make([]byte, PageSize)
	n, err := io.ReadFull(file, data)
	if err != nil || n != PageSize {
		return nil, GoDBError{Kind: PageOutOfRangeError, Message: fmt.Sprintf("page %d is out of range", pageNo), Wrapped: err}
	}

	return newHeapPageFromBuffer(f.tupleDesc, f.pageKey(pageNo), f, data)
}

// flushPage writes p back to its position in the backing file. Called
// by the buffer pool on commit and from FlushAllPages.
func (f *HeapFile) flushPage(p Page) error {
	hp, ok := p.(*heapPage)
	if !ok {
		return GoDBError{Kind: TypeMismatchError, Message: "flushPage given a non-heap page"}
	}
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return newIOError("opening heap file", err)
	}
	defer file.Close()

	offset := int64(hp.id.PageNumber) * int64(PageSize)
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return newIOError("seeking to page", err)
	}
	if _, err := file.Write(hp.pageData()); err != nil {
		return newIOError("writing page", err)
	}
	return nil
}

// appendEmptyPage extends the file by one empty page and returns its
// page number. Must be called with allocMu held.
func (f *HeapFile) appendEmptyPage() (int, error) {
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return 0, newIOError("opening heap file", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, newIOError("stat heap file", err)
	}
	pageNo := int(info.Size() / int64(PageSize))
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return 0, newIOError("seeking to end of file", err)
	}
	if _, err := file.Write(emptyPageData()); err != nil {
		return 0, newIOError("extending heap file", err)
	}
	return pageNo, nil
}

// insertTuple finds a page with a free slot, or allocates a new one,
// and inserts t there. Candidate pages are first probed READ_ONLY
// (cheap, allows concurrent probing), then the probe lock is released
// and the page is re-acquired READ_WRITE before the actual insert,
// since numEmptySlots may have changed between the probe and the write
// lock being granted.
func (f *HeapFile) insertTuple(t *Tuple, tid TransactionID) ([]Page, error) {
	if !t.Desc.equals(f.tupleDesc) {
		return nil, GoDBError{Kind: SchemaMismatchError, Message: "tuple descriptor does not match file descriptor"}
	}

	numPages := f.NumPages()
	for pageNo := 0; pageNo < numPages; pageNo++ {
		pid := f.pageKey(pageNo)
		probe, err := f.bufPool.GetPage(tid, f, pageNo, ReadPerm)
		if err != nil {
			return nil, err
		}
		hp := probe.(*heapPage)
		hasRoom := hp.numEmptySlots() > 0
		f.bufPool.unsafeReleasePage(tid, pid)
		if !hasRoom {
			continue
		}

		page, err := f.bufPool.GetPage(tid, f, pageNo, WritePerm)
		if err != nil {
			return nil, err
		}
		hp = page.(*heapPage)
		if hp.numEmptySlots() == 0 {
			// Lost the race to another inserter between probe and
			// write-lock acquisition; keep scanning.
			continue
		}
		if _, err := hp.insertTuple(t); err != nil {
			return nil, err
		}
		return []Page{hp}, nil
	}

	return f.insertIntoNewPage(t, tid)
}

func (f *HeapFile) insertIntoNewPage(t *Tuple, tid TransactionID) ([]Page, error) {
	f.allocMu.Lock()
	defer f.allocMu.Unlock()

	// Re-check: another transaction may have appended a page with room
	// while we waited for allocMu, or already extended the file.
	numPages := f.NumPages()
	for pageNo := 0; pageNo < numPages; pageNo++ {
		page, err := f.bufPool.GetPage(tid, f, pageNo, WritePerm)
		if err != nil {
			return nil, err
		}
		hp := page.(*heapPage)
		if hp.numEmptySlots() > 0 {
			if _, err := hp.insertTuple(t); err != nil {
				return nil, err
			}
			return []Page{hp}, nil
		}
		f.bufPool.unsafeReleasePage(tid, f.pageKey(pageNo))
	}

	pageNo, err := f.appendEmptyPage()
	if err != nil {
		return nil, err
	}
	page, err := f.bufPool.GetPage(tid, f, pageNo, WritePerm)
	if err != nil {
		return nil, err
	}
	hp := page.(*heapPage)
	if _, err := hp.insertTuple(t); err != nil {
		return nil, err
	}
	return []Page{hp}, nil
}

// deleteTuple removes t, identified by its RecordID, from this file.
func (f *HeapFile) deleteTuple(t *Tuple, tid TransactionID) ([]Page, error) {
	if t.Rid == nil {
		return nil, GoDBError{Kind: NotFoundError, Message: "tuple has no record id"}
	}
	if t.Rid.PageID.TableID != f.id {
		return nil, GoDBError{Kind: NotFoundError, Message: "tuple does not belong to this file"}
	}
	page, err := f.bufPool.GetPage(tid, f, t.Rid.PageID.PageNumber, WritePerm)
	if err != nil {
		return nil, err
	}
	hp := page.(*heapPage)
	if err := hp.deleteTuple(t); err != nil {
		return nil, err
	}
	return []Page{hp}, nil
}

// Iterator returns a function yielding every tuple in the file, walking
// pages 0..NumPages()-1 and acquiring ReadPerm on each through the
// buffer pool.
func (f *HeapFile) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	pageNo := 0
	var inner func() (*Tuple, error)

	var next func() (*Tuple, error)
	next = func() (*Tuple, error) {
		for {
			if inner == nil {
				if pageNo >= f.NumPages() {
					return nil, nil
				}
				page, err := f.bufPool.GetPage(tid, f, pageNo, ReadPerm)
				if err != nil {
					return nil, err
				}
				inner = page.(*heapPage).tupleIter()
			}
			tup, err := inner()
			if err != nil {
				return nil, err
			}
			if tup == nil {
				inner = nil
				pageNo++
				continue
			}
			tup.Desc = *f.tupleDesc
			return tup, nil
		}
	}
	return next, nil
}

// LoadFromCSV populates the file from a delimited text file. hasHeader
// skips the first line; skipLastField drops a trailing empty column
// some TPC-style datasets leave from a trailing separator.
func (f *HeapFile) LoadFromCSV(file *os.File, hasHeader bool, sep string, skipLastField bool) error {
	scanner := bufio.NewScanner(file)
	lineNo := 0
	tid := NewTID()
	if err := f.bufPool.BeginTransaction(tid); err != nil {
		return err
	}
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Split(line, sep)
		if skipLastField {
			fields = fields[:len(fields)-1]
		}
		lineNo++
		if lineNo == 1 && hasHeader {
			continue
		}
		if len(fields) != len(f.tupleDesc.Fields) {
			f.bufPool.AbortTransaction(tid)
			return GoDBError{Kind: MalformedDataError, Message: fmt.Sprintf("line %d (%s): expected %d fields, got %d", lineNo, line, len(f.tupleDesc.Fields), len(fields))}
		}
		values := make([]DBValue, len(fields))
		for i, raw := range fields {
			switch f.tupleDesc.Fields[i].Ftype {
			case IntType:
				trimmed := strings.TrimSpace(raw)
				v, err := strconv.ParseInt(trimmed, 10, 64)
				if err != nil {
					f.bufPool.AbortTransaction(tid)
					return GoDBError{Kind: TypeMismatchError, Message: fmt.Sprintf("line %d: cannot convert %q to int", lineNo, raw)}
				}
				values[i] = IntField{Value: v}
			case StringType:
				if len(raw) > StringLength {
					raw = raw[:StringLength]
				}
				values[i] = StringField{Value: raw}
			}
		}
		newTuple := &Tuple{Desc: *f.tupleDesc, Fields: values}
		if err := f.bufPool.InsertTuple(tid, f, newTuple); err != nil {
			f.bufPool.AbortTransaction(tid)
			return err
		}
	}
	f.bufPool.CommitTransaction(tid)
	return nil
}
