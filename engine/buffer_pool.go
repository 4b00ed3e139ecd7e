package engine

import (
	"sync"
)

// RWPerm is the permission requested when fetching a page.
type RWPerm int

const (
	ReadPerm RWPerm = iota
	WritePerm
)

// BufferPool is a bounded in-memory cache of pages, keyed directly by
// PageID. It enforces NO-STEAL (a dirty page is never evicted) and
// FORCE (a commit's writes are durable before it returns), and consults
// a LockManager on every page acquisition and on transaction end.
type BufferPool struct {
	mu       sync.Mutex
	numPages int
	pages    map[PageID]Page
	locks    *LockManager

	active map[TransactionID]struct{}
}

// NewBufferPool constructs a BufferPool caching at most numPages pages.
func NewBufferPool(numPages int) (*BufferPool, error) {
	return &BufferPool{
		numPages: numPages,
		pages:    make(map[PageID]Page),
		locks:    NewLockManager(),
		active:   make(map[TransactionID]struct{}),
	}, nil
}

// BeginTransaction registers tid as active. Returns an error if tid is
// already running.
func (bp *BufferPool) BeginTransaction(tid TransactionID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if _, ok := bp.active[tid]; ok {
		return GoDBError{Kind: IOError, Message: "transaction is already running"}
	}
	bp.active[tid] = struct{}{}
	return nil
}

// GetPage retrieves pid from file on behalf of tid, blocking until the
// requested lock is granted (or failing with a DeadlockError if
// granting it would require waiting on a cycle). On a cache miss it
// evicts a clean page if necessary, then loads pid from file.
func (bp *BufferPool) GetPage(tid TransactionID, file DBFile, pageNumber int, perm RWPerm) (Page, error) {
	pid := file.pageKey(pageNumber)

	if err := bp.locks.Acquire(tid, pid, perm); err != nil {
		return nil, err
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	if page, ok := bp.pages[pid]; ok {
		return page, nil
	}

	if len(bp.pages) >= bp.numPages {
		if err := bp.evictLocked(); err != nil {
			return nil, err
		}
	}

	page, err := file.readPage(pageNumber)
	if err != nil {
		return nil, err
	}
	bp.pages[pid] = page
	return page, nil
}

// unsafeReleasePage releases tid's lock on pid without flushing or
// reverting anything. Used only by HeapFile.insertTuple's probe/commit
// two-step: a transaction probes a page READ_ONLY to check for room,
// releases the probe lock, then re-acquires at READ_WRITE to perform
// the actual insert.
func (bp *BufferPool) unsafeReleasePage(tid TransactionID, pid PageID) {
	bp.locks.Release(tid, pid)
}

// evictLocked picks any clean cached page and drops it, releasing its
// locks. Must be called with bp.mu held. Fails with BufferPoolFullError
// if every cached page is dirty, since NO-STEAL forbids evicting a
// dirty page.
func (bp *BufferPool) evictLocked() error {
	for pid, page := range bp.pages {
		if page.isDirty() {
			continue
		}
		delete(bp.pages, pid)
		bp.locks.ReleaseAllOnPage(pid)
		return nil
	}
	return GoDBError{Kind: BufferPoolFullError, Message: "buffer pool is full of dirty pages"}
}

// InsertTuple delegates to file.insertTuple, marks every page it
// touched dirty under tid, and recaches them.
func (bp *BufferPool) InsertTuple(tid TransactionID, file DBFile, t *Tuple) error {
	dirtied, err := file.insertTuple(t, tid)
	if err != nil {
		return err
	}
	bp.markDirtyAndCache(tid, dirtied)
	return nil
}

// DeleteTuple delegates to file.deleteTuple, marks every page it
// touched dirty under tid, and recaches them.
func (bp *BufferPool) DeleteTuple(tid TransactionID, file DBFile, t *Tuple) error {
	dirtied, err := file.deleteTuple(t, tid)
	if err != nil {
		return err
	}
	bp.markDirtyAndCache(tid, dirtied)
	return nil
}

func (bp *BufferPool) markDirtyAndCache(tid TransactionID, pages []Page) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, page := range pages {
		page.setDirty(tid, true)
		if hp, ok := page.(*heapPage); ok {
			bp.pages[hp.id] = page
		}
	}
}

// CommitTransaction flushes every page dirtied by tid through its
// backing file (FORCE: this happens before CommitTransaction returns),
// then releases every lock tid holds.
func (bp *BufferPool) CommitTransaction(tid TransactionID) {
	bp.mu.Lock()
	for _, page := range bp.pages {
		dirtyT, isDirty := page.dirtyTid()
		if !isDirty || dirtyT != tid {
			continue
		}
		if err := page.getFile().flushPage(page); err != nil {
			// CommitTransaction has no error return; a flush failure
			// here leaves the pool in an undefined state. Callers that
			// need a hard failure use FlushAllPages, which does
			// return an error.
			continue
		}
		page.setDirty(0, false)
	}
	bp.mu.Unlock()

	bp.locks.ReleaseAll(tid)
	bp.mu.Lock()
	delete(bp.active, tid)
	bp.mu.Unlock()
}

// AbortTransaction reverts every page dirtied by tid by re-reading it
// from disk (safe and sufficient because NO-STEAL guarantees the disk
// image was never touched by tid's uncommitted writes), then releases
// every lock tid holds.
func (bp *BufferPool) AbortTransaction(tid TransactionID) {
	bp.mu.Lock()
	for pid, page := range bp.pages {
		dirtyT, isDirty := page.dirtyTid()
		if !isDirty || dirtyT != tid {
			continue
		}
		fresh, err := page.getFile().readPage(pid.PageNumber)
		if err != nil {
			continue
		}
		bp.pages[pid] = fresh
	}
	bp.mu.Unlock()

	bp.locks.ReleaseAll(tid)
	bp.mu.Lock()
	delete(bp.active, tid)
	bp.mu.Unlock()
}

// TransactionComplete commits (flush + release) or aborts (revert +
// release) tid.
func (bp *BufferPool) TransactionComplete(tid TransactionID, commit bool) {
	if commit {
		bp.CommitTransaction(tid)
	} else {
		bp.AbortTransaction(tid)
	}
}

// FlushAllPages flushes every dirty cached page regardless of owning
// transaction. Test/administrative use only: calling it mid-transaction
// breaks the NO-STEAL invariant other transactions rely on.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, page := range bp.pages {
		if !page.isDirty() {
			continue
		}
		if err := page.getFile().flushPage(page); err != nil {
			return err
		}
		page.setDirty(0, false)
	}
	return nil
}

// DiscardPage removes pid from the cache without flushing it, and
// releases every lock held on it. Used by recovery/reuse paths.
func (bp *BufferPool) DiscardPage(pid PageID) {
	bp.mu.Lock()
	delete(bp.pages, pid)
	bp.mu.Unlock()
	bp.locks.ReleaseAllOnPage(pid)
}

// Size returns the number of pages currently cached.
func (bp *BufferPool) Size() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.pages)
}

// HoldsLock reports whether tid holds any lock on pid. Exposed for
// tests exercising the lock manager's properties directly.
func (bp *BufferPool) HoldsLock(tid TransactionID, pid PageID) bool {
	return bp.locks.HoldsLock(tid, pid)
}
