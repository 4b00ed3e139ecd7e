package engine

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// pageLockState tracks who holds what kind of lock on a single page.
type pageLockState struct {
	sharedHolders   map[TransactionID]struct{}
	exclusiveHolder TransactionID
	hasExclusive    bool
}

// LockManager is a page-level strict two-phase lock manager: shared (S)
// and exclusive (X) locks per PageID, upgrade-in-place when a
// transaction is the sole S-holder, and deadlock detection via cycle
// search over a waits-for graph.
//
// Locking lives in its own type with its own monitor rather than being
// embedded in BufferPool, and a blocked acquirer waits on a condition
// variable instead of sleeping and retrying.
type LockManager struct {
	mu   sync.Mutex
	cond *sync.Cond

	locks        map[PageID]*pageLockState
	dependencies map[TransactionID]map[TransactionID]struct{}
}

// NewLockManager constructs an empty lock manager.
func NewLockManager() *LockManager {
	lm := &LockManager{
		locks:        make(map[PageID]*pageLockState),
		dependencies: make(map[TransactionID]map[TransactionID]struct{}),
	}
	lm.cond = sync.NewCond(&lm.mu)
	return lm
}

func (lm *LockManager) stateFor(pid PageID) *pageLockState {
	s, ok := lm.locks[pid]
	if !ok {
		s = &pageLockState{sharedHolders: make(map[TransactionID]struct{})}
		lm.locks[pid] = s
	}
	return s
}

// holdersExcept returns every transaction (other than tid) that holds
// any lock on pid.
func (s *pageLockState) holdersExcept(tid TransactionID) map[TransactionID]struct{} {
	out := make(map[TransactionID]struct{})
	if s.hasExclusive && s.exclusiveHolder != tid {
		out[s.exclusiveHolder] = struct{}{}
	}
	for t := range s.sharedHolders {
		if t != tid {
			out[t] = struct{}{}
		}
	}
	return out
}

// canGrant reports whether tid can be granted mode on pid right now,
// given its current holders.
func (s *pageLockState) canGrant(tid TransactionID, mode RWPerm) bool {
	if mode == ReadPerm {
		// Compatible unless some other transaction holds X.
		return !s.hasExclusive || s.exclusiveHolder == tid
	}
	// Exclusive: compatible if there is no other holder at all, or if
	// tid is already the (or becoming the) sole holder.
	if s.hasExclusive {
		return s.exclusiveHolder == tid
	}
	if len(s.sharedHolders) == 0 {
		return true
	}
	_, tidHoldsShared := s.sharedHolders[tid]
	return tidHoldsShared && len(s.sharedHolders) == 1
}

func (s *pageLockState) grant(tid TransactionID, mode RWPerm) {
	if mode == ReadPerm {
		s.sharedHolders[tid] = struct{}{}
		return
	}
	delete(s.sharedHolders, tid)
	s.hasExclusive = true
	s.exclusiveHolder = tid
}

// HoldsLock reports whether tid currently holds any lock on pid.
func (lm *LockManager) HoldsLock(tid TransactionID, pid PageID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	s, ok := lm.locks[pid]
	if !ok {
		return false
	}
	if s.hasExclusive && s.exclusiveHolder == tid {
		return true
	}
	_, held := s.sharedHolders[tid]
	return held
}

// Acquire blocks until tid holds mode on pid, or returns a
// DeadlockError if granting it would require waiting on a cycle through
// tid in the waits-for graph.
func (lm *LockManager) Acquire(tid TransactionID, pid PageID, mode RWPerm) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	for {
		s := lm.stateFor(pid)
		if s.canGrant(tid, mode) {
			s.grant(tid, mode)
			delete(lm.dependencies, tid)
			return nil
		}

		lm.dependencies[tid] = s.holdersExcept(tid)
		if lm.hasCycleFrom(tid) {
			delete(lm.dependencies, tid)
			return GoDBError{Kind: DeadlockError, Message: "deadlock detected; aborting requester"}
		}

		lm.cond.Wait()
	}
}

// Release drops tid's lock (shared or exclusive) on pid, if any, and
// wakes waiters.
func (lm *LockManager) Release(tid TransactionID, pid PageID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.releaseLocked(tid, pid)
	lm.cond.Broadcast()
}

func (lm *LockManager) releaseLocked(tid TransactionID, pid PageID) {
	s, ok := lm.locks[pid]
	if !ok {
		return
	}
	if s.hasExclusive && s.exclusiveHolder == tid {
		s.hasExclusive = false
		s.exclusiveHolder = 0
	}
	delete(s.sharedHolders, tid)
	if !s.hasExclusive && len(s.sharedHolders) == 0 {
		delete(lm.locks, pid)
	}
	delete(lm.dependencies, tid)
}

// ReleaseAll drops every lock tid holds, across every page.
func (lm *LockManager) ReleaseAll(tid TransactionID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for pid := range lm.locks {
		lm.releaseLocked(tid, pid)
	}
	delete(lm.dependencies, tid)
	lm.cond.Broadcast()
}

// ReleaseAllOnPage drops every holder of pid, regardless of
// transaction. Used when a page is evicted or discarded from the
// buffer pool.
func (lm *LockManager) ReleaseAllOnPage(pid PageID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	delete(lm.locks, pid)
	lm.cond.Broadcast()
}

// hasCycleFrom runs a DFS over the waits-for graph starting at start,
// reporting whether a cycle passes through start. Must be called with
// lm.mu held. Neighbor order is sorted for deterministic test behavior,
// per the domain-stack note on golang.org/x/exp/slices usage.
func (lm *LockManager) hasCycleFrom(start TransactionID) bool {
	visited := make(map[TransactionID]bool)

	var dfs func(tid TransactionID) bool
	dfs = func(tid TransactionID) bool {
		visited[tid] = true
		for _, next := range sortedKeys(lm.dependencies[tid]) {
			if next == start {
				return true
			}
			if visited[next] {
				continue
			}
			if dfs(next) {
				return true
			}
		}
		return false
	}
	return dfs(start)
}

// sortedKeys returns m's keys in ascending order, so that cycle search
// over the waits-for graph visits neighbors deterministically. The
// transaction that loses a cycle is always the requester, whatever the
// visit order.
func sortedKeys(m map[TransactionID]struct{}) []TransactionID {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
