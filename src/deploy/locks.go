package deploy

import "sync"

// Mutex per loan id. Locks are created on first use and kept for the
// process lifetime, the loan population is small enough that reaping
// idle entries isn't worth the bookkeeping.
type loanLocks struct {
	mtx   sync.Mutex
	locks map[string]*sync.Mutex
}

func newLoanLocks() *loanLocks {
	return &loanLocks{locks: make(map[string]*sync.Mutex)}
}

func (self *loanLocks) Lock(loanID string) (unlock func()) {
	self.mtx.Lock()
	lock, ok := self.locks[loanID]
	if !ok {
		lock = &sync.Mutex{}
		self.locks[loanID] = lock
	}
	self.mtx.Unlock()

	lock.Lock()
	return lock.Unlock
}
