package service

import "sync"

// LockTable serializes work per key (product, order, user). The backing
// store guards its writes too; this keeps the read-compute-write sections
// in this process from interleaving regardless of the store's locking
// support. Services that touch the same rows must share one table: the
// order and payment services both lock "order:<id>" and only exclude each
// other when the keys live in the same table.
type LockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLockTable() *LockTable {
	return &LockTable{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *LockTable) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
