package models

import "sync/atomic"

// IDAllocator hands out entity ids from an internal counter. Each pipeline
// run owns its allocator, so id sequences are reproducible in tests.
type IDAllocator struct {
	next atomic.Int64
}

// NewIDAllocator creates an allocator whose first id is first
func NewIDAllocator(first int64) *IDAllocator {
	a := &IDAllocator{}
	a.next.Store(first)
	return a
}

// Next returns the next unused id. Safe for concurrent use.
func (a *IDAllocator) Next() int64 {
	return a.next.Add(1) - 1
}

// NewEntity constructs an empty entity with a fresh id
func (a *IDAllocator) NewEntity(kind Kind) *Entity {
	return newEntity(a.Next(), kind)
}

// RestoreEntity rebuilds an entity loaded from storage under its persisted id
func RestoreEntity(id int64, kind Kind) *Entity {
	return newEntity(id, kind)
}
