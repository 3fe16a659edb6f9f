package index

import (
	"sync"

	"github.com/google/btree"
)

// BTreeIndex keeps vectors ordered by key. Iteration is always in ascending
// key order, which gives the store a stable visiting order for scans.
// The index locks itself so it is safe on its own; VectorStore also holds
// its lock around every call to make multi-step operations atomic.
type BTreeIndex struct {
	lock  sync.RWMutex
	btree *btree.BTree
}

type Item struct {
	Key    string
	Vector []float32
}

func (i Item) Less(other btree.Item) bool {
	return i.Key < other.(Item).Key
}

func NewBTreeIndex() *BTreeIndex {
	return &BTreeIndex{
		btree: btree.New(32),
	}
}

// Add stores vector under key. It reports true when an existing entry was
// replaced.
func (idx *BTreeIndex) Add(key string, vector []float32) bool {
	idx.lock.Lock()
	defer idx.lock.Unlock()

	return idx.btree.ReplaceOrInsert(Item{Key: key, Vector: vector}) != nil
}

func (idx *BTreeIndex) Get(key string) ([]float32, bool) {
	idx.lock.RLock()
	defer idx.lock.RUnlock()

	item := idx.btree.Get(Item{Key: key})
	if item == nil {
		return nil, false
	}
	return item.(Item).Vector, true
}

// Remove deletes key and returns the vector it held.
func (idx *BTreeIndex) Remove(key string) ([]float32, bool) {
	idx.lock.Lock()
	defer idx.lock.Unlock()

	item := idx.btree.Delete(Item{Key: key})
	if item == nil {
		return nil, false
	}
	return item.(Item).Vector, true
}

func (idx *BTreeIndex) Len() int {
	idx.lock.RLock()
	defer idx.lock.RUnlock()
	return idx.btree.Len()
}

// Ascend calls fn for every entry in ascending key order until fn returns
// false. fn must not modify the index.
func (idx *BTreeIndex) Ascend(fn func(key string, vector []float32) bool) {
	idx.lock.RLock()
	defer idx.lock.RUnlock()

	idx.btree.Ascend(func(i btree.Item) bool {
		item := i.(Item)
		return fn(item.Key, item.Vector)
	})
}
