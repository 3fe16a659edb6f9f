package storage

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/shibudb.org/shibuvec/internal/index"
)

// Neighbor is one k-NN result.
type Neighbor struct {
	Key      string
	Vector   []float32
	Distance float32
}

// VectorStore is the in-memory key to vector mapping. Every method runs under
// a single RWMutex, so each call is atomic with respect to all others.
// Stored vectors are never modified in place; readers receive copies.
type VectorStore struct {
	index  *index.BTreeIndex
	newKey func() string

	lock sync.RWMutex
}

var _ VectorEngine = (*VectorStore)(nil)

func NewVectorStore() *VectorStore {
	return &VectorStore{
		index:  index.NewBTreeIndex(),
		newKey: func() string { return uuid.New().String() },
	}
}

// Insert stores vector under key, replacing any previous value.
func (s *VectorStore) Insert(key string, vector []float32) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.index.Add(key, slices.Clone(nonNil(vector)))
}

// GenerateAndInsert stores vector under a fresh random UUID and returns it.
func (s *VectorStore) GenerateAndInsert(vector []float32) string {
	key := s.newKey()
	s.Insert(key, vector)
	return key
}

func (s *VectorStore) Get(key string) ([]float32, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	vec, ok := s.index.Get(key)
	if !ok {
		return nil, false
	}
	return slices.Clone(vec), true
}

// Remove deletes key and returns the vector it held. Removing an absent key
// returns false and changes nothing.
func (s *VectorStore) Remove(key string) ([]float32, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.index.Remove(key)
}

func (s *VectorStore) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.index.Len()
}

// KNearestNeighbors returns up to k stored vectors closest to query by
// Euclidean distance, nearest first. Vectors whose length differs from the
// query are skipped. Candidates are visited in ascending key order and
// sorted stably, so ties come back in key order.
func (s *VectorStore) KNearestNeighbors(query []float32, k int) []Neighbor {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.nearest(query, k)
}

// NearestToKey runs KNearestNeighbors with the vector stored under key as the
// query. The lookup and the scan happen under one lock.
func (s *VectorStore) NearestToKey(key string, k int) ([]Neighbor, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	query, ok := s.index.Get(key)
	if !ok {
		return nil, fmt.Errorf("knn query %q: %w", key, ErrNotFound)
	}
	return s.nearest(query, k), nil
}

func (s *VectorStore) nearest(query []float32, k int) []Neighbor {
	if k <= 0 {
		return []Neighbor{}
	}

	candidates := make([]Neighbor, 0, s.index.Len())
	s.index.Ascend(func(key string, vector []float32) bool {
		if len(vector) != len(query) {
			return true
		}
		candidates = append(candidates, Neighbor{
			Key:      key,
			Vector:   vector,
			Distance: EuclideanDistance(query, vector),
		})
		return true
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		return distanceLess(candidates[i].Distance, candidates[j].Distance)
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	for i := range candidates {
		candidates[i].Vector = slices.Clone(candidates[i].Vector)
	}
	return candidates
}

// distanceLess orders NaN after every other distance.
func distanceLess(a, b float32) bool {
	if a != a {
		return false
	}
	if b != b {
		return true
	}
	return a < b
}

// VectorAddition returns the element-wise sum of the vectors stored under
// key1 and key2.
func (s *VectorStore) VectorAddition(key1, key2 string) ([]float32, error) {
	v1, v2, err := s.pair(key1, key2)
	if err != nil {
		return nil, err
	}
	return Add(v1, v2)
}

// VectorSubtraction returns the vector under key1 minus the vector under key2.
func (s *VectorStore) VectorSubtraction(key1, key2 string) ([]float32, error) {
	v1, v2, err := s.pair(key1, key2)
	if err != nil {
		return nil, err
	}
	return Subtract(v1, v2)
}

func (s *VectorStore) VectorScaling(key string, scalar float32) ([]float32, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.index.Get(key)
	if !ok {
		return nil, fmt.Errorf("scale %q: %w", key, ErrNotFound)
	}
	return Scale(v, scalar), nil
}

func (s *VectorStore) CosineSimilarity(key1, key2 string) (float32, error) {
	v1, v2, err := s.pair(key1, key2)
	if err != nil {
		return 0, err
	}
	return CosineSimilarity(v1, v2)
}

// pair fetches two vectors in one critical section. The returned slices are
// shared with the index and must be treated as read-only.
func (s *VectorStore) pair(key1, key2 string) ([]float32, []float32, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v1, ok1 := s.index.Get(key1)
	v2, ok2 := s.index.Get(key2)
	if !ok1 || !ok2 {
		return nil, nil, fmt.Errorf("lookup %q, %q: %w", key1, key2, ErrNotFound)
	}
	return v1, v2, nil
}

// snapshot copies the whole mapping under the read lock.
func (s *VectorStore) snapshot() map[string]snapshotVector {
	s.lock.RLock()
	defer s.lock.RUnlock()

	out := make(map[string]snapshotVector, s.index.Len())
	s.index.Ascend(func(key string, vector []float32) bool {
		out[key] = vector
		return true
	})
	return out
}

func nonNil(v []float32) []float32 {
	if v == nil {
		return []float32{}
	}
	return v
}
