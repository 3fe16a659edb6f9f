package storage

// VectorEngine is the set of store operations the query engine dispatches to.
type VectorEngine interface {
	Insert(key string, vector []float32)
	GenerateAndInsert(vector []float32) string
	Get(key string) ([]float32, bool)
	Remove(key string) ([]float32, bool)
	Len() int

	KNearestNeighbors(query []float32, k int) []Neighbor
	NearestToKey(key string, k int) ([]Neighbor, error)
	VectorAddition(key1, key2 string) ([]float32, error)
	VectorSubtraction(key1, key2 string) ([]float32, error)
	VectorScaling(key string, scalar float32) ([]float32, error)
	CosineSimilarity(key1, key2 string) (float32, error)

	ExportSnapshot(path string) error
}
