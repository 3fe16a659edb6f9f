package benchmark

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/shibudb.org/shibuvec/internal/logging"
	"github.com/shibudb.org/shibuvec/internal/protocol"
	"github.com/shibudb.org/shibuvec/internal/queryengine"
	"github.com/shibudb.org/shibuvec/internal/storage"
)

func insertLine(r *rand.Rand, key string, dim int) string {
	var b strings.Builder
	b.WriteString("named_insert ")
	b.WriteString(key)
	for i := 0; i < dim; i++ {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(r.Float64(), 'f', 6, 32))
	}
	return b.String()
}

func BenchmarkParseInsert(b *testing.B) {
	line := insertLine(rand.New(rand.NewSource(7)), "bench", 128)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		if _, err := protocol.Parse(line); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFormatVector(b *testing.B) {
	vec := randomVector(rand.New(rand.NewSource(7)), 128)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		_ = protocol.FormatVector(vec)
	}
}

func BenchmarkExecuteLine(b *testing.B) {
	qe := queryengine.NewQueryEngine(storage.NewVectorStore(), logging.Discard())
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		qe.ExecuteLine(insertLine(r, "k"+strconv.Itoa(i), 16))
	}

	lines := []string{"get k500", "knn k10 5", "vadd k1 k2", "vcosine k3 k4", "ping"}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		qe.ExecuteLine(lines[n%len(lines)])
	}
}
