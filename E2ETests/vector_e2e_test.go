package E2ETests

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestVectorAlgebraE2E(t *testing.T) {
	addr, _ := StartServer(t)
	c := Dial(t, addr)

	steps := []struct{ cmd, want string }{
		{"named_insert v1 1 2 3", "OK"},
		{"named_insert v2 4 5 6", "OK"},
		{"vadd v1 v2", "Result: [5.0, 7.0, 9.0]"},
		{"vsub v1 v2", "Result: [-3.0, -3.0, -3.0]"},
		{"vscale v1 2", "Result: [2.0, 4.0, 6.0]"},
		{"vcosine v1 v2", "Cosine Similarity: 0.9746"},
		{"vadd v1 missing", "One or both keys not found"},
		{"named_insert short 1 2", "OK"},
		{"vadd v1 short", "Vectors are not compatible for addition"},
		{"vsub v1 short", "Vectors are not compatible for subtraction"},
		{"vcosine v1 short", "Vectors are not compatible for cosine similarity"},
		{"vscale missing 2", "Key not found"},
	}
	for _, s := range steps {
		if got := c.Query(t, s.cmd); got != s.want {
			t.Errorf("%s: got %q, want %q", s.cmd, got, s.want)
		}
	}
}

func TestKNearestNeighborsE2E(t *testing.T) {
	addr, _ := StartServer(t)
	c := Dial(t, addr)

	for i := 0; i < 100; i++ {
		cmd := fmt.Sprintf("named_insert k%03d %d %d %d %d", i, i, i+1, i+2, i+3)
		if got := c.Query(t, cmd); got != "OK" {
			t.Fatalf("%s: got %q", cmd, got)
		}
	}

	lines := c.QueryLines(t, "knn k050 3", 3)
	if lines[0] != "ID: k050, Vector: [50.0, 51.0, 52.0, 53.0]" {
		t.Errorf("expected the query key first, got %q", lines[0])
	}
	// k049 and k051 tie at distance 2; ties come back in key order
	if !strings.HasPrefix(lines[1], "ID: k049,") || !strings.HasPrefix(lines[2], "ID: k051,") {
		t.Errorf("unexpected neighbours: %q", lines[1:])
	}

	if got := c.Query(t, "knn nope 3"); got != "Key not found" {
		t.Errorf("knn on missing key: got %q", got)
	}
	if got := c.Query(t, "knn k050"); got != "Error: Missing k" {
		t.Errorf("knn without k: got %q", got)
	}
}

func TestMalformedCommandsE2E(t *testing.T) {
	addr, _ := StartServer(t)
	c := Dial(t, addr)

	steps := []struct{ cmd, want string }{
		{"get", "Error: Invalid GET command"},
		{"", "Error: Empty command"},
		{"explode now", "Error: Unknown command"},
		{"vscale a notanumber", "Error: Invalid scalar value"},
		{"knn a -1", "Error: Invalid k value"},
		{"ping", "pong"},
	}
	for _, s := range steps {
		if got := c.Query(t, s.cmd); got != s.want {
			t.Errorf("%q: got %q, want %q", s.cmd, got, s.want)
		}
	}
}

func TestInsertGetRemoveE2E(t *testing.T) {
	addr, store := StartServer(t)
	c := Dial(t, addr)

	if got := c.Query(t, "insert 0.5 1e-5 3"); got != "OK" {
		t.Fatalf("insert: got %q", got)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 vector in store, got %d", store.Len())
	}
	found := store.KNearestNeighbors([]float32{0.5, 1e-5, 3}, 1)
	key := found[0].Key
	if len(key) != 36 {
		t.Fatalf("expected a generated UUID key, got %q", key)
	}
	if got := c.Query(t, "get "+key); got != "[0.5, 1e-5, 3.0]" {
		t.Errorf("get: got %q", got)
	}
	if got := c.Query(t, "remove "+key); got != "OK" {
		t.Errorf("remove: got %q", got)
	}
	if got := c.Query(t, "remove "+key); got != "OK" {
		t.Errorf("second remove: got %q", got)
	}
	if got := c.Query(t, "get "+key); got != "null" {
		t.Errorf("get after remove: got %q", got)
	}
}

func TestDumpE2E(t *testing.T) {
	addr, _ := StartServer(t)
	c := Dial(t, addr)

	c.Query(t, "named_insert a 1 2")
	c.Query(t, "named_insert b 3")

	path := filepath.Join(t.TempDir(), "dump.json")
	if got := c.Query(t, "dump "+path); got != "Database dump successful: "+path {
		t.Fatalf("dump: got %q", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var dumped map[string][]float32
	if err := json.Unmarshal(data, &dumped); err != nil {
		t.Fatal(err)
	}
	if len(dumped) != 2 || dumped["a"][1] != 2 || dumped["b"][0] != 3 {
		t.Errorf("unexpected dump contents: %v", dumped)
	}

	bad := filepath.Join(t.TempDir(), "missing", "dump.json")
	if got := c.Query(t, "dump "+bad); !strings.HasPrefix(got, "Error creating database dump: ") {
		t.Errorf("dump to missing dir: got %q", got)
	}
}

func TestConcurrentClientsE2E(t *testing.T) {
	addr, store := StartServer(t)

	const clients = 8
	const perClient = 50

	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c := Dial(t, addr)
			for j := 0; j < perClient; j++ {
				key := fmt.Sprintf("c%d-%d", id, j)
				if got := c.Query(t, fmt.Sprintf("named_insert %s %d %d", key, id, j)); got != "OK" {
					t.Errorf("insert %s: got %q", key, got)
				}
				if got := c.Query(t, "get "+key); got != fmt.Sprintf("[%d.0, %d.0]", id, j) {
					t.Errorf("get %s: got %q", key, got)
				}
			}
		}(i)
	}
	wg.Wait()

	if store.Len() != clients*perClient {
		t.Errorf("expected %d vectors, got %d", clients*perClient, store.Len())
	}
}
