// Package E2ETests drives a real server over TCP the way a client would.
package E2ETests

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/shibudb.org/shibuvec/cmd/server"
	"github.com/shibudb.org/shibuvec/internal/config"
	"github.com/shibudb.org/shibuvec/internal/logging"
	"github.com/shibudb.org/shibuvec/internal/storage"
)

// StartServer runs a server on a loopback port for the duration of the test
// and returns its address and backing store.
func StartServer(t *testing.T) (string, *storage.VectorStore) {
	t.Helper()

	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	cfg.ManagementPort = -1
	cfg.StateDir = t.TempDir()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	store := storage.NewVectorStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.NewServer(cfg, store, logging.Discard()).Serve(ctx, ln)
	}()

	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("server stopped with error: %v", err)
		}
	})
	return ln.Addr().String(), store
}

type Conn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func Dial(t *testing.T, addr string) *Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("TCP connection error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(10 * time.Second))
	return &Conn{conn: conn, reader: bufio.NewReader(conn)}
}

// Query sends one command and returns the first response line.
func (c *Conn) Query(t *testing.T, line string) string {
	t.Helper()
	return c.QueryLines(t, line, 1)[0]
}

// QueryLines sends one command and reads n response lines.
func (c *Conn) QueryLines(t *testing.T, line string, n int) []string {
	t.Helper()
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write %q: %v", line, err)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		resp, err := c.reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read response to %q: %v", line, err)
		}
		out = append(out, strings.TrimSuffix(resp, "\n"))
	}
	return out
}
