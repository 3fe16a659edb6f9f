// Package client implements the interactive terminal client and the
// management API client used by the shibuvec CLI.
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

const dialTimeout = 5 * time.Second

// Connect opens a protocol session to addr and forwards lines read from in
// until in is exhausted, the user types quit/exit, or ctx is done. Server
// output is copied to out as it arrives; responses to commands already sent
// are drained before Connect returns.
func Connect(ctx context.Context, addr string, in io.Reader, out io.Writer) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer conn.Close()

	fmt.Fprintf(out, "Connected to ShibuVec at %s. Type 'quit' to exit.\n", addr)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		io.Copy(out, conn)
	}()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sendErr := forward(conn, in)

	if tcp, ok := conn.(*net.TCPConn); ok && sendErr == nil {
		tcp.CloseWrite()
	} else {
		conn.Close()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil
	}
	return sendErr
}

func forward(conn net.Conn, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			return nil
		}
		if _, err := io.WriteString(conn, line+"\n"); err != nil {
			return fmt.Errorf("send command: %w", err)
		}
	}
	return scanner.Err()
}
