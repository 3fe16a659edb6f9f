package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"time"

	"golang.org/x/time/rate"
)

// handleConnection runs the request/response loop for one client: read a
// line, execute it, write the response block followed by a newline. It
// returns when the peer disconnects, a read or write fails, the idle timeout
// expires, or ctx is done.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	logger := s.logger.With("remote", conn.RemoteAddr().String())
	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	var limiter *rate.Limiter
	if s.cfg.CommandRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.CommandRate), s.cfg.CommandBurst)
	}

	for {
		if s.cfg.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		}

		line, err := reader.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			case errors.As(err, &netErr) && netErr.Timeout():
				logger.Info("closing idle connection")
			default:
				logger.Warn("read failed", "error", err)
			}
			return
		}

		if limiter != nil {
			if werr := limiter.Wait(ctx); werr != nil {
				return
			}
		}

		resp := s.qe.ExecuteLine(line)
		if _, werr := writer.WriteString(resp + "\n"); werr != nil {
			logger.Warn("write failed", "error", werr)
			return
		}
		if werr := writer.Flush(); werr != nil {
			logger.Warn("write failed", "error", werr)
			return
		}

		// a final unterminated line was served; the peer is gone
		if err != nil {
			return
		}
	}
}
