package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shibudb.org/shibuvec/internal/storage"
)

const defaultLimitStep int32 = 100

// ManagementServer provides HTTP endpoints for runtime server management.
type ManagementServer struct {
	connManager   *ConnectionManager
	store         storage.VectorEngine
	addr          string
	server        *http.Server
	systemMonitor *SystemMonitor
	logger        *slog.Logger
}

func NewManagementServer(connManager *ConnectionManager, store storage.VectorEngine, addr string, logger *slog.Logger) *ManagementServer {
	if logger == nil {
		logger = slog.Default()
	}
	ms := &ManagementServer{
		connManager:   connManager,
		store:         store,
		addr:          addr,
		systemMonitor: NewSystemMonitor(),
		logger:        logger,
	}
	ms.server = &http.Server{
		Addr:    addr,
		Handler: ms.Handler(),
	}
	return ms
}

// Handler returns the routing mux; Start serves it on the configured address.
func (ms *ManagementServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", ms.healthHandler)
	mux.HandleFunc("/stats", ms.statsHandler)
	mux.HandleFunc("/system", ms.systemHandler)
	mux.HandleFunc("/limit", ms.limitHandler)
	mux.HandleFunc("/limit/increase", ms.increaseLimitHandler)
	mux.HandleFunc("/limit/decrease", ms.decreaseLimitHandler)
	return mux
}

func (ms *ManagementServer) Start() error {
	ms.logger.Info("management server started", "addr", ms.addr)
	if err := ms.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("management server: %w", err)
	}
	return nil
}

func (ms *ManagementServer) Stop(ctx context.Context) error {
	if err := ms.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func failed(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":  err.Error(),
		"status": "failed",
	})
}

func (ms *ManagementServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "shibuvec",
	})
}

// statsHandler returns connection statistics with store and system info.
func (ms *ManagementServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sys := ms.systemMonitor.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connections": ms.connManager.GetConnectionStats(),
		"store": map[string]interface{}{
			"vectors": ms.store.Len(),
		},
		"system": map[string]interface{}{
			"memory":     sys.Memory,
			"cpu":        sys.CPU,
			"goroutines": sys.Goroutines,
			"timestamp":  sys.Timestamp,
		},
	})
}

func (ms *ManagementServer) systemHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, ms.systemMonitor.Stats())
}

// limitHandler handles GET (current limit) and PUT (update limit).
func (ms *ManagementServer) limitHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"current_limit":      ms.connManager.GetMaxConnections(),
			"active_connections": ms.connManager.GetActiveConnections(),
		})

	case http.MethodPut:
		var request struct {
			Limit int32 `json:"limit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if err := ms.connManager.UpdateLimit(request.Limit); err != nil {
			failed(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "success",
			"new_limit": request.Limit,
			"message":   fmt.Sprintf("Connection limit updated to %d", request.Limit),
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// decodeAmount reads {"amount": n}; a missing or unreadable body means 100.
func decodeAmount(r *http.Request) int32 {
	var request struct {
		Amount int32 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Amount == 0 {
		return defaultLimitStep
	}
	return request.Amount
}

func (ms *ManagementServer) increaseLimitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	amount := decodeAmount(r)
	current := ms.connManager.GetMaxConnections()
	newLimit := current + amount
	if err := ms.connManager.UpdateLimit(newLimit); err != nil {
		failed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "success",
		"old_limit":       current,
		"new_limit":       newLimit,
		"increase_amount": amount,
		"message":         fmt.Sprintf("Connection limit increased from %d to %d", current, newLimit),
	})
}

func (ms *ManagementServer) decreaseLimitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	amount := decodeAmount(r)
	current := ms.connManager.GetMaxConnections()
	active := ms.connManager.GetActiveConnections()
	newLimit := current - amount

	if newLimit < active {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":              fmt.Sprintf("Cannot decrease limit to %d when %d connections are active", newLimit, active),
			"status":             "failed",
			"current_limit":      current,
			"active_connections": active,
			"minimum_allowed":    active,
		})
		return
	}
	if err := ms.connManager.UpdateLimit(newLimit); err != nil {
		failed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "success",
		"old_limit":       current,
		"new_limit":       newLimit,
		"decrease_amount": amount,
		"message":         fmt.Sprintf("Connection limit decreased from %d to %d", current, newLimit),
	})
}
