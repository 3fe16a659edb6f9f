package server

import (
	"fmt"
	"net"
	"sync"
)

// ConnectionManager handles connection limiting and tracking
type ConnectionManager struct {
	mu             sync.Mutex
	maxConnections int32
	connections    map[net.Conn]struct{}
	closed         bool

	// onLimitChange runs after every successful UpdateLimit.
	onLimitChange func(oldLimit, newLimit int32)
}

func NewConnectionManager(maxConnections int32, onLimitChange func(oldLimit, newLimit int32)) *ConnectionManager {
	return &ConnectionManager{
		maxConnections: maxConnections,
		connections:    make(map[net.Conn]struct{}),
		onLimitChange:  onLimitChange,
	}
}

// TryAcquire registers conn if a slot is free and the manager has not
// been shut down.
func (cm *ConnectionManager) TryAcquire(conn net.Conn) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.closed || int32(len(cm.connections)) >= cm.maxConnections {
		return false
	}
	cm.connections[conn] = struct{}{}
	return true
}

func (cm *ConnectionManager) Release(conn net.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.connections, conn)
}

// UpdateLimit changes the limit at runtime. The new limit must be positive
// and not below the number of active connections.
func (cm *ConnectionManager) UpdateLimit(newLimit int32) error {
	if newLimit <= 0 {
		return fmt.Errorf("connection limit must be positive")
	}

	cm.mu.Lock()
	active := int32(len(cm.connections))
	if newLimit < active {
		cm.mu.Unlock()
		return fmt.Errorf("cannot set limit to %d when %d connections are active", newLimit, active)
	}
	oldLimit := cm.maxConnections
	cm.maxConnections = newLimit
	cm.mu.Unlock()

	if cm.onLimitChange != nil {
		cm.onLimitChange(oldLimit, newLimit)
	}
	return nil
}

func (cm *ConnectionManager) GetActiveConnections() int32 {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return int32(len(cm.connections))
}

func (cm *ConnectionManager) GetMaxConnections() int32 {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.maxConnections
}

// GetConnectionStats returns detailed connection statistics
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	active := int32(len(cm.connections))
	max := cm.maxConnections
	usage := float64(active) / float64(max) * 100

	return map[string]interface{}{
		"active_connections": active,
		"max_connections":    max,
		"usage_percentage":   usage,
		"available_slots":    max - active,
	}
}

// CloseAllConnections forcefully closes all active connections. Later
// TryAcquire calls fail.
func (cm *ConnectionManager) CloseAllConnections() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.closed = true
	for conn := range cm.connections {
		conn.Close()
	}
}
