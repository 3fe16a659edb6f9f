package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const limitFileName = "connection_limit.json"

// ConnectionConfig stores persistent connection settings
type ConnectionConfig struct {
	MaxConnections int32  `json:"max_connections"`
	LastUpdated    string `json:"last_updated"`
}

// LimitStore persists the runtime connection limit under a state directory.
// A LimitStore with an empty directory keeps nothing.
type LimitStore struct {
	dir string
}

func NewLimitStore(dir string) *LimitStore {
	return &LimitStore{dir: dir}
}

func (ls *LimitStore) path() string {
	return filepath.Join(ls.dir, limitFileName)
}

// Save persists the connection limit to disk
func (ls *LimitStore) Save(limit int32) error {
	if ls.dir == "" {
		return nil
	}
	if err := os.MkdirAll(ls.dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := json.MarshalIndent(ConnectionConfig{
		MaxConnections: limit,
		LastUpdated:    fmt.Sprintf("%d", time.Now().Unix()),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal connection limit: %w", err)
	}

	if err := os.WriteFile(ls.path(), data, 0644); err != nil {
		return fmt.Errorf("write connection limit: %w", err)
	}
	return nil
}

// Load returns the persisted limit, or 0 when none has been saved.
func (ls *LimitStore) Load() (int32, error) {
	if ls.dir == "" {
		return 0, nil
	}
	data, err := os.ReadFile(ls.path())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read connection limit: %w", err)
	}

	var cfg ConnectionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return 0, fmt.Errorf("parse connection limit: %w", err)
	}
	return cfg.MaxConnections, nil
}

// Resolve prefers a valid persisted limit over defaultLimit.
func (ls *LimitStore) Resolve(defaultLimit int32) (int32, error) {
	persisted, err := ls.Load()
	if err != nil {
		return defaultLimit, err
	}
	if persisted > 0 {
		return persisted, nil
	}
	return defaultLimit, nil
}
