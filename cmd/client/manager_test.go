package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shibudb.org/shibuvec/cmd/server"
	"github.com/shibudb.org/shibuvec/internal/logging"
	"github.com/shibudb.org/shibuvec/internal/storage"
)

func TestManager(t *testing.T) {
	cm := server.NewConnectionManager(100, nil)
	ms := server.NewManagementServer(cm, storage.NewVectorStore(), "", logging.Discard())
	ts := httptest.NewServer(ms.Handler())
	defer ts.Close()

	m := NewManager(ts.URL)
	ctx := context.Background()

	h, err := m.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)

	status, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(100), status.CurrentLimit)
	assert.Zero(t, status.ActiveConnections)

	change, err := m.Increase(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, int32(100), change.OldLimit)
	assert.Equal(t, int32(150), change.NewLimit)

	change, err = m.Decrease(ctx, 25)
	require.NoError(t, err)
	assert.Equal(t, int32(125), change.NewLimit)

	_, err = m.SetLimit(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(10), cm.GetMaxConnections())

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Contains(t, stats, "connections")
	assert.Contains(t, stats, "store")

	_, err = m.SetLimit(ctx, -1)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "connection limit must be positive", apiErr.Message)
}
