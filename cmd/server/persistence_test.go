package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitStore(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		ls := NewLimitStore(t.TempDir())
		limit, err := ls.Load()
		require.NoError(t, err)
		assert.Zero(t, limit)

		resolved, err := ls.Resolve(1000)
		require.NoError(t, err)
		assert.Equal(t, int32(1000), resolved)
	})

	t.Run("save and load", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "state")
		ls := NewLimitStore(dir)
		require.NoError(t, ls.Save(250))

		limit, err := ls.Load()
		require.NoError(t, err)
		assert.Equal(t, int32(250), limit)

		resolved, err := ls.Resolve(1000)
		require.NoError(t, err)
		assert.Equal(t, int32(250), resolved)
	})

	t.Run("corrupt file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, limitFileName), []byte("{"), 0644))

		resolved, err := NewLimitStore(dir).Resolve(7)
		assert.Error(t, err)
		assert.Equal(t, int32(7), resolved)
	})

	t.Run("no directory", func(t *testing.T) {
		ls := NewLimitStore("")
		require.NoError(t, ls.Save(5))
		limit, err := ls.Load()
		require.NoError(t, err)
		assert.Zero(t, limit)
	})
}
