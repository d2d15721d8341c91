package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, int64(1), cfg.BranchID)
	assert.Equal(t, 400*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdle)
	assert.True(t, cfg.CSRF)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://10.0.0.5:8000/api")
	t.Setenv("BRANCH_ID", "3")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SEARCH_DEBOUNCE", "300ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000/api", cfg.BackendURL)
	assert.Equal(t, int64(3), cfg.BranchID)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDebounce)
}

func TestLoad_BadValue(t *testing.T) {
	t.Setenv("BRANCH_ID", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}
