package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/itemstore/services/items/internal/config"
	"github.com/itemstore/services/items/internal/db"
	"github.com/itemstore/services/items/internal/health"
	"github.com/itemstore/services/items/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		ServiceName:   "test",
		DBDriver:      db.DriverSQLite,
		DBDSN:         filepath.Join(t.TempDir(), "items.db"),
		EventsEnabled: false,
		LogLevel:      "error",
	}
}

func runCommand(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), cfg, zap.NewNop(), args, &out)
	return out.String(), err
}

func TestItemLifecycleCommands(t *testing.T) {
	cfg := testConfig(t)

	_, err := runCommand(t, cfg, "migrate")
	require.NoError(t, err)

	out, err := runCommand(t, cfg, "create", "-name", "Kettle", "-description", "Steel")
	require.NoError(t, err)
	var created db.Item
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.True(t, created.IsPersisted())
	id := strconv.FormatInt(created.ID, 10)

	out, err = runCommand(t, cfg, "update", id, "-description", "Copper")
	require.NoError(t, err)
	var updated db.Item
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Kettle", updated.Name)
	assert.Equal(t, "Copper", updated.Description)

	out, err = runCommand(t, cfg, "get", id)
	require.NoError(t, err)
	var fetched db.Item
	require.NoError(t, json.Unmarshal([]byte(out), &fetched))
	assert.Equal(t, updated, fetched)

	out, err = runCommand(t, cfg, "list", "-name", "kett")
	require.NoError(t, err)
	var page listOutput
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, int64(1), page.TotalPages)
	require.Len(t, page.Items, 1)

	_, err = runCommand(t, cfg, "delete", id)
	require.NoError(t, err)

	_, err = runCommand(t, cfg, "get", id)
	assert.ErrorIs(t, err, repo.ErrItemNotFound)
}

func TestCreateRejectsOverlength(t *testing.T) {
	cfg := testConfig(t)
	_, err := runCommand(t, cfg, "migrate")
	require.NoError(t, err)

	_, err = runCommand(t, cfg, "create", "-name", strings.Repeat("x", 51))
	assert.ErrorIs(t, err, db.ErrFieldTooLong)

	out, err := runCommand(t, cfg, "list")
	require.NoError(t, err)
	assert.Contains(t, out, `"total": 0`)
}

func TestListClampsPageFlags(t *testing.T) {
	cfg := testConfig(t)
	_, err := runCommand(t, cfg, "migrate")
	require.NoError(t, err)
	_, err = runCommand(t, cfg, "create", "-name", "Vase")
	require.NoError(t, err)

	// 1<<32 + 1 would wrap to page 1
	out, err := runCommand(t, cfg, "list", "-page", "4294967297", "-page-size", "4294967297")
	require.NoError(t, err)
	var page listOutput
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, int32(math.MaxInt32), page.Page)
	assert.Equal(t, int32(10), page.PageSize)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, int64(1), page.TotalPages)
	assert.Empty(t, page.Items)
}

func TestUsageErrors(t *testing.T) {
	cfg := testConfig(t)

	tests := [][]string{
		{},
		{"frobnicate"},
		{"get"},
		{"get", "abc"},
		{"delete", "-1"},
		{"update", "1"},
	}
	_, err := runCommand(t, cfg, "migrate")
	require.NoError(t, err)

	for _, args := range tests {
		_, err := runCommand(t, cfg, args...)
		assert.ErrorIs(t, err, errUsage, "args %v", args)
	}
}

func TestOpsMux(t *testing.T) {
	cfg := testConfig(t)
	a, err := openApp(cfg, zap.NewNop(), false)
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, db.RunMigrations(a.db))

	mux := newOpsMux(health.NewChecker(a.db, a.publisher, zap.NewNop()), a)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "items_stored 0")
}
