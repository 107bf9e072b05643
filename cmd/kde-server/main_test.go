package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/channelkde/internal/db"
)

func TestNewHandler(t *testing.T) {
	store, err := db.NewDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.RecordRun(&db.Run{Source: "a.png", Mode: db.ModeMask, Width: 1, Height: 1}))

	srv := httptest.NewServer(newHandler(store, ""))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/runs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Debug routes are mounted; access control may refuse them.
	resp, err = http.Get(srv.URL + "/debug/tailsql/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEqual(t, http.StatusNotFound, resp.StatusCode)
}
