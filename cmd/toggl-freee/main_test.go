package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunReleasesAppWhenCommandFails(t *testing.T) {
	t.Setenv("TOGGL_FREEE_CONFIG", "")
	t.Setenv("TOGGL_API_TOKEN", "tok")
	t.Setenv("FREEE_ACCESS_TOKEN", "")
	t.Setenv("FREEE_REFRESH_TOKEN", "")
	t.Setenv("TABLE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "tables.db"))

	c := &cli{}
	// No freee tokens: submit fails before any request is made.
	code := run(context.Background(), c, []string{"submit"})
	require.Equal(t, 1, code)
	require.Nil(t, c.app)
}

func TestRunReleasesAppAfterSuccess(t *testing.T) {
	t.Setenv("TOGGL_FREEE_CONFIG", "")
	t.Setenv("TOGGL_API_TOKEN", "tok")
	t.Setenv("FREEE_ACCESS_TOKEN", "")
	t.Setenv("FREEE_REFRESH_TOKEN", "")
	t.Setenv("TABLE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "tables.db"))

	c := &cli{}
	code := run(context.Background(), c, []string{"status"})
	require.Equal(t, 0, code)
	require.Nil(t, c.app)
	require.NoError(t, c.close())
}
