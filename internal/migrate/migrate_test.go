package migrate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("0001_sheet_tables.sql")
	require.NoError(t, err)
	require.Equal(t, 1, v)

	_, err = parseVersion("sheet_tables.sql")
	require.Error(t, err)
	_, err = parseVersion("_x.sql")
	require.Error(t, err)
}

func TestEmbeddedMigrationsPerDialect(t *testing.T) {
	for _, d := range []Dialect{MySQL, SQLite} {
		files, err := listFiles(d)
		require.NoError(t, err)
		require.NotEmpty(t, files, "dialect %s", d)
	}
}
