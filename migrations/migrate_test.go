package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesAreSortedSQLFiles(t *testing.T) {
	names, err := Names()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	assert.Equal(t, "0001_init.sql", names[0])
	for _, n := range names {
		assert.Contains(t, n, ".sql")
	}
}
