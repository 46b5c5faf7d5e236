package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDialectIsPostgres(t *testing.T) {
	assert.Equal(t, Postgres().Name, Default().Name)
}

func TestDialectsHaveDistinctLimitStyles(t *testing.T) {
	assert.Equal(t, LimitMySQL, MySQL().LimitStyle)
	assert.Equal(t, LimitSQLite, SQLite().LimitStyle)
	assert.Equal(t, LimitRegular, Postgres().LimitStyle)
}

func TestCatalogAddAndGet(t *testing.T) {
	cat := New(Postgres())
	cat.Add(&Table{Name: "person", Columns: []string{"id", "name"}})

	got, ok := cat.Get("person")
	require.True(t, ok)
	assert.Len(t, got.Columns, 2)

	_, ok = cat.Get("missing")
	assert.False(t, ok)
}
