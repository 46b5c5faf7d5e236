// Package catalog holds the external, caller-supplied description of the
// tables a query tree may reference, and the dialect configuration that
// controls how the compiler's final pass renders SQL text.
package catalog

// Table describes a table-like object the compiler can resolve a From
// reference against.
type Table struct {
	Name    string
	Columns []string
	Schema  string
}

// ValuesTable represents `FROM (VALUES ...) AS t(col1, col2, ...)` sources
// built inline rather than resolved against the catalog.
type ValuesTable struct {
	Columns []string
	Rows    [][]any
}

// Catalog maps table names to their schema for a single compilation.
type Catalog struct {
	Dialect *Dialect
	Tables  map[string]*Table
}

// New creates a Catalog with the given dialect and an empty table set.
func New(dialect *Dialect) *Catalog {
	return &Catalog{Dialect: dialect, Tables: map[string]*Table{}}
}

// Add registers a table, returning the catalog for chained construction.
func (c *Catalog) Add(t *Table) *Catalog {
	c.Tables[t.Name] = t
	return c
}

// Get looks up a table by name, returning (nil, false) if absent.
func (c *Catalog) Get(name string) (*Table, bool) {
	t, ok := c.Tables[name]
	return t, ok
}
