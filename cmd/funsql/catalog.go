package main

import (
	"os"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/ananis25/funsql-go/catalog"
)

// catalogDoc is the on-disk shape of a --catalog file: a dialect name plus
// the tables a query tree may resolve From references against.
type catalogDoc struct {
	Dialect string         `json:"dialect"`
	Tables  []catalogTable `json:"tables"`
}

type catalogTable struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Schema  string   `json:"schema,omitempty"`
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	dialect := catalog.Default()
	cat := catalog.New(dialect)
	if path == "" {
		return cat, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading catalog file %q", path)
	}

	var doc catalogDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing catalog file %q", path)
	}

	dialect = dialectByName(doc.Dialect)
	cat = catalog.New(dialect)
	for _, t := range doc.Tables {
		cat.Add(&catalog.Table{Name: t.Name, Columns: t.Columns, Schema: t.Schema})
	}
	return cat, nil
}

func dialectByName(name string) *catalog.Dialect {
	switch name {
	case "mysql":
		return catalog.MySQL()
	case "sqlite":
		return catalog.SQLite()
	case "postgres", "postgresql", "":
		return catalog.Postgres()
	default:
		return catalog.Default()
	}
}
