package catalog

// VarStyle controls how bind variables are emitted during serialize.
type VarStyle int

const (
	VarNamed VarStyle = iota
	VarNumbered
	VarPositional
)

// LimitStyle controls the shape of the LIMIT/OFFSET/FETCH clause.
type LimitStyle int

const (
	LimitRegular LimitStyle = iota
	LimitMySQL
	LimitSQLite
)

// Dialect is the full set of dialect-dependent rendering choices, ported
// from sqlcontext.py's SQLDialect dataclass. The zero value is not a
// usable PostgreSQL dialect (its VarStyle is VarNamed, its IDQuotes are
// empty, HasBoolLiterals is false); build one with Postgres, MySQL, SQLite
// or Default instead.
type Dialect struct {
	Name                string
	VarStyle            VarStyle
	VarPrefix           string
	IDQuotes            [2]string
	HasBoolLiterals     bool
	LimitStyle          LimitStyle
	HasRecursiveAnnot   bool
	HasAsColumns        bool
	HasDatetimeTypes    bool
	ValuesRowConstructor string
	ValuesColumnPrefix  string
	ValuesColumnIndex   int
}

// Postgres is the default canonical dialect: numbered $n variables,
// double-quoted identifiers, WITH RECURSIVE, typed date/time literals.
func Postgres() *Dialect {
	return &Dialect{
		Name:                "postgresql",
		VarStyle:            VarNumbered,
		VarPrefix:           "$",
		IDQuotes:            [2]string{`"`, `"`},
		HasBoolLiterals:     true,
		LimitStyle:          LimitRegular,
		HasRecursiveAnnot:   true,
		HasAsColumns:        true,
		HasDatetimeTypes:    true,
		ValuesColumnPrefix:  "column",
		ValuesColumnIndex:   1,
	}
}

// MySQL uses positional `?` placeholders, backtick identifiers, and the
// two-argument LIMIT offset,count form.
func MySQL() *Dialect {
	return &Dialect{
		Name:                 "mysql",
		VarStyle:             VarPositional,
		VarPrefix:            "?",
		IDQuotes:             [2]string{"`", "`"},
		HasBoolLiterals:      true,
		LimitStyle:           LimitMySQL,
		HasRecursiveAnnot:    true,
		HasAsColumns:         true,
		HasDatetimeTypes:     true,
		ValuesRowConstructor: "ROW",
		ValuesColumnPrefix:   "column_",
		ValuesColumnIndex:    0,
	}
}

// SQLite uses numbered `?n` placeholders, has no typed date/time literals,
// and doesn't support column aliases on VALUES.
func SQLite() *Dialect {
	return &Dialect{
		Name:               "sqlite",
		VarStyle:           VarNumbered,
		VarPrefix:          "?",
		IDQuotes:           [2]string{`"`, `"`},
		HasBoolLiterals:    true,
		LimitStyle:         LimitSQLite,
		HasRecursiveAnnot:  true,
		HasAsColumns:       false,
		HasDatetimeTypes:   false,
		ValuesColumnPrefix: "column",
		ValuesColumnIndex:  1,
	}
}

// Default returns the canonical default dialect (PostgreSQL), matching
// render.py's dialect_default resolution per SPEC_FULL.md §5.
func Default() *Dialect { return Postgres() }
