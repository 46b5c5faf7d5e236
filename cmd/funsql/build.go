package main

import (
	"fmt"
	"time"

	"github.com/ananis25/funsql-go/compiler"
	"github.com/ananis25/funsql-go/node"
)

// buildExpr interprets one node of a query document: a YAML sequence whose
// first element names the combinator (`from`, `select`, `where`, `get`,
// `fun`, ...) and whose remaining elements are either nested expressions or
// literal arguments. This mirrors the Python surface's builder-chain
// interface (`From("t").Where(...)`), but expressed as data so a caller can
// describe a query entirely in YAML and hand it to the CLI.
func buildExpr(raw any) (node.Node, error) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("funsql: expected a non-empty [tag, ...args] list, got %T", raw)
	}
	tag, ok := items[0].(string)
	if !ok {
		return nil, fmt.Errorf("funsql: expression tag must be a string, got %T", items[0])
	}
	args := items[1:]

	switch tag {
	case "from":
		name, err := argString(args, 0, "from")
		if err != nil {
			return nil, err
		}
		return node.NewFrom(node.FromName(node.Symbol(name))), nil

	case "select":
		over, err := buildTabular(args, 0, "select")
		if err != nil {
			return nil, err
		}
		cols, err := buildNodes(args[1:])
		if err != nil {
			return nil, err
		}
		return node.NewSelect(over, cols...)

	case "where":
		over, err := buildTabular(args, 0, "where")
		if err != nil {
			return nil, err
		}
		cond, err := buildExpr(args[1])
		if err != nil {
			return nil, err
		}
		return node.NewWhere(over, cond), nil

	case "group":
		over, err := buildTabular(args, 0, "group")
		if err != nil {
			return nil, err
		}
		by, err := buildNodes(args[1:])
		if err != nil {
			return nil, err
		}
		return node.NewGroup(over, by...)

	case "order":
		over, err := buildTabular(args, 0, "order")
		if err != nil {
			return nil, err
		}
		by, err := buildNodes(args[1:])
		if err != nil {
			return nil, err
		}
		return node.NewOrder(over, by...), nil

	case "limit":
		over, err := buildTabular(args, 0, "limit")
		if err != nil {
			return nil, err
		}
		limit := argInt64Ptr(args, 1)
		offset := argInt64Ptr(args, 2)
		return node.NewLimit(over, limit, offset), nil

	case "join":
		if len(args) < 3 {
			return nil, fmt.Errorf("funsql: join requires over, joinee, on")
		}
		over, err := buildTabular(args, 0, "join")
		if err != nil {
			return nil, err
		}
		joinee, err := buildTabular(args, 1, "join")
		if err != nil {
			return nil, err
		}
		on, err := buildExpr(args[2])
		if err != nil {
			return nil, err
		}
		left := argBool(args, 3)
		right := argBool(args, 4)
		return node.NewJoin(over, joinee, on, left, right), nil

	case "define":
		over, err := buildTabular(args, 0, "define")
		if err != nil {
			return nil, err
		}
		defs, err := buildNodes(args[1:])
		if err != nil {
			return nil, err
		}
		return node.NewDefine(over, defs...)

	case "append":
		over, err := buildTabular(args, 0, "append")
		if err != nil {
			return nil, err
		}
		rest, err := buildTabulars(args[1:])
		if err != nil {
			return nil, err
		}
		return node.NewAppend(over, rest...), nil

	case "as":
		name, err := argString(args, 0, "as")
		if err != nil {
			return nil, err
		}
		over, err := buildExpr(args[1])
		if err != nil {
			return nil, err
		}
		return node.NewAs(node.Symbol(name), over), nil

	case "lit":
		if len(args) == 0 {
			return node.NewLit(nil), nil
		}
		return node.NewLit(normalizeLit(args[0])), nil

	case "var":
		name, err := argString(args, 0, "var")
		if err != nil {
			return nil, err
		}
		return node.NewVar(node.Symbol(name)), nil

	case "get":
		name, err := argString(args, 0, "get")
		if err != nil {
			return nil, err
		}
		var over node.Node
		if len(args) > 1 {
			over, err = buildExpr(args[1])
			if err != nil {
				return nil, err
			}
		}
		return node.NewGet(node.Symbol(name), over), nil

	case "fun":
		name, err := argString(args, 0, "fun")
		if err != nil {
			return nil, err
		}
		fargs, err := buildNodes(args[1:])
		if err != nil {
			return nil, err
		}
		return node.NewFun(node.Symbol(name), fargs...), nil

	case "agg":
		name, err := argString(args, 0, "agg")
		if err != nil {
			return nil, err
		}
		aargs, err := buildNodes(args[1:])
		if err != nil {
			return nil, err
		}
		return node.NewAgg(node.Symbol(name), aargs...), nil

	case "sort":
		if len(args) == 0 {
			return nil, fmt.Errorf("funsql: sort requires a value expression")
		}
		val, err := buildExpr(args[0])
		if err != nil {
			return nil, err
		}
		order := node.Asc
		if argStringOr(args, 1, "asc") == "desc" {
			order = node.Desc
		}
		nulls := node.NullsDefault
		switch argStringOr(args, 2, "") {
		case "first":
			nulls = node.NullsFirst
		case "last":
			nulls = node.NullsLast
		}
		return node.NewSort(val, order, nulls), nil

	case "bind":
		over, err := buildTabular(args, 0, "bind")
		if err != nil {
			return nil, err
		}
		bargs, err := buildNodes(args[1:])
		if err != nil {
			return nil, err
		}
		return node.NewBind(over, bargs...)

	default:
		return nil, fmt.Errorf("funsql: unknown expression tag %q", tag)
	}
}

func buildTabular(args []any, idx int, tag string) (node.Tabular, error) {
	n, err := buildTabularExpr(args, idx, tag)
	if err != nil {
		return nil, err
	}
	t, ok := n.(node.Tabular)
	if !ok {
		return nil, fmt.Errorf("funsql: %s: argument %d is not a tabular node", tag, idx)
	}
	return t, nil
}

func buildTabularExpr(args []any, idx int, tag string) (node.Node, error) {
	if idx >= len(args) {
		return nil, fmt.Errorf("funsql: %s: missing argument %d", tag, idx)
	}
	return buildExpr(args[idx])
}

func buildTabulars(raws []any) ([]node.Tabular, error) {
	out := make([]node.Tabular, 0, len(raws))
	for _, r := range raws {
		n, err := buildExpr(r)
		if err != nil {
			return nil, err
		}
		t, ok := n.(node.Tabular)
		if !ok {
			return nil, fmt.Errorf("funsql: expected a tabular node, got %T", n)
		}
		out = append(out, t)
	}
	return out, nil
}

func buildNodes(raws []any) ([]node.Node, error) {
	out := make([]node.Node, 0, len(raws))
	for _, r := range raws {
		n, err := buildExpr(r)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func argString(args []any, idx int, tag string) (string, error) {
	if idx >= len(args) {
		return "", fmt.Errorf("funsql: %s: missing argument %d", tag, idx)
	}
	s, ok := args[idx].(string)
	if !ok {
		return "", fmt.Errorf("funsql: %s: argument %d must be a string, got %T", tag, idx, args[idx])
	}
	return s, nil
}

func argStringOr(args []any, idx int, def string) string {
	if idx >= len(args) {
		return def
	}
	s, ok := args[idx].(string)
	if !ok {
		return def
	}
	return s
}

func argBool(args []any, idx int) bool {
	if idx >= len(args) {
		return false
	}
	b, _ := args[idx].(bool)
	return b
}

func argInt64Ptr(args []any, idx int) *int64 {
	if idx >= len(args) || args[idx] == nil {
		return nil
	}
	switch v := args[idx].(type) {
	case int:
		n := int64(v)
		return &n
	case int64:
		return &v
	case float64:
		n := int64(v)
		return &n
	}
	return nil
}

// normalizeLit converts the plain-JSON-ish types a YAML decoder produces
// into the runtime type set serialize.go's literal dispatch understands;
// YAML has no native int64, so whole-number floats get narrowed back.
func normalizeLit(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return x
	case map[string]any:
		if s, ok := x["date"].(string); ok {
			if t, err := time.Parse("2006-01-02", s); err == nil {
				return compiler.DateVal{Time: t}
			}
		}
		if s, ok := x["time"].(string); ok {
			if t, err := time.Parse("15:04:05", s); err == nil {
				return compiler.TimeVal{Time: t}
			}
		}
		if s, ok := x["datetime"].(string); ok {
			if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
				return compiler.DateTimeVal{Time: t}
			}
		}
	}
	return v
}
