// Package funsql is the public surface of the compiler: Render drives a
// node.Tabular tree through the five-pass pipeline (annotate, resolve,
// link, translate, serialize) up to a requested depth, and RenderClause
// serializes an already-built clause tree directly.
package funsql

import (
	"fmt"
	"sync"

	"github.com/mitchellh/hashstructure"
	"github.com/sirupsen/logrus"

	"github.com/ananis25/funsql-go/catalog"
	"github.com/ananis25/funsql-go/clause"
	"github.com/ananis25/funsql-go/compiler"
	"github.com/ananis25/funsql-go/node"
)

// RenderDepth controls how far Render drives the pipeline before
// returning, matching render.py's ordered RenderDepth enum.
type RenderDepth int

const (
	DepthAnnotate RenderDepth = iota + 1
	DepthResolve
	DepthLink
	DepthTranslate
	DepthSerialize
)

// Result is whichever IR Render stopped at: *compiler.Box through
// DepthLink, a clause tree (usually *clause.SELECT, a *clause.UNION or
// *clause.WITH for top-level Append/recursive queries) at DepthTranslate,
// *compiler.SQLString at DepthSerialize.
type Result struct {
	Box    *compiler.Box
	Clause clause.Clause
	SQL    *compiler.SQLString
}

// Render drives root through the compiler pipeline up to depth (default
// DepthSerialize), against cat (default an empty catalog with the
// PostgreSQL dialect). The passes build their own annotated IR (returned
// as Result.Box at the early depths) and leave root's nodes unchanged.
func Render(root node.Tabular, depth RenderDepth, cat *catalog.Catalog) (*Result, error) {
	if depth == 0 {
		depth = DepthSerialize
	}
	if cat == nil {
		cat = catalog.New(catalog.Default())
	}

	annCtx := compiler.NewAnnotateContext(cat)
	box, err := compiler.Annotate(root, annCtx)
	if err != nil {
		return nil, fmt.Errorf("funsql: annotate: %w", err)
	}
	logrus.WithField("pass", "annotate").Trace("funsql: annotate complete")
	if depth <= DepthAnnotate {
		return &Result{Box: box}, nil
	}

	if err := compiler.ResolveToplevel(annCtx); err != nil {
		return nil, fmt.Errorf("funsql: resolve: %w", err)
	}
	logrus.WithField("pass", "resolve").Trace("funsql: resolve complete")
	if depth <= DepthResolve {
		return &Result{Box: box}, nil
	}

	if err := compiler.LinkToplevel(annCtx); err != nil {
		return nil, fmt.Errorf("funsql: link: %w", err)
	}
	logrus.WithField("pass", "link").Trace("funsql: link complete")
	if depth <= DepthLink {
		return &Result{Box: box}, nil
	}

	sel, err := compiler.TranslateToplevel(box, cat.Dialect)
	if err != nil {
		return nil, fmt.Errorf("funsql: translate: %w", err)
	}
	logrus.WithField("pass", "translate").Trace("funsql: translate complete")
	if depth <= DepthTranslate {
		return &Result{Clause: sel}, nil
	}

	sql, err := compiler.Serialize(sel, cat.Dialect)
	if err != nil {
		return nil, fmt.Errorf("funsql: serialize: %w", err)
	}
	logrus.WithField("pass", "serialize").Trace("funsql: serialize complete")
	return &Result{SQL: sql}, nil
}

// RenderClause serializes a pre-built clause tree directly against
// dialect, skipping the first four passes entirely.
func RenderClause(c clause.Clause, dialect *catalog.Dialect) (*compiler.SQLString, error) {
	return compiler.Serialize(c, dialect)
}

// RenderCache memoizes Render results by the structural hash of the node
// tree plus dialect name, so a caller re-rendering an identical query tree
// (e.g. across repeated calls in a request-handling loop) skips
// recompilation. Keyed by hash rather than by a session/query-text pair
// (the teacher's prepared-statement cache keys by session and query text)
// since FunSQL trees are plain Go values, not opaque query strings.
type RenderCache struct {
	mu      sync.Mutex
	entries map[uint64]*Result
}

// NewRenderCache creates an empty cache.
func NewRenderCache() *RenderCache {
	return &RenderCache{entries: map[uint64]*Result{}}
}

func cacheKey(root node.Tabular, depth RenderDepth, dialectName string) (uint64, error) {
	h, err := hashstructure.Hash(struct {
		Root  node.Tabular
		Depth RenderDepth
		D     string
	}{root, depth, dialectName}, nil)
	return h, err
}

// Get returns a cached Result for root/depth/catalog's dialect, if any.
func (c *RenderCache) Get(root node.Tabular, depth RenderDepth, cat *catalog.Catalog) (*Result, bool) {
	name := ""
	if cat != nil && cat.Dialect != nil {
		name = cat.Dialect.Name
	}
	key, err := cacheKey(root, depth, name)
	if err != nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	return r, ok
}

// RenderCached is Render with RenderCache's memoization layered on top.
func (c *RenderCache) RenderCached(root node.Tabular, depth RenderDepth, cat *catalog.Catalog) (*Result, error) {
	if r, ok := c.Get(root, depth, cat); ok {
		return r, nil
	}
	r, err := Render(root, depth, cat)
	if err != nil {
		return nil, err
	}
	name := ""
	if cat != nil && cat.Dialect != nil {
		name = cat.Dialect.Name
	}
	key, hErr := cacheKey(root, depth, name)
	if hErr == nil {
		c.mu.Lock()
		c.entries[key] = r
		c.mu.Unlock()
	}
	return r, nil
}

// Clear empties the cache.
func (c *RenderCache) Clear() {
	c.mu.Lock()
	c.entries = map[uint64]*Result{}
	c.mu.Unlock()
}
