package planner

import (
	"fedplan/ast"
	"fedplan/resolver"
	"github.com/cockroachdb/errors"
)

type prepareMode int

const (
	// prepareTop strips the namespace only.
	prepareTop prepareMode = iota
	// prepareNested also qualifies bare columns with the table name or alias
	// when the table was named with its namespace.
	prepareNested
	// preparePredicate is used for subqueries of WHERE and HAVING.
	preparePredicate
)

// integrationSelectStep builds the fetch that runs sel inside namespace ns.
func (b *builder) integrationSelectStep(ns string, sel *ast.Select) (*FetchDataframeStep, error) {
	query, err := b.prepareSelect(ns, sel, prepareTop)
	if err != nil {
		return nil, err
	}
	return &FetchDataframeStep{Integration: ns, Query: query}, nil
}

func (b *builder) planIntegrationSelect(ns string, sel *ast.Select) (Step, error) {
	s, err := b.integrationSelectStep(ns, sel)
	if err != nil {
		return nil, err
	}
	return b.add(s), nil
}

// prepareSelect returns a copy of sel rewritten to run inside namespace ns.
func (b *builder) prepareSelect(ns string, sel *ast.Select, mode prepareMode) (*ast.Select, error) {
	out := *sel
	out.Using = nil

	cr := columnRewriter{b: b, ns: ns}
	switch from := sel.FromTable.(type) {
	case nil:
	case *ast.Identifier:
		stripped, ok := resolver.Strip(from, ns)
		out.FromTable = stripped
		if mode == prepareNested && ok {
			cr.prefix = resolver.TablePrefix(stripped)
			cr.table = stripped
		}
	default:
		t, err := b.prepareTable(ns, from)
		if err != nil {
			return nil, err
		}
		out.FromTable = t
	}

	var err error
	out.Targets = make([]ast.Expr, len(sel.Targets))
	for i, t := range sel.Targets {
		if out.Targets[i], err = cr.target(t); err != nil {
			return nil, err
		}
	}
	if out.Where, err = cr.expr(sel.Where, preparePredicate); err != nil {
		return nil, err
	}
	if out.GroupBy, err = cr.exprs(sel.GroupBy); err != nil {
		return nil, err
	}
	if out.Having, err = cr.expr(sel.Having, preparePredicate); err != nil {
		return nil, err
	}
	if sel.OrderBy != nil {
		out.OrderBy = make([]*ast.OrderBy, len(sel.OrderBy))
		for i, o := range sel.OrderBy {
			field, err := cr.expr(o.Field, prepareNested)
			if err != nil {
				return nil, err
			}
			out.OrderBy[i] = &ast.OrderBy{Field: field, Direction: o.Direction}
		}
	}
	return &out, nil
}

// prepareTable rewrites a FROM source other than a plain table.
func (b *builder) prepareTable(ns string, t ast.TableExpr) (ast.TableExpr, error) {
	switch x := t.(type) {
	case *ast.Identifier:
		stripped, _ := resolver.Strip(x, ns)
		return stripped, nil
	case *ast.Select:
		return b.prepareSelect(ns, x, prepareNested)
	case *ast.Join:
		left, err := b.prepareTable(ns, x.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.prepareTable(ns, x.Right)
		if err != nil {
			return nil, err
		}
		cr := columnRewriter{b: b, ns: ns}
		cond, err := cr.expr(x.Condition, preparePredicate)
		if err != nil {
			return nil, err
		}
		return &ast.Join{Left: left, Right: right, Condition: cond, JoinType: x.JoinType, Implicit: x.Implicit}, nil
	default:
		return nil, unsupportedf("table expression %T inside integration query", t)
	}
}

// columnRewriter strips the namespace from column references and, when
// prefix is set, qualifies bare columns with it.
type columnRewriter struct {
	b      *builder
	ns     string
	prefix []string
	table  *ast.Identifier
}

func (cr columnRewriter) column(id *ast.Identifier) (*ast.Identifier, bool, error) {
	stripped, ok := resolver.Strip(id, cr.ns)
	if cr.prefix == nil {
		return stripped, ok, nil
	}
	qualified, ok := resolver.Qualify(stripped, cr.prefix)
	if !ok {
		return nil, false, errors.Wrapf(UnknownTableError,
			"column %s is not from table %s", ast.String(ast.WithoutAlias(stripped)), ast.String(cr.table))
	}
	return qualified, true, nil
}

// target rewrites a projection item. A column that stays qualified keeps
// its bare name as alias.
func (cr columnRewriter) target(e ast.Expr) (ast.Expr, error) {
	id, ok := e.(*ast.Identifier)
	if !ok {
		return cr.expr(e, prepareNested)
	}
	col, changed, err := cr.column(id)
	if err != nil {
		return nil, err
	}
	if changed && col.Alias == "" && len(col.Parts) > 1 && !col.IsStar() {
		col.Alias = col.Last()
	}
	return col, nil
}

func (cr columnRewriter) exprs(exprs []ast.Expr) ([]ast.Expr, error) {
	return ast.RewriteExprs(exprs, cr.visitor(prepareNested))
}

func (cr columnRewriter) expr(e ast.Expr, subqueryMode prepareMode) (ast.Expr, error) {
	return ast.RewriteExpr(e, cr.visitor(subqueryMode))
}

func (cr columnRewriter) visitor(subqueryMode prepareMode) func(ast.Expr) (ast.Expr, bool, error) {
	return func(e ast.Expr) (ast.Expr, bool, error) {
		switch x := e.(type) {
		case *ast.Identifier:
			col, _, err := cr.column(x)
			return col, false, err
		case *ast.Select:
			sub, err := cr.b.prepareSelect(cr.ns, x, subqueryMode)
			return sub, false, err
		case *ast.Parameter:
			return x, false, nil
		}
		return e, true, nil
	}
}
