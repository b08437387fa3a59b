package planner

import (
	"fedplan/ast"
	"github.com/cockroachdb/errors"
	"strings"
)

func (b *builder) planSelect(sel *ast.Select) (Step, error) {
	if err := b.enter(); err != nil {
		return nil, err
	}
	defer b.leave()

	switch from := sel.FromTable.(type) {
	case *ast.Identifier:
		return b.planSelectFromTable(sel, from)
	case *ast.Select:
		return b.planNestedSelect(sel, from)
	case *ast.Join:
		return b.planJoin(sel)
	case *ast.NativeQuery:
		return b.planNativeQuery(sel, from)
	case nil:
		return b.planSelectWithoutTable(sel)
	default:
		return nil, unsupportedf("FROM source %T", from)
	}
}

func (b *builder) planSelectFromTable(sel *ast.Select, table *ast.Identifier) (Step, error) {
	info, err := b.getQueryInfo(sel)
	if err != nil {
		return nil, err
	}
	if ns, ok := info.pushable(); ok {
		return b.planIntegrationSelect(ns, sel)
	}

	ns, _, err := b.resolveTable(table)
	if err != nil {
		return nil, err
	}
	if sel, err = b.planSubselects(sel, ns); err != nil {
		return nil, err
	}
	if b.isPredictorNamespace(ns) {
		return b.planSelectFromPredictor(sel, ns)
	}
	return b.planIntegrationSelect(ns, sel)
}

// planSubselects plans every subquery of the projection list and the
// predicates that cannot run inside namespace ns as separate steps and
// substitutes a Parameter for it. An empty ns plans all of them.
func (b *builder) planSubselects(sel *ast.Select, ns string) (*ast.Select, error) {
	out := *sel
	var err error
	visit := func(e ast.Expr) (ast.Expr, bool, error) {
		sub, ok := e.(*ast.Select)
		if !ok {
			return e, true, nil
		}
		if ns != "" {
			info, err := b.getQueryInfo(sub)
			if err != nil {
				return nil, false, err
			}
			if owner, ok := info.pushable(); ok && owner == ns {
				return sub, false, nil
			}
		}
		p, err := b.planParameter(sub)
		return p, false, err
	}
	if out.Targets, err = ast.RewriteExprs(sel.Targets, visit); err != nil {
		return nil, err
	}
	if out.Where, err = ast.RewriteExpr(sel.Where, visit); err != nil {
		return nil, err
	}
	if out.Having, err = ast.RewriteExpr(sel.Having, visit); err != nil {
		return nil, err
	}
	return &out, nil
}

// planParameter plans a subquery on its own and returns the Parameter that
// replaces it in the enclosing query.
func (b *builder) planParameter(sub *ast.Select) (*ast.Parameter, error) {
	inner := ast.Clone(sub)
	inner.Alias = ""
	inner.Parentheses = false
	s, err := b.planSelect(inner)
	if err != nil {
		return nil, err
	}
	shown := inner
	if fetch, ok := s.(*FetchDataframeStep); ok && fetch.Query != nil {
		shown = ast.Clone(fetch.Query)
	}
	shown.Parentheses = sub.Parentheses
	return &ast.Parameter{Step: s.Index(), Select: shown, Alias: sub.Alias}, nil
}

func (b *builder) planNestedSelect(sel *ast.Select, from *ast.Select) (Step, error) {
	info, err := b.getQueryInfo(sel)
	if err != nil {
		return nil, err
	}
	if ns, ok := info.pushable(); ok {
		return b.planIntegrationSelect(ns, sel)
	}

	inner := ast.Clone(from)
	inner.Alias = ""
	inner.Parentheses = false
	prev, err := b.planSelect(inner)
	if err != nil {
		return nil, err
	}
	return b.subSelect(sel, prev, from.Alias)
}

func (b *builder) planNativeQuery(sel *ast.Select, nq *ast.NativeQuery) (Step, error) {
	if !b.namespaces.Contains(nq.Integration) {
		return nil, errors.Wrapf(NoIntegrationError, "native query for %s", nq.Integration)
	}
	prev := b.add(&FetchDataframeStep{Integration: strings.ToLower(nq.Integration), RawQuery: nq.Query})
	return b.subSelect(sel, prev, nq.Alias)
}

// planSelectWithoutTable sends a table-less select such as SELECT 1 to the
// default namespace.
func (b *builder) planSelectWithoutTable(sel *ast.Select) (Step, error) {
	ns := b.namespaces.Default()
	if ns == "" {
		return nil, errors.Wrap(NoIntegrationError, "select without FROM and no default namespace")
	}
	sel, err := b.planSubselects(sel, ns)
	if err != nil {
		return nil, err
	}
	return b.planIntegrationSelect(ns, sel)
}

// subSelect applies the clauses of sel to the output of prev, whose rows
// form the FROM source named tableName.
func (b *builder) subSelect(sel *ast.Select, prev Step, tableName string) (Step, error) {
	q, err := b.planSubselects(sel, "")
	if err != nil {
		return nil, err
	}
	q = ast.Clone(q)
	q.FromTable = nil
	q.Using = nil
	if isPassThrough(q) {
		return prev, nil
	}
	return b.add(&SubSelectStep{Source: prev.Result(), Query: q, TableName: tableName}), nil
}

// isPassThrough reports whether q is a bare SELECT * with no other clause.
func isPassThrough(q *ast.Select) bool {
	return ast.IsStarOnly(q.Targets) && !q.Distinct && q.Where == nil && len(q.GroupBy) == 0 &&
		q.Having == nil && len(q.OrderBy) == 0 && q.Limit == nil && q.Offset == nil
}

// planProject projects targets from prev. A lone * needs no step.
func (b *builder) planProject(targets []ast.Expr, prev Step) Step {
	if ast.IsStarOnly(targets) {
		return prev
	}
	columns := make([]ast.Expr, len(targets))
	for i, t := range targets {
		columns[i] = ast.Clone(t)
	}
	return b.add(&ProjectStep{Source: prev.Result(), Columns: columns})
}
