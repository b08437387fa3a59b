package planner

import (
	"fedplan/ast"
	"github.com/cockroachdb/errors"
	"strings"
)

// joinTable is one FROM source of a join spanning several namespaces.
type joinTable struct {
	ns        string
	table     *ast.Identifier
	sub       *ast.Select
	predictor bool
	// name is what columns of this table are qualified with in the plan.
	name       []string
	conditions []*ast.BinaryOperation
}

func (jt *joinTable) predicate() ast.Expr {
	exprs := make([]ast.Expr, len(jt.conditions))
	for i, c := range jt.conditions {
		exprs[i] = c
	}
	return ast.And(exprs...)
}

// joinItem is either a table or a join of the two entries below it on the
// stack, in postfix order.
type joinItem struct {
	table *joinTable
	join  *ast.Join
	cond  ast.Expr
}

type joinPlanner struct {
	b          *builder
	tables     map[string]*joinTable
	count      int
	predictors int
}

func (b *builder) planJoin(sel *ast.Select) (Step, error) {
	info, err := b.getQueryInfo(sel)
	if err != nil {
		return nil, err
	}
	if ns, ok := info.pushable(); ok {
		return b.planIntegrationSelect(ns, sel)
	}

	q, err := b.planSubselects(sel, "")
	if err != nil {
		return nil, err
	}
	q = ast.Clone(q)

	jp := &joinPlanner{b: b, tables: map[string]*joinTable{}}
	seq, err := jp.sequence(q.FromTable)
	if err != nil {
		return nil, err
	}
	if jp.predictors > 1 {
		return nil, unsupportedf("a join may use at most one predictor")
	}
	if err := jp.qualify(q, seq); err != nil {
		return nil, err
	}
	where := jp.distribute(q.Where)

	last, err := jp.steps(seq, q.Using)
	if err != nil {
		return nil, err
	}

	if where != nil {
		last = b.add(&FilterStep{Source: last.Result(), Predicate: where})
	}
	if len(q.GroupBy) > 0 {
		targets := make([]ast.Expr, len(q.Targets))
		for i, t := range q.Targets {
			targets[i] = ast.WithoutAlias(t)
		}
		last = b.add(&GroupByStep{Source: last.Result(), Columns: q.GroupBy, Targets: targets})
	}
	if q.Having != nil {
		last = b.add(&FilterStep{Source: last.Result(), Predicate: q.Having})
	}
	if len(q.OrderBy) > 0 {
		last = b.add(&OrderByStep{Source: last.Result(), OrderBy: q.OrderBy})
	}
	if q.Limit != nil || q.Offset != nil {
		last = b.add(&LimitOffsetStep{Source: last.Result(), Limit: q.Limit, Offset: q.Offset})
	}
	if q.Distinct {
		return b.add(&ProjectStep{Source: last.Result(), Columns: q.Targets, Distinct: true}), nil
	}
	return b.planProject(q.Targets, last), nil
}

// sequence flattens a join tree into postfix order and registers the names
// each table can be referred to by.
func (jp *joinPlanner) sequence(t ast.TableExpr) ([]joinItem, error) {
	switch x := t.(type) {
	case *ast.Identifier:
		ns, stripped, err := jp.b.resolveTable(x)
		if err != nil {
			return nil, err
		}
		jt := &joinTable{ns: ns, table: stripped, predictor: jp.b.isPredictorNamespace(ns)}
		var names [][]string
		if x.Alias != "" {
			names = [][]string{{x.Alias}}
		} else {
			for i := range x.Parts {
				names = append(names, x.Parts[i:])
			}
		}
		if err := jp.register(jt, names); err != nil {
			return nil, err
		}
		return []joinItem{{table: jt}}, nil
	case *ast.Select:
		if x.Alias == "" {
			return nil, unsupportedf("subquery in a join must have an alias")
		}
		jt := &joinTable{sub: x}
		if err := jp.register(jt, [][]string{{x.Alias}}); err != nil {
			return nil, err
		}
		return []joinItem{{table: jt}}, nil
	case *ast.NativeQuery:
		if x.Alias == "" {
			return nil, unsupportedf("native query in a join must have an alias")
		}
		sub := &ast.Select{Targets: []ast.Expr{&ast.Star{}}, FromTable: x, Alias: x.Alias}
		jt := &joinTable{sub: sub}
		if err := jp.register(jt, [][]string{{x.Alias}}); err != nil {
			return nil, err
		}
		return []joinItem{{table: jt}}, nil
	case *ast.Join:
		left, err := jp.sequence(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := jp.sequence(x.Right)
		if err != nil {
			return nil, err
		}
		if len(right) != 1 {
			return nil, unsupportedf("join with a nested join on its right side")
		}
		return append(append(left, right...), joinItem{join: x}), nil
	default:
		return nil, unsupportedf("join source %T", t)
	}
}

// register records the names of jt. The last name is the canonical one.
func (jp *joinPlanner) register(jt *joinTable, names [][]string) error {
	for _, n := range names {
		key := strings.ToLower(strings.Join(n, "."))
		if _, dup := jp.tables[key]; dup {
			return unsupportedf("table name %s is used twice in a join, use an alias", key)
		}
		jp.tables[key] = jt
	}
	jt.name = names[len(names)-1]
	jp.count++
	if jt.predictor {
		jp.predictors++
	}
	return nil
}

func (jp *joinPlanner) lookup(qualifier []string) (*joinTable, bool) {
	jt, ok := jp.tables[strings.ToLower(strings.Join(qualifier, "."))]
	return jt, ok
}

// column rewrites a qualified column to use the canonical table name.
func (jp *joinPlanner) column(id *ast.Identifier) (*ast.Identifier, error) {
	if len(id.Parts) < 2 {
		return id, nil
	}
	jt, ok := jp.lookup(id.Parts[:len(id.Parts)-1])
	if !ok {
		return nil, errors.Wrapf(UnknownTableError, "column %s", ast.String(ast.WithoutAlias(id)))
	}
	c := ast.Clone(id)
	c.Parts = append(append([]string(nil), jt.name...), id.Last())
	return c, nil
}

func (jp *joinPlanner) rewrite(e ast.Expr, requireQualified bool) (ast.Expr, error) {
	return ast.RewriteExpr(e, func(n ast.Expr) (ast.Expr, bool, error) {
		switch x := n.(type) {
		case *ast.Identifier:
			if requireQualified && len(x.Parts) == 1 && jp.count > 1 {
				return nil, false, errors.Wrapf(AmbiguousColumnError,
					"column %s could belong to any joined table", ast.QuoteName(x.Parts[0]))
			}
			c, err := jp.column(x)
			return c, false, err
		case *ast.Select, *ast.Parameter:
			return n, false, nil
		}
		return n, true, nil
	})
}

// qualify rewrites every column reference of q and the join conditions.
func (jp *joinPlanner) qualify(q *ast.Select, seq []joinItem) error {
	var err error
	for i, t := range q.Targets {
		if q.Targets[i], err = jp.rewrite(t, false); err != nil {
			return err
		}
	}
	if q.Where, err = jp.rewrite(q.Where, true); err != nil {
		return err
	}
	for i, g := range q.GroupBy {
		if q.GroupBy[i], err = jp.rewrite(g, false); err != nil {
			return err
		}
	}
	if q.Having, err = jp.rewrite(q.Having, false); err != nil {
		return err
	}
	for _, o := range q.OrderBy {
		if o.Field, err = jp.rewrite(o.Field, false); err != nil {
			return err
		}
	}
	for i := range seq {
		if seq[i].join == nil {
			continue
		}
		if seq[i].cond, err = jp.rewrite(seq[i].join.Condition, false); err != nil {
			return err
		}
	}
	return nil
}

// distribute copies column-versus-constant conjuncts of the WHERE clause to
// the table they constrain. Equalities on a predictor become its input and
// are removed from the returned predicate.
func (jp *joinPlanner) distribute(where ast.Expr) ast.Expr {
	conjuncts := ast.Conjuncts(where)
	keep := make([]ast.Expr, 0, len(conjuncts))
	for _, c := range conjuncts {
		jt, cond := jp.tableCondition(c)
		if jt == nil {
			keep = append(keep, c)
			continue
		}
		jt.conditions = append(jt.conditions, cond)
		if jt.predictor && cond.Op == "=" {
			continue
		}
		keep = append(keep, c)
	}
	if len(keep) == len(conjuncts) {
		return where
	}
	return ast.And(keep...)
}

// tableCondition matches "table.column op constant" and returns the owning
// table with the condition rewritten to the bare column. NULL tests are
// never moved below an outer join.
func (jp *joinPlanner) tableCondition(e ast.Expr) (*joinTable, *ast.BinaryOperation) {
	op, ok := e.(*ast.BinaryOperation)
	if !ok || len(op.Args) != 2 {
		return nil, nil
	}
	switch strings.ToLower(op.Op) {
	case "and", "or", "is", "is not":
		return nil, nil
	}
	colIdx := -1
	for i, a := range op.Args {
		if id, ok := a.(*ast.Identifier); ok && len(id.Parts) > 1 && !id.IsStar() {
			colIdx = i
		}
	}
	if colIdx < 0 {
		return nil, nil
	}
	if _, ok := op.Args[1-colIdx].(*ast.Constant); !ok {
		return nil, nil
	}
	id := op.Args[colIdx].(*ast.Identifier)
	jt, ok := jp.lookup(id.Parts[:len(id.Parts)-1])
	if !ok {
		return nil, nil
	}
	cond := &ast.BinaryOperation{Op: op.Op, Args: make([]ast.Expr, 2), Parentheses: op.Parentheses}
	cond.Args[colIdx] = &ast.Identifier{Parts: []string{id.Last()}}
	cond.Args[1-colIdx] = ast.Clone(op.Args[1-colIdx])
	return jt, cond
}

type stackEntry struct {
	step Step
	ref  ast.TableExpr
}

// steps emits a fetch, subselect or predictor step per table and a join
// step per join.
func (jp *joinPlanner) steps(seq []joinItem, params map[string]any) (Step, error) {
	b := jp.b
	var stack []stackEntry
	for _, it := range seq {
		if it.join != nil {
			switch it.join.JoinType {
			case ast.NaturalJoin, ast.NaturalLeftJoin, ast.NaturalRightJoin, ast.StraightJoin:
				return nil, unsupportedf("%s across integrations", it.join.JoinType)
			}
			if len(stack) < 2 {
				return nil, errors.AssertionFailedf("join needs two inputs, have %d", len(stack))
			}
			left, right := stack[len(stack)-2], stack[len(stack)-1]
			stack = stack[:len(stack)-2]
			j := &ast.Join{
				Left:      left.ref,
				Right:     right.ref,
				Condition: it.cond,
				JoinType:  it.join.JoinType,
				Implicit:  it.join.Implicit,
			}
			s := b.add(&JoinStep{Left: left.step.Result(), Right: right.step.Result(), Query: j})
			stack = append(stack, stackEntry{step: s, ref: j})
			continue
		}

		jt := it.table
		switch {
		case jt.sub != nil:
			inner := ast.Clone(jt.sub)
			inner.Alias = ""
			inner.Parentheses = false
			prev, err := b.planSelect(inner)
			if err != nil {
				return nil, err
			}
			query := &ast.Select{Targets: []ast.Expr{&ast.Star{}}, Where: jt.predicate()}
			s := b.add(&SubSelectStep{Source: prev.Result(), Query: query, TableName: jt.sub.Alias})
			stack = append(stack, stackEntry{step: s, ref: &ast.Identifier{Parts: []string{jt.sub.Alias}}})
		case jt.predictor:
			if len(stack) == 0 {
				return nil, unsupportedf("predictor %s cannot be the first table of a join", ast.String(jt.table))
			}
			var row map[string]any
			for _, c := range jt.conditions {
				if c.Op != "=" {
					continue
				}
				if col, val, ok := columnAndValue(c); ok {
					if row == nil {
						row = map[string]any{}
					}
					row[col.Last()] = val
				}
			}
			s := b.add(&ApplyPredictorStep{
				Namespace: jt.ns,
				Predictor: ast.Clone(jt.table),
				Source:    stack[len(stack)-1].step.Result(),
				Params:    params,
				Row:       row,
			})
			stack = append(stack, stackEntry{step: s, ref: ast.Clone(jt.table)})
		default:
			query := &ast.Select{
				Targets:   []ast.Expr{&ast.Star{}},
				FromTable: ast.Clone(jt.table),
				Where:     jt.predicate(),
			}
			s := b.add(&FetchDataframeStep{Integration: jt.ns, Query: query})
			stack = append(stack, stackEntry{step: s, ref: ast.Clone(jt.table)})
		}
	}
	if len(stack) != 1 {
		return nil, errors.AssertionFailedf("join left %d results", len(stack))
	}
	return stack[0].step, nil
}
