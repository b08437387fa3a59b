package parser

import (
	"fedplan/ast"
	"github.com/cockroachdb/errors"
	"github.com/xwb1989/sqlparser"
	"strconv"
)

func BuildSelect(statement *sqlparser.Select) (*ast.Select, error) {
	targets, err := getTargetsFromSelectExprs(statement.SelectExprs)
	if err != nil {
		return nil, err
	}
	sel := &ast.Select{
		Targets:  targets,
		Distinct: statement.Distinct != "",
	}

	if sel.FromTable, err = getFromTable(statement.From); err != nil {
		return nil, err
	}
	if sel.Where, err = getCondition(statement.Where, sqlparser.WhereStr); err != nil {
		return nil, err
	}
	if sel.Having, err = getCondition(statement.Having, sqlparser.HavingStr); err != nil {
		return nil, err
	}
	for _, g := range statement.GroupBy {
		e, err := getExpressionFromExpr(g)
		if err != nil {
			return nil, err
		}
		sel.GroupBy = append(sel.GroupBy, e)
	}
	for _, o := range statement.OrderBy {
		e, err := getExpressionFromExpr(o.Expr)
		if err != nil {
			return nil, err
		}
		direction := ast.Asc
		if o.Direction == sqlparser.DescScr {
			direction = ast.Desc
		}
		sel.OrderBy = append(sel.OrderBy, &ast.OrderBy{Field: e, Direction: direction})
	}
	if statement.Limit != nil {
		if sel.Limit, err = getCount(statement.Limit.Rowcount); err != nil {
			return nil, err
		}
		if sel.Offset, err = getCount(statement.Limit.Offset); err != nil {
			return nil, err
		}
	}
	return sel, nil
}

func getTargetsFromSelectExprs(selectExprs sqlparser.SelectExprs) ([]ast.Expr, error) {
	targets := make([]ast.Expr, 0, len(selectExprs))
	for _, selectExpr := range selectExprs {
		switch se := selectExpr.(type) {
		case *sqlparser.StarExpr:
			if se.TableName.IsEmpty() {
				targets = append(targets, &ast.Star{})
				continue
			}
			targets = append(targets, &ast.Identifier{Parts: append(tableNameParts(se.TableName), "*")})
		case *sqlparser.AliasedExpr:
			e, err := getExpressionFromExpr(se.Expr)
			if err != nil {
				return nil, err
			}
			if !se.As.IsEmpty() {
				e = withAlias(e, se.As.String())
			}
			targets = append(targets, e)
		default:
			return nil, errors.Wrapf(UnsupportedError, "select expression type %T", selectExpr)
		}
	}
	return targets, nil
}

func getFromTable(from sqlparser.TableExprs) (ast.TableExpr, error) {
	if isDual(from) {
		return nil, nil
	}
	var table ast.TableExpr
	for _, te := range from {
		t, err := getTableFromTableExpr(te)
		if err != nil {
			return nil, err
		}
		if table == nil {
			table = t
			continue
		}
		table = &ast.Join{Left: table, Right: t, JoinType: ast.InnerJoin, Implicit: true}
	}
	return table, nil
}

// isDual reports whether the parser filled in the implicit FROM dual.
func isDual(from sqlparser.TableExprs) bool {
	if len(from) != 1 {
		return len(from) == 0
	}
	ate, ok := from[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return false
	}
	tn, ok := ate.Expr.(sqlparser.TableName)
	return ok && tn.Qualifier.IsEmpty() && tn.Name.String() == "dual"
}

func getTableFromTableExpr(from sqlparser.TableExpr) (ast.TableExpr, error) {
	switch te := from.(type) {
	case *sqlparser.AliasedTableExpr:
		alias := ""
		if !te.As.IsEmpty() {
			alias = te.As.String()
		}
		switch e := te.Expr.(type) {
		case sqlparser.TableName:
			return &ast.Identifier{Parts: tableNameParts(e), Alias: alias}, nil
		case *sqlparser.Subquery:
			stmt, err := buildStatement(e.Select)
			if err != nil {
				return nil, err
			}
			sel, ok := stmt.(*ast.Select)
			if !ok {
				return nil, errors.Wrap(UnsupportedError, "UNION as a FROM source")
			}
			sel.Alias = alias
			sel.Parentheses = true
			return sel, nil
		default:
			return nil, errors.Wrapf(UnsupportedError, "table expression type %T", e)
		}
	case *sqlparser.ParenTableExpr:
		return getFromTable(te.Exprs)
	case *sqlparser.JoinTableExpr:
		return getJoin(te)
	default:
		return nil, errors.Wrapf(UnsupportedError, "table type %T", from)
	}
}

var joinTypes = map[string]ast.JoinType{
	sqlparser.JoinStr:             ast.InnerJoin,
	sqlparser.StraightJoinStr:     ast.StraightJoin,
	sqlparser.LeftJoinStr:         ast.LeftJoin,
	sqlparser.RightJoinStr:        ast.RightJoin,
	sqlparser.NaturalJoinStr:      ast.NaturalJoin,
	sqlparser.NaturalLeftJoinStr:  ast.NaturalLeftJoin,
	sqlparser.NaturalRightJoinStr: ast.NaturalRightJoin,
}

func getJoin(te *sqlparser.JoinTableExpr) (*ast.Join, error) {
	joinType, ok := joinTypes[te.Join]
	if !ok {
		return nil, errors.Wrapf(UnsupportedError, "join type %q", te.Join)
	}
	if len(te.Condition.Using) > 0 {
		return nil, errors.Wrap(UnsupportedError, "JOIN ... USING")
	}
	left, err := getTableFromTableExpr(te.LeftExpr)
	if err != nil {
		return nil, err
	}
	right, err := getTableFromTableExpr(te.RightExpr)
	if err != nil {
		return nil, err
	}
	j := &ast.Join{Left: left, Right: right, JoinType: joinType}
	if te.Condition.On != nil {
		if j.Condition, err = getExpressionFromExpr(te.Condition.On); err != nil {
			return nil, err
		}
	} else if joinType == ast.InnerJoin {
		j.JoinType = ast.CrossJoin
	}
	return j, nil
}

func tableNameParts(tn sqlparser.TableName) []string {
	if tn.Qualifier.IsEmpty() {
		return []string{tn.Name.String()}
	}
	return []string{tn.Qualifier.String(), tn.Name.String()}
}

func getCondition(where *sqlparser.Where, typ string) (ast.Expr, error) {
	if where == nil || where.Expr == nil {
		return nil, nil
	}
	if where.Type != typ {
		return nil, errors.Wrapf(UnsupportedError, "where type %s", where.Type)
	}
	return getExpressionFromExpr(where.Expr)
}

func getCount(expr sqlparser.Expr) (*int64, error) {
	if expr == nil {
		return nil, nil
	}
	v, ok := expr.(*sqlparser.SQLVal)
	if !ok || v.Type != sqlparser.IntVal {
		return nil, errors.Wrapf(UnsupportedError, "LIMIT value %s", sqlparser.String(expr))
	}
	n, err := strconv.ParseInt(string(v.Val), 10, 64)
	if err != nil {
		return nil, errors.Wrapf(UnsupportedError, "LIMIT value %s", v.Val)
	}
	return &n, nil
}
