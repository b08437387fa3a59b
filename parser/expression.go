package parser

import (
	"fedplan/ast"
	"github.com/cockroachdb/errors"
	"github.com/xwb1989/sqlparser"
	"strconv"
	"strings"
)

const (
	OperatorEqual    = "="
	OperatorNotEqual = "!="
)

func getExpressionFromExpr(expr sqlparser.Expr) (ast.Expr, error) {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		return binary("and", e.Left, e.Right)
	case *sqlparser.OrExpr:
		return binary("or", e.Left, e.Right)
	case *sqlparser.NotExpr:
		return unary("not", e.Expr)
	case *sqlparser.ParenExpr:
		inner, err := getExpressionFromExpr(e.Expr)
		if err != nil {
			return nil, err
		}
		switch x := inner.(type) {
		case *ast.BinaryOperation:
			x.Parentheses = true
		case *ast.Select:
			x.Parentheses = true
		}
		return inner, nil
	case *sqlparser.ComparisonExpr:
		return getComparison(e)
	case *sqlparser.RangeCond:
		return getRange(e)
	case *sqlparser.IsExpr:
		return getIs(e)
	case *sqlparser.SQLVal:
		return getValue(e)
	case *sqlparser.NullVal:
		return &ast.NullConstant{}, nil
	case sqlparser.BoolVal:
		return &ast.Constant{Value: bool(e)}, nil
	case *sqlparser.ColName:
		parts := []string{e.Name.String()}
		if !e.Qualifier.IsEmpty() {
			parts = append(tableNameParts(e.Qualifier), parts...)
		}
		return &ast.Identifier{Parts: parts}, nil
	case *sqlparser.Subquery:
		return getSubquery(e)
	case *sqlparser.ExistsExpr:
		sub, err := getSubquery(e.Subquery)
		if err != nil {
			return nil, err
		}
		return &ast.Function{Op: "exists", Args: []ast.Expr{sub}}, nil
	case *sqlparser.BinaryExpr:
		return binary(e.Operator, e.Left, e.Right)
	case *sqlparser.UnaryExpr:
		op := strings.TrimSpace(e.Operator)
		if op == sqlparser.BangStr {
			op = "not"
		}
		u, err := unary(op, e.Expr)
		if err != nil {
			return nil, err
		}
		// the grammar folds -1 but not -1.5
		if c, ok := u.Args[0].(*ast.Constant); ok && op == sqlparser.UMinusStr {
			if n, ok := c.Negate(); ok {
				return n, nil
			}
		}
		return u, nil
	case *sqlparser.FuncExpr:
		return getFunction(e)
	default:
		return nil, errors.Wrapf(UnsupportedError, "expression type %T", expr)
	}
}

func binary(op string, left, right sqlparser.Expr) (*ast.BinaryOperation, error) {
	l, err := getExpressionFromExpr(left)
	if err != nil {
		return nil, err
	}
	r, err := getExpressionFromExpr(right)
	if err != nil {
		return nil, err
	}
	return ast.NewBinaryOperation(op, l, r), nil
}

func unary(op string, arg sqlparser.Expr) (*ast.UnaryOperation, error) {
	a, err := getExpressionFromExpr(arg)
	if err != nil {
		return nil, err
	}
	return &ast.UnaryOperation{Op: op, Args: []ast.Expr{a}}, nil
}

func getComparison(e *sqlparser.ComparisonExpr) (ast.Expr, error) {
	if e.Escape != nil {
		return nil, errors.Wrap(UnsupportedError, "LIKE ... ESCAPE")
	}
	tuple, ok := e.Right.(sqlparser.ValTuple)
	if !ok {
		return binary(e.Operator, e.Left, e.Right)
	}

	// IN and NOT IN over a literal list become chains of = and !=.
	var op, joiner string
	switch e.Operator {
	case sqlparser.InStr:
		op, joiner = OperatorEqual, "or"
	case sqlparser.NotInStr:
		op, joiner = OperatorNotEqual, "and"
	default:
		return nil, errors.Wrapf(UnsupportedError, "tuple operand for %s", e.Operator)
	}
	if len(tuple) == 0 {
		return nil, errors.Wrap(UnsupportedError, "empty IN list")
	}
	left, err := getExpressionFromExpr(e.Left)
	if err != nil {
		return nil, err
	}
	var chain ast.Expr
	for _, v := range tuple {
		r, err := getExpressionFromExpr(v)
		if err != nil {
			return nil, err
		}
		cmp := ast.NewBinaryOperation(op, ast.Clone(left), r)
		if chain == nil {
			chain = cmp
			continue
		}
		chain = ast.NewBinaryOperation(joiner, chain, cmp)
	}
	if b, ok := chain.(*ast.BinaryOperation); ok && len(tuple) > 1 {
		b.Parentheses = true
	}
	return chain, nil
}

func getRange(e *sqlparser.RangeCond) (ast.Expr, error) {
	left, err := getExpressionFromExpr(e.Left)
	if err != nil {
		return nil, err
	}
	from, err := getExpressionFromExpr(e.From)
	if err != nil {
		return nil, err
	}
	to, err := getExpressionFromExpr(e.To)
	if err != nil {
		return nil, err
	}
	between := ast.NewBinaryOperation("and",
		ast.NewBinaryOperation(">=", left, from),
		ast.NewBinaryOperation("<=", ast.Clone(left), to))
	between.Parentheses = true
	switch e.Operator {
	case sqlparser.BetweenStr:
		return between, nil
	case sqlparser.NotBetweenStr:
		return &ast.UnaryOperation{Op: "not", Args: []ast.Expr{between}}, nil
	default:
		return nil, errors.Wrapf(UnsupportedError, "range operator %s", e.Operator)
	}
}

func getIs(e *sqlparser.IsExpr) (ast.Expr, error) {
	arg, err := getExpressionFromExpr(e.Expr)
	if err != nil {
		return nil, err
	}
	var op string
	var val ast.Expr
	switch e.Operator {
	case sqlparser.IsNullStr:
		op, val = "is", &ast.NullConstant{}
	case sqlparser.IsNotNullStr:
		op, val = "is not", &ast.NullConstant{}
	case sqlparser.IsTrueStr:
		op, val = "is", &ast.Constant{Value: true}
	case sqlparser.IsNotTrueStr:
		op, val = "is not", &ast.Constant{Value: true}
	case sqlparser.IsFalseStr:
		op, val = "is", &ast.Constant{Value: false}
	case sqlparser.IsNotFalseStr:
		op, val = "is not", &ast.Constant{Value: false}
	default:
		return nil, errors.Wrapf(UnsupportedError, "operator %s", e.Operator)
	}
	return ast.NewBinaryOperation(op, arg, val), nil
}

func getValue(v *sqlparser.SQLVal) (ast.Expr, error) {
	s := string(v.Val)
	switch v.Type {
	case sqlparser.StrVal:
		return &ast.Constant{Value: s}, nil
	case sqlparser.IntVal:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return &ast.Constant{Value: n}, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "integer literal %s", s)
		}
		return &ast.Constant{Value: f}, nil
	case sqlparser.FloatVal:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "float literal %s", s)
		}
		return &ast.Constant{Value: f}, nil
	case sqlparser.HexNum, sqlparser.HexVal, sqlparser.BitVal:
		return &ast.Constant{Value: s}, nil
	default:
		return nil, errors.Wrapf(UnsupportedError, "bind variable %s", s)
	}
}

func getSubquery(sq *sqlparser.Subquery) (*ast.Select, error) {
	stmt, err := buildStatement(sq.Select)
	if err != nil {
		return nil, err
	}
	sel, ok := stmt.(*ast.Select)
	if !ok {
		return nil, errors.Wrap(UnsupportedError, "UNION in a subquery")
	}
	sel.Parentheses = true
	return sel, nil
}

func getFunction(e *sqlparser.FuncExpr) (*ast.Function, error) {
	if !e.Qualifier.IsEmpty() {
		return nil, errors.Wrapf(UnsupportedError, "qualified function %s.%s", e.Qualifier.String(), e.Name.String())
	}
	fn := &ast.Function{Op: e.Name.Lowered(), Distinct: e.Distinct}
	for _, se := range e.Exprs {
		switch a := se.(type) {
		case *sqlparser.StarExpr:
			fn.Args = append(fn.Args, &ast.Star{})
		case *sqlparser.AliasedExpr:
			arg, err := getExpressionFromExpr(a.Expr)
			if err != nil {
				return nil, err
			}
			fn.Args = append(fn.Args, arg)
		default:
			return nil, errors.Wrapf(UnsupportedError, "function argument %T", se)
		}
	}
	return fn, nil
}

func withAlias(e ast.Expr, alias string) ast.Expr {
	switch x := e.(type) {
	case *ast.Identifier:
		x.Alias = alias
	case *ast.Constant:
		x.Alias = alias
	case *ast.NullConstant:
		x.Alias = alias
	case *ast.UnaryOperation:
		x.Alias = alias
	case *ast.BinaryOperation:
		x.Alias = alias
	case *ast.Function:
		x.Alias = alias
	case *ast.Select:
		x.Alias = alias
	}
	return e
}
