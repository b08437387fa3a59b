package planner

import (
	"fedplan/ast"
	"strings"
)

// planSelectFromPredictor plans a query that reads a predictor directly.
// The WHERE clause supplies the single input row.
func (b *builder) planSelectFromPredictor(sel *ast.Select, ns string) (Step, error) {
	table := sel.FromTable.(*ast.Identifier)
	_, predictor, err := b.resolveTable(table)
	if err != nil {
		return nil, err
	}
	if len(sel.GroupBy) > 0 || sel.Having != nil {
		return nil, unsupportedf("GROUP BY on predictor %s", ast.String(predictor))
	}
	if sel.Where == nil {
		return nil, unsupportedf("selecting from predictor %s requires a WHERE clause with input values", ast.String(predictor))
	}

	row := map[string]any{}
	if err := rowFromCondition(sel.Where, row); err != nil {
		return nil, err
	}

	prev := b.add(&ApplyPredictorRowStep{
		Namespace: ns,
		Predictor: predictor,
		Row:       row,
		Params:    sel.Using,
	})

	targets := make([]ast.Expr, len(sel.Targets))
	for i, t := range sel.Targets {
		target, err := predictorColumn(t, predictor)
		if err != nil {
			return nil, err
		}
		targets[i] = target
	}
	return b.planProject(targets, prev), nil
}

// rowFromCondition collects column = constant pairs joined by AND.
func rowFromCondition(e ast.Expr, row map[string]any) error {
	for _, c := range ast.Conjuncts(e) {
		op, ok := c.(*ast.BinaryOperation)
		if !ok || op.Op != "=" {
			return unsupportedf("predictor input must be column = value conditions joined by AND, got %s", ast.String(c))
		}
		col, val, ok := columnAndValue(op)
		if !ok {
			return unsupportedf("predictor input must compare a column to a constant, got %s", ast.String(c))
		}
		row[col.Last()] = val
	}
	return nil
}

// columnAndValue splits a comparison into its column and constant sides.
func columnAndValue(op *ast.BinaryOperation) (*ast.Identifier, any, bool) {
	left, right := op.Args[0], op.Args[1]
	if _, ok := left.(*ast.Identifier); !ok {
		left, right = right, left
	}
	col, ok := left.(*ast.Identifier)
	if !ok {
		return nil, nil, false
	}
	switch v := right.(type) {
	case *ast.Constant:
		return col, v.Value, true
	case *ast.NullConstant:
		return col, nil, true
	case *ast.UnaryOperation:
		if v.Op != "-" || len(v.Args) != 1 {
			break
		}
		if c, ok := v.Args[0].(*ast.Constant); ok {
			if n, ok := c.Negate(); ok {
				return col, n.Value, true
			}
		}
	}
	return nil, nil, false
}

// predictorColumn drops the predictor name from qualified output columns.
func predictorColumn(e ast.Expr, predictor *ast.Identifier) (ast.Expr, error) {
	switch x := e.(type) {
	case *ast.Star, *ast.Constant, *ast.NullConstant, *ast.Function:
		return ast.Clone(e), nil
	case *ast.Identifier:
		c := ast.Clone(x)
		if len(c.Parts) > 1 && !c.IsStar() {
			qualifier := c.Parts[len(c.Parts)-2]
			if !strings.EqualFold(qualifier, predictor.Last()) && !strings.EqualFold(qualifier, predictor.Alias) {
				return nil, unsupportedf("column %s does not belong to predictor %s", ast.String(x), ast.String(predictor))
			}
			c.Parts = c.Parts[len(c.Parts)-1:]
		}
		if c.IsStar() {
			return &ast.Star{}, nil
		}
		return c, nil
	default:
		return nil, unsupportedf("expression %s in predictor projection", ast.String(e))
	}
}
