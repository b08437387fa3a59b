package ast

import "maps"

// Clone returns a deep copy of n. Parameter.Select is shared, not copied.
func Clone[T Node](n T) T {
	c, _ := cloneNode(n).(T)
	return c
}

func cloneNode(n Node) Node {
	switch x := n.(type) {
	case nil:
		return nil
	case *Identifier:
		if x == nil {
			return x
		}
		c := *x
		c.Parts = append([]string(nil), x.Parts...)
		return &c
	case *Constant:
		if x == nil {
			return x
		}
		c := *x
		return &c
	case *NullConstant:
		if x == nil {
			return x
		}
		c := *x
		return &c
	case *Star:
		if x == nil {
			return x
		}
		return &Star{}
	case *UnaryOperation:
		if x == nil {
			return x
		}
		c := *x
		c.Args = cloneExprs(x.Args)
		return &c
	case *BinaryOperation:
		if x == nil {
			return x
		}
		c := *x
		c.Args = cloneExprs(x.Args)
		return &c
	case *Function:
		if x == nil {
			return x
		}
		c := *x
		c.Args = cloneExprs(x.Args)
		return &c
	case *OrderBy:
		if x == nil {
			return x
		}
		return &OrderBy{Field: cloneExpr(x.Field), Direction: x.Direction}
	case *Select:
		if x == nil {
			return x
		}
		c := *x
		c.Targets = cloneExprs(x.Targets)
		c.FromTable = cloneTable(x.FromTable)
		c.Where = cloneExpr(x.Where)
		c.GroupBy = cloneExprs(x.GroupBy)
		c.Having = cloneExpr(x.Having)
		if x.OrderBy != nil {
			c.OrderBy = make([]*OrderBy, len(x.OrderBy))
			for i, o := range x.OrderBy {
				c.OrderBy[i] = Clone(o)
			}
		}
		c.Limit = cloneInt(x.Limit)
		c.Offset = cloneInt(x.Offset)
		if x.Using != nil {
			c.Using = maps.Clone(x.Using)
		}
		return &c
	case *Join:
		if x == nil {
			return x
		}
		c := *x
		c.Left = cloneTable(x.Left)
		c.Right = cloneTable(x.Right)
		c.Condition = cloneExpr(x.Condition)
		return &c
	case *NativeQuery:
		if x == nil {
			return x
		}
		c := *x
		return &c
	case *Parameter:
		if x == nil {
			return x
		}
		c := *x
		return &c
	case *Union:
		if x == nil {
			return x
		}
		c := *x
		c.Left = cloneStatement(x.Left)
		c.Right = cloneStatement(x.Right)
		return &c
	}
	return n
}

func cloneExpr(e Expr) Expr {
	if e == nil {
		return nil
	}
	return cloneNode(e).(Expr)
}

func cloneTable(t TableExpr) TableExpr {
	if t == nil {
		return nil
	}
	return cloneNode(t).(TableExpr)
}

func cloneStatement(s Statement) Statement {
	if s == nil {
		return nil
	}
	return cloneNode(s).(Statement)
}

func cloneExprs(exprs []Expr) []Expr {
	if exprs == nil {
		return nil
	}
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = cloneExpr(e)
	}
	return out
}

func cloneInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
