package ast

// Walk visits n and its descendants in pre-order. Children of a node are
// skipped when visit returns false. Parameter.Select is not visited.
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch x := n.(type) {
	case *UnaryOperation:
		walkExprs(x.Args, visit)
	case *BinaryOperation:
		walkExprs(x.Args, visit)
	case *Function:
		walkExprs(x.Args, visit)
	case *OrderBy:
		walkExpr(x.Field, visit)
	case *Select:
		walkExprs(x.Targets, visit)
		if x.FromTable != nil {
			Walk(x.FromTable, visit)
		}
		walkExpr(x.Where, visit)
		walkExprs(x.GroupBy, visit)
		walkExpr(x.Having, visit)
		for _, o := range x.OrderBy {
			Walk(o, visit)
		}
	case *Join:
		if x.Left != nil {
			Walk(x.Left, visit)
		}
		if x.Right != nil {
			Walk(x.Right, visit)
		}
		walkExpr(x.Condition, visit)
	case *Union:
		if x.Left != nil {
			Walk(x.Left, visit)
		}
		if x.Right != nil {
			Walk(x.Right, visit)
		}
	}
}

func walkExpr(e Expr, visit func(Node) bool) {
	if e != nil {
		Walk(e, visit)
	}
}

func walkExprs(exprs []Expr, visit func(Node) bool) {
	for _, e := range exprs {
		walkExpr(e, visit)
	}
}

// RewriteExpr calls pre for e top-down and rebuilds every operator whose
// arguments were visited, leaving the input untouched. pre returns the
// replacement node and whether its arguments should be visited next.
// Subqueries are never entered; pre sees them and may replace them.
func RewriteExpr(e Expr, pre func(Expr) (Expr, bool, error)) (Expr, error) {
	if e == nil {
		return nil, nil
	}
	n, descend, err := pre(e)
	if err != nil || !descend {
		return n, err
	}
	switch x := n.(type) {
	case *UnaryOperation:
		args, err := RewriteExprs(x.Args, pre)
		if err != nil {
			return nil, err
		}
		c := *x
		c.Args = args
		return &c, nil
	case *BinaryOperation:
		args, err := RewriteExprs(x.Args, pre)
		if err != nil {
			return nil, err
		}
		c := *x
		c.Args = args
		return &c, nil
	case *Function:
		args, err := RewriteExprs(x.Args, pre)
		if err != nil {
			return nil, err
		}
		c := *x
		c.Args = args
		return &c, nil
	}
	return n, nil
}

func RewriteExprs(exprs []Expr, pre func(Expr) (Expr, bool, error)) ([]Expr, error) {
	if exprs == nil {
		return nil, nil
	}
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		r, err := RewriteExpr(e, pre)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// Tables returns the leaf FROM sources of n, including those of every
// subquery, in the order they appear.
func Tables(n Node) []TableExpr {
	var out []TableExpr
	Walk(n, func(c Node) bool {
		if s, ok := c.(*Select); ok {
			out = appendTables(out, s.FromTable)
		}
		return true
	})
	return out
}

func appendTables(out []TableExpr, t TableExpr) []TableExpr {
	switch x := t.(type) {
	case *Identifier, *NativeQuery:
		out = append(out, x)
	case *Join:
		out = appendTables(out, x.Left)
		out = appendTables(out, x.Right)
	}
	return out
}

// SelectDepth returns the deepest nesting of Select blocks in n.
func SelectDepth(n Node) int {
	if n == nil {
		return 0
	}
	deepest := 0
	Walk(n, func(c Node) bool {
		if c == n {
			return true
		}
		if _, ok := c.(*Select); ok {
			deepest = max(deepest, SelectDepth(c))
			return false
		}
		return true
	})
	if _, ok := n.(*Select); ok {
		return deepest + 1
	}
	return deepest
}

// Conjuncts splits a predicate on top-level AND operators.
func Conjuncts(e Expr) []Expr {
	b, ok := e.(*BinaryOperation)
	if !ok || b.Op != "and" || len(b.Args) != 2 {
		if e == nil {
			return nil
		}
		return []Expr{e}
	}
	return append(Conjuncts(b.Args[0]), Conjuncts(b.Args[1])...)
}

// And joins predicates with AND, skipping nils.
func And(exprs ...Expr) Expr {
	var out Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = NewBinaryOperation("and", out, e)
	}
	return out
}
