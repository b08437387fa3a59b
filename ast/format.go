package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// String renders n as SQL text. Aliases are rendered for projection
// targets and FROM sources, and for n itself.
func String(n Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	f := formatter{b: &b}
	f.aliased(n)
	return b.String()
}

type formatter struct {
	b *strings.Builder
}

func (f formatter) write(s ...string) {
	for _, v := range s {
		f.b.WriteString(v)
	}
}

func (f formatter) aliased(n Node) {
	f.node(n)
	if alias := AliasOf(n); alias != "" {
		f.write(" AS ", QuoteName(alias))
	}
}

func (f formatter) list(exprs []Expr, withAlias bool) {
	for i, e := range exprs {
		if i > 0 {
			f.write(", ")
		}
		if withAlias {
			f.aliased(e)
		} else {
			f.node(e)
		}
	}
}

func (f formatter) node(n Node) {
	switch x := n.(type) {
	case nil:
	case *Identifier:
		for i, p := range x.Parts {
			if i > 0 {
				f.write(".")
			}
			if p == "*" {
				f.write(p)
			} else {
				f.write(QuoteName(p))
			}
		}
	case *Constant:
		f.write(FormatValue(x.Value))
	case *NullConstant:
		f.write("NULL")
	case *Star:
		f.write("*")
	case *UnaryOperation:
		op := strings.ToUpper(x.Op)
		if len(x.Args) == 0 {
			f.write(op)
			return
		}
		if op == "-" || op == "+" || op == "~" {
			f.write(op)
		} else {
			f.write(op, " ")
		}
		f.operand(x.Args[0])
	case *BinaryOperation:
		if x.Parentheses {
			f.write("(")
		}
		for i, a := range x.Args {
			if i > 0 {
				f.write(" ", strings.ToUpper(x.Op), " ")
			}
			f.operand(a)
		}
		if x.Parentheses {
			f.write(")")
		}
	case *Function:
		f.write(x.Op, "(")
		if x.Distinct {
			f.write("DISTINCT ")
		}
		f.list(x.Args, false)
		f.write(")")
	case *OrderBy:
		f.node(x.Field)
		if x.Direction != "" {
			f.write(" ", x.Direction)
		}
	case *Select:
		f.selectStmt(x)
	case *Join:
		f.table(x.Left)
		if x.Implicit {
			f.write(", ")
		} else {
			f.write(" ", string(x.JoinType), " ")
		}
		f.table(x.Right)
		if x.Condition != nil {
			f.write(" ON ")
			f.node(x.Condition)
		}
	case *NativeQuery:
		f.write(QuoteName(x.Integration), " (", x.Query, ")")
	case *Parameter:
		f.write(":df_", strconv.Itoa(x.Step))
	case *Union:
		f.node(x.Left)
		if x.Unique {
			f.write(" UNION ")
		} else {
			f.write(" UNION ALL ")
		}
		f.node(x.Right)
	default:
		f.write(fmt.Sprintf("<%T>", n))
	}
}

// operand renders a nested expression, parenthesising subqueries.
func (f formatter) operand(e Expr) {
	if s, ok := e.(*Select); ok && !s.Parentheses {
		f.write("(")
		f.selectStmt(s)
		f.write(")")
		return
	}
	f.node(e)
}

func (f formatter) table(t TableExpr) {
	if s, ok := t.(*Select); ok && !s.Parentheses {
		f.write("(")
		f.selectStmt(s)
		f.write(")")
		if s.Alias != "" {
			f.write(" AS ", QuoteName(s.Alias))
		}
		return
	}
	f.aliased(t)
}

func (f formatter) selectStmt(s *Select) {
	if s.Parentheses {
		f.write("(")
	}
	f.write("SELECT ")
	if s.Distinct {
		f.write("DISTINCT ")
	}
	for i, t := range s.Targets {
		if i > 0 {
			f.write(", ")
		}
		if sub, ok := t.(*Select); ok && !sub.Parentheses {
			f.operand(sub)
			if sub.Alias != "" {
				f.write(" AS ", QuoteName(sub.Alias))
			}
			continue
		}
		f.aliased(t)
	}
	if s.FromTable != nil {
		f.write(" FROM ")
		f.table(s.FromTable)
	}
	if s.Where != nil {
		f.write(" WHERE ")
		f.node(s.Where)
	}
	if len(s.GroupBy) > 0 {
		f.write(" GROUP BY ")
		f.list(s.GroupBy, false)
	}
	if s.Having != nil {
		f.write(" HAVING ")
		f.node(s.Having)
	}
	if len(s.OrderBy) > 0 {
		f.write(" ORDER BY ")
		for i, o := range s.OrderBy {
			if i > 0 {
				f.write(", ")
			}
			f.node(o)
		}
	}
	if s.Limit != nil {
		f.write(" LIMIT ", strconv.FormatInt(*s.Limit, 10))
	}
	if s.Offset != nil {
		f.write(" OFFSET ", strconv.FormatInt(*s.Offset, 10))
	}
	if s.Parentheses {
		f.write(")")
	}
}

// QuoteName back-tick quotes name unless it is a plain identifier.
func QuoteName(name string) string {
	if isPlainName(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func isPlainName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// FormatValue renders a constant value as a SQL literal.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}
