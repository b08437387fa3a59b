package ast

import (
	"strings"
)

// Node is any element of a parsed query.
type Node interface {
	implementNode()
}

// Expr is a node that can appear in a projection list or a predicate.
type Expr interface {
	Node
	implementExpr()
}

// TableExpr is a node that can appear as a FROM source.
type TableExpr interface {
	Node
	implementTableExpr()
}

// Statement is a top-level query.
type Statement interface {
	Node
	implementStatement()
}

type JoinType string

const (
	InnerJoin        JoinType = "INNER JOIN"
	LeftJoin         JoinType = "LEFT JOIN"
	RightJoin        JoinType = "RIGHT JOIN"
	FullJoin         JoinType = "FULL JOIN"
	CrossJoin        JoinType = "CROSS JOIN"
	StraightJoin     JoinType = "STRAIGHT_JOIN"
	NaturalJoin      JoinType = "NATURAL JOIN"
	NaturalLeftJoin  JoinType = "NATURAL LEFT JOIN"
	NaturalRightJoin JoinType = "NATURAL RIGHT JOIN"
)

const (
	Asc  = "ASC"
	Desc = "DESC"
)

// Identifier is a dotted, possibly namespace-qualified name such as
// integration.table.column. Parts is never empty.
type Identifier struct {
	Parts []string
	Alias string
}

// NewIdentifier splits path on dots. Back-tick quoted parts may contain dots.
func NewIdentifier(path string) *Identifier {
	return &Identifier{Parts: splitPath(path)}
}

// As returns a copy of the identifier carrying alias.
func (i *Identifier) As(alias string) *Identifier {
	c := Clone(i)
	c.Alias = alias
	return c
}

// Equal reports whether both identifiers have the same parts and alias.
func (i *Identifier) Equal(o *Identifier) bool {
	if i == nil || o == nil {
		return i == o
	}
	if i.Alias != o.Alias || len(i.Parts) != len(o.Parts) {
		return false
	}
	for k := range i.Parts {
		if i.Parts[k] != o.Parts[k] {
			return false
		}
	}
	return true
}

// Last returns the final part, usually the column or table name.
func (i *Identifier) Last() string {
	if len(i.Parts) == 0 {
		return ""
	}
	return i.Parts[len(i.Parts)-1]
}

// IsStar reports whether the identifier is a qualified wildcard such as tab.*.
func (i *Identifier) IsStar() bool {
	return i.Last() == "*"
}

// Constant is a literal value: int64, float64, string or bool.
type Constant struct {
	Value any
	Alias string
}

// NewConstant normalises Go integer and float kinds to int64 and float64.
func NewConstant(v any) *Constant {
	switch x := v.(type) {
	case int:
		v = int64(x)
	case int32:
		v = int64(x)
	case uint32:
		v = int64(x)
	case float32:
		v = float64(x)
	}
	return &Constant{Value: v}
}

// Negate returns -c. It reports false for non-numeric values.
func (c *Constant) Negate() (*Constant, bool) {
	switch v := c.Value.(type) {
	case int64:
		return &Constant{Value: -v, Alias: c.Alias}, true
	case float64:
		return &Constant{Value: -v, Alias: c.Alias}, true
	}
	return nil, false
}

type NullConstant struct {
	Alias string
}

// Star is the bare wildcard of a projection list or of count(*).
type Star struct{}

type UnaryOperation struct {
	Op    string
	Args  []Expr
	Alias string
}

// BinaryOperation carries exactly two arguments. and, or and in are binary too.
type BinaryOperation struct {
	Op          string
	Args        []Expr
	Parentheses bool
	Alias       string
}

func NewBinaryOperation(op string, left, right Expr) *BinaryOperation {
	return &BinaryOperation{Op: op, Args: []Expr{left, right}}
}

type Function struct {
	Op       string
	Args     []Expr
	Distinct bool
	Alias    string
}

type OrderBy struct {
	Field     Expr
	Direction string
}

// Select is a query block. It is also an expression (scalar or IN subquery)
// and a FROM source (derived table).
type Select struct {
	Targets     []Expr
	Distinct    bool
	FromTable   TableExpr
	Where       Expr
	GroupBy     []Expr
	Having      Expr
	OrderBy     []*OrderBy
	Limit       *int64
	Offset      *int64
	Alias       string
	Parentheses bool

	// Using holds model parameters given with USING. It is never pushed to an integration.
	Using map[string]any
}

type Join struct {
	Left      TableExpr
	Right     TableExpr
	Condition Expr
	JoinType  JoinType
	Implicit  bool
}

// NativeQuery is query text passed verbatim to an integration.
type NativeQuery struct {
	Integration string
	Query       string
	Alias       string
}

// Parameter stands in for the output of an earlier plan step. Select keeps
// the subquery the step was planned from so the enclosing query still reads
// naturally; it is informational only and never traversed.
type Parameter struct {
	Step   int
	Select *Select
	Alias  string
}

type Union struct {
	Left   Statement
	Right  Statement
	Unique bool
}

func (*Identifier) implementNode()      {}
func (*Constant) implementNode()        {}
func (*NullConstant) implementNode()    {}
func (*Star) implementNode()            {}
func (*UnaryOperation) implementNode()  {}
func (*BinaryOperation) implementNode() {}
func (*Function) implementNode()        {}
func (*OrderBy) implementNode()         {}
func (*Select) implementNode()          {}
func (*Join) implementNode()            {}
func (*NativeQuery) implementNode()     {}
func (*Parameter) implementNode()       {}
func (*Union) implementNode()           {}

func (*Identifier) implementExpr()      {}
func (*Constant) implementExpr()        {}
func (*NullConstant) implementExpr()    {}
func (*Star) implementExpr()            {}
func (*UnaryOperation) implementExpr()  {}
func (*BinaryOperation) implementExpr() {}
func (*Function) implementExpr()        {}
func (*Select) implementExpr()          {}
func (*Parameter) implementExpr()       {}

func (*Identifier) implementTableExpr()  {}
func (*Select) implementTableExpr()      {}
func (*Join) implementTableExpr()        {}
func (*NativeQuery) implementTableExpr() {}

func (*Select) implementStatement() {}
func (*Union) implementStatement()  {}

// AliasOf returns the alias carried by n, or "".
func AliasOf(n Node) string {
	switch x := n.(type) {
	case *Identifier:
		return x.Alias
	case *Constant:
		return x.Alias
	case *NullConstant:
		return x.Alias
	case *UnaryOperation:
		return x.Alias
	case *BinaryOperation:
		return x.Alias
	case *Function:
		return x.Alias
	case *Select:
		return x.Alias
	case *NativeQuery:
		return x.Alias
	case *Parameter:
		return x.Alias
	}
	return ""
}

// WithoutAlias returns a copy of e with its alias cleared.
func WithoutAlias(e Expr) Expr {
	c := Clone(e)
	switch x := c.(type) {
	case *Identifier:
		x.Alias = ""
	case *Constant:
		x.Alias = ""
	case *NullConstant:
		x.Alias = ""
	case *UnaryOperation:
		x.Alias = ""
	case *BinaryOperation:
		x.Alias = ""
	case *Function:
		x.Alias = ""
	case *Select:
		x.Alias = ""
	case *Parameter:
		x.Alias = ""
	}
	return c
}

// IsStarOnly reports whether targets is exactly [*].
func IsStarOnly(targets []Expr) bool {
	if len(targets) != 1 {
		return false
	}
	_, ok := targets[0].(*Star)
	return ok
}

func splitPath(path string) []string {
	parts := make([]string, 0, strings.Count(path, ".")+1)
	var cur strings.Builder
	quoted := false
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c == '`' && quoted && i+1 < len(path) && path[i+1] == '`':
			cur.WriteByte('`')
			i++
		case c == '`':
			quoted = !quoted
		case c == '.' && !quoted:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(parts, cur.String())
}
