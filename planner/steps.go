package planner

import (
	"fedplan/ast"
	"fmt"
)

// Result refers to the output of an earlier step of the same plan.
type Result struct {
	StepIndex int
}

func (r Result) String() string {
	return fmt.Sprintf("df_%d", r.StepIndex)
}

// Step is one operation of a QueryPlan. Index is assigned by QueryPlan.AddStep.
type Step interface {
	Index() int
	Result() Result
	References() []Result
	Kind() string
	setIndex(int)
}

type step struct {
	index int
}

func (s *step) Index() int       { return s.index }
func (s *step) Result() Result   { return Result{StepIndex: s.index} }
func (s *step) setIndex(idx int) { s.index = idx }

// FetchDataframeStep runs a query against one integration. Exactly one of
// Query and RawQuery is set; RawQuery is sent verbatim.
type FetchDataframeStep struct {
	step
	Integration string
	Query       *ast.Select
	RawQuery    string
}

type ProjectStep struct {
	step
	Source   Result
	Columns  []ast.Expr
	Distinct bool
}

type FilterStep struct {
	step
	Source    Result
	Predicate ast.Expr
}

// JoinStep joins two earlier results. Query carries the join type, the
// condition and the table names the condition refers to.
type JoinStep struct {
	step
	Left  Result
	Right Result
	Query *ast.Join
}

type GroupByStep struct {
	step
	Source  Result
	Columns []ast.Expr
	Targets []ast.Expr
}

type OrderByStep struct {
	step
	Source  Result
	OrderBy []*ast.OrderBy
}

type LimitOffsetStep struct {
	step
	Source Result
	Limit  *int64
	Offset *int64
}

// ApplyPredictorStep evaluates a predictor for every row of Source.
type ApplyPredictorStep struct {
	step
	Namespace string
	Predictor *ast.Identifier
	Source    Result
	Params    map[string]any
	// Row holds constant inputs taken from equality conditions on the predictor.
	Row map[string]any
}

// ApplyPredictorRowStep evaluates a predictor once for a single row of constants.
type ApplyPredictorRowStep struct {
	step
	Namespace string
	Predictor *ast.Identifier
	Row       map[string]any
	Params    map[string]any
}

// SubSelectStep applies Query to the output of Source as if it were a table
// named TableName.
type SubSelectStep struct {
	step
	Source    Result
	Query     *ast.Select
	TableName string
}

type UnionStep struct {
	step
	Left   Result
	Right  Result
	Unique bool
}

func (*FetchDataframeStep) Kind() string    { return "FetchDataframe" }
func (*ProjectStep) Kind() string           { return "Project" }
func (*FilterStep) Kind() string            { return "Filter" }
func (*JoinStep) Kind() string              { return "Join" }
func (*GroupByStep) Kind() string           { return "GroupBy" }
func (*OrderByStep) Kind() string           { return "OrderBy" }
func (*LimitOffsetStep) Kind() string       { return "LimitOffset" }
func (*ApplyPredictorStep) Kind() string    { return "ApplyPredictor" }
func (*ApplyPredictorRowStep) Kind() string { return "ApplyPredictorRow" }
func (*SubSelectStep) Kind() string         { return "SubSelect" }
func (*UnionStep) Kind() string             { return "Union" }

func (s *FetchDataframeStep) References() []Result {
	if s.Query == nil {
		return nil
	}
	return parameterRefs(s.Query)
}

func (s *ProjectStep) References() []Result {
	refs := []Result{s.Source}
	for _, c := range s.Columns {
		refs = append(refs, parameterRefs(c)...)
	}
	return refs
}

func (s *FilterStep) References() []Result {
	return append([]Result{s.Source}, parameterRefs(s.Predicate)...)
}

func (s *JoinStep) References() []Result {
	return []Result{s.Left, s.Right}
}

func (s *GroupByStep) References() []Result {
	return []Result{s.Source}
}

func (s *OrderByStep) References() []Result {
	return []Result{s.Source}
}

func (s *LimitOffsetStep) References() []Result {
	return []Result{s.Source}
}

func (s *ApplyPredictorStep) References() []Result {
	return []Result{s.Source}
}

func (s *ApplyPredictorRowStep) References() []Result {
	return nil
}

func (s *SubSelectStep) References() []Result {
	return append([]Result{s.Source}, parameterRefs(s.Query)...)
}

func (s *UnionStep) References() []Result {
	return []Result{s.Left, s.Right}
}

// parameterRefs collects the results a query consumes through Parameter nodes.
func parameterRefs(n ast.Node) []Result {
	var refs []Result
	if n == nil {
		return nil
	}
	ast.Walk(n, func(c ast.Node) bool {
		if p, ok := c.(*ast.Parameter); ok {
			refs = append(refs, Result{StepIndex: p.Step})
		}
		return true
	})
	return refs
}
