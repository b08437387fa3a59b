package planner

import (
	"fedplan/ast"
	"fedplan/resolver"
	"github.com/cockroachdb/errors"
	mapset "github.com/deckarep/golang-set/v2"
	"strings"
)

// builder holds the state of planning one statement.
type builder struct {
	namespaces *resolver.Namespaces
	predictors map[string]bool
	maxDepth   int
	depth      int
	plan       *QueryPlan
}

// enter guards the recursion of planSelect. Depth counts nested selects the
// same way ast.SelectDepth does.
func (b *builder) enter() error {
	b.depth++
	if b.depth > b.maxDepth {
		return unsupportedf("query nesting exceeds %d levels", b.maxDepth)
	}
	return nil
}

func (b *builder) leave() {
	b.depth--
}

func (b *builder) add(s Step) Step {
	return b.plan.AddStep(s)
}

func (b *builder) isPredictorNamespace(ns string) bool {
	return b.predictors[strings.ToLower(ns)]
}

// resolveTable finds the namespace of a table reference and strips it.
func (b *builder) resolveTable(id *ast.Identifier) (string, *ast.Identifier, error) {
	ns, stripped, err := b.namespaces.Resolve(id)
	if err == nil {
		return ns, stripped, nil
	}
	if errors.Is(err, resolver.UnresolvedNamespaceError) {
		return "", nil, errors.Mark(errors.Wrapf(err, "table %s", ast.String(ast.WithoutAlias(id))), NoIntegrationError)
	}
	return "", nil, err
}

func (b *builder) planStatement(stmt ast.Statement) (Step, error) {
	switch s := stmt.(type) {
	case *ast.Select:
		return b.planSelect(s)
	case *ast.Union:
		return b.planUnion(s)
	default:
		return nil, unsupportedf("statement type %T", s)
	}
}

func (b *builder) planUnion(u *ast.Union) (Step, error) {
	left, err := b.planStatement(u.Left)
	if err != nil {
		return nil, err
	}
	right, err := b.planStatement(u.Right)
	if err != nil {
		return nil, err
	}
	return b.add(&UnionStep{Left: left.Result(), Right: right.Result(), Unique: u.Unique}), nil
}

// queryInfo summarises which namespaces a query touches.
type queryInfo struct {
	integrations mapset.Set[string]
	predictors   []*ast.Identifier
	native       int
}

// pushable reports whether the whole query can run inside one integration.
func (qi *queryInfo) pushable() (string, bool) {
	if qi.integrations.Cardinality() != 1 || len(qi.predictors) > 0 || qi.native > 0 {
		return "", false
	}
	return qi.integrations.ToSlice()[0], true
}

func (b *builder) getQueryInfo(n ast.Node) (*queryInfo, error) {
	info := &queryInfo{integrations: mapset.NewThreadUnsafeSet[string]()}
	for _, t := range ast.Tables(n) {
		switch x := t.(type) {
		case *ast.Identifier:
			ns, _, err := b.resolveTable(x)
			if err != nil {
				return nil, err
			}
			if b.isPredictorNamespace(ns) {
				info.predictors = append(info.predictors, x)
			} else {
				info.integrations.Add(ns)
			}
		case *ast.NativeQuery:
			info.native++
		}
	}
	return info, nil
}
