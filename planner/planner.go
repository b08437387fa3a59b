package planner

import (
	"fedplan/ast"
	"fedplan/catalog"
	"fedplan/log"
	"fedplan/resolver"
	"github.com/cockroachdb/errors"
	"strings"
)

const DefaultMaxDepth = 64

type Planner interface {
	MakePlan(stmt ast.Statement) (*QueryPlan, error)
}

// QueryPlanner turns a parsed query into a QueryPlan. It holds no per-query
// state and may be shared between goroutines.
type QueryPlanner struct {
	catalog            *catalog.Catalog
	defaultNamespace   string
	predictorNamespace string
	maxDepth           int
}

type Option func(*QueryPlanner)

// WithDefaultNamespace sets the integration used by unqualified table names.
func WithDefaultNamespace(ns string) Option {
	return func(p *QueryPlanner) {
		p.defaultNamespace = strings.ToLower(ns)
	}
}

func WithPredictorNamespace(ns string) Option {
	return func(p *QueryPlanner) {
		p.predictorNamespace = strings.ToLower(ns)
	}
}

// WithMaxDepth bounds subquery nesting. Deeper queries are rejected.
func WithMaxDepth(depth int) Option {
	return func(p *QueryPlanner) {
		p.maxDepth = depth
	}
}

func NewQueryPlanner(ct *catalog.Catalog, opts ...Option) *QueryPlanner {
	p := &QueryPlanner{
		catalog:            ct,
		defaultNamespace:   strings.ToLower(ct.DefaultNamespace),
		predictorNamespace: strings.ToLower(ct.PredictorNamespace),
		maxDepth:           DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PlanQuery plans stmt against the given data integrations.
func PlanQuery(stmt ast.Statement, integrations []string, opts ...Option) (*QueryPlan, error) {
	return NewQueryPlanner(catalog.NewCatalog(integrations...), opts...).MakePlan(stmt)
}

func (p *QueryPlanner) MakePlan(stmt ast.Statement) (*QueryPlan, error) {
	if stmt == nil {
		return nil, errors.Wrap(MalformedAstError, "nil statement")
	}
	if err := ast.Validate(stmt); err != nil {
		return nil, err
	}
	if depth := ast.SelectDepth(stmt); depth > p.maxDepth {
		return nil, unsupportedf("query nesting depth %d exceeds %d", depth, p.maxDepth)
	}

	b := p.newBuilder()
	// the planner never modifies the caller's tree
	if _, err := b.planStatement(ast.Clone(stmt)); err != nil {
		log.DebugS("planning failed", "error", err, "kind", ErrorKind(err))
		return nil, err
	}
	if err := b.plan.Validate(); err != nil {
		return nil, errors.WithAssertionFailure(err)
	}
	log.DebugS("planned query", "steps", len(b.plan.Steps), "integrations", b.plan.IntegrationNames())
	return b.plan, nil
}

func (p *QueryPlanner) newBuilder() *builder {
	namespaces := resolver.NewNamespaces(p.defaultNamespace, p.catalog.Integrations.Names(catalog.Data)...)
	predictors := map[string]bool{}
	for _, n := range p.catalog.Integrations.Names(catalog.Project) {
		predictors[n] = true
	}
	if p.predictorNamespace != "" {
		predictors[p.predictorNamespace] = true
	}
	for n := range predictors {
		namespaces.AddReserved(n)
	}
	return &builder{
		namespaces: namespaces,
		predictors: predictors,
		maxDepth:   p.maxDepth,
		plan:       NewQueryPlan(p.defaultNamespace),
	}
}
