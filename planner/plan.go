package planner

import (
	"github.com/cockroachdb/errors"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"reflect"
	"sort"
	"strings"
)

// QueryPlan is an ordered list of steps. A step only refers to steps with a
// smaller index; the last step produces the query result.
type QueryPlan struct {
	Steps            []Step
	Integrations     mapset.Set[string]
	DefaultNamespace string
}

func NewQueryPlan(defaultNamespace string) *QueryPlan {
	return &QueryPlan{
		Integrations:     mapset.NewSet[string](),
		DefaultNamespace: defaultNamespace,
	}
}

// AddStep assigns the next index to s, records the integration it touches
// and appends it.
func (p *QueryPlan) AddStep(s Step) Step {
	s.setIndex(len(p.Steps))
	switch x := s.(type) {
	case *FetchDataframeStep:
		p.Integrations.Add(strings.ToLower(x.Integration))
	case *ApplyPredictorStep:
		p.Integrations.Add(strings.ToLower(x.Namespace))
	case *ApplyPredictorRowStep:
		p.Integrations.Add(strings.ToLower(x.Namespace))
	}
	p.Steps = append(p.Steps, s)
	return s
}

func (p *QueryPlan) LastStep() Step {
	if len(p.Steps) == 0 {
		return nil
	}
	return p.Steps[len(p.Steps)-1]
}

// IntegrationNames returns the referenced integrations in sorted order.
func (p *QueryPlan) IntegrationNames() []string {
	names := p.Integrations.ToSlice()
	sort.Strings(names)
	return names
}

// stepComparer exposes unexported step fields and treats nil and empty
// slices and maps alike.
var stepComparer = []cmp.Option{
	cmp.Exporter(func(reflect.Type) bool { return true }),
	cmpopts.EquateEmpty(),
}

// Equal compares two plans step by step.
func (p *QueryPlan) Equal(o *QueryPlan) bool {
	if p == nil || o == nil {
		return p == o
	}
	return cmp.Equal(p.Steps, o.Steps, stepComparer...)
}

// Diff returns a human-readable difference between the steps of two plans.
func (p *QueryPlan) Diff(o *QueryPlan) string {
	return cmp.Diff(p.Steps, o.Steps, stepComparer...)
}

// Validate checks that indices are dense and that every reference points
// to an earlier step.
func (p *QueryPlan) Validate() error {
	if len(p.Steps) == 0 {
		return errors.Wrap(InvalidPlanError, "plan has no steps")
	}
	for i, s := range p.Steps {
		if s.Index() != i {
			return errors.Wrapf(InvalidPlanError, "step at position %d has index %d", i, s.Index())
		}
		for _, ref := range s.References() {
			if ref.StepIndex < 0 || ref.StepIndex >= i {
				return errors.Wrapf(InvalidPlanError, "step %d (%s) refers to step %d", i, s.Kind(), ref.StepIndex)
			}
		}
	}
	return nil
}
