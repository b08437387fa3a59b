package planner

import (
	"encoding/json"
	"fedplan/ast"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// PlanDescription is the serialisable form of a QueryPlan.
type PlanDescription struct {
	DefaultNamespace string            `json:"default_namespace,omitempty"`
	Integrations     []string          `json:"integrations"`
	Steps            []StepDescription `json:"steps"`
}

type StepDescription struct {
	Index  int            `json:"index"`
	Kind   string         `json:"type"`
	Inputs []int          `json:"inputs,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

func (p *QueryPlan) Describe() PlanDescription {
	d := PlanDescription{
		DefaultNamespace: p.DefaultNamespace,
		Integrations:     p.IntegrationNames(),
		Steps:            make([]StepDescription, 0, len(p.Steps)),
	}
	for _, s := range p.Steps {
		d.Steps = append(d.Steps, DescribeStep(s))
	}
	return d
}

func DescribeStep(s Step) StepDescription {
	d := StepDescription{Index: s.Index(), Kind: s.Kind(), Fields: map[string]any{}}
	for _, r := range s.References() {
		d.Inputs = append(d.Inputs, r.StepIndex)
	}
	f := d.Fields
	switch x := s.(type) {
	case *FetchDataframeStep:
		f["integration"] = x.Integration
		if x.Query != nil {
			f["query"] = ast.String(x.Query)
		} else {
			f["raw_query"] = x.RawQuery
		}
	case *ProjectStep:
		f["columns"] = exprStrings(x.Columns)
		if x.Distinct {
			f["distinct"] = true
		}
	case *FilterStep:
		f["predicate"] = ast.String(x.Predicate)
	case *JoinStep:
		f["join_type"] = string(x.Query.JoinType)
		f["left"] = ast.String(x.Query.Left)
		f["right"] = ast.String(x.Query.Right)
		if x.Query.Condition != nil {
			f["condition"] = ast.String(x.Query.Condition)
		}
	case *GroupByStep:
		f["columns"] = exprStrings(x.Columns)
		f["targets"] = exprStrings(x.Targets)
	case *OrderByStep:
		order := make([]any, len(x.OrderBy))
		for i, o := range x.OrderBy {
			order[i] = ast.String(o)
		}
		f["order_by"] = order
	case *LimitOffsetStep:
		if x.Limit != nil {
			f["limit"] = *x.Limit
		}
		if x.Offset != nil {
			f["offset"] = *x.Offset
		}
	case *ApplyPredictorStep:
		f["namespace"] = x.Namespace
		f["predictor"] = ast.String(x.Predictor)
		if len(x.Params) > 0 {
			f["params"] = x.Params
		}
		if len(x.Row) > 0 {
			f["row"] = x.Row
		}
	case *ApplyPredictorRowStep:
		f["namespace"] = x.Namespace
		f["predictor"] = ast.String(x.Predictor)
		f["row"] = x.Row
		if len(x.Params) > 0 {
			f["params"] = x.Params
		}
	case *SubSelectStep:
		f["query"] = ast.String(x.Query)
		if x.TableName != "" {
			f["table_name"] = x.TableName
		}
	case *UnionStep:
		f["unique"] = x.Unique
	}
	return d
}

func exprStrings(exprs []ast.Expr) []any {
	out := make([]any, len(exprs))
	for i, e := range exprs {
		out[i] = ast.String(e)
	}
	return out
}

func (p *QueryPlan) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Describe())
}

// ToProto converts the plan description to a protobuf Struct.
func (p *QueryPlan) ToProto() (*structpb.Struct, error) {
	d := p.Describe()
	integrations := make([]any, len(d.Integrations))
	for i, n := range d.Integrations {
		integrations[i] = n
	}
	steps := make([]any, len(d.Steps))
	for i, s := range d.Steps {
		inputs := make([]any, len(s.Inputs))
		for k, in := range s.Inputs {
			inputs[k] = in
		}
		steps[i] = map[string]any{
			"index":  s.Index,
			"type":   s.Kind,
			"inputs": inputs,
			"fields": s.Fields,
		}
	}
	st, err := structpb.NewStruct(map[string]any{
		"default_namespace": d.DefaultNamespace,
		"integrations":      integrations,
		"steps":             steps,
	})
	if err != nil {
		return nil, errors.Wrap(err, "convert plan to protobuf")
	}
	return st, nil
}

// Fingerprint hashes the deterministic protobuf encoding of the plan.
// Structurally equal plans have equal fingerprints.
func (p *QueryPlan) Fingerprint() (uint64, error) {
	st, err := p.ToProto()
	if err != nil {
		return 0, err
	}
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(st)
	if err != nil {
		return 0, errors.Wrap(err, "marshal plan")
	}
	return xxhash.Sum64(b), nil
}
