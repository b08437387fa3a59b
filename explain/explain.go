package explain

import (
	"fedplan/planner"
	"fmt"
	"github.com/cockroachdb/errors"
	"sort"
	"strconv"
	"strings"
)

type ResultSet struct {
	Header  []string
	Rows    [][]string
	Message string
}

// Explainer walks a plan in step order and describes what every step does.
type Explainer struct {
}

func NewExplainer() *Explainer {
	return &Explainer{}
}

func (e *Explainer) Execute(pl *planner.QueryPlan) (*ResultSet, error) {
	if pl == nil {
		return nil, errors.New("nil plan")
	}
	if err := pl.Validate(); err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(pl.Steps))
	for _, s := range pl.Steps {
		d := planner.DescribeStep(s)
		inputs := make([]string, len(d.Inputs))
		for i, in := range d.Inputs {
			inputs[i] = strconv.Itoa(in)
		}
		rows = append(rows, []string{
			strconv.Itoa(d.Index),
			d.Kind,
			strings.Join(inputs, ","),
			formatFields(d.Fields),
		})
	}

	return &ResultSet{
		Header:  []string{"step", "type", "inputs", "details"},
		Rows:    rows,
		Message: fmt.Sprintf("%d steps, integrations: %s", len(pl.Steps), strings.Join(pl.IntegrationNames(), ", ")),
	}, nil
}

func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+formatValue(fields[k]))
	}
	return strings.Join(parts, " ")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case []any:
		items := make([]string, len(x))
		for i, it := range x {
			items[i] = formatValue(it)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = k + ":" + formatValue(x[k])
		}
		return "{" + strings.Join(items, ", ") + "}"
	case string:
		if strings.ContainsAny(x, " ,") {
			return strconv.Quote(x)
		}
		return x
	default:
		return fmt.Sprint(v)
	}
}
