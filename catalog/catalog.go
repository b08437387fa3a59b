package catalog

import (
	"github.com/cockroachdb/errors"
	"sort"
	"strings"
)

const DefaultPredictorNamespace = "mindsdb"

type Catalog struct {
	Integrations Integrations

	// DefaultNamespace is used for table references without an integration prefix.
	DefaultNamespace string

	PredictorNamespace string
}

// NewCatalog registers every name as a data integration.
func NewCatalog(names ...string) *Catalog {
	ct := &Catalog{PredictorNamespace: DefaultPredictorNamespace}
	for _, name := range names {
		ct.Integrations = append(ct.Integrations, Integration{Name: name, Type: Data})
	}
	return ct
}

type Integrations []Integration

var IntegrationNotFoundError = errors.New("integration not found")

func (in Integrations) Get(name string) (*Integration, error) {
	for _, it := range in {
		if strings.EqualFold(it.Name, name) {
			return &it, nil
		}
	}
	return nil, IntegrationNotFoundError
}

// Names returns the lower-cased names of integrations of the given type.
func (in Integrations) Names(typ IntegrationType) []string {
	names := make([]string, 0, len(in))
	for _, it := range in {
		if it.Type == typ {
			names = append(names, strings.ToLower(it.Name))
		}
	}
	sort.Strings(names)
	return names
}

type Integration struct {
	Name   string
	Type   IntegrationType
	Engine string
}

type IntegrationType uint8

const (
	Unknown IntegrationType = iota
	Data
	// Project integrations hold predictors rather than tables.
	Project
)

func ParseIntegrationType(s string) (IntegrationType, error) {
	switch strings.ToLower(s) {
	case "", "data":
		return Data, nil
	case "project":
		return Project, nil
	default:
		return Unknown, errors.Errorf("unknown integration type: %s", s)
	}
}

func (t IntegrationType) String() string {
	switch t {
	case Data:
		return "data"
	case Project:
		return "project"
	default:
		return "unknown"
	}
}

// Add registers an integration, replacing one with the same name.
func (c *Catalog) Add(it Integration) {
	for i := range c.Integrations {
		if strings.EqualFold(c.Integrations[i].Name, it.Name) {
			c.Integrations[i] = it
			return
		}
	}
	c.Integrations = append(c.Integrations, it)
}
