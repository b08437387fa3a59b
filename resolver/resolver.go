package resolver

import (
	"fedplan/ast"
	"github.com/cockroachdb/errors"
	mapset "github.com/deckarep/golang-set/v2"
	"sort"
	"strings"
)

var (
	AmbiguousNamespaceError  = errors.New("ambiguous namespace")
	UnresolvedNamespaceError = errors.New("unresolved namespace")
)

// Namespaces is the set of integration names a query may reference.
// Names are matched case-insensitively and reported lower-cased.
type Namespaces struct {
	known            mapset.Set[string]
	reserved         mapset.Set[string]
	defaultNamespace string
}

func NewNamespaces(defaultNamespace string, names ...string) *Namespaces {
	ns := &Namespaces{
		known:            mapset.NewThreadUnsafeSet[string](),
		reserved:         mapset.NewThreadUnsafeSet[string](),
		defaultNamespace: strings.ToLower(defaultNamespace),
	}
	for _, n := range names {
		ns.known.Add(strings.ToLower(n))
	}
	return ns
}

// AddReserved registers a namespace that resolves when named explicitly but
// is never a candidate owner of an unqualified name.
func (ns *Namespaces) AddReserved(name string) {
	ns.reserved.Add(strings.ToLower(name))
}

func (ns *Namespaces) Contains(name string) bool {
	name = strings.ToLower(name)
	return ns.known.Contains(name) || ns.reserved.Contains(name)
}

func (ns *Namespaces) Default() string {
	return ns.defaultNamespace
}

// Names returns the known and reserved namespaces in sorted order.
func (ns *Namespaces) Names() []string {
	out := ns.known.Union(ns.reserved).ToSlice()
	sort.Strings(out)
	return out
}

// Resolve determines which namespace a table reference belongs to. When the
// first part names a known namespace it is stripped; otherwise the default
// namespace is used and the identifier is returned unchanged.
func (ns *Namespaces) Resolve(id *ast.Identifier) (string, *ast.Identifier, error) {
	if id == nil || len(id.Parts) == 0 {
		return "", nil, errors.Wrap(ast.MalformedError, "empty table identifier")
	}
	if len(id.Parts) > 1 && ns.Contains(id.Parts[0]) {
		stripped := ast.Clone(id)
		stripped.Parts = stripped.Parts[1:]
		return strings.ToLower(id.Parts[0]), stripped, nil
	}
	if ns.defaultNamespace != "" {
		return ns.defaultNamespace, ast.Clone(id), nil
	}
	if len(id.Parts) == 1 && ns.known.Cardinality() > 1 {
		return "", nil, errors.Wrapf(AmbiguousNamespaceError,
			"%s could belong to any of %s", ast.QuoteName(id.Parts[0]), strings.Join(sortedSlice(ns.known), ", "))
	}
	return "", nil, errors.Wrapf(UnresolvedNamespaceError, "no integration for %s", ast.String(ast.WithoutAlias(id)))
}

// Strip removes a leading namespace part from id. The second result reports
// whether anything was removed. A single-part identifier is never stripped.
func Strip(id *ast.Identifier, namespace string) (*ast.Identifier, bool) {
	c := ast.Clone(id)
	if len(c.Parts) > 1 && strings.EqualFold(c.Parts[0], namespace) {
		c.Parts = c.Parts[1:]
		return c, true
	}
	return c, false
}

// Qualify prefixes a bare column name with prefix. It returns false when the
// column already carries a qualifier that differs from prefix.
func Qualify(column *ast.Identifier, prefix []string) (*ast.Identifier, bool) {
	c := ast.Clone(column)
	if len(c.Parts) == 1 {
		c.Parts = append(append([]string(nil), prefix...), c.Parts...)
		return c, true
	}
	qualifier := c.Parts[:len(c.Parts)-1]
	if len(qualifier) != len(prefix) {
		return c, false
	}
	for i := range prefix {
		if !strings.EqualFold(qualifier[i], prefix[i]) {
			return c, false
		}
	}
	return c, true
}

// TablePrefix returns the name columns of table are qualified with: its
// alias if any, its parts otherwise.
func TablePrefix(table *ast.Identifier) []string {
	if table.Alias != "" {
		return []string{table.Alias}
	}
	return append([]string(nil), table.Parts...)
}

func sortedSlice(s mapset.Set[string]) []string {
	out := s.ToSlice()
	sort.Strings(out)
	return out
}
