// Package frontend turns SQL text into plans: parse, plan and cache.
package frontend

import (
	"fedplan/catalog"
	"fedplan/log"
	"fedplan/parser"
	"fedplan/plancache"
	"fedplan/planner"
	"github.com/cockroachdb/errors"
	"sort"
	"strings"
)

type Frontend struct {
	parser     parser.Parser
	planner    planner.Planner
	cache      *plancache.Cache
	catalogKey string
}

type Option func(*Frontend)

func WithCache(c *plancache.Cache) Option {
	return func(f *Frontend) {
		f.cache = c
	}
}

func New(ct *catalog.Catalog, opts []planner.Option, fopts ...Option) *Frontend {
	f := &Frontend{
		parser:     parser.NewSimpleParser(),
		planner:    planner.NewQueryPlanner(ct, opts...),
		catalogKey: catalogKey(ct),
	}
	for _, opt := range fopts {
		opt(f)
	}
	return f
}

// Outcome tells how a plan was obtained.
type Outcome string

const (
	Planned Outcome = "planned"
	Cached  Outcome = "cached"
)

// Plan parses sql and plans it, consulting the cache first.
func (f *Frontend) Plan(sql string) (*planner.QueryPlan, Outcome, error) {
	key := plancache.Key{SQL: sql, Catalog: f.catalogKey}
	if f.cache != nil {
		if plan, ok := f.cache.Get(key); ok {
			log.DebugS("plan cache hit", "key", key.Key())
			return plan, Cached, nil
		}
	}

	stmt, err := f.parser.Parse(sql)
	if err != nil {
		return nil, "", err
	}
	plan, err := f.planner.MakePlan(stmt)
	if err != nil {
		return nil, "", errors.WithDetailf(err, "query: %s", sql)
	}
	if f.cache != nil {
		f.cache.Set(key, plan)
	}
	return plan, Planned, nil
}

func (f *Frontend) CacheStats() (plancache.Stats, bool) {
	if f.cache == nil {
		return plancache.Stats{}, false
	}
	return f.cache.Stats(), true
}

// catalogKey describes everything in ct that can change a plan.
func catalogKey(ct *catalog.Catalog) string {
	entries := make([]string, 0, len(ct.Integrations)+2)
	for _, it := range ct.Integrations {
		entries = append(entries, strings.ToLower(it.Name)+":"+it.Type.String())
	}
	sort.Strings(entries)
	entries = append(entries, "default="+strings.ToLower(ct.DefaultNamespace), "predictors="+strings.ToLower(ct.PredictorNamespace))
	return strings.Join(entries, ",")
}
