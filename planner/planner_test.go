package planner_test

import (
	"fedplan/ast"
	"fedplan/catalog"
	"fedplan/parser"
	"fedplan/planner"
	"fmt"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func mustParse(t *testing.T, sql string) ast.Statement {
	t.Helper()
	stmt, err := parser.NewSimpleParser().Parse(sql)
	require.NoError(t, err, sql)
	return stmt
}

func expectPlan(steps ...planner.Step) *planner.QueryPlan {
	p := planner.NewQueryPlan("")
	for _, s := range steps {
		p.AddStep(s)
	}
	return p
}

func assertPlan(t *testing.T, want, got *planner.QueryPlan) {
	t.Helper()
	assert.True(t, want.Equal(got), "plan mismatch (-want +got):\n%s", want.Diff(got))
}

// summary renders each step as "Kind [inputs] fields".
func summary(p *planner.QueryPlan) []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		d := planner.DescribeStep(s)
		out[i] = fmt.Sprintf("%s %v %v", d.Kind, d.Inputs, d.Fields)
	}
	return out
}

func res(i int) planner.Result {
	return planner.Result{StepIndex: i}
}

func eq(l, r ast.Expr) *ast.BinaryOperation {
	return ast.NewBinaryOperation("=", l, r)
}

func id(path string) *ast.Identifier {
	return ast.NewIdentifier(path)
}

func star() []ast.Expr {
	return []ast.Expr{&ast.Star{}}
}

func TestPlanIntegrationSelect(t *testing.T) {
	stmt := mustParse(t, "SELECT a, pg.tab.b FROM pg.tab WHERE a > 1")
	got, err := planner.PlanQuery(stmt, []string{"pg", "mysql"})
	require.NoError(t, err)

	want := expectPlan(&planner.FetchDataframeStep{
		Integration: "pg",
		Query: &ast.Select{
			Targets:   []ast.Expr{id("a"), id("tab.b").As("b")},
			FromTable: id("tab"),
			Where:     ast.NewBinaryOperation(">", id("a"), ast.NewConstant(1)),
		},
	})
	assertPlan(t, want, got)
	assert.Equal(t, []string{"pg"}, got.IntegrationNames())
}

func TestPlanDefaultNamespace(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM tab")
	got, err := planner.PlanQuery(stmt, []string{"pg", "files"}, planner.WithDefaultNamespace("Files"))
	require.NoError(t, err)

	want := expectPlan(&planner.FetchDataframeStep{
		Integration: "files",
		Query:       &ast.Select{Targets: star(), FromTable: id("tab")},
	})
	assertPlan(t, want, got)
	assert.Equal(t, "files", got.DefaultNamespace)
}

func TestPlanSelectWithoutTable(t *testing.T) {
	stmt := mustParse(t, "SELECT 1")

	got, err := planner.PlanQuery(stmt, []string{"files"}, planner.WithDefaultNamespace("files"))
	require.NoError(t, err)
	assertPlan(t, expectPlan(&planner.FetchDataframeStep{
		Integration: "files",
		Query:       &ast.Select{Targets: []ast.Expr{ast.NewConstant(1)}},
	}), got)

	_, err = planner.PlanQuery(stmt, []string{"files"})
	assert.ErrorIs(t, err, planner.NoIntegrationError)
}

func TestPlanNestedSelectQualifiesColumns(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM (SELECT a FROM pg.tab) AS sub")
	got, err := planner.PlanQuery(stmt, []string{"pg", "mysql"})
	require.NoError(t, err)
	require.Len(t, got.Steps, 1)

	fetch := got.Steps[0].(*planner.FetchDataframeStep)
	assert.Equal(t, "SELECT * FROM (SELECT tab.a AS a FROM tab) AS sub", ast.String(fetch.Query))
}

func TestPlanIntegrationPushdown(t *testing.T) {
	count := func() *ast.Function {
		return &ast.Function{Op: "count", Args: star()}
	}
	limit, offset := int64(10), int64(5)

	tests := []struct {
		name         string
		sql          string
		stmt         ast.Statement
		integrations []string
		want         *planner.QueryPlan
	}{
		{
			name:         "upper-case namespace in query",
			sql:          "SELECT a FROM PG.tab",
			integrations: []string{"pg"},
			want: expectPlan(&planner.FetchDataframeStep{
				Integration: "pg",
				Query:       &ast.Select{Targets: []ast.Expr{id("a")}, FromTable: id("tab")},
			}),
		},
		{
			name:         "upper-case integration name",
			sql:          "SELECT a FROM PG.tab",
			integrations: []string{"PG"},
			want: expectPlan(&planner.FetchDataframeStep{
				Integration: "pg",
				Query:       &ast.Select{Targets: []ast.Expr{id("a")}, FromTable: id("tab")},
			}),
		},
		{
			name: "clauses keep their place with the namespace stripped",
			sql: "SELECT pg.tab.a, count(*) FROM pg.tab WHERE pg.tab.b = 1 GROUP BY pg.tab.a " +
				"HAVING count(*) > 2 ORDER BY pg.tab.a DESC LIMIT 10 OFFSET 5",
			integrations: []string{"pg", "mysql"},
			want: expectPlan(&planner.FetchDataframeStep{
				Integration: "pg",
				Query: &ast.Select{
					Targets:   []ast.Expr{id("tab.a").As("a"), count()},
					FromTable: id("tab"),
					Where:     eq(id("tab.b"), ast.NewConstant(1)),
					GroupBy:   []ast.Expr{id("tab.a")},
					Having:    ast.NewBinaryOperation(">", count(), ast.NewConstant(2)),
					OrderBy:   []*ast.OrderBy{{Field: id("tab.a"), Direction: ast.Desc}},
					Limit:     &limit,
					Offset:    &offset,
				},
			}),
		},
		{
			name:         "target subquery qualifies its columns",
			sql:          "SELECT column1, (SELECT column2 FROM pg.tab) AS c FROM pg.tab",
			integrations: []string{"pg", "mysql"},
			want: expectPlan(&planner.FetchDataframeStep{
				Integration: "pg",
				Query: &ast.Select{
					Targets: []ast.Expr{
						id("column1"),
						&ast.Select{
							Targets:     []ast.Expr{id("tab.column2").As("column2")},
							FromTable:   id("tab"),
							Alias:       "c",
							Parentheses: true,
						},
					},
					FromTable: id("tab"),
				},
			}),
		},
		{
			name:         "quoted column keeps its name as alias",
			sql:          "SELECT pg.tab.`a column with spaces` FROM pg.tab",
			integrations: []string{"pg"},
			want: expectPlan(&planner.FetchDataframeStep{
				Integration: "pg",
				Query: &ast.Select{
					Targets:   []ast.Expr{id("tab.`a column with spaces`").As("a column with spaces")},
					FromTable: id("tab"),
				},
			}),
		},
		{
			name: "schema-qualified table",
			stmt: &ast.Select{
				Targets:   []ast.Expr{id("pg.schema.tab.a")},
				FromTable: id("pg.schema.tab"),
			},
			integrations: []string{"pg", "mysql"},
			want: expectPlan(&planner.FetchDataframeStep{
				Integration: "pg",
				Query: &ast.Select{
					Targets:   []ast.Expr{id("schema.tab.a").As("a")},
					FromTable: id("schema.tab"),
				},
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := tt.stmt
			if stmt == nil {
				stmt = mustParse(t, tt.sql)
			}
			got, err := planner.PlanQuery(stmt, tt.integrations)
			require.NoError(t, err)
			assertPlan(t, tt.want, got)
			assert.Equal(t, []string{"pg"}, got.IntegrationNames())
		})
	}
}

func TestPlanFetchQueryReplans(t *testing.T) {
	first, err := planner.PlanQuery(mustParse(t, "SELECT a, pg.tab.b FROM pg.tab WHERE c = 1 LIMIT 3"), []string{"pg"})
	require.NoError(t, err)
	require.Len(t, first.Steps, 1)
	query := first.Steps[0].(*planner.FetchDataframeStep).Query

	_, err = planner.PlanQuery(query, []string{"pg"})
	assert.ErrorIs(t, err, planner.NoIntegrationError)

	again, err := planner.PlanQuery(query, []string{"pg"}, planner.WithDefaultNamespace("pg"))
	require.NoError(t, err)
	assertPlan(t, first, again)
}

func TestPlanNestedSelectAcrossIntegrations(t *testing.T) {
	stmt := mustParse(t, "SELECT sub.a FROM (SELECT t1.a FROM pg.t1 JOIN mysql.t2 ON t1.id = t2.id) AS sub WHERE sub.a > 2")
	got, err := planner.PlanQuery(stmt, []string{"pg", "mysql"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"FetchDataframe [] map[integration:pg query:SELECT * FROM t1]",
		"FetchDataframe [] map[integration:mysql query:SELECT * FROM t2]",
		"Join [0 1] map[condition:t1.id = t2.id join_type:INNER JOIN left:t1 right:t2]",
		"Project [2] map[columns:[t1.a]]",
		"SubSelect [3] map[query:SELECT sub.a WHERE sub.a > 2 table_name:sub]",
	}, summary(got))
}

func TestPlanWhereSubquerySameIntegration(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM pg.t1 WHERE a IN (SELECT b FROM pg.t2)")
	got, err := planner.PlanQuery(stmt, []string{"pg", "mysql"})
	require.NoError(t, err)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, "SELECT * FROM t1 WHERE a IN (SELECT b FROM t2)",
		ast.String(got.Steps[0].(*planner.FetchDataframeStep).Query))
}

func TestPlanWhereSubqueryAcrossIntegrations(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM pg.t1 WHERE a IN (SELECT b FROM mysql.t2)")
	got, err := planner.PlanQuery(stmt, []string{"pg", "mysql"})
	require.NoError(t, err)

	inner := &ast.Select{Targets: []ast.Expr{id("b")}, FromTable: id("t2")}
	shown := ast.Clone(inner)
	shown.Parentheses = true
	want := expectPlan(
		&planner.FetchDataframeStep{Integration: "mysql", Query: inner},
		&planner.FetchDataframeStep{
			Integration: "pg",
			Query: &ast.Select{
				Targets:   star(),
				FromTable: id("t1"),
				Where:     ast.NewBinaryOperation("in", id("a"), &ast.Parameter{Step: 0, Select: shown}),
			},
		},
	)
	assertPlan(t, want, got)
	assert.Equal(t, []planner.Result{res(0)}, got.Steps[1].References())
	assert.Equal(t, []string{"mysql", "pg"}, got.IntegrationNames())
}

func TestPlanTargetSubqueryAcrossIntegrations(t *testing.T) {
	stmt := mustParse(t, "SELECT a, (SELECT max(b) FROM mysql.t2) AS m FROM pg.t1")
	got, err := planner.PlanQuery(stmt, []string{"pg", "mysql"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"FetchDataframe [] map[integration:mysql query:SELECT max(b) FROM t2]",
		"FetchDataframe [0] map[integration:pg query:SELECT a, :df_0 AS m FROM t1]",
	}, summary(got))
}

func TestPlanJoin(t *testing.T) {
	stmt := mustParse(t, "SELECT pg.t1.a, mysql.t2.b FROM pg.t1 JOIN mysql.t2 ON pg.t1.id = mysql.t2.id WHERE pg.t1.x = 1 LIMIT 10")
	got, err := planner.PlanQuery(stmt, []string{"pg", "mysql"})
	require.NoError(t, err)

	limit := int64(10)
	want := expectPlan(
		&planner.FetchDataframeStep{Integration: "pg", Query: &ast.Select{
			Targets:   star(),
			FromTable: id("t1"),
			Where:     eq(id("x"), ast.NewConstant(1)),
		}},
		&planner.FetchDataframeStep{Integration: "mysql", Query: &ast.Select{
			Targets:   star(),
			FromTable: id("t2"),
		}},
		&planner.JoinStep{Left: res(0), Right: res(1), Query: &ast.Join{
			Left:      id("t1"),
			Right:     id("t2"),
			Condition: eq(id("t1.id"), id("t2.id")),
			JoinType:  ast.InnerJoin,
		}},
		&planner.FilterStep{Source: res(2), Predicate: eq(id("t1.x"), ast.NewConstant(1))},
		&planner.LimitOffsetStep{Source: res(3), Limit: &limit},
		&planner.ProjectStep{Source: res(4), Columns: []ast.Expr{id("t1.a"), id("t2.b")}},
	)
	assertPlan(t, want, got)
	assert.Equal(t, []string{"mysql", "pg"}, got.IntegrationNames())
}

func TestPlanJoinWithAliases(t *testing.T) {
	stmt := mustParse(t, "SELECT x.a, y.b FROM pg.t1 AS x LEFT JOIN mysql.t2 AS y ON x.id = y.id WHERE y.b IS NULL")
	got, err := planner.PlanQuery(stmt, []string{"pg", "mysql"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"FetchDataframe [] map[integration:pg query:SELECT * FROM t1 AS x]",
		"FetchDataframe [] map[integration:mysql query:SELECT * FROM t2 AS y]",
		"Join [0 1] map[condition:x.id = y.id join_type:LEFT JOIN left:t1 AS x right:t2 AS y]",
		"Filter [2] map[predicate:y.b IS NULL]",
		"Project [3] map[columns:[x.a y.b]]",
	}, summary(got))
}

func TestPlanJoinGroupBy(t *testing.T) {
	stmt := mustParse(t, "SELECT t1.a, count(t2.b) AS c FROM pg.t1 JOIN mysql.t2 ON t1.id = t2.id "+
		"GROUP BY t1.a HAVING count(t2.b) > 1 ORDER BY t1.a DESC LIMIT 5 OFFSET 2")
	got, err := planner.PlanQuery(stmt, []string{"pg", "mysql"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"FetchDataframe [] map[integration:pg query:SELECT * FROM t1]",
		"FetchDataframe [] map[integration:mysql query:SELECT * FROM t2]",
		"Join [0 1] map[condition:t1.id = t2.id join_type:INNER JOIN left:t1 right:t2]",
		"GroupBy [2] map[columns:[t1.a] targets:[t1.a count(t2.b)]]",
		"Filter [3] map[predicate:count(t2.b) > 1]",
		"OrderBy [4] map[order_by:[t1.a DESC]]",
		"LimitOffset [5] map[limit:5 offset:2]",
		"Project [6] map[columns:[t1.a count(t2.b) AS c]]",
	}, summary(got))
}

func TestPlanJoinDistinct(t *testing.T) {
	stmt := mustParse(t, "SELECT DISTINCT t1.a FROM pg.t1 JOIN mysql.t2 ON t1.id = t2.id")
	got, err := planner.PlanQuery(stmt, []string{"pg", "mysql"})
	require.NoError(t, err)

	last := got.LastStep().(*planner.ProjectStep)
	assert.True(t, last.Distinct)
	assert.Equal(t, res(2), last.Source)
}

func TestPlanJoinSingleIntegrationIsPushedDown(t *testing.T) {
	stmt := mustParse(t, "SELECT t1.a FROM pg.t1 JOIN pg.t2 ON t1.id = t2.id")
	got, err := planner.PlanQuery(stmt, []string{"pg", "mysql"})
	require.NoError(t, err)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, "SELECT t1.a FROM t1 INNER JOIN t2 ON t1.id = t2.id",
		ast.String(got.Steps[0].(*planner.FetchDataframeStep).Query))
}

func TestPlanJoinSubselect(t *testing.T) {
	stmt := mustParse(t, "SELECT t1.a, s.b FROM pg.t1 JOIN (SELECT b, id FROM mysql.t2) AS s ON t1.id = s.id WHERE s.b = 'x'")
	got, err := planner.PlanQuery(stmt, []string{"pg", "mysql"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"FetchDataframe [] map[integration:pg query:SELECT * FROM t1]",
		"FetchDataframe [] map[integration:mysql query:SELECT b, id FROM t2]",
		"SubSelect [1] map[query:SELECT * WHERE b = 'x' table_name:s]",
		"Join [0 2] map[condition:t1.id = s.id join_type:INNER JOIN left:t1 right:s]",
		"Filter [3] map[predicate:s.b = 'x']",
		"Project [4] map[columns:[t1.a s.b]]",
	}, summary(got))
}

func TestPlanJoinPredictor(t *testing.T) {
	stmt := mustParse(t, "SELECT tab.a, pred.y FROM pg.tab JOIN mindsdb.pred WHERE tab.a > 1 AND pred.k = 3")
	got, err := planner.PlanQuery(stmt, []string{"pg"})
	require.NoError(t, err)

	want := expectPlan(
		&planner.FetchDataframeStep{Integration: "pg", Query: &ast.Select{
			Targets:   star(),
			FromTable: id("tab"),
			Where:     ast.NewBinaryOperation(">", id("a"), ast.NewConstant(1)),
		}},
		&planner.ApplyPredictorStep{
			Namespace: "mindsdb",
			Predictor: id("pred"),
			Source:    res(0),
			Row:       map[string]any{"k": int64(3)},
		},
		&planner.JoinStep{Left: res(0), Right: res(1), Query: &ast.Join{
			Left:     id("tab"),
			Right:    id("pred"),
			JoinType: ast.CrossJoin,
		}},
		&planner.FilterStep{Source: res(2), Predicate: ast.NewBinaryOperation(">", id("tab.a"), ast.NewConstant(1))},
		&planner.ProjectStep{Source: res(3), Columns: []ast.Expr{id("tab.a"), id("pred.y")}},
	)
	assertPlan(t, want, got)
	assert.Equal(t, []string{"mindsdb", "pg"}, got.IntegrationNames())
}

func TestPlanSelectFromPredictor(t *testing.T) {
	stmt := mustParse(t, "SELECT pred.y FROM mindsdb.pred WHERE x = 1 AND z = 'a'")
	got, err := planner.PlanQuery(stmt, []string{"pg"})
	require.NoError(t, err)

	want := expectPlan(
		&planner.ApplyPredictorRowStep{
			Namespace: "mindsdb",
			Predictor: id("pred"),
			Row:       map[string]any{"x": int64(1), "z": "a"},
		},
		&planner.ProjectStep{Source: res(0), Columns: []ast.Expr{id("y")}},
	)
	assertPlan(t, want, got)
}

func TestPlanSelectFromPredictorNegativeInput(t *testing.T) {
	want := expectPlan(&planner.ApplyPredictorRowStep{
		Namespace: "mindsdb",
		Predictor: id("pred"),
		Row:       map[string]any{"x": -1.5, "z": int64(-2)},
	})

	got, err := planner.PlanQuery(mustParse(t, "SELECT * FROM mindsdb.pred WHERE x = -1.5 AND z = -2"), []string{"pg"})
	require.NoError(t, err)
	assertPlan(t, want, got)

	stmt := &ast.Select{
		Targets:   star(),
		FromTable: id("mindsdb.pred"),
		Where: ast.And(
			eq(id("x"), &ast.UnaryOperation{Op: "-", Args: []ast.Expr{ast.NewConstant(1.5)}}),
			eq(id("z"), &ast.UnaryOperation{Op: "-", Args: []ast.Expr{ast.NewConstant(2)}}),
		),
	}
	got, err = planner.PlanQuery(stmt, []string{"pg"})
	require.NoError(t, err)
	assertPlan(t, want, got)
}

func TestPlanSelectFromPredictorWithParams(t *testing.T) {
	stmt := &ast.Select{
		Targets:   star(),
		FromTable: id("mindsdb.pred"),
		Where:     eq(id("x"), &ast.NullConstant{}),
		Using:     map[string]any{"engine": "lightwood"},
	}
	got, err := planner.PlanQuery(stmt, nil)
	require.NoError(t, err)

	want := expectPlan(&planner.ApplyPredictorRowStep{
		Namespace: "mindsdb",
		Predictor: id("pred"),
		Row:       map[string]any{"x": nil},
		Params:    map[string]any{"engine": "lightwood"},
	})
	assertPlan(t, want, got)
}

func TestPlanProjectIntegrationPredictor(t *testing.T) {
	ct := catalog.NewCatalog("pg")
	ct.Add(catalog.Integration{Name: "Proj", Type: catalog.Project})
	p := planner.NewQueryPlanner(ct, planner.WithPredictorNamespace(""))

	got, err := p.MakePlan(mustParse(t, "SELECT * FROM proj.model WHERE a = 2"))
	require.NoError(t, err)
	require.Len(t, got.Steps, 1)
	row := got.Steps[0].(*planner.ApplyPredictorRowStep)
	assert.Equal(t, "proj", row.Namespace)

	_, err = p.MakePlan(mustParse(t, "SELECT * FROM mindsdb.pred WHERE a = 2"))
	assert.ErrorIs(t, err, planner.NoIntegrationError)
}

func TestPlanNativeQuery(t *testing.T) {
	stmt := &ast.Select{
		Targets:   star(),
		FromTable: &ast.NativeQuery{Integration: "PG", Query: "select * from t where j->>'a' = 1", Alias: "n"},
		Where:     ast.NewBinaryOperation(">", id("n.x"), ast.NewConstant(1)),
	}
	got, err := planner.PlanQuery(stmt, []string{"pg"})
	require.NoError(t, err)

	want := expectPlan(
		&planner.FetchDataframeStep{Integration: "pg", RawQuery: "select * from t where j->>'a' = 1"},
		&planner.SubSelectStep{
			Source:    res(0),
			Query:     &ast.Select{Targets: star(), Where: ast.NewBinaryOperation(">", id("n.x"), ast.NewConstant(1))},
			TableName: "n",
		},
	)
	assertPlan(t, want, got)

	stmt.Where = nil
	got, err = planner.PlanQuery(stmt, []string{"pg"})
	require.NoError(t, err)
	assert.Len(t, got.Steps, 1)

	stmt.FromTable = &ast.NativeQuery{Integration: "mongo", Query: "db.t.find()"}
	_, err = planner.PlanQuery(stmt, []string{"pg"})
	assert.ErrorIs(t, err, planner.NoIntegrationError)
}

func TestPlanUnion(t *testing.T) {
	stmt := mustParse(t, "SELECT a FROM pg.t1 UNION ALL SELECT a FROM mysql.t2")
	got, err := planner.PlanQuery(stmt, []string{"pg", "mysql"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"FetchDataframe [] map[integration:pg query:SELECT a FROM t1]",
		"FetchDataframe [] map[integration:mysql query:SELECT a FROM t2]",
		"Union [0 1] map[unique:false]",
	}, summary(got))
}

func TestPlanErrors(t *testing.T) {
	tests := []struct {
		name         string
		sql          string
		integrations []string
		want         error
		kind         string
	}{
		{"bare table with several integrations", "SELECT * FROM tab", []string{"pg", "mysql"}, planner.AmbiguousNamespaceError, "ambiguous_namespace"},
		{"bare table with one integration", "SELECT * FROM tab", []string{"pg"}, planner.NoIntegrationError, "no_integration"},
		{"unknown integration", "SELECT * FROM other.tab", []string{"pg", "mysql"}, planner.NoIntegrationError, "no_integration"},
		{"ambiguous join column", "SELECT t1.a FROM pg.t1 JOIN mysql.t2 ON t1.id = t2.id WHERE a = 1", []string{"pg", "mysql"}, planner.AmbiguousColumnError, "ambiguous_column"},
		{"unknown join table", "SELECT t3.a FROM pg.t1 JOIN mysql.t2 ON t1.id = t2.id", []string{"pg", "mysql"}, planner.UnknownTableError, "unknown_table"},
		{"duplicate join table", "SELECT t.a FROM pg.t JOIN mysql.t ON pg.t.id = mysql.t.id", []string{"pg", "mysql"}, planner.UnsupportedConstructError, "unsupported_construct"},
		{"predictor without where", "SELECT * FROM mindsdb.pred", []string{"pg"}, planner.UnsupportedConstructError, "unsupported_construct"},
		{"predictor with range input", "SELECT * FROM mindsdb.pred WHERE x > 1", []string{"pg"}, planner.UnsupportedConstructError, "unsupported_construct"},
		{"predictor grouped", "SELECT y FROM mindsdb.pred WHERE x = 1 GROUP BY y", []string{"pg"}, planner.UnsupportedConstructError, "unsupported_construct"},
		{"predictor first in join", "SELECT * FROM mindsdb.pred JOIN pg.tab", []string{"pg"}, planner.UnsupportedConstructError, "unsupported_construct"},
		{"predictor joined to predictor", "SELECT * FROM pg.tab JOIN mindsdb.p1 JOIN mindsdb.p2", []string{"pg"}, planner.UnsupportedConstructError, "unsupported_construct"},
		{"straight join across integrations", "SELECT * FROM pg.t1 STRAIGHT_JOIN mysql.t2 ON t1.id = t2.id", []string{"pg", "mysql"}, planner.UnsupportedConstructError, "unsupported_construct"},
		{"natural join across integrations", "SELECT * FROM pg.t1 NATURAL JOIN mysql.t2", []string{"pg", "mysql"}, planner.UnsupportedConstructError, "unsupported_construct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := planner.PlanQuery(mustParse(t, tt.sql), tt.integrations)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, tt.kind, planner.ErrorKind(err))
		})
	}
}

func TestPlanMalformed(t *testing.T) {
	_, err := planner.PlanQuery(nil, []string{"pg"})
	assert.ErrorIs(t, err, planner.MalformedAstError)

	_, err = planner.PlanQuery(&ast.Select{FromTable: id("pg.tab")}, []string{"pg"})
	assert.ErrorIs(t, err, planner.MalformedAstError)
	assert.Equal(t, "malformed_ast", planner.ErrorKind(err))

	_, err = planner.PlanQuery(&ast.Select{Targets: star(), FromTable: &ast.Identifier{Parts: []string{"pg", ""}}}, []string{"pg"})
	assert.ErrorIs(t, err, planner.MalformedAstError)
}

func TestPlanMaxDepth(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM (SELECT * FROM (SELECT a FROM pg.t) AS s1) AS s2")

	_, err := planner.PlanQuery(stmt, []string{"pg"}, planner.WithMaxDepth(2))
	assert.ErrorIs(t, err, planner.UnsupportedConstructError)

	_, err = planner.PlanQuery(stmt, []string{"pg"}, planner.WithMaxDepth(3))
	assert.NoError(t, err)
}

func TestPlanDoesNotModifyInput(t *testing.T) {
	stmt := mustParse(t, "SELECT pg.t1.a, (SELECT max(b) FROM mysql.t2) AS m FROM pg.t1 JOIN mysql.t3 ON t1.id = t3.id WHERE t3.c = 1")
	before := ast.Clone(stmt)

	_, err := planner.PlanQuery(stmt, []string{"pg", "mysql"})
	require.NoError(t, err)
	assert.Equal(t, before, stmt)
}

func TestPlanIsDeterministic(t *testing.T) {
	stmt := mustParse(t, "SELECT t1.a, t2.b FROM pg.t1 JOIN mysql.t2 ON t1.id = t2.id WHERE t2.b IN (SELECT b FROM files.t3)")
	integrations := []string{"pg", "mysql", "files"}

	first, err := planner.PlanQuery(stmt, integrations)
	require.NoError(t, err)
	second, err := planner.PlanQuery(stmt, integrations)
	require.NoError(t, err)

	assertPlan(t, first, second)
	f1, err := first.Fingerprint()
	require.NoError(t, err)
	f2, err := second.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
	require.NoError(t, first.Validate())
}

func TestPlanReferencesEarlierSteps(t *testing.T) {
	queries := []string{
		"SELECT a FROM pg.t1 WHERE b = (SELECT max(b) FROM mysql.t2)",
		"SELECT t1.a FROM pg.t1 JOIN mysql.t2 ON t1.id = t2.id JOIN files.t3 ON t2.id = t3.id",
		"SELECT * FROM (SELECT t1.a FROM pg.t1 JOIN mysql.t2 ON t1.id = t2.id) AS sub WHERE sub.a > 1",
	}
	for _, sql := range queries {
		got, err := planner.PlanQuery(mustParse(t, sql), []string{"pg", "mysql", "files"})
		require.NoError(t, err, sql)
		for _, s := range got.Steps {
			for _, ref := range s.References() {
				assert.Less(t, ref.StepIndex, s.Index(), sql)
			}
		}
	}
}
