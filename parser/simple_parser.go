package parser

import (
	"fedplan/ast"
	"github.com/cockroachdb/errors"
	"github.com/xwb1989/sqlparser"
)

var (
	SyntaxError      = errors.New("syntax error")
	UnsupportedError = errors.New("unsupported syntax")
)

type Parser interface {
	Parse(sqlString string) (ast.Statement, error)
}

// SimpleParser parses MySQL-dialect queries.
type SimpleParser struct {
}

func NewSimpleParser() *SimpleParser {
	return &SimpleParser{}
}

func (sp *SimpleParser) Parse(sqlString string) (ast.Statement, error) {
	stmt, err := sqlparser.Parse(sqlString)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse"), SyntaxError)
	}

	switch s := stmt.(type) {
	case sqlparser.SelectStatement:
		return buildStatement(s)
	default:
		return nil, errors.Wrapf(UnsupportedError, "statement type %T", s)
	}
}

func buildStatement(stmt sqlparser.SelectStatement) (ast.Statement, error) {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		return BuildSelect(s)
	case *sqlparser.Union:
		return buildUnion(s)
	case *sqlparser.ParenSelect:
		return buildStatement(s.Select)
	default:
		return nil, errors.Wrapf(UnsupportedError, "select statement type %T", s)
	}
}

func buildUnion(u *sqlparser.Union) (*ast.Union, error) {
	if len(u.OrderBy) > 0 || u.Limit != nil {
		return nil, errors.Wrap(UnsupportedError, "ORDER BY or LIMIT on a UNION")
	}
	left, err := buildStatement(u.Left)
	if err != nil {
		return nil, err
	}
	right, err := buildStatement(u.Right)
	if err != nil {
		return nil, err
	}
	return &ast.Union{Left: left, Right: right, Unique: u.Type != sqlparser.UnionAllStr}, nil
}
